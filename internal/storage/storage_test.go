package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/jacl-coder/RhodesGacha-Server/config"
	"github.com/jacl-coder/RhodesGacha-Server/internal/models"
	"github.com/jacl-coder/RhodesGacha-Server/internal/state"
	"github.com/jacl-coder/RhodesGacha-Server/pkg/db"
	"github.com/stretchr/testify/suite"
)

type StorageTestSuite struct {
	suite.Suite
	ctx   context.Context
	conn  *sql.DB
	mr    *miniredis.Miniredis
	redis *redis.Client
	users *UserRepo
	teams *TeamRepo
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageTestSuite))
}

func (s *StorageTestSuite) SetupTest() {
	s.ctx = context.Background()

	cfg := config.DatabaseConfig{Driver: config.DriverSQLite, Path: filepath.Join(s.T().TempDir(), "test.db")}
	conn, err := db.Open(s.ctx, cfg.Driver, cfg.GetDSN())
	s.Require().NoError(err)
	s.Require().NoError(db.Migrate(s.ctx, conn, cfg.Driver))
	s.conn = conn

	s.mr = miniredis.RunT(s.T())
	s.redis = redis.NewClient(&redis.Options{Addr: s.mr.Addr()})

	s.users = NewUserRepo(conn, cfg.Driver, 1000)
	s.teams = NewTeamRepo(conn, cfg.Driver)
}

func (s *StorageTestSuite) TearDownTest() {
	s.redis.Close()
	s.conn.Close()
}

func (s *StorageTestSuite) createUser(name string) *models.User {
	u, err := s.users.Create(s.ctx, name, "hash-"+name)
	s.Require().NoError(err)
	return u
}

func (s *StorageTestSuite) TestCreateAndFindUser() {
	u := s.createUser("amiya")
	s.NotZero(u.ID)
	s.Equal(1000, u.Elo)

	found, err := s.users.FindByUsername(s.ctx, "amiya")
	s.Require().NoError(err)
	s.Equal(u.ID, found.ID)
	s.Equal("hash-amiya", found.PasswordHash)
	s.False(found.CreatedAt.IsZero())

	byID, err := s.users.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("amiya", byID.Username)

	_, err = s.users.FindByUsername(s.ctx, "nobody")
	s.ErrorIs(err, ErrNotFound)
}

func (s *StorageTestSuite) TestDuplicateUsername() {
	s.createUser("amiya")
	_, err := s.users.Create(s.ctx, "amiya", "other")
	s.ErrorIs(err, ErrUsernameTaken)
}

func (s *StorageTestSuite) TestUpdateElosAndTop() {
	a := s.createUser("a")
	b := s.createUser("b")
	c := s.createUser("c")

	s.Require().NoError(s.users.UpdateElos(s.ctx, map[int64]int{a.ID: 1016, b.ID: 984}))

	top, err := s.users.Top(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(top, 3)
	s.Equal(models.LadderEntry{Rank: 1, UserID: a.ID, Username: "a", Elo: 1016}, top[0])
	s.Equal(c.ID, top[1].UserID)
	s.Equal(b.ID, top[2].UserID)

	err = s.users.UpdateElos(s.ctx, map[int64]int{9999: 1})
	s.ErrorIs(err, ErrNotFound)
}

func (s *StorageTestSuite) TestSettleMatch() {
	a := s.createUser("a")
	b := s.createUser("b")
	s.Require().NoError(s.users.UpdateElos(s.ctx, map[int64]int{a.ID: 1200}))

	var seen [2]int
	st, err := s.users.SettleMatch(s.ctx, b.ID, a.ID, func(mine, other int) (int, int) {
		seen = [2]int{mine, other}
		return mine + 20, other - 20
	})
	s.Require().NoError(err)
	s.Equal([2]int{1000, 1200}, seen)
	s.Equal(b.ID, st.Me.ID)
	s.Equal(1200, st.Opponent.Elo)
	s.Equal(1020, st.NewElo)
	s.Equal(1180, st.OpponentNewElo)

	got, err := s.users.FindByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(1180, got.Elo)

	_, err = s.users.SettleMatch(s.ctx, a.ID, 9999, func(mine, other int) (int, int) { return mine, other })
	s.ErrorIs(err, ErrNotFound)
	got, err = s.users.FindByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(1180, got.Elo)
}

func (s *StorageTestSuite) TestSQLSaveStore() {
	store := NewSQLSaveStore(s.conn, config.DriverSQLite)

	_, err := store.Load(s.ctx, "user:1")
	s.ErrorIs(err, state.ErrNoSnapshot)

	s.Require().NoError(store.Save(s.ctx, "user:1", []byte(`{"currency":1}`)))
	s.Require().NoError(store.Save(s.ctx, "user:1", []byte(`{"currency":2}`)))

	data, err := store.Load(s.ctx, "user:1")
	s.Require().NoError(err)
	s.JSONEq(`{"currency":2}`, string(data))
}

func (s *StorageTestSuite) TestRedisSaveStore() {
	store := NewRedisSaveStore(s.redis, time.Hour)

	_, err := store.Load(s.ctx, "guest")
	s.ErrorIs(err, state.ErrNoSnapshot)

	s.Require().NoError(store.Save(s.ctx, "guest", []byte(`{"tickets":3}`)))
	data, err := store.Load(s.ctx, "guest")
	s.Require().NoError(err)
	s.Equal(`{"tickets":3}`, string(data))
	s.True(s.mr.Exists(SaveKeyPrefix + "guest"))
	s.Equal(time.Hour, s.mr.TTL(SaveKeyPrefix+"guest"))
}

func (s *StorageTestSuite) TestMemorySaveStoreCopies() {
	store := NewMemorySaveStore()
	buf := []byte("abc")
	s.Require().NoError(store.Save(s.ctx, "k", buf))
	buf[0] = 'x'

	data, err := store.Load(s.ctx, "k")
	s.Require().NoError(err)
	s.Equal("abc", string(data))
}

func (s *StorageTestSuite) TestStoreRoundTripThroughSQL() {
	persist := NewSQLSaveStore(s.conn, config.DriverSQLite)

	st := models.NewPlayerState(time.Unix(1_700_000_000, 0).UTC())
	st.Currency = 4321
	data, err := state.Encode(st)
	s.Require().NoError(err)
	s.Require().NoError(persist.Save(s.ctx, "user:7", data))

	raw, err := persist.Load(s.ctx, "user:7")
	s.Require().NoError(err)
	got, err := state.Decode(raw)
	s.Require().NoError(err)
	s.Equal(int64(4321), got.Currency)
}

func squadOf(ids ...string) models.Squad {
	sq := models.Squad{IDs: ids}
	for _, id := range ids {
		sq.Snapshot = append(sq.Snapshot, models.SnapshotUnit{UID: id, Name: id, Stars: 1, Level: 1})
	}
	return sq
}

func (s *StorageTestSuite) TestTeamUpsertAndList() {
	u := s.createUser("amiya")

	s.Require().NoError(s.teams.Upsert(s.ctx, models.ArenaTeam{UserID: u.ID, Type: models.TeamAttack, Squad: squadOf("c1"), Power: 100}))
	s.Require().NoError(s.teams.Upsert(s.ctx, models.ArenaTeam{UserID: u.ID, Type: models.TeamDefense, Squad: squadOf("c1", "c2"), Power: 200}))
	s.Require().NoError(s.teams.Upsert(s.ctx, models.ArenaTeam{UserID: u.ID, Type: models.TeamDefense, Squad: squadOf("c2"), Power: 150}))

	teams, err := s.teams.ListByUser(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Require().Len(teams, 2)
	s.Equal(models.TeamAttack, teams[0].Type)
	s.Equal(models.TeamDefense, teams[1].Type)
	s.Equal([]string{"c2"}, teams[1].Squad.IDs)
	s.Equal(150, teams[1].Power)
}

func (s *StorageTestSuite) TestDefenseTeamsExcludeSelf() {
	me := s.createUser("me")
	other := s.createUser("other")
	attacker := s.createUser("attacker")

	s.Require().NoError(s.teams.Upsert(s.ctx, models.ArenaTeam{UserID: me.ID, Type: models.TeamDefense, Squad: squadOf("m1"), Power: 10}))
	s.Require().NoError(s.teams.Upsert(s.ctx, models.ArenaTeam{UserID: other.ID, Type: models.TeamDefense, Squad: squadOf("o1"), Power: 20}))
	s.Require().NoError(s.teams.Upsert(s.ctx, models.ArenaTeam{UserID: attacker.ID, Type: models.TeamAttack, Squad: squadOf("a1"), Power: 30}))

	opps, err := s.teams.DefenseTeams(s.ctx, me.ID)
	s.Require().NoError(err)
	s.Require().Len(opps, 1)
	s.Equal(other.ID, opps[0].UserID)
	s.Equal("other", opps[0].Username)
	s.Equal(1000, opps[0].Elo)
	s.Equal([]string{"o1"}, opps[0].Squad.IDs)

	got, err := s.teams.DefenseTeam(s.ctx, other.ID)
	s.Require().NoError(err)
	s.Equal(20, got.Power)

	_, err = s.teams.DefenseTeam(s.ctx, attacker.ID)
	s.ErrorIs(err, ErrNotFound)
}

func (s *StorageTestSuite) TestLadderCacheWarmsFromDatabase() {
	a := s.createUser("a")
	b := s.createUser("b")
	s.Require().NoError(s.users.UpdateElos(s.ctx, map[int64]int{a.ID: 1100}))

	lc := NewLadderCache(s.redis, s.users)
	top, err := lc.Top(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(top, 2)
	s.Equal("a", top[0].Username)

	s.True(s.mr.Exists(LadderKey))

	s.Require().NoError(lc.UpdateElo(s.ctx, b.ID, "b", 1200))
	top, err = lc.Top(s.ctx, 10)
	s.Require().NoError(err)
	s.Equal(models.LadderEntry{Rank: 1, UserID: b.ID, Username: "b", Elo: 1200}, top[0])
	s.Equal(2, top[1].Rank)

	rank, err := lc.Rank(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(2, rank)

	rank, err = lc.Rank(s.ctx, 9999)
	s.Require().NoError(err)
	s.Equal(-1, rank)
}

func (s *StorageTestSuite) TestLadderCacheWithoutRedis() {
	s.createUser("solo")
	lc := NewLadderCache(nil, s.users)

	s.NoError(lc.UpdateElo(s.ctx, 1, "solo", 5))
	top, err := lc.Top(s.ctx, 5)
	s.Require().NoError(err)
	s.Require().Len(top, 1)
	s.Equal(1000, top[0].Elo)

	top, err = lc.Top(s.ctx, 0)
	s.NoError(err)
	s.Empty(top)
}

func (s *StorageTestSuite) TestRevocationLists() {
	lists := map[string]interface {
		Revoke(context.Context, string, time.Duration) error
		IsRevoked(context.Context, string) (bool, error)
	}{
		"redis":  NewRedisRevocationList(s.redis),
		"memory": NewMemoryRevocationList(),
	}

	for name, l := range lists {
		revoked, err := l.IsRevoked(s.ctx, "jti-1")
		s.Require().NoError(err, name)
		s.False(revoked, name)

		s.Require().NoError(l.Revoke(s.ctx, "jti-1", time.Minute), name)
		revoked, err = l.IsRevoked(s.ctx, "jti-1")
		s.Require().NoError(err, name)
		s.True(revoked, name)

		s.Require().NoError(l.Revoke(s.ctx, "jti-2", 0), name)
		revoked, _ = l.IsRevoked(s.ctx, "jti-2")
		s.False(revoked, name)
	}
}
