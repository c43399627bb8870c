package arena

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jacl-coder/RhodesGacha-Server/config"
	"github.com/jacl-coder/RhodesGacha-Server/internal/auth"
	"github.com/jacl-coder/RhodesGacha-Server/internal/models"
	"github.com/jacl-coder/RhodesGacha-Server/internal/pkg/rng"
	"github.com/jacl-coder/RhodesGacha-Server/internal/storage"
	"github.com/jacl-coder/RhodesGacha-Server/pkg/db"
	"github.com/stretchr/testify/suite"
)

type ArenaTestSuite struct {
	suite.Suite
	ctx     context.Context
	users   *storage.UserRepo
	teams   *storage.TeamRepo
	service *Service
	tokens  *auth.TokenService
	server  *httptest.Server
	client  *Client
}

func TestArenaSuite(t *testing.T) {
	suite.Run(t, new(ArenaTestSuite))
}

func (s *ArenaTestSuite) SetupTest() {
	s.ctx = context.Background()

	cfg := config.DatabaseConfig{Driver: config.DriverSQLite, Path: filepath.Join(s.T().TempDir(), "arena.db")}
	conn, err := db.Open(s.ctx, cfg.Driver, cfg.GetDSN())
	s.Require().NoError(err)
	s.Require().NoError(db.Migrate(s.ctx, conn, cfg.Driver))
	s.T().Cleanup(func() { conn.Close() })

	s.users = storage.NewUserRepo(conn, cfg.Driver, 1000)
	s.teams = storage.NewTeamRepo(conn, cfg.Driver)
	ladder := storage.NewLadderCache(nil, s.users)

	s.service = NewService(s.users, s.teams, ladder, config.ArenaConfig{
		KFactor:       32,
		LadderSize:    10,
		OpponentCount: 2,
		MatchWindow:   200,
	}, rng.NewSeeded(1))
	s.tokens = auth.NewTokenService("secret", time.Hour, nil)

	srv := NewServer(0, s.service, s.tokens)
	s.server = httptest.NewServer(srv.Handler())
	s.T().Cleanup(s.server.Close)
	s.client = NewClient(s.server.URL, time.Second)
}

func (s *ArenaTestSuite) user(name string, elo int) (*models.User, string) {
	u, err := s.users.Create(s.ctx, name, "x")
	s.Require().NoError(err)
	if elo != 1000 {
		s.Require().NoError(s.users.UpdateElos(s.ctx, map[int64]int{u.ID: elo}))
		u.Elo = elo
	}
	token, _, err := s.tokens.Issue(u.ID, u.Username)
	s.Require().NoError(err)
	return u, token
}

func squad(ids ...string) models.Squad {
	sq := models.Squad{IDs: ids}
	for _, id := range ids {
		sq.Snapshot = append(sq.Snapshot, models.SnapshotUnit{UID: id, Name: id, Stars: 1, Level: 1,
			Stats: models.FinalStats{Attack: 10, Defense: 5, Health: 100, Speed: 10}})
	}
	return sq
}

func (s *ArenaTestSuite) defense(u *models.User) {
	s.Require().NoError(s.service.SaveTeam(s.ctx, u.ID, models.TeamDefense, squad(u.Username+"-1"), 100))
}

func (s *ArenaTestSuite) TestSaveTeamValidation() {
	u, _ := s.user("amiya", 1000)

	s.ErrorIs(s.service.SaveTeam(s.ctx, u.ID, "MIDFIELD", squad("c1"), 1), ErrInvalidTeamType)
	s.ErrorIs(s.service.SaveTeam(s.ctx, u.ID, models.TeamAttack, squad(), 1), ErrInvalidSquad)
	s.ErrorIs(s.service.SaveTeam(s.ctx, u.ID, models.TeamAttack, squad("1", "2", "3", "4", "5"), 1), ErrInvalidSquad)
	s.ErrorIs(s.service.SaveTeam(s.ctx, u.ID, models.TeamAttack, models.Squad{IDs: []string{"c1"}}, 1), ErrInvalidSquad)
	s.ErrorIs(s.service.SaveTeam(s.ctx, u.ID, models.TeamAttack, squad("c1"), -1), ErrInvalidSquad)
	s.NoError(s.service.SaveTeam(s.ctx, u.ID, models.TeamAttack, squad("c1"), 1))
}

func (s *ArenaTestSuite) TestOpponentsPreferNearbyElo() {
	me, _ := s.user("me", 1000)
	near1, _ := s.user("near1", 1100)
	near2, _ := s.user("near2", 900)
	far, _ := s.user("far", 2000)
	s.defense(me)
	s.defense(near1)
	s.defense(near2)
	s.defense(far)

	opps, err := s.service.Opponents(s.ctx, me.ID)
	s.Require().NoError(err)
	s.Require().Len(opps, 2)
	ids := []int64{opps[0].UserID, opps[1].UserID}
	s.ElementsMatch([]int64{near1.ID, near2.ID}, ids)
}

func (s *ArenaTestSuite) TestOpponentsFillFromOutsideWindow() {
	me, _ := s.user("me", 1000)
	near, _ := s.user("near", 1050)
	far, _ := s.user("far", 3000)
	s.defense(near)
	s.defense(far)

	opps, err := s.service.Opponents(s.ctx, me.ID)
	s.Require().NoError(err)
	s.Require().Len(opps, 2)
	s.Equal(near.ID, opps[0].UserID)
	s.Equal(far.ID, opps[1].UserID)
}

func (s *ArenaTestSuite) TestOpponentsEmpty() {
	me, _ := s.user("me", 1000)
	opps, err := s.service.Opponents(s.ctx, me.ID)
	s.Require().NoError(err)
	s.NotNil(opps)
	s.Empty(opps)
}

func (s *ArenaTestSuite) TestReportResult() {
	me, _ := s.user("me", 1000)
	opp, _ := s.user("opp", 1000)

	update, err := s.service.ReportResult(s.ctx, me.ID, models.MatchResult{OpponentID: opp.ID, Result: models.OutcomeWin})
	s.Require().NoError(err)
	s.Equal(models.EloUpdate{NewElo: 1016, Delta: 16, OpponentNewElo: 984}, update)

	got, err := s.users.FindByID(s.ctx, opp.ID)
	s.Require().NoError(err)
	s.Equal(984, got.Elo)

	_, err = s.service.ReportResult(s.ctx, me.ID, models.MatchResult{OpponentID: 999, Result: models.OutcomeWin})
	s.ErrorIs(err, ErrOpponentNotFound)
	_, err = s.service.ReportResult(s.ctx, me.ID, models.MatchResult{OpponentID: opp.ID, Result: "DRAW"})
	s.ErrorIs(err, ErrInvalidResult)
	_, err = s.service.ReportResult(s.ctx, me.ID, models.MatchResult{OpponentID: me.ID, Result: models.OutcomeWin})
	s.ErrorIs(err, ErrSelfMatch)
}

func (s *ArenaTestSuite) TestOpponentLookupIgnoresShuffle() {
	me, token := s.user("me", 1000)
	for i := 0; i < 8; i++ {
		u, _ := s.user(fmt.Sprintf("def%d", i), 1000)
		s.defense(u)
	}

	shown, err := s.client.Opponents(s.ctx, token)
	s.Require().NoError(err)
	s.Require().Len(shown, 2)

	// 再次匹配会重新洗牌，已展示的对手仍可直接获取
	_, err = s.service.Opponents(s.ctx, me.ID)
	s.Require().NoError(err)
	for _, o := range shown {
		got, err := s.client.Opponent(s.ctx, token, o.UserID)
		s.Require().NoError(err)
		s.Equal(o.UserID, got.UserID)
		s.Equal(o.Squad.IDs, got.Squad.IDs)
	}

	_, err = s.service.Opponent(s.ctx, me.ID, me.ID)
	s.ErrorIs(err, ErrSelfMatch)
	_, err = s.service.Opponent(s.ctx, me.ID, 9999)
	s.ErrorIs(err, ErrOpponentNotFound)

	noTeam, _ := s.user("bench", 1000)
	_, err = s.client.Opponent(s.ctx, token, noTeam.ID)
	s.ErrorContains(err, "404")

	req, _ := http.NewRequest(http.MethodGet, s.server.URL+"/arena/opponents/abc", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *ArenaTestSuite) TestConcurrentResultsKeepEveryUpdate() {
	me, _ := s.user("me", 1000)
	opp, _ := s.user("opp", 1000)

	const fights = 10
	var wg sync.WaitGroup
	for i := 0; i < fights; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.ReportResult(s.ctx, me.ID, models.MatchResult{OpponentID: opp.ID, Result: models.OutcomeWin})
			s.NoError(err)
		}()
	}
	wg.Wait()

	wantMine, wantOpp := 1000, 1000
	for i := 0; i < fights; i++ {
		wantMine, wantOpp = Rate(wantMine, wantOpp, true, 32)
	}
	gotMe, err := s.users.FindByID(s.ctx, me.ID)
	s.Require().NoError(err)
	gotOpp, err := s.users.FindByID(s.ctx, opp.ID)
	s.Require().NoError(err)
	s.Equal(wantMine, gotMe.Elo)
	s.Equal(wantOpp, gotOpp.Elo)
}

func (s *ArenaTestSuite) TestHTTPRoundTrip() {
	me, token := s.user("me", 1000)
	opp, _ := s.user("opp", 1000)
	s.defense(opp)

	s.Require().NoError(s.client.SaveTeam(s.ctx, token, SaveTeamRequest{Type: models.TeamAttack, Squad: squad("c1"), Power: 50}))

	teams, err := s.client.Teams(s.ctx, token)
	s.Require().NoError(err)
	s.Require().Len(teams, 1)
	s.Equal(models.TeamAttack, teams[0].Type)
	s.Equal(me.ID, teams[0].UserID)

	opps, err := s.client.Opponents(s.ctx, token)
	s.Require().NoError(err)
	s.Require().Len(opps, 1)
	s.Equal("opp", opps[0].Username)
	s.Equal(10, opps[0].Squad.Snapshot[0].Stats.Attack)

	update, err := s.client.ReportResult(s.ctx, token, models.MatchResult{OpponentID: opp.ID, Result: models.OutcomeLoss})
	s.Require().NoError(err)
	s.Equal(-16, update.Delta)

	ladder, err := s.client.Ladder(s.ctx, token)
	s.Require().NoError(err)
	s.Require().Len(ladder, 2)
	s.Equal("opp", ladder[0].Username)
	s.Equal(1016, ladder[0].Elo)
}

func (s *ArenaTestSuite) TestHTTPErrors() {
	_, token := s.user("me", 1000)

	_, err := s.client.Teams(s.ctx, "bogus")
	s.Error(err)

	err = s.client.SaveTeam(s.ctx, token, SaveTeamRequest{Type: "BAD", Squad: squad("c1")})
	s.ErrorContains(err, "400")

	_, err = s.client.ReportResult(s.ctx, token, models.MatchResult{OpponentID: 12345, Result: models.OutcomeWin})
	s.ErrorContains(err, "404")

	resp, err := http.Post(s.server.URL+"/arena/team", "application/json", strings.NewReader("{"))
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(s.server.URL + "/health")
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *ArenaTestSuite) TestClientUnreachable() {
	c := NewClient("http://127.0.0.1:1", 200*time.Millisecond)
	_, err := c.Ladder(s.ctx, "t")
	s.Error(err)
}
