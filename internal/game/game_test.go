package game

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jacl-coder/RhodesGacha-Server/config"
	"github.com/jacl-coder/RhodesGacha-Server/internal/arena"
	"github.com/jacl-coder/RhodesGacha-Server/internal/auth"
	"github.com/jacl-coder/RhodesGacha-Server/internal/catalog"
	"github.com/jacl-coder/RhodesGacha-Server/internal/models"
	"github.com/jacl-coder/RhodesGacha-Server/internal/pkg/clock"
	"github.com/jacl-coder/RhodesGacha-Server/internal/pkg/idgen"
	"github.com/jacl-coder/RhodesGacha-Server/internal/pkg/rng"
	"github.com/jacl-coder/RhodesGacha-Server/internal/protocol"
	"github.com/jacl-coder/RhodesGacha-Server/internal/state"
	"github.com/jacl-coder/RhodesGacha-Server/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type fakeArena struct {
	mu        sync.Mutex
	opponents []models.Opponent
	// shown 每次匹配返回的对手数，0表示全部；每次调用轮转起点
	shown    int
	calls    int
	saved    []arena.SaveTeamRequest
	reported []models.MatchResult
	tokens   []string
}

func (f *fakeArena) record(token string) {
	f.mu.Lock()
	f.tokens = append(f.tokens, token)
	f.mu.Unlock()
}

func (f *fakeArena) Teams(ctx context.Context, token string) ([]models.ArenaTeam, error) {
	f.record(token)
	return nil, nil
}

func (f *fakeArena) Opponents(ctx context.Context, token string) ([]models.Opponent, error) {
	f.record(token)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.shown <= 0 || f.shown >= len(f.opponents) {
		return f.opponents, nil
	}
	out := make([]models.Opponent, 0, f.shown)
	for i := 0; i < f.shown; i++ {
		out = append(out, f.opponents[(f.calls*f.shown+i)%len(f.opponents)])
	}
	f.calls++
	return out, nil
}

func (f *fakeArena) Opponent(ctx context.Context, token string, opponentID int64) (*models.Opponent, error) {
	f.record(token)
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.opponents {
		if f.opponents[i].UserID == opponentID {
			opp := f.opponents[i]
			return &opp, nil
		}
	}
	return nil, arena.ErrOpponentNotFound
}

func (f *fakeArena) Ladder(ctx context.Context, token string) ([]models.LadderEntry, error) {
	f.record(token)
	return []models.LadderEntry{{Rank: 1, UserID: 1, Username: "amiya", Elo: 1016}}, nil
}

func (f *fakeArena) SaveTeam(ctx context.Context, token string, team arena.SaveTeamRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, team)
	return nil
}

func (f *fakeArena) ReportResult(ctx context.Context, token string, result models.MatchResult) (models.EloUpdate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reported = append(f.reported, result)
	return models.EloUpdate{NewElo: 1016, Delta: 16, OpponentNewElo: 984}, nil
}

type testEnv struct {
	server  *GameServer
	http    *httptest.Server
	persist *storage.MemorySaveStore
	tokens  *auth.TokenService
	arena   *fakeArena
}

func newTestEnv(t *testing.T, guestKey string) *testEnv {
	t.Helper()

	cfg := &config.Config{Game: config.GameConfig{GuestKey: guestKey, TickInterval: time.Hour}}
	env := state.Env{
		Catalog: catalog.Default(),
		Rand:    rng.NewSeeded(7),
		Clock:   clock.NewFixed(testNow),
		IDs:     idgen.NewSequential("u"),
	}
	te := &testEnv{
		persist: storage.NewMemorySaveStore(),
		tokens:  auth.NewTokenService("test-secret", time.Hour, nil),
		arena:   &fakeArena{},
	}
	te.server = NewGameServer(cfg, env, te.persist, te.tokens, te.arena)
	te.http = httptest.NewServer(te.server.Handler())
	t.Cleanup(func() {
		te.http.Close()
		te.server.Stop()
	})
	return te
}

// seed 写入一个拥有强力角色c1的存档
func (te *testEnv) seed(t *testing.T, key string) {
	t.Helper()
	st := models.NewPlayerState(testNow)
	heidi, _ := catalog.Default().Character("heidi")
	c := models.NewOwnedCharacter("c1", heidi)
	c.Stats = models.BaseStats{Attack: 10_000, Defense: 1_000, Health: 100_000, Speed: 1_000}
	st.Inventory = append(st.Inventory, c)

	data, err := state.Encode(st)
	require.NoError(t, err)
	require.NoError(t, te.persist.Save(context.Background(), key, data))
}

func (te *testEnv) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(te.http.URL, "http") + "/ws"
	if token != "" {
		url += "?token=" + token
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ protocol.MessageType, id string, payload interface{}) {
	t.Helper()
	data, err := protocol.NewMessage(typ, id, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

// readUntil 读取消息直到出现指定类型，状态推送可能先于结果到达
func readUntil(t *testing.T, conn *websocket.Conn, typ protocol.MessageType) *protocol.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		msg, err := protocol.ParseMessage(data)
		require.NoError(t, err)
		if msg.Type == typ {
			return msg
		}
	}
}

type stateView struct {
	Currency  int64 `json:"currency"`
	Tickets   int64 `json:"tickets"`
	Inventory []struct {
		UID    string `json:"uid"`
		BaseID string `json:"base_id"`
	} `json:"inventory"`
}

func decodeState(t *testing.T, msg *protocol.Message) stateView {
	t.Helper()
	var v stateView
	require.NoError(t, msg.Decode(&v))
	return v
}

func TestGuestConnectReceivesState(t *testing.T) {
	te := newTestEnv(t, "guest")
	conn := te.dial(t, "")

	v := decodeState(t, readUntil(t, conn, protocol.MsgState))
	assert.Equal(t, int64(models.StartingCurrency), v.Currency)
	assert.Equal(t, int64(models.StartingTickets), v.Tickets)
	assert.Equal(t, 1, te.server.OnlineCount())
}

func TestConnectWithoutTokenRejectedWhenGuestDisabled(t *testing.T) {
	te := newTestEnv(t, "")
	url := "ws" + strings.TrimPrefix(te.http.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(url+"?token=garbage", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPingAndUnknownType(t *testing.T) {
	te := newTestEnv(t, "guest")
	conn := te.dial(t, "")

	send(t, conn, protocol.MsgPing, "p1", nil)
	pong := readUntil(t, conn, protocol.MsgPong)
	assert.Equal(t, "p1", pong.ID)

	send(t, conn, "dance", "x", nil)
	errMsg := readUntil(t, conn, protocol.MsgError)
	assert.Equal(t, "x", errMsg.ID)
}

func TestServerOnlyActionForbidden(t *testing.T) {
	te := newTestEnv(t, "guest")
	conn := te.dial(t, "")

	send(t, conn, protocol.MsgAction, "a1", protocol.ActionPayload{
		Name:   "add_currency",
		Params: json.RawMessage(`{"amount":999999}`),
	})
	errMsg := readUntil(t, conn, protocol.MsgError)
	assert.Equal(t, "a1", errMsg.ID)

	send(t, conn, protocol.MsgGetState, "s1", nil)
	v := decodeState(t, readUntil(t, conn, protocol.MsgState))
	assert.Equal(t, int64(models.StartingCurrency), v.Currency)
}

func TestClientActionRejectedByReducer(t *testing.T) {
	te := newTestEnv(t, "guest")
	conn := te.dial(t, "")

	send(t, conn, protocol.MsgAction, "a1", protocol.ActionPayload{
		Name:   "level_up",
		Params: json.RawMessage(`{"uid":"missing"}`),
	})
	msg := readUntil(t, conn, protocol.MsgActionResult)

	var res protocol.ActionResult
	require.NoError(t, msg.Decode(&res))
	assert.Equal(t, protocol.ActionResult{Name: "level_up", Accepted: false}, res)
}

func TestSummonAddsCharacters(t *testing.T) {
	te := newTestEnv(t, "guest")
	conn := te.dial(t, "")
	readUntil(t, conn, protocol.MsgState)

	send(t, conn, protocol.MsgSummon, "s1", protocol.SummonRequest{Count: 2})
	msg := readUntil(t, conn, protocol.MsgSummonResult)

	var res protocol.SummonResult
	require.NoError(t, msg.Decode(&res))
	assert.True(t, res.Accepted)
	assert.Len(t, res.BaseIDs, 2)

	send(t, conn, protocol.MsgGetState, "", nil)
	v := decodeState(t, readUntil(t, conn, protocol.MsgState))
	assert.Equal(t, int64(models.StartingTickets-2), v.Tickets)
	assert.Len(t, v.Inventory, 2)

	send(t, conn, protocol.MsgSummon, "s2", protocol.SummonRequest{Count: state.MaxSummonCount + 1})
	assert.Equal(t, "s2", readUntil(t, conn, protocol.MsgError).ID)
}

func TestBattleVictoryGrantsDrops(t *testing.T) {
	te := newTestEnv(t, "guest")
	te.seed(t, "guest")
	conn := te.dial(t, "")
	readUntil(t, conn, protocol.MsgState)

	send(t, conn, protocol.MsgBattle, "b1", protocol.BattleRequest{Squad: []string{"c1"}})
	msg := readUntil(t, conn, protocol.MsgBattleResult)

	var out struct {
		Battle struct {
			Outcome string `json:"outcome"`
		} `json:"battle"`
		Drops *models.Drops `json:"drops"`
	}
	require.NoError(t, msg.Decode(&out))
	assert.Equal(t, "victory", out.Battle.Outcome)
	require.NotNil(t, out.Drops)

	send(t, conn, protocol.MsgGetState, "", nil)
	v := decodeState(t, readUntil(t, conn, protocol.MsgState))
	assert.Equal(t, int64(models.StartingCurrency)+out.Drops.Currency, v.Currency)

	raw, err := te.persist.Load(context.Background(), "guest")
	require.NoError(t, err)
	saved, err := state.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, v.Currency, saved.Currency)
}

func TestBattleWithUnknownMember(t *testing.T) {
	te := newTestEnv(t, "guest")
	conn := te.dial(t, "")

	send(t, conn, protocol.MsgBattle, "b1", protocol.BattleRequest{Squad: []string{"nobody"}})
	assert.Equal(t, "b1", readUntil(t, conn, protocol.MsgError).ID)
}

func TestConnectionsShareStore(t *testing.T) {
	te := newTestEnv(t, "guest")
	first := te.dial(t, "")
	second := te.dial(t, "")
	readUntil(t, first, protocol.MsgState)
	readUntil(t, second, protocol.MsgState)
	assert.Equal(t, 1, te.server.OnlineCount())

	send(t, first, protocol.MsgSummon, "", protocol.SummonRequest{Count: 1})
	readUntil(t, first, protocol.MsgSummonResult)

	v := decodeState(t, readUntil(t, second, protocol.MsgState))
	assert.Len(t, v.Inventory, 1)
}

func TestGuestCannotUseArena(t *testing.T) {
	te := newTestEnv(t, "guest")
	conn := te.dial(t, "")

	for _, typ := range []protocol.MessageType{protocol.MsgArenaLadder, protocol.MsgArenaOpponents, protocol.MsgArenaFight} {
		send(t, conn, typ, string(typ), nil)
		msg := readUntil(t, conn, protocol.MsgError)
		assert.Equal(t, string(typ), msg.ID)

		var p protocol.ErrorPayload
		require.NoError(t, msg.Decode(&p))
		assert.Equal(t, errGuestArena.Error(), p.Message)
	}
}

func TestArenaFlowWithToken(t *testing.T) {
	te := newTestEnv(t, "")
	token, id, err := te.tokens.Issue(42, "amiya")
	require.NoError(t, err)
	te.seed(t, id.SaveKey())

	te.arena.opponents = []models.Opponent{{
		UserID:   7,
		Username: "w",
		Elo:      1000,
		Squad: models.Squad{
			IDs:      []string{"o1"},
			Snapshot: []models.SnapshotUnit{{UID: "o1", Name: "W", Stats: models.FinalStats{Attack: 1, Health: 10, Speed: 1}}},
		},
	}}

	conn := te.dial(t, token)
	readUntil(t, conn, protocol.MsgState)

	send(t, conn, protocol.MsgArenaLadder, "l1", nil)
	var ladder []models.LadderEntry
	require.NoError(t, readUntil(t, conn, protocol.MsgArenaLadder).Decode(&ladder))
	assert.Len(t, ladder, 1)

	send(t, conn, protocol.MsgArenaTeams, "t1", nil)
	var teams []models.ArenaTeam
	require.NoError(t, readUntil(t, conn, protocol.MsgArenaTeams).Decode(&teams))
	assert.NotNil(t, teams)
	assert.Empty(t, teams)

	send(t, conn, protocol.MsgArenaSaveTeam, "st", protocol.ArenaSaveTeamRequest{Type: "DEFENSE", Squad: []string{"c1"}})
	readUntil(t, conn, protocol.MsgArenaSaveTeam)

	send(t, conn, protocol.MsgArenaSaveTeam, "bad", protocol.ArenaSaveTeamRequest{Type: "MIDFIELD", Squad: []string{"c1"}})
	assert.Equal(t, "bad", readUntil(t, conn, protocol.MsgError).ID)

	send(t, conn, protocol.MsgArenaFight, "f1", protocol.ArenaFightRequest{OpponentID: 7, Squad: []string{"c1"}})
	var out struct {
		Result string            `json:"result"`
		Elo    *models.EloUpdate `json:"elo"`
	}
	require.NoError(t, readUntil(t, conn, protocol.MsgArenaResult).Decode(&out))
	assert.Equal(t, "WIN", out.Result)
	require.NotNil(t, out.Elo)
	assert.Equal(t, 16, out.Elo.Delta)

	send(t, conn, protocol.MsgArenaFight, "f2", protocol.ArenaFightRequest{OpponentID: 99, Squad: []string{"c1"}})
	errMsg := readUntil(t, conn, protocol.MsgError)
	assert.Equal(t, "f2", errMsg.ID)

	te.arena.mu.Lock()
	defer te.arena.mu.Unlock()
	require.Len(t, te.arena.saved, 1)
	assert.Equal(t, models.TeamDefense, te.arena.saved[0].Type)
	assert.Equal(t, []string{"c1"}, te.arena.saved[0].Squad.IDs)
	assert.Positive(t, te.arena.saved[0].Power)
	assert.Equal(t, []models.MatchResult{{OpponentID: 7, Result: models.OutcomeWin}}, te.arena.reported)
	for _, tok := range te.arena.tokens {
		assert.Equal(t, token, tok)
	}
}

func TestArenaFightAnyShownOpponent(t *testing.T) {
	te := newTestEnv(t, "")
	token, id, err := te.tokens.Issue(42, "amiya")
	require.NoError(t, err)
	te.seed(t, id.SaveKey())

	for i := int64(1); i <= 20; i++ {
		te.arena.opponents = append(te.arena.opponents, models.Opponent{
			UserID: 100 + i,
			Elo:    1000,
			Squad: models.Squad{
				IDs:      []string{"o1"},
				Snapshot: []models.SnapshotUnit{{UID: "o1", Name: "W", Stats: models.FinalStats{Attack: 1, Health: 10, Speed: 1}}},
			},
		})
	}
	te.arena.shown = 5

	conn := te.dial(t, token)
	readUntil(t, conn, protocol.MsgState)

	send(t, conn, protocol.MsgArenaOpponents, "o", nil)
	var shown []models.Opponent
	require.NoError(t, readUntil(t, conn, protocol.MsgArenaOpponents).Decode(&shown))
	require.Len(t, shown, 5)

	for _, opp := range shown {
		send(t, conn, protocol.MsgArenaFight, "f", protocol.ArenaFightRequest{OpponentID: opp.UserID, Squad: []string{"c1"}})
		var out struct {
			Result string `json:"result"`
		}
		require.NoError(t, readUntil(t, conn, protocol.MsgArenaResult).Decode(&out))
		assert.Equal(t, "WIN", out.Result)
	}

	te.arena.mu.Lock()
	defer te.arena.mu.Unlock()
	require.Len(t, te.arena.reported, 5)
	for i, opp := range shown {
		assert.Equal(t, opp.UserID, te.arena.reported[i].OpponentID)
	}
}

func TestHandleStateEndpoint(t *testing.T) {
	te := newTestEnv(t, "")
	token, id, err := te.tokens.Issue(3, "kal")
	require.NoError(t, err)
	te.seed(t, id.SaveKey())

	req, err := http.NewRequest(http.MethodGet, te.http.URL+"/game/state", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body protocol.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)

	var v stateView
	require.NoError(t, json.Unmarshal(body.Data, &v))
	require.Len(t, v.Inventory, 1)
	assert.Equal(t, "c1", v.Inventory[0].UID)

	resp2, err := http.Get(te.http.URL + "/game/state")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}
