package game

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jacl-coder/RhodesGacha-Server/internal/arena"
	"github.com/jacl-coder/RhodesGacha-Server/internal/battle"
	"github.com/jacl-coder/RhodesGacha-Server/internal/models"
	"github.com/jacl-coder/RhodesGacha-Server/internal/protocol"
	"github.com/jacl-coder/RhodesGacha-Server/internal/state"
)

var (
	errGuestArena   = errors.New("游客无法使用竞技场")
	errOpponentGone = errors.New("对手不存在或已下线")
)

// BattleOutcome 战斗结果及奖励
type BattleOutcome struct {
	Battle battle.Result `json:"battle"`
	Drops  *models.Drops `json:"drops,omitempty"`
}

// ArenaOutcome 竞技场挑战结果
type ArenaOutcome struct {
	Battle battle.Result     `json:"battle"`
	Result string            `json:"result"`
	Elo    *models.EloUpdate `json:"elo,omitempty"`
}

// handleMessage 处理接收到的消息
func (s *GameServer) handleMessage(ctx context.Context, player *PlayerConnection, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		log.Printf("解析消息失败: %v", err)
		s.sendError(player, "", err)
		return
	}

	var (
		respType protocol.MessageType
		payload  interface{}
	)
	switch msg.Type {
	case protocol.MsgPing:
		respType, payload = protocol.MsgPong, nil
	case protocol.MsgGetState:
		respType, payload = protocol.MsgState, state.NewView(player.Store.State(), s.env.Clock.Now())
	case protocol.MsgAction:
		respType = protocol.MsgActionResult
		payload, err = s.handleAction(ctx, player, msg)
	case protocol.MsgSummon:
		respType = protocol.MsgSummonResult
		payload, err = s.handleSummon(ctx, player, msg)
	case protocol.MsgBattle:
		respType = protocol.MsgBattleResult
		payload, err = s.handleBattle(ctx, player, msg)
	case protocol.MsgArenaTeams, protocol.MsgArenaOpponents, protocol.MsgArenaLadder:
		respType = msg.Type
		payload, err = s.handleArenaQuery(ctx, player, msg.Type)
	case protocol.MsgArenaSaveTeam:
		respType = msg.Type
		payload, err = s.handleArenaSaveTeam(ctx, player, msg)
	case protocol.MsgArenaFight:
		respType = protocol.MsgArenaResult
		payload, err = s.handleArenaFight(ctx, player, msg)
	default:
		err = fmt.Errorf("未知消息类型: %s", msg.Type)
	}

	if err != nil {
		s.sendError(player, msg.ID, err)
		return
	}
	s.sendMessage(player, respType, msg.ID, payload)
}

// handleAction 处理客户端动作
func (s *GameServer) handleAction(ctx context.Context, player *PlayerConnection, msg *protocol.Message) (interface{}, error) {
	var p protocol.ActionPayload
	if err := msg.Decode(&p); err != nil {
		return nil, err
	}
	action, err := protocol.DecodeClientAction(p)
	if err != nil {
		return nil, err
	}

	ok, err := player.Store.Dispatch(ctx, action)
	if err != nil {
		log.Printf("存档 %s 持久化失败: %v", player.SaveKey, err)
	}
	return protocol.ActionResult{Name: action.Name(), Accepted: ok}, nil
}

// handleSummon 处理抽卡
func (s *GameServer) handleSummon(ctx context.Context, player *PlayerConnection, msg *protocol.Message) (interface{}, error) {
	req := protocol.SummonRequest{Count: 1}
	if err := msg.Decode(&req); err != nil {
		return nil, err
	}

	ids, ok, err := player.Store.Summon(ctx, req.Count)
	if errors.Is(err, state.ErrInvalidSummonCount) {
		return nil, err
	}
	if err != nil {
		log.Printf("存档 %s 持久化失败: %v", player.SaveKey, err)
	}
	if ids == nil {
		ids = []string{}
	}
	return protocol.SummonResult{Accepted: ok, BaseIDs: ids}, nil
}

// handleBattle 处理关卡战斗，胜利时发放奖励
func (s *GameServer) handleBattle(ctx context.Context, player *PlayerConnection, msg *protocol.Message) (interface{}, error) {
	var req protocol.BattleRequest
	if err := msg.Decode(&req); err != nil {
		return nil, err
	}

	allies, err := battle.Allies(player.Store.State(), req.Squad, s.env.Catalog)
	if err != nil {
		return nil, err
	}

	result := battle.Resolve(allies, battle.Enemies(s.env.Catalog), s.env.Rand)
	out := BattleOutcome{Battle: result}
	if result.Outcome == battle.Victory {
		drops := battle.RollRewards(s.env.Catalog, s.env.Rand)
		if _, err := player.Store.Dispatch(ctx, state.BattleWin{Drops: drops}); err != nil {
			log.Printf("存档 %s 持久化失败: %v", player.SaveKey, err)
		}
		out.Drops = &drops
	}
	return out, nil
}

// handleArenaQuery 查询竞技场数据，服务不可用时返回空列表
func (s *GameServer) handleArenaQuery(ctx context.Context, player *PlayerConnection, t protocol.MessageType) (interface{}, error) {
	if player.Guest() || s.arena == nil {
		return nil, errGuestArena
	}

	switch t {
	case protocol.MsgArenaTeams:
		teams, err := s.arena.Teams(ctx, player.Token)
		if err != nil || teams == nil {
			logArenaError("查询队伍", err)
			teams = []models.ArenaTeam{}
		}
		return teams, nil
	case protocol.MsgArenaOpponents:
		opps, err := s.arena.Opponents(ctx, player.Token)
		if err != nil || opps == nil {
			logArenaError("匹配对手", err)
			opps = []models.Opponent{}
		}
		return opps, nil
	default:
		ladder, err := s.arena.Ladder(ctx, player.Token)
		if err != nil || ladder == nil {
			logArenaError("查询排行榜", err)
			ladder = []models.LadderEntry{}
		}
		return ladder, nil
	}
}

func logArenaError(op string, err error) {
	if err != nil {
		log.Printf("竞技场%s失败: %v", op, err)
	}
}

// handleArenaSaveTeam 以当前存档生成队伍快照并上传
func (s *GameServer) handleArenaSaveTeam(ctx context.Context, player *PlayerConnection, msg *protocol.Message) (interface{}, error) {
	if player.Guest() || s.arena == nil {
		return nil, errGuestArena
	}
	var req protocol.ArenaSaveTeamRequest
	if err := msg.Decode(&req); err != nil {
		return nil, err
	}
	teamType := models.TeamType(req.Type)
	if !teamType.Valid() {
		return nil, arena.ErrInvalidTeamType
	}

	squad, power, err := battle.Snapshot(player.Store.State(), req.Squad, s.env.Catalog)
	if err != nil {
		return nil, err
	}

	team := arena.SaveTeamRequest{Type: teamType, Squad: squad, Power: power}
	if err := s.arena.SaveTeam(ctx, player.Token, team); err != nil {
		logArenaError("保存队伍", err)
		return map[string]bool{"saved": false}, nil
	}
	return map[string]interface{}{"saved": true, "power": power}, nil
}

// handleArenaFight 挑战对手的防守队伍并上报结果
func (s *GameServer) handleArenaFight(ctx context.Context, player *PlayerConnection, msg *protocol.Message) (interface{}, error) {
	if player.Guest() || s.arena == nil {
		return nil, errGuestArena
	}
	var req protocol.ArenaFightRequest
	if err := msg.Decode(&req); err != nil {
		return nil, err
	}

	allies, err := battle.Allies(player.Store.State(), req.Squad, s.env.Catalog)
	if err != nil {
		return nil, err
	}

	target, err := s.arena.Opponent(ctx, player.Token, req.OpponentID)
	if err != nil {
		logArenaError("查询对手", err)
		return nil, errOpponentGone
	}

	result := battle.Resolve(allies, battle.FromSnapshot(target.Squad), s.env.Rand)
	outcome := models.OutcomeLoss
	if result.Outcome == battle.Victory {
		outcome = models.OutcomeWin
	}

	out := ArenaOutcome{Battle: result, Result: string(outcome)}
	update, err := s.arena.ReportResult(ctx, player.Token, models.MatchResult{OpponentID: target.UserID, Result: outcome})
	if err != nil {
		logArenaError("上报结果", err)
	} else {
		out.Elo = &update
	}
	return out, nil
}
