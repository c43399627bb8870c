// Package arena 异步竞技场：队伍上传、对手匹配、排行榜和积分结算
package arena

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jacl-coder/RhodesGacha-Server/config"
	"github.com/jacl-coder/RhodesGacha-Server/internal/models"
	"github.com/jacl-coder/RhodesGacha-Server/internal/pkg/rng"
	"github.com/jacl-coder/RhodesGacha-Server/internal/storage"
)

var (
	// ErrInvalidTeamType 队伍类型非法
	ErrInvalidTeamType = errors.New("无效的队伍类型")
	// ErrInvalidSquad 队伍成员非法
	ErrInvalidSquad = errors.New("无效的队伍")
	// ErrInvalidResult 对战结果非法
	ErrInvalidResult = errors.New("无效的对战结果")
	// ErrOpponentNotFound 对手不存在
	ErrOpponentNotFound = errors.New("对手不存在")
	// ErrSelfMatch 不能挑战自己
	ErrSelfMatch = errors.New("不能挑战自己")
)

// UserStore 账号读写
type UserStore interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	SettleMatch(ctx context.Context, userID, opponentID int64, rate func(mine, other int) (int, int)) (*storage.Settlement, error)
}

// TeamStore 队伍读写
type TeamStore interface {
	Upsert(ctx context.Context, team models.ArenaTeam) error
	ListByUser(ctx context.Context, userID int64) ([]models.ArenaTeam, error)
	DefenseTeams(ctx context.Context, excludeUserID int64) ([]models.Opponent, error)
	DefenseTeam(ctx context.Context, userID int64) (*models.Opponent, error)
}

// Ladder 排行榜
type Ladder interface {
	Top(ctx context.Context, limit int) ([]models.LadderEntry, error)
	UpdateElo(ctx context.Context, userID int64, username string, elo int) error
}

// Service 竞技场业务逻辑
type Service struct {
	users  UserStore
	teams  TeamStore
	ladder Ladder
	cfg    config.ArenaConfig
	rand   rng.Source
}

// NewService 创建竞技场服务
func NewService(users UserStore, teams TeamStore, ladder Ladder, cfg config.ArenaConfig, src rng.Source) *Service {
	if cfg.KFactor <= 0 {
		cfg.KFactor = DefaultKFactor
	}
	if cfg.OpponentCount <= 0 {
		cfg.OpponentCount = 5
	}
	if cfg.LadderSize <= 0 {
		cfg.LadderSize = 50
	}
	return &Service{users: users, teams: teams, ladder: ladder, cfg: cfg, rand: src}
}

// Teams 获取玩家的全部队伍
func (s *Service) Teams(ctx context.Context, userID int64) ([]models.ArenaTeam, error) {
	return s.teams.ListByUser(ctx, userID)
}

// SaveTeam 保存进攻或防守队伍
func (s *Service) SaveTeam(ctx context.Context, userID int64, teamType models.TeamType, squad models.Squad, power int) error {
	if !teamType.Valid() {
		return ErrInvalidTeamType
	}
	if len(squad.IDs) == 0 || len(squad.IDs) > models.MaxSquadSize {
		return fmt.Errorf("%w: 成员数须在1到%d之间", ErrInvalidSquad, models.MaxSquadSize)
	}
	if len(squad.Snapshot) != len(squad.IDs) {
		return fmt.Errorf("%w: 快照与成员不一致", ErrInvalidSquad)
	}
	if power < 0 {
		return fmt.Errorf("%w: 战力为负数", ErrInvalidSquad)
	}

	return s.teams.Upsert(ctx, models.ArenaTeam{
		UserID: userID,
		Type:   teamType,
		Squad:  squad,
		Power:  power,
	})
}

// Opponents 按积分接近程度挑选对手，不足时随机补足
func (s *Service) Opponents(ctx context.Context, userID int64) ([]models.Opponent, error) {
	me, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("查询玩家失败: %w", err)
	}
	all, err := s.teams.DefenseTeams(ctx, userID)
	if err != nil {
		return nil, err
	}

	var near, far []models.Opponent
	for _, o := range all {
		if abs(o.Elo-me.Elo) <= s.cfg.MatchWindow {
			near = append(near, o)
		} else {
			far = append(far, o)
		}
	}
	s.shuffle(near)
	s.shuffle(far)

	picked := append(near, far...)
	if len(picked) > s.cfg.OpponentCount {
		picked = picked[:s.cfg.OpponentCount]
	}
	if picked == nil {
		picked = []models.Opponent{}
	}
	return picked, nil
}

// Opponent 获取指定对手的防守队伍
func (s *Service) Opponent(ctx context.Context, userID, opponentID int64) (*models.Opponent, error) {
	if opponentID == userID {
		return nil, ErrSelfMatch
	}
	opp, err := s.teams.DefenseTeam(ctx, opponentID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrOpponentNotFound
	}
	if err != nil {
		return nil, err
	}
	return opp, nil
}

func (s *Service) shuffle(opps []models.Opponent) {
	for i := len(opps) - 1; i > 0; i-- {
		j := rng.Intn(s.rand, i+1)
		opps[i], opps[j] = opps[j], opps[i]
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Ladder 排行榜前N名
func (s *Service) Ladder(ctx context.Context) ([]models.LadderEntry, error) {
	return s.ladder.Top(ctx, s.cfg.LadderSize)
}

// ReportResult 结算对战并更新双方积分
func (s *Service) ReportResult(ctx context.Context, userID int64, result models.MatchResult) (models.EloUpdate, error) {
	if result.Result != models.OutcomeWin && result.Result != models.OutcomeLoss {
		return models.EloUpdate{}, ErrInvalidResult
	}
	if result.OpponentID == userID {
		return models.EloUpdate{}, ErrSelfMatch
	}

	won := result.Result == models.OutcomeWin
	st, err := s.users.SettleMatch(ctx, userID, result.OpponentID, func(mine, other int) (int, int) {
		return Rate(mine, other, won, s.cfg.KFactor)
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			if _, findErr := s.users.FindByID(ctx, userID); findErr != nil {
				return models.EloUpdate{}, fmt.Errorf("查询玩家失败: %w", findErr)
			}
			return models.EloUpdate{}, ErrOpponentNotFound
		}
		return models.EloUpdate{}, fmt.Errorf("结算积分失败: %w", err)
	}
	me, opp := st.Me, st.Opponent
	newMine, newOpp := st.NewElo, st.OpponentNewElo

	if err := s.ladder.UpdateElo(ctx, me.ID, me.Username, newMine); err != nil {
		log.Printf("更新排行榜缓存失败: %v", err)
	}
	if err := s.ladder.UpdateElo(ctx, opp.ID, opp.Username, newOpp); err != nil {
		log.Printf("更新排行榜缓存失败: %v", err)
	}

	log.Printf("竞技场结算: 玩家%d %s 对手%d, 积分 %d -> %d", me.ID, result.Result, opp.ID, me.Elo, newMine)
	return models.EloUpdate{
		NewElo:         newMine,
		Delta:          newMine - me.Elo,
		OpponentNewElo: newOpp,
	}, nil
}
