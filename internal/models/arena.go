package models

import "time"

// TeamType 竞技场队伍类型
type TeamType string

const (
	// TeamAttack 进攻队伍
	TeamAttack TeamType = "ATTACK"
	// TeamDefense 防守队伍
	TeamDefense TeamType = "DEFENSE"
)

// Valid 是否为合法队伍类型
func (t TeamType) Valid() bool {
	return t == TeamAttack || t == TeamDefense
}

// MaxSquadSize 出战小队人数上限
const MaxSquadSize = 4

// SnapshotUnit 队伍快照中的单位，保存上传时的最终属性
type SnapshotUnit struct {
	UID    string     `json:"uid"`
	BaseID string     `json:"base_id"`
	Name   string     `json:"name"`
	Stars  int        `json:"stars"`
	Level  int        `json:"level"`
	Stats  FinalStats `json:"stats"`
}

// Squad 队伍成员及其属性快照
type Squad struct {
	IDs      []string       `json:"ids"`
	Snapshot []SnapshotUnit `json:"snapshot"`
}

// ArenaTeam 玩家上传的竞技场队伍
type ArenaTeam struct {
	UserID    int64     `json:"user_id"`
	Type      TeamType  `json:"type"`
	Squad     Squad     `json:"squad"`
	Power     int       `json:"power"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Opponent 匹配到的对手
type Opponent struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Elo      int    `json:"elo"`
	Power    int    `json:"power"`
	Squad    Squad  `json:"squad"`
}

// LadderEntry 排行榜条目
type LadderEntry struct {
	Rank     int    `json:"rank"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Elo      int    `json:"elo"`
}

// MatchOutcome 对战结果
type MatchOutcome string

const (
	// OutcomeWin 胜利
	OutcomeWin MatchOutcome = "WIN"
	// OutcomeLoss 失败
	OutcomeLoss MatchOutcome = "LOSS"
)

// MatchResult 上报的对战结果
type MatchResult struct {
	OpponentID int64        `json:"opponent_id"`
	Result     MatchOutcome `json:"result"`
}

// EloUpdate 积分变化
type EloUpdate struct {
	NewElo         int `json:"new_elo"`
	Delta          int `json:"delta"`
	OpponentNewElo int `json:"opponent_new_elo"`
}
