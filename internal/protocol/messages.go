// Package protocol 客户端与服务之间的消息格式
package protocol

import (
	"encoding/json"
	"fmt"
)

// MessageType WebSocket消息类型
type MessageType string

// 客户端发往游戏服务的消息
const (
	MsgAction         MessageType = "action"
	MsgSummon         MessageType = "summon"
	MsgBattle         MessageType = "battle"
	MsgGetState       MessageType = "get_state"
	MsgArenaTeams     MessageType = "arena_teams"
	MsgArenaSaveTeam  MessageType = "arena_save_team"
	MsgArenaOpponents MessageType = "arena_opponents"
	MsgArenaFight     MessageType = "arena_fight"
	MsgArenaLadder    MessageType = "arena_ladder"
	MsgPing           MessageType = "ping"
)

// 游戏服务发往客户端的消息
const (
	MsgState        MessageType = "state"
	MsgActionResult MessageType = "action_result"
	MsgSummonResult MessageType = "summon_result"
	MsgBattleResult MessageType = "battle_result"
	MsgArenaResult  MessageType = "arena_result"
	MsgError        MessageType = "error"
	MsgPong         MessageType = "pong"
)

// Message WebSocket消息
type Message struct {
	Type    MessageType     `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage 创建消息
func NewMessage(t MessageType, id string, payload interface{}) ([]byte, error) {
	msg := Message{Type: t, ID: id}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("序列化消息失败: %w", err)
		}
		msg.Payload = data
	}
	return json.Marshal(msg)
}

// ParseMessage 解析消息
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("解析消息失败: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("解析消息失败: 缺少消息类型")
	}
	return &msg, nil
}

// Decode 解析消息负载
func (m *Message) Decode(v interface{}) error {
	if len(m.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("解析%s负载失败: %w", m.Type, err)
	}
	return nil
}

// SummonRequest 抽卡请求
type SummonRequest struct {
	Count int `json:"count"`
}

// SummonResult 抽卡结果
type SummonResult struct {
	Accepted bool     `json:"accepted"`
	BaseIDs  []string `json:"base_ids"`
}

// ActionResult 动作结果
type ActionResult struct {
	Name     string `json:"name"`
	Accepted bool   `json:"accepted"`
}

// BattleRequest 出战请求
type BattleRequest struct {
	Squad []string `json:"squad"`
}

// ArenaSaveTeamRequest 上传竞技场队伍
type ArenaSaveTeamRequest struct {
	Type  string   `json:"type"`
	Squad []string `json:"squad"`
}

// ArenaFightRequest 挑战对手
type ArenaFightRequest struct {
	OpponentID int64    `json:"opponent_id"`
	Squad      []string `json:"squad"`
}

// ErrorPayload 错误信息
type ErrorPayload struct {
	Message string `json:"message"`
}
