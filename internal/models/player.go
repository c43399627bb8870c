// player.go

package models

import (
	"time"
)

const (
	// StartingCurrency 新存档初始金币
	StartingCurrency = 1000
	// StartingTickets 新存档初始抽卡券
	StartingTickets = 5
	// MaxArenaRoster 竞技场名单上限
	MaxArenaRoster = 5
	// LabSlotCount 实验室槽位数
	LabSlotCount = 5
	// LabMaxLevel 实验室最高等级
	LabMaxLevel = 5
)

// User 账号
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Elo          int       `json:"elo"`
	CreatedAt    time.Time `json:"created_at"`
}

// LabFacility 实验室，槽位i仅在 i < Level 时可用
type LabFacility struct {
	Level         int                  `json:"level"`
	LastClaimTime time.Time            `json:"last_claim_time"`
	Slots         [LabSlotCount]string `json:"slots"`
}

// PlayerState 玩家存档根聚合，只能通过reducer修改
type PlayerState struct {
	Currency    int64                    `json:"currency"`
	Tickets     int64                    `json:"tickets"`
	Inventory   []*OwnedCharacter        `json:"inventory"`
	Items       map[string]*ItemInstance `json:"items"`
	ArenaRoster []string                 `json:"arena_roster"`
	Lab         LabFacility              `json:"lab"`
}

// NewPlayerState 创建初始存档
func NewPlayerState(now time.Time) *PlayerState {
	return &PlayerState{
		Currency:    StartingCurrency,
		Tickets:     StartingTickets,
		Inventory:   []*OwnedCharacter{},
		Items:       map[string]*ItemInstance{},
		ArenaRoster: []string{},
		Lab: LabFacility{
			Level:         1,
			LastClaimTime: now,
		},
	}
}

// Clone 深拷贝
func (s *PlayerState) Clone() *PlayerState {
	clone := &PlayerState{
		Currency:    s.Currency,
		Tickets:     s.Tickets,
		Inventory:   make([]*OwnedCharacter, len(s.Inventory)),
		Items:       make(map[string]*ItemInstance, len(s.Items)),
		ArenaRoster: make([]string, len(s.ArenaRoster)),
		Lab:         s.Lab,
	}
	for i, c := range s.Inventory {
		clone.Inventory[i] = c.Clone()
	}
	for uid, item := range s.Items {
		clone.Items[uid] = item.Clone()
	}
	copy(clone.ArenaRoster, s.ArenaRoster)
	return clone
}

// Normalize 补齐反序列化后缺失的集合和槽位
func (s *PlayerState) Normalize() {
	if s.Inventory == nil {
		s.Inventory = []*OwnedCharacter{}
	}
	if s.Items == nil {
		s.Items = map[string]*ItemInstance{}
	}
	if s.ArenaRoster == nil {
		s.ArenaRoster = []string{}
	}
	if s.Lab.Level < 1 {
		s.Lab.Level = 1
	}
	for _, c := range s.Inventory {
		if c == nil {
			continue
		}
		if c.Equipment == nil {
			c.Equipment = NewEquipmentMap()
			continue
		}
		for _, slot := range EquipmentSlots {
			if _, ok := c.Equipment[slot]; !ok {
				c.Equipment[slot] = ""
			}
		}
	}
}

// FindCharacter 按uid查找角色
func (s *PlayerState) FindCharacter(uid string) *OwnedCharacter {
	for _, c := range s.Inventory {
		if c.UID == uid {
			return c
		}
	}
	return nil
}

// FindCharacterByBase 按模板id查找角色
func (s *PlayerState) FindCharacterByBase(baseID string) *OwnedCharacter {
	for _, c := range s.Inventory {
		if c.BaseID == baseID {
			return c
		}
	}
	return nil
}

// MaterialCount 材料数量
func (s *PlayerState) MaterialCount(templateID string) int {
	if item := s.FindMaterial(templateID); item != nil {
		return item.Count
	}
	return 0
}

// FindMaterial 按模板id查找材料堆
func (s *PlayerState) FindMaterial(templateID string) *ItemInstance {
	for _, item := range s.Items {
		if item.Type == ItemMaterial && item.TemplateID == templateID {
			return item
		}
	}
	return nil
}

// InArenaRoster 角色是否在竞技场名单中
func (s *PlayerState) InArenaRoster(uid string) bool {
	for _, id := range s.ArenaRoster {
		if id == uid {
			return true
		}
	}
	return false
}
