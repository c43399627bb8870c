// Package state 玩家存档状态机：封闭的动作集合、reducer和带持久化的Store
package state

import "github.com/jacl-coder/RhodesGacha-Server/internal/models"

// Action 状态动作，集合封闭，只能由本包定义
type Action interface {
	Name() string
	isAction()
}

// AddCurrency 增加金币
type AddCurrency struct {
	Amount int64 `json:"amount"`
}

// SpendCurrency 消耗金币
type SpendCurrency struct {
	Amount int64 `json:"amount"`
}

// RollCharacter 单抽，Cost为消耗的抽卡券
type RollCharacter struct {
	BaseID string `json:"base_id"`
	Cost   int64  `json:"cost"`
}

// RollBatch 多抽，Cost为整批消耗的抽卡券
type RollBatch struct {
	BaseIDs []string `json:"base_ids"`
	Cost    int64    `json:"cost"`
}

// LevelUp 角色升级
type LevelUp struct {
	CharID string `json:"char_id"`
}

// EquipItem 穿戴装备
type EquipItem struct {
	CharID  string               `json:"char_id"`
	Slot    models.EquipmentSlot `json:"slot"`
	ItemUID string               `json:"item_uid"`
}

// UnequipItem 卸下装备
type UnequipItem struct {
	CharID string               `json:"char_id"`
	Slot   models.EquipmentSlot `json:"slot"`
}

// UpgradeItem 强化装备
type UpgradeItem struct {
	ItemUID string `json:"item_uid"`
}

// ToggleArenaRoster 加入或移出竞技场名单
type ToggleArenaRoster struct {
	CharID string `json:"char_id"`
}

// AssignLabChar 派驻角色到实验室槽位
type AssignLabChar struct {
	SlotIndex int    `json:"slot_index"`
	CharID    string `json:"char_id"`
}

// RemoveLabChar 撤出实验室槽位
type RemoveLabChar struct {
	SlotIndex int `json:"slot_index"`
}

// UpgradeLab 升级实验室
type UpgradeLab struct{}

// ClaimLabGold 领取实验室产出
type ClaimLabGold struct{}

// BattleWin 发放战斗奖励
type BattleWin struct {
	Drops models.Drops `json:"drops"`
}

func (AddCurrency) Name() string       { return "add_currency" }
func (SpendCurrency) Name() string     { return "spend_currency" }
func (RollCharacter) Name() string     { return "roll_character" }
func (RollBatch) Name() string         { return "roll_batch" }
func (LevelUp) Name() string           { return "level_up" }
func (EquipItem) Name() string         { return "equip_item" }
func (UnequipItem) Name() string       { return "unequip_item" }
func (UpgradeItem) Name() string       { return "upgrade_item" }
func (ToggleArenaRoster) Name() string { return "toggle_arena_roster" }
func (AssignLabChar) Name() string     { return "assign_lab_char" }
func (RemoveLabChar) Name() string     { return "remove_lab_char" }
func (UpgradeLab) Name() string        { return "upgrade_lab" }
func (ClaimLabGold) Name() string      { return "claim_lab_gold" }
func (BattleWin) Name() string         { return "battle_win" }

func (AddCurrency) isAction()       {}
func (SpendCurrency) isAction()     {}
func (RollCharacter) isAction()     {}
func (RollBatch) isAction()         {}
func (LevelUp) isAction()           {}
func (EquipItem) isAction()         {}
func (UnequipItem) isAction()       {}
func (UpgradeItem) isAction()       {}
func (ToggleArenaRoster) isAction() {}
func (AssignLabChar) isAction()     {}
func (RemoveLabChar) isAction()     {}
func (UpgradeLab) isAction()        {}
func (ClaimLabGold) isAction()      {}
func (BattleWin) isAction()         {}
