package models

import (
	"errors"
	"fmt"
)

// ErrInvalidState 存档违反不变量
var ErrInvalidState = errors.New("存档不变量校验失败")

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// Validate 校验存档不变量，应在Normalize之后调用
func (s *PlayerState) Validate() error {
	if s.Currency < 0 || s.Tickets < 0 {
		return invalid("货币为负数")
	}

	chars := make(map[string]*OwnedCharacter, len(s.Inventory))
	for _, c := range s.Inventory {
		if c == nil {
			return invalid("角色为空")
		}
		if c.UID == "" {
			return invalid("角色缺少uid")
		}
		if _, dup := chars[c.UID]; dup {
			return invalid("角色uid重复: %s", c.UID)
		}
		if c.Stars < MinStars || c.Stars > MaxStars {
			return invalid("角色 %s 星级越界: %d", c.UID, c.Stars)
		}
		if c.Level < MinLevel || c.Level > MaxLevel {
			return invalid("角色 %s 等级越界: %d", c.UID, c.Level)
		}
		if len(c.Equipment) != len(EquipmentSlots) {
			return invalid("角色 %s 装备槽位不完整", c.UID)
		}
		for slot := range c.Equipment {
			if !ValidSlot(slot) {
				return invalid("角色 %s 未知装备槽位: %s", c.UID, slot)
			}
		}
		chars[c.UID] = c
	}

	holders := make(map[string]string, len(s.Items))
	for _, c := range s.Inventory {
		for _, slot := range EquipmentSlots {
			uid := c.Equipment[slot]
			if uid == "" {
				continue
			}
			item, ok := s.Items[uid]
			if !ok || item == nil || !item.IsEquipment() || item.Slot != slot {
				return invalid("角色 %s 槽位 %s 装备无效: %s", c.UID, slot, uid)
			}
			if prev, held := holders[uid]; held {
				return invalid("装备 %s 同时被 %s 和 %s 穿戴", uid, prev, c.UID)
			}
			holders[uid] = c.UID
		}
	}

	for key, item := range s.Items {
		if item == nil {
			return invalid("物品为空: %s", key)
		}
		if item.UID != key {
			return invalid("物品uid不一致: %s", key)
		}
		switch item.Type {
		case ItemEquipment:
			if !ValidSlot(item.Slot) {
				return invalid("装备 %s 槽位无效", key)
			}
			if item.Level < 0 || item.Level > MaxEnhancement || len(item.Substats) != item.Level {
				return invalid("装备 %s 强化等级与副属性不符", key)
			}
			if item.EquippedBy != holders[key] {
				return invalid("装备 %s 持有者不一致", key)
			}
		case ItemMaterial:
			if item.Count <= 0 {
				return invalid("材料 %s 数量无效", key)
			}
			if item.EquippedBy != "" {
				return invalid("材料 %s 不能被穿戴", key)
			}
		default:
			return invalid("物品 %s 类型未知: %s", key, item.Type)
		}
	}

	if len(s.ArenaRoster) > MaxArenaRoster {
		return invalid("竞技场名单超过上限")
	}
	roster := make(map[string]bool, len(s.ArenaRoster))
	for _, uid := range s.ArenaRoster {
		if _, ok := chars[uid]; !ok || roster[uid] {
			return invalid("竞技场名单无效: %s", uid)
		}
		roster[uid] = true
	}

	if s.Lab.Level < 1 || s.Lab.Level > LabMaxLevel {
		return invalid("实验室等级越界: %d", s.Lab.Level)
	}
	assigned := make(map[string]bool, LabSlotCount)
	for i, uid := range s.Lab.Slots {
		if uid == "" {
			continue
		}
		if i >= s.Lab.Level {
			return invalid("实验室槽位 %d 未解锁", i)
		}
		if _, ok := chars[uid]; !ok || assigned[uid] {
			return invalid("实验室槽位 %d 角色无效: %s", i, uid)
		}
		assigned[uid] = true
	}
	return nil
}
