// Package stats 角色最终属性与战力计算
package stats

import (
	"math"

	"github.com/jacl-coder/RhodesGacha-Server/internal/models"
)

const (
	// StarBonusPct 每颗星提升的基础属性百分比
	StarBonusPct = 10
	// EnhanceBonusPct 每级强化提升的装备属性百分比
	EnhanceBonusPct = 10

	// BaseCritRate 基础暴击率
	BaseCritRate = 5
	// BaseCritDmg 基础暴击伤害
	BaseCritDmg = 150
)

// ItemLookup 按uid查找物品
type ItemLookup interface {
	Item(uid string) (*models.ItemInstance, bool)
}

// ItemMap 以map实现ItemLookup
type ItemMap map[string]*models.ItemInstance

// Item 查找物品
func (m ItemMap) Item(uid string) (*models.ItemInstance, bool) {
	item, ok := m[uid]
	return item, ok
}

// StarMultiplierPct 星级倍率（百分比）
func StarMultiplierPct(stars int) int {
	return 100 + (stars-1)*StarBonusPct
}

// EnhanceMultiplierPct 强化倍率（百分比）
func EnhanceMultiplierPct(level int) int {
	return 100 + level*EnhanceBonusPct
}

// scale 按百分比放大并向下取整，整数运算避免浮点误差
func scale(v, pct int) int {
	n := v * pct
	q := n / 100
	if n%100 != 0 && n < 0 {
		q--
	}
	return q
}

// Resolve 计算角色最终属性，缺失的物品按0处理
func Resolve(c *models.OwnedCharacter, items ItemLookup) models.FinalStats {
	m := StarMultiplierPct(c.Stars)
	final := models.FinalStats{
		Attack:   scale(c.Stats.Attack, m),
		Defense:  scale(c.Stats.Defense, m),
		Health:   scale(c.Stats.Health, m),
		Speed:    scale(c.Stats.Speed, m),
		CritRate: BaseCritRate,
		CritDmg:  BaseCritDmg,
	}

	for _, slot := range models.EquipmentSlots {
		uid := c.Equipment[slot]
		if uid == "" || items == nil {
			continue
		}
		item, ok := items.Item(uid)
		if !ok || !item.IsEquipment() {
			continue
		}

		im := EnhanceMultiplierPct(item.Level)
		for _, key := range models.PrimaryStatKeys {
			if v := item.Stats.Get(key); v != 0 {
				final.Add(key, scale(v, im))
			}
		}
		for _, sub := range item.Substats {
			final.Add(sub.Stat, sub.Value)
		}
	}

	return final
}

// Power 战力估算
func Power(s models.FinalStats) int {
	return int(math.Floor(float64(s.Attack)*2 + float64(s.Defense)*1.5 + float64(s.Health)*0.5 + float64(s.Speed)*2))
}

// CharacterPower 直接计算角色战力
func CharacterPower(c *models.OwnedCharacter, items ItemLookup) int {
	return Power(Resolve(c, items))
}
