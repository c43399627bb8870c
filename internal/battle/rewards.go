package battle

import (
	"github.com/jacl-coder/RhodesGacha-Server/internal/catalog"
	"github.com/jacl-coder/RhodesGacha-Server/internal/models"
	"github.com/jacl-coder/RhodesGacha-Server/internal/pkg/rng"
)

const (
	// RewardGoldMin 金币奖励下限
	RewardGoldMin = 10
	// RewardGoldMax 金币奖励上限
	RewardGoldMax = 59
	// MaterialDropChance 材料掉落概率
	MaterialDropChance = 0.5
	// EquipmentDropChance 装备掉落概率
	EquipmentDropChance = 0.2
	// TicketDropChance 抽卡券掉落概率
	TicketDropChance = 0.05
)

// RollRewards 胜利奖励，各项独立判定
func RollRewards(cat *catalog.Catalog, src rng.Source) models.Drops {
	d := models.Drops{
		Currency: int64(rng.Between(src, RewardGoldMin, RewardGoldMax)),
	}

	if rng.Chance(src, MaterialDropChance) && len(cat.Materials) > 0 {
		d.Materials = []string{cat.Materials[rng.Intn(src, len(cat.Materials))].ID}
	}
	if rng.Chance(src, EquipmentDropChance) && len(cat.Equipment) > 0 {
		d.Equipment = []string{cat.Equipment[rng.Intn(src, len(cat.Equipment))].ID}
	}
	if rng.Chance(src, TicketDropChance) {
		d.Tickets = 1
	}
	return d
}
