package state

import (
	"math"
	"time"

	"github.com/jacl-coder/RhodesGacha-Server/internal/catalog"
	"github.com/jacl-coder/RhodesGacha-Server/internal/models"
	"github.com/jacl-coder/RhodesGacha-Server/internal/pkg/clock"
	"github.com/jacl-coder/RhodesGacha-Server/internal/pkg/idgen"
	"github.com/jacl-coder/RhodesGacha-Server/internal/pkg/rng"
)

const (
	// LevelUpGoldPerLevel 升级金币 = 当前等级 * 100
	LevelUpGoldPerLevel = 100
	// LevelGrowthPct 升级后基础属性百分比
	LevelGrowthPct = 105
	// UpgradeItemGoldStep 强化金币 = (强化等级+1) * 500
	UpgradeItemGoldStep = 500
	// LabUpgradeGoldPerLevel 实验室升级金币 = 等级 * 2000
	LabUpgradeGoldPerLevel = 2000
	// LabUpgradeMaterialPerLevel 实验室升级材料 = 等级 * 5
	LabUpgradeMaterialPerLevel = 5
	// LabGoldPerLevelMinute 每分钟每级产出金币
	LabGoldPerLevelMinute = 10
	// LabMinClaimInterval 最短领取间隔
	LabMinClaimInterval = time.Minute
)

// Env reducer依赖的外部能力
type Env struct {
	Catalog *catalog.Catalog
	Rand    rng.Source
	Clock   clock.Clock
	IDs     idgen.Generator
}

// Reduce 应用动作。被拒绝的动作原样返回输入指针；接受的动作返回新的深拷贝，输入不被修改
func Reduce(s *models.PlayerState, action Action, env Env) *models.PlayerState {
	next := s.Clone()

	var ok bool
	switch a := action.(type) {
	case AddCurrency:
		ok = addCurrency(next, a)
	case SpendCurrency:
		ok = spendCurrency(next, a)
	case RollCharacter:
		ok = roll(next, []string{a.BaseID}, a.Cost, env)
	case RollBatch:
		ok = roll(next, a.BaseIDs, a.Cost, env)
	case LevelUp:
		ok = levelUp(next, a, env)
	case EquipItem:
		ok = equipItem(next, a)
	case UnequipItem:
		ok = unequipItem(next, a)
	case UpgradeItem:
		ok = upgradeItem(next, a, env)
	case ToggleArenaRoster:
		ok = toggleArenaRoster(next, a)
	case AssignLabChar:
		ok = assignLabChar(next, a)
	case RemoveLabChar:
		ok = removeLabChar(next, a)
	case UpgradeLab:
		ok = upgradeLab(next, env)
	case ClaimLabGold:
		ok = claimLabGold(next, env)
	case BattleWin:
		ok = battleWin(next, a, env)
	}

	if !ok {
		return s
	}
	return next
}

func addCurrency(s *models.PlayerState, a AddCurrency) bool {
	if a.Amount <= 0 {
		return false
	}
	s.Currency += a.Amount
	return true
}

func spendCurrency(s *models.PlayerState, a SpendCurrency) bool {
	if a.Amount <= 0 || a.Amount > s.Currency {
		return false
	}
	s.Currency -= a.Amount
	return true
}

// roll 抽卡结算。重复角色升星，满星按单抽花费的一半（四舍五入）返还金币
func roll(s *models.PlayerState, baseIDs []string, cost int64, env Env) bool {
	if len(baseIDs) == 0 || cost < 0 || s.Tickets < cost {
		return false
	}

	archetypes := make([]*models.CharacterArchetype, len(baseIDs))
	for i, id := range baseIDs {
		arch, ok := env.Catalog.Character(id)
		if !ok {
			return false
		}
		archetypes[i] = arch
	}

	s.Tickets -= cost
	refund := (cost/int64(len(baseIDs)) + 1) / 2

	for _, arch := range archetypes {
		owned := s.FindCharacterByBase(arch.ID)
		switch {
		case owned == nil:
			s.Inventory = append(s.Inventory, models.NewOwnedCharacter(env.IDs.Generate(), arch))
		case owned.Stars < models.MaxStars:
			owned.Stars++
		default:
			s.Currency += refund
		}
	}
	return true
}

// BreakthroughCost 突破所需材料数，非突破等级返回0
func BreakthroughCost(level int) int {
	if level%10 != 9 {
		return 0
	}
	return (level + 9) / 10
}

// LevelUpCost 升级所需金币
func LevelUpCost(level int) int64 {
	return int64(level) * LevelUpGoldPerLevel
}

func levelUp(s *models.PlayerState, a LevelUp, env Env) bool {
	c := s.FindCharacter(a.CharID)
	if c == nil || c.Level >= models.MaxLevel {
		return false
	}

	gold := LevelUpCost(c.Level)
	if s.Currency < gold {
		return false
	}

	if need := BreakthroughCost(c.Level); need > 0 {
		if !consumeMaterial(s, env.Catalog.BreakthroughMaterial, need) {
			return false
		}
	}

	s.Currency -= gold
	c.Level++
	c.Stats = models.BaseStats{
		Attack:  grow(c.Stats.Attack),
		Defense: grow(c.Stats.Defense),
		Health:  grow(c.Stats.Health),
		Speed:   grow(c.Stats.Speed),
	}
	return true
}

// grow 按升级成长比例放大并向下取整
func grow(v int) int {
	n := v * LevelGrowthPct
	q := n / 100
	if n%100 != 0 && n < 0 {
		q--
	}
	return q
}

// consumeMaterial 扣除材料，数量不足返回false，扣完的材料堆移除
func consumeMaterial(s *models.PlayerState, templateID string, n int) bool {
	mat := s.FindMaterial(templateID)
	if mat == nil || mat.Count < n {
		return false
	}
	mat.Count -= n
	if mat.Count <= 0 {
		delete(s.Items, mat.UID)
	}
	return true
}

func equipItem(s *models.PlayerState, a EquipItem) bool {
	c := s.FindCharacter(a.CharID)
	item, ok := s.Items[a.ItemUID]
	if c == nil || !ok || !item.IsEquipment() || !models.ValidSlot(a.Slot) || item.Slot != a.Slot {
		return false
	}
	if c.Equipment[a.Slot] == a.ItemUID {
		return false
	}

	// 从原持有者身上卸下
	for _, other := range s.Inventory {
		if slot, held := other.SlotOf(a.ItemUID); held {
			other.Equipment[slot] = ""
		}
	}

	if prev := c.Equipment[a.Slot]; prev != "" {
		if displaced, ok := s.Items[prev]; ok {
			displaced.EquippedBy = ""
		}
	}

	c.Equipment[a.Slot] = a.ItemUID
	item.EquippedBy = c.UID
	return true
}

func unequipItem(s *models.PlayerState, a UnequipItem) bool {
	c := s.FindCharacter(a.CharID)
	if c == nil || !models.ValidSlot(a.Slot) {
		return false
	}
	uid := c.Equipment[a.Slot]
	if uid == "" {
		return false
	}
	if item, ok := s.Items[uid]; ok {
		item.EquippedBy = ""
	}
	c.Equipment[a.Slot] = ""
	return true
}

// UpgradeItemCost 强化所需金币
func UpgradeItemCost(level int) int64 {
	return int64(level+1) * UpgradeItemGoldStep
}

func upgradeItem(s *models.PlayerState, a UpgradeItem, env Env) bool {
	item, ok := s.Items[a.ItemUID]
	if !ok || !item.IsEquipment() || item.Level >= models.MaxEnhancement {
		return false
	}

	cost := UpgradeItemCost(item.Level)
	if s.Currency < cost {
		return false
	}

	table := env.Catalog.Substats
	r := table[rng.Intn(env.Rand, len(table))]
	item.Substats = append(item.Substats, models.SubstatRoll{
		Stat:  r.Stat,
		Value: rng.Between(env.Rand, r.Min, r.Max),
	})
	item.Level++
	s.Currency -= cost
	return true
}

func toggleArenaRoster(s *models.PlayerState, a ToggleArenaRoster) bool {
	for i, uid := range s.ArenaRoster {
		if uid == a.CharID {
			s.ArenaRoster = append(s.ArenaRoster[:i], s.ArenaRoster[i+1:]...)
			return true
		}
	}

	if s.FindCharacter(a.CharID) == nil || len(s.ArenaRoster) >= models.MaxArenaRoster {
		return false
	}
	s.ArenaRoster = append(s.ArenaRoster, a.CharID)
	return true
}

func assignLabChar(s *models.PlayerState, a AssignLabChar) bool {
	if a.SlotIndex < 0 || a.SlotIndex >= models.LabSlotCount || a.SlotIndex >= s.Lab.Level {
		return false
	}
	if s.FindCharacter(a.CharID) == nil || s.Lab.Slots[a.SlotIndex] == a.CharID {
		return false
	}

	for i, uid := range s.Lab.Slots {
		if uid == a.CharID {
			s.Lab.Slots[i] = ""
		}
	}
	s.Lab.Slots[a.SlotIndex] = a.CharID
	return true
}

func removeLabChar(s *models.PlayerState, a RemoveLabChar) bool {
	if a.SlotIndex < 0 || a.SlotIndex >= models.LabSlotCount || s.Lab.Slots[a.SlotIndex] == "" {
		return false
	}
	s.Lab.Slots[a.SlotIndex] = ""
	return true
}

// LabUpgradeCost 实验室升级所需金币和材料
func LabUpgradeCost(level int) (int64, int) {
	return int64(level) * LabUpgradeGoldPerLevel, level * LabUpgradeMaterialPerLevel
}

func upgradeLab(s *models.PlayerState, env Env) bool {
	if s.Lab.Level >= models.LabMaxLevel {
		return false
	}

	gold, mats := LabUpgradeCost(s.Lab.Level)
	if s.Currency < gold {
		return false
	}
	if !consumeMaterial(s, env.Catalog.LabUpgradeMaterial, mats) {
		return false
	}

	s.Currency -= gold
	s.Lab.Level++
	return true
}

// PendingLabGold 截至now可领取的实验室金币
func PendingLabGold(s *models.PlayerState, now time.Time) int64 {
	elapsed := now.Sub(s.Lab.LastClaimTime)
	if elapsed < LabMinClaimInterval {
		return 0
	}

	levels := 0
	for _, uid := range s.Lab.Slots {
		if uid == "" {
			continue
		}
		if c := s.FindCharacter(uid); c != nil {
			levels += c.Level
		}
	}

	return int64(math.Floor(elapsed.Minutes() * float64(levels) * LabGoldPerLevelMinute))
}

func claimLabGold(s *models.PlayerState, env Env) bool {
	now := env.Clock.Now()
	income := PendingLabGold(s, now)
	if income <= 0 {
		return false
	}
	s.Currency += income
	s.Lab.LastClaimTime = now
	return true
}

func battleWin(s *models.PlayerState, a BattleWin, env Env) bool {
	d := a.Drops
	if d.Currency > 0 {
		s.Currency += d.Currency
	}
	if d.Tickets > 0 {
		s.Tickets += d.Tickets
	}

	for _, id := range d.Materials {
		if mat := s.FindMaterial(id); mat != nil {
			mat.Count++
			continue
		}
		uid := env.IDs.Generate()
		s.Items[uid] = &models.ItemInstance{
			UID:        uid,
			TemplateID: id,
			Type:       models.ItemMaterial,
			Count:      1,
		}
	}

	for _, id := range d.Equipment {
		tpl, ok := env.Catalog.EquipmentTemplate(id)
		if !ok {
			continue
		}
		uid := env.IDs.Generate()
		s.Items[uid] = models.NewEquipmentInstance(uid, tpl)
	}

	return true
}

// RosterPower 竞技场名单总战力
func RosterPower(s *models.PlayerState) int {
	items := itemLookup(s)
	total := 0
	for _, uid := range s.ArenaRoster {
		if c := s.FindCharacter(uid); c != nil {
			total += characterPower(c, items)
		}
	}
	return total
}

// PassiveIncome 被动收入，总战力为0时返回0
func PassiveIncome(totalPower int) int64 {
	if totalPower <= 0 {
		return 0
	}
	income := int64(totalPower / 10)
	if income < 1 {
		income = 1
	}
	return income
}
