package battle

import (
	"errors"
	"fmt"

	"github.com/jacl-coder/RhodesGacha-Server/internal/catalog"
	"github.com/jacl-coder/RhodesGacha-Server/internal/models"
	"github.com/jacl-coder/RhodesGacha-Server/internal/stats"
)

var (
	// ErrEmptySquad 出战小队为空
	ErrEmptySquad = errors.New("出战小队为空")
	// ErrSquadTooLarge 出战小队超过人数上限
	ErrSquadTooLarge = fmt.Errorf("出战小队最多%d人", models.MaxSquadSize)
	// ErrUnknownMember 小队成员不存在
	ErrUnknownMember = errors.New("小队成员不存在")
	// ErrDuplicateMember 小队成员重复
	ErrDuplicateMember = errors.New("小队成员重复")
)

// ValidateSquad 校验小队成员均存在且不重复
func ValidateSquad(s *models.PlayerState, squad []string) error {
	if len(squad) == 0 {
		return ErrEmptySquad
	}
	if len(squad) > models.MaxSquadSize {
		return ErrSquadTooLarge
	}
	seen := make(map[string]bool, len(squad))
	for _, uid := range squad {
		if seen[uid] {
			return fmt.Errorf("%w: %s", ErrDuplicateMember, uid)
		}
		seen[uid] = true
		if s.FindCharacter(uid) == nil {
			return fmt.Errorf("%w: %s", ErrUnknownMember, uid)
		}
	}
	return nil
}

func displayName(cat *catalog.Catalog, baseID string) string {
	if arch, ok := cat.Character(baseID); ok {
		return arch.Name
	}
	return baseID
}

// Snapshot 生成小队属性快照和总战力
func Snapshot(s *models.PlayerState, squad []string, cat *catalog.Catalog) (models.Squad, int, error) {
	if err := ValidateSquad(s, squad); err != nil {
		return models.Squad{}, 0, err
	}

	items := stats.ItemMap(s.Items)
	out := models.Squad{
		IDs:      append([]string{}, squad...),
		Snapshot: make([]models.SnapshotUnit, 0, len(squad)),
	}
	power := 0
	for _, uid := range squad {
		c := s.FindCharacter(uid)
		final := stats.Resolve(c, items)
		power += stats.Power(final)
		out.Snapshot = append(out.Snapshot, models.SnapshotUnit{
			UID:    c.UID,
			BaseID: c.BaseID,
			Name:   displayName(cat, c.BaseID),
			Stars:  c.Stars,
			Level:  c.Level,
			Stats:  final,
		})
	}
	return out, power, nil
}

// FromSnapshot 由队伍快照构建参战单位
func FromSnapshot(squad models.Squad) []Combatant {
	cs := make([]Combatant, 0, len(squad.Snapshot))
	for _, u := range squad.Snapshot {
		cs = append(cs, Combatant{
			ID:      u.UID,
			Name:    u.Name,
			Attack:  u.Stats.Attack,
			Defense: u.Stats.Defense,
			Health:  u.Stats.Health,
			Speed:   u.Stats.Speed,
		})
	}
	return cs
}

// Allies 由存档中的小队构建我方单位
func Allies(s *models.PlayerState, squad []string, cat *catalog.Catalog) ([]Combatant, error) {
	snap, _, err := Snapshot(s, squad, cat)
	if err != nil {
		return nil, err
	}
	return FromSnapshot(snap), nil
}

// Enemies 由图鉴敌人构建敌方单位
func Enemies(cat *catalog.Catalog) []Combatant {
	cs := make([]Combatant, 0, len(cat.Enemies))
	for i := range cat.Enemies {
		e := &cat.Enemies[i]
		cs = append(cs, Combatant{
			ID:      fmt.Sprintf("%s#%d", e.ID, i),
			Name:    e.Name,
			Attack:  e.Stats.Attack,
			Defense: e.Stats.Defense,
			Health:  e.Stats.Health,
			Speed:   e.Stats.Speed,
		})
	}
	return cs
}
