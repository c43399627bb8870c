package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlayerState(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewPlayerState(now)

	assert.Equal(t, int64(1000), s.Currency)
	assert.Equal(t, int64(5), s.Tickets)
	assert.Empty(t, s.Inventory)
	assert.Empty(t, s.Items)
	assert.Empty(t, s.ArenaRoster)
	assert.Equal(t, 1, s.Lab.Level)
	assert.Equal(t, now, s.Lab.LastClaimTime)
}

func TestCloneIsDeep(t *testing.T) {
	s := NewPlayerState(time.Now())
	c := NewOwnedCharacter("c1", &CharacterArchetype{ID: "heidi", Stats: BaseStats{Attack: 15}})
	s.Inventory = append(s.Inventory, c)
	s.Items["i1"] = &ItemInstance{UID: "i1", Type: ItemEquipment, Substats: []SubstatRoll{{Stat: StatAttack, Value: 2}}}
	s.ArenaRoster = append(s.ArenaRoster, "c1")

	clone := s.Clone()
	clone.Inventory[0].Equipment[SlotHead] = "i1"
	clone.Inventory[0].Stars = 3
	clone.Items["i1"].Substats[0].Value = 99
	clone.ArenaRoster[0] = "x"
	clone.Lab.Slots[0] = "c1"

	assert.Equal(t, "", s.Inventory[0].Equipment[SlotHead])
	assert.Equal(t, 1, s.Inventory[0].Stars)
	assert.Equal(t, 2, s.Items["i1"].Substats[0].Value)
	assert.Equal(t, "c1", s.ArenaRoster[0])
	assert.Equal(t, "", s.Lab.Slots[0])
}

func TestNormalizeFillsMissingSlots(t *testing.T) {
	raw := `{"currency":10,"inventory":[{"uid":"c1","base_id":"reed","stars":1,"level":1,"equipment":{"weapon":"i1"}}]}`

	var s PlayerState
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	s.Normalize()

	require.Len(t, s.Inventory, 1)
	assert.Len(t, s.Inventory[0].Equipment, len(EquipmentSlots))
	assert.Equal(t, "i1", s.Inventory[0].Equipment[SlotWeapon])
	assert.NotNil(t, s.Items)
	assert.NotNil(t, s.ArenaRoster)
	assert.Equal(t, 1, s.Lab.Level)
}

func TestMaterialLookup(t *testing.T) {
	s := NewPlayerState(time.Now())
	s.Items["m1"] = &ItemInstance{UID: "m1", TemplateID: "mat_alloy", Type: ItemMaterial, Count: 4}

	assert.Equal(t, 4, s.MaterialCount("mat_alloy"))
	assert.Equal(t, 0, s.MaterialCount("mat_chip_sniper"))
}

func TestFinalStatsAddGet(t *testing.T) {
	var fs FinalStats
	fs.Add(StatCritRate, 3)
	fs.Add(StatAttack, 7)
	fs.Add(StatKey("unknown"), 100)

	assert.Equal(t, 3, fs.Get(StatCritRate))
	assert.Equal(t, 7, fs.Get(StatAttack))
	assert.Equal(t, 0, fs.Get(StatKey("unknown")))
}

func TestTeamTypeValid(t *testing.T) {
	assert.True(t, TeamAttack.Valid())
	assert.True(t, TeamDefense.Valid())
	assert.False(t, TeamType("SUPPORT").Valid())
}
