package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validState 两个角色、一件已穿戴的+1装备、一堆材料
func validState() *PlayerState {
	s := NewPlayerState(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	arch := &CharacterArchetype{ID: "heidi"}
	a := NewOwnedCharacter("a", arch)
	b := NewOwnedCharacter("b", &CharacterArchetype{ID: "reed"})
	a.Equipment[SlotWeapon] = "i1"
	s.Inventory = append(s.Inventory, a, b)
	s.Items["i1"] = &ItemInstance{
		UID: "i1", TemplateID: "eq_blade", Type: ItemEquipment, Slot: SlotWeapon,
		Level: 1, Substats: []SubstatRoll{{Stat: StatAttack, Value: 3}}, EquippedBy: "a",
	}
	s.Items["m1"] = &ItemInstance{UID: "m1", TemplateID: "mat_alloy", Type: ItemMaterial, Count: 2}
	s.ArenaRoster = []string{"a", "b"}
	s.Lab.Level = 2
	s.Lab.Slots[1] = "b"
	return s
}

func TestValidateAcceptsConsistentState(t *testing.T) {
	require.NoError(t, validState().Validate())
	require.NoError(t, NewPlayerState(time.Now()).Validate())
}

func TestValidateRejectsBrokenInvariants(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *PlayerState)
	}{
		{"negative currency", func(s *PlayerState) { s.Currency = -1 }},
		{"negative tickets", func(s *PlayerState) { s.Tickets = -1 }},
		{"nil character", func(s *PlayerState) { s.Inventory = append(s.Inventory, nil) }},
		{"nil item", func(s *PlayerState) { s.Items["x"] = nil }},
		{"duplicate uid", func(s *PlayerState) { s.Inventory[1].UID = "a" }},
		{"empty uid", func(s *PlayerState) { s.Inventory[1].UID = "" }},
		{"stars too high", func(s *PlayerState) { s.Inventory[0].Stars = 99 }},
		{"stars zero", func(s *PlayerState) { s.Inventory[0].Stars = 0 }},
		{"level too high", func(s *PlayerState) { s.Inventory[0].Level = 500 }},
		{"missing slot", func(s *PlayerState) { delete(s.Inventory[1].Equipment, SlotHead) }},
		{"unknown slot", func(s *PlayerState) { s.Inventory[1].Equipment["tail"] = "" }},
		{"slot points nowhere", func(s *PlayerState) { s.Inventory[1].Equipment[SlotHead] = "ghost" }},
		{"slot mismatch", func(s *PlayerState) {
			s.Inventory[0].Equipment[SlotWeapon] = ""
			s.Inventory[0].Equipment[SlotHead] = "i1"
		}},
		{"material equipped", func(s *PlayerState) { s.Inventory[1].Equipment[SlotHead] = "m1" }},
		{"item on two characters", func(s *PlayerState) { s.Inventory[1].Equipment[SlotWeapon] = "i1" }},
		{"equipped_by stale", func(s *PlayerState) { s.Items["i1"].EquippedBy = "b" }},
		{"equipped_by without holder", func(s *PlayerState) { s.Inventory[0].Equipment[SlotWeapon] = "" }},
		{"item key mismatch", func(s *PlayerState) { s.Items["m1"].UID = "m2" }},
		{"substats missing", func(s *PlayerState) { s.Items["i1"].Level = 10 }},
		{"enhancement too high", func(s *PlayerState) {
			s.Items["i1"].Level = 11
			s.Items["i1"].Substats = make([]SubstatRoll, 11)
		}},
		{"empty material", func(s *PlayerState) { s.Items["m1"].Count = 0 }},
		{"unknown item type", func(s *PlayerState) { s.Items["m1"].Type = "relic" }},
		{"roster too long", func(s *PlayerState) {
			s.ArenaRoster = []string{"a", "b", "a", "b", "a", "b", "a"}
		}},
		{"roster duplicate", func(s *PlayerState) { s.ArenaRoster = []string{"a", "a"} }},
		{"roster unknown", func(s *PlayerState) { s.ArenaRoster = []string{"zz"} }},
		{"lab level too high", func(s *PlayerState) { s.Lab.Level = 9 }},
		{"lab slot locked", func(s *PlayerState) { s.Lab.Slots[3] = "a" }},
		{"lab slot unknown", func(s *PlayerState) { s.Lab.Slots[0] = "zz" }},
		{"lab slot duplicate", func(s *PlayerState) { s.Lab.Slots[0] = "b" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validState()
			tt.mutate(s)
			assert.ErrorIs(t, s.Validate(), ErrInvalidState)
		})
	}
}

func TestNormalizeSkipsNilEntries(t *testing.T) {
	s := &PlayerState{Inventory: []*OwnedCharacter{nil}}
	assert.NotPanics(t, s.Normalize)
	assert.ErrorIs(t, s.Validate(), ErrInvalidState)
}
