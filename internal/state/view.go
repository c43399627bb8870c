package state

import (
	"time"

	"github.com/jacl-coder/RhodesGacha-Server/internal/models"
	"github.com/jacl-coder/RhodesGacha-Server/internal/stats"
)

// CharacterView 角色及其推导属性
type CharacterView struct {
	*models.OwnedCharacter
	Final models.FinalStats `json:"final"`
	Power int               `json:"power"`
}

// View 下发给客户端的存档视图，附带推导数据
type View struct {
	*models.PlayerState
	Characters     []CharacterView `json:"characters"`
	RosterPower    int             `json:"roster_power"`
	PendingLabGold int64           `json:"pending_lab_gold"`
}

func itemLookup(s *models.PlayerState) stats.ItemMap {
	return stats.ItemMap(s.Items)
}

func characterPower(c *models.OwnedCharacter, items stats.ItemLookup) int {
	return stats.CharacterPower(c, items)
}

// ResolveCharacter 计算存档中某角色的最终属性
func ResolveCharacter(s *models.PlayerState, uid string) (models.FinalStats, bool) {
	c := s.FindCharacter(uid)
	if c == nil {
		return models.FinalStats{}, false
	}
	return stats.Resolve(c, itemLookup(s)), true
}

// NewView 构建存档视图
func NewView(s *models.PlayerState, now time.Time) *View {
	items := itemLookup(s)
	views := make([]CharacterView, 0, len(s.Inventory))
	for _, c := range s.Inventory {
		final := stats.Resolve(c, items)
		views = append(views, CharacterView{
			OwnedCharacter: c,
			Final:          final,
			Power:          stats.Power(final),
		})
	}

	return &View{
		PlayerState:    s,
		Characters:     views,
		RosterPower:    RosterPower(s),
		PendingLabGold: PendingLabGold(s, now),
	}
}
