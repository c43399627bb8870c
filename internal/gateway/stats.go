// stats.go

package gateway

import (
	"log"
	"net/http"
	"strings"

	"github.com/jacl-coder/RhodesGacha-Server/internal/auth"
	"github.com/jacl-coder/RhodesGacha-Server/internal/models"
	"github.com/jacl-coder/RhodesGacha-Server/internal/pkg/clock"
	"github.com/jacl-coder/RhodesGacha-Server/internal/protocol"
	"github.com/jacl-coder/RhodesGacha-Server/internal/state"
	"github.com/jacl-coder/RhodesGacha-Server/internal/stats"
)

// StatsHandler 角色属性查询处理器
type StatsHandler struct {
	persist state.Persistence
	clock   clock.Clock
	tokens  *auth.TokenService
}

// CharacterStats 角色最终属性
type CharacterStats struct {
	UID    string            `json:"uid"`
	BaseID string            `json:"base_id"`
	Stars  int               `json:"stars"`
	Level  int               `json:"level"`
	Stats  models.FinalStats `json:"stats"`
	Power  int               `json:"power"`
}

// NewStatsHandler 创建属性查询处理器
func NewStatsHandler(persist state.Persistence, clk clock.Clock, tokens *auth.TokenService) *StatsHandler {
	return &StatsHandler{persist: persist, clock: clk, tokens: tokens}
}

// RegisterHandlers 注册HTTP处理器
func (h *StatsHandler) RegisterHandlers(mux *http.ServeMux) {
	mux.Handle("/api/characters/", requireAuth(h.tokens, http.HandlerFunc(h.handleCharacterStats)))
}

// handleCharacterStats 处理 /api/characters/{uid}/stats
func (h *StatsHandler) handleCharacterStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		protocol.SendError(w, "仅支持GET方法", http.StatusMethodNotAllowed)
		return
	}

	// 提取角色ID
	path := strings.TrimPrefix(r.URL.Path, "/api/characters/")
	uid, ok := strings.CutSuffix(path, "/stats")
	if !ok || uid == "" || strings.Contains(uid, "/") {
		protocol.SendError(w, "无效的请求路径", http.StatusNotFound)
		return
	}

	id, _ := auth.FromContext(r.Context())
	st, err := loadSave(r.Context(), h.persist, id.SaveKey(), h.clock)
	if err != nil {
		log.Printf("读取存档 %s 失败: %v", id.SaveKey(), err)
		protocol.SendError(w, "读取存档失败", http.StatusInternalServerError)
		return
	}

	c := st.FindCharacter(uid)
	if c == nil {
		protocol.SendError(w, "角色不存在", http.StatusNotFound)
		return
	}
	final, _ := state.ResolveCharacter(st, uid)

	protocol.SendSuccess(w, "查询成功", CharacterStats{
		UID:    c.UID,
		BaseID: c.BaseID,
		Stars:  c.Stars,
		Level:  c.Level,
		Stats:  final,
		Power:  stats.Power(final),
	})
}
