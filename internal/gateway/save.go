package gateway

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/jacl-coder/RhodesGacha-Server/internal/auth"
	"github.com/jacl-coder/RhodesGacha-Server/internal/models"
	"github.com/jacl-coder/RhodesGacha-Server/internal/pkg/clock"
	"github.com/jacl-coder/RhodesGacha-Server/internal/protocol"
	"github.com/jacl-coder/RhodesGacha-Server/internal/state"
)

// maxSaveSize 云存档大小上限
const maxSaveSize = 1 << 20

// SaveHandler 云存档处理器
type SaveHandler struct {
	persist state.Persistence
	clock   clock.Clock
	tokens  *auth.TokenService
}

// NewSaveHandler 创建云存档处理器
func NewSaveHandler(persist state.Persistence, clk clock.Clock, tokens *auth.TokenService) *SaveHandler {
	return &SaveHandler{persist: persist, clock: clk, tokens: tokens}
}

// RegisterHandlers 注册HTTP处理器
func (h *SaveHandler) RegisterHandlers(mux *http.ServeMux) {
	mux.Handle("/api/save", requireAuth(h.tokens, http.HandlerFunc(h.handleSave)))
}

func (h *SaveHandler) handleSave(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	switch r.Method {
	case http.MethodGet:
		st, err := loadSave(r.Context(), h.persist, id.SaveKey(), h.clock)
		if err != nil {
			log.Printf("读取存档 %s 失败: %v", id.SaveKey(), err)
			protocol.SendError(w, "读取存档失败", http.StatusInternalServerError)
			return
		}
		protocol.SendSuccess(w, "查询成功", st)
	case http.MethodPost:
		body, err := io.ReadAll(io.LimitReader(r.Body, maxSaveSize+1))
		if err != nil || len(body) > maxSaveSize {
			protocol.SendError(w, "无效的请求格式", http.StatusBadRequest)
			return
		}
		st, err := state.Decode(body)
		if err != nil {
			protocol.SendError(w, "存档格式错误", http.StatusBadRequest)
			return
		}
		data, err := state.Encode(st)
		if err == nil {
			err = h.persist.Save(r.Context(), id.SaveKey(), data)
		}
		if err != nil {
			log.Printf("写入存档 %s 失败: %v", id.SaveKey(), err)
			protocol.SendError(w, "保存存档失败", http.StatusInternalServerError)
			return
		}
		protocol.SendSuccess(w, "保存成功", st)
	default:
		protocol.SendError(w, "仅支持GET和POST方法", http.StatusMethodNotAllowed)
	}
}

// loadSave 读取存档，不存在或已损坏时返回初始存档
func loadSave(ctx context.Context, persist state.Persistence, key string, clk clock.Clock) (*models.PlayerState, error) {
	data, err := persist.Load(ctx, key)
	if errors.Is(err, state.ErrNoSnapshot) {
		return models.NewPlayerState(clk.Now()), nil
	}
	if err != nil {
		return nil, err
	}
	st, err := state.Decode(data)
	if err != nil {
		log.Printf("存档 %s 已损坏，返回初始存档: %v", key, err)
		return models.NewPlayerState(clk.Now()), nil
	}
	return st, nil
}
