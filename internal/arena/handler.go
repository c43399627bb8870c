package arena

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/jacl-coder/RhodesGacha-Server/internal/auth"
	"github.com/jacl-coder/RhodesGacha-Server/internal/models"
	"github.com/jacl-coder/RhodesGacha-Server/internal/protocol"
)

// Handler 竞技场HTTP处理器
type Handler struct {
	service *Service
	tokens  *auth.TokenService
}

// NewHandler 创建竞技场处理器
func NewHandler(service *Service, tokens *auth.TokenService) *Handler {
	return &Handler{service: service, tokens: tokens}
}

// RegisterHandlers 注册HTTP处理器
func (h *Handler) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)

	protected := h.tokens.Middleware(func(w http.ResponseWriter, err error) {
		protocol.SendError(w, "未授权", http.StatusUnauthorized)
	})
	mux.Handle("/arena/teams", protected(http.HandlerFunc(h.handleTeams)))
	mux.Handle("/arena/opponents", protected(http.HandlerFunc(h.handleOpponents)))
	mux.Handle("/arena/opponents/", protected(http.HandlerFunc(h.handleOpponent)))
	mux.Handle("/arena/ladder", protected(http.HandlerFunc(h.handleLadder)))
	mux.Handle("/arena/team", protected(http.HandlerFunc(h.handleSaveTeam)))
	mux.Handle("/arena/result", protected(http.HandlerFunc(h.handleResult)))
}

// handleHealth 处理健康检查请求
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持GET方法", http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func identity(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}

// handleTeams 获取自己的队伍
func (h *Handler) handleTeams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		protocol.SendError(w, "仅支持GET方法", http.StatusMethodNotAllowed)
		return
	}

	teams, err := h.service.Teams(r.Context(), identity(r).UserID)
	if err != nil {
		log.Printf("查询队伍失败: %v", err)
		protocol.SendError(w, "查询队伍失败", http.StatusInternalServerError)
		return
	}
	protocol.SendSuccess(w, "查询成功", teams)
}

// handleOpponents 匹配对手
func (h *Handler) handleOpponents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		protocol.SendError(w, "仅支持GET方法", http.StatusMethodNotAllowed)
		return
	}

	opps, err := h.service.Opponents(r.Context(), identity(r).UserID)
	if err != nil {
		log.Printf("匹配对手失败: %v", err)
		protocol.SendError(w, "匹配对手失败", http.StatusInternalServerError)
		return
	}
	protocol.SendSuccess(w, "匹配成功", opps)
}

// handleOpponent 获取单个对手的防守队伍
func (h *Handler) handleOpponent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		protocol.SendError(w, "仅支持GET方法", http.StatusMethodNotAllowed)
		return
	}
	opponentID, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/arena/opponents/"), 10, 64)
	if err != nil {
		protocol.SendError(w, "无效的对手ID", http.StatusBadRequest)
		return
	}

	opp, err := h.service.Opponent(r.Context(), identity(r).UserID, opponentID)
	switch {
	case errors.Is(err, ErrOpponentNotFound):
		protocol.SendError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrSelfMatch):
		protocol.SendError(w, err.Error(), http.StatusBadRequest)
	case err != nil:
		log.Printf("查询对手失败: %v", err)
		protocol.SendError(w, "查询对手失败", http.StatusInternalServerError)
	default:
		protocol.SendSuccess(w, "查询成功", opp)
	}
}

// handleLadder 排行榜
func (h *Handler) handleLadder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		protocol.SendError(w, "仅支持GET方法", http.StatusMethodNotAllowed)
		return
	}

	ladder, err := h.service.Ladder(r.Context())
	if err != nil {
		log.Printf("查询排行榜失败: %v", err)
		protocol.SendError(w, "查询排行榜失败", http.StatusInternalServerError)
		return
	}
	protocol.SendSuccess(w, "查询成功", ladder)
}

// SaveTeamRequest 保存队伍请求
type SaveTeamRequest struct {
	Type  models.TeamType `json:"type"`
	Squad models.Squad    `json:"squad"`
	Power int             `json:"power"`
}

// handleSaveTeam 上传队伍
func (h *Handler) handleSaveTeam(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		protocol.SendError(w, "仅支持POST方法", http.StatusMethodNotAllowed)
		return
	}

	var req SaveTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		protocol.SendError(w, "无效的请求格式", http.StatusBadRequest)
		return
	}

	err := h.service.SaveTeam(r.Context(), identity(r).UserID, req.Type, req.Squad, req.Power)
	switch {
	case errors.Is(err, ErrInvalidTeamType), errors.Is(err, ErrInvalidSquad):
		protocol.SendError(w, err.Error(), http.StatusBadRequest)
	case err != nil:
		log.Printf("保存队伍失败: %v", err)
		protocol.SendError(w, "保存队伍失败", http.StatusInternalServerError)
	default:
		protocol.SendSuccess(w, "保存成功", nil)
	}
}

// handleResult 上报对战结果
func (h *Handler) handleResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		protocol.SendError(w, "仅支持POST方法", http.StatusMethodNotAllowed)
		return
	}

	var req models.MatchResult
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		protocol.SendError(w, "无效的请求格式", http.StatusBadRequest)
		return
	}

	update, err := h.service.ReportResult(r.Context(), identity(r).UserID, req)
	switch {
	case errors.Is(err, ErrOpponentNotFound):
		protocol.SendError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInvalidResult), errors.Is(err, ErrSelfMatch):
		protocol.SendError(w, err.Error(), http.StatusBadRequest)
	case err != nil:
		log.Printf("结算对战失败: %v", err)
		protocol.SendError(w, "结算对战失败", http.StatusInternalServerError)
	default:
		protocol.SendSuccess(w, "结算成功", update)
	}
}
