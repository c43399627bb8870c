package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/jacl-coder/RhodesGacha-Server/internal/auth"
	"github.com/jacl-coder/RhodesGacha-Server/internal/models"
	"github.com/jacl-coder/RhodesGacha-Server/internal/protocol"
	"github.com/jacl-coder/RhodesGacha-Server/internal/storage"
)

// UserStore 账号存储
type UserStore interface {
	Create(ctx context.Context, username, passwordHash string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// AuthHandler 认证处理器
type AuthHandler struct {
	users      UserStore
	tokens     *auth.TokenService
	bcryptCost int
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthData 认证成功返回的数据
type AuthData struct {
	Token     string `json:"token"`
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	Elo       int    `json:"elo"`
	ExpiresAt int64  `json:"expires_at"`
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(users UserStore, tokens *auth.TokenService, bcryptCost int) *AuthHandler {
	return &AuthHandler{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcryptCost,
	}
}

// RegisterHandlers 注册HTTP处理器
func (h *AuthHandler) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/auth/login", h.handleLogin)
	mux.HandleFunc("/auth/register", h.handleRegister)
	mux.Handle("/auth/me", requireAuth(h.tokens, http.HandlerFunc(h.handleMe)))
	mux.Handle("/auth/logout", requireAuth(h.tokens, http.HandlerFunc(h.handleLogout)))
}

// requireAuth 校验令牌，失败时返回401
func requireAuth(tokens *auth.TokenService, next http.Handler) http.Handler {
	return tokens.Middleware(func(w http.ResponseWriter, err error) {
		protocol.SendError(w, "未授权", http.StatusUnauthorized)
	})(next)
}

// handleLogin 处理登录请求
func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		protocol.SendError(w, "仅支持POST方法", http.StatusMethodNotAllowed)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		protocol.SendError(w, "无效的请求格式", http.StatusBadRequest)
		return
	}

	user, err := h.users.FindByUsername(r.Context(), req.Username)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("查询用户失败: %v", err)
			protocol.SendError(w, "服务器内部错误", http.StatusInternalServerError)
			return
		}
		protocol.SendError(w, "用户名或密码错误", http.StatusUnauthorized)
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		protocol.SendError(w, "用户名或密码错误", http.StatusUnauthorized)
		return
	}

	h.sendToken(w, user, "登录成功")
}

// handleRegister 处理注册请求
func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		protocol.SendError(w, "仅支持POST方法", http.StatusMethodNotAllowed)
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		protocol.SendError(w, "无效的请求格式", http.StatusBadRequest)
		return
	}
	if err := auth.ValidateCredentials(req.Username, req.Password); err != nil {
		protocol.SendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	hash, err := auth.HashPassword(req.Password, h.bcryptCost)
	if err != nil {
		log.Printf("密码哈希失败: %v", err)
		protocol.SendError(w, "服务器内部错误", http.StatusInternalServerError)
		return
	}

	user, err := h.users.Create(r.Context(), req.Username, hash)
	if err != nil {
		if errors.Is(err, storage.ErrUsernameTaken) {
			protocol.SendError(w, "用户名已存在", http.StatusConflict)
			return
		}
		log.Printf("创建用户失败: %v", err)
		protocol.SendError(w, "注册失败", http.StatusInternalServerError)
		return
	}

	log.Printf("新用户注册: %s (ID: %d)", user.Username, user.ID)
	h.sendToken(w, user, "注册成功")
}

func (h *AuthHandler) sendToken(w http.ResponseWriter, user *models.User, message string) {
	token, id, err := h.tokens.Issue(user.ID, user.Username)
	if err != nil {
		log.Printf("生成令牌失败: %v", err)
		protocol.SendError(w, "生成令牌失败", http.StatusInternalServerError)
		return
	}
	protocol.SendSuccess(w, message, AuthData{
		Token:     token,
		UserID:    user.ID,
		Username:  user.Username,
		Elo:       user.Elo,
		ExpiresAt: id.ExpiresAt.Unix(),
	})
}

// handleMe 返回当前用户
func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		protocol.SendError(w, "仅支持GET方法", http.StatusMethodNotAllowed)
		return
	}
	id, _ := auth.FromContext(r.Context())

	user, err := h.users.FindByID(r.Context(), id.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			protocol.SendError(w, "用户不存在", http.StatusNotFound)
			return
		}
		log.Printf("查询用户失败: %v", err)
		protocol.SendError(w, "服务器内部错误", http.StatusInternalServerError)
		return
	}
	protocol.SendSuccess(w, "查询成功", user)
}

// handleLogout 注销当前令牌
func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		protocol.SendError(w, "仅支持POST方法", http.StatusMethodNotAllowed)
		return
	}
	id, _ := auth.FromContext(r.Context())

	if err := h.tokens.Revoke(r.Context(), id); err != nil {
		log.Printf("注销令牌失败: %v", err)
		protocol.SendError(w, "注销失败", http.StatusInternalServerError)
		return
	}
	protocol.SendSuccess(w, "已注销", nil)
}
