// Package auth 账号令牌签发、校验与密码哈希
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken 令牌无效或已过期
	ErrInvalidToken = errors.New("无效的令牌")
	// ErrRevokedToken 令牌已注销
	ErrRevokedToken = errors.New("令牌已注销")
)

// Issuer 令牌签发者
const Issuer = "rhodes-gacha"

// Identity 已认证的账号身份
type Identity struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SaveKey 存档身份键
func (id Identity) SaveKey() string {
	return "user:" + strconv.FormatInt(id.UserID, 10)
}

// Revoker 令牌注销列表
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type claims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
}

// TokenService HS256令牌签发与校验
type TokenService struct {
	secret  []byte
	ttl     time.Duration
	revoker Revoker
	now     func() time.Time
}

// NewTokenService 创建令牌服务，revoker可为nil
func NewTokenService(secret string, ttl time.Duration, revoker Revoker) *TokenService {
	return &TokenService{
		secret:  []byte(secret),
		ttl:     ttl,
		revoker: revoker,
		now:     time.Now,
	}
}

// Issue 为账号签发令牌
func (s *TokenService) Issue(userID int64, username string) (string, Identity, error) {
	now := s.now()
	id := Identity{
		UserID:    userID,
		Username:  username,
		TokenID:   uuid.NewString(),
		ExpiresAt: now.Add(s.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id.TokenID,
			Issuer:    Issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(id.ExpiresAt),
		},
		UserID:   userID,
		Username: username,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", Identity{}, fmt.Errorf("签发令牌失败: %w", err)
	}
	return signed, id, nil
}

// Verify 校验令牌并返回身份
func (s *TokenService) Verify(ctx context.Context, raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, ErrInvalidToken
	}

	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.UserID <= 0 || c.ID == "" {
		return Identity{}, ErrInvalidToken
	}

	if s.revoker != nil {
		revoked, err := s.revoker.IsRevoked(ctx, c.ID)
		if err != nil {
			return Identity{}, fmt.Errorf("查询令牌状态失败: %w", err)
		}
		if revoked {
			return Identity{}, ErrRevokedToken
		}
	}

	return Identity{
		UserID:    c.UserID,
		Username:  c.Username,
		TokenID:   c.ID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

// Revoke 注销令牌直到其过期
func (s *TokenService) Revoke(ctx context.Context, id Identity) error {
	if s.revoker == nil {
		return nil
	}
	return s.revoker.Revoke(ctx, id.TokenID, id.ExpiresAt.Sub(s.now()))
}
