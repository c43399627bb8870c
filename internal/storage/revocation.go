package storage

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RevokedTokenPrefix 已注销令牌键前缀
const RevokedTokenPrefix = "auth:revoked:"

// RedisRevocationList 已注销令牌保存在Redis，过期时间与令牌一致
type RedisRevocationList struct {
	client *redis.Client
}

// NewRedisRevocationList 创建Redis注销列表
func NewRedisRevocationList(client *redis.Client) *RedisRevocationList {
	return &RedisRevocationList{client: client}
}

// Revoke 注销令牌
func (r *RedisRevocationList) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, RevokedTokenPrefix+tokenID, 1, ttl).Err()
}

// IsRevoked 令牌是否已注销
func (r *RedisRevocationList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, RevokedTokenPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemoryRevocationList 进程内注销列表
type MemoryRevocationList struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewMemoryRevocationList 创建内存注销列表
func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{revoked: make(map[string]time.Time)}
}

// Revoke 注销令牌
func (m *MemoryRevocationList) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for id, exp := range m.revoked {
		if now.After(exp) {
			delete(m.revoked, id)
		}
	}
	m.revoked[tokenID] = now.Add(ttl)
	return nil
}

// IsRevoked 令牌是否已注销
func (m *MemoryRevocationList) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.revoked[tokenID]
	return ok && time.Now().Before(exp), nil
}
