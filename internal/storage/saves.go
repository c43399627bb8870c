package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jacl-coder/RhodesGacha-Server/internal/state"
)

// SQLSaveStore 存档保存在game_states表
type SQLSaveStore struct {
	sqlStore
}

// NewSQLSaveStore 创建数据库存档
func NewSQLSaveStore(conn *sql.DB, driver string) *SQLSaveStore {
	return &SQLSaveStore{sqlStore{db: conn, driver: driver}}
}

// Load 读取存档
func (s *SQLSaveStore) Load(ctx context.Context, key string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx, s.q(`SELECT data FROM game_states WHERE save_key = ?`), key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, state.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("读取存档失败: %w", err)
	}
	return []byte(data), nil
}

// Save 写入存档
func (s *SQLSaveStore) Save(ctx context.Context, key string, data []byte) error {
	query := s.q(`INSERT INTO game_states (save_key, data, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (save_key) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`)
	if _, err := s.db.ExecContext(ctx, query, key, string(data)); err != nil {
		return fmt.Errorf("写入存档失败: %w", err)
	}
	return nil
}

// SaveKeyPrefix Redis存档键前缀
const SaveKeyPrefix = "save:"

// RedisSaveStore 存档保存在Redis字符串键
type RedisSaveStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSaveStore 创建Redis存档，ttl为0表示不过期
func NewRedisSaveStore(client *redis.Client, ttl time.Duration) *RedisSaveStore {
	return &RedisSaveStore{client: client, ttl: ttl}
}

// Load 读取存档
func (s *RedisSaveStore) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, SaveKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, state.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("读取Redis存档失败: %w", err)
	}
	return data, nil
}

// Save 写入存档
func (s *RedisSaveStore) Save(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, SaveKeyPrefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("写入Redis存档失败: %w", err)
	}
	return nil
}

// MemorySaveStore 进程内存档，用于开发和测试
type MemorySaveStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemorySaveStore 创建内存存档
func NewMemorySaveStore() *MemorySaveStore {
	return &MemorySaveStore{data: make(map[string][]byte)}
}

// Load 读取存档
func (s *MemorySaveStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[key]
	if !ok {
		return nil, state.ErrNoSnapshot
	}
	return append([]byte(nil), data...), nil
}

// Save 写入存档
func (s *MemorySaveStore) Save(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	s.data[key] = append([]byte(nil), data...)
	s.mu.Unlock()
	return nil
}

var (
	_ state.Persistence = (*SQLSaveStore)(nil)
	_ state.Persistence = (*RedisSaveStore)(nil)
	_ state.Persistence = (*MemorySaveStore)(nil)
)
