package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jacl-coder/RhodesGacha-Server/internal/models"
)

var (
	// ErrNoSnapshot 持久化层中不存在该身份的存档
	ErrNoSnapshot = errors.New("存档不存在")
	// ErrCorruptSnapshot 存档无法解析
	ErrCorruptSnapshot = errors.New("存档数据损坏")
)

// Persistence 按身份键读写存档快照
type Persistence interface {
	// Load 读取快照，不存在时返回ErrNoSnapshot
	Load(ctx context.Context, key string) ([]byte, error)
	// Save 覆盖写入快照
	Save(ctx context.Context, key string, data []byte) error
}

// Encode 序列化存档
func Encode(s *models.PlayerState) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("序列化存档失败: %w", err)
	}
	return data, nil
}

// Decode 反序列化存档，违反不变量的存档视为损坏
func Decode(data []byte) (*models.PlayerState, error) {
	var s models.PlayerState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	s.Normalize()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return &s, nil
}

// Store 单个玩家的状态容器，所有修改通过Dispatch串行执行
type Store struct {
	mu        sync.Mutex
	key       string
	state     *models.PlayerState
	env       Env
	persist   Persistence
	listeners []func(*models.PlayerState)
}

// Open 加载存档并创建Store。存档缺失或损坏时使用初始存档，读取失败返回错误
func Open(ctx context.Context, key string, persist Persistence, env Env) (*Store, error) {
	st, err := loadState(ctx, key, persist, env)
	if err != nil {
		return nil, err
	}

	return &Store{
		key:     key,
		state:   st,
		env:     env,
		persist: persist,
	}, nil
}

func loadState(ctx context.Context, key string, persist Persistence, env Env) (*models.PlayerState, error) {
	data, err := persist.Load(ctx, key)
	if errors.Is(err, ErrNoSnapshot) {
		return models.NewPlayerState(env.Clock.Now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取存档失败: %w", err)
	}

	st, err := Decode(data)
	if err != nil {
		log.Printf("存档 %s 无法解析，使用初始存档: %v", key, err)
		return models.NewPlayerState(env.Clock.Now()), nil
	}
	return st, nil
}

// Key 存档身份键
func (s *Store) Key() string {
	return s.key
}

// State 当前存档。返回值只读，后续动作不会修改它
func (s *Store) State() *models.PlayerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Env reducer依赖
func (s *Store) Env() Env {
	return s.env
}

// OnChange 注册状态变化回调，回调在锁外执行
func (s *Store) OnChange(fn func(*models.PlayerState)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Dispatch 应用动作并持久化。返回动作是否被接受；持久化失败时内存状态仍然生效
func (s *Store) Dispatch(ctx context.Context, action Action) (bool, error) {
	s.mu.Lock()
	prev := s.state
	next := Reduce(prev, action, s.env)
	if next == prev {
		s.mu.Unlock()
		return false, nil
	}
	s.state = next
	err := s.save(ctx, next)
	listeners := append([]func(*models.PlayerState){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}

	if err != nil {
		log.Printf("存档 %s 写入失败 (%s): %v", s.key, action.Name(), err)
		return true, err
	}
	return true, nil
}

func (s *Store) save(ctx context.Context, st *models.PlayerState) error {
	data, err := Encode(st)
	if err != nil {
		return err
	}
	return s.persist.Save(ctx, s.key, data)
}

// Tick 结算一次被动收入，返回发放的金币
func (s *Store) Tick(ctx context.Context) (int64, error) {
	income := PassiveIncome(RosterPower(s.State()))
	if income <= 0 {
		return 0, nil
	}
	ok, err := s.Dispatch(ctx, AddCurrency{Amount: income})
	if !ok {
		return 0, err
	}
	return income, err
}

// RunPassiveIncome 按间隔结算被动收入，直到ctx结束
func (s *Store) RunPassiveIncome(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.Tick(ctx); err != nil {
				log.Printf("被动收入结算失败: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
