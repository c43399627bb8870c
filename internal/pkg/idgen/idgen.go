// Package idgen 唯一id生成
package idgen

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator id生成器
type Generator interface {
	Generate() string
}

// UUIDGenerator 基于uuid的生成器，可带前缀
type UUIDGenerator struct {
	prefix string
}

// NewUUID 创建uuid生成器
func NewUUID(prefix string) *UUIDGenerator {
	return &UUIDGenerator{prefix: prefix}
}

// Generate 生成id
func (g *UUIDGenerator) Generate() string {
	id := uuid.New().String()
	if g.prefix != "" {
		return fmt.Sprintf("%s_%s", g.prefix, id)
	}
	return id
}

// SequentialGenerator 顺序id，用于测试
type SequentialGenerator struct {
	prefix  string
	counter uint64
}

// NewSequential 创建顺序生成器
func NewSequential(prefix string) *SequentialGenerator {
	return &SequentialGenerator{prefix: prefix}
}

// Generate 生成下一个id
func (g *SequentialGenerator) Generate() string {
	n := atomic.AddUint64(&g.counter, 1)
	if g.prefix != "" {
		return fmt.Sprintf("%s_%d", g.prefix, n)
	}
	return fmt.Sprintf("%d", n)
}
