// Package rng 可注入的随机源
package rng

import (
	"math/rand"
	"sync"
	"time"
)

// Source 返回[0,1)区间的浮点数
type Source interface {
	Next() float64
}

// Seeded 基于math/rand的可复现随机源，并发安全
type Seeded struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSeeded 以指定种子创建随机源，seed为0时使用当前时间
func NewSeeded(seed int64) *Seeded {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Seeded{r: rand.New(rand.NewSource(seed))}
}

// Next 下一个随机数
func (s *Seeded) Next() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

// Sequence 按顺序循环返回固定值，用于测试
type Sequence struct {
	mu     sync.Mutex
	values []float64
	pos    int
}

// NewSequence 创建固定序列随机源
func NewSequence(values ...float64) *Sequence {
	if len(values) == 0 {
		values = []float64{0}
	}
	return &Sequence{values: values}
}

// Next 下一个值
func (s *Sequence) Next() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.values[s.pos%len(s.values)]
	s.pos++
	return v
}

// Intn 返回[0,n)的整数，n<=0时返回0
func Intn(src Source, n int) int {
	if n <= 0 {
		return 0
	}
	i := int(src.Next() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// Between 返回[min,max]的整数
func Between(src Source, min, max int) int {
	if max <= min {
		return min
	}
	return min + Intn(src, max-min+1)
}

// Chance 以概率p返回true
func Chance(src Source, p float64) bool {
	return src.Next() < p
}
