// Package clock 时间源，便于测试时替换
package clock

import (
	"sync"
	"time"
)

// Clock 时间接口
type Clock interface {
	Now() time.Time
}

// Real 系统时间
type Real struct{}

// Now 返回当前时间
func (Real) Now() time.Time {
	return time.Now()
}

// New 返回系统时钟
func New() Clock {
	return Real{}
}

// Fixed 可手动推进的时钟
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixed 创建固定时钟
func NewFixed(now time.Time) *Fixed {
	return &Fixed{now: now}
}

// Now 返回当前设定时间
func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance 推进时间
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}
