// Package timer 提供可取消的定时器槽位
// 每个槽位最多持有一个待触发的回调，重新调度会取消旧的回调
package timer

import (
	"sync"
	"time"

	"github.com/yourusername/shopsync/pkg/clock"
)

// Slot 保存一个可取消的定时器句柄
// 回调触发前会校验代数，已被取消或替换的回调即使已经进入触发流程也不会执行
type Slot struct {
	clock  clock.Clock
	mu     sync.Mutex
	timer  clock.Timer
	gen    uint64
	closed bool
}

// NewSlot 创建一个新的定时器槽位
func NewSlot(c clock.Clock) *Slot {
	if c == nil {
		c = clock.System()
	}
	return &Slot{clock: c}
}

// Schedule 取消当前待触发的回调，并在d之后调度fn
// 槽位关闭后调用无效，返回false
func (s *Slot) Schedule(d time.Duration, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.stopLocked()

	gen := s.gen
	s.timer = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		live := !s.closed && s.gen == gen
		if live {
			s.timer = nil
		}
		s.mu.Unlock()

		if live {
			fn()
		}
	})
	return true
}

// Stop 取消待触发的回调
func (s *Slot) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Pending 报告是否有回调等待触发
func (s *Slot) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Close 取消待触发的回调并拒绝之后的调度
func (s *Slot) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.closed = true
}

func (s *Slot) stopLocked() {
	// 代数递增，使已经开始触发的旧回调失效
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
