// Package clock provides the time source used by the cache TTL checks and the
// search debouncer. Production code uses the system clock; tests inject a Manual
// clock and advance it explicitly so no test depends on real timers.
//
// Package clock 提供缓存TTL检查和搜索防抖使用的时间源。
// 生产代码使用系统时钟；测试注入Manual时钟并显式推进，因此测试不依赖真实定时器。
package clock

import (
	"sort"
	"sync"
	"time"
)

// Clock is a source of the current time and of cancellable timers.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc waits for d to elapse and then calls f in its own goroutine
	// (or synchronously from Advance for a Manual clock).
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a handle on a pending AfterFunc call.
type Timer interface {
	// Stop prevents the timer from firing.
	// It returns false if the timer has already fired or been stopped.
	Stop() bool
}

// NowMillis returns c.Now() as Unix epoch milliseconds.
func NowMillis(c Clock) int64 {
	return c.Now().UnixMilli()
}

// System returns the wall clock.
func System() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Manual is a Clock that only moves when told to.
// Timers scheduled on it fire synchronously from Advance or Set, in deadline order.
//
// Manual 是一个只有在被要求时才会前进的时钟。
// 在其上调度的定时器会在Advance或Set中按截止时间顺序同步触发。
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
}

// NewManual creates a Manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the clock's current time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc schedules f to run once the clock has been advanced by d.
func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{clock: m, at: m.now.Add(d), seq: m.seq, fn: f}
	m.timers = append(m.timers, t)
	return t
}

// Advance moves the clock forward by d, firing every timer that becomes due.
func (m *Manual) Advance(d time.Duration) {
	m.Set(m.Now().Add(d))
}

// Set moves the clock to t, firing every timer due at or before t.
// Timers scheduled by a firing callback are honoured if they also fall due before t.
func (m *Manual) Set(t time.Time) {
	for {
		m.mu.Lock()
		next := m.nextDue(t)
		if next == nil {
			m.now = t
			m.mu.Unlock()
			return
		}
		m.remove(next)
		if next.at.After(m.now) {
			m.now = next.at
		}
		m.mu.Unlock()

		next.fn()
	}
}

// Pending returns the number of timers that have not fired or been stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

func (m *Manual) nextDue(t time.Time) *manualTimer {
	if len(m.timers) == 0 {
		return nil
	}
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].at.Equal(m.timers[j].at) {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].at.Before(m.timers[j].at)
	})
	if m.timers[0].at.After(t) {
		return nil
	}
	return m.timers[0]
}

func (m *Manual) remove(t *manualTimer) bool {
	for i, candidate := range m.timers {
		if candidate == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return true
		}
	}
	return false
}

type manualTimer struct {
	clock *Manual
	at    time.Time
	seq   int
	fn    func()
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	return t.clock.remove(t)
}
