package timer

import (
	"testing"
	"time"

	"github.com/yourusername/shopsync/pkg/clock"
)

func TestSlotReschedule(t *testing.T) {
	c := clock.NewManual(time.Unix(0, 0))
	s := NewSlot(c)
	calls := 0

	s.Schedule(500*time.Millisecond, func() { calls++ })
	c.Advance(300 * time.Millisecond)
	s.Schedule(500*time.Millisecond, func() { calls += 10 })
	c.Advance(300 * time.Millisecond)

	if calls != 0 {
		t.Fatalf("Expected no calls yet, got %d", calls)
	}
	c.Advance(200 * time.Millisecond)
	if calls != 10 {
		t.Fatalf("Expected only the replacement callback, got %d", calls)
	}
	if s.Pending() {
		t.Error("Slot should be empty after firing")
	}
}

func TestSlotClose(t *testing.T) {
	c := clock.NewManual(time.Unix(0, 0))
	s := NewSlot(c)
	fired := false

	s.Schedule(time.Second, func() { fired = true })
	s.Close()
	c.Advance(2 * time.Second)
	if fired {
		t.Error("Callback fired after Close")
	}
	if s.Schedule(time.Second, func() { fired = true }) {
		t.Error("Schedule should be rejected after Close")
	}
	c.Advance(2 * time.Second)
	if fired {
		t.Error("Callback scheduled after Close fired")
	}
}

func TestSlotStop(t *testing.T) {
	c := clock.NewManual(time.Unix(0, 0))
	s := NewSlot(c)
	fired := false

	s.Schedule(time.Second, func() { fired = true })
	if !s.Pending() {
		t.Fatal("Expected a pending callback")
	}
	s.Stop()
	c.Advance(time.Minute)
	if fired {
		t.Error("Stopped callback fired")
	}
	if !s.Schedule(time.Second, func() { fired = true }) {
		t.Fatal("Schedule after Stop should be accepted")
	}
	c.Advance(time.Second)
	if !fired {
		t.Error("Expected callback to fire after rescheduling")
	}
}
