package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManualFiresInDeadlineOrder(t *testing.T) {
	c := NewManual(epoch)
	var fired []string

	c.AfterFunc(300*time.Millisecond, func() { fired = append(fired, "c") })
	c.AfterFunc(100*time.Millisecond, func() { fired = append(fired, "a") })
	c.AfterFunc(200*time.Millisecond, func() { fired = append(fired, "b") })

	c.Advance(150 * time.Millisecond)
	if len(fired) != 1 || fired[0] != "a" {
		t.Fatalf("Expected only a to fire, got %v", fired)
	}

	c.Advance(time.Second)
	if len(fired) != 3 || fired[1] != "b" || fired[2] != "c" {
		t.Fatalf("Expected a,b,c, got %v", fired)
	}
	if !c.Now().Equal(epoch.Add(1150 * time.Millisecond)) {
		t.Errorf("Unexpected clock time %v", c.Now())
	}
}

func TestManualStop(t *testing.T) {
	c := NewManual(epoch)
	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Fatal("Stop() on a pending timer should return true")
	}
	if timer.Stop() {
		t.Error("Stop() on a stopped timer should return false")
	}
	c.Advance(2 * time.Second)
	if fired {
		t.Error("Stopped timer fired")
	}
	if c.Pending() != 0 {
		t.Errorf("Expected no pending timers, got %d", c.Pending())
	}
}

func TestManualTimerScheduledFromCallback(t *testing.T) {
	c := NewManual(epoch)
	var at []time.Duration

	c.AfterFunc(100*time.Millisecond, func() {
		at = append(at, c.Now().Sub(epoch))
		c.AfterFunc(100*time.Millisecond, func() {
			at = append(at, c.Now().Sub(epoch))
		})
	})

	c.Advance(250 * time.Millisecond)
	if len(at) != 2 || at[0] != 100*time.Millisecond || at[1] != 200*time.Millisecond {
		t.Fatalf("Unexpected firing times %v", at)
	}
}

func TestNowMillis(t *testing.T) {
	c := NewManual(epoch)
	if NowMillis(c) != epoch.UnixMilli() {
		t.Errorf("NowMillis() = %d, want %d", NowMillis(c), epoch.UnixMilli())
	}
}
