package clock

import (
	"testing"
	"time"
)

func TestRealClock(t *testing.T) {
	c := &RealClock{}
	before := time.Now()
	got := c.Now()
	if got.Before(before.Add(-time.Second)) {
		t.Error("RealClock.Now returned time in the past")
	}
	if c.Since(before) < 0 {
		t.Error("RealClock.Since returned negative duration")
	}
}

func TestMockClock(t *testing.T) {
	start := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	if !c.Now().Equal(start) {
		t.Errorf("Now = %v, want %v", c.Now(), start)
	}

	c.Advance(90 * time.Minute)
	want := start.Add(90 * time.Minute)
	if !c.Now().Equal(want) {
		t.Errorf("after Advance, Now = %v, want %v", c.Now(), want)
	}

	if got := c.Since(start); got != 90*time.Minute {
		t.Errorf("Since = %v, want 90m", got)
	}

	deadline := want.Add(time.Hour)
	if got := c.Until(deadline); got != time.Hour {
		t.Errorf("Until = %v, want 1h", got)
	}

	c.Set(start)
	if !c.Now().Equal(start) {
		t.Error("Set did not reset the clock")
	}
}
