package jobmodel

import (
	"testing"
	"time"
)

func TestCounter_IncrBumpsAllWindows(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 30, 0, 0, time.UTC)
	var c Counter
	c.Incr(now)
	c.Incr(now)

	if c.ThisHour != 2 || c.Today != 2 || c.ThisMonth != 2 || c.AllTime != 2 {
		t.Fatalf("got %+v, want all windows = 2", c)
	}
}

func TestCounter_RollsOverHourButNotAllTime(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 10, 30, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour) // crosses into the 11:00 bucket

	var c Counter
	c.Incr(t0)
	c.Incr(t0)
	c.Incr(t1)

	if c.ThisHour != 1 {
		t.Fatalf("ThisHour = %d, want 1 after crossing the hour boundary", c.ThisHour)
	}
	if c.Today != 3 {
		t.Fatalf("Today = %d, want 3, same day", c.Today)
	}
	if c.AllTime != 3 {
		t.Fatalf("AllTime = %d, want 3, never rolls over", c.AllTime)
	}
}

func TestCounter_RollsOverDayAndMonth(t *testing.T) {
	t0 := time.Date(2026, 1, 31, 23, 59, 0, 0, time.UTC)
	t1 := time.Date(2026, 2, 1, 0, 1, 0, 0, time.UTC)

	var c Counter
	c.Incr(t0)
	c.Incr(t1)

	if c.Today != 1 {
		t.Fatalf("Today = %d, want 1 after crossing midnight", c.Today)
	}
	if c.ThisMonth != 1 {
		t.Fatalf("ThisMonth = %d, want 1 after crossing into February", c.ThisMonth)
	}
	if c.AllTime != 2 {
		t.Fatalf("AllTime = %d, want 2", c.AllTime)
	}
}

func TestStats_PendingRunningSaturateAtZero(t *testing.T) {
	var s Stats
	s.DecrPending()
	s.DecrRunning()

	if s.Pending != 0 || s.Running != 0 {
		t.Fatalf("got Pending=%d Running=%d, want both 0 after decrementing from zero", s.Pending, s.Running)
	}

	s.IncrPending()
	s.IncrPending()
	s.DecrPending()
	if s.Pending != 1 {
		t.Fatalf("Pending = %d, want 1", s.Pending)
	}
}
