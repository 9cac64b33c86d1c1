package jobmodel

import "time"

// Counter is a rolling tally over four windows: the current hour, the
// current day, the current month, and all time. Each window lazily rolls
// over to zero the first time it is touched after its period has elapsed,
// rather than via a background ticker. HourStart/DayStart/MonthStart are
// exported (rather than kept as package-private state) so every codec
// (JSON/YAML/XML) carries them across a save/load round-trip — a storage
// backend that persists Counter by value must persist the anchors too, or
// every reload looks like the windows have never been touched and
// rollover() re-zeroes them on the very first Incr after reload.
type Counter struct {
	ThisHour  uint64 `json:"this_hour"`
	Today     uint64 `json:"today"`
	ThisMonth uint64 `json:"this_month"`
	AllTime   uint64 `json:"all_time"`

	HourStart  time.Time `json:"hour_start"`
	DayStart   time.Time `json:"day_start"`
	MonthStart time.Time `json:"month_start"`
}

// newCounter returns a zeroed Counter with its windows anchored at now.
func newCounter(now time.Time) Counter {
	return Counter{
		HourStart:  truncateHour(now),
		DayStart:   truncateDay(now),
		MonthStart: truncateMonth(now),
	}
}

func truncateHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func truncateMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// rollover zeroes any window whose period has elapsed as of now.
func (c *Counter) rollover(now time.Time) {
	if c.HourStart.IsZero() {
		start := *c
		*c = newCounter(now)
		c.AllTime = start.AllTime
		return
	}
	if !truncateHour(now).Equal(c.HourStart) {
		c.ThisHour = 0
		c.HourStart = truncateHour(now)
	}
	if !truncateDay(now).Equal(c.DayStart) {
		c.Today = 0
		c.DayStart = truncateDay(now)
	}
	if !truncateMonth(now).Equal(c.MonthStart) {
		c.ThisMonth = 0
		c.MonthStart = truncateMonth(now)
	}
}

// Incr rolls over stale windows as of now, then adds 1 to every window.
// AllTime never rolls over and only grows.
func (c *Counter) Incr(now time.Time) {
	c.rollover(now)
	c.ThisHour++
	c.Today++
	c.ThisMonth++
	c.AllTime++
}

// Stats is the aggregate bookkeeping tracked by a storage backend: gauges
// for jobs currently pending and running, and rolling counters for jobs
// that have left the system terminally.
type Stats struct {
	// Pending and Running are saturating gauges: decrements below zero are
	// no-ops, never underflow, per the stats invariant that they are never
	// negative.
	Pending  uint64  `json:"pending"`
	Running  uint64  `json:"running"`
	Dead     Counter `json:"dead"`
	Complete Counter `json:"complete"`
}

// NewStats returns a zeroed Stats with its counters anchored at now.
func NewStats(now time.Time) Stats {
	return Stats{
		Dead:     newCounter(now),
		Complete: newCounter(now),
	}
}

// IncrPending bumps the pending gauge by 1.
func (s *Stats) IncrPending() {
	s.Pending++
}

// DecrPending drops the pending gauge by 1, saturating at zero.
func (s *Stats) DecrPending() {
	if s.Pending > 0 {
		s.Pending--
	}
}

// IncrRunning bumps the running gauge by 1.
func (s *Stats) IncrRunning() {
	s.Running++
}

// DecrRunning drops the running gauge by 1, saturating at zero.
func (s *Stats) DecrRunning() {
	if s.Running > 0 {
		s.Running--
	}
}
