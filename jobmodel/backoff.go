package jobmodel

import (
	"math"
	"time"
)

// BackoffStrategy computes the delay before the next dispatch attempt after
// a failed attempt, given the retry count observed after incrementing.
type BackoffStrategy interface {
	// Next returns the delay to wait before the job becomes ready again.
	Next(retryCount uint32) time.Duration
	// Kind identifies the strategy for serialization.
	Kind() string
	// Param returns the strategy's single numeric parameter (seconds for
	// Linear, base for Exponential) for serialization.
	Param() float64
}

// linearBackoff retries after a fixed delay regardless of retry count.
type linearBackoff struct {
	secs float64
}

// Linear returns a BackoffStrategy that always waits d before the next
// attempt.
func Linear(d time.Duration) BackoffStrategy {
	return linearBackoff{secs: d.Seconds()}
}

func (l linearBackoff) Next(uint32) time.Duration {
	return time.Duration(l.secs * float64(time.Second))
}

func (l linearBackoff) Kind() string   { return "linear" }
func (l linearBackoff) Param() float64 { return l.secs }

// exponentialBackoff waits base^retryCount seconds before the next attempt.
type exponentialBackoff struct {
	base float64
}

// Exponential returns a BackoffStrategy that waits base^retryCount seconds
// before the next attempt.
func Exponential(base float64) BackoffStrategy {
	return exponentialBackoff{base: base}
}

func (e exponentialBackoff) Next(retryCount uint32) time.Duration {
	secs := math.Pow(e.base, float64(retryCount))
	return time.Duration(secs * float64(time.Second))
}

func (e exponentialBackoff) Kind() string   { return "exponential" }
func (e exponentialBackoff) Param() float64 { return e.base }

// NewBackoff reconstructs a BackoffStrategy from its serialized kind/param,
// used by storage backends when rehydrating a JobInfo.
func NewBackoff(kind string, param float64) BackoffStrategy {
	if kind == "exponential" {
		return Exponential(param)
	}
	return Linear(time.Duration(param * float64(time.Second)))
}
