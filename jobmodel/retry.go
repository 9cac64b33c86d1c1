package jobmodel

import "math"

// MaxRetries is the retry budget for a job: either unlimited, or a fixed
// count of allowed retries after the first attempt.
//
// Count(0) allows exactly one attempt total (the first attempt is not a
// retry); the first failure is terminal. Count(n) allows n further attempts
// after the first, i.e. n+1 attempts total. This resolves the ambiguity
// spec.md §9 flags about whether retry_count is compared before or after
// incrementing: comparison happens after incrementing, against n.
// MaxRetries's fields are exported so it round-trips through every codec
// (JSON, YAML, XML) as an ordinary struct, the way Backoff's Kind/Param
// pair does.
type MaxRetries struct {
	IsInfinite bool   `json:"is_infinite" yaml:"is_infinite" xml:"is_infinite"`
	N          uint32 `json:"n" yaml:"n" xml:"n"`
}

// Infinite returns a MaxRetries policy that never exhausts.
func Infinite() MaxRetries {
	return MaxRetries{IsInfinite: true}
}

// Count returns a MaxRetries policy allowing n retries after the first
// attempt (n+1 attempts total).
func Count(n uint32) MaxRetries {
	return MaxRetries{N: n}
}

// Allows reports whether another attempt is permitted given the retry
// count observed *after* incrementing for the failed attempt just taken.
func (m MaxRetries) Allows(retryCount uint32) bool {
	if m.IsInfinite {
		return true
	}
	return retryCount <= m.N
}

// Infinite reports whether the policy is unlimited.
func (m MaxRetries) Infinite() bool {
	return m.IsInfinite
}

// Limit returns the configured n for a Count policy, or math.MaxUint32 for
// an Infinite policy.
func (m MaxRetries) Limit() uint32 {
	if m.IsInfinite {
		return math.MaxUint32
	}
	return m.N
}
