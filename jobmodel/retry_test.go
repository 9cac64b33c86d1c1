package jobmodel

import "testing"

func TestMaxRetries_CountAllowsNPlusOneAttempts(t *testing.T) {
	m := Count(2)

	// retryCount is compared after incrementing for the failed attempt.
	// Count(2) permits retryCount 1 and 2 (two retries, three attempts
	// total); retryCount 3 is the point a third retry would be denied.
	for retryCount := uint32(1); retryCount <= 2; retryCount++ {
		if !m.Allows(retryCount) {
			t.Fatalf("Count(2).Allows(%d) = false, want true", retryCount)
		}
	}
	if m.Allows(3) {
		t.Fatal("Count(2).Allows(3) = true, want false")
	}
}

func TestMaxRetries_CountZeroIsOneAttemptTotal(t *testing.T) {
	m := Count(0)
	if m.Allows(1) {
		t.Fatal("Count(0).Allows(1) = true, want false: one attempt total, first failure is terminal")
	}
}

func TestMaxRetries_InfiniteAlwaysAllows(t *testing.T) {
	m := Infinite()
	if !m.Allows(1_000_000) {
		t.Fatal("Infinite().Allows(1_000_000) = false, want true")
	}
	if !m.Infinite() {
		t.Fatal("Infinite().Infinite() = false, want true")
	}
}
