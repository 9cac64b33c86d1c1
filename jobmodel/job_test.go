package jobmodel

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewJobInfo_ToJobInfo_IsPendingWithZeroRetries(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n := NewJobInfo{
		Processor:  "send_email",
		Queue:      "default",
		Args:       json.RawMessage(`{"to":"a@example.com"}`),
		MaxRetries: Count(3),
		Backoff:    Linear(time.Second),
	}

	job := n.ToJobInfo(42, now)

	if job.Id != 42 {
		t.Fatalf("Id = %d, want 42", job.Id)
	}
	if job.Status != Pending {
		t.Fatalf("Status = %v, want Pending", job.Status)
	}
	if job.RetryCount != 0 {
		t.Fatalf("RetryCount = %d, want 0", job.RetryCount)
	}
	if job.Processor != n.Processor || job.Queue != n.Queue {
		t.Fatal("Processor/Queue not carried over from NewJobInfo")
	}
	if string(job.Args) != string(n.Args) {
		t.Fatal("Args not carried over from NewJobInfo")
	}
}

func TestJobInfo_Ready(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	cases := []struct {
		name string
		job  JobInfo
		want bool
	}{
		{"pending, no schedule", JobInfo{Status: Pending}, true},
		{"pending, future schedule", JobInfo{Status: Pending, NextQueue: &future}, false},
		{"pending, past schedule", JobInfo{Status: Pending, NextQueue: &past}, true},
		{"running", JobInfo{Status: Running}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.job.Ready(now); got != c.want {
				t.Fatalf("Ready() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestJobInfo_Retry_AdvancesRetryCountAndSchedule(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	job := JobInfo{
		Id:         1,
		Status:     Running,
		RetryCount: 1,
		MaxRetries: Count(5),
		Backoff:    Exponential(2),
	}

	retried := job.Retry(now)

	if retried.RetryCount != 2 {
		t.Fatalf("RetryCount = %d, want 2", retried.RetryCount)
	}
	if retried.Status != Pending {
		t.Fatalf("Status = %v, want Pending", retried.Status)
	}
	if retried.NextQueue == nil {
		t.Fatal("NextQueue not set after Retry")
	}
	wantAt := now.Add(4 * time.Second)
	if !retried.NextQueue.Equal(wantAt) {
		t.Fatalf("NextQueue = %v, want %v", *retried.NextQueue, wantAt)
	}
	if !retried.NeedsRetry(retried.RetryCount) {
		t.Fatal("NeedsRetry = false immediately after a permitted retry, want true")
	}
}

func TestJobInfo_MarshalUnmarshalJSON_RoundTripsBackoff(t *testing.T) {
	job := JobInfo{
		Id:         7,
		Processor:  "p",
		Queue:      "q",
		Status:     Pending,
		MaxRetries: Count(2),
		Backoff:    Exponential(3),
		UpdatedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var got JobInfo
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if got.Backoff == nil {
		t.Fatal("Backoff not rehydrated after round trip")
	}
	if got.Backoff.Next(1) != job.Backoff.Next(1) {
		t.Fatal("rehydrated Backoff disagrees with original")
	}
}
