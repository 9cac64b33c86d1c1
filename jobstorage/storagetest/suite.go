// Package storagetest is a backend-agnostic conformance suite: any
// jobstorage.Storage constructor can be run against it to confirm it honors
// the contract jobstorage.Storage documents, the way chrono/file_storage_test.go
// re-runs the same assertions for every codec it supports.
package storagetest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"oss.nandlabs.io/jobforge/jobmodel"
	"oss.nandlabs.io/jobforge/jobstorage"
)

// Run exercises newStorage() against the full NewJob/RequestJob/ReturnJob
// lifecycle plus the primitive Storage methods directly. newStorage is
// called once per subtest, so every subtest starts from a fresh backend.
func Run(t *testing.T, newStorage func(t *testing.T) jobstorage.Storage) {
	t.Run("NewJob_QueuesAndIncrementsPending", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		now := time.Now()

		job, err := jobstorage.NewJob(ctx, s, jobmodel.NewJobInfo{
			Processor:  "echo",
			Queue:      "default",
			Args:       json.RawMessage(`{}`),
			MaxRetries: jobmodel.Count(2),
		}, now)
		if err != nil {
			t.Fatalf("NewJob: %v", err)
		}
		if job.Status != jobmodel.Pending {
			t.Fatalf("Status = %v, want Pending", job.Status)
		}

		stats, err := s.GetStats(ctx)
		if err != nil {
			t.Fatalf("GetStats: %v", err)
		}
		if stats.Pending != 1 {
			t.Fatalf("Pending = %d, want 1", stats.Pending)
		}
	})

	t.Run("RequestJob_BindsToRunnerAndClearsQueue", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		now := time.Now()

		job, err := jobstorage.NewJob(ctx, s, jobmodel.NewJobInfo{
			Processor: "echo", Queue: "default", Args: json.RawMessage(`{}`),
		}, now)
		if err != nil {
			t.Fatalf("NewJob: %v", err)
		}

		run, err := jobstorage.RequestJob(ctx, s, "default", 1001, now)
		if err != nil {
			t.Fatalf("RequestJob: %v", err)
		}
		if run.Id != job.Id || run.Status != jobmodel.Running {
			t.Fatalf("RequestJob returned %+v, want id %d Running", run, job.Id)
		}

		if _, err := s.FetchJobFromQueue(ctx, "default", now); err != jobstorage.ErrQueueEmpty {
			t.Fatalf("FetchJobFromQueue after RequestJob err = %v, want ErrQueueEmpty", err)
		}
	})

	t.Run("ReturnJob_SuccessDeletesAndCompletes", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		now := time.Now()

		job, _ := jobstorage.NewJob(ctx, s, jobmodel.NewJobInfo{
			Processor: "echo", Queue: "default", Args: json.RawMessage(`{}`),
		}, now)
		if _, err := jobstorage.RequestJob(ctx, s, "default", 1001, now); err != nil {
			t.Fatalf("RequestJob: %v", err)
		}
		if err := jobstorage.ReturnJob(ctx, s, jobmodel.ReturnJobInfo{Id: job.Id, Outcome: jobmodel.Success}, now); err != nil {
			t.Fatalf("ReturnJob: %v", err)
		}
		if _, err := s.FetchJob(ctx, job.Id); err != jobstorage.ErrJobNotFound {
			t.Fatalf("FetchJob after success err = %v, want ErrJobNotFound", err)
		}
	})

	t.Run("ReturnJob_FailureRetriesUntilExhausted", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		now := time.Now()

		job, _ := jobstorage.NewJob(ctx, s, jobmodel.NewJobInfo{
			Processor: "echo", Queue: "default", Args: json.RawMessage(`{}`),
			MaxRetries: jobmodel.Count(1),
		}, now)

		if _, err := jobstorage.RequestJob(ctx, s, "default", 1001, now); err != nil {
			t.Fatalf("RequestJob 1: %v", err)
		}
		if err := jobstorage.ReturnJob(ctx, s, jobmodel.ReturnJobInfo{Id: job.Id, Outcome: jobmodel.Failure}, now); err != nil {
			t.Fatalf("ReturnJob 1: %v", err)
		}
		retried, err := s.FetchJob(ctx, job.Id)
		if err != nil {
			t.Fatalf("FetchJob after first failure: %v", err)
		}
		if retried.Status != jobmodel.Pending || retried.RetryCount != 1 {
			t.Fatalf("after 1st failure: status=%v retryCount=%d, want Pending/1", retried.Status, retried.RetryCount)
		}

		if _, err := jobstorage.RequestJob(ctx, s, "default", 1002, now); err != nil {
			t.Fatalf("RequestJob 2: %v", err)
		}
		if err := jobstorage.ReturnJob(ctx, s, jobmodel.ReturnJobInfo{Id: job.Id, Outcome: jobmodel.Failure}, now); err != nil {
			t.Fatalf("ReturnJob 2: %v", err)
		}
		if _, err := s.FetchJob(ctx, job.Id); err != jobstorage.ErrJobNotFound {
			t.Fatalf("after retries exhausted, FetchJob err = %v, want ErrJobNotFound", err)
		}
	})

	t.Run("ReturnJob_MissingProcessorRequeues", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		now := time.Now()

		job, _ := jobstorage.NewJob(ctx, s, jobmodel.NewJobInfo{
			Processor: "echo", Queue: "default", Args: json.RawMessage(`{}`),
		}, now)
		if _, err := jobstorage.RequestJob(ctx, s, "default", 1001, now); err != nil {
			t.Fatalf("RequestJob: %v", err)
		}
		if err := jobstorage.ReturnJob(ctx, s, jobmodel.ReturnJobInfo{Id: job.Id, Outcome: jobmodel.MissingProcessor}, now); err != nil {
			t.Fatalf("ReturnJob: %v", err)
		}
		back, err := jobstorage.RequestJob(ctx, s, "default", 1002, now)
		if err != nil {
			t.Fatalf("RequestJob after requeue: %v", err)
		}
		if back.Id != job.Id {
			t.Fatalf("RequestJob after requeue returned id %d, want %d", back.Id, job.Id)
		}
	})

	t.Run("FetchJobFromQueue_HonorsNextQueueSchedule", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		now := time.Now()
		future := now.Add(time.Hour)

		if _, err := jobstorage.NewJob(ctx, s, jobmodel.NewJobInfo{
			Processor: "echo", Queue: "default", Args: json.RawMessage(`{}`), At: &future,
		}, now); err != nil {
			t.Fatalf("NewJob: %v", err)
		}

		if _, err := s.FetchJobFromQueue(ctx, "default", now); err != jobstorage.ErrQueueEmpty {
			t.Fatalf("FetchJobFromQueue before due time err = %v, want ErrQueueEmpty", err)
		}
		if _, err := s.FetchJobFromQueue(ctx, "default", future.Add(time.Second)); err != nil {
			t.Fatalf("FetchJobFromQueue after due time: %v", err)
		}
	})

	t.Run("GenerateID_IsUnique", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		seen := make(map[uint64]bool)
		for i := 0; i < 50; i++ {
			id, err := s.GenerateID(ctx)
			if err != nil {
				t.Fatalf("GenerateID: %v", err)
			}
			if seen[id] {
				t.Fatalf("GenerateID produced duplicate id %d", id)
			}
			seen[id] = true
		}
	})
}
