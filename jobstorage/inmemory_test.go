package jobstorage

import (
	"context"
	"testing"
	"time"

	"oss.nandlabs.io/jobforge/jobmodel"
)

func TestInMemoryStorage_GenerateID_IsUnique(t *testing.T) {
	s := NewInMemoryStorage()
	ctx := context.Background()

	seen := make(map[uint64]bool)
	for i := 0; i < 100; i++ {
		id, err := s.GenerateID(ctx)
		if err != nil {
			t.Fatalf("GenerateID error: %v", err)
		}
		if seen[id] {
			t.Fatalf("GenerateID returned duplicate id %d", id)
		}
		seen[id] = true
	}
}

func TestInMemoryStorage_SaveAndFetchJob(t *testing.T) {
	s := NewInMemoryStorage()
	ctx := context.Background()

	job := jobmodel.JobInfo{Id: 1, Processor: "p", Queue: "default", Status: jobmodel.Pending}
	if err := s.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob error: %v", err)
	}

	got, err := s.FetchJob(ctx, 1)
	if err != nil {
		t.Fatalf("FetchJob error: %v", err)
	}
	if got.Processor != "p" || got.Queue != "default" {
		t.Fatalf("got %+v, want matching processor/queue", got)
	}
}

func TestInMemoryStorage_FetchJob_NotFound(t *testing.T) {
	s := NewInMemoryStorage()
	if _, err := s.FetchJob(context.Background(), 999); err != ErrJobNotFound {
		t.Fatalf("err = %v, want ErrJobNotFound", err)
	}
}

func TestInMemoryStorage_FetchJobFromQueue_AtomicAndReadyOnly(t *testing.T) {
	s := NewInMemoryStorage()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)

	ready := jobmodel.JobInfo{Id: 1, Queue: "q", Status: jobmodel.Pending}
	notReady := jobmodel.JobInfo{Id: 2, Queue: "q", Status: jobmodel.Pending, NextQueue: &future}

	for _, j := range []jobmodel.JobInfo{ready, notReady} {
		if err := s.SaveJob(ctx, j); err != nil {
			t.Fatalf("SaveJob error: %v", err)
		}
		if err := s.QueueJob(ctx, "q", j.Id); err != nil {
			t.Fatalf("QueueJob error: %v", err)
		}
	}

	got, err := s.FetchJobFromQueue(ctx, "q", now)
	if err != nil {
		t.Fatalf("FetchJobFromQueue error: %v", err)
	}
	if got.Id != 1 {
		t.Fatalf("got job %d, want the ready job (1)", got.Id)
	}

	// The not-ready job is still queued; the ready job is gone.
	if _, err := s.FetchJobFromQueue(ctx, "q", now); err != ErrQueueEmpty {
		t.Fatalf("err = %v, want ErrQueueEmpty (only the not-ready job remains)", err)
	}
}

func TestInMemoryStorage_RunJob_BijectionOnRunnerID(t *testing.T) {
	s := NewInMemoryStorage()
	ctx := context.Background()

	if err := s.SaveJob(ctx, jobmodel.JobInfo{Id: 1}); err != nil {
		t.Fatalf("SaveJob error: %v", err)
	}
	if err := s.SaveJob(ctx, jobmodel.JobInfo{Id: 2}); err != nil {
		t.Fatalf("SaveJob error: %v", err)
	}

	if err := s.RunJob(ctx, 1, 1001); err != nil {
		t.Fatalf("RunJob error: %v", err)
	}
	// Re-binding the same runner to job 2 must release job 1's binding.
	if err := s.RunJob(ctx, 2, 1001); err != nil {
		t.Fatalf("RunJob error: %v", err)
	}

	if s.running[1] == 1001 {
		t.Fatal("job 1 still bound to runner 1001 after it was rebound to job 2")
	}
	if s.running[2] != 1001 {
		t.Fatal("job 2 not bound to runner 1001")
	}
}

func TestInMemoryStorage_QueueJob_ClearsRunnerBinding(t *testing.T) {
	s := NewInMemoryStorage()
	ctx := context.Background()

	if err := s.SaveJob(ctx, jobmodel.JobInfo{Id: 1}); err != nil {
		t.Fatalf("SaveJob error: %v", err)
	}
	if err := s.RunJob(ctx, 1, 1001); err != nil {
		t.Fatalf("RunJob error: %v", err)
	}
	if err := s.QueueJob(ctx, "q", 1); err != nil {
		t.Fatalf("QueueJob error: %v", err)
	}

	if _, stillRunning := s.running[1]; stillRunning {
		t.Fatal("job still has a runner binding after being re-queued")
	}
}

func TestInMemoryStorage_DeleteJob_RemovesAllBindings(t *testing.T) {
	s := NewInMemoryStorage()
	ctx := context.Background()

	if err := s.SaveJob(ctx, jobmodel.JobInfo{Id: 1, Queue: "q"}); err != nil {
		t.Fatalf("SaveJob error: %v", err)
	}
	if err := s.QueueJob(ctx, "q", 1); err != nil {
		t.Fatalf("QueueJob error: %v", err)
	}
	if err := s.DeleteJob(ctx, 1); err != nil {
		t.Fatalf("DeleteJob error: %v", err)
	}

	if _, err := s.FetchJob(ctx, 1); err != ErrJobNotFound {
		t.Fatalf("err = %v, want ErrJobNotFound after delete", err)
	}
	if _, err := s.FetchJobFromQueue(ctx, "q", time.Now()); err != ErrQueueEmpty {
		t.Fatalf("err = %v, want ErrQueueEmpty: deleted job must not remain queued", err)
	}
}

func TestInMemoryStorage_UpdateStats(t *testing.T) {
	s := NewInMemoryStorage()
	ctx := context.Background()

	if err := s.UpdateStats(ctx, func(st *jobmodel.Stats) { st.IncrPending() }); err != nil {
		t.Fatalf("UpdateStats error: %v", err)
	}

	stats, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats error: %v", err)
	}
	if stats.Pending != 1 {
		t.Fatalf("Pending = %d, want 1", stats.Pending)
	}
}
