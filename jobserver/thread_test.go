package jobserver

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"oss.nandlabs.io/jobforge/jobmodel"
	"oss.nandlabs.io/jobforge/jobstorage"
	"oss.nandlabs.io/jobforge/jobworker"
)

func TestThread_NewJob_DispatchesToParkedWorker(t *testing.T) {
	storage := jobstorage.NewInMemoryStorage()
	thread := NewThread("t1", storage)
	if err := thread.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer thread.Stop()

	inbox := make(chan jobworker.ProcessJob, 1)
	ref := jobworker.WorkerRef{RunnerID: 1001, Queue: "default", Inbox: inbox}
	thread.RequestJob(ref)
	// give the mailbox goroutine a chance to park the worker
	time.Sleep(20 * time.Millisecond)

	ctx := context.Background()
	job, err := thread.NewJob(ctx, jobmodel.NewJobInfo{
		Processor: "p",
		Queue:     "default",
		Args:      json.RawMessage(`{}`),
	})
	if err != nil {
		t.Fatalf("NewJob error: %v", err)
	}

	select {
	case msg := <-inbox:
		if msg.Job.Id != job.Id {
			t.Fatalf("dispatched job id = %d, want %d", msg.Job.Id, job.Id)
		}
	case <-time.After(time.Second):
		t.Fatal("NewJob did not dispatch to the parked worker")
	}
}

func TestThread_RequestJob_ParksWhenEmpty(t *testing.T) {
	storage := jobstorage.NewInMemoryStorage()
	thread := NewThread("t1", storage)
	if err := thread.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer thread.Stop()

	inbox := make(chan jobworker.ProcessJob, 1)
	ref := jobworker.WorkerRef{RunnerID: 1001, Queue: "default", Inbox: inbox}
	thread.RequestJob(ref)

	select {
	case <-inbox:
		t.Fatal("worker received a job from an empty queue")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestThread_CheckDb_WakesParkedWorkerForScheduledJob(t *testing.T) {
	storage := jobstorage.NewInMemoryStorage()
	thread := NewThread("t1", storage)
	if err := thread.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer thread.Stop()

	inbox := make(chan jobworker.ProcessJob, 1)
	ref := jobworker.WorkerRef{RunnerID: 1001, Queue: "default", Inbox: inbox}
	thread.RequestJob(ref)
	time.Sleep(20 * time.Millisecond)

	ctx := context.Background()
	past := time.Now().Add(-time.Minute)
	id, err := storage.GenerateID(ctx)
	if err != nil {
		t.Fatalf("GenerateID error: %v", err)
	}
	job := jobmodel.JobInfo{Id: id, Queue: "default", Status: jobmodel.Pending, NextQueue: &past}
	if err := storage.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob error: %v", err)
	}
	if err := storage.QueueJob(ctx, "default", id); err != nil {
		t.Fatalf("QueueJob error: %v", err)
	}

	thread.CheckDb()

	select {
	case msg := <-inbox:
		if msg.Job.Id != id {
			t.Fatalf("dispatched job id = %d, want %d", msg.Job.Id, id)
		}
	case <-time.After(time.Second):
		t.Fatal("CheckDb did not wake the parked worker")
	}
}

func TestThread_GetStats_ReadsThroughToStorage(t *testing.T) {
	storage := jobstorage.NewInMemoryStorage()
	thread := NewThread("t1", storage)
	if err := thread.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer thread.Stop()

	ctx := context.Background()
	if err := storage.UpdateStats(ctx, func(s *jobmodel.Stats) { s.IncrPending() }); err != nil {
		t.Fatalf("UpdateStats error: %v", err)
	}

	stats, err := thread.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats error: %v", err)
	}
	if stats.Pending != 1 {
		t.Fatalf("Pending = %d, want 1", stats.Pending)
	}
}
