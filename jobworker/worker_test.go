package jobworker

import (
	"encoding/json"
	"testing"
	"time"

	"oss.nandlabs.io/jobforge/jobmodel"
	"oss.nandlabs.io/jobforge/jobregistry"
)

type noopArgs struct{}
type noopState struct{}
type noopProcessor struct{}

func (noopProcessor) Name() string                    { return "noop" }
func (noopProcessor) Queue() string                   { return "default" }
func (noopProcessor) MaxRetries() jobmodel.MaxRetries   { return jobmodel.Count(1) }
func (noopProcessor) Backoff() jobmodel.BackoffStrategy { return jobmodel.Linear(time.Second) }
func (noopProcessor) Process(noopArgs, *noopState) error { return nil }

type fakeDispatcher struct {
	requested  chan WorkerRef
	returned   chan jobmodel.ReturnJobInfo
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{
		requested: make(chan WorkerRef, 8),
		returned:  make(chan jobmodel.ReturnJobInfo, 8),
	}
}

func (f *fakeDispatcher) RequestJob(ref WorkerRef)               { f.requested <- ref }
func (f *fakeDispatcher) ReturningJob(ret jobmodel.ReturnJobInfo) { f.returned <- ret }

func TestWorker_RequestsOnStart(t *testing.T) {
	reg, _ := jobregistry.NewRegistry()
	defer reg.Close()
	jobregistry.Register[noopArgs, *noopState](reg, noopProcessor{})

	disp := newFakeDispatcher()
	w := New(1001, "default", disp, reg, func() interface{} { return &noopState{} })
	if err := w.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer w.Stop()

	select {
	case ref := <-disp.requested:
		if ref.RunnerID != 1001 || ref.Queue != "default" {
			t.Fatalf("unexpected ref: %+v", ref)
		}
	case <-time.After(time.Second):
		t.Fatal("worker did not RequestJob on start")
	}
}

func TestWorker_ProcessesJobThenRerequests(t *testing.T) {
	reg, _ := jobregistry.NewRegistry()
	defer reg.Close()
	jobregistry.Register[noopArgs, *noopState](reg, noopProcessor{})

	disp := newFakeDispatcher()
	w := New(1001, "default", disp, reg, func() interface{} { return &noopState{} })
	if err := w.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer w.Stop()

	var ref WorkerRef
	select {
	case ref = <-disp.requested:
	case <-time.After(time.Second):
		t.Fatal("no initial RequestJob")
	}

	ref.Inbox <- ProcessJob{Job: jobmodel.JobInfo{Id: 7, Processor: "noop", Args: json.RawMessage(`{}`)}}

	select {
	case ret := <-disp.returned:
		if ret.Id != 7 || ret.Outcome != jobmodel.Success {
			t.Fatalf("unexpected ReturnJobInfo: %+v", ret)
		}
	case <-time.After(time.Second):
		t.Fatal("worker did not ReturningJob after processing")
	}

	select {
	case <-disp.requested:
	case <-time.After(time.Second):
		t.Fatal("worker did not re-RequestJob after ReturningJob")
	}
}
