package jobrecur

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"oss.nandlabs.io/jobforge/jobmodel"
)

type countingEnqueuer struct {
	count atomic.Int64
	fail  bool
}

func (c *countingEnqueuer) NewJob(ctx context.Context, info jobmodel.NewJobInfo) (jobmodel.JobInfo, error) {
	if c.fail {
		return jobmodel.JobInfo{}, errors.New("storage unavailable")
	}
	c.count.Add(1)
	return info.ToJobInfo(uint64(c.count.Load()), time.Now()), nil
}

func TestDriver_EnqueuesImmediatelyOnStart(t *testing.T) {
	enq := &countingEnqueuer{}
	template := jobmodel.NewJobInfo{Processor: "cleanup", Queue: "default", Args: json.RawMessage(`{}`)}
	d := New(enq, template, time.Hour)
	if err := d.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer d.Stop()

	time.Sleep(10 * time.Millisecond)
	if got := enq.count.Load(); got != 1 {
		t.Fatalf("enqueue count = %d, want 1 immediately on start", got)
	}
}

func TestDriver_EnqueuesEveryPeriod(t *testing.T) {
	enq := &countingEnqueuer{}
	template := jobmodel.NewJobInfo{Processor: "cleanup", Queue: "default", Args: json.RawMessage(`{}`)}
	d := New(enq, template, 10*time.Millisecond)
	if err := d.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer d.Stop()

	time.Sleep(55 * time.Millisecond)
	if got := enq.count.Load(); got < 3 {
		t.Fatalf("enqueue count = %d in ~55ms at 10ms period, want at least 3", got)
	}
}

func TestDriver_SwallowsEnqueueFailures(t *testing.T) {
	enq := &countingEnqueuer{fail: true}
	template := jobmodel.NewJobInfo{Processor: "cleanup", Queue: "default", Args: json.RawMessage(`{}`)}
	d := New(enq, template, 10*time.Millisecond)
	if err := d.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer d.Stop()

	time.Sleep(25 * time.Millisecond)
	// nothing to assert beyond: the driver is still alive and did not panic
	// or propagate the error anywhere there is no channel for it.
}
