package jobserver

import (
	"context"
	"strconv"
	"sync/atomic"

	"oss.nandlabs.io/jobforge/jobmodel"
	"oss.nandlabs.io/jobforge/jobstorage"
	"oss.nandlabs.io/jobforge/lifecycle"
)

// Pool replicates N Threads over one shared storage handle (spec's
// "Replication"): each Thread has its own mailbox and parked-worker cache,
// but correctness rests on storage.FetchJobFromQueue's atomicity, not on
// anything the Pool coordinates. Pool is itself a lifecycle.Component so a
// Handle can depend its workers and pinger on the pool via AddDependency.
type Pool struct {
	*lifecycle.SimpleComponent

	threads []*Thread
	next    atomic.Uint64
	manager lifecycle.ComponentManager
}

// NewPool builds n Thread replicas over storage, all registered with a
// lifecycle.ComponentManager so Start/Stop fan out together.
func NewPool(storage jobstorage.Storage, n int) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{
		threads: make([]*Thread, n),
		manager: lifecycle.NewSimpleComponentManager(),
	}
	for i := 0; i < n; i++ {
		t := NewThread("jobserver-thread-"+strconv.Itoa(i), storage)
		p.threads[i] = t
		p.manager.Register(t)
	}
	p.SimpleComponent = &lifecycle.SimpleComponent{
		CompId:    "jobserver-pool",
		StartFunc: p.startAll,
		StopFunc:  p.stopAll,
	}
	return p
}

func (p *Pool) startAll() error {
	return p.manager.StartAll()
}

func (p *Pool) stopAll() error {
	return p.manager.StopAll()
}

// Route picks a Thread using round-robin; spec.md explicitly allows any
// load-agnostic routing strategy since storage atomicity is the only
// serialization point that matters.
func (p *Pool) Route() *Thread {
	idx := p.next.Add(1) - 1
	return p.threads[idx%uint64(len(p.threads))]
}

// Threads returns every replica, e.g. for the pinger's per-thread CheckDb
// fan-out.
func (p *Pool) Threads() []*Thread {
	return p.threads
}

// NewJob routes to one thread and waits for its reply.
func (p *Pool) NewJob(ctx context.Context, info jobmodel.NewJobInfo) (jobmodel.JobInfo, error) {
	return p.Route().NewJob(ctx, info)
}

// GetStats routes to one thread; every thread reads through the same
// shared storage, so any one of them answers identically.
func (p *Pool) GetStats(ctx context.Context) (jobmodel.Stats, error) {
	return p.Route().GetStats(ctx)
}

// CheckDb fans a CheckDb message out to every thread, matching spec.md
// §4.5: "the pinger sends N CheckDb messages per tick, one per server
// thread".
func (p *Pool) CheckDb() {
	for _, t := range p.threads {
		t.CheckDb()
	}
}
