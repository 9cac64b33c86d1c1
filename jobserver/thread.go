package jobserver

import (
	"context"
	"time"

	"oss.nandlabs.io/jobforge/collections"
	"oss.nandlabs.io/jobforge/jobmodel"
	"oss.nandlabs.io/jobforge/jobstorage"
	"oss.nandlabs.io/jobforge/jobworker"
	"oss.nandlabs.io/jobforge/l3"
	"oss.nandlabs.io/jobforge/lifecycle"
)

var logger = l3.Get()

const mailboxBufSize = 256

// Thread is one replica of the dispatch server: an actor with a single
// mailbox-draining goroutine, single-threaded message handling, and a
// parked-worker cache it alone owns. Correctness across many Threads comes
// entirely from storage atomicity, not from anything a Thread does itself.
type Thread struct {
	*lifecycle.SimpleComponent

	id      string
	storage jobstorage.Storage
	mailbox chan threadMsg
	done    chan struct{}

	// cache holds, per queue, the FIFO of workers currently parked awaiting
	// a job. It is touched only from the mailbox goroutine, so it needs no
	// lock of its own.
	cache map[string]collections.Queue[jobworker.WorkerRef]
}

// NewThread builds a dispatch-server replica over storage.
func NewThread(id string, storage jobstorage.Storage) *Thread {
	t := &Thread{
		id:      id,
		storage: storage,
		mailbox: make(chan threadMsg, mailboxBufSize),
		done:    make(chan struct{}),
		cache:   make(map[string]collections.Queue[jobworker.WorkerRef]),
	}
	t.SimpleComponent = &lifecycle.SimpleComponent{
		CompId:    id,
		StartFunc: t.start,
		StopFunc:  t.stop,
	}
	return t
}

func (t *Thread) start() error {
	go t.run()
	return nil
}

func (t *Thread) stop() error {
	close(t.done)
	return nil
}

func (t *Thread) run() {
	for {
		select {
		case <-t.done:
			return
		case msg := <-t.mailbox:
			t.handle(msg)
		}
	}
}

func (t *Thread) handle(msg threadMsg) {
	switch m := msg.(type) {
	case newJobMsg:
		t.handleNewJob(m)
	case requestJobMsg:
		t.handleRequestJob(m)
	case returningJobMsg:
		t.handleReturningJob(m)
	case checkDbMsg:
		t.handleCheckDb()
	case getStatsMsg:
		t.handleGetStats(m)
	}
}

func (t *Thread) queueOf(queue string) collections.Queue[jobworker.WorkerRef] {
	q, ok := t.cache[queue]
	if !ok {
		q = collections.NewSyncQueue[jobworker.WorkerRef]()
		t.cache[queue] = q
	}
	return q
}

func (t *Thread) handleNewJob(m newJobMsg) {
	now := time.Now()
	ctx := context.Background()
	job, err := jobstorage.NewJob(ctx, t.storage, m.info, now)
	if m.reply != nil {
		defer func() { m.reply <- newJobResult{job: job, err: err} }()
	}
	if err != nil {
		return
	}
	if job.Ready(now) {
		t.dispatchOnce(ctx, job.Queue)
	}
}

func (t *Thread) handleRequestJob(m requestJobMsg) {
	ctx := context.Background()
	job, err := jobstorage.RequestJob(ctx, t.storage, m.ref.Queue, m.ref.RunnerID, time.Now())
	if err != nil {
		if err != jobstorage.ErrQueueEmpty {
			logger.ErrorF("request_job(%s, %d): %v", m.ref.Queue, m.ref.RunnerID, err)
		}
		t.queueOf(m.ref.Queue).Enqueue(m.ref)
		return
	}
	m.ref.Inbox <- jobworker.ProcessJob{Job: job}
}

func (t *Thread) handleReturningJob(m returningJobMsg) {
	if err := jobstorage.ReturnJob(context.Background(), t.storage, m.ret, time.Now()); err != nil {
		logger.ErrorF("return_job(%d): %v", m.ret.Id, err)
	}
}

// handleCheckDb sweeps every queue with parked workers, popping from the
// front and retrying request_job until the first miss, matching the
// pinger's wakeup contract.
func (t *Thread) handleCheckDb() {
	ctx := context.Background()
	for queue := range t.cache {
		for {
			ok := t.dispatchOnce(ctx, queue)
			if !ok {
				break
			}
		}
	}
}

// dispatchOnce pops one parked worker off queue's FIFO and attempts to hand
// it a job. Returns false if there was no parked worker, or the parked
// worker was re-parked because no job was ready.
func (t *Thread) dispatchOnce(ctx context.Context, queue string) bool {
	q := t.queueOf(queue)
	ref, err := q.Dequeue()
	if err != nil {
		return false
	}
	job, err := jobstorage.RequestJob(ctx, t.storage, queue, ref.RunnerID, time.Now())
	if err != nil {
		q.Enqueue(ref)
		return false
	}
	ref.Inbox <- jobworker.ProcessJob{Job: job}
	return true
}

func (t *Thread) handleGetStats(m getStatsMsg) {
	stats, err := t.storage.GetStats(context.Background())
	m.reply <- getStatsResult{stats: stats, err: err}
}

// NewJob persists and, if ready, dispatches a newly-created job. It blocks
// for the Thread's reply.
func (t *Thread) NewJob(ctx context.Context, info jobmodel.NewJobInfo) (jobmodel.JobInfo, error) {
	reply := make(chan newJobResult, 1)
	select {
	case t.mailbox <- newJobMsg{info: info, reply: reply}:
	case <-ctx.Done():
		return jobmodel.JobInfo{}, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.job, r.err
	case <-ctx.Done():
		return jobmodel.JobInfo{}, ctx.Err()
	}
}

// RequestJob implements jobworker.Dispatcher: fire-and-forget, the worker's
// inbox is how it eventually receives its job.
func (t *Thread) RequestJob(ref jobworker.WorkerRef) {
	t.mailbox <- requestJobMsg{ref: ref}
}

// ReturningJob implements jobworker.Dispatcher.
func (t *Thread) ReturningJob(ret jobmodel.ReturnJobInfo) {
	t.mailbox <- returningJobMsg{ret: ret}
}

// CheckDb is the pinger's periodic nudge.
func (t *Thread) CheckDb() {
	t.mailbox <- checkDbMsg{}
}

// GetStats blocks for a read-through snapshot of storage stats.
func (t *Thread) GetStats(ctx context.Context) (jobmodel.Stats, error) {
	reply := make(chan getStatsResult, 1)
	select {
	case t.mailbox <- getStatsMsg{reply: reply}:
	case <-ctx.Done():
		return jobmodel.Stats{}, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.stats, r.err
	case <-ctx.Done():
		return jobmodel.Stats{}, ctx.Err()
	}
}
