package jobstorage

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"oss.nandlabs.io/jobforge/jobmodel"
)

func init() {
	RegisterStorage("memory", func(string) (Storage, error) {
		return NewInMemoryStorage(), nil
	})
}

// InMemoryStorage is the reference, single-process backend. A single mutex
// covers jobs, queues and the runner bindings, serializing
// FetchJobFromQueue against itself across every caller that shares this
// handle.
type InMemoryStorage struct {
	mu sync.Mutex

	nextID uint64

	jobs map[uint64]jobmodel.JobInfo
	// queues holds, per queue name, the ids currently enqueued in
	// insertion order. Selection order within FetchJobFromQueue is
	// unspecified by the contract; this backend scans front to back.
	queues map[string][]uint64
	// running maps a running job id to its runner id; runningInverse is
	// its inverse, enforcing the bijection invariant on the running subset.
	running        map[uint64]uint64
	runningInverse map[uint64]uint64

	stats jobmodel.Stats
}

// NewInMemoryStorage constructs an empty InMemoryStorage.
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		jobs:           make(map[uint64]jobmodel.JobInfo),
		queues:         make(map[string][]uint64),
		running:        make(map[uint64]uint64),
		runningInverse: make(map[uint64]uint64),
		stats:          jobmodel.NewStats(time.Now()),
	}
}

// GenerateID returns a fresh, monotonically increasing id.
func (m *InMemoryStorage) GenerateID(context.Context) (uint64, error) {
	return atomic.AddUint64(&m.nextID, 1), nil
}

// SaveJob inserts or overwrites job by id, storing a defensive copy.
func (m *InMemoryStorage) SaveJob(_ context.Context, job jobmodel.JobInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobs[job.Id] = job
	return nil
}

// FetchJob reads a job by id regardless of state.
func (m *InMemoryStorage) FetchJob(_ context.Context, id uint64) (jobmodel.JobInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return jobmodel.JobInfo{}, ErrJobNotFound
	}
	return job, nil
}

// FetchJobFromQueue atomically removes and returns the first ready job in
// queue. The whole operation runs under m.mu, which is the sole
// serialization point multiple dispatch server threads rely on.
func (m *InMemoryStorage) FetchJobFromQueue(_ context.Context, queue string, now time.Time) (jobmodel.JobInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := m.queues[queue]
	for i, id := range ids {
		job, ok := m.jobs[id]
		if !ok {
			continue
		}
		if !job.Ready(now) {
			continue
		}
		m.queues[queue] = append(ids[:i:i], ids[i+1:]...)
		return job, nil
	}
	return jobmodel.JobInfo{}, ErrQueueEmpty
}

// QueueJob places id at the tail of queue, clearing any runner binding
// first so a job cannot be simultaneously queued and running.
func (m *InMemoryStorage) QueueJob(_ context.Context, queue string, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clearRunnerBinding(id)
	m.queues[queue] = append(m.queues[queue], id)
	return nil
}

// RunJob binds id to runnerID, removing any prior binding for either side
// so the running subset stays a bijection, and leaves id off every queue.
func (m *InMemoryStorage) RunJob(_ context.Context, id uint64, runnerID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clearRunnerBinding(id)
	if prevJob, ok := m.runningInverse[runnerID]; ok {
		delete(m.running, prevJob)
	}
	m.running[id] = runnerID
	m.runningInverse[runnerID] = id
	m.removeFromAllQueues(id)
	return nil
}

// DeleteJob removes id and all its queue/runner bindings.
func (m *InMemoryStorage) DeleteJob(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[id]; !ok {
		return ErrJobNotFound
	}
	delete(m.jobs, id)
	m.clearRunnerBinding(id)
	m.removeFromAllQueues(id)
	return nil
}

// GetStats returns the current stats snapshot.
func (m *InMemoryStorage) GetStats(context.Context) (jobmodel.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.stats, nil
}

// UpdateStats applies f to the stored stats under m.mu.
func (m *InMemoryStorage) UpdateStats(_ context.Context, f func(*jobmodel.Stats)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f(&m.stats)
	return nil
}

// Close is a no-op for in-memory storage.
func (m *InMemoryStorage) Close() error {
	return nil
}

// clearRunnerBinding drops id's running binding, if any. Caller holds m.mu.
func (m *InMemoryStorage) clearRunnerBinding(id uint64) {
	runnerID, ok := m.running[id]
	if !ok {
		return
	}
	delete(m.running, id)
	delete(m.runningInverse, runnerID)
}

// removeFromAllQueues strips id out of every queue it might be sitting in.
// Caller holds m.mu.
func (m *InMemoryStorage) removeFromAllQueues(id uint64) {
	for queue, ids := range m.queues {
		for i, qid := range ids {
			if qid == id {
				m.queues[queue] = append(ids[:i:i], ids[i+1:]...)
				break
			}
		}
	}
}
