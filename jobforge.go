// Package jobforge is the public façade over the background job runtime:
// a storage-backed, actor-style dispatch server, a pool of per-queue
// workers, a pinger that wakes scheduled jobs, and an optional
// recurring-job driver, all wired together and started/stopped as one
// unit.
package jobforge

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"oss.nandlabs.io/jobforge/jobmodel"
	"oss.nandlabs.io/jobforge/jobping"
	"oss.nandlabs.io/jobforge/jobrecur"
	"oss.nandlabs.io/jobforge/jobregistry"
	"oss.nandlabs.io/jobforge/jobserver"
	"oss.nandlabs.io/jobforge/jobstorage"
	"oss.nandlabs.io/jobforge/jobworker"
	"oss.nandlabs.io/jobforge/l3"
	"oss.nandlabs.io/jobforge/lifecycle"

	_ "oss.nandlabs.io/jobforge/jobstorage/filestore" // registers the "file" backend
)

var logger = l3.Get()

var (
	// ErrAlreadyStarted is returned by Start on a Handle that is already running.
	ErrAlreadyStarted = errors.New("jobforge: already started")
	// ErrNotStarted is returned by operations that require a running Handle.
	ErrNotStarted = errors.New("jobforge: not started")
)

// runnerIDOffset matches the reference implementation's worker runner-id
// allocation scheme: offset + k.
const runnerIDOffset = 1000

// Option configures a Handle at construction.
type Option func(*Handle)

// WithStorage sets the storage backend directly. If not set, an in-memory
// store is used.
func WithStorage(s jobstorage.Storage) Option {
	return func(h *Handle) { h.storage = s }
}

// WithBackend names a registered storage backend (e.g. "memory", "file")
// and its DSN, the way codec.GetDefault names a codec by content type.
func WithBackend(name, dsn string) Option {
	return func(h *Handle) { h.backendName, h.backendDSN = name, dsn }
}

// WithServerThreads sets the number of dispatch-server thread replicas.
// Defaults to runtime.NumCPU().
func WithServerThreads(n int) Option {
	return func(h *Handle) {
		if n > 0 {
			h.serverThreads = n
		}
	}
}

// WithPingInterval overrides the pinger's tick interval, mainly for tests.
func WithPingInterval(d time.Duration) Option {
	return func(h *Handle) {
		if d > 0 {
			h.pingInterval = d
		}
	}
}

// Handle is the runtime's entry point: one storage backend, one processor
// registry, one dispatch-server pool, one pinger, any number of workers and
// recurring-job drivers, all under one lifecycle.ComponentManager.
type Handle struct {
	storage       jobstorage.Storage
	backendName   string
	backendDSN    string
	serverThreads int
	pingInterval  time.Duration

	registry *jobregistry.Registry
	pool     *jobserver.Pool
	pinger   *jobping.Pinger
	manager  lifecycle.ComponentManager

	mu              sync.Mutex
	processorCounts map[string]int
	workers         []*jobworker.Worker
	recurDrivers    []*jobrecur.Driver
	nextRunnerID    uint64
	started         bool
}

// New builds a Handle. Storage defaults to an in-memory store; server
// thread count defaults to the logical core count, matching spec.md §5.
func New(opts ...Option) (*Handle, error) {
	h := &Handle{
		serverThreads:   runtime.NumCPU(),
		pingInterval:    jobping.DefaultInterval,
		processorCounts: make(map[string]int),
		nextRunnerID:    runnerIDOffset,
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.storage == nil {
		if h.backendName != "" {
			s, err := jobstorage.GetStorage(h.backendName, h.backendDSN)
			if err != nil {
				return nil, err
			}
			h.storage = s
		} else {
			h.storage = jobstorage.NewInMemoryStorage()
		}
	}

	registry, err := jobregistry.NewRegistry()
	if err != nil {
		return nil, err
	}
	h.registry = registry

	h.pool = jobserver.NewPool(h.storage, h.serverThreads)
	h.pinger = jobping.New(h.pool, jobping.WithInterval(h.pingInterval))

	h.manager = lifecycle.NewSimpleComponentManager()
	h.manager.Register(h.pool)
	h.manager.Register(h.pinger)
	if err := h.addDependency(h.pinger.Id(), h.pool.Id()); err != nil {
		return nil, err
	}

	return h, nil
}

// addDependency registers a start-order dependency; NewSimpleComponentManager
// returns the ComponentManager interface, so AddDependency (a
// *SimpleComponentManager-only method) needs this one type assertion.
func (h *Handle) addDependency(id, dependsOn string) error {
	scm, ok := h.manager.(*lifecycle.SimpleComponentManager)
	if !ok {
		return nil
	}
	return scm.AddDependency(id, dependsOn)
}

// SetProcessorCount sets how many workers each later Register call creates
// for queue. Workers that earlier Register calls already created are not
// changed, whether or not Start has been called.
func (h *Handle) SetProcessorCount(queue string, n int) {
	if n < 1 {
		n = 1
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processorCounts[queue] = n
}

// registerWorkersFor ensures at least one worker exists for queue, honoring
// any count set via SetProcessorCount (default 1).
func (h *Handle) registerWorkersFor(queue string, stateFn jobworker.StateFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := h.processorCounts[queue]
	if n < 1 {
		n = 1
	}
	for i := 0; i < n; i++ {
		runnerID := h.nextRunnerID
		h.nextRunnerID++
		w := jobworker.New(runnerID, queue, h.pool.Route(), h.registry, stateFn)
		h.workers = append(h.workers, w)
		h.manager.Register(w)
		if err := h.addDependency(w.Id(), h.pool.Id()); err != nil {
			logger.ErrorF("jobforge: AddDependency(%s, %s): %v", w.Id(), h.pool.Id(), err)
		}
	}
}

// Start starts the dispatch-server pool, the pinger, every worker
// registered via Register, and every recurring-job driver added via Every.
func (h *Handle) Start() error {
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		return ErrAlreadyStarted
	}
	h.started = true
	h.mu.Unlock()

	return h.manager.StartAll()
}

// Stop stops every component started by Start, in dependency order.
func (h *Handle) Stop() error {
	h.mu.Lock()
	if !h.started {
		h.mu.Unlock()
		return ErrNotStarted
	}
	h.started = false
	h.mu.Unlock()

	if err := h.manager.StopAll(); err != nil {
		return err
	}
	return h.registry.Close()
}

// GetStats round-trips to the dispatch server for a storage stats snapshot.
func (h *Handle) GetStats(ctx context.Context) (jobmodel.Stats, error) {
	return h.pool.GetStats(ctx)
}

// Register adds p to the registry and arranges for its default (or
// SetProcessorCount-overridden) number of workers to be started against
// p.Queue() the next time Start is called. stateFn produces fresh per-job
// state; pass nil when S is a zero-size type.
func Register[A any, S any](h *Handle, p jobregistry.Processor[A, S], stateFn func() S) {
	jobregistry.Register[A, S](h.registry, p)
	var wrapped jobworker.StateFunc
	if stateFn != nil {
		wrapped = func() interface{} { return stateFn() }
	}
	h.registerWorkersFor(p.Queue(), wrapped)
}

// Queue enqueues one job through p's new-job factory, applying job's
// per-instance overrides over p's defaults.
func Queue[A any, S any](h *Handle, p jobregistry.Processor[A, S], job jobregistry.Job[A]) (jobmodel.JobInfo, error) {
	info, err := jobregistry.NewJob[A, S](p, job)
	if err != nil {
		return jobmodel.JobInfo{}, err
	}
	return h.pool.NewJob(context.Background(), info)
}

// Every spawns a recurring-job driver that enqueues a clone of job through
// p's new-job factory immediately, then every d thereafter.
func Every[A any, S any](h *Handle, p jobregistry.Processor[A, S], d time.Duration, job jobregistry.Job[A]) error {
	info, err := jobregistry.NewJob[A, S](p, job)
	if err != nil {
		return err
	}
	driver := jobrecur.New(h.pool, info, d)
	h.mu.Lock()
	h.recurDrivers = append(h.recurDrivers, driver)
	h.mu.Unlock()
	h.manager.Register(driver)
	if err := h.addDependency(driver.Id(), h.pool.Id()); err != nil {
		return err
	}
	if h.started {
		return driver.Start()
	}
	return nil
}
