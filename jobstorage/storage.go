package jobstorage

import (
	"context"
	"time"

	"oss.nandlabs.io/jobforge/jobmodel"
)

// Storage is the contract any persistence backend must satisfy. The
// dispatch server is the sole caller: no other component touches storage
// directly, so implementations need only serialize against concurrent
// server threads, not arbitrary external callers.
//
// The one atomicity obligation that matters for correctness is
// FetchJobFromQueue: it must be mutually exclusive with itself on the same
// queue across every server thread sharing this handle, so that two parked
// workers can never receive the same job.
type Storage interface {
	// GenerateID returns a fresh, collision-free job id.
	GenerateID(ctx context.Context) (uint64, error)

	// SaveJob inserts or overwrites a job record by id.
	SaveJob(ctx context.Context, job jobmodel.JobInfo) error

	// FetchJob reads a job by id regardless of its state. Returns
	// ErrJobNotFound if absent.
	FetchJob(ctx context.Context, id uint64) (jobmodel.JobInfo, error)

	// FetchJobFromQueue atomically removes and returns one job from queue
	// whose Ready(now) holds. Returns ErrQueueEmpty if none qualify.
	// Selection order among ready jobs is unspecified.
	FetchJobFromQueue(ctx context.Context, queue string, now time.Time) (jobmodel.JobInfo, error)

	// QueueJob places id into queue. If id was previously bound to a
	// runner, that binding is cleared first.
	QueueJob(ctx context.Context, queue string, id uint64) error

	// RunJob binds id to runnerID and removes id from any queue.
	RunJob(ctx context.Context, id uint64, runnerID uint64) error

	// DeleteJob removes id and all its queue/runner bindings.
	DeleteJob(ctx context.Context, id uint64) error

	// GetStats returns the current stats snapshot.
	GetStats(ctx context.Context) (jobmodel.Stats, error)

	// UpdateStats applies f to the stored stats under the backend's
	// mutation discipline and persists the result.
	UpdateStats(ctx context.Context, f func(*jobmodel.Stats)) error

	// Close releases any resources held by the backend.
	Close() error
}

// Factory constructs a Storage instance, used by the named-backend registry
// so a host application can select "memory" or "file" (or a third-party
// backend it registers itself) by name.
type Factory func(dsn string) (Storage, error)
