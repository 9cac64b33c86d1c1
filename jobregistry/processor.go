package jobregistry

import (
	"encoding/json"
	"time"

	"oss.nandlabs.io/jobforge/jobmodel"
)

// Job is the user-facing unit of work: a typed payload plus optional
// per-instance overrides of the processor's defaults.
type Job[A any] struct {
	Args A
	// Queue overrides the processor's default queue, if non-nil.
	Queue *string
	// MaxRetries overrides the processor's default retry policy, if non-nil.
	MaxRetries *jobmodel.MaxRetries
	// Backoff overrides the processor's default backoff strategy, if non-nil.
	Backoff jobmodel.BackoffStrategy
	// At schedules the job for a future time; nil means immediately ready.
	At *time.Time
}

// Processor associates a Job[A] type with a globally-unique name, default
// queue/retry/backoff policy, and the logic to run a decoded job against
// per-job state S.
type Processor[A any, S any] interface {
	// Name returns the processor's globally-unique registration name.
	Name() string
	// Queue returns the default queue new jobs are placed on.
	Queue() string
	// MaxRetries returns the default retry policy for new jobs.
	MaxRetries() jobmodel.MaxRetries
	// Backoff returns the default backoff strategy for new jobs.
	Backoff() jobmodel.BackoffStrategy
	// Process runs the decoded job arguments against state.
	Process(args A, state S) error
}

// NewJob builds the pre-id record for job, applying p's defaults where job
// leaves an override unset, and JSON-encoding job.Args into Args.
func NewJob[A any, S any](p Processor[A, S], job Job[A]) (jobmodel.NewJobInfo, error) {
	encoded, err := json.Marshal(job.Args)
	if err != nil {
		return jobmodel.NewJobInfo{}, err
	}

	queue := p.Queue()
	if job.Queue != nil {
		queue = *job.Queue
	}
	maxRetries := p.MaxRetries()
	if job.MaxRetries != nil {
		maxRetries = *job.MaxRetries
	}
	backoff := p.Backoff()
	if job.Backoff != nil {
		backoff = job.Backoff
	}

	return jobmodel.NewJobInfo{
		Processor:  p.Name(),
		Queue:      queue,
		Args:       encoded,
		MaxRetries: maxRetries,
		Backoff:    backoff,
		At:         job.At,
	}, nil
}
