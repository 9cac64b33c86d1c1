package jobstorage

import "errors"

var (
	// ErrJobNotFound is returned when a job with the given id does not exist.
	ErrJobNotFound = errors.New("jobstorage: job not found")
	// ErrQueueEmpty is returned by FetchJobFromQueue when no ready job is
	// available in the requested queue.
	ErrQueueEmpty = errors.New("jobstorage: queue empty")
	// ErrLockHeld is returned by a backend's per-queue critical section when
	// it cannot acquire the lock within its retry budget.
	ErrLockHeld = errors.New("jobstorage: queue lock held")
	// ErrUnknownBackend is returned by GetStorage for a name with no
	// registered factory.
	ErrUnknownBackend = errors.New("jobstorage: unknown backend")
)
