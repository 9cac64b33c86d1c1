package jobregistry

import (
	"bytes"
	"encoding/json"
	"errors"

	"oss.nandlabs.io/jobforge/jobmodel"
	"oss.nandlabs.io/jobforge/managers"
	"oss.nandlabs.io/jobforge/pool"
)

// errStateMismatch indicates the state value handed to Process by the
// worker does not match the type S the processor was registered with; this
// is a wiring bug in the caller, not a malformed job, but it is still
// reported as a Failure since there is no other Outcome that fits.
var errStateMismatch = errors.New("jobregistry: state type mismatch")

// DecodeError wraps a failure to decode a job's Args for its processor's
// expected payload type. Per the error handling design, a decode failure
// always counts as a Failure, never MissingProcessor: the payload is
// permanently malformed, and retries will deterministically fail the same
// way until max_retries exhausts.
type DecodeError struct {
	Processor string
	Err       error
}

func (e *DecodeError) Error() string {
	return "jobregistry: decode args for " + e.Processor + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// entry is the type-erased form a registered Processor[A, S] is reduced to.
type entry struct {
	queue      string
	maxRetries jobmodel.MaxRetries
	backoff    jobmodel.BackoffStrategy
	// process decodes args and runs the processor against state, returning
	// the outcome to report back to the server and the underlying error (if
	// any) for logging.
	process func(args json.RawMessage, state interface{}) (jobmodel.Outcome, error)
}

// Registry is the name -> handler map every worker consults to process a
// dequeued job. Registration is additive and must occur before workers
// start; re-registering a name overwrites it, since names are required to
// be globally unique.
type Registry struct {
	items    managers.ItemManager[entry]
	bufPool  pool.Pool[*bytes.Buffer]
}

// NewRegistry returns an empty Registry with its internal decode-buffer
// pool sized for typical job-argument payloads.
func NewRegistry() (*Registry, error) {
	bufPool, err := pool.NewPool[*bytes.Buffer](
		func() (*bytes.Buffer, error) { return new(bytes.Buffer), nil },
		func(*bytes.Buffer) error { return nil },
		4, 64, 5,
	)
	if err != nil {
		return nil, err
	}
	if err := bufPool.Start(); err != nil {
		return nil, err
	}
	return &Registry{
		items:   managers.NewItemManager[entry](),
		bufPool: bufPool,
	}, nil
}

// Register adds p under its Name(), overwriting any existing registration
// for that name.
func Register[A any, S any](r *Registry, p Processor[A, S]) {
	r.items.Register(p.Name(), entry{
		queue:      p.Queue(),
		maxRetries: p.MaxRetries(),
		backoff:    p.Backoff(),
		process: func(args json.RawMessage, state interface{}) (jobmodel.Outcome, error) {
			// state is nil whenever the worker's StateFunc is nil, which is
			// only valid when S's zero value is a usable state (e.g. a
			// zero-size struct{}); a nil interface never asserts true to a
			// concrete S, so it must be special-cased rather than asserted
			// unconditionally.
			var s S
			if state != nil {
				var ok bool
				s, ok = state.(S)
				if !ok {
					return jobmodel.Failure, &DecodeError{Processor: p.Name(), Err: errStateMismatch}
				}
			}

			var a A
			buf, poolErr := r.bufPool.Checkout()
			if poolErr != nil {
				if decodeErr := json.Unmarshal(args, &a); decodeErr != nil {
					return jobmodel.Failure, &DecodeError{Processor: p.Name(), Err: decodeErr}
				}
			} else {
				buf.Reset()
				buf.Write(args)
				decodeErr := json.NewDecoder(buf).Decode(&a)
				r.bufPool.Checkin(buf)
				if decodeErr != nil {
					return jobmodel.Failure, &DecodeError{Processor: p.Name(), Err: decodeErr}
				}
			}

			if err := p.Process(a, s); err != nil {
				return jobmodel.Failure, err
			}
			return jobmodel.Success, nil
		},
	})
}

// Has reports whether a processor is registered under name.
func (r *Registry) Has(name string) bool {
	return r.items.Get(name).process != nil
}

// DefaultQueue returns the queue a processor registered under name defaults
// new jobs to.
func (r *Registry) DefaultQueue(name string) (string, bool) {
	e := r.items.Get(name)
	if e.process == nil {
		return "", false
	}
	return e.queue, true
}

// Process runs the job registered under job.Processor against state,
// returning MissingProcessor if no such handler is currently registered.
// The returned error is non-nil only alongside Failure, and is for logging;
// it never changes what gets reported back to the server.
func (r *Registry) Process(job jobmodel.JobInfo, state interface{}) (jobmodel.Outcome, error) {
	e := r.items.Get(job.Processor)
	if e.process == nil {
		return jobmodel.MissingProcessor, nil
	}
	return e.process(job.Args, state)
}

// Unregister removes name, if present.
func (r *Registry) Unregister(name string) {
	r.items.Unregister(name)
}

// Close releases the registry's decode-buffer pool.
func (r *Registry) Close() error {
	return r.bufPool.Close()
}
