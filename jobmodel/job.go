package jobmodel

import (
	"encoding/json"
	"time"
)

// JobInfo is the stored form of a job. Runner-id bindings are tracked
// separately by the storage backend (the running / running-inverse trees),
// not as a field here: a job is either queued, bound to a runner, or
// deleted, never more than one at once.
type JobInfo struct {
	// Id uniquely identifies the job within its storage backend.
	Id uint64 `json:"id"`
	// Processor names the registered handler this job is routed to.
	Processor string `json:"processor"`
	// Queue is the named queue the job is enqueued under.
	Queue string `json:"queue"`
	// Args is the opaque, processor-defined argument, still encoded.
	Args json.RawMessage `json:"args"`
	// Status is the job's current lifecycle state.
	Status Status `json:"status"`
	// RetryCount is the number of failed attempts taken so far, incremented
	// only on failure.
	RetryCount uint32 `json:"retry_count"`
	// MaxRetries bounds how many times the job may be retried after a
	// failure.
	MaxRetries MaxRetries `json:"max_retries"`
	// Backoff computes the delay before the next attempt after a failure.
	// It is never serialized directly: BackoffKind/BackoffParam are its
	// wire form, kept in sync by SnapshotBackoff/RehydrateBackoff so every
	// codec (JSON, YAML, XML) round-trips it the same way, not just JSON's
	// Marshaler hooks.
	Backoff BackoffStrategy `json:"-" yaml:"-" xml:"-"`
	// BackoffKind and BackoffParam are Backoff's wire form.
	BackoffKind  string  `json:"backoff_kind"`
	BackoffParam float64 `json:"backoff_param"`
	// NextQueue is the earliest time the job is eligible for dispatch, or
	// nil if it is immediately ready.
	NextQueue *time.Time `json:"next_queue,omitempty"`
	// UpdatedAt records the time of the job's last state mutation.
	UpdatedAt time.Time `json:"updated_at"`
}

// jobInfoAlias avoids infinite recursion in MarshalJSON/UnmarshalJSON.
type jobInfoAlias JobInfo

// MarshalJSON snapshots Backoff into its Kind/Param wire form before encoding.
func (j JobInfo) MarshalJSON() ([]byte, error) {
	j.SnapshotBackoff()
	return json.Marshal(jobInfoAlias(j))
}

// UnmarshalJSON rehydrates Backoff from its Kind/Param wire form after
// decoding.
func (j *JobInfo) UnmarshalJSON(data []byte) error {
	alias := (*jobInfoAlias)(j)
	if err := json.Unmarshal(data, alias); err != nil {
		return err
	}
	j.RehydrateBackoff()
	return nil
}

// SnapshotBackoff copies Backoff's kind/param into BackoffKind/BackoffParam
// so any codec's ordinary struct encoding carries it across the wire.
// Callers that bypass encoding/json (YAML, XML codecs) must call this
// before encoding.
func (j *JobInfo) SnapshotBackoff() {
	if j.Backoff != nil {
		j.BackoffKind = j.Backoff.Kind()
		j.BackoffParam = j.Backoff.Param()
	}
}

// RehydrateBackoff reconstructs Backoff from BackoffKind/BackoffParam.
// Callers that bypass encoding/json (YAML, XML codecs) must call this
// after decoding.
func (j *JobInfo) RehydrateBackoff() {
	j.Backoff = NewBackoff(j.BackoffKind, j.BackoffParam)
}

// Ready reports whether the job is Pending and due for dispatch at now:
// NextQueue absent, or now after NextQueue.
func (j JobInfo) Ready(now time.Time) bool {
	if j.Status != Pending {
		return false
	}
	return j.NextQueue == nil || now.After(*j.NextQueue)
}

// NewJobInfo is the pre-id form of a job, produced by a processor's new_job
// factory and consumed by storage to yield a JobInfo with a fresh id.
type NewJobInfo struct {
	Processor  string
	Queue      string
	Args       json.RawMessage
	MaxRetries MaxRetries
	Backoff    BackoffStrategy
	// At is an optional schedule time; nil means immediately ready.
	At *time.Time
}

// ToJobInfo stamps id and now onto n, yielding the persisted form.
func (n NewJobInfo) ToJobInfo(id uint64, now time.Time) JobInfo {
	return JobInfo{
		Id:         id,
		Processor:  n.Processor,
		Queue:      n.Queue,
		Args:       n.Args,
		Status:     Pending,
		RetryCount: 0,
		MaxRetries: n.MaxRetries,
		Backoff:    n.Backoff,
		NextQueue:  n.At,
		UpdatedAt:  now,
	}
}

// ReturnJobInfo is the outcome a worker reports back to the dispatch server
// for a job it finished processing.
type ReturnJobInfo struct {
	Id      uint64
	Outcome Outcome
}

// NeedsRetry reports whether another attempt is permitted given the job's
// MaxRetries policy and retryCount observed after incrementing for the
// failed attempt just taken.
func (j JobInfo) NeedsRetry(retryCount uint32) bool {
	return j.MaxRetries.Allows(retryCount)
}

// Retry advances j after a failed attempt at now: increments RetryCount and,
// assuming the caller has already confirmed NeedsRetry, returns j reset to
// Pending with NextQueue pushed out by Backoff.
func (j JobInfo) Retry(now time.Time) JobInfo {
	next := j
	next.RetryCount++
	next.Status = Pending
	if next.Backoff != nil {
		at := now.Add(next.Backoff.Next(next.RetryCount))
		next.NextQueue = &at
	} else {
		next.NextQueue = nil
	}
	next.UpdatedAt = now
	return next
}
