// Package jobmodel defines the job lifecycle data model shared by storage
// backends, the dispatch server, workers and the processor registry:
// the stored job record, its retry/backoff policy, the readiness predicate,
// and the rolling stats counters.
package jobmodel
