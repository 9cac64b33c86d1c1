package jobserver

import (
	"oss.nandlabs.io/jobforge/jobmodel"
	"oss.nandlabs.io/jobforge/jobworker"
)

// newJobMsg asks the thread to persist and (if ready) immediately hand off
// a freshly-created job.
type newJobMsg struct {
	info  jobmodel.NewJobInfo
	reply chan<- newJobResult
}

type newJobResult struct {
	job jobmodel.JobInfo
	err error
}

// requestJobMsg is a worker asking for its next job.
type requestJobMsg struct {
	ref jobworker.WorkerRef
}

// returningJobMsg reports the outcome of a job a worker just finished.
type returningJobMsg struct {
	ret jobmodel.ReturnJobInfo
}

// checkDbMsg is the pinger's periodic nudge to re-check parked workers
// against newly-ready jobs.
type checkDbMsg struct{}

// getStatsMsg asks for a read-through snapshot of storage stats.
type getStatsMsg struct {
	reply chan<- getStatsResult
}

type getStatsResult struct {
	stats jobmodel.Stats
	err   error
}

// threadMsg is the closed set of messages a Thread's mailbox accepts.
type threadMsg interface {
	isThreadMsg()
}

func (newJobMsg) isThreadMsg()      {}
func (requestJobMsg) isThreadMsg()  {}
func (returningJobMsg) isThreadMsg() {}
func (checkDbMsg) isThreadMsg()     {}
func (getStatsMsg) isThreadMsg()    {}
