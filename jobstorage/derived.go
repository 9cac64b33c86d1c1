package jobstorage

import (
	"context"
	"time"

	"oss.nandlabs.io/jobforge/jobmodel"
)

// NewJob allocates an id for n, persists it, places it into its queue, and
// bumps the pending gauge. It is the sole entry point that turns a
// pre-id NewJobInfo into a durable, dispatchable job.
func NewJob(ctx context.Context, s Storage, n jobmodel.NewJobInfo, now time.Time) (jobmodel.JobInfo, error) {
	id, err := s.GenerateID(ctx)
	if err != nil {
		return jobmodel.JobInfo{}, err
	}
	job := n.ToJobInfo(id, now)
	if err := s.SaveJob(ctx, job); err != nil {
		return jobmodel.JobInfo{}, err
	}
	if err := s.QueueJob(ctx, job.Queue, job.Id); err != nil {
		return jobmodel.JobInfo{}, err
	}
	if err := s.UpdateStats(ctx, func(st *jobmodel.Stats) { st.IncrPending() }); err != nil {
		return job, err
	}
	return job, nil
}

// RequestJob tries to hand a worker bound to queue and runnerID one ready
// job. It returns ErrQueueEmpty if none is currently available.
func RequestJob(ctx context.Context, s Storage, queue string, runnerID uint64, now time.Time) (jobmodel.JobInfo, error) {
	job, err := s.FetchJobFromQueue(ctx, queue, now)
	if err != nil {
		return jobmodel.JobInfo{}, err
	}
	job.Status = jobmodel.Running
	job.UpdatedAt = now
	if err := s.RunJob(ctx, job.Id, runnerID); err != nil {
		return jobmodel.JobInfo{}, err
	}
	if err := s.SaveJob(ctx, job); err != nil {
		return jobmodel.JobInfo{}, err
	}
	if err := s.UpdateStats(ctx, func(st *jobmodel.Stats) {
		st.DecrPending()
		st.IncrRunning()
	}); err != nil {
		return job, err
	}
	return job, nil
}

// ReturnJob applies a worker's reported outcome for ret to the stored job:
// Success deletes it and counts a completion; Failure retries it if the
// job's MaxRetries policy still allows another attempt, else deletes it and
// counts a death; MissingProcessor resets it to Pending so a future
// processor registration can serve it.
func ReturnJob(ctx context.Context, s Storage, ret jobmodel.ReturnJobInfo, now time.Time) error {
	job, err := s.FetchJob(ctx, ret.Id)
	if err != nil {
		return err
	}

	switch ret.Outcome {
	case jobmodel.Success:
		if err := s.DeleteJob(ctx, job.Id); err != nil {
			return err
		}
		return s.UpdateStats(ctx, func(st *jobmodel.Stats) {
			st.DecrRunning()
			st.Complete.Incr(now)
		})

	case jobmodel.MissingProcessor:
		job.Status = jobmodel.Pending
		job.NextQueue = nil
		job.UpdatedAt = now
		if err := s.SaveJob(ctx, job); err != nil {
			return err
		}
		if err := s.QueueJob(ctx, job.Queue, job.Id); err != nil {
			return err
		}
		return s.UpdateStats(ctx, func(st *jobmodel.Stats) {
			st.DecrRunning()
			st.IncrPending()
		})

	default: // jobmodel.Failure
		retried := job.Retry(now)
		if job.NeedsRetry(retried.RetryCount) {
			if err := s.SaveJob(ctx, retried); err != nil {
				return err
			}
			if err := s.QueueJob(ctx, retried.Queue, retried.Id); err != nil {
				return err
			}
			return s.UpdateStats(ctx, func(st *jobmodel.Stats) {
				st.DecrRunning()
				st.IncrPending()
			})
		}
		if err := s.DeleteJob(ctx, job.Id); err != nil {
			return err
		}
		return s.UpdateStats(ctx, func(st *jobmodel.Stats) {
			st.DecrRunning()
			st.Dead.Incr(now)
		})
	}
}
