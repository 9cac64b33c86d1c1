package filestore

import (
	"time"

	"oss.nandlabs.io/jobforge/jobmodel"
)

// Slices of small structs, not maps, hold every tree below: encoding/xml
// cannot marshal Go maps, and this document must round-trip through the
// JSON, YAML and XML codecs alike depending on the chosen file extension.

// queueEntry is one row of the queue tree: the ordered ids waiting in a
// named queue.
type queueEntry struct {
	Queue string   `json:"queue" yaml:"queue" xml:"queue"`
	IDs   []uint64 `json:"ids" yaml:"ids" xml:"ids"`
}

// runningEntry is one row of the running tree, binding a job id to the
// runner executing it.
type runningEntry struct {
	JobID    uint64 `json:"job_id" yaml:"job_id" xml:"job_id"`
	RunnerID uint64 `json:"runner_id" yaml:"runner_id" xml:"runner_id"`
}

// lockTreeEntry is one row of the lock tree: the current spinlock holder
// for a named queue.
type lockTreeEntry struct {
	Queue   string    `json:"queue" yaml:"queue" xml:"queue"`
	Owner   string    `json:"owner" yaml:"owner" xml:"owner"`
	Expires time.Time `json:"expires" yaml:"expires" xml:"expires"`
}

// document is the single structure persisted to the backing file. Its
// fields are the six logical trees named in the storage contract: JobInfo,
// Queue, Running, RunningInverse, Stats and Lock.
type document struct {
	NextID uint64 `json:"next_id" yaml:"next_id" xml:"next_id"`

	// JobInfo is the "background-jobs-jobinfo" tree.
	JobInfo []jobmodel.JobInfo `json:"jobinfo" yaml:"jobinfo" xml:"jobinfo"`
	// Queue is the "background-jobs-queue" tree.
	Queue []queueEntry `json:"queue" yaml:"queue" xml:"queue"`
	// Running is the "background-jobs-running" tree: job id -> runner id.
	Running []runningEntry `json:"running" yaml:"running" xml:"running"`
	// RunningInverse is the "background-jobs-running-inverse" tree: runner
	// id -> job id, kept as the literal inverse of Running.
	RunningInverse []runningEntry `json:"running_inverse" yaml:"running_inverse" xml:"running_inverse"`
	// Stats is the "background-jobs-stats" tree, a single record.
	Stats jobmodel.Stats `json:"stats" yaml:"stats" xml:"stats"`
	// Lock is the "background-jobs-lock" tree.
	Lock []lockTreeEntry `json:"lock" yaml:"lock" xml:"lock"`
}

// newDocument returns an empty document with its stats counters anchored
// at now.
func newDocument(now time.Time) *document {
	return &document{Stats: jobmodel.NewStats(now)}
}

// findJob returns the index of id's record in JobInfo, or -1.
func (d *document) findJob(id uint64) int {
	for i, j := range d.JobInfo {
		if j.Id == id {
			return i
		}
	}
	return -1
}

// findQueue returns the index of queue's row in Queue, or -1.
func (d *document) findQueue(queue string) int {
	for i, q := range d.Queue {
		if q.Queue == queue {
			return i
		}
	}
	return -1
}

// findLock returns the index of queue's row in Lock, or -1.
func (d *document) findLock(queue string) int {
	for i, l := range d.Lock {
		if l.Queue == queue {
			return i
		}
	}
	return -1
}

// clearRunnerBinding drops id's running binding, if any, from both Running
// and RunningInverse.
func (d *document) clearRunnerBinding(id uint64) {
	for i, r := range d.Running {
		if r.JobID == id {
			d.Running = append(d.Running[:i:i], d.Running[i+1:]...)
			break
		}
	}
	for i, r := range d.RunningInverse {
		if r.JobID == id {
			d.RunningInverse = append(d.RunningInverse[:i:i], d.RunningInverse[i+1:]...)
			break
		}
	}
}

// clearRunnerID drops any binding for runnerID, if one exists, returning the
// job id it was bound to.
func (d *document) clearRunnerID(runnerID uint64) (prevJob uint64, had bool) {
	for i, r := range d.Running {
		if r.RunnerID == runnerID {
			prevJob, had = r.JobID, true
			d.Running = append(d.Running[:i:i], d.Running[i+1:]...)
			break
		}
	}
	for i, r := range d.RunningInverse {
		if r.RunnerID == runnerID {
			d.RunningInverse = append(d.RunningInverse[:i:i], d.RunningInverse[i+1:]...)
			break
		}
	}
	return
}

// bindRunner records id<->runnerID in both Running and RunningInverse.
func (d *document) bindRunner(id, runnerID uint64) {
	d.Running = append(d.Running, runningEntry{JobID: id, RunnerID: runnerID})
	d.RunningInverse = append(d.RunningInverse, runningEntry{JobID: id, RunnerID: runnerID})
}

// removeFromAllQueues strips id out of every queue it might be sitting in.
func (d *document) removeFromAllQueues(id uint64) {
	for qi, q := range d.Queue {
		for i, qid := range q.IDs {
			if qid == id {
				d.Queue[qi].IDs = append(q.IDs[:i:i], q.IDs[i+1:]...)
				break
			}
		}
	}
}

// appendToQueue pushes id onto the tail of queue, creating the row if
// absent.
func (d *document) appendToQueue(queue string, id uint64) {
	if i := d.findQueue(queue); i >= 0 {
		d.Queue[i].IDs = append(d.Queue[i].IDs, id)
		return
	}
	d.Queue = append(d.Queue, queueEntry{Queue: queue, IDs: []uint64{id}})
}
