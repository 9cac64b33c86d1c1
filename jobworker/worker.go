package jobworker

import (
	"strconv"

	"oss.nandlabs.io/jobforge/jobmodel"
	"oss.nandlabs.io/jobforge/jobregistry"
	"oss.nandlabs.io/jobforge/l3"
	"oss.nandlabs.io/jobforge/lifecycle"
)

var logger = l3.Get()

// ProcessJob is the sole message a worker's inbox ever receives: the job
// the dispatch server selected for this worker's runner-id and queue.
type ProcessJob struct {
	Job jobmodel.JobInfo
}

// WorkerRef is the send-port a worker hands to its Dispatcher: a stable
// runner-id, the queue it services, and the writable end of its own
// inbox channel. It is passed by value, never stored as a pointer back to
// the Worker itself.
type WorkerRef struct {
	RunnerID uint64
	Queue    string
	Inbox    chan<- ProcessJob
}

// Dispatcher is whatever a Worker reports RequestJob/ReturningJob to. A
// jobserver.Thread satisfies this without jobworker ever importing
// jobserver.
type Dispatcher interface {
	RequestJob(ref WorkerRef)
	ReturningJob(ret jobmodel.ReturnJobInfo)
}

// StateFunc produces fresh per-job application state; it is invoked once
// per job so handlers never share mutable state across jobs.
type StateFunc func() interface{}

// Worker is a lifecycle.Component bound to a single queue and runner-id.
type Worker struct {
	*lifecycle.SimpleComponent

	runnerID   uint64
	queue      string
	dispatcher Dispatcher
	registry   *jobregistry.Registry
	stateFn    StateFunc

	inbox chan ProcessJob
	done  chan struct{}
}

// New builds a Worker for queue bound to runnerID, dispatching processed
// jobs through registry and producing per-job state via stateFn. A nil
// stateFn is valid for processors whose S is a zero-size type.
func New(runnerID uint64, queue string, dispatcher Dispatcher, registry *jobregistry.Registry, stateFn StateFunc) *Worker {
	w := &Worker{
		runnerID:   runnerID,
		queue:      queue,
		dispatcher: dispatcher,
		registry:   registry,
		stateFn:    stateFn,
		inbox:      make(chan ProcessJob, 1),
		done:       make(chan struct{}),
	}
	w.SimpleComponent = &lifecycle.SimpleComponent{
		CompId:    "jobworker:" + queue + ":" + strconv.FormatUint(runnerID, 10),
		StartFunc: w.start,
		StopFunc:  w.stop,
	}
	return w
}

// RunnerID returns the worker's stable runner identifier.
func (w *Worker) RunnerID() uint64 { return w.runnerID }

// Queue returns the queue this worker services.
func (w *Worker) Queue() string { return w.queue }

// Ref returns the WorkerRef a Dispatcher uses to hand this worker jobs.
func (w *Worker) Ref() WorkerRef {
	return WorkerRef{RunnerID: w.runnerID, Queue: w.queue, Inbox: w.inbox}
}

func (w *Worker) start() error {
	go w.loop()
	return nil
}

func (w *Worker) stop() error {
	close(w.done)
	return nil
}

func (w *Worker) loop() {
	w.dispatcher.RequestJob(w.Ref())
	for {
		select {
		case <-w.done:
			return
		case msg := <-w.inbox:
			ret := w.process(msg.Job)
			// ReturningJob precedes the next RequestJob: stats and state
			// settle before a new job can arrive.
			w.dispatcher.ReturningJob(ret)
			select {
			case <-w.done:
				return
			default:
				w.dispatcher.RequestJob(w.Ref())
			}
		}
	}
}

func (w *Worker) process(job jobmodel.JobInfo) jobmodel.ReturnJobInfo {
	var state interface{}
	if w.stateFn != nil {
		state = w.stateFn()
	}
	outcome, err := w.registry.Process(job, state)
	if err != nil {
		logger.ErrorF("job %d (%s) failed: %v", job.Id, job.Processor, err)
	}
	return jobmodel.ReturnJobInfo{Id: job.Id, Outcome: outcome}
}
