package jobrecur

import (
	"context"
	"time"

	"oss.nandlabs.io/jobforge/fnutils"
	"oss.nandlabs.io/jobforge/jobmodel"
	"oss.nandlabs.io/jobforge/l3"
	"oss.nandlabs.io/jobforge/lifecycle"
)

var logger = l3.Get()

// Enqueuer is whatever the driver hands new job clones to. jobserver.Pool
// and jobserver.Thread both satisfy this.
type Enqueuer interface {
	NewJob(ctx context.Context, info jobmodel.NewJobInfo) (jobmodel.JobInfo, error)
}

// Driver is a lifecycle.Component that enqueues template once on start and
// again every period thereafter.
type Driver struct {
	*lifecycle.SimpleComponent

	enqueuer Enqueuer
	template jobmodel.NewJobInfo
	period   time.Duration
	done     chan struct{}
}

// New builds a Driver that enqueues a clone of template through enqueuer
// every period, starting with one immediate enqueue.
func New(enqueuer Enqueuer, template jobmodel.NewJobInfo, period time.Duration) *Driver {
	d := &Driver{
		enqueuer: enqueuer,
		template: template,
		period:   period,
		done:     make(chan struct{}),
	}
	d.SimpleComponent = &lifecycle.SimpleComponent{
		CompId:    "jobrecur:" + template.Processor,
		StartFunc: d.start,
		StopFunc:  d.stop,
	}
	return d
}

func (d *Driver) start() error {
	go d.loop()
	return nil
}

func (d *Driver) stop() error {
	close(d.done)
	return nil
}

func (d *Driver) loop() {
	d.enqueue()
	for {
		select {
		case <-d.done:
			return
		default:
		}
		fnutils.ExecuteAfter(d.tick, d.period)
	}
}

func (d *Driver) tick() {
	select {
	case <-d.done:
		return
	default:
		d.enqueue()
	}
}

func (d *Driver) enqueue() {
	clone := d.template
	if _, err := d.enqueuer.NewJob(context.Background(), clone); err != nil {
		logger.ErrorF("jobrecur: enqueue %s failed: %v", d.template.Processor, err)
	}
}
