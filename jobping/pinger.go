package jobping

import (
	"time"

	"oss.nandlabs.io/jobforge/fnutils"
	"oss.nandlabs.io/jobforge/lifecycle"
)

// DefaultInterval is how often the pinger ticks when no Option overrides
// it, matching spec.md §4.5's fixed 1-second cadence.
const DefaultInterval = time.Second

// Pool is whatever the pinger wakes up on each tick. jobserver.Pool
// satisfies this.
type Pool interface {
	CheckDb()
}

// Option configures a Pinger at construction.
type Option func(*Pinger)

// WithInterval overrides DefaultInterval, mainly for tests.
func WithInterval(d time.Duration) Option {
	return func(p *Pinger) { p.interval = d }
}

// Pinger is a lifecycle.Component that sends one CheckDb sweep per tick.
type Pinger struct {
	*lifecycle.SimpleComponent

	pool     Pool
	interval time.Duration
	done     chan struct{}
}

// New builds a Pinger that wakes pool every interval (DefaultInterval
// unless overridden).
func New(pool Pool, opts ...Option) *Pinger {
	p := &Pinger{
		pool:     pool,
		interval: DefaultInterval,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.SimpleComponent = &lifecycle.SimpleComponent{
		CompId:    "jobping",
		StartFunc: p.start,
		StopFunc:  p.stop,
	}
	return p
}

func (p *Pinger) start() error {
	go p.loop()
	return nil
}

func (p *Pinger) stop() error {
	close(p.done)
	return nil
}

// loop is the self-rearming "sleep, then tick, forever until canceled"
// shape fnutils.ExecuteAfter already expresses; each firing re-arms the
// next wait.
func (p *Pinger) loop() {
	for {
		select {
		case <-p.done:
			return
		default:
		}
		fnutils.ExecuteAfter(p.tick, p.interval)
	}
}

func (p *Pinger) tick() {
	select {
	case <-p.done:
		return
	default:
		p.pool.CheckDb()
	}
}
