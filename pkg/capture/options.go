// Package capture holds the two scheduled jobs that keep the capture worker
// fed: the auto-queuer commits upcoming events to the queue, and the queue
// checker launches the worker when queued work is about to start and no
// worker is heartbeating.
//
// Neither job takes a lock. Overlapping auto-queue runs are made safe by the
// store's conditional insert. Overlapping checker runs can both launch the
// worker; that race is accepted and absorbed by the worker.
package capture

import (
	"time"

	"github.com/google/uuid"
)

// Clock returns the current time. Each run reads it exactly once.
type Clock func() time.Time

type options struct {
	clock Clock
}

// Option configures a job
type Option func(*options)

// WithClock overrides the job's time source
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

func applyOptions(opts []Option) options {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewRunID returns a fresh identifier for one job invocation
func NewRunID() string {
	return uuid.NewString()
}
