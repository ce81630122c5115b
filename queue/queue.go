// Package queue enqueues typed jobs for the out-of-process workers.
//
// Every driver is at-least-once: an Enqueue that returns nil has handed the
// job to the backend, and nothing is ever rolled back.
package queue

import (
	"context"
)

// Queue is the producer side of the job queue
type Queue interface {
	Enqueue(ctx context.Context, job string, args ...any) error
	Close() error
}

// envelope is the job body shared by every driver, in Resque's wire shape
type envelope struct {
	Class string `json:"class"`
	Args  []any  `json:"args"`
}

func newEnvelope(job string, args []any) envelope {
	if args == nil {
		args = []any{}
	}
	return envelope{Class: job, Args: args}
}
