// Package operation runs cooperative, tick-driven tasks and composes them.
package operation

import (
	"context"
)

// Status is what a task reports after a tick.
type Status int

const (
	// StatusRunning means the task wants another tick.
	StatusRunning Status = iota
	// StatusDone means the task completed.
	StatusDone
	// StatusFailed means the task stopped on an error or invalid input.
	StatusFailed
	// StatusCancelled means the task was cancelled before completing.
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
	}
	return "cancelled"
}

// Finished reports whether the status is terminal.
func (s Status) Finished() bool {
	return s != StatusRunning
}

// A Task is polled once per control tick and must never block.
//
// Start is called once before the first Tick. An error from Start means the task commanded
// nothing and will not be ticked. Tick is called until it reports a terminal status; a task that
// reports a terminal status has already released its actuators. Cancel may be called between
// ticks of a started, unfinished task and must unconditionally stop every actuator the task owns
// and disable any control loop it enabled.
type Task interface {
	Name() string
	Start(ctx context.Context) error
	Tick(ctx context.Context) (Status, error)
	Cancel(ctx context.Context) error
}
