package operation

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// ErrTimedOut is returned by a task that exceeded its time budget.
var ErrTimedOut = errors.New("task timed out")

type timeoutTask struct {
	Task
	timeout  time.Duration
	clock    clock.Clock
	deadline time.Time
}

// WithTimeout cancels task once timeout has elapsed since Start. A timed out task reports
// StatusFailed with ErrTimedOut.
func WithTimeout(task Task, timeout time.Duration, clk clock.Clock) Task {
	return &timeoutTask{Task: task, timeout: timeout, clock: clk}
}

func (t *timeoutTask) Start(ctx context.Context) error {
	t.deadline = t.clock.Now().Add(t.timeout)
	return t.Task.Start(ctx)
}

func (t *timeoutTask) Tick(ctx context.Context) (Status, error) {
	if !t.clock.Now().Before(t.deadline) {
		if err := t.Task.Cancel(ctx); err != nil {
			return StatusFailed, errors.Wrap(err, t.Name())
		}
		return StatusFailed, errors.Wrapf(ErrTimedOut, "%s after %s", t.Name(), t.timeout)
	}
	return t.Task.Tick(ctx)
}
