package inject

import (
	"context"

	"go.targetnav.dev/navcore/operation"
)

// Task is an injected task. Unset funcs succeed and Tick reports done.
type Task struct {
	NameStr    string
	StartFunc  func(ctx context.Context) error
	TickFunc   func(ctx context.Context) (operation.Status, error)
	CancelFunc func(ctx context.Context) error

	Starts, Ticks, Cancels int
}

// Name returns NameStr.
func (t *Task) Name() string {
	return t.NameStr
}

// Start calls the injected Start.
func (t *Task) Start(ctx context.Context) error {
	t.Starts++
	if t.StartFunc == nil {
		return nil
	}
	return t.StartFunc(ctx)
}

// Tick calls the injected Tick.
func (t *Task) Tick(ctx context.Context) (operation.Status, error) {
	t.Ticks++
	if t.TickFunc == nil {
		return operation.StatusDone, nil
	}
	return t.TickFunc(ctx)
}

// Cancel calls the injected Cancel.
func (t *Task) Cancel(ctx context.Context) error {
	t.Cancels++
	if t.CancelFunc == nil {
		return nil
	}
	return t.CancelFunc(ctx)
}

// TicksThenDone returns a TickFunc that reports running n times and then done.
func TicksThenDone(n int) func(ctx context.Context) (operation.Status, error) {
	count := 0
	return func(ctx context.Context) (operation.Status, error) {
		count++
		if count > n {
			return operation.StatusDone, nil
		}
		return operation.StatusRunning, nil
	}
}
