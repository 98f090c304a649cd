package operation

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.targetnav.dev/navcore/logging"
)

// Operation is a task scheduled for polling.
type Operation struct {
	ID      uuid.UUID
	Task    Task
	Started time.Time

	labels []string
}

// HasLabel returns true if this operation has a specific label.
func (o *Operation) HasLabel(label string) bool {
	return lo.Contains(o.labels, label)
}

// Labels returns the resources the operation holds.
func (o *Operation) Labels() []string {
	return o.labels
}

// TickHook runs at the start of every tick of Run, before any task is polled.
type TickHook func(ctx context.Context, dt time.Duration)

// Scheduler polls every active task once per tick on a single goroutine. Labels name the
// actuators and sensors a task holds; adding a task cancels the running tasks that hold any of
// its labels.
type Scheduler struct {
	mu     sync.Mutex
	clock  clock.Clock
	logger logging.Logger
	ops    []*Operation
	hooks  []TickHook

	abortReason error
}

// NewScheduler returns an idle scheduler.
func NewScheduler(clk clock.Clock, logger logging.Logger) *Scheduler {
	return &Scheduler{clock: clk, logger: logger}
}

// AddTickHook registers a hook for Run.
func (s *Scheduler) AddTickHook(hook TickHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Add cancels running tasks that share a label with the new one, then starts task. A task whose
// Start fails is not scheduled.
func (s *Scheduler) Add(ctx context.Context, task Task, labels ...string) (*Operation, error) {
	s.mu.Lock()
	conflicting, kept := lo.FilterReject(s.ops, func(op *Operation, _ int) bool {
		return lo.Some(op.labels, labels)
	})
	s.ops = kept
	s.mu.Unlock()

	var errs []error
	for _, op := range conflicting {
		s.logger.CInfow(ctx, "interrupting task", "task", op.Task.Name(), "by", task.Name())
		errs = append(errs, op.Task.Cancel(ctx))
	}
	if err := multierr.Combine(errs...); err != nil {
		return nil, errors.Wrap(err, "cancelling conflicting tasks")
	}

	if err := task.Start(ctx); err != nil {
		s.logger.CWarnw(ctx, "task failed to start", "task", task.Name(), "error", err)
		return nil, err
	}
	op := &Operation{ID: uuid.New(), Task: task, Started: s.clock.Now(), labels: labels}
	s.mu.Lock()
	s.ops = append(s.ops, op)
	s.mu.Unlock()
	s.logger.CDebugw(ctx, "task started", "task", task.Name(), "id", op.ID.String())
	return op, nil
}

// RequestAbort asks for every running task to be cancelled. It is safe to call from within a
// task's Tick; the cancellation happens as soon as that Tick returns. Only the first reason
// before the abort is honored is kept.
func (s *Scheduler) RequestAbort(reason error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.abortReason == nil {
		s.abortReason = reason
	}
}

// AbortPending reports whether an abort was requested and not yet honored.
func (s *Scheduler) AbortPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.abortReason != nil
}

// CancelAll cancels every running task.
func (s *Scheduler) CancelAll(ctx context.Context) error {
	s.mu.Lock()
	ops := s.ops
	s.ops = nil
	s.mu.Unlock()

	var errs []error
	for _, op := range ops {
		errs = append(errs, errors.Wrap(op.Task.Cancel(ctx), op.Task.Name()))
	}
	return multierr.Combine(errs...)
}

// Poll ticks every running task once and drops the ones that finish. Errors returned by tasks
// are logged and combined into the result.
func (s *Scheduler) Poll(ctx context.Context) error {
	s.mu.Lock()
	ops := append([]*Operation(nil), s.ops...)
	s.mu.Unlock()

	var errs []error
	for _, op := range ops {
		status, err := op.Task.Tick(ctx)
		if err != nil {
			s.logger.CWarnw(ctx, "task failed", "task", op.Task.Name(), "error", err)
			errs = append(errs, err)
			status = StatusFailed
		}
		if status.Finished() {
			s.remove(op)
			s.logger.CInfow(ctx, "task finished", "task", op.Task.Name(), "status", status.String(),
				"elapsed", s.clock.Since(op.Started).String())
		}
		if reason := s.takeAbort(); reason != nil {
			s.logger.CWarnw(ctx, "aborting all tasks", "reason", reason.Error())
			errs = append(errs, s.CancelAll(ctx))
			break
		}
	}
	return multierr.Combine(errs...)
}

// Running returns the scheduled operations.
func (s *Scheduler) Running() []*Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Operation(nil), s.ops...)
}

// Find returns the operation with id, or nil.
func (s *Scheduler) Find(id uuid.UUID) *Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, _ := lo.Find(s.ops, func(op *Operation) bool { return op.ID == id })
	return op
}

// Idle reports whether no task is scheduled.
func (s *Scheduler) Idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ops) == 0
}

// Run polls on a ticker of period until no task is left or ctx is done, in which case every
// running task is cancelled.
func (s *Scheduler) Run(ctx context.Context, period time.Duration) error {
	ticker := s.clock.Ticker(period)
	defer ticker.Stop()

	var errs []error
	for !s.Idle() {
		if !utils.SelectContextOrWaitChan(ctx, ticker.C) {
			cancelCtx := context.WithoutCancel(ctx)
			return multierr.Combine(append(errs, ctx.Err(), s.CancelAll(cancelCtx))...)
		}
		s.mu.Lock()
		hooks := s.hooks
		s.mu.Unlock()
		for _, hook := range hooks {
			hook(ctx, period)
		}
		if err := s.Poll(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return multierr.Combine(errs...)
}

func (s *Scheduler) remove(target *Operation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = lo.Without(s.ops, target)
}

func (s *Scheduler) takeAbort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reason := s.abortReason
	s.abortReason = nil
	return reason
}
