package operation

import (
	"context"

	"github.com/pkg/errors"
)

// Sequence runs tasks one after another. Each task starts only after the previous one reports
// done; any other terminal status ends the sequence with that status.
type Sequence struct {
	name   string
	tasks  []Task
	idx    int
	active bool
}

// NewSequence returns a sequence of tasks.
func NewSequence(name string, tasks ...Task) *Sequence {
	return &Sequence{name: name, tasks: tasks}
}

// Name returns the sequence name.
func (s *Sequence) Name() string { return s.name }

// Tasks returns the child tasks.
func (s *Sequence) Tasks() []Task { return s.tasks }

// Current returns the child that is running, or nil.
func (s *Sequence) Current() Task {
	if !s.active {
		return nil
	}
	return s.tasks[s.idx]
}

// Start starts the first child.
func (s *Sequence) Start(ctx context.Context) error {
	s.idx = 0
	s.active = false
	if len(s.tasks) == 0 {
		return nil
	}
	return s.startCurrent(ctx)
}

// Tick ticks the running child and starts the next one when it is done.
func (s *Sequence) Tick(ctx context.Context) (Status, error) {
	if !s.active {
		return StatusDone, nil
	}
	status, err := s.tasks[s.idx].Tick(ctx)
	if err != nil {
		s.active = false
		return StatusFailed, errors.Wrapf(err, "%s: %s", s.name, s.tasks[s.idx].Name())
	}
	switch status {
	case StatusRunning:
		return StatusRunning, nil
	case StatusDone:
		s.active = false
		s.idx++
		if s.idx >= len(s.tasks) {
			return StatusDone, nil
		}
		if err := s.startCurrent(ctx); err != nil {
			return StatusFailed, err
		}
		return StatusRunning, nil
	case StatusFailed, StatusCancelled:
	}
	s.active = false
	return status, nil
}

// Cancel cancels the running child only. Children that finished or never started are untouched.
func (s *Sequence) Cancel(ctx context.Context) error {
	if !s.active {
		return nil
	}
	s.active = false
	return errors.Wrapf(s.tasks[s.idx].Cancel(ctx), "%s", s.name)
}

func (s *Sequence) startCurrent(ctx context.Context) error {
	if err := s.tasks[s.idx].Start(ctx); err != nil {
		return errors.Wrapf(err, "%s: starting %s", s.name, s.tasks[s.idx].Name())
	}
	s.active = true
	return nil
}
