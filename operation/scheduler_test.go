package operation_test

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.targetnav.dev/navcore/logging"
	"go.targetnav.dev/navcore/operation"
	"go.targetnav.dev/navcore/testutils/inject"
)

func TestSchedulerPoll(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	sched := operation.NewScheduler(clock.NewMock(), logger)
	test.That(t, sched.Idle(), test.ShouldBeTrue)

	short := &inject.Task{NameStr: "short", TickFunc: inject.TicksThenDone(1)}
	long := &inject.Task{NameStr: "long", TickFunc: inject.TicksThenDone(3)}
	shortOp, err := sched.Add(ctx, short, "drive")
	test.That(t, err, test.ShouldBeNil)
	_, err = sched.Add(ctx, long, "camera")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sched.Running(), test.ShouldHaveLength, 2)
	test.That(t, sched.Find(shortOp.ID), test.ShouldEqual, shortOp)
	test.That(t, shortOp.HasLabel("drive"), test.ShouldBeTrue)
	test.That(t, shortOp.HasLabel("camera"), test.ShouldBeFalse)

	test.That(t, sched.Poll(ctx), test.ShouldBeNil)
	test.That(t, sched.Running(), test.ShouldHaveLength, 2)
	test.That(t, sched.Poll(ctx), test.ShouldBeNil)
	test.That(t, sched.Running(), test.ShouldHaveLength, 1)
	test.That(t, sched.Find(shortOp.ID), test.ShouldBeNil)

	for i := 0; i < 2; i++ {
		test.That(t, sched.Poll(ctx), test.ShouldBeNil)
	}
	test.That(t, sched.Idle(), test.ShouldBeTrue)
	test.That(t, long.Ticks, test.ShouldEqual, 4)
	test.That(t, long.Cancels, test.ShouldEqual, 0)
}

func TestSchedulerLabelConflict(t *testing.T) {
	ctx := context.Background()
	logger, logs := logging.NewObservedTestLogger(t)
	sched := operation.NewScheduler(clock.NewMock(), logger)

	running := &inject.Task{NameStr: "vector drive", TickFunc: inject.TicksThenDone(100)}
	unrelated := &inject.Task{NameStr: "camera", TickFunc: inject.TicksThenDone(100)}
	_, err := sched.Add(ctx, running, "drive", "heading")
	test.That(t, err, test.ShouldBeNil)
	_, err = sched.Add(ctx, unrelated, "camera")
	test.That(t, err, test.ShouldBeNil)

	next := &inject.Task{NameStr: "straight", TickFunc: inject.TicksThenDone(100)}
	_, err = sched.Add(ctx, next, "drive")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, running.Cancels, test.ShouldEqual, 1)
	test.That(t, unrelated.Cancels, test.ShouldEqual, 0)
	test.That(t, sched.Running(), test.ShouldHaveLength, 2)
	test.That(t, logs.FilterMessage("interrupting task").Len(), test.ShouldEqual, 1)

	t.Run("start failure is not scheduled", func(t *testing.T) {
		broken := &inject.Task{NameStr: "broken", StartFunc: func(ctx context.Context) error {
			return errors.New("no profile")
		}}
		op, err := sched.Add(ctx, broken, "drive")
		test.That(t, err, test.ShouldBeError, "no profile")
		test.That(t, op, test.ShouldBeNil)
		test.That(t, next.Cancels, test.ShouldEqual, 1)
		test.That(t, sched.Running(), test.ShouldHaveLength, 1)
	})
}

func TestSchedulerAbort(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	sched := operation.NewScheduler(clock.NewMock(), logger)

	reason := errors.New("collision")
	first := &inject.Task{NameStr: "drive", TickFunc: func(ctx context.Context) (operation.Status, error) {
		sched.RequestAbort(reason)
		sched.RequestAbort(errors.New("ignored"))
		return operation.StatusRunning, nil
	}}
	second := &inject.Task{NameStr: "other", TickFunc: inject.TicksThenDone(100)}
	_, err := sched.Add(ctx, first)
	test.That(t, err, test.ShouldBeNil)
	_, err = sched.Add(ctx, second)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, sched.Poll(ctx), test.ShouldBeNil)
	test.That(t, sched.AbortPending(), test.ShouldBeFalse)
	test.That(t, sched.Idle(), test.ShouldBeTrue)
	test.That(t, first.Cancels, test.ShouldEqual, 1)
	test.That(t, second.Cancels, test.ShouldEqual, 1)
	// the abort lands before the second task is ticked
	test.That(t, second.Ticks, test.ShouldEqual, 0)
}

func TestSchedulerTaskError(t *testing.T) {
	ctx := context.Background()
	sched := operation.NewScheduler(clock.NewMock(), logging.NewTestLogger(t))
	failing := &inject.Task{NameStr: "turn", TickFunc: func(ctx context.Context) (operation.Status, error) {
		return operation.StatusRunning, errors.New("heading lost")
	}}
	_, err := sched.Add(ctx, failing)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sched.Poll(ctx), test.ShouldBeError, "heading lost")
	test.That(t, sched.Idle(), test.ShouldBeTrue)
	test.That(t, failing.Cancels, test.ShouldEqual, 0)
}

func TestSchedulerRun(t *testing.T) {
	logger := logging.NewTestLogger(t)

	t.Run("runs until idle", func(t *testing.T) {
		sched := operation.NewScheduler(clock.New(), logger)
		hookCalls := 0
		sched.AddTickHook(func(ctx context.Context, dt time.Duration) {
			hookCalls++
			test.That(t, dt, test.ShouldEqual, time.Millisecond)
		})
		task := &inject.Task{NameStr: "drive", TickFunc: inject.TicksThenDone(4)}
		_, err := sched.Add(context.Background(), task)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, sched.Run(context.Background(), time.Millisecond), test.ShouldBeNil)
		test.That(t, task.Ticks, test.ShouldEqual, 5)
		test.That(t, hookCalls, test.ShouldEqual, 5)
	})

	t.Run("context cancel cancels tasks", func(t *testing.T) {
		sched := operation.NewScheduler(clock.New(), logger)
		task := &inject.Task{NameStr: "drive", TickFunc: inject.TicksThenDone(1 << 30)}
		_, err := sched.Add(context.Background(), task)
		test.That(t, err, test.ShouldBeNil)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		err = sched.Run(ctx, time.Millisecond)
		test.That(t, errors.Is(err, context.DeadlineExceeded), test.ShouldBeTrue)
		test.That(t, task.Cancels, test.ShouldEqual, 1)
		test.That(t, sched.Idle(), test.ShouldBeTrue)
	})
}
