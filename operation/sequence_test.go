package operation_test

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.targetnav.dev/navcore/operation"
	"go.targetnav.dev/navcore/testutils/inject"
)

func TestSequenceOrder(t *testing.T) {
	ctx := context.Background()
	var order []string
	mk := func(name string, running int) *inject.Task {
		task := &inject.Task{NameStr: name, TickFunc: inject.TicksThenDone(running)}
		task.StartFunc = func(ctx context.Context) error {
			order = append(order, "start "+name)
			return nil
		}
		return task
	}
	first, second := mk("turn", 2), mk("drive", 1)
	seq := operation.NewSequence("leg", first, second)

	test.That(t, seq.Start(ctx), test.ShouldBeNil)
	test.That(t, seq.Current(), test.ShouldEqual, first)
	test.That(t, second.Starts, test.ShouldEqual, 0)

	for i := 0; i < 2; i++ {
		status, err := seq.Tick(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, status, test.ShouldEqual, operation.StatusRunning)
		test.That(t, second.Starts, test.ShouldEqual, 0)
	}
	// first reports done; second starts but is not ticked yet
	status, err := seq.Tick(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, operation.StatusRunning)
	test.That(t, second.Starts, test.ShouldEqual, 1)
	test.That(t, second.Ticks, test.ShouldEqual, 0)
	test.That(t, seq.Current(), test.ShouldEqual, second)

	status, _ = seq.Tick(ctx)
	test.That(t, status, test.ShouldEqual, operation.StatusRunning)
	status, _ = seq.Tick(ctx)
	test.That(t, status, test.ShouldEqual, operation.StatusDone)
	test.That(t, seq.Current(), test.ShouldBeNil)
	test.That(t, order, test.ShouldResemble, []string{"start turn", "start drive"})

	test.That(t, seq.Cancel(ctx), test.ShouldBeNil)
	test.That(t, first.Cancels+second.Cancels, test.ShouldEqual, 0)
}

func TestSequenceCancelReachesActiveChildOnly(t *testing.T) {
	ctx := context.Background()
	first := &inject.Task{NameStr: "a"}
	second := &inject.Task{NameStr: "b", TickFunc: inject.TicksThenDone(100)}
	third := &inject.Task{NameStr: "c"}
	inner := operation.NewSequence("inner", second, third)
	seq := operation.NewSequence("outer", first, inner)

	test.That(t, seq.Start(ctx), test.ShouldBeNil)
	seq.Tick(ctx)
	seq.Tick(ctx)
	test.That(t, seq.Current(), test.ShouldEqual, inner)
	test.That(t, inner.Current(), test.ShouldEqual, second)

	test.That(t, seq.Cancel(ctx), test.ShouldBeNil)
	test.That(t, first.Cancels, test.ShouldEqual, 0)
	test.That(t, second.Cancels, test.ShouldEqual, 1)
	test.That(t, third.Cancels, test.ShouldEqual, 0)
	test.That(t, third.Starts, test.ShouldEqual, 0)

	// a second cancel is a no-op
	test.That(t, seq.Cancel(ctx), test.ShouldBeNil)
	test.That(t, second.Cancels, test.ShouldEqual, 1)
}

func TestSequenceFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("tick error", func(t *testing.T) {
		bad := &inject.Task{NameStr: "bad", TickFunc: func(ctx context.Context) (operation.Status, error) {
			return operation.StatusRunning, errors.New("encoder unplugged")
		}}
		after := &inject.Task{NameStr: "after"}
		seq := operation.NewSequence("route", bad, after)
		test.That(t, seq.Start(ctx), test.ShouldBeNil)
		status, err := seq.Tick(ctx)
		test.That(t, status, test.ShouldEqual, operation.StatusFailed)
		test.That(t, err, test.ShouldBeError, "route: bad: encoder unplugged")
		test.That(t, after.Starts, test.ShouldEqual, 0)
	})

	t.Run("failed status stops the sequence", func(t *testing.T) {
		bad := &inject.Task{NameStr: "bad", TickFunc: func(ctx context.Context) (operation.Status, error) {
			return operation.StatusFailed, nil
		}}
		after := &inject.Task{NameStr: "after"}
		seq := operation.NewSequence("route", bad, after)
		test.That(t, seq.Start(ctx), test.ShouldBeNil)
		status, err := seq.Tick(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, status, test.ShouldEqual, operation.StatusFailed)
		test.That(t, after.Starts, test.ShouldEqual, 0)
	})

	t.Run("next child fails to start", func(t *testing.T) {
		first := &inject.Task{NameStr: "first"}
		second := &inject.Task{NameStr: "second", StartFunc: func(ctx context.Context) error {
			return errors.New("no heading")
		}}
		seq := operation.NewSequence("route", first, second)
		test.That(t, seq.Start(ctx), test.ShouldBeNil)
		status, err := seq.Tick(ctx)
		test.That(t, status, test.ShouldEqual, operation.StatusFailed)
		test.That(t, err, test.ShouldBeError, "route: starting second: no heading")
		test.That(t, seq.Cancel(ctx), test.ShouldBeNil)
		test.That(t, second.Cancels, test.ShouldEqual, 0)
	})

	t.Run("empty", func(t *testing.T) {
		seq := operation.NewSequence("empty")
		test.That(t, seq.Start(ctx), test.ShouldBeNil)
		status, err := seq.Tick(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, status, test.ShouldEqual, operation.StatusDone)
	})
}

func TestWithTimeout(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMock()
	inner := &inject.Task{NameStr: "search", TickFunc: inject.TicksThenDone(1000)}
	task := operation.WithTimeout(inner, 5*time.Second, clk)
	test.That(t, task.Name(), test.ShouldEqual, "search")

	test.That(t, task.Start(ctx), test.ShouldBeNil)
	clk.Add(4 * time.Second)
	status, err := task.Tick(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, operation.StatusRunning)

	clk.Add(time.Second)
	status, err = task.Tick(ctx)
	test.That(t, status, test.ShouldEqual, operation.StatusFailed)
	test.That(t, errors.Is(err, operation.ErrTimedOut), test.ShouldBeTrue)
	test.That(t, inner.Cancels, test.ShouldEqual, 1)
}

func TestStatus(t *testing.T) {
	test.That(t, operation.StatusRunning.Finished(), test.ShouldBeFalse)
	test.That(t, operation.StatusCancelled.Finished(), test.ShouldBeTrue)
	test.That(t, operation.StatusFailed.String(), test.ShouldEqual, "failed")
}
