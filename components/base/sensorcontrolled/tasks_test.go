package sensorcontrolled

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.targetnav.dev/navcore/collision"
	"go.targetnav.dev/navcore/components/base/fake"
	"go.targetnav.dev/navcore/control"
	"go.targetnav.dev/navcore/kinematics"
	"go.targetnav.dev/navcore/logging"
	"go.targetnav.dev/navcore/operation"
	"go.targetnav.dev/navcore/testutils/inject"
	"go.targetnav.dev/navcore/utils"
)

type simulation struct {
	robot  *fake.Robot
	clock  *clock.Mock
	deps   Deps
	aborts []error
}

func newSimulation(t *testing.T) *simulation {
	t.Helper()
	logger := logging.NewTestLogger(t)
	profile := kinematics.Default()
	robot, err := fake.NewRobot(fake.ProfileConfig(profile))
	test.That(t, err, test.ShouldBeNil)
	hc, err := NewHeadingController(robot, control.HeadingPIDConfig(), profile.Tick(), logger)
	test.That(t, err, test.ShouldBeNil)

	sim := &simulation{robot: robot, clock: clock.NewMock()}
	monitor := collision.NewMonitor(robot, func(reason error) {
		sim.aborts = append(sim.aborts, reason)
	}, logger)
	sim.deps = Deps{
		Drive:     robot,
		Heading:   hc,
		Collision: monitor,
		Profile:   profile,
		Clock:     sim.clock,
		Logger:    logger,
	}
	return sim
}

// tick advances the robot and the clock by one control period, then ticks task.
func (sim *simulation) tick(ctx context.Context, task operation.Task) (operation.Status, error) {
	dt := sim.deps.Profile.Tick()
	sim.robot.Step(dt)
	sim.clock.Add(dt)
	return task.Tick(ctx)
}

func (sim *simulation) run(ctx context.Context, t *testing.T, task operation.Task, maxTicks int) (operation.Status, error) {
	t.Helper()
	test.That(t, task.Start(ctx), test.ShouldBeNil)
	for i := 0; i < maxTicks; i++ {
		status, err := sim.tick(ctx, task)
		if err != nil || status.Finished() {
			return status, err
		}
	}
	t.Fatalf("%s still running after %d ticks", task.Name(), maxTicks)
	return operation.StatusRunning, nil
}

func (sim *simulation) assertReleased(t *testing.T) {
	t.Helper()
	left, right := sim.robot.Powers()
	test.That(t, left, test.ShouldEqual, 0)
	test.That(t, right, test.ShouldEqual, 0)
	test.That(t, sim.deps.Heading.Enabled(), test.ShouldBeFalse)
}

func TestDriveTask(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		distance, velocity float64
		shape              control.Shape
	}{
		{100, 24, control.ShapeTrapezoid},
		{5, 24, control.ShapeTriangle},
	} {
		sim := newSimulation(t)
		task := NewDriveTask(sim.deps, tc.distance, tc.velocity)
		status, err := sim.run(ctx, t, task, 2000)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, status, test.ShouldEqual, operation.StatusDone)
		test.That(t, task.Run().Shape(), test.ShouldEqual, tc.shape)
		test.That(t, task.Run().Phase(), test.ShouldEqual, control.PhaseDone)

		traveled, err := sim.robot.Distance(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, traveled, test.ShouldBeGreaterThanOrEqualTo, tc.distance)
		// one tick of overshoot at most
		test.That(t, traveled, test.ShouldBeLessThan, tc.distance+sim.deps.Profile.MaxVelocity()*0.02)
		test.That(t, math.Abs(sim.robot.Position().X()), test.ShouldBeLessThan, 0.5)
		test.That(t, sim.aborts, test.ShouldBeEmpty)
		sim.assertReleased(t)
	}
}

func TestDriveTaskCoast(t *testing.T) {
	ctx := context.Background()
	sim := newSimulation(t)
	task := NewDriveTask(sim.deps, 24, 24)
	status, err := sim.run(ctx, t, task, 1000)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, operation.StatusDone)

	// the run ends at creep speed, not above the planned velocity
	left, right, err := sim.robot.WheelSpeeds(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, (left+right)/2, test.ShouldBeLessThan, 10)

	for i := 0; i < 50; i++ {
		sim.robot.Step(sim.deps.Profile.Tick())
	}
	traveled, err := sim.robot.Distance(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, traveled, test.ShouldAlmostEqual, 24, 1.5)
	test.That(t, sim.robot.Position().Y(), test.ShouldAlmostEqual, 24, 1.5)
}

func TestDriveTaskFirstPower(t *testing.T) {
	ctx := context.Background()
	sim := newSimulation(t)
	task := NewDriveTask(sim.deps, 50, 24)
	test.That(t, task.Start(ctx), test.ShouldBeNil)
	status, err := sim.tick(ctx, task)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, operation.StatusRunning)
	left, right := sim.robot.Powers()
	want := sim.deps.Profile.StartPower() + sim.deps.Profile.PowerPerStep()
	test.That(t, left, test.ShouldAlmostEqual, want)
	test.That(t, right, test.ShouldAlmostEqual, want)
	test.That(t, task.Cancel(ctx), test.ShouldBeNil)
	sim.assertReleased(t)
}

func TestDriveTaskInvalidRun(t *testing.T) {
	ctx := context.Background()
	logger, logs := logging.NewObservedTestLogger(t)
	var commands, stops, resets int
	drive := &inject.DriveActuator{
		SetDifferentialFunc: func(ctx context.Context, left, right float64) error {
			commands++
			return nil
		},
		StopFunc: func(ctx context.Context) error {
			stops++
			return nil
		},
		ResetDistanceFunc: func(ctx context.Context) error {
			resets++
			return nil
		},
	}
	var yaw float64
	hc, _ := newTestController(t, &yaw)
	deps := Deps{Drive: drive, Heading: hc, Profile: kinematics.Default(), Clock: clock.NewMock(), Logger: logger}

	for _, velocity := range []float64{0, -5, 1000} {
		task := NewDriveTask(deps, 24, velocity)
		test.That(t, task.Start(ctx), test.ShouldBeNil)
		status, err := task.Tick(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, status, test.ShouldEqual, operation.StatusFailed)
		test.That(t, errors.Is(task.Run().Err(), control.ErrInvalidRun), test.ShouldBeTrue)
	}
	test.That(t, commands, test.ShouldEqual, 0)
	test.That(t, resets, test.ShouldEqual, 0)
	test.That(t, stops, test.ShouldEqual, 3)
	test.That(t, hc.Enabled(), test.ShouldBeFalse)
	test.That(t, logs.FilterMessage("not driving").Len(), test.ShouldEqual, 3)
}

func TestDriveTaskCollision(t *testing.T) {
	ctx := context.Background()
	sim := newSimulation(t)
	task := NewDriveTask(sim.deps, 200, 24)
	test.That(t, task.Start(ctx), test.ShouldBeNil)
	for i := 0; i < 20; i++ {
		status, err := sim.tick(ctx, task)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, status, test.ShouldEqual, operation.StatusRunning)
	}
	test.That(t, sim.aborts, test.ShouldBeEmpty)

	steps := task.Run().Steps()
	left, right := sim.robot.Powers()
	sim.robot.Bump(r3.Vector{X: 1.5})
	status, err := sim.tick(ctx, task)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, operation.StatusRunning)
	test.That(t, sim.aborts, test.ShouldHaveLength, 1)
	test.That(t, errors.Is(sim.aborts[0], collision.ErrCollisionDetected), test.ShouldBeTrue)

	// no step was taken and nothing new was commanded on the collision tick
	test.That(t, task.Run().Steps(), test.ShouldEqual, steps)
	newLeft, newRight := sim.robot.Powers()
	test.That(t, newLeft, test.ShouldEqual, left)
	test.That(t, newRight, test.ShouldEqual, right)

	test.That(t, task.Cancel(ctx), test.ShouldBeNil)
	sim.assertReleased(t)
	test.That(t, task.Run().Phase(), test.ShouldEqual, control.PhaseDone)
}

func TestDriveTaskCollisionWithoutAbort(t *testing.T) {
	ctx := context.Background()
	sim := newSimulation(t)
	sim.deps.Collision = collision.NewMonitor(sim.robot, nil, logging.NewTestLogger(t))
	task := NewDriveTask(sim.deps, 200, 24)
	test.That(t, task.Start(ctx), test.ShouldBeNil)
	for i := 0; i < 20; i++ {
		status, err := sim.tick(ctx, task)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, status, test.ShouldEqual, operation.StatusRunning)
	}

	sim.robot.Bump(r3.Vector{X: 1.5})
	status, err := sim.tick(ctx, task)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, operation.StatusRunning)

	// nothing cancelled the drive, so it stops itself on the next tick
	status, err = sim.tick(ctx, task)
	test.That(t, status, test.ShouldEqual, operation.StatusFailed)
	test.That(t, errors.Is(err, collision.ErrCollisionDetected), test.ShouldBeTrue)
	sim.assertReleased(t)
	test.That(t, task.Run().Phase(), test.ShouldEqual, control.PhaseDone)

	for i := 0; i < 20; i++ {
		sim.robot.Step(sim.deps.Profile.Tick())
	}
	left, right := sim.robot.Powers()
	test.That(t, left, test.ShouldEqual, 0)
	test.That(t, right, test.ShouldEqual, 0)
}

func TestTurnTaskCollisionWithoutAbort(t *testing.T) {
	ctx := context.Background()
	sim := newSimulation(t)
	sim.deps.Collision = collision.NewMonitor(sim.robot, nil, logging.NewTestLogger(t))
	task := NewTurnTask(sim.deps, 180)
	test.That(t, task.Start(ctx), test.ShouldBeNil)
	for i := 0; i < 5; i++ {
		status, err := sim.tick(ctx, task)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, status, test.ShouldEqual, operation.StatusRunning)
	}

	sim.robot.Bump(r3.Vector{Y: -1.5})
	status, err := sim.tick(ctx, task)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, operation.StatusRunning)
	status, err = sim.tick(ctx, task)
	test.That(t, status, test.ShouldEqual, operation.StatusFailed)
	test.That(t, errors.Is(err, collision.ErrCollisionDetected), test.ShouldBeTrue)
	sim.assertReleased(t)
}

func TestDriveTaskErrors(t *testing.T) {
	ctx := context.Background()
	var yaw float64
	hc, _ := newTestController(t, &yaw)
	var stops int
	drive := &inject.DriveActuator{
		ResetDistanceFunc: func(ctx context.Context) error { return nil },
		DistanceFunc: func(ctx context.Context) (float64, error) {
			return 0, errors.New("encoder fault")
		},
		StopFunc: func(ctx context.Context) error {
			stops++
			return errors.New("motor controller offline")
		},
	}
	deps := Deps{Drive: drive, Heading: hc, Profile: kinematics.Default(), Clock: clock.NewMock(), Logger: logging.NewTestLogger(t)}
	task := NewDriveTask(deps, 24, 24)
	test.That(t, task.Start(ctx), test.ShouldBeNil)
	test.That(t, hc.Enabled(), test.ShouldBeTrue)
	status, err := task.Tick(ctx)
	test.That(t, status, test.ShouldEqual, operation.StatusFailed)
	test.That(t, err, test.ShouldBeError, "encoder fault; motor controller offline")
	test.That(t, stops, test.ShouldEqual, 1)
	test.That(t, hc.Enabled(), test.ShouldBeFalse)

	t.Run("missing deps", func(t *testing.T) {
		task := NewDriveTask(Deps{}, 24, 24)
		test.That(t, task.Start(ctx), test.ShouldBeError, "drive task needs a drive actuator")
	})
}

func TestTurnTask(t *testing.T) {
	ctx := context.Background()
	sim := newSimulation(t)
	sim.deps.Heading.SetSpeedTolerance(2)
	task := NewTurnTask(sim.deps, 0)
	test.That(t, task.Name(), test.ShouldEqual, "turn to 0.0")
	status, err := sim.run(ctx, t, task, 1000)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, operation.StatusDone)
	test.That(t, sim.robot.Heading(), test.ShouldAlmostEqual, 90, 5)
	test.That(t, sim.robot.Position().R(), test.ShouldAlmostEqual, 0, 1e-6)
	test.That(t, sim.aborts, test.ShouldBeEmpty)
	sim.assertReleased(t)
}

func TestTurnTaskCancel(t *testing.T) {
	ctx := context.Background()
	sim := newSimulation(t)
	task := NewTurnTask(sim.deps, 180)
	test.That(t, task.Start(ctx), test.ShouldBeNil)
	for i := 0; i < 5; i++ {
		status, err := sim.tick(ctx, task)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, status, test.ShouldEqual, operation.StatusRunning)
	}
	left, right := sim.robot.Powers()
	// field angle 180 is yaw -90, a counterclockwise turn
	test.That(t, left, test.ShouldBeLessThan, 0)
	test.That(t, right, test.ShouldBeGreaterThan, 0)

	test.That(t, task.Cancel(ctx), test.ShouldBeNil)
	sim.assertReleased(t)
}

func TestDriveStraight(t *testing.T) {
	ctx := context.Background()
	sim := newSimulation(t)
	task := NewDriveStraight(sim.deps, DefaultStraightPower, time.Second)
	test.That(t, task.Name(), test.ShouldEqual, "drive straight for 1s")
	ticks := 0
	test.That(t, task.Start(ctx), test.ShouldBeNil)
	for {
		status, err := sim.tick(ctx, task)
		test.That(t, err, test.ShouldBeNil)
		ticks++
		if status.Finished() {
			test.That(t, status, test.ShouldEqual, operation.StatusDone)
			break
		}
	}
	test.That(t, ticks, test.ShouldEqual, 50)
	test.That(t, sim.robot.Position().Y(), test.ShouldBeGreaterThan, 10)
	sim.assertReleased(t)

	t.Run("power out of range", func(t *testing.T) {
		task := NewDriveStraight(sim.deps, 1.2, time.Second)
		test.That(t, task.Start(ctx), test.ShouldBeNil)
		status, err := sim.tick(ctx, task)
		test.That(t, status, test.ShouldEqual, operation.StatusFailed)
		test.That(t, utils.IsDomainError(err), test.ShouldBeTrue)
		sim.assertReleased(t)
	})
}

func TestSideDrive(t *testing.T) {
	ctx := context.Background()
	sim := newSimulation(t)
	task := NewSideDrive(sim.deps, SideLeft, DefaultSidePower, 500*time.Millisecond)
	test.That(t, task.Name(), test.ShouldEqual, "drive left for 500ms")
	status, err := sim.run(ctx, t, task, 100)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, operation.StatusDone)
	// the left side pushes the robot clockwise
	test.That(t, sim.robot.Heading(), test.ShouldBeGreaterThan, 0)
	sim.assertReleased(t)

	right := NewSideDrive(sim.deps, SideRight, DefaultSidePower, time.Second)
	test.That(t, right.Start(ctx), test.ShouldBeNil)
	_, err = sim.tick(ctx, right)
	test.That(t, err, test.ShouldBeNil)
	l, r := sim.robot.Powers()
	test.That(t, l, test.ShouldEqual, 0)
	test.That(t, r, test.ShouldEqual, DefaultSidePower)
	test.That(t, right.Cancel(ctx), test.ShouldBeNil)

	bad := NewSideDrive(sim.deps, SideLeft, -1.5, time.Second)
	test.That(t, utils.IsRangeError(bad.Start(ctx)), test.ShouldBeTrue)
}
