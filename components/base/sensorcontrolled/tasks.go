package sensorcontrolled

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.targetnav.dev/navcore/collision"
	"go.targetnav.dev/navcore/components/base"
	"go.targetnav.dev/navcore/control"
	"go.targetnav.dev/navcore/kinematics"
	"go.targetnav.dev/navcore/logging"
	"go.targetnav.dev/navcore/operation"
)

const (
	// DefaultStraightPower is the power of a timed straight drive.
	DefaultStraightPower = 0.3
	// DefaultSidePower is the power of a one sided drive.
	DefaultSidePower = 0.2
)

// Deps are the collaborators shared by every drive task. Collision may be nil, which disables
// collision supervision.
type Deps struct {
	Drive     base.DriveActuator
	Heading   *HeadingController
	Collision *collision.Monitor
	Profile   *kinematics.Profile
	Clock     clock.Clock
	Logger    logging.Logger
}

func (d Deps) check() error {
	switch {
	case d.Drive == nil:
		return errors.New("drive task needs a drive actuator")
	case d.Heading == nil:
		return errors.New("drive task needs a heading controller")
	case d.Profile == nil:
		return errors.New("drive task needs a kinematic profile")
	case d.Clock == nil:
		return errors.New("drive task needs a clock")
	case d.Logger == nil:
		return errors.New("drive task needs a logger")
	}
	return nil
}

func (d Deps) resetCollision(ctx context.Context) error {
	if d.Collision == nil {
		return nil
	}
	return d.Collision.Reset(ctx)
}

// pollCollision reports an impact seen on this tick. A monitor still tripped from an earlier
// tick means nothing cancelled the task after the impact, so the tick fails instead.
func (d Deps) pollCollision(ctx context.Context) (bool, error) {
	if d.Collision == nil {
		return false, nil
	}
	if d.Collision.Tripped() {
		return false, collision.ErrCollisionDetected
	}
	return d.Collision.Poll(ctx)
}

// release stops the drive and disables the heading loop, whatever state they are in.
func (d Deps) release(ctx context.Context) error {
	err := d.Drive.Stop(ctx)
	d.Heading.Disable()
	return err
}

// fail releases the drive and reports err as a failed tick.
func (d Deps) fail(ctx context.Context, err error) (operation.Status, error) {
	return operation.StatusFailed, multierr.Combine(err, d.release(ctx))
}

// TurnTask turns the robot in place to a field angle.
type TurnTask struct {
	deps       Deps
	fieldAngle float64
	logger     logging.Logger
}

// NewTurnTask returns a task that turns to fieldAngle degrees.
func NewTurnTask(deps Deps, fieldAngle float64) *TurnTask {
	return &TurnTask{deps: deps, fieldAngle: fieldAngle}
}

// Name describes the turn.
func (t *TurnTask) Name() string {
	return fmt.Sprintf("turn to %.1f", t.fieldAngle)
}

// FieldAngle returns the target field angle.
func (t *TurnTask) FieldAngle() float64 {
	return t.fieldAngle
}

// Start re-arms the collision monitor and enables the heading loop toward the target.
func (t *TurnTask) Start(ctx context.Context) error {
	if err := t.deps.check(); err != nil {
		return err
	}
	t.logger = t.deps.Logger.Sublogger("turn")
	if err := t.deps.resetCollision(ctx); err != nil {
		return err
	}
	return t.deps.Heading.StartTurn(ctx, t.fieldAngle)
}

// Tick runs the heading loop and spins the drive until the turn settles.
func (t *TurnTask) Tick(ctx context.Context) (operation.Status, error) {
	collided, err := t.deps.pollCollision(ctx)
	if err != nil {
		return t.deps.fail(ctx, err)
	}
	if collided {
		return operation.StatusRunning, nil
	}
	if _, err := t.deps.Heading.Update(ctx); err != nil {
		return t.deps.fail(ctx, err)
	}
	speed, err := base.TotalSpeed(ctx, t.deps.Drive)
	if err != nil {
		return t.deps.fail(ctx, err)
	}
	if angleErr := t.deps.Heading.HeadingError(); t.deps.Heading.TurnSettled(angleErr, speed) {
		t.logger.CInfow(ctx, "turn settled", "field_angle", t.fieldAngle, "error", angleErr)
		return operation.StatusDone, t.deps.release(ctx)
	}
	left, right := t.deps.Heading.TurnPowers()
	if err := t.deps.Drive.SetDifferential(ctx, left, right); err != nil {
		return t.deps.fail(ctx, err)
	}
	return operation.StatusRunning, nil
}

// Cancel stops the drive and disables the heading loop.
func (t *TurnTask) Cancel(ctx context.Context) error {
	return t.deps.release(ctx)
}

// DriveTask drives straight for a distance along a trapezoidal power profile while holding the
// heading it started at.
type DriveTask struct {
	deps     Deps
	distance float64
	velocity float64
	logger   logging.Logger

	run *control.TrapezoidRun
}

// NewDriveTask returns a task that drives distance at up to velocity, both in profile units.
func NewDriveTask(deps Deps, distance, velocity float64) *DriveTask {
	return &DriveTask{deps: deps, distance: distance, velocity: velocity}
}

// Name describes the drive.
func (t *DriveTask) Name() string {
	return fmt.Sprintf("drive %.1f at %.1f", t.distance, t.velocity)
}

// Run returns the profile of the current run, nil before Start.
func (t *DriveTask) Run() *control.TrapezoidRun {
	return t.run
}

// Start plans the run. An invalid run commands nothing and fails on its first tick.
func (t *DriveTask) Start(ctx context.Context) error {
	if err := t.deps.check(); err != nil {
		return err
	}
	t.logger = t.deps.Logger.Sublogger("drive")
	t.run = control.NewTrapezoidRun(t.deps.Profile, t.distance, t.velocity)
	if !t.run.Valid() {
		return nil
	}
	t.logger.CDebugw(ctx, "planned run",
		"shape", t.run.Shape().String(),
		"accel_steps", t.run.AccelSteps(),
		"run_steps", t.run.RunSteps(),
		"accel_distance", t.run.AccelDistance())
	if err := t.deps.resetCollision(ctx); err != nil {
		return err
	}
	if err := t.deps.Drive.ResetDistance(ctx); err != nil {
		return err
	}
	return t.deps.Heading.StartHold(ctx)
}

// Tick advances the run by one step.
func (t *DriveTask) Tick(ctx context.Context) (operation.Status, error) {
	if !t.run.Valid() {
		t.logger.CWarnw(ctx, "not driving", "error", t.run.Err())
		return operation.StatusFailed, t.deps.release(ctx)
	}
	collided, err := t.deps.pollCollision(ctx)
	if err != nil {
		return t.deps.fail(ctx, err)
	}
	if collided {
		return operation.StatusRunning, nil
	}
	traveled, err := t.deps.Drive.Distance(ctx)
	if err != nil {
		return t.deps.fail(ctx, err)
	}
	if t.run.Finished(traveled) {
		t.run.Finish()
		t.logger.CInfow(ctx, "drive finished", "distance", traveled, "steps", t.run.Steps())
		return operation.StatusDone, t.deps.release(ctx)
	}
	power := t.run.Step()
	if _, err := t.deps.Heading.Update(ctx); err != nil {
		return t.deps.fail(ctx, err)
	}
	left, right, err := t.deps.Heading.StraightPowers(power)
	if err != nil {
		return t.deps.fail(ctx, err)
	}
	t.logger.CDebugw(ctx, "step", "phase", t.run.Phase().String(), "power", power, "distance", traveled)
	if err := t.deps.Drive.SetDifferential(ctx, left, right); err != nil {
		return t.deps.fail(ctx, err)
	}
	return operation.StatusRunning, nil
}

// Cancel stops the drive and disables the heading loop.
func (t *DriveTask) Cancel(ctx context.Context) error {
	if t.run != nil {
		t.run.Finish()
	}
	return t.deps.release(ctx)
}

// DriveStraight holds the starting heading at a fixed power for a fixed time.
type DriveStraight struct {
	deps     Deps
	power    float64
	duration time.Duration
	started  time.Time
}

// NewDriveStraight returns a timed straight drive.
func NewDriveStraight(deps Deps, power float64, duration time.Duration) *DriveStraight {
	return &DriveStraight{deps: deps, power: power, duration: duration}
}

// Name describes the drive.
func (t *DriveStraight) Name() string {
	return fmt.Sprintf("drive straight for %s", t.duration)
}

// Start enables the heading hold.
func (t *DriveStraight) Start(ctx context.Context) error {
	if err := t.deps.check(); err != nil {
		return err
	}
	t.started = t.deps.Clock.Now()
	return t.deps.Heading.StartHold(ctx)
}

// Tick drives until the duration has elapsed.
func (t *DriveStraight) Tick(ctx context.Context) (operation.Status, error) {
	if t.deps.Clock.Since(t.started) >= t.duration {
		return operation.StatusDone, t.deps.release(ctx)
	}
	if _, err := t.deps.Heading.Update(ctx); err != nil {
		return t.deps.fail(ctx, err)
	}
	left, right, err := t.deps.Heading.StraightPowers(t.power)
	if err != nil {
		return t.deps.fail(ctx, err)
	}
	if err := t.deps.Drive.SetDifferential(ctx, left, right); err != nil {
		return t.deps.fail(ctx, err)
	}
	return operation.StatusRunning, nil
}

// Cancel stops the drive and disables the heading loop.
func (t *DriveStraight) Cancel(ctx context.Context) error {
	return t.deps.release(ctx)
}

// Side is one side of a differential drive.
type Side int

const (
	// SideLeft is the left side.
	SideLeft Side = iota
	// SideRight is the right side.
	SideRight
)

func (s Side) String() string {
	if s == SideRight {
		return "right"
	}
	return "left"
}

// SideDrive powers one side of the drive for a fixed time, with the other side stopped.
type SideDrive struct {
	deps     Deps
	side     Side
	power    float64
	duration time.Duration
	started  time.Time
}

// NewSideDrive returns a timed one sided drive.
func NewSideDrive(deps Deps, side Side, power float64, duration time.Duration) *SideDrive {
	return &SideDrive{deps: deps, side: side, power: power, duration: duration}
}

// Name describes the drive.
func (t *SideDrive) Name() string {
	return fmt.Sprintf("drive %s for %s", t.side, t.duration)
}

// Start checks the power without commanding anything.
func (t *SideDrive) Start(ctx context.Context) error {
	if err := t.deps.check(); err != nil {
		return err
	}
	if err := base.CheckPowers(t.power, 0); err != nil {
		return err
	}
	t.started = t.deps.Clock.Now()
	return nil
}

// Tick drives until the duration has elapsed.
func (t *SideDrive) Tick(ctx context.Context) (operation.Status, error) {
	if t.deps.Clock.Since(t.started) >= t.duration {
		return operation.StatusDone, t.deps.release(ctx)
	}
	left, right := t.power, 0.0
	if t.side == SideRight {
		left, right = 0, t.power
	}
	if err := t.deps.Drive.SetDifferential(ctx, left, right); err != nil {
		return t.deps.fail(ctx, err)
	}
	return operation.StatusRunning, nil
}

// Cancel stops the drive.
func (t *SideDrive) Cancel(ctx context.Context) error {
	return t.deps.release(ctx)
}
