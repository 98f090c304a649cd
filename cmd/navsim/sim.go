package main

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.targetnav.dev/navcore/collision"
	"go.targetnav.dev/navcore/components/base/fake"
	"go.targetnav.dev/navcore/components/base/sensorcontrolled"
	camerafake "go.targetnav.dev/navcore/components/camera/fake"
	"go.targetnav.dev/navcore/config"
	"go.targetnav.dev/navcore/kinematics"
	"go.targetnav.dev/navcore/logging"
	"go.targetnav.dev/navcore/operation"
	"go.targetnav.dev/navcore/services/navigation"
	"go.targetnav.dev/navcore/spatialmath"
)

// Labels for the resources a simulated task holds.
const (
	driveLabel  = "drive"
	cameraLabel = "camera"
)

// simulation is a fake robot and camera wired to a scheduler.
type simulation struct {
	cfg     *config.Config
	profile *kinematics.Profile
	robot   *fake.Robot
	camera  *camerafake.Camera
	clock   clock.Clock
	mock    *clock.Mock
	sched   *operation.Scheduler
	deps    navigation.Deps
	logger  logging.Logger
}

// newSimulation builds a simulation from cfg. Settings under "simulation" place the robot and
// the target. A realtime simulation ticks on the wall clock; otherwise a mock clock is stepped as
// fast as possible.
func newSimulation(cfg *config.Config, realtime bool, logger logging.Logger) (*simulation, error) {
	profile, err := cfg.Profile()
	if err != nil {
		return nil, err
	}
	sim := &simulation{cfg: cfg, profile: profile, logger: logger}

	attrs := cfg.Simulation
	robotCfg := fake.ProfileConfig(profile)
	if robotCfg.TrackWidth, err = attrs.Float64("track_width", robotCfg.TrackWidth); err != nil {
		return nil, err
	}
	if robotCfg.TimeConstant, err = attrs.Duration("time_constant", robotCfg.TimeConstant); err != nil {
		return nil, err
	}
	if sim.robot, err = fake.NewRobot(robotCfg); err != nil {
		return nil, err
	}
	start, err := attrVector(attrs, "start", spatialmath.NewVector2D(0, 0))
	if err != nil {
		return nil, err
	}
	startYaw, err := attrs.Float64("start_yaw", 0)
	if err != nil {
		return nil, err
	}
	sim.robot.Place(start, startYaw)

	target, err := attrVector(attrs, "target", spatialmath.NewVector2D(20, 80))
	if err != nil {
		return nil, err
	}
	sim.camera = camerafake.NewCamera(sim.robot, cfg.Camera, target, cfg.TargetHeight)

	if realtime {
		sim.clock = clock.New()
	} else {
		sim.mock = clock.NewMock()
		sim.clock = sim.mock
	}
	sim.sched = operation.NewScheduler(sim.clock, logger.Sublogger("scheduler"))
	sim.sched.AddTickHook(func(ctx context.Context, dt time.Duration) {
		sim.robot.Step(dt)
	})

	heading, err := sensorcontrolled.NewHeadingController(sim.robot, cfg.HeadingPID, profile.Tick(), logger.Sublogger("heading"))
	if err != nil {
		return nil, err
	}
	heading.SetSpeedTolerance(cfg.SpeedTolerance)
	monitor := collision.NewMonitor(sim.robot, sim.sched.RequestAbort, logger.Sublogger("collision"))
	monitor.SetThreshold(cfg.CollisionThreshold)

	sim.deps = navigation.Deps{
		Deps: sensorcontrolled.Deps{
			Drive:     sim.robot,
			Heading:   heading,
			Collision: monitor,
			Profile:   profile,
			Clock:     sim.clock,
			Logger:    logger,
		},
		Gyro:   sim.robot,
		Vision: sim.camera,
	}
	return sim, nil
}

func attrVector(attrs config.AttributeMap, prefix string, def spatialmath.Vector2D) (spatialmath.Vector2D, error) {
	x, err := attrs.Float64(prefix+"_x", def.X())
	if err != nil {
		return def, err
	}
	y, err := attrs.Float64(prefix+"_y", def.Y())
	if err != nil {
		return def, err
	}
	return spatialmath.NewVector2D(x, y), nil
}

// run schedules task with the configured time limit and polls until every task is done.
func (sim *simulation) run(ctx context.Context, task operation.Task, labels ...string) error {
	limited := operation.WithTimeout(task, sim.cfg.MaxTaskTime, sim.clock)
	if _, err := sim.sched.Add(ctx, limited, labels...); err != nil {
		return errors.Wrapf(err, "starting %s", task.Name())
	}
	if sim.mock == nil {
		return sim.sched.Run(ctx, sim.profile.Tick())
	}

	var errs []error
	for !sim.sched.Idle() {
		if err := ctx.Err(); err != nil {
			return multierr.Combine(append(errs, err, sim.sched.CancelAll(context.WithoutCancel(ctx)))...)
		}
		dt := sim.profile.Tick()
		sim.robot.Step(dt)
		sim.mock.Add(dt)
		if err := sim.sched.Poll(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return multierr.Combine(errs...)
}
