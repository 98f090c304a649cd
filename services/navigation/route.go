package navigation

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.targetnav.dev/navcore/components/base/sensorcontrolled"
	"go.targetnav.dev/navcore/components/camera"
	"go.targetnav.dev/navcore/components/movementsensor"
	"go.targetnav.dev/navcore/logging"
	"go.targetnav.dev/navcore/operation"
	"go.targetnav.dev/navcore/spatialmath"
	"go.targetnav.dev/navcore/vision/targeting"
)

// ErrNoTarget is returned when the camera does not see a target before the search times out.
var ErrNoTarget = errors.New("no target seen")

// RouteConfig configures routing to a vision target.
type RouteConfig struct {
	Mount             camera.Mount
	TargetHeight      float64
	Standoff          float64
	SearchTimeout     time.Duration
	InterceptVelocity float64
	NormalVelocity    float64
	Targets           *targeting.OrientationMap
}

// DefaultRouteConfig routes to the standard targets.
func DefaultRouteConfig() RouteConfig {
	return RouteConfig{
		Mount:             camera.DefaultMount(),
		TargetHeight:      34.125,
		Standoff:          12,
		SearchTimeout:     5 * time.Second,
		InterceptVelocity: 24,
		NormalVelocity:    12,
		Targets:           targeting.StandardMap,
	}
}

// Deps adds the heading source and the camera to the drive task collaborators.
type Deps struct {
	sensorcontrolled.Deps
	Gyro   movementsensor.HeadingSource
	Vision camera.VisionSource
}

// search looks for the target and computes the route to it from the pose at start.
type search struct {
	deps   Deps
	cfg    RouteConfig
	calc   *targeting.Calculator
	logger logging.Logger

	robotVec     spatialmath.Vector2D
	camVec       spatialmath.Vector2D
	targetNormal spatialmath.Vector2D
	deadline     time.Time
	vision       bool
}

func newSearch(deps Deps, cfg RouteConfig, name string) search {
	return search{
		deps:   deps,
		cfg:    cfg,
		calc:   targeting.NewCalculator(cfg.Mount.Height, cfg.Mount.AngleFromHorizontal),
		logger: deps.Logger.Sublogger(name),
	}
}

func (s *search) start(ctx context.Context) error {
	if s.deps.Gyro == nil || s.deps.Vision == nil {
		return errors.New("route search needs a heading source and a vision source")
	}
	if s.cfg.Targets == nil {
		return errors.New("route search needs a target map")
	}
	robotVec, err := movementsensor.RobotVector(ctx, s.deps.Gyro)
	if err != nil {
		return err
	}
	yaw, err := s.deps.Gyro.Yaw(ctx)
	if err != nil {
		return err
	}
	normal, err := s.cfg.Targets.Normal(yaw)
	if err != nil {
		return err
	}
	s.robotVec = robotVec
	s.camVec = s.cfg.Mount.OffsetVector(robotVec)
	s.targetNormal = normal
	s.logger.CInfow(ctx, "searching for target", "yaw", yaw, "targets", s.cfg.Targets.Name())
	if err := s.deps.Vision.SetMode(ctx, camera.ModeVision); err != nil {
		return err
	}
	s.vision = true
	s.deadline = s.deps.Clock.Now().Add(s.cfg.SearchTimeout)
	return nil
}

// poll returns the route once the target is seen.
func (s *search) poll(ctx context.Context) (*targeting.RouteToTarget, error) {
	seen, err := s.deps.Vision.HasTarget(ctx)
	if err != nil {
		return nil, err
	}
	if !seen {
		if !s.deps.Clock.Now().Before(s.deadline) {
			s.logger.CWarnw(ctx, "timed out with no target seen", "timeout", s.cfg.SearchTimeout.String())
			return nil, errors.Wrapf(ErrNoTarget, "after %s", s.cfg.SearchTimeout)
		}
		return nil, nil
	}
	tx, ty, err := s.deps.Vision.Bearing(ctx)
	if err != nil {
		return nil, err
	}
	route, err := s.calc.RouteToTarget(tx, ty, s.robotVec, s.camVec, s.targetNormal, s.cfg.TargetHeight, s.cfg.Standoff)
	if err != nil {
		return nil, err
	}
	s.logger.CInfow(ctx, "route to target",
		"tx", tx, "ty", ty,
		"intercept", route.InterceptVec.PolarString(),
		"normal", route.NormalVec.PolarString(),
		"target", route.TargetDirectVec.PolarString())
	return &route, nil
}

// driverMode puts the camera back in driver mode if the search switched it.
func (s *search) driverMode(ctx context.Context) error {
	if !s.vision {
		return nil
	}
	s.vision = false
	return s.deps.Vision.SetMode(ctx, camera.ModeDriver)
}

// DriveRouteToTarget waits for the camera to see a target, then drives the two leg route to it.
type DriveRouteToTarget struct {
	search
	route *targeting.RouteToTarget
	drive *operation.Sequence
}

// NewDriveRouteToTarget returns a task that finds and drives to a target.
func NewDriveRouteToTarget(deps Deps, cfg RouteConfig) *DriveRouteToTarget {
	return &DriveRouteToTarget{search: newSearch(deps, cfg, "route_to_target")}
}

// Name returns the task name.
func (t *DriveRouteToTarget) Name() string { return "drive route to target" }

// Route returns the computed route, nil until the target is seen.
func (t *DriveRouteToTarget) Route() *targeting.RouteToTarget { return t.route }

// Start samples the heading and starts the search.
func (t *DriveRouteToTarget) Start(ctx context.Context) error {
	t.route = nil
	t.drive = nil
	if err := t.start(ctx); err != nil {
		return multierr.Combine(err, t.driverMode(ctx))
	}
	return nil
}

// Tick searches until the target is seen and then drives the route.
func (t *DriveRouteToTarget) Tick(ctx context.Context) (operation.Status, error) {
	if t.drive == nil {
		route, err := t.poll(ctx)
		if err != nil {
			return operation.StatusFailed, multierr.Combine(err, t.driverMode(ctx))
		}
		if route == nil {
			return operation.StatusRunning, nil
		}
		t.route = route
		if err := t.driverMode(ctx); err != nil {
			return operation.StatusFailed, err
		}
		legs := LegsFromRoute(*route, t.cfg.InterceptVelocity, t.cfg.NormalVelocity)
		t.drive = NewRouteSequencer(t.deps.Deps, legs[:]...)
		if err := t.drive.Start(ctx); err != nil {
			t.drive = nil
			return operation.StatusFailed, err
		}
		return operation.StatusRunning, nil
	}
	return t.drive.Tick(ctx)
}

// Cancel stops whichever leg is running and restores the camera.
func (t *DriveRouteToTarget) Cancel(ctx context.Context) error {
	var err error
	if t.drive != nil {
		err = t.drive.Cancel(ctx)
	}
	return multierr.Combine(err, t.driverMode(ctx))
}

// GetRouteToTarget waits for the camera to see a target and publishes the route to it without
// driving.
type GetRouteToTarget struct {
	search
	publish func(targeting.RouteToTarget)
}

// NewGetRouteToTarget returns a task that calls publish with the route once the target is seen.
func NewGetRouteToTarget(deps Deps, cfg RouteConfig, publish func(targeting.RouteToTarget)) *GetRouteToTarget {
	return &GetRouteToTarget{search: newSearch(deps, cfg, "get_route_to_target"), publish: publish}
}

// Name returns the task name.
func (t *GetRouteToTarget) Name() string { return "get route to target" }

// Start samples the heading and starts the search.
func (t *GetRouteToTarget) Start(ctx context.Context) error {
	if err := t.start(ctx); err != nil {
		return multierr.Combine(err, t.driverMode(ctx))
	}
	return nil
}

// Tick searches until the target is seen.
func (t *GetRouteToTarget) Tick(ctx context.Context) (operation.Status, error) {
	route, err := t.poll(ctx)
	if err != nil {
		return operation.StatusFailed, multierr.Combine(err, t.driverMode(ctx))
	}
	if route == nil {
		return operation.StatusRunning, nil
	}
	if t.publish != nil {
		t.publish(*route)
	}
	return operation.StatusDone, t.driverMode(ctx)
}

// Cancel restores the camera.
func (t *GetRouteToTarget) Cancel(ctx context.Context) error {
	return t.driverMode(ctx)
}
