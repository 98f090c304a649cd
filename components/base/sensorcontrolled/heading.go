// Package sensorcontrolled drives a base with feedback from a heading source.
package sensorcontrolled

import (
	"context"
	"math"
	"sync"
	"time"

	"go.targetnav.dev/navcore/components/movementsensor"
	"go.targetnav.dev/navcore/control"
	"go.targetnav.dev/navcore/logging"
	"go.targetnav.dev/navcore/spatialmath"
	"go.targetnav.dev/navcore/utils"
)

// DefaultSpeedTolerance is the total wheel speed under which a turn may settle.
const DefaultSpeedTolerance = 200.0

// HeadingController runs a continuous PID loop over yaw. The output ω is a differential power:
// positive turns the robot clockwise.
type HeadingController struct {
	mu             sync.Mutex
	source         movementsensor.HeadingSource
	pid            *control.PID
	tick           time.Duration
	speedTolerance float64
	logger         logging.Logger

	omega float64
	yaw   float64
}

// NewHeadingController returns a disabled controller. tick is the period between Update calls.
func NewHeadingController(
	source movementsensor.HeadingSource,
	cfg control.PIDConfig,
	tick time.Duration,
	logger logging.Logger,
) (*HeadingController, error) {
	pid, err := control.NewPID(cfg)
	if err != nil {
		return nil, err
	}
	return &HeadingController{
		source:         source,
		pid:            pid,
		tick:           tick,
		speedTolerance: DefaultSpeedTolerance,
		logger:         logger,
	}, nil
}

// SetSpeedTolerance changes the wheel speed under which a turn may settle.
func (hc *HeadingController) SetSpeedTolerance(tol float64) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.speedTolerance = tol
}

// StartHold enables the loop with the current yaw as the setpoint.
func (hc *HeadingController) StartHold(ctx context.Context) error {
	yaw, err := hc.source.Yaw(ctx)
	if err != nil {
		return err
	}
	hc.logger.CDebugw(ctx, "start heading hold", "yaw", yaw)
	hc.start(yaw, yaw)
	return nil
}

// StartTurn enables the loop toward a field angle in degrees.
func (hc *HeadingController) StartTurn(ctx context.Context, fieldAngle float64) error {
	yaw, err := hc.source.Yaw(ctx)
	if err != nil {
		return err
	}
	target := spatialmath.FieldAngleToYaw(fieldAngle)
	hc.logger.CDebugw(ctx, "start turn", "field_angle", fieldAngle, "target_yaw", target, "yaw", yaw)
	hc.start(target, yaw)
	return nil
}

func (hc *HeadingController) start(setPoint, yaw float64) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.pid.SetSetPoint(setPoint)
	hc.pid.Enable()
	hc.omega = 0
	hc.yaw = yaw
}

// Update samples the heading and runs one step of the loop. It returns the new ω, which is zero
// while disabled.
func (hc *HeadingController) Update(ctx context.Context) (float64, error) {
	if !hc.pid.Enabled() {
		return 0, nil
	}
	yaw, err := hc.source.Yaw(ctx)
	if err != nil {
		return 0, err
	}
	out, _ := hc.pid.Next(yaw, hc.tick)
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.omega = out
	hc.yaw = yaw
	return out, nil
}

// HeadingError returns the wrapped difference between the setpoint and the yaw sampled by the
// last Update.
func (hc *HeadingController) HeadingError() float64 {
	hc.mu.Lock()
	yaw := hc.yaw
	hc.mu.Unlock()
	return hc.pid.Error(yaw)
}

// Omega returns the last correction.
func (hc *HeadingController) Omega() float64 {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	return hc.omega
}

// SetPoint returns the target yaw.
func (hc *HeadingController) SetPoint() float64 {
	return hc.pid.SetPoint()
}

// Enabled reports whether the loop is running.
func (hc *HeadingController) Enabled() bool {
	return hc.pid.Enabled()
}

// StraightPowers splits power into left and right powers that apply the last correction. When a
// side would leave [-1, 1], that side is pinned to power and the other side takes the whole
// correction.
func (hc *HeadingController) StraightPowers(power float64) (float64, float64, error) {
	if math.Abs(power) > 1 || math.IsNaN(power) {
		return 0, 0, utils.NewOutOfRangeDomainError("straight drive power", power, -1, 1)
	}
	omega := hc.Omega()
	left := power + omega/2
	right := power - omega/2
	switch {
	case left < -1 || left > 1:
		left, right = power, power-omega
	case right < -1 || right > 1:
		left, right = power+omega, power
	}
	return left, right, nil
}

// TurnPowers returns powers that spin the robot in place by the last correction.
func (hc *HeadingController) TurnPowers() (float64, float64) {
	omega := hc.Omega()
	return omega / 2, -omega / 2
}

// TurnSettled reports whether a turn is both on target and no longer moving. speed is the sum of
// the absolute wheel speeds.
func (hc *HeadingController) TurnSettled(angleErr, speed float64) bool {
	hc.mu.Lock()
	tol := hc.speedTolerance
	hc.mu.Unlock()
	return math.Abs(angleErr) < hc.pid.Config().Tolerance && speed < tol
}

// Disable stops the loop and zeroes the correction.
func (hc *HeadingController) Disable() {
	hc.pid.Disable()
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.omega = 0
}
