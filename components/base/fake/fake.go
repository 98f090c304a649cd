// Package fake implements a simulated differential drive robot.
package fake

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.targetnav.dev/navcore/components/base"
	"go.targetnav.dev/navcore/kinematics"
	"go.targetnav.dev/navcore/spatialmath"
	"go.targetnav.dev/navcore/utils"
)

// GravityInches is one g in in/s^2.
const GravityInches = 386.09

// Config describes the simulated drive train.
type Config struct {
	// MaxVelocity is the side speed at full power.
	MaxVelocity float64 `json:"max_velocity"`
	// TrackWidth is the distance between the left and right wheels.
	TrackWidth float64 `json:"track_width"`
	// TimeConstant is the first order lag between a commanded power and the side speed.
	TimeConstant time.Duration `json:"time_constant"`
	// Gravity converts the simulated units of acceleration into g.
	Gravity float64 `json:"gravity"`
	// StartPower is the forward power below which the robot does not move. Above it the forward
	// speed grows linearly, reaching MaxVelocity*(1-StartPower) at full power. Turning is not
	// affected.
	StartPower float64 `json:"start_power"`
}

// DefaultConfig is a kitbot sized drive train in inches.
func DefaultConfig(maxVelocity float64) Config {
	return Config{
		MaxVelocity:  maxVelocity,
		TrackWidth:   22,
		TimeConstant: 250 * time.Millisecond,
		Gravity:      GravityInches,
	}
}

// ProfileConfig is DefaultConfig with a drive train that matches the given motor profile,
// including the power needed to overcome static friction.
func ProfileConfig(profile *kinematics.Profile) Config {
	cfg := DefaultConfig(profile.MaxVelocity())
	cfg.StartPower = profile.StartPower()
	return cfg
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.MaxVelocity <= 0 {
		return errors.Errorf("%s.max_velocity must be positive", path)
	}
	if cfg.TrackWidth <= 0 {
		return errors.Errorf("%s.track_width must be positive", path)
	}
	if cfg.TimeConstant < 0 {
		return errors.Errorf("%s.time_constant must not be negative", path)
	}
	if cfg.Gravity <= 0 {
		return errors.Errorf("%s.gravity must be positive", path)
	}
	if cfg.StartPower < 0 || cfg.StartPower >= 1 {
		return errors.Errorf("%s.start_power must be in [0, 1), got %v", path, cfg.StartPower)
	}
	return nil
}

// Sample is the robot state after a simulation step.
type Sample struct {
	Elapsed    time.Duration
	LeftPower  float64
	RightPower float64
	Yaw        float64
	Distance   float64
	Position   spatialmath.Vector2D
}

// Robot is a simulated drive train with a gyro and an accelerometer. Motion only happens in Step.
type Robot struct {
	mu  sync.Mutex
	cfg Config

	leftPower, rightPower float64
	leftSpeed, rightSpeed float64
	leftDist, rightDist   float64

	angle    float64
	yawZero  float64
	position spatialmath.Vector2D
	velocity spatialmath.Vector2D
	accel    r3.Vector
	bump     r3.Vector

	elapsed time.Duration
	trace   []Sample

	// Fail, when set, is returned by every method of the robot.
	Fail error
}

// NewRobot returns a stopped robot at the origin facing yaw 0.
func NewRobot(cfg Config) (*Robot, error) {
	if err := cfg.Validate("fake"); err != nil {
		return nil, err
	}
	return &Robot{cfg: cfg}, nil
}

// Place moves the robot without simulating the motion.
func (r *Robot) Place(position spatialmath.Vector2D, yaw float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.position = position
	r.angle = yaw
}

// SetDifferential sets the side powers. Out of range powers are rejected.
func (r *Robot) SetDifferential(ctx context.Context, left, right float64) error {
	if err := base.CheckPowers(left, right); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return r.Fail
	}
	r.leftPower, r.rightPower = left, right
	return nil
}

// Stop zeroes both side powers. The robot coasts down over the time constant.
func (r *Robot) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return r.Fail
	}
	r.leftPower, r.rightPower = 0, 0
	return nil
}

// Powers returns the commanded side powers.
func (r *Robot) Powers() (float64, float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leftPower, r.rightPower
}

// Distance returns the mean distance of the two sides since the last reset.
func (r *Robot) Distance(ctx context.Context) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return 0, r.Fail
	}
	return (r.leftDist + r.rightDist) / 2, nil
}

// ResetDistance zeroes the encoders.
func (r *Robot) ResetDistance(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return r.Fail
	}
	r.leftDist, r.rightDist = 0, 0
	return nil
}

// WheelSpeeds returns the side speeds.
func (r *Robot) WheelSpeeds(ctx context.Context) (float64, float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return 0, 0, r.Fail
	}
	return r.leftSpeed, r.rightSpeed, nil
}

// Angle returns the accumulated gyro angle in degrees, clockwise positive.
func (r *Robot) Angle(ctx context.Context) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return 0, r.Fail
	}
	return r.angle - r.yawZero, nil
}

// Yaw returns the heading folded into [-180, 180].
func (r *Robot) Yaw(ctx context.Context) (float64, error) {
	angle, err := r.Angle(ctx)
	if err != nil {
		return 0, err
	}
	return spatialmath.NormalizeYaw(angle), nil
}

// ResetHeading makes the current heading yaw zero.
func (r *Robot) ResetHeading(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return r.Fail
	}
	r.yawZero = r.angle
	return nil
}

// WorldLinearAcceleration returns the acceleration of the last step in g.
func (r *Robot) WorldLinearAcceleration(ctx context.Context) (r3.Vector, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return r3.Vector{}, r.Fail
	}
	return r.accel, nil
}

// Bump adds an acceleration spike, in g, to the reading of the next step only.
func (r *Robot) Bump(spike r3.Vector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bump = r.bump.Add(spike)
}

// Position returns the field position of the robot center.
func (r *Robot) Position() spatialmath.Vector2D {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.position
}

// Heading returns the true yaw of the robot, ignoring ResetHeading.
func (r *Robot) Heading() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return spatialmath.NormalizeYaw(r.angle)
}

// Step advances the simulation by dt.
func (r *Robot) Step(dt time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	secs := dt.Seconds()
	if secs <= 0 {
		return
	}

	alpha := 1.0
	if tau := r.cfg.TimeConstant.Seconds(); tau > 0 {
		alpha = math.Min(1, secs/tau)
	}
	forwardTarget, turnTarget := r.targetSpeeds()
	r.leftSpeed += (forwardTarget + turnTarget - r.leftSpeed) * alpha
	r.rightSpeed += (forwardTarget - turnTarget - r.rightSpeed) * alpha
	r.leftDist += r.leftSpeed * secs
	r.rightDist += r.rightSpeed * secs

	// clockwise is positive, so a faster left side increases the angle
	r.angle += utils.RadToDeg((r.leftSpeed - r.rightSpeed) / r.cfg.TrackWidth * secs)
	forward := (r.leftSpeed + r.rightSpeed) / 2
	velocity := spatialmath.YawToVector(spatialmath.NormalizeYaw(r.angle)).Mul(forward)
	dv := velocity.Sub(r.velocity).Mul(1 / (secs * r.cfg.Gravity))
	r.accel = r3.Vector{X: dv.X(), Y: dv.Y()}.Add(r.bump)
	r.velocity = velocity
	r.position = r.position.Add(velocity.Mul(secs))
	r.bump = r3.Vector{}
	r.elapsed += dt

	r.trace = append(r.trace, Sample{
		Elapsed:    r.elapsed,
		LeftPower:  r.leftPower,
		RightPower: r.rightPower,
		Yaw:        spatialmath.NormalizeYaw(r.angle - r.yawZero),
		Distance:   (r.leftDist + r.rightDist) / 2,
		Position:   r.position,
	})
}

// targetSpeeds splits the commanded powers into the steady state forward speed and the
// per-side turning speed.
func (r *Robot) targetSpeeds() (float64, float64) {
	forward := (r.leftPower + r.rightPower) / 2
	turn := (r.leftPower - r.rightPower) / 2
	forwardSpeed := math.Max(0, math.Abs(forward)-r.cfg.StartPower) * r.cfg.MaxVelocity
	return math.Copysign(forwardSpeed, forward), turn * r.cfg.MaxVelocity
}

// Trace returns one sample per Step since the robot was created.
func (r *Robot) Trace() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sample(nil), r.trace...)
}
