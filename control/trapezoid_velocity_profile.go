package control

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"go.targetnav.dev/navcore/kinematics"
)

// ErrInvalidRun is reported for a run whose velocity is not in (0, max velocity].
var ErrInvalidRun = errors.New("motion profile velocity out of range")

// Shape is the velocity over time outline of a run.
type Shape int

const (
	// ShapeInvalid runs never command power.
	ShapeInvalid Shape = iota
	// ShapeTrapezoid reaches cruise velocity and holds it.
	ShapeTrapezoid
	// ShapeTriangle is too short to reach cruise velocity and decelerates right after accelerating.
	ShapeTriangle
)

func (s Shape) String() string {
	switch s {
	case ShapeTrapezoid:
		return "trapezoid"
	case ShapeTriangle:
		return "triangle"
	case ShapeInvalid:
	}
	return "invalid"
}

// Phase is the state of a run.
type Phase int

const (
	// PhaseAccel ramps power up one step per tick.
	PhaseAccel Phase = iota
	// PhaseRun holds power.
	PhaseRun
	// PhaseDecel ramps power down, never below the start power.
	PhaseDecel
	// PhaseDone commands zero power.
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseAccel:
		return "accel"
	case PhaseRun:
		return "run"
	case PhaseDecel:
		return "decel"
	case PhaseDone:
	}
	return "done"
}

// TrapezoidRun approximates constant acceleration over a commanded distance by stepping motor
// power once per control tick. All of its state is owned by the run; the next power is derived
// from the last power it returned, never from what the motors report.
type TrapezoidRun struct {
	profile  *kinematics.Profile
	distance float64
	velocity float64

	shape         Shape
	accelSteps    int
	runSteps      int
	accelDistance float64

	steps  int
	nAccel int
	nRun   int
	phase  Phase
	power  float64
}

// NewTrapezoidRun plans a run of distance at velocity. A velocity that is not positive or exceeds
// the profile's max velocity yields an invalid run that is already done.
func NewTrapezoidRun(profile *kinematics.Profile, distance, velocity float64) *TrapezoidRun {
	r := &TrapezoidRun{profile: profile, distance: distance, velocity: velocity}
	if velocity <= 0 || velocity > profile.MaxVelocity() || math.IsNaN(velocity) {
		r.shape = ShapeInvalid
		r.phase = PhaseDone
		return r
	}
	r.phase = PhaseAccel

	dv := profile.VelocityPerStep()
	r.accelSteps = int(math.Ceil(velocity / dv))
	r.accelDistance = profile.AccelDistance(r.accelSteps)
	if 2*r.accelDistance < distance {
		r.shape = ShapeTrapezoid
		runVelocity := float64(r.accelSteps) * dv
		runDistance := distance - 2*r.accelDistance
		r.runSteps = int(math.Floor(runDistance / runVelocity / profile.SecPerStep()))
		return r
	}

	r.shape = ShapeTriangle
	r.accelSteps = profile.AccelStepsFor(math.Max(0, math.Floor(distance/2)))
	r.accelDistance = profile.AccelDistance(r.accelSteps)
	r.runSteps = 0
	return r
}

// Err returns ErrInvalidRun, annotated with the velocity, for an invalid run and nil otherwise.
func (r *TrapezoidRun) Err() error {
	if r.shape != ShapeInvalid {
		return nil
	}
	return errors.Wrapf(ErrInvalidRun, "velocity %v not in (0, %v]", r.velocity, r.profile.MaxVelocity())
}

// Valid reports whether the run can command power.
func (r *TrapezoidRun) Valid() bool { return r.shape != ShapeInvalid }

// Step advances the run by one tick and returns the power to command.
func (r *TrapezoidRun) Step() float64 {
	if r.phase == PhaseDone {
		r.power = 0
		return 0
	}
	if r.steps == 0 {
		r.power = r.profile.StartPower()
	}
	r.steps++

	pps := r.profile.PowerPerStep()
	switch r.phase {
	case PhaseAccel:
		r.nAccel++
		r.power = math.Min(r.power+pps, 1)
		if r.nAccel >= r.accelSteps {
			r.phase = PhaseRun
		}
	case PhaseRun:
		r.nRun++
		if r.nRun >= r.runSteps {
			r.phase = PhaseDecel
		}
	case PhaseDecel:
		if r.power > r.profile.StartPower()+pps {
			r.power -= pps
		}
	case PhaseDone:
	}
	return r.power
}

// Finished reports whether the run is over given the distance traveled since it started. This
// holds in any phase, so a run can end before deceleration completes.
func (r *TrapezoidRun) Finished(traveled float64) bool {
	return r.shape == ShapeInvalid || r.phase == PhaseDone || traveled >= r.distance
}

// Finish moves the run to PhaseDone.
func (r *TrapezoidRun) Finish() {
	r.phase = PhaseDone
	r.power = 0
}

// Shape returns the planned shape.
func (r *TrapezoidRun) Shape() Shape { return r.shape }

// Phase returns the current phase.
func (r *TrapezoidRun) Phase() Phase { return r.phase }

// AccelSteps returns the planned number of acceleration ticks.
func (r *TrapezoidRun) AccelSteps() int { return r.accelSteps }

// RunSteps returns the planned number of cruise ticks.
func (r *TrapezoidRun) RunSteps() int { return r.runSteps }

// AccelDistance returns the distance covered while accelerating.
func (r *TrapezoidRun) AccelDistance() float64 { return r.accelDistance }

// Steps returns the number of ticks stepped so far.
func (r *TrapezoidRun) Steps() int { return r.steps }

// Power returns the last power returned by Step.
func (r *TrapezoidRun) Power() float64 { return r.power }

// Distance returns the commanded distance.
func (r *TrapezoidRun) Distance() float64 { return r.distance }

// Velocity returns the commanded velocity.
func (r *TrapezoidRun) Velocity() float64 { return r.velocity }

func (r *TrapezoidRun) String() string {
	return fmt.Sprintf("%s run of %.2f at %.2f: %d accel steps (%.2f), %d run steps",
		r.shape, r.distance, r.velocity, r.accelSteps, r.accelDistance, r.runSteps)
}
