package control

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.targetnav.dev/navcore/kinematics"
)

func TestTrapezoidRunInvalid(t *testing.T) {
	profile := kinematics.Default()
	for _, vel := range []float64{0, -5, profile.MaxVelocity() + 0.1} {
		run := NewTrapezoidRun(profile, 50, vel)
		test.That(t, run.Valid(), test.ShouldBeFalse)
		test.That(t, run.Shape(), test.ShouldEqual, ShapeInvalid)
		test.That(t, run.Phase(), test.ShouldEqual, PhaseDone)
		test.That(t, errors.Is(run.Err(), ErrInvalidRun), test.ShouldBeTrue)
		test.That(t, run.Finished(0), test.ShouldBeTrue)
		for i := 0; i < 50; i++ {
			test.That(t, run.Step(), test.ShouldEqual, 0.0)
		}
	}
}

func TestTrapezoidRunShape(t *testing.T) {
	profile := kinematics.Default()

	run := NewTrapezoidRun(profile, 100, 24)
	test.That(t, run.Err(), test.ShouldBeNil)
	test.That(t, run.Shape(), test.ShouldEqual, ShapeTrapezoid)
	test.That(t, run.AccelSteps(), test.ShouldEqual, 16)
	test.That(t, run.AccelDistance(), test.ShouldAlmostEqual, 3.7347, 1e-4)
	test.That(t, run.RunSteps(), test.ShouldEqual, 185)

	run = NewTrapezoidRun(profile, 5, 24)
	test.That(t, run.Shape(), test.ShouldEqual, ShapeTriangle)
	test.That(t, run.AccelSteps(), test.ShouldEqual, 11)
	test.That(t, run.AccelDistance(), test.ShouldAlmostEqual, 1.7117, 1e-4)
	test.That(t, run.RunSteps(), test.ShouldEqual, 0)

	t.Run("deterministic", func(t *testing.T) {
		for _, c := range []struct{ dist, vel float64 }{{100, 24}, {5, 24}, {7.4, 24}, {300, 155}, {1, 1}} {
			first := NewTrapezoidRun(profile, c.dist, c.vel)
			for i := 0; i < 10; i++ {
				again := NewTrapezoidRun(profile, c.dist, c.vel)
				test.That(t, again.Shape(), test.ShouldEqual, first.Shape())
				test.That(t, again.AccelSteps(), test.ShouldEqual, first.AccelSteps())
				test.That(t, again.RunSteps(), test.ShouldEqual, first.RunSteps())
			}
		}
	})
}

func TestTrapezoidRunPowerSequence(t *testing.T) {
	profile := kinematics.Default()
	start, step := profile.StartPower(), profile.PowerPerStep()

	run := NewTrapezoidRun(profile, 100, 24)
	test.That(t, run.Phase(), test.ShouldEqual, PhaseAccel)

	test.That(t, run.Step(), test.ShouldAlmostEqual, start+step)
	for i := 2; i <= 16; i++ {
		test.That(t, run.Step(), test.ShouldAlmostEqual, start+float64(i)*step)
	}
	test.That(t, run.Phase(), test.ShouldEqual, PhaseRun)
	cruise := run.Power()

	for i := 0; i < 185; i++ {
		test.That(t, run.Step(), test.ShouldAlmostEqual, cruise)
	}
	test.That(t, run.Phase(), test.ShouldEqual, PhaseDecel)

	prev := cruise
	for i := 0; i < 40; i++ {
		p := run.Step()
		test.That(t, p, test.ShouldBeLessThanOrEqualTo, prev)
		test.That(t, p, test.ShouldBeGreaterThanOrEqualTo, start)
		prev = p
	}
	test.That(t, prev, test.ShouldBeLessThan, start+2*step)
	test.That(t, run.Steps(), test.ShouldEqual, 16+185+40)

	test.That(t, run.Finished(99.9), test.ShouldBeFalse)
	test.That(t, run.Finished(100), test.ShouldBeTrue)
	run.Finish()
	test.That(t, run.Phase(), test.ShouldEqual, PhaseDone)
	test.That(t, run.Step(), test.ShouldEqual, 0.0)
}

func TestTrapezoidRunTriangle(t *testing.T) {
	profile := kinematics.Default()
	run := NewTrapezoidRun(profile, 5, 24)
	for i := 0; i < 11; i++ {
		run.Step()
	}
	test.That(t, run.Phase(), test.ShouldEqual, PhaseRun)
	peak := run.Power()
	// a zero-length cruise still lasts one tick
	test.That(t, run.Step(), test.ShouldAlmostEqual, peak)
	test.That(t, run.Phase(), test.ShouldEqual, PhaseDecel)
	test.That(t, run.Step(), test.ShouldBeLessThan, peak)
}

func TestTrapezoidRunFinishesInAnyPhase(t *testing.T) {
	run := NewTrapezoidRun(kinematics.Default(), 100, 24)
	run.Step()
	test.That(t, run.Phase(), test.ShouldEqual, PhaseAccel)
	test.That(t, run.Finished(100.5), test.ShouldBeTrue)

	test.That(t, NewTrapezoidRun(kinematics.Default(), 0, 24).Finished(0), test.ShouldBeTrue)
	test.That(t, ShapeTriangle.String(), test.ShouldEqual, "triangle")
	test.That(t, PhaseDecel.String(), test.ShouldEqual, "decel")
}
