// Package navigation drives routes made of turn and drive legs, including routes to a vision
// target.
package navigation

import (
	"fmt"

	"go.targetnav.dev/navcore/components/base/sensorcontrolled"
	"go.targetnav.dev/navcore/operation"
	"go.targetnav.dev/navcore/spatialmath"
	"go.targetnav.dev/navcore/utils"
	"go.targetnav.dev/navcore/vision/targeting"
)

// A Leg turns to a field angle in degrees, then drives straight.
type Leg struct {
	Heading  float64 `json:"heading"`
	Distance float64 `json:"distance"`
	Velocity float64 `json:"velocity"`
}

func (l Leg) String() string {
	return fmt.Sprintf("%.1f at %.1f deg, %.1f/s", l.Distance, l.Heading, l.Velocity)
}

// LegFromVector returns the leg that drives vec at velocity.
func LegFromVector(vec spatialmath.Vector2D, velocity float64) Leg {
	return Leg{Heading: utils.RadToDeg(vec.Theta()), Distance: vec.R(), Velocity: velocity}
}

// LegFromPolar returns the leg that drives distance toward field angle angleDeg. The heading is
// normalized into (-180, 180].
func LegFromPolar(distance, angleDeg, velocity float64) (Leg, error) {
	vec, err := spatialmath.NewPolarVector2D(distance, utils.DegToRad(angleDeg))
	if err != nil {
		return Leg{}, err
	}
	return LegFromVector(vec, velocity), nil
}

// LegsFromRoute returns the intercept leg followed by the normal leg.
func LegsFromRoute(route targeting.RouteToTarget, interceptVelocity, normalVelocity float64) [2]Leg {
	return [2]Leg{
		LegFromVector(route.InterceptVec, interceptVelocity),
		LegFromVector(route.NormalVec, normalVelocity),
	}
}

// NewVectorDrive returns a task that turns to the leg heading and then drives the leg.
func NewVectorDrive(deps sensorcontrolled.Deps, leg Leg) *operation.Sequence {
	return operation.NewSequence("vector drive "+leg.String(),
		sensorcontrolled.NewTurnTask(deps, leg.Heading),
		sensorcontrolled.NewDriveTask(deps, leg.Distance, leg.Velocity),
	)
}

// NewRouteSequencer returns a task that drives legs strictly in order. Cancelling it cancels only
// the leg in progress.
func NewRouteSequencer(deps sensorcontrolled.Deps, legs ...Leg) *operation.Sequence {
	tasks := make([]operation.Task, 0, len(legs))
	for _, leg := range legs {
		tasks = append(tasks, NewVectorDrive(deps, leg))
	}
	return operation.NewSequence("route", tasks...)
}
