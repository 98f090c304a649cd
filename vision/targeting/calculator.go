// Package targeting turns camera bearings to a vision target into a drive route.
package targeting

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"go.targetnav.dev/navcore/spatialmath"
	"go.targetnav.dev/navcore/utils"
)

const (
	minCos = 1e-6
	minTan = 1e-9
)

// RouteToTarget is a two leg route to a target. The robot drives InterceptVec to reach the line
// normal to the target face, then NormalVec straight in. TargetDirectVec is the vector from the
// camera to the target.
type RouteToTarget struct {
	TargetDirectVec spatialmath.Vector2D
	InterceptVec    spatialmath.Vector2D
	NormalVec       spatialmath.Vector2D
}

func (r RouteToTarget) String() string {
	return fmt.Sprintf("intercept %s, normal %s, target %s",
		r.InterceptVec.PolarString(), r.NormalVec.PolarString(), r.TargetDirectVec.PolarString())
}

// Calculator locates a target of known height from a fixed camera.
type Calculator struct {
	cameraHeight float64
	aimAngle     float64
}

// NewCalculator returns a calculator for a camera at cameraHeight whose boresight is aimDeg
// degrees above horizontal.
func NewCalculator(cameraHeight, aimDeg float64) *Calculator {
	return &Calculator{cameraHeight: cameraHeight, aimAngle: utils.DegToRad(aimDeg)}
}

// TargetVector returns the field relative vector from the camera to a target at targetHeight,
// seen at bearing (tx, ty) degrees by a robot facing robotVec.
func (c *Calculator) TargetVector(tx, ty float64, robotVec spatialmath.Vector2D, targetHeight float64) (
	spatialmath.Vector2D, error,
) {
	elevation := c.aimAngle + utils.DegToRad(ty)
	if math.Abs(math.Cos(elevation)) < minCos {
		return spatialmath.Vector2D{}, utils.NewDomainError("target elevation", utils.RadToDeg(elevation),
			"tangent is unbounded")
	}
	tan := math.Tan(elevation)
	if math.Abs(tan) < minTan {
		return spatialmath.Vector2D{}, utils.NewDomainError("target elevation", utils.RadToDeg(elevation),
			"target is on the horizon")
	}
	distance := (targetHeight - c.cameraHeight) / tan
	vec, err := spatialmath.NewPolarVector2D(distance, robotVec.Theta()-utils.DegToRad(tx))
	if err != nil {
		return spatialmath.Vector2D{}, errors.Wrap(err, "target distance")
	}
	return vec, nil
}

// RouteToTarget computes the route to a target whose face points along targetNormalVec, stopping
// standoff short of it along the normal. camOffsetVec is the camera offset from the robot
// center as returned by camera.Mount.OffsetVector. The camera offset is subtracted from the
// intercept leg only, so NormalVec + InterceptVec equals TargetDirectVec only for a centered
// camera.
func (c *Calculator) RouteToTarget(
	tx, ty float64,
	robotVec, camOffsetVec, targetNormalVec spatialmath.Vector2D,
	targetHeight, standoff float64,
) (RouteToTarget, error) {
	targetVec, err := c.TargetVector(tx, ty, robotVec, targetHeight)
	if err != nil {
		return RouteToTarget{}, err
	}
	normalVec := targetNormalVec.Mul(-standoff)
	interceptVec := targetVec.Sub(normalVec).Sub(camOffsetVec)
	return RouteToTarget{
		TargetDirectVec: targetVec,
		InterceptVec:    interceptVec,
		NormalVec:       normalVec,
	}, nil
}
