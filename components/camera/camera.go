// Package camera defines the vision source that reports bearings to a retroreflective target.
package camera

import (
	"context"
	"math"

	"go.targetnav.dev/navcore/spatialmath"
	"go.targetnav.dev/navcore/utils"
)

// Mode selects what the camera pipeline is doing.
type Mode int

const (
	// ModeDriver streams an unprocessed image for the operator.
	ModeDriver Mode = iota
	// ModeVision runs target tracking.
	ModeVision
)

func (m Mode) String() string {
	if m == ModeVision {
		return "vision"
	}
	return "driver"
}

// A VisionSource reports the bearing from the camera boresight to the tracked target.
type VisionSource interface {
	// HasTarget reports whether a target is currently tracked.
	HasTarget(ctx context.Context) (bool, error)

	// Bearing returns the horizontal (tx) and vertical (ty) angles to the target in degrees.
	// tx is positive to the right.
	Bearing(ctx context.Context) (tx, ty float64, err error)

	SetMode(ctx context.Context, mode Mode) error
}

// Mount describes where the camera sits on the robot.
type Mount struct {
	// Height of the lens above the floor.
	Height float64 `json:"height"`
	// AngleFromHorizontal is the elevation of the boresight in degrees.
	AngleFromHorizontal float64 `json:"angle_from_horizontal"`
	// OffsetFromCenter is the lateral offset from the robot center, positive to the right.
	OffsetFromCenter float64 `json:"offset_from_center"`
}

// DefaultMount is the camera position on the competition robot.
func DefaultMount() Mount {
	return Mount{Height: 10.5, AngleFromHorizontal: 20, OffsetFromCenter: -7}
}

// OffsetVector returns the field-relative vector from the robot center to the camera for a robot
// facing robotVec.
func (m Mount) OffsetVector(robotVec spatialmath.Vector2D) spatialmath.Vector2D {
	return robotVec.Normal().Mul(-m.OffsetFromCenter)
}

// GroundDistance returns the horizontal distance to a target at targetHeight seen at vertical
// bearing ty. A target at or below the horizon has no finite distance.
func (m Mount) GroundDistance(targetHeight, ty float64) (float64, error) {
	elevation := ty + m.AngleFromHorizontal
	if elevation <= 0 {
		return 0, utils.NewDomainError("target elevation", elevation, "target is at or below the horizon")
	}
	if elevation >= 90 {
		return 0, utils.NewDomainError("target elevation", elevation, "target is at or above zenith")
	}
	return (targetHeight - m.Height) / math.Tan(utils.DegToRad(elevation)), nil
}
