// Package base defines the differential drive train that navigation tasks command.
package base

import (
	"context"
	"math"

	"go.targetnav.dev/navcore/utils"
)

// A DriveActuator is a differential drive with wheel encoders. Powers are in [-1, 1];
// distances and speeds are in the units of the kinematic profile.
type DriveActuator interface {
	// SetDifferential sets the left and right side powers. Either power outside [-1, 1]
	// is rejected with a RangeError and nothing is commanded.
	SetDifferential(ctx context.Context, left, right float64) error

	// Stop stops both sides.
	Stop(ctx context.Context) error

	// Distance returns the average distance traveled by the two sides since the last reset.
	Distance(ctx context.Context) (float64, error)

	// ResetDistance zeroes the encoders.
	ResetDistance(ctx context.Context) error

	// WheelSpeeds returns the measured speed of each side.
	WheelSpeeds(ctx context.Context) (left, right float64, err error)
}

// CheckPowers returns a RangeError for the first power outside [-1, 1].
func CheckPowers(left, right float64) error {
	if left < -1 || left > 1 || math.IsNaN(left) {
		return utils.NewRangeError("left power", left, -1, 1)
	}
	if right < -1 || right > 1 || math.IsNaN(right) {
		return utils.NewRangeError("right power", right, -1, 1)
	}
	return nil
}

// TotalSpeed is the sum of the absolute side speeds, a measure of how much the drive is moving
// that is insensitive to turning in place.
func TotalSpeed(ctx context.Context, drive DriveActuator) (float64, error) {
	left, right, err := drive.WheelSpeeds(ctx)
	if err != nil {
		return 0, err
	}
	return math.Abs(left) + math.Abs(right), nil
}
