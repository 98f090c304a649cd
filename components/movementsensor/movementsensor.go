// Package movementsensor defines the heading and acceleration sources consumed by navigation.
package movementsensor

import (
	"context"

	"github.com/golang/geo/r3"

	"go.targetnav.dev/navcore/spatialmath"
)

// A HeadingSource reports robot yaw in degrees, positive clockwise, zero along the field +Y axis.
type HeadingSource interface {
	// Yaw returns the heading folded into [-180, 180].
	Yaw(ctx context.Context) (float64, error)

	// Angle returns the continuous accumulated angle, which keeps counting past 360.
	Angle(ctx context.Context) (float64, error)

	// ResetHeading makes the current heading yaw zero.
	ResetHeading(ctx context.Context) error
}

// An AccelerationSource reports world-frame linear acceleration in g. Only X and Y are used.
type AccelerationSource interface {
	WorldLinearAcceleration(ctx context.Context) (r3.Vector, error)
}

// An AngleSensor is a gyro that only reports the accumulated angle.
type AngleSensor interface {
	Angle(ctx context.Context) (float64, error)
	ResetHeading(ctx context.Context) error
}

type gyroHeading struct {
	AngleSensor
}

// FromAngleSensor derives a HeadingSource from a gyro's accumulated angle.
func FromAngleSensor(sensor AngleSensor) HeadingSource {
	return &gyroHeading{sensor}
}

func (g *gyroHeading) Yaw(ctx context.Context) (float64, error) {
	angle, err := g.Angle(ctx)
	if err != nil {
		return 0, err
	}
	return spatialmath.NormalizeYaw(angle), nil
}

// RobotVector returns the unit vector the robot currently faces, field relative.
func RobotVector(ctx context.Context, heading HeadingSource) (spatialmath.Vector2D, error) {
	yaw, err := heading.Yaw(ctx)
	if err != nil {
		return spatialmath.Vector2D{}, err
	}
	return spatialmath.YawToVector(yaw), nil
}
