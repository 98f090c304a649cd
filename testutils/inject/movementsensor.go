package inject

import (
	"context"

	"github.com/golang/geo/r3"

	"go.targetnav.dev/navcore/components/movementsensor"
)

// HeadingSource is an injected heading source.
type HeadingSource struct {
	movementsensor.HeadingSource
	YawFunc          func(ctx context.Context) (float64, error)
	AngleFunc        func(ctx context.Context) (float64, error)
	ResetHeadingFunc func(ctx context.Context) error
}

// Yaw calls the injected Yaw or the real version.
func (h *HeadingSource) Yaw(ctx context.Context) (float64, error) {
	if h.YawFunc == nil {
		return h.HeadingSource.Yaw(ctx)
	}
	return h.YawFunc(ctx)
}

// Angle calls the injected Angle or the real version.
func (h *HeadingSource) Angle(ctx context.Context) (float64, error) {
	if h.AngleFunc == nil {
		return h.HeadingSource.Angle(ctx)
	}
	return h.AngleFunc(ctx)
}

// ResetHeading calls the injected ResetHeading or the real version.
func (h *HeadingSource) ResetHeading(ctx context.Context) error {
	if h.ResetHeadingFunc == nil {
		return h.HeadingSource.ResetHeading(ctx)
	}
	return h.ResetHeadingFunc(ctx)
}

// AccelerationSource is an injected accelerometer.
type AccelerationSource struct {
	movementsensor.AccelerationSource
	WorldLinearAccelerationFunc func(ctx context.Context) (r3.Vector, error)
}

// WorldLinearAcceleration calls the injected WorldLinearAcceleration or the real version.
func (a *AccelerationSource) WorldLinearAcceleration(ctx context.Context) (r3.Vector, error) {
	if a.WorldLinearAccelerationFunc == nil {
		return a.AccelerationSource.WorldLinearAcceleration(ctx)
	}
	return a.WorldLinearAccelerationFunc(ctx)
}
