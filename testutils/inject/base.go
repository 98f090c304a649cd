package inject

import (
	"context"

	"go.targetnav.dev/navcore/components/base"
)

// DriveActuator is an injected drive train.
type DriveActuator struct {
	base.DriveActuator
	SetDifferentialFunc func(ctx context.Context, left, right float64) error
	StopFunc            func(ctx context.Context) error
	DistanceFunc        func(ctx context.Context) (float64, error)
	ResetDistanceFunc   func(ctx context.Context) error
	WheelSpeedsFunc     func(ctx context.Context) (float64, float64, error)
}

// SetDifferential calls the injected SetDifferential or the real version.
func (d *DriveActuator) SetDifferential(ctx context.Context, left, right float64) error {
	if d.SetDifferentialFunc == nil {
		return d.DriveActuator.SetDifferential(ctx, left, right)
	}
	return d.SetDifferentialFunc(ctx, left, right)
}

// Stop calls the injected Stop or the real version.
func (d *DriveActuator) Stop(ctx context.Context) error {
	if d.StopFunc == nil {
		return d.DriveActuator.Stop(ctx)
	}
	return d.StopFunc(ctx)
}

// Distance calls the injected Distance or the real version.
func (d *DriveActuator) Distance(ctx context.Context) (float64, error) {
	if d.DistanceFunc == nil {
		return d.DriveActuator.Distance(ctx)
	}
	return d.DistanceFunc(ctx)
}

// ResetDistance calls the injected ResetDistance or the real version.
func (d *DriveActuator) ResetDistance(ctx context.Context) error {
	if d.ResetDistanceFunc == nil {
		return d.DriveActuator.ResetDistance(ctx)
	}
	return d.ResetDistanceFunc(ctx)
}

// WheelSpeeds calls the injected WheelSpeeds or the real version.
func (d *DriveActuator) WheelSpeeds(ctx context.Context) (float64, float64, error) {
	if d.WheelSpeedsFunc == nil {
		return d.DriveActuator.WheelSpeeds(ctx)
	}
	return d.WheelSpeedsFunc(ctx)
}
