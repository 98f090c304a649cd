package inject

import (
	"context"

	"go.targetnav.dev/navcore/components/camera"
)

// VisionSource is an injected vision source.
type VisionSource struct {
	camera.VisionSource
	HasTargetFunc func(ctx context.Context) (bool, error)
	BearingFunc   func(ctx context.Context) (float64, float64, error)
	SetModeFunc   func(ctx context.Context, mode camera.Mode) error
}

// HasTarget calls the injected HasTarget or the real version.
func (v *VisionSource) HasTarget(ctx context.Context) (bool, error) {
	if v.HasTargetFunc == nil {
		return v.VisionSource.HasTarget(ctx)
	}
	return v.HasTargetFunc(ctx)
}

// Bearing calls the injected Bearing or the real version.
func (v *VisionSource) Bearing(ctx context.Context) (float64, float64, error) {
	if v.BearingFunc == nil {
		return v.VisionSource.Bearing(ctx)
	}
	return v.BearingFunc(ctx)
}

// SetMode calls the injected SetMode or the real version.
func (v *VisionSource) SetMode(ctx context.Context, mode camera.Mode) error {
	if v.SetModeFunc == nil {
		return v.VisionSource.SetMode(ctx, mode)
	}
	return v.SetModeFunc(ctx, mode)
}
