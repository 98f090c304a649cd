// Package fake implements a vision source that sees a target from a simulated robot pose.
package fake

import (
	"context"
	"math"
	"sync"

	"go.targetnav.dev/navcore/components/camera"
	"go.targetnav.dev/navcore/spatialmath"
	"go.targetnav.dev/navcore/utils"
)

const (
	// HorizontalFOV is the full horizontal field of view in degrees.
	HorizontalFOV = 54.0
	// VerticalFOV is the full vertical field of view in degrees.
	VerticalFOV = 41.0
)

// A PoseSource reports where the robot is on the field.
type PoseSource interface {
	Position() spatialmath.Vector2D
	// Heading returns the true yaw in degrees.
	Heading() float64
}

// Camera is a camera.VisionSource looking at one target. It only tracks in vision mode.
type Camera struct {
	mu           sync.Mutex
	pose         PoseSource
	mount        camera.Mount
	target       spatialmath.Vector2D
	targetHeight float64
	mode         camera.Mode
	modes        []camera.Mode

	// Fail, when set, is returned by every method of the camera.
	Fail error
}

// NewCamera returns a camera in driver mode mounted on pose, with a target at target.
func NewCamera(pose PoseSource, mount camera.Mount, target spatialmath.Vector2D, targetHeight float64) *Camera {
	return &Camera{pose: pose, mount: mount, target: target, targetHeight: targetHeight, mode: camera.ModeDriver}
}

// MoveTarget places the target somewhere else.
func (c *Camera) MoveTarget(target spatialmath.Vector2D) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = target
}

// SetMode switches the pipeline.
func (c *Camera) SetMode(ctx context.Context, mode camera.Mode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Fail != nil {
		return c.Fail
	}
	c.mode = mode
	c.modes = append(c.modes, mode)
	return nil
}

// Mode returns the current mode.
func (c *Camera) Mode() camera.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Modes returns every mode set, in order.
func (c *Camera) Modes() []camera.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]camera.Mode(nil), c.modes...)
}

// HasTarget reports whether the target is inside the field of view.
func (c *Camera) HasTarget(ctx context.Context) (bool, error) {
	_, _, visible, err := c.look()
	return visible, err
}

// Bearing returns the angles to the target whether or not it is in view.
func (c *Camera) Bearing(ctx context.Context) (float64, float64, error) {
	tx, ty, _, err := c.look()
	return tx, ty, err
}

func (c *Camera) look() (float64, float64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Fail != nil {
		return 0, 0, false, c.Fail
	}
	yaw := c.pose.Heading()
	robotVec := spatialmath.YawToVector(yaw)
	lens := c.pose.Position().Add(robotVec.Normal().Mul(c.mount.OffsetFromCenter))
	toTarget := c.target.Sub(lens)

	// tx is positive when the target is clockwise of the boresight
	tx := utils.WrapDegrees(utils.RadToDeg(robotVec.Theta() - toTarget.Theta()))
	elevation := utils.RadToDeg(math.Atan2(c.targetHeight-c.mount.Height, toTarget.R()))
	ty := elevation - c.mount.AngleFromHorizontal

	visible := c.mode == camera.ModeVision &&
		math.Abs(tx) <= HorizontalFOV/2 &&
		math.Abs(ty) <= VerticalFOV/2
	return tx, ty, visible, nil
}
