package spatialmath

import (
	"math"

	"go.targetnav.dev/navcore/utils"
)

// Yaw is measured in degrees clockwise from the field +Y axis. Field angles are measured in
// degrees counterclockwise from the field +X axis. Both are reported in (-180, 180].

func foldHalfTurn(deg float64) float64 {
	if deg > 180 {
		return deg - 360
	}
	if deg < -180 {
		return deg + 360
	}
	return deg
}

// YawToFieldAngle converts a yaw in [-180, 180] to a field angle.
func YawToFieldAngle(yaw float64) float64 {
	return foldHalfTurn(90 - yaw)
}

// FieldAngleToYaw converts a field angle in [-180, 180] to a yaw.
func FieldAngleToYaw(fieldAngle float64) float64 {
	return foldHalfTurn(90 - fieldAngle)
}

// YawToVector returns the field-relative unit vector the robot faces at yaw.
func YawToVector(yaw float64) Vector2D {
	return UnitVector2D(utils.DegToRad(YawToFieldAngle(yaw)))
}

// NormalizeYaw maps a continuous, accumulated gyro angle to a yaw in [-180, 180].
func NormalizeYaw(angle float64) float64 {
	return foldHalfTurn(math.Mod(angle, 360))
}
