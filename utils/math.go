package utils

import "math"

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// WrapDegrees folds an angle into [-180, 180). An input of exactly 180 maps to -180.
func WrapDegrees(deg float64) float64 {
	return deg - math.Floor((deg+180)/360)*360
}

// AngleDiffDeg returns the closest difference from the two given
// angles. The arguments are commutative.
func AngleDiffDeg(a1, a2 float64) float64 {
	return 180 - math.Abs(math.Abs(a1-a2)-180)
}

// Clamp limits value to [minVal, maxVal].
func Clamp(value, minVal, maxVal float64) float64 {
	return math.Max(minVal, math.Min(maxVal, value))
}
