// Package spatialmath defines the planar geometry used for field-relative navigation.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/floats/scalar"

	"go.targetnav.dev/navcore/utils"
)

// Epsilon is the default tolerance for IsNear.
const Epsilon = 1e-5

// Vector2D is an immutable field-relative 2-D vector. The zero value is the zero vector.
type Vector2D struct {
	p r2.Point
}

// ZeroVector2D is the vector (0, 0).
var ZeroVector2D = Vector2D{}

// NewVector2D makes a vector from cartesian components.
func NewVector2D(x, y float64) Vector2D {
	return Vector2D{r2.Point{X: x, Y: y}}
}

// NewPolarVector2D makes a vector from a magnitude and an angle in radians.
func NewPolarVector2D(r, theta float64) (Vector2D, error) {
	if r < 0 || math.IsNaN(r) {
		return Vector2D{}, utils.NewDomainError("polar radius", r, "must be non-negative")
	}
	return NewVector2D(r*math.Cos(theta), r*math.Sin(theta)), nil
}

// UnitVector2D returns the unit vector at theta radians.
func UnitVector2D(theta float64) Vector2D {
	return NewVector2D(math.Cos(theta), math.Sin(theta))
}

// X returns the x component.
func (v Vector2D) X() float64 { return v.p.X }

// Y returns the y component.
func (v Vector2D) Y() float64 { return v.p.Y }

// R returns the magnitude.
func (v Vector2D) R() float64 { return v.p.Norm() }

// Theta returns the angle in radians, in (-pi, pi].
func (v Vector2D) Theta() float64 {
	theta := math.Atan2(v.p.Y, v.p.X)
	if theta == -math.Pi {
		return math.Pi
	}
	return theta
}

// Add returns v + o.
func (v Vector2D) Add(o Vector2D) Vector2D { return Vector2D{v.p.Add(o.p)} }

// Sub returns v - o.
func (v Vector2D) Sub(o Vector2D) Vector2D { return Vector2D{v.p.Sub(o.p)} }

// Mul returns v scaled by k.
func (v Vector2D) Mul(k float64) Vector2D { return Vector2D{v.p.Mul(k)} }

// Dot returns the dot product of v and o.
func (v Vector2D) Dot(o Vector2D) float64 { return v.p.Dot(o.p) }

// Negate returns -v.
func (v Vector2D) Negate() Vector2D { return v.Mul(-1) }

// Normal returns v rotated 90 degrees clockwise, (y, -x).
func (v Vector2D) Normal() Vector2D {
	return NewVector2D(v.p.Y, -v.p.X)
}

// Rotate returns v rotated counterclockwise by theta radians.
func (v Vector2D) Rotate(theta float64) Vector2D {
	sin, cos := math.Sincos(theta)
	return NewVector2D(v.p.X*cos-v.p.Y*sin, v.p.X*sin+v.p.Y*cos)
}

// Equal is exact component equality.
func (v Vector2D) Equal(o Vector2D) bool {
	return v.p == o.p
}

// IsNear reports whether the magnitudes of v and o differ by at most eps. Direction is ignored:
// two vectors of the same length pointing different ways are near.
func (v Vector2D) IsNear(o Vector2D, eps float64) bool {
	if v.Equal(o) {
		return true
	}
	return scalar.EqualWithinAbs(o.R(), v.R(), eps)
}

// IsNearDefault is IsNear with Epsilon.
func (v Vector2D) IsNearDefault(o Vector2D) bool {
	return v.IsNear(o, Epsilon)
}

// String formats v as cartesian components.
func (v Vector2D) String() string {
	return fmt.Sprintf("(%.3f, %.3f)", v.p.X, v.p.Y)
}

// PolarString formats v as magnitude and angle in degrees.
func (v Vector2D) PolarString() string {
	return fmt.Sprintf("(r=%.3f, theta=%.2f deg)", v.R(), utils.RadToDeg(v.Theta()))
}
