package targeting

import (
	"math"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.targetnav.dev/navcore/spatialmath"
	"go.targetnav.dev/navcore/utils"
)

// Bucket maps the yaws in [MinYaw, MaxYaw] to the normal of the target in view.
type Bucket struct {
	MinYaw, MaxYaw float64
	Normal         spatialmath.Vector2D
}

func (b Bucket) contains(yaw float64) bool {
	return yaw >= b.MinYaw && yaw <= b.MaxYaw
}

// OrientationMap finds the target a robot is facing from its yaw. Buckets are scanned in order
// and the first containing the yaw wins, which settles shared boundaries.
type OrientationMap struct {
	name    string
	buckets []Bucket
}

// NewOrientationMap returns a map over buckets.
func NewOrientationMap(name string, buckets ...Bucket) *OrientationMap {
	return &OrientationMap{name: name, buckets: buckets}
}

// Name returns the map name.
func (m *OrientationMap) Name() string { return m.name }

// Buckets returns the buckets in scan order.
func (m *OrientationMap) Buckets() []Bucket { return m.buckets }

// Normal returns the unit normal of the target face in view at yaw degrees.
func (m *OrientationMap) Normal(yaw float64) (spatialmath.Vector2D, error) {
	if math.IsNaN(yaw) {
		return spatialmath.Vector2D{}, utils.NewLookupError(m.name+" target map", yaw)
	}
	bucket, ok := lo.Find(m.buckets, func(b Bucket) bool { return b.contains(yaw) })
	if !ok {
		return spatialmath.Vector2D{}, utils.NewLookupError(m.name+" target map", yaw)
	}
	return bucket.Normal, nil
}

const (
	// StandardTargets names the map of the axis aligned targets.
	StandardTargets = "standard"
	// RocketTargets names the map of the angled targets.
	RocketTargets = "rocket"
)

// rocketNormalAngle is the angle of the angled target faces off the field X axis.
const rocketNormalAngle = 61.0

// StandardMap covers targets whose faces are aligned with the field axes.
var StandardMap = NewOrientationMap(StandardTargets,
	Bucket{-45, 45, spatialmath.NewVector2D(0, -1)},
	Bucket{45, 135, spatialmath.NewVector2D(-1, 0)},
	Bucket{135, 180, spatialmath.NewVector2D(0, 1)},
	Bucket{-180, -135, spatialmath.NewVector2D(0, 1)},
	Bucket{-135, -45, spatialmath.NewVector2D(1, 0)},
)

// RocketMap covers targets whose faces sit 61 degrees off the field X axis.
var RocketMap = NewOrientationMap(RocketTargets,
	Bucket{-180, -90, spatialmath.UnitVector2D(utils.DegToRad(rocketNormalAngle))},
	Bucket{-90, 0, spatialmath.UnitVector2D(utils.DegToRad(-rocketNormalAngle))},
	Bucket{0, 90, spatialmath.UnitVector2D(utils.DegToRad(rocketNormalAngle - 180))},
	Bucket{90, 180, spatialmath.UnitVector2D(utils.DegToRad(180 - rocketNormalAngle))},
)

// MapFor returns the map named kind.
func MapFor(kind string) (*OrientationMap, error) {
	switch kind {
	case StandardTargets, "":
		return StandardMap, nil
	case RocketTargets:
		return RocketMap, nil
	}
	return nil, errors.Errorf("unknown target map %q", kind)
}
