package targeting

import (
	"math"
	"testing"

	"go.viam.com/test"

	"go.targetnav.dev/navcore/spatialmath"
	"go.targetnav.dev/navcore/utils"
)

func TestOrientationMapsCoverEveryYaw(t *testing.T) {
	for _, m := range []*OrientationMap{StandardMap, RocketMap} {
		for yaw := -180; yaw <= 180; yaw++ {
			normal, err := m.Normal(float64(yaw))
			test.That(t, err, test.ShouldBeNil)
			test.That(t, normal.R(), test.ShouldAlmostEqual, 1, 1e-9)
		}
	}
}

func TestOrientationMapBoundaries(t *testing.T) {
	for _, tc := range []struct {
		m    *OrientationMap
		yaw  float64
		want spatialmath.Vector2D
	}{
		{StandardMap, 0, spatialmath.NewVector2D(0, -1)},
		{StandardMap, 45, spatialmath.NewVector2D(0, -1)},
		{StandardMap, -45, spatialmath.NewVector2D(0, -1)},
		{StandardMap, 90, spatialmath.NewVector2D(-1, 0)},
		{StandardMap, 135, spatialmath.NewVector2D(-1, 0)},
		{StandardMap, 180, spatialmath.NewVector2D(0, 1)},
		{StandardMap, -180, spatialmath.NewVector2D(0, 1)},
		{StandardMap, -135, spatialmath.NewVector2D(0, 1)},
		{StandardMap, -90, spatialmath.NewVector2D(1, 0)},
		{RocketMap, -180, spatialmath.UnitVector2D(utils.DegToRad(61))},
		{RocketMap, -90, spatialmath.UnitVector2D(utils.DegToRad(61))},
		{RocketMap, 0, spatialmath.UnitVector2D(utils.DegToRad(-61))},
		{RocketMap, 90, spatialmath.UnitVector2D(utils.DegToRad(-119))},
		{RocketMap, 180, spatialmath.UnitVector2D(utils.DegToRad(119))},
	} {
		normal, err := tc.m.Normal(tc.yaw)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, normal.X(), test.ShouldAlmostEqual, tc.want.X(), 1e-9)
		test.That(t, normal.Y(), test.ShouldAlmostEqual, tc.want.Y(), 1e-9)
	}
}

func TestOrientationMapLookupError(t *testing.T) {
	for _, yaw := range []float64{180.5, -181, math.NaN(), math.Inf(1)} {
		_, err := StandardMap.Normal(yaw)
		test.That(t, utils.IsLookupError(err), test.ShouldBeTrue)
	}
	_, err := NewOrientationMap("empty").Normal(0)
	test.That(t, err, test.ShouldBeError, "no empty target map entry covers 0")
}

func TestMapFor(t *testing.T) {
	m, err := MapFor("rocket")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m, test.ShouldEqual, RocketMap)
	m, err = MapFor("")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Name(), test.ShouldEqual, StandardTargets)
	test.That(t, m.Buckets(), test.ShouldHaveLength, 5)
	_, err = MapFor("cargo")
	test.That(t, err, test.ShouldBeError, `unknown target map "cargo"`)
}
