package base_test

import (
	"context"
	"math"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.targetnav.dev/navcore/components/base"
	"go.targetnav.dev/navcore/testutils/inject"
	"go.targetnav.dev/navcore/utils"
)

func TestCheckPowers(t *testing.T) {
	test.That(t, base.CheckPowers(0, 0), test.ShouldBeNil)
	test.That(t, base.CheckPowers(-1, 1), test.ShouldBeNil)

	err := base.CheckPowers(1.2, 0)
	test.That(t, utils.IsRangeError(err), test.ShouldBeTrue)
	test.That(t, err, test.ShouldBeError, "left power command 1.2 outside [-1, 1]")

	err = base.CheckPowers(0, -1.01)
	test.That(t, err, test.ShouldBeError, "right power command -1.01 outside [-1, 1]")

	test.That(t, utils.IsRangeError(base.CheckPowers(math.NaN(), 0)), test.ShouldBeTrue)
}

func TestTotalSpeed(t *testing.T) {
	ctx := context.Background()
	drive := &inject.DriveActuator{}
	drive.WheelSpeedsFunc = func(ctx context.Context) (float64, float64, error) {
		return 30, -30, nil
	}
	speed, err := base.TotalSpeed(ctx, drive)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, speed, test.ShouldEqual, 60)

	drive.WheelSpeedsFunc = func(ctx context.Context) (float64, float64, error) {
		return 0, 0, errors.New("encoder unplugged")
	}
	_, err = base.TotalSpeed(ctx, drive)
	test.That(t, err, test.ShouldBeError, errors.New("encoder unplugged"))
}
