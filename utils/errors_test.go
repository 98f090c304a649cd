package utils

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestErrorKinds(t *testing.T) {
	domain := NewOutOfRangeDomainError("power", 1.5, 0, 1)
	test.That(t, domain, test.ShouldBeError, "power 1.5 out of domain: must be in [0, 1]")
	test.That(t, IsDomainError(domain), test.ShouldBeTrue)
	test.That(t, IsRangeError(domain), test.ShouldBeFalse)

	wrapped := errors.Wrap(NewLookupError("standard orientation", 200), "route")
	test.That(t, IsLookupError(wrapped), test.ShouldBeTrue)
	test.That(t, IsDomainError(wrapped), test.ShouldBeFalse)
	test.That(t, wrapped.Error(), test.ShouldEqual, "route: no standard orientation entry covers 200")

	rangeErr := NewRangeError("left", -1.2, -1, 1)
	test.That(t, IsRangeError(rangeErr), test.ShouldBeTrue)
	var re *RangeError
	test.That(t, errors.As(rangeErr, &re), test.ShouldBeTrue)
	test.That(t, re.Value, test.ShouldEqual, -1.2)
}
