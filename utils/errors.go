package utils

import (
	"fmt"

	"github.com/pkg/errors"
)

// DomainError is returned when a physical input falls outside the range where a computation is
// defined: a negative radius, a power or voltage out of bounds, a tangent singularity.
type DomainError struct {
	Quantity string
	Value    float64
	Reason   string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s %v out of domain: %s", e.Quantity, e.Value, e.Reason)
}

// NewDomainError returns a DomainError carrying a stack trace.
func NewDomainError(quantity string, value float64, reason string) error {
	return errors.WithStack(&DomainError{Quantity: quantity, Value: value, Reason: reason})
}

// NewOutOfRangeDomainError is used when value must lie in [minVal, maxVal].
func NewOutOfRangeDomainError(quantity string, value, minVal, maxVal float64) error {
	return NewDomainError(quantity, value, fmt.Sprintf("must be in [%v, %v]", minVal, maxVal))
}

// IsDomainError reports whether err wraps a DomainError.
func IsDomainError(err error) bool {
	var target *DomainError
	return errors.As(err, &target)
}

// LookupError is returned when a piecewise table has no entry for a key. It indicates a coverage
// bug in the table rather than a runtime condition.
type LookupError struct {
	Table string
	Key   float64
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("no %s entry covers %v", e.Table, e.Key)
}

// NewLookupError returns a LookupError carrying a stack trace.
func NewLookupError(table string, key float64) error {
	return errors.WithStack(&LookupError{Table: table, Key: key})
}

// IsLookupError reports whether err wraps a LookupError.
func IsLookupError(err error) bool {
	var target *LookupError
	return errors.As(err, &target)
}

// RangeError is returned by actuators commanded outside their accepted interval.
type RangeError struct {
	Name  string
	Value float64
	Min   float64
	Max   float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s command %v outside [%v, %v]", e.Name, e.Value, e.Min, e.Max)
}

// NewRangeError returns a RangeError carrying a stack trace.
func NewRangeError(name string, value, minVal, maxVal float64) error {
	return errors.WithStack(&RangeError{Name: name, Value: value, Min: minVal, Max: maxVal})
}

// IsRangeError reports whether err wraps a RangeError.
func IsRangeError(err error) bool {
	var target *RangeError
	return errors.As(err, &target)
}
