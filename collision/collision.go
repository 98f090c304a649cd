// Package collision detects impacts from sudden changes in measured acceleration.
package collision

import (
	"context"
	"math"
	"sync"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.targetnav.dev/navcore/components/movementsensor"
	"go.targetnav.dev/navcore/logging"
)

// DefaultJerkThreshold is the per-sample change in acceleration, in g, treated as an impact.
const DefaultJerkThreshold = 0.5

// ErrCollisionDetected is passed to the abort callback when an impact is seen.
var ErrCollisionDetected = errors.New("collision detected")

// AbortFunc asks the owner of the running tasks to cancel all motion. It must not block.
type AbortFunc func(reason error)

// Monitor compares consecutive X and Y acceleration samples. It never commands motors; on an
// impact it calls its AbortFunc, at most once between resets.
type Monitor struct {
	mu        sync.Mutex
	source    movementsensor.AccelerationSource
	abort     AbortFunc
	threshold float64
	logger    logging.Logger

	last    r3.Vector
	tripped bool
}

// NewMonitor returns a monitor with DefaultJerkThreshold. abort may be nil, in which case the
// drive tasks fail on the tick after an impact.
func NewMonitor(source movementsensor.AccelerationSource, abort AbortFunc, logger logging.Logger) *Monitor {
	return &Monitor{source: source, abort: abort, threshold: DefaultJerkThreshold, logger: logger}
}

// SetThreshold changes the jerk threshold.
func (m *Monitor) SetThreshold(threshold float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threshold = threshold
}

// Reset takes the current acceleration as the baseline and re-arms the monitor.
func (m *Monitor) Reset(ctx context.Context) error {
	accel, err := m.source.WorldLinearAcceleration(ctx)
	if err != nil {
		return errors.Wrap(err, "reading baseline acceleration")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = accel
	m.tripped = false
	return nil
}

// Poll samples acceleration and reports whether the jerk on either axis exceeds the threshold.
// The baseline is updated on every poll.
func (m *Monitor) Poll(ctx context.Context) (bool, error) {
	accel, err := m.source.WorldLinearAcceleration(ctx)
	if err != nil {
		return false, errors.Wrap(err, "reading acceleration")
	}

	m.mu.Lock()
	jerkX := accel.X - m.last.X
	jerkY := accel.Y - m.last.Y
	m.last = accel
	if math.Abs(jerkX) <= m.threshold && math.Abs(jerkY) <= m.threshold {
		m.mu.Unlock()
		return false, nil
	}
	first := !m.tripped
	m.tripped = true
	m.mu.Unlock()

	if first {
		m.logger.CWarnw(ctx, "collision detected, aborting", "jerk_x", jerkX, "jerk_y", jerkY)
		if m.abort != nil {
			m.abort(ErrCollisionDetected)
		}
	}
	return first, nil
}

// Tripped reports whether an impact was seen since the last reset.
func (m *Monitor) Tripped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tripped
}
