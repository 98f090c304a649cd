package control

import (
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"

	"go.targetnav.dev/navcore/utils"
)

// PIDConfig configures a PID loop. Gains are in per-second form: the integral term accumulates
// Ki*error*dt and the derivative term is Kd*(change in error)/dt.
type PIDConfig struct {
	Kp         float64 `json:"kp"`
	Ki         float64 `json:"ki"`
	Kd         float64 `json:"kd"`
	InputMin   float64 `json:"input_min"`
	InputMax   float64 `json:"input_max"`
	OutputMin  float64 `json:"output_min"`
	OutputMax  float64 `json:"output_max"`
	Continuous bool    `json:"continuous"`
	// Tolerance is the absolute error below which OnTarget reports true.
	Tolerance float64 `json:"tolerance"`
}

// HeadingPIDConfig is a continuous loop over [-180, 180] degrees with output limited to half power.
func HeadingPIDConfig() PIDConfig {
	return PIDConfig{
		Kp:         0.025,
		Ki:         0,
		Kd:         0.002,
		InputMin:   -180,
		InputMax:   180,
		OutputMin:  -0.5,
		OutputMax:  0.5,
		Continuous: true,
		Tolerance:  2,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *PIDConfig) Validate(path string) error {
	if cfg.Kp == 0 && cfg.Ki == 0 && cfg.Kd == 0 {
		return errors.Errorf("%s should have at least one of kp, ki or kd", path)
	}
	if cfg.InputMax <= cfg.InputMin {
		return errors.Errorf("%s input range [%v, %v] is empty", path, cfg.InputMin, cfg.InputMax)
	}
	if cfg.OutputMax <= cfg.OutputMin {
		return errors.Errorf("%s output range [%v, %v] is empty", path, cfg.OutputMin, cfg.OutputMax)
	}
	if cfg.Tolerance < 0 {
		return errors.Errorf("%s tolerance must not be negative", path)
	}
	return nil
}

// PID is a discrete PID loop with an optional continuous (wrap-around) input.
// It starts disabled; a disabled loop outputs zero.
type PID struct {
	mu       sync.Mutex
	cfg      PIDConfig
	setPoint float64
	enabled  bool
	int      float64
	error    float64
	hasError bool
	output   float64
}

// NewPID returns a disabled loop with the given config.
func NewPID(cfg PIDConfig) (*PID, error) {
	if err := cfg.Validate("pid"); err != nil {
		return nil, err
	}
	return &PID{cfg: cfg}, nil
}

// SetSetPoint changes the target. Targets outside the input range are clamped to it.
func (p *PID) SetSetPoint(setPoint float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setPoint = utils.Clamp(setPoint, p.cfg.InputMin, p.cfg.InputMax)
}

// SetPoint returns the current target.
func (p *PID) SetPoint() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.setPoint
}

// Enable starts the loop from a clean integral and derivative history.
func (p *PID) Enable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	p.enabled = true
}

// Disable stops the loop and zeroes its output.
func (p *PID) Disable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	p.enabled = false
}

// Enabled reports whether the loop is running.
func (p *PID) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// Output returns the last computed output.
func (p *PID) Output() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.output
}

// Error returns setpoint - measured. For a continuous loop the result takes the short way around,
// in [-span/2, span/2).
func (p *PID) Error(measured float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errorFor(measured)
}

// OnTarget reports whether the error for measured is inside the tolerance.
func (p *PID) OnTarget(measured float64) bool {
	return math.Abs(p.Error(measured)) < p.cfg.Tolerance
}

// Next runs one step of the loop and returns the new output, dt is the delta time between two
// subsequent calls. Returns false and a zero output when the loop is disabled.
func (p *PID) Next(measured float64, dt time.Duration) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		p.output = 0
		return 0, false
	}
	dtS := dt.Seconds()
	if dtS <= 0 {
		return p.output, false
	}

	err := p.errorFor(measured)
	p.int += p.cfg.Ki * err * dtS
	p.int = utils.Clamp(p.int, p.cfg.OutputMin, p.cfg.OutputMax)

	var deriv float64
	if p.hasError {
		deriv = (err - p.error) / dtS
	}
	output := p.cfg.Kp*err + p.int + p.cfg.Kd*deriv
	p.error = err
	p.hasError = true

	p.output = utils.Clamp(output, p.cfg.OutputMin, p.cfg.OutputMax)
	return p.output, true
}

// Config returns the loop configuration.
func (p *PID) Config() PIDConfig {
	return p.cfg
}

func (p *PID) errorFor(measured float64) float64 {
	err := p.setPoint - measured
	if p.cfg.Continuous {
		span := p.cfg.InputMax - p.cfg.InputMin
		err -= math.Floor((err+span/2)/span) * span
	}
	return err
}

func (p *PID) reset() {
	p.int = 0
	p.error = 0
	p.hasError = false
	p.output = 0
}
