// Package kinematics derives the drive train's achievable velocity and power constants from its
// physical parameters, using a linear voltage to velocity motor model with a static friction offset.
package kinematics

import (
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"

	"go.targetnav.dev/navcore/utils"
)

// Config holds the physical parameters of a differential drive train. Distances are in the unit
// of WheelDiameter; every derived velocity is in that unit per second.
type Config struct {
	MaxVoltage       float64 `json:"max_voltage"`
	MaxMotorRPM      float64 `json:"max_motor_rpm"`
	WheelDiameter    float64 `json:"wheel_diameter"`
	GearReduction    float64 `json:"gear_reduction"`
	TickSeconds      float64 `json:"tick_seconds"`
	StartVoltage     float64 `json:"start_voltage"`
	AccelTimeSeconds float64 `json:"accel_time_seconds"`
}

// DefaultConfig describes a CIM-driven kitbot chassis with six inch wheels on a 50 Hz loop.
func DefaultConfig() Config {
	return Config{
		MaxVoltage:       12.0,
		MaxMotorRPM:      5300.0,
		WheelDiameter:    6.0,
		GearReduction:    10.7,
		TickSeconds:      0.02,
		StartVoltage:     1.25,
		AccelTimeSeconds: 2.0,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	for _, field := range []struct {
		name string
		val  float64
	}{
		{"max_voltage", cfg.MaxVoltage},
		{"max_motor_rpm", cfg.MaxMotorRPM},
		{"wheel_diameter", cfg.WheelDiameter},
		{"gear_reduction", cfg.GearReduction},
		{"tick_seconds", cfg.TickSeconds},
		{"accel_time_seconds", cfg.AccelTimeSeconds},
	} {
		if field.val <= 0 {
			return errors.Errorf("%s.%s must be positive, got %v", path, field.name, field.val)
		}
	}
	if cfg.StartVoltage < 0 || cfg.StartVoltage >= cfg.MaxVoltage {
		return errors.Errorf("%s.start_voltage must be in [0, %v), got %v", path, cfg.MaxVoltage, cfg.StartVoltage)
	}
	if cfg.AccelTimeSeconds < cfg.TickSeconds {
		return errors.Errorf("%s.accel_time_seconds must be at least one tick", path)
	}
	return nil
}

// Profile is the read-only set of constants derived from a Config.
type Profile struct {
	cfg             Config
	distancePerRev  float64
	maxVelocity     float64
	kV              float64
	velocityPerStep float64
	powerPerStep    float64
	startPower      float64
}

// NewProfile validates cfg and derives its constants.
func NewProfile(cfg Config) (*Profile, error) {
	if err := cfg.Validate("kinematics"); err != nil {
		return nil, err
	}
	p := &Profile{cfg: cfg}
	p.distancePerRev = math.Pi * cfg.WheelDiameter
	p.maxVelocity = p.distancePerRev * (cfg.MaxMotorRPM / 60) / cfg.GearReduction
	p.kV = cfg.MaxVoltage / p.maxVelocity
	p.velocityPerStep = p.maxVelocity / (cfg.AccelTimeSeconds / cfg.TickSeconds)

	var err error
	if p.powerPerStep, err = p.VoltageToPower(p.kV * p.velocityPerStep); err != nil {
		return nil, errors.Wrap(err, "power per step")
	}
	if p.startPower, err = p.VoltageToPower(cfg.StartVoltage); err != nil {
		return nil, errors.Wrap(err, "start power")
	}
	return p, nil
}

// Default returns the profile for DefaultConfig, computed once.
var Default = sync.OnceValue(func() *Profile {
	p, err := NewProfile(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return p
})

// Config returns the parameters the profile was derived from.
func (p *Profile) Config() Config { return p.cfg }

// DistancePerRevolution is the wheel circumference.
func (p *Profile) DistancePerRevolution() float64 { return p.distancePerRev }

// MaxVelocity is the free speed of the drive at full voltage.
func (p *Profile) MaxVelocity() float64 { return p.maxVelocity }

// KV is volts per unit of velocity.
func (p *Profile) KV() float64 { return p.kV }

// VelocityPerStep is the velocity gained per tick while accelerating.
func (p *Profile) VelocityPerStep() float64 { return p.velocityPerStep }

// PowerPerStep is the power increment that yields VelocityPerStep.
func (p *Profile) PowerPerStep() float64 { return p.powerPerStep }

// StartPower is the power needed to overcome static friction.
func (p *Profile) StartPower() float64 { return p.startPower }

// SecPerStep is the control tick length in seconds.
func (p *Profile) SecPerStep() float64 { return p.cfg.TickSeconds }

// Tick is the control tick length.
func (p *Profile) Tick() time.Duration {
	return time.Duration(p.cfg.TickSeconds * float64(time.Second))
}

// PowerToVoltage converts a power in [0, 1] to volts.
func (p *Profile) PowerToVoltage(power float64) (float64, error) {
	if power < 0 || power > 1 || math.IsNaN(power) {
		return 0, utils.NewOutOfRangeDomainError("power", power, 0, 1)
	}
	return p.cfg.MaxVoltage * power, nil
}

// VoltageToPower converts volts in [0, max voltage] to a power.
func (p *Profile) VoltageToPower(voltage float64) (float64, error) {
	if err := p.checkVoltage(voltage); err != nil {
		return 0, err
	}
	return voltage / p.cfg.MaxVoltage, nil
}

// VoltageToVelocity returns the steady-state velocity at voltage. Below the start voltage the
// drive does not move.
func (p *Profile) VoltageToVelocity(voltage float64) (float64, error) {
	if err := p.checkVoltage(voltage); err != nil {
		return 0, err
	}
	if voltage < p.cfg.StartVoltage {
		return 0, nil
	}
	return (voltage - p.cfg.StartVoltage) / p.kV, nil
}

// VelocityToVoltage returns the voltage needed to hold velocity.
func (p *Profile) VelocityToVoltage(velocity float64) float64 {
	return p.kV*velocity + p.cfg.StartVoltage
}

// PowerToVelocity chains PowerToVoltage and VoltageToVelocity.
func (p *Profile) PowerToVelocity(power float64) (float64, error) {
	voltage, err := p.PowerToVoltage(power)
	if err != nil {
		return 0, err
	}
	return p.VoltageToVelocity(voltage)
}

// VelocityToPower chains VelocityToVoltage and VoltageToPower.
func (p *Profile) VelocityToPower(velocity float64) (float64, error) {
	return p.VoltageToPower(p.VelocityToVoltage(velocity))
}

// AccelDistance is the distance covered in n ticks of constant acceleration from rest, the sum
// of the arithmetic progression dv*dt*(0 + 1 + ... + n-1).
func (p *Profile) AccelDistance(n int) float64 {
	fn := float64(n)
	return p.velocityPerStep * p.cfg.TickSeconds * fn * (fn - 1) / 2
}

// AccelStepsFor is the largest whole number of acceleration ticks whose AccelDistance does not
// exceed dist.
func (p *Profile) AccelStepsFor(dist float64) int {
	c := -2 * dist / (p.velocityPerStep * p.cfg.TickSeconds)
	return int(math.Floor((1 + math.Sqrt(1-4*c)) / 2))
}

func (p *Profile) checkVoltage(voltage float64) error {
	if voltage < 0 || voltage > p.cfg.MaxVoltage || math.IsNaN(voltage) {
		return utils.NewOutOfRangeDomainError("voltage", voltage, 0, p.cfg.MaxVoltage)
	}
	return nil
}
