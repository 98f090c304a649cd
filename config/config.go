// Package config defines the navigation configuration and how it is loaded.
package config

import (
	"time"

	"github.com/pkg/errors"

	"go.targetnav.dev/navcore/collision"
	"go.targetnav.dev/navcore/components/base/sensorcontrolled"
	"go.targetnav.dev/navcore/components/camera"
	"go.targetnav.dev/navcore/control"
	"go.targetnav.dev/navcore/kinematics"
	"go.targetnav.dev/navcore/logging"
	"go.targetnav.dev/navcore/services/navigation"
	"go.targetnav.dev/navcore/vision/targeting"
)

// Config is everything a navigation run needs to know about the robot and the field.
type Config struct {
	LogLevel string `json:"log_level"`

	Kinematics         kinematics.Config `json:"kinematics"`
	HeadingPID         control.PIDConfig `json:"heading_pid"`
	SpeedTolerance     float64           `json:"speed_tolerance"`
	CollisionThreshold float64           `json:"collision_threshold"`

	Camera             camera.Mount  `json:"camera"`
	TargetHeight       float64       `json:"target_height"`
	TargetMap          string        `json:"target_map"`
	Standoff           float64       `json:"standoff"`
	RouteSearchTimeout time.Duration `json:"route_search_timeout"`
	InterceptVelocity  float64       `json:"intercept_velocity"`
	NormalVelocity     float64       `json:"normal_velocity"`

	// DriveAngle, DriveDistance and DriveVelocity make up the configured vector drive.
	DriveAngle    float64 `json:"drive_angle"`
	DriveDistance float64 `json:"drive_distance"`
	DriveVelocity float64 `json:"drive_velocity"`

	DrivePower    float64       `json:"drive_power"`
	StraightPower float64       `json:"straight_power"`
	MaxTaskTime   time.Duration `json:"max_task_time"`

	// Simulation holds free-form settings for simulated runs.
	Simulation AttributeMap `json:"simulation,omitempty"`
}

// Default returns the configuration of the competition robot.
func Default() *Config {
	route := navigation.DefaultRouteConfig()
	return &Config{
		LogLevel:           logging.INFO.String(),
		Kinematics:         kinematics.DefaultConfig(),
		HeadingPID:         control.HeadingPIDConfig(),
		SpeedTolerance:     sensorcontrolled.DefaultSpeedTolerance,
		CollisionThreshold: collision.DefaultJerkThreshold,
		Camera:             route.Mount,
		TargetHeight:       route.TargetHeight,
		TargetMap:          targeting.StandardTargets,
		Standoff:           route.Standoff,
		RouteSearchTimeout: route.SearchTimeout,
		InterceptVelocity:  route.InterceptVelocity,
		NormalVelocity:     route.NormalVelocity,
		DriveAngle:         90,
		DriveDistance:      24,
		DriveVelocity:      24,
		DrivePower:         sensorcontrolled.DefaultSidePower,
		StraightPower:      sensorcontrolled.DefaultStraightPower,
		MaxTaskTime:        10 * time.Second,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if _, err := logging.LevelFromString(cfg.LogLevel); err != nil {
		return errors.Wrapf(err, "%s.log_level", path)
	}
	if err := cfg.Kinematics.Validate(path + ".kinematics"); err != nil {
		return err
	}
	if err := cfg.HeadingPID.Validate(path + ".heading_pid"); err != nil {
		return err
	}
	if _, err := targeting.MapFor(cfg.TargetMap); err != nil {
		return errors.Wrapf(err, "%s.target_map", path)
	}

	positive := []struct {
		name string
		val  float64
	}{
		{"speed_tolerance", cfg.SpeedTolerance},
		{"collision_threshold", cfg.CollisionThreshold},
		{"camera.height", cfg.Camera.Height},
		{"target_height", cfg.TargetHeight},
		{"intercept_velocity", cfg.InterceptVelocity},
		{"normal_velocity", cfg.NormalVelocity},
		{"drive_velocity", cfg.DriveVelocity},
		{"route_search_timeout", cfg.RouteSearchTimeout.Seconds()},
		{"max_task_time", cfg.MaxTaskTime.Seconds()},
	}
	for _, p := range positive {
		if p.val <= 0 {
			return errors.Errorf("%s.%s must be positive, got %v", path, p.name, p.val)
		}
	}
	if cfg.TargetHeight <= cfg.Camera.Height {
		return errors.Errorf("%s.target_height must be above the camera, got %v", path, cfg.TargetHeight)
	}
	if cfg.Standoff < 0 {
		return errors.Errorf("%s.standoff must not be negative", path)
	}
	if cfg.DriveDistance < 0 {
		return errors.Errorf("%s.drive_distance must not be negative", path)
	}
	for _, p := range []struct {
		name string
		val  float64
	}{
		{"drive_power", cfg.DrivePower},
		{"straight_power", cfg.StraightPower},
	} {
		if p.val < -1 || p.val > 1 {
			return errors.Errorf("%s.%s must be in [-1, 1], got %v", path, p.name, p.val)
		}
	}
	return nil
}

// Level returns the configured log level.
func (cfg *Config) Level() logging.Level {
	level, err := logging.LevelFromString(cfg.LogLevel)
	if err != nil {
		return logging.INFO
	}
	return level
}

// Profile derives the kinematic profile.
func (cfg *Config) Profile() (*kinematics.Profile, error) {
	return kinematics.NewProfile(cfg.Kinematics)
}

// RouteConfig returns the route to target settings.
func (cfg *Config) RouteConfig() (navigation.RouteConfig, error) {
	targets, err := targeting.MapFor(cfg.TargetMap)
	if err != nil {
		return navigation.RouteConfig{}, err
	}
	return navigation.RouteConfig{
		Mount:             cfg.Camera,
		TargetHeight:      cfg.TargetHeight,
		Standoff:          cfg.Standoff,
		SearchTimeout:     cfg.RouteSearchTimeout,
		InterceptVelocity: cfg.InterceptVelocity,
		NormalVelocity:    cfg.NormalVelocity,
		Targets:           targets,
	}, nil
}

// DriveLeg returns the configured vector drive.
func (cfg *Config) DriveLeg() navigation.Leg {
	return navigation.Leg{Heading: cfg.DriveAngle, Distance: cfg.DriveDistance, Velocity: cfg.DriveVelocity}
}
