// Package main is the navsim command, which runs navigation tasks against a simulated robot.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.targetnav.dev/navcore/components/base/sensorcontrolled"
	"go.targetnav.dev/navcore/config"
	"go.targetnav.dev/navcore/logging"
	"go.targetnav.dev/navcore/operation"
	"go.targetnav.dev/navcore/services/navigation"
	"go.targetnav.dev/navcore/vision/targeting"
)

const (
	flagConfig   = "config"
	flagSet      = "set"
	flagDebug    = "debug"
	flagRealtime = "realtime"
	flagPlot     = "plot"
	flagLogFile  = "log-file"
	flagHist     = "histogram"

	flagAngle    = "angle"
	flagDistance = "distance"
	flagVelocity = "velocity"
	flagDuration = "duration"
	flagPower    = "power"
	flagSide     = "side"
	flagNoDrive  = "no-drive"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "cannot load .env:", err)
		os.Exit(1)
	}
	app := newApp(os.Stdout, logging.NewLogger)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// navsim holds what the global flags resolve to.
type navsim struct {
	newLogger func(name string) logging.Logger
	cfg       *config.Config
	logger    logging.Logger
	logFile   *logging.FileAppender
}

// taskBuilder returns the task to simulate and the labels it holds.
type taskBuilder func(c *cli.Context, sim *simulation) (operation.Task, []string, error)

func newApp(out io.Writer, newLogger func(name string) logging.Logger) *cli.App {
	ns := &navsim{newLogger: newLogger}
	return &cli.App{
		Name:            "navsim",
		Usage:           "simulate navigation tasks on a differential drive robot",
		HideHelpCommand: true,
		Writer:          out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				EnvVars: []string{config.EnvConfigPath},
				Usage:   "load configuration from `FILE`",
			},
			&cli.StringSliceFlag{
				Name:  flagSet,
				Usage: "override a config attribute with `KEY=VALUE`, dotted keys nest",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
			&cli.BoolFlag{
				Name:  flagRealtime,
				Usage: "tick on the wall clock instead of as fast as possible",
			},
			&cli.StringFlag{
				Name:  flagPlot,
				Usage: "write the commanded powers to `FILE` (.png, .svg or .pdf)",
			},
			&cli.BoolFlag{
				Name:  flagHist,
				Usage: "print a histogram of the commanded power after the summary",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write JSON logs to `FILE`, rotated as it grows",
			},
		},
		Before: ns.before,
		After:  ns.after,
		Commands: []*cli.Command{
			{
				Name:  "vector",
				Usage: "turn to a field angle and drive a distance",
				Flags: []cli.Flag{
					&cli.Float64Flag{Name: flagAngle, Usage: "field angle in degrees, counterclockwise from +X"},
					&cli.Float64Flag{Name: flagDistance, Usage: "distance to drive"},
					&cli.Float64Flag{Name: flagVelocity, Usage: "cruise velocity"},
				},
				Action: ns.action(vectorTask),
			},
			{
				Name:  "route",
				Usage: "find the vision target and drive the route to it",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: flagNoDrive, Usage: "only compute and print the route"},
				},
				Action: ns.action(routeTask),
			},
			{
				Name:  "straight",
				Usage: "drive straight holding the heading for a fixed time",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: flagDuration, Value: time.Second, Usage: "how long to drive"},
					&cli.Float64Flag{Name: flagPower, Usage: "power to drive at"},
				},
				Action: ns.action(straightTask),
			},
			{
				Name:  "side",
				Usage: "drive one side of the robot for a fixed time",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagSide, Value: sensorcontrolled.SideLeft.String(), Usage: "`SIDE` to drive, left or right"},
					&cli.DurationFlag{Name: flagDuration, Value: time.Second, Usage: "how long to drive"},
					&cli.Float64Flag{Name: flagPower, Usage: "power to drive at"},
				},
				Action: ns.action(sideTask),
			},
			{
				Name:  "schema",
				Usage: "print the JSON schema of the config file",
				Action: func(c *cli.Context) error {
					out, err := json.MarshalIndent(config.Schema(), "", "  ")
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(c.App.Writer, string(out))
					return err
				},
			},
		},
	}
}

func (ns *navsim) before(c *cli.Context) error {
	cfg := config.Default()
	if path := c.String(flagConfig); path != "" {
		var err error
		if cfg, err = config.Read(path); err != nil {
			return err
		}
	}
	if overrides := c.StringSlice(flagSet); len(overrides) > 0 {
		attrs, err := config.ParseAttributes(overrides)
		if err != nil {
			return err
		}
		if err := config.Apply(cfg, attrs); err != nil {
			return err
		}
		if err := cfg.Validate("config"); err != nil {
			return err
		}
	}
	ns.cfg = cfg
	ns.logger = ns.newLogger("navsim")
	ns.logger.SetLevel(cfg.Level())
	if c.Bool(flagDebug) {
		ns.logger.SetLevel(logging.DEBUG)
	}
	if path := c.String(flagLogFile); path != "" {
		ns.logFile = logging.NewFileAppender(path)
		ns.logger.AddAppender(ns.logFile)
	}
	return nil
}

func (ns *navsim) after(c *cli.Context) error {
	if ns.logFile == nil {
		return nil
	}
	return ns.logFile.Close()
}

func (ns *navsim) action(build taskBuilder) cli.ActionFunc {
	return func(c *cli.Context) error {
		sim, err := newSimulation(ns.cfg, c.Bool(flagRealtime), ns.logger)
		if err != nil {
			return err
		}
		task, labels, err := build(c, sim)
		if err != nil {
			return err
		}
		ctx := c.Context
		if c.Bool(flagDebug) {
			ctx = logging.EnableDebugMode(ctx, "")
		}
		runErr := sim.run(ctx, task, labels...)
		if runErr != nil {
			ns.logger.CWarnw(c.Context, "simulation ended with errors", "task", task.Name(), "error", runErr)
		}

		trace := sim.robot.Trace()
		if path := c.String(flagPlot); path != "" && len(trace) > 0 {
			if err := plotTrace(trace, task.Name(), path); err != nil {
				return err
			}
		}
		s, err := summarize(trace)
		if err != nil {
			return multierr.Combine(runErr, err)
		}
		if err := s.write(c.App.Writer); err != nil {
			return err
		}
		if c.Bool(flagHist) {
			if err := writePowerHistogram(c.App.Writer, trace); err != nil {
				return err
			}
		}
		return runErr
	}
}

func vectorTask(c *cli.Context, sim *simulation) (operation.Task, []string, error) {
	leg := sim.cfg.DriveLeg()
	if c.IsSet(flagAngle) {
		leg.Heading = c.Float64(flagAngle)
	}
	if c.IsSet(flagDistance) {
		leg.Distance = c.Float64(flagDistance)
	}
	if c.IsSet(flagVelocity) {
		leg.Velocity = c.Float64(flagVelocity)
	}
	return navigation.NewVectorDrive(sim.deps.Deps, leg), []string{driveLabel}, nil
}

func routeTask(c *cli.Context, sim *simulation) (operation.Task, []string, error) {
	routeCfg, err := sim.cfg.RouteConfig()
	if err != nil {
		return nil, nil, err
	}
	printRoute := func(route targeting.RouteToTarget) {
		legs := navigation.LegsFromRoute(route, routeCfg.InterceptVelocity, routeCfg.NormalVelocity)
		if err := writeRoute(c.App.Writer, route, legs[0], legs[1]); err != nil {
			sim.logger.CWarnw(c.Context, "cannot print route", "error", err)
		}
	}
	if c.Bool(flagNoDrive) {
		return navigation.NewGetRouteToTarget(sim.deps, routeCfg, printRoute), []string{cameraLabel}, nil
	}
	return &printingRoute{
		DriveRouteToTarget: navigation.NewDriveRouteToTarget(sim.deps, routeCfg),
		print:              printRoute,
	}, []string{driveLabel, cameraLabel}, nil
}

// printingRoute prints the route as soon as it is computed.
type printingRoute struct {
	*navigation.DriveRouteToTarget
	print   func(targeting.RouteToTarget)
	printed bool
}

func (p *printingRoute) Tick(ctx context.Context) (operation.Status, error) {
	status, err := p.DriveRouteToTarget.Tick(ctx)
	if route := p.Route(); route != nil && !p.printed {
		p.printed = true
		p.print(*route)
	}
	return status, err
}

func straightTask(c *cli.Context, sim *simulation) (operation.Task, []string, error) {
	power := sim.cfg.StraightPower
	if c.IsSet(flagPower) {
		power = c.Float64(flagPower)
	}
	return sensorcontrolled.NewDriveStraight(sim.deps.Deps, power, c.Duration(flagDuration)), []string{driveLabel}, nil
}

func sideTask(c *cli.Context, sim *simulation) (operation.Task, []string, error) {
	var side sensorcontrolled.Side
	switch name := c.String(flagSide); name {
	case sensorcontrolled.SideLeft.String():
		side = sensorcontrolled.SideLeft
	case sensorcontrolled.SideRight.String():
		side = sensorcontrolled.SideRight
	default:
		return nil, nil, errors.Errorf("unknown side %q", name)
	}
	power := sim.cfg.DrivePower
	if c.IsSet(flagPower) {
		power = c.Float64(flagPower)
	}
	return sensorcontrolled.NewSideDrive(sim.deps.Deps, side, power, c.Duration(flagDuration)), []string{driveLabel}, nil
}
