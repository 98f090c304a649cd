package main

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"go.targetnav.dev/navcore/components/base/fake"
	"go.targetnav.dev/navcore/services/navigation"
	"go.targetnav.dev/navcore/spatialmath"
	"go.targetnav.dev/navcore/utils"
	"go.targetnav.dev/navcore/vision/targeting"
)

// summary describes a finished simulation.
type summary struct {
	Elapsed      time.Duration
	Steps        int
	Position     spatialmath.Vector2D
	Yaw          float64
	Distance     float64
	MeanPower    float64
	MaxPower     float64
	PowerStdDev  float64
	MaxYawChange float64
}

func summarize(trace []fake.Sample) (summary, error) {
	if len(trace) == 0 {
		return summary{}, errors.New("the robot never moved")
	}
	powers := make(stats.Float64Data, 0, len(trace))
	yawChanges := make(stats.Float64Data, 0, len(trace))
	for i, sample := range trace {
		powers = append(powers, meanPower(sample))
		if i > 0 {
			yawChanges = append(yawChanges, utils.AngleDiffDeg(sample.Yaw, trace[i-1].Yaw))
		}
	}
	last := trace[len(trace)-1]
	s := summary{
		Elapsed:  last.Elapsed,
		Steps:    len(trace),
		Position: last.Position,
		Yaw:      last.Yaw,
		Distance: last.Distance,
	}

	var err error
	if s.MeanPower, err = powers.Mean(); err != nil {
		return summary{}, err
	}
	if s.MaxPower, err = powers.Max(); err != nil {
		return summary{}, err
	}
	if s.PowerStdDev, err = powers.StandardDeviation(); err != nil {
		return summary{}, err
	}
	if len(yawChanges) > 0 {
		if s.MaxYawChange, err = stats.Max(yawChanges); err != nil {
			return summary{}, err
		}
	}
	return s, nil
}

func (s summary) write(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"elapsed %s over %d steps\nposition %s yaw %.1f\ndistance %.2f\npower mean %.3f max %.3f stddev %.3f\nmax yaw change per step %.2f\n",
		s.Elapsed, s.Steps, s.Position, s.Yaw, s.Distance, s.MeanPower, s.MaxPower, s.PowerStdDev, s.MaxYawChange)
	return err
}

func meanPower(sample fake.Sample) float64 {
	return (math.Abs(sample.LeftPower) + math.Abs(sample.RightPower)) / 2
}

// writePowerHistogram prints how the mean commanded power was spread over the run.
func writePowerHistogram(w io.Writer, trace []fake.Sample) error {
	if len(trace) == 0 {
		return nil
	}
	powers := make([]float64, 0, len(trace))
	for _, sample := range trace {
		powers = append(powers, meanPower(sample))
	}
	return histogram.Fprint(w, histogram.Hist(10, powers), histogram.Linear(40))
}

// writeRoute prints the route followed by a table of the legs that drive it.
func writeRoute(w io.Writer, route targeting.RouteToTarget, intercept, normal navigation.Leg) error {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Leg", "Distance", "Heading", "Velocity"})
	for _, row := range []struct {
		name string
		leg  navigation.Leg
	}{{"intercept", intercept}, {"normal", normal}} {
		t.AppendRow(table.Row{
			row.name,
			fmt.Sprintf("%.1f", row.leg.Distance),
			fmt.Sprintf("%.1f", row.leg.Heading),
			fmt.Sprintf("%.1f", row.leg.Velocity),
		})
	}
	_, err := fmt.Fprintf(w, "route %s\n%s\n", route, t.Render())
	return err
}

// plotTrace writes the commanded side powers over time to path. The format follows the extension.
func plotTrace(trace []fake.Sample, title, path string) error {
	left := make(plotter.XYs, len(trace))
	right := make(plotter.XYs, len(trace))
	for i, sample := range trace {
		secs := sample.Elapsed.Seconds()
		left[i] = plotter.XY{X: secs, Y: sample.LeftPower}
		right[i] = plotter.XY{X: secs, Y: sample.RightPower}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "seconds"
	p.Y.Label.Text = "power"
	p.Y.Min, p.Y.Max = -1, 1
	p.Add(plotter.NewGrid())

	for i, series := range []struct {
		name string
		xys  plotter.XYs
	}{{"left", left}, {"right", right}} {
		line, err := plotter.NewLine(series.xys)
		if err != nil {
			return errors.Wrapf(err, "plotting %s power", series.name)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(series.name, line)
	}
	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}
