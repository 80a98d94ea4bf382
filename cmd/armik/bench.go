package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/hmaier/armik/pkg/ik"
	"github.com/hmaier/armik/pkg/kinematics"
	"github.com/hmaier/armik/pkg/spatial"
)

type BenchCommand struct {
	OutDir string `long:"out" default:"bench" description:"Directory for convergence plots"`
	Iters  int    `long:"iters" default:"100" description:"Solver iteration budget per scenario"`
}

type scenario struct {
	name   string
	delta  spatial.Vec3
	euler  spatial.Vec3
	rotate bool
}

var scenarios = []scenario{
	{name: "reach_forward", delta: spatial.Vec3{0.02, 0, 0}},
	{name: "reach_up", delta: spatial.Vec3{0, 0, 0.05}},
	{name: "reach_side", delta: spatial.Vec3{0, 0.08, -0.02}},
	{name: "long_diagonal", delta: spatial.Vec3{0.1, 0.1, 0.05}},
	{name: "yaw_quarter", euler: spatial.Vec3{0, 0, 0.4}, rotate: true},
	{name: "tilt_and_reach", delta: spatial.Vec3{0.04, 0, 0.02}, euler: spatial.Vec3{0, 0.3, 0}, rotate: true},
}

type benchResult struct {
	name      string
	iters     int
	converged bool
	stalled   bool
	history   []float64
}

func (c *BenchCommand) Execute(args []string) error {
	if err := os.MkdirAll(c.OutDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	var results []benchResult
	for _, sc := range scenarios {
		res, err := c.run(sc)
		if err != nil {
			return fmt.Errorf("scenario %s: %w", sc.name, err)
		}
		if err := c.plotHistory(res); err != nil {
			return fmt.Errorf("plot %s: %w", sc.name, err)
		}
		results = append(results, res)
	}

	printSummary(results)
	fmt.Printf("Plots written to %s/\n", c.OutDir)
	return nil
}

// run drives one scenario with a single-iteration cap so the per-iteration
// error history is observable from the outside.
func (c *BenchCommand) run(sc scenario) (benchResult, error) {
	arm := kinematics.NewSixDOF()
	cfg := ik.DefaultConfig()
	cfg.ItersPaused = 1

	solver, err := ik.New(arm, cfg)
	if err != nil {
		return benchResult{}, err
	}

	if sc.rotate {
		solver.SetTargetOrientationDelta(sc.euler)
	}
	if sc.delta.Norm() > 0 {
		solver.SetTargetPositionDelta(sc.delta)
	}

	res := benchResult{name: sc.name}
	for i := 0; i < c.Iters; i++ {
		solver.Update(time.Now(), true)
		d := solver.Diag()
		res.history = append(res.history, d.LastError)
		res.iters = i + 1
		if solver.Converged() || solver.Stalled() {
			res.converged = solver.Converged()
			res.stalled = solver.Stalled()
			break
		}
	}
	return res, nil
}

func (c *BenchCommand) plotHistory(res benchResult) error {
	p := plot.New()
	p.Title.Text = "Convergence: " + res.name
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "combined pose error"

	pts := make(plotter.XYs, len(res.history))
	for i, e := range res.history {
		pts[i].X = float64(i)
		pts[i].Y = e
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	p.Add(line, plotter.NewGrid())

	out := filepath.Join(c.OutDir, res.name+".png")
	return p.Save(6*vg.Inch, 4*vg.Inch, out)
}

func printSummary(results []benchResult) {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	fmt.Println(headerStyle.Render("Solver benchmark"))

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("SCENARIO", "ITERS", "FINAL ERR", "OUTCOME")
	for _, r := range results {
		outcome := "budget exhausted"
		if r.converged {
			outcome = "converged"
		} else if r.stalled {
			outcome = "stalled"
		}
		final := 0.0
		if len(r.history) > 0 {
			final = r.history[len(r.history)-1]
		}
		t.Row(r.name, fmt.Sprintf("%d", r.iters), fmt.Sprintf("%.5f", final), outcome)
	}
	fmt.Println(t.Render())
}
