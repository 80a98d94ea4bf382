package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/hmaier/armik/pkg/ik"
	"github.com/hmaier/armik/pkg/kinematics"
)

type DemoCommand struct{}

var (
	demoHeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	demoSuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	demoDimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (c *DemoCommand) Execute(args []string) error {
	fmt.Println(demoHeaderStyle.Render("armik demo"))
	fmt.Println(demoDimStyle.Render("━━━━━━━━━━"))
	fmt.Println()

	names := make([]string, len(scenarios))
	for i, sc := range scenarios {
		names[i] = sc.name
	}

	var picked string
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Pick a target scenario").
			Options(huh.NewOptions(names...)...).
			Value(&picked),
	))
	if err := form.Run(); err != nil {
		return err
	}

	var sc scenario
	for _, s := range scenarios {
		if s.name == picked {
			sc = s
			break
		}
	}

	arm := kinematics.NewSixDOF()
	solver, err := ik.New(arm, ik.DefaultConfig())
	if err != nil {
		return err
	}

	eeID, _ := arm.BodyID(ik.DefaultConfig().EndEffector)
	startPos, _ := arm.BodyPose(eeID)

	if sc.rotate {
		solver.SetTargetOrientationDelta(sc.euler)
	}
	if sc.delta.Norm() > 0 {
		solver.SetTargetPositionDelta(sc.delta)
	}

	start := time.Now()
	solver.Update(start, true)
	elapsed := time.Since(start)

	endPos, _ := arm.BodyPose(eeID)
	d := solver.Diag()

	fmt.Println()
	fmt.Printf("Scenario:  %s\n", sc.name)
	fmt.Printf("Moved:     %v -> %v\n", startPos, endPos)
	fmt.Printf("Error:     %.5f  (lambda %.2g)\n", d.LastError, d.Lambda)
	fmt.Printf("Wall time: %s\n", elapsed.Round(time.Microsecond))
	fmt.Println()
	switch {
	case d.Converged:
		fmt.Println(demoSuccessStyle.Render("Converged."))
	case d.Stalled:
		fmt.Println("Stalled: target snapped to the reachable pose.")
	default:
		fmt.Println("Iteration budget exhausted before convergence.")
	}
	return nil
}
