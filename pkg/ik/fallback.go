package ik

import (
	"fmt"

	"github.com/hmaier/armik/pkg/spatial"
)

// transposeStep computes the Jacobian-transpose step Jt * (W e), damped by
// the fallback scale. Robust near singularities where the normal equations
// break down, at the price of precision. Each component is attenuated by how
// close its DOF is to a limit in the direction the step would move it: full
// step when moving away, linearly down to zero when moving into the safety
// margin.
func (s *Solver) transposeStep(jac [][6]float64, e [6]float64, w [6]float64) []float64 {
	coords := s.model.Coords()
	delta := make([]float64, len(s.dofs))

	for i, d := range s.dofs {
		sum := 0.0
		for k := 0; k < 6; k++ {
			sum += jac[i][k] * w[k] * e[k]
		}
		delta[i] = s.cfg.FallbackScale * sum

		m := d.Margin(s.cfg.SafetyMargin)
		if m <= 0 {
			continue
		}
		q := coords[d.Addr]
		if delta[i] > 0 && q > d.Hi-m {
			delta[i] *= spatial.Clamp((d.Hi-q)/m, 0, 1)
		} else if delta[i] < 0 && q < d.Lo+m {
			delta[i] *= spatial.Clamp((q-d.Lo)/m, 0, 1)
		}
	}
	scaleToStepLimit(delta, s.cfg.StepLimit)
	return delta
}

// nearLimit reports whether any ControlledDOF currently sits inside the
// safety margin of its range. Used to skip the LM trial loop outright, which
// near a boundary mostly burns trials on rejected steps.
func (s *Solver) nearLimit() bool {
	coords := s.model.Coords()
	for _, d := range s.dofs {
		m := d.Margin(s.cfg.SafetyMargin)
		if m <= 0 {
			continue
		}
		q := coords[d.Addr]
		if q < d.Lo+m || q > d.Hi-m {
			return true
		}
	}
	return false
}

// strategy is one named step policy. Per iteration the solver walks the
// ordered strategy list and takes the first one that applies and produces a
// step.
type strategy struct {
	name     string
	fallback bool // counts against the consecutive-fallback cap
	applies  func() bool
	compute  func(jac [][6]float64, e [6]float64, w [6]float64) ([]float64, bool)
}

func (s *Solver) buildStrategies() []strategy {
	always := func() bool { return true }
	transpose := func(jac [][6]float64, e [6]float64, w [6]float64) ([]float64, bool) {
		return s.transposeStep(jac, e, w), true
	}
	return []strategy{
		{name: "transpose-near-limit", fallback: true, applies: s.nearLimit, compute: transpose},
		{name: "levenberg-marquardt", applies: always, compute: s.lmStep},
		{name: "transpose-fallback", fallback: true, applies: always, compute: transpose},
	}
}

// chooseStep picks the step for one iteration and reports whether a fallback
// strategy produced it.
func (s *Solver) chooseStep(jac [][6]float64, e [6]float64, w [6]float64) (delta []float64, usedFallback, ok bool) {
	for _, st := range s.strategies {
		if !st.applies() {
			continue
		}
		if d, ok := st.compute(jac, e, w); ok {
			return d, st.fallback, true
		}
	}
	return nil, false, false
}

// applyStep integrates the step into the actuator command channels. The new
// command is previous command + step, not measured position + step: the
// integral accumulation lets commanded torque build up against persistent
// disturbance instead of resetting to the sagging measured position every
// frame. The result is clamped in order to the actuator's command range, a
// directional soft wall at the joint range (motion deeper into a breached
// margin is blocked, retreat is always allowed) backed by a hard range
// clamp, and finally to within the anti-windup offset of the measured
// position.
//
// While the host integrator is paused the clamped command is also written to
// the coordinate buffer as a kinematic preview, so paused-mode iteration
// makes observable progress.
func (s *Solver) applyStep(delta []float64, hostPaused bool) error {
	if len(s.binds) != len(s.dofs) {
		return fmt.Errorf("apply step: %d dofs with %d actuator bindings", len(s.dofs), len(s.binds))
	}
	coords := s.model.Coords()

	for i, d := range s.dofs {
		b := s.binds[i]
		q := coords[d.Addr]
		prev := s.model.Command(b.Channel)

		cmd := prev + delta[i]
		cmd = spatial.Clamp(cmd, b.Lo, b.Hi)

		if m := d.Margin(s.cfg.SafetyMargin); d.Limited && m > 0 {
			if q < d.Lo+m && cmd < prev {
				cmd = prev
			} else if q > d.Hi-m && cmd > prev {
				cmd = prev
			}
			cmd = spatial.Clamp(cmd, d.Lo, d.Hi)
		}

		cmd = spatial.Clamp(cmd, q-s.cfg.MaxCommandOffset, q+s.cfg.MaxCommandOffset)

		s.model.SetCommand(b.Channel, cmd)
		if hostPaused {
			coords[d.Addr] = cmd
		}
	}
	if hostPaused {
		s.model.Forward()
	}
	return nil
}
