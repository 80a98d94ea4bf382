package ik

import (
	"fmt"
	"strings"

	"github.com/hmaier/armik/pkg/kinematics"
)

// ControlledDOF is one degree of freedom the solver steers: a generalized
// coordinate address plus its owning joint's limit range. Immutable after
// construction; rebuilt on model reload.
type ControlledDOF struct {
	Joint   string
	Addr    int
	Lo, Hi  float64
	Limited bool
}

// Margin returns the limit-proximity margin for the DOF, as frac of its
// range. Unlimited DOFs report no margin.
func (d ControlledDOF) Margin(frac float64) float64 {
	if !d.Limited {
		return 0
	}
	return frac * (d.Hi - d.Lo)
}

// ActuatorBinding maps a ControlledDOF to exactly one command channel.
// Every ControlledDOF must have one: without it a step could only be applied
// by writing generalized coordinates directly, bypassing the physics model,
// which is never safe.
type ActuatorBinding struct {
	Channel int
	Lo, Hi  float64
}

// resolveDOFs builds the ControlledDOF and ActuatorBinding tables from the
// model's name tables. Joints of unsupported kinds are skipped with a
// diagnostic. An unresolvable joint name or a DOF with no actuator channel
// is a fatal configuration error.
func resolveDOFs(m kinematics.Model, joints []string, logf func(string, ...any)) ([]ControlledDOF, []ActuatorBinding, error) {
	dofs := make([]ControlledDOF, 0, len(joints))
	binds := make([]ActuatorBinding, 0, len(joints))

	for _, name := range joints {
		j, ok := m.JointByName(name)
		if !ok {
			return nil, nil, fmt.Errorf("resolve joints: joint %q not in model", name)
		}
		if j.Kind != kinematics.KindHinge && j.Kind != kinematics.KindSlide {
			logf("skipping joint %q: unsupported kind %s", name, j.Kind)
			continue
		}

		act, ok := findActuator(m.Actuators(), name)
		if !ok {
			return nil, nil, fmt.Errorf("resolve joints: no actuator channel for joint %q", name)
		}

		dofs = append(dofs, ControlledDOF{
			Joint:   j.Name,
			Addr:    j.Addr,
			Lo:      j.Lo,
			Hi:      j.Hi,
			Limited: j.Limited,
		})
		binds = append(binds, ActuatorBinding{
			Channel: act.Channel,
			Lo:      act.Lo,
			Hi:      act.Hi,
		})
	}
	return dofs, binds, nil
}

// findActuator matches a joint name to a command channel: exact name first,
// then a prefixed channel name (e.g. "act_<joint>"), then a suffixed one
// (e.g. "<joint>_servo").
func findActuator(acts []kinematics.Actuator, joint string) (kinematics.Actuator, bool) {
	for _, a := range acts {
		if a.Name == joint {
			return a, true
		}
	}
	for _, a := range acts {
		if strings.HasSuffix(a.Name, joint) {
			return a, true
		}
	}
	for _, a := range acts {
		if strings.HasPrefix(a.Name, joint) {
			return a, true
		}
	}
	return kinematics.Actuator{}, false
}
