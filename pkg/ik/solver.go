// Package ik implements the numeric inverse-kinematics core: a damped
// least-squares solver over a finite-difference Jacobian with a joint-limit
// soft barrier, a Jacobian-transpose fallback, stall detection and
// anti-windup actuator-command integration.
package ik

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/hmaier/armik/pkg/kinematics"
)

// Solver converts a desired end-effector pose into joint actuator commands.
// It is single threaded: the host invokes Update synchronously once per
// simulation/render tick.
type Solver struct {
	cfg   Config
	model kinematics.Model

	eeBody int
	dofs   []ControlledDOF
	binds  []ActuatorBinding

	target poseTarget

	// Per-instance solver state, persisting across Update calls and reset
	// by ResetToCurrentPose.
	lambda    float64
	stalls    int
	fallbacks int
	lastErr   float64
	converged bool
	stalled   bool
	disabled  bool

	strategies []strategy
	lastUpdate time.Time
	logf       func(format string, args ...any)
}

// Option configures a Solver at construction.
type Option func(*Solver)

// WithLogf routes solver diagnostics to a custom sink. The default is the
// standard logger.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(s *Solver) { s.logf = logf }
}

// New builds a solver against the given model. It fails when the
// configuration is invalid, the end-effector body cannot be resolved, or any
// controlled joint lacks an actuator binding: these are model/configuration
// mismatches no runtime recovery can paper over, and the host must not
// proceed with the instance.
func New(model kinematics.Model, cfg Config, opts ...Option) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Solver{
		cfg:     cfg,
		model:   model,
		lambda:  cfg.InitLambda,
		lastErr: math.Inf(1),
		logf:    log.Printf,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.Rebind(); err != nil {
		return nil, err
	}
	s.strategies = s.buildStrategies()
	s.ResetToCurrentPose()
	return s, nil
}

// Rebind rebuilds the ControlledDOF and ActuatorBinding tables from the
// model's current name tables. The host calls this after a model (re)load.
func (s *Solver) Rebind() error {
	id, ok := s.model.BodyID(s.cfg.EndEffector)
	if !ok {
		return fmt.Errorf("ik: end-effector body %q not in model", s.cfg.EndEffector)
	}
	s.eeBody = id

	if s.cfg.Mode == ModeJointSpace {
		dofs, binds, err := resolveDOFs(s.model, s.cfg.Joints, s.logf)
		if err != nil {
			return fmt.Errorf("ik: %w", err)
		}
		if len(dofs) == 0 {
			return fmt.Errorf("ik: no controllable joints resolved")
		}
		s.dofs = dofs
		s.binds = binds
	}
	return nil
}

// DOFs returns the resolved controlled degrees of freedom.
func (s *Solver) DOFs() []ControlledDOF { return s.dofs }

// Diagnostics is a read-only snapshot of solver state for the host UI.
type Diagnostics struct {
	Lambda     float64
	Stalls     int
	Fallbacks  int
	LastError  float64
	Converged  bool
	Stalled    bool
	Disabled   bool
	LastUpdate time.Time
}

// Diag returns the current diagnostics snapshot.
func (s *Solver) Diag() Diagnostics {
	return Diagnostics{
		Lambda:     s.lambda,
		Stalls:     s.stalls,
		Fallbacks:  s.fallbacks,
		LastError:  s.lastErr,
		Converged:  s.converged,
		Stalled:    s.stalled,
		Disabled:   s.disabled,
		LastUpdate: s.lastUpdate,
	}
}

// Update runs one solve call. With no pending intent it is a no-op. In
// direct-proxy mode the target pose is written straight to the proxy body.
// Otherwise it iterates the numeric joint-space path up to the paused or
// running cap: the cap is minimal while the host is actively time-stepping
// so commands cannot accumulate across uncontrolled physics steps.
//
// No panic escapes Update; an unexpected internal failure disables further
// solving for this instance rather than destabilizing the host's frame loop.
func (s *Solver) Update(now time.Time, hostPaused bool) {
	if s.disabled {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logf("ik: update failed: %v; disabling solver", r)
			s.disabled = true
		}
	}()
	s.lastUpdate = now

	if !s.target.dirty {
		return
	}

	if s.cfg.Mode == ModeDirectProxy {
		if err := s.model.SetBodyPose(s.eeBody, s.target.pos, s.target.rot); err != nil {
			s.logf("ik: proxy pose injection: %v; disabling solver", err)
			s.disabled = true
			return
		}
		s.target.dirty = false
		s.converged = true
		return
	}

	iters := s.cfg.ItersRunning
	if hostPaused {
		iters = s.cfg.ItersPaused
	}

	for it := 0; it < iters; it++ {
		s.model.Forward()
		curPos, curRot := s.model.BodyPose(s.eeBody)

		if s.target.locked {
			s.target.rot = s.target.lockRot
		}

		e := poseResidual(curPos, s.target.pos, curRot, s.target.rot)
		comb := combinedError(e)
		improvement := s.lastErr - comb
		s.lastErr = comb

		if comb < s.cfg.ConvergeTol {
			s.converged = true
			s.target.dirty = false
			return
		}

		if improvement < s.cfg.StallImprove {
			s.stalls++
		} else {
			s.stalls = 0
		}
		if s.stalls >= s.cfg.StallCount {
			// Progress is blocked, typically by contact or force
			// limits. Stop pushing and take the current pose as the
			// new target.
			s.snapTarget(curPos, curRot)
			s.stalled = true
			return
		}

		w := s.weights()
		jac := s.jacobian()

		delta, usedFallback, ok := s.chooseStep(jac, e, w)
		if !ok {
			return
		}
		if usedFallback {
			s.fallbacks++
			if s.fallbacks >= s.cfg.MaxFallbacks {
				// Stuck in the robust-but-imprecise mode; snap
				// before the target winds up.
				s.snapTarget(curPos, curRot)
				return
			}
		} else {
			s.fallbacks = 0
		}

		if err := s.applyStep(delta, hostPaused); err != nil {
			s.logf("ik: %v", err)
			return
		}
	}
}
