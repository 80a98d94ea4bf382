// Package teleop provides the keyboard-intent teleoperation controller
// driving the simulated arm through the IK solver.
package teleop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hmaier/armik/pkg/ik"
	"github.com/hmaier/armik/pkg/kinematics"
	"github.com/hmaier/armik/pkg/spatial"
)

// State is one per-tick snapshot published to the UI.
type State struct {
	Positions map[string]float64
	Commands  map[string]float64
	EEPos     spatial.Vec3
	TargetPos spatial.Vec3
	Diag      ik.Diagnostics
	Paused    bool
	Timestamp time.Time
}

// Config holds configuration for the controller.
type Config struct {
	Hz            int       `json:"hz"`
	TranslateStep float64   `json:"translate_step"` // metres per intent
	RotateStep    float64   `json:"rotate_step"`    // radians per intent
	Solver        ik.Config `json:"solver"`
}

// DefaultConfig returns the stock teleoperation configuration.
func DefaultConfig() Config {
	return Config{
		Hz:            60,
		TranslateStep: 0.005,
		RotateStep:    0.02,
		Solver:        ik.DefaultConfig(),
	}
}

// Controller manages the teleoperation control loop. Intents issued between
// ticks mutate the solver's target state under the mutex, so they coalesce:
// the solver always chases the latest target, never a queue.
type Controller struct {
	arm    *kinematics.SimArm
	solver *ik.Solver
	cfg    Config

	mu      sync.Mutex
	paused  bool
	running bool

	stateCh chan State
	logCh   chan string
}

// NewController creates a controller around a fresh simulated arm.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	arm := kinematics.NewSixDOF()

	c := &Controller{
		arm:     arm,
		cfg:     cfg,
		stateCh: make(chan State, 1),
		logCh:   make(chan string, 10),
	}

	solver, err := ik.New(arm, cfg.Solver, ik.WithLogf(c.log))
	if err != nil {
		return nil, fmt.Errorf("create solver: %w", err)
	}
	c.solver = solver
	return c, nil
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the control frequency.
func (c *Controller) Hz() int {
	return c.cfg.Hz
}

// Arm exposes the simulated arm for diagnostics.
func (c *Controller) Arm() *kinematics.SimArm { return c.arm }

func (c *Controller) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Nudge issues a translation intent along one world axis (0=x, 1=y, 2=z).
func (c *Controller) Nudge(axis int, dir float64) {
	if axis < 0 || axis > 2 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var d spatial.Vec3
	d[axis] = dir * c.cfg.TranslateStep
	c.solver.SetTargetPositionDelta(d)
}

// Rotate issues a rotation intent about one axis (0=roll, 1=pitch, 2=yaw).
func (c *Controller) Rotate(axis int, dir float64) {
	if axis < 0 || axis > 2 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var e spatial.Vec3
	e[axis] = dir * c.cfg.RotateStep
	c.solver.SetTargetOrientationDelta(e)
}

// TogglePause flips the host-paused flag and reports the new value. While
// paused the solver may iterate deeply; the servo dynamics stand still.
func (c *Controller) TogglePause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = !c.paused
	if c.paused {
		c.log("Simulation paused (solver in deep-iteration mode)")
	} else {
		c.log("Simulation running")
	}
	return c.paused
}

// ResetPose re-synchronizes the target to the live end-effector pose.
func (c *Controller) ResetPose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.solver.ResetToCurrentPose()
	c.log("Target reset to current pose")
}

// Start begins the control loop and blocks until ctx is cancelled.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("already running")
	}
	c.running = true
	c.mu.Unlock()

	c.log("Teleoperation started at %d Hz", c.cfg.Hz)

	ticker := time.NewTicker(time.Second / time.Duration(c.cfg.Hz))
	defer ticker.Stop()

	dt := 1.0 / float64(c.cfg.Hz)
	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case <-ticker.C:
			c.step(dt)
		}
	}
}

// Step runs a single control tick. Exposed for headless drivers and tests;
// Start calls it once per ticker interval.
func (c *Controller) Step(dt float64) {
	c.step(dt)
}

func (c *Controller) step(dt float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.solver.Update(time.Now(), c.paused)
	if !c.paused {
		c.arm.Step(dt)
	}

	c.sendState(c.snapshotLocked())
}

func (c *Controller) snapshotLocked() State {
	positions := make(map[string]float64, len(c.arm.Joints()))
	coords := c.arm.Coords()
	for _, j := range c.arm.Joints() {
		positions[j.Name] = coords[j.Addr]
	}
	commands := make(map[string]float64, len(c.arm.Actuators()))
	for _, a := range c.arm.Actuators() {
		commands[a.Joint] = c.arm.Command(a.Channel)
	}

	eeID, _ := c.arm.BodyID(c.cfg.Solver.EndEffector)
	eePos, _ := c.arm.BodyPose(eeID)
	tgtPos, _ := c.solver.Target()

	return State{
		Positions: positions,
		Commands:  commands,
		EEPos:     eePos,
		TargetPos: tgtPos,
		Diag:      c.solver.Diag(),
		Paused:    c.paused,
		Timestamp: time.Now(),
	}
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
	c.log("Teleoperation stopped")
}
