package ik

import (
	"encoding/json"
	"fmt"
	"os"
)

// Mode selects how the solver drives the end effector.
type Mode string

const (
	// ModeJointSpace runs the numeric solver and writes actuator commands.
	ModeJointSpace Mode = "joint_space"
	// ModeDirectProxy writes the target pose straight to a free-floating
	// proxy body, bypassing the numeric path entirely.
	ModeDirectProxy Mode = "direct_proxy"
)

// Config holds all solver parameters. Zero values are not usable; start from
// DefaultConfig and override.
type Config struct {
	// EndEffector is the body whose pose is driven to the target. In
	// direct-proxy mode it must name a free-floating body.
	EndEffector string   `json:"end_effector"`
	Joints      []string `json:"joints"`
	Mode        Mode     `json:"mode"`

	// Intent gains applied to incoming deltas.
	TranslateGain float64 `json:"translate_gain"`
	RotateGain    float64 `json:"rotate_gain"`

	// Pose-cost weights. HeldRotWeight applies while the orientation lock
	// is engaged and is substantially higher than RotWeight, so the solver
	// resists rotating to pay for position error.
	PosWeight     float64 `json:"pos_weight"`
	RotWeight     float64 `json:"rot_weight"`
	HeldRotWeight float64 `json:"held_rot_weight"`

	// Joint-limit soft barrier: linear penalty inside LimitMargin
	// (fraction of the joint range) of either limit.
	LimitWeight float64 `json:"limit_weight"`
	LimitMargin float64 `json:"limit_margin"`

	// Trust-region parameters for the damped least-squares step.
	InitLambda   float64 `json:"init_lambda"`
	MinLambda    float64 `json:"min_lambda"`
	MaxLambda    float64 `json:"max_lambda"`
	LambdaGrowth float64 `json:"lambda_growth"`
	MinRatio     float64 `json:"min_ratio"` // actual/predicted reduction quality gate
	MaxTrials    int     `json:"max_trials"`

	// StepLimit bounds the largest per-iteration step component; steps are
	// scaled proportionally, never clamped per element.
	StepLimit float64 `json:"step_limit"`

	// Stall detection: StallCount consecutive iterations with combined
	// error improving by less than StallImprove snap the target.
	StallImprove float64 `json:"stall_improve"`
	StallCount   int     `json:"stall_count"`

	// Jacobian-transpose fallback.
	FallbackScale float64 `json:"fallback_scale"`
	MaxFallbacks  int     `json:"max_fallbacks"`

	// SafetyMargin is the (smaller) limit-proximity fraction that triggers
	// fallback selection and the directional soft wall on commands.
	SafetyMargin float64 `json:"safety_margin"`

	// MaxCommandOffset bounds how far a commanded value may run ahead of
	// the measured position (anti-windup).
	MaxCommandOffset float64 `json:"max_command_offset"`

	// Iteration caps per Update call.
	ItersPaused  int `json:"iters_paused"`
	ItersRunning int `json:"iters_running"`

	// MaxTargetLead bounds how far the target may lead the current
	// end-effector position when translation intents accumulate.
	MaxTargetLead float64 `json:"max_target_lead"`

	// LockOrientation holds the target orientation while translating.
	LockOrientation bool `json:"lock_orientation"`

	ConvergeTol float64 `json:"converge_tol"`
	JacobianEps float64 `json:"jacobian_eps"`
}

// DefaultConfig returns tuned defaults for the stock six-DOF arm.
func DefaultConfig() Config {
	return Config{
		EndEffector: "gripper_frame",
		Joints: []string{
			"shoulder_pan", "shoulder_lift", "elbow_flex",
			"wrist_flex", "wrist_yaw", "wrist_roll",
		},
		Mode:             ModeJointSpace,
		TranslateGain:    1.0,
		RotateGain:       1.0,
		PosWeight:        1.0,
		RotWeight:        0.5,
		HeldRotWeight:    10.0,
		LimitWeight:      5.0,
		LimitMargin:      0.10,
		InitLambda:       0.1,
		MinLambda:        1e-4,
		MaxLambda:        1e3,
		LambdaGrowth:     5.0,
		MinRatio:         0.05,
		MaxTrials:        5,
		StepLimit:        0.2,
		StallImprove:     1e-5,
		StallCount:       5,
		FallbackScale:    0.2,
		MaxFallbacks:     20,
		SafetyMargin:     0.05,
		MaxCommandOffset: 0.5,
		ItersPaused:      100,
		ItersRunning:     1,
		MaxTargetLead:    0.15,
		LockOrientation:  true,
		ConvergeTol:      1e-3,
		JacobianEps:      1e-4,
	}
}

// Validate fails fast on parameters that would make the solver misbehave.
func (c *Config) Validate() error {
	switch {
	case c.EndEffector == "":
		return fmt.Errorf("config: end_effector is required")
	case c.Mode != ModeJointSpace && c.Mode != ModeDirectProxy:
		return fmt.Errorf("config: unknown mode %q", c.Mode)
	case c.Mode == ModeJointSpace && len(c.Joints) == 0:
		return fmt.Errorf("config: joint_space mode requires at least one joint")
	case c.MaxTrials < 1:
		return fmt.Errorf("config: max_trials must be >= 1")
	case c.StepLimit <= 0:
		return fmt.Errorf("config: step_limit must be > 0")
	case c.LambdaGrowth <= 1:
		return fmt.Errorf("config: lambda_growth must be > 1")
	case c.LimitMargin <= 0 || c.LimitMargin >= 0.5:
		return fmt.Errorf("config: limit_margin must be in (0, 0.5)")
	case c.SafetyMargin <= 0 || c.SafetyMargin > c.LimitMargin:
		return fmt.Errorf("config: safety_margin must be in (0, limit_margin]")
	case c.MaxCommandOffset <= 0:
		return fmt.Errorf("config: max_command_offset must be > 0")
	case c.ConvergeTol <= 0 || c.JacobianEps <= 0:
		return fmt.Errorf("config: converge_tol and jacobian_eps must be > 0")
	case c.ItersPaused < 1 || c.ItersRunning < 1:
		return fmt.Errorf("config: iteration caps must be >= 1")
	}
	return nil
}

// LoadConfigFrom loads a solver configuration from a JSON file. Fields not
// present keep their DefaultConfig values.
func LoadConfigFrom(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config JSON: %w", err)
	}
	return cfg, nil
}

// SaveTo writes the configuration to a JSON file.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
