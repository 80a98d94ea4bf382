package ik

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmaier/armik/pkg/kinematics"
	"github.com/hmaier/armik/pkg/spatial"
)

func TestNewResolvesStockArm(t *testing.T) {
	arm := kinematics.NewSixDOF()
	s, err := New(arm, DefaultConfig())
	require.NoError(t, err)

	require.Len(t, s.DOFs(), 6)
	require.Len(t, s.binds, 6)
	for i, d := range s.DOFs() {
		assert.True(t, d.Limited, "dof %s should carry its joint range", d.Joint)
		assert.Less(t, d.Lo, d.Hi, "dof %s", d.Joint)
		assert.GreaterOrEqual(t, s.binds[i].Channel, 0)
	}
}

func TestNewFatalOnUnknownEndEffector(t *testing.T) {
	arm := kinematics.NewSixDOF()
	cfg := DefaultConfig()
	cfg.EndEffector = "no_such_body"

	_, err := New(arm, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no_such_body")
}

func TestNewFatalOnMissingActuatorBinding(t *testing.T) {
	// A joint with no actuator channel at all: proceeding would mean
	// writing generalized coordinates directly, which bypasses physics.
	links := []kinematics.Link{
		{Name: "swing", Kind: kinematics.KindHinge, Axis: spatial.Vec3{0, 0, 1},
			Lo: -1, Hi: 1, Limited: true},
	}
	arm := kinematics.NewSimArm(links, "tip", spatial.Vec3{1, 0, 0})

	cfg := DefaultConfig()
	cfg.EndEffector = "tip"
	cfg.Joints = []string{"swing"}

	_, err := New(arm, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no actuator channel")
}

func TestNewFatalOnUnknownJoint(t *testing.T) {
	arm := kinematics.NewSixDOF()
	cfg := DefaultConfig()
	cfg.Joints = append(cfg.Joints, "phantom_joint")

	_, err := New(arm, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "phantom_joint")
}

func TestUnsupportedJointKindSkippedWithDiagnostic(t *testing.T) {
	links := []kinematics.Link{
		{Name: "swing", Kind: kinematics.KindHinge, Axis: spatial.Vec3{0, 0, 1},
			Lo: -1, Hi: 1, Limited: true, ActName: "swing"},
		{Name: "neck", Kind: kinematics.KindBall, Offset: spatial.Vec3{0.5, 0, 0}},
	}
	arm := kinematics.NewSimArm(links, "tip", spatial.Vec3{0.2, 0, 0})

	cfg := DefaultConfig()
	cfg.EndEffector = "tip"
	cfg.Joints = []string{"swing", "neck"}

	var logged []string
	s, err := New(arm, cfg, WithLogf(func(format string, args ...any) {
		logged = append(logged, fmt.Sprintf(format, args...))
	}))
	require.NoError(t, err)

	require.Len(t, s.DOFs(), 1)
	assert.Equal(t, "swing", s.DOFs()[0].Joint)

	require.NotEmpty(t, logged)
	assert.True(t, strings.Contains(logged[0], "neck") && strings.Contains(logged[0], "ball"),
		"diagnostic should name the skipped joint and kind: %q", logged[0])
}

func TestFindActuatorMatchOrder(t *testing.T) {
	acts := []kinematics.Actuator{
		{Name: "act_lift", Channel: 0},
		{Name: "lift_servo", Channel: 1},
		{Name: "lift", Channel: 2},
	}

	// Exact beats prefixed and suffixed forms.
	got, ok := findActuator(acts, "lift")
	require.True(t, ok)
	assert.Equal(t, 2, got.Channel)

	// Prefixed form found when no exact match exists.
	got, ok = findActuator(acts[:2], "lift")
	require.True(t, ok)
	assert.Equal(t, 0, got.Channel)

	// Suffixed form is the last resort.
	got, ok = findActuator(acts[1:2], "lift")
	require.True(t, ok)
	assert.Equal(t, 1, got.Channel)

	_, ok = findActuator(acts, "elbow")
	assert.False(t, ok)
}
