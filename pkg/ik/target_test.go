package ik

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmaier/armik/pkg/kinematics"
	"github.com/hmaier/armik/pkg/spatial"
)

func TestTargetLeadClamped(t *testing.T) {
	arm := kinematics.NewSixDOF()
	s, err := New(arm, DefaultConfig())
	require.NoError(t, err)

	// Hammer one direction without ever solving, as a held key does when
	// the arm cannot keep up.
	step := spatial.Vec3{0.05, 0, 0}
	for i := 0; i < 200; i++ {
		s.SetTargetPositionDelta(step)
	}

	curPos, _ := arm.BodyPose(s.eeBody)
	tgtPos, _ := s.Target()
	lead := tgtPos.Sub(curPos).Norm()
	assert.LessOrEqual(t, lead, s.cfg.MaxTargetLead+step.Norm()+1e-12,
		"target must not run away while a key is held")
	assert.True(t, s.Dirty())
}

func TestOrientationLockSnapshotsAndHolds(t *testing.T) {
	arm := kinematics.NewSixDOF()
	s, err := New(arm, DefaultConfig())
	require.NoError(t, err)

	_, rot0 := s.Target()
	for i := 0; i < 50; i++ {
		s.SetTargetPositionDelta(spatial.Vec3{0.001, 0.002, 0})
	}
	_, rot := s.Target()
	assert.Equal(t, rot0, rot, "translation intents must never bleed into rotation")
	assert.True(t, s.target.locked)
}

func TestRotationIntentClearsLock(t *testing.T) {
	arm := kinematics.NewSixDOF()
	s, err := New(arm, DefaultConfig())
	require.NoError(t, err)

	s.SetTargetPositionDelta(spatial.Vec3{0.01, 0, 0})
	require.True(t, s.target.locked)

	_, before := s.Target()
	s.SetTargetOrientationDelta(spatial.Vec3{0, 0, 0.1})
	assert.False(t, s.target.locked, "rotation intent takes priority over hold")
	_, after := s.Target()
	assert.NotEqual(t, before, after)

	// The next translation snapshots the rotated orientation as the new
	// lock reference.
	s.SetTargetPositionDelta(spatial.Vec3{0.01, 0, 0})
	assert.True(t, s.target.locked)
	assert.Equal(t, after, s.target.lockRot)
}

func TestResetToCurrentPoseResyncsState(t *testing.T) {
	arm := kinematics.NewSixDOF()
	s, err := New(arm, DefaultConfig())
	require.NoError(t, err)

	s.SetTargetPositionDelta(spatial.Vec3{0.1, 0.1, 0.1})
	s.lambda = 55
	s.stalls = 3
	s.fallbacks = 7

	s.ResetToCurrentPose()

	curPos, curRot := arm.BodyPose(s.eeBody)
	tgtPos, tgtRot := s.Target()
	assert.Equal(t, curPos, tgtPos)
	assert.Equal(t, curRot.Normalize(), tgtRot)
	assert.False(t, s.Dirty())
	assert.Equal(t, s.cfg.InitLambda, s.lambda)
	assert.Zero(t, s.stalls)
	assert.Zero(t, s.fallbacks)
}
