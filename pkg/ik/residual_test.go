package ik

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmaier/armik/pkg/kinematics"
	"github.com/hmaier/armik/pkg/spatial"
)

func TestPoseResidualShortestArcSymmetry(t *testing.T) {
	cur := spatial.FromAxisAngle(spatial.Vec3{0, 1, 0}, 0.3)
	tgt := spatial.FromAxisAngle(spatial.Vec3{0, 0, 1}, 1.1)
	neg := spatial.Quat{W: -tgt.W, X: -tgt.X, Y: -tgt.Y, Z: -tgt.Z}

	curPos := spatial.Vec3{0.1, 0.2, 0.3}
	tgtPos := spatial.Vec3{0.2, 0.2, 0.4}

	a := poseResidual(curPos, tgtPos, cur, tgt)
	b := poseResidual(curPos, tgtPos, cur, neg)
	for i := 0; i < 6; i++ {
		assert.InDelta(t, a[i], b[i], 1e-12, "component %d", i)
	}
	assert.InDelta(t, combinedError(a), combinedError(b), 1e-12)
}

func TestPoseResidualZeroAtTarget(t *testing.T) {
	rot := spatial.FromAxisAngle(spatial.Vec3{1, 1, 0}, 0.7)
	pos := spatial.Vec3{0.4, 0, 0.2}
	e := poseResidual(pos, pos, rot, rot)
	assert.InDelta(t, 0, combinedError(e), 1e-12)
}

func TestJacobianRestoresSharedBuffer(t *testing.T) {
	arm := kinematics.NewSixDOF()
	s, err := New(arm, DefaultConfig())
	require.NoError(t, err)

	before := append([]float64(nil), arm.Coords()...)
	beforePos, _ := arm.BodyPose(s.eeBody)

	_ = s.jacobian()

	// The buffer and the forward-kinematics results must be exactly as
	// they were: rendering and physics read both in the same frame.
	assert.Equal(t, before, arm.Coords())
	afterPos, _ := arm.BodyPose(s.eeBody)
	assert.Equal(t, beforePos, afterPos)
}

func TestJacobianMatchesAnalyticSingleHinge(t *testing.T) {
	// One z hinge at the origin with the tip at x=1: at q=0 the tip
	// velocity is (0,1,0) and the angular velocity is (0,0,1).
	links := []kinematics.Link{
		{Name: "swing", Kind: kinematics.KindHinge, Axis: spatial.Vec3{0, 0, 1},
			Lo: -3, Hi: 3, Limited: true, ActName: "swing"},
	}
	arm := kinematics.NewSimArm(links, "tip", spatial.Vec3{1, 0, 0})

	cfg := DefaultConfig()
	cfg.EndEffector = "tip"
	cfg.Joints = []string{"swing"}
	s, err := New(arm, cfg)
	require.NoError(t, err)

	jac := s.jacobian()
	require.Len(t, jac, 1)

	want := [6]float64{0, 1, 0, 0, 0, 1}
	for i := 0; i < 6; i++ {
		assert.InDelta(t, want[i], jac[0][i], 1e-3, "component %d", i)
	}
}

func TestWeightsSwitchOnOrientationLock(t *testing.T) {
	arm := kinematics.NewSixDOF()
	s, err := New(arm, DefaultConfig())
	require.NoError(t, err)

	s.target.locked = false
	w := s.weights()
	assert.Equal(t, s.cfg.RotWeight, w[3])

	s.target.locked = true
	w = s.weights()
	assert.Equal(t, s.cfg.HeldRotWeight, w[3])
	assert.Greater(t, s.cfg.HeldRotWeight, s.cfg.RotWeight)
	assert.True(t, !math.IsNaN(w[0]))
}
