package ik

import (
	"math"

	"github.com/hmaier/armik/pkg/spatial"
)

// poseTarget holds the desired end-effector pose plus the orientation lock
// used while translating. Intents between Update calls coalesce into this
// state: last write wins, there is no intent queue.
type poseTarget struct {
	pos     spatial.Vec3
	rot     spatial.Quat
	dirty   bool
	locked  bool
	lockRot spatial.Quat
}

// SetTargetPositionDelta moves the target by delta (scaled by the translate
// gain). The target's lead ahead of the current end-effector position is
// clamped first, so a held key cannot run the target away unboundedly. While
// the orientation lock is enabled the current target orientation is
// snapshotted on first use and re-applied on every call.
func (s *Solver) SetTargetPositionDelta(delta spatial.Vec3) {
	if s.disabled {
		return
	}
	curPos, _ := s.model.BodyPose(s.eeBody)

	lead := s.target.pos.Sub(curPos)
	if n := lead.Norm(); n > s.cfg.MaxTargetLead {
		s.target.pos = curPos.Add(lead.Scale(s.cfg.MaxTargetLead / n))
	}
	s.target.pos = s.target.pos.Add(delta.Scale(s.cfg.TranslateGain))

	if s.cfg.LockOrientation {
		if !s.target.locked {
			s.target.lockRot = s.target.rot
			s.target.locked = true
		}
		s.target.rot = s.target.lockRot
	}
	s.markDirty()
}

// SetTargetOrientationDelta composes an intrinsic-XYZ Euler delta (scaled by
// the rotate gain) onto the target orientation. A rotation intent always
// takes priority over the hold, so the lock is cleared.
func (s *Solver) SetTargetOrientationDelta(eulerDelta spatial.Vec3) {
	if s.disabled {
		return
	}
	dq := spatial.FromEulerXYZ(eulerDelta.Scale(s.cfg.RotateGain))
	s.target.rot = dq.Mul(s.target.rot).Normalize()
	s.target.locked = false
	s.markDirty()
}

// ResetToCurrentPose re-synchronizes the target and the lock reference to
// the live end-effector pose and resets the per-instance solver state. Used
// on episode reset so the solver never chases a stale target.
func (s *Solver) ResetToCurrentPose() {
	s.model.Forward()
	curPos, curRot := s.model.BodyPose(s.eeBody)
	s.target.pos = curPos
	s.target.rot = curRot.Normalize()
	s.target.lockRot = s.target.rot
	s.target.dirty = false

	s.lambda = s.cfg.InitLambda
	s.stalls = 0
	s.fallbacks = 0
	s.lastErr = math.Inf(1)
	s.converged = false
	s.stalled = false
}

// snapTarget pulls the target onto the current pose without touching the
// trust-region state. Invoked on stall or fallback exhaustion: continuing to
// push against whatever blocks progress would only wind the target up.
func (s *Solver) snapTarget(curPos spatial.Vec3, curRot spatial.Quat) {
	s.target.pos = curPos
	s.target.rot = curRot.Normalize()
	s.target.lockRot = s.target.rot
	s.target.dirty = false
	s.stalls = 0
	s.fallbacks = 0
	s.lastErr = math.Inf(1)
}

// markDirty flags a fresh intent and clears stale progress bookkeeping so a
// jump in error from the new target is not mistaken for a stall.
func (s *Solver) markDirty() {
	s.target.dirty = true
	s.converged = false
	s.stalled = false
	s.stalls = 0
	s.lastErr = math.Inf(1)
}

// Target returns the current target pose.
func (s *Solver) Target() (spatial.Vec3, spatial.Quat) {
	return s.target.pos, s.target.rot
}

// Dirty reports whether an intent is pending solve.
func (s *Solver) Dirty() bool { return s.target.dirty }

// Converged reports whether the last solve reached the convergence
// threshold.
func (s *Solver) Converged() bool { return s.converged }

// Stalled reports whether the last solve ended in a stall snap.
func (s *Solver) Stalled() bool { return s.stalled }
