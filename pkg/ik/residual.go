package ik

import (
	"math"

	"github.com/hmaier/armik/pkg/spatial"
)

// poseResidual computes the 6-dimensional pose error: translational error
// target - current, and the rotation vector of the shortest-arc relative
// rotation target * current^-1. ToAxisAngle enforces a non-negative scalar
// part, so antipodal quaternion representations of the same rotation yield
// identical residuals.
func poseResidual(curPos, tgtPos spatial.Vec3, curRot, tgtRot spatial.Quat) [6]float64 {
	et := tgtPos.Sub(curPos)
	er := tgtRot.Mul(curRot.Conj()).ToAxisAngle()
	return [6]float64{et[0], et[1], et[2], er[0], er[1], er[2]}
}

// combinedError is the scalar convergence measure: translational norm plus
// rotational norm.
func combinedError(e [6]float64) float64 {
	et := math.Sqrt(e[0]*e[0] + e[1]*e[1] + e[2]*e[2])
	er := math.Sqrt(e[3]*e[3] + e[4]*e[4] + e[5]*e[5])
	return et + er
}

// jacobian computes the finite-difference Jacobian of the end-effector pose
// with respect to each ControlledDOF, one column per DOF.
//
// The generalized-coordinate buffer is shared with rendering and physics in
// the same frame, so each perturbation is scoped: save, perturb, evaluate,
// and unconditionally restore (including re-running forward kinematics)
// before moving on, on every exit path.
func (s *Solver) jacobian() [][6]float64 {
	coords := s.model.Coords()
	basePos, baseRot := s.model.BodyPose(s.eeBody)
	eps := s.cfg.JacobianEps

	cols := make([][6]float64, len(s.dofs))
	for i, d := range s.dofs {
		func() {
			saved := coords[d.Addr]
			defer func() {
				coords[d.Addr] = saved
				s.model.Forward()
			}()

			coords[d.Addr] = saved + eps
			s.model.Forward()
			pPos, pRot := s.model.BodyPose(s.eeBody)

			dp := pPos.Sub(basePos).Scale(1 / eps)
			dr := pRot.Mul(baseRot.Conj()).ToAxisAngle().Scale(1 / eps)
			cols[i] = [6]float64{dp[0], dp[1], dp[2], dr[0], dr[1], dr[2]}
		}()
	}
	return cols
}

// weights returns the per-component pose-cost weights: position, then
// rotation. The held-orientation weight applies while the lock is engaged.
func (s *Solver) weights() [6]float64 {
	wr := s.cfg.RotWeight
	if s.target.locked {
		wr = s.cfg.HeldRotWeight
	}
	wp := s.cfg.PosWeight
	return [6]float64{wp, wp, wp, wr, wr, wr}
}
