package ik

import (
	"math"

	"github.com/hmaier/armik/pkg/spatial"
)

const singularPivot = 1e-12

// poseCost is the weighted quadratic pose cost over the 6 residual
// components.
func poseCost(e [6]float64, w [6]float64) float64 {
	c := 0.0
	for i := 0; i < 6; i++ {
		c += w[i] * e[i] * e[i]
	}
	return c
}

// limitCost is the soft-barrier cost: a linear penalty proportional to how
// far each DOF sits inside the configured margin of its limit range.
func (s *Solver) limitCost(q []float64) float64 {
	c := 0.0
	for i, d := range s.dofs {
		m := d.Margin(s.cfg.LimitMargin)
		if m <= 0 {
			continue
		}
		if depth := (d.Lo + m) - q[i]; depth > 0 {
			c += s.cfg.LimitWeight * depth / m
		}
		if depth := q[i] - (d.Hi - m); depth > 0 {
			c += s.cfg.LimitWeight * depth / m
		}
	}
	return c
}

// limitTerms returns the barrier's contribution to the normal equations:
// a diagonal stabilizer and a gradient component pushing each in-margin DOF
// back toward the interior. The barrier depends only on the DOF's own value,
// so it never couples DOFs.
func (s *Solver) limitTerms(q []float64) (diag, grad []float64) {
	n := len(s.dofs)
	diag = make([]float64, n)
	grad = make([]float64, n)
	for i, d := range s.dofs {
		m := d.Margin(s.cfg.LimitMargin)
		if m <= 0 {
			continue
		}
		w := s.cfg.LimitWeight / m
		if depth := (d.Lo + m) - q[i]; depth > 0 {
			diag[i] += w
			grad[i] += w * depth / m
		}
		if depth := q[i] - (d.Hi - m); depth > 0 {
			diag[i] += w
			grad[i] -= w * depth / m
		}
	}
	return diag, grad
}

// solveGaussJordan solves A x = b in place via Gauss-Jordan elimination with
// partial pivoting. Reports ok=false when the system is numerically singular
// at a chosen pivot; callers treat that as a zero step, not an error.
func solveGaussJordan(a [][]float64, b []float64) ([]float64, bool) {
	n := len(b)
	for col := 0; col < n; col++ {
		// Partial pivot: largest magnitude in this column.
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < singularPivot {
			return nil, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		inv := 1 / a[col][col]
		for c := col; c < n; c++ {
			a[col][c] *= inv
		}
		b[col] *= inv

		for r := 0; r < n; r++ {
			if r == col || a[r][col] == 0 {
				continue
			}
			f := a[r][col]
			for c := col; c < n; c++ {
				a[r][c] -= f * a[col][c]
			}
			b[r] -= f * b[col]
		}
	}
	return b, true
}

// scaleToStepLimit scales delta proportionally so its largest magnitude
// component respects the per-iteration step limit. Proportional scaling
// preserves the step direction; a per-element clamp would not.
func scaleToStepLimit(delta []float64, limit float64) {
	maxAbs := 0.0
	for _, v := range delta {
		if a := math.Abs(v); a > maxAbs {
			maxAbs = a
		}
	}
	if maxAbs > limit {
		f := limit / maxAbs
		for i := range delta {
			delta[i] *= f
		}
	}
}

// lmStep runs the bounded Levenberg-Marquardt trial loop for one iteration.
// Each trial solves (H + lambda*I) delta = g, scales the step, then
// re-evaluates the true cost at the candidate configuration via full forward
// kinematics before accept/reject. Returns ok=false when every trial is
// rejected, so the caller can invoke the fallback; it never fabricates a
// zero step as success.
func (s *Solver) lmStep(jac [][6]float64, e [6]float64, w [6]float64) ([]float64, bool) {
	n := len(s.dofs)
	coords := s.model.Coords()
	q := make([]float64, n)
	for i, d := range s.dofs {
		q[i] = coords[d.Addr]
	}

	// Normal equations H = Jt W J + limit diagonal, g = Jt W e + limit
	// gradient.
	ldiag, lgrad := s.limitTerms(q)
	h := make([][]float64, n)
	g := make([]float64, n)
	for i := 0; i < n; i++ {
		h[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			sum := 0.0
			for k := 0; k < 6; k++ {
				sum += jac[i][k] * w[k] * jac[j][k]
			}
			h[i][j] = sum
		}
		h[i][i] += ldiag[i]
		sum := 0.0
		for k := 0; k < 6; k++ {
			sum += jac[i][k] * w[k] * e[k]
		}
		g[i] = sum + lgrad[i]
	}

	cost0 := poseCost(e, w) + s.limitCost(q)

	for trial := 0; trial < s.cfg.MaxTrials; trial++ {
		// Damped copy of the system; solveGaussJordan clobbers its input.
		ha := make([][]float64, n)
		ba := make([]float64, n)
		for i := 0; i < n; i++ {
			ha[i] = append([]float64(nil), h[i]...)
			ha[i][i] += s.lambda
			ba[i] = g[i]
		}

		delta, ok := solveGaussJordan(ha, ba)
		if ok {
			scaleToStepLimit(delta, s.cfg.StepLimit)

			newCost := s.trueCost(q, delta, w)
			predicted := 0.0
			for i := 0; i < n; i++ {
				predicted += 0.5 * delta[i] * (s.lambda*delta[i] + g[i])
			}

			if newCost < cost0 && predicted > 0 &&
				(cost0-newCost)/predicted >= s.cfg.MinRatio {
				s.lambda = math.Max(s.cfg.MinLambda, s.lambda/s.cfg.LambdaGrowth)
				return delta, true
			}
		}
		s.lambda = math.Min(s.cfg.MaxLambda, s.lambda*s.cfg.LambdaGrowth)
	}
	return nil, false
}

// trueCost evaluates the full (pose + limit) cost at q+delta by running
// forward kinematics at the candidate configuration, then restores the
// shared buffer. The linear model mispredicts near limits and singularities;
// re-evaluating guards the accept test against that.
func (s *Solver) trueCost(q, delta []float64, w [6]float64) float64 {
	coords := s.model.Coords()
	saved := make([]float64, len(s.dofs))
	for i, d := range s.dofs {
		saved[i] = coords[d.Addr]
	}
	defer func() {
		for i, d := range s.dofs {
			coords[d.Addr] = saved[i]
		}
		s.model.Forward()
	}()

	cand := make([]float64, len(s.dofs))
	for i, d := range s.dofs {
		cand[i] = q[i] + delta[i]
		if d.Limited {
			cand[i] = spatial.Clamp(cand[i], d.Lo, d.Hi)
		}
		coords[d.Addr] = cand[i]
	}
	s.model.Forward()

	curPos, curRot := s.model.BodyPose(s.eeBody)
	e := poseResidual(curPos, s.target.pos, curRot, s.target.rot)
	return poseCost(e, w) + s.limitCost(cand)
}
