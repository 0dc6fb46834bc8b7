// Package refine implements a derivative-free bracketed root refiner on
// a single sign-changing interval: each iteration takes the secant point
// of the current bracket, falling back to bisection whenever that point
// would not make progress. It does not use the inverse quadratic
// interpolation of the TOMS-748 family.
package refine

import (
	"math"

	"github.com/rawblock/taylorevents/internal/polynomial"
)

// Status is the outcome of a refinement run.
type Status int

const (
	// StatusOK indicates the refiner converged within the iteration cap.
	StatusOK Status = 0
	// StatusNoConverge indicates the iteration cap was reached; the
	// returned root is the best estimate found, not a certified one.
	StatusNoConverge Status = -1
)

// Domain-error classes, returned as positive status codes per the
// refiner's contract (a positive code is a numeric error class; the
// caller drops the event record and may log the value).
const (
	// StatusDomainError indicates eval(a, lb)*eval(a, ub) was not
	// negative — the bracketing precondition was violated.
	StatusDomainError Status = 1
	// StatusNonFinite indicates a non-finite evaluation was produced
	// during the search.
	StatusNonFinite Status = 2
)

// iterLimit bounds worst-case refinement cost (§4.3, §5).
const iterLimit = 100

// epsTolerance is the relative convergence tolerance, proportional to
// machine epsilon the way boost::math::tools::eps_tolerance<T> is.
const epsTolerance = 4 * 2.220446049250313e-16 // 4 * machine epsilon for float64

// Find searches for a root of the degree-n polynomial a in [lb, ub),
// given that a(lb) and a(ub) have opposite signs (the isolator's
// postcondition). It returns the root estimate and a status code.
//
// Before starting, the half-open interval is contracted to a closed one
// by moving ub one floating-point position toward lb, so a root exactly
// at a working-list upper endpoint is not reported twice across adjacent
// isolating intervals.
func Find(a []float64, n int, lb, ub float64) (float64, Status) {
	if isFinite(lb) && isFinite(ub) && ub > lb {
		ub = math.Nextafter(ub, lb)
	}

	fLo := polynomial.Eval(a, lb, n)
	fHi := polynomial.Eval(a, ub, n)

	if !isFinite(fLo) || !isFinite(fHi) {
		return 0, StatusNonFinite
	}
	if !(fLo < 0 && fHi > 0) && !(fLo > 0 && fHi < 0) {
		return 0, StatusDomainError
	}

	for iter := 0; iter < iterLimit; iter++ {
		mid, status := step(a, n, lb, fLo, ub, fHi)
		if status != StatusOK {
			return mid, status
		}

		fMid := polynomial.Eval(a, mid, n)
		if !isFinite(fMid) {
			return 0, StatusNonFinite
		}

		if fMid == 0 || intervalConverged(lb, ub) {
			return mid, StatusOK
		}

		if sameSign(fMid, fLo) {
			lb, fLo = mid, fMid
		} else {
			ub, fHi = mid, fMid
		}
	}

	return (lb + ub) / 2, StatusNoConverge
}

// step computes one candidate point: the secant estimate through the
// bracket's endpoints, or the bracket midpoint when that estimate falls
// outside the bracket or within minFrac of its width from an endpoint.
// Only lb/ub/fLo/fHi are tracked across calls (no third sample is
// retained, so no inverse quadratic interpolation is done), which keeps
// this a bracketed bisection-with-acceleration scheme
// rather than a full Brent/TOMS-748 state machine — adequate for the
// single-root, already-isolated intervals this refiner is always given.
func step(a []float64, n int, lb, fLo, ub, fHi float64) (float64, Status) {
	if fHi == fLo {
		return 0, StatusDomainError
	}

	// Secant estimate.
	secant := lb - fLo*(ub-lb)/(fHi-fLo)

	mid := (lb + ub) / 2
	// Guard against the secant estimate landing outside the bracket or
	// too close to an endpoint to make reliable progress; in that case
	// bisect instead.
	const minFrac = 1e-3
	width := ub - lb
	if secant <= lb+minFrac*width || secant >= ub-minFrac*width {
		return mid, StatusOK
	}

	return secant, StatusOK
}

func intervalConverged(lb, ub float64) bool {
	width := ub - lb
	scale := math.Max(math.Abs(lb), math.Abs(ub))
	return width <= epsTolerance*math.Max(scale, 1)
}

func sameSign(a, b float64) bool {
	return (a > 0) == (b > 0)
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
