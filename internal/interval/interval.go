// Package interval implements two-sided interval arithmetic over the
// monomial polynomial basis, used as a cheap exclusion test before the
// isolator runs. The routines here do not maintain directed-rounding
// enclosures: bounds are tight to within one or two ulps per operation
// rather than formally certified (see the floating-point caveat this
// package's consumers must be aware of).
package interval

import "math"

// Bound is a closed interval [Lo, Hi].
type Bound struct {
	Lo, Hi float64
}

// sum returns the interval sum a + b.
func sum(a, b Bound) Bound {
	return Bound{a.Lo + b.Lo, a.Hi + b.Hi}
}

// product returns the interval product a * b.
func product(a, b Bound) Bound {
	p1 := a.Lo * b.Lo
	p2 := a.Lo * b.Hi
	p3 := a.Hi * b.Lo
	p4 := a.Hi * b.Hi
	return Bound{
		Lo: math.Min(math.Min(p1, p2), math.Min(p3, p4)),
		Hi: math.Max(math.Max(p1, p2), math.Max(p3, p4)),
	}
}

// Horner evaluates the interval enclosure of p(x) for x ranging over
// [xLo, xHi], via Horner's scheme lifted to interval arithmetic.
func Horner(a []float64, xLo, xHi float64, n int) Bound {
	x := Bound{xLo, xHi}
	acc := Bound{a[n], a[n]}
	for i := 1; i <= n; i++ {
		acc = product(acc, x)
		c := a[n-i]
		acc = sum(acc, Bound{c, c})
	}
	return acc
}

// FexCheck runs the fast exclusion check: it returns true ("guaranteed no
// sign change on the step") iff the interval enclosure of a over the step
// interval has a single, non-zero sign throughout. backward reports
// whether the step integrates backward in time, which flips the interval
// endpoints of h.
//
// Non-finite Taylor coefficients propagate into non-finite bounds, which
// this function treats the same as "possibly has a sign change" (it
// returns false) — callers see no distinction and no diagnostic; that is
// left to the stepper.
func FexCheck(a []float64, h float64, backward bool, n int) bool {
	var xLo, xHi float64
	if backward {
		xLo, xHi = h, 0
	} else {
		xLo, xHi = 0, h
	}

	b := Horner(a, xLo, xHi, n)

	sLo := sign(b.Lo)
	sHi := sign(b.Hi)
	return sLo == sHi && sLo != 0
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
