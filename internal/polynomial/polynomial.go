// Package polynomial implements the monomial-basis polynomial primitives
// the event detection core is built on: Horner evaluation, affine and
// dyadic rescaling, reversal-by-translation, and Descartes sign counting.
//
// Every coefficient slice is ascending (index 0 is the constant term) and
// has length n+1 for a degree-n polynomial. None of these functions
// allocate unless explicitly documented as doing so.
package polynomial

import (
	"math"
	"sync"
)

// Eval evaluates p(x) = sum(a[i] * x^i) via left-to-right Horner's scheme.
func Eval(a []float64, x float64, n int) float64 {
	ret := a[n]
	for i := 1; i <= n; i++ {
		ret = a[n-i] + ret*x
	}
	return ret
}

// EvalDeriv evaluates the formal derivative p'(x) via Horner's scheme.
// Requires n >= 2.
func EvalDeriv(a []float64, x float64, n int) float64 {
	ret := a[n] * float64(n)
	for i := 1; i < n; i++ {
		ret = a[n-i]*float64(n-i) + ret*x
	}
	return ret
}

// Rescale writes out[i] = a[i] * scal^i, i.e. the coefficients of
// p(scal*x). Aliasing out == a is allowed.
func Rescale(out, a []float64, scal float64, n int) {
	curF := 1.0
	for i := 0; i <= n; i++ {
		out[i] = curF * a[i]
		curF *= scal
	}
}

// RescaleP2 writes out[n-i] = 2^i * a[n-i], i.e. the coefficients of
// 2^n * p(x/2). Aliasing out == a is allowed.
func RescaleP2(out, a []float64, n int) {
	curF := 1.0
	for i := 0; i <= n; i++ {
		out[n-i] = curF * a[n-i]
		curF *= 2
	}
}

// binomialTable holds a global (order+1)x(order+1) row-major table of
// binomial coefficients C[i][k] for k <= i, lazily grown to cover the
// largest order requested so far. It is shared across calls the way the
// teacher's heuristics cache a single global lookup table rather than
// recomputing per call.
var binomialTable struct {
	rows int
	data []float64
}

// binomialMu guards binomialTable, which every Translate1 caller shares,
// including runs stepping concurrently in separate goroutines.
var binomialMu sync.Mutex

// binomial returns C(i, k) from the shared table, growing it if needed.
func binomial(i, k int) float64 {
	binomialMu.Lock()
	defer binomialMu.Unlock()
	if i >= binomialTable.rows {
		growBinomialTable(i + 1)
	}
	return binomialTable.data[i*binomialTable.rows+k]
}

func growBinomialTable(rows int) {
	data := make([]float64, rows*rows)
	for i := 0; i < rows; i++ {
		data[i*rows] = 1
		for k := 1; k <= i; k++ {
			if k == i {
				data[i*rows+k] = 1
				continue
			}
			data[i*rows+k] = prevBinomial(data, rows, i, k)
		}
	}
	binomialTable.rows = rows
	binomialTable.data = data
}

func prevBinomial(data []float64, rows, i, k int) float64 {
	// Pascal's rule: C(i,k) = C(i-1,k-1) + C(i-1,k).
	var a, b float64
	if k-1 >= 0 {
		a = data[(i-1)*rows+(k-1)]
	}
	if k <= i-1 {
		b = data[(i-1)*rows+k]
	}
	return a + b
}

// Translate1 writes out the coefficients of a(x+1), using the shared
// binomial coefficient table, which it grows (allocating) when asked for
// a degree beyond the table's current size. Aliasing out == a is
// forbidden.
func Translate1(out, a []float64, n int) {
	for k := 0; k <= n; k++ {
		out[k] = 0
	}
	for i := 0; i <= n; i++ {
		ai := a[i]
		if ai == 0 {
			continue
		}
		for k := 0; k <= i; k++ {
			out[k] += ai * binomial(i, k)
		}
	}
}

// reverse writes out[i] = a[n-i], the coefficients of x^n * p(1/x).
// Aliasing out == a is forbidden.
func reverse(out, a []float64, n int) {
	for i := 0; i <= n; i++ {
		out[i] = a[n-i]
	}
}

// SignChanges counts the number of sign changes across the non-zero
// entries of a, scanning in ascending order. Zero coefficients are
// skipped; only transitions between non-zero entries of opposite sign
// count. A polynomial of all zeros has zero sign changes.
func SignChanges(a []float64, n int) uint32 {
	var count uint32
	lastSign := 0
	for i := 0; i <= n; i++ {
		s := sign(a[i])
		if s == 0 {
			continue
		}
		if lastSign != 0 && s != lastSign {
			count++
		}
		lastSign = s
	}
	return count
}

// ReverseTranslateSignCount reverses a into out1, translates out1 by 1
// into out2, and counts the sign changes of out2. This is the Descartes
// transform pipeline used by the isolator: the resulting count upper
// bounds (with matching parity) the number of real roots of a in (0, 1).
func ReverseTranslateSignCount(out1, out2, a []float64, n int) uint32 {
	reverse(out1, a, n)
	Translate1(out2, out1, n)
	return SignChanges(out2, n)
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

// IsFiniteSlice reports whether every element of a[0:n+1] is finite.
func IsFiniteSlice(a []float64, n int) bool {
	for i := 0; i <= n; i++ {
		if !isFinite(a[i]) {
			return false
		}
	}
	return true
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
