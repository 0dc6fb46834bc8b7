// Package jitref models the JIT-compiled routines the event-detection
// core depends on as a narrow Go interface, with a pure-Go reference
// implementation standing in for what would otherwise be machine code
// generated at integrator-compile time.
//
// Compiling these routines through an actual JIT (LLVM or otherwise) is
// out of scope here; JITRoutines exists so the rest of this module is
// written against the same seam a real JIT backend would plug into.
package jitref

import (
	"github.com/rawblock/taylorevents/internal/interval"
	"github.com/rawblock/taylorevents/internal/polynomial"
)

// JITRoutines is the set of polynomial kernels the event detection
// driver treats as externally compiled, hot-path primitives.
type JITRoutines interface {
	// Translate1 writes the coefficients of a(x+1) into out.
	Translate1(out, a []float64, n int)

	// RTSCC runs the reverse-translate-sign-count pipeline used by the
	// isolator's Descartes test, writing scratch results into out1/out2
	// and returning the sign-change count.
	RTSCC(out1, out2, a []float64, n int) uint32

	// FexCheck runs the interval-arithmetic fast exclusion test.
	FexCheck(a []float64, h float64, backward bool, n int) bool
}

// Reference is the pure-Go JITRoutines implementation, built directly
// on internal/polynomial and internal/interval.
type Reference struct{}

var _ JITRoutines = Reference{}

// Translate1 implements JITRoutines.
func (Reference) Translate1(out, a []float64, n int) {
	polynomial.Translate1(out, a, n)
}

// RTSCC implements JITRoutines.
func (Reference) RTSCC(out1, out2, a []float64, n int) uint32 {
	return polynomial.ReverseTranslateSignCount(out1, out2, a, n)
}

// FexCheck implements JITRoutines.
func (Reference) FexCheck(a []float64, h float64, backward bool, n int) bool {
	return interval.FexCheck(a, h, backward, n)
}
