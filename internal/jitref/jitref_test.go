package jitref

import (
	"math"
	"testing"
)

func TestReferenceTranslate1(t *testing.T) {
	// p(x) = x^2, p(x+1) = x^2 + 2x + 1
	a := []float64{0, 0, 1}
	out := make([]float64, 3)
	var r Reference
	r.Translate1(out, a, 2)
	want := []float64{1, 2, 1}
	for i := range want {
		if math.Abs(out[i]-want[i]) > 1e-12 {
			t.Errorf("coefficient %d: got %v want %v", i, out[i], want[i])
		}
	}
}

func TestReferenceRTSCC(t *testing.T) {
	// (x-0.3)(x-0.7) = x^2 - x + 0.21, two roots in (0,1).
	a := []float64{0.21, -1, 1}
	n := 2
	out1 := make([]float64, n+1)
	out2 := make([]float64, n+1)
	var r Reference
	nsc := r.RTSCC(out1, out2, a, n)
	if nsc != 2 {
		t.Errorf("RTSCC() = %d, want 2", nsc)
	}
}

func TestReferenceFexCheck(t *testing.T) {
	a := []float64{5, 1, 1} // strictly positive on [0,1]
	var r Reference
	if !r.FexCheck(a, 1, false, 2) {
		t.Error("expected fast exclusion to confirm no root")
	}
}

func TestReferenceSatisfiesInterface(t *testing.T) {
	var _ JITRoutines = Reference{}
}
