// Package isolator implements the real-root isolator: a branch-and-bound
// search over [0, h] that narrows every real root of a degree-n
// polynomial into its own disjoint bracketing sub-interval, ready for
// internal/refine to pin down precisely.
//
// The search works by an affine change of variables onto [0, 1] and
// repeated dyadic bisection there (the Vincent-Collins-Akritas
// bisection method driven by Descartes' rule of signs), rather than by
// directly root-finding on the original
// coefficients.
package isolator

import (
	"log"

	"github.com/rawblock/taylorevents/internal/jitref"
	"github.com/rawblock/taylorevents/internal/polycache"
	"github.com/rawblock/taylorevents/internal/polynomial"
)

// maxWorklist bounds the branch-and-bound search so a pathological
// polynomial (near-multiple roots defeating Descartes' rule) cannot
// spin the isolator indefinitely.
const maxWorklist = 250

// Interval is a real-coordinate sub-interval of [0, h] isolating exactly
// one real root.
type Interval struct {
	Lo, Hi float64
}

// workItem is one node of the branch-and-bound search tree: buf holds
// the polynomial transformed onto [0, 1] for this node's sub-interval,
// and lo/hi are that sub-interval's bounds in the caller's original
// coordinates.
type workItem struct {
	buf    polycache.Handle
	lo, hi float64
}

// Isolate finds disjoint bracketing intervals for the real roots of the
// degree-n polynomial a in [0, h]. maxIntervals caps the number of
// isolating intervals accepted (ordinarily the polynomial's degree); a
// polynomial that would require more is reported incomplete, and the
// intervals found up to that point (at most maxIntervals+1) are still
// returned.
//
// lbOffset is the §4.7 step-2 fraction of the step that still lies
// inside a terminal event's cooldown window (0 for non-terminal events,
// or any terminal event with no active cooldown record). It is used
// two ways: a worklist item's lower half is never explored once its
// midpoint no longer clears lbOffset, and a root found exactly at a
// node's lower endpoint (the p[0]==0 case) is only reported once that
// endpoint clears lbOffset. Neither check rejects an isolating interval
// that merely straddles lbOffset — that correction happens in
// internal/detect just before refinement.
//
// routines is the JIT-routines seam: RTSCC drives the Descartes test
// and Translate1 produces each bisection's upper half, mirroring how a
// real compiled integrator would supply both as generated machine code.
//
// It returns the isolating intervals found, any exact boundary roots
// found via the p[0]==0 check, and a completeness flag: a false flag
// means the worklist or interval cap was hit before the search
// exhausted itself, and the returned results — while each individually
// valid — may not cover every real root in [0, h].
func Isolate(a []float64, n int, h float64, maxIntervals int, lbOffset float64, routines jitref.JITRoutines, cache *polycache.Cache) (isolating []Interval, boundary []float64, complete bool) {
	rev := cache.Borrow()
	trans := cache.Borrow()
	defer rev.Release()
	defer trans.Release()

	root := cache.Borrow()
	polynomial.Rescale(root.Data(), a, h, n)

	cutoff := lbOffset * h

	worklist := []workItem{{buf: root, lo: 0, hi: h}}
	complete = true

	for len(worklist) > 0 {
		if len(worklist) > maxWorklist {
			log.Printf("[Isolator] worklist exceeded %d items; abandoning search with %d intervals found", maxWorklist, len(isolating))
			complete = false
			break
		}
		if len(isolating) > maxIntervals {
			log.Printf("[Isolator] isolating-interval cap (%d) exceeded; abandoning search", maxIntervals)
			complete = false
			break
		}

		item := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		data := item.buf.Data()

		if data[0] == 0 && polynomial.IsFiniteSlice(data, n) && pastCutoff(item.lo, cutoff, h) {
			boundary = append(boundary, item.lo)
		}

		nsc := routines.RTSCC(rev.Data(), trans.Data(), data, n)

		switch {
		case nsc == 0:
			item.buf.Release()

		case nsc == 1:
			isolating = append(isolating, Interval{Lo: item.lo, Hi: item.hi})
			item.buf.Release()

		default:
			left := cache.Borrow()
			right := cache.Borrow()
			polynomial.RescaleP2(left.Data(), data, n)
			routines.Translate1(right.Data(), left.Data(), n)
			item.buf.Release()

			mid := (item.lo + item.hi) / 2
			worklist = append(worklist, workItem{buf: right, lo: mid, hi: item.hi})

			// The lower half is entirely inside the cooldown window once
			// its upper endpoint (mid) no longer clears the cutoff.
			if pastCutoff(mid, cutoff, h) {
				worklist = append(worklist, workItem{buf: left, lo: item.lo, hi: mid})
			} else {
				left.Release()
			}
		}
	}

	for _, w := range worklist {
		w.buf.Release()
	}

	// The interval accepted from the last worklist item can push the
	// count past the cap after the loop's own check has run.
	if complete && len(isolating) > maxIntervals {
		log.Printf("[Isolator] isolating-interval cap (%d) exceeded; abandoning search", maxIntervals)
		complete = false
	}

	return isolating, boundary, complete
}

// pastCutoff reports whether real-coordinate position x has advanced
// past the cooldown cutoff in the direction the step travels (toward h
// from 0). With lbOffset == 0 (no active cooldown gate), cutoff == 0
// and this is trivially true for any x reachable by the search.
func pastCutoff(x, cutoff, h float64) bool {
	if h >= 0 {
		return x >= cutoff
	}
	return x <= cutoff
}
