// Package detect implements the event detection driver: for every
// tracked event expression, it runs the fast exclusion check, then (if
// exclusion does not fire) isolates and refines each real root of the
// expression's Taylor polynomial within the step, filters by crossing
// direction and cooldown state, and returns the surviving detections in
// the order they occur along the step (ascending time on a forward step,
// descending on a backward one) — separately for terminal and
// non-terminal events.
package detect

import (
	"log"
	"math"
	"sort"

	"github.com/rawblock/taylorevents/internal/cooldown"
	"github.com/rawblock/taylorevents/internal/isolator"
	"github.com/rawblock/taylorevents/internal/jitref"
	"github.com/rawblock/taylorevents/internal/polycache"
	"github.com/rawblock/taylorevents/internal/polynomial"
	"github.com/rawblock/taylorevents/internal/refine"
	"github.com/rawblock/taylorevents/pkg/models"
)

// Expression bundles one tracked event's descriptor with its Taylor
// coefficient buffer for the current step.
type Expression struct {
	Descriptor models.EventDescriptor
	Coeffs     []float64
}

// Result is the detect pass's output for one step.
type Result struct {
	Terminal    []models.DetectedTerminalEvent
	NonTerminal []models.DetectedNonTerminalEvent
}

// Run evaluates every expression against the step interval [0, h] (or
// [h, 0] when backward is true), returning the events that actually
// fire. n is the Taylor order (polynomial degree) shared by every
// expression's coefficient buffer. eps is the integrator's working
// tolerance, used by the auto-deduced cooldown formula. simTime is the
// absolute simulation time at the start of the step; tracker holds
// cross-step cooldown state and is mutated by Run as events fire.
//
// Every polynomial kernel in the hot path (the fast exclusion check,
// the isolator's Descartes test and unit shift) is run through the
// jitref.JITRoutines seam, so a future compiled backend can be dropped
// in without touching this driver.
func Run(exprs []Expression, n int, h float64, backward bool, eps, simTime float64, tracker *cooldown.Tracker, cache *polycache.Cache) Result {
	var res Result
	routines := jitref.Reference{}

	for _, ex := range exprs {
		a := ex.Coeffs
		if !polynomial.IsFiniteSlice(a, n) {
			log.Printf("[Detect] expression %d has non-finite Taylor coefficients; skipping", ex.Descriptor.ExpressionID)
			continue
		}

		if routines.FexCheck(a, h, backward, n) {
			continue
		}

		// §4.7 step 2: a cooldown window that swallows the entire step
		// means the event cannot possibly fire this step; skip without
		// spending a search on it. Otherwise lbOffset gates which part
		// of the step the isolator is allowed to report roots from.
		lbOffset, skip := tracker.LowerBoundOffset(ex.Descriptor.ExpressionID, simTime, h)
		if skip {
			continue
		}
		cutoff := lbOffset * h

		emit := func(root float64) {
			der := evalDeriv(a, root, n)
			if der == 0 {
				// A root with zero derivative is a tangency, not a
				// transversal crossing; it never produces a detected
				// event.
				return
			}

			if tracker.Active(ex.Descriptor.ExpressionID, simTime+root) {
				return
			}

			dir := models.DirectionNegative
			if der > 0 {
				dir = models.DirectionPositive
			}
			if ex.Descriptor.Direction != models.DirectionAny && ex.Descriptor.Direction != dir {
				return
			}

			var cd float64
			if ex.Descriptor.ExplicitCooldown != nil {
				cd = *ex.Descriptor.ExplicitCooldown
			} else {
				cd = cooldown.Deduce(eps, der)
			}
			multi := hasMultiRoots(a, n, root, cd)
			if multi {
				log.Printf("[Detect] expression %d: possible closely-spaced roots near t=%v within cooldown window", ex.Descriptor.ExpressionID, root)
			}
			tracker.Start(ex.Descriptor.ExpressionID, simTime+root, cd)

			if ex.Descriptor.IsTerminal {
				res.Terminal = append(res.Terminal, models.DetectedTerminalEvent{
					ExpressionID:  ex.Descriptor.ExpressionID,
					Time:          root,
					Direction:     int(dir),
					MultiRootFlag: multi,
					AbsDerivative: math.Abs(der),
				})
			} else {
				res.NonTerminal = append(res.NonTerminal, models.DetectedNonTerminalEvent{
					ExpressionID: ex.Descriptor.ExpressionID,
					Time:         root,
					Direction:    int(dir),
				})
			}
		}

		isolating, boundary, complete := isolator.Isolate(a, n, h, n, lbOffset, routines, cache)
		if !complete {
			log.Printf("[Detect] expression %d: root isolation incomplete, some crossings may be missed", ex.Descriptor.ExpressionID)
		}

		// §4.4 step 1: a root sitting exactly on an isolating interval's
		// lower endpoint is found directly by the isolator and never
		// passed through the refiner, whose domain-error check would
		// otherwise discard it for failing the strict-opposite-sign
		// precondition.
		for _, root := range boundary {
			emit(root)
		}

		for _, iv := range isolating {
			lo, hi := iv.Lo, iv.Hi

			// §4.7 step 7: an isolating interval that straddles lbOffset's
			// cutoff has part of its lower end inside the cooldown
			// window; advance its lower bound up to the cutoff and let
			// refine.Find's own domain-error check discard the interval
			// if the sign change no longer survives the correction.
			if !pastCutoff(lo, cutoff, h) && pastCutoff(hi, cutoff, h) {
				lo = cutoff
			}
			if lo > hi {
				lo, hi = hi, lo
			}

			root, status := refine.Find(a, n, lo, hi)
			switch status {
			case refine.StatusOK:
			case refine.StatusNoConverge:
				log.Printf("[Detect] expression %d: refiner hit iteration cap, using best estimate", ex.Descriptor.ExpressionID)
			default:
				log.Printf("[Detect] expression %d: refiner reported error status %d, discarding candidate", ex.Descriptor.ExpressionID, status)
				continue
			}

			emit(root)
		}
	}

	// Order detections as they occur along the step: by distance from the
	// step start, i.e. ascending time forward and descending backward.
	sort.Slice(res.Terminal, func(i, j int) bool { return math.Abs(res.Terminal[i].Time) < math.Abs(res.Terminal[j].Time) })
	sort.Slice(res.NonTerminal, func(i, j int) bool { return math.Abs(res.NonTerminal[i].Time) < math.Abs(res.NonTerminal[j].Time) })

	return res
}

// pastCutoff reports whether real-coordinate position x has advanced
// past the cooldown cutoff in the direction the step travels (toward h
// from 0), mirroring internal/isolator's own gate so the driver's
// step-7 correction and the isolator's search agree on where the
// cooldown window releases.
func pastCutoff(x, cutoff, h float64) bool {
	if h >= 0 {
		return x >= cutoff
	}
	return x <= cutoff
}

// evalDeriv evaluates the formal derivative of a at x, falling back to
// the linear coefficient directly when the polynomial's degree is too
// low for the general Horner-derivative recurrence.
func evalDeriv(a []float64, x float64, n int) float64 {
	switch {
	case n >= 2:
		return polynomial.EvalDeriv(a, x, n)
	case n == 1:
		return a[1]
	default:
		return 0
	}
}

// hasMultiRoots probes just outside the cooldown window on either side
// of root and reports whether both probes land on the same side of
// zero as each other — a sign that two roots sit closer together than
// the cooldown length, which the single-root assumption behind
// cooldown suppression does not handle cleanly.
func hasMultiRoots(a []float64, n int, root, cd float64) bool {
	if cd <= 0 || !isFinite(cd) {
		return false
	}
	left := polynomial.Eval(a, root-cd, n)
	right := polynomial.Eval(a, root+cd, n)
	if !isFinite(left) || !isFinite(right) {
		return false
	}
	return sign(left) == sign(right) && sign(left) != 0
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

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
