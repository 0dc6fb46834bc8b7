// Package cooldown implements the post-detection cooldown window: once
// an event fires, its containing expression is deducted a short
// quiet period during which further detections of the same expression
// are suppressed, to avoid re-triggering on numerical grazing at the
// boundary the refiner just converged to. The suppression window is
// two-sided around the trigger time so it behaves symmetrically for
// both forward and backward integration.
package cooldown

import (
	"log"
	"math"
)

// Deduce computes the cooldown length for an event whose derivative at
// the root is der, given the integrator's tolerance eps. The formula
// is cd = 10 * eps / |der|: the cooldown shrinks as the crossing gets
// steeper (a steep crossing cannot graze back across zero quickly) and
// grows as tolerance loosens.
//
// A non-finite or zero derivative makes the formula meaningless (the
// event sits at a turning point, not a transversal crossing); in that
// case Deduce logs a warning and returns a zero cooldown rather than
// propagating NaN/Inf into the run's event bookkeeping.
func Deduce(eps, der float64) float64 {
	absDer := math.Abs(der)
	cd := 10 * eps / absDer
	if !isFinite(cd) {
		log.Printf("[Cooldown] non-finite cooldown deduced (eps=%v, der=%v); defaulting to 0", eps, der)
		return 0
	}
	return cd
}

// Record is the cooldown state of one expression after it last fired:
// LastTrigger is the absolute simulation time of the trigger and
// Duration is the cooldown length deduced (or explicitly set) for it.
// Together they describe the symmetric suppression window
// [LastTrigger-Duration, LastTrigger+Duration].
type Record struct {
	LastTrigger float64
	Duration    float64
}

// Active reports whether t falls within the record's two-sided
// cooldown window. The window is symmetric so that suppression behaves
// the same whether a run is integrating forward or backward in time.
func (r Record) Active(t float64) bool {
	return t >= r.LastTrigger-r.Duration && t <= r.LastTrigger+r.Duration
}

// Tracker holds one Record per expression index, keyed the way the run
// service's checkpoint schema stores cooldown state (§3.1).
type Tracker struct {
	records map[int]Record
}

// NewTracker returns an empty cooldown tracker.
func NewTracker() *Tracker {
	return &Tracker{records: make(map[int]Record)}
}

// Active reports whether expression idx is currently cooling down at
// time t. An expression with no recorded cooldown is never suppressed.
func (t *Tracker) Active(idx int, simTime float64) bool {
	r, ok := t.records[idx]
	if !ok {
		return false
	}
	return r.Active(simTime)
}

// Start begins a cooldown window for expression idx, centered on
// simTime with half-width length. A length of zero or less clears any
// existing suppression immediately.
func (t *Tracker) Start(idx int, simTime, length float64) {
	if length <= 0 {
		delete(t.records, idx)
		return
	}
	t.records[idx] = Record{LastTrigger: simTime, Duration: length}
}

// LowerBoundOffset computes the §4.7 step-2 lb_offset for a terminal
// event: the fraction, along the step running from stepBegin toward
// stepBegin+h, at which idx's cooldown window releases. A root found
// at a step-local fraction below this offset falls inside the
// cooldown window and must be suppressed.
//
// The release edge is the window's leading edge in the step's
// direction of travel: the window's upper edge for a forward step
// (h>0), or its lower edge for a backward step (h<0) — dividing by the
// signed h folds both cases into one fraction. skip reports that idx
// has no recorded cooldown, or that the whole step lies within the
// window (lbOffset >= 1), in which case the event can be skipped
// outright without running the isolator at all.
func (t *Tracker) LowerBoundOffset(idx int, stepBegin, h float64) (lbOffset float64, skip bool) {
	r, ok := t.records[idx]
	if !ok {
		return 0, false
	}

	cdEnd := r.LastTrigger + r.Duration
	if h < 0 {
		cdEnd = r.LastTrigger - r.Duration
	}

	frac := (cdEnd - stepBegin) / h
	switch {
	case frac >= 1:
		return 1, true
	case frac <= 0:
		return 0, false
	default:
		return frac, false
	}
}

// Snapshot returns a copy of the tracker's current records, suitable
// for embedding into a run checkpoint.
func (t *Tracker) Snapshot() map[int]Record {
	out := make(map[int]Record, len(t.records))
	for k, v := range t.records {
		out[k] = v
	}
	return out
}

// Restore replaces the tracker's records with a previously snapshotted
// set, as when resuming a run from a checkpoint.
func (t *Tracker) Restore(records map[int]Record) {
	t.records = make(map[int]Record, len(records))
	for k, v := range records {
		t.records[k] = v
	}
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
