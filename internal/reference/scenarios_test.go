package reference

import (
	"math"
	"testing"

	"github.com/rawblock/taylorevents/internal/polynomial"
	"github.com/rawblock/taylorevents/pkg/models"
)

// newPendulumOmegaStepper tracks only the pendulum's angular-velocity
// crossing (omega), unlike NewPendulumStepper which also tracks theta —
// needed to reproduce the named end-to-end scenarios, which are defined
// in terms of a single chosen event function rather than "every event
// this system happens to have".
func newPendulumOmegaStepper(theta0, omega0, g, l, h, eps float64, order int, dir models.Direction) *Stepper {
	events := []models.EventDescriptor{
		{ExpressionID: 0, IsTerminal: false, Direction: dir},
	}
	coeffs := func(state []float64, order int) [][]float64 {
		_, omega := PendulumJet(state[0], state[1], g, l, order)
		return [][]float64{omega}
	}
	advance := func(state []float64, t float64) []float64 {
		theta, omega := PendulumJet(state[0], state[1], g, l, order)
		return []float64{polynomial.Eval(theta, t, len(theta)-1), polynomial.Eval(omega, t, len(omega)-1)}
	}
	return NewStepper(order, h, eps, events, []float64{theta0, omega0}, coeffs, advance)
}

// newPendulumMultiZeroStepper tracks two event functions at once,
// omega^2 - eps0 and omega itself, the pair spec.md §8 scenario 3 and 4
// are built from.
func newPendulumMultiZeroStepper(theta0, omega0, g, l, h, eps, eps0 float64, order int, omegaDir models.Direction) *Stepper {
	events := []models.EventDescriptor{
		{ExpressionID: 0, IsTerminal: false, Direction: models.DirectionAny},
		{ExpressionID: 1, IsTerminal: false, Direction: omegaDir},
	}
	coeffs := func(state []float64, order int) [][]float64 {
		_, omega := PendulumJet(state[0], state[1], g, l, order)
		sq := convolve(omega, omega, order)
		sq[0] -= eps0
		return [][]float64{sq, omega}
	}
	advance := func(state []float64, t float64) []float64 {
		theta, omega := PendulumJet(state[0], state[1], g, l, order)
		return []float64{polynomial.Eval(theta, t, len(theta)-1), polynomial.Eval(omega, t, len(omega)-1)}
	}
	return NewStepper(order, h, eps, events, []float64{theta0, omega0}, coeffs, advance)
}

// runToHorizon drives s in fixed h-length steps until SimTime reaches
// horizon (h may be negative, for backward propagation), returning
// every non-terminal event encountered in time order, with each event's
// step-local Time converted to absolute simulation time.
func runToHorizon(s *Stepper, horizon float64) []models.DetectedNonTerminalEvent {
	var all []models.DetectedNonTerminalEvent
	forward := s.H > 0
	for {
		if forward && s.SimTime >= horizon {
			break
		}
		if !forward && s.SimTime <= horizon {
			break
		}
		stepStart := s.SimTime
		res := s.Advance1()
		for _, ev := range res.NonTerminal {
			ev.Time += stepStart
			all = append(all, ev)
		}
	}
	return all
}

// TestPendulumZeroCrossingScenario reproduces spec.md §8 scenario 1: an
// undamped pendulum released from theta=-0.25 with omega tracked as a
// non-terminal event. The pendulum's nonlinear period at this amplitude
// puts the event one full period after release near t ≈ 2.0149583.
func TestPendulumZeroCrossingScenario(t *testing.T) {
	s := newPendulumOmegaStepper(-0.25, 0, 9.8, 1.0, 0.25, 1e-12, 14, models.DirectionAny)
	events := runToHorizon(s, 2.2)

	if len(events) < 2 || len(events) > 4 {
		t.Fatalf("got %d omega-crossing events, want roughly 3 (release, half period and full period turning points): %+v", len(events), events)
	}

	const wantPeriod = 2.01495830729551199828007207119092374
	found := false
	for _, ev := range events {
		if math.Abs(ev.Time-wantPeriod) < 1e-2 {
			found = true
		}
	}
	if !found {
		t.Errorf("no event found near the full-period time %v among %+v", wantPeriod, events)
	}
}

// TestGlancingCollisionScenario reproduces spec.md §8 scenario 2: two
// particles whose paths never actually close to the collision radius
// (the x-separation of 10 units swamps the y-direction approach), so
// the non-terminal distance event fires at most twice, each time (if
// ever) within the stated window around t=10.
func TestGlancingCollisionScenario(t *testing.T) {
	c := CollisionState{
		X1: 0, Y1: 0, VX1: 0, VY1: 0,
		X2: -10, Y2: 1, VX2: 0, VY2: 2,
		G: 0, R: 2,
	}
	s := NewCollisionStepper(c, false, models.DirectionAny, 1.3, 1e-12, 8)
	events := runToHorizon(s, 20*1.3)

	var distanceEvents []models.DetectedNonTerminalEvent
	for _, ev := range events {
		if ev.ExpressionID == 0 {
			distanceEvents = append(distanceEvents, ev)
		}
	}
	if len(distanceEvents) > 2 {
		t.Fatalf("got %d distance events, want at most 2: %+v", len(distanceEvents), distanceEvents)
	}
	for _, ev := range distanceEvents {
		if d := ev.Time - 10; d*d > 1e-2 {
			t.Errorf("distance event at t=%v, want within the window around t=10", ev.Time)
		}
	}
}

// TestMultiZeroSequenceScenario reproduces spec.md §8 scenario 3: a
// pendulum released from (theta,omega)=(0,0.25) with both omega^2-eps0
// and omega tracked, propagated to t=4. Every turning point produces
// the omega^2-eps0 event twice (entering and leaving the epsilon band
// around the crossing) bracketing a single omega event, so the total
// count is a multiple of 3 and strictly increasing in time.
func TestMultiZeroSequenceScenario(t *testing.T) {
	s := newPendulumMultiZeroStepper(0, 0.25, 9.8, 1.0, 0.2, 1e-12, 1e-10, 14, models.DirectionAny)
	events := runToHorizon(s, 4.0)

	if len(events)%3 != 0 {
		t.Errorf("got %d events, want a multiple of 3 (the [v^2-eps0],[v],[v^2-eps0] pattern): %+v", len(events), events)
	}
	if len(events) < 6 {
		t.Fatalf("got %d events, want several repetitions of the turning-point pattern by t=4", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].Time <= events[i-1].Time {
			t.Errorf("events not strictly time-ordered at index %d: %+v", i, events)
		}
	}
}

// TestDirectionFilterScenario reproduces spec.md §8 scenario 4: same
// setup as the multi-zero sequence, but the omega event is restricted
// to negative-going crossings, roughly halving how often it fires
// while the omega^2-eps0 event (unfiltered) is unaffected.
func TestDirectionFilterScenario(t *testing.T) {
	s := newPendulumMultiZeroStepper(0, 0.25, 9.8, 1.0, 0.2, 1e-12, 1e-10, 14, models.DirectionNegative)
	events := runToHorizon(s, 4.0)

	omegaCount := 0
	for _, ev := range events {
		if ev.ExpressionID == 1 {
			omegaCount++
			if ev.Direction != int(models.DirectionNegative) {
				t.Errorf("filtered omega event fired with direction %d, want negative", ev.Direction)
			}
		}
	}
	if omegaCount == 0 {
		t.Error("expected at least one negative-going omega crossing")
	}

	unfiltered := newPendulumMultiZeroStepper(0, 0.25, 9.8, 1.0, 0.2, 1e-12, 1e-10, 14, models.DirectionAny)
	all := runToHorizon(unfiltered, 4.0)
	unfilteredOmegaCount := 0
	for _, ev := range all {
		if ev.ExpressionID == 1 {
			unfilteredOmegaCount++
		}
	}
	if omegaCount >= unfilteredOmegaCount {
		t.Errorf("direction-filtered omega count (%d) should be lower than the unfiltered count (%d)", omegaCount, unfilteredOmegaCount)
	}
}

// TestBackwardPropagationScenario reproduces spec.md §8 scenario 5: the
// same multi-zero setup propagated backward to t=-4, where event times
// must come out strictly decreasing instead of increasing.
func TestBackwardPropagationScenario(t *testing.T) {
	s := newPendulumMultiZeroStepper(0, 0.25, 9.8, 1.0, -0.2, 1e-12, 1e-10, 14, models.DirectionAny)
	events := runToHorizon(s, -4.0)

	if len(events) < 6 {
		t.Fatalf("got %d events propagating backward, want several repetitions of the turning-point pattern", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].Time >= events[i-1].Time {
			t.Errorf("events not strictly decreasing in time at index %d: %+v", i, events)
		}
	}
}

// TestNoEventsEquivalenceScenario reproduces spec.md §8 scenario 6: a
// run with only an always-dormant event attached (the constant 1, which
// fex_check excludes on every step) must advance identically to a run
// with no events tracked at all.
func TestNoEventsEquivalenceScenario(t *testing.T) {
	withDormant := newDormantPendulumStepper(-0.1, 0.5, 9.8, 1.0, 0.3, 1e-10, 6)
	bare := newPendulumBareStepper(-0.1, 0.5, 9.8, 1.0, 0.3, 1e-10, 6)

	for i := 0; i < 10; i++ {
		withDormant.Advance1()
		bare.Advance1()
		if withDormant.SimTime != bare.SimTime {
			t.Fatalf("step %d: SimTime diverged: dormant=%v bare=%v", i, withDormant.SimTime, bare.SimTime)
		}
		for j := range withDormant.State {
			if withDormant.State[j] != bare.State[j] {
				t.Fatalf("step %d: state[%d] diverged: dormant=%v bare=%v", i, j, withDormant.State[j], bare.State[j])
			}
		}
	}
}

func newDormantPendulumStepper(theta0, omega0, g, l, h, eps float64, order int) *Stepper {
	events := []models.EventDescriptor{
		{ExpressionID: 0, IsTerminal: false, Direction: models.DirectionAny},
	}
	coeffs := func(state []float64, order int) [][]float64 {
		dormant := make([]float64, order+1)
		dormant[0] = 1
		return [][]float64{dormant}
	}
	advance := func(state []float64, t float64) []float64 {
		theta, omega := PendulumJet(state[0], state[1], g, l, order)
		return []float64{polynomial.Eval(theta, t, len(theta)-1), polynomial.Eval(omega, t, len(omega)-1)}
	}
	return NewStepper(order, h, eps, events, []float64{theta0, omega0}, coeffs, advance)
}

func newPendulumBareStepper(theta0, omega0, g, l, h, eps float64, order int) *Stepper {
	advance := func(state []float64, t float64) []float64 {
		theta, omega := PendulumJet(state[0], state[1], g, l, order)
		return []float64{polynomial.Eval(theta, t, len(theta)-1), polynomial.Eval(omega, t, len(omega)-1)}
	}
	coeffs := func(state []float64, order int) [][]float64 { return nil }
	return NewStepper(order, h, eps, nil, []float64{theta0, omega0}, coeffs, advance)
}
