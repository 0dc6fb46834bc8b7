package reference

import (
	"github.com/rawblock/taylorevents/internal/cooldown"
	"github.com/rawblock/taylorevents/internal/detect"
	"github.com/rawblock/taylorevents/internal/polycache"
	"github.com/rawblock/taylorevents/internal/polynomial"
	"github.com/rawblock/taylorevents/pkg/models"
)

// Stepper drives one system forward through repeated fixed-length
// steps, running event detection on each step's Taylor jet and
// truncating the step at the earliest detected terminal event (if
// any). It is deliberately minimal: the step length never adapts to
// local error, matching §1's note that this reference stepper is not a
// production-grade integrator.
type Stepper struct {
	Order   int
	H       float64
	Eps     float64
	Events  []models.EventDescriptor
	Coeffs  func(state []float64, order int) [][]float64
	Advance func(state []float64, t float64) []float64

	State   []float64
	SimTime float64
	Step    int

	Tracker *cooldown.Tracker
	Cache   *polycache.Cache
}

// NewStepper wires up a Stepper with a fresh cooldown tracker and a
// poly-buffer cache sized for this system's Taylor order.
func NewStepper(order int, h, eps float64, events []models.EventDescriptor, state []float64,
	coeffs func(state []float64, order int) [][]float64, advance func(state []float64, t float64) []float64) *Stepper {
	return &Stepper{
		Order:   order,
		H:       h,
		Eps:     eps,
		Events:  events,
		Coeffs:  coeffs,
		Advance: advance,
		State:   state,
		Tracker: cooldown.NewTracker(),
		Cache:   polycache.New(order + 1),
	}
}

// Advance1 runs one step and returns the events detected during it. The
// system state and simulation clock are advanced to the earliest
// terminal event's time, or to the full step length h if none fired.
func (s *Stepper) Advance1() detect.Result {
	coeffs := s.Coeffs(s.State, s.Order)
	exprs := make([]detect.Expression, len(s.Events))
	for i, d := range s.Events {
		exprs[i] = detect.Expression{Descriptor: d, Coeffs: coeffs[i]}
	}

	backward := s.H < 0
	res := detect.Run(exprs, s.Order, s.H, backward, s.Eps, s.SimTime, s.Tracker, s.Cache)

	t := s.H
	if len(res.Terminal) > 0 {
		t = res.Terminal[0].Time
	}

	s.State = s.Advance(s.State, t)
	s.SimTime += t
	s.Step++
	return res
}

// NewPendulumStepper builds a Stepper for the undamped pendulum with
// two non-terminal event functions: theta crossing zero (bottom of the
// swing) and omega crossing zero (a turning point).
func NewPendulumStepper(theta0, omega0, g, l, h, eps float64, order int) *Stepper {
	events := []models.EventDescriptor{
		{ExpressionID: 0, IsTerminal: false, Direction: models.DirectionAny},
		{ExpressionID: 1, IsTerminal: false, Direction: models.DirectionAny},
	}
	coeffs := func(state []float64, order int) [][]float64 {
		theta, omega := PendulumJet(state[0], state[1], g, l, order)
		return [][]float64{theta, omega}
	}
	advance := func(state []float64, t float64) []float64 {
		theta, omega := PendulumJet(state[0], state[1], g, l, order)
		return []float64{polynomial.Eval(theta, t, len(theta)-1), polynomial.Eval(omega, t, len(omega)-1)}
	}
	return NewStepper(order, h, eps, events, []float64{theta0, omega0}, coeffs, advance)
}

// NewCollisionStepper builds a Stepper for the two-body collision
// system with a configurable collision event (centers within R of each
// other) and two non-terminal "bounce" events (either body crossing
// the ground plane). The collision event's terminality and crossing
// direction are caller-supplied rather than fixed, since the same
// squared-distance expression serves both a halting "impact" event and
// a merely-observed "close approach" event depending on the system
// being modeled.
func NewCollisionStepper(c CollisionState, terminal bool, direction models.Direction, h, eps float64, order int) *Stepper {
	events := []models.EventDescriptor{
		{ExpressionID: 0, IsTerminal: terminal, Direction: direction},
		{ExpressionID: 1, IsTerminal: false, Direction: models.DirectionAny},
		{ExpressionID: 2, IsTerminal: false, Direction: models.DirectionAny},
	}
	state := []float64{c.X1, c.Y1, c.VX1, c.VY1, c.X2, c.Y2, c.VX2, c.VY2}
	coeffs := func(state []float64, order int) [][]float64 {
		cur := stateToCollision(state, c.G, c.R)
		collision, ground1, ground2 := cur.Jets(order)
		return [][]float64{collision, ground1, ground2}
	}
	advance := func(state []float64, t float64) []float64 {
		cur := stateToCollision(state, c.G, c.R)
		x1, y1, x2, y2 := cur.positionJets(2)
		vx1, vy1 := cur.VX1, cur.VY1-c.G*t
		vx2, vy2 := cur.VX2, cur.VY2-c.G*t
		return []float64{
			polynomial.Eval(x1, t, len(x1)-1), polynomial.Eval(y1, t, len(y1)-1), vx1, vy1,
			polynomial.Eval(x2, t, len(x2)-1), polynomial.Eval(y2, t, len(y2)-1), vx2, vy2,
		}
	}
	return NewStepper(order, h, eps, events, state, coeffs, advance)
}

func stateToCollision(state []float64, g, r float64) CollisionState {
	return CollisionState{
		X1: state[0], Y1: state[1], VX1: state[2], VY1: state[3],
		X2: state[4], Y2: state[5], VX2: state[6], VY2: state[7],
		G: g, R: r,
	}
}
