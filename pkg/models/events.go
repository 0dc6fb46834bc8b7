package models

import "time"

// Direction constrains which sign transition of an event function
// counts as a detection: a positive-going crossing, a negative-going
// crossing, or either.
type Direction int

const (
	DirectionAny      Direction = 0
	DirectionPositive Direction = 1
	DirectionNegative Direction = -1
)

// EventDescriptor describes one event function tracked across a run:
// its identity, whether it halts integration when it fires, which
// crossing direction counts, and an optional fixed cooldown overriding
// the automatically deduced one.
type EventDescriptor struct {
	ExpressionID     int       `json:"expressionId"`
	IsTerminal       bool      `json:"isTerminal"`
	Direction        Direction `json:"direction"`
	ExplicitCooldown *float64  `json:"explicitCooldown,omitempty"` // nil means auto-deduce
}

// CooldownRecord is the persisted form of a single expression's
// cooldown window, as held by internal/cooldown.Tracker: the absolute
// time of the last trigger and the half-width of the symmetric
// suppression window around it.
type CooldownRecord struct {
	LastTrigger float64 `json:"lastTrigger"`
	Duration    float64 `json:"duration"`
}

// DetectedTerminalEvent is one terminal event found during a step, in
// the order the driver selects as "first to fire" within that step.
// MultiRootFlag reports that a second root was suspected within the
// cooldown window around this one (closely-spaced roots the
// single-root cooldown model cannot cleanly distinguish); AbsDerivative
// is |g'(root)| on the unrescaled event polynomial, the value the
// cooldown length was deduced from.
type DetectedTerminalEvent struct {
	ExpressionID  int     `json:"expressionId"`
	Time          float64 `json:"time"` // offset from step start, in [0, h] (in [h, 0] on a backward step)
	Direction     int     `json:"direction"`
	MultiRootFlag bool    `json:"multiRootFlag"`
	AbsDerivative float64 `json:"absDerivative"`
}

// DetectedNonTerminalEvent is one non-terminal event found during a
// step; unlike terminal events, all of these fire within the step, not
// just the earliest.
type DetectedNonTerminalEvent struct {
	ExpressionID int     `json:"expressionId"`
	Time         float64 `json:"time"`
	Direction    int     `json:"direction"`
}

// Jet is one step's Taylor-coefficient buffer: state variables, their
// time derivatives up to the integration order, and the event function
// values evaluated on the same buffer, laid out contiguously. The
// reference stepper and the detection driver do not use it: they pass
// one coefficient slice per event function instead.
type Jet struct {
	Order      int       `json:"order"`
	StateWidth int       `json:"stateWidth"`
	EventWidth int       `json:"eventWidth"`
	Coeffs     []float64 `json:"coeffs"`
}

// RunCheckpoint is the persisted snapshot of a run, written periodically
// so a crashed or restarted run service can resume mid-integration
// instead of starting over.
type RunCheckpoint struct {
	RunID               string                 `json:"runId"`
	CreatedAt           time.Time              `json:"createdAt"`
	StepIndex           int                    `json:"stepIndex"`
	SimTime             float64                `json:"simTime"`
	State               []float64              `json:"state"`
	Events              []EventDescriptor      `json:"events"`
	Cooldowns           map[int]CooldownRecord `json:"cooldowns"`
	PolyCacheOrderPlus1 int                    `json:"polyCacheOrderPlusOne"`
	PolyCacheDepth      int                    `json:"polyCacheDepth"`
}

// DetectedEventEnvelope is the wire schema broadcast over the run's
// websocket stream. The events-listing endpoint returns api.EventEnvelope
// entries instead, one per detected event.
type DetectedEventEnvelope struct {
	RunID       string                     `json:"runId"`
	StepIndex   int                        `json:"stepIndex"`
	SimTime     float64                    `json:"simTime"`
	Terminal    []DetectedTerminalEvent    `json:"terminal,omitempty"`
	NonTerminal []DetectedNonTerminalEvent `json:"nonTerminal,omitempty"`
}
