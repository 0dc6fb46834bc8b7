// Package runsvc owns the lifecycle of event-detection runs: starting
// one against a chosen reference system, stepping it to its horizon in
// a background goroutine, broadcasting detected events over the
// websocket hub, and periodically checkpointing progress to Postgres.
package runsvc

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rawblock/taylorevents/internal/api"
	"github.com/rawblock/taylorevents/internal/db"
	"github.com/rawblock/taylorevents/internal/detect"
	"github.com/rawblock/taylorevents/internal/reference"
	"github.com/rawblock/taylorevents/pkg/models"
)

// maxSteps bounds a run's step count so a misconfigured horizon cannot
// spin the service forever.
const maxSteps = 100_000

// checkpointEvery is how many steps elapse between checkpoint writes.
const checkpointEvery = 50

// tickPace paces broadcasts so a fast-converging run does not flood the
// websocket hub with a burst of messages no client can usefully render.
const tickPace = 20 * time.Millisecond

// run holds one run's live state.
type run struct {
	mu        sync.Mutex
	id        string
	system    string
	horizon   float64
	stepper   *reference.Stepper
	events    []api.EventEnvelope
	done      bool
	createdAt time.Time
}

// Service implements api.RunController, orchestrating runs started
// through the HTTP layer.
type Service struct {
	mu    sync.Mutex
	runs  map[string]*run
	hub   *api.Hub
	store *db.PostgresStore
}

var _ api.RunController = (*Service)(nil)

// New returns a Service broadcasting over hub and, if store is
// non-nil, checkpointing runs to Postgres.
func New(hub *api.Hub, store *db.PostgresStore) *Service {
	return &Service{
		runs:  make(map[string]*run),
		hub:   hub,
		store: store,
	}
}

// StartRun builds the requested reference system's stepper and begins
// driving it to its horizon in a background goroutine.
func (s *Service) StartRun(req api.StartRunRequest) (string, error) {
	order := req.Order
	if order <= 0 {
		order = 6
	}

	var stepper *reference.Stepper
	switch req.System {
	case "pendulum":
		stepper = reference.NewPendulumStepper(0.5, 0, 9.8, 1.0, req.Horizon/10, 1e-10, order)
	case "collision":
		c := reference.CollisionState{
			X1: 0, Y1: 10, VX1: 1, VY1: 0,
			X2: 8, Y2: 10, VX2: -1, VY2: 0,
			G: 9.8, R: 0.3,
		}
		stepper = reference.NewCollisionStepper(c, true, models.DirectionNegative, req.Horizon/10, 1e-10, order)
	default:
		stepper = reference.NewPendulumStepper(0.5, 0, 9.8, 1.0, req.Horizon/10, 1e-10, order)
	}

	id := uuid.New().String()
	r := &run{
		id:        id,
		system:    req.System,
		horizon:   req.Horizon,
		stepper:   stepper,
		createdAt: time.Now(),
	}

	s.mu.Lock()
	s.runs[id] = r
	s.mu.Unlock()

	go s.drive(context.Background(), r)

	return id, nil
}

// drive steps r forward until it reaches its horizon or the step cap,
// broadcasting each step's detected events and checkpointing
// periodically.
func (s *Service) drive(ctx context.Context, r *run) {
	ticker := time.NewTicker(tickPace)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.mu.Lock()
			if r.stepper.SimTime >= r.horizon || r.stepper.Step >= maxSteps {
				r.done = true
				r.mu.Unlock()
				log.Printf("[RunService] run %s finished at step %d, t=%v", r.id, r.stepper.Step, r.stepper.SimTime)
				s.checkpoint(ctx, r)
				return
			}

			res := r.stepper.Advance1()
			s.recordEvents(r, res)
			r.mu.Unlock()

			if r.stepper.Step%checkpointEvery == 0 {
				s.checkpoint(ctx, r)
			}
		}
	}
}

// recordEvents appends the step's events to the run's log and
// broadcasts them over the websocket hub. Caller must hold r.mu.
func (s *Service) recordEvents(r *run, res detect.Result) {
	envelope := models.DetectedEventEnvelope{
		RunID:       r.id,
		StepIndex:   r.stepper.Step,
		SimTime:     r.stepper.SimTime,
		Terminal:    res.Terminal,
		NonTerminal: res.NonTerminal,
	}

	for _, ev := range res.Terminal {
		r.events = append(r.events, api.EventEnvelope{
			StepIndex: r.stepper.Step, SimTime: r.stepper.SimTime, Terminal: true, Event: ev,
		})
	}
	for _, ev := range res.NonTerminal {
		r.events = append(r.events, api.EventEnvelope{
			StepIndex: r.stepper.Step, SimTime: r.stepper.SimTime, Terminal: false, Event: ev,
		})
	}

	if len(envelope.Terminal) == 0 && len(envelope.NonTerminal) == 0 {
		return
	}
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		log.Printf("[RunService] failed to marshal event envelope for run %s: %v", r.id, err)
		return
	}
	s.hub.Broadcast(payload)
}

func (s *Service) checkpoint(ctx context.Context, r *run) {
	if s.store == nil {
		return
	}
	r.mu.Lock()
	snapshot := r.stepper.Tracker.Snapshot()
	cooldowns := make(map[int]models.CooldownRecord, len(snapshot))
	for id, rec := range snapshot {
		cooldowns[id] = models.CooldownRecord{LastTrigger: rec.LastTrigger, Duration: rec.Duration}
	}
	cp := models.RunCheckpoint{
		RunID:               r.id,
		CreatedAt:           r.createdAt,
		StepIndex:           r.stepper.Step,
		SimTime:             r.stepper.SimTime,
		State:               append([]float64(nil), r.stepper.State...),
		Events:              r.stepper.Events,
		Cooldowns:           cooldowns,
		PolyCacheOrderPlus1: r.stepper.Cache.Size(),
		PolyCacheDepth:      r.stepper.Cache.Depth(),
	}
	r.mu.Unlock()

	if err := s.store.SaveCheckpoint(ctx, cp); err != nil {
		log.Printf("[RunService] failed to checkpoint run %s: %v", r.id, err)
	}
}

// GetRun implements api.RunController.
func (s *Service) GetRun(runID string) (api.RunStatus, bool) {
	s.mu.Lock()
	r, ok := s.runs[runID]
	s.mu.Unlock()
	if !ok {
		return api.RunStatus{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return api.RunStatus{
		RunID:     r.id,
		System:    r.system,
		StepIndex: r.stepper.Step,
		SimTime:   r.stepper.SimTime,
		Done:      r.done,
	}, true
}

// ListEvents implements api.RunController.
func (s *Service) ListEvents(runID string) ([]api.EventEnvelope, bool) {
	s.mu.Lock()
	r, ok := s.runs[runID]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]api.EventEnvelope, len(r.events))
	copy(out, r.events)
	return out, true
}
