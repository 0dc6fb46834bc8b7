package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rawblock/taylorevents/pkg/models"
)

// PostgresStore persists run checkpoints so a restarted run service can
// resume integration instead of starting over.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect initializes the connection pool to PostgreSQL using pgx.
func Connect(connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping failed: %v", err)
	}

	log.Println("Successfully connected to PostgreSQL for run checkpoint storage")
	return &PostgresStore{pool: pool}, nil
}

// Close gracefully closes the connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema loads and executes the schema.sql file.
func (s *PostgresStore) InitSchema() error {
	schemaBytes, err := os.ReadFile("internal/db/schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %v", err)
	}

	_, err = s.pool.Exec(context.Background(), string(schemaBytes))
	if err != nil {
		return fmt.Errorf("failed to execute schema migrations: %v", err)
	}

	log.Println("Run checkpoint schema initialized")
	return nil
}

// SaveCheckpoint upserts a run's checkpoint, keyed by run ID. The event
// descriptors, state vector, and cooldown records are stored as JSON
// columns since their shape is fixed per run but varies across runs.
func (s *PostgresStore) SaveCheckpoint(ctx context.Context, cp models.RunCheckpoint) error {
	eventsJSON, err := json.Marshal(cp.Events)
	if err != nil {
		return fmt.Errorf("failed to marshal event descriptors: %v", err)
	}
	cooldownsJSON, err := json.Marshal(cp.Cooldowns)
	if err != nil {
		return fmt.Errorf("failed to marshal cooldown records: %v", err)
	}
	stateJSON, err := json.Marshal(cp.State)
	if err != nil {
		return fmt.Errorf("failed to marshal run state: %v", err)
	}

	sql := `
		INSERT INTO run_checkpoint
			(run_id, created_at, step_index, sim_time, state, events, cooldowns, poly_cache_order_plus_one, poly_cache_depth)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (run_id) DO UPDATE
		SET step_index = EXCLUDED.step_index,
		    sim_time = EXCLUDED.sim_time,
		    state = EXCLUDED.state,
		    events = EXCLUDED.events,
		    cooldowns = EXCLUDED.cooldowns,
		    poly_cache_order_plus_one = EXCLUDED.poly_cache_order_plus_one,
		    poly_cache_depth = EXCLUDED.poly_cache_depth;
	`
	_, err = s.pool.Exec(ctx, sql,
		cp.RunID, cp.CreatedAt, cp.StepIndex, cp.SimTime, stateJSON,
		eventsJSON, cooldownsJSON, cp.PolyCacheOrderPlus1, cp.PolyCacheDepth)
	if err != nil {
		return fmt.Errorf("failed to upsert run checkpoint: %v", err)
	}
	return nil
}

// LoadCheckpoint fetches the most recent checkpoint for a run ID.
func (s *PostgresStore) LoadCheckpoint(ctx context.Context, runID string) (models.RunCheckpoint, error) {
	var cp models.RunCheckpoint
	var stateJSON, eventsJSON, cooldownsJSON []byte

	sql := `
		SELECT run_id, created_at, step_index, sim_time, state, events, cooldowns,
		       poly_cache_order_plus_one, poly_cache_depth
		FROM run_checkpoint WHERE run_id = $1;
	`
	row := s.pool.QueryRow(ctx, sql, runID)
	if err := row.Scan(&cp.RunID, &cp.CreatedAt, &cp.StepIndex, &cp.SimTime, &stateJSON,
		&eventsJSON, &cooldownsJSON, &cp.PolyCacheOrderPlus1, &cp.PolyCacheDepth); err != nil {
		return models.RunCheckpoint{}, fmt.Errorf("failed to load run checkpoint: %v", err)
	}

	if err := json.Unmarshal(stateJSON, &cp.State); err != nil {
		return models.RunCheckpoint{}, fmt.Errorf("failed to unmarshal run state: %v", err)
	}
	if err := json.Unmarshal(eventsJSON, &cp.Events); err != nil {
		return models.RunCheckpoint{}, fmt.Errorf("failed to unmarshal event descriptors: %v", err)
	}
	if err := json.Unmarshal(cooldownsJSON, &cp.Cooldowns); err != nil {
		return models.RunCheckpoint{}, fmt.Errorf("failed to unmarshal cooldown records: %v", err)
	}
	return cp, nil
}

// ListRuns returns the run IDs with a stored checkpoint, most recently
// created first, paginated the way the teacher's mixer listing is.
func (s *PostgresStore) ListRuns(ctx context.Context, page, limit int) ([]string, int, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := (page - 1) * limit

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM run_checkpoint;`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count runs: %v", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT run_id FROM run_checkpoint ORDER BY created_at DESC LIMIT $1 OFFSET $2;`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list runs: %v", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, 0, fmt.Errorf("failed to scan run id: %v", err)
		}
		ids = append(ids, id)
	}
	return ids, total, rows.Err()
}

// GetPool exposes the connection pool for subsystems that need direct
// access (e.g. a future migrations runner).
func (s *PostgresStore) GetPool() *pgxpool.Pool {
	return s.pool
}
