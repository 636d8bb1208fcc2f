// Package runlog records the outcome of every pipeline run.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// startedAtLayout is fixed-width so stored values sort chronologically.
const startedAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeDegraded = "degraded"
)

// Entry is one recorded pipeline run.
type Entry struct {
	ID        string        `json:"id"`
	Pipeline  string        `json:"pipeline"`
	AgentID   string        `json:"agent_id,omitempty"`
	Outcome   string        `json:"outcome"`
	ErrorKind string        `json:"error_kind,omitempty"`
	Message   string        `json:"message,omitempty"`
	UsedTool  bool          `json:"used_tool"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Store persists entries in the pipeline_runs table.
type Store struct {
	db *sql.DB
}

// NewStore creates a run log over an opened database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record inserts entry, assigning an id when it has none.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	usedTool := 0
	if entry.UsedTool {
		usedTool = 1
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO pipeline_runs
		(run_id, pipeline, agent_id, outcome, error_kind, message, used_tool, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Pipeline, entry.AgentID, entry.Outcome, entry.ErrorKind, entry.Message,
		usedTool, entry.StartedAt.UTC().Format(startedAtLayout), entry.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("insert pipeline run: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, pipeline, agent_id, outcome, error_kind, message, used_tool, started_at, duration_ms
		FROM pipeline_runs ORDER BY started_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pipeline runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var (
			e          Entry
			usedTool   int
			startedAt  string
			durationMS int64
		)
		if err := rows.Scan(&e.ID, &e.Pipeline, &e.AgentID, &e.Outcome, &e.ErrorKind, &e.Message, &usedTool, &startedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("scan pipeline run: %w", err)
		}
		e.UsedTool = usedTool != 0
		e.Duration = time.Duration(durationMS) * time.Millisecond
		if e.StartedAt, err = time.Parse(startedAtLayout, startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at of run %s: %w", e.ID, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pipeline runs: %w", err)
	}
	return out, nil
}
