package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const legacyVersion = "1.0"

// LegacyRecord is the single-flow config record kept alongside the flows collection.
type LegacyRecord struct {
	FlowConfig map[string]any `json:"flow_config"`
	CreatedAt  string         `json:"created_at"`
	Version    string         `json:"version"`
}

// LegacyFlowStore keeps the single "current" flow config.
type LegacyFlowStore struct {
	path string
	now  func() time.Time
}

// NewLegacyFlowStore creates a store backed by the file at path.
func NewLegacyFlowStore(path string) *LegacyFlowStore {
	return &LegacyFlowStore{path: path, now: time.Now}
}

// Save replaces the record.
func (s *LegacyFlowStore) Save(_ context.Context, flowConfig map[string]any) (LegacyRecord, error) {
	if len(flowConfig) == 0 {
		return LegacyRecord{}, fmt.Errorf("%w: flow_config is required", ErrInvalid)
	}
	rec := LegacyRecord{
		FlowConfig: flowConfig,
		CreatedAt:  s.now().UTC().Format(time.RFC3339),
		Version:    legacyVersion,
	}
	if err := writeJSON(s.path, rec); err != nil {
		return LegacyRecord{}, fmt.Errorf("save flow config: %w", err)
	}
	return rec, nil
}

// Load returns the record or ErrNotFound.
func (s *LegacyFlowStore) Load(_ context.Context) (LegacyRecord, error) {
	var rec LegacyRecord
	if err := readJSON(s.path, &rec); err != nil {
		return LegacyRecord{}, err
	}
	return rec, nil
}

// SystemInstructions returns the stored flow's system_instructions, or ErrNotFound.
func (s *LegacyFlowStore) SystemInstructions(ctx context.Context) (string, error) {
	rec, err := s.Load(ctx)
	if err != nil {
		return "", err
	}
	text, _ := rec.FlowConfig["system_instructions"].(string)
	if strings.TrimSpace(text) == "" {
		return "", ErrNotFound
	}
	return text, nil
}
