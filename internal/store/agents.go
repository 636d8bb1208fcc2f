package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/metalagman/flowchat/internal/model"
	"github.com/rs/zerolog/log"
)

// AgentStore keeps agent records in an agents directory, one file per id.
type AgentStore struct {
	dir       string
	now       func() time.Time
	validate  *validator.Validate
	knownTool func(string) bool
}

// AgentOption customizes an AgentStore.
type AgentOption func(*AgentStore)

// WithAgentClock overrides the clock used for timestamps.
func WithAgentClock(now func() time.Time) AgentOption {
	return func(s *AgentStore) { s.now = now }
}

// WithToolCheck rejects agents that reference tools for which known returns false.
func WithToolCheck(known func(string) bool) AgentOption {
	return func(s *AgentStore) { s.knownTool = known }
}

// NewAgentStore creates a store rooted at dir.
func NewAgentStore(dir string, opts ...AgentOption) *AgentStore {
	s := &AgentStore{
		dir:      dir,
		now:      time.Now,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AgentID derives an agent id from its name.
func AgentID(name string) string {
	id := strings.ToLower(strings.TrimSpace(name))
	id = strings.ReplaceAll(id, " ", "_")
	return strings.ReplaceAll(id, "-", "_")
}

// SeedDefaults writes the default agents when the collection is empty.
func (s *AgentStore) SeedDefaults(ctx context.Context) error {
	existing, err := s.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	now := s.now().UTC()
	for _, rec := range DefaultAgents() {
		rec.CreatedAt = now
		rec.UpdatedAt = now
		if err := s.write(rec); err != nil {
			return err
		}
		log.Info().Str("agent", rec.ID).Msg("agent store: seeded default agent")
	}
	return nil
}

// List returns all agents ordered by id.
func (s *AgentStore) List(ctx context.Context) ([]model.AgentRecord, error) {
	keys, err := listKeys(s.dir)
	if err != nil {
		return nil, err
	}
	out := make([]model.AgentRecord, 0, len(keys))
	for _, key := range keys {
		rec, err := s.Get(ctx, key)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				log.Warn().Err(err).Str("agent", key).Msg("agent store: skipping unreadable agent")
			}
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get returns the agent with id.
func (s *AgentStore) Get(_ context.Context, id string) (model.AgentRecord, error) {
	key, err := normalizeKey(id)
	if err != nil {
		return model.AgentRecord{}, ErrNotFound
	}
	var rec model.AgentRecord
	if err := readJSON(s.path(key), &rec); err != nil {
		return model.AgentRecord{}, err
	}
	return rec, nil
}

// Create stores a new active agent. An id already in use is rejected with ErrAlreadyExists.
func (s *AgentStore) Create(ctx context.Context, spec model.AgentSpec) (model.AgentRecord, error) {
	if err := s.validate.Struct(spec); err != nil {
		return model.AgentRecord{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := s.checkTools(spec.Tools); err != nil {
		return model.AgentRecord{}, err
	}
	id := AgentID(spec.Name)
	if _, err := normalizeKey(id); err != nil {
		return model.AgentRecord{}, err
	}
	if _, err := s.Get(ctx, id); err == nil {
		return model.AgentRecord{}, fmt.Errorf("agent %s: %w", id, ErrAlreadyExists)
	} else if !errors.Is(err, ErrNotFound) {
		return model.AgentRecord{}, err
	}

	now := s.now().UTC()
	rec := model.AgentRecord{
		ID:           id,
		Name:         strings.TrimSpace(spec.Name),
		Description:  spec.Description,
		SystemPrompt: spec.SystemPrompt,
		Tools:        nonNil(spec.Tools),
		Flows:        nonNil(spec.Flows),
		CreatedAt:    now,
		UpdatedAt:    now,
		Active:       true,
	}
	if err := s.write(rec); err != nil {
		return model.AgentRecord{}, err
	}
	return rec, nil
}

// Update applies patch to the agent. It reports false when the agent does not exist.
// The patch is validated before any field changes.
func (s *AgentStore) Update(ctx context.Context, id string, patch model.AgentPatch) (bool, error) {
	if err := s.validate.Struct(patch); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if patch.Tools != nil {
		if err := s.checkTools(*patch.Tools); err != nil {
			return false, err
		}
	}
	rec, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	rec.Apply(patch)
	return true, s.save(rec)
}

// Delete removes the agent. It reports false when the agent does not exist.
func (s *AgentStore) Delete(_ context.Context, id string) (bool, error) {
	key, err := normalizeKey(id)
	if err != nil {
		return false, nil
	}
	return removeFile(s.path(key))
}

// AssignFlow adds flowID to the agent's flows. Assigning twice is a no-op.
func (s *AgentStore) AssignFlow(ctx context.Context, id, flowID string) (bool, error) {
	return s.mutateFlows(ctx, id, func(flows []string) []string {
		if slices.Contains(flows, flowID) {
			return flows
		}
		return append(flows, flowID)
	})
}

// RemoveFlow drops flowID from the agent's flows. Removing an absent flow is a no-op.
func (s *AgentStore) RemoveFlow(ctx context.Context, id, flowID string) (bool, error) {
	return s.mutateFlows(ctx, id, func(flows []string) []string {
		return slices.DeleteFunc(flows, func(f string) bool { return f == flowID })
	})
}

func (s *AgentStore) mutateFlows(ctx context.Context, id string, fn func([]string) []string) (bool, error) {
	rec, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	rec.Flows = nonNil(fn(rec.Flows))
	return true, s.save(rec)
}

func (s *AgentStore) checkTools(names []string) error {
	if s.knownTool == nil {
		return nil
	}
	for _, name := range names {
		if !s.knownTool(name) {
			return fmt.Errorf("%w: unknown tool %q", ErrInvalid, name)
		}
	}
	return nil
}

// save refreshes UpdatedAt and writes the record.
func (s *AgentStore) save(rec model.AgentRecord) error {
	rec.UpdatedAt = s.now().UTC()
	return s.write(rec)
}

func (s *AgentStore) write(rec model.AgentRecord) error {
	if err := writeJSON(s.path(rec.ID), rec); err != nil {
		return fmt.Errorf("save agent %s: %w", rec.ID, err)
	}
	return nil
}

func (s *AgentStore) path(id string) string {
	return filepath.Join(s.dir, id+FileExt)
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
