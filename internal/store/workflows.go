package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/metalagman/flowchat/internal/model"
	"github.com/rs/zerolog/log"
)

// TimestampLayout is the 14-digit suffix appended to workflow keys.
const TimestampLayout = "20060102150405"

// WorkflowStore keeps workflow documents in a flows directory.
type WorkflowStore struct {
	dir string
	now func() time.Time
}

// WorkflowOption customizes a WorkflowStore.
type WorkflowOption func(*WorkflowStore)

// WithWorkflowClock overrides the clock used for storage keys.
func WithWorkflowClock(now func() time.Time) WorkflowOption {
	return func(s *WorkflowStore) { s.now = now }
}

// NewWorkflowStore creates a store rooted at dir.
func NewWorkflowStore(dir string, opts ...WorkflowOption) *WorkflowStore {
	s := &WorkflowStore{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Slug turns a workflow name into a filesystem-safe identifier.
func Slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r == ' ':
			b.WriteRune('_')
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "workflow"
	}
	return b.String()
}

// Key derives the storage key of a workflow saved at t.
func Key(name string, t time.Time) string {
	return Slug(name) + "_" + t.Format(TimestampLayout)
}

// Save stores doc under a fresh key and returns it.
func (s *WorkflowStore) Save(ctx context.Context, doc model.WorkflowDocument) (string, error) {
	key := Key(doc.Name(), s.now())
	if err := s.Put(ctx, key, doc); err != nil {
		return "", err
	}
	return key, nil
}

// Put stores doc under key, replacing any existing document.
func (s *WorkflowStore) Put(_ context.Context, key string, doc model.WorkflowDocument) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	if err := writeJSON(s.path(key), doc); err != nil {
		return fmt.Errorf("save workflow %s: %w", key, err)
	}
	return nil
}

// Load returns the workflow stored under key. The key may carry the .json extension.
func (s *WorkflowStore) Load(_ context.Context, key string) (model.WorkflowDocument, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc model.WorkflowDocument
	if err := readJSON(s.path(key), &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// List summarizes all stored workflows, newest first. Unreadable files are skipped.
func (s *WorkflowStore) List(ctx context.Context) ([]model.WorkflowSummary, error) {
	keys, err := listKeys(s.dir)
	if err != nil {
		return nil, err
	}
	out := make([]model.WorkflowSummary, 0, len(keys))
	for _, key := range keys {
		doc, err := s.Load(ctx, key)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				log.Warn().Err(err).Str("key", key).Msg("workflow store: skipping unreadable workflow")
			}
			continue
		}
		out = append(out, model.WorkflowSummary{
			Key:         key,
			Filename:    key + FileExt,
			Name:        doc.Name(),
			Description: doc.Description(),
			CreatedAt:   doc.CreatedAt(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

func (s *WorkflowStore) path(key string) string {
	return filepath.Join(s.dir, key+FileExt)
}
