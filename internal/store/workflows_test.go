package store

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/metalagman/flowchat/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlug(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Customer Greeting":      "customer_greeting",
		"  Bank/Account: Open! ": "bankaccount_open",
		"../etc":                 "etc",
		"already_slugged-name":   "already_slugged-name",
		"":                       "workflow",
	}
	for in, want := range tests {
		if got := Slug(in); got != want {
			t.Fatalf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestKey_HasFourteenDigitSuffix(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 9, 7, 5, 1, 0, time.UTC)
	got := Key("Greeter", at)
	assert.Equal(t, "greeter_20240309070501", got)
	assert.Regexp(t, regexp.MustCompile(`_\d{14}$`), got)
}

func TestWorkflowStore_SaveLoadList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	clock := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewWorkflowStore(dir, WithWorkflowClock(func() time.Time { return clock }))

	first := model.WorkflowDocument{"workflow_name": "Greet Customers", "description": "first", "created_at": "2024-01-02T03:04:05Z"}
	key, err := s.Save(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "greet_customers_20240102030405", key)
	assert.FileExists(t, filepath.Join(dir, key+".json"))

	clock = clock.Add(time.Hour)
	second := model.WorkflowDocument{"workflow_name": "Log Ticket", "description": "second", "created_at": "2024-01-02T04:04:05Z"}
	_, err = s.Save(ctx, second)
	require.NoError(t, err)

	loaded, err := s.Load(ctx, key+".json")
	require.NoError(t, err)
	assert.Equal(t, first, loaded)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Log Ticket", list[0].Name)
	assert.Equal(t, key, list[1].Key)
	assert.Equal(t, key+".json", list[1].Filename)
}

func TestWorkflowStore_KeepsUnknownFieldsAndNumbers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	s := NewWorkflowStore(dir)

	raw := `{"workflow_name":"Counter","description":"d","version":3,"metadata":{"team":"ops"},
		"steps":[{"step_id":1,"next_step":null}],"system_instructions":"s"}`
	doc, err := model.ParseWorkflowDocument([]byte(raw))
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "counter_20240101000000", doc))

	data, err := os.ReadFile(filepath.Join(dir, "counter_20240101000000.json"))
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(data))

	loaded, err := s.Load(ctx, "counter_20240101000000")
	require.NoError(t, err)
	assert.Equal(t, doc, loaded)
}

func TestWorkflowStore_LoadMissing(t *testing.T) {
	t.Parallel()

	s := NewWorkflowStore(t.TempDir())
	for _, key := range []string{"nope", "../escape", ""} {
		_, err := s.Load(context.Background(), key)
		require.ErrorIs(t, err, ErrNotFound, "key %q", key)
	}
}

func TestWorkflowStore_ListSkipsJunk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	list, err := NewWorkflowStore(dir).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestWorkflowStore_ListMissingDir(t *testing.T) {
	t.Parallel()

	list, err := NewWorkflowStore(filepath.Join(t.TempDir(), "absent")).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}
