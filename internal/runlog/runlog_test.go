package runlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/metalagman/flowchat/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RecordAndRecent(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	s := NewStore(conn)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Record(ctx, Entry{Pipeline: "config", Outcome: OutcomeFailure, ErrorKind: "SchemaViolation", StartedAt: base, Duration: 1500 * time.Millisecond}))
	require.NoError(t, s.Record(ctx, Entry{Pipeline: "agent_chat", AgentID: "banking_assistant", Outcome: OutcomeSuccess, UsedTool: true, StartedAt: base.Add(time.Minute)}))
	require.NoError(t, s.Record(ctx, Entry{Pipeline: "chat", Outcome: OutcomeDegraded, StartedAt: base.Add(2 * time.Minute)}))

	got, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "chat", got[0].Pipeline)
	assert.Equal(t, "agent_chat", got[1].Pipeline)
	assert.True(t, got[1].UsedTool)
	assert.NotEmpty(t, got[1].ID)
	assert.True(t, got[1].StartedAt.Equal(base.Add(time.Minute)))

	all, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 1500*time.Millisecond, all[2].Duration)
	assert.Equal(t, "SchemaViolation", all[2].ErrorKind)
}
