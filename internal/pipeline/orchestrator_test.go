package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/metalagman/flowchat/internal/intent"
	"github.com/metalagman/flowchat/internal/model"
	"github.com/metalagman/flowchat/internal/runlog"
	"github.com/metalagman/flowchat/internal/store"
	"github.com/metalagman/flowchat/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRecorder struct {
	mu      sync.Mutex
	entries []runlog.Entry
}

func (r *memoryRecorder) Record(_ context.Context, e runlog.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *memoryRecorder) last(t *testing.T) runlog.Entry {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.entries)
	return r.entries[len(r.entries)-1]
}

type agentMap map[string]model.AgentRecord

func (m agentMap) Get(_ context.Context, id string) (model.AgentRecord, error) {
	rec, ok := m[id]
	if !ok {
		return model.AgentRecord{}, fmt.Errorf("agent %s: %w", id, store.ErrNotFound)
	}
	return rec, nil
}

type fixedPersona struct {
	text string
	err  error
}

func (p fixedPersona) SystemInstructions(context.Context) (string, error) { return p.text, p.err }

func newOrchestrator(gw *recordingGateway, opts ...OrchestratorOption) (*Orchestrator, *memoryRecorder) {
	rec := &memoryRecorder{}
	chat := NewChatPipeline(gw, tools.NewDefaultRegistry(), intent.NewExtractor())
	cfg := NewConfigPipeline(gw, &memorySaver{})
	opts = append([]OrchestratorOption{WithRecorder(rec)}, opts...)
	return NewOrchestrator(cfg, chat, opts...), rec
}

func TestOrchestrator_ChatUsesDefaultTools(t *testing.T) {
	t.Parallel()

	gw := &recordingGateway{reply: "ok"}
	o, rec := newOrchestrator(gw, WithDefaultTools([]string{tools.BankAccountName}))

	res := o.RunChatPipeline(context.Background(), "John Smith 123456789", "", nil)
	require.True(t, res.OK())
	assert.True(t, res.Payload.UsedTool)

	e := rec.last(t)
	assert.Equal(t, PipelineChat, e.Pipeline)
	assert.Equal(t, runlog.OutcomeSuccess, e.Outcome)
	assert.True(t, e.UsedTool)
}

func TestOrchestrator_ChatEmptyAllowlistDisablesTools(t *testing.T) {
	t.Parallel()

	gw := &recordingGateway{reply: "ok"}
	o, _ := newOrchestrator(gw, WithDefaultTools([]string{tools.BankAccountName}))

	res := o.RunChatPipeline(context.Background(), "John Smith 123456789", "", []string{})
	require.True(t, res.OK())
	assert.False(t, res.Payload.UsedTool)
	assert.Equal(t, "ok", res.Payload.Reply)
}

func TestOrchestrator_ChatPersonaFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		source  PersonaSource
		persona string
		want    string
	}{
		{name: "explicit persona wins", source: fixedPersona{text: "saved"}, persona: "explicit", want: "explicit"},
		{name: "saved instructions", source: fixedPersona{text: "saved"}, want: "saved"},
		{name: "nothing saved", source: fixedPersona{err: store.ErrNotFound}, want: DefaultPersona},
		{name: "broken source", source: fixedPersona{err: errors.New("disk")}, want: DefaultPersona},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gw := &recordingGateway{reply: "ok"}
			o, _ := newOrchestrator(gw, WithPersonaSource(tt.source))
			res := o.RunChatPipeline(context.Background(), "hello", tt.persona, nil)
			require.True(t, res.OK())
			require.Len(t, gw.reqs, 1)
			assert.Equal(t, tt.want, gw.reqs[0].Messages[0].Content)
		})
	}
}

func TestOrchestrator_ChatDegradedIsRecorded(t *testing.T) {
	t.Parallel()

	o, rec := newOrchestrator(&recordingGateway{err: errors.New("timeout")})
	res := o.RunChatPipeline(context.Background(), "hello", "", nil)
	require.True(t, res.OK())
	assert.Equal(t, ApologyReply, res.Payload.Reply)

	e := rec.last(t)
	assert.Equal(t, runlog.OutcomeDegraded, e.Outcome)
	assert.Equal(t, string(KindUpstream), e.ErrorKind)
}

func TestOrchestrator_AgentChat(t *testing.T) {
	t.Parallel()

	agents := agentMap{
		"teller":  {ID: "teller", Name: "Teller", SystemPrompt: "You are a teller.", Tools: []string{tools.BankAccountName}, Active: true},
		"retired": {ID: "retired", Name: "Retired", SystemPrompt: "x", Active: false},
	}
	gw := &recordingGateway{reply: "ok"}
	o, rec := newOrchestrator(gw, WithAgents(agents))

	res := o.RunAgentChat(context.Background(), "teller", "John Smith 123456789")
	require.True(t, res.OK())
	assert.True(t, res.Payload.UsedTool)
	assert.Equal(t, "teller", res.Payload.AgentID)
	assert.Equal(t, "Teller", res.Payload.AgentName)
	assert.Equal(t, "You are a teller.", gw.reqs[0].Messages[0].Content)
	assert.Equal(t, "teller", rec.last(t).AgentID)

	tests := []struct {
		id   string
		want Kind
	}{
		{id: "ghost", want: KindNotFound},
		{id: "retired", want: KindNotFound},
		{id: "  ", want: KindInvalidInput},
	}
	for _, tt := range tests {
		res := o.RunAgentChat(context.Background(), tt.id, "hello")
		require.False(t, res.OK(), tt.id)
		assert.Equal(t, tt.want, res.Failure.Kind, tt.id)
		assert.Equal(t, runlog.OutcomeFailure, rec.last(t).Outcome)
	}
}

func TestOrchestrator_AgentChatWithoutAgents(t *testing.T) {
	t.Parallel()

	o, _ := newOrchestrator(&recordingGateway{reply: "ok"})
	res := o.RunAgentChat(context.Background(), "teller", "hello")
	require.False(t, res.OK())
	assert.Equal(t, KindNotFound, res.Failure.Kind)
}

func TestOrchestrator_ConfigPipelineRecorded(t *testing.T) {
	t.Parallel()

	o, rec := newOrchestrator(&recordingGateway{reply: "not json"})
	res := o.RunConfigPipeline(context.Background(), "make a flow")
	require.False(t, res.OK())
	assert.Equal(t, KindMalformedOutput, res.Failure.Kind)

	e := rec.last(t)
	assert.Equal(t, PipelineConfig, e.Pipeline)
	assert.Equal(t, runlog.OutcomeFailure, e.Outcome)
	assert.Equal(t, string(KindMalformedOutput), e.ErrorKind)
}
