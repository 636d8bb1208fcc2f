package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/metalagman/flowchat/internal/model"
	"github.com/metalagman/flowchat/internal/runlog"
	"github.com/metalagman/flowchat/internal/store"
	"github.com/rs/zerolog/log"
)

// Pipeline names used in the run log.
const (
	PipelineConfig    = "config"
	PipelineChat      = "chat"
	PipelineAgentChat = "agent_chat"
)

// AgentSource resolves agent ids. A missing agent is reported as store.ErrNotFound.
type AgentSource interface {
	Get(ctx context.Context, id string) (model.AgentRecord, error)
}

// PersonaSource supplies the system prompt for chat turns that carry none.
type PersonaSource interface {
	SystemInstructions(ctx context.Context) (string, error)
}

// Recorder stores one entry per pipeline run.
type Recorder interface {
	Record(ctx context.Context, entry runlog.Entry) error
}

// Orchestrator is the single entry point for both pipelines.
type Orchestrator struct {
	config       *ConfigPipeline
	chat         *ChatPipeline
	agents       AgentSource
	persona      PersonaSource
	recorder     Recorder
	defaultTools []string
	now          func() time.Time
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithAgents enables agent chat.
func WithAgents(agents AgentSource) OrchestratorOption {
	return func(o *Orchestrator) { o.agents = agents }
}

// WithPersonaSource sets the fallback persona source for agent-less chat.
func WithPersonaSource(src PersonaSource) OrchestratorOption {
	return func(o *Orchestrator) { o.persona = src }
}

// WithRecorder records every run.
func WithRecorder(r Recorder) OrchestratorOption {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithDefaultTools sets the allowlist used by agent-less chat when the caller passes none.
func WithDefaultTools(names []string) OrchestratorOption {
	return func(o *Orchestrator) { o.defaultTools = append([]string(nil), names...) }
}

// NewOrchestrator creates an orchestrator over the two pipelines.
func NewOrchestrator(cfg *ConfigPipeline, chat *ChatPipeline, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{config: cfg, chat: chat, now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunConfigPipeline generates and persists a workflow from text.
func (o *Orchestrator) RunConfigPipeline(ctx context.Context, text string) Result[GeneratedWorkflow] {
	started := o.now()
	res := o.config.Generate(ctx, text)

	entry := runlog.Entry{Pipeline: PipelineConfig, StartedAt: started}
	if res.OK() {
		entry.Message = res.Payload.StorageKey
	}
	o.record(ctx, entry, res.Failure, nil)
	return res
}

// RunChatPipeline runs an agent-less chat turn. A nil tools slice selects the default allowlist.
func (o *Orchestrator) RunChatPipeline(ctx context.Context, message, persona string, tools []string) Result[ChatReply] {
	started := o.now()
	if tools == nil {
		tools = o.defaultTools
	}
	if strings.TrimSpace(persona) == "" {
		persona = o.fallbackPersona(ctx)
	}

	res := o.chat.Converse(ctx, ChatRequest{Message: message, Persona: persona, Tools: tools})
	o.recordChat(ctx, runlog.Entry{Pipeline: PipelineChat, StartedAt: started}, res)
	return res
}

// RunAgentChat resolves an agent and runs a chat turn with its persona and tools.
func (o *Orchestrator) RunAgentChat(ctx context.Context, agentID, message string) Result[ChatReply] {
	started := o.now()
	entry := runlog.Entry{Pipeline: PipelineAgentChat, AgentID: agentID, StartedAt: started}

	agent, f := o.resolveAgent(ctx, agentID)
	if f != nil {
		o.record(ctx, entry, f, nil)
		return Failed[ChatReply](f)
	}

	res := o.chat.Converse(ctx, ChatRequest{Message: message, Persona: agent.SystemPrompt, Tools: agent.Tools})
	if res.OK() {
		res.Payload.AgentID = agent.ID
		res.Payload.AgentName = agent.Name
	}
	o.recordChat(ctx, entry, res)
	return res
}

func (o *Orchestrator) resolveAgent(ctx context.Context, agentID string) (model.AgentRecord, *Failure) {
	if o.agents == nil {
		return model.AgentRecord{}, Fail(KindNotFound, "agents are not configured", nil)
	}
	if strings.TrimSpace(agentID) == "" {
		return model.AgentRecord{}, Fail(KindInvalidInput, "agent id is required", nil)
	}
	agent, err := o.agents.Get(ctx, agentID)
	if errors.Is(err, store.ErrNotFound) {
		return model.AgentRecord{}, Fail(KindNotFound, "agent not found: "+agentID, err)
	}
	if err != nil {
		return model.AgentRecord{}, Fail(KindInternal, "load agent", err)
	}
	if !agent.Active {
		return model.AgentRecord{}, Fail(KindNotFound, "agent is not available: "+agentID, nil)
	}
	return agent, nil
}

func (o *Orchestrator) fallbackPersona(ctx context.Context) string {
	if o.persona == nil {
		return ""
	}
	text, err := o.persona.SystemInstructions(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Warn().Err(err).Msg("orchestrator: load fallback persona")
		}
		return ""
	}
	return text
}

func (o *Orchestrator) recordChat(ctx context.Context, entry runlog.Entry, res Result[ChatReply]) {
	entry.UsedTool = res.Payload.UsedTool
	o.record(ctx, entry, res.Failure, res.Payload.Diagnostic)
}

func (o *Orchestrator) record(ctx context.Context, entry runlog.Entry, failure, diagnostic *Failure) {
	entry.Duration = o.now().Sub(entry.StartedAt)
	switch {
	case failure != nil:
		entry.Outcome = runlog.OutcomeFailure
		entry.ErrorKind = string(failure.Kind)
		entry.Message = failure.Message
	case diagnostic != nil && diagnostic.Kind != KindToolValidation:
		entry.Outcome = runlog.OutcomeDegraded
		entry.ErrorKind = string(diagnostic.Kind)
		entry.Message = diagnostic.Error()
	case diagnostic != nil:
		entry.Outcome = runlog.OutcomeSuccess
		entry.ErrorKind = string(diagnostic.Kind)
		entry.Message = diagnostic.Message
	default:
		entry.Outcome = runlog.OutcomeSuccess
	}

	if o.recorder == nil {
		return
	}
	if err := o.recorder.Record(ctx, entry); err != nil {
		log.Warn().Err(err).Str("pipeline", entry.Pipeline).Msg("orchestrator: record run")
	}
}
