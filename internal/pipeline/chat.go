package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/metalagman/flowchat/internal/gateway"
	"github.com/metalagman/flowchat/internal/intent"
	"github.com/metalagman/flowchat/internal/model"
	"github.com/metalagman/flowchat/internal/tools"
	"github.com/rs/zerolog/log"
)

// ChatRequest is one chat turn.
type ChatRequest struct {
	Message string
	// Persona is the system prompt. Empty selects DefaultPersona.
	Persona string
	// Tools is the allowlist, evaluated in order.
	Tools []string
}

// ChatPipeline turns a chat turn into a final reply, invoking a tool when the turn warrants it.
type ChatPipeline struct {
	gateway   gateway.Gateway
	registry  *tools.Registry
	extractor *intent.Extractor
	loop      *ToolLoop
}

// ChatOption customizes a ChatPipeline.
type ChatOption func(*ChatPipeline)

// WithFunctionCalling lets the model request tools itself, bounded by maxIterations.
func WithFunctionCalling(maxIterations int) ChatOption {
	return func(p *ChatPipeline) {
		p.loop = NewToolLoop(p.gateway, p.registry, maxIterations)
	}
}

// NewChatPipeline creates a chat pipeline.
func NewChatPipeline(gw gateway.Gateway, registry *tools.Registry, extractor *intent.Extractor, opts ...ChatOption) *ChatPipeline {
	p := &ChatPipeline{gateway: gw, registry: registry, extractor: extractor}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type preparedTurn struct {
	message string
	persona string
	tools   []string
}

type modelTurn struct {
	preparedTurn
	reply string
}

// Converse runs one chat turn. Only empty input fails; every other error degrades
// to ApologyReply with the failure kept in ChatReply.Diagnostic.
func (p *ChatPipeline) Converse(ctx context.Context, req ChatRequest) Result[ChatReply] {
	turn, f := prepareTurn(req)
	if f != nil {
		return Failed[ChatReply](f)
	}

	if p.loop != nil {
		if catalog := p.registry.Catalog(turn.tools); len(catalog) > 0 {
			return p.converseWithTools(ctx, turn, catalog)
		}
	}

	mt, f := p.callModel(ctx, turn)
	if f != nil {
		return degrade(f)
	}

	reply, f := p.dispatch(ctx, mt)
	if f != nil {
		return degrade(f)
	}
	return Success(reply)
}

func prepareTurn(req ChatRequest) (preparedTurn, *Failure) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return preparedTurn{}, Fail(KindInvalidInput, "message is required", nil)
	}
	persona := strings.TrimSpace(req.Persona)
	if persona == "" {
		persona = DefaultPersona
	}
	return preparedTurn{message: message, persona: persona, tools: req.Tools}, nil
}

func (p *ChatPipeline) callModel(ctx context.Context, turn preparedTurn) (modelTurn, *Failure) {
	resp, err := p.gateway.Generate(ctx, gateway.Request{Messages: conversation(turn)})
	if err != nil {
		return modelTurn{}, Fail(KindUpstream, "model call failed", err)
	}
	return modelTurn{preparedTurn: turn, reply: resp.Text}, nil
}

// dispatch invokes the first allowed tool whose rule is satisfied. The tool's
// output replaces the model reply verbatim.
func (p *ChatPipeline) dispatch(ctx context.Context, mt modelTurn) (ChatReply, *Failure) {
	for _, name := range mt.tools {
		res := p.extractor.ShouldInvoke(name, intent.Turn{
			Message: mt.message,
			Reply:   mt.reply,
			Persona: mt.persona,
		})
		log.Debug().
			Str("tool", name).
			Bool("intent", res.Intent).
			Bool("satisfied", res.Satisfied).
			Strs("missing", res.MissingFields).
			Msg("chat pipeline: tool decision")
		if !res.Satisfied {
			continue
		}

		out, err := p.registry.Invoke(ctx, name, p.extractor.Arguments(name, res))
		if err != nil {
			kind := KindUpstream
			if errors.Is(err, tools.ErrUnknownTool) {
				kind = KindNotFound
			}
			return ChatReply{}, Fail(kind, "tool invocation failed", err)
		}
		reply := ChatReply{Reply: out, UsedTool: true, ToolName: name}
		if tools.IsToolError(out) {
			reply.Diagnostic = Fail(KindToolValidation, out, nil)
		}
		return reply, nil
	}
	return ChatReply{Reply: mt.reply}, nil
}

func (p *ChatPipeline) converseWithTools(ctx context.Context, turn preparedTurn, catalog []tools.Schema) Result[ChatReply] {
	outcome, err := p.loop.Run(ctx, conversation(turn), catalog)
	if err != nil {
		return degrade(Fail(KindUpstream, "tool loop failed", err))
	}
	reply := ChatReply{Reply: outcome.Reply, UsedTool: len(outcome.ToolsUsed) > 0}
	if reply.UsedTool {
		reply.ToolName = outcome.ToolsUsed[len(outcome.ToolsUsed)-1]
		if tools.IsToolError(outcome.LastOutput) {
			reply.Diagnostic = Fail(KindToolValidation, outcome.LastOutput, nil)
		}
	}
	return Success(reply)
}

func conversation(turn preparedTurn) []model.Message {
	return []model.Message{
		{Role: model.RoleSystem, Content: turn.persona},
		{Role: model.RoleUser, Content: turn.message},
	}
}

func degrade(f *Failure) Result[ChatReply] {
	log.Warn().Err(f.Err).Str("error_kind", string(f.Kind)).Msg("chat pipeline: degraded to apology")
	return Success(ChatReply{Reply: ApologyReply, Diagnostic: f})
}
