package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/metalagman/flowchat/internal/gateway"
	"github.com/metalagman/flowchat/internal/model"
	"github.com/metalagman/flowchat/internal/tools"
	"github.com/rs/zerolog/log"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/workflowagents/loopagent"
	adkrunner "google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"
)

// LoopState is a state of the tool-calling loop.
type LoopState string

// Tool loop states.
const (
	StateAwaitingModel LoopState = "AwaitingModel"
	StateAwaitingTool  LoopState = "AwaitingTool"
	StateDone          LoopState = "Done"
)

const (
	loopAppName = "flowchat"
	loopUserID  = "flowchat-chat"
)

// ErrToolLoopExhausted is returned when the model keeps requesting tools past the iteration bound.
var ErrToolLoopExhausted = errors.New("tool loop reached its iteration limit")

// ToolInvoker runs a named tool.
type ToolInvoker interface {
	Invoke(ctx context.Context, name string, args map[string]string) (string, error)
}

// ToolLoop runs the model/tool exchange as a bounded state machine.
// One iteration is a model call plus the execution of any tools it requested.
type ToolLoop struct {
	gateway       gateway.Gateway
	tools         ToolInvoker
	maxIterations int
}

// NewToolLoop creates a tool loop. maxIterations below 1 is treated as 1.
func NewToolLoop(gw gateway.Gateway, invoker ToolInvoker, maxIterations int) *ToolLoop {
	if maxIterations < 1 {
		maxIterations = 1
	}
	return &ToolLoop{gateway: gw, tools: invoker, maxIterations: maxIterations}
}

// LoopOutcome is the final state of a tool loop run.
type LoopOutcome struct {
	State        LoopState
	Reply        string
	Conversation []model.Message
	ToolsUsed    []string
	LastOutput   string
	Iterations   int
}

type loopRun struct {
	loop      *ToolLoop
	catalog   []tools.Schema
	allowed   map[string]struct{}
	state     LoopState
	conv      []model.Message
	pending   []model.ToolCall
	reply     string
	used      []string
	lastOut   string
	iteration int
}

// Run drives conv through the loop until the model answers without a tool call.
func (l *ToolLoop) Run(ctx context.Context, conv []model.Message, catalog []tools.Schema) (LoopOutcome, error) {
	run := &loopRun{
		loop:    l,
		catalog: catalog,
		allowed: make(map[string]struct{}, len(catalog)),
		state:   StateAwaitingModel,
		conv:    append([]model.Message(nil), conv...),
	}
	for _, s := range catalog {
		run.allowed[s.Name] = struct{}{}
	}

	step, err := agent.New(agent.Config{
		Name:        "ToolLoopIteration",
		Description: "Calls the model once and runs the tools it requested.",
		Run:         run.iterate,
	})
	if err != nil {
		return run.outcome(), fmt.Errorf("create tool loop iteration agent: %w", err)
	}
	loop, err := loopagent.New(loopagent.Config{
		MaxIterations: uint(l.maxIterations),
		AgentConfig: agent.Config{
			Name:        "ToolLoop",
			Description: "Alternates model calls and tool calls until the model answers.",
			SubAgents:   []agent.Agent{step},
		},
	})
	if err != nil {
		return run.outcome(), fmt.Errorf("create tool loop agent: %w", err)
	}

	if err := runLoopAgent(ctx, loop, lastUserText(conv)); err != nil {
		return run.outcome(), err
	}
	if run.state != StateDone {
		return run.outcome(), fmt.Errorf("%w (%d)", ErrToolLoopExhausted, l.maxIterations)
	}
	return run.outcome(), nil
}

func (r *loopRun) iterate(ctx agent.InvocationContext) iter.Seq2[*session.Event, error] {
	return func(yield func(*session.Event, error) bool) {
		if ctx.Ended() || r.state == StateDone {
			return
		}

		r.iteration++
		if err := r.advance(ctx); err != nil {
			yield(nil, err)
			return
		}
		if r.state == StateAwaitingTool {
			if err := r.advance(ctx); err != nil {
				yield(nil, err)
				return
			}
		}

		if err := ctx.Session().State().Set("loop_state", string(r.state)); err != nil {
			yield(nil, fmt.Errorf("set loop_state in session: %w", err))
			return
		}
		log.Debug().Int("iteration", r.iteration).Str("state", string(r.state)).Msg("tool loop: iteration finished")

		if r.state == StateDone {
			ev := session.NewEvent(ctx.InvocationID())
			ev.Author = "ToolLoopIteration"
			ev.Actions.Escalate = true
			ctx.EndInvocation()
			yield(ev, nil)
		}
	}
}

// advance performs exactly one state transition.
func (r *loopRun) advance(ctx context.Context) error {
	switch r.state {
	case StateAwaitingModel:
		resp, err := r.loop.gateway.Generate(ctx, gateway.Request{Messages: r.conv, Tools: r.catalog})
		if err != nil {
			return err
		}
		if len(resp.ToolCalls) == 0 {
			r.reply = resp.Text
			r.conv = append(r.conv, model.Message{Role: model.RoleAssistant, Content: resp.Text})
			r.state = StateDone
			return nil
		}
		for i := range resp.ToolCalls {
			msg := model.Message{Role: model.RoleAssistant, ToolCall: &resp.ToolCalls[i]}
			if i == 0 {
				msg.Content = resp.Text
			}
			r.conv = append(r.conv, msg)
		}
		r.pending = resp.ToolCalls
		r.state = StateAwaitingTool
	case StateAwaitingTool:
		for _, call := range r.pending {
			out, err := r.invoke(ctx, call)
			if err != nil {
				return err
			}
			r.conv = append(r.conv, model.Message{
				Role:    model.RoleTool,
				Content: out,
				Result:  &model.ToolReply{CallID: call.ID, Name: call.Name, Output: out},
			})
			r.used = append(r.used, call.Name)
			r.lastOut = out
		}
		r.pending = nil
		r.state = StateAwaitingModel
	case StateDone:
	}
	return nil
}

func (r *loopRun) invoke(ctx context.Context, call model.ToolCall) (string, error) {
	if _, ok := r.allowed[call.Name]; !ok {
		return fmt.Sprintf("Error: tool %s is not available", call.Name), nil
	}
	out, err := r.loop.tools.Invoke(ctx, call.Name, tools.StringArgs(call.Arguments))
	if errors.Is(err, tools.ErrUnknownTool) {
		return fmt.Sprintf("Error: tool %s is not available", call.Name), nil
	}
	return out, err
}

func (r *loopRun) outcome() LoopOutcome {
	return LoopOutcome{
		State:        r.state,
		Reply:        r.reply,
		Conversation: r.conv,
		ToolsUsed:    r.used,
		LastOutput:   r.lastOut,
		Iterations:   r.iteration,
	}
}

func runLoopAgent(ctx context.Context, root agent.Agent, userText string) error {
	sessions := session.InMemoryService()
	r, err := adkrunner.New(adkrunner.Config{
		AppName:        loopAppName,
		Agent:          root,
		SessionService: sessions,
	})
	if err != nil {
		return fmt.Errorf("create ADK runner: %w", err)
	}
	created, err := sessions.Create(ctx, &session.CreateRequest{
		AppName: loopAppName,
		UserID:  loopUserID,
		State:   map[string]any{"loop_state": string(StateAwaitingModel)},
	})
	if err != nil {
		return fmt.Errorf("create ADK session: %w", err)
	}

	input := genai.NewContentFromText(userText, genai.RoleUser)
	for _, runErr := range r.Run(ctx, loopUserID, created.Session.ID(), input, agent.RunConfig{}) {
		if runErr != nil {
			return runErr
		}
	}
	return nil
}

func lastUserText(conv []model.Message) string {
	for i := len(conv) - 1; i >= 0; i-- {
		if conv[i].Role == model.RoleUser {
			return conv[i].Content
		}
	}
	return ""
}
