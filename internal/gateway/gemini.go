package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/metalagman/flowchat/internal/model"
	"github.com/metalagman/flowchat/internal/tools"
	"google.golang.org/genai"
)

const defaultTimeout = 60 * time.Second

// ErrEmptyResponse is returned when the model answers with neither text nor tool calls.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Config configures the Gemini client pool.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type handleKey struct {
	model       string
	temperature float32
}

// Pool hands out Gemini gateways keyed by model name and temperature.
// Handles are created on first use and reused; they hold no per-request state.
type Pool struct {
	client  *genai.Client
	timeout time.Duration

	mu      sync.Mutex
	handles map[handleKey]*Gemini
}

// NewPool creates the shared genai client.
func NewPool(ctx context.Context, cfg Config, httpClient *http.Client) (*Pool, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required (set model.api_key or model.api_key_env)")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Pool{
		client:  client,
		timeout: timeout,
		handles: make(map[handleKey]*Gemini),
	}, nil
}

// Get returns the gateway for a model and temperature.
func (p *Pool) Get(modelName string, temperature float32) *Gemini {
	key := handleKey{model: modelName, temperature: temperature}

	p.mu.Lock()
	defer p.mu.Unlock()
	if g, ok := p.handles[key]; ok {
		return g
	}
	g := &Gemini{
		client:      p.client,
		model:       modelName,
		temperature: temperature,
		timeout:     p.timeout,
	}
	p.handles[key] = g
	return g
}

// Gemini calls the Gemini generateContent API with a fixed model and temperature.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
	timeout     time.Duration
}

// Generate implements Gateway.
func (g *Gemini) Generate(ctx context.Context, req Request) (Response, error) {
	contents, system := toContents(req.Messages)
	if len(contents) == 0 {
		return Response{}, fmt.Errorf("at least one non-system message is required")
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: toDeclarations(req.Tools)}}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return Response{}, fmt.Errorf("gemini generate content: %w", err)
	}

	out := Response{Text: strings.TrimSpace(resp.Text())}
	for _, call := range resp.FunctionCalls() {
		if call == nil {
			continue
		}
		out.ToolCalls = append(out.ToolCalls, model.ToolCall{
			ID:        call.ID,
			Name:      call.Name,
			Arguments: call.Args,
		})
	}
	if out.Text == "" && len(out.ToolCalls) == 0 {
		return Response{}, ErrEmptyResponse
	}
	return out, nil
}

// toContents maps the conversation onto Gemini contents. System messages are
// merged into a single system instruction; order of the rest is preserved.
func toContents(messages []model.Message) ([]*genai.Content, string) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			if msg.Content != "" {
				system = append(system, msg.Content)
			}
		case model.RoleAssistant:
			parts := make([]*genai.Part, 0, 2)
			if msg.Content != "" {
				parts = append(parts, genai.NewPartFromText(msg.Content))
			}
			if msg.ToolCall != nil {
				part := genai.NewPartFromFunctionCall(msg.ToolCall.Name, msg.ToolCall.Arguments)
				part.FunctionCall.ID = msg.ToolCall.ID
				parts = append(parts, part)
			}
			if len(parts) > 0 {
				contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
			}
		case model.RoleTool:
			if msg.Result == nil {
				continue
			}
			part := genai.NewPartFromFunctionResponse(msg.Result.Name, map[string]any{"output": msg.Result.Output})
			part.FunctionResponse.ID = msg.Result.CallID
			contents = append(contents, genai.NewContentFromParts([]*genai.Part{part}, genai.RoleUser))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	return contents, strings.Join(system, "\n\n")
}

func toDeclarations(schemas []tools.Schema) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(schemas))
	for _, s := range schemas {
		props := make(map[string]*genai.Schema, len(s.Params))
		for _, p := range s.Params {
			props[p.Name] = &genai.Schema{
				Type:        schemaType(p.Type),
				Description: p.Description,
			}
		}
		out = append(out, &genai.FunctionDeclaration{
			Name:        s.Name,
			Description: s.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   s.Required(),
			},
		})
	}
	return out
}

func schemaType(t string) genai.Type {
	switch t {
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}
