// Package gateway abstracts the hosted language-model call.
package gateway

import (
	"context"

	"github.com/metalagman/flowchat/internal/model"
	"github.com/metalagman/flowchat/internal/tools"
)

// Request is one model call.
type Request struct {
	Messages []model.Message
	// Tools is the catalog offered for function calling. Empty disables it.
	Tools []tools.Schema
}

// Response is the model's answer: text, tool-call requests, or both.
type Response struct {
	Text      string
	ToolCalls []model.ToolCall
}

// Gateway sends role-tagged messages to a language model.
type Gateway interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// Func adapts a function to Gateway.
type Func func(ctx context.Context, req Request) (Response, error)

// Generate implements Gateway.
func (f Func) Generate(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}
