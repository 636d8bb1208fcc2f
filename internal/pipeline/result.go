package pipeline

import "github.com/metalagman/flowchat/internal/model"

// Result is the normalized outcome of any pipeline run.
type Result[T any] struct {
	Payload T
	Failure *Failure
}

// OK reports whether the run succeeded.
func (r Result[T]) OK() bool {
	return r.Failure == nil
}

// Success wraps a payload.
func Success[T any](payload T) Result[T] {
	return Result[T]{Payload: payload}
}

// Failed wraps a failure.
func Failed[T any](f *Failure) Result[T] {
	return Result[T]{Failure: f}
}

// GeneratedWorkflow is the payload of a successful config pipeline run.
type GeneratedWorkflow struct {
	Workflow   model.WorkflowDocument `json:"flow_config"`
	StorageKey string                 `json:"storage_key"`
	Filename   string                 `json:"filename"`
	Message    string                 `json:"message"`
}

// ChatReply is the payload of a chat pipeline run.
type ChatReply struct {
	Reply     string `json:"response"`
	UsedTool  bool   `json:"used_tool"`
	ToolName  string `json:"tool_name,omitempty"`
	AgentID   string `json:"agent_id,omitempty"`
	AgentName string `json:"agent_name,omitempty"`
	// Diagnostic keeps the failure behind a degraded reply or a tool validation error.
	Diagnostic *Failure `json:"-"`
}
