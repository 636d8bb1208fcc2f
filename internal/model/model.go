// Package model defines the records shared by pipelines, stores, and transports.
package model

import "time"

// Role tags a conversation message.
type Role string

// Conversation roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of an ordered conversation.
type Message struct {
	Role     Role       `json:"role"`
	Content  string     `json:"content"`
	ToolCall *ToolCall  `json:"tool_call,omitempty"`
	Result   *ToolReply `json:"tool_result,omitempty"`
}

// ToolCall is a structured tool-call request returned by the model.
type ToolCall struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolReply carries a tool's text output back to the model.
type ToolReply struct {
	CallID string `json:"call_id,omitempty"`
	Name   string `json:"name"`
	Output string `json:"output"`
}

// WorkflowSummary is the listing view of a stored workflow.
type WorkflowSummary struct {
	Key         string `json:"id"`
	Filename    string `json:"filename"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

// AgentRecord is a named persona with its tool allowlist and workflows.
type AgentRecord struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	SystemPrompt string    `json:"system_prompt"`
	Tools        []string  `json:"tools"`
	Flows        []string  `json:"flows"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Active       bool      `json:"active"`
}

// AgentSpec holds the fields accepted when creating an agent.
type AgentSpec struct {
	Name         string   `json:"name"          validate:"required,max=100"`
	Description  string   `json:"description"   validate:"max=1000"`
	SystemPrompt string   `json:"system_prompt" validate:"required"`
	Tools        []string `json:"tools"         validate:"dive,required"`
	Flows        []string `json:"flows"         validate:"dive,required"`
}

// AgentPatch names the agent fields an update may change. Nil fields are left untouched.
type AgentPatch struct {
	Name         *string   `json:"name,omitempty"          validate:"omitempty,min=1,max=100"`
	Description  *string   `json:"description,omitempty"   validate:"omitempty,max=1000"`
	SystemPrompt *string   `json:"system_prompt,omitempty" validate:"omitempty,min=1"`
	Tools        *[]string `json:"tools,omitempty"         validate:"omitempty,dive,required"`
	Flows        *[]string `json:"flows,omitempty"         validate:"omitempty,dive,required"`
	Active       *bool     `json:"active,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p AgentPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.SystemPrompt == nil &&
		p.Tools == nil && p.Flows == nil && p.Active == nil
}

// Apply copies the set fields of p onto a.
func (a *AgentRecord) Apply(p AgentPatch) {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.SystemPrompt != nil {
		a.SystemPrompt = *p.SystemPrompt
	}
	if p.Tools != nil {
		a.Tools = append([]string(nil), (*p.Tools)...)
	}
	if p.Flows != nil {
		a.Flows = append([]string(nil), (*p.Flows)...)
	}
	if p.Active != nil {
		a.Active = *p.Active
	}
}

// ExtractionResult reports whether a chat turn carries a tool's full arguments.
type ExtractionResult struct {
	Satisfied     bool              `json:"satisfied"`
	Intent        bool              `json:"intent"`
	Parameters    map[string]string `json:"parameters,omitempty"`
	MissingFields []string          `json:"missing_fields,omitempty"`
}
