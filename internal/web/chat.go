package web

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/metalagman/flowchat/internal/pipeline"
)

type chatRequest struct {
	Message      string `json:"message"`
	SystemPrompt string `json:"system_prompt"`
	// Tools is the allowlist. Absent selects the configured default; [] disables tools.
	Tools []string `json:"tools"`
}

type agentChatRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return respondFailure(c, bindFailure(err))
	}
	res := s.deps.Orchestrator.RunChatPipeline(c.Request().Context(), req.Message, req.SystemPrompt, req.Tools)
	return respondChat(c, res)
}

func (s *Server) handleAgentChat(c echo.Context) error {
	var req agentChatRequest
	if err := c.Bind(&req); err != nil {
		return respondFailure(c, bindFailure(err))
	}
	res := s.deps.Orchestrator.RunAgentChat(c.Request().Context(), c.Param("id"), req.Message)
	return respondChat(c, res)
}

func respondChat(c echo.Context, res pipeline.Result[pipeline.ChatReply]) error {
	if !res.OK() {
		return respondFailure(c, res.Failure)
	}
	reply := res.Payload
	fields := map[string]any{
		"response":  reply.Reply,
		"used_tool": reply.UsedTool,
	}
	if reply.ToolName != "" {
		fields["tool_name"] = reply.ToolName
	}
	if reply.AgentID != "" {
		fields["agent_id"] = reply.AgentID
		fields["agent_name"] = reply.AgentName
	}
	return respond(c, http.StatusOK, fields)
}
