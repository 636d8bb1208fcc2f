package web

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/metalagman/flowchat/internal/pipeline"
	"github.com/metalagman/flowchat/internal/tools"
)

type invokeToolRequest struct {
	Parameters map[string]any `json:"parameters"`
}

func (s *Server) handleListTools(c echo.Context) error {
	return respond(c, http.StatusOK, map[string]any{"tools": s.deps.Tools.List()})
}

func (s *Server) handleInvokeTool(c echo.Context) error {
	name := c.Param("name")
	var req invokeToolRequest
	if err := c.Bind(&req); err != nil {
		return respondFailure(c, bindFailure(err))
	}

	out, err := s.deps.Tools.Invoke(c.Request().Context(), name, tools.StringArgs(req.Parameters))
	switch {
	case errors.Is(err, tools.ErrUnknownTool):
		return respondFailure(c, pipeline.Fail(pipeline.KindNotFound, "tool not found: "+name, err))
	case err != nil:
		return respondFailure(c, pipeline.Fail(pipeline.KindInternal, "tool invocation failed", err))
	case tools.IsToolError(out):
		return respondFailure(c, pipeline.Fail(pipeline.KindToolValidation, out, nil))
	}
	return respond(c, http.StatusOK, map[string]any{"tool": name, "result": out})
}
