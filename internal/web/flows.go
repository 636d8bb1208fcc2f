package web

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type generateFlowRequest struct {
	Input string `json:"input"`
}

type saveFlowRequest struct {
	FlowConfig map[string]any `json:"flow_config"`
}

func (s *Server) handleGenerateFlow(c echo.Context) error {
	var req generateFlowRequest
	if err := c.Bind(&req); err != nil {
		return respondFailure(c, bindFailure(err))
	}

	res := s.deps.Orchestrator.RunConfigPipeline(c.Request().Context(), req.Input)
	if !res.OK() {
		return respondFailure(c, res.Failure)
	}
	return respond(c, http.StatusOK, map[string]any{
		"flow_config": res.Payload.Workflow,
		"storage_key": res.Payload.StorageKey,
		"filename":    res.Payload.Filename,
		"message":     res.Payload.Message,
	})
}

func (s *Server) handleSaveFlow(c echo.Context) error {
	var req saveFlowRequest
	if err := c.Bind(&req); err != nil {
		return respondFailure(c, bindFailure(err))
	}

	rec, err := s.deps.Legacy.Save(c.Request().Context(), req.FlowConfig)
	if err != nil {
		return respondFailure(c, storeFailure("save flow configuration", err))
	}
	return respond(c, http.StatusOK, map[string]any{
		"message":    "Flow configuration saved successfully",
		"created_at": rec.CreatedAt,
	})
}

func (s *Server) handleLoadFlow(c echo.Context) error {
	rec, err := s.deps.Legacy.Load(c.Request().Context())
	if err != nil {
		return respondFailure(c, storeFailure("no flow configuration found", err))
	}
	return respond(c, http.StatusOK, map[string]any{
		"flow_config": rec.FlowConfig,
		"created_at":  rec.CreatedAt,
		"version":     rec.Version,
	})
}

func (s *Server) handleListFlows(c echo.Context) error {
	flows, err := s.deps.Workflows.List(c.Request().Context())
	if err != nil {
		return respondFailure(c, storeFailure("list flows", err))
	}
	return respond(c, http.StatusOK, map[string]any{"flows": flows})
}

func (s *Server) handleLoadFlowByKey(c echo.Context) error {
	key := c.Param("key")
	doc, err := s.deps.Workflows.Load(c.Request().Context(), key)
	if err != nil {
		return respondFailure(c, storeFailure("flow not found: "+key, err))
	}
	return respond(c, http.StatusOK, map[string]any{
		"flow_config": doc,
		"storage_key": key,
	})
}

func (s *Server) handleGetFlow(c echo.Context) error {
	id := c.Param("id")
	doc, err := s.deps.Workflows.Load(c.Request().Context(), id)
	if err != nil {
		return respondFailure(c, storeFailure("flow not found: "+id, err))
	}
	return respond(c, http.StatusOK, map[string]any{"flow": doc})
}
