package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/metalagman/flowchat/internal/model"
	"github.com/metalagman/flowchat/internal/pipeline"
	"github.com/metalagman/flowchat/internal/store"
	"github.com/rs/zerolog/log"
)

type agentFlow struct {
	ID       string                 `json:"id"`
	Workflow model.WorkflowDocument `json:"flow_config"`
}

func agentNotFound(id string) *pipeline.Failure {
	return pipeline.Fail(pipeline.KindNotFound, "agent not found: "+id, store.ErrNotFound)
}

func (s *Server) handleListAgents(c echo.Context) error {
	agents, err := s.deps.Agents.List(c.Request().Context())
	if err != nil {
		return respondFailure(c, storeFailure("list agents", err))
	}
	return respond(c, http.StatusOK, map[string]any{"agents": agents})
}

func (s *Server) handleCreateAgent(c echo.Context) error {
	var spec model.AgentSpec
	if err := c.Bind(&spec); err != nil {
		return respondFailure(c, bindFailure(err))
	}
	rec, err := s.deps.Agents.Create(c.Request().Context(), spec)
	if err != nil {
		return respondFailure(c, storeFailure("create agent", err))
	}
	log.Info().Str("agent_id", rec.ID).Msg("agent created")
	return respond(c, http.StatusCreated, map[string]any{
		"agent":   rec,
		"message": "Agent created successfully",
	})
}

func (s *Server) handleGetAgent(c echo.Context) error {
	id := c.Param("id")
	rec, err := s.deps.Agents.Get(c.Request().Context(), id)
	if err != nil {
		return respondFailure(c, storeFailure("agent not found: "+id, err))
	}
	return respond(c, http.StatusOK, map[string]any{"agent": rec})
}

func (s *Server) handleUpdateAgent(c echo.Context) error {
	id := c.Param("id")
	var patch model.AgentPatch
	if err := c.Bind(&patch); err != nil {
		return respondFailure(c, bindFailure(err))
	}
	if patch.Empty() {
		return respondFailure(c, pipeline.Fail(pipeline.KindInvalidInput, "no fields to update", nil))
	}

	ctx := c.Request().Context()
	found, err := s.deps.Agents.Update(ctx, id, patch)
	if err != nil {
		return respondFailure(c, storeFailure("update agent", err))
	}
	if !found {
		return respondFailure(c, agentNotFound(id))
	}
	rec, err := s.deps.Agents.Get(ctx, id)
	if err != nil {
		return respondFailure(c, storeFailure("load agent", err))
	}
	return respond(c, http.StatusOK, map[string]any{
		"agent":   rec,
		"message": "Agent updated successfully",
	})
}

func (s *Server) handleDeleteAgent(c echo.Context) error {
	id := c.Param("id")
	found, err := s.deps.Agents.Delete(c.Request().Context(), id)
	if err != nil {
		return respondFailure(c, storeFailure("delete agent", err))
	}
	if !found {
		return respondFailure(c, agentNotFound(id))
	}
	return respond(c, http.StatusOK, map[string]any{"message": "Agent deleted successfully"})
}

// handleAgentFlows returns the assigned workflows that still exist.
func (s *Server) handleAgentFlows(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	rec, err := s.deps.Agents.Get(ctx, id)
	if err != nil {
		return respondFailure(c, storeFailure("agent not found: "+id, err))
	}

	flows := make([]agentFlow, 0, len(rec.Flows))
	for _, flowID := range rec.Flows {
		doc, err := s.deps.Workflows.Load(ctx, flowID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return respondFailure(c, storeFailure("load flow "+flowID, err))
		}
		flows = append(flows, agentFlow{ID: flowID, Workflow: doc})
	}
	return respond(c, http.StatusOK, map[string]any{"flows": flows})
}

func (s *Server) handleAssignFlow(c echo.Context) error {
	return s.mutateFlow(c, s.deps.Agents.AssignFlow, "Flow assigned successfully")
}

func (s *Server) handleRemoveFlow(c echo.Context) error {
	return s.mutateFlow(c, s.deps.Agents.RemoveFlow, "Flow removed successfully")
}

func (s *Server) mutateFlow(c echo.Context, fn func(ctx context.Context, id, flowID string) (bool, error), message string) error {
	id := c.Param("id")
	found, err := fn(c.Request().Context(), id, c.Param("flowId"))
	if err != nil {
		return respondFailure(c, storeFailure("update agent flows", err))
	}
	if !found {
		return respondFailure(c, agentNotFound(id))
	}
	return respond(c, http.StatusOK, map[string]any{"message": message})
}
