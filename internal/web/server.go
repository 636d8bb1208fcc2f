// Package web serves the flowchat HTTP API.
package web

import (
	"errors"
	"maps"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/metalagman/flowchat/internal/logging"
	"github.com/metalagman/flowchat/internal/pipeline"
	"github.com/metalagman/flowchat/internal/store"
	"github.com/metalagman/flowchat/internal/tools"
	"github.com/rs/zerolog/log"
)

// Deps are the services behind the API.
type Deps struct {
	Orchestrator *pipeline.Orchestrator
	Workflows    *store.WorkflowStore
	Agents       *store.AgentStore
	Legacy       *store.LegacyFlowStore
	Tools        *tools.Registry
}

// Server provides the API handlers.
type Server struct {
	deps Deps
	echo *echo.Echo
}

// NewServer creates a server and registers its routes.
func NewServer(deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = logging.DebugEnabled()
	e.HTTPErrorHandler = handleError
	e.Use(middleware.Recover())
	e.Use(requestLogger())

	s := &Server{deps: deps, echo: e}
	s.routes()
	return s
}

// Routes returns the router for the API.
func (s *Server) Routes() http.Handler {
	return s.echo
}

func (s *Server) routes() {
	e := s.echo
	e.GET("/healthz", s.handleHealth)

	api := e.Group("/api")

	api.POST("/config/generate-flow", s.handleGenerateFlow)
	api.POST("/pipelines/config", s.handleGenerateFlow)
	api.POST("/config/save-flow", s.handleSaveFlow)
	api.GET("/config/load-flow", s.handleLoadFlow)
	api.GET("/config/list-flows", s.handleListFlows)
	api.GET("/config/load-flow/:key", s.handleLoadFlowByKey)

	api.POST("/chat/message", s.handleChat)
	api.POST("/pipelines/chat", s.handleChat)

	api.GET("/agents", s.handleListAgents)
	api.POST("/agents", s.handleCreateAgent)
	api.GET("/agents/:id", s.handleGetAgent)
	api.PUT("/agents/:id", s.handleUpdateAgent)
	api.DELETE("/agents/:id", s.handleDeleteAgent)
	api.POST("/agents/:id/chat", s.handleAgentChat)
	api.GET("/agents/:id/flows", s.handleAgentFlows)
	api.POST("/agents/:id/flows/:flowId", s.handleAssignFlow)
	api.DELETE("/agents/:id/flows/:flowId", s.handleRemoveFlow)

	api.GET("/tools", s.handleListTools)
	api.POST("/tools/:name/invoke", s.handleInvokeTool)

	api.GET("/flows", s.handleListFlows)
	api.GET("/flows/:id", s.handleGetFlow)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("http request")
			return nil
		},
	})
}

func respond(c echo.Context, status int, fields map[string]any) error {
	body := map[string]any{"success": true}
	maps.Copy(body, fields)
	return c.JSON(status, body)
}

func respondFailure(c echo.Context, f *pipeline.Failure) error {
	body := map[string]any{
		"success":    false,
		"error":      f.Message,
		"error_kind": f.Kind,
	}
	if f.Field != "" {
		body["field"] = f.Field
	}
	if f.RawOutput != "" {
		body["raw_output"] = f.RawOutput
	}
	if statusFor(f.Kind) >= http.StatusInternalServerError {
		log.Error().Err(f).Str("path", c.Path()).Msg("request failed")
	}
	return c.JSON(statusFor(f.Kind), body)
}

func statusFor(kind pipeline.Kind) int {
	switch kind {
	case pipeline.KindInvalidInput, pipeline.KindMalformedOutput, pipeline.KindSchemaViolation:
		return http.StatusBadRequest
	case pipeline.KindToolValidation:
		return http.StatusUnprocessableEntity
	case pipeline.KindNotFound:
		return http.StatusNotFound
	case pipeline.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// storeFailure classifies a store error.
func storeFailure(message string, err error) *pipeline.Failure {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return pipeline.Fail(pipeline.KindNotFound, message, err)
	case errors.Is(err, store.ErrAlreadyExists):
		return pipeline.Fail(pipeline.KindConflict, err.Error(), err)
	case errors.Is(err, store.ErrInvalid):
		return pipeline.Fail(pipeline.KindInvalidInput, err.Error(), err)
	default:
		return pipeline.Fail(pipeline.KindInternal, message, err)
	}
}

func bindFailure(err error) *pipeline.Failure {
	return pipeline.Fail(pipeline.KindInvalidInput, "invalid request body", err)
}

func handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	message := http.StatusText(status)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		}
	} else {
		log.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
	}
	if err := c.JSON(status, map[string]any{"success": false, "error": message}); err != nil {
		log.Error().Err(err).Msg("write error response")
	}
}
