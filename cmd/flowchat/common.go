package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/metalagman/flowchat/internal/config"
	"github.com/metalagman/flowchat/internal/db"
	"github.com/metalagman/flowchat/internal/gateway"
	"github.com/metalagman/flowchat/internal/intent"
	"github.com/metalagman/flowchat/internal/pipeline"
	"github.com/metalagman/flowchat/internal/runlog"
	"github.com/metalagman/flowchat/internal/store"
	"github.com/metalagman/flowchat/internal/tools"
)

// services holds the stores shared by every command.
type services struct {
	cfg       config.Config
	db        *sql.DB
	runs      *runlog.Store
	workflows *store.WorkflowStore
	agents    *store.AgentStore
	legacy    *store.LegacyFlowStore
	tools     *tools.Registry
}

// Close releases the run log database. It is safe to call more than once.
func (s *services) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// loadServices loads config from the working directory and opens the stores.
func loadServices(ctx context.Context) (*services, error) {
	repoRoot, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(repoRoot)
	if err != nil {
		return nil, err
	}
	return openServices(ctx, cfg)
}

func openServices(ctx context.Context, cfg config.Config) (*services, error) {
	registry := tools.NewDefaultRegistry()
	agents := store.NewAgentStore(cfg.Storage.AgentsPath(), store.WithToolCheck(registry.Has))
	if err := agents.SeedDefaults(ctx); err != nil {
		return nil, fmt.Errorf("seed default agents: %w", err)
	}

	storeDB, err := db.Open(ctx, cfg.Storage.RunLogPath())
	if err != nil {
		return nil, err
	}

	return &services{
		cfg:       cfg,
		db:        storeDB,
		runs:      runlog.NewStore(storeDB),
		workflows: store.NewWorkflowStore(cfg.Storage.FlowsPath()),
		agents:    agents,
		legacy:    store.NewLegacyFlowStore(cfg.Storage.LegacyPath()),
		tools:     registry,
	}, nil
}

// orchestrator wires both pipelines to the hosted model.
func (s *services) orchestrator(ctx context.Context) (*pipeline.Orchestrator, error) {
	pool, err := gateway.NewPool(ctx, gateway.Config{
		APIKey:  s.cfg.Model.ResolveAPIKey(),
		BaseURL: s.cfg.Model.BaseURL,
		Timeout: s.cfg.Model.Timeout,
	}, nil)
	if err != nil {
		return nil, err
	}

	var chatOpts []pipeline.ChatOption
	if s.cfg.Chat.Mode == config.ChatModeFunctionCalling {
		chatOpts = append(chatOpts, pipeline.WithFunctionCalling(s.cfg.Chat.MaxToolIterations))
	}

	configPipeline := pipeline.NewConfigPipeline(pool.Get(s.cfg.Model.Name, s.cfg.Model.ConfigTemperature), s.workflows)
	chatPipeline := pipeline.NewChatPipeline(
		pool.Get(s.cfg.Model.Name, s.cfg.Model.ChatTemperature),
		s.tools,
		intent.NewExtractor(),
		chatOpts...,
	)
	return pipeline.NewOrchestrator(configPipeline, chatPipeline,
		pipeline.WithAgents(s.agents),
		pipeline.WithPersonaSource(s.legacy),
		pipeline.WithRecorder(s.runs),
		pipeline.WithDefaultTools(s.cfg.Chat.DefaultTools),
	), nil
}
