package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/metalagman/flowchat/internal/config"
)

func serveTestServices(t *testing.T, apiKey, addr string) *services {
	t.Helper()

	cfg := config.Config{
		Model: config.ModelConfig{Name: "gemini-2.0-flash", APIKey: apiKey, Timeout: time.Second},
		Storage: config.StorageConfig{
			Dir:        t.TempDir(),
			FlowsDir:   "flows",
			AgentsDir:  "agents",
			LegacyFile: "data/flow_config.json",
			RunLogFile: "runs.db",
		},
		Server: config.ServerConfig{Addr: addr, ShutdownTimeout: time.Second},
		Chat:   config.ChatConfig{Mode: config.ChatModeHeuristic, MaxToolIterations: 1},
	}
	svc, err := openServices(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open services: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestServe_ClosesServicesWhenBuildFails(t *testing.T) {
	svc := serveTestServices(t, "", "127.0.0.1:0")

	err := serve(context.Background(), svc)
	if err == nil || !strings.Contains(err.Error(), "api key is required") {
		t.Fatalf("serve error = %v, want missing api key", err)
	}
	if svc.db != nil {
		t.Fatalf("services database still open after failed build")
	}
}

func TestServe_ClosesServicesWhenStartFails(t *testing.T) {
	svc := serveTestServices(t, "test-key", "not-an-address")

	err := serve(context.Background(), svc)
	if err == nil || !strings.Contains(err.Error(), "listen not-an-address") {
		t.Fatalf("serve error = %v, want listen failure", err)
	}
	if svc.db != nil {
		t.Fatalf("services database still open after failed start")
	}
}

func TestServe_ClosesServicesOnShutdown(t *testing.T) {
	svc := serveTestServices(t, "test-key", "127.0.0.1:0")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := serve(ctx, svc); err != nil {
		t.Fatalf("serve: %v", err)
	}
	if svc.db != nil {
		t.Fatalf("services database still open after shutdown")
	}
}
