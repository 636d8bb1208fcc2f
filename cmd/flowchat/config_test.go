package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/metalagman/flowchat/internal/config"
	"github.com/spf13/viper"
)

func TestResolveConfigPath(t *testing.T) {
	t.Parallel()

	repoRoot := t.TempDir()
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "default", path: "", want: filepath.Join(repoRoot, defaultConfigPath)},
		{name: "relative", path: "conf/flowchat.yaml", want: filepath.Join(repoRoot, "conf", "flowchat.yaml")},
		{name: "absolute", path: filepath.Join(repoRoot, "abs.yaml"), want: filepath.Join(repoRoot, "abs.yaml")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := resolveConfigPath(repoRoot, tt.path); got != tt.want {
				t.Fatalf("resolve config path = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadConfig_UsesYAML(t *testing.T) {
	repoRoot := t.TempDir()
	if err := writeTestFile(filepath.Join(repoRoot, defaultConfigPath), `model:
  name: gemini-2.0-flash
  timeout: 30s
chat:
  mode: function_calling
  max_tool_iterations: 3
server:
  addr: ":8080"
`); err != nil {
		t.Fatalf("write yaml config: %v", err)
	}

	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("config", defaultConfigPath)

	cfg, err := loadConfig(repoRoot)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Model.Name != "gemini-2.0-flash" {
		t.Fatalf("model.name = %q, want %q", cfg.Model.Name, "gemini-2.0-flash")
	}
	if cfg.Model.Timeout != 30*time.Second {
		t.Fatalf("model.timeout = %s, want 30s", cfg.Model.Timeout)
	}
	if cfg.Chat.Mode != config.ChatModeFunctionCalling {
		t.Fatalf("chat.mode = %q, want %q", cfg.Chat.Mode, config.ChatModeFunctionCalling)
	}
	if cfg.Chat.MaxToolIterations != 3 {
		t.Fatalf("chat.max_tool_iterations = %d, want 3", cfg.Chat.MaxToolIterations)
	}
	if cfg.Model.APIKeyEnv != "GOOGLE_API_KEY" {
		t.Fatalf("model.api_key_env = %q, want default", cfg.Model.APIKeyEnv)
	}
	if want := filepath.Join(repoRoot, ".flowchat"); cfg.Storage.Dir != want {
		t.Fatalf("storage.dir = %q, want %q", cfg.Storage.Dir, want)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := loadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Chat.MaxToolIterations != 5 {
		t.Fatalf("chat.max_tool_iterations = %d, want 5", cfg.Chat.MaxToolIterations)
	}
	if len(cfg.Chat.DefaultTools) != 1 || cfg.Chat.DefaultTools[0] != "create_bank_account" {
		t.Fatalf("chat.default_tools = %v", cfg.Chat.DefaultTools)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("FLOWCHAT_MODEL_NAME", "gemini-env")
	t.Setenv("FLOWCHAT_CHAT_MAX_TOOL_ITERATIONS", "9")
	t.Setenv("FLOWCHAT_CHAT_DEFAULT_TOOLS", "a,b")

	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := loadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Model.Name != "gemini-env" {
		t.Fatalf("model.name = %q, want %q", cfg.Model.Name, "gemini-env")
	}
	if cfg.Chat.MaxToolIterations != 9 {
		t.Fatalf("chat.max_tool_iterations = %d, want 9", cfg.Chat.MaxToolIterations)
	}
	if strings.Join(cfg.Chat.DefaultTools, "|") != "a|b" {
		t.Fatalf("chat.default_tools = %v, want [a b]", cfg.Chat.DefaultTools)
	}
}

func TestLoadConfig_RejectsSchemaViolation(t *testing.T) {
	repoRoot := t.TempDir()
	if err := writeTestFile(filepath.Join(repoRoot, defaultConfigPath), "chat:\n  mode: telepathy\n"); err != nil {
		t.Fatalf("write yaml config: %v", err)
	}

	viper.Reset()
	t.Cleanup(viper.Reset)

	_, err := loadConfig(repoRoot)
	if err == nil {
		t.Fatal("expected schema error")
	}
	if !strings.Contains(err.Error(), "config schema validation failed") {
		t.Fatalf("error = %v, want schema validation failure", err)
	}
}

func writeTestFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
