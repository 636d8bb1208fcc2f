// Package config provides configuration loading and management for flowchat.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Chat modes.
const (
	ChatModeHeuristic       = "heuristic"
	ChatModeFunctionCalling = "function_calling"
)

// Config is the root configuration.
type Config struct {
	Model   ModelConfig   `json:"model"   mapstructure:"model"`
	Storage StorageConfig `json:"storage" mapstructure:"storage"`
	Server  ServerConfig  `json:"server"  mapstructure:"server"`
	Chat    ChatConfig    `json:"chat"    mapstructure:"chat"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// ModelConfig describes the hosted language model.
type ModelConfig struct {
	Name              string        `json:"name"                mapstructure:"name"`
	APIKey            string        `json:"api_key,omitempty"   mapstructure:"api_key"`
	APIKeyEnv         string        `json:"api_key_env"         mapstructure:"api_key_env"`
	BaseURL           string        `json:"base_url,omitempty"  mapstructure:"base_url"`
	Timeout           time.Duration `json:"timeout"             mapstructure:"timeout"`
	ConfigTemperature float32       `json:"config_temperature"  mapstructure:"config_temperature"`
	ChatTemperature   float32       `json:"chat_temperature"    mapstructure:"chat_temperature"`
}

// StorageConfig locates the file-backed collections and the run log.
type StorageConfig struct {
	Dir        string `json:"dir"         mapstructure:"dir"`
	FlowsDir   string `json:"flows_dir"   mapstructure:"flows_dir"`
	AgentsDir  string `json:"agents_dir"  mapstructure:"agents_dir"`
	LegacyFile string `json:"legacy_file" mapstructure:"legacy_file"`
	RunLogFile string `json:"runlog_file" mapstructure:"runlog_file"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `json:"addr"             mapstructure:"addr"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// ChatConfig configures the chat pipeline.
type ChatConfig struct {
	Mode              string   `json:"mode"                mapstructure:"mode"`
	MaxToolIterations int      `json:"max_tool_iterations" mapstructure:"max_tool_iterations"`
	DefaultTools      []string `json:"default_tools"       mapstructure:"default_tools"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Format string `json:"format,omitempty" mapstructure:"format"`
}

// Defaults returns the flat key/value defaults applied before any config file.
func Defaults() map[string]any {
	return map[string]any{
		"model.name":               "gemini-1.5-flash",
		"model.api_key_env":        "GOOGLE_API_KEY",
		"model.timeout":            "60s",
		"model.config_temperature": 0.3,
		"model.chat_temperature":   0.7,
		"storage.dir":              ".flowchat",
		"storage.flows_dir":        "flows",
		"storage.agents_dir":       "agents",
		"storage.legacy_file":      filepath.Join("data", "flow_config.json"),
		"storage.runlog_file":      "flowchat.db",
		"server.addr":              ":5001",
		"server.shutdown_timeout":  "10s",
		"chat.mode":                ChatModeHeuristic,
		"chat.max_tool_iterations": 5,
		"chat.default_tools":       []string{"create_bank_account"},
		"logging.format":           "console",
	}
}

// Validate checks semantic constraints the schema cannot express.
func (c Config) Validate() error {
	if c.Model.Name == "" {
		return fmt.Errorf("model.name is required")
	}
	switch c.Chat.Mode {
	case ChatModeHeuristic, ChatModeFunctionCalling:
	default:
		return fmt.Errorf("chat.mode %q is not supported", c.Chat.Mode)
	}
	if c.Chat.MaxToolIterations <= 0 {
		return fmt.Errorf("chat.max_tool_iterations must be > 0")
	}
	if c.Model.Timeout < 0 {
		return fmt.Errorf("model.timeout must not be negative")
	}
	return nil
}

// ResolveAPIKey returns the configured key, falling back to the named environment variable.
func (m ModelConfig) ResolveAPIKey() string {
	if m.APIKey != "" {
		return m.APIKey
	}
	if m.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(m.APIKeyEnv)
}

// FlowsPath returns the workflow collection directory.
func (s StorageConfig) FlowsPath() string { return s.resolve(s.FlowsDir) }

// AgentsPath returns the agent collection directory.
func (s StorageConfig) AgentsPath() string { return s.resolve(s.AgentsDir) }

// LegacyPath returns the single-flow config record path.
func (s StorageConfig) LegacyPath() string { return s.resolve(s.LegacyFile) }

// RunLogPath returns the SQLite run log path.
func (s StorageConfig) RunLogPath() string { return s.resolve(s.RunLogFile) }

func (s StorageConfig) resolve(p string) string {
	if filepath.IsAbs(p) || s.Dir == "" {
		return p
	}
	return filepath.Join(s.Dir, p)
}
