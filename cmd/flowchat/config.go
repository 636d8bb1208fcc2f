package main

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/metalagman/flowchat/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = ".flowchat/config.yaml"
	envPrefix         = "FLOWCHAT"
)

const defaultConfigYAML = `model:
  name: gemini-1.5-flash
  api_key_env: GOOGLE_API_KEY
  timeout: 60s
  config_temperature: 0.3
  chat_temperature: 0.7
storage:
  dir: .flowchat
  flows_dir: flows
  agents_dir: agents
  legacy_file: data/flow_config.json
  runlog_file: flowchat.db
server:
  addr: ":5001"
  shutdown_timeout: 10s
chat:
  mode: heuristic
  max_tool_iterations: 5
  default_tools:
    - create_bank_account
logging:
  format: console
`

// resolveConfigPath makes path absolute against repoRoot.
func resolveConfigPath(repoRoot, path string) string {
	if path == "" {
		path = defaultConfigPath
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(repoRoot, path)
}

// loadConfig reads defaults, the optional config file and FLOWCHAT_* environment overrides.
// The file is checked against the JSON schema before environment values are layered on.
func loadConfig(repoRoot string) (config.Config, error) {
	for key, value := range config.Defaults() {
		viper.SetDefault(key, value)
	}

	path := resolveConfigPath(repoRoot, viper.GetString("config"))
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return config.Config{}, fmt.Errorf("read config: %w", err)
		}
		log.Debug().Str("path", path).Msg("config file not found, using defaults")
	}
	if err := config.ValidateSettings(viper.AllSettings()); err != nil {
		return config.Config{}, err
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg config.Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := viper.Unmarshal(&cfg, decodeHook); err != nil {
		return config.Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	if !filepath.IsAbs(cfg.Storage.Dir) {
		cfg.Storage.Dir = filepath.Join(repoRoot, cfg.Storage.Dir)
	}
	return cfg, nil
}
