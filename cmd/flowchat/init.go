package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a new flowchat project",
		Long:  "Initialize a flowchat project by creating the .flowchat directory, installing a default config, seeding default agents and creating the run log.",
		RunE: func(cmd *cobra.Command, args []string) error {
			repoRoot, err := os.Getwd()
			if err != nil {
				return err
			}
			if err := initProject(cmd.Context(), repoRoot); err != nil {
				return err
			}
			fmt.Println("flowchat initialized successfully")
			return nil
		},
	}
}

func initProject(ctx context.Context, repoRoot string) error {
	configPath := resolveConfigPath(repoRoot, viper.GetString("config"))
	if _, err := os.Stat(configPath); err == nil {
		log.Info().Str("path", configPath).Msg("config already exists, skipping")
	} else {
		log.Info().Str("path", configPath).Msg("installing default config")
		if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err := os.WriteFile(configPath, []byte(defaultConfigYAML), 0o644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}

	cfg, err := loadConfig(repoRoot)
	if err != nil {
		return err
	}
	for _, dir := range []string{cfg.Storage.FlowsPath(), cfg.Storage.AgentsPath(), filepath.Dir(cfg.Storage.LegacyPath())} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	svc, err := openServices(ctx, cfg)
	if err != nil {
		return err
	}
	return svc.Close()
}
