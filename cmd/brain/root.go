package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/viant/brain/config"
)

var (
	configPath   string
	globalConfig *config.Config
	logger       *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "brain",
	Short:         "Personal knowledge store with semantic search",
	Long:          "Store problem/solution notes and find them again by meaning.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		globalConfig = cfg
		logger = cfg.Log.Logger(os.Stderr)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/brain/config.yaml)")
}
