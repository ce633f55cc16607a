package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/hanoi"
	"github.com/aretw0/hanoi/internal/logging"
	"github.com/aretw0/hanoi/pkg/config"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var rootCmd = &cobra.Command{
	Use:   "hanoi",
	Short: "hanoi teaches an epsilon-greedy Q-learning agent to solve the Tower of Hanoi",
	Long: `hanoi trains a tabular Q-learning agent on the 3-disk Tower of Hanoi and replays
the learned policy. It can also serve the engine over HTTP or as an MCP server.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "YAML file with hyperparameters")
	rootCmd.PersistentFlags().String("preset", "default", "Named hyperparameter preset (default, conservative)")
	rootCmd.PersistentFlags().StringSlice("set", nil, "Override a hyperparameter, e.g. --set alpha=0.2 (repeatable)")
	rootCmd.PersistentFlags().Int64("seed", 0, "Random seed for exploration (0 uses the clock)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
}

// loadConfig resolves preset, then config file, then --set overrides, then --seed.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	preset, _ := cmd.Flags().GetString("preset")
	path, _ := cmd.Flags().GetString("config")
	sets, _ := cmd.Flags().GetStringSlice("set")

	cfg, err := config.Preset(preset)
	if err != nil {
		return config.Config{}, err
	}

	if path != "" {
		fileCfg, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		// A file replaces the preset entirely.
		cfg = fileCfg
	}

	if len(sets) > 0 {
		overrides, err := config.ParseOverrides(sets)
		if err != nil {
			return config.Config{}, err
		}
		if cfg, err = config.Apply(cfg, overrides); err != nil {
			return config.Config{}, err
		}
	}

	if cmd.Flags().Changed("seed") {
		cfg.Seed, _ = cmd.Flags().GetInt64("seed")
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	raw, _ := cmd.Flags().GetString("log-level")
	level, err := logging.ParseLevel(raw)
	if err != nil {
		return nil, err
	}
	format, _ := cmd.Flags().GetString("log-format")
	switch logging.Format(format) {
	case logging.FormatText, logging.FormatJSON:
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return logging.NewWriter(os.Stderr, level, logging.Format(format)), nil
}

// newEngine builds an engine from the persistent flags.
func newEngine(cmd *cobra.Command, opts ...hanoi.Option) (*hanoi.Engine, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, nil, err
	}

	opts = append([]hanoi.Option{hanoi.WithConfig(cfg), hanoi.WithLogger(logger)}, opts...)
	eng, err := hanoi.New(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize engine: %w", err)
	}
	return eng, logger, nil
}

// isInteractive reports whether stdout is a terminal, which enables colour and glamour.
func isInteractive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
