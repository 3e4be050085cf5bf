package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AmalBilal1/covid19-anomaly-detection/internal/cli/config"
	"github.com/AmalBilal1/covid19-anomaly-detection/internal/cli/output"
	"github.com/AmalBilal1/covid19-anomaly-detection/internal/pipeline"
	"github.com/AmalBilal1/covid19-anomaly-detection/internal/state"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Store    *state.SQLiteStore
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with an open state store.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cc, err := NewCommandContextWithoutStore(cmd)
	if err != nil {
		return nil, nil, err
	}

	store, err := openStore(cc.Cfg.StatePath, cc.Logger)
	if err != nil {
		return nil, nil, err
	}
	cc.Store = store

	cleanup := func() {
		_ = store.Close()
	}
	return cc, cleanup, nil
}

// NewCommandContextWithoutStore creates a CommandContext without a state store.
// Useful for commands that don't touch run history.
func NewCommandContextWithoutStore(cmd *cobra.Command) (*CommandContext, error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, err
	}
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}, nil
}

// Pipeline builds a pipeline from the loaded configuration.
func (cc *CommandContext) Pipeline() (*pipeline.Pipeline, error) {
	if err := cc.Cfg.ValidateSource(); err != nil {
		return nil, err
	}
	catalog, err := cc.Cfg.Catalog()
	if err != nil {
		return nil, err
	}
	return pipeline.New(pipeline.Config{
		Source:         cc.Cfg.Source,
		Params:         cc.Cfg.Detect,
		Catalog:        catalog,
		ToleranceWeeks: cc.Cfg.ToleranceWeeks,
		Logger:         cc.Logger,
	}, cc.Store)
}

// getConfig returns the configuration loaded by the root command, or loads
// one from the working directory when a command runs on its own.
func getConfig() (*config.Config, error) {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg, nil
	}
	return config.LoadConfig("", nil)
}

func openStore(path string, logger *slog.Logger) (*state.SQLiteStore, error) {
	// Ensure state directory exists
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}
	return state.OpenAndMigrate(path, logger)
}
