package config

import (
	"fmt"

	"github.com/AmalBilal1/covid19-anomaly-detection/internal/cli/output"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/source"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Source.Type == "" {
		return fmt.Errorf("source.type is required")
	}
	if !source.IsRegistered(c.Source.Type) {
		return source.NewUnknownSourceError(c.Source.Type)
	}
	if source.Resolve(c.Source.Type) == "postgres" && c.Source.Database == "" && c.Source.Query == "" {
		return fmt.Errorf("source.database is required for postgres sources")
	}
	if err := c.Detect.Validate(); err != nil {
		return err
	}
	if c.ToleranceWeeks < 0 {
		return fmt.Errorf("tolerance must be >= 0 weeks, got %d", c.ToleranceWeeks)
	}
	if mode := output.Mode(c.OutputFormat); !mode.Valid() {
		return fmt.Errorf("invalid output format %q (expected one of %v)", c.OutputFormat, output.Modes())
	}
	if c.Tune.Top < 0 {
		return fmt.Errorf("tune.top must be >= 0, got %d", c.Tune.Top)
	}
	if c.Tune.Workers < 0 {
		return fmt.Errorf("tune.workers must be >= 0, got %d", c.Tune.Workers)
	}
	if c.Serve.Port < 0 || c.Serve.Port > 65535 {
		return fmt.Errorf("serve.port out of range: %d", c.Serve.Port)
	}
	if c.StatePath == "" {
		return fmt.Errorf("state_path is required")
	}
	return nil
}

// ValidateSource checks that the source points at some data. Commands that
// only read the state store skip this check.
func (c *Config) ValidateSource() error {
	if c.Source.Type == "duckdb" && c.Source.CSV == "" && c.Source.Path == "" && c.Source.Query == "" {
		return fmt.Errorf("no input configured\nHint: set source.csv in %s or pass --source-path", ConfigFileName)
	}
	return nil
}
