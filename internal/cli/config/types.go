// Package config loads mortwatch configuration.
//
// Values are layered, lowest to highest priority: built-in defaults, the
// mortwatch.yaml file, MORTWATCH_ environment variables and explicitly set
// command-line flags. Nested keys in environment variables use a double
// underscore, so MORTWATCH_SOURCE__TYPE sets source.type.
package config

import (
	"github.com/AmalBilal1/covid19-anomaly-detection/internal/tuning"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/core"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/waves"
)

// Config holds all CLI configuration options.
type Config struct {
	StatePath      string            `koanf:"state_path"`
	Verbose        bool              `koanf:"verbose"`
	OutputFormat   string            `koanf:"output"`
	ToleranceWeeks int               `koanf:"tolerance"`
	WavesFile      string            `koanf:"waves_file"`
	Source         core.SourceConfig `koanf:"source"`
	Detect         core.Params       `koanf:"detect"`
	Tune           TuneConfig        `koanf:"tune"`
	Serve          ServeConfig       `koanf:"serve"`

	// BaseDir is the directory relative paths were resolved against.
	BaseDir string `koanf:"-"`
}

// TuneConfig holds grid search settings.
type TuneConfig struct {
	Objective string      `koanf:"objective"`
	Workers   int         `koanf:"workers"`
	Top       int         `koanf:"top"`
	Grid      tuning.Grid `koanf:"grid"`
}

// ServeConfig holds HTTP API settings.
type ServeConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// Default configuration values.
const (
	ConfigFileName    = "mortwatch.yaml"
	ConfigFileNameAlt = "mortwatch.yml"
	EnvPrefix         = "MORTWATCH_"

	DefaultStateFile  = ".mortwatch/state.db"
	DefaultOutput     = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultSourceType = "duckdb"
	DefaultObjective  = "f1"
	DefaultTop        = 10
	DefaultHost       = "127.0.0.1"
	DefaultPort       = 8765
)

// Catalog loads the configured wave catalog, or the built-in Brazilian one
// when no file is set.
func (c *Config) Catalog() (*waves.Catalog, error) {
	return waves.Load(c.WavesFile)
}

// defaults returns the flattened default values loaded before any other layer.
func defaults() map[string]any {
	p := core.DefaultParams()
	return map[string]any{
		"state_path": DefaultStateFile,
		"verbose":    false,
		"output":     DefaultOutput,
		"tolerance":  0,
		"waves_file": "",

		"source.type": DefaultSourceType,

		"detect.spike.q_up":      p.Spike.QUp,
		"detect.spike.transform": string(p.Spike.Transform),
		"detect.turn.w_pre":      p.Turn.WPre,
		"detect.turn.w_post":     p.Turn.WPost,
		"detect.turn.q_h":        p.Turn.QH,
		"detect.turn.q_flat":     p.Turn.QFlat,
		"detect.turn.q_trend":    p.Turn.QTrend,
		"detect.turn.transform":  string(p.Turn.Transform),

		"tune.objective": DefaultObjective,
		"tune.workers":   0,
		"tune.top":       DefaultTop,

		"serve.host": DefaultHost,
		"serve.port": DefaultPort,
	}
}
