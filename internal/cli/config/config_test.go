package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/core"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/source"

	// Import source packages to ensure sources are registered via init()
	_ "github.com/AmalBilal1/covid19-anomaly-detection/pkg/sources/duckdb"
	_ "github.com/AmalBilal1/covid19-anomaly-detection/pkg/sources/postgres"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func newFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("state", "", "")
	flags.String("source-type", "", "")
	flags.String("source-path", "", "")
	flags.BoolP("verbose", "v", false, "")
	flags.StringP("output", "o", "", "")
	flags.Int("tolerance", 0, "")
	flags.Bool("watch", false, "")
	return flags
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Empty(t, GetConfigFileUsed())
	assert.Equal(t, DefaultSourceType, cfg.Source.Type)
	assert.Equal(t, core.DefaultParams(), cfg.Detect)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, DefaultTop, cfg.Tune.Top)
	assert.Equal(t, DefaultPort, cfg.Serve.Port)
	assert.False(t, cfg.Tune.Grid.IsEmpty(), "default grid applied")
	assert.True(t, filepath.IsAbs(cfg.StatePath))
	assert.Equal(t, core.DefaultTable, cfg.Source.Table)
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_File(t *testing.T) {
	ResetConfig()
	path := writeConfig(t, `state_path: state/mortwatch.db
tolerance: 2
waves_file: waves.yaml
source:
  type: duckdb
  csv: data/obitos.csv
  value_column: obitos
  region_filter: [SP, RJ]
detect:
  spike:
    q_up: 0.95
  turn:
    w_pre: 4
    transform: diff
tune:
  top: 3
  grid:
    q_up: [0.9, 0.99]
`)
	dir := filepath.Dir(path)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, path, GetConfigFileUsed())
	assert.Equal(t, filepath.Join(dir, "state", "mortwatch.db"), cfg.StatePath)
	assert.Equal(t, filepath.Join(dir, "data", "obitos.csv"), cfg.Source.CSV)
	assert.Equal(t, filepath.Join(dir, "waves.yaml"), cfg.WavesFile)
	assert.Equal(t, "obitos", cfg.Source.ValueColumn)
	assert.Equal(t, []string{"SP", "RJ"}, cfg.Source.Regions)
	assert.Equal(t, 2, cfg.ToleranceWeeks)

	assert.Equal(t, 0.95, cfg.Detect.Spike.QUp)
	assert.Equal(t, core.TransformNone, cfg.Detect.Spike.Transform, "unset keys keep defaults")
	assert.Equal(t, 4, cfg.Detect.Turn.WPre)
	assert.Equal(t, core.DefaultWPost, cfg.Detect.Turn.WPost)
	assert.Equal(t, core.TransformDiff, cfg.Detect.Turn.Transform)

	assert.Equal(t, 3, cfg.Tune.Top)
	assert.Equal(t, []float64{0.9, 0.99}, cfg.Tune.Grid.QUp)
	assert.Empty(t, cfg.Tune.Grid.WPre, "a configured grid replaces the default")
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	ResetConfig()
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoadConfig_Precedence(t *testing.T) {
	cfgContent := `tolerance: 1
source:
  type: duckdb
`

	t.Run("env overrides file", func(t *testing.T) {
		ResetConfig()
		path := writeConfig(t, cfgContent)
		t.Setenv("MORTWATCH_TOLERANCE", "2")

		cfg, err := LoadConfig(path, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, cfg.ToleranceWeeks)
	})

	t.Run("flag overrides env", func(t *testing.T) {
		ResetConfig()
		path := writeConfig(t, cfgContent)
		t.Setenv("MORTWATCH_TOLERANCE", "2")

		flags := newFlags()
		require.NoError(t, flags.Set("tolerance", "3"))

		cfg, err := LoadConfig(path, flags)
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.ToleranceWeeks)
	})

	t.Run("unset flag falls back to env", func(t *testing.T) {
		ResetConfig()
		path := writeConfig(t, cfgContent)
		t.Setenv("MORTWATCH_TOLERANCE", "2")

		cfg, err := LoadConfig(path, newFlags())
		require.NoError(t, err)
		assert.Equal(t, 2, cfg.ToleranceWeeks)
	})

	t.Run("nested env key", func(t *testing.T) {
		ResetConfig()
		path := writeConfig(t, cfgContent)
		t.Setenv("MORTWATCH_DETECT__SPIKE__Q_UP", "0.9")
		t.Setenv("MORTWATCH_SOURCE__VALUE_COLUMN", "obitos")

		cfg, err := LoadConfig(path, nil)
		require.NoError(t, err)
		assert.Equal(t, 0.9, cfg.Detect.Spike.QUp)
		assert.Equal(t, "obitos", cfg.Source.ValueColumn)
	})
}

func TestLoadConfig_SourcePathFlag(t *testing.T) {
	t.Run("csv", func(t *testing.T) {
		ResetConfig()
		dir := t.TempDir()
		t.Chdir(dir)

		flags := newFlags()
		require.NoError(t, flags.Set("source-path", "obitos.CSV"))

		cfg, err := LoadConfig("", flags)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "obitos.CSV"), cfg.Source.CSV)
		assert.Empty(t, cfg.Source.Path)
	})

	t.Run("database file", func(t *testing.T) {
		ResetConfig()
		path := writeConfig(t, "source:\n  csv: other.csv\n")

		flags := newFlags()
		require.NoError(t, flags.Set("source-path", "/data/sim.duckdb"))

		cfg, err := LoadConfig(path, flags)
		require.NoError(t, err)
		assert.Equal(t, "/data/sim.duckdb", cfg.Source.Path)
		assert.Empty(t, cfg.Source.CSV)
	})
}

func TestLoadConfig_EnvExpansion(t *testing.T) {
	ResetConfig()
	t.Setenv("TEST_PG_PASSWORD", "secret123")
	path := writeConfig(t, `source:
  type: postgres
  host: db.internal
  database: sim
  user: reader
  password: ${TEST_PG_PASSWORD}
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "secret123", cfg.Source.Password)
	assert.Equal(t, 5432, cfg.Source.Port)
}

func TestLoadConfig_SourceTypeAlias(t *testing.T) {
	ResetConfig()
	path := writeConfig(t, "source:\n  host: db.internal\n  database: sim\n")
	t.Setenv("MORTWATCH_SOURCE__TYPE", "PG")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Source.Type)
	assert.Equal(t, 5432, cfg.Source.Port)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			StatePath:    "state.db",
			OutputFormat: "auto",
			Source:       core.SourceConfig{Type: "duckdb"},
			Detect:       core.DefaultParams(),
			Serve:        ServeConfig{Port: DefaultPort},
		}
	}

	tests := []struct {
		name      string
		mutate    func(c *Config)
		errSubstr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "empty source type", mutate: func(c *Config) { c.Source.Type = "" }, errSubstr: "source.type is required"},
		{name: "unknown source type", mutate: func(c *Config) { c.Source.Type = "oracle" }, errSubstr: "unknown source type"},
		{name: "postgres without database", mutate: func(c *Config) { c.Source.Type = "postgres" }, errSubstr: "source.database"},
		{name: "postgres alias without database", mutate: func(c *Config) { c.Source.Type = "PostgreSQL" }, errSubstr: "source.database"},
		{name: "bad detector params", mutate: func(c *Config) { c.Detect.Spike.QUp = 2 }, errSubstr: "q_up"},
		{name: "negative tolerance", mutate: func(c *Config) { c.ToleranceWeeks = -1 }, errSubstr: "tolerance"},
		{name: "bad output", mutate: func(c *Config) { c.OutputFormat = "yaml" }, errSubstr: "invalid output format"},
		{name: "negative top", mutate: func(c *Config) { c.Tune.Top = -1 }, errSubstr: "tune.top"},
		{name: "bad port", mutate: func(c *Config) { c.Serve.Port = 70000 }, errSubstr: "serve.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestConfig_ValidateUnknownSourceType(t *testing.T) {
	c := &Config{StatePath: "s.db", Source: core.SourceConfig{Type: "oracle"}, Detect: core.DefaultParams()}
	var unknown *source.UnknownSourceError
	require.ErrorAs(t, c.Validate(), &unknown)
	assert.Contains(t, unknown.Available, "duckdb")
	assert.Contains(t, unknown.Available, "postgres")
	assert.Empty(t, unknown.Suggestion)

	c.Source.Type = "duck"
	require.ErrorAs(t, c.Validate(), &unknown)
	assert.Equal(t, "duckdb", unknown.Suggestion)
}

func TestConfig_ValidateSource(t *testing.T) {
	c := &Config{Source: core.SourceConfig{Type: "duckdb"}}
	require.Error(t, c.ValidateSource())

	c.Source.CSV = "obitos.csv"
	assert.NoError(t, c.ValidateSource())
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR_ONE", "value_one")

	assert.Equal(t, "value_one", expandEnvVars("${TEST_VAR_ONE}"))
	assert.Equal(t, "pre-value_one-post", expandEnvVars("pre-${TEST_VAR_ONE}-post"))
	assert.Equal(t, "${TEST_VAR_UNSET_XYZ}", expandEnvVars("${TEST_VAR_UNSET_XYZ}"))
	assert.Equal(t, "plain", expandEnvVars("plain"))
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))

	logger := slog.New(slog.DiscardHandler)
	ctx := context.WithValue(context.Background(), LoggerKey(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}
