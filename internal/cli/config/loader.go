package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/AmalBilal1/covid19-anomaly-detection/internal/tuning"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/source"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config
)

// flagKeys maps command-line flag names to config keys. Flags not listed
// here never reach the config.
var flagKeys = map[string]string{
	"state":       "state_path",
	"verbose":     "verbose",
	"output":      "output",
	"source-type": "source.type",
	"waves":       "waves_file",
	"tolerance":   "tolerance",
	"objective":   "tune.objective",
	"workers":     "tune.workers",
	"top":         "tune.top",
	"host":        "serve.host",
	"port":        "serve.port",
}

// findConfigFile finds the config file to use.
// Priority: explicit path > mortwatch.yaml > mortwatch.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty, in-memory or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// absFlag returns the absolute form of a path flag if it was set.
func absFlag(flags *pflag.FlagSet, name string) string {
	if flags == nil || flags.Lookup(name) == nil || !flags.Changed(name) {
		return ""
	}
	v, _ := flags.GetString(name)
	if v == "" || v == ":memory:" {
		return v
	}
	if abs, err := filepath.Abs(v); err == nil {
		return abs
	}
	return v
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")

	// Path flags are relative to the working directory, every other relative
	// path to the config file's directory.
	flagStatePath := absFlag(flags, "state")
	flagSourcePath := absFlag(flags, "source-path")
	flagWaves := absFlag(flags, "waves")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	configFileUsed = findConfigFile(cfgFile)
	baseDir, _ := os.Getwd()
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
		if abs, err := filepath.Abs(configFileUsed); err == nil {
			baseDir = filepath.Dir(abs)
		}
	}

	// 3. Environment variables: MORTWATCH_SOURCE__TYPE -> source.type
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (only those explicitly set)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.BaseDir = baseDir

	// 6. Resolve paths
	if flagStatePath != "" {
		cfg.StatePath = flagStatePath
	} else {
		cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, baseDir)
	}
	if flagWaves != "" {
		cfg.WavesFile = flagWaves
	} else {
		cfg.WavesFile = resolvePathRelativeTo(cfg.WavesFile, baseDir)
	}
	cfg.Source.CSV = resolvePathRelativeTo(cfg.Source.CSV, baseDir)
	cfg.Source.Path = resolvePathRelativeTo(cfg.Source.Path, baseDir)
	if flagSourcePath != "" {
		setSourcePath(&cfg, flagSourcePath)
	}

	expandSourceEnvVars(&cfg)
	cfg.Source.Type = source.Resolve(cfg.Source.Type)
	cfg.Source.ApplyDefaults()
	if cfg.Tune.Grid.IsEmpty() {
		cfg.Tune.Grid = tuning.DefaultGrid()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	currentConfig = &cfg
	return &cfg, nil
}

// setSourcePath routes --source-path to the CSV input or the database file
// depending on its extension.
func setSourcePath(cfg *Config, path string) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		cfg.Source.CSV = path
		cfg.Source.Path = ""
		return
	}
	cfg.Source.Path = path
	cfg.Source.CSV = ""
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if not found
	})
}

// expandSourceEnvVars expands environment variables in connection fields.
func expandSourceEnvVars(cfg *Config) {
	s := &cfg.Source
	s.Host = expandEnvVars(s.Host)
	s.User = expandEnvVars(s.User)
	s.Password = expandEnvVars(s.Password)
	s.Database = expandEnvVars(s.Database)
}
