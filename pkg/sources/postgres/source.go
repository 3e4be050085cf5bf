// Package postgres provides the PostgreSQL mortality source.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/core"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/source"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
)

// Source implements core.Source for PostgreSQL.
type Source struct {
	source.BaseSQLSource
}

var _ core.Source = (*Source)(nil)

// New creates a new PostgreSQL source instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Source{
		BaseSQLSource: source.BaseSQLSource{Logger: logger},
	}
}

// Connect establishes a connection to PostgreSQL.
func (s *Source) Connect(ctx context.Context, cfg core.SourceConfig) error {
	if cfg.CSV != "" {
		return fmt.Errorf("postgres source does not ingest CSV files; use the duckdb source")
	}
	cfg.ApplyDefaults()

	s.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", buildDSN(cfg))
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	s.DB = db
	s.Cfg = cfg
	return nil
}

// dsnValue quotes a keyword/value connection string value the way libpq
// expects: empty values and values with spaces, quotes or backslashes go in
// single quotes with ' and \ escaped.
func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " \t\n'\\") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// buildDSN constructs a key=value PostgreSQL connection string.
func buildDSN(cfg core.SourceConfig) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	parts := []string{
		"host=" + dsnValue(host),
		"port=" + strconv.Itoa(port),
		"dbname=" + dsnValue(cfg.Database),
		"sslmode=" + dsnValue(sslmode),
	}
	if cfg.User != "" {
		parts = append(parts, "user="+dsnValue(cfg.User))
	}
	if cfg.Password != "" {
		parts = append(parts, "password="+dsnValue(cfg.Password))
	}

	// Remaining options in stable order.
	keys := make([]string, 0, len(cfg.Options))
	for k := range cfg.Options {
		if k != "sslmode" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+dsnValue(cfg.Options[k]))
	}

	dsn := strings.Join(parts, " ")
	return dsn
}
