// Package duckdb provides the DuckDB mortality source. It reads an existing
// DuckDB database or ingests a CSV of daily observations into memory.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/core"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/source"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Source implements core.Source for DuckDB.
type Source struct {
	source.BaseSQLSource
}

var _ core.Source = (*Source)(nil)

// New creates a new DuckDB source instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Source{
		BaseSQLSource: source.BaseSQLSource{Logger: logger},
	}
}

// Connect establishes a connection to DuckDB.
// An empty path opens an in-memory database. When cfg.CSV is set the file is
// loaded into cfg.Table before returning.
func (s *Source) Connect(ctx context.Context, cfg core.SourceConfig) error {
	cfg.ApplyDefaults()

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	s.Logger.Debug("connecting to duckdb", slog.String("path", path))

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	s.DB = db
	s.Cfg = cfg

	if cfg.CSV != "" {
		if err := s.LoadCSV(ctx, cfg.Table, cfg.CSV); err != nil {
			_ = s.Close()
			s.DB = nil
			return err
		}
	}
	return nil
}

// LoadCSV loads data from a CSV file into a table, replacing any existing
// table of the same name.
func (s *Source) LoadCSV(ctx context.Context, tableName string, filePath string) error {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	query := fmt.Sprintf(`CREATE OR REPLACE TABLE %s AS SELECT * FROM read_csv_auto(%s, header=true)`,
		source.QuoteQualified(tableName), source.QuoteLiteral(absPath))

	s.Logger.Debug("loading csv", slog.String("table", tableName), slog.String("file", absPath))

	if err := s.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to load CSV %s: %w", filePath, err)
	}
	return nil
}
