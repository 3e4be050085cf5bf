package core

import "context"

// Source loads weekly mortality series from a data backend.
type Source interface {
	// Connect establishes a connection and prepares the data.
	Connect(ctx context.Context, cfg SourceConfig) error

	// Load returns one series per region, sorted by region.
	Load(ctx context.Context) ([]Series, error)

	// Close releases the connection.
	Close() error
}

// SourceConfig holds configuration for a mortality data source.
type SourceConfig struct {
	Type string `koanf:"type"` // duckdb, postgres

	// File-based (DuckDB)
	Path string `koanf:"path"` // database file; empty for in-memory
	CSV  string `koanf:"csv"`  // CSV of observations to ingest

	// Network databases
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	User     string            `koanf:"user"`
	Password string            `koanf:"password"`
	Database string            `koanf:"database"`
	Options  map[string]string `koanf:"options"`

	// Shape of the observation table
	Table        string `koanf:"table"`
	DateColumn   string `koanf:"date_column"`
	RegionColumn string `koanf:"region_column"`
	ValueColumn  string `koanf:"value_column"`

	// Query overrides the generated aggregation. It must return
	// region, week, value columns in that order.
	Query string `koanf:"query"`

	// Regions restricts loading to the listed regions.
	Regions []string `koanf:"region_filter"`
}

// Default observation table shape.
const (
	DefaultTable        = "observations"
	DefaultDateColumn   = "date"
	DefaultRegionColumn = "region"
	DefaultValueColumn  = "deaths"
)

// ApplyDefaults fills unset table and column names.
func (c *SourceConfig) ApplyDefaults() {
	if c.Table == "" {
		c.Table = DefaultTable
	}
	if c.DateColumn == "" {
		c.DateColumn = DefaultDateColumn
	}
	if c.RegionColumn == "" {
		c.RegionColumn = DefaultRegionColumn
	}
	if c.ValueColumn == "" {
		c.ValueColumn = DefaultValueColumn
	}
	if c.Type == "postgres" && c.Port == 0 {
		c.Port = 5432
	}
}

// Describe returns a short human label for the source, without credentials.
func (c SourceConfig) Describe() string {
	switch {
	case c.CSV != "":
		return c.Type + ":" + c.CSV
	case c.Host != "":
		return c.Type + "://" + c.Host + "/" + c.Database
	case c.Path != "":
		return c.Type + ":" + c.Path
	default:
		return c.Type
	}
}
