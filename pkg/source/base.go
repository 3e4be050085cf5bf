// Package source provides the registry of mortality data sources and the
// database/sql plumbing they share.
package source

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/core"
)

// BaseSQLSource provides common database/sql functionality for sources.
// Embed this struct in concrete sources and set DB and Cfg in Connect.
type BaseSQLSource struct {
	DB     *sql.DB
	Cfg    core.SourceConfig
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLSource) Close() error {
	if b.DB != nil {
		b.logger().Debug("closing source connection")
		return b.DB.Close()
	}
	return nil
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLSource) Exec(ctx context.Context, sqlStr string) error {
	if b.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	if _, err := b.DB.ExecContext(ctx, sqlStr); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// Load runs the configured query, or the generated weekly aggregation, and
// groups the rows into one series per region.
func (b *BaseSQLSource) Load(ctx context.Context) ([]core.Series, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	query := b.Cfg.Query
	if query == "" {
		query = WeeklyQuery(b.Cfg)
	}
	b.logger().Debug("loading series", slog.String("query", query))

	rows, err := b.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var obs []Observation
	for rows.Next() {
		var (
			o     Observation
			value sql.NullFloat64
		)
		if err := rows.Scan(&o.Region, &o.Week, &value); err != nil {
			return nil, fmt.Errorf("failed to scan observation (query must return region, week, value): %w", err)
		}
		o.Value = math.NaN()
		if value.Valid {
			o.Value = value.Float64
		}
		obs = append(obs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating observations: %w", err)
	}

	series, err := Group(obs, b.Cfg.Regions)
	if err != nil {
		return nil, err
	}
	b.logger().Debug("loaded series", slog.Int("regions", len(series)), slog.Int("rows", len(obs)))
	return series, nil
}

func (b *BaseSQLSource) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

// Observation is one aggregated row returned by a source query.
type Observation struct {
	Region string
	Week   time.Time
	Value  float64
}

// ErrReservedRegion is returned when data uses the pooled evaluation name
// as a region.
var ErrReservedRegion = fmt.Errorf("region name %q is reserved for pooled evaluations", core.PooledRegion)

// Group builds one series per region, sorted by region and week. Rows for
// the same region and week are summed; missing values only count when no
// other row reports the week. When regions is non-empty, other regions are
// dropped.
func Group(obs []Observation, regions []string) ([]core.Series, error) {
	keep := func(string) bool { return true }
	if len(regions) > 0 {
		keep = func(r string) bool { return slices.Contains(regions, r) }
	}

	byRegion := make(map[string]map[time.Time]float64)
	for _, o := range obs {
		if !keep(o.Region) {
			continue
		}
		if o.Region == core.PooledRegion {
			return nil, ErrReservedRegion
		}
		weeks, ok := byRegion[o.Region]
		if !ok {
			weeks = make(map[time.Time]float64)
			byRegion[o.Region] = weeks
		}
		week := o.Week.UTC()
		prev, seen := weeks[week]
		switch {
		case !seen || math.IsNaN(prev):
			weeks[week] = o.Value
		case !math.IsNaN(o.Value):
			weeks[week] = prev + o.Value
		}
	}

	out := make([]core.Series, 0, len(byRegion))
	for region, weeks := range byRegion {
		s := core.Series{Region: region, Points: make([]core.Point, 0, len(weeks))}
		for week, v := range weeks {
			s.Points = append(s.Points, core.Point{Week: week, Value: v})
		}
		slices.SortFunc(s.Points, func(a, b core.Point) int { return a.Week.Compare(b.Week) })
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b core.Series) int { return strings.Compare(a.Region, b.Region) })
	return out, nil
}

// WeeklyQuery builds the default aggregation of daily observations into
// weekly sums per region. Weeks start on Monday.
func WeeklyQuery(cfg core.SourceConfig) string {
	cfg.ApplyDefaults()
	return fmt.Sprintf(`SELECT
	CAST(%[1]s AS VARCHAR) AS region,
	CAST(date_trunc('week', CAST(%[2]s AS DATE)) AS DATE) AS week,
	CAST(SUM(%[3]s) AS DOUBLE PRECISION) AS value
FROM %[4]s
WHERE %[2]s IS NOT NULL
GROUP BY 1, 2
ORDER BY 1, 2`,
		QuoteIdent(cfg.RegionColumn),
		QuoteIdent(cfg.DateColumn),
		QuoteIdent(cfg.ValueColumn),
		QuoteQualified(cfg.Table),
	)
}

// QuoteIdent quotes a SQL identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteQualified quotes each part of a dotted name such as schema.table.
func QuoteQualified(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = QuoteIdent(p)
	}
	return strings.Join(parts, ".")
}

// QuoteLiteral quotes a SQL string literal.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
