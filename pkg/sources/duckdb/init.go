package duckdb

import (
	"log/slog"

	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/core"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/source"
)

// Import this package with a blank identifier to register the source:
//
//	import _ "github.com/AmalBilal1/covid19-anomaly-detection/pkg/sources/duckdb"
func init() {
	source.Register("duckdb", func(logger *slog.Logger) core.Source { return New(logger) })
}
