package postgres

import (
	"log/slog"

	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/core"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/source"
)

func init() {
	source.Register("postgres", func(logger *slog.Logger) core.Source { return New(logger) })
	source.RegisterAlias("postgresql", "postgres")
	source.RegisterAlias("pg", "postgres")
}
