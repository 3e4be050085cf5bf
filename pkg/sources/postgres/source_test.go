package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/core"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/source"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   core.SourceConfig
		expected string
	}{
		{
			name: "basic connection",
			config: core.SourceConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "sim",
				User:     "user",
				Password: "pass",
			},
			expected: "host=localhost port=5432 dbname=sim sslmode=disable user=user password=pass",
		},
		{
			name: "with custom sslmode",
			config: core.SourceConfig{
				Host:     "datasus.example.org",
				Port:     5433,
				Database: "obitos",
				User:     "reader",
				Options:  map[string]string{"sslmode": "require"},
			},
			expected: "host=datasus.example.org port=5433 dbname=obitos sslmode=require user=reader",
		},
		{
			name:     "defaults",
			config:   core.SourceConfig{Database: "sim"},
			expected: "host=localhost port=5432 dbname=sim sslmode=disable",
		},
		{
			name: "extra options sorted",
			config: core.SourceConfig{
				Host:     "db",
				Database: "sim",
				Options:  map[string]string{"search_path": "saude", "application_name": "mortwatch"},
			},
			expected: "host=db port=5432 dbname=sim sslmode=disable application_name=mortwatch search_path=saude",
		},
		{
			name: "password with space and quote",
			config: core.SourceConfig{
				Host:     "db",
				Database: "sim",
				User:     "reader",
				Password: `it's a \secret`,
			},
			expected: `host=db port=5432 dbname=sim sslmode=disable user=reader password='it\'s a \\secret'`,
		},
		{
			name: "empty option value",
			config: core.SourceConfig{
				Host:     "db",
				Database: "sim",
				Options:  map[string]string{"application_name": ""},
			},
			expected: "host=db port=5432 dbname=sim sslmode=disable application_name=''",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildDSN(tt.config))
		})
	}
}

func TestBuildDSN_ParsesBack(t *testing.T) {
	cfg := core.SourceConfig{
		Host:     "db",
		Database: "sim",
		User:     "reader",
		Password: `p@ss word'\x`,
	}

	parsed, err := pgconn.ParseConfig(buildDSN(cfg))
	require.NoError(t, err)
	assert.Equal(t, cfg.Password, parsed.Password)
	assert.Equal(t, "reader", parsed.User)
	assert.Equal(t, "sim", parsed.Database)
}

func TestSource_RejectsCSV(t *testing.T) {
	err := New(nil).Connect(context.Background(), core.SourceConfig{Type: "postgres", CSV: "obitos.csv"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not ingest CSV")
}

func TestSource_NotConnected(t *testing.T) {
	_, err := New(nil).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database connection not established")
}

func TestSelfRegistration(t *testing.T) {
	assert.True(t, source.IsRegistered("postgres"))
}
