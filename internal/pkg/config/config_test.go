package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("overlap")
	require.NoError(t, err)

	assert.Equal(t, 109800.0, cfg.Overlap.TileSize)
	assert.Equal(t, 0.1, cfg.Overlap.MinPercent)
	assert.Zero(t, cfg.Overlap.Workers)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "overlap", cfg.Telemetry.ServiceName)
	assert.False(t, cfg.Sinks.Postgres)
	assert.Equal(t, "postgres://l8s2:@localhost:5432/l8s2grid?sslmode=disable", cfg.Database.DSN())
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("L8S2_OVERLAP_MIN_PERCENT", "0.5")
	t.Setenv("L8S2_OVERLAP_WORKERS", "3")
	t.Setenv("L8S2_SINKS_NATS", "true")

	cfg, err := Load("overlap")
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Overlap.MinPercent)
	assert.Equal(t, 3, cfg.Overlap.Workers)
	assert.True(t, cfg.Sinks.NATS)
}

func TestLoad_ZeroMinPercent(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("L8S2_OVERLAP_MIN_PERCENT", "0")

	cfg, err := Load("overlap")
	require.NoError(t, err)
	assert.Zero(t, cfg.Overlap.MinPercent)
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := Config{
		Overlap: OverlapConfig{TileSize: 0, MinPercent: 120, Workers: -1},
		Log:     LogConfig{Format: "xml"},
		Server:  ServerConfig{Port: 0, ReadTimeout: 1, WriteTimeout: 1},
		Sinks:   SinksConfig{Postgres: true, Valkey: true},
	}

	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{
		"overlap.tile_size",
		"overlap.min_percent",
		"overlap.workers",
		"log.format",
		"server.port",
		"database.host",
		"database.dbname",
		"valkey.addr",
	} {
		assert.True(t, strings.Contains(msg, want), "missing %q in %s", want, msg)
	}
	assert.NotContains(t, msg, "nats.url")
}

func TestValidate_SinkSettingsOnlyWhenEnabled(t *testing.T) {
	cfg := Config{
		Overlap: OverlapConfig{TileSize: 109800, MinPercent: 0.1},
		Log:     LogConfig{Format: "text"},
		Server:  ServerConfig{Port: 8080, ReadTimeout: 10, WriteTimeout: 10},
	}
	assert.NoError(t, cfg.Validate())
}
