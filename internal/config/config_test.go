package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chTempDir changes into an empty dir so no config.yaml is found.
func chTempDir(t *testing.T) {
	t.Helper()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "commstage.db", cfg.Store.SQLitePath)
	assert.Equal(t, "postgres", cfg.Source.Driver)
	assert.Equal(t, "commission_src.certificate_splits", cfg.Source.Table)

	assert.True(t, cfg.Synth.EntropyRouting)
	assert.InDelta(t, 0.8, cfg.Synth.MaxUniqueRatio, 0.001)
	assert.InDelta(t, 2.5, cfg.Synth.MaxEntropyBits, 0.001)
	assert.InDelta(t, 0.3, cfg.Synth.MinDominantCoverage, 0.001)
	assert.Equal(t, 2, cfg.Synth.MinClusterSize)
	assert.Equal(t, 4, cfg.Synth.Workers)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverride(t *testing.T) {
	chTempDir(t)
	t.Setenv("COMMSTAGE_SOURCE_DRIVER", "csv")
	t.Setenv("COMMSTAGE_SYNTH_WORKERS", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "csv", cfg.Source.Driver)
	assert.Equal(t, 8, cfg.Synth.Workers)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "nonsense", Format: "json"})
	require.Error(t, err)
}
