package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLookups(t *testing.T) {
	dir := t.TempDir()

	schedulePath := filepath.Join(dir, "schedules.csv")
	require.NoError(t, os.WriteFile(schedulePath, []byte("schedule_code,schedule_id\nSCH-A,42\nSCH-B,43\n"), 0o644))

	brokerPath := filepath.Join(dir, "brokers.csv")
	require.NoError(t, os.WriteFile(brokerPath, []byte("broker_id,mapped_id\nBRK-1,NB-100\n"), 0o644))

	lookups, err := LoadLookups(schedulePath, brokerPath)
	require.NoError(t, err)

	assert.Equal(t, int64(42), lookups.ScheduleIDs["SCH-A"])
	assert.Equal(t, int64(43), lookups.ScheduleIDs["SCH-B"])
	assert.Equal(t, "NB-100", lookups.BrokerIDs["BRK-1"])

	// Pass-through for unmapped brokers.
	assert.Equal(t, "BRK-7", lookups.ResolveBroker("BRK-7"))
	assert.Equal(t, "NB-100", lookups.ResolveBroker("BRK-1"))
}

func TestLoadLookups_EmptyPaths(t *testing.T) {
	lookups, err := LoadLookups("", "")
	require.NoError(t, err)

	assert.Empty(t, lookups.ScheduleIDs)
	assert.Empty(t, lookups.BrokerIDs)
	assert.Equal(t, "BRK-1", lookups.ResolveBroker("BRK-1"))
}

func TestLoadLookups_MissingFile(t *testing.T) {
	_, err := LoadLookups(filepath.Join(t.TempDir(), "missing.csv"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schedule map")
}
