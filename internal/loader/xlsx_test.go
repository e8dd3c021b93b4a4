package loader

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeTempXLSX(t *testing.T, sheetName string, rows [][]string) string {
	t.Helper()

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	require.NoError(t, err)

	for _, cells := range rows {
		row := sheet.AddRow()
		for _, value := range cells {
			row.AddCell().Value = value
		}
	}

	path := filepath.Join(t.TempDir(), "splits.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func sheetRows() [][]string {
	return [][]string{
		{"certificate_id", "group_id", "group_name", "effective_date", "product_code", "plan_code",
			"cert_status", "situs_state", "premium", "split_sequence", "split_percent", "tier_level",
			"broker_id", "broker_name", "broker_npn", "schedule_code", "paid_broker_id", "paid_broker_name"},
		{"C-001", "G1001", "ACME INC", "2024-03-15", "DEN", "P1", "A", "TX", "120.50", "1", "100", "1",
			"BRK-1", "First Broker", "1234", "SCH-A", "", ""},
		{"C-002", "G1001", "ACME INC", "2024-04-01", "DEN", "P1", "TERMINATED", "TX", "99.00", "1", "100", "1",
			"BRK-1", "First Broker", "1234", "SCH-A", "", ""},
		{"", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "", ""}, // trailing blank row
	}
}

func TestXLSX_Load(t *testing.T) {
	path := writeTempXLSX(t, "Splits", sheetRows())

	records, err := NewXLSX(path, "").Load(context.Background())
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "C-001", records[0].CertificateID)
	assert.Equal(t, 120.50, records[0].Premium)
	assert.Equal(t, 100.0, records[0].SplitPercent)
}

func TestXLSX_LoadNamedSheet(t *testing.T) {
	path := writeTempXLSX(t, "Splits", sheetRows())

	records, err := NewXLSX(path, "Splits").Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = NewXLSX(path, "NoSuchSheet").Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestXLSX_LoadMissingFile(t *testing.T) {
	_, err := NewXLSX(filepath.Join(t.TempDir(), "missing.xlsx"), "").Load(context.Background())
	require.Error(t, err)
}
