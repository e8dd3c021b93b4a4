package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `certificate_id,group_id,group_name,effective_date,product_code,plan_code,cert_status,situs_state,premium,split_sequence,split_percent,tier_level,broker_id,broker_name,broker_npn,schedule_code,paid_broker_id,paid_broker_name
C-001,G1001,ACME INC,2024-03-15,DEN,P1,A,TX,120.50,1,100,1,BRK-1,First Broker,1234,SCH-A,,
C-002,G1001,ACME INC,2024-04-01,DEN,P1,T,TX,99.00,1,100,1,BRK-1,First Broker,1234,SCH-A,,
C-003,G1001,ACME INC,2024-05-01,VIS,P2,,OK,80.00,1,100,1,BRK-2,Second Broker,5678,SCH-B,BRK-9,Paid Broker
`

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "splits.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSV_Load(t *testing.T) {
	l := NewCSV(writeTempCSV(t, sampleCSV))

	records, err := l.Load(context.Background())
	require.NoError(t, err)

	// C-002 is terminated and skipped; blank status counts as active.
	require.Len(t, records, 2)

	assert.Equal(t, "C-001", records[0].CertificateID)
	assert.Equal(t, "G1001", records[0].GroupID)
	assert.Equal(t, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), records[0].EffectiveDate)
	assert.Equal(t, 120.50, records[0].Premium)
	assert.Equal(t, 100.0, records[0].SplitPercent)

	assert.Equal(t, "C-003", records[1].CertificateID)
	assert.Equal(t, "BRK-9", records[1].PaidBrokerID)
}

func TestCSV_LoadMissingFile(t *testing.T) {
	_, err := NewCSV(filepath.Join(t.TempDir(), "missing.csv")).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open csv")
}

func TestCSV_LoadBadDate(t *testing.T) {
	content := `certificate_id,group_id,group_name,effective_date,product_code,plan_code,cert_status,situs_state,premium,split_sequence,split_percent,tier_level,broker_id,broker_name,broker_npn,schedule_code,paid_broker_id,paid_broker_name
C-001,G1001,ACME INC,garbage,DEN,P1,A,TX,1,1,100,1,BRK-1,First Broker,1234,SCH-A,,
`
	_, err := NewCSV(writeTempCSV(t, content)).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "C-001")
}

func TestCSV_LoadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCSV(writeTempCSV(t, sampleCSV)).Load(ctx)
	assert.Error(t, err)
}
