package synth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/commission-staging/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// rec builds one flat split record with the common defaults.
func rec(cert, group, product, plan string, seq, tier int, pct float64, broker string) model.CertificateSplitRecord {
	return model.CertificateSplitRecord{
		CertificateID: cert,
		GroupID:       group,
		GroupName:     "ACME INC",
		EffectiveDate: date(2024, time.March, 1),
		ProductCode:   product,
		PlanCode:      plan,
		SitusState:    "TX",
		SplitSequence: seq,
		SplitPercent:  pct,
		TierLevel:     tier,
		BrokerID:      broker,
		BrokerName:    "Broker " + broker,
		ScheduleCode:  "SCH-A",
	}
}

func TestExtract_GroupsByCertificate(t *testing.T) {
	records := []model.CertificateSplitRecord{
		rec("C-002", "G1001", "DEN", "P1", 1, 1, 100, "BRK-1"),
		rec("C-001", "G1001", "DEN", "P1", 1, 2, 60, "BRK-2"),
		rec("C-001", "G1001", "DEN", "P1", 1, 1, 60, "BRK-1"),
		rec("C-001", "G1001", "VIS", "P2", 2, 1, 40, "BRK-3"),
	}

	result, err := NewExtractor().Extract(records)
	require.NoError(t, err)
	require.Len(t, result.Criteria, 2)

	// Sorted certificate order.
	assert.Equal(t, "C-001", result.Criteria[0].CertificateID)
	assert.Equal(t, "C-002", result.Criteria[1].CertificateID)

	c1 := result.Criteria[0]
	require.Len(t, c1.Config.Participants, 2)

	// Split 1 carries two tiers ordered by level.
	split1 := c1.Config.Participants[0]
	assert.Equal(t, 1, split1.SplitSequence)
	assert.Equal(t, 60.0, split1.SplitPercent)
	require.Len(t, split1.Tiers, 2)
	assert.Equal(t, 1, split1.Tiers[0].Level)
	assert.Equal(t, "BRK-1", split1.Tiers[0].BrokerID)
	assert.Equal(t, 2, split1.Tiers[1].Level)

	assert.InDelta(t, 100.0, c1.Config.TotalPercent, 1e-9)
	assert.ElementsMatch(t, []model.ProductPlan{
		{Product: "DEN", Plan: "P1"},
		{Product: "VIS", Plan: "P2"},
	}, c1.Pairs)
}

func TestExtract_EarliestEffectiveDate(t *testing.T) {
	early := rec("C-001", "G1001", "DEN", "P1", 1, 1, 100, "BRK-1")
	early.EffectiveDate = date(2023, time.June, 15)
	late := rec("C-001", "G1001", "DEN", "P1", 1, 2, 100, "BRK-2")
	late.EffectiveDate = date(2024, time.January, 1)

	result, err := NewExtractor().Extract([]model.CertificateSplitRecord{late, early})
	require.NoError(t, err)
	require.Len(t, result.Criteria, 1)
	assert.Equal(t, date(2023, time.June, 15), result.Criteria[0].EffectiveDate)
}

func TestExtract_IdenticalStructureSharesConfigHash(t *testing.T) {
	records := []model.CertificateSplitRecord{
		rec("C-001", "G1001", "DEN", "P1", 1, 1, 100, "BRK-1"),
		rec("C-002", "G1001", "DEN", "P1", 1, 1, 100, "BRK-1"),
	}

	result, err := NewExtractor().Extract(records)
	require.NoError(t, err)
	require.Len(t, result.Criteria, 2)
	assert.Equal(t, result.Criteria[0].Config.ConfigHash, result.Criteria[1].Config.ConfigHash)
}

func TestExtract_PaidBrokerExcludedFromHash(t *testing.T) {
	plain := rec("C-001", "G1001", "DEN", "P1", 1, 1, 100, "BRK-1")
	reassigned := rec("C-002", "G1001", "DEN", "P1", 1, 1, 100, "BRK-1")
	reassigned.PaidBrokerID = "BRK-9"
	reassigned.PaidBrokerName = "Broker BRK-9"

	result, err := NewExtractor().Extract([]model.CertificateSplitRecord{plain, reassigned})
	require.NoError(t, err)
	require.Len(t, result.Criteria, 2)

	assert.Equal(t,
		result.Criteria[0].Config.Participants[0].HierarchyHash,
		result.Criteria[1].Config.Participants[0].HierarchyHash,
	)
	assert.Equal(t, result.Criteria[0].Config.ConfigHash, result.Criteria[1].Config.ConfigHash)
}

func TestExtract_ReassignmentLatestWins(t *testing.T) {
	older := rec("C-001", "G1001", "DEN", "P1", 1, 1, 100, "BRK-1")
	older.EffectiveDate = date(2023, time.January, 1)
	older.PaidBrokerID = "BRK-8"
	older.PaidBrokerName = "Old Target"

	newer := rec("C-002", "G1001", "DEN", "P1", 1, 1, 100, "BRK-1")
	newer.EffectiveDate = date(2024, time.July, 1)
	newer.PaidBrokerID = "BRK-9"
	newer.PaidBrokerName = "New Target"

	// Self-payment and empty targets never enter the ledger.
	self := rec("C-003", "G1001", "DEN", "P1", 1, 1, 100, "BRK-2")
	self.PaidBrokerID = "BRK-2"

	result, err := NewExtractor().Extract([]model.CertificateSplitRecord{older, newer, self})
	require.NoError(t, err)

	require.Len(t, result.Reassignments, 1)
	ra := result.Reassignments[0]
	assert.Equal(t, "BRK-1", ra.SourceBrokerID)
	assert.Equal(t, "BRK-9", ra.TargetBrokerID)
	assert.Equal(t, "C-002", ra.CertificateID)
	assert.Equal(t, date(2024, time.July, 1), ra.EffectiveDate)
}

func TestExtract_EmptyProductPairsSkipped(t *testing.T) {
	blank := rec("C-001", "G1001", "", "P1", 1, 1, 100, "BRK-1")
	valid := rec("C-001", "G1001", "DEN", "P1", 2, 1, 0, "BRK-2")

	result, err := NewExtractor().Extract([]model.CertificateSplitRecord{blank, valid})
	require.NoError(t, err)
	require.Len(t, result.Criteria, 1)

	assert.Equal(t, 1, result.EmptyPairsSkipped)
	assert.Equal(t, []model.ProductPlan{{Product: "DEN", Plan: "P1"}}, result.Criteria[0].Pairs)
}
