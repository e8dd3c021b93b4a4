package synth

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/commission-staging/internal/model"
)

func defaultThresholds() Thresholds {
	return Thresholds{
		EntropyRouting:      true,
		MaxUniqueRatio:      0.8,
		MaxEntropyBits:      2.5,
		MinDominantCoverage: 0.3,
		MinClusterSize:      2,
	}
}

// crit builds a conformant criteria carrying a given config hash.
func crit(cert, group, configHash string) model.SelectionCriteria {
	return model.SelectionCriteria{
		CertificateID: cert,
		GroupID:       group,
		EffectiveDate: date(2024, 3, 1),
		Config: model.SplitConfiguration{
			TotalPercent: 100,
			ConfigHash:   configHash,
			Participants: []model.SplitParticipant{
				{SplitSequence: 1, SplitPercent: 100, HierarchyHash: "h-" + configHash},
			},
		},
	}
}

func TestCheckSplitPercent(t *testing.T) {
	good := crit("C-001", "G1001", "cfg-a")
	bad := crit("C-002", "G1001", "cfg-b")
	bad.Config.TotalPercent = 95
	noise := crit("C-003", "G1001", "cfg-c")
	noise.Config.TotalPercent = 100 + 1e-9 // float noise within tolerance

	out := CheckSplitPercent([]model.SelectionCriteria{good, bad, noise})

	require.Len(t, out.Accepted, 2)
	require.Len(t, out.Quarantined, 1)
	assert.Equal(t, "C-002", out.Quarantined[0].Criteria.CertificateID)
	assert.Equal(t, model.ReasonSplitPercentMismatch, out.Quarantined[0].Reason)
}

func TestInvalidGroupID(t *testing.T) {
	tests := []struct {
		id      string
		invalid bool
	}{
		{"", true},
		{"   ", true},
		{"0", true},
		{"0000", true},
		{"G0000", true},
		{"g000", true},
		{"G", false}, // odd but not the all-zero pattern
		{"G1001", false},
		{"1001", false},
		{"G0001", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.invalid, InvalidGroupID(tt.id), "id: %q", tt.id)
	}
}

func TestRouteGroup_InvalidGroupQuarantinesAll(t *testing.T) {
	criteria := []model.SelectionCriteria{
		crit("C-001", "G0000", "cfg-a"),
		crit("C-002", "G0000", "cfg-a"),
	}

	out := RouteGroup("G0000", criteria, defaultThresholds())

	assert.Empty(t, out.Accepted)
	require.Len(t, out.Quarantined, 2)
	for _, q := range out.Quarantined {
		assert.Equal(t, model.ReasonInvalidGroup, q.Reason)
	}
}

func TestRouteGroup_RoutingDisabledAcceptsAll(t *testing.T) {
	th := defaultThresholds()
	th.EntropyRouting = false

	// Every criteria unique: would be quarantined with routing on.
	var criteria []model.SelectionCriteria
	for i := 0; i < 5; i++ {
		criteria = append(criteria, crit(fmt.Sprintf("C-%03d", i+1), "G1001", fmt.Sprintf("cfg-%d", i)))
	}

	out := RouteGroup("G1001", criteria, th)
	assert.Len(t, out.Accepted, 5)
	assert.Empty(t, out.Quarantined)
}

func TestRouteGroup_HighEntropyGroupQuarantined(t *testing.T) {
	// All configurations distinct: unique ratio 1.0 exceeds the threshold.
	var criteria []model.SelectionCriteria
	for i := 0; i < 6; i++ {
		criteria = append(criteria, crit(fmt.Sprintf("C-%03d", i+1), "G1001", fmt.Sprintf("cfg-%d", i)))
	}

	out := RouteGroup("G1001", criteria, defaultThresholds())

	assert.Empty(t, out.Accepted)
	require.Len(t, out.Quarantined, 6)
	for _, q := range out.Quarantined {
		assert.Equal(t, model.ReasonHighEntropyGroup, q.Reason)
	}
}

func TestRouteGroup_UndersizedClusterIsOutlier(t *testing.T) {
	// Five criteria share a dominant configuration, one is a singleton.
	var criteria []model.SelectionCriteria
	for i := 0; i < 5; i++ {
		criteria = append(criteria, crit(fmt.Sprintf("C-%03d", i+1), "G1001", "cfg-dominant"))
	}
	criteria = append(criteria, crit("C-006", "G1001", "cfg-typo"))

	out := RouteGroup("G1001", criteria, defaultThresholds())

	assert.Len(t, out.Accepted, 5)
	require.Len(t, out.Quarantined, 1)
	assert.Equal(t, "C-006", out.Quarantined[0].Criteria.CertificateID)
	assert.Equal(t, model.ReasonHumanErrorOutlier, out.Quarantined[0].Reason)
}

func TestMeasureGroup(t *testing.T) {
	clusters := map[string][]model.SelectionCriteria{
		"cfg-a": {crit("C-001", "G1", "cfg-a"), crit("C-002", "G1", "cfg-a")},
		"cfg-b": {crit("C-003", "G1", "cfg-b"), crit("C-004", "G1", "cfg-b")},
	}

	m := measureGroup(clusters, 4)

	assert.Equal(t, 2, m.Clusters)
	assert.Equal(t, 4, m.Criteria)
	assert.InDelta(t, 0.5, m.UniqueRatio, 1e-9)
	assert.InDelta(t, 0.5, m.DominantCoverage, 1e-9)
	// Two equal clusters: exactly one bit of entropy.
	assert.InDelta(t, 1.0, m.EntropyBits, 1e-9)
}

func TestRouteGroup_Empty(t *testing.T) {
	out := RouteGroup("G1001", nil, defaultThresholds())
	assert.Empty(t, out.Accepted)
	assert.Empty(t, out.Quarantined)
}
