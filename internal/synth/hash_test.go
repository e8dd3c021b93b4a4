package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/commission-staging/internal/model"
)

func init() {
	// Replace global logger with a no-op to avoid nil pointer panics in tests.
	zap.ReplaceGlobals(zap.NewNop())
}

func TestHashRegistry_Deterministic(t *testing.T) {
	r := NewHashRegistry()

	first, err := r.Sum("h|G1001|50|1:BRK-1:SCH-A")
	require.NoError(t, err)
	second, err := r.Sum("h|G1001|50|1:BRK-1:SCH-A")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)

	canonical, ok := r.Canonical(first)
	assert.True(t, ok)
	assert.Equal(t, "h|G1001|50|1:BRK-1:SCH-A", canonical)
}

func TestHashRegistry_DistinctInputs(t *testing.T) {
	r := NewHashRegistry()

	a, err := r.Sum("h|G1001|50|1:BRK-1:SCH-A")
	require.NoError(t, err)
	b, err := r.Sum("h|G1001|50|1:BRK-2:SCH-A")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHashRegistry_CollisionDetected(t *testing.T) {
	r := NewHashRegistry()

	digest, err := r.Sum("h|G1001|50|1:BRK-1:SCH-A")
	require.NoError(t, err)

	// Force a stored input under the digest we are about to produce again.
	r.inputs[digest] = "something else entirely"

	_, err = r.Sum("h|G1001|50|1:BRK-1:SCH-A")
	require.Error(t, err)

	var collision *CollisionError
	require.ErrorAs(t, err, &collision)
	assert.Equal(t, digest, collision.Digest)
	assert.Equal(t, "something else entirely", collision.First)
	assert.Contains(t, collision.Error(), "hash collision")
}

func TestVerifyHierarchyRefs(t *testing.T) {
	r := NewHashRegistry()
	digest, err := r.Sum("h|G1001|50|1:BRK-1:SCH-A")
	require.NoError(t, err)

	p := &model.Proposal{
		ID: "PR-000001",
		Config: model.SplitConfiguration{
			Participants: []model.SplitParticipant{{SplitSequence: 1, SplitPercent: 50, HierarchyHash: digest}},
		},
		Hierarchies: []model.ProposalHierarchy{{ID: "PR-000001-H01", HierarchyHash: digest}},
	}
	q := model.QuarantinedCriteria{
		Reason: model.ReasonSplitPercentMismatch,
		Criteria: model.SelectionCriteria{
			CertificateID: "C-BAD",
			Config: model.SplitConfiguration{
				Participants: []model.SplitParticipant{{SplitSequence: 1, HierarchyHash: digest}},
			},
		},
	}

	require.NoError(t, VerifyHierarchyRefs(r, []*model.Proposal{p}, []model.QuarantinedCriteria{q}))
}

func TestVerifyHierarchyRefs_DanglingHash(t *testing.T) {
	r := NewHashRegistry()

	p := &model.Proposal{
		ID: "PR-000001",
		Config: model.SplitConfiguration{
			Participants: []model.SplitParticipant{{SplitSequence: 1, HierarchyHash: "deadbeef"}},
		},
	}

	err := VerifyHierarchyRefs(r, []*model.Proposal{p}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dangling hierarchy hash")
	assert.Contains(t, err.Error(), "PR-000001")
}

func TestHierarchyCanonical_ExcludesPaidBroker(t *testing.T) {
	tiers := []model.HierarchyTier{
		{Level: 1, BrokerID: "BRK-1", ScheduleCode: "SCH-A", PaidBrokerID: "BRK-9"},
		{Level: 2, BrokerID: "BRK-2", ScheduleCode: "SCH-B"},
	}
	withoutPaid := []model.HierarchyTier{
		{Level: 1, BrokerID: "BRK-1", ScheduleCode: "SCH-A"},
		{Level: 2, BrokerID: "BRK-2", ScheduleCode: "SCH-B"},
	}

	assert.Equal(t,
		hierarchyCanonical("G1001", 50, withoutPaid),
		hierarchyCanonical("G1001", 50, tiers),
	)
	assert.Equal(t, "h|G1001|50|1:BRK-1:SCH-A|2:BRK-2:SCH-B", hierarchyCanonical("G1001", 50, tiers))
}

func TestConfigCanonical_OrderInvariant(t *testing.T) {
	a := model.SplitParticipant{SplitSequence: 1, SplitPercent: 60, HierarchyHash: "aaa"}
	b := model.SplitParticipant{SplitSequence: 2, SplitPercent: 40, HierarchyHash: "bbb"}

	assert.Equal(t,
		configCanonical("G1001", []model.SplitParticipant{a, b}),
		configCanonical("G1001", []model.SplitParticipant{b, a}),
	)
	assert.Equal(t, "c|G1001|aaa:60|bbb:40", configCanonical("G1001", []model.SplitParticipant{a, b}))
}

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{100, "100"},
		{33.33, "33.33"},
		{0.5, "0.5"},
		{0, "0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatPercent(tt.in))
	}
}
