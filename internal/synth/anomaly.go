package synth

import (
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/commission-staging/internal/model"
)

// percentTolerance absorbs float noise in split percents, which carry at
// most two decimal places in the source feed.
const percentTolerance = 1e-6

// Thresholds configure anomaly routing. These are operator tunables, not
// business rules; see config defaults.
type Thresholds struct {
	// EntropyRouting enables the statistical group checks. The hard
	// split-percent conformance check always runs.
	EntropyRouting bool

	// MaxUniqueRatio quarantines a group when #clusters / #criteria
	// exceeds it.
	MaxUniqueRatio float64

	// MaxEntropyBits quarantines a group when the Shannon entropy (base 2)
	// of its cluster-size distribution exceeds it.
	MaxEntropyBits float64

	// MinDominantCoverage quarantines a group when the largest cluster's
	// share of criteria falls below it.
	MinDominantCoverage float64

	// MinClusterSize quarantines individual clusters smaller than it.
	MinClusterSize int
}

// RouteResult partitions criteria into conformant and quarantined sets.
type RouteResult struct {
	Accepted    []model.SelectionCriteria
	Quarantined []model.QuarantinedCriteria
}

// CheckSplitPercent applies the hard conformance check: any criteria whose
// split percents do not total 100 is quarantined immediately and removed
// from further processing.
func CheckSplitPercent(criteria []model.SelectionCriteria) RouteResult {
	var out RouteResult
	for _, c := range criteria {
		if math.Abs(c.Config.TotalPercent-100) > percentTolerance {
			out.Quarantined = append(out.Quarantined, model.QuarantinedCriteria{
				Criteria: c,
				Reason:   model.ReasonSplitPercentMismatch,
			})
			continue
		}
		out.Accepted = append(out.Accepted, c)
	}
	return out
}

// RouteGroup classifies one group's conformant criteria. Invalid group ids
// quarantine the whole group. With entropy routing enabled, a group that is
// too fragmented to trust as a stable commission structure is quarantined
// wholesale, and undersized clusters within an otherwise healthy group are
// quarantined as human-error outliers.
func RouteGroup(groupID string, criteria []model.SelectionCriteria, th Thresholds) RouteResult {
	if len(criteria) == 0 {
		return RouteResult{}
	}

	if InvalidGroupID(groupID) {
		return quarantineAll(criteria, model.ReasonInvalidGroup)
	}

	if !th.EntropyRouting {
		return RouteResult{Accepted: criteria}
	}

	clusters := clusterByConfig(criteria)
	m := measureGroup(clusters, len(criteria))

	if m.UniqueRatio > th.MaxUniqueRatio ||
		m.EntropyBits > th.MaxEntropyBits ||
		m.DominantCoverage < th.MinDominantCoverage {
		zap.L().Warn("group quarantined as high entropy",
			zap.String("component", "synth.anomaly"),
			zap.String("group", groupID),
			zap.Float64("unique_ratio", m.UniqueRatio),
			zap.Float64("entropy_bits", m.EntropyBits),
			zap.Float64("dominant_coverage", m.DominantCoverage),
		)
		return quarantineAll(criteria, model.ReasonHighEntropyGroup)
	}

	var out RouteResult
	for _, c := range criteria {
		if len(clusters[c.Config.ConfigHash]) < th.MinClusterSize {
			out.Quarantined = append(out.Quarantined, model.QuarantinedCriteria{
				Criteria: c,
				Reason:   model.ReasonHumanErrorOutlier,
			})
			continue
		}
		out.Accepted = append(out.Accepted, c)
	}
	return out
}

// GroupMetrics holds the statistical measurements for one group's clusters.
type GroupMetrics struct {
	Clusters         int
	Criteria         int
	UniqueRatio      float64
	DominantCoverage float64
	EntropyBits      float64
}

// InvalidGroupID reports whether a group id is structurally invalid: empty,
// all zeros, or a "G" prefix followed by all zeros.
func InvalidGroupID(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return true
	}
	digits := id
	if digits[0] == 'G' || digits[0] == 'g' {
		digits = digits[1:]
	}
	if digits == "" {
		return false // a bare "G" is odd but not the all-zero pattern
	}
	for _, r := range digits {
		if r != '0' {
			return false
		}
	}
	return true
}

func clusterByConfig(criteria []model.SelectionCriteria) map[string][]model.SelectionCriteria {
	clusters := make(map[string][]model.SelectionCriteria)
	for _, c := range criteria {
		clusters[c.Config.ConfigHash] = append(clusters[c.Config.ConfigHash], c)
	}
	return clusters
}

func measureGroup(clusters map[string][]model.SelectionCriteria, n int) GroupMetrics {
	sizes := make([]int, 0, len(clusters))
	for _, members := range clusters {
		sizes = append(sizes, len(members))
	}
	sort.Ints(sizes)

	probs := make([]float64, len(sizes))
	largest := 0
	for i, size := range sizes {
		probs[i] = float64(size) / float64(n)
		if size > largest {
			largest = size
		}
	}

	return GroupMetrics{
		Clusters:         len(clusters),
		Criteria:         n,
		UniqueRatio:      float64(len(clusters)) / float64(n),
		DominantCoverage: float64(largest) / float64(n),
		// stat.Entropy works in nats; the thresholds are in bits.
		EntropyBits: stat.Entropy(probs) / math.Ln2,
	}
}

func quarantineAll(criteria []model.SelectionCriteria, reason model.QuarantineReason) RouteResult {
	out := RouteResult{Quarantined: make([]model.QuarantinedCriteria, len(criteria))}
	for i, c := range criteria {
		out.Quarantined[i] = model.QuarantinedCriteria{Criteria: c, Reason: reason}
	}
	return out
}
