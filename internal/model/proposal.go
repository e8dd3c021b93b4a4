package model

import "time"

// Open-interval sentinels. Staging DATE columns hold these directly, so
// effective-dated lookups never deal with nullable range bounds.
var (
	OpenStart = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)
	OpenEnd   = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// Proposal is the aggregation unit keyed by (group id, configuration hash):
// one commission agreement covering a set of products and plans for a group
// over an effective date range.
type Proposal struct {
	ID            string
	GroupID       string
	GroupName     string
	ConfigHash    string
	PrimaryBroker HierarchyTier // writing broker of the lowest split sequence

	Products []string      // sorted unique
	Plans    []string      // sorted unique
	Pairs    []ProductPlan // sorted unique

	// States maps each observed situs state to the sorted products active
	// for that state.
	States map[string][]string

	CertificateIDs []string

	// OriginalFrom/To are the min/max certificate effective dates before
	// reconciliation; EffectiveFrom/To are the reconciled non-overlapping
	// interval afterward.
	OriginalFrom  time.Time
	OriginalTo    time.Time
	EffectiveFrom time.Time
	EffectiveTo   time.Time

	Config      SplitConfiguration
	Hierarchies []ProposalHierarchy

	// Continuation marks a synthesized follow-on proposal; SourceID is the
	// truncated proposal it continues.
	Continuation bool
	SourceID     string
}

// PairSet returns the proposal's covered pairs as a set.
func (p *Proposal) PairSet() map[ProductPlan]bool {
	set := make(map[ProductPlan]bool, len(p.Pairs))
	for _, pair := range p.Pairs {
		set[pair] = true
	}
	return set
}

// ProposalHierarchy is the payout chain persisted for one split within one
// proposal. Hierarchies are never shared across proposals, even when
// structurally identical, because each must be independently reassignable.
type ProposalHierarchy struct {
	ID            string
	ProposalID    string
	SplitSequence int
	SplitPercent  float64
	HierarchyHash string
	Tiers         []HierarchyTier
}
