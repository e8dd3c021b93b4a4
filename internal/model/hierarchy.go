package model

// HierarchyTier is one level in a split's payout chain. Level 1 is the
// writing broker; higher levels are uplines.
type HierarchyTier struct {
	Level          int
	BrokerID       string
	BrokerName     string
	BrokerNPN      string
	ScheduleCode   string
	PaidBrokerID   string
	PaidBrokerName string
}

// SplitParticipant is one split sequence's writing broker plus its ordered
// tier chain. HierarchyHash is the content hash of (group, split percent,
// tier chain); the reassignment target is deliberately excluded from the
// hash since it tracks payment routing, not hierarchy identity.
type SplitParticipant struct {
	SplitSequence int
	SplitPercent  float64
	Tiers         []HierarchyTier
	HierarchyHash string
}

// WritingBroker returns the level-1 tier of the chain.
func (p SplitParticipant) WritingBroker() HierarchyTier {
	if len(p.Tiers) == 0 {
		return HierarchyTier{}
	}
	return p.Tiers[0]
}

// SplitConfiguration is the full set of split participants for one
// certificate. ConfigHash excludes split sequence numbers so functionally
// identical configurations merge regardless of input ordering, but preserves
// hierarchy hashes and percentages.
type SplitConfiguration struct {
	Participants []SplitParticipant // ordered by split sequence
	TotalPercent float64
	ConfigHash   string
}
