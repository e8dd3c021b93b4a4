package model

import "time"

// Staging output rows. Every id is a deterministic string derived from its
// owning entity's id plus a role suffix, so repeated runs over identical
// input are reproducible byte for byte.

// ProposalRow is one staged proposal.
type ProposalRow struct {
	ID                string
	GroupID           string
	GroupName         string
	ConfigHash        string
	PrimaryBrokerID   string
	PrimaryBrokerName string
	EffectiveFrom     time.Time
	EffectiveTo       time.Time
	CertificateCount  int
	Continuation      bool
	SourceProposalID  string
}

// ProposalProductRow is one product covered by a proposal.
type ProposalProductRow struct {
	ID          string
	ProposalID  string
	ProductCode string
}

// KeyMappingRow maps (group, year, product, plan) to a proposal for
// downstream effective-dated joins.
type KeyMappingRow struct {
	ID          string
	ProposalID  string
	GroupID     string
	Year        int
	ProductCode string
	PlanCode    string
}

// HierarchyRow is one staged payout hierarchy, owned by exactly one proposal.
type HierarchyRow struct {
	ID            string
	ProposalID    string
	GroupID       string
	SplitSequence int
	SplitPercent  float64
	HierarchyHash string
}

// HierarchyVersionRow is the current version of a hierarchy.
type HierarchyVersionRow struct {
	ID            string
	HierarchyID   string
	EffectiveFrom time.Time
	EffectiveTo   time.Time
}

// HierarchyParticipantRow is one broker at one tier of a hierarchy version.
type HierarchyParticipantRow struct {
	ID           string
	VersionID    string
	TierLevel    int
	BrokerID     string
	BrokerName   string
	BrokerNPN    string
	ScheduleCode string
	ScheduleID   int64 // 0 when the schedule code did not resolve
	PaidBrokerID string
}

// StateRuleRow scopes a hierarchy to one observed situs state. One rule is
// emitted per observed state, never a generic default.
type StateRuleRow struct {
	ID          string
	HierarchyID string
	SitusState  string
}

// ProductSplitRow is one product active for a state rule.
type ProductSplitRow struct {
	ID          string
	StateRuleID string
	ProductCode string
}

// SplitDistributionRow assigns a participant its equal share of a product
// split.
type SplitDistributionRow struct {
	ID             string
	ProductSplitID string
	ParticipantID  string
	Percent        float64
}

// QuarantineRow is one PHA record: a (certificate, split) routed around
// proposal aggregation. It owns its private hierarchy (the participant rows
// below), never deduplicated because the target store enforces uniqueness.
type QuarantineRow struct {
	ID            string
	CertificateID string
	GroupID       string
	GroupName     string
	Reason        QuarantineReason
	SplitSequence int
	SplitPercent  float64
	EffectiveDate time.Time
	SitusState    string
	ProductCode   string
	PlanCode      string
	HierarchyHash string
}

// QuarantineParticipantRow is one tier of a PHA record's private hierarchy.
type QuarantineParticipantRow struct {
	ID           string
	QuarantineID string
	TierLevel    int
	BrokerID     string
	BrokerName   string
	BrokerNPN    string
	ScheduleCode string
	ScheduleID   int64
	PaidBrokerID string
}

// ReassignmentRow is one broker-level payment reassignment.
type ReassignmentRow struct {
	ID               string
	SourceBrokerID   string
	SourceBrokerName string
	TargetBrokerID   string
	TargetBrokerName string
	CertificateID    string
	EffectiveDate    time.Time
}

// OutputSet is the complete staging output of one batch.
type OutputSet struct {
	Proposals          []ProposalRow
	ProposalProducts   []ProposalProductRow
	KeyMappings        []KeyMappingRow
	Hierarchies        []HierarchyRow
	Versions           []HierarchyVersionRow
	Participants       []HierarchyParticipantRow
	StateRules         []StateRuleRow
	ProductSplits      []ProductSplitRow
	SplitDistributions []SplitDistributionRow
	Quarantine         []QuarantineRow
	QuarantineTiers    []QuarantineParticipantRow
	Reassignments      []ReassignmentRow
}

// RowCount returns the total number of staged rows across all record sets.
func (o *OutputSet) RowCount() int {
	return len(o.Proposals) + len(o.ProposalProducts) + len(o.KeyMappings) +
		len(o.Hierarchies) + len(o.Versions) + len(o.Participants) +
		len(o.StateRules) + len(o.ProductSplits) + len(o.SplitDistributions) +
		len(o.Quarantine) + len(o.QuarantineTiers) + len(o.Reassignments)
}
