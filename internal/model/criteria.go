package model

import "time"

// ProductPlan identifies one covered (product code, plan code) pair.
type ProductPlan struct {
	Product string
	Plan    string
}

// SelectionCriteria is one certificate's candidate contribution to a
// proposal: its group, covered pairs, effective date, situs state, and split
// configuration. Created once per certificate during extraction; either
// consumed into a proposal or redirected to quarantine, never both.
type SelectionCriteria struct {
	CertificateID string
	GroupID       string
	GroupName     string
	EffectiveDate time.Time
	SitusState    string
	Premium       float64
	Pairs         []ProductPlan // distinct, input order
	Config        SplitConfiguration
}

// QuarantineReason is the closed enumeration of quarantine causes.
type QuarantineReason string

const (
	ReasonInvalidGroup         QuarantineReason = "invalid_group"
	ReasonSplitPercentMismatch QuarantineReason = "split_percent_mismatch"
	ReasonHighEntropyGroup     QuarantineReason = "high_entropy_group"
	ReasonHumanErrorOutlier    QuarantineReason = "human_error_outlier"
)

// QuarantinedCriteria is a certificate routed around proposal aggregation.
// The staging generator expands it to one PHA record per split, each owning
// a private hierarchy copy.
type QuarantinedCriteria struct {
	Criteria SelectionCriteria
	Reason   QuarantineReason
}
