// Package model defines the domain types for commission staging synthesis:
// certificate input records, payout hierarchies, proposals, quarantine
// records, and the flat staging output rows.
package model

import "time"

// CertificateSplitRecord is one input row: one (certificate, split sequence,
// tier level) combination from the source commission feed. Records are
// immutable once loaded and are expected pre-filtered to active status.
type CertificateSplitRecord struct {
	CertificateID  string
	GroupID        string
	GroupName      string
	EffectiveDate  time.Time
	ProductCode    string
	PlanCode       string
	CertStatus     string
	SitusState     string
	Premium        float64
	SplitSequence  int
	SplitPercent   float64
	TierLevel      int
	BrokerID       string
	BrokerName     string
	BrokerNPN      string
	ScheduleCode   string
	PaidBrokerID   string
	PaidBrokerName string
}

// Reassignment records the most recent payment-routing reassignment observed
// for a source broker across all certificates. It is a broker-level artifact,
// not tied to any proposal.
type Reassignment struct {
	SourceBrokerID   string
	SourceBrokerName string
	TargetBrokerID   string
	TargetBrokerName string
	CertificateID    string
	EffectiveDate    time.Time
}

// Lookups holds the externally supplied reference maps, provided before
// extraction runs.
type Lookups struct {
	// BrokerIDs maps external broker ids to their persisted form. Missing
	// entries pass through unchanged.
	BrokerIDs map[string]string

	// ScheduleIDs maps free-text schedule codes to numeric schedule ids.
	ScheduleIDs map[string]int64
}

// ResolveBroker returns the persisted form of an external broker id.
func (l Lookups) ResolveBroker(id string) string {
	if mapped, ok := l.BrokerIDs[id]; ok {
		return mapped
	}
	return id
}
