package synth

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/commission-staging/internal/model"
)

// Generator materializes the in-memory model into flat staging rows. It is
// a pure mapping; unresolved schedule codes and missing broker names are
// warnings, never failures.
type Generator struct {
	lookups  model.Lookups
	log      *zap.Logger
	warnings int
}

// NewGenerator creates a generator using the supplied lookup tables.
func NewGenerator(lookups model.Lookups) *Generator {
	return &Generator{
		lookups: lookups,
		log:     zap.L().With(zap.String("component", "synth.staging")),
	}
}

// Warnings reports how many warn-level fallbacks occurred during the last
// Generate call.
func (g *Generator) Warnings() int { return g.warnings }

// Generate maps reconciled proposals, quarantined criteria, and the
// reassignment ledger to the full staging output set.
func (g *Generator) Generate(proposals []*model.Proposal, quarantined []model.QuarantinedCriteria, reassignments []model.Reassignment) *model.OutputSet {
	g.warnings = 0
	out := &model.OutputSet{}

	for _, p := range proposals {
		g.generateProposal(out, p)
	}
	for _, q := range quarantined {
		g.generateQuarantine(out, q)
	}
	for _, r := range reassignments {
		out.Reassignments = append(out.Reassignments, model.ReassignmentRow{
			ID:               "RA-" + r.SourceBrokerID,
			SourceBrokerID:   g.lookups.ResolveBroker(r.SourceBrokerID),
			SourceBrokerName: r.SourceBrokerName,
			TargetBrokerID:   g.lookups.ResolveBroker(r.TargetBrokerID),
			TargetBrokerName: r.TargetBrokerName,
			CertificateID:    r.CertificateID,
			EffectiveDate:    r.EffectiveDate,
		})
	}

	return out
}

func (g *Generator) generateProposal(out *model.OutputSet, p *model.Proposal) {
	out.Proposals = append(out.Proposals, model.ProposalRow{
		ID:                p.ID,
		GroupID:           p.GroupID,
		GroupName:         p.GroupName,
		ConfigHash:        p.ConfigHash,
		PrimaryBrokerID:   g.lookups.ResolveBroker(p.PrimaryBroker.BrokerID),
		PrimaryBrokerName: g.brokerName(p.PrimaryBroker),
		EffectiveFrom:     p.EffectiveFrom,
		EffectiveTo:       p.EffectiveTo,
		CertificateCount:  len(p.CertificateIDs),
		Continuation:      p.Continuation,
		SourceProposalID:  p.SourceID,
	})

	for i, product := range p.Products {
		if product == "" {
			continue
		}
		out.ProposalProducts = append(out.ProposalProducts, model.ProposalProductRow{
			ID:          fmt.Sprintf("%s-PD%02d", p.ID, i+1),
			ProposalID:  p.ID,
			ProductCode: product,
		})
	}

	// Key-mapping year: the original certificate-derived start year, never
	// the open-start sentinel (continuations carry their synthesized start).
	for i, pair := range p.Pairs {
		out.KeyMappings = append(out.KeyMappings, model.KeyMappingRow{
			ID:          fmt.Sprintf("%s-K%03d", p.ID, i+1),
			ProposalID:  p.ID,
			GroupID:     p.GroupID,
			Year:        p.OriginalFrom.Year(),
			ProductCode: pair.Product,
			PlanCode:    pair.Plan,
		})
	}

	for _, h := range p.Hierarchies {
		g.generateHierarchy(out, p, h)
	}
}

func (g *Generator) generateHierarchy(out *model.OutputSet, p *model.Proposal, h model.ProposalHierarchy) {
	out.Hierarchies = append(out.Hierarchies, model.HierarchyRow{
		ID:            h.ID,
		ProposalID:    h.ProposalID,
		GroupID:       p.GroupID,
		SplitSequence: h.SplitSequence,
		SplitPercent:  h.SplitPercent,
		HierarchyHash: h.HierarchyHash,
	})

	versionID := h.ID + "-V1"
	out.Versions = append(out.Versions, model.HierarchyVersionRow{
		ID:            versionID,
		HierarchyID:   h.ID,
		EffectiveFrom: p.EffectiveFrom,
		EffectiveTo:   p.EffectiveTo,
	})

	participantIDs := make([]string, len(h.Tiers))
	for i, tier := range h.Tiers {
		id := fmt.Sprintf("%s-P%02d", versionID, i+1)
		participantIDs[i] = id
		out.Participants = append(out.Participants, model.HierarchyParticipantRow{
			ID:           id,
			VersionID:    versionID,
			TierLevel:    tier.Level,
			BrokerID:     g.lookups.ResolveBroker(tier.BrokerID),
			BrokerName:   g.brokerName(tier),
			BrokerNPN:    tier.BrokerNPN,
			ScheduleCode: tier.ScheduleCode,
			ScheduleID:   g.scheduleID(tier.ScheduleCode),
			PaidBrokerID: g.lookups.ResolveBroker(tier.PaidBrokerID),
		})
	}

	// One state rule per observed situs state for the owning proposal, plus
	// one product split per product active in that state. Matching on state
	// code directly keeps the downstream effective-dated joins exact.
	for _, state := range sortedStateKeys(p.States) {
		ruleID := h.ID + "-S" + state
		out.StateRules = append(out.StateRules, model.StateRuleRow{
			ID:          ruleID,
			HierarchyID: h.ID,
			SitusState:  state,
		})

		share := equalShare(len(participantIDs))
		for i, product := range p.States[state] {
			splitID := fmt.Sprintf("%s-PS%02d", ruleID, i+1)
			out.ProductSplits = append(out.ProductSplits, model.ProductSplitRow{
				ID:          splitID,
				StateRuleID: ruleID,
				ProductCode: product,
			})
			for j, participantID := range participantIDs {
				out.SplitDistributions = append(out.SplitDistributions, model.SplitDistributionRow{
					ID:             fmt.Sprintf("%s-D%02d", splitID, j+1),
					ProductSplitID: splitID,
					ParticipantID:  participantID,
					Percent:        share,
				})
			}
		}
	}
}

// generateQuarantine emits one PHA record per (certificate, split), each
// with its own embedded hierarchy copy.
func (g *Generator) generateQuarantine(out *model.OutputSet, q model.QuarantinedCriteria) {
	c := q.Criteria

	product, plan := "", ""
	if len(c.Pairs) > 0 {
		product, plan = c.Pairs[0].Product, c.Pairs[0].Plan
	}

	for _, part := range c.Config.Participants {
		phaID := fmt.Sprintf("PHA-%s-S%02d", c.CertificateID, part.SplitSequence)
		out.Quarantine = append(out.Quarantine, model.QuarantineRow{
			ID:            phaID,
			CertificateID: c.CertificateID,
			GroupID:       c.GroupID,
			GroupName:     c.GroupName,
			Reason:        q.Reason,
			SplitSequence: part.SplitSequence,
			SplitPercent:  part.SplitPercent,
			EffectiveDate: c.EffectiveDate,
			SitusState:    c.SitusState,
			ProductCode:   product,
			PlanCode:      plan,
			HierarchyHash: part.HierarchyHash,
		})

		for i, tier := range part.Tiers {
			out.QuarantineTiers = append(out.QuarantineTiers, model.QuarantineParticipantRow{
				ID:           fmt.Sprintf("%s-P%02d", phaID, i+1),
				QuarantineID: phaID,
				TierLevel:    tier.Level,
				BrokerID:     g.lookups.ResolveBroker(tier.BrokerID),
				BrokerName:   g.brokerName(tier),
				BrokerNPN:    tier.BrokerNPN,
				ScheduleCode: tier.ScheduleCode,
				ScheduleID:   g.scheduleID(tier.ScheduleCode),
				PaidBrokerID: g.lookups.ResolveBroker(tier.PaidBrokerID),
			})
		}
	}
}

func (g *Generator) scheduleID(code string) int64 {
	if code == "" {
		return 0
	}
	id, ok := g.lookups.ScheduleIDs[code]
	if !ok {
		g.warnings++
		g.log.Warn("unresolved schedule code", zap.String("schedule_code", code))
		return 0
	}
	return id
}

func (g *Generator) brokerName(tier model.HierarchyTier) string {
	if tier.BrokerName != "" {
		return tier.BrokerName
	}
	g.warnings++
	g.log.Warn("missing broker display name", zap.String("broker_id", tier.BrokerID))
	return "BROKER " + tier.BrokerID
}

func equalShare(participants int) float64 {
	if participants == 0 {
		return 0
	}
	return 100 / float64(participants)
}

func sortedStateKeys(states map[string][]string) []string {
	set := make(map[string]bool, len(states))
	for state := range states {
		set[state] = true
	}
	return sortedKeys(set)
}
