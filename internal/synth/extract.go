package synth

import (
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/commission-staging/internal/model"
)

// ExtractResult holds the extractor's output: one selection criteria per
// certificate plus the broker-level reassignment ledger.
type ExtractResult struct {
	Criteria []model.SelectionCriteria // ordered by certificate id

	// Reassignments keeps the single most recent entry per source broker,
	// ordered by source broker id.
	Reassignments []model.Reassignment

	// EmptyPairsSkipped counts (product, plan) pairs dropped during
	// normalization because the product code was empty.
	EmptyPairsSkipped int
}

// Extractor groups flat certificate split records into per-certificate
// selection criteria with content-hashed split configurations.
type Extractor struct {
	hashes *HashRegistry
}

// NewExtractor creates an extractor with a fresh hash registry.
func NewExtractor() *Extractor {
	return &Extractor{hashes: NewHashRegistry()}
}

// Extract builds one SelectionCriteria per certificate. Records are grouped
// by certificate id in a single pass, then certificates are processed in
// sorted-id order so output hashes and downstream ids are reproducible.
// A detected hash collision is fatal and aborts extraction.
func (e *Extractor) Extract(records []model.CertificateSplitRecord) (*ExtractResult, error) {
	log := zap.L().With(zap.String("component", "synth.extract"))

	byCert := make(map[string][]model.CertificateSplitRecord)
	for _, rec := range records {
		byCert[rec.CertificateID] = append(byCert[rec.CertificateID], rec)
	}

	certIDs := make([]string, 0, len(byCert))
	for id := range byCert {
		certIDs = append(certIDs, id)
	}
	sort.Strings(certIDs)

	result := &ExtractResult{}
	reassign := make(map[string]model.Reassignment)

	for _, certID := range certIDs {
		rows := byCert[certID]

		criteria, skipped, err := e.extractCertificate(certID, rows)
		if err != nil {
			return nil, eris.Wrapf(err, "extract: certificate %s", certID)
		}
		result.EmptyPairsSkipped += skipped
		result.Criteria = append(result.Criteria, criteria)

		trackReassignments(reassign, rows)
	}

	sources := make([]string, 0, len(reassign))
	for src := range reassign {
		sources = append(sources, src)
	}
	sort.Strings(sources)
	for _, src := range sources {
		result.Reassignments = append(result.Reassignments, reassign[src])
	}

	log.Info("extraction complete",
		zap.Int("records", len(records)),
		zap.Int("certificates", len(result.Criteria)),
		zap.Int("reassignments", len(result.Reassignments)),
	)
	if result.EmptyPairsSkipped > 0 {
		log.Warn("skipped pairs with empty product code", zap.Int("count", result.EmptyPairsSkipped))
	}

	return result, nil
}

// extractCertificate partitions one certificate's rows by split sequence,
// orders tiers by level within each split, and computes the hierarchy and
// configuration hashes.
func (e *Extractor) extractCertificate(certID string, rows []model.CertificateSplitRecord) (model.SelectionCriteria, int, error) {
	// Rows repeat per (product, plan); a split's tier chain is keyed by
	// (level, broker, schedule) so the repeats collapse to one tier each.
	type tierKey struct {
		seq, level       int
		broker, schedule string
	}
	seenTiers := make(map[tierKey]bool)
	bySplit := make(map[int][]model.CertificateSplitRecord)
	for _, row := range rows {
		k := tierKey{seq: row.SplitSequence, level: row.TierLevel, broker: row.BrokerID, schedule: row.ScheduleCode}
		if seenTiers[k] {
			continue
		}
		seenTiers[k] = true
		bySplit[row.SplitSequence] = append(bySplit[row.SplitSequence], row)
	}

	splitSeqs := make([]int, 0, len(bySplit))
	for seq := range bySplit {
		splitSeqs = append(splitSeqs, seq)
	}
	sort.Ints(splitSeqs)

	first := rows[0]
	criteria := model.SelectionCriteria{
		CertificateID: certID,
		GroupID:       first.GroupID,
		GroupName:     first.GroupName,
		EffectiveDate: first.EffectiveDate,
		SitusState:    first.SitusState,
		Premium:       first.Premium,
	}

	// The certificate-level effective date is the earliest across its rows.
	for _, row := range rows {
		if row.EffectiveDate.Before(criteria.EffectiveDate) {
			criteria.EffectiveDate = row.EffectiveDate
		}
	}

	skipped := 0
	seenPairs := make(map[model.ProductPlan]bool)
	for _, row := range rows {
		if row.ProductCode == "" {
			skipped++
			continue
		}
		pair := model.ProductPlan{Product: row.ProductCode, Plan: row.PlanCode}
		if !seenPairs[pair] {
			seenPairs[pair] = true
			criteria.Pairs = append(criteria.Pairs, pair)
		}
	}

	var totalPercent float64
	for _, seq := range splitSeqs {
		splitRows := bySplit[seq]
		sort.SliceStable(splitRows, func(i, j int) bool {
			return splitRows[i].TierLevel < splitRows[j].TierLevel
		})

		tiers := make([]model.HierarchyTier, len(splitRows))
		for i, row := range splitRows {
			tiers[i] = model.HierarchyTier{
				Level:          row.TierLevel,
				BrokerID:       row.BrokerID,
				BrokerName:     row.BrokerName,
				BrokerNPN:      row.BrokerNPN,
				ScheduleCode:   row.ScheduleCode,
				PaidBrokerID:   row.PaidBrokerID,
				PaidBrokerName: row.PaidBrokerName,
			}
		}

		pct := splitRows[0].SplitPercent
		hash, err := e.hashes.Sum(hierarchyCanonical(first.GroupID, pct, tiers))
		if err != nil {
			return model.SelectionCriteria{}, skipped, eris.Wrapf(err, "hierarchy hash for split %d", seq)
		}

		criteria.Config.Participants = append(criteria.Config.Participants, model.SplitParticipant{
			SplitSequence: seq,
			SplitPercent:  pct,
			Tiers:         tiers,
			HierarchyHash: hash,
		})
		totalPercent += pct
	}

	criteria.Config.TotalPercent = totalPercent

	configHash, err := e.hashes.Sum(configCanonical(first.GroupID, criteria.Config.Participants))
	if err != nil {
		return model.SelectionCriteria{}, skipped, eris.Wrap(err, "configuration hash")
	}
	criteria.Config.ConfigHash = configHash

	return criteria, skipped, nil
}

// trackReassignments records, per source broker, the most recent payment
// reassignment by certificate effective date. Later certificates win;
// earlier ones are discarded.
func trackReassignments(ledger map[string]model.Reassignment, rows []model.CertificateSplitRecord) {
	for _, row := range rows {
		if row.PaidBrokerID == "" || row.PaidBrokerID == row.BrokerID {
			continue
		}
		existing, ok := ledger[row.BrokerID]
		if ok && !row.EffectiveDate.After(existing.EffectiveDate) {
			continue
		}
		ledger[row.BrokerID] = model.Reassignment{
			SourceBrokerID:   row.BrokerID,
			SourceBrokerName: row.BrokerName,
			TargetBrokerID:   row.PaidBrokerID,
			TargetBrokerName: row.PaidBrokerName,
			CertificateID:    row.CertificateID,
			EffectiveDate:    row.EffectiveDate,
		}
	}
}
