package staging

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/commission-staging/internal/db"
	"github.com/sells-group/commission-staging/internal/model"
)

// Schema is the target schema for all staged record sets.
const Schema = "commission_stage"

// Writer materializes an output set into the staging tables with a
// truncate-and-load pass. Transactional guarantees beyond the per-table
// COPY are the target store's concern, not ours.
type Writer struct {
	pool db.Pool
}

// NewWriter creates a Writer on the given pool.
func NewWriter(pool db.Pool) *Writer {
	return &Writer{pool: pool}
}

type tableLoad struct {
	table   string
	columns []string
	rows    [][]any
}

// Write truncates the staging tables and COPYs the full output set in,
// returning the total rows written.
func (w *Writer) Write(ctx context.Context, out *model.OutputSet) (int64, error) {
	log := zap.L().With(zap.String("component", "staging.writer"))

	loads := buildLoads(out)

	names := make([]string, len(loads))
	for i, l := range loads {
		names[i] = Schema + "." + l.table
	}
	if _, err := w.pool.Exec(ctx, "TRUNCATE TABLE "+strings.Join(names, ", ")); err != nil {
		return 0, eris.Wrap(err, "staging: truncate")
	}

	var total int64
	for _, l := range loads {
		n, err := db.CopyFromSchema(ctx, w.pool, Schema, l.table, l.columns, l.rows)
		if err != nil {
			return total, eris.Wrapf(err, "staging: load %s", l.table)
		}
		total += n
		log.Info("table loaded", zap.String("table", l.table), zap.Int64("rows", n))
	}

	return total, nil
}

// buildLoads flattens the output set into per-table column/row loads, in a
// fixed order so runs over identical input write identical sequences.
func buildLoads(out *model.OutputSet) []tableLoad {
	proposals := make([][]any, len(out.Proposals))
	for i, r := range out.Proposals {
		proposals[i] = []any{r.ID, r.GroupID, r.GroupName, r.ConfigHash, r.PrimaryBrokerID,
			r.PrimaryBrokerName, r.EffectiveFrom, r.EffectiveTo, r.CertificateCount,
			r.Continuation, nullable(r.SourceProposalID)}
	}

	products := make([][]any, len(out.ProposalProducts))
	for i, r := range out.ProposalProducts {
		products[i] = []any{r.ID, r.ProposalID, r.ProductCode}
	}

	keyMap := make([][]any, len(out.KeyMappings))
	for i, r := range out.KeyMappings {
		keyMap[i] = []any{r.ID, r.ProposalID, r.GroupID, r.Year, r.ProductCode, r.PlanCode}
	}

	hierarchies := make([][]any, len(out.Hierarchies))
	for i, r := range out.Hierarchies {
		hierarchies[i] = []any{r.ID, r.ProposalID, r.GroupID, r.SplitSequence, r.SplitPercent, r.HierarchyHash}
	}

	versions := make([][]any, len(out.Versions))
	for i, r := range out.Versions {
		versions[i] = []any{r.ID, r.HierarchyID, r.EffectiveFrom, r.EffectiveTo}
	}

	participants := make([][]any, len(out.Participants))
	for i, r := range out.Participants {
		participants[i] = []any{r.ID, r.VersionID, r.TierLevel, r.BrokerID, r.BrokerName,
			r.BrokerNPN, r.ScheduleCode, r.ScheduleID, nullable(r.PaidBrokerID)}
	}

	stateRules := make([][]any, len(out.StateRules))
	for i, r := range out.StateRules {
		stateRules[i] = []any{r.ID, r.HierarchyID, r.SitusState}
	}

	productSplits := make([][]any, len(out.ProductSplits))
	for i, r := range out.ProductSplits {
		productSplits[i] = []any{r.ID, r.StateRuleID, r.ProductCode}
	}

	distributions := make([][]any, len(out.SplitDistributions))
	for i, r := range out.SplitDistributions {
		distributions[i] = []any{r.ID, r.ProductSplitID, r.ParticipantID, r.Percent}
	}

	quarantine := make([][]any, len(out.Quarantine))
	for i, r := range out.Quarantine {
		quarantine[i] = []any{r.ID, r.CertificateID, r.GroupID, r.GroupName, string(r.Reason),
			r.SplitSequence, r.SplitPercent, r.EffectiveDate, r.SitusState,
			r.ProductCode, r.PlanCode, r.HierarchyHash}
	}

	quarantineTiers := make([][]any, len(out.QuarantineTiers))
	for i, r := range out.QuarantineTiers {
		quarantineTiers[i] = []any{r.ID, r.QuarantineID, r.TierLevel, r.BrokerID, r.BrokerName,
			r.BrokerNPN, r.ScheduleCode, r.ScheduleID, nullable(r.PaidBrokerID)}
	}

	reassignments := make([][]any, len(out.Reassignments))
	for i, r := range out.Reassignments {
		reassignments[i] = []any{r.ID, r.SourceBrokerID, r.SourceBrokerName,
			r.TargetBrokerID, r.TargetBrokerName, r.CertificateID, r.EffectiveDate}
	}

	return []tableLoad{
		{"proposals", []string{"id", "group_id", "group_name", "config_hash", "primary_broker_id",
			"primary_broker_name", "effective_from", "effective_to", "certificate_count",
			"continuation", "source_proposal_id"}, proposals},
		{"proposal_products", []string{"id", "proposal_id", "product_code"}, products},
		{"proposal_key_map", []string{"id", "proposal_id", "group_id", "year", "product_code", "plan_code"}, keyMap},
		{"hierarchies", []string{"id", "proposal_id", "group_id", "split_sequence", "split_percent", "hierarchy_hash"}, hierarchies},
		{"hierarchy_versions", []string{"id", "hierarchy_id", "effective_from", "effective_to"}, versions},
		{"hierarchy_participants", []string{"id", "version_id", "tier_level", "broker_id", "broker_name",
			"broker_npn", "schedule_code", "schedule_id", "paid_broker_id"}, participants},
		{"state_rules", []string{"id", "hierarchy_id", "situs_state"}, stateRules},
		{"product_splits", []string{"id", "state_rule_id", "product_code"}, productSplits},
		{"split_distributions", []string{"id", "product_split_id", "participant_id", "percent"}, distributions},
		{"pha_records", []string{"id", "certificate_id", "group_id", "group_name", "reason",
			"split_sequence", "split_percent", "effective_date", "situs_state",
			"product_code", "plan_code", "hierarchy_hash"}, quarantine},
		{"pha_participants", []string{"id", "pha_id", "tier_level", "broker_id", "broker_name",
			"broker_npn", "schedule_code", "schedule_id", "paid_broker_id"}, quarantineTiers},
		{"broker_reassignments", []string{"id", "source_broker_id", "source_broker_name",
			"target_broker_id", "target_broker_name", "certificate_id", "effective_date"}, reassignments},
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
