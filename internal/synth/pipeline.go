package synth

import (
	"context"
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/commission-staging/internal/model"
)

// Config configures a pipeline run.
type Config struct {
	Thresholds Thresholds

	// Workers bounds the parallel routing/aggregation of independent
	// groups. Values <= 1 run sequentially. Grouping, entropy computation,
	// and aggregation are purely local to a group, so this partitioning is
	// safe; everything ordering-sensitive happens after the groups merge.
	Workers int
}

// Stats summarizes a run for the operator: quarantine and warning counts are
// review surfaces, not errors.
type Stats struct {
	Certificates  int
	Accepted      int
	Quarantined   int
	ByReason      map[model.QuarantineReason]int
	Proposals     int
	Continuations int
	Reassignments int
	Warnings      int
}

// Result is the complete output of one batch.
type Result struct {
	Proposals   []*model.Proposal
	Quarantined []model.QuarantinedCriteria
	Output      *model.OutputSet
	Stats       Stats
}

// Run executes the whole synthesis batch over an already-loaded input set:
// extract, route, aggregate, reconcile, generate. The unit of work is the
// batch; a fatal error (hash collision, coverage invariant violation) aborts
// it atomically.
func Run(ctx context.Context, records []model.CertificateSplitRecord, lookups model.Lookups, cfg Config) (*Result, error) {
	log := zap.L().With(zap.String("component", "synth.pipeline"))

	extractor := NewExtractor()
	extracted, err := extractor.Extract(records)
	if err != nil {
		return nil, eris.Wrap(err, "synth: extract")
	}

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "synth: cancelled")
	}

	// Hard conformance check before any statistical routing.
	conformance := CheckSplitPercent(extracted.Criteria)
	quarantined := conformance.Quarantined

	groups, groupIDs := partitionByGroup(conformance.Accepted)

	routed, err := routeAndAggregate(ctx, groups, groupIDs, cfg)
	if err != nil {
		return nil, err
	}

	// Merge in sorted group order; assign ids; reconcile per group.
	var proposals []*model.Proposal
	seq := 0
	for gi, groupID := range groupIDs {
		quarantined = append(quarantined, routed[gi].quarantined...)

		groupProposals := routed[gi].proposals
		for _, p := range groupProposals {
			seq++
			p.ID = fmt.Sprintf("PR-%06d", seq)
			BuildHierarchies(p)
		}

		reconciled := ReconcileGroup(groupProposals)
		if err := VerifyCoverage(reconciled); err != nil {
			return nil, eris.Wrapf(err, "synth: coverage invariant for group %s", groupID)
		}
		proposals = append(proposals, reconciled...)
	}

	// Every hierarchy hash about to be staged must resolve to hierarchy
	// data the extractor actually hashed.
	if err := VerifyHierarchyRefs(extractor.hashes, proposals, quarantined); err != nil {
		return nil, eris.Wrap(err, "synth: hierarchy reference")
	}

	generator := NewGenerator(lookups)
	output := generator.Generate(proposals, quarantined, extracted.Reassignments)

	stats := Stats{
		Certificates:  len(extracted.Criteria),
		Quarantined:   len(quarantined),
		Accepted:      len(extracted.Criteria) - len(quarantined),
		ByReason:      make(map[model.QuarantineReason]int),
		Reassignments: len(extracted.Reassignments),
		Warnings:      generator.Warnings() + extracted.EmptyPairsSkipped,
	}
	for _, q := range quarantined {
		stats.ByReason[q.Reason]++
	}
	for _, p := range proposals {
		if p.Continuation {
			stats.Continuations++
		} else {
			stats.Proposals++
		}
	}

	log.Info("synthesis complete",
		zap.Int("certificates", stats.Certificates),
		zap.Int("accepted", stats.Accepted),
		zap.Int("quarantined", stats.Quarantined),
		zap.Int("proposals", stats.Proposals),
		zap.Int("continuations", stats.Continuations),
		zap.Int("reassignments", stats.Reassignments),
		zap.Int("warnings", stats.Warnings),
	)

	return &Result{
		Proposals:   proposals,
		Quarantined: quarantined,
		Output:      output,
		Stats:       stats,
	}, nil
}

type groupResult struct {
	proposals   []*model.Proposal
	quarantined []model.QuarantinedCriteria
}

// routeAndAggregate runs anomaly routing and aggregation per group, in
// parallel when configured. Results land in a slice indexed by group
// position, so worker scheduling never affects output order.
func routeAndAggregate(ctx context.Context, groups map[string][]model.SelectionCriteria, groupIDs []string, cfg Config) ([]groupResult, error) {
	results := make([]groupResult, len(groupIDs))

	process := func(gi int) {
		groupID := groupIDs[gi]
		routed := RouteGroup(groupID, groups[groupID], cfg.Thresholds)
		results[gi] = groupResult{
			proposals:   AggregateGroup(routed.Accepted),
			quarantined: routed.Quarantined,
		}
	}

	if cfg.Workers <= 1 {
		for gi := range groupIDs {
			if err := ctx.Err(); err != nil {
				return nil, eris.Wrap(err, "synth: cancelled")
			}
			process(gi)
		}
		return results, nil
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(cfg.Workers)
	for gi := range groupIDs {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			process(gi)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, eris.Wrap(err, "synth: group routing")
	}
	return results, nil
}

// partitionByGroup splits criteria by group id, preserving the stable
// certificate order within each group, and returns the sorted group ids.
func partitionByGroup(criteria []model.SelectionCriteria) (map[string][]model.SelectionCriteria, []string) {
	groups := make(map[string][]model.SelectionCriteria)
	for _, c := range criteria {
		groups[c.GroupID] = append(groups[c.GroupID], c)
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return groups, ids
}
