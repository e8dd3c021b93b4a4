package synth

import (
	"fmt"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/commission-staging/internal/model"
)

// ReconcileGroup partitions calendar time across one group's proposals so
// that every (product, plan) pair is covered by non-overlapping, gap-free
// intervals. Overlapping tails are truncated at the next intersecting
// proposal's start; pairs a truncation would orphan get synthesized
// continuation proposals carrying fresh hierarchy copies, one per distinct
// reclaim date.
//
// Proposals are returned in start-date order with continuations appended.
func ReconcileGroup(proposals []*model.Proposal) []*model.Proposal {
	if len(proposals) == 0 {
		return proposals
	}

	sort.SliceStable(proposals, func(i, j int) bool {
		if !proposals[i].OriginalFrom.Equal(proposals[j].OriginalFrom) {
			return proposals[i].OriginalFrom.Before(proposals[j].OriginalFrom)
		}
		return proposals[i].ID < proposals[j].ID
	})

	// A group with a single proposal covers all time.
	if len(proposals) == 1 {
		proposals[0].EffectiveFrom = model.OpenStart
		proposals[0].EffectiveTo = model.OpenEnd
		return proposals
	}

	pairSets := make([]map[model.ProductPlan]bool, len(proposals))
	for i, p := range proposals {
		pairSets[i] = p.PairSet()
	}

	var continuations []*model.Proposal

	for i, p := range proposals {
		// Nearest earlier proposal sharing a pair anchors the start;
		// without one, the start opens to the beginning of time.
		if j := nearestIntersecting(pairSets, i, -1); j >= 0 {
			p.EffectiveFrom = p.OriginalFrom
		} else {
			p.EffectiveFrom = model.OpenStart
		}

		// Nearest later proposal sharing a pair truncates the end to the
		// day before it starts; without one, the end opens to the far
		// future.
		k := nearestIntersecting(pairSets, i, +1)
		if k < 0 {
			p.EffectiveTo = model.OpenEnd
			continue
		}
		p.EffectiveTo = proposals[k].OriginalFrom.AddDate(0, 0, -1)

		orphans := orphanedPairs(p, pairSets[k])
		if len(orphans) == 0 {
			continue
		}

		continuations = append(continuations, continueProposals(proposals, pairSets, p, k, orphans)...)
	}

	return append(proposals, continuations...)
}

// nearestIntersecting scans from i in the given direction for the closest
// proposal whose pair set intersects proposal i's. Returns -1 if none.
func nearestIntersecting(pairSets []map[model.ProductPlan]bool, i, step int) int {
	for j := i + step; j >= 0 && j < len(pairSets); j += step {
		if intersects(pairSets[i], pairSets[j]) {
			return j
		}
	}
	return -1
}

func intersects(a, b map[model.ProductPlan]bool) bool {
	for pair := range a {
		if b[pair] {
			return true
		}
	}
	return false
}

// orphanedPairs returns p's pairs absent from the truncating proposal's set,
// in p's sorted pair order.
func orphanedPairs(p *model.Proposal, truncator map[model.ProductPlan]bool) []model.ProductPlan {
	var orphans []model.ProductPlan
	for _, pair := range p.Pairs {
		if !truncator[pair] {
			orphans = append(orphans, pair)
		}
	}
	return orphans
}

// continueProposals synthesizes the follow-on proposals for a truncated
// proposal's orphaned pairs. Pairs reclaimed by different later proposals
// must end on different dates, so the orphans are partitioned by the start
// of each pair's own next claiming proposal and one continuation is emitted
// per partition; pairs no later proposal reclaims stay open-ended.
func continueProposals(proposals []*model.Proposal, pairSets []map[model.ProductPlan]bool, p *model.Proposal, k int, orphans []model.ProductPlan) []*model.Proposal {
	start := p.EffectiveTo.AddDate(0, 0, 1)

	byEnd := make(map[time.Time][]model.ProductPlan)
	var ends []time.Time
	for _, pair := range orphans {
		end := model.OpenEnd
		for m := k + 1; m < len(proposals); m++ {
			if pairSets[m][pair] {
				end = proposals[m].OriginalFrom.AddDate(0, 0, -1)
				break
			}
		}
		if end.Before(start) {
			// Reclaimed the same day the truncator starts; no gap to fill.
			continue
		}
		if _, seen := byEnd[end]; !seen {
			ends = append(ends, end)
		}
		byEnd[end] = append(byEnd[end], pair)
	}
	sort.Slice(ends, func(i, j int) bool { return ends[i].Before(ends[j]) })

	conts := make([]*model.Proposal, 0, len(ends))
	for n, end := range ends {
		id := p.ID + "-CONT"
		if n > 0 {
			id = fmt.Sprintf("%s-CONT%d", p.ID, n+1)
		}
		cont := continueProposal(p, id, start, byEnd[end])
		cont.EffectiveTo = end
		conts = append(conts, cont)
	}
	return conts
}

// continueProposal synthesizes one follow-on proposal: same group and
// configuration, coverage restricted to the given pairs, starting the day
// after the truncated end, with a fresh hierarchy copy.
func continueProposal(p *model.Proposal, id string, start time.Time, orphans []model.ProductPlan) *model.Proposal {
	cont := &model.Proposal{
		ID:            id,
		GroupID:       p.GroupID,
		GroupName:     p.GroupName,
		ConfigHash:    p.ConfigHash,
		PrimaryBroker: p.PrimaryBroker,
		Pairs:         orphans,
		States:        make(map[string][]string),
		OriginalFrom:  start,
		OriginalTo:    start,
		EffectiveFrom: start,
		EffectiveTo:   model.OpenEnd,
		Config:        p.Config,
		Continuation:  true,
		SourceID:      p.ID,
	}
	cont.CertificateIDs = append(cont.CertificateIDs, p.CertificateIDs...)

	products := make(map[string]bool)
	plans := make(map[string]bool)
	for _, pair := range orphans {
		products[pair.Product] = true
		plans[pair.Plan] = true
	}
	cont.Products = sortedKeys(products)
	cont.Plans = sortedKeys(plans)

	for state, stateProducts := range p.States {
		var kept []string
		for _, prod := range stateProducts {
			if products[prod] {
				kept = append(kept, prod)
			}
		}
		if len(kept) > 0 {
			cont.States[state] = kept
		}
	}

	BuildHierarchies(cont)
	return cont
}

// VerifyCoverage checks the reconciliation invariant: for every group and
// every (product, plan) pair, the union of proposal intervals claiming that
// pair is a single contiguous interval with no overlap and no gap.
func VerifyCoverage(proposals []*model.Proposal) error {
	type interval struct {
		id       string
		from, to time.Time
	}

	type key struct {
		group string
		pair  model.ProductPlan
	}

	claims := make(map[key][]interval)
	for _, p := range proposals {
		for _, pair := range p.Pairs {
			k := key{group: p.GroupID, pair: pair}
			claims[k] = append(claims[k], interval{id: p.ID, from: p.EffectiveFrom, to: p.EffectiveTo})
		}
	}

	for k, intervals := range claims {
		sort.Slice(intervals, func(i, j int) bool {
			return intervals[i].from.Before(intervals[j].from)
		})
		for i := 1; i < len(intervals); i++ {
			prev, cur := intervals[i-1], intervals[i]
			want := prev.to.AddDate(0, 0, 1)
			if cur.from.Before(want) {
				return eris.Errorf(
					"coverage overlap for group %s product %s plan %s: %s [..%s] overlaps %s [%s..]",
					k.group, k.pair.Product, k.pair.Plan,
					prev.id, prev.to.Format("2006-01-02"),
					cur.id, cur.from.Format("2006-01-02"),
				)
			}
			if cur.from.After(want) {
				return eris.Errorf(
					"coverage gap for group %s product %s plan %s: between %s [..%s] and %s [%s..]",
					k.group, k.pair.Product, k.pair.Plan,
					prev.id, prev.to.Format("2006-01-02"),
					cur.id, cur.from.Format("2006-01-02"),
				)
			}
		}
	}

	return nil
}
