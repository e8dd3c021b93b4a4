package synth

import (
	"fmt"
	"sort"

	"github.com/sells-group/commission-staging/internal/model"
)

// AggregateGroup merges one group's accepted criteria into proposals keyed
// by configuration hash. Criteria must arrive in stable certificate-id
// order; proposals come back in first-seen order without ids (the pipeline
// assigns ids once all groups are merged, so id assignment stays
// deterministic under parallel group routing).
func AggregateGroup(criteria []model.SelectionCriteria) []*model.Proposal {
	byConfig := make(map[string]*model.Proposal)
	var order []string

	for _, c := range criteria {
		key := c.Config.ConfigHash
		p, ok := byConfig[key]
		if !ok {
			p = newProposal(c)
			byConfig[key] = p
			order = append(order, key)
			continue
		}
		expandProposal(p, c)
	}

	proposals := make([]*model.Proposal, len(order))
	for i, key := range order {
		finalizeProposal(byConfig[key])
		proposals[i] = byConfig[key]
	}
	return proposals
}

// newProposal initializes a proposal from its first certificate. The primary
// broker is the writing broker of the lowest split sequence.
func newProposal(c model.SelectionCriteria) *model.Proposal {
	p := &model.Proposal{
		GroupID:        c.GroupID,
		GroupName:      c.GroupName,
		ConfigHash:     c.Config.ConfigHash,
		Config:         c.Config,
		PrimaryBroker:  c.Config.Participants[0].WritingBroker(),
		CertificateIDs: []string{c.CertificateID},
		OriginalFrom:   c.EffectiveDate,
		OriginalTo:     c.EffectiveDate,
		States:         make(map[string][]string),
	}
	p.Pairs = append(p.Pairs, c.Pairs...)
	addStateProducts(p, c)
	return p
}

// expandProposal folds another matching certificate into the proposal:
// union of pairs, widened date range, deduplicated certificate list.
func expandProposal(p *model.Proposal, c model.SelectionCriteria) {
	seen := p.PairSet()
	for _, pair := range c.Pairs {
		if !seen[pair] {
			p.Pairs = append(p.Pairs, pair)
		}
	}

	if c.EffectiveDate.Before(p.OriginalFrom) {
		p.OriginalFrom = c.EffectiveDate
	}
	if c.EffectiveDate.After(p.OriginalTo) {
		p.OriginalTo = c.EffectiveDate
	}

	for _, id := range p.CertificateIDs {
		if id == c.CertificateID {
			addStateProducts(p, c)
			return
		}
	}
	p.CertificateIDs = append(p.CertificateIDs, c.CertificateID)
	addStateProducts(p, c)
}

func addStateProducts(p *model.Proposal, c model.SelectionCriteria) {
	if c.SitusState == "" {
		return
	}
	for _, pair := range c.Pairs {
		products := p.States[c.SitusState]
		found := false
		for _, prod := range products {
			if prod == pair.Product {
				found = true
				break
			}
		}
		if !found {
			p.States[c.SitusState] = append(products, pair.Product)
		}
	}
}

// finalizeProposal materializes the sorted product/plan/pair views and
// seeds the effective range with the pre-reconciliation dates.
func finalizeProposal(p *model.Proposal) {
	sort.Slice(p.Pairs, func(i, j int) bool {
		if p.Pairs[i].Product != p.Pairs[j].Product {
			return p.Pairs[i].Product < p.Pairs[j].Product
		}
		return p.Pairs[i].Plan < p.Pairs[j].Plan
	})

	products := make(map[string]bool)
	plans := make(map[string]bool)
	for _, pair := range p.Pairs {
		products[pair.Product] = true
		plans[pair.Plan] = true
	}
	p.Products = sortedKeys(products)
	p.Plans = sortedKeys(plans)

	for state := range p.States {
		sort.Strings(p.States[state])
	}

	p.EffectiveFrom = p.OriginalFrom
	p.EffectiveTo = p.OriginalTo
}

// BuildHierarchies synthesizes one hierarchy per split participant. The
// hierarchy id embeds the proposal id, guaranteeing 1:1 ownership: no
// cross-proposal sharing even for byte-identical tier chains, since each
// hierarchy must stay independently reassignable.
func BuildHierarchies(p *model.Proposal) {
	p.Hierarchies = make([]model.ProposalHierarchy, len(p.Config.Participants))
	for i, part := range p.Config.Participants {
		p.Hierarchies[i] = model.ProposalHierarchy{
			ID:            fmt.Sprintf("%s-H%02d", p.ID, i+1),
			ProposalID:    p.ID,
			SplitSequence: part.SplitSequence,
			SplitPercent:  part.SplitPercent,
			HierarchyHash: part.HierarchyHash,
			Tiers:         part.Tiers,
		}
	}
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
