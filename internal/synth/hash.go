// Package synth implements the in-memory commission synthesis pipeline:
// selection criteria extraction, content-addressed hierarchy identity,
// anomaly routing, proposal aggregation, temporal range reconciliation, and
// staging output generation.
package synth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/commission-staging/internal/model"
)

// CollisionError is the fatal condition raised when two different canonical
// inputs produce the same digest. The caller aborts the batch; continuing
// would silently merge unrelated hierarchies.
type CollisionError struct {
	Digest string
	First  string
	Second string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("hash collision on %s: %q vs %q", e.Digest, e.First, e.Second)
}

// HashRegistry computes full-width sha256 digests over canonical
// serializations and remembers every input it has hashed, so any collision
// between semantically different inputs is detected instead of ignored.
type HashRegistry struct {
	inputs map[string]string // digest -> canonical input
}

// NewHashRegistry creates an empty registry.
func NewHashRegistry() *HashRegistry {
	return &HashRegistry{inputs: make(map[string]string)}
}

// Sum hashes a canonical serialization, failing with *CollisionError if the
// digest was previously produced by a different input.
func (r *HashRegistry) Sum(canonical string) (string, error) {
	sum := sha256.Sum256([]byte(canonical))
	digest := hex.EncodeToString(sum[:])

	if prev, ok := r.inputs[digest]; ok {
		if prev != canonical {
			return "", &CollisionError{Digest: digest, First: prev, Second: canonical}
		}
		return digest, nil
	}

	r.inputs[digest] = canonical
	return digest, nil
}

// Canonical returns the stored input for a digest, reporting whether the
// digest is known to the registry.
func (r *HashRegistry) Canonical(digest string) (string, bool) {
	c, ok := r.inputs[digest]
	return c, ok
}

// VerifyHierarchyRefs checks that every hierarchy hash referenced by the
// accepted proposals and the quarantine ledger resolves to stored hierarchy
// data in the registry. A dangling reference is fatal: the staged rows would
// carry an identity nothing defines.
func VerifyHierarchyRefs(r *HashRegistry, proposals []*model.Proposal, quarantined []model.QuarantinedCriteria) error {
	check := func(owner, digest string) error {
		if _, ok := r.Canonical(digest); !ok {
			return eris.Errorf("dangling hierarchy hash %s referenced by %s", digest, owner)
		}
		return nil
	}

	for _, p := range proposals {
		for _, part := range p.Config.Participants {
			if err := check(p.ID, part.HierarchyHash); err != nil {
				return err
			}
		}
		for _, h := range p.Hierarchies {
			if err := check(h.ID, h.HierarchyHash); err != nil {
				return err
			}
		}
	}
	for _, q := range quarantined {
		for _, part := range q.Criteria.Config.Participants {
			if err := check(q.Criteria.CertificateID, part.HierarchyHash); err != nil {
				return err
			}
		}
	}
	return nil
}

// hierarchyCanonical serializes the identity of one split's payout chain:
// group, split percent, and the ordered (level, broker, schedule) tiers.
// The reassignment target is excluded: it tracks payment routing, not
// hierarchy identity.
func hierarchyCanonical(groupID string, splitPercent float64, tiers []model.HierarchyTier) string {
	var b strings.Builder
	b.WriteString("h|")
	b.WriteString(groupID)
	b.WriteString("|")
	b.WriteString(formatPercent(splitPercent))
	for _, t := range tiers {
		b.WriteString("|")
		b.WriteString(strconv.Itoa(t.Level))
		b.WriteString(":")
		b.WriteString(t.BrokerID)
		b.WriteString(":")
		b.WriteString(t.ScheduleCode)
	}
	return b.String()
}

// configCanonical serializes a full split configuration. Participants are
// ordered by (hierarchy hash, percent) rather than split sequence, so
// functionally identical configurations hash identically regardless of input
// ordering.
func configCanonical(groupID string, participants []model.SplitParticipant) string {
	entries := make([]string, len(participants))
	for i, p := range participants {
		entries[i] = p.HierarchyHash + ":" + formatPercent(p.SplitPercent)
	}
	sort.Strings(entries)

	return "c|" + groupID + "|" + strings.Join(entries, "|")
}

func formatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
