package synthesis

import (
	"strings"

	"github.com/google/uuid"

	"github.com/claimforge/claimforge/internal/model"
)

// Candidate is one claim the decision model may match evidence against:
// either an existing claim found by retrieval or one created earlier in
// the same run.
type Candidate struct {
	ID             uuid.UUID
	Type           model.ClaimType
	Label          string
	Description    string
	Confidence     float64
	CreatedThisRun bool
}

// CandidateSet is the run-local record of claims created during this
// run. It gives later batches visibility into earlier decisions without
// a second retrieval round-trip. In-memory only, one per run.
type CandidateSet struct {
	byLabel map[string]*Candidate
	order   []string
}

// NewCandidateSet creates an empty run-local candidate set
func NewCandidateSet() *CandidateSet {
	return &CandidateSet{byLabel: make(map[string]*Candidate)}
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// Register records a claim created during this run, keyed by label
func (s *CandidateSet) Register(claim *model.IdentityClaim) {
	key := normalizeLabel(claim.Label)
	if _, exists := s.byLabel[key]; exists {
		return
	}
	s.byLabel[key] = &Candidate{
		ID:             claim.ID,
		Type:           claim.Type,
		Label:          claim.Label,
		Description:    claim.Description,
		Confidence:     claim.Confidence,
		CreatedThisRun: true,
	}
	s.order = append(s.order, key)
}

// Lookup resolves a label against run-created claims
func (s *CandidateSet) Lookup(label string) (*Candidate, bool) {
	c, ok := s.byLabel[normalizeLabel(label)]
	return c, ok
}

// Reinforce bumps the recorded confidence for a run-created claim
func (s *CandidateSet) Reinforce(label string, confidence float64) {
	if c, ok := s.byLabel[normalizeLabel(label)]; ok && confidence > c.Confidence {
		c.Confidence = confidence
	}
}

// Candidates returns run-created claims in creation order
func (s *CandidateSet) Candidates() []Candidate {
	out := make([]Candidate, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, *s.byLabel[key])
	}
	return out
}

// Len returns how many claims this run has created
func (s *CandidateSet) Len() int { return len(s.order) }

// BuildContext assembles the deduplicated claim context for one batch:
// the union of every evidence item's retrieval set plus the claims
// created earlier in the run. A claim id appears exactly once even when
// several evidence items retrieved it independently; run-created claims
// merge by label.
func BuildContext(retrieved [][]model.RetrievedClaim, local *CandidateSet) []Candidate {
	seenID := make(map[uuid.UUID]bool)
	seenLabel := make(map[string]bool)
	var out []Candidate

	for _, claims := range retrieved {
		for _, rc := range claims {
			if seenID[rc.ID] {
				continue
			}
			seenID[rc.ID] = true
			seenLabel[normalizeLabel(rc.Label)] = true
			out = append(out, Candidate{
				ID:          rc.ID,
				Type:        rc.Type,
				Label:       rc.Label,
				Description: rc.Description,
				Confidence:  rc.Confidence,
			})
		}
	}

	if local != nil {
		for _, c := range local.Candidates() {
			if seenID[c.ID] || seenLabel[normalizeLabel(c.Label)] {
				continue
			}
			seenID[c.ID] = true
			seenLabel[normalizeLabel(c.Label)] = true
			out = append(out, c)
		}
	}

	return out
}
