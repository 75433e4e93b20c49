package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/claimforge/claimforge/internal/llm"
	"github.com/claimforge/claimforge/internal/model"
)

// fakeStore is an in-memory ClaimStore with per-operation error hooks
type fakeStore struct {
	mu     sync.Mutex
	claims map[uuid.UUID]*model.IdentityClaim
	links  map[string]*model.ClaimEvidence

	createErr    error
	linkErr      error
	reinforceErr error

	reinforceCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		claims: make(map[uuid.UUID]*model.IdentityClaim),
		links:  make(map[string]*model.ClaimEvidence),
	}
}

func linkKey(evidenceID, claimID uuid.UUID) string {
	return evidenceID.String() + "|" + claimID.String()
}

func (s *fakeStore) CreateClaim(ctx context.Context, claim *model.IdentityClaim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	cp := *claim
	s.claims[claim.ID] = &cp
	return nil
}

func (s *fakeStore) ReinforceClaim(ctx context.Context, claimID uuid.UUID, confidence float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reinforceErr != nil {
		return s.reinforceErr
	}
	s.reinforceCalls++
	if c, ok := s.claims[claimID]; ok && confidence > c.Confidence {
		c.Confidence = confidence
	}
	return nil
}

func (s *fakeStore) UpsertClaimEvidence(ctx context.Context, link *model.ClaimEvidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.linkErr != nil {
		return s.linkErr
	}
	cp := *link
	s.links[linkKey(link.EvidenceID, link.ClaimID)] = &cp
	return nil
}

func (s *fakeStore) claimCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.claims)
}

func (s *fakeStore) linkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links)
}

func (s *fakeStore) claimByLabel(label string) *model.IdentityClaim {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.claims {
		if normalizeLabel(c.Label) == normalizeLabel(label) {
			return c
		}
	}
	return nil
}

// fakeProvider scripts decision responses per call
type fakeProvider struct {
	respond func(call int, req llm.CompletionRequest) (string, error)
	calls   int
}

func (p *fakeProvider) Name() string                         { return "fake" }
func (p *fakeProvider) IsAvailable(ctx context.Context) bool { return true }

func (p *fakeProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.calls++
	content, err := p.respond(p.calls, req)
	if err != nil {
		return nil, err
	}
	return &llm.CompletionResponse{Content: content, Model: "fake"}, nil
}

// fakeSearcher backs the retriever in engine tests
type fakeSearcher struct {
	mu     sync.Mutex
	search func(userID uuid.UUID, embedding model.Vector) ([]model.RetrievedClaim, error)
	calls  int
}

func (f *fakeSearcher) SearchSimilar(ctx context.Context, userID uuid.UUID, embedding model.Vector, threshold float64, limit int) ([]model.RetrievedClaim, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.search == nil {
		return nil, nil
	}
	return f.search(userID, embedding)
}

func (f *fakeSearcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// decision response builders

func matchDecision(ev model.EvidenceItem, label, strength string) Decision {
	return Decision{EvidenceID: ev.ID.String(), Match: &label, Strength: strength}
}

func createDecision(ev model.EvidenceItem, claimType, label string) Decision {
	return Decision{
		EvidenceID: ev.ID.String(),
		Strength:   "medium",
		NewClaim:   &NewClaimProposal{Type: claimType, Label: label},
	}
}

func decisionJSON(t *testing.T, decisions ...Decision) string {
	t.Helper()
	data, err := json.Marshal(decisionEnvelope{Decisions: decisions})
	if err != nil {
		t.Fatalf("marshal decisions: %v", err)
	}
	return string(data)
}

func evidenceList(n int, evType model.EvidenceType) []model.EvidenceItem {
	items := make([]model.EvidenceItem, n)
	for i := range items {
		items[i] = model.EvidenceItem{
			ID:        uuid.New(),
			Text:      fmt.Sprintf("fragment %d", i),
			Type:      evType,
			Embedding: model.Vector{float32(i) + 1},
		}
	}
	return items
}
