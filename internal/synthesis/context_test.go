package synthesis

import (
	"testing"

	"github.com/google/uuid"

	"github.com/claimforge/claimforge/internal/model"
)

func TestBuildContext_DeduplicatesByClaimID(t *testing.T) {
	shared := model.RetrievedClaim{ID: uuid.New(), Type: model.ClaimSkill, Label: "React", Similarity: 0.9}
	other := model.RetrievedClaim{ID: uuid.New(), Type: model.ClaimSkill, Label: "Go", Similarity: 0.8}

	// Two evidence items retrieved the same claim independently
	retrieved := [][]model.RetrievedClaim{
		{shared, other},
		{shared},
		{shared, other},
	}

	ctx := BuildContext(retrieved, NewCandidateSet())
	if len(ctx) != 2 {
		t.Fatalf("context has %d claims, want 2: %+v", len(ctx), ctx)
	}

	seen := make(map[uuid.UUID]int)
	for _, c := range ctx {
		seen[c.ID]++
	}
	for id, count := range seen {
		if count != 1 {
			t.Errorf("claim %s appears %d times in context", id, count)
		}
	}
}

func TestBuildContext_MergesRunCreatedClaimsByLabel(t *testing.T) {
	run := NewCandidateSet()
	run.Register(&model.IdentityClaim{
		ID:         uuid.New(),
		Type:       model.ClaimSkill,
		Label:      "Kubernetes",
		Confidence: 0.5,
	})

	ctx := BuildContext(nil, run)
	if len(ctx) != 1 {
		t.Fatalf("context has %d claims, want 1", len(ctx))
	}
	if ctx[0].Label != "Kubernetes" || !ctx[0].CreatedThisRun {
		t.Errorf("unexpected candidate: %+v", ctx[0])
	}
}

func TestBuildContext_RunCreatedClaimDoesNotDuplicateRetrievedLabel(t *testing.T) {
	retrievedID := uuid.New()
	retrieved := [][]model.RetrievedClaim{
		{{ID: retrievedID, Type: model.ClaimSkill, Label: "React", Confidence: 0.6}},
	}

	run := NewCandidateSet()
	run.Register(&model.IdentityClaim{ID: uuid.New(), Type: model.ClaimSkill, Label: "react"})

	ctx := BuildContext(retrieved, run)
	if len(ctx) != 1 {
		t.Fatalf("context has %d claims, want 1 (label merged case-insensitively)", len(ctx))
	}
	if ctx[0].ID != retrievedID {
		t.Error("retrieved claim should win over the run-created duplicate")
	}
}

func TestCandidateSet_LookupIsCaseInsensitive(t *testing.T) {
	run := NewCandidateSet()
	run.Register(&model.IdentityClaim{ID: uuid.New(), Label: "Public Speaking"})

	if _, ok := run.Lookup("public speaking"); !ok {
		t.Error("expected case-insensitive lookup to hit")
	}
	if _, ok := run.Lookup("  Public Speaking  "); !ok {
		t.Error("expected whitespace-trimmed lookup to hit")
	}
	if _, ok := run.Lookup("Other"); ok {
		t.Error("unexpected hit for unknown label")
	}
}

func TestCandidateSet_RegisterIgnoresDuplicateLabels(t *testing.T) {
	run := NewCandidateSet()
	first := &model.IdentityClaim{ID: uuid.New(), Label: "Go"}
	run.Register(first)
	run.Register(&model.IdentityClaim{ID: uuid.New(), Label: "go"})

	if run.Len() != 1 {
		t.Fatalf("set has %d entries, want 1", run.Len())
	}
	c, _ := run.Lookup("Go")
	if c.ID != first.ID {
		t.Error("first registration should win")
	}
}

func TestCandidateSet_ReinforceNeverLowersConfidence(t *testing.T) {
	run := NewCandidateSet()
	run.Register(&model.IdentityClaim{ID: uuid.New(), Label: "Go", Confidence: 0.6})

	run.Reinforce("Go", 0.4)
	c, _ := run.Lookup("Go")
	if c.Confidence != 0.6 {
		t.Errorf("confidence lowered to %v", c.Confidence)
	}

	run.Reinforce("Go", 0.8)
	c, _ = run.Lookup("Go")
	if c.Confidence != 0.8 {
		t.Errorf("confidence = %v, want 0.8", c.Confidence)
	}
}
