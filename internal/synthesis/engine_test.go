package synthesis

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/claimforge/claimforge/internal/llm"
	"github.com/claimforge/claimforge/internal/logger"
	"github.com/claimforge/claimforge/internal/model"
	"github.com/claimforge/claimforge/internal/retrieval"
)

func newTestEngine(t *testing.T, searcher *fakeSearcher, provider *fakeProvider, store *fakeStore, opts ...EngineOption) *Engine {
	t.Helper()
	log := logger.NewNop()
	return NewEngine(retrieval.NewRetriever(searcher, log), provider, store, log, opts...)
}

func TestEngine_OneDecisionCallPerBatch(t *testing.T) {
	evidence := evidenceList(15, model.EvidenceSkillListed)
	searcher := &fakeSearcher{}
	store := newFakeStore()

	provider := &fakeProvider{respond: func(call int, req llm.CompletionRequest) (string, error) {
		var decisions []Decision
		switch call {
		case 1:
			for _, ev := range evidence[:10] {
				decisions = append(decisions, createDecision(ev, "skill", "skill for "+ev.ID.String()))
			}
		case 2:
			for _, ev := range evidence[10:] {
				decisions = append(decisions, createDecision(ev, "skill", "skill for "+ev.ID.String()))
			}
		default:
			return "", fmt.Errorf("unexpected call %d", call)
		}
		return decisionJSON(t, decisions...), nil
	}}

	var progress []Progress
	engine := newTestEngine(t, searcher, provider, store)
	summary, err := engine.Synthesize(context.Background(), uuid.New(), evidence, Options{
		OnProgress: func(p Progress) { progress = append(progress, p) },
	})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if provider.calls != 2 {
		t.Errorf("15 items at batch size 10 made %d decision calls, want 2", provider.calls)
	}
	if searcher.callCount() != 15 {
		t.Errorf("got %d retrieval lookups, want one per evidence item", searcher.callCount())
	}
	if summary.ClaimsCreated != 15 {
		t.Errorf("claims created = %d, want 15", summary.ClaimsCreated)
	}

	want := []Progress{{Current: 1, Total: 2}, {Current: 2, Total: 2}}
	if len(progress) != len(want) {
		t.Fatalf("got %d progress events, want %d", len(progress), len(want))
	}
	for i, p := range progress {
		if p != want[i] {
			t.Errorf("progress[%d] = %+v, want %+v", i, p, want[i])
		}
	}
}

func TestEngine_CrossBatchLabelVisibility(t *testing.T) {
	evidence := evidenceList(2, model.EvidenceSkillListed)
	searcher := &fakeSearcher{} // nothing in the store yet
	store := newFakeStore()

	provider := &fakeProvider{respond: func(call int, req llm.CompletionRequest) (string, error) {
		switch call {
		case 1:
			return decisionJSON(t, createDecision(evidence[0], "skill", "Kubernetes")), nil
		case 2:
			return decisionJSON(t, matchDecision(evidence[1], "Kubernetes", "strong")), nil
		}
		return "", fmt.Errorf("unexpected call %d", call)
	}}

	engine := newTestEngine(t, searcher, provider, store, WithBatchSize(1))
	summary, err := engine.Synthesize(context.Background(), uuid.New(), evidence, Options{})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if summary.ClaimsCreated != 1 || summary.ClaimsUpdated != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if store.claimCount() != 1 {
		t.Errorf("got %d claims, want the second batch to reuse the first's creation", store.claimCount())
	}
	if store.linkCount() != 2 {
		t.Errorf("got %d links, want both items linked to the same claim", store.linkCount())
	}
}

func TestEngine_NewUserStartsFromEmptyClaimSet(t *testing.T) {
	evidence := evidenceList(3, model.EvidenceSkillListed)
	searcher := &fakeSearcher{search: func(uuid.UUID, model.Vector) ([]model.RetrievedClaim, error) {
		return nil, nil
	}}
	store := newFakeStore()

	provider := &fakeProvider{respond: func(call int, req llm.CompletionRequest) (string, error) {
		return decisionJSON(t,
			createDecision(evidence[0], "skill", "Go"),
			createDecision(evidence[1], "skill", "PostgreSQL"),
			createDecision(evidence[2], "trait", "Mentorship"),
		), nil
	}}

	engine := newTestEngine(t, searcher, provider, store)
	summary, err := engine.Synthesize(context.Background(), uuid.New(), evidence, Options{})
	if err != nil {
		t.Fatalf("empty claim set must not be an error: %v", err)
	}
	if summary.ClaimsCreated != 3 || summary.ClaimsUpdated != 0 {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestEngine_RetrievalFailureDegradesToEmptyContext(t *testing.T) {
	evidence := evidenceList(2, model.EvidenceSkillListed)
	searcher := &fakeSearcher{search: func(uuid.UUID, model.Vector) ([]model.RetrievedClaim, error) {
		return nil, errors.New("pgvector timeout")
	}}
	store := newFakeStore()

	provider := &fakeProvider{respond: func(call int, req llm.CompletionRequest) (string, error) {
		return decisionJSON(t,
			createDecision(evidence[0], "skill", "Go"),
			createDecision(evidence[1], "skill", "Rust"),
		), nil
	}}

	engine := newTestEngine(t, searcher, provider, store)
	summary, err := engine.Synthesize(context.Background(), uuid.New(), evidence, Options{})
	if err != nil {
		t.Fatalf("retrieval failure must not abort the run: %v", err)
	}
	if summary.ClaimsCreated != 2 {
		t.Errorf("claims created = %d, want 2", summary.ClaimsCreated)
	}
}

func TestEngine_MalformedBatchIsSkippedOthersApply(t *testing.T) {
	evidence := evidenceList(4, model.EvidenceSkillListed)
	searcher := &fakeSearcher{}
	store := newFakeStore()

	provider := &fakeProvider{respond: func(call int, req llm.CompletionRequest) (string, error) {
		if call == 1 {
			return "I think these all look like new skills", nil
		}
		return decisionJSON(t,
			createDecision(evidence[2], "skill", "Go"),
			createDecision(evidence[3], "skill", "Rust"),
		), nil
	}}

	engine := newTestEngine(t, searcher, provider, store, WithBatchSize(2))
	summary, err := engine.Synthesize(context.Background(), uuid.New(), evidence, Options{})
	if err != nil {
		t.Fatalf("a malformed batch must not abort the run: %v", err)
	}

	if summary.ClaimsCreated != 2 {
		t.Errorf("claims created = %d, want only the second batch's 2", summary.ClaimsCreated)
	}
	if summary.Unresolved != 2 {
		t.Errorf("unresolved = %d, want the whole skipped batch", summary.Unresolved)
	}
	if len(summary.Warnings) != 1 {
		t.Errorf("got %d warnings, want 1: %v", len(summary.Warnings), summary.Warnings)
	}
}

func TestEngine_ProviderErrorSkipsBatch(t *testing.T) {
	evidence := evidenceList(2, model.EvidenceSkillListed)
	searcher := &fakeSearcher{}
	store := newFakeStore()

	provider := &fakeProvider{respond: func(call int, req llm.CompletionRequest) (string, error) {
		if call == 1 {
			return "", errors.New("rate limited")
		}
		return decisionJSON(t, createDecision(evidence[1], "skill", "Go")), nil
	}}

	engine := newTestEngine(t, searcher, provider, store, WithBatchSize(1))
	summary, err := engine.Synthesize(context.Background(), uuid.New(), evidence, Options{})
	if err != nil {
		t.Fatalf("a failed decision call must not abort the run: %v", err)
	}
	if summary.ClaimsCreated != 1 || summary.Unresolved != 1 || len(summary.Warnings) != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestEngine_FatalPreconditions(t *testing.T) {
	searcher := &fakeSearcher{}
	store := newFakeStore()
	provider := &fakeProvider{respond: func(int, llm.CompletionRequest) (string, error) {
		return "", errors.New("should not be called")
	}}
	engine := newTestEngine(t, searcher, provider, store)

	if _, err := engine.Synthesize(context.Background(), uuid.New(), nil, Options{}); !errors.Is(err, ErrNoEvidence) {
		t.Errorf("empty input: got %v, want ErrNoEvidence", err)
	}

	evidence := evidenceList(2, model.EvidenceSkillListed)
	evidence[1].Embedding = nil
	if _, err := engine.Synthesize(context.Background(), uuid.New(), evidence, Options{}); !errors.Is(err, ErrMissingEmbeddings) {
		t.Errorf("missing embedding: got %v, want ErrMissingEmbeddings", err)
	}

	if provider.calls != 0 {
		t.Errorf("precondition failures made %d decision calls", provider.calls)
	}
}

func TestEngine_CancellationStopsBetweenBatches(t *testing.T) {
	evidence := evidenceList(3, model.EvidenceSkillListed)
	searcher := &fakeSearcher{}
	store := newFakeStore()

	ctx, cancel := context.WithCancel(context.Background())

	provider := &fakeProvider{respond: func(call int, req llm.CompletionRequest) (string, error) {
		// Cancel mid-run; remaining batches must not start
		cancel()
		return decisionJSON(t, createDecision(evidence[call-1], "skill", fmt.Sprintf("Skill %d", call))), nil
	}}

	engine := newTestEngine(t, searcher, provider, store, WithBatchSize(1))
	summary, err := engine.Synthesize(ctx, uuid.New(), evidence, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if provider.calls != 1 {
		t.Errorf("made %d decision calls after cancellation, want 1", provider.calls)
	}
	if summary == nil || summary.ClaimsCreated != 1 {
		t.Errorf("partial summary should keep the first batch's writes: %+v", summary)
	}
}
