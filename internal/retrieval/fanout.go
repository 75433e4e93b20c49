package retrieval

import (
	"context"

	"github.com/google/uuid"

	"github.com/claimforge/claimforge/internal/model"
	"github.com/claimforge/claimforge/internal/worker"
)

// lookupJob retrieves relevant claims for one evidence item
type lookupJob struct {
	retriever *Retriever
	userID    uuid.UUID
	evidence  model.EvidenceItem
}

// lookupResult carries one evidence item's retrieval set
type lookupResult struct {
	evidenceID uuid.UUID
	claims     []model.RetrievedClaim
}

// GetError always returns nil: retrieval degrades instead of failing
func (r *lookupResult) GetError() error { return nil }

func (j *lookupJob) Execute(ctx context.Context) worker.Result {
	return &lookupResult{
		evidenceID: j.evidence.ID,
		claims:     j.retriever.Retrieve(ctx, j.userID, j.evidence.Embedding),
	}
}

// RetrieveBatch fans out one lookup per evidence item across the pool
// and returns the results keyed by evidence id. Lookups are read-only
// and independent, so they run concurrently; the caller's decision step
// waits on all of them.
func (r *Retriever) RetrieveBatch(ctx context.Context, userID uuid.UUID, batch []model.EvidenceItem, workers int) map[uuid.UUID][]model.RetrievedClaim {
	out := make(map[uuid.UUID][]model.RetrievedClaim, len(batch))
	if len(batch) == 0 {
		return out
	}

	pool := worker.NewPool(ctx, workers)
	pool.Start()

	for _, ev := range batch {
		pool.Submit(&lookupJob{retriever: r, userID: userID, evidence: ev})
	}

	for _, result := range pool.Wait() {
		lr := result.(*lookupResult)
		out[lr.evidenceID] = lr.claims
	}
	return out
}
