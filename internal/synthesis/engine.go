package synthesis

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/claimforge/claimforge/internal/llm"
	"github.com/claimforge/claimforge/internal/logger"
	"github.com/claimforge/claimforge/internal/model"
	"github.com/claimforge/claimforge/internal/retrieval"
	"github.com/claimforge/claimforge/internal/worker"
)

const (
	// DefaultBatchSize is how many evidence items share one decision
	// call. One call per batch, not per item, is the pipeline's main
	// latency and cost lever.
	DefaultBatchSize = 10

	// DefaultRetrievalWorkers fan out similarity lookups within a batch
	DefaultRetrievalWorkers = 5

	// limiterKey paces decision calls across a run
	limiterKey = "decide"
)

var (
	// ErrNoEvidence is returned when a run is started with nothing to process
	ErrNoEvidence = errors.New("no evidence supplied")

	// ErrMissingEmbeddings is returned when evidence arrives without
	// vectors; embedding is an upstream precondition
	ErrMissingEmbeddings = errors.New("evidence missing embeddings")
)

// Progress reports batch completion, fired once per batch boundary
type Progress struct {
	Current int
	Total   int
}

// Options carries the caller-supplied callbacks. They are the only
// coupling to the enclosing transport.
type Options struct {
	OnProgress    func(Progress)
	OnClaimUpdate func(ClaimUpdate)
}

// Summary is the run's final output
type Summary struct {
	ClaimsCreated int `json:"claims_created"`
	ClaimsUpdated int `json:"claims_updated"`

	// Unresolved counts evidence items that produced no outcome this
	// run; they are retryable on a future upload
	Unresolved int `json:"unresolved,omitempty"`

	// Warnings surfaces recoverable per-batch failures
	Warnings []string `json:"warnings,omitempty"`
}

// Engine is the synthesis orchestrator. It sequences batches, drives
// the progress callbacks, isolates per-batch failures, and produces the
// run summary.
type Engine struct {
	retriever *retrieval.Retriever
	provider  llm.Provider
	writer    *Writer
	limiter   *worker.Limiter
	log       *logger.Logger

	batchSize        int
	retrievalWorkers int
	maxTokens        int
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithBatchSize overrides the decision batch size
func WithBatchSize(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithRetrievalWorkers overrides the per-batch retrieval fan-out
func WithRetrievalWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.retrievalWorkers = n
		}
	}
}

// WithLimiter paces decision calls
func WithLimiter(l *worker.Limiter) EngineOption {
	return func(e *Engine) { e.limiter = l }
}

// WithMaxTokens bounds the decision response length
func WithMaxTokens(n int) EngineOption {
	return func(e *Engine) { e.maxTokens = n }
}

// NewEngine wires the orchestrator
func NewEngine(retriever *retrieval.Retriever, provider llm.Provider, store ClaimStore, log *logger.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		retriever:        retriever,
		provider:         provider,
		writer:           NewWriter(store, log),
		log:              log.With("component", "synthesis_engine"),
		batchSize:        DefaultBatchSize,
		retrievalWorkers: DefaultRetrievalWorkers,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Synthesize merges new evidence into the user's claim set. Batches run
// strictly in order: batch k+1's context depends on batch k's writes. A
// failed batch is skipped with a warning; only precondition violations
// abort the run.
func (e *Engine) Synthesize(ctx context.Context, userID uuid.UUID, evidence []model.EvidenceItem, opts Options) (*Summary, error) {
	if len(evidence) == 0 {
		return nil, ErrNoEvidence
	}
	for _, ev := range evidence {
		if len(ev.Embedding) == 0 {
			return nil, fmt.Errorf("%w: evidence %s has no embedding", ErrMissingEmbeddings, ev.ID)
		}
	}

	batches := splitBatches(evidence, e.batchSize)
	total := len(batches)
	summary := &Summary{}
	run := NewCandidateSet()

	e.log.Info("synthesis run starting",
		"user_id", userID,
		"evidence_count", len(evidence),
		"batches", total,
	)

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			// Earlier batches' writes stay durable; nothing to roll back
			return summary, err
		}

		if err := e.processBatch(ctx, userID, batch, run, summary, opts); err != nil {
			warning := fmt.Sprintf("batch %d/%d skipped: %v", i+1, total, err)
			e.log.Warn("batch failed, continuing with next batch",
				"batch", i+1,
				"total", total,
				"error", err,
			)
			summary.Warnings = append(summary.Warnings, warning)
			summary.Unresolved += len(batch)
		}

		if opts.OnProgress != nil {
			opts.OnProgress(Progress{Current: i + 1, Total: total})
		}
	}

	e.log.Info("synthesis run finished",
		"user_id", userID,
		"claims_created", summary.ClaimsCreated,
		"claims_updated", summary.ClaimsUpdated,
		"unresolved", summary.Unresolved,
	)

	return summary, nil
}

// processBatch runs one batch through retrieval, decision, and writing.
// Returned errors cover the whole batch; the caller converts them into
// warnings.
func (e *Engine) processBatch(ctx context.Context, userID uuid.UUID, batch []model.EvidenceItem, run *CandidateSet, summary *Summary, opts Options) error {
	// Retrieval degrades per item, never fails the batch
	retrieved := e.retriever.RetrieveBatch(ctx, userID, batch, e.retrievalWorkers)

	ordered := make([][]model.RetrievedClaim, 0, len(batch))
	for _, ev := range batch {
		ordered = append(ordered, retrieved[ev.ID])
	}
	claimContext := BuildContext(ordered, run)

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx, limiterKey); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		System:    decisionSystemPrompt,
		Prompt:    BuildDecisionPrompt(claimContext, batch),
		MaxTokens: e.maxTokens,
		ForceJSON: true,
	})
	if err != nil {
		return fmt.Errorf("decision call: %w", err)
	}

	decisions, err := ParseDecisions(resp.Content, batch)
	if err != nil {
		// Discard the whole batch's decisions rather than applying a
		// half-understood response
		return fmt.Errorf("decision response invalid: %w", err)
	}

	res := e.writer.Apply(ctx, userID, batch, decisions, claimContext, run, opts.OnClaimUpdate)
	summary.ClaimsCreated += res.created
	summary.ClaimsUpdated += res.updated
	summary.Unresolved += res.unresolved

	return nil
}

// splitBatches chunks evidence preserving order
func splitBatches(evidence []model.EvidenceItem, size int) [][]model.EvidenceItem {
	if size <= 0 {
		size = DefaultBatchSize
	}

	var batches [][]model.EvidenceItem
	for start := 0; start < len(evidence); start += size {
		end := start + size
		if end > len(evidence) {
			end = len(evidence)
		}
		batches = append(batches, evidence[start:end])
	}
	return batches
}
