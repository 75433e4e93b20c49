package retrieval

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/claimforge/claimforge/internal/cache"
	"github.com/claimforge/claimforge/internal/logger"
	"github.com/claimforge/claimforge/internal/model"
)

const (
	// DefaultThreshold filters out claims below this cosine similarity
	DefaultThreshold = 0.5

	// DefaultLimit caps claims returned per lookup
	DefaultLimit = 25
)

// ClaimSearcher is the similarity-search dependency, satisfied by the
// Postgres claim repository.
type ClaimSearcher interface {
	SearchSimilar(ctx context.Context, userID uuid.UUID, embedding model.Vector, threshold float64, limit int) ([]model.RetrievedClaim, error)
}

// Retriever looks up the existing claims relevant to one evidence
// embedding. A lookup failure degrades to an empty result: for the
// engine, "retrieval down" and "new user with no claims" look the same.
type Retriever struct {
	searcher  ClaimSearcher
	threshold float64
	limit     int
	cache     cache.Cache
	cacheTTL  time.Duration
	log       *logger.Logger
}

// Option configures a Retriever
type Option func(*Retriever)

// WithThreshold overrides the similarity threshold
func WithThreshold(t float64) Option {
	return func(r *Retriever) { r.threshold = t }
}

// WithLimit overrides the max result count
func WithLimit(n int) Option {
	return func(r *Retriever) { r.limit = n }
}

// WithCache memoizes lookups for the given TTL, so a re-uploaded
// document skips the vector round-trip.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(r *Retriever) {
		r.cache = c
		r.cacheTTL = ttl
	}
}

// NewRetriever creates a retriever over the given searcher
func NewRetriever(searcher ClaimSearcher, log *logger.Logger, opts ...Option) *Retriever {
	r := &Retriever{
		searcher:  searcher,
		threshold: DefaultThreshold,
		limit:     DefaultLimit,
		log:       log.With("component", "retriever"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns the user's claims relevant to one embedding, ranked
// by similarity. Never fails: transport errors are logged and produce an
// empty result.
func (r *Retriever) Retrieve(ctx context.Context, userID uuid.UUID, embedding model.Vector) []model.RetrievedClaim {
	if len(embedding) == 0 {
		r.log.Warn("retrieval skipped: evidence has no embedding", "user_id", userID)
		return nil
	}

	key := cache.RetrievalKey(userID, embedding)
	if cached, ok := r.fromCache(key); ok {
		return cached
	}

	claims, err := r.searcher.SearchSimilar(ctx, userID, embedding, r.threshold, r.limit)
	if err != nil {
		r.log.Warn("claim retrieval failed, treating as no relevant claims",
			"user_id", userID,
			"error", err,
		)
		return nil
	}

	r.toCache(key, claims)
	return claims
}

func (r *Retriever) fromCache(key string) ([]model.RetrievedClaim, bool) {
	if r.cache == nil {
		return nil, false
	}

	data, found := r.cache.Get(key)
	if !found {
		return nil, false
	}

	var claims []model.RetrievedClaim
	if err := json.Unmarshal(data, &claims); err != nil {
		_ = r.cache.Delete(key)
		return nil, false
	}
	return claims, true
}

func (r *Retriever) toCache(key string, claims []model.RetrievedClaim) {
	if r.cache == nil {
		return
	}

	data, err := json.Marshal(claims)
	if err != nil {
		return
	}
	if err := r.cache.Set(key, data, r.cacheTTL); err != nil {
		r.log.Warn("retrieval cache write failed", "error", err)
	}
}
