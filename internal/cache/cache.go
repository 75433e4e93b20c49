package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/claimforge/claimforge/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// RetrievalKey generates a cache key for one similarity lookup: the same
// user and the same query embedding always hit the same entry.
func RetrievalKey(userID uuid.UUID, embedding model.Vector) string {
	h := sha256.New()
	h.Write(userID[:])
	h.Write([]byte(embedding.String()))
	return "claimforge:retrieval:v1:" + hex.EncodeToString(h.Sum(nil))
}

// EmbeddingKey generates a cache key for one text embedding under a
// specific model.
func EmbeddingKey(embeddingModel, text string) string {
	h := sha256.New()
	h.Write([]byte(embeddingModel))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return "claimforge:embedding:v1:" + hex.EncodeToString(h.Sum(nil))
}
