package embedding

import (
	"context"

	"github.com/claimforge/claimforge/internal/model"
)

// Embedder converts evidence text to fixed-length vectors. The synthesis
// engine treats embedding as an upstream precondition; the CLI uses an
// Embedder to backfill items that arrive without vectors.
type Embedder interface {
	// Embed returns one vector per input text, in input order
	Embed(ctx context.Context, texts []string) ([]model.Vector, error)

	// Dimensions returns the vector length this embedder produces
	Dimensions() int
}
