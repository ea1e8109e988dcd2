package retrieve

import (
	"context"

	"github.com/velum-cloud/ragdex/internal/domain"
)

// ChunkReader lists the chunk corpus for scoring.
type ChunkReader interface {
	ListAll(ctx context.Context) ([]domain.Chunk, error)
}

// DocumentReader resolves parent documents for provenance.
type DocumentReader interface {
	Get(ctx context.Context, id string) (domain.Document, error)
}

// Embedder vectorizes the query.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// SettingsReader supplies a runtime topK override. May be nil.
type SettingsReader interface {
	Get(ctx context.Context) (domain.Settings, error)
}
