package index

import (
	"context"

	"github.com/velum-cloud/ragdex/internal/domain"
)

// DocumentRepository is the storage contract for documents.
type DocumentRepository interface {
	Put(ctx context.Context, doc domain.Document) error
	Get(ctx context.Context, id string) (domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
	Delete(ctx context.Context, id string) error
	SetStatus(ctx context.Context, id string, status domain.DocStatus) error
}

// ChunkRepository is the storage contract for chunk batches.
type ChunkRepository interface {
	PutBatch(ctx context.Context, chunks []domain.Chunk) error
	DeleteByDoc(ctx context.Context, docID string) error
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// SettingsReader supplies runtime chunking overrides. May be nil.
type SettingsReader interface {
	Get(ctx context.Context) (domain.Settings, error)
}
