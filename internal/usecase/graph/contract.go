package graph

import (
	"context"

	"github.com/velum-cloud/ragdex/internal/domain"
)

// DocumentReader lists the document corpus.
type DocumentReader interface {
	List(ctx context.Context) ([]domain.Document, error)
}

// ChunkReader lists the chunk corpus.
type ChunkReader interface {
	ListAll(ctx context.Context) ([]domain.Chunk, error)
}

// Retriever resolves a query into scored retrieval contexts.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]domain.RetrievalContext, error)
}
