package graph

import (
	"context"
	"fmt"

	"github.com/velum-cloud/ragdex/internal/domain"
)

// Service builds graph snapshots on demand from live storage.
type Service struct {
	docs      DocumentReader
	chunks    ChunkReader
	retriever Retriever
}

// New creates a graph service.
func New(docs DocumentReader, chunks ChunkReader, retriever Retriever) *Service {
	return &Service{docs: docs, chunks: chunks, retriever: retriever}
}

// CorpusGraph snapshots the whole corpus as a knowledge graph.
func (s *Service) CorpusGraph(ctx context.Context) (domain.KnowledgeGraph, error) {
	docs, err := s.docs.List(ctx)
	if err != nil {
		return domain.KnowledgeGraph{}, fmt.Errorf("list documents: %w", err)
	}
	chunks, err := s.chunks.ListAll(ctx)
	if err != nil {
		return domain.KnowledgeGraph{}, fmt.Errorf("list chunks: %w", err)
	}
	return BuildCorpusGraph(docs, chunks), nil
}

// Roadmap retrieves for the query and builds the query-centric graph over the
// results. Retrieval failures propagate unchanged so transport can map them.
func (s *Service) Roadmap(ctx context.Context, query string, topK int) (domain.KnowledgeGraph, error) {
	contexts, err := s.retriever.Retrieve(ctx, query, topK)
	if err != nil {
		return domain.KnowledgeGraph{}, err
	}
	return BuildRoadmap(query, contexts), nil
}
