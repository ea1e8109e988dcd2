// Package retrieve scores the chunk corpus against a query embedding and
// assembles the top-scoring chunks into retrieval contexts with provenance.
// The scan is linear over all chunks; corpus sizes here do not justify an
// ANN index.
package retrieve

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/velum-cloud/ragdex/internal/domain"
	"github.com/velum-cloud/ragdex/internal/metrics"
	"github.com/velum-cloud/ragdex/internal/text"
	"github.com/velum-cloud/ragdex/internal/vector"
)

// scoreThreshold is the fixed minimum similarity for a chunk to surface.
// Chunks must score strictly above it. Whether this should scale with the
// embedding model is an open question; it is a design constant for now.
const scoreThreshold = 0.25

// Service handles retrieval queries.
type Service struct {
	chunks   ChunkReader
	docs     DocumentReader
	embedder Embedder
	settings SettingsReader
	topK     int
}

// New creates a retrieval service with the default topK.
func New(chunks ChunkReader, docs DocumentReader, embedder Embedder) *Service {
	return &Service{chunks: chunks, docs: docs, embedder: embedder, topK: 5}
}

// WithTopK configures the default result count limit.
func (s *Service) WithTopK(k int) *Service {
	if k > 0 {
		s.topK = k
	}
	return s
}

// WithSettings attaches a runtime settings source overriding the default topK.
func (s *Service) WithSettings(settings SettingsReader) *Service {
	s.settings = settings
	return s
}

// Retrieve embeds the query once, scores every chunk, and returns the
// strongest matches ordered by descending score, at most topK of them.
// An empty query or an empty corpus yields an empty result, not an error.
// An embedding failure propagates: the caller decides whether to proceed
// without context, it is never masked as an empty result.
func (s *Service) Retrieve(ctx context.Context, query string, topK int) ([]domain.RetrievalContext, error) {
	if strings.TrimSpace(query) == "" {
		metrics.RetrievalsTotal.WithLabelValues("empty").Inc()
		return nil, nil
	}

	chunks, err := s.chunks.ListAll(ctx)
	if err != nil {
		metrics.RetrievalsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	if len(chunks) == 0 {
		metrics.RetrievalsTotal.WithLabelValues("empty").Inc()
		return nil, nil
	}

	embResult, err := s.embedder.Embed(ctx, query)
	if err != nil {
		metrics.RetrievalsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	type scored struct {
		chunk domain.Chunk
		score float64
	}

	// Vectorless chunks score 0 and fall below the threshold on their own.
	hits := make([]scored, 0, len(chunks))
	for _, c := range chunks {
		score := vector.Cosine(embResult.Embedding, c.Vector)
		if score > scoreThreshold {
			hits = append(hits, scored{chunk: c, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	if topK <= 0 {
		topK = s.effectiveTopK(ctx)
	}
	if len(hits) > topK {
		hits = hits[:topK]
	}

	titles := make(map[string]string) // docID -> title, memoized per query
	contexts := make([]domain.RetrievalContext, len(hits))
	for i, h := range hits {
		contexts[i] = domain.RetrievalContext{
			ChunkID:         h.chunk.ID,
			DocID:           h.chunk.DocID,
			DocTitle:        s.docTitle(ctx, titles, h.chunk.DocID),
			Content:         h.chunk.Text,
			Score:           h.score,
			RelatedEntities: text.Entities(h.chunk.Text),
		}
	}

	metrics.RetrievalsTotal.WithLabelValues("success").Inc()
	return contexts, nil
}

// docTitle resolves a document title, falling back to the sentinel label for
// documents deleted since their chunks were indexed.
func (s *Service) docTitle(ctx context.Context, memo map[string]string, docID string) string {
	if title, ok := memo[docID]; ok {
		return title
	}
	title := domain.UnknownDocTitle
	if doc, err := s.docs.Get(ctx, docID); err == nil {
		title = doc.Title
	}
	memo[docID] = title
	return title
}

func (s *Service) effectiveTopK(ctx context.Context) int {
	if s.settings != nil {
		if stored, err := s.settings.Get(ctx); err == nil && stored.TopK > 0 {
			return stored.TopK
		}
	}
	return s.topK
}
