// Package index orchestrates document ingestion: chunking, embedding, and
// chunk persistence, with document status tracking across the run.
package index

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/velum-cloud/ragdex/internal/domain"
	"github.com/velum-cloud/ragdex/internal/logger"
	"github.com/velum-cloud/ragdex/internal/metrics"
	"github.com/velum-cloud/ragdex/internal/text"
)

// probeText is embedded once before any per-chunk work as a connectivity and
// credential probe. Probe failure aborts the run with zero chunks produced.
const probeText = "ping"

// Service handles document ingestion and the indexing pipeline.
type Service struct {
	docs     DocumentRepository
	chunks   ChunkRepository
	embedder Embedder
	settings SettingsReader

	chunkSize    int
	chunkOverlap int
	workers      int

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New creates an index service with default chunking parameters.
func New(docs DocumentRepository, chunks ChunkRepository, embedder Embedder) *Service {
	return &Service{
		docs:         docs,
		chunks:       chunks,
		embedder:     embedder,
		chunkSize:    200,
		chunkOverlap: 30,
		workers:      4,
		inFlight:     make(map[string]struct{}),
	}
}

// WithChunking configures default chunk size and overlap (in words).
func (s *Service) WithChunking(size, overlap int) *Service {
	if size > 0 {
		s.chunkSize = size
	}
	if overlap >= 0 {
		s.chunkOverlap = overlap
	}
	return s
}

// WithWorkers configures how many chunk embedding calls run concurrently
// within one indexing run.
func (s *Service) WithWorkers(n int) *Service {
	if n > 0 {
		s.workers = n
	}
	return s
}

// WithSettings attaches a runtime settings source overriding the defaults.
func (s *Service) WithSettings(settings SettingsReader) *Service {
	s.settings = settings
	return s
}

// Ingest creates a document in status "indexing" and starts the indexing run
// in the background on a detached context: an abandoned request does not
// cancel the run. The returned document reflects the pre-indexing state.
func (s *Service) Ingest(ctx context.Context, title, content string) (domain.Document, error) {
	if strings.TrimSpace(content) == "" {
		return domain.Document{}, domain.ErrEmptyDocument
	}
	if title == "" {
		title = "untitled"
	}

	doc := domain.Document{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		CreatedAt: time.Now().UnixMilli(),
		Status:    domain.DocIndexing,
	}
	if err := s.docs.Put(ctx, doc); err != nil {
		return domain.Document{}, fmt.Errorf("store document: %w", err)
	}

	if err := s.acquire(doc.ID); err != nil {
		return domain.Document{}, err
	}
	go s.run(context.WithoutCancel(ctx), doc)

	return doc, nil
}

// Reindex re-runs the indexing pipeline for an existing document, replacing
// its chunks on success. A run already in flight for the id is rejected.
func (s *Service) Reindex(ctx context.Context, id string) (domain.Document, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return domain.Document{}, err
	}

	if err := s.acquire(doc.ID); err != nil {
		return domain.Document{}, err
	}

	doc.Status = domain.DocIndexing
	if err := s.docs.Put(ctx, doc); err != nil {
		s.release(doc.ID)
		return domain.Document{}, fmt.Errorf("store document: %w", err)
	}

	go s.run(context.WithoutCancel(ctx), doc)
	return doc, nil
}

// Get returns a document by id.
func (s *Service) Get(ctx context.Context, id string) (domain.Document, error) {
	return s.docs.Get(ctx, id)
}

// List returns all documents, newest first.
func (s *Service) List(ctx context.Context) ([]domain.Document, error) {
	return s.docs.List(ctx)
}

// Delete removes a document and cascades to its chunks. Deletion is rejected
// while an indexing run for the id is in flight.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.acquire(id); err != nil {
		return err
	}
	defer s.release(id)

	if _, err := s.docs.Get(ctx, id); err != nil {
		return err
	}
	if err := s.chunks.DeleteByDoc(ctx, id); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if err := s.docs.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// IndexDocument runs the synchronous indexing pipeline for a document:
// probe embed, chunk, embed every chunk. It persists nothing; any failure
// means the whole run failed and no chunks may be stored.
func (s *Service) IndexDocument(ctx context.Context, doc domain.Document) ([]domain.Chunk, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return nil, domain.ErrEmptyDocument
	}

	size, overlap := s.effectiveChunking(ctx)

	// Probe before committing to per-chunk work. A dead provider or bad
	// credential fails here, once, instead of mid-batch.
	if _, err := s.embedder.Embed(ctx, probeText); err != nil {
		return nil, fmt.Errorf("embedding probe: %w", err)
	}

	pieces, err := text.Chunk(doc.Content, size, overlap)
	if err != nil {
		return nil, err
	}

	return s.embedPieces(ctx, doc.ID, pieces)
}

// run executes one guarded indexing run and records the outcome on the
// document's status. The in-flight slot for the id is held for the duration.
func (s *Service) run(ctx context.Context, doc domain.Document) {
	defer s.release(doc.ID)
	log := logger.FromContext(ctx).With(zap.String("doc_id", doc.ID))

	chunks, err := s.IndexDocument(ctx, doc)
	if err != nil {
		log.Error("Indexing failed", zap.Error(err))
		if serr := s.docs.SetStatus(ctx, doc.ID, domain.DocError); serr != nil {
			log.Error("Failed to mark document as errored", zap.Error(serr))
		}
		return
	}

	// Replace previous chunks only after every embedding succeeded.
	if err := s.chunks.DeleteByDoc(ctx, doc.ID); err != nil {
		log.Error("Failed to clear previous chunks", zap.Error(err))
		_ = s.docs.SetStatus(ctx, doc.ID, domain.DocError)
		return
	}
	if err := s.chunks.PutBatch(ctx, chunks); err != nil {
		log.Error("Failed to store chunks", zap.Error(err))
		_ = s.docs.SetStatus(ctx, doc.ID, domain.DocError)
		return
	}
	if err := s.docs.SetStatus(ctx, doc.ID, domain.DocReady); err != nil {
		log.Error("Failed to mark document as ready", zap.Error(err))
		return
	}

	metrics.IndexedChunksTotal.Add(float64(len(chunks)))
	log.Info("Document indexed", zap.Int("chunks", len(chunks)))
}

// embedPieces embeds chunk texts with a bounded worker pool. Results land at
// their sequence index, so completion order never affects chunk ids or order.
func (s *Service) embedPieces(ctx context.Context, docID string, pieces []string) ([]domain.Chunk, error) {
	chunks := make([]domain.Chunk, len(pieces))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	sem := make(chan struct{}, s.workers)

	for i, piece := range pieces {
		mu.Lock()
		failed := firstErr != nil
		mu.Unlock()
		if failed {
			break // abort remaining chunks on first failure
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(seq int, body string) {
			defer wg.Done()
			defer func() { <-sem }()

			res, err := s.embedder.Embed(ctx, body)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("embed chunk %d: %w", seq, err)
				}
				mu.Unlock()
				return
			}
			chunks[seq] = domain.Chunk{
				ID:     domain.ChunkID(docID, seq),
				DocID:  docID,
				Seq:    seq,
				Text:   body,
				Vector: res.Embedding,
			}
		}(i, piece)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return chunks, nil
}

// effectiveChunking resolves chunk parameters from settings with config
// defaults as fallback.
func (s *Service) effectiveChunking(ctx context.Context) (size, overlap int) {
	size, overlap = s.chunkSize, s.chunkOverlap
	if s.settings == nil {
		return size, overlap
	}
	stored, err := s.settings.Get(ctx)
	if err != nil {
		return size, overlap
	}
	if stored.ChunkSize > 0 {
		size = stored.ChunkSize
	}
	if stored.ChunkOverlap > 0 {
		overlap = stored.ChunkOverlap
	}
	return size, overlap
}

// acquire reserves the single indexing slot for a document id.
func (s *Service) acquire(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[id]; busy {
		return fmt.Errorf("document %s: %w", id, domain.ErrIndexInProgress)
	}
	s.inFlight[id] = struct{}{}
	return nil
}

func (s *Service) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)
}
