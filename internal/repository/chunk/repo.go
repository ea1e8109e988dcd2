// Package chunk persists text chunks, keyed under their parent document so
// document deletion can cascade.
package chunk

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/velum-cloud/ragdex/internal/domain"
)

const keyPrefix = domain.KeyPrefix + "chunk:"

// store is the consumer interface for chunks (ISP).
type store interface {
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements usecase chunk storage.
type Repo struct {
	store store
}

// New creates a chunk repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// PutBatch stores a full batch of chunks. An indexing run either persists all
// of its chunks through here or none at all.
func (r *Repo) PutBatch(ctx context.Context, chunks []domain.Chunk) error {
	for _, c := range chunks {
		data, err := json.Marshal(fromDomain(c))
		if err != nil {
			return fmt.Errorf("marshal chunk %s: %w", c.ID, err)
		}
		if err := r.store.Set(ctx, chunkKey(c.DocID, c.Seq), data); err != nil {
			return fmt.Errorf("set chunk %s: %w", c.ID, err)
		}
	}
	return nil
}

// ListByDoc returns a document's chunks in sequence order.
func (r *Repo) ListByDoc(ctx context.Context, docID string) ([]domain.Chunk, error) {
	return r.list(ctx, keyPrefix+docID+":*")
}

// ListAll returns every chunk in the corpus, ordered by (docID, seq).
// Retrieval scans this linearly; see the package doc of usecase/retrieve.
func (r *Repo) ListAll(ctx context.Context) ([]domain.Chunk, error) {
	return r.list(ctx, keyPrefix+"*")
}

// DeleteByDoc removes all chunks owned by a document.
func (r *Repo) DeleteByDoc(ctx context.Context, docID string) error {
	keys, err := r.store.Scan(ctx, keyPrefix+docID+":*")
	if err != nil {
		return fmt.Errorf("scan chunks of %s: %w", docID, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("del chunks of %s: %w", docID, err)
	}
	return nil
}

func (r *Repo) list(ctx context.Context, pattern string) ([]domain.Chunk, error) {
	keys, err := r.store.Scan(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("scan chunks: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := r.store.GetMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch chunks: %w", err)
	}

	chunks := make([]domain.Chunk, 0, len(values))
	for i, raw := range values {
		if raw == nil {
			continue
		}
		var c chunkDTO
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("unmarshal chunk %s: %w", keys[i], err)
		}
		chunks = append(chunks, c.toDomain())
	}

	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].DocID != chunks[j].DocID {
			return chunks[i].DocID < chunks[j].DocID
		}
		return chunks[i].Seq < chunks[j].Seq
	})
	return chunks, nil
}

func chunkKey(docID string, seq int) string {
	return fmt.Sprintf("%s%s:%d", keyPrefix, docID, seq)
}
