// Package document persists documents as JSON records in the key-value store.
package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/velum-cloud/ragdex/internal/db"
	"github.com/velum-cloud/ragdex/internal/domain"
)

const keyPrefix = domain.KeyPrefix + "doc:"

// store is the consumer interface for documents (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements usecase document storage.
type Repo struct {
	store store
}

// New creates a document repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Put stores a document, overwriting any previous record with the same id.
func (r *Repo) Put(ctx context.Context, doc domain.Document) error {
	data, err := json.Marshal(fromDomain(doc))
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := r.store.Set(ctx, docKey(doc.ID), data); err != nil {
		return fmt.Errorf("set %s: %w", docKey(doc.ID), err)
	}
	return nil
}

// Get returns a document by id.
func (r *Repo) Get(ctx context.Context, id string) (domain.Document, error) {
	raw, err := r.store.Get(ctx, docKey(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Document{}, domain.ErrDocumentNotFound
		}
		return domain.Document{}, fmt.Errorf("get %s: %w", docKey(id), err)
	}

	var d docDTO
	if err := json.Unmarshal(raw, &d); err != nil {
		return domain.Document{}, fmt.Errorf("unmarshal document %s: %w", id, err)
	}
	return d.toDomain(), nil
}

// List returns all documents, newest first.
func (r *Repo) List(ctx context.Context) ([]domain.Document, error) {
	keys, err := r.store.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan documents: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := r.store.GetMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch documents: %w", err)
	}

	docs := make([]domain.Document, 0, len(values))
	for i, raw := range values {
		if raw == nil {
			continue // deleted between scan and fetch
		}
		var d docDTO
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("unmarshal document %s: %w", keys[i], err)
		}
		docs = append(docs, d.toDomain())
	}

	sort.Slice(docs, func(i, j int) bool {
		if docs[i].CreatedAt != docs[j].CreatedAt {
			return docs[i].CreatedAt > docs[j].CreatedAt
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

// Delete removes a document record. Chunk cascade is the chunk repo's job.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, docKey(id)); err != nil {
		return fmt.Errorf("del %s: %w", docKey(id), err)
	}
	return nil
}

// SetStatus updates only the status of a stored document.
func (r *Repo) SetStatus(ctx context.Context, id string, status domain.DocStatus) error {
	doc, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	doc.Status = status
	return r.Put(ctx, doc)
}

func docKey(id string) string {
	return keyPrefix + id
}
