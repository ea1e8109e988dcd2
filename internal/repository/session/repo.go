// Package session persists chat sessions and their ordered message history.
// Deleting a session cascades to its messages.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/velum-cloud/ragdex/internal/db"
	"github.com/velum-cloud/ragdex/internal/domain"
)

const (
	sessionKeyPrefix = domain.KeyPrefix + "session:"
	messageKeyPrefix = domain.KeyPrefix + "msg:"
	msgSeqKeyPrefix  = domain.KeyPrefix + "msgseq:"
)

// store is the consumer interface for sessions (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements usecase session storage.
type Repo struct {
	store store
}

// New creates a session repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Put stores a session.
func (r *Repo) Put(ctx context.Context, sess domain.Session) error {
	data, err := json.Marshal(sessionDTO{
		ID:        sess.ID,
		Title:     sess.Title,
		CreatedAt: sess.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.store.Set(ctx, sessionKeyPrefix+sess.ID, data); err != nil {
		return fmt.Errorf("set session %s: %w", sess.ID, err)
	}
	return nil
}

// Get returns a session by id.
func (r *Repo) Get(ctx context.Context, id string) (domain.Session, error) {
	raw, err := r.store.Get(ctx, sessionKeyPrefix+id)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Session{}, domain.ErrSessionNotFound
		}
		return domain.Session{}, fmt.Errorf("get session %s: %w", id, err)
	}
	var d sessionDTO
	if err := json.Unmarshal(raw, &d); err != nil {
		return domain.Session{}, fmt.Errorf("unmarshal session %s: %w", id, err)
	}
	return domain.Session{ID: d.ID, Title: d.Title, CreatedAt: d.CreatedAt}, nil
}

// List returns all sessions, newest first.
func (r *Repo) List(ctx context.Context) ([]domain.Session, error) {
	keys, err := r.store.Scan(ctx, sessionKeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}
	values, err := r.store.GetMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch sessions: %w", err)
	}

	sessions := make([]domain.Session, 0, len(values))
	for i, raw := range values {
		if raw == nil {
			continue
		}
		var d sessionDTO
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("unmarshal session %s: %w", keys[i], err)
		}
		sessions = append(sessions, domain.Session{ID: d.ID, Title: d.Title, CreatedAt: d.CreatedAt})
	}

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt != sessions[j].CreatedAt {
			return sessions[i].CreatedAt > sessions[j].CreatedAt
		}
		return sessions[i].ID < sessions[j].ID
	})
	return sessions, nil
}

// Delete removes a session and all of its messages.
func (r *Repo) Delete(ctx context.Context, id string) error {
	msgKeys, err := r.store.Scan(ctx, messageKeyPrefix+id+":*")
	if err != nil {
		return fmt.Errorf("scan messages of %s: %w", id, err)
	}
	keys := append(msgKeys, sessionKeyPrefix+id, msgSeqKeyPrefix+id)
	if err := r.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("del session %s: %w", id, err)
	}
	return nil
}

// AppendMessage stores a message at the next sequence position of its
// session. The position comes from an atomic per-session counter, so
// concurrent appends never collide on a key.
func (r *Repo) AppendMessage(ctx context.Context, msg domain.Message) error {
	next, err := r.store.IncrBy(ctx, msgSeqKeyPrefix+msg.SessionID, 1)
	if err != nil {
		return fmt.Errorf("next seq of %s: %w", msg.SessionID, err)
	}
	seq := int(next - 1)

	data, err := json.Marshal(fromDomainMessage(msg, seq))
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	key := fmt.Sprintf("%s%s:%08d", messageKeyPrefix, msg.SessionID, seq)
	if err := r.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("set message %s: %w", msg.ID, err)
	}
	return nil
}

// ListMessages returns a session's messages in append order.
func (r *Repo) ListMessages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	keys, err := r.store.Scan(ctx, messageKeyPrefix+sessionID+":*")
	if err != nil {
		return nil, fmt.Errorf("scan messages of %s: %w", sessionID, err)
	}
	values, err := r.store.GetMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch messages of %s: %w", sessionID, err)
	}

	dtos := make([]messageDTO, 0, len(values))
	for i, raw := range values {
		if raw == nil {
			continue
		}
		var d messageDTO
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("unmarshal message %s: %w", keys[i], err)
		}
		dtos = append(dtos, d)
	}

	sort.Slice(dtos, func(i, j int) bool { return dtos[i].Seq < dtos[j].Seq })

	msgs := make([]domain.Message, len(dtos))
	for i, d := range dtos {
		msgs[i] = d.toDomain()
	}
	return msgs, nil
}
