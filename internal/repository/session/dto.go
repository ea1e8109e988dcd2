package session

import "github.com/velum-cloud/ragdex/internal/domain"

type sessionDTO struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt int64  `json:"created_at"`
}

type contextDTO struct {
	ChunkID         string   `json:"chunk_id"`
	DocID           string   `json:"doc_id"`
	DocTitle        string   `json:"doc_title"`
	Content         string   `json:"content"`
	Score           float64  `json:"score"`
	RelatedEntities []string `json:"related_entities,omitempty"`
}

type messageDTO struct {
	ID        string       `json:"id"`
	SessionID string       `json:"session_id"`
	Seq       int          `json:"seq"`
	Role      string       `json:"role"`
	Content   string       `json:"content"`
	CreatedAt int64        `json:"created_at"`
	Contexts  []contextDTO `json:"contexts,omitempty"`
}

func fromDomainMessage(m domain.Message, seq int) messageDTO {
	d := messageDTO{
		ID:        m.ID,
		SessionID: m.SessionID,
		Seq:       seq,
		Role:      string(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
	for _, c := range m.Contexts {
		d.Contexts = append(d.Contexts, contextDTO{
			ChunkID:         c.ChunkID,
			DocID:           c.DocID,
			DocTitle:        c.DocTitle,
			Content:         c.Content,
			Score:           c.Score,
			RelatedEntities: c.RelatedEntities,
		})
	}
	return d
}

func (d messageDTO) toDomain() domain.Message {
	m := domain.Message{
		ID:        d.ID,
		SessionID: d.SessionID,
		Role:      domain.Role(d.Role),
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
	}
	for _, c := range d.Contexts {
		m.Contexts = append(m.Contexts, domain.RetrievalContext{
			ChunkID:         c.ChunkID,
			DocID:           c.DocID,
			DocTitle:        c.DocTitle,
			Content:         c.Content,
			Score:           c.Score,
			RelatedEntities: c.RelatedEntities,
		})
	}
	return m
}
