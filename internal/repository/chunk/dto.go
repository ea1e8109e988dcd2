package chunk

import "github.com/velum-cloud/ragdex/internal/domain"

// chunkDTO is the stored JSON shape of a chunk. The vector is stored inline;
// chunks are the only place vectors live.
type chunkDTO struct {
	ID     string    `json:"id"`
	DocID  string    `json:"doc_id"`
	Seq    int       `json:"seq"`
	Text   string    `json:"text"`
	Vector []float32 `json:"vector,omitempty"`
}

func fromDomain(c domain.Chunk) chunkDTO {
	return chunkDTO{
		ID:     c.ID,
		DocID:  c.DocID,
		Seq:    c.Seq,
		Text:   c.Text,
		Vector: c.Vector,
	}
}

func (c chunkDTO) toDomain() domain.Chunk {
	return domain.Chunk{
		ID:     c.ID,
		DocID:  c.DocID,
		Seq:    c.Seq,
		Text:   c.Text,
		Vector: c.Vector,
	}
}
