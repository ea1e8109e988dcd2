package document

import "github.com/velum-cloud/ragdex/internal/domain"

// docDTO is the stored JSON shape of a document.
type docDTO struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
	Status    string `json:"status"`
}

func fromDomain(d domain.Document) docDTO {
	return docDTO{
		ID:        d.ID,
		Title:     d.Title,
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
		Status:    string(d.Status),
	}
}

func (d docDTO) toDomain() domain.Document {
	return domain.Document{
		ID:        d.ID,
		Title:     d.Title,
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
		Status:    domain.DocStatus(d.Status),
	}
}
