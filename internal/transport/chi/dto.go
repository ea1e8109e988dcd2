package chi

import (
	"time"

	"github.com/velum-cloud/ragdex/internal/domain"
	"github.com/velum-cloud/ragdex/internal/usecase/health"
)

// Error codes returned in errorResponse.Code.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeDocNotFound      = "document_not_found"
	codeSessionNotFound  = "session_not_found"
	codeIndexInProgress  = "index_in_progress"
	codeQuotaExceeded    = "embedding_quota_exceeded"
	codeProviderError    = "provider_error"
	codeInternalError    = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

type createDocumentRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type documentResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type documentDetailResponse struct {
	documentResponse
	Content string `json:"content"`
}

type documentListResponse struct {
	Items []documentResponse `json:"items"`
	Total int                `json:"total"`
}

type queryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type contextResponse struct {
	ChunkID         string   `json:"chunk_id"`
	DocID           string   `json:"doc_id"`
	DocTitle        string   `json:"doc_title"`
	Content         string   `json:"content"`
	Score           float64  `json:"score"`
	RelatedEntities []string `json:"related_entities,omitempty"`
}

type queryResponse struct {
	Contexts []contextResponse `json:"contexts"`
}

type graphNodeResponse struct {
	ID    string  `json:"id"`
	Type  string  `json:"type"`
	Label string  `json:"label"`
	Val   float64 `json:"val"`
}

type graphLinkResponse struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Type   string  `json:"type"`
	Weight float64 `json:"weight,omitempty"`
}

type graphResponse struct {
	Nodes []graphNodeResponse `json:"nodes"`
	Links []graphLinkResponse `json:"links"`
}

type createSessionRequest struct {
	Title string `json:"title"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type sessionListResponse struct {
	Items []sessionResponse `json:"items"`
	Total int               `json:"total"`
}

type askRequest struct {
	Question string `json:"question"`
}

type messageResponse struct {
	ID        string            `json:"id"`
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	CreatedAt time.Time         `json:"created_at"`
	Contexts  []contextResponse `json:"contexts,omitempty"`
}

type messageListResponse struct {
	Items []messageResponse `json:"items"`
	Total int               `json:"total"`
}

type settingsBody struct {
	ChunkSize    int `json:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap"`
	TopK         int `json:"top_k"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Hints  map[string]string `json:"hints,omitempty"`
}

func documentToResponse(d domain.Document) documentResponse {
	return documentResponse{
		ID:        d.ID,
		Title:     d.Title,
		Status:    string(d.Status),
		CreatedAt: time.UnixMilli(d.CreatedAt).UTC(),
	}
}

func contextsToResponse(contexts []domain.RetrievalContext) []contextResponse {
	out := make([]contextResponse, len(contexts))
	for i, rc := range contexts {
		out[i] = contextResponse{
			ChunkID:         rc.ChunkID,
			DocID:           rc.DocID,
			DocTitle:        rc.DocTitle,
			Content:         rc.Content,
			Score:           rc.Score,
			RelatedEntities: rc.RelatedEntities,
		}
	}
	return out
}

func graphToResponse(g domain.KnowledgeGraph) graphResponse {
	resp := graphResponse{
		Nodes: make([]graphNodeResponse, len(g.Nodes)),
		Links: make([]graphLinkResponse, len(g.Links)),
	}
	for i, n := range g.Nodes {
		resp.Nodes[i] = graphNodeResponse{
			ID:    n.ID,
			Type:  string(n.Type),
			Label: n.Label,
			Val:   n.Val,
		}
	}
	for i, l := range g.Links {
		resp.Links[i] = graphLinkResponse{
			Source: l.Source,
			Target: l.Target,
			Type:   string(l.Type),
			Weight: l.Weight,
		}
	}
	return resp
}

func sessionToResponse(s domain.Session) sessionResponse {
	return sessionResponse{
		ID:        s.ID,
		Title:     s.Title,
		CreatedAt: time.UnixMilli(s.CreatedAt).UTC(),
	}
}

func messageToResponse(m domain.Message) messageResponse {
	resp := messageResponse{
		ID:        m.ID,
		Role:      string(m.Role),
		Content:   m.Content,
		CreatedAt: time.UnixMilli(m.CreatedAt).UTC(),
	}
	if len(m.Contexts) > 0 {
		resp.Contexts = contextsToResponse(m.Contexts)
	}
	return resp
}

func healthToResponse(r health.Report) healthResponse {
	checks := make(map[string]string, len(r.Checks))
	for k, v := range r.Checks {
		checks[k] = string(v)
	}
	resp := healthResponse{Status: string(r.Status), Checks: checks}
	if len(r.Hints) > 0 {
		resp.Hints = r.Hints
	}
	return resp
}
