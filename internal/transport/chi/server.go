// Package chi is the HTTP transport: routing, request decoding, domain error
// mapping, and response shaping. Handlers hold no business logic.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/velum-cloud/ragdex/internal/domain"
	chatuc "github.com/velum-cloud/ragdex/internal/usecase/chat"
	graphuc "github.com/velum-cloud/ragdex/internal/usecase/graph"
	healthuc "github.com/velum-cloud/ragdex/internal/usecase/health"
	indexuc "github.com/velum-cloud/ragdex/internal/usecase/index"
	retrieveuc "github.com/velum-cloud/ragdex/internal/usecase/retrieve"
)

// SettingsRepository is the transport-facing settings contract.
type SettingsRepository interface {
	Get(ctx context.Context) (domain.Settings, error)
	Put(ctx context.Context, s domain.Settings) error
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg, hint string) bool

// Server carries the usecase services behind the HTTP API.
type Server struct {
	index         *indexuc.Service
	retrieve      *retrieveuc.Service
	graph         *graphuc.Service
	chat          *chatuc.Service
	health        *healthuc.Service
	settings      SettingsRepository
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	index *indexuc.Service,
	retrieve *retrieveuc.Service,
	graph *graphuc.Service,
	chat *chatuc.Service,
	health *healthuc.Service,
	settings SettingsRepository,
	logger *zap.Logger,
) *Server {
	s := &Server{
		index:    index,
		retrieve: retrieve,
		graph:    graph,
		chat:     chat,
		health:   health,
		settings: settings,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeDocNotFound),
		sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, codeSessionNotFound),
		sentinelHandler(domain.ErrEmptyDocument, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidChunking, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrIndexInProgress, http.StatusConflict, codeIndexInProgress),
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded, http.StatusPaymentRequired, codeQuotaExceeded),
		sentinelHandler(domain.ErrMissingCredentials, http.StatusBadGateway, codeProviderError),
		sentinelHandler(domain.ErrProviderUnreachable, http.StatusBadGateway, codeProviderError),
		sentinelHandler(domain.ErrModelNotFound, http.StatusBadGateway, codeProviderError),
		sentinelHandler(domain.ErrMalformedResponse, http.StatusBadGateway, codeProviderError),
		sentinelHandler(domain.ErrProvider, http.StatusBadGateway, codeProviderError),
	}
	return s
}

// Routes mounts every API route on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.healthCheck)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", s.createDocument)
			r.Get("/", s.listDocuments)
			r.Get("/{id}", s.getDocument)
			r.Delete("/{id}", s.deleteDocument)
			r.Post("/{id}/reindex", s.reindexDocument)
		})

		r.Post("/query", s.query)

		r.Get("/graph", s.corpusGraph)
		r.Post("/graph/roadmap", s.roadmap)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.createSession)
			r.Get("/", s.listSessions)
			r.Get("/{id}", s.getSession)
			r.Delete("/{id}", s.deleteSession)
			r.Get("/{id}/messages", s.listMessages)
			r.Post("/{id}/messages", s.ask)
		})

		r.Get("/settings", s.getSettings)
		r.Put("/settings", s.putSettings)
	})
}

// createDocument handles POST /api/v1/documents. Indexing runs in the
// background; the response reflects the pre-indexing document.
func (s *Server) createDocument(w http.ResponseWriter, r *http.Request) {
	var req createDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	doc, err := s.index.Ingest(r.Context(), req.Title, req.Content)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, documentToResponse(doc))
}

// listDocuments handles GET /api/v1/documents.
func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.index.List(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]documentResponse, len(docs))
	for i, d := range docs {
		items[i] = documentToResponse(d)
	}
	writeJSON(w, http.StatusOK, documentListResponse{Items: items, Total: len(items)})
}

// getDocument handles GET /api/v1/documents/{id}.
func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.index.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, documentDetailResponse{
		documentResponse: documentToResponse(doc),
		Content:          doc.Content,
	})
}

// deleteDocument handles DELETE /api/v1/documents/{id}.
func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.index.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// reindexDocument handles POST /api/v1/documents/{id}/reindex.
func (s *Server) reindexDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.index.Reindex(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, documentToResponse(doc))
}

// query handles POST /api/v1/query.
func (s *Server) query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	contexts, err := s.retrieve.Retrieve(r.Context(), req.Query, req.TopK)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{Contexts: contextsToResponse(contexts)})
}

// corpusGraph handles GET /api/v1/graph.
func (s *Server) corpusGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.graph.CorpusGraph(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, graphToResponse(g))
}

// roadmap handles POST /api/v1/graph/roadmap.
func (s *Server) roadmap(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "query is required")
		return
	}

	g, err := s.graph.Roadmap(r.Context(), req.Query, req.TopK)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, graphToResponse(g))
}

// createSession handles POST /api/v1/sessions.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	sess, err := s.chat.CreateSession(r.Context(), req.Title)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionToResponse(sess))
}

// listSessions handles GET /api/v1/sessions.
func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.chat.ListSessions(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]sessionResponse, len(sessions))
	for i, sess := range sessions {
		items[i] = sessionToResponse(sess)
	}
	writeJSON(w, http.StatusOK, sessionListResponse{Items: items, Total: len(items)})
}

// getSession handles GET /api/v1/sessions/{id}.
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.chat.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionToResponse(sess))
}

// deleteSession handles DELETE /api/v1/sessions/{id}.
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.chat.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listMessages handles GET /api/v1/sessions/{id}/messages.
func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.chat.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]messageResponse, len(msgs))
	for i, m := range msgs {
		items[i] = messageToResponse(m)
	}
	writeJSON(w, http.StatusOK, messageListResponse{Items: items, Total: len(items)})
}

// ask handles POST /api/v1/sessions/{id}/messages: one full chat turn.
func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	msg, err := s.chat.Ask(r.Context(), chi.URLParam(r, "id"), req.Question)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageToResponse(msg))
}

// getSettings handles GET /api/v1/settings.
func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	stored, err := s.settings.Get(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsBody{
		ChunkSize:    stored.ChunkSize,
		ChunkOverlap: stored.ChunkOverlap,
		TopK:         stored.TopK,
	})
}

// putSettings handles PUT /api/v1/settings. Zero fields reset that setting to
// the configured default.
func (s *Server) putSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.ChunkSize < 0 || req.ChunkOverlap < 0 || req.TopK < 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "settings values must not be negative")
		return
	}
	if req.ChunkSize > 0 && req.ChunkOverlap >= req.ChunkSize {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "chunk_overlap must be smaller than chunk_size")
		return
	}

	stored := domain.Settings{
		ChunkSize:    req.ChunkSize,
		ChunkOverlap: req.ChunkOverlap,
		TopK:         req.TopK,
	}
	if err := s.settings.Put(r.Context(), stored); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// healthCheck handles GET /health.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthToResponse(report))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrDocumentNotFound,
		domain.ErrSessionNotFound,
		domain.ErrEmptyDocument,
		domain.ErrEmptyQuery,
		domain.ErrInvalidChunking,
		domain.ErrIndexInProgress,
		domain.ErrEmbeddingQuotaExceeded,
		domain.ErrMissingCredentials,
		domain.ErrProviderUnreachable,
		domain.ErrModelNotFound,
		domain.ErrMalformedResponse,
		domain.ErrProvider,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler matching a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg, hint string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeJSON(w, status, errorResponse{Code: code, Message: msg, Hint: hint})
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Warn("domain error", zap.Error(err), zap.String("path", r.URL.Path))
	msg := safeDomainMessage(err)
	hint := domain.RemediationHint(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg, hint) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
