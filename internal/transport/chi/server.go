// Package chi exposes the search API over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfsearch/internal/domain"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/request"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/result"
	"github.com/kailas-cloud/shelfsearch/internal/logger"
	"github.com/kailas-cloud/shelfsearch/internal/metrics"
	healthuc "github.com/kailas-cloud/shelfsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/shelfsearch/internal/usecase/search"
)

// ErrorCode is the machine-readable error code of an error response.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest          ErrorCode = "bad_request"
	CodeValidationFailed    ErrorCode = "validation_failed"
	CodeInvalidPagination   ErrorCode = "invalid_pagination"
	CodeInvalidCursor       ErrorCode = "invalid_cursor"
	CodeInvalidLanguage     ErrorCode = "invalid_language"
	CodeSemanticUnavailable ErrorCode = "semantic_unavailable"
	CodeEngineFailure       ErrorCode = "engine_failure"
	CodeRelationalFailure   ErrorCode = "relational_failure"
	CodeUnauthorized        ErrorCode = "unauthorized"
	CodeInternalError       ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Caller headers set by the upstream gateway.
const (
	HeaderUserID = "X-User-Id"
	HeaderTier   = "X-Tier"
)

// Searcher serves the search routes.
type Searcher interface {
	SearchLibrary(ctx context.Context, caller domain.Caller, req request.Request) (result.Connection[searchuc.LibraryHit], error)
	SearchLibraryPage(ctx context.Context, caller domain.Caller, req request.Request) (result.Page[searchuc.LibraryHit], error)
	SearchCorpus(ctx context.Context, caller domain.Caller, language string, req request.Request) (searchuc.CorpusConnection, error)
	SearchCorpusPage(ctx context.Context, caller domain.Caller, language string, req request.Request) (searchuc.CorpusPage, error)
}

// HealthChecker reports dependency health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server is the HTTP API.
type Server struct {
	search        Searcher
	health        HealthChecker
	apiKeys       []string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. An empty apiKeys disables auth.
func NewServer(search Searcher, health HealthChecker, apiKeys []string, logger *zap.Logger) *Server {
	s := &Server{
		search:  search,
		health:  health,
		apiKeys: apiKeys,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidPagination, http.StatusBadRequest, CodeInvalidPagination),
		sentinelHandler(domain.ErrInvalidCursor, http.StatusBadRequest, CodeInvalidCursor),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidLanguage, http.StatusUnprocessableEntity, CodeInvalidLanguage),
		sentinelHandler(domain.ErrSemanticUnavailable, http.StatusServiceUnavailable, CodeSemanticUnavailable),
		sentinelHandler(domain.ErrEngineFailure, http.StatusBadGateway, CodeEngineFailure),
		sentinelHandler(domain.ErrMalformedQuery, http.StatusBadGateway, CodeEngineFailure),
		sentinelHandler(domain.ErrRelationalFailure, http.StatusBadGateway, CodeRelationalFailure),
	}
	return s
}

// Routes builds the chi router with the middleware chain.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(s.apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/library/search", s.SearchLibrary)
		r.Post("/library/search/page", s.SearchLibraryPage)
		r.Post("/corpus/search", s.SearchCorpus)
		r.Post("/corpus/search/page", s.SearchCorpusPage)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
	return r
}

// SearchLibrary handles POST /v1/library/search.
func (s *Server) SearchLibrary(w http.ResponseWriter, r *http.Request) {
	_, req, ok := s.decode(w, r)
	if !ok {
		return
	}
	conn, err := s.search.SearchLibrary(r.Context(), callerFrom(r), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conn)
}

// SearchLibraryPage handles POST /v1/library/search/page.
func (s *Server) SearchLibraryPage(w http.ResponseWriter, r *http.Request) {
	_, req, ok := s.decode(w, r)
	if !ok {
		return
	}
	page, err := s.search.SearchLibraryPage(r.Context(), callerFrom(r), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// SearchCorpus handles POST /v1/corpus/search.
func (s *Server) SearchCorpus(w http.ResponseWriter, r *http.Request) {
	body, req, ok := s.decode(w, r)
	if !ok {
		return
	}
	ctx, usage := domain.NewContextWithUsage(r.Context())
	conn, err := s.search.SearchCorpus(ctx, callerFrom(r), body.Language, req)
	setEmbeddingHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conn)
}

// SearchCorpusPage handles POST /v1/corpus/search/page.
func (s *Server) SearchCorpusPage(w http.ResponseWriter, r *http.Request) {
	body, req, ok := s.decode(w, r)
	if !ok {
		return
	}
	ctx, usage := domain.NewContextWithUsage(r.Context())
	page, err := s.search.SearchCorpusPage(ctx, callerFrom(r), body.Language, req)
	setEmbeddingHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// decode reads and validates the search body. It writes the error response
// itself and reports false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request) (*SearchRequest, request.Request, bool) {
	var body SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return nil, request.Request{}, false
	}
	req, err := body.ToRequest()
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return nil, request.Request{}, false
	}
	return &body, req, true
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage.Used() {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
		cache := "miss"
		if usage.CacheHits == usage.Calls {
			cache = "hit"
		}
		w.Header().Set("X-Embedding-Cache", cache)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidPagination,
		domain.ErrInvalidCursor,
		domain.ErrInvalidRequest,
		domain.ErrInvalidLanguage,
		domain.ErrSemanticUnavailable,
		domain.ErrMalformedQuery,
		domain.ErrEngineFailure,
		domain.ErrRelationalFailure,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, safeDomainMessage(err))
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
