package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/kbquery/internal/domain"
	"github.com/kailas-cloud/kbquery/internal/domain/search/filter"
	"github.com/kailas-cloud/kbquery/internal/domain/search/request"
	"github.com/kailas-cloud/kbquery/internal/domain/search/result"
	"github.com/kailas-cloud/kbquery/internal/logger"
	healthuc "github.com/kailas-cloud/kbquery/internal/usecase/health"
)

// QueryService answers semantic queries.
type QueryService interface {
	Search(ctx context.Context, text string, topK int, metadataFilter map[string]any) ([]result.Record, error)
	SearchFilter(ctx context.Context, text string, topK int, f filter.Filter) ([]result.Record, error)
}

// KnowledgeService renders knowledge digests.
type KnowledgeService interface {
	Search(ctx context.Context, query, docType string, topK int) (string, error)
}

// HealthService aggregates component health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server implements the kbquery HTTP API.
type Server struct {
	query         QueryService
	knowledge     KnowledgeService
	health        HealthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	query QueryService,
	knowledge KnowledgeService,
	health HealthService,
	logger *zap.Logger,
) *Server {
	s := &Server{
		query:     query,
		knowledge: knowledge,
		health:    health,
		logger:    logger,
	}
	// Order matters: composite errors carry ErrStoreQuery alongside a more specific sentinel.
	s.errorHandlers = []errorHandler{
		detailedHandler(domain.ErrInvalidQuery, http.StatusBadRequest, ErrorCodeInvalidQuery),
		sentinelHandler(domain.ErrUnsupportedFilter, http.StatusBadRequest, ErrorCodeUnsupportedFilter),
		sentinelHandler(domain.ErrCollectionNotFound, http.StatusNotFound, ErrorCodeCollectionNotFound),
		sentinelHandler(domain.ErrEmbedding, http.StatusBadGateway, ErrorCodeEmbeddingProviderError),
		sentinelHandler(domain.ErrMalformedResult, http.StatusBadGateway, ErrorCodeMalformedResult),
		sentinelHandler(domain.ErrStoreQuery, http.StatusServiceUnavailable, ErrorCodeStoreUnavailable),
	}
	return s
}

// PostQuery handles POST /v1/query.
func (s *Server) PostQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	// 0 from an absent field means "default"; an explicit 0 is rejected.
	topK := 0
	if req.TopK != nil {
		if *req.TopK <= 0 || *req.TopK > request.MaxTopK {
			writeError(w, http.StatusBadRequest, ErrorCodeInvalidQuery,
				fmt.Sprintf("top_k must be between 1 and %d", request.MaxTopK))
			return
		}
		topK = *req.TopK
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	records, err := s.query.Search(ctx, req.Query, topK, req.MetadataFilter)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, toQueryResponse(records, req.IncludeScores))
}

// GetQuery handles GET /v1/query?q=...&top_k=...&where=field:value&include_scores=true.
func (s *Server) GetQuery(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	var (
		text          string
		topK          *int
		where         *[]string
		includeScores *bool
	)
	if err := runtime.BindQueryParameter("form", true, true, "q", params, &text); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter q")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "top_k", params, &topK); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter top_k")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "where", params, &where); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter where")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "include_scores", params, &includeScores); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter include_scores")
		return
	}

	var pairs []string
	if where != nil {
		pairs = *where
	}
	f, err := filter.ParsePairs(pairs)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeInvalidQuery, err.Error())
		return
	}

	k := 0
	if topK != nil {
		if *topK <= 0 {
			writeError(w, http.StatusBadRequest, ErrorCodeInvalidQuery,
				fmt.Sprintf("top_k must be between 1 and %d", request.MaxTopK))
			return
		}
		k = *topK
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	records, err := s.query.SearchFilter(ctx, text, k, f)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, toQueryResponse(records, includeScores != nil && *includeScores))
}

// GetKnowledge handles GET /v1/knowledge?q=...&doc_type=...&top_k=....
func (s *Server) GetKnowledge(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	var (
		text    string
		docType *string
		topK    *int
	)
	if err := runtime.BindQueryParameter("form", true, true, "q", params, &text); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter q")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "doc_type", params, &docType); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter doc_type")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "top_k", params, &topK); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter top_k")
		return
	}

	dt, k := "", 0
	if docType != nil {
		dt = *docType
	}
	if topK != nil {
		if *topK <= 0 {
			writeError(w, http.StatusBadRequest, ErrorCodeInvalidQuery, "top_k must be positive")
			return
		}
		k = *topK
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	digest, err := s.knowledge.Search(ctx, text, dt, k)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(digest))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func toQueryResponse(records []result.Record, includeScores bool) QueryResponse {
	items := make([]QueryResultItem, len(records))
	for i := range records {
		r := &records[i]
		items[i] = QueryResultItem{Content: r.Content(), Metadata: r.Metadata()}
		if includeScores {
			score, id := r.Score(), r.ID()
			items[i].Score = &score
			items[i].ID = &id
		}
	}
	return QueryResponse{Results: items}
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage == nil || !usage.Used {
		return
	}
	w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	w.Header().Set("X-Embedding-Cache", usage.CacheStatus())
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

// sentinelHandler returns an errorHandler that matches a single sentinel error
// and reports only the sentinel's own message.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

// detailedHandler is sentinelHandler for validation errors, whose full text is safe to return.
func detailedHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := s.logger
	if l, ok := logger.Lookup(ctx); ok {
		log = l
	}
	log.Warn("domain error", zap.Error(err))
	// Whatever failed downstream, a spent request deadline is the cause.
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		writeError(w, http.StatusGatewayTimeout, ErrorCodeTimeout, "query timed out")
		return
	}
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
