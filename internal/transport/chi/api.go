package chi

// ErrorCode is a stable machine-readable error identifier.
type ErrorCode string

// Error codes returned in ErrorResponse.Code.
const (
	ErrorCodeBadRequest             ErrorCode = "bad_request"
	ErrorCodeUnauthorized           ErrorCode = "unauthorized"
	ErrorCodeNotFound               ErrorCode = "not_found"
	ErrorCodeMethodNotAllowed       ErrorCode = "method_not_allowed"
	ErrorCodeInvalidQuery           ErrorCode = "invalid_query"
	ErrorCodeUnsupportedFilter      ErrorCode = "unsupported_filter"
	ErrorCodeCollectionNotFound     ErrorCode = "collection_not_found"
	ErrorCodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	ErrorCodeMalformedResult        ErrorCode = "malformed_result"
	ErrorCodeStoreUnavailable       ErrorCode = "store_unavailable"
	ErrorCodeTimeout                ErrorCode = "timeout"
	ErrorCodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// QueryRequest is the body of POST /v1/query.
type QueryRequest struct {
	Query          string         `json:"query"`
	TopK           *int           `json:"top_k,omitempty"`
	MetadataFilter map[string]any `json:"metadata_filter,omitempty"`
	IncludeScores  bool           `json:"include_scores,omitempty"`
}

// QueryResultItem is one retrieved chunk.
type QueryResultItem struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
	Score    *float64          `json:"score,omitempty"`
	ID       *string           `json:"id,omitempty"`
}

// QueryResponse is the body of a successful query.
type QueryResponse struct {
	Results []QueryResultItem `json:"results"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
