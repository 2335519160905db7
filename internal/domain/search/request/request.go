package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/kbquery/internal/domain"
	"github.com/kailas-cloud/kbquery/internal/domain/search/filter"
)

// Query parameter limits.
const (
	// MaxQueryLength is the maximum allowed query length in bytes.
	MaxQueryLength = 4096
	DefaultTopK    = 3
	MaxTopK        = 100
)

// Request is a validated semantic query.
type Request struct {
	text   string
	topK   int
	filter filter.Filter
}

// New validates query parameters. topK=0 selects DefaultTopK.
func New(text string, topK int, f filter.Filter) (Request, error) {
	if strings.TrimSpace(text) == "" {
		return Request{}, fmt.Errorf("%w: query text is required", domain.ErrInvalidQuery)
	}
	if len(text) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d bytes)", domain.ErrInvalidQuery, MaxQueryLength)
	}
	if topK == 0 {
		topK = DefaultTopK
	}
	if topK < 0 {
		return Request{}, fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrInvalidQuery, topK)
	}
	if topK > MaxTopK {
		return Request{}, fmt.Errorf("%w: top_k must be at most %d, got %d", domain.ErrInvalidQuery, MaxTopK, topK)
	}
	return Request{text: text, topK: topK, filter: f}, nil
}

// Text returns the query text as given.
func (r *Request) Text() string { return r.text }

// TopK returns the maximum number of records to return.
func (r *Request) TopK() int { return r.topK }

// Filter returns the metadata pre-filter.
func (r *Request) Filter() filter.Filter { return r.filter }
