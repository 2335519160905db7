package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/kbquery/internal/domain"
)

const (
	// DefaultTopK is used when the caller passes zero.
	DefaultTopK = 3
	// MaxTopK bounds how much context a single lookup may pull in.
	MaxTopK = 10

	// NoResults is returned verbatim when nothing matched.
	NoResults = "No results found."

	blockSeparator = "\n\n---\n\n"
	unknownField   = "unknown"
)

// Service renders query results as a plain-text digest suitable for grounding an answer.
type Service struct {
	q Querier
}

// New creates a knowledge search service.
func New(q Querier) *Service {
	return &Service{q: q}
}

// Search looks up query, optionally restricted to one doc_type, and formats the hits as
// "[<doc_type> | <source_file>]\n<content>" blocks.
func (s *Service) Search(ctx context.Context, query, docType string, topK int) (string, error) {
	if topK == 0 {
		topK = DefaultTopK
	}
	if topK < 1 || topK > MaxTopK {
		return "", fmt.Errorf("%w: top_k must be between 1 and %d, got %d", domain.ErrInvalidQuery, MaxTopK, topK)
	}

	var where map[string]any
	if docType = strings.TrimSpace(docType); docType != "" {
		where = map[string]any{"doc_type": docType}
	}

	records, err := s.q.Search(ctx, query, topK, where)
	if err != nil {
		return "", fmt.Errorf("knowledge search: %w", err)
	}
	if len(records) == 0 {
		return NoResults, nil
	}

	blocks := make([]string, 0, len(records))
	for i := range records {
		r := &records[i]
		blocks = append(blocks, fmt.Sprintf("[%s | %s]\n%s",
			orUnknown(r.Get("doc_type")), orUnknown(r.Get("source_file")), r.Content()))
	}
	return strings.Join(blocks, blockSeparator), nil
}

func orUnknown(s string) string {
	if s == "" {
		return unknownField
	}
	return s
}
