package knowledge

import (
	"context"

	"github.com/kailas-cloud/kbquery/internal/domain/search/result"
)

// Querier runs semantic queries.
type Querier interface {
	Search(ctx context.Context, text string, topK int, metadataFilter map[string]any) ([]result.Record, error)
}
