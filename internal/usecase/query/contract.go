package query

import (
	"context"

	"github.com/kailas-cloud/kbquery/internal/domain"
	"github.com/kailas-cloud/kbquery/internal/domain/search/filter"
	"github.com/kailas-cloud/kbquery/internal/domain/search/result"
)

// Repository defines the storage contract for semantic lookup.
type Repository interface {
	SearchKNN(
		ctx context.Context, collection string,
		vector []float32, f filter.Filter, topK int,
	) ([]result.Record, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
