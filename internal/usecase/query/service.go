package query

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/kbquery/internal/db"
	"github.com/kailas-cloud/kbquery/internal/domain"
	"github.com/kailas-cloud/kbquery/internal/domain/search/filter"
	"github.com/kailas-cloud/kbquery/internal/domain/search/request"
	"github.com/kailas-cloud/kbquery/internal/domain/search/result"
	"github.com/kailas-cloud/kbquery/internal/logger"
	"github.com/kailas-cloud/kbquery/internal/metrics"
)

// Service answers semantic queries against a single collection.
type Service struct {
	repo       Repository
	embed      Embedder
	collection string
	dimensions int
	defaultK   int
	logger     *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithDimensions makes the service reject query vectors of any other length.
func WithDimensions(n int) Option {
	return func(s *Service) { s.dimensions = n }
}

// WithDefaultTopK sets the top_k used when a caller passes 0.
func WithDefaultTopK(k int) Option {
	return func(s *Service) { s.defaultK = k }
}

// WithLogger sets the fallback logger used when the context carries none.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a query service bound to a collection.
func New(repo Repository, embed Embedder, collection string, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		embed:      embed,
		collection: collection,
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Collection returns the collection this service reads.
func (s *Service) Collection() string { return s.collection }

// Search builds a request from loosely typed arguments and runs it.
// metadataFilter uses the store dialect: {"field": value} or {"field": {"$eq": value}}.
func (s *Service) Search(
	ctx context.Context, text string, topK int, metadataFilter map[string]any,
) ([]result.Record, error) {
	f, err := filter.FromMap(metadataFilter)
	if err != nil {
		s.observe("invalid", 0, time.Time{}, false)
		if errors.Is(err, filter.ErrUnsupportedOperator) {
			return nil, fmt.Errorf("%w: %w: %w", domain.ErrStoreQuery, domain.ErrUnsupportedFilter, err)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}

	return s.SearchFilter(ctx, text, topK, f)
}

// SearchFilter is Search with an already built filter. topK=0 selects the service default.
func (s *Service) SearchFilter(
	ctx context.Context, text string, topK int, f filter.Filter,
) ([]result.Record, error) {
	if topK == 0 {
		topK = s.defaultK
	}
	req, err := request.New(text, topK, f)
	if err != nil {
		s.observe("invalid", 0, time.Time{}, false)
		return nil, err //nolint:wrapcheck // already carries ErrInvalidQuery
	}

	return s.Query(ctx, &req)
}

// Query embeds the request text, runs a KNN search with the request filter as
// pre-filter and returns the records in store order.
func (s *Service) Query(ctx context.Context, req *request.Request) ([]result.Record, error) {
	start := time.Now()
	filtered := !req.Filter().IsEmpty()

	embResult, err := s.embed.Embed(ctx, req.Text())
	if err != nil {
		s.observe("embedding_error", 0, start, filtered)
		if errors.Is(err, domain.ErrEmbedding) {
			return nil, fmt.Errorf("vectorize query: %w", err)
		}
		return nil, fmt.Errorf("vectorize query: %w: %w", domain.ErrEmbedding, err)
	}
	if err = s.checkVector(embResult.Embedding); err != nil {
		s.observe("embedding_error", 0, start, filtered)
		return nil, err
	}

	domain.UsageFromContext(ctx).AddTokens(embResult.TotalTokens)

	records, err := s.repo.SearchKNN(ctx, s.collection, embResult.Embedding, req.Filter(), req.TopK())
	if err != nil {
		status, mapped := classifyStoreError(s.collection, err)
		s.observe(status, 0, start, filtered)
		return nil, mapped
	}

	if len(records) > req.TopK() {
		s.observe("malformed", 0, start, filtered)
		return nil, fmt.Errorf("%w: store returned %d hits for top_k %d",
			domain.ErrMalformedResult, len(records), req.TopK())
	}
	if records == nil {
		records = []result.Record{}
	}

	s.observe("ok", len(records), start, filtered)
	s.log(ctx).Debug("Query completed",
		zap.String("collection", s.collection),
		zap.Int("top_k", req.TopK()),
		zap.Strings("filter_fields", req.Filter().Fields()),
		zap.Int("results", len(records)),
		zap.Int("embedding_tokens", embResult.TotalTokens),
		zap.Duration("duration", time.Since(start)),
	)

	return records, nil
}

func (s *Service) checkVector(vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty query vector", domain.ErrEmbedding)
	}
	if s.dimensions > 0 && len(vec) != s.dimensions {
		return fmt.Errorf("%w: query vector has %d dimensions, collection expects %d",
			domain.ErrEmbedding, len(vec), s.dimensions)
	}
	for _, v := range vec {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("%w: query vector is not finite", domain.ErrEmbedding)
		}
	}
	return nil
}

// classifyStoreError maps repository failures onto domain sentinels.
func classifyStoreError(collection string, err error) (string, error) {
	switch {
	case errors.Is(err, db.ErrMalformedReply):
		return "malformed", fmt.Errorf("%w: %w", domain.ErrMalformedResult, err)
	case errors.Is(err, db.ErrIndexNotFound):
		return "store_error", fmt.Errorf("%w: %w: %s", domain.ErrStoreQuery, domain.ErrCollectionNotFound, collection)
	default:
		return "store_error", fmt.Errorf("%w: %w", domain.ErrStoreQuery, err)
	}
}

func (s *Service) observe(status string, n int, start time.Time, filtered bool) {
	metrics.QueriesTotal.WithLabelValues(s.collection, status).Inc()
	if start.IsZero() {
		return
	}
	metrics.QueryDuration.WithLabelValues(s.collection).Observe(time.Since(start).Seconds())
	if status == "ok" {
		label := "false"
		if filtered {
			label = "true"
		}
		metrics.QueryResults.WithLabelValues(s.collection, label).Observe(float64(n))
	}
}

func (s *Service) log(ctx context.Context) *zap.Logger {
	if l, ok := logger.Lookup(ctx); ok {
		return l
	}
	return s.logger
}
