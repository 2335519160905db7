package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/kbquery/internal/db"
	"github.com/kailas-cloud/kbquery/internal/domain/search/filter"
	"github.com/kailas-cloud/kbquery/internal/domain/search/result"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Layout describes how a collection is laid out in the store.
type Layout struct {
	KeyPrefix    string
	ContentField string
	VectorField  string
}

// Repo implements usecase/query.Repository.
type Repo struct {
	store  store
	layout Layout
}

// New creates a search repository.
func New(s store, layout Layout) *Repo {
	if layout.ContentField == "" {
		layout.ContentField = "__content"
	}
	if layout.VectorField == "" {
		layout.VectorField = "__vector"
	}
	return &Repo{store: s, layout: layout}
}

// IndexName returns the FT index name for a collection.
func (r *Repo) IndexName(collection string) string {
	return fmt.Sprintf("%s%s:idx", r.layout.KeyPrefix, collection)
}

// CollectionExists reports whether the collection's index is present.
func (r *Repo) CollectionExists(ctx context.Context, collection string) (bool, error) {
	ok, err := r.store.IndexExists(ctx, r.IndexName(collection))
	if err != nil {
		return false, fmt.Errorf("index exists %s: %w", collection, err)
	}
	return ok, nil
}

// SearchKNN runs a nearest-neighbour search on a collection with an optional equality pre-filter.
// Records come back in store order, nearest first.
func (r *Repo) SearchKNN(
	ctx context.Context, collection string,
	vector []float32, f filter.Filter, topK int,
) ([]result.Record, error) {
	q := &db.KNNQuery{
		IndexName:   r.IndexName(collection),
		VectorField: r.layout.VectorField,
		Filter:      f,
		Vector:      vector,
		K:           topK,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", collection, err)
	}

	return r.parseKNNResults(sr, collection)
}

func (r *Repo) parseKNNResults(sr *db.SearchResult, collection string) ([]result.Record, error) {
	if sr == nil {
		return []result.Record{}, nil
	}

	prefix := fmt.Sprintf("%s%s:", r.layout.KeyPrefix, collection)
	records := make([]result.Record, 0, len(sr.Entries))

	for i, entry := range sr.Entries {
		rec, err := r.parseEntry(strings.TrimPrefix(entry.Key, prefix), entry)
		if err != nil {
			return nil, fmt.Errorf("hit %d (%s): %w", i, entry.Key, err)
		}
		records = append(records, rec)
	}

	return records, nil
}

// parseEntry splits flat hash fields into content and metadata.
// A hit without the content field is malformed.
func (r *Repo) parseEntry(docID string, entry db.SearchEntry) (result.Record, error) {
	content, ok := entry.Fields[r.layout.ContentField]
	if !ok {
		return result.Record{}, fmt.Errorf("%w: missing %s", db.ErrMalformedReply, r.layout.ContentField)
	}

	metadata := make(map[string]string, len(entry.Fields))
	for k, v := range entry.Fields {
		switch k {
		case r.layout.ContentField, r.layout.VectorField, db.ScoreField:
		default:
			metadata[k] = v
		}
	}

	return result.New(docID, entry.Score, content, metadata), nil
}
