package search

import (
	"context"
	"testing"

	"github.com/kailas-cloud/kbquery/internal/db"
	"github.com/kailas-cloud/kbquery/internal/domain/search/filter"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchKNNFn   func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	indexExistsFn func(ctx context.Context, name string) (bool, error)
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return true, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms, Layout{KeyPrefix: "kb:"})
	return repo, ms
}

func testVector() []float32 {
	vec := make([]float32, 4)
	for i := range vec {
		vec[i] = 0.1
	}
	return vec
}

func mustFilter(t *testing.T, field, value string) filter.Filter {
	t.Helper()
	c, err := filter.Eq(field, value)
	if err != nil {
		t.Fatalf("Eq: %v", err)
	}
	f, err := filter.New(c)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}
