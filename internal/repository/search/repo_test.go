package search

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/kbquery/internal/db"
	"github.com/kailas-cloud/kbquery/internal/domain/search/filter"
)

// --- SearchKNN ---

func TestSearchKNN_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.IndexName != "kb:hr_onboarding_kb:idx" {
			t.Errorf("unexpected index: %s", q.IndexName)
		}
		if q.VectorField != "__vector" {
			t.Errorf("unexpected vector field: %s", q.VectorField)
		}
		if q.K != 3 {
			t.Errorf("unexpected K: %d", q.K)
		}
		return &db.SearchResult{
			Total: 2,
			Entries: []db.SearchEntry{
				{
					Key:   "kb:hr_onboarding_kb:chunk_0007",
					Score: 0.877,
					Fields: map[string]string{
						"__content":      "Leave policy: 24 days of paid leave.",
						"__vector":       "\x00\x00\x80\x3f",
						"source_file":    "leave-policy.pdf",
						"priority_level": "high",
					},
				},
				{
					Key:   "kb:hr_onboarding_kb:chunk_0012",
					Score: 0.544,
					Fields: map[string]string{
						"__content":   "Holiday calendar for 2025.",
						"source_file": "holidays.pdf",
					},
				},
			},
		}, nil
	}

	records, err := repo.SearchKNN(ctx, "hr_onboarding_kb", testVector(), filter.Filter{}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID() != "chunk_0007" {
		t.Fatalf("expected ID chunk_0007, got %s", records[0].ID())
	}
	if records[0].Score() != 0.877 {
		t.Fatalf("expected score 0.877, got %f", records[0].Score())
	}
	if records[0].Content() != "Leave policy: 24 days of paid leave." {
		t.Fatalf("unexpected content %q", records[0].Content())
	}
	md := records[0].Metadata()
	if len(md) != 2 || md["source_file"] != "leave-policy.pdf" || md["priority_level"] != "high" {
		t.Fatalf("unexpected metadata %v", md)
	}
	if records[1].ID() != "chunk_0012" {
		t.Fatalf("order not preserved: %s", records[1].ID())
	}
}

func TestSearchKNN_CustomLayout(t *testing.T) {
	ms := &mockStore{}
	repo := New(ms, Layout{KeyPrefix: "x:", ContentField: "body", VectorField: "emb"})

	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.IndexName != "x:notes:idx" || q.VectorField != "emb" {
			t.Errorf("unexpected query %+v", q)
		}
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{{
			Key:    "x:notes:n1",
			Fields: map[string]string{"body": "text", "emb": "raw", "__content": "kept as metadata"},
		}}}, nil
	}

	records, err := repo.SearchKNN(context.Background(), "notes", testVector(), filter.Filter{}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records[0].Content() != "text" {
		t.Errorf("unexpected content %q", records[0].Content())
	}
	if _, ok := records[0].Metadata()["emb"]; ok {
		t.Error("vector field leaked into metadata")
	}
	if records[0].Metadata()["__content"] != "kept as metadata" {
		t.Error("expected non-layout fields in metadata")
	}
}

func TestSearchKNN_EmptyResults(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 0}, nil
	}

	records, err := repo.SearchKNN(context.Background(), "notes", testVector(), filter.Filter{}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", records)
	}
}

func TestSearchKNN_MissingContent(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{{
			Key:    "kb:notes:doc-1",
			Fields: map[string]string{"source_file": "a.pdf"},
		}}}, nil
	}

	_, err := repo.SearchKNN(context.Background(), "notes", testVector(), filter.Filter{}, 1)
	if !errors.Is(err, db.ErrMalformedReply) {
		t.Fatalf("expected ErrMalformedReply, got %v", err)
	}
}

func TestSearchKNN_Error(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return nil, &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
	}

	_, err := repo.SearchKNN(context.Background(), "notes", testVector(), filter.Filter{}, 10)
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Fatalf("expected wrapped ErrIndexNotFound, got %v", err)
	}
}

func TestSearchKNN_WithFilter(t *testing.T) {
	repo, ms := newTestRepo(t)
	f := mustFilter(t, "source_file", "organization-coe.pdf")

	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.Filter.IsEmpty() {
			t.Error("expected non-empty filter")
		}
		return &db.SearchResult{
			Total: 1,
			Entries: []db.SearchEntry{{
				Key:    "kb:notes:doc-1",
				Score:  0.9,
				Fields: map[string]string{"__content": "filtered", "source_file": "organization-coe.pdf"},
			}},
		}, nil
	}

	records, err := repo.SearchKNN(context.Background(), "notes", testVector(), f, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Get("source_file") != "organization-coe.pdf" {
		t.Fatalf("unexpected records %v", records)
	}
}

// --- CollectionExists ---

func TestCollectionExists(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.indexExistsFn = func(_ context.Context, name string) (bool, error) {
		return name == "kb:hr_onboarding_kb:idx", nil
	}

	ok, err := repo.CollectionExists(context.Background(), "hr_onboarding_kb")
	if err != nil || !ok {
		t.Fatalf("expected exists, got %v %v", ok, err)
	}
	ok, err = repo.CollectionExists(context.Background(), "other")
	if err != nil || ok {
		t.Fatalf("expected missing, got %v %v", ok, err)
	}
}

func TestCollectionExists_Error(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.indexExistsFn = func(_ context.Context, _ string) (bool, error) {
		return false, errors.New("connection reset")
	}
	if _, err := repo.CollectionExists(context.Background(), "notes"); err == nil {
		t.Fatal("expected error")
	}
}
