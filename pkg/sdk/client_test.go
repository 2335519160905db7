package kbquery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/kbquery/internal/domain"
	healthuc "github.com/kailas-cloud/kbquery/internal/usecase/health"
	knowledgeuc "github.com/kailas-cloud/kbquery/internal/usecase/knowledge"
	queryuc "github.com/kailas-cloud/kbquery/internal/usecase/query"
	"github.com/kailas-cloud/kbquery/internal/usecase/query/querytest"
)

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

type mockStore struct {
	pingErr error
	closed  bool
}

func (m *mockStore) Ping(context.Context) error { return m.pingErr }
func (m *mockStore) Close()                     { m.closed = true }

type stubHealth struct{ report healthuc.Report }

func (s stubHealth) Check(context.Context) healthuc.Report { return s.report }

// newKBClient builds a Client over the in-memory onboarding knowledge base.
func newKBClient(t *testing.T, obs *observer) (*Client, *querytest.Repo) {
	t.Helper()
	repo := querytest.OnboardingKB()
	q := queryuc.New(repo, &querytest.Embedder{}, repo.Collection)
	return &Client{
		store:        &mockStore{},
		querySvc:     q,
		knowledgeSvc: knowledgeuc.New(q),
		healthSvc:    stubHealth{report: healthuc.Report{Status: healthuc.Healthy}},
		obs:          obs,
	}, repo
}

func TestNew_NoAddress(t *testing.T) {
	_, err := New(context.Background(), WithEmbedder(&mockEmbedder{}))
	if err == nil {
		t.Fatal("expected error when no address provided")
	}
}

func TestNew_NoEmbedder(t *testing.T) {
	_, err := New(context.Background(), WithRedis("localhost:6379", ""))
	if err == nil || !strings.Contains(err.Error(), "embedder") {
		t.Fatalf("expected embedder error, got %v", err)
	}
}

func TestNew_InvalidCollection(t *testing.T) {
	_, err := New(context.Background(),
		WithValkey("localhost:6379", ""), WithEmbedder(&mockEmbedder{}), WithCollection("bad name"))
	if err == nil {
		t.Fatal("expected error for invalid collection")
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := &clientConfig{driver: "unknown", addrs: []string{"localhost:1234"}}
	_, err := createStore(cfg)
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestEmbedderAdapter(t *testing.T) {
	called := false
	mock := &mockEmbedder{
		fn: func(_ context.Context, text string) (EmbeddingResult, error) {
			called = true
			return EmbeddingResult{
				Embedding:    []float32{1, 2, 3},
				PromptTokens: 5,
				TotalTokens:  10,
			}, nil
		},
	}

	adapter := &embedderAdapter{inner: mock}
	result, err := adapter.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("inner embedder was not called")
	}
	if len(result.Embedding) != 3 {
		t.Errorf("embedding len = %d, want 3", len(result.Embedding))
	}
	if result.TotalTokens != 10 || result.PromptTokens != 5 {
		t.Errorf("tokens = %d/%d, want 5/10", result.PromptTokens, result.TotalTokens)
	}
}

func TestEmbedderAdapter_Error(t *testing.T) {
	mock := &mockEmbedder{
		fn: func(context.Context, string) (EmbeddingResult, error) {
			return EmbeddingResult{}, errors.New("provider down")
		},
	}
	_, err := (&embedderAdapter{inner: mock}).Embed(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestQuery_JoinersTranscript(t *testing.T) {
	c, _ := newKBClient(t, nil)

	results, err := c.Query(context.Background(), querytest.JoinersQuery,
		TopK(3), Where("doc_type", "employee_record"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"EMP001", "EMP004", "EMP003"}
	if len(results) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(results))
	}
	for i, id := range want {
		if got := results[i].Metadata["employee_id"]; got != id {
			t.Errorf("result %d: employee_id = %q, want %q", i, got, id)
		}
		if results[i].ID == "" || results[i].Content == "" {
			t.Errorf("result %d: missing id or content", i)
		}
	}
}

func TestQuery_MultipleWhere(t *testing.T) {
	c, _ := newKBClient(t, nil)

	results, err := c.Query(context.Background(), querytest.EthicsQuery,
		Where("source_file", "organization-coe.pdf"), Where("priority_level", "medium"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].ID != "chunk_0002" {
		t.Fatalf("expected chunk_0002 only, got %+v", results)
	}
}

func TestQuery_Errors(t *testing.T) {
	c, repo := newKBClient(t, nil)

	if _, err := c.Query(context.Background(), "  "); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery, got %v", err)
	}

	repo.Err = errors.New("connection reset")
	if _, err := c.Query(context.Background(), querytest.ComplianceQuery); !errors.Is(err, ErrStoreQuery) {
		t.Errorf("expected ErrStoreQuery, got %v", err)
	}
}

func TestKnowledge(t *testing.T) {
	c, _ := newKBClient(t, nil)

	digest, err := c.Knowledge(context.Background(), querytest.JoinersQuery, "employee_record", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(digest, "[employee_record | employees.json]\n") {
		t.Errorf("unexpected digest %q", digest)
	}

	if _, err := c.Knowledge(context.Background(), "x", "", 50); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	c, _ := newKBClient(t, nil)
	c.healthSvc = stubHealth{report: healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK, "collection": healthuc.CheckMissing},
	}}

	h := c.Health(context.Background())
	if h.Status != "degraded" || h.Checks["collection"] != "missing" {
		t.Errorf("unexpected health %+v", h)
	}
}

func TestPingAndClose(t *testing.T) {
	store := &mockStore{pingErr: errors.New("down")}
	c := &Client{store: store}

	if err := c.Ping(context.Background()); err == nil {
		t.Error("expected ping error")
	}
	c.Close()
	if !store.closed {
		t.Error("expected store to be closed")
	}
}

func TestObserver_OutcomeLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(slog.New(slog.DiscardHandler), reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, repo := newKBClient(t, obs)
	ctx := context.Background()

	_, _ = c.Query(ctx, querytest.ComplianceQuery)
	_, _ = c.Query(ctx, "")
	_, _ = c.Knowledge(ctx, querytest.ComplianceQuery, "", 11)
	repo.Err = errors.New("connection reset by peer")
	_, _ = c.Query(ctx, querytest.ComplianceQuery)

	tests := []struct {
		op, outcome string
		want        float64
	}{
		{"query", outcomeOK, 1},
		{"query", outcomeInvalidQuery, 1},
		{"query", outcomeStore, 1},
		{"query", outcomeEmbedding, 0},
		{"knowledge", outcomeInvalidQuery, 1},
	}
	for _, tt := range tests {
		got := testutil.ToFloat64(obs.metrics.calls.WithLabelValues(tt.op, tt.outcome))
		if got != tt.want {
			t.Errorf("calls{%s,%s} = %v, want %v", tt.op, tt.outcome, got, tt.want)
		}
	}
}

func TestObserver_ResultsReturned(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatal(err)
	}
	c, _ := newKBClient(t, obs)

	if _, err := c.Query(context.Background(), querytest.ComplianceQuery, TopK(2)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _ = c.Query(context.Background(), "")

	expected := `
		# HELP kbquery_sdk_results_returned Records returned per successful call.
		# TYPE kbquery_sdk_results_returned histogram
		kbquery_sdk_results_returned_bucket{operation="query",le="0"} 0
		kbquery_sdk_results_returned_bucket{operation="query",le="1"} 0
		kbquery_sdk_results_returned_bucket{operation="query",le="2"} 1
		kbquery_sdk_results_returned_bucket{operation="query",le="3"} 1
		kbquery_sdk_results_returned_bucket{operation="query",le="5"} 1
		kbquery_sdk_results_returned_bucket{operation="query",le="10"} 1
		kbquery_sdk_results_returned_bucket{operation="query",le="25"} 1
		kbquery_sdk_results_returned_bucket{operation="query",le="50"} 1
		kbquery_sdk_results_returned_bucket{operation="query",le="100"} 1
		kbquery_sdk_results_returned_bucket{operation="query",le="+Inf"} 1
		kbquery_sdk_results_returned_sum{operation="query"} 2
		kbquery_sdk_results_returned_count{operation="query"} 1
	`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "kbquery_sdk_results_returned"); err != nil {
		t.Error(err)
	}
}

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, outcomeOK},
		{fmt.Errorf("q: %w", domain.ErrInvalidQuery), outcomeInvalidQuery},
		{fmt.Errorf("%w: %w", domain.ErrStoreQuery, domain.ErrUnsupportedFilter), outcomeUnsupportedFilter},
		{fmt.Errorf("%w: %w", domain.ErrStoreQuery, domain.ErrCollectionNotFound), outcomeCollectionNotFound},
		{fmt.Errorf("embed: %w", domain.ErrEmbedding), outcomeEmbedding},
		{domain.ErrMalformedResult, outcomeMalformed},
		{domain.ErrStoreQuery, outcomeStore},
		{errors.New("boom"), outcomeError},
	}
	for _, tt := range tests {
		if got := outcomeOf(tt.err); got != tt.want {
			t.Errorf("outcomeOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestObserver_ReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := newObserver(nil, reg)
	if err != nil {
		t.Fatal(err)
	}
	second, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("second registration must reuse collectors: %v", err)
	}
	if first.metrics.calls != second.metrics.calls {
		t.Error("expected shared counter vec")
	}
}

func TestObserver_NilSafe(t *testing.T) {
	var o *observer
	span := o.begin("query")
	span.returned(3)
	span.end(nil)
}

func TestErrorsReexported(t *testing.T) {
	if !errors.Is(ErrCollectionNotFound, domain.ErrCollectionNotFound) {
		t.Error("ErrCollectionNotFound must alias the domain sentinel")
	}
}
