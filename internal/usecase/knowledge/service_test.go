package knowledge

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/kailas-cloud/kbquery/internal/domain"
	"github.com/kailas-cloud/kbquery/internal/domain/search/result"
	"github.com/kailas-cloud/kbquery/internal/metrics"
	"github.com/kailas-cloud/kbquery/internal/usecase/query"
	"github.com/kailas-cloud/kbquery/internal/usecase/query/querytest"
)

func TestMain(m *testing.M) {
	metrics.RegisterQueryMetrics()
	os.Exit(m.Run())
}

type mockQuerier struct {
	records []result.Record
	err     error
	topK    int
	where   map[string]any
}

func (m *mockQuerier) Search(_ context.Context, _ string, topK int, where map[string]any) ([]result.Record, error) {
	m.topK, m.where = topK, where
	return m.records, m.err
}

func TestSearch_FormatsBlocks(t *testing.T) {
	q := &mockQuerier{records: []result.Record{
		result.New("a", 0.9, "Dress code is business casual.", map[string]string{"doc_type": "policy", "source_file": "handbook.pdf"}),
		result.New("b", 0.8, "Laptops ship on day one.", map[string]string{"source_file": "it.pdf"}),
	}}

	got, err := New(q).Search(context.Background(), "what to wear", "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "[policy | handbook.pdf]\nDress code is business casual." +
		"\n\n---\n\n" +
		"[unknown | it.pdf]\nLaptops ship on day one."
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
	if q.topK != DefaultTopK {
		t.Errorf("expected default top_k %d, got %d", DefaultTopK, q.topK)
	}
	if q.where != nil {
		t.Errorf("expected no filter, got %v", q.where)
	}
}

func TestSearch_DocTypeFilter(t *testing.T) {
	q := &mockQuerier{}
	if _, err := New(q).Search(context.Background(), "who", " employee_record ", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.where["doc_type"] != "employee_record" {
		t.Errorf("unexpected filter %v", q.where)
	}
}

func TestSearch_NoResults(t *testing.T) {
	got, err := New(&mockQuerier{}).Search(context.Background(), "nothing", "", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != NoResults {
		t.Errorf("got %q", got)
	}
}

func TestSearch_TopKBounds(t *testing.T) {
	for _, k := range []int{-1, 11} {
		_, err := New(&mockQuerier{}).Search(context.Background(), "q", "", k)
		if !errors.Is(err, domain.ErrInvalidQuery) {
			t.Errorf("top_k=%d: expected ErrInvalidQuery, got %v", k, err)
		}
	}
}

func TestSearch_PropagatesErrors(t *testing.T) {
	_, err := New(&mockQuerier{err: domain.ErrStoreQuery}).Search(context.Background(), "q", "", 3)
	if !errors.Is(err, domain.ErrStoreQuery) {
		t.Fatalf("expected ErrStoreQuery, got %v", err)
	}
}

func TestSearch_OnboardingKB(t *testing.T) {
	svc := query.New(querytest.OnboardingKB(), &querytest.Embedder{}, domain.DefaultCollection)

	got, err := New(svc).Search(context.Background(), querytest.JoinersQuery, "employee_record", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	blocks := strings.Split(got, blockSeparator)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d:\n%s", len(blocks), got)
	}
	if !strings.HasPrefix(blocks[0], "[employee_record | employees.json]\nAlice Chen") {
		t.Errorf("unexpected first block %q", blocks[0])
	}
}
