package verify

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/kailas-cloud/kbquery/internal/domain/search/result"
)

// Querier runs semantic queries.
type Querier interface {
	Search(ctx context.Context, text string, topK int, metadataFilter map[string]any) ([]result.Record, error)
}

// Outcome is the result of replaying one scenario.
type Outcome struct {
	Scenario   Scenario
	Records    []result.Record
	Mismatches []string
	Err        error
}

// Passed reports whether the scenario ran and every expectation held.
func (o Outcome) Passed() bool {
	return o.Err == nil && len(o.Mismatches) == 0
}

// Service replays retrieval scenarios through a Querier.
type Service struct {
	q      Querier
	logger *zap.Logger
}

// New creates a transcript verifier.
func New(q Querier, logger *zap.Logger) *Service {
	return &Service{q: q, logger: logger}
}

// Run executes every scenario in order. It never stops early.
func (s *Service) Run(ctx context.Context, scenarios []Scenario) []Outcome {
	out := make([]Outcome, 0, len(scenarios))
	for _, sc := range scenarios {
		o := s.runOne(ctx, sc)
		if o.Passed() {
			s.logger.Info("Scenario passed", zap.String("scenario", sc.Name), zap.Int("records", len(o.Records)))
		} else {
			s.logger.Warn("Scenario failed",
				zap.String("scenario", sc.Name),
				zap.Strings("mismatches", o.Mismatches),
				zap.Error(o.Err),
			)
		}
		out = append(out, o)
	}
	return out
}

func (s *Service) runOne(ctx context.Context, sc Scenario) Outcome {
	records, err := s.q.Search(ctx, sc.Query, sc.TopK, sc.Where)
	if err != nil {
		return Outcome{Scenario: sc, Err: fmt.Errorf("scenario %q: %w", sc.Name, err)}
	}
	return Outcome{Scenario: sc, Records: records, Mismatches: check(sc, records)}
}

func check(sc Scenario, records []result.Record) []string {
	var mismatches []string
	if sc.TopK > 0 && len(records) > sc.TopK {
		mismatches = append(mismatches, fmt.Sprintf("got %d records, top_k is %d", len(records), sc.TopK))
	}
	if sc.Count > 0 && len(records) != sc.Count {
		mismatches = append(mismatches, fmt.Sprintf("got %d records, want %d", len(records), sc.Count))
	}

	for i := range records {
		r := &records[i]
		mismatches = append(mismatches, compare(i, r, sc.Each)...)
		if i < len(sc.Positions) {
			mismatches = append(mismatches, compare(i, r, sc.Positions[i])...)
		}
	}
	return mismatches
}

func compare(i int, r *result.Record, want map[string]string) []string {
	keys := make([]string, 0, len(want))
	for k := range want {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []string
	for _, k := range keys {
		if got := r.Get(k); got != want[k] {
			out = append(out, fmt.Sprintf("result %d: %s = %q, want %q", i+1, k, got, want[k]))
		}
	}
	return out
}
