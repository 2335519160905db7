package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	result EmbeddingResult
	err    error
	got    string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.got = text
	return s.result, s.err
}

type healthyStub struct {
	stubEmbedder
	healthErr error
}

func (h *healthyStub) HealthCheck(_ context.Context) error { return h.healthErr }

func TestInstructionEmbedder_PrependsInstruction(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	emb := NewInstructionEmbedder(inner, "query: ")

	result, err := emb.Embed(context.Background(), "who is joining HR?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got != "query: who is joining HR?" {
		t.Errorf("expected prepended text, got %q", inner.got)
	}
	if len(result.Embedding) != 3 {
		t.Errorf("expected 3-element vector, got %d", len(result.Embedding))
	}
}

func TestInstructionEmbedder_ErrorPropagation(t *testing.T) {
	innerErr := errors.New("provider down")
	emb := NewInstructionEmbedder(&stubEmbedder{err: innerErr}, "query: ")

	_, err := emb.Embed(context.Background(), "hello")
	if !errors.Is(err, innerErr) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
}

func TestInstructionEmbedder_HealthCheckForwarded(t *testing.T) {
	down := errors.New("down")
	emb := NewInstructionEmbedder(&healthyStub{healthErr: down}, "q: ")
	if err := emb.HealthCheck(context.Background()); !errors.Is(err, down) {
		t.Errorf("expected forwarded health error, got %v", err)
	}

	plain := NewInstructionEmbedder(&stubEmbedder{}, "q: ")
	if err := plain.HealthCheck(context.Background()); err != nil {
		t.Errorf("expected nil for embedder without health check, got %v", err)
	}
}

func TestEmbeddingUsage(t *testing.T) {
	ctx, usage := NewContextWithUsage(context.Background())
	UsageFromContext(ctx).AddTokens(7)
	UsageFromContext(ctx).AddTokens(0)

	if usage.TotalTokens != 7 {
		t.Errorf("expected 7 tokens, got %d", usage.TotalTokens)
	}
	if !usage.Used {
		t.Error("expected Used=true")
	}

	// nil collector is a no-op
	UsageFromContext(context.Background()).AddTokens(3)
}

func TestEmbeddingUsage_CacheStatus(t *testing.T) {
	_, usage := NewContextWithUsage(context.Background())
	if got := usage.CacheStatus(); got != "" {
		t.Errorf("expected empty status before embedding, got %q", got)
	}

	usage.AddTokens(5)
	if got := usage.CacheStatus(); got != "miss" {
		t.Errorf("expected miss, got %q", got)
	}

	usage.MarkCacheHit()
	if got := usage.CacheStatus(); got != "hit" {
		t.Errorf("expected hit, got %q", got)
	}

	var none *EmbeddingUsage
	none.MarkCacheHit()
	if none.CacheStatus() != "" {
		t.Error("nil usage must report empty status")
	}
}
