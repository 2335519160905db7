package domain

import "context"

type embeddingUsageKey struct{}

// EmbeddingUsage records what embedding one request cost. The transport layer
// attaches it to the context, the query path fills it in, and the transport
// reads it back for response headers.
type EmbeddingUsage struct {
	TotalTokens int
	// Used is set once the embedder ran, even when it reported 0 tokens.
	Used bool
	// CacheHit is set when the vector came from the embedding cache.
	CacheHit bool
}

// NewContextWithUsage returns a context with an empty usage record attached.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext returns the usage record, or nil if none is attached.
// All methods are safe on a nil receiver.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// AddTokens records consumed tokens and marks the embedder as used.
func (u *EmbeddingUsage) AddTokens(n int) {
	if u == nil {
		return
	}
	u.TotalTokens += n
	u.Used = true
}

// MarkCacheHit records that the vector was served from cache.
func (u *EmbeddingUsage) MarkCacheHit() {
	if u != nil {
		u.CacheHit = true
	}
}

// CacheStatus returns "hit" or "miss" for response headers, or "" before any embedding.
func (u *EmbeddingUsage) CacheStatus() string {
	switch {
	case u == nil || !u.Used:
		return ""
	case u.CacheHit:
		return "hit"
	default:
		return "miss"
	}
}
