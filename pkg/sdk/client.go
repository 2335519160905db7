package kbquery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/kbquery/internal/db"
	dbRedis "github.com/kailas-cloud/kbquery/internal/db/redis"
	"github.com/kailas-cloud/kbquery/internal/domain"
	"github.com/kailas-cloud/kbquery/internal/domain/search/result"
	searchrepo "github.com/kailas-cloud/kbquery/internal/repository/search"
	healthuc "github.com/kailas-cloud/kbquery/internal/usecase/health"
	knowledgeuc "github.com/kailas-cloud/kbquery/internal/usecase/knowledge"
	queryuc "github.com/kailas-cloud/kbquery/internal/usecase/query"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, swapped in tests.
type queryUseCase interface {
	Search(ctx context.Context, text string, topK int, metadataFilter map[string]any) ([]result.Record, error)
}

type knowledgeUseCase interface {
	Search(ctx context.Context, query, docType string, topK int) (string, error)
}

type storeHandle interface {
	Ping(ctx context.Context) error
	Close()
}

// Result is one retrieved chunk.
type Result struct {
	ID       string
	Score    float64
	Content  string
	Metadata map[string]string
}

// Client is the kbquery library entry point.
type Client struct {
	store        storeHandle
	querySvc     queryUseCase
	knowledgeSvc knowledgeUseCase
	healthSvc    healthUseCase
	obs          *observer
}

// New creates a Client and connects to the database.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		collection: domain.DefaultCollection,
		keyPrefix:  domain.KeyPrefix,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("kbquery: database address required (use WithValkey or WithRedis)")
	}
	if cfg.embedder == nil {
		return nil, errors.New("kbquery: embedder required (use WithEmbedder)")
	}
	if !db.IsValidIdentifier(cfg.collection) {
		return nil, fmt.Errorf("kbquery: invalid collection name %q", cfg.collection)
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("kbquery: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return wireClient(store, cfg, obs), nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "valkey", "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Flavor:     dbRedis.Flavor(cfg.driver),
			Addrs:      cfg.addrs,
			Password:   cfg.password,
			ClientName: "kbquery-sdk",
		})
		if err != nil {
			return nil, fmt.Errorf("kbquery: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("kbquery: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) *Client {
	repo := searchrepo.New(store, searchrepo.Layout{
		KeyPrefix:    cfg.keyPrefix,
		ContentField: cfg.contentField,
		VectorField:  cfg.vectorField,
	})
	emb := &embedderAdapter{inner: cfg.embedder}

	querySvc := queryuc.New(repo, emb, cfg.collection, queryuc.WithDimensions(cfg.dimensions))

	// Avoid a typed nil in the interface when the embedder has no health probe.
	var embCheck healthuc.EmbeddingChecker
	if hc, ok := cfg.embedder.(healthuc.EmbeddingChecker); ok {
		embCheck = hc
	}

	return &Client{
		store:        store,
		querySvc:     querySvc,
		knowledgeSvc: knowledgeuc.New(querySvc),
		healthSvc:    healthuc.New(store, repo, cfg.collection, embCheck),
		obs:          obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	span := c.obs.begin("ping")
	defer func() { span.end(err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Query returns up to TopK chunks most similar to text, in relevance order.
// A query that matches nothing returns an empty slice and a nil error.
func (c *Client) Query(ctx context.Context, text string, opts ...QueryOption) (_ []Result, err error) {
	var p queryParams
	for _, o := range opts {
		o(&p)
	}

	span := c.obs.begin("query", "top_k", p.topK, "filters", len(p.where))
	defer func() { span.end(err) }()

	records, err := c.querySvc.Search(ctx, text, p.topK, p.where)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	out := make([]Result, len(records))
	for i := range records {
		r := &records[i]
		out[i] = Result{ID: r.ID(), Score: r.Score(), Content: r.Content(), Metadata: r.Metadata()}
	}
	span.returned(len(out))
	return out, nil
}

// Knowledge returns the plain-text digest used by assistant tools.
// docType may be empty; topK=0 selects 3.
func (c *Client) Knowledge(ctx context.Context, text, docType string, topK int) (_ string, err error) {
	span := c.obs.begin("knowledge", "doc_type", docType, "top_k", topK)
	defer func() { span.end(err) }()

	digest, err := c.knowledgeSvc.Search(ctx, text, docType, topK)
	if err != nil {
		return "", fmt.Errorf("knowledge: %w", err)
	}
	return digest, nil
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}
