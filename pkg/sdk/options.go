package kbquery

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "valkey" or "redis"
	addrs    []string
	password string

	embedder Embedder

	collection   string
	keyPrefix    string
	contentField string
	vectorField  string
	dimensions   int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithValkey configures the client to connect to a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithEmbedder sets the query embedding provider. Required.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithCollection selects the collection to query.
// Defaults to hr_onboarding_kb.
func WithCollection(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.collection = name
	})
}

// WithKeyPrefix sets the key prefix shared by documents and indexes. Default: "kb:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithFields names the hash fields holding chunk text and vector.
// Defaults: "__content", "__vector".
func WithFields(content, vector string) Option {
	return optionFunc(func(c *clientConfig) {
		c.contentField = content
		c.vectorField = vector
	})
}

// WithDimensions rejects query vectors of any other length. Zero disables the check.
func WithDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.dimensions = dim
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

// QueryOption tunes a single Query call.
type QueryOption func(*queryParams)

type queryParams struct {
	topK  int
	where map[string]any
}

// TopK sets the number of results. Zero selects the default of 3.
func TopK(k int) QueryOption {
	return func(p *queryParams) { p.topK = k }
}

// Where adds an equality pre-filter on a metadata field. Repeat for AND.
func Where(field, value string) QueryOption {
	return func(p *queryParams) {
		if p.where == nil {
			p.where = make(map[string]any)
		}
		p.where[field] = value
	}
}
