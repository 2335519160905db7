package redis

import "github.com/redis/rueidis"

// NewStoreForTest creates a Redis-flavored Store with the provided rueidis client (test-only).
func NewStoreForTest(c rueidis.Client) *Store {
	return &Store{client: c, flavor: FlavorRedis}
}

// NewValkeyStoreForTest creates a Valkey-flavored Store with the provided rueidis client (test-only).
func NewValkeyStoreForTest(c rueidis.Client) *Store {
	return &Store{client: c, flavor: FlavorValkey}
}
