package redis

import (
	"context"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/kbquery/internal/db"
)

// isMissingIndex matches the wording of RediSearch ("Unknown Index name"),
// Redis 8 ("no such index") and valkey-search ("Index with name ... not found").
// Other "not found" errors, such as an unknown field, are not index misses.
func isMissingIndex(err error) bool {
	if isRedisErr(err, "unknown index name", "no such index") {
		return true
	}
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	msg := strings.ToLower(re.Error())
	return strings.Contains(msg, "index") &&
		strings.Contains(msg, "not found") &&
		!strings.Contains(msg, "field")
}

// IndexExists probes index existence via FT.INFO.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isMissingIndex(err) {
			return false, nil
		}
		return false, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	return true, nil
}
