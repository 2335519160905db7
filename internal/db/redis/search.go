package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/kbquery/internal/db"
	"github.com/kailas-cloud/kbquery/internal/domain/search/filter"
)

// SearchKNN runs a KNN vector similarity search via FT.SEARCH.
// Hits come back nearest first. Redis orders them with SORTBY; valkey-search
// has no SORTBY, so its hits are ordered by score after parsing.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}
	vectorField := q.VectorField
	if vectorField == "" {
		vectorField = "__vector"
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(knnArgs(q, vectorField, s.flavor)...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isMissingIndex(err) {
			return nil, &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	res, err := parseKNNResult(raw)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	if s.flavor == FlavorValkey {
		sort.SliceStable(res.Entries, func(i, j int) bool {
			return res.Entries[i].Score > res.Entries[j].Score
		})
	}
	return res, nil
}

func knnArgs(q *db.KNNQuery, vectorField string, flavor Flavor) []string {
	knnPart := fmt.Sprintf("[KNN %d @%s $BLOB AS %s]", q.K, vectorField, db.ScoreField)

	var queryStr string
	if filterStr := buildFilter(q.Filter); filterStr != "" {
		queryStr = fmt.Sprintf("(%s)=>%s", filterStr, knnPart)
	} else {
		queryStr = "*=>" + knnPart
	}

	args := []string{q.IndexName, queryStr}
	if flavor != FlavorValkey {
		args = append(args, "SORTBY", db.ScoreField, "ASC")
	}
	return append(args,
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	)
}

// --- Result parsing ---

// parseKNNResult decodes [total, key1, fields1, key2, fields2, ...].
// Every key must pair with a well-formed field list; partial replies are rejected.
func parseKNNResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty reply", db.ErrMalformedReply)
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("%w: parse total: %w", db.ErrMalformedReply, err)
	}

	rest := raw[1:]
	if len(rest)%2 != 0 {
		return nil, fmt.Errorf("%w: %d keys for %d field lists",
			db.ErrMalformedReply, (len(rest)+1)/2, len(rest)/2)
	}

	entries := make([]db.SearchEntry, 0, len(rest)/2)
	for i := 0; i < len(rest); i += 2 {
		key, err := rest[i].ToString()
		if err != nil {
			return nil, fmt.Errorf("%w: hit %d key: %w", db.ErrMalformedReply, i/2, err)
		}

		pairs, err := rest[i+1].ToArray()
		if err != nil {
			return nil, fmt.Errorf("%w: hit %d fields: %w", db.ErrMalformedReply, i/2, err)
		}
		fields, err := parseFieldPairs(pairs)
		if err != nil {
			return nil, fmt.Errorf("%w: hit %d: %w", db.ErrMalformedReply, i/2, err)
		}

		entry := db.SearchEntry{Key: key, Fields: fields}
		if scoreStr, ok := fields[db.ScoreField]; ok {
			dist, err := strconv.ParseFloat(scoreStr, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: hit %d score %q", db.ErrMalformedReply, i/2, scoreStr)
			}
			entry.Score = max(0, 1.0-dist) // cosine distance → similarity, clamped to [0,1]
			delete(fields, db.ScoreField)
		}

		entries = append(entries, entry)
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) (map[string]string, error) {
	if len(fields)%2 != 0 {
		return nil, fmt.Errorf("odd field list length %d", len(fields))
	}
	m := make(map[string]string, len(fields)/2)
	for j := 0; j < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			return nil, fmt.Errorf("field name %d: %w", j/2, err)
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		m[name] = value
	}
	return m, nil
}

// --- Filter building ---

// buildFilter translates an equality filter into an FT.SEARCH pre-filter.
// Conditions are joined with a space, which the query language treats as AND.
func buildFilter(f filter.Filter) string {
	if f.IsEmpty() {
		return ""
	}
	parts := make([]string, 0, len(f.Conditions()))
	for _, c := range f.Conditions() {
		parts = append(parts, buildCondition(c))
	}
	return strings.Join(parts, " ")
}

func buildCondition(c filter.Condition) string {
	v := c.Value()
	if v.Kind() == filter.KindNumber {
		n := strconv.FormatFloat(v.Num(), 'g', -1, 64)
		return fmt.Sprintf("@%s:[%s %s]", c.Field(), n, n)
	}
	return fmt.Sprintf("@%s:{%s}", c.Field(), tagEscaper.Replace(v.Str()))
}

var tagEscaper = strings.NewReplacer(
	`\`, `\\`,
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"[", "\\[",
	"]", "\\]",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	"/", "\\/",
	" ", "\\ ",
)

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
