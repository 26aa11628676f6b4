package valkey

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/vecstore/internal/db"
	"github.com/kailas-cloud/vecstore/internal/db/redis"
	"github.com/kailas-cloud/vecstore/internal/domain/search/pipeline"
)

// distField matches the alias used by redis.KNNQuery.
const distField = "__dist"

// Aggregate executes the recall stage with FT.SEARCH, then materializes the
// score and applies the threshold in stage order. Engine rank order is kept.
func (s *Store) Aggregate(ctx context.Context, p pipeline.Pipeline) ([]db.Row, error) {
	r := p.Recall()

	args := []string{
		r.Index, redis.KNNQuery(r),
		"PARAMS", "2", "BLOB", redis.VectorToBytes(r.Vector),
		"RETURN", "2", "$", distField,
		"LIMIT", "0", strconv.Itoa(r.Limit),
		"DIALECT", "2",
	}

	cmd := s.client.B().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	hits, err := parseSearchResult(raw)
	if err != nil {
		return nil, err
	}

	th := p.Threshold()
	rows := make([]db.Row, 0, len(hits))
	for _, h := range hits {
		score := pipeline.ScoreFromCosineDistance(h.dist)
		if !th.Keep(score) {
			continue
		}
		rows = append(rows, db.Row{Key: h.key, Document: h.doc, Score: score})
	}
	return rows, nil
}

type hit struct {
	key  string
	doc  []byte
	dist float64
}

// parseSearchResult reads the 2-stride reply [total, key1, fields1, key2, fields2, ...].
func parseSearchResult(raw []rueidis.RedisMessage) ([]hit, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	hits := make([]hit, 0, total)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		m := redis.ParseFieldPairs(fields)

		d, err := strconv.ParseFloat(m[distField], 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s for %s: %w", distField, key, err)
		}
		hits = append(hits, hit{key: key, doc: unwrapJSONRoot(m["$"]), dist: d})
	}
	return hits, nil
}

// unwrapJSONRoot strips the single-element array some valkey-json versions
// return for the "$" path.
func unwrapJSONRoot(s string) []byte {
	if len(s) == 0 || s[0] != '[' {
		return []byte(s)
	}
	var arr []json.RawMessage
	if err := json.Unmarshal([]byte(s), &arr); err != nil || len(arr) != 1 {
		return []byte(s)
	}
	return arr[0]
}
