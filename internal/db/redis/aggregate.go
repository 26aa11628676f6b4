package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/vecstore/internal/db"
	"github.com/kailas-cloud/vecstore/internal/domain/search/pipeline"
)

// distField is the KNN distance alias yielded by the recall stage.
const distField = "__dist"

// Aggregate runs the pipeline as a single FT.AGGREGATE: KNN recall with the
// pre-filter, APPLY for the score, FILTER for the threshold.
func (s *Store) Aggregate(ctx context.Context, p pipeline.Pipeline) ([]db.Row, error) {
	args := BuildAggregateArgs(p)
	cmd := s.b().Arbitrary("FT.AGGREGATE").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpAggregate, Err: err}
	}
	return parseAggregateResult(raw, p.Score().As)
}

// BuildAggregateArgs renders the pipeline stages in order.
func BuildAggregateArgs(p pipeline.Pipeline) []string {
	r := p.Recall()
	score := p.Score()
	th := p.Threshold()

	args := []string{r.Index, KNNQuery(r), "PARAMS", "2", "BLOB", VectorToBytes(r.Vector)}
	args = append(args,
		"LOAD", "2", "@__key", "$",
		"SORTBY", "2", "@"+distField, "ASC", "MAX", strconv.Itoa(r.Limit),
		"APPLY", "1 - @"+distField+" / 2", "AS", score.As,
	)
	if th.Active() {
		args = append(args, "FILTER", fmt.Sprintf("@%s >= %s", th.Field, formatFloat(th.Min)))
	}
	args = append(args, "LIMIT", "0", strconv.Itoa(r.Limit), "DIALECT", "2")
	return args
}

// KNNQuery renders the recall stage: "(filter)=>[KNN k @field $BLOB EF_RUNTIME n AS __dist]".
func KNNQuery(r pipeline.Recall) string {
	prefilter := "*"
	if r.Filter != "" {
		prefilter = "(" + r.Filter + ")"
	}
	return fmt.Sprintf("%s=>[KNN %d @%s $BLOB EF_RUNTIME %d AS %s]",
		prefilter, r.Limit, r.Field, r.NumCandidates, distField)
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// parseAggregateResult reads [total, row1, row2, ...] where each row is a flat
// field/value array.
func parseAggregateResult(raw []rueidis.RedisMessage, scoreField string) ([]db.Row, error) {
	if len(raw) <= 1 {
		return nil, nil
	}

	rows := make([]db.Row, 0, len(raw)-1)
	for _, msg := range raw[1:] {
		fields, err := msg.ToArray()
		if err != nil {
			return nil, fmt.Errorf("parse row: %w", err)
		}
		m := ParseFieldPairs(fields)

		row := db.Row{Key: m["__key"], Document: []byte(m["$"])}
		if v, ok := m[scoreField]; ok {
			row.Score, err = strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("parse %s for %s: %w", scoreField, row.Key, err)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ParseFieldPairs turns [name1, value1, name2, value2, ...] into a map.
func ParseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// VectorToBytes encodes a vector as little-endian FLOAT32.
func VectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
