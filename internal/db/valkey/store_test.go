package valkey

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/vecstore/internal/db"
	"github.com/kailas-cloud/vecstore/internal/domain/search/pipeline"
)

func testPipeline(t *testing.T, minScore float64) pipeline.Pipeline {
	t.Helper()
	p, err := pipeline.Build(pipeline.Params{
		Vector:   []float32{1, 0},
		Field:    "embedding",
		Index:    "vecstore:docs:vector_index",
		TopK:     3,
		Filter:   "@country:{BG}",
		MinScore: minScore,
	})
	if err != nil {
		t.Fatalf("build pipeline: %v", err)
	}
	return p
}

func expectSearch(c *mock.Client) {
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" &&
				cmd[1] == "vecstore:docs:vector_index" &&
				cmd[2] == "(@country:{BG})=>[KNN 3 @embedding $BLOB EF_RUNTIME 200 AS __dist]"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(3),
			mock.RedisString("vecstore:docs:a"),
			mock.RedisArray(
				mock.RedisString("$"), mock.RedisString(`{"content":"A"}`),
				mock.RedisString("__dist"), mock.RedisString("0.1"),
			),
			mock.RedisString("vecstore:docs:b"),
			mock.RedisArray(
				mock.RedisString("$"), mock.RedisString(`[{"content":"B"}]`),
				mock.RedisString("__dist"), mock.RedisString("0.6"),
			),
			mock.RedisString("vecstore:docs:c"),
			mock.RedisArray(
				mock.RedisString("$"), mock.RedisString(`{"content":"C"}`),
				mock.RedisString("__dist"), mock.RedisString("1.2"),
			),
		)))
}

func TestAggregate_ScoresInRankOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	expectSearch(c)

	s := NewStoreForTest(c)
	rows, err := s.Aggregate(context.Background(), testPipeline(t, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	wantScores := []float64{0.95, 0.7, 0.4}
	for i, r := range rows {
		if d := r.Score - wantScores[i]; d > 1e-9 || d < -1e-9 {
			t.Errorf("row[%d] score = %v, want %v", i, r.Score, wantScores[i])
		}
	}
	if string(rows[1].Document) != `{"content":"B"}` {
		t.Errorf("array-wrapped root not unwrapped: %s", rows[1].Document)
	}
}

func TestAggregate_ThresholdAppliedClientSide(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	expectSearch(c)

	s := NewStoreForTest(c)
	rows, err := s.Aggregate(context.Background(), testPipeline(t, 0.65))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Key != "vecstore:docs:a" || rows[1].Key != "vecstore:docs:b" {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestAggregate_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	_, err := s.Aggregate(context.Background(), testPipeline(t, 0))
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpSearch {
		t.Fatalf("expected FT.SEARCH db.Error, got %v", err)
	}
}

func TestCreateIndex_ValkeyConflictMessage(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.CREATE" })).
		Return(mock.Result(mock.RedisError("Index vecstore:docs:vector_index already exists.")))

	s := NewStoreForTest(c)
	def := db.NewIndex("vecstore:docs:vector_index").
		Prefix("vecstore:docs:").
		VectorHNSW("embedding", 2, db.DistanceCosine, 0, 0).
		MustBuild()
	outcome, err := s.CreateIndex(context.Background(), def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != db.IndexExpectedConflict {
		t.Errorf("outcome = %v", outcome)
	}
}
