// Package pipeline describes the three-stage ANN query executed by the store:
// vector recall with a pushed-down pre-filter, score materialization, and a
// similarity threshold. Backends render the stages in order; results keep the
// engine's rank order.
package pipeline

import (
	"errors"
	"fmt"
	"math"
)

const (
	// DefaultNumCandidates is the ANN candidate pool size when none is configured.
	DefaultNumCandidates = 200
	// ScoreField is the computed field holding the normalized similarity score.
	ScoreField = "score"
)

// ErrInvalid signals pipeline parameters that cannot produce a query.
var ErrInvalid = errors.New("pipeline: invalid parameters")

// Stage is one step of the pipeline.
type Stage interface {
	Name() string
}

// Recall is the approximate nearest-neighbour stage. Filter is a backend-native
// pre-filter applied during recall, empty for none.
type Recall struct {
	Index         string
	Field         string
	Vector        []float32
	NumCandidates int
	Limit         int
	Filter        string
}

// Score exposes the engine's similarity score as a named field.
type Score struct {
	As string
}

// Threshold drops records whose score is below Min. Min of zero keeps everything.
type Threshold struct {
	Field string
	Min   float64
}

func (Recall) Name() string    { return "recall" }
func (Score) Name() string     { return "score" }
func (Threshold) Name() string { return "threshold" }

// Keep reports whether a record with the given score passes the stage.
func (t Threshold) Keep(score float64) bool {
	return t.Min <= 0 || score >= t.Min
}

// Active reports whether the stage filters anything.
func (t Threshold) Active() bool { return t.Min > 0 }

// Params are the inputs of Build.
type Params struct {
	Vector        []float32
	Field         string
	NumCandidates int
	Index         string
	TopK          int
	Filter        string
	MinScore      float64
}

// Pipeline is an ordered, validated stage list.
type Pipeline struct {
	recall    Recall
	score     Score
	threshold Threshold
}

// Build validates p and assembles recall, score and threshold stages in that order.
func Build(p Params) (Pipeline, error) {
	switch {
	case len(p.Vector) == 0:
		return Pipeline{}, fmt.Errorf("%w: query vector is empty", ErrInvalid)
	case p.Field == "":
		return Pipeline{}, fmt.Errorf("%w: embedding field is required", ErrInvalid)
	case p.Index == "":
		return Pipeline{}, fmt.Errorf("%w: index name is required", ErrInvalid)
	case p.TopK <= 0:
		return Pipeline{}, fmt.Errorf("%w: topK must be positive, got %d", ErrInvalid, p.TopK)
	case math.IsNaN(p.MinScore) || p.MinScore < 0 || p.MinScore > 1:
		return Pipeline{}, fmt.Errorf("%w: similarity threshold must be in [0,1], got %v", ErrInvalid, p.MinScore)
	}

	candidates := p.NumCandidates
	if candidates <= 0 {
		candidates = DefaultNumCandidates
	}
	// The candidate pool can never be smaller than the requested result count.
	candidates = max(candidates, p.TopK)

	return Pipeline{
		recall: Recall{
			Index:         p.Index,
			Field:         p.Field,
			Vector:        p.Vector,
			NumCandidates: candidates,
			Limit:         p.TopK,
			Filter:        p.Filter,
		},
		score:     Score{As: ScoreField},
		threshold: Threshold{Field: ScoreField, Min: p.MinScore},
	}, nil
}

// Stages returns the stages in execution order.
func (p Pipeline) Stages() []Stage {
	return []Stage{p.recall, p.score, p.threshold}
}

// Recall returns the first stage.
func (p Pipeline) Recall() Recall { return p.recall }

// Score returns the second stage.
func (p Pipeline) Score() Score { return p.score }

// Threshold returns the third stage.
func (p Pipeline) Threshold() Threshold { return p.threshold }

// ScoreFromCosineDistance maps a cosine distance in [0,2] to a similarity in [0,1].
func ScoreFromCosineDistance(d float64) float64 {
	return min(1, max(0, 1-d/2))
}
