package vecstore

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticEmbedder struct {
	dims  int
	vecs  [][]float32
	err   error
	calls int
}

func (s *staticEmbedder) Dimensions() int { return s.dims }

func (s *staticEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	s.calls++
	return s.vecs, s.err
}

func TestEmbedAll(t *testing.T) {
	e := &staticEmbedder{dims: 2, vecs: [][]float32{{1, 0}, {0, 1}}}
	vecs, err := embedAll(context.Background(), e, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
	assert.Equal(t, 1, e.calls, "one provider call per batch")
}

func TestEmbedAll_Empty(t *testing.T) {
	e := &staticEmbedder{dims: 2}
	vecs, err := embedAll(context.Background(), e, nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
	assert.Zero(t, e.calls)
}

func TestEmbedAll_Failures(t *testing.T) {
	providerErr := errors.New("503")
	tests := []struct {
		name  string
		e     *staticEmbedder
		check func(t *testing.T, err error)
	}{
		{"provider error", &staticEmbedder{dims: 1, err: providerErr}, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, providerErr)
		}},
		{"count mismatch", &staticEmbedder{dims: 1, vecs: [][]float32{{1}}}, func(t *testing.T, err error) {
			assert.ErrorContains(t, err, "1 vectors for 2 texts")
		}},
		{"dimension mismatch", &staticEmbedder{dims: 2, vecs: [][]float32{{1, 0}, {1}}}, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrDimensionMismatch)
		}},
		{"non-finite", &staticEmbedder{dims: 1, vecs: [][]float32{{1}, {float32(math.NaN())}}}, func(t *testing.T, err error) {
			var ce *ConversionError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, 0, ce.Index)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := embedAll(context.Background(), tt.e, []string{"a", "b"})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestFloat64sToFloat32s(t *testing.T) {
	got, err := Float64sToFloat32s("v", []float64{0.5, -1})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -1}, got)

	_, err = Float64sToFloat32s("v", []float64{1, math.Inf(1)})
	var ce *ConversionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, ce.Index)
	assert.Equal(t, "v", ce.Field)

	_, err = Float64sToFloat32s("v", []float64{1e300})
	assert.ErrorIs(t, err, ErrConversion)

	got, err = Float64sToFloat32s("v", nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFloat32sToFloat64s(t *testing.T) {
	assert.Equal(t, []float64{0.5, 2}, Float32sToFloat64s([]float32{0.5, 2}))
	assert.Nil(t, Float32sToFloat64s(nil))
}

func TestAssignEmbedding(t *testing.T) {
	type vec []float32

	var s64 []float64
	require.NoError(t, assignEmbedding("f", reflect.ValueOf(&s64).Elem(), []float32{1, 2}))
	assert.Equal(t, []float64{1, 2}, s64)

	var named vec
	require.NoError(t, assignEmbedding("f", reflect.ValueOf(&named).Elem(), []float32{3}))
	assert.Equal(t, vec{3}, named)

	var arr [2]float32
	require.NoError(t, assignEmbedding("f", reflect.ValueOf(&arr).Elem(), []float32{4, 5}))
	assert.Equal(t, [2]float32{4, 5}, arr)

	err := assignEmbedding("f", reflect.ValueOf(&arr).Elem(), []float32{1, 2, 3})
	var ce *ConversionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, -1, ce.Index)
}

func TestReadEmbedding(t *testing.T) {
	got, err := readEmbedding("f", reflect.ValueOf([2]float64{1, 2}))
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, got)

	got, err = readEmbedding("f", reflect.ValueOf([]float32(nil)))
	require.NoError(t, err)
	assert.Nil(t, got)

	src := []float32{7}
	got, err = readEmbedding("f", reflect.ValueOf(src))
	require.NoError(t, err)
	got[0] = 0
	assert.Equal(t, float32(7), src[0], "read must copy")

	_, err = readEmbedding("f", reflect.ValueOf([]float64{math.NaN()}))
	assert.ErrorIs(t, err, ErrConversion)
}
