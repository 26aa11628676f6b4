package vecstore

import (
	"context"
	"fmt"
	"math"
	"reflect"
)

// Embedder turns texts into vectors. Implementations must return one vector per
// input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// embedAll issues exactly one provider call for the whole batch and checks its shape.
func embedAll(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := e.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %d texts: %w", len(texts), err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embed: provider returned %d vectors for %d texts", len(vecs), len(texts))
	}
	dims := e.Dimensions()
	for i, v := range vecs {
		if dims > 0 && len(v) != dims {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, want %d",
				ErrDimensionMismatch, i, len(v), dims)
		}
		if err := checkFinite32("embedding", v); err != nil {
			return nil, err
		}
	}
	return vecs, nil
}

// Float64sToFloat32s narrows a vector, failing on values that are not finite
// float32 numbers.
func Float64sToFloat32s(field string, v []float64) ([]float32, error) {
	if v == nil {
		return nil, nil
	}
	out := make([]float32, len(v))
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, &ConversionError{Field: field, Index: i, Reason: fmt.Sprintf("non-finite value %v", x)}
		}
		if math.Abs(x) > math.MaxFloat32 {
			return nil, &ConversionError{Field: field, Index: i, Reason: fmt.Sprintf("value %v overflows float32", x)}
		}
		out[i] = float32(x)
	}
	return out, nil
}

// Float32sToFloat64s widens a vector. It cannot fail.
func Float32sToFloat64s(v []float32) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func checkFinite32(field string, v []float32) error {
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return &ConversionError{Field: field, Index: i, Reason: fmt.Sprintf("non-finite value %v", x)}
		}
	}
	return nil
}

// readEmbedding reads a supported embedding field as float32.
func readEmbedding(field string, v reflect.Value) ([]float32, error) {
	switch v.Kind() { //nolint:exhaustive // embeddingShape admits slices and arrays only
	case reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
		if f32, ok := v.Interface().([]float32); ok {
			return append([]float32(nil), f32...), nil
		}
	case reflect.Array:
	default:
		return nil, &ConversionError{Field: field, Index: -1, Reason: fmt.Sprintf("unsupported kind %s", v.Kind())}
	}
	if v.Type().Elem().Kind() == reflect.Float32 {
		out := make([]float32, v.Len())
		for i := range out {
			out[i] = float32(v.Index(i).Float())
		}
		return out, nil
	}
	f64 := make([]float64, v.Len())
	for i := range f64 {
		f64[i] = v.Index(i).Float()
	}
	return Float64sToFloat32s(field, f64)
}

// assignEmbedding writes vec into a slice or fixed-size array field.
func assignEmbedding(field string, dst reflect.Value, vec []float32) error {
	switch dst.Kind() { //nolint:exhaustive // embeddingShape admits slices and arrays only
	case reflect.Slice:
		if vec == nil {
			dst.Set(reflect.Zero(dst.Type()))
			return nil
		}
		s := reflect.MakeSlice(dst.Type(), len(vec), len(vec))
		for i, x := range vec {
			s.Index(i).SetFloat(float64(x))
		}
		dst.Set(s)
		return nil
	case reflect.Array:
		if vec == nil {
			dst.Set(reflect.Zero(dst.Type()))
			return nil
		}
		if len(vec) != dst.Len() {
			return &ConversionError{Field: field, Index: -1,
				Reason: fmt.Sprintf("vector of length %d does not fit %s", len(vec), dst.Type())}
		}
		for i, x := range vec {
			dst.Index(i).SetFloat(float64(x))
		}
		return nil
	default:
		return &ConversionError{Field: field, Index: -1, Reason: fmt.Sprintf("unsupported kind %s", dst.Kind())}
	}
}
