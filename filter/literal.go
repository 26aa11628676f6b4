package filter

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// LiteralKind classifies a normalized literal.
type LiteralKind int

// Literal kinds.
const (
	StringLiteral LiteralKind = iota + 1
	NumberLiteral
	BoolLiteral
	ListLiteral
)

// Literal is a normalized comparison value. Every Go integer and float type
// becomes a NumberLiteral.
type Literal struct {
	Kind LiteralKind
	Str  string
	Num  float64
	Bool bool
	List []Literal
}

// FormatNumber renders Num without exponent or trailing zeros.
func (l Literal) FormatNumber() string {
	return strconv.FormatFloat(l.Num, 'f', -1, 64)
}

// NewLiteral normalizes v into a Literal.
func NewLiteral(v any) (Literal, error) {
	switch x := v.(type) {
	case string:
		return Literal{Kind: StringLiteral, Str: x}, nil
	case bool:
		return Literal{Kind: BoolLiteral, Bool: x}, nil
	case Literal:
		return x, nil
	case nil:
		return Literal{}, fmt.Errorf("%w: nil", ErrInvalidLiteral)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Literal{Kind: NumberLiteral, Num: float64(rv.Int())}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Literal{Kind: NumberLiteral, Num: float64(rv.Uint())}, nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Literal{}, fmt.Errorf("%w: non-finite number", ErrInvalidLiteral)
		}
		return Literal{Kind: NumberLiteral, Num: f}, nil
	case reflect.String:
		return Literal{Kind: StringLiteral, Str: rv.String()}, nil
	case reflect.Bool:
		return Literal{Kind: BoolLiteral, Bool: rv.Bool()}, nil
	case reflect.Slice, reflect.Array:
		items := make([]Literal, 0, rv.Len())
		for i := range rv.Len() {
			item, err := NewLiteral(rv.Index(i).Interface())
			if err != nil {
				return Literal{}, err
			}
			if item.Kind == ListLiteral {
				return Literal{}, fmt.Errorf("%w: nested list", ErrInvalidLiteral)
			}
			items = append(items, item)
		}
		return Literal{Kind: ListLiteral, List: items}, nil
	}
	return Literal{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidLiteral, v)
}
