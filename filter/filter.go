// Package filter defines a small boolean/comparison expression language for
// metadata pre-filtering and translates it into backend-native filter strings.
//
// Expressions are built with the constructors in this package:
//
//	expr := filter.And(
//		filter.Eq("country", "BG"),
//		filter.Gte("year", 2020),
//	)
//
// A Translator validates every referenced field against an allow-list before
// rendering, so misconfigured filters fail without any I/O.
package filter

import (
	"reflect"
	"strings"
)

// Op is a comparison operator.
type Op string

// Comparison operators.
const (
	EQ  Op = "eq"
	NE  Op = "ne"
	GT  Op = "gt"
	GTE Op = "gte"
	LT  Op = "lt"
	LTE Op = "lte"
	IN  Op = "in"
	NIN Op = "nin"
)

// Valid reports whether op is a known comparison operator.
func (op Op) Valid() bool {
	switch op {
	case EQ, NE, GT, GTE, LT, LTE, IN, NIN:
		return true
	}
	return false
}

// IsList reports whether the operator takes a list literal.
func (op Op) IsList() bool { return op == IN || op == NIN }

// IsRange reports whether the operator is an ordering comparison.
func (op Op) IsRange() bool { return op == GT || op == GTE || op == LT || op == LTE }

// Expression is a node of the filter AST.
type Expression interface {
	String() string
	node()
}

// Comparison compares a single field with a literal.
type Comparison struct {
	Field string
	Op    Op
	Value any
}

// AndExpr matches when every operand matches.
type AndExpr struct{ Args []Expression }

// OrExpr matches when at least one operand matches.
type OrExpr struct{ Args []Expression }

// NotExpr negates its operand.
type NotExpr struct{ Arg Expression }

func (Comparison) node() {}
func (AndExpr) node()    {}
func (OrExpr) node()     {}
func (NotExpr) node()    {}

func (c Comparison) String() string { return render(c) }
func (e AndExpr) String() string    { return render(e) }
func (e OrExpr) String() string     { return render(e) }
func (e NotExpr) String() string    { return render(e) }

func render(e Expression) string {
	s, err := openText.Translate(e)
	if err != nil {
		return "!(" + err.Error() + ")"
	}
	return s
}

// Eq builds field == value.
func Eq(field string, value any) Expression { return Comparison{Field: field, Op: EQ, Value: value} }

// Ne builds field != value.
func Ne(field string, value any) Expression { return Comparison{Field: field, Op: NE, Value: value} }

// Gt builds field > value.
func Gt(field string, value any) Expression { return Comparison{Field: field, Op: GT, Value: value} }

// Gte builds field >= value.
func Gte(field string, value any) Expression { return Comparison{Field: field, Op: GTE, Value: value} }

// Lt builds field < value.
func Lt(field string, value any) Expression { return Comparison{Field: field, Op: LT, Value: value} }

// Lte builds field <= value.
func Lte(field string, value any) Expression { return Comparison{Field: field, Op: LTE, Value: value} }

// In matches when the field equals any of values.
func In(field string, values ...any) Expression {
	return Comparison{Field: field, Op: IN, Value: listValue(values)}
}

// Nin matches when the field equals none of values.
func Nin(field string, values ...any) Expression {
	return Comparison{Field: field, Op: NIN, Value: listValue(values)}
}

// listValue lets In("f", []string{"a", "b"}) and In("f", "a", "b") mean the same.
func listValue(values []any) any {
	if len(values) == 1 && values[0] != nil {
		switch reflect.TypeOf(values[0]).Kind() { //nolint:exhaustive
		case reflect.Slice, reflect.Array:
			return values[0]
		}
	}
	return values
}

// And combines operands with logical conjunction. A single operand is returned
// as is; nil operands are dropped.
func And(args ...Expression) Expression {
	args = compact(args)
	switch len(args) {
	case 0:
		return nil
	case 1:
		return args[0]
	}
	return AndExpr{Args: args}
}

// Or combines operands with logical disjunction.
func Or(args ...Expression) Expression {
	args = compact(args)
	switch len(args) {
	case 0:
		return nil
	case 1:
		return args[0]
	}
	return OrExpr{Args: args}
}

// Not negates expr.
func Not(expr Expression) Expression {
	if expr == nil {
		return nil
	}
	return NotExpr{Arg: expr}
}

func compact(args []Expression) []Expression {
	out := args[:0:0]
	for _, a := range args {
		if a != nil {
			out = append(out, a)
		}
	}
	return out
}

// Fields returns the distinct field names referenced by expr, in first-seen order.
func Fields(expr Expression) []string {
	seen := map[string]struct{}{}
	var out []string
	var walk func(Expression)
	walk = func(e Expression) {
		switch n := e.(type) {
		case Comparison:
			if _, ok := seen[n.Field]; !ok {
				seen[n.Field] = struct{}{}
				out = append(out, n.Field)
			}
		case AndExpr:
			for _, a := range n.Args {
				walk(a)
			}
		case OrExpr:
			for _, a := range n.Args {
				walk(a)
			}
		case NotExpr:
			walk(n.Arg)
		}
	}
	if expr != nil {
		walk(expr)
	}
	return out
}

// opSymbols is shared by the text dialect and error messages.
var opSymbols = map[Op]string{
	EQ:  "==",
	NE:  "!=",
	GT:  ">",
	GTE: ">=",
	LT:  "<",
	LTE: "<=",
	IN:  "IN",
	NIN: "NOT IN",
}

func (op Op) symbol() string {
	if s, ok := opSymbols[op]; ok {
		return s
	}
	return strings.ToUpper(string(op))
}
