package redis

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/vecstore/filter"
)

// Dialect renders filter expressions as query-engine pre-filters:
// TAG fields as @f:{v}, NUMERIC fields as @f:[min max], conjunction by
// juxtaposition, disjunction with |, negation with a leading -.
var Dialect filter.Dialect = queryDialect{}

type queryDialect struct{}

func (queryDialect) Compare(f filter.Field, op filter.Op, lit filter.Literal) (string, error) {
	if f.Kind == filter.KindNumeric {
		return numericCompare(f.Name, op, lit)
	}
	return tagCompare(f.Name, op, lit)
}

func (queryDialect) Group(l filter.Logical, left, right string, _ bool) string {
	if l == filter.LogicalOr {
		return "(" + left + " | " + right + ")"
	}
	return "(" + left + " " + right + ")"
}

func (queryDialect) Negate(inner string) string { return "-(" + inner + ")" }

func tagCompare(name string, op filter.Op, lit filter.Literal) (string, error) {
	switch op {
	case filter.EQ, filter.NE:
		v, err := tagValue(name, lit)
		if err != nil {
			return "", err
		}
		expr := fmt.Sprintf("@%s:{%s}", name, v)
		if op == filter.NE {
			expr = "-" + expr
		}
		return expr, nil
	case filter.IN, filter.NIN:
		vals := make([]string, 0, len(lit.List))
		for _, item := range lit.List {
			v, err := tagValue(name, item)
			if err != nil {
				return "", err
			}
			vals = append(vals, v)
		}
		expr := fmt.Sprintf("@%s:{%s}", name, strings.Join(vals, " | "))
		if op == filter.NIN {
			expr = "-" + expr
		}
		return expr, nil
	}
	return "", fmt.Errorf("%w: %s on tag field %q", filter.ErrUnsupportedOperator, op, name)
}

func tagValue(name string, lit filter.Literal) (string, error) {
	switch lit.Kind {
	case filter.StringLiteral:
		if lit.Str == "" {
			return "", fmt.Errorf("%w: empty tag value for %q", filter.ErrInvalidLiteral, name)
		}
		return tagEscaper.Replace(lit.Str), nil
	case filter.BoolLiteral:
		if lit.Bool {
			return "true", nil
		}
		return "false", nil
	case filter.NumberLiteral:
		return tagEscaper.Replace(lit.FormatNumber()), nil
	}
	return "", fmt.Errorf("%w: tag field %q", filter.ErrInvalidLiteral, name)
}

func numericCompare(name string, op filter.Op, lit filter.Literal) (string, error) {
	if op.IsList() {
		parts := make([]string, 0, len(lit.List))
		for _, item := range lit.List {
			p, err := numericCompare(name, filter.EQ, item)
			if err != nil {
				return "", err
			}
			parts = append(parts, p)
		}
		expr := parts[0]
		if len(parts) > 1 {
			expr = "(" + strings.Join(parts, " | ") + ")"
		}
		if op == filter.NIN {
			expr = "-" + expr
		}
		return expr, nil
	}

	if lit.Kind != filter.NumberLiteral {
		return "", fmt.Errorf("%w: numeric field %q needs a number", filter.ErrInvalidLiteral, name)
	}
	v := lit.FormatNumber()

	var lo, hi string
	switch op {
	case filter.EQ, filter.NE:
		lo, hi = v, v
	case filter.GT:
		lo, hi = "("+v, "+inf"
	case filter.GTE:
		lo, hi = v, "+inf"
	case filter.LT:
		lo, hi = "-inf", "("+v
	case filter.LTE:
		lo, hi = "-inf", v
	default:
		return "", fmt.Errorf("%w: %s on numeric field %q", filter.ErrUnsupportedOperator, op, name)
	}

	expr := fmt.Sprintf("@%s:[%s %s]", name, lo, hi)
	if op == filter.NE {
		expr = "-" + expr
	}
	return expr, nil
}

var tagEscaper = strings.NewReplacer(
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
