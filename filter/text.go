package filter

import "strings"

// Text is the canonical, backend-neutral dialect:
//
//	country == 'BG' && (year >= 2020 || NOT(genre IN ['drama','noir']))
var Text Dialect = textDialect{}

type textDialect struct{}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func (textDialect) Compare(f Field, op Op, lit Literal) (string, error) {
	return f.Name + " " + op.symbol() + " " + textLiteral(lit), nil
}

func (textDialect) Group(l Logical, left, right string, root bool) string {
	sym := " && "
	if l == LogicalOr {
		sym = " || "
	}
	if root {
		return left + sym + right
	}
	return "(" + left + sym + right + ")"
}

func (textDialect) Negate(inner string) string { return "NOT(" + inner + ")" }

func textLiteral(lit Literal) string {
	switch lit.Kind {
	case StringLiteral:
		return "'" + quoteEscaper.Replace(lit.Str) + "'"
	case BoolLiteral:
		if lit.Bool {
			return "true"
		}
		return "false"
	case ListLiteral:
		parts := make([]string, len(lit.List))
		for i, item := range lit.List {
			parts[i] = textLiteral(item)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case NumberLiteral:
		return lit.FormatNumber()
	}
	return ""
}
