package filter

import (
	"fmt"
	"sort"
)

// Kind is how a filterable field is indexed by the backend.
type Kind int

// Field kinds.
const (
	KindTag Kind = iota
	KindNumeric
)

func (k Kind) String() string {
	if k == KindNumeric {
		return "numeric"
	}
	return "tag"
}

// ParseKind parses "tag" or "numeric".
func ParseKind(s string) (Kind, error) {
	switch s {
	case "", "tag":
		return KindTag, nil
	case "numeric":
		return KindNumeric, nil
	}
	return 0, fmt.Errorf("filter: unknown field kind %q", s)
}

// Field is an entry of the filterable-field allow-list.
type Field struct {
	Name string
	Kind Kind
}

// Logical is a binary boolean connective.
type Logical int

// Connectives.
const (
	LogicalAnd Logical = iota
	LogicalOr
)

// Dialect renders AST nodes into a backend-native filter syntax.
type Dialect interface {
	// Compare renders a single comparison. lit is already normalized and
	// shape-checked: a ListLiteral for IN/NIN, a scalar otherwise.
	Compare(f Field, op Op, lit Literal) (string, error)
	// Group joins two rendered operands. root is true for the outermost node.
	Group(l Logical, left, right string, root bool) string
	// Negate wraps a rendered operand.
	Negate(inner string) string
}

// Translator compiles expressions with a Dialect, checking fields against an allow-list.
type Translator struct {
	dialect Dialect
	fields  map[string]Field
	open    bool
}

// NewTranslator creates a Translator allowing only fields.
func NewTranslator(d Dialect, fields ...Field) *Translator {
	m := make(map[string]Field, len(fields))
	for _, f := range fields {
		m[f.Name] = f
	}
	return &Translator{dialect: d, fields: m}
}

// openText renders any field; used by Expression.String.
var openText = &Translator{dialect: Text, open: true}

// Allowed returns the sorted allow-list.
func (t *Translator) Allowed() []string {
	names := make([]string, 0, len(t.fields))
	for n := range t.fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate checks expr against the allow-list and literal rules without rendering.
func (t *Translator) Validate(expr Expression) error {
	_, err := t.Translate(expr)
	return err
}

// Translate compiles expr. A nil expression yields "".
func (t *Translator) Translate(expr Expression) (string, error) {
	if expr == nil {
		return "", nil
	}
	return t.translate(expr, true)
}

func (t *Translator) translate(expr Expression, root bool) (string, error) {
	switch n := expr.(type) {
	case Comparison:
		return t.comparison(n)
	case AndExpr:
		return t.group(LogicalAnd, n.Args, root)
	case OrExpr:
		return t.group(LogicalOr, n.Args, root)
	case NotExpr:
		if n.Arg == nil {
			return "", fmt.Errorf("%w: NOT without operand", ErrInvalidExpression)
		}
		inner, err := t.translate(n.Arg, false)
		if err != nil {
			return "", err
		}
		return t.dialect.Negate(inner), nil
	case nil:
		return "", fmt.Errorf("%w: nil operand", ErrInvalidExpression)
	}
	return "", fmt.Errorf("%w: unknown node %T", ErrInvalidExpression, expr)
}

// group folds operands left to right so every connective stays binary.
func (t *Translator) group(l Logical, args []Expression, root bool) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("%w: empty group", ErrInvalidExpression)
	}
	if len(args) == 1 {
		return t.translate(args[0], root)
	}
	acc, err := t.translate(args[0], false)
	if err != nil {
		return "", err
	}
	for i, a := range args[1:] {
		rhs, err := t.translate(a, false)
		if err != nil {
			return "", err
		}
		last := i == len(args)-2
		acc = t.dialect.Group(l, acc, rhs, root && last)
	}
	return acc, nil
}

func (t *Translator) comparison(c Comparison) (string, error) {
	if c.Field == "" {
		return "", fmt.Errorf("%w: empty field name", ErrInvalidExpression)
	}
	if !c.Op.Valid() {
		return "", fmt.Errorf("%w: unknown operator %q", ErrUnsupportedOperator, c.Op)
	}
	f, ok := t.fields[c.Field]
	if !ok {
		if !t.open {
			return "", &UnsupportedFilterError{Field: c.Field, Allowed: t.Allowed()}
		}
		f = Field{Name: c.Field}
	}

	lit, err := NewLiteral(c.Value)
	if err != nil {
		return "", fmt.Errorf("field %q: %w", c.Field, err)
	}
	if c.Op.IsList() != (lit.Kind == ListLiteral) {
		return "", fmt.Errorf("%w: operator %s on field %q needs a %s",
			ErrInvalidLiteral, c.Op.symbol(), c.Field, shapeName(c.Op))
	}
	if c.Op.IsList() && len(lit.List) == 0 {
		return "", fmt.Errorf("%w: empty list for field %q", ErrInvalidLiteral, c.Field)
	}
	return t.dialect.Compare(f, c.Op, lit)
}

func shapeName(op Op) string {
	if op.IsList() {
		return "list"
	}
	return "scalar"
}
