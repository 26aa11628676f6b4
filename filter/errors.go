package filter

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedField signals a field outside the filterable allow-list.
	ErrUnsupportedField = errors.New("filter: unsupported field")
	// ErrUnsupportedOperator signals an operator the dialect cannot express for a field kind.
	ErrUnsupportedOperator = errors.New("filter: unsupported operator")
	// ErrInvalidLiteral signals a literal of an unsupported type or shape.
	ErrInvalidLiteral = errors.New("filter: invalid literal")
	// ErrInvalidExpression signals a malformed expression tree.
	ErrInvalidExpression = errors.New("filter: invalid expression")
)

// UnsupportedFilterError reports a field that was not registered as filterable.
type UnsupportedFilterError struct {
	Field   string
	Allowed []string
}

func (e *UnsupportedFilterError) Error() string {
	return fmt.Sprintf("filter: field %q is not filterable (allowed: %s)",
		e.Field, strings.Join(e.Allowed, ", "))
}

func (e *UnsupportedFilterError) Unwrap() error { return ErrUnsupportedField }
