package filter

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Node is the JSON wire form of an expression:
//
//	{"op":"and","args":[{"op":"eq","field":"country","value":"BG"},{"op":"gte","field":"year","value":2020}]}
type Node struct {
	Op    string          `json:"op"`
	Field string          `json:"field,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
	Args  []Node          `json:"args,omitempty"`
}

// Expression converts the node tree into an AST.
func (n Node) Expression() (Expression, error) {
	op := strings.ToLower(n.Op)
	switch op {
	case "and", "or":
		if len(n.Args) == 0 {
			return nil, fmt.Errorf("%w: %s needs operands", ErrInvalidExpression, op)
		}
		args := make([]Expression, 0, len(n.Args))
		for _, a := range n.Args {
			e, err := a.Expression()
			if err != nil {
				return nil, err
			}
			args = append(args, e)
		}
		if op == "and" {
			return And(args...), nil
		}
		return Or(args...), nil
	case "not":
		if len(n.Args) != 1 {
			return nil, fmt.Errorf("%w: not needs exactly one operand", ErrInvalidExpression)
		}
		e, err := n.Args[0].Expression()
		if err != nil {
			return nil, err
		}
		return Not(e), nil
	}

	cmp := Op(op)
	if !cmp.Valid() {
		return nil, fmt.Errorf("%w: unknown operator %q", ErrUnsupportedOperator, n.Op)
	}
	if n.Field == "" {
		return nil, fmt.Errorf("%w: %s needs a field", ErrInvalidExpression, op)
	}
	if len(n.Value) == 0 {
		return nil, fmt.Errorf("%w: %s on %q needs a value", ErrInvalidLiteral, op, n.Field)
	}
	var v any
	if err := json.Unmarshal(n.Value, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLiteral, err)
	}
	return Comparison{Field: n.Field, Op: cmp, Value: v}, nil
}

// ParseJSON decodes a JSON filter document. Empty input or "null" yields a nil expression.
func ParseJSON(data []byte) (Expression, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}
	return n.Expression()
}
