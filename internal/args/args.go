// Package args validates dict-shaped operation arguments against an explicit
// per-operation schema before dispatch. Validation failures never reach the
// database.
package args

import (
	"encoding/json"
	"fmt"
	"math"
)

// Kind is the declared type of an argument field.
type Kind int

const (
	String Kind = iota
	Int
	Bool
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Int:
		return "integer"
	case Bool:
		return "boolean"
	}
	return "unknown"
}

// ValidationError is returned when arguments do not match the schema.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Field, e.Reason)
}

// Field declares one argument: name, type, and whether it is required.
// Optional fields may carry a default applied when the argument is absent.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	Default  any
}

// Spec is the declared argument shape of one operation.
type Spec struct {
	Fields []Field
}

// Validate checks raw arguments against the spec. Returns the validated set
// with defaults applied, or *ValidationError. Unknown arguments are rejected
// so that typos never silently change behavior.
func (s Spec) Validate(raw map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(s.Fields))
	known := make(map[string]bool, len(s.Fields))

	for _, f := range s.Fields {
		known[f.Name] = true
		v, ok := raw[f.Name]
		if !ok || v == nil {
			if f.Required {
				return nil, &ValidationError{Field: f.Name, Reason: "required argument is missing"}
			}
			if f.Default != nil {
				out[f.Name] = f.Default
			}
			continue
		}
		coerced, err := coerce(f, v)
		if err != nil {
			return nil, err
		}
		out[f.Name] = coerced
	}

	for k := range raw {
		if !known[k] {
			return nil, &ValidationError{Field: k, Reason: "unknown argument"}
		}
	}
	return out, nil
}

// coerce converts v to the field's declared kind. JSON transports numbers as
// float64 (or json.Number), so integer fields accept those forms as long as
// the value is integral.
func coerce(f Field, v any) (any, error) {
	switch f.Kind {
	case String:
		s, ok := v.(string)
		if !ok {
			return nil, &ValidationError{Field: f.Name, Reason: fmt.Sprintf("expected string, got %T", v)}
		}
		return s, nil

	case Int:
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case float64:
			if n != math.Trunc(n) {
				return nil, &ValidationError{Field: f.Name, Reason: fmt.Sprintf("expected integer, got %v", n)}
			}
			return int(n), nil
		case json.Number:
			i, err := n.Int64()
			if err != nil {
				return nil, &ValidationError{Field: f.Name, Reason: fmt.Sprintf("expected integer, got %q", n.String())}
			}
			return int(i), nil
		default:
			return nil, &ValidationError{Field: f.Name, Reason: fmt.Sprintf("expected integer, got %T", v)}
		}

	case Bool:
		b, ok := v.(bool)
		if !ok {
			return nil, &ValidationError{Field: f.Name, Reason: fmt.Sprintf("expected boolean, got %T", v)}
		}
		return b, nil
	}
	return nil, &ValidationError{Field: f.Name, Reason: "unknown field kind"}
}
