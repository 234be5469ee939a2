// Package ops declares the gateway's priced operations: each operation
// binds a unique key to a description, a price, a declarative input
// contract, and a handler. The registry is built once at startup and is
// read-only afterwards; the dispatch layer looks operations up by key,
// validates input against the contract, and invokes the handler.
package ops

import (
	"context"
	"fmt"
	"sort"
)

// Input is a validated, defaulted parameter map passed to handlers.
type Input map[string]any

// Handler computes an operation's output from validated input.
type Handler func(ctx context.Context, in Input) (any, error)

// Field types accepted by input contracts.
const (
	TypeInt        = "int"
	TypeString     = "string"
	TypeBool       = "bool"
	TypeStringList = "stringList"
)

// Field declares one input parameter: its type, whether it is required,
// its default, and its bounds. Int values below Min are raised to Min and
// above Max are clamped to Max; list lengths outside MinLen..MaxLen are
// rejected; enum mismatches are rejected.
type Field struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Default  any      `json:"default,omitempty"`
	Min      *int     `json:"min,omitempty"`
	Max      *int     `json:"max,omitempty"`
	Enum     []string `json:"enum,omitempty"`
	MinLen   int      `json:"minLen,omitempty"`
	MaxLen   int      `json:"maxLen,omitempty"`
}

// Operation is one priced, dispatchable query operation. Immutable after
// registration.
type Operation struct {
	Key         string  `json:"key"`
	Description string  `json:"description"`
	Price       int64   `json:"price"` // smallest currency unit per invocation
	Input       []Field `json:"input"`
	Handler     Handler `json:"-"`
}

// ValidationError reports input that fails an operation's declared
// contract. It is surfaced before any handler logic runs.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input %q: %s", e.Field, e.Detail)
}

// ErrOperationNotFound is returned for lookups of unregistered keys.
type ErrOperationNotFound struct {
	Key string
}

func (e *ErrOperationNotFound) Error() string {
	return fmt.Sprintf("operation %q not found", e.Key)
}

// Registry maps operation keys to operations. Populated once at process
// start; lookups need no locking afterwards.
type Registry struct {
	ops map[string]*Operation
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]*Operation)}
}

// Register adds an operation. Duplicate keys and negative prices are
// programming errors.
func (r *Registry) Register(op *Operation) error {
	if op.Key == "" {
		return fmt.Errorf("operation key cannot be empty")
	}
	if op.Price < 0 {
		return fmt.Errorf("operation %q: price cannot be negative", op.Key)
	}
	if _, exists := r.ops[op.Key]; exists {
		return fmt.Errorf("operation %q already registered", op.Key)
	}
	r.ops[op.Key] = op
	return nil
}

// Get returns the operation for key.
func (r *Registry) Get(key string) (*Operation, error) {
	op, ok := r.ops[key]
	if !ok {
		return nil, &ErrOperationNotFound{Key: key}
	}
	return op, nil
}

// List returns all operations sorted by key.
func (r *Registry) List() []*Operation {
	out := make([]*Operation, 0, len(r.ops))
	for _, op := range r.ops {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Validate checks raw input against the operation's contract and returns
// the defaulted, clamped Input for the handler. Unknown raw keys are
// ignored.
func Validate(op *Operation, raw map[string]any) (Input, error) {
	in := make(Input, len(op.Input))

	for _, f := range op.Input {
		v, present := raw[f.Name]
		if !present || v == nil {
			if f.Required {
				return nil, &ValidationError{Field: f.Name, Detail: "required"}
			}
			if f.Default != nil {
				in[f.Name] = f.Default
			}
			continue
		}

		switch f.Type {
		case TypeInt:
			n, err := toInt(v)
			if err != nil {
				return nil, &ValidationError{Field: f.Name, Detail: "must be an integer"}
			}
			if f.Min != nil && n < *f.Min {
				n = *f.Min
			}
			if f.Max != nil && n > *f.Max {
				n = *f.Max
			}
			in[f.Name] = n

		case TypeString:
			s, ok := v.(string)
			if !ok {
				return nil, &ValidationError{Field: f.Name, Detail: "must be a string"}
			}
			if len(f.Enum) > 0 && !contains(f.Enum, s) {
				return nil, &ValidationError{Field: f.Name, Detail: fmt.Sprintf("must be one of %v", f.Enum)}
			}
			in[f.Name] = s

		case TypeBool:
			b, ok := v.(bool)
			if !ok {
				return nil, &ValidationError{Field: f.Name, Detail: "must be a boolean"}
			}
			in[f.Name] = b

		case TypeStringList:
			list, err := toStringList(v)
			if err != nil {
				return nil, &ValidationError{Field: f.Name, Detail: "must be an array of strings"}
			}
			if f.MinLen > 0 && len(list) < f.MinLen {
				return nil, &ValidationError{Field: f.Name, Detail: fmt.Sprintf("needs at least %d entries", f.MinLen)}
			}
			if f.MaxLen > 0 && len(list) > f.MaxLen {
				return nil, &ValidationError{Field: f.Name, Detail: fmt.Sprintf("allows at most %d entries", f.MaxLen)}
			}
			in[f.Name] = list

		default:
			return nil, fmt.Errorf("operation %q: unknown field type %q", op.Key, f.Type)
		}
	}

	return in, nil
}

// toInt accepts the numeric shapes JSON decoding produces.
func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("not an integer")
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("not an integer")
	}
}

func toStringList(v any) ([]string, error) {
	switch l := v.(type) {
	case []string:
		return l, nil
	case []any:
		out := make([]string, 0, len(l))
		for _, e := range l {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("non-string entry")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("not a list")
	}
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}

// Int reads a validated int field.
func (in Input) Int(name string) int {
	if v, ok := in[name].(int); ok {
		return v
	}
	return 0
}

// Str reads a validated string field.
func (in Input) Str(name string) string {
	if v, ok := in[name].(string); ok {
		return v
	}
	return ""
}

// Bool reads a validated bool field.
func (in Input) Bool(name string) bool {
	if v, ok := in[name].(bool); ok {
		return v
	}
	return false
}

// StrList reads a validated string-list field.
func (in Input) StrList(name string) []string {
	if v, ok := in[name].([]string); ok {
		return v
	}
	return nil
}
