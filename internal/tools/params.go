package tools

import (
	"github.com/taskdeck/taskdeck/internal/types"
)

// Params holds the validated, type-coerced arguments of one tool call.
// Accessors return zero values for omitted optionals; typed extraction
// already happened during validation.
type Params map[string]any

// Has reports whether the caller supplied the parameter (or a default
// filled it).
func (p Params) Has(name string) bool {
	_, ok := p[name]
	return ok
}

func (p Params) String(name string) string {
	s, _ := p[name].(string)
	return s
}

// StringPtr distinguishes "omitted" from "present" for patch semantics.
func (p Params) StringPtr(name string) *string {
	if v, ok := p[name]; ok {
		if s, ok := v.(string); ok {
			return &s
		}
	}
	return nil
}

func (p Params) Int(name string) int64 {
	switch v := p[name].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func (p Params) IntPtr(name string) *int64 {
	if !p.Has(name) {
		return nil
	}
	n := p.Int(name)
	return &n
}

func (p Params) Float(name string) float64 {
	switch v := p[name].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

func (p Params) FloatPtr(name string) *float64 {
	if !p.Has(name) {
		return nil
	}
	f := p.Float(name)
	return &f
}

func (p Params) Bool(name string) bool {
	b, _ := p[name].(bool)
	return b
}

func (p Params) Object(name string) map[string]any {
	obj, _ := p[name].(map[string]any)
	return obj
}

// StringSlice converts an array parameter to strings, rejecting mixed
// element types.
func (p Params) StringSlice(name string) ([]string, error) {
	v, ok := p[name]
	if !ok {
		return nil, nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, types.Validationf("parameter %q must be an array of strings", name)
	}
	out := make([]string, 0, len(arr))
	for _, elem := range arr {
		s, ok := elem.(string)
		if !ok {
			return nil, types.Validationf("parameter %q must be an array of strings", name)
		}
		out = append(out, s)
	}
	return out, nil
}

// IntSlice converts an array parameter to int64s. JSON numbers arrive
// as float64; fractional values are rejected.
func (p Params) IntSlice(name string) ([]int64, error) {
	v, ok := p[name]
	if !ok {
		return nil, nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, types.Validationf("parameter %q must be an array of integers", name)
	}
	out := make([]int64, 0, len(arr))
	for _, elem := range arr {
		switch n := elem.(type) {
		case float64:
			if n != float64(int64(n)) {
				return nil, types.Validationf("parameter %q must be an array of integers", name)
			}
			out = append(out, int64(n))
		case int64:
			out = append(out, n)
		case int:
			out = append(out, int64(n))
		default:
			return nil, types.Validationf("parameter %q must be an array of integers", name)
		}
	}
	return out, nil
}
