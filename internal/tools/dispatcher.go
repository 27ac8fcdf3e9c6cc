// Package tools exposes the engine as a named tool-call surface: a
// descriptor table maps method names to typed parameter specs and
// handlers, and every call is validated before it reaches the engine.
package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/taskdeck/taskdeck/internal/engine"
	"github.com/taskdeck/taskdeck/internal/types"
)

// ParamType is the JSON type a parameter must carry.
type ParamType string

const (
	TypeString ParamType = "string"
	TypeInt    ParamType = "int"
	TypeFloat  ParamType = "float"
	TypeBool   ParamType = "bool"
	TypeArray  ParamType = "array"
	TypeObject ParamType = "object"
)

// ParamSpec declares one parameter: its type, whether it is required,
// and any enum, length or range constraint. Default applies when the
// caller omits an optional parameter.
type ParamSpec struct {
	Name     string    `json:"name"`
	Type     ParamType `json:"type"`
	Required bool      `json:"required"`
	Enum     []string  `json:"enum,omitempty"`
	MinLen   int       `json:"min_len,omitempty"`
	MaxLen   int       `json:"max_len,omitempty"`
	Min      *float64  `json:"min,omitempty"`
	Max      *float64  `json:"max,omitempty"`
	Default  any       `json:"default,omitempty"`
}

// Handler executes a validated tool call.
type Handler func(ctx context.Context, d *Dispatcher, p Params) (any, error)

// Descriptor binds a tool name to its parameter contract and handler.
type Descriptor struct {
	Name        string
	Description string
	Params      []ParamSpec
	Handler     Handler
}

// Dispatcher routes validated tool calls to the engine.
type Dispatcher struct {
	engine   *engine.Engine
	registry map[string]*Descriptor
}

// New builds a dispatcher with the full tool table registered.
func New(eng *engine.Engine) *Dispatcher {
	d := &Dispatcher{
		engine:   eng,
		registry: make(map[string]*Descriptor),
	}
	for _, desc := range descriptors() {
		d.registry[desc.Name] = desc
	}
	return d
}

// Tools returns the registered tool names, sorted.
func (d *Dispatcher) Tools() []string {
	names := make([]string, 0, len(d.registry))
	for name := range d.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns the descriptor for one tool.
func (d *Dispatcher) Describe(name string) (*Descriptor, bool) {
	desc, ok := d.registry[name]
	return desc, ok
}

// Dispatch validates and executes one tool call. The response envelope
// is {"success": true, ...result} or {"success": false, "error": "..."}.
// Validation failures reject the call before any side effect.
func (d *Dispatcher) Dispatch(ctx context.Context, method string, params map[string]any) map[string]any {
	result, err := d.Call(ctx, method, params)
	if err != nil {
		return map[string]any{
			"success": false,
			"error":   err.Error(),
		}
	}
	resp := map[string]any{"success": true}
	switch v := result.(type) {
	case nil:
	case map[string]any:
		for k, val := range v {
			resp[k] = val
		}
	default:
		resp["result"] = v
	}
	return resp
}

// Call validates and executes one tool call, returning the raw result.
func (d *Dispatcher) Call(ctx context.Context, method string, params map[string]any) (any, error) {
	desc, ok := d.registry[method]
	if !ok {
		return nil, types.Validationf("unknown method %q", method)
	}

	validated, err := validateParams(desc, params)
	if err != nil {
		return nil, err
	}

	return desc.Handler(ctx, d, validated)
}

// validateParams checks every supplied parameter against the spec list:
// unknown names, wrong JSON types, enum violations and range violations
// are all rejected; defaults are filled for omitted optionals.
func validateParams(desc *Descriptor, params map[string]any) (Params, error) {
	specs := make(map[string]*ParamSpec, len(desc.Params))
	for i := range desc.Params {
		specs[desc.Params[i].Name] = &desc.Params[i]
	}

	for name := range params {
		if _, ok := specs[name]; !ok {
			return nil, types.Validationf("%s: unknown parameter %q", desc.Name, name)
		}
	}

	validated := make(Params, len(desc.Params))
	for i := range desc.Params {
		spec := &desc.Params[i]
		value, present := params[spec.Name]
		if !present || value == nil {
			if spec.Required {
				return nil, types.Validationf("%s: parameter %q is required", desc.Name, spec.Name)
			}
			if spec.Default != nil {
				validated[spec.Name] = spec.Default
			}
			continue
		}
		coerced, err := checkType(desc.Name, spec, value)
		if err != nil {
			return nil, err
		}
		validated[spec.Name] = coerced
	}
	return validated, nil
}

func checkType(tool string, spec *ParamSpec, value any) (any, error) {
	switch spec.Type {
	case TypeString:
		s, ok := value.(string)
		if !ok {
			return nil, types.Validationf("%s: parameter %q must be a string", tool, spec.Name)
		}
		if spec.MinLen > 0 && len([]rune(s)) < spec.MinLen {
			return nil, types.Validationf("%s: parameter %q must be at least %d characters", tool, spec.Name, spec.MinLen)
		}
		if spec.MaxLen > 0 && len([]rune(s)) > spec.MaxLen {
			return nil, types.Validationf("%s: parameter %q must be at most %d characters", tool, spec.Name, spec.MaxLen)
		}
		if len(spec.Enum) > 0 {
			found := false
			for _, allowed := range spec.Enum {
				if s == allowed {
					found = true
					break
				}
			}
			if !found {
				return nil, types.Validationf("%s: parameter %q must be one of %v", tool, spec.Name, spec.Enum)
			}
		}
		return s, nil

	case TypeInt:
		f, ok := value.(float64)
		if !ok || f != float64(int64(f)) {
			if i, isInt := value.(int); isInt {
				f, ok = float64(i), true
			} else if i64, isInt64 := value.(int64); isInt64 {
				f, ok = float64(i64), true
			} else {
				return nil, types.Validationf("%s: parameter %q must be an integer", tool, spec.Name)
			}
		}
		if err := checkRange(tool, spec, f); err != nil {
			return nil, err
		}
		return int64(f), nil

	case TypeFloat:
		f, ok := value.(float64)
		if !ok {
			if i, isInt := value.(int); isInt {
				f, ok = float64(i), true
			} else {
				return nil, types.Validationf("%s: parameter %q must be a number", tool, spec.Name)
			}
		}
		if err := checkRange(tool, spec, f); err != nil {
			return nil, err
		}
		return f, nil

	case TypeBool:
		b, ok := value.(bool)
		if !ok {
			return nil, types.Validationf("%s: parameter %q must be a boolean", tool, spec.Name)
		}
		return b, nil

	case TypeArray:
		arr, ok := value.([]any)
		if !ok {
			return nil, types.Validationf("%s: parameter %q must be an array", tool, spec.Name)
		}
		return arr, nil

	case TypeObject:
		obj, ok := value.(map[string]any)
		if !ok {
			return nil, types.Validationf("%s: parameter %q must be an object", tool, spec.Name)
		}
		return obj, nil
	}
	return nil, fmt.Errorf("descriptor for %s has unknown param type %q", tool, spec.Type)
}

func checkRange(tool string, spec *ParamSpec, f float64) error {
	if spec.Min != nil && f < *spec.Min {
		return types.Validationf("%s: parameter %q must be >= %g", tool, spec.Name, *spec.Min)
	}
	if spec.Max != nil && f > *spec.Max {
		return types.Validationf("%s: parameter %q must be <= %g", tool, spec.Name, *spec.Max)
	}
	return nil
}
