// Package tools implements the tool dispatcher and the concrete tool
// collaborators the model can call.
package tools

import (
	"context"
	"fmt"

	"ollamabridge/internal/api/ollama"
)

// Tool is one callable collaborator. Call may perform network I/O,
// filesystem I/O, or process execution; it owns its own wall-clock bound so
// a single call cannot stall a tool round indefinitely.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Call(ctx context.Context, args map[string]any) (any, error)
}

// Registry is the fixed name-to-collaborator mapping declared once at
// startup. The dispatch table and the schema catalogue sent to the backend
// are derived from the same entries, so they cannot drift apart.
type Registry struct {
	order []string
	tools map[string]Tool
}

// NewRegistry builds the registry, rejecting duplicate or empty tool names
// so a misdeclared catalogue fails at startup rather than at dispatch time.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		name := t.Name()
		if name == "" {
			return nil, fmt.Errorf("tool with empty name (%T)", t)
		}
		if _, dup := r.tools[name]; dup {
			return nil, fmt.Errorf("duplicate tool name %q", name)
		}
		r.tools[name] = t
		r.order = append(r.order, name)
	}
	return r, nil
}

// Definitions returns the tool declaration catalogue for the backend
// request, in registration order.
func (r *Registry) Definitions() []ollama.Tool {
	defs := make([]ollama.Tool, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, ollama.Tool{
			Type: "function",
			Function: ollama.ToolFunction{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// Dispatch routes one call to its collaborator and normalizes every
// failure into an error payload. It never returns an error and never
// panics past its boundary; the payload goes back to the model as tool
// output so the model can adapt.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (output any) {
	defer func() {
		if rec := recover(); rec != nil {
			output = errorPayload(fmt.Sprintf("tool %s panicked: %v", name, rec))
		}
	}()

	tool, ok := r.tools[name]
	if !ok {
		return errorPayload("Unknown tool " + name)
	}
	out, err := tool.Call(ctx, args)
	if err != nil {
		return errorPayload(err.Error())
	}
	return out
}

func errorPayload(msg string) map[string]any {
	return map[string]any{"error": msg}
}

// stringArg extracts a required string argument.
func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("argument %q must be a non-empty string", key)
	}
	return s, nil
}

// intArg extracts an optional integer argument, falling back to def when
// absent or unusable.
func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}
