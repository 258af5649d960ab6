package tools

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"

	"github.com/webwright/webwright/internal/core"
)

// Registry holds tool descriptors in registration order. It is owned by the
// process entry point and passed to the dispatch loop.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	tools  map[string]*Descriptor
	logger *zap.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{tools: make(map[string]*Descriptor), logger: logger}
}

// Register adds d. Names are unique.
func (r *Registry) Register(d *Descriptor) error {
	if d == nil || d.Name == "" {
		return fmt.Errorf("%w: empty tool name", ErrInvalidDescriptor)
	}
	if d.Handler == nil {
		return fmt.Errorf("%w %s: no handler", ErrInvalidDescriptor, d.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[d.Name]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, d.Name)
	}
	r.tools[d.Name] = d
	r.order = append(r.order, d.Name)
	return nil
}

// MustRegister is Register that panics; for fixed tool tables.
func (r *Registry) MustRegister(ds ...*Descriptor) {
	for _, d := range ds {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
}

// Get returns the descriptor called name.
func (r *Registry) Get(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.tools[name]
	return d, ok
}

// All returns descriptors in registration order.
func (r *Registry) All() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Descriptor, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.tools[n])
	}
	return out
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len is the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Restrict returns a registry holding only the named tools that exist here,
// in this registry's order.
func (r *Registry) Restrict(names []string) *Registry {
	allow := make(map[string]bool, len(names))
	for _, n := range names {
		allow[n] = true
	}
	sub := NewRegistry(r.logger)
	for _, d := range r.All() {
		if allow[d.Name] {
			_ = sub.Register(d)
		}
	}
	return sub
}

// Catalogue exports every tool for function calling.
func (r *Registry) Catalogue() []core.ToolDefinition {
	all := r.All()
	out := make([]core.ToolDefinition, 0, len(all))
	for _, d := range all {
		out = append(out, d.Definition())
	}
	return out
}

// Invoke runs the tool called name with the model's arguments. The result is
// the tool's string output, or its JSON encoding for any other value.
// Failures are *ArgumentError, *ExecutionError, ErrToolNotFound or
// ErrContextUnavailable; render them with ErrorResult.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any, ic InvocationContext) (string, error) {
	d, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	bound, err := d.bind(args)
	if err != nil {
		return "", err
	}
	tic, err := ic.restrict(d.Name, d.Consumes)
	if err != nil {
		return "", err
	}

	result, err := r.call(ctx, d, tic, bound)
	if err != nil {
		r.logger.Warn("tool failed", zap.String("tool", name), zap.Error(err))
		return "", err
	}
	return normalise(d.Name, result)
}

func (r *Registry) call(ctx context.Context, d *Descriptor, ic InvocationContext, args Args) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("tool panicked",
				zap.String("tool", d.Name),
				zap.Any("panic", p),
				zap.ByteString("stack", debug.Stack()))
			result = nil
			err = &ExecutionError{Tool: d.Name, Err: fmt.Errorf("panic: %v", p), Reason: "panic"}
		}
	}()
	result, err = d.Handler(ctx, ic, args)
	if err != nil {
		reason := ""
		var rf interface{ Reason() string }
		if errors.As(err, &rf) {
			reason = rf.Reason()
		}
		return nil, &ExecutionError{Tool: d.Name, Err: err, Reason: reason}
	}
	return result, nil
}

func normalise(tool string, v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", &ExecutionError{Tool: tool, Err: fmt.Errorf("result is not JSON-encodable: %w", err), Reason: "encoding"}
	}
	return string(b), nil
}
