// Package bridge exposes Go operations to the web UI by name.
//
// The UI calls window.deskflow.invoke(cmd, args) which returns a Promise. The call
// travels to Go as a JSON payload on a single runtime binding, the named operation
// runs on its own goroutine, and the result comes back as a script evaluation that
// settles the Promise. The transport is abstracted behind Target so the same protocol
// works with any window runtime that can inject scripts, expose a function and
// evaluate JavaScript.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Operation is a bridge call handler. A returned error rejects the UI promise
// with the error's message.
type Operation func(ctx context.Context, args json.RawMessage) (any, error)

// Func adapts a fallible operation that takes no input.
func Func[T any](fn func(ctx context.Context) (T, error)) Operation {
	return func(ctx context.Context, _ json.RawMessage) (any, error) {
		return fn(ctx)
	}
}

// Value adapts an infallible synchronous accessor that takes no input.
func Value[T any](fn func() T) Operation {
	return func(context.Context, json.RawMessage) (any, error) {
		return fn(), nil
	}
}

// Request is a single invocation sent by the UI.
type Request struct {
	ID   uint64          `json:"id"`
	Cmd  string          `json:"cmd"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Response is the outcome of a Request.
type Response struct {
	ID    uint64
	OK    bool
	Value any
	Error string
}

// Registry maps command names to operations.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]Operation
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]Operation)}
}

// Register adds an operation under name. Names must be valid JavaScript
// identifiers because each one also becomes a method on window.deskflow.
func (r *Registry) Register(name string, op Operation) error {
	if !validName(name) {
		return fmt.Errorf("invalid command name %q", name)
	}
	if op == nil {
		return fmt.Errorf("nil operation for command %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ops[name]; exists {
		return fmt.Errorf("command %q already registered", name)
	}
	r.ops[name] = op
	return nil
}

// Lookup returns the operation registered under name.
func (r *Registry) Lookup(name string) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	return op, ok
}

// Names returns the registered command names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered commands.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ops)
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, c := range name {
		switch {
		case c == '_' || c == '$':
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
