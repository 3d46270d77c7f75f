package dispatch

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/MrEthical07/goGate/permission"
)

// Handler executes an operation with positional parameters.
type Handler func(ctx context.Context, params []any) (any, error)

// Operation is one invokable unit of business logic.
type Operation struct {
	Area   string
	Object string
	Method string
	// Params names the expected positional parameters. A nil slice disables the
	// arity check.
	Params  []string
	Handler Handler
}

// Key returns the operation's (area, object, method) triple.
func (o Operation) Key() permission.Key {
	return permission.Key{Area: o.Area, Object: o.Object, Method: o.Method}
}

// Registry is the startup-time table of operations.
type Registry struct {
	mu     sync.RWMutex
	ops    map[permission.Key]Operation
	frozen bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[permission.Key]Operation)}
}

// Register adds op. Duplicate keys, invalid keys, and nil handlers are rejected.
func (r *Registry) Register(op Operation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return errors.New("operation registry frozen")
	}
	key := op.Key()
	if !key.Valid() {
		return errors.New("operation key is invalid: " + key.String())
	}
	if op.Handler == nil {
		return errors.New("operation handler is nil: " + key.String())
	}
	if _, exists := r.ops[key]; exists {
		return errors.New("operation already registered: " + key.String())
	}
	r.ops[key] = op
	return nil
}

// MustRegister is [Registry.Register] for static wiring; it panics on error.
func (r *Registry) MustRegister(op Operation) {
	if err := r.Register(op); err != nil {
		panic(err)
	}
}

// Freeze prevents further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Lookup returns the operation registered under key.
func (r *Registry) Lookup(key permission.Key) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[key]
	return op, ok
}

// Keys lists every registered key sorted by its string form.
func (r *Registry) Keys() []permission.Key {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]permission.Key, 0, len(r.ops))
	for key := range r.ops {
		out = append(out, key)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Len returns the number of registered operations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ops)
}
