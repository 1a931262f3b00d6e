package export

import (
	"context"
	"sync"

	"github.com/objbus/objbus/schema"
	"github.com/objbus/objbus/wire"
)

// HandlerFunc runs one method invocation. Arguments arrive in canonical
// decoded form (see wire.Decode); the returned value is encoded against the
// method's reply shape.
type HandlerFunc func(ctx context.Context, args []interface{}) (interface{}, error)

// DuplicatePolicy controls what Register does when a method name is already
// taken.
type DuplicatePolicy int

const (
	// Replace swaps in the new handler, last write wins. This is the default
	// so implementations can be hot-swapped.
	Replace DuplicatePolicy = iota
	// Reject refuses the registration and keeps the original handler.
	Reject
)

// Registry maps method names to typed handler entries for one interface.
// Registration and dispatch are safe for concurrent use; dispatches of
// unrelated methods proceed concurrently.
type Registry struct {
	// Duplicates selects the duplicate-name policy. Zero value is Replace.
	Duplicates DuplicatePolicy

	mu      sync.RWMutex
	entries map[string]entry
}

type entry struct {
	method schema.Method
	fn     HandlerFunc
}

// Register binds a handler to a method descriptor. Lookup is by the
// descriptor's exact name.
func (r *Registry) Register(m schema.Method, fn HandlerFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries == nil {
		r.entries = map[string]entry{}
	}
	if _, exists := r.entries[m.Name]; exists && r.Duplicates == Reject {
		return DuplicateMethodError{Method: m.Name}
	}
	r.entries[m.Name] = entry{method: m, fn: fn}
	return nil
}

// Method returns the descriptor registered under an exact name.
func (r *Registry) Method(name string) (schema.Method, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e.method, ok
}

// Dispatch decodes the encoded arguments against the method's shapes,
// invokes the handler, and encodes the reply if the method declares one.
// Unknown names fail with MethodNotFoundError without invoking anything.
func (r *Registry) Dispatch(ctx context.Context, name string, params []byte, codec wire.Codec) ([]byte, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, MethodNotFoundError{Method: name}
	}

	args, err := wire.DecodeArgs(codec, e.method.Args, params)
	if err != nil {
		return nil, err
	}

	result, err := e.fn(ctx, args)
	if err != nil {
		return nil, err
	}
	if e.method.Reply == nil {
		return nil, nil
	}
	return wire.Encode(result, *e.method.Reply, codec)
}
