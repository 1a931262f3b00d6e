// Package export publishes local service implementations at bus addresses
// and dispatches incoming calls through per-interface method registries.
package export

import (
	"sync"

	"github.com/objbus/objbus/schema"
)

// Object is a service implementation published at a bus address under an
// interface name.
type Object struct {
	path     string
	iface    schema.Interface
	registry *Registry
}

// NewObject wraps a registry as a publishable object.
func NewObject(path string, iface schema.Interface, registry *Registry) *Object {
	return &Object{path: path, iface: iface, registry: registry}
}

// Path returns the bus address the object is published at.
func (o *Object) Path() string { return o.path }

// Interface returns the object's interface descriptor.
func (o *Object) Interface() schema.Interface { return o.iface }

// Registry returns the object's method registry.
func (o *Object) Registry() *Registry { return o.registry }

// Handle identifies a publication for Unpublish.
type Handle struct {
	path  string
	iface string
}

// Exporter routes incoming calls addressed to a (path, interface) pair to
// the registry of the object published there.
type Exporter struct {
	mu      sync.RWMutex
	objects map[Handle]*Object
}

// Publish binds the object's bus address and interface name to its registry.
// Publishing over an existing binding fails with AlreadyPublishedError.
func (e *Exporter) Publish(obj *Object) (Handle, error) {
	h := Handle{path: obj.Path(), iface: obj.Interface().Name}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.objects == nil {
		e.objects = map[Handle]*Object{}
	}
	if _, exists := e.objects[h]; exists {
		return Handle{}, AlreadyPublishedError{Path: h.path, Iface: h.iface}
	}
	e.objects[h] = obj
	return h, nil
}

// Unpublish removes a publication. Unpublishing an unknown handle is a
// no-op.
func (e *Exporter) Unpublish(h Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.objects, h)
}

// Lookup returns the object published at a (path, interface) pair.
func (e *Exporter) Lookup(path, iface string) (*Object, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	obj, ok := e.objects[Handle{path: path, iface: iface}]
	return obj, ok
}
