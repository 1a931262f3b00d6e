/*
Package proxy builds local stand-ins for remote callback interfaces. A
Callback is generated from an interface descriptor alone: invoking one of
its methods encodes the arguments and sends a one-way notification to the
target bus address, with no reply and no domain logic.

Every proxy satisfies the Proxy capability, which is what lets a disconnect
watcher retire heterogeneous proxies uniformly.
*/
package proxy

import (
	"context"
	"fmt"
	"sync"

	"github.com/objbus/objbus/export"
	"github.com/objbus/objbus/schema"
	"github.com/objbus/objbus/wire"
)

// Notifier is the outbound half of a bus connection: it delivers one-way
// notifications and identifies the connection that owns it.
type Notifier interface {
	Notify(ctx context.Context, path, iface, method string, args ...interface{}) error
	ConnID() string
}

// Proxy is the minimal capability of any object wrapping a remote bus
// endpoint: it reports the address it targets and can be retired when the
// peer goes away. External code never needs to special-case proxy cleanup
// per interface type.
type Proxy interface {
	BusAddress() string
	Retire()
	Retired() bool
}

// RetiredError is returned from calls attempted through a proxy whose peer
// already disconnected.
type RetiredError struct {
	Address string
}

func (err RetiredError) Error() string {
	return fmt.Sprintf("proxy retired: %s", err.Address)
}

var _ Proxy = &Callback{}

// Callback is a generated proxy for a remote callback interface.
type Callback struct {
	notifier Notifier
	path     string
	iface    schema.Interface

	mu      sync.Mutex
	retired bool
}

// New generates a proxy for the callback interface at the target bus
// address. Callback interfaces carry no replies, so every method of the
// descriptor must be Notify direction.
func New(n Notifier, path string, iface schema.Interface) (*Callback, error) {
	for _, m := range iface.Methods {
		if m.Direction != schema.Notify {
			return nil, fmt.Errorf("proxy: %s.%s is not notify direction", iface.Name, m.Name)
		}
	}
	return &Callback{notifier: n, path: path, iface: iface}, nil
}

// BusAddress returns the bus address the proxy targets.
func (c *Callback) BusAddress() string { return c.path }

// Interface returns the proxied interface descriptor.
func (c *Callback) Interface() schema.Interface { return c.iface }

// ConnID returns the identity of the connection that owns the proxy.
func (c *Callback) ConnID() string { return c.notifier.ConnID() }

// Retire marks the proxy unusable. Subsequent invocations fail with
// RetiredError rather than silently going nowhere.
func (c *Callback) Retire() {
	c.mu.Lock()
	c.retired = true
	c.mu.Unlock()
}

// Retired returns true once the proxy has been retired.
func (c *Callback) Retired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retired
}

// Invoke forwards a method call as a one-way notification to the target
// address and returns without awaiting acknowledgment. Arguments are
// checked against the method's shapes before anything is sent.
func (c *Callback) Invoke(ctx context.Context, method string, args ...interface{}) error {
	if c.Retired() {
		return RetiredError{Address: c.path}
	}
	m, ok := c.iface.Method(method)
	if !ok {
		return export.MethodNotFoundError{Method: method}
	}
	if err := wire.CheckArgs(m.Args, args...); err != nil {
		return err
	}
	return c.notifier.Notify(ctx, c.path, c.iface.Name, m.Name, args...)
}
