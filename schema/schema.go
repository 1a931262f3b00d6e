// Package schema describes exportable bus interfaces: named method sets with
// argument and reply shapes. Descriptors are plain data; the export and proxy
// packages drive dispatch and call generation from them.
package schema

import (
	"fmt"

	"github.com/objbus/objbus/wire"
)

// Direction distinguishes request/reply calls from fire-and-forget
// notifications.
type Direction int

const (
	// Call is a request/reply invocation expecting a typed response or error.
	Call Direction = iota
	// Notify is a one-way invocation with no reply.
	Notify
)

func (d Direction) String() string {
	if d == Notify {
		return "notify"
	}
	return "call"
}

// Method describes a single method of an interface.
type Method struct {
	Name      string
	Args      []wire.Shape
	Reply     *wire.Shape
	Direction Direction
}

// Interface is an ordered, uniquely-named method set identified by a
// reverse-domain-style name.
type Interface struct {
	Name    string
	Methods []Method
}

// NewInterface validates and returns an interface descriptor. Method names
// must be unique and Notify methods must not declare a reply.
func NewInterface(name string, methods ...Method) (Interface, error) {
	if name == "" {
		return Interface{}, fmt.Errorf("schema: interface name is required")
	}
	seen := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		if m.Name == "" {
			return Interface{}, fmt.Errorf("schema: %s: method name is required", name)
		}
		if _, ok := seen[m.Name]; ok {
			return Interface{}, fmt.Errorf("schema: %s: duplicate method %q", name, m.Name)
		}
		seen[m.Name] = struct{}{}
		if m.Direction == Notify && m.Reply != nil {
			return Interface{}, fmt.Errorf("schema: %s: notify method %q declares a reply", name, m.Name)
		}
	}
	return Interface{Name: name, Methods: methods}, nil
}

// MustInterface is NewInterface for static descriptors; it panics on invalid
// input.
func MustInterface(name string, methods ...Method) Interface {
	iface, err := NewInterface(name, methods...)
	if err != nil {
		panic(err)
	}
	return iface
}

// Method returns the descriptor for an exact method name.
func (i Interface) Method(name string) (Method, bool) {
	for _, m := range i.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return Method{}, false
}
