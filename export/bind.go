package export

import (
	"context"
	"fmt"
	"reflect"

	"github.com/objbus/objbus/schema"
	"github.com/objbus/objbus/wire"
)

var typeOfError = reflect.TypeOf((*error)(nil)).Elem()
var typeOfContext = reflect.TypeOf((*context.Context)(nil)).Elem()

// Bind builds an Object whose registry routes every method of the interface
// descriptor to the receiver's Go method of the same name. The receiver is
// isolated from the wire format: arguments are decoded before it runs and
// its result is encoded after.
func Bind(path string, iface schema.Interface, receiver interface{}) (*Object, error) {
	registry := &Registry{}
	kind := reflect.TypeOf(receiver)
	val := reflect.ValueOf(receiver)

	for _, m := range iface.Methods {
		goMethod, ok := kind.MethodByName(m.Name)
		if ok && goMethod.PkgPath != "" {
			ok = false
		}
		if !ok {
			return nil, fmt.Errorf("export: %s: receiver %T has no method %s", iface.Name, receiver, m.Name)
		}
		bound, err := bindMethod(val, goMethod, m)
		if err != nil {
			return nil, fmt.Errorf("export: %s.%s: %w", iface.Name, m.Name, err)
		}
		if err := registry.Register(m, bound.call); err != nil {
			return nil, err
		}
	}

	return NewObject(path, iface, registry), nil
}

type boundMethod struct {
	receiver reflect.Value
	method   reflect.Method
	argTypes []reflect.Type
	errPos   int
	hasCtx   bool
}

// bindMethod checks the Go method against the descriptor and captures the
// reflection plumbing needed to call it.
func bindMethod(receiver reflect.Value, goMethod reflect.Method, m schema.Method) (*boundMethod, error) {
	methodType := goMethod.Type

	argTypes := make([]reflect.Type, 0, methodType.NumIn()-1)
	hasCtx := false
	for pos := 1; pos < methodType.NumIn(); pos++ {
		argType := methodType.In(pos)
		if argType == typeOfContext {
			hasCtx = true
			continue
		}
		argTypes = append(argTypes, argType)
	}
	if len(argTypes) != len(m.Args) {
		return nil, fmt.Errorf("have %d args, descriptor declares %d", len(argTypes), len(m.Args))
	}

	errPos, ok := methodErrPos(methodType)
	if !ok {
		return nil, fmt.Errorf("unsupported return values")
	}

	return &boundMethod{
		receiver: receiver,
		method:   goMethod,
		argTypes: argTypes,
		errPos:   errPos,
		hasCtx:   hasCtx,
	}, nil
}

// methodErrPos returns the return value index of an error type for the
// supported layouts: (), (T), (error), (T, error).
func methodErrPos(methodType reflect.Type) (int, bool) {
	switch methodType.NumOut() {
	case 0:
		return -1, true
	case 1:
		if methodType.Out(0) == typeOfError {
			return 0, true
		}
		return -1, true
	case 2:
		if methodType.Out(1) == typeOfError {
			return 1, true
		}
		return -1, false
	}
	return -1, false
}

// call executes the bound method with canonical decoded arguments.
func (m *boundMethod) call(ctx context.Context, args []interface{}) (interface{}, error) {
	if len(args) != len(m.argTypes) {
		return nil, fmt.Errorf("invalid number of args: expected %d, got %d", len(m.argTypes), len(args))
	}

	arguments := make([]reflect.Value, 0, len(args)+2)
	arguments = append(arguments, m.receiver)
	if m.hasCtx {
		arguments = append(arguments, reflect.ValueOf(ctx))
	}
	for i, arg := range args {
		value, err := wire.Assign(arg, m.argTypes[i])
		if err != nil {
			return nil, err
		}
		arguments = append(arguments, value)
	}

	reply := m.method.Func.Call(arguments)

	if len(reply) == 0 {
		return nil, nil
	}
	if m.errPos >= 0 && !reply[m.errPos].IsNil() {
		return nil, reply[m.errPos].Interface().(error)
	}
	if m.errPos == 0 {
		// Single error return value, already checked nil.
		return nil, nil
	}
	return reply[0].Interface(), nil
}
