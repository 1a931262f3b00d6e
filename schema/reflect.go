package schema

import (
	"context"
	"fmt"
	"reflect"
	"unicode"
	"unicode/utf8"

	"github.com/objbus/objbus/wire"
)

var typeOfError = reflect.TypeOf((*error)(nil)).Elem()
var typeOfContext = reflect.TypeOf((*context.Context)(nil)).Elem()

// InterfaceOf builds an interface descriptor from a receiver's exported
// methods, with argument shapes inferred from the Go parameter types. A
// context.Context first parameter is dispatch plumbing, not an argument.
// Supported return layouts are (), (T), (error) and (T, error). Methods with
// un-inferable parameter types are skipped; methods whose returns conflict
// with the direction (a Notify method returning a value) are an error.
func InterfaceOf(name string, receiver interface{}, dir Direction) (Interface, error) {
	kind := reflect.TypeOf(receiver)
	val := reflect.ValueOf(receiver)
	if recvName := reflect.Indirect(val).Type().Name(); !isExported(recvName) {
		return Interface{}, fmt.Errorf("schema: receiver must be exported: %s", recvName)
	}

	methods := make([]Method, 0, kind.NumMethod())
	for i := 0; i < kind.NumMethod(); i++ {
		method := kind.Method(i)
		if method.PkgPath != "" {
			// Skip unexported methods
			continue
		}

		args, ok, err := methodArgShapes(method.Type)
		if err != nil {
			return Interface{}, fmt.Errorf("schema: method %s: %w", method.Name, err)
		}
		if !ok {
			continue
		}

		reply, err := methodReplyShape(method.Type)
		if err != nil {
			return Interface{}, fmt.Errorf("schema: method %s: %w", method.Name, err)
		}
		if dir == Notify && reply != nil {
			return Interface{}, fmt.Errorf("schema: notify method %s returns a value", method.Name)
		}

		methods = append(methods, Method{
			Name:      method.Name,
			Args:      args,
			Reply:     reply,
			Direction: dir,
		})
	}

	return NewInterface(name, methods...)
}

// methodArgShapes infers shapes for a method's parameters, skipping the
// receiver and an optional leading context. ok is false when a parameter
// type is unexported or otherwise not marshal-able.
func methodArgShapes(methodType reflect.Type) (args []wire.Shape, ok bool, err error) {
	args = make([]wire.Shape, 0, methodType.NumIn()-1)
	for pos := 1; pos < methodType.NumIn(); pos++ {
		argType := methodType.In(pos)
		if argType == typeOfContext {
			continue
		}
		if !isExportedOrBuiltin(argType) {
			return nil, false, nil
		}
		s, err := wire.ShapeOf(argType)
		if err != nil {
			return nil, false, nil
		}
		args = append(args, s)
	}
	return args, true, nil
}

// methodReplyShape infers the reply shape from the return layout.
func methodReplyShape(methodType reflect.Type) (*wire.Shape, error) {
	switch methodType.NumOut() {
	case 0:
		return nil, nil
	case 1:
		if methodType.Out(0) == typeOfError {
			return nil, nil
		}
		s, err := wire.ShapeOf(methodType.Out(0))
		if err != nil {
			return nil, err
		}
		return &s, nil
	case 2:
		if methodType.Out(1) != typeOfError {
			return nil, fmt.Errorf("second return value must be error")
		}
		s, err := wire.ShapeOf(methodType.Out(0))
		if err != nil {
			return nil, err
		}
		return &s, nil
	}
	return nil, fmt.Errorf("unsupported return values")
}

// Borrowed from https://golang.org/src/net/rpc/server.go

// isExported returns true if a string is an exported (upper case) name.
func isExported(name string) bool {
	rune, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(rune)
}

// isExportedOrBuiltin returns true if a type is exported or a builtin.
func isExportedOrBuiltin(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	// PkgPath will be non-empty even for an exported type,
	// so we need to check the type name as well.
	return isExported(t.Name()) || t.PkgPath() == ""
}
