package export

import (
	"context"
	"errors"
	"testing"

	"github.com/objbus/objbus/schema"
	"github.com/objbus/objbus/wire"
)

func TestDispatch(t *testing.T) {
	r := &Registry{}
	var calledA, calledB int

	replyShape := wire.String()
	methodA := schema.Method{Name: "A", Reply: &replyShape}
	methodB := schema.Method{Name: "B", Reply: &replyShape}

	r.Register(methodA, func(ctx context.Context, args []interface{}) (interface{}, error) {
		calledA++
		return "a", nil
	})
	r.Register(methodB, func(ctx context.Context, args []interface{}) (interface{}, error) {
		calledB++
		return "b", nil
	})

	reply, err := r.Dispatch(context.Background(), "A", nil, wire.JSON())
	if err != nil {
		t.Fatal(err)
	}
	if string(reply) != `"a"` {
		t.Errorf("unexpected reply: %s", reply)
	}
	if calledA != 1 || calledB != 0 {
		t.Errorf("handler counts: A=%d B=%d; want A=1 B=0", calledA, calledB)
	}
}

func TestDispatchUnknownMethod(t *testing.T) {
	r := &Registry{}
	called := false
	r.Register(schema.Method{Name: "Known"}, func(ctx context.Context, args []interface{}) (interface{}, error) {
		called = true
		return nil, nil
	})

	_, err := r.Dispatch(context.Background(), "Unknown", nil, wire.JSON())
	var notFound MethodNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected MethodNotFoundError, got: %v", err)
	}
	if called {
		t.Error("no handler should have run")
	}
}

func TestDispatchShapeMismatch(t *testing.T) {
	r := &Registry{}
	called := false
	r.Register(schema.Method{Name: "Connect", Args: []wire.Shape{wire.String()}},
		func(ctx context.Context, args []interface{}) (interface{}, error) {
			called = true
			return nil, nil
		})

	_, err := r.Dispatch(context.Background(), "Connect", []byte(`[42]`), wire.JSON())
	var mismatch wire.ShapeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected ShapeMismatchError, got: %v", err)
	}
	if called {
		t.Error("handler must not run on undecodable args")
	}
}

func TestRegisterDuplicates(t *testing.T) {
	method := schema.Method{Name: "Connect"}
	first := func(ctx context.Context, args []interface{}) (interface{}, error) {
		return nil, errors.New("first")
	}
	second := func(ctx context.Context, args []interface{}) (interface{}, error) {
		return nil, errors.New("second")
	}

	// Default policy: last write wins.
	r := &Registry{}
	r.Register(method, first)
	if err := r.Register(method, second); err != nil {
		t.Fatal(err)
	}
	_, err := r.Dispatch(context.Background(), "Connect", nil, wire.JSON())
	if err == nil || err.Error() != "second" {
		t.Errorf("replace policy: got %v; want second handler", err)
	}

	// Reject policy: original handler stays.
	r = &Registry{Duplicates: Reject}
	r.Register(method, first)
	var dup DuplicateMethodError
	if err := r.Register(method, second); !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateMethodError, got: %v", err)
	}
	_, err = r.Dispatch(context.Background(), "Connect", nil, wire.JSON())
	if err == nil || err.Error() != "first" {
		t.Errorf("reject policy: got %v; want first handler", err)
	}
}
