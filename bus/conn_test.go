package bus

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/objbus/objbus/export"
	"github.com/objbus/objbus/schema"
	"github.com/objbus/objbus/wire"
)

type MediaStub struct {
	started chan struct{}
	devices []string
}

func (s *MediaStub) Initialize(ctx context.Context) bool { return true }

func (s *MediaStub) Connect(device string) error {
	if device == "" {
		return errors.New("empty device address")
	}
	s.devices = append(s.devices, device)
	return nil
}

func (s *MediaStub) StartSession() {
	s.started <- struct{}{}
}

func mediaInterface(t *testing.T) schema.Interface {
	t.Helper()
	boolShape := wire.Bool()
	return schema.MustInterface("org.example.Media",
		schema.Method{Name: "Initialize", Reply: &boolShape},
		schema.Method{Name: "Connect", Args: []wire.Shape{wire.String()}},
		schema.Method{Name: "StartSession", Direction: schema.Notify},
	)
}

func publishMedia(t *testing.T, conn *Conn, service *MediaStub) {
	t.Helper()
	obj, err := export.Bind("/media0", mediaInterface(t), service)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := conn.Publish(obj); err != nil {
		t.Fatal(err)
	}
}

func TestConnCall(t *testing.T) {
	server, client := ServePipe()
	defer server.Close()
	defer client.Close()

	service := &MediaStub{}
	publishMedia(t, server, service)

	var ready bool
	if err := client.Call(context.Background(), &ready, "/media0", "org.example.Media", "Initialize"); err != nil {
		t.Fatal(err)
	}
	if !ready {
		t.Error("Initialize: got false; want true")
	}

	if err := client.Call(context.Background(), nil, "/media0", "org.example.Media", "Connect", "AA:BB:CC:DD:EE:FF"); err != nil {
		t.Fatal(err)
	}
	if len(service.devices) != 1 || service.devices[0] != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("unexpected devices: %v", service.devices)
	}
}

func TestConnNotify(t *testing.T) {
	server, client := ServePipe()
	defer server.Close()
	defer client.Close()

	service := &MediaStub{started: make(chan struct{}, 2)}
	publishMedia(t, server, service)

	if err := client.Notify(context.Background(), "/media0", "org.example.Media", "StartSession"); err != nil {
		t.Fatal(err)
	}

	select {
	case <-service.started:
	case <-time.After(time.Second):
		t.Fatal("StartSession handler not invoked")
	}
	select {
	case <-service.started:
		t.Fatal("StartSession handler invoked more than once")
	case <-time.After(50 * time.Millisecond):
	}

	// A follow-up call still works, so no reply frame was queued for the
	// notification.
	var ready bool
	if err := client.Call(context.Background(), &ready, "/media0", "org.example.Media", "Initialize"); err != nil {
		t.Fatal(err)
	}
}

func TestConnCallErrors(t *testing.T) {
	server, client := ServePipe()
	defer server.Close()
	defer client.Close()

	publishMedia(t, server, &MediaStub{})

	var errReply *ErrReply

	// Unknown method.
	err := client.Call(context.Background(), nil, "/media0", "org.example.Media", "NoSuchMethod")
	if !errors.As(err, &errReply) || errReply.Code != CodeMethodNotFound {
		t.Errorf("unknown method: got %v; want code %d", err, CodeMethodNotFound)
	}

	// Unknown object.
	err = client.Call(context.Background(), nil, "/media9", "org.example.Media", "Initialize")
	if !errors.As(err, &errReply) || errReply.Code != CodeObjectNotFound {
		t.Errorf("unknown object: got %v; want code %d", err, CodeObjectNotFound)
	}

	// Argument shape mismatch.
	err = client.Call(context.Background(), nil, "/media0", "org.example.Media", "Connect", 42)
	if !errors.As(err, &errReply) || errReply.Code != CodeShapeMismatch {
		t.Errorf("bad args: got %v; want code %d", err, CodeShapeMismatch)
	}

	// Handler failure.
	err = client.Call(context.Background(), nil, "/media0", "org.example.Media", "Connect", "")
	if !errors.As(err, &errReply) || errReply.Code != CodeInternal {
		t.Errorf("handler failure: got %v; want code %d", err, CodeInternal)
	}
}

func TestConnPeerDisconnected(t *testing.T) {
	server, client := ServePipe()
	defer client.Close()

	// A method that never replies: publish nothing and close the server
	// while the call is in flight.
	errs := make(chan error, 1)
	go func() {
		errs <- client.Call(context.Background(), nil, "/media0", "org.example.Media", "Initialize")
	}()

	// Give the call a moment to hit the wire, then drop the peer. The
	// object-not-found reply races the close; accept either resolution as
	// long as the waiter is unblocked.
	time.Sleep(20 * time.Millisecond)
	server.Close()
	client.Close()

	select {
	case err := <-errs:
		if err == nil {
			t.Error("expected an error after peer disconnect")
		}
	case <-time.After(time.Second):
		t.Fatal("call not resolved after disconnect")
	}
}

func TestConnPendingResolvedOnClose(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c1.Close()
	client := &Conn{Codec: IOCodec(c2)}
	go client.Serve()

	// The peer reads frames but never answers.
	go func() {
		dec := json.NewDecoder(c1)
		for {
			var msg Message
			if err := dec.Decode(&msg); err != nil {
				return
			}
		}
	}()

	done := make(chan error, 1)
	go func() {
		done <- client.Call(context.Background(), nil, "/quiet", "org.example.Quiet", "Wait")
	}()

	time.Sleep(20 * time.Millisecond)
	client.shutdown()

	var disconnected PeerDisconnectedError
	select {
	case err := <-done:
		if !errors.As(err, &disconnected) {
			t.Errorf("got %v; want PeerDisconnectedError", err)
		}
	case <-time.After(time.Second):
		t.Fatal("pending call not resolved by shutdown")
	}
}

func TestConnLateReplyDropped(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c1.Close()
	client := &Conn{Codec: IOCodec(c2)}
	go client.Serve()
	defer client.Close()

	// The peer holds its answer until the caller has already given up, then
	// sends it along with a reply to an ID that was never issued.
	release := make(chan struct{})
	go func() {
		dec := json.NewDecoder(c1)
		enc := json.NewEncoder(c1)
		var msg Message
		if err := dec.Decode(&msg); err != nil {
			return
		}
		<-release
		enc.Encode(Message{ID: msg.ID})
		enc.Encode(Message{ID: msg.ID + 1000})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := client.Call(ctx, nil, "/quiet", "org.example.Quiet", "Wait")
	if err != context.DeadlineExceeded {
		t.Fatalf("got %v; want context.DeadlineExceeded", err)
	}
	close(release)

	// Neither reply may leave a pending entry behind.
	time.Sleep(50 * time.Millisecond)
	client.mu.Lock()
	remaining := len(client.pending)
	client.mu.Unlock()
	if remaining != 0 {
		t.Errorf("pending entries after late replies: %d; want 0", remaining)
	}
}

func TestConnOnClose(t *testing.T) {
	server, client := ServePipe()
	defer client.Close()

	fired := make(chan string, 1)
	server.OnClose(func(connID string) {
		fired <- connID
	})

	server.Close()
	select {
	case id := <-fired:
		if id != server.ConnID() {
			t.Errorf("got conn id %q; want %q", id, server.ConnID())
		}
	case <-time.After(time.Second):
		t.Fatal("OnClose callback not fired")
	}

	// Registering after close fires immediately.
	late := make(chan string, 1)
	server.OnClose(func(connID string) {
		late <- connID
	})
	select {
	case <-late:
	default:
		t.Error("OnClose after close should fire synchronously")
	}
}

func TestConnCBORFraming(t *testing.T) {
	c1, c2 := net.Pipe()
	server := &Conn{Codec: CBORCodec(c1), Exporter: &export.Exporter{}}
	client := &Conn{Codec: CBORCodec(c2), Exporter: &export.Exporter{}}
	go server.Serve()
	go client.Serve()
	defer server.Close()
	defer client.Close()

	service := &MediaStub{}
	publishMedia(t, server, service)

	var ready bool
	if err := client.Call(context.Background(), &ready, "/media0", "org.example.Media", "Initialize"); err != nil {
		t.Fatal(err)
	}
	if !ready {
		t.Error("Initialize over CBOR framing: got false; want true")
	}
}

func TestCtxConn(t *testing.T) {
	server, client := ServePipe()
	defer server.Close()
	defer client.Close()

	got := make(chan *Conn, 1)
	registry := &export.Registry{}
	registry.Register(schema.Method{Name: "WhoAmI"}, func(ctx context.Context, args []interface{}) (interface{}, error) {
		conn, err := CtxConn(ctx)
		if err != nil {
			return nil, err
		}
		got <- conn
		return nil, nil
	})
	iface := schema.MustInterface("org.example.Introspect", schema.Method{Name: "WhoAmI"})
	if _, err := server.Publish(export.NewObject("/media0", iface, registry)); err != nil {
		t.Fatal(err)
	}

	if err := client.Call(context.Background(), nil, "/media0", "org.example.Introspect", "WhoAmI"); err != nil {
		t.Fatal(err)
	}
	select {
	case conn := <-got:
		if conn != server {
			t.Error("handler context must carry the serving conn")
		}
	case <-time.After(time.Second):
		t.Fatal("handler never saw its conn")
	}

	if _, err := CtxConn(context.Background()); err == nil {
		t.Error("expected ErrContextMissingValue")
	}
}
