package watch

import (
	"context"
	"errors"
	"testing"

	"github.com/objbus/objbus/proxy"
	"github.com/objbus/objbus/schema"
	"github.com/objbus/objbus/wire"
)

type nullNotifier struct {
	connID string
}

func (n *nullNotifier) Notify(ctx context.Context, path, iface, method string, args ...interface{}) error {
	return nil
}

func (n *nullNotifier) ConnID() string { return n.connID }

func newProxy(t *testing.T, connID, path string) *proxy.Callback {
	t.Helper()
	iface := schema.MustInterface("org.example.MediaCallback",
		schema.Method{Name: "OnBluetoothAudioDeviceAdded", Args: []wire.Shape{wire.String()}, Direction: schema.Notify},
	)
	p, err := proxy.New(&nullNotifier{connID: connID}, path, iface)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestDisconnectCleanup(t *testing.T) {
	w := &DisconnectWatcher{}

	// The owning registry: a callback set a service would hold.
	registered := map[string]*proxy.Callback{}

	p := newProxy(t, "conn-1", "/client7")
	registered[p.BusAddress()] = p
	w.Attach(p.ConnID(), p, func() {
		delete(registered, p.BusAddress())
	})

	if !w.Watching("conn-1") {
		t.Fatal("proxy not attached")
	}

	w.OnPeerDisconnected("conn-1")

	if !p.Retired() {
		t.Error("proxy not retired after disconnect")
	}
	if _, held := registered["/client7"]; held {
		t.Error("proxy still present in owning registry")
	}
	if w.Watching("conn-1") {
		t.Error("watcher still tracking disconnected peer")
	}

	var retired proxy.RetiredError
	if err := p.Invoke(context.Background(), "OnBluetoothAudioDeviceAdded", "AA:BB:CC:DD:EE:FF"); !errors.As(err, &retired) {
		t.Errorf("got %v; want RetiredError", err)
	}
}

func TestDisconnectIdempotent(t *testing.T) {
	w := &DisconnectWatcher{}

	removals := 0
	p := newProxy(t, "conn-1", "/client7")
	w.Attach("conn-1", p, func() { removals++ })

	w.OnPeerDisconnected("conn-1")
	w.OnPeerDisconnected("conn-1")

	if removals != 1 {
		t.Errorf("removal hook ran %d times; want 1", removals)
	}

	// Disconnect for a peer nothing is attached under is a no-op.
	w.OnPeerDisconnected("conn-unknown")
}

func TestAttachMoves(t *testing.T) {
	w := &DisconnectWatcher{}

	p := newProxy(t, "conn-1", "/client7")
	w.Attach("conn-1", p, nil)
	w.Attach("conn-2", p, nil)

	if w.Watching("conn-1") {
		t.Error("proxy must appear in at most one watcher entry")
	}

	w.OnPeerDisconnected("conn-1")
	if p.Retired() {
		t.Error("proxy retired under a connection it no longer belongs to")
	}

	w.OnPeerDisconnected("conn-2")
	if !p.Retired() {
		t.Error("proxy not retired under its current connection")
	}
}

func TestOnlyMatchingPeerCleaned(t *testing.T) {
	w := &DisconnectWatcher{}

	p1 := newProxy(t, "conn-1", "/client1")
	p2 := newProxy(t, "conn-2", "/client2")
	w.Attach("conn-1", p1, nil)
	w.Attach("conn-2", p2, nil)

	w.OnPeerDisconnected("conn-1")

	if !p1.Retired() {
		t.Error("p1 not retired")
	}
	if p2.Retired() {
		t.Error("p2 retired for an unrelated peer disconnect")
	}
	if !w.Watching("conn-2") {
		t.Error("unrelated peer's proxies must stay attached")
	}
}
