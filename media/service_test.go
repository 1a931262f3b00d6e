package media

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/objbus/objbus/bus"
	"github.com/objbus/objbus/media/store"
	"github.com/objbus/objbus/watch"
)

type recordingCallback struct {
	added   chan string
	removed chan string
}

func newRecordingCallback() *recordingCallback {
	return &recordingCallback{
		added:   make(chan string, 8),
		removed: make(chan string, 8),
	}
}

func (c *recordingCallback) OnBluetoothAudioDeviceAdded(addr string)   { c.added <- addr }
func (c *recordingCallback) OnBluetoothAudioDeviceRemoved(addr string) { c.removed <- addr }

func waitFor(t *testing.T, ch chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Errorf("got event for %q; want %q", got, want)
		}
	case <-time.After(time.Second):
		t.Fatalf("no event for %q", want)
	}
}

func assertQuiet(t *testing.T, ch chan string) {
	t.Helper()
	select {
	case got := <-ch:
		t.Errorf("unexpected event for %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}

// setupService publishes a fresh media service over a pipe and returns the
// service, its watcher, and the subscriber end of the connection.
func setupService(t *testing.T) (*Service, *watch.DisconnectWatcher, *bus.Conn, *bus.Conn) {
	t.Helper()
	server, client := bus.ServePipe()

	watcher := &watch.DisconnectWatcher{}
	service := New(store.MemoryStore(), watcher)
	obj, err := service.Object("/org/chromium/bluetooth/media")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := server.Publish(obj); err != nil {
		t.Fatal(err)
	}
	return service, watcher, server, client
}

func TestServiceCallbacks(t *testing.T) {
	service, _, server, client := setupService(t)
	defer server.Close()
	defer client.Close()

	subscriber := newRecordingCallback()
	if _, err := ExportCallback(client, "/client7", subscriber); err != nil {
		t.Fatal(err)
	}

	remote := NewClient(client, "/org/chromium/bluetooth/media")
	ok, err := remote.RegisterCallback(context.Background(), "/client7")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("RegisterCallback: got false; want true")
	}

	if err := remote.Connect(context.Background(), "AA:BB:CC:DD:EE:FF"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, subscriber.added, "AA:BB:CC:DD:EE:FF")
	assertQuiet(t, subscriber.added)

	if err := remote.Disconnect(context.Background(), "AA:BB:CC:DD:EE:FF"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, subscriber.removed, "AA:BB:CC:DD:EE:FF")

	// The device survives Disconnect, so Initialize re-announces it.
	ok, err = remote.Initialize(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("Initialize: got false; want true")
	}
	waitFor(t, subscriber.added, "AA:BB:CC:DD:EE:FF")

	if _, err := service.store.GetDevice("AA:BB:CC:DD:EE:FF"); err != nil {
		t.Errorf("device not persisted: %s", err)
	}
}

func TestServiceSessions(t *testing.T) {
	service, _, server, client := setupService(t)
	defer server.Close()
	defer client.Close()

	remote := NewClient(client, "/org/chromium/bluetooth/media")

	// Sessions require Initialize first.
	if err := remote.StartSession(context.Background()); err == nil {
		t.Error("StartSession before Initialize should fail")
	}

	if _, err := remote.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := remote.StartSession(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !service.InSession() {
		t.Error("no session after StartSession")
	}
	if err := remote.StopSession(context.Background()); err != nil {
		t.Fatal(err)
	}
	if service.InSession() {
		t.Error("session still running after StopSession")
	}
}

func TestServiceActiveDevice(t *testing.T) {
	service, _, server, client := setupService(t)
	defer server.Close()
	defer client.Close()

	remote := NewClient(client, "/org/chromium/bluetooth/media")

	if err := remote.SetActiveDevice(context.Background(), "AA:BB:CC:DD:EE:FF"); err == nil {
		t.Error("SetActiveDevice for unknown device should fail")
	}

	if err := remote.Connect(context.Background(), "AA:BB:CC:DD:EE:FF"); err != nil {
		t.Fatal(err)
	}
	if err := remote.SetActiveDevice(context.Background(), "AA:BB:CC:DD:EE:FF"); err != nil {
		t.Fatal(err)
	}
	if got := service.ActiveDevice(); got != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("active device: got %q", got)
	}

	// Disconnecting the active device clears the selection.
	if err := remote.Disconnect(context.Background(), "AA:BB:CC:DD:EE:FF"); err != nil {
		t.Fatal(err)
	}
	if got := service.ActiveDevice(); got != "" {
		t.Errorf("active device after disconnect: got %q", got)
	}
}

func TestServiceCallbackRetiredOnDisconnect(t *testing.T) {
	service, watcher, server, client := setupService(t)
	defer server.Close()

	subscriber := newRecordingCallback()
	if _, err := ExportCallback(client, "/client7", subscriber); err != nil {
		t.Fatal(err)
	}
	remote := NewClient(client, "/org/chromium/bluetooth/media")
	if _, err := remote.RegisterCallback(context.Background(), "/client7"); err != nil {
		t.Fatal(err)
	}

	service.mu.Lock()
	registered := len(service.callbacks)
	var held []string
	for key := range service.callbacks {
		held = append(held, key)
	}
	service.mu.Unlock()
	if registered != 1 {
		t.Fatalf("registered callbacks: got %d (%v); want 1", registered, held)
	}

	// Drop the subscriber. The serve loop on the service side notices and
	// the watcher retires the proxy.
	client.Close()

	deadline := time.After(time.Second)
	for {
		service.mu.Lock()
		remaining := len(service.callbacks)
		service.mu.Unlock()
		if remaining == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("callback not removed after peer disconnect")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// Announcements now go nowhere; in particular they don't error the
	// service.
	if err := service.Connect(context.Background(), "11:22:33:44:55:66"); err != nil {
		t.Fatal(err)
	}

	// A second disconnect delivery for the same peer is a no-op.
	service.mu.Lock()
	before := len(service.callbacks)
	service.mu.Unlock()
	watcher.OnPeerDisconnected(server.ConnID())
	service.mu.Lock()
	after := len(service.callbacks)
	service.mu.Unlock()
	if before != after {
		t.Errorf("idempotent disconnect changed state: %d != %d", before, after)
	}
}

func TestServiceRegisterCallbackNeedsConn(t *testing.T) {
	service := New(store.MemoryStore(), &watch.DisconnectWatcher{})
	if _, err := service.RegisterCallback(context.Background(), "/client7"); err == nil {
		t.Error("RegisterCallback without a bus context should fail")
	}
}

func TestServiceInitializeStoreFailure(t *testing.T) {
	service := New(failingStore{}, &watch.DisconnectWatcher{})
	if ok := service.Initialize(context.Background()); ok {
		t.Error("Initialize with a broken store should report false")
	}
}

type failingStore struct{}

func (failingStore) SetDevice(store.Device) error { return errors.New("store down") }
func (failingStore) GetDevice(string) (store.Device, error) {
	return store.Device{}, errors.New("store down")
}
func (failingStore) Devices() ([]store.Device, error) { return nil, errors.New("store down") }
func (failingStore) RemoveDevice(string) error        { return errors.New("store down") }
func (failingStore) Close() error                     { return nil }
