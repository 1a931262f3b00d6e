package media

import (
	"context"
	"sync"
	"time"

	"github.com/objbus/objbus/bus"
	"github.com/objbus/objbus/export"
	"github.com/objbus/objbus/media/store"
	"github.com/objbus/objbus/proxy"
	"github.com/objbus/objbus/watch"
)

// NotInitializedError is returned for session operations before Initialize.
type NotInitializedError struct{}

func (NotInitializedError) Error() string {
	return "media service not initialized"
}

// Service is the Bluetooth media service implementation. It owns the set of
// registered callback proxies; the disconnect watcher holds weak
// back-references and removes entries when their peer drops.
type Service struct {
	watcher *watch.DisconnectWatcher

	mu          sync.Mutex
	store       store.Store
	callbacks   map[string]*proxy.Callback // key: connID + " " + callback path
	active      string
	initialized bool
	inSession   bool
}

// New returns a media service persisting devices to st and retiring
// callbacks through watcher.
func New(st store.Store, watcher *watch.DisconnectWatcher) *Service {
	return &Service{
		watcher:   watcher,
		store:     st,
		callbacks: map[string]*proxy.Callback{},
	}
}

// Object binds the service for publication at a bus path.
func (s *Service) Object(path string) (*export.Object, error) {
	return export.Bind(path, Interface(), s)
}

// RegisterCallback subscribes the calling peer's callback object to device
// events. The proxy is retired and dropped automatically if the peer
// disconnects.
func (s *Service) RegisterCallback(ctx context.Context, path string) (bool, error) {
	conn, err := bus.CtxConn(ctx)
	if err != nil {
		return false, err
	}
	p, err := proxy.New(conn, path, CallbackInterface())
	if err != nil {
		return false, err
	}

	key := conn.ConnID() + " " + path
	s.mu.Lock()
	s.callbacks[key] = p
	s.mu.Unlock()

	s.watcher.Attach(conn.ConnID(), p, func() {
		s.mu.Lock()
		delete(s.callbacks, key)
		s.mu.Unlock()
		logger.Printf("retired callback %s for peer %s", path, conn.ConnID())
	})
	s.watcher.WatchConn(conn)
	return true, nil
}

// Initialize loads the known devices and re-announces them to registered
// callbacks. It returns false when the store cannot be read.
func (s *Service) Initialize(ctx context.Context) bool {
	devices, err := s.store.Devices()
	if err != nil {
		logger.Printf("Initialize: reading device store failed: %s", err)
		return false
	}

	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()

	for _, device := range devices {
		s.announce(ctx, "OnBluetoothAudioDeviceAdded", device.Address)
	}
	return true
}

// Connect records a device and announces it to every registered callback.
func (s *Service) Connect(ctx context.Context, device string) error {
	err := s.store.SetDevice(store.Device{
		Address:  device,
		LastSeen: time.Now(),
	})
	if err != nil {
		return err
	}
	s.announce(ctx, "OnBluetoothAudioDeviceAdded", device)
	return nil
}

// SetActiveDevice selects the device audio is routed to. The device must be
// known.
func (s *Service) SetActiveDevice(device string) error {
	if _, err := s.store.GetDevice(device); err != nil {
		return err
	}
	s.mu.Lock()
	s.active = device
	s.mu.Unlock()
	return nil
}

// ActiveDevice returns the currently selected device address, if any.
func (s *Service) ActiveDevice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Disconnect announces a device's removal. The device stays in the store so
// a later Initialize re-announces it.
func (s *Service) Disconnect(ctx context.Context, device string) error {
	s.mu.Lock()
	if s.active == device {
		s.active = ""
	}
	s.mu.Unlock()
	s.announce(ctx, "OnBluetoothAudioDeviceRemoved", device)
	return nil
}

// StartSession begins an audio session.
func (s *Service) StartSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return NotInitializedError{}
	}
	s.inSession = true
	return nil
}

// StopSession ends the audio session. Stopping without a running session is
// a no-op.
func (s *Service) StopSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inSession = false
	return nil
}

// InSession reports whether an audio session is running.
func (s *Service) InSession() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inSession
}

// announce fans an event out to every registered callback. A retired proxy
// is skipped; other delivery failures are logged and dropped, since
// notifications carry no feedback.
func (s *Service) announce(ctx context.Context, method string, addr string) {
	s.mu.Lock()
	proxies := make([]*proxy.Callback, 0, len(s.callbacks))
	for _, p := range s.callbacks {
		proxies = append(proxies, p)
	}
	s.mu.Unlock()

	for _, p := range proxies {
		if err := p.Invoke(ctx, method, addr); err != nil {
			logger.Printf("announce %s(%s) to %s failed: %s", method, addr, p.BusAddress(), err)
		}
	}
}
