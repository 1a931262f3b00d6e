package store

import (
	"sort"
	"sync"
)

// MemoryStore implements an ephemeral in-memory store. Devices are forgotten
// on restart; it's mainly useful for testing.
func MemoryStore() *memoryStore {
	return &memoryStore{
		devices: map[string]Device{},
	}
}

// Assert Store implementation
var _ Store = &memoryStore{}

type memoryStore struct {
	mu      sync.Mutex
	devices map[string]Device
}

func (s *memoryStore) SetDevice(device Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[device.Address] = device
	return nil
}

func (s *memoryStore) GetDevice(address string) (Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	device, ok := s.devices[address]
	if !ok {
		return Device{}, ErrUnknownDevice
	}
	return device, nil
}

func (s *memoryStore) Devices() ([]Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := make([]Device, 0, len(s.devices))
	for _, device := range s.devices {
		r = append(r, device)
	}
	sort.Slice(r, func(i, j int) bool {
		return r[i].Address < r[j].Address
	})
	return r, nil
}

func (s *memoryStore) RemoveDevice(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[address]; !ok {
		return ErrUnknownDevice
	}
	delete(s.devices, address)
	return nil
}

func (s *memoryStore) Close() error {
	return nil
}
