// Package store persists the audio devices the media service has seen, so
// they can be re-announced after a restart.
package store

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownDevice is returned when a device address is not in the store.
var ErrUnknownDevice = errors.New("unknown device")

// Device is a known Bluetooth audio device.
type Device struct {
	Address  string    `json:"address"`
	Name     string    `json:"name,omitempty"`
	LastSeen time.Time `json:"last_seen"`
}

func (d Device) String() string {
	if d.Name == "" {
		return fmt.Sprintf("Device(%q)", d.Address)
	}
	return fmt.Sprintf("Device(%q, %q)", d.Address, d.Name)
}

// Store is the device storage interface used by the media service. It
// should be goroutine-safe.
type Store interface {
	// SetDevice adds or refreshes a device record.
	SetDevice(device Device) error
	// GetDevice returns a device by exact address.
	GetDevice(address string) (Device, error)
	// Devices returns all known devices, ordered by address.
	Devices() ([]Device, error)
	// RemoveDevice forgets a device. Removing an unknown address is an
	// error.
	RemoveDevice(address string) error
	// Close releases the store.
	Close() error
}
