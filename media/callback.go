package media

import (
	"github.com/objbus/objbus/bus"
	"github.com/objbus/objbus/export"
)

// Callback is implemented by subscribers that want device events.
type Callback interface {
	OnBluetoothAudioDeviceAdded(addr string)
	OnBluetoothAudioDeviceRemoved(addr string)
}

// ExportCallback publishes a callback implementation at path on the
// subscriber's side of the connection, so the service's generated proxy can
// reach it.
func ExportCallback(conn *bus.Conn, path string, cb Callback) (export.Handle, error) {
	obj, err := export.Bind(path, CallbackInterface(), cb)
	if err != nil {
		return export.Handle{}, err
	}
	return conn.Publish(obj)
}
