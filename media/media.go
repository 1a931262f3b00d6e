/*
Package media binds the Bluetooth media service to the bus. The service
itself is bookkeeping over devices, sessions and registered callbacks; all
transport mechanics come from the export, proxy and watch packages.
*/
package media

import (
	"github.com/objbus/objbus/schema"
	"github.com/objbus/objbus/wire"
)

const (
	// InterfaceName identifies the exported media service.
	InterfaceName = "org.chromium.bluetooth.BluetoothMedia"
	// CallbackInterfaceName identifies the subscriber callback interface.
	CallbackInterfaceName = "org.chromium.bluetooth.BluetoothMediaCallback"
)

var boolShape = wire.Bool()

// Interface returns the media service descriptor.
func Interface() schema.Interface {
	return schema.MustInterface(InterfaceName,
		schema.Method{Name: "RegisterCallback", Args: []wire.Shape{wire.String()}, Reply: &boolShape},
		schema.Method{Name: "Initialize", Reply: &boolShape},
		schema.Method{Name: "Connect", Args: []wire.Shape{wire.String()}},
		schema.Method{Name: "SetActiveDevice", Args: []wire.Shape{wire.String()}},
		schema.Method{Name: "Disconnect", Args: []wire.Shape{wire.String()}},
		schema.Method{Name: "StartSession"},
		schema.Method{Name: "StopSession"},
	)
}

// CallbackInterface returns the callback descriptor. Callbacks are pure
// notifications: no method carries a reply.
func CallbackInterface() schema.Interface {
	return schema.MustInterface(CallbackInterfaceName,
		schema.Method{Name: "OnBluetoothAudioDeviceAdded", Args: []wire.Shape{wire.String()}, Direction: schema.Notify},
		schema.Method{Name: "OnBluetoothAudioDeviceRemoved", Args: []wire.Shape{wire.String()}, Direction: schema.Notify},
	)
}
