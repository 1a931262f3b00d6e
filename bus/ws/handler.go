package ws

import (
	"io"
	"net/http"

	"github.com/objbus/objbus/bus"
	"github.com/objbus/objbus/export"
	"github.com/objbus/objbus/wire"
)

// Handler serves bus connections over websocket upgrades. Every connection
// shares the exporter, so all peers see the same published objects; each
// conn still has its own identity for disconnect tracking. If onConn is
// non-nil it is called with each new connection before serving starts.
func Handler(u Upgrader, exporter *export.Exporter, payload wire.Codec, onConn func(*bus.Conn)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		codec, err := u.Upgrade(r, w, nil)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		conn := &bus.Conn{
			Codec:    codec,
			Payload:  payload,
			Exporter: exporter,
		}
		if onConn != nil {
			onConn(conn)
		}
		if err := conn.Serve(); err != nil && err != io.EOF {
			logger.Printf("conn %s ended: %s", conn.ConnID(), err)
		}
	}
}
