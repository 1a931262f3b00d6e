// Websocket implementation using Gorilla's Websocket library
package gorilla

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/objbus/objbus/bus"
)

// WebSocketDial returns a Codec that wraps a client-side connection with
// frame encoding and decoding.
func WebSocketDial(ctx context.Context, url string) (bus.Codec, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	return &wsCodec{conn: conn}, nil
}

var _ bus.Codec = &wsCodec{}

type wsCodec struct {
	muWrite sync.Mutex
	muRead  sync.Mutex
	conn    *websocket.Conn
}

func (codec *wsCodec) ReadMessage() (*bus.Message, error) {
	codec.muRead.Lock()
	defer codec.muRead.Unlock()
	var msg bus.Message
	if err := codec.conn.ReadJSON(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (codec *wsCodec) WriteMessage(msg *bus.Message) error {
	codec.muWrite.Lock()
	defer codec.muWrite.Unlock()
	return codec.conn.WriteJSON(msg)
}

func (codec *wsCodec) Close() error {
	return codec.conn.Close()
}

// Upgrader upgrades an HTTP request to a WebSocket request and returns the
// appropriate bus codec.
type Upgrader struct {
	Upgrader websocket.Upgrader
}

func (u *Upgrader) Upgrade(r *http.Request, w http.ResponseWriter, h http.Header) (bus.Codec, error) {
	conn, err := u.Upgrader.Upgrade(w, r, h)
	if err != nil {
		return nil, err
	}
	return &wsCodec{conn: conn}, nil
}
