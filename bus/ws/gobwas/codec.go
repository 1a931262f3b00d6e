package gobwas

import (
	"context"
	"io"
	"net"
	"net/http"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/objbus/objbus/bus"
)

type rwc struct {
	io.Reader
	io.Writer
	io.Closer
}

// WebSocketDial returns a Codec that wraps a client-side connection with
// frame encoding and decoding.
func WebSocketDial(ctx context.Context, url string) (bus.Codec, error) {
	conn, _, _, err := ws.Dial(ctx, url)
	if err != nil {
		return nil, err
	}

	return clientWebSocketCodec(conn), nil
}

func clientWebSocketCodec(conn net.Conn) bus.Codec {
	r := wsutil.NewReader(conn, ws.StateClientSide)
	w := wsutil.NewWriter(conn, ws.StateClientSide, ws.OpBinary)
	return &wsCodec{
		inner: bus.IOCodec(rwc{r, w, conn}),
		r:     r,
		w:     w,
	}
}

// serverWebSocketCodec returns a server-side Codec that wraps frame encoding
// and decoding over a websocket connection.
func serverWebSocketCodec(conn net.Conn) bus.Codec {
	r := wsutil.NewReader(conn, ws.StateServerSide)
	w := wsutil.NewWriter(conn, ws.StateServerSide, ws.OpBinary)
	return &wsCodec{
		inner: bus.IOCodec(rwc{r, w, conn}),
		r:     r,
		w:     w,
	}
}

var _ bus.Codec = &wsCodec{}

type wsCodec struct {
	inner bus.Codec
	r     *wsutil.Reader
	w     *wsutil.Writer
}

func (codec *wsCodec) ReadMessage() (*bus.Message, error) {
	_, err := codec.r.NextFrame()
	if err != nil {
		return nil, err
	}
	return codec.inner.ReadMessage()
}

func (codec *wsCodec) WriteMessage(msg *bus.Message) error {
	err := codec.inner.WriteMessage(msg)
	if err != nil {
		return err
	}
	if err = codec.w.Flush(); err != nil {
		return err
	}
	return nil
}

func (codec *wsCodec) Close() error {
	return codec.inner.Close()
}

// Upgrader upgrades an HTTP request to a WebSocket request and returns the
// appropriate bus codec.
type Upgrader struct {
	Upgrader ws.HTTPUpgrader
}

func (u *Upgrader) Upgrade(r *http.Request, w http.ResponseWriter, h http.Header) (bus.Codec, error) {
	conn, _, _, err := u.Upgrader.Upgrade(r, w)
	if err != nil {
		return nil, err
	}
	return serverWebSocketCodec(conn), nil
}
