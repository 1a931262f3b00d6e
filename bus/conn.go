/*
Package bus drives one end of an inter-process message bus connection. A
Conn serves incoming frames, routes requests to objects published on its
Exporter, and resolves replies to outstanding calls. It is caller and callee
at the same time, so bidirectional interfaces need a single connection.

When a Conn dispatches a request, the handler's context carries the
connection; CtxConn(ctx) recovers it, which is how a service builds callback
proxies targeting the calling peer.
*/
package bus

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/objbus/objbus/export"
	"github.com/objbus/objbus/schema"
	"github.com/objbus/objbus/wire"
)

type connContext string

var ctxConn connContext = "conn"

// CtxConn returns the Conn that delivered the request a handler is serving.
// This is what enables bidirectional calls: the service can invoke methods
// back on the calling peer's connection.
func CtxConn(ctx context.Context) (*Conn, error) {
	c, ok := ctx.Value(ctxConn).(*Conn)
	if !ok {
		return nil, ErrContextMissingValue{ctxConn}
	}
	return c, nil
}

// Conn wraps a frame codec as a bidirectional connection. The zero value
// with a Codec is usable; Payload defaults to JSON and Exporter to an empty
// exporter.
type Conn struct {
	Codec    Codec
	Payload  wire.Codec
	Exporter *export.Exporter

	idOnce sync.Once
	connID string

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan Message
	closed  bool
	onClose []func(connID string)
}

// ConnID returns the connection identifier, assigned on first use. It is
// the peer identity used by disconnect watchers.
func (c *Conn) ConnID() string {
	c.idOnce.Do(func() {
		c.connID = uuid.New().String()
	})
	return c.connID
}

func (c *Conn) payload() wire.Codec {
	if c.Payload == nil {
		return wire.JSON()
	}
	return c.Payload
}

func (c *Conn) exporter() *export.Exporter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Exporter == nil {
		c.Exporter = &export.Exporter{}
	}
	return c.Exporter
}

// Publish binds an object to this connection's exporter.
func (c *Conn) Publish(obj *export.Object) (export.Handle, error) {
	return c.exporter().Publish(obj)
}

// Unpublish removes a publication from this connection's exporter.
func (c *Conn) Unpublish(h export.Handle) {
	c.exporter().Unpublish(h)
}

// OnClose registers a callback invoked with the connection ID once the
// connection drops. Registering on an already-closed conn fires immediately.
func (c *Conn) OnClose(fn func(connID string)) {
	c.mu.Lock()
	closed := c.closed
	if !closed {
		c.onClose = append(c.onClose, fn)
	}
	c.mu.Unlock()
	if closed {
		fn(c.ConnID())
	}
}

// registerPending creates the reply channel for an in-flight call.
func (c *Conn) registerPending(key uint64) chan Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		c.pending = map[uint64]chan Message{}
	}
	ch := make(chan Message, 1)
	c.pending[key] = ch
	return ch
}

// deliverReply hands a reply to its registered waiter and removes the
// entry. Replies with no waiter (late arrivals after a caller gave up, or
// IDs never issued) are reported so the serve loop can drop them; they
// never register new entries.
func (c *Conn) deliverReply(msg *Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.pending[msg.ID]
	if !ok {
		return false
	}
	delete(c.pending, msg.ID)
	ch <- *msg
	return true
}

func (c *Conn) writeMessage(msg *Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Codec.WriteMessage(msg)
}

// Serve reads and routes frames until the connection fails, then resolves
// every outstanding call with PeerDisconnectedError and fires the OnClose
// callbacks. The returned error is the read failure that ended the loop.
func (c *Conn) Serve() error {
	for {
		msg, err := c.Codec.ReadMessage()
		if err != nil {
			c.shutdown()
			return err
		}
		if msg.IsRequest() {
			go c.handleRequest(msg)
		} else if msg.IsReply() {
			if !c.deliverReply(msg) {
				logger.Printf("Conn.Serve(): dropping unmatched reply: %s", msg)
			}
		} else {
			logger.Printf("Conn.Serve(): dropping invalid message: %s", msg)
		}
	}
}

// shutdown marks the conn closed, unblocks call waiters and notifies close
// listeners. Safe to call more than once.
func (c *Conn) shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for key, ch := range c.pending {
		close(ch)
		delete(c.pending, key)
	}
	listeners := c.onClose
	c.onClose = nil
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(c.ConnID())
	}
}

// Close tears down the underlying codec. Serve returns once the read loop
// observes the closed transport.
func (c *Conn) Close() error {
	err := c.Codec.Close()
	c.shutdown()
	return err
}

// handleRequest dispatches one incoming request frame. Dispatch failures are
// translated into an error reply for Call-direction methods, and logged and
// dropped for Notify-direction ones. Nothing here is fatal to the serve
// loop.
func (c *Conn) handleRequest(msg *Message) {
	ctx := context.WithValue(context.Background(), ctxConn, c)

	obj, ok := c.exporter().Lookup(msg.Path, msg.Iface)
	if !ok {
		if msg.ID != 0 {
			c.reply(msg.ID, nil, &ErrReply{
				Code:    CodeObjectNotFound,
				Message: "no object at " + msg.Path + " " + msg.Iface,
			})
			return
		}
		logger.Printf("Conn.handleRequest(): dropping notify for unknown object: %s", msg)
		return
	}

	// The descriptor's direction decides whether a reply is owed; an
	// unregistered name falls back to the frame's ID so the caller still
	// gets its MethodNotFound.
	wantReply := msg.ID != 0
	if m, known := obj.Registry().Method(msg.Method); known {
		wantReply = wantReply && m.Direction == schema.Call
	}

	result, err := obj.Registry().Dispatch(ctx, msg.Method, msg.Params, c.payload())
	if !wantReply {
		if err != nil {
			logger.Printf("Conn.handleRequest(): notify handler failed: %s: %s", msg, err)
		}
		return
	}
	if err != nil {
		c.reply(msg.ID, nil, dispatchErrReply(err))
		return
	}
	c.reply(msg.ID, result, nil)
}

func (c *Conn) reply(id uint64, result []byte, errReply *ErrReply) {
	err := c.writeMessage(&Message{
		ID:     id,
		Result: result,
		Error:  errReply,
	})
	if err != nil {
		logger.Printf("Conn.reply(): write failed: %s", err)
	}
}

// dispatchErrReply maps a dispatch failure onto its wire error code.
func dispatchErrReply(err error) *ErrReply {
	var notFound export.MethodNotFoundError
	if errors.As(err, &notFound) {
		return &ErrReply{Code: CodeMethodNotFound, Message: err.Error()}
	}
	var mismatch wire.ShapeMismatchError
	if errors.As(err, &mismatch) {
		return &ErrReply{Code: CodeShapeMismatch, Message: err.Error()}
	}
	return &ErrReply{Code: CodeInternal, Message: err.Error()}
}

// Call sends a request to the peer and blocks until the reply, a connection
// drop, or context cancellation. A non-nil result is decoded from the reply
// payload.
func (c *Conn) Call(ctx context.Context, result interface{}, path, iface, method string, args ...interface{}) error {
	params, err := wire.EncodeArgs(c.payload(), nil, args...)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return PeerDisconnectedError{ConnID: c.ConnID()}
	}
	c.nextID++
	id := c.nextID
	c.mu.Unlock()

	ch := c.registerPending(id)
	if err := c.writeMessage(&Message{
		ID:     id,
		Path:   path,
		Iface:  iface,
		Method: method,
		Params: params,
	}); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return err
	}

	select {
	case msg, ok := <-ch:
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		if !ok {
			return PeerDisconnectedError{ConnID: c.ConnID()}
		}
		if msg.Error != nil {
			return msg.Error
		}
		if result == nil || len(msg.Result) == 0 {
			return nil
		}
		return c.payload().Unmarshal(msg.Result, result)
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return ctx.Err()
	}
}

// Notify sends a one-way request. Delivery is at most once: no reply is
// expected, no feedback is returned beyond a local write failure.
func (c *Conn) Notify(ctx context.Context, path, iface, method string, args ...interface{}) error {
	params, err := wire.EncodeArgs(c.payload(), nil, args...)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return PeerDisconnectedError{ConnID: c.ConnID()}
	}
	c.mu.Unlock()

	return c.writeMessage(&Message{
		Path:   path,
		Iface:  iface,
		Method: method,
		Params: params,
	})
}
