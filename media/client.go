package media

import (
	"context"
)

// Caller is the request/reply half of a bus connection.
type Caller interface {
	Call(ctx context.Context, result interface{}, path, iface, method string, args ...interface{}) error
}

// Client wraps a published media service with typed calls.
type Client struct {
	caller Caller
	path   string
}

// NewClient returns a typed client for the media service published at path
// on the peer behind caller.
func NewClient(caller Caller, path string) *Client {
	return &Client{caller: caller, path: path}
}

// RegisterCallback subscribes the callback object exported at callbackPath
// on our side of the connection.
func (c *Client) RegisterCallback(ctx context.Context, callbackPath string) (bool, error) {
	var ok bool
	if err := c.caller.Call(ctx, &ok, c.path, InterfaceName, "RegisterCallback", callbackPath); err != nil {
		return false, err
	}
	return ok, nil
}

// Initialize brings the service up and replays known devices to registered
// callbacks.
func (c *Client) Initialize(ctx context.Context) (bool, error) {
	var ok bool
	if err := c.caller.Call(ctx, &ok, c.path, InterfaceName, "Initialize"); err != nil {
		return false, err
	}
	return ok, nil
}

// Connect announces a device to the service.
func (c *Client) Connect(ctx context.Context, device string) error {
	return c.caller.Call(ctx, nil, c.path, InterfaceName, "Connect", device)
}

// SetActiveDevice selects the device audio is routed to.
func (c *Client) SetActiveDevice(ctx context.Context, device string) error {
	return c.caller.Call(ctx, nil, c.path, InterfaceName, "SetActiveDevice", device)
}

// Disconnect announces a device's removal.
func (c *Client) Disconnect(ctx context.Context, device string) error {
	return c.caller.Call(ctx, nil, c.path, InterfaceName, "Disconnect", device)
}

// StartSession begins an audio session.
func (c *Client) StartSession(ctx context.Context) error {
	return c.caller.Call(ctx, nil, c.path, InterfaceName, "StartSession")
}

// StopSession ends the audio session.
func (c *Client) StopSession(ctx context.Context) error {
	return c.caller.Call(ctx, nil, c.path, InterfaceName, "StopSession")
}
