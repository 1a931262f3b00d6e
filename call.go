package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/objbus/objbus/bus"
	ws "github.com/objbus/objbus/bus/ws/gobwas"
	"github.com/objbus/objbus/media"
	"github.com/objbus/objbus/wire"
)

// dialBus connects to a websocket bus peer and starts serving the
// connection in the background.
func dialBus(url string, payload wire.Codec) (*bus.Conn, chan error, error) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	codec, err := ws.WebSocketDial(ctx, url)
	cancel()
	if err != nil {
		return nil, nil, ErrExplain{err, "Failed to connect to the bus peer."}
	}
	conn := &bus.Conn{
		Codec:   codec,
		Payload: payload,
	}
	errChan := make(chan error, 1)
	go func() {
		errChan <- conn.Serve()
	}()
	return conn, errChan, nil
}

// parseParams decodes each argument as a JSON value. Arguments that are not
// valid JSON are taken as plain strings, so bare device addresses work
// without shell-escaped quotes.
func parseParams(raw []string) []interface{} {
	params := make([]interface{}, 0, len(raw))
	for _, arg := range raw {
		var v interface{}
		if err := json.Unmarshal([]byte(arg), &v); err != nil {
			v = arg
		}
		params = append(params, v)
	}
	return params
}

func runCall(options Options) error {
	payload, err := payloadCodec(options.Call.Payload)
	if err != nil {
		return err
	}
	conn, _, err := dialBus(options.Call.Args.URL, payload)
	if err != nil {
		return err
	}
	defer conn.Close()

	params := parseParams(options.Call.Args.Params)
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	if options.Call.Notify {
		return conn.Notify(ctx, options.Call.Args.Path, options.Call.Args.Iface, options.Call.Args.Method, params...)
	}

	var result interface{}
	if err := conn.Call(ctx, &result, options.Call.Args.Path, options.Call.Args.Iface, options.Call.Args.Method, params...); err != nil {
		return err
	}
	out, err := json.Marshal(result)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// printingCallback prints media device events as they arrive.
type printingCallback struct{}

func (printingCallback) OnBluetoothAudioDeviceAdded(addr string) {
	fmt.Printf("device added: %s\n", addr)
}

func (printingCallback) OnBluetoothAudioDeviceRemoved(addr string) {
	fmt.Printf("device removed: %s\n", addr)
}

func runWatch(options Options) error {
	payload, err := payloadCodec(options.Watch.Payload)
	if err != nil {
		return err
	}
	conn, errChan, err := dialBus(options.Watch.Args.URL, payload)
	if err != nil {
		return err
	}
	defer conn.Close()

	callbackPath := fmt.Sprintf("/callbacks/%s", conn.ConnID())
	if _, err := media.ExportCallback(conn, callbackPath, printingCallback{}); err != nil {
		return err
	}

	remote := media.NewClient(conn, options.Watch.Path)
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	ok, err := remote.RegisterCallback(ctx, callbackPath)
	cancel()
	if err != nil {
		return err
	}
	if !ok {
		return ErrExplain{fmt.Errorf("callback registration refused"), "The service rejected the callback registration. Check the --path value."}
	}
	logger.Infof("Watching media events from %s", options.Watch.Args.URL)

	// Register conn.Close() on ctrl+c signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		for range sigCh {
			logger.Info("Shutting down...")
			conn.Close()
		}
	}()

	return <-errChan
}
