package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/OpenPeeDeeP/xdg"
	"github.com/dgraph-io/badger"
	"github.com/objbus/objbus/bus"
	"github.com/objbus/objbus/bus/ws"
	"github.com/objbus/objbus/bus/ws/gorilla"
	"github.com/objbus/objbus/export"
	"github.com/objbus/objbus/internal/pretty"
	"github.com/objbus/objbus/media"
	"github.com/objbus/objbus/media/store"
	badgerStore "github.com/objbus/objbus/media/store/badger"
	"github.com/objbus/objbus/watch"
	"golang.org/x/sync/errgroup"
)

// mediaPath is where the media service is published on the bus.
const mediaPath = "/org/chromium/bluetooth/media"

// findDataDir returns a valid data dir, will create it if it doesn't
// exist.
func findDataDir(overridePath string) (string, error) {
	path := overridePath
	if path == "" {
		path = xdg.New("objbus", "media").DataHome()
	}
	err := os.MkdirAll(path, 0700)
	return path, err
}

func runServe(config serveConfig) error {
	var storeDriver store.Store
	switch config.Store {
	case "memory":
		storeDriver = store.MemoryStore()
		defer storeDriver.Close()
	case "persist":
		fallthrough
	case "badger":
		dir, err := findDataDir(config.DataDir)
		if err != nil {
			return err
		}
		storeDriver, err = badgerStore.Open(badger.DefaultOptions(dir))
		if err != nil {
			return err
		}
		defer storeDriver.Close()
		logger.Infof("Persistent store using badger backend: %s", dir)
	default:
		return errors.New("storage driver not implemented")
	}

	payload, err := payloadCodec(config.Payload)
	if err != nil {
		return err
	}

	watcher := &watch.DisconnectWatcher{}
	service := media.New(storeDriver, watcher)
	obj, err := service.Object(mediaPath)
	if err != nil {
		return err
	}

	exporter := &export.Exporter{}
	if _, err := exporter.Publish(obj); err != nil {
		return err
	}

	wsHandler := ws.Handler(&gorilla.Upgrader{}, exporter, payload, func(conn *bus.Conn) {
		watcher.WatchConn(conn)
		logger.Debugf("conn %s connected", pretty.Abbrev(conn.ConnID(), 8))
	})
	handler := &server{
		handler: wsHandler,
		header:  http.Header{},
	}
	if config.AllowOrigin != "" {
		handler.header.Set("Access-Control-Allow-Origin", config.AllowOrigin)
	}

	srv := &http.Server{Addr: config.Bind, Handler: handler}
	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		logger.Infof("Starting media service (version %s), listening on: ws://%s", Version, config.Bind)
		return srv.ListenAndServe()
	})
	g.Go(func() error {
		// Close the listener on ctrl+c signal
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt)
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			logger.Info("Shutting down...")
			return srv.Close()
		case <-ctx.Done():
			return nil
		}
	})
	err = g.Wait()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
