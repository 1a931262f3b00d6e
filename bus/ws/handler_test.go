package ws_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/objbus/objbus/bus"
	"github.com/objbus/objbus/bus/ws"
	"github.com/objbus/objbus/bus/ws/gobwas"
	"github.com/objbus/objbus/export"
	"github.com/objbus/objbus/schema"
	"github.com/objbus/objbus/wire"
)

type PingService struct{}

func (s *PingService) Ping(msg string) string {
	return "pong: " + msg
}

func TestHandler(t *testing.T) {
	iface, err := schema.InterfaceOf("org.example.Ping", &PingService{}, schema.Call)
	if err != nil {
		t.Fatal(err)
	}
	obj, err := export.Bind("/ping", iface, &PingService{})
	if err != nil {
		t.Fatal(err)
	}
	exporter := &export.Exporter{}
	if _, err := exporter.Publish(obj); err != nil {
		t.Fatal(err)
	}

	connected := make(chan string, 1)
	handler := ws.Handler(&gobwas.Upgrader{}, exporter, wire.JSON(), func(c *bus.Conn) {
		connected <- c.ConnID()
	})
	srv := httptest.NewServer(handler)
	defer srv.Close()

	url := "ws://" + strings.TrimPrefix(srv.URL, "http://")
	codec, err := gobwas.WebSocketDial(context.Background(), url)
	if err != nil {
		t.Fatal(err)
	}
	conn := &bus.Conn{Codec: codec}
	go conn.Serve()
	defer conn.Close()

	var got string
	if err := conn.Call(context.Background(), &got, "/ping", "org.example.Ping", "Ping", "hello"); err != nil {
		t.Fatal(err)
	}
	if want := "pong: hello"; got != want {
		t.Errorf("got %q; want %q", got, want)
	}

	select {
	case <-connected:
	case <-time.After(time.Second):
		t.Error("onConn hook never fired")
	}
}
