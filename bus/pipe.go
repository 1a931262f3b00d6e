package bus

import (
	"net"

	"github.com/objbus/objbus/export"
)

// ServePipe sets up two symmetric connections over a net.Pipe() and starts
// both serve loops in goroutines. Useful for testing. Objects still need to
// be published.
func ServePipe() (*Conn, *Conn) {
	c1, c2 := net.Pipe()
	server := &Conn{
		Codec:    IOCodec(c1),
		Exporter: &export.Exporter{},
	}
	client := &Conn{
		Codec:    IOCodec(c2),
		Exporter: &export.Exporter{},
	}
	go server.Serve()
	go client.Serve()
	return server, client
}
