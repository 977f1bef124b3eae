// Package transport implements the Unix datagram link between the
// daemon and its CLI front-ends: a one-shot Client stub for senders,
// and the Receiver/Processor/Supervisor trio that runs the daemon
// side.
package transport

import (
	"fmt"
	"net"

	"github.com/ehrlich-b/histd/internal/wire"
)

// Client sends one-shot datagrams to the daemon's socket. Each Send
// dials a fresh unbound socket, writes once, and closes; there is no
// retry and no response.
type Client struct {
	SocketPath string
}

// NewClient returns a Client targeting socketPath.
func NewClient(socketPath string) *Client {
	return &Client{SocketPath: socketPath}
}

// Send encodes and writes m to the daemon's socket.
func (c *Client) Send(m wire.Message) error {
	data, err := wire.Encode(m)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	addr := &net.UnixAddr{Name: c.SocketPath, Net: "unixgram"}
	conn, err := net.DialUnix("unixgram", nil, addr)
	if err != nil {
		return fmt.Errorf("dial socket %s: %w", c.SocketPath, err)
	}
	defer conn.Close()

	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("write to socket %s: %w", c.SocketPath, err)
	}
	return nil
}
