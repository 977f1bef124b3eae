package transport

import (
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/ehrlich-b/histd/internal/wire"
)

// Receiver owns the daemon's bound socket. It blocks on one read at a
// time, copies the valid prefix of each datagram into an owned buffer,
// and pushes it onto a bounded channel for the Processor to consume.
type Receiver struct {
	conn *net.UnixConn
	out  chan<- []byte
	stop *atomic.Bool
	log  *slog.Logger
}

// NewReceiver builds a Receiver reading from conn and forwarding to
// out. stop is shared with the Processor; the Receiver checks it after
// every read to notice a graceful shutdown.
func NewReceiver(conn *net.UnixConn, out chan<- []byte, stop *atomic.Bool, log *slog.Logger) *Receiver {
	return &Receiver{conn: conn, out: out, stop: stop, log: log}
}

// Run reads until stop is observed true, then closes done.
func (r *Receiver) Run(done chan<- struct{}) {
	defer close(done)

	buf := make([]byte, wire.MaxMessageSize)
	for {
		n, err := r.conn.Read(buf)
		if err != nil {
			if r.stop.Load() {
				return
			}
			r.log.Warn("receive error", "err", err)
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		r.out <- data

		if r.stop.Load() {
			return
		}
	}
}
