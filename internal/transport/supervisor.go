package transport

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/ehrlich-b/histd/internal/indexstore"
	"github.com/ehrlich-b/histd/internal/pendingdb"
	"github.com/ehrlich-b/histd/internal/wire"
)

// channelCapacity bounds the Receiver-to-Processor queue. The Receiver
// blocks on send once it fills, which is the desired backpressure: a
// datagram already off the wire is never silently dropped.
const channelCapacity = 10_000

// Supervisor owns the daemon's socket, the Receiver and Processor
// goroutines, and the signal handling that triggers graceful shutdown.
type Supervisor struct {
	SocketPath string
	PendingDB  *pendingdb.DB
	Store      *indexstore.Store
	Log        *slog.Logger
}

// Run binds the socket, launches the Receiver and Processor, and
// blocks until both have exited (triggered by SIGINT/SIGTERM/SIGHUP or
// an explicit Stop datagram). The socket file is removed on the way
// out.
func (s *Supervisor) Run() error {
	if err := os.Remove(s.SocketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale socket %s: %w", s.SocketPath, err)
	}

	addr := &net.UnixAddr{Name: s.SocketPath, Net: "unixgram"}
	conn, err := net.ListenUnixgram("unixgram", addr)
	if err != nil {
		return fmt.Errorf("bind socket %s: %w", s.SocketPath, err)
	}

	stop := &atomic.Bool{}
	client := NewClient(s.SocketPath)
	ch := make(chan []byte, channelCapacity)

	receiver := NewReceiver(conn, ch, stop, s.Log)
	processor := NewProcessor(ch, s.PendingDB, s.Store, client, stop, s.Log)

	receiverDone := make(chan struct{})
	processorDone := make(chan struct{})
	go receiver.Run(receiverDone)
	go processor.Run(processorDone)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		sig := <-sigCh
		s.Log.Info("received signal, shutting down", "signal", sig)
		if err := client.Send(wire.Stop()); err != nil {
			s.Log.Warn("signal-triggered stop send failed", "err", err)
		}
	}()

	<-receiverDone
	<-processorDone
	signal.Stop(sigCh)

	if err := conn.Close(); err != nil {
		s.Log.Warn("close socket", "err", err)
	}
	if err := os.Remove(s.SocketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove socket %s: %w", s.SocketPath, err)
	}
	return nil
}
