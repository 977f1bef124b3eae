package transport

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/ehrlich-b/histd/internal/entry"
	"github.com/ehrlich-b/histd/internal/indexstore"
	"github.com/ehrlich-b/histd/internal/pendingdb"
	"github.com/ehrlich-b/histd/internal/wire"
)

var (
	errSessionCommandAlreadyStarted = errors.New("session command already started")
	errSessionCommandNotStarted     = errors.New("session command not started")
	errDisabledSession              = errors.New("session is disabled")
)

// Processor is the sole consumer of the datagram channel. It decodes
// each message and dispatches it against the pending-session state
// machine, one message at a time.
type Processor struct {
	in     <-chan []byte
	pdb    *pendingdb.DB
	store  *indexstore.Store
	client *Client
	stop   *atomic.Bool
	log    *slog.Logger
}

// NewProcessor builds a Processor consuming in. client is used to
// self-send a Stop datagram once a shutdown has been dispatched, so
// the Receiver's blocking read unblocks.
func NewProcessor(in <-chan []byte, pdb *pendingdb.DB, store *indexstore.Store, client *Client, stop *atomic.Bool, log *slog.Logger) *Processor {
	return &Processor{in: in, pdb: pdb, store: store, client: client, stop: stop, log: log}
}

// Run consumes messages until a Stop is dispatched, then drains any
// remaining buffered messages before closing done.
func (p *Processor) Run(done chan<- struct{}) {
	defer close(done)

	for data := range p.in {
		if p.handle(data) {
			break
		}
	}
	p.drain()
}

func (p *Processor) drain() {
	for {
		select {
		case data := <-p.in:
			p.handle(data)
		default:
			return
		}
	}
}

// handle decodes and dispatches one datagram. It returns true if the
// message was a Stop, signaling the caller to stop consuming new
// messages and move into drain mode.
func (p *Processor) handle(data []byte) bool {
	msg, err := wire.Decode(data)
	if err != nil {
		p.log.Error("decode message", "err", err)
		return false
	}

	switch msg.Kind {
	case wire.KindStop:
		p.stop.Store(true)
		if err := p.client.Send(wire.Stop()); err != nil {
			p.log.Warn("self-stop send failed", "err", err)
		}
		return true

	case wire.KindDisable:
		if err := p.pdb.DisableSession(msg.SessionID); err != nil {
			p.log.Error("disable session", "session", msg.SessionID, "err", err)
		}

	case wire.KindEnable:
		if err := p.pdb.EnableSession(msg.SessionID); err != nil {
			p.log.Error("enable session", "session", msg.SessionID, "err", err)
		}

	case wire.KindCommandStart:
		if err := p.commandStart(msg.CommandStart); err != nil {
			p.log.Error("command start", "session", msg.CommandStart.SessionID, "err", err)
		}

	case wire.KindCommandFinished:
		if err := p.commandFinished(msg.CommandFinished); err != nil {
			p.log.Error("command finished", "session", msg.CommandFinished.SessionID, "err", err)
		}

	default:
		p.log.Error("unknown message kind", "kind", msg.Kind)
	}

	return false
}

func (p *Processor) commandStart(cs wire.CommandStart) error {
	already, err := p.pdb.ContainsEntry(cs.SessionID)
	if err != nil {
		return err
	}
	if already {
		return errSessionCommandAlreadyStarted
	}

	disabled, err := p.pdb.IsSessionDisabled(cs.SessionID)
	if err != nil {
		return err
	}
	if disabled {
		return errDisabledSession
	}

	return p.pdb.AddEntry(cs)
}

func (p *Processor) commandFinished(cf wire.CommandFinished) error {
	disabled, err := p.pdb.IsSessionDisabled(cf.SessionID)
	if err != nil {
		return err
	}
	if disabled {
		return errDisabledSession
	}

	start, err := p.pdb.RemoveEntry(cf.SessionID)
	if err != nil {
		if errors.Is(err, pendingdb.ErrEntryNotExist) {
			return errSessionCommandNotStarted
		}
		return err
	}

	e := entry.FromMessages(start, cf)
	return p.store.Add(e)
}
