package transport

import (
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ehrlich-b/histd/internal/filter"
	"github.com/ehrlich-b/histd/internal/indexstore"
	"github.com/ehrlich-b/histd/internal/pendingdb"
	"github.com/ehrlich-b/histd/internal/sessionid"
	"github.com/ehrlich-b/histd/internal/wire"
)

func newTestProcessor(t *testing.T) (*Processor, *pendingdb.DB, *indexstore.Store) {
	t.Helper()

	pdb, err := pendingdb.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open pendingdb: %v", err)
	}
	t.Cleanup(func() { pdb.Close() })

	store := indexstore.New(t.TempDir())
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	stop := &atomic.Bool{}
	// The self-stop client targets a socket path that is never bound in
	// these tests; when a test dispatches Stop, the Send fails and the
	// Processor only logs it.
	client := NewClient(t.TempDir() + "/unused.sock")

	ch := make(chan []byte, 10)
	p := NewProcessor(ch, pdb, store, client, stop, log)
	return p, pdb, store
}

func encode(t *testing.T, m wire.Message) []byte {
	t.Helper()
	data, err := wire.Encode(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}

func TestCommandStartThenFinishProducesOneEntry(t *testing.T) {
	p, _, store := newTestProcessor(t)
	sid := sessionid.New()

	start := wire.CommandStart{
		SessionID: sid,
		Timestamp: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Command:   "ls -la",
		Cwd:       "/home/alice",
		User:      "alice",
		Hostname:  "devbox",
	}
	finish := wire.CommandFinished{
		SessionID:  sid,
		Timestamp:  time.Date(2020, 1, 1, 0, 0, 1, 0, time.UTC),
		ResultCode: 0,
	}

	if stop := p.handle(encode(t, wire.NewCommandStart(start))); stop {
		t.Fatal("command start should not request stop")
	}
	if stop := p.handle(encode(t, wire.NewCommandFinished(finish))); stop {
		t.Fatal("command finished should not request stop")
	}

	entries, err := store.GetEntries(filter.Filter{})
	if err != nil {
		t.Fatalf("get entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("want exactly one entry, got %d", len(entries))
	}
	if entries[0].Command != "ls -la" || entries[0].SessionID != sid {
		t.Errorf("unexpected entry: %+v", entries[0])
	}
}

func TestEmptyCommandProducesNoEntry(t *testing.T) {
	p, _, store := newTestProcessor(t)
	sid := sessionid.New()

	start := wire.CommandStart{SessionID: sid, Timestamp: time.Unix(0, 0), Command: "   ", Hostname: "devbox"}
	finish := wire.CommandFinished{SessionID: sid, Timestamp: time.Unix(1, 0)}

	p.handle(encode(t, wire.NewCommandStart(start)))
	p.handle(encode(t, wire.NewCommandFinished(finish)))

	entries, err := store.GetEntries(filter.Filter{})
	if err != nil {
		t.Fatalf("get entries: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("want no entries for a blank command, got %+v", entries)
	}
}

func TestUnmatchedFinishProducesNoEntry(t *testing.T) {
	p, _, store := newTestProcessor(t)
	sid := sessionid.New()

	finish := wire.CommandFinished{SessionID: sid, Timestamp: time.Unix(0, 0)}
	p.handle(encode(t, wire.NewCommandFinished(finish)))

	entries, err := store.GetEntries(filter.Filter{})
	if err != nil {
		t.Fatalf("get entries: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("want no entries for an unmatched finish, got %+v", entries)
	}
}

func TestDisableThenStartProducesNoEntry(t *testing.T) {
	p, _, store := newTestProcessor(t)
	sid := sessionid.New()

	p.handle(encode(t, wire.Disable(sid)))

	start := wire.CommandStart{SessionID: sid, Timestamp: time.Unix(0, 0), Command: "ls", Hostname: "devbox"}
	p.handle(encode(t, wire.NewCommandStart(start)))

	finish := wire.CommandFinished{SessionID: sid, Timestamp: time.Unix(1, 0)}
	p.handle(encode(t, wire.NewCommandFinished(finish)))

	entries, err := store.GetEntries(filter.Filter{})
	if err != nil {
		t.Fatalf("get entries: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("disabled session should never produce an entry, got %+v", entries)
	}
}

func TestEnableAllowsSubsequentCommands(t *testing.T) {
	p, _, store := newTestProcessor(t)
	sid := sessionid.New()

	p.handle(encode(t, wire.Disable(sid)))
	p.handle(encode(t, wire.Enable(sid)))

	start := wire.CommandStart{SessionID: sid, Timestamp: time.Unix(0, 0), Command: "ls", Hostname: "devbox"}
	finish := wire.CommandFinished{SessionID: sid, Timestamp: time.Unix(1, 0)}
	p.handle(encode(t, wire.NewCommandStart(start)))
	p.handle(encode(t, wire.NewCommandFinished(finish)))

	entries, err := store.GetEntries(filter.Filter{})
	if err != nil {
		t.Fatalf("get entries: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("want one entry after re-enabling the session, got %+v", entries)
	}
}

func TestHostnameWithDotsRoutesToCorrectFile(t *testing.T) {
	p, _, store := newTestProcessor(t)
	sid := sessionid.New()

	start := wire.CommandStart{SessionID: sid, Timestamp: time.Unix(0, 0), Command: "ls", Hostname: "host.example.com"}
	finish := wire.CommandFinished{SessionID: sid, Timestamp: time.Unix(1, 0)}
	p.handle(encode(t, wire.NewCommandStart(start)))
	p.handle(encode(t, wire.NewCommandFinished(finish)))

	entries, err := store.GetEntries(filter.Filter{Hostname: "host.example.com"})
	if err != nil {
		t.Fatalf("get entries: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("want one entry for host.example.com, got %+v", entries)
	}
}

func TestStopSetsFlagAndRequestsDrain(t *testing.T) {
	p, _, _ := newTestProcessor(t)

	if stop := p.handle(encode(t, wire.Stop())); !stop {
		t.Fatal("Stop message must signal the caller to stop consuming")
	}
	if !p.stop.Load() {
		t.Error("Stop message must set the shared stop flag")
	}
}
