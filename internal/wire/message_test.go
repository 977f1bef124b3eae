package wire

import (
	"strings"
	"testing"
	"time"

	"github.com/ehrlich-b/histd/internal/sessionid"
)

func roundTrip(t *testing.T, m Message) Message {
	t.Helper()
	enc, err := Encode(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	dec, err := Decode(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return dec
}

func TestRoundTripStop(t *testing.T) {
	dec := roundTrip(t, Stop())
	if dec.Kind != KindStop {
		t.Errorf("want Stop, got %v", dec.Kind)
	}
}

func TestRoundTripDisableEnable(t *testing.T) {
	sid := sessionid.New()

	dec := roundTrip(t, Disable(sid))
	if dec.Kind != KindDisable || dec.SessionID != sid {
		t.Errorf("disable round trip mismatch: %+v", dec)
	}

	dec = roundTrip(t, Enable(sid))
	if dec.Kind != KindEnable || dec.SessionID != sid {
		t.Errorf("enable round trip mismatch: %+v", dec)
	}
}

func TestRoundTripCommandStart(t *testing.T) {
	sid := sessionid.New()
	ts := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	cs := CommandStart{
		SessionID: sid,
		Timestamp: ts,
		Command:   "ls -la\nmulti\nline",
		Cwd:       "/tmp",
		User:      "u",
		Hostname:  "h",
	}
	dec := roundTrip(t, NewCommandStart(cs))
	if dec.Kind != KindCommandStart {
		t.Fatalf("want CommandStart, got %v", dec.Kind)
	}
	got := dec.CommandStart
	if got.SessionID != sid || !got.Timestamp.Equal(ts) || got.Command != cs.Command ||
		got.Cwd != cs.Cwd || got.User != cs.User || got.Hostname != cs.Hostname {
		t.Errorf("mismatch: want %+v, got %+v", cs, got)
	}
}

func TestRoundTripCommandFinished(t *testing.T) {
	sid := sessionid.New()
	ts := time.Date(2020, 1, 1, 0, 0, 1, 0, time.UTC)
	cf := CommandFinished{SessionID: sid, Timestamp: ts, ResultCode: 0}
	dec := roundTrip(t, NewCommandFinished(cf))
	if dec.Kind != KindCommandFinished {
		t.Fatalf("want CommandFinished, got %v", dec.Kind)
	}
	if dec.CommandFinished.SessionID != sid || !dec.CommandFinished.Timestamp.Equal(ts) || dec.CommandFinished.ResultCode != 0 {
		t.Errorf("mismatch: %+v", dec.CommandFinished)
	}
}

func TestDecodeEmptyPayload(t *testing.T) {
	if _, err := Decode(nil); err == nil {
		t.Fatal("expected error decoding empty payload")
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	if _, err := Decode([]byte{0xFF}); err == nil {
		t.Fatal("expected error decoding unknown kind")
	}
}

func TestDecodeTruncated(t *testing.T) {
	sid := sessionid.New()
	enc, err := Encode(Disable(sid))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := Decode(enc[:len(enc)-1]); err == nil {
		t.Fatal("expected error decoding truncated message")
	}
}

func TestDecodeTrailingGarbage(t *testing.T) {
	sid := sessionid.New()
	enc, err := Encode(Disable(sid))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	enc = append(enc, 0x00)
	if _, err := Decode(enc); err == nil {
		t.Fatal("expected error decoding message with trailing bytes")
	}
}

// A message exactly MaxMessageSize bytes is accepted; a single byte over
// is rejected at encode time (and, if somehow produced, at decode time).
func TestMaxMessageSizeBoundary(t *testing.T) {
	sid := sessionid.New()
	// CommandStart overhead: 1 (tag) + 16 (session) + 8 (time) + 4*4 (string lengths) = 41 bytes
	// before the four string bodies. Pad Command so the total lands exactly
	// on the limit, then one byte over.
	const overhead = 1 + 16 + 8 + 4*4
	pad := MaxMessageSize - overhead
	cs := CommandStart{
		SessionID: sid,
		Timestamp: time.Unix(0, 0),
		Command:   strings.Repeat("x", pad),
		Cwd:       "",
		User:      "",
		Hostname:  "",
	}
	enc, err := Encode(NewCommandStart(cs))
	if err != nil {
		t.Fatalf("encode at boundary: %v", err)
	}
	if len(enc) != MaxMessageSize {
		t.Fatalf("want exactly %d bytes, got %d", MaxMessageSize, len(enc))
	}
	if _, err := Decode(enc); err != nil {
		t.Fatalf("decode at boundary: %v", err)
	}

	cs.Command += "x"
	if _, err := Encode(NewCommandStart(cs)); err == nil {
		t.Fatal("expected encode to reject a message one byte over the limit")
	}
}
