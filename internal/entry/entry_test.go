package entry

import (
	"testing"
	"time"

	"github.com/ehrlich-b/histd/internal/sessionid"
	"github.com/ehrlich-b/histd/internal/wire"
)

func TestFromMessagesFields(t *testing.T) {
	sid := sessionid.New()
	start := wire.CommandStart{
		SessionID: sid,
		Timestamp: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Command:   "ls -la",
		Cwd:       "/home/alice",
		User:      "  alice  ",
		Hostname:  "  devbox  ",
	}
	finish := wire.CommandFinished{
		SessionID:  sid,
		Timestamp:  time.Date(2020, 1, 1, 0, 0, 1, 0, time.UTC),
		ResultCode: 0,
	}

	e := FromMessages(start, finish)
	if e.Command != "ls -la" {
		t.Errorf("command = %q", e.Command)
	}
	if e.User != "alice" {
		t.Errorf("user = %q", e.User)
	}
	if e.Hostname != "devbox" {
		t.Errorf("hostname = %q", e.Hostname)
	}
	if e.Pwd != "/home/alice" {
		t.Errorf("pwd = %q", e.Pwd)
	}
	if e.SessionID != sid {
		t.Errorf("session id mismatch")
	}
	if !e.TimeStart.Equal(start.Timestamp) || !e.TimeFinished.Equal(finish.Timestamp) {
		t.Errorf("timestamps not carried through verbatim")
	}
}

func TestTrailingNewlineTrimmed(t *testing.T) {
	start := wire.CommandStart{Command: "ls\n"}
	e := FromMessages(start, wire.CommandFinished{})
	if e.Command != "ls" {
		t.Errorf("want %q, got %q", "ls", e.Command)
	}
}

func TestTrailingCRLFTrimmed(t *testing.T) {
	start := wire.CommandStart{Command: "ls\r\n"}
	e := FromMessages(start, wire.CommandFinished{})
	if e.Command != "ls" {
		t.Errorf("want %q, got %q", "ls", e.Command)
	}
}

func TestTrailingWhitespaceTrimmed(t *testing.T) {
	start := wire.CommandStart{Command: "ls -la   "}
	e := FromMessages(start, wire.CommandFinished{})
	if e.Command != "ls -la" {
		t.Errorf("want %q, got %q", "ls -la", e.Command)
	}
}

func TestEmptyCommandAfterTrim(t *testing.T) {
	start := wire.CommandStart{Command: "   \n"}
	e := FromMessages(start, wire.CommandFinished{})
	if e.Command != "" {
		t.Errorf("want empty command, got %q", e.Command)
	}
}

func TestLessOrdersByTimeFinishedFirst(t *testing.T) {
	earlier := Entry{TimeFinished: time.Unix(0, 0)}
	later := Entry{TimeFinished: time.Unix(1, 0)}
	if !earlier.Less(later) || later.Less(earlier) {
		t.Error("Less does not order by time_finished first")
	}
}

func TestLessFallsThroughTuple(t *testing.T) {
	ts := time.Unix(0, 0)
	a := Entry{TimeFinished: ts, TimeStart: ts, Hostname: "a"}
	b := Entry{TimeFinished: ts, TimeStart: ts, Hostname: "b"}
	if !a.Less(b) || b.Less(a) {
		t.Error("Less does not fall through to hostname when times tie")
	}
}
