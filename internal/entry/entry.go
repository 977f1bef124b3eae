// Package entry defines the durable, immutable record an Index Store
// line represents, and the rules for building one from a matched
// command-start/command-finished pair.
package entry

import (
	"strings"
	"time"

	"github.com/ehrlich-b/histd/internal/sessionid"
	"github.com/ehrlich-b/histd/internal/wire"
)

// Header is the CSV header row, in the field order every Entry is
// serialized with.
const Header = "time_finished,time_start,hostname,command,pwd,result,session_id,user"

// Fields returns the number of columns an Entry occupies.
const Fields = 8

// Entry is one completed shell command. Once constructed it is never
// mutated; the Index Store only ever appends or reads entries.
type Entry struct {
	TimeFinished time.Time
	TimeStart    time.Time
	Hostname     string
	Command      string
	Pwd          string
	Result       uint16
	SessionID    sessionid.ID
	User         string
}

// FromMessages builds the Entry for a matched CommandStart/CommandFinished
// pair. The command is trimmed of trailing whitespace and a trailing
// line ending; user and hostname are trimmed of surrounding whitespace.
// The caller is responsible for checking the resulting Command is
// non-empty before persisting it.
func FromMessages(start wire.CommandStart, finish wire.CommandFinished) Entry {
	return Entry{
		TimeFinished: finish.Timestamp,
		TimeStart:    start.Timestamp,
		Hostname:     strings.TrimSpace(start.Hostname),
		Command:      trimCommand(start.Command),
		Pwd:          start.Cwd,
		Result:       finish.ResultCode,
		SessionID:    start.SessionID,
		User:         strings.TrimSpace(start.User),
	}
}

// trimCommand strips trailing whitespace, then a single trailing "\r\n"
// or "\n" sequence if one remains.
func trimCommand(s string) string {
	s = strings.TrimRight(s, " \t\r\n\v\f")
	return s
}

// Less reports whether e sorts before other under the Entry total
// order: (time_finished, time_start, hostname, command, pwd, result,
// session_id, user).
func (e Entry) Less(other Entry) bool {
	if !e.TimeFinished.Equal(other.TimeFinished) {
		return e.TimeFinished.Before(other.TimeFinished)
	}
	if !e.TimeStart.Equal(other.TimeStart) {
		return e.TimeStart.Before(other.TimeStart)
	}
	if e.Hostname != other.Hostname {
		return e.Hostname < other.Hostname
	}
	if e.Command != other.Command {
		return e.Command < other.Command
	}
	if e.Pwd != other.Pwd {
		return e.Pwd < other.Pwd
	}
	if e.Result != other.Result {
		return e.Result < other.Result
	}
	eSID, oSID := e.SessionID.String(), other.SessionID.String()
	if eSID != oSID {
		return eSID < oSID
	}
	return e.User < other.User
}
