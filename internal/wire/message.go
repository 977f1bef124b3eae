// Package wire implements the bit-exact binary framing the daemon and its
// CLI front-ends exchange over a single Unix datagram: a variant tag
// followed by that variant's fields, in declared order, with no external
// framing beyond the datagram boundary itself.
package wire

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ehrlich-b/histd/internal/sessionid"
)

// MaxMessageSize is the largest payload that fits in a single IPv4
// datagram's practical payload bound. The Receiver uses this as its
// fixed read-buffer size; Encode refuses to produce anything larger and
// Decode refuses to trust anything larger.
const MaxMessageSize = 65527

// Kind tags which variant of Message is present.
type Kind byte

const (
	KindStop Kind = iota
	KindDisable
	KindEnable
	KindCommandStart
	KindCommandFinished
)

func (k Kind) String() string {
	switch k {
	case KindStop:
		return "Stop"
	case KindDisable:
		return "Disable"
	case KindEnable:
		return "Enable"
	case KindCommandStart:
		return "CommandStart"
	case KindCommandFinished:
		return "CommandFinished"
	default:
		return fmt.Sprintf("Kind(%d)", byte(k))
	}
}

// CommandStart is emitted by the shell hook when a command begins
// executing.
type CommandStart struct {
	SessionID sessionid.ID
	Timestamp time.Time
	Command   string
	Cwd       string
	User      string
	Hostname  string
}

// CommandFinished is emitted by the shell hook once a command's exit
// code is known.
type CommandFinished struct {
	SessionID  sessionid.ID
	Timestamp  time.Time
	ResultCode uint16
}

// Message is the daemon's wire vocabulary: exactly one variant is
// populated, selected by Kind.
type Message struct {
	Kind            Kind
	SessionID       sessionid.ID // Disable, Enable
	CommandStart    CommandStart
	CommandFinished CommandFinished
}

// Stop builds a shutdown-request message.
func Stop() Message { return Message{Kind: KindStop} }

// Disable builds a disable-session message.
func Disable(sid sessionid.ID) Message { return Message{Kind: KindDisable, SessionID: sid} }

// Enable builds an enable-session message.
func Enable(sid sessionid.ID) Message { return Message{Kind: KindEnable, SessionID: sid} }

// NewCommandStart builds a CommandStart message.
func NewCommandStart(cs CommandStart) Message {
	return Message{Kind: KindCommandStart, CommandStart: cs}
}

// NewCommandFinished builds a CommandFinished message.
func NewCommandFinished(cf CommandFinished) Message {
	return Message{Kind: KindCommandFinished, CommandFinished: cf}
}

// Encode serializes m into its wire form. It fails if the result would
// exceed MaxMessageSize.
func Encode(m Message) ([]byte, error) {
	buf := make([]byte, 0, 128)
	buf = append(buf, byte(m.Kind))

	switch m.Kind {
	case KindStop:
		// no payload

	case KindDisable, KindEnable:
		b := m.SessionID.Bytes()
		buf = append(buf, b[:]...)

	case KindCommandStart:
		cs := m.CommandStart
		b := cs.SessionID.Bytes()
		buf = append(buf, b[:]...)
		buf = appendTime(buf, cs.Timestamp)
		buf = appendString(buf, cs.Command)
		buf = appendString(buf, cs.Cwd)
		buf = appendString(buf, cs.User)
		buf = appendString(buf, cs.Hostname)

	case KindCommandFinished:
		cf := m.CommandFinished
		b := cf.SessionID.Bytes()
		buf = append(buf, b[:]...)
		buf = appendTime(buf, cf.Timestamp)
		var rc [2]byte
		binary.BigEndian.PutUint16(rc[:], cf.ResultCode)
		buf = append(buf, rc[:]...)

	default:
		return nil, fmt.Errorf("encode: unknown message kind %v", m.Kind)
	}

	if len(buf) > MaxMessageSize {
		return nil, fmt.Errorf("encode: message is %d bytes, exceeds max %d", len(buf), MaxMessageSize)
	}
	return buf, nil
}

// Decode parses the wire form produced by Encode. Oversize or malformed
// input is a recoverable error; callers log and drop the message.
func Decode(data []byte) (Message, error) {
	if len(data) > MaxMessageSize {
		return Message{}, fmt.Errorf("decode: payload is %d bytes, exceeds max %d", len(data), MaxMessageSize)
	}
	if len(data) < 1 {
		return Message{}, fmt.Errorf("decode: empty payload")
	}

	r := &reader{buf: data[1:]}
	kind := Kind(data[0])
	m := Message{Kind: kind}

	switch kind {
	case KindStop:
		// no payload

	case KindDisable, KindEnable:
		sid, err := r.sessionID()
		if err != nil {
			return Message{}, fmt.Errorf("decode %s: %w", kind, err)
		}
		m.SessionID = sid

	case KindCommandStart:
		var cs CommandStart
		var err error
		if cs.SessionID, err = r.sessionID(); err != nil {
			return Message{}, fmt.Errorf("decode CommandStart: %w", err)
		}
		if cs.Timestamp, err = r.time(); err != nil {
			return Message{}, fmt.Errorf("decode CommandStart: %w", err)
		}
		if cs.Command, err = r.string(); err != nil {
			return Message{}, fmt.Errorf("decode CommandStart: %w", err)
		}
		if cs.Cwd, err = r.string(); err != nil {
			return Message{}, fmt.Errorf("decode CommandStart: %w", err)
		}
		if cs.User, err = r.string(); err != nil {
			return Message{}, fmt.Errorf("decode CommandStart: %w", err)
		}
		if cs.Hostname, err = r.string(); err != nil {
			return Message{}, fmt.Errorf("decode CommandStart: %w", err)
		}
		m.CommandStart = cs

	case KindCommandFinished:
		var cf CommandFinished
		var err error
		if cf.SessionID, err = r.sessionID(); err != nil {
			return Message{}, fmt.Errorf("decode CommandFinished: %w", err)
		}
		if cf.Timestamp, err = r.time(); err != nil {
			return Message{}, fmt.Errorf("decode CommandFinished: %w", err)
		}
		rc, err := r.uint16()
		if err != nil {
			return Message{}, fmt.Errorf("decode CommandFinished: %w", err)
		}
		cf.ResultCode = rc
		m.CommandFinished = cf

	default:
		return Message{}, fmt.Errorf("decode: unknown message kind %d", data[0])
	}

	if !r.exhausted() {
		return Message{}, fmt.Errorf("decode %s: %d trailing bytes", kind, len(r.buf))
	}

	return m, nil
}

func appendString(buf []byte, s string) []byte {
	var lenBytes [4]byte
	binary.BigEndian.PutUint32(lenBytes[:], uint32(len(s)))
	buf = append(buf, lenBytes[:]...)
	return append(buf, s...)
}

func appendTime(buf []byte, t time.Time) []byte {
	var nanos [8]byte
	binary.BigEndian.PutUint64(nanos[:], uint64(t.UTC().UnixNano()))
	return append(buf, nanos[:]...)
}

type reader struct {
	buf []byte
}

func (r *reader) exhausted() bool {
	return len(r.buf) == 0
}

func (r *reader) take(n int) ([]byte, error) {
	if len(r.buf) < n {
		return nil, fmt.Errorf("unexpected end of message, need %d bytes, have %d", n, len(r.buf))
	}
	out := r.buf[:n]
	r.buf = r.buf[n:]
	return out, nil
}

func (r *reader) sessionID() (sessionid.ID, error) {
	b, err := r.take(16)
	if err != nil {
		return sessionid.ID{}, err
	}
	var arr [16]byte
	copy(arr[:], b)
	return sessionid.FromBytes(arr), nil
}

func (r *reader) uint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) time() (time.Time, error) {
	b, err := r.take(8)
	if err != nil {
		return time.Time{}, err
	}
	nanos := int64(binary.BigEndian.Uint64(b))
	return time.Unix(0, nanos).UTC(), nil
}

func (r *reader) string() (string, error) {
	n, err := r.uint32()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", fmt.Errorf("string body: %w", err)
	}
	return string(b), nil
}
