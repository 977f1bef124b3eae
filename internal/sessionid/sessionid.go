// Package sessionid wraps the opaque 128-bit identifier a shell session
// carries for its whole lifetime.
package sessionid

import (
	"fmt"

	"github.com/google/uuid"
)

// ID is a session identifier, generated once per shell session by the CLI.
type ID uuid.UUID

// New mints a fresh random session id.
func New() ID {
	return ID(uuid.New())
}

// Parse decodes the canonical text form of a session id.
func Parse(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("parse session id %q: %w", s, err)
	}
	return ID(u), nil
}

// String returns the canonical text form, e.g.
// "11111111-1111-1111-1111-111111111111".
func (id ID) String() string {
	return uuid.UUID(id).String()
}

// Bytes returns the 16 raw bytes backing the id, in the order the wire
// codec writes them.
func (id ID) Bytes() [16]byte {
	return [16]byte(id)
}

// FromBytes reconstructs an id from its 16 raw bytes.
func FromBytes(b [16]byte) ID {
	return ID(b)
}

// IsZero reports whether id is the zero-value session id.
func (id ID) IsZero() bool {
	return id == ID{}
}
