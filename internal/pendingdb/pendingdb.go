// Package pendingdb is the durable store backing the Processor's
// per-session state machine: which sessions have a command pending and
// which sessions are disabled. Both survive daemon restarts.
package pendingdb

import (
	"errors"
	"fmt"

	"github.com/nutsdb/nutsdb"
	"github.com/nutsdb/nutsdb/ds"

	"github.com/ehrlich-b/histd/internal/sessionid"
	"github.com/ehrlich-b/histd/internal/wire"
)

const (
	bucketEntries          = "entries"
	bucketDisabledSessions = "disabled_sessions"
)

// ErrEntryNotExist is returned by RemoveEntry when the session has no
// pending CommandStart.
var ErrEntryNotExist = errors.New("pendingdb: no pending entry for session")

// DB wraps an embedded nutsdb instance holding the two logical buckets
// described above. Keys are the session id's 16 raw bytes; entries
// values are the pending CommandStart, wire-encoded.
type DB struct {
	db *nutsdb.DB
}

// Open opens (creating if necessary) the embedded KV store rooted at
// dir, and ensures both buckets exist.
func Open(dir string) (*DB, error) {
	ndb, err := nutsdb.Open(
		nutsdb.DefaultOptions,
		nutsdb.WithDir(dir),
	)
	if err != nil {
		return nil, fmt.Errorf("open pending db at %s: %w", dir, err)
	}

	d := &DB{db: ndb}
	if err := d.ensureBuckets(); err != nil {
		ndb.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) ensureBuckets() error {
	return d.db.Update(func(tx *nutsdb.Tx) error {
		for _, bucket := range []string{bucketEntries, bucketDisabledSessions} {
			if err := tx.NewBucket(ds.DataStructureBTree, bucket); err != nil && !errors.Is(err, nutsdb.ErrBucketAlreadyExist) {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
}

// Close releases the underlying database handle.
func (d *DB) Close() error {
	return d.db.Close()
}

func sessionKey(sid sessionid.ID) []byte {
	b := sid.Bytes()
	return b[:]
}

// ContainsEntry reports whether sid has a pending CommandStart.
func (d *DB) ContainsEntry(sid sessionid.ID) (bool, error) {
	found := false
	err := d.db.View(func(tx *nutsdb.Tx) error {
		_, err := tx.Get(bucketEntries, sessionKey(sid))
		if err != nil {
			if errors.Is(err, nutsdb.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("check pending entry: %w", err)
	}
	return found, nil
}

// IsSessionDisabled reports whether sid is in the disabled set.
func (d *DB) IsSessionDisabled(sid sessionid.ID) (bool, error) {
	found := false
	err := d.db.View(func(tx *nutsdb.Tx) error {
		_, err := tx.Get(bucketDisabledSessions, sessionKey(sid))
		if err != nil {
			if errors.Is(err, nutsdb.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("check disabled session: %w", err)
	}
	return found, nil
}

// AddEntry records cs as the pending command for its session. Callers
// are responsible for first checking ContainsEntry / IsSessionDisabled
// per the Processor's state machine.
func (d *DB) AddEntry(cs wire.CommandStart) error {
	data, err := encodeCommandStart(cs)
	if err != nil {
		return fmt.Errorf("encode pending entry: %w", err)
	}
	err = d.db.Update(func(tx *nutsdb.Tx) error {
		return tx.Put(bucketEntries, sessionKey(cs.SessionID), data, 0)
	})
	if err != nil {
		return fmt.Errorf("store pending entry: %w", err)
	}
	return nil
}

// RemoveEntry removes and returns the pending CommandStart for sid. It
// returns ErrEntryNotExist if none exists.
func (d *DB) RemoveEntry(sid sessionid.ID) (wire.CommandStart, error) {
	var cs wire.CommandStart
	err := d.db.Update(func(tx *nutsdb.Tx) error {
		raw, err := tx.Get(bucketEntries, sessionKey(sid))
		if err != nil {
			if errors.Is(err, nutsdb.ErrKeyNotFound) {
				return ErrEntryNotExist
			}
			return err
		}
		cs, err = decodeCommandStart(valueBytes(raw))
		if err != nil {
			return fmt.Errorf("decode pending entry: %w", err)
		}
		return tx.Delete(bucketEntries, sessionKey(sid))
	})
	if err != nil {
		if errors.Is(err, ErrEntryNotExist) {
			return wire.CommandStart{}, ErrEntryNotExist
		}
		return wire.CommandStart{}, fmt.Errorf("remove pending entry: %w", err)
	}
	return cs, nil
}

// DisableSession marks sid disabled and discards any pending entry for
// it, per the documented Disable transition.
func (d *DB) DisableSession(sid sessionid.ID) error {
	err := d.db.Update(func(tx *nutsdb.Tx) error {
		if err := tx.Put(bucketDisabledSessions, sessionKey(sid), []byte{1}, 0); err != nil {
			return err
		}
		if err := tx.Delete(bucketEntries, sessionKey(sid)); err != nil && !errors.Is(err, nutsdb.ErrKeyNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("disable session: %w", err)
	}
	return nil
}

// EnableSession removes sid from the disabled set. It does not restore
// any entry that Disable discarded.
func (d *DB) EnableSession(sid sessionid.ID) error {
	err := d.db.Update(func(tx *nutsdb.Tx) error {
		if err := tx.Delete(bucketDisabledSessions, sessionKey(sid)); err != nil && !errors.Is(err, nutsdb.ErrKeyNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("enable session: %w", err)
	}
	return nil
}

// valueBytes normalizes nutsdb's Get return type (a *nutsdb.Entry in
// some engine modes, a raw []byte in others) to a byte slice.
func valueBytes(v interface{}) []byte {
	switch val := v.(type) {
	case []byte:
		return val
	case *nutsdb.Entry:
		return val.Value
	default:
		return nil
	}
}

// encodeCommandStart / decodeCommandStart reuse the wire codec's
// CommandStart framing so the persisted value and the network message
// never drift apart.
func encodeCommandStart(cs wire.CommandStart) ([]byte, error) {
	msg := wire.NewCommandStart(cs)
	return wire.Encode(msg)
}

func decodeCommandStart(data []byte) (wire.CommandStart, error) {
	msg, err := wire.Decode(data)
	if err != nil {
		return wire.CommandStart{}, err
	}
	return msg.CommandStart, nil
}
