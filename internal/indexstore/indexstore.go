// Package indexstore is the append-only, per-host CSV index of
// completed entries: an Add path the Processor calls for every paired
// command, and a glob-aware GetEntries path the query CLI calls
// directly.
package indexstore

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/ehrlich-b/histd/internal/entry"
	"github.com/ehrlich-b/histd/internal/filter"
	"github.com/ehrlich-b/histd/internal/sessionid"
)

// Store is an append-only CSV index rooted at a single data directory.
type Store struct {
	dataDir string
}

// New returns a Store rooted at dataDir. The directory is created
// lazily, on first Add.
func New(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

// indexPath builds the per-host file path by string concatenation.
// filepath.Join plus a "set extension" helper would collapse a
// hostname like "host.example.com" into "host.example.csv"; hostnames
// legitimately contain dots, so the ".csv" suffix is appended directly.
func (s *Store) indexPath(hostname string) string {
	return filepath.Join(s.dataDir, hostname+".csv")
}

// Add appends e to its host's index file, creating the file and
// writing the header row if this is the first entry for that host. A
// blank command is silently ignored.
func (s *Store) Add(e entry.Entry) error {
	if e.Command == "" {
		return nil
	}

	path := s.indexPath(e.Hostname)

	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return fmt.Errorf("create index dir %s: %w", s.dataDir, err)
	}

	_, statErr := os.Stat(path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open index file %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(headerFields()); err != nil {
			return fmt.Errorf("write index header %s: %w", path, err)
		}
	}
	if err := w.Write(rowFields(e)); err != nil {
		return fmt.Errorf("write index row %s: %w", path, err)
	}
	w.Flush()
	return w.Error()
}

// GetEntries reads, sorts, and filters entries. If f.Hostname is set
// only that host's file is read and a missing file is an error;
// otherwise every "*.csv" file in the data directory is read and a
// directory with no matching files simply yields no entries.
func (s *Store) GetEntries(f filter.Filter) ([]entry.Entry, error) {
	var all []entry.Entry

	if f.Hostname != "" {
		es, err := readLogFile(s.indexPath(f.Hostname))
		if err != nil {
			return nil, err
		}
		all = es
	} else {
		matches, err := filepath.Glob(filepath.Join(s.dataDir, "*.csv"))
		if err != nil {
			return nil, fmt.Errorf("glob index dir %s: %w", s.dataDir, err)
		}
		for _, path := range matches {
			es, err := readLogFile(path)
			if err != nil {
				return nil, err
			}
			all = append(all, es...)
		}
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Less(all[j]) })

	return f.Entries(all), nil
}

func readLogFile(path string) ([]entry.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read index file %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	entries := make([]entry.Entry, 0, len(rows)-1)
	for _, row := range rows[1:] { // skip header
		e, err := entryFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("parse index file %s: %w", path, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func headerFields() []string {
	return []string{"time_finished", "time_start", "hostname", "command", "pwd", "result", "session_id", "user"}
}

func rowFields(e entry.Entry) []string {
	return []string{
		e.TimeFinished.UTC().Format(time.RFC3339),
		e.TimeStart.UTC().Format(time.RFC3339),
		e.Hostname,
		e.Command,
		e.Pwd,
		strconv.FormatUint(uint64(e.Result), 10),
		e.SessionID.String(),
		e.User,
	}
}

func entryFromRow(row []string) (entry.Entry, error) {
	if len(row) != entry.Fields {
		return entry.Entry{}, fmt.Errorf("want %d fields, got %d", entry.Fields, len(row))
	}

	timeFinished, err := time.Parse(time.RFC3339, row[0])
	if err != nil {
		return entry.Entry{}, fmt.Errorf("parse time_finished: %w", err)
	}
	timeStart, err := time.Parse(time.RFC3339, row[1])
	if err != nil {
		return entry.Entry{}, fmt.Errorf("parse time_start: %w", err)
	}
	result, err := strconv.ParseUint(row[5], 10, 16)
	if err != nil {
		return entry.Entry{}, fmt.Errorf("parse result: %w", err)
	}
	sid, err := sessionid.Parse(row[6])
	if err != nil {
		return entry.Entry{}, fmt.Errorf("parse session_id: %w", err)
	}

	return entry.Entry{
		TimeFinished: timeFinished,
		TimeStart:    timeStart,
		Hostname:     row[2],
		Command:      row[3],
		Pwd:          row[4],
		Result:       uint16(result),
		SessionID:    sid,
		User:         row[7],
	}, nil
}
