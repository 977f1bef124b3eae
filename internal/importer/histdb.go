// Package importer brings history recorded by other tools into the
// Index Store: an existing histdb sqlite database, or a legacy zsh
// extended-history file.
package importer

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ehrlich-b/histd/internal/entry"
	"github.com/ehrlich-b/histd/internal/indexstore"
	"github.com/ehrlich-b/histd/internal/sessionid"
)

type histdbRow struct {
	session    int64
	startTime  int64
	duration   sql.NullInt64
	exitStatus sql.NullInt64
	hostname   string
	pwd        string
	command    string
}

// Histdb imports every usable row of an existing histdb sqlite
// database (https://github.com/larkery/zsh-histdb schema: history
// joined with places and commands) into store. Rows missing a
// duration, an exit status, or a non-blank command are skipped, since
// they cannot produce a complete Entry.
func Histdb(sqlitePath string, store *indexstore.Store) (int, error) {
	db, err := sql.Open("sqlite", sqlitePath)
	if err != nil {
		return 0, fmt.Errorf("open histdb sqlite file %s: %w", sqlitePath, err)
	}
	defer db.Close()

	rows, err := db.Query(`
		select history.session, history.start_time, history.duration,
		       history.exit_status, places.host, places.dir, commands.argv
		from history
		left join places on places.id = history.place_id
		left join commands on history.command_id = commands.id
	`)
	if err != nil {
		return 0, fmt.Errorf("query histdb sqlite file %s: %w", sqlitePath, err)
	}
	defer rows.Close()

	sessionIDs := make(map[string]sessionid.ID)
	imported := 0

	for rows.Next() {
		var r histdbRow
		if err := rows.Scan(&r.session, &r.startTime, &r.duration, &r.exitStatus, &r.hostname, &r.pwd, &r.command); err != nil {
			return imported, fmt.Errorf("scan histdb row: %w", err)
		}

		if !r.duration.Valid || !r.exitStatus.Valid || strings.TrimSpace(r.command) == "" {
			continue
		}

		key := fmt.Sprintf("%d|%s", r.session, r.hostname)
		sid, ok := sessionIDs[key]
		if !ok {
			sid = sessionid.New()
			sessionIDs[key] = sid
		}

		timeStart := time.Unix(r.startTime, 0).UTC()
		timeFinished := time.Unix(r.startTime+r.duration.Int64, 0).UTC()

		e := entry.Entry{
			TimeFinished: timeFinished,
			TimeStart:    timeStart,
			Hostname:     r.hostname,
			Command:      r.command,
			Pwd:          r.pwd,
			Result:       uint16(r.exitStatus.Int64),
			SessionID:    sid,
			User:         "",
		}

		if err := store.Add(e); err != nil {
			return imported, fmt.Errorf("add imported entry: %w", err)
		}
		imported++
	}
	if err := rows.Err(); err != nil {
		return imported, fmt.Errorf("iterate histdb rows: %w", err)
	}

	return imported, nil
}
