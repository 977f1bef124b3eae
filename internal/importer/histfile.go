package importer

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ehrlich-b/histd/internal/entry"
	"github.com/ehrlich-b/histd/internal/indexstore"
	"github.com/ehrlich-b/histd/internal/sessionid"
)

type histfileEntry struct {
	timeFinished time.Time
	result       uint16
	command      string
}

// Histfile imports a zsh extended-history file (`setopt extended_history`,
// lines of the form `: <timestamp>:<duration>;<command>`) into store.
// The number between the timestamp and the ';' is stored as the entry's
// result code; the timestamp becomes both time_start and time_finished.
// A trailing backslash continues the command onto following lines until
// the next `:`-prefixed line.
//
// Every imported entry shares one freshly minted session id, the
// current hostname, the current user, and $HOME as pwd, since the
// histfile format carries none of those per command.
func Histfile(path, hostname, user, home string, store *indexstore.Store) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open histfile %s: %w", path, err)
	}
	defer f.Close()

	entries, err := parseHistfile(f)
	if err != nil {
		return 0, fmt.Errorf("parse histfile %s: %w", path, err)
	}

	sid := sessionid.New()
	imported := 0
	for _, he := range entries {
		e := entry.Entry{
			TimeFinished: he.timeFinished,
			TimeStart:    he.timeFinished,
			Hostname:     hostname,
			Command:      he.command,
			Pwd:          home,
			Result:       he.result,
			SessionID:    sid,
			User:         user,
		}
		if err := store.Add(e); err != nil {
			return imported, fmt.Errorf("add imported entry: %w", err)
		}
		imported++
	}
	return imported, nil
}

func parseHistfile(f *os.File) ([]histfileEntry, error) {
	var entries []histfileEntry

	var accTimeFinished time.Time
	var accResult uint16
	var accCommand strings.Builder
	multiline := false

	scanner := bufio.NewScanner(f)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()

		if strings.HasPrefix(line, ":") && multiline {
			entries = append(entries, histfileEntry{
				timeFinished: accTimeFinished,
				result:       accResult,
				command:      accCommand.String(),
			})
			accCommand.Reset()
			multiline = false
		}

		if strings.HasPrefix(line, ":") {
			parts := strings.SplitN(line, ":", 3)
			if len(parts) < 3 {
				return nil, fmt.Errorf("line %d: missing timestamp field", lineNumber)
			}
			timestamp := strings.TrimSpace(parts[1])

			codeCommand := strings.SplitN(parts[2], ";", 2)
			if len(codeCommand) < 2 {
				return nil, fmt.Errorf("line %d: missing command field", lineNumber)
			}
			code := codeCommand[0]
			command := codeCommand[1]

			ts, err := strconv.ParseInt(timestamp, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: parse timestamp: %w", lineNumber, err)
			}
			result, err := strconv.ParseUint(code, 10, 16)
			if err != nil {
				return nil, fmt.Errorf("line %d: parse result code: %w", lineNumber, err)
			}
			timeFinished := time.Unix(ts, 0).UTC()

			if strings.HasSuffix(command, "\\") {
				accTimeFinished = timeFinished
				accResult = uint16(result)
				accCommand.Reset()
				accCommand.WriteString(strings.TrimSuffix(command, "\\"))
				accCommand.WriteByte('\n')
				multiline = true
			} else {
				entries = append(entries, histfileEntry{
					timeFinished: timeFinished,
					result:       uint16(result),
					command:      command,
				})
			}
		} else if multiline {
			accCommand.WriteString(line)
			accCommand.WriteByte('\n')
		} else {
			return nil, fmt.Errorf("line %d: continuation line with no open multiline command", lineNumber)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read histfile: %w", err)
	}

	if multiline {
		entries = append(entries, histfileEntry{
			timeFinished: accTimeFinished,
			result:       accResult,
			command:      accCommand.String(),
		})
	}

	return entries, nil
}
