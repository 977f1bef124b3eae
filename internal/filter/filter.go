// Package filter implements the pure, composable predicate applied to
// entries read back from the Index Store.
package filter

import (
	"regexp"
	"strings"

	"github.com/ehrlich-b/histd/internal/entry"
)

// Filter is a value type: every option is optional (zero value means
// "no constraint"), and applying one never mutates the entries it is
// given.
type Filter struct {
	// Hostname selects which host's index file the Index Store reads;
	// it is consumed there, not in Entries, since a host's file only
	// ever contains that host's entries.
	Hostname            string // "" means all hosts
	Directory           string // "" means no directory constraint
	NoSubdirs           bool
	Command             string // "" means no command constraint
	CommandText         *regexp.Regexp
	CommandTextExcluded *regexp.Regexp
	Session             *regexp.Regexp
	Failed              bool
	FindStatus          *uint16
	Count               int // 0 means unlimited
}

// Entries applies f to entries, which must already be sorted by
// entry.Entry's total order, and returns the matching subset in the
// same order. If Count is positive, only the last Count matches are
// returned, still in ascending order.
func (f Filter) Entries(entries []entry.Entry) []entry.Entry {
	filtered := make([]entry.Entry, 0, len(entries))
	for _, e := range entries {
		if f.matches(e) {
			filtered = append(filtered, e)
		}
	}

	if f.Count > 0 && len(filtered) > f.Count {
		filtered = filtered[len(filtered)-f.Count:]
	}
	return filtered
}

func (f Filter) matches(e entry.Entry) bool {
	if f.Command != "" && !matchCommand(e.Command, f.Command) {
		return false
	}
	if f.Directory != "" {
		if f.NoSubdirs {
			if e.Pwd != f.Directory {
				return false
			}
		} else if !isWithin(e.Pwd, f.Directory) {
			return false
		}
	}
	if f.CommandText != nil && !f.CommandText.MatchString(e.Command) {
		return false
	}
	if f.CommandTextExcluded != nil && f.CommandTextExcluded.MatchString(e.Command) {
		return false
	}
	if f.Session != nil && !f.Session.MatchString(e.SessionID.String()) {
		return false
	}
	if f.Failed && e.Result != 0 {
		return false
	}
	if f.FindStatus != nil && e.Result != *f.FindStatus {
		return false
	}
	return true
}

// matchCommand implements the pipe-split rule: split on '|', and match
// if any segment's first whitespace-delimited token equals command
// exactly.
func matchCommand(entryCommand, command string) bool {
	for _, segment := range strings.Split(entryCommand, "|") {
		fields := strings.Fields(segment)
		if len(fields) > 0 && fields[0] == command {
			return true
		}
	}
	return false
}

func isWithin(pwd, dir string) bool {
	if pwd == dir {
		return true
	}
	return strings.HasPrefix(pwd, strings.TrimRight(dir, "/")+"/")
}
