package nut

import (
	"strings"

	"github.com/sweeney/upslist/internal/upserr"
)

type listState int

const (
	listIdle   listState = iota // waiting for BEGIN LIST
	listInList                  // collecting <topic> rows
	listDone                    // END LIST seen
)

func (s listState) String() string {
	switch s {
	case listIdle:
		return "idle"
	case listInList:
		return "in-list"
	case listDone:
		return "done"
	}
	return "invalid"
}

// listReader is the BEGIN/END state machine for one list response. Feed it
// tokenized lines until Done reports true.
type listReader struct {
	state   listState
	topic   string // first word of every row, e.g. "VAR"
	bracket string // everything after LIST on the BEGIN line, e.g. "VAR myups"
	items   [][]string
}

// Done reports whether the END LIST bracket has been consumed.
func (l *listReader) Done() bool { return l.state == listDone }

// Feed advances the state machine by one tokenized line. An ERR line yields
// an *upserr.ApplicationError; every malformed transition yields an
// *upserr.ProtocolError.
func (l *listReader) Feed(words []string) error {
	raw := strings.Join(words, " ")
	if len(words) == 0 {
		return upserr.Protocolf(raw, "empty line")
	}
	if l.state == listDone {
		return upserr.Protocolf(raw, "data after END LIST")
	}

	switch words[0] {
	case "ERR":
		return errReply(words)
	case "BEGIN":
		if l.state == listInList {
			return upserr.Protocolf(raw, "BEGIN in the middle of a list")
		}
		if len(words) < 3 || words[1] != "LIST" {
			return upserr.Protocolf(raw, "not enough parameters")
		}
		l.topic = words[2]
		l.bracket = strings.Join(words[2:], " ")
		l.state = listInList
		return nil
	case "END":
		if l.state != listInList {
			return upserr.Protocolf(raw, "END without BEGIN")
		}
		if len(words) < 3 || words[1] != "LIST" {
			return upserr.Protocolf(raw, "not enough parameters")
		}
		if end := strings.Join(words[2:], " "); end != l.bracket {
			return upserr.Protocolf(raw, "END LIST %s does not close BEGIN LIST %s", end, l.bracket)
		}
		l.state = listDone
		return nil
	}

	if l.state == listInList && words[0] == l.topic {
		l.items = append(l.items, words[1:])
		return nil
	}
	return upserr.Protocolf(raw, "unexpected line")
}

// errReply converts an "ERR <code> [args...]" line into an ApplicationError.
func errReply(words []string) error {
	if len(words) < 2 {
		return upserr.Protocolf(strings.Join(words, " "), "ERR without a code")
	}
	return &upserr.ApplicationError{Code: words[1], Args: append([]string(nil), words[2:]...)}
}
