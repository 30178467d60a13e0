package nut

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/sweeney/upslist/internal/upserr"
)

// feedAll runs lines through a fresh listReader until it finishes or fails.
func feedAll(t *testing.T, lines ...string) (*listReader, error) {
	t.Helper()
	var lr listReader
	for _, line := range lines {
		words, err := Tokenize(line)
		if err != nil {
			t.Fatalf("Tokenize(%q): %v", line, err)
		}
		if err := lr.Feed(words); err != nil {
			return &lr, err
		}
		if lr.Done() {
			break
		}
	}
	return &lr, nil
}

func TestListReader_ItemsInOrder(t *testing.T) {
	for _, n := range []int{0, 1, 2, 25} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			lines := []string{"BEGIN LIST VAR ups"}
			var want [][]string
			for i := 0; i < n; i++ {
				name := fmt.Sprintf("var.%d", i)
				lines = append(lines, fmt.Sprintf(`VAR ups %s "%d"`, name, i))
				want = append(want, []string{"ups", name, fmt.Sprint(i)})
			}
			lines = append(lines, "END LIST VAR ups")

			lr, err := feedAll(t, lines...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !lr.Done() {
				t.Fatalf("state = %v, want done", lr.state)
			}
			if len(lr.items) != n {
				t.Fatalf("got %d items, want %d", len(lr.items), n)
			}
			if n > 0 && !reflect.DeepEqual(lr.items, want) {
				t.Errorf("items = %q, want %q", lr.items, want)
			}
		})
	}
}

func TestListReader_ErrBeforeBegin(t *testing.T) {
	lr, err := feedAll(t, "ERR UNKNOWN-UPS", "BEGIN LIST VAR ups")
	var app *upserr.ApplicationError
	if !errors.As(err, &app) {
		t.Fatalf("error = %v, want ApplicationError", err)
	}
	if upserr.IsProtocol(err) {
		t.Error("ERR must not be reported as a protocol error")
	}
	if app.Code != "UNKNOWN-UPS" {
		t.Errorf("Code = %q, want UNKNOWN-UPS", app.Code)
	}
	if lr.state != listIdle {
		t.Errorf("state = %v, want idle (no further input consumed)", lr.state)
	}
}

func TestListReader_ErrInsideList(t *testing.T) {
	_, err := feedAll(t, "BEGIN LIST VAR ups", `VAR ups a "1"`, "ERR DATA-STALE extra args")
	var app *upserr.ApplicationError
	if !errors.As(err, &app) {
		t.Fatalf("error = %v, want ApplicationError", err)
	}
	if app.Code != "DATA-STALE" || !reflect.DeepEqual(app.Args, []string{"extra", "args"}) {
		t.Errorf("ApplicationError = %+v", app)
	}
}

func TestListReader_ProtocolErrors(t *testing.T) {
	cases := []struct {
		name  string
		lines []string
		msg   string
	}{
		{"topic mismatch", []string{"BEGIN LIST VAR x", "END LIST VAR y"}, "does not close"},
		{"nested begin", []string{"BEGIN LIST VAR x", "BEGIN LIST VAR x"}, "middle of a list"},
		{"end without begin", []string{"END LIST VAR x"}, "END without BEGIN"},
		{"short begin", []string{"BEGIN LIST"}, "not enough parameters"},
		{"begin not list", []string{"BEGIN FOO VAR"}, "not enough parameters"},
		{"short end", []string{"BEGIN LIST VAR x", "END LIST"}, "not enough parameters"},
		{"foreign row", []string{"BEGIN LIST VAR x", "RW x a b"}, "unexpected line"},
		{"row before begin", []string{"VAR x a b"}, "unexpected line"},
		{"bare ERR", []string{"ERR"}, "without a code"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := feedAll(t, tc.lines...)
			var pe *upserr.ProtocolError
			if !errors.As(err, &pe) {
				t.Fatalf("error = %v, want ProtocolError", err)
			}
			if !strings.Contains(pe.Msg, tc.msg) {
				t.Errorf("Msg = %q, want it to mention %q", pe.Msg, tc.msg)
			}
		})
	}
}

func TestListReader_MatchingTopicSucceeds(t *testing.T) {
	lr, err := feedAll(t, "BEGIN LIST VAR x", "END LIST VAR x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !lr.Done() {
		t.Error("list should be done")
	}
}

func TestListReader_FeedAfterDone(t *testing.T) {
	lr, err := feedAll(t, "BEGIN LIST VAR x", "END LIST VAR x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := lr.Feed([]string{"VAR", "x", "a", "b"}); !upserr.IsProtocol(err) {
		t.Errorf("Feed after done = %v, want ProtocolError", err)
	}
	if err := (&listReader{}).Feed(nil); !upserr.IsProtocol(err) {
		t.Errorf("Feed(nil) = %v, want ProtocolError", err)
	}
}

func TestListState_String(t *testing.T) {
	if listIdle.String() != "idle" || listInList.String() != "in-list" || listDone.String() != "done" {
		t.Error("unexpected state names")
	}
	if listState(42).String() != "invalid" {
		t.Error("out-of-range state should be invalid")
	}
}
