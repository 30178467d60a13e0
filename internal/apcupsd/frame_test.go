package apcupsd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sweeney/upslist/internal/upserr"
)

func TestFrame_RoundTrip(t *testing.T) {
	payloads := []string{
		"",
		"status",
		"APC      : 001,036,0879\n",
		sampleStatus,
		strings.Repeat("x", MaxFrame),
	}
	for _, p := range payloads {
		var buf bytes.Buffer
		if err := WriteFrame(&buf, []byte(p)); err != nil {
			t.Fatalf("WriteFrame(len %d): %v", len(p), err)
		}
		if buf.Len() != 2+len(p) {
			t.Errorf("encoded length = %d, want %d", buf.Len(), 2+len(p))
		}
		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame(len %d): %v", len(p), err)
		}
		if string(got) != p {
			t.Errorf("round trip of %d bytes mismatched", len(p))
		}
		if got == nil {
			t.Error("ReadFrame should return a non-nil slice")
		}
	}
}

func TestWriteFrame_BigEndianPrefix(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, []byte(strings.Repeat("a", 0x0102))); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if b := buf.Bytes(); b[0] != 0x01 || b[1] != 0x02 {
		t.Errorf("prefix = % x, want 01 02", b[:2])
	}
}

func TestWriteFrame_TooLarge(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, make([]byte, MaxFrame+1)); err == nil {
		t.Fatal("expected error for oversized frame")
	}
	if buf.Len() != 0 {
		t.Error("nothing should be written for an oversized frame")
	}
}

func TestReadFrame_Truncated(t *testing.T) {
	cases := map[string][]byte{
		"empty stream":  {},
		"half header":   {0x00},
		"short payload": {0x00, 0x05, 'a', 'b'},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadFrame(bytes.NewReader(raw))
			if !upserr.IsProtocol(err) {
				t.Fatalf("error = %v, want ProtocolError", err)
			}
		})
	}
}

func TestReadText_InvalidUTF8(t *testing.T) {
	var buf bytes.Buffer
	WriteFrame(&buf, []byte{0xff, 0xfe}) //nolint:errcheck
	if _, err := readText(&buf); !upserr.IsProtocol(err) {
		t.Fatalf("error = %v, want ProtocolError", err)
	}
}

func TestEncodeReport(t *testing.T) {
	raw := EncodeReport("APC : 1\nEND APC : 2\n")
	r := bytes.NewReader(raw)
	for _, want := range []string{"APC : 1\n", "END APC : 2\n", ""} {
		got, err := readText(r)
		if err != nil {
			t.Fatalf("readText: %v", err)
		}
		if got != want {
			t.Errorf("frame = %q, want %q", got, want)
		}
	}
	if r.Len() != 0 {
		t.Errorf("%d trailing bytes", r.Len())
	}
}
