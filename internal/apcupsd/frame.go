// Package apcupsd is a client for the apcupsd Network Information Server
// (NIS) protocol: length-prefixed frames carrying a "status" report.
package apcupsd

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/sweeney/upslist/internal/upserr"
)

// MaxFrame is the largest payload a 16-bit length prefix can carry.
const MaxFrame = 0xFFFF

// WriteFrame writes payload preceded by its big-endian uint16 length.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrame {
		return fmt.Errorf("frame of %d bytes exceeds %d", len(payload), MaxFrame)
	}
	buf := make([]byte, 2+len(payload))
	binary.BigEndian.PutUint16(buf, uint16(len(payload)))
	copy(buf[2:], payload)
	_, err := w.Write(buf)
	return err
}

// ReadFrame reads one frame and returns its payload. A zero-length frame
// returns an empty, non-nil slice. A stream that ends inside a frame is a
// ProtocolError; read failures from r are returned as they are.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, eofAsProtocol(err, "frame header")
	}
	n := binary.BigEndian.Uint16(hdr[:])
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, eofAsProtocol(err, "frame payload")
	}
	return payload, nil
}

// readText reads one frame and decodes it as UTF-8.
func readText(r io.Reader) (string, error) {
	payload, err := ReadFrame(r)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(payload) {
		return "", upserr.Protocolf(string(payload), "frame is not valid UTF-8")
	}
	return string(payload), nil
}

func eofAsProtocol(err error, what string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &upserr.ProtocolError{Msg: "end of stream in " + what}
	}
	return err
}
