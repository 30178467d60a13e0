// Package transport owns the TCP connection to a UPS daemon: dialing with a
// bounded timeout, per-operation deadlines, line and exact-count reads.
package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/upslist/internal/upserr"
)

// DefaultTimeout bounds the dial and every read/write. Polling is an
// interactive status check, so it is kept short.
const DefaultTimeout = 2 * time.Second

// Dialer opens connections. The zero value uses DefaultTimeout.
type Dialer struct {
	Timeout time.Duration
}

func (d Dialer) timeout() time.Duration {
	if d.Timeout <= 0 {
		return DefaultTimeout
	}
	return d.Timeout
}

// Dial resolves host and connects to the first address that accepts.
// An empty host means localhost.
func (d Dialer) Dial(ctx context.Context, host string, port int) (*Conn, error) {
	if host == "" {
		host = "localhost"
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	nd := net.Dialer{Timeout: d.timeout()}
	c, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &upserr.TransportError{Op: "dial", Addr: addr, Err: err}
	}
	return &Conn{
		conn:    c,
		r:       bufio.NewReader(c),
		addr:    addr,
		timeout: d.timeout(),
	}, nil
}

// Conn is a single daemon connection. It is not safe for concurrent use;
// each protocol client owns exactly one.
type Conn struct {
	conn    net.Conn
	r       *bufio.Reader
	addr    string
	timeout time.Duration
}

// Addr returns the host:port this connection was dialed with.
func (c *Conn) Addr() string {
	if c == nil {
		return ""
	}
	return c.addr
}

// Write sends all of p. It implements io.Writer.
func (c *Conn) Write(p []byte) (int, error) {
	if c == nil || c.conn == nil {
		return 0, &upserr.TransportError{Op: "write", Addr: c.Addr(), Err: net.ErrClosed}
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, &upserr.TransportError{Op: "write", Addr: c.addr, Err: err}
	}
	n, err := c.conn.Write(p)
	if err != nil {
		return n, &upserr.TransportError{Op: "write", Addr: c.addr, Err: err}
	}
	return n, nil
}

// WriteString sends s.
func (c *Conn) WriteString(s string) error {
	_, err := c.Write([]byte(s))
	return err
}

// ReadLine returns the next newline-terminated line with "\r\n" stripped.
// A clean end of stream is returned as io.EOF so the protocol layer can
// classify it; a partial final line without a newline also yields io.EOF.
func (c *Conn) ReadLine() (string, error) {
	if err := c.readDeadline(); err != nil {
		return "", err
	}
	line, err := c.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		return "", &upserr.TransportError{Op: "read", Addr: c.addr, Err: err}
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ReadFull reads exactly n bytes. A stream that ends early yields io.EOF
// (nothing read) or io.ErrUnexpectedEOF (partial read).
func (c *Conn) ReadFull(n int) ([]byte, error) {
	if err := c.readDeadline(); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, err
		}
		return nil, &upserr.TransportError{Op: "read", Addr: c.addr, Err: err}
	}
	return buf, nil
}

// Read implements io.Reader over the buffered stream, refreshing the read
// deadline on every call. io.EOF is passed through unwrapped.
func (c *Conn) Read(p []byte) (int, error) {
	if err := c.readDeadline(); err != nil {
		return 0, err
	}
	n, err := c.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, &upserr.TransportError{Op: "read", Addr: c.addr, Err: err}
	}
	return n, err
}

func (c *Conn) readDeadline() error {
	if c == nil || c.conn == nil {
		return &upserr.TransportError{Op: "read", Addr: c.Addr(), Err: net.ErrClosed}
	}
	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return &upserr.TransportError{Op: "read", Addr: c.addr, Err: err}
	}
	return nil
}

// Close releases the socket. It is safe to call more than once and on a
// nil Conn.
func (c *Conn) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	if err != nil {
		return fmt.Errorf("closing %s: %w", c.addr, err)
	}
	return nil
}
