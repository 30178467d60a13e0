package nut

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sweeney/upslist/internal/transport"
	"github.com/sweeney/upslist/internal/upserr"
)

// DefaultPort is the upsd network port.
const DefaultPort = 3493

// Client speaks the upsd text protocol to one host.
// The connection is dialed lazily on the first request and reused after
// that. A transport or protocol error leaves the stream in an unknown
// state, so the connection is dropped and the next request redials.
type Client struct {
	host   string
	port   int
	dialer transport.Dialer
	conn   *transport.Conn
}

// NewClient returns a Client for host:port. No connection is made yet.
func NewClient(host string, port int, dialer transport.Dialer) *Client {
	if port == 0 {
		port = DefaultPort
	}
	return &Client{host: host, port: port, dialer: dialer}
}

// ListVariables runs LIST VAR for instance and returns every variable in the
// order upsd sent them.
func (c *Client) ListVariables(ctx context.Context, instance string) ([]Variable, error) {
	items, err := c.list(ctx, "LIST VAR "+quote(instance))
	if err != nil {
		return nil, fmt.Errorf("listing variables of %q: %w", instance, err)
	}
	vars := make([]Variable, 0, len(items))
	for _, item := range items {
		if len(item) != 3 {
			c.drop()
			return nil, upserr.Protocolf(strings.Join(item, " "), "list item has %d fields, want 3", len(item))
		}
		if item[0] != instance {
			c.drop()
			return nil, upserr.Protocolf(strings.Join(item, " "), "desynchronized: expected instance %q", instance)
		}
		vars = append(vars, Variable{Name: item[1], Value: item[2]})
	}
	return vars, nil
}

// GetVariable runs GET VAR for a single variable. An unsupported variable
// yields *upserr.NotFoundError.
func (c *Client) GetVariable(ctx context.Context, instance, name string) (string, error) {
	words, err := c.roundTrip(ctx, fmt.Sprintf("GET VAR %s %s", quote(instance), quote(name)))
	if err != nil {
		return "", fmt.Errorf("getting %s of %q: %w", name, instance, err)
	}

	switch words[0] {
	case "ERR":
		if len(words) >= 2 && words[1] == "VAR-NOT-SUPPORTED" {
			return "", &upserr.NotFoundError{Instance: instance, Name: name}
		}
		err := errReply(words)
		if upserr.Poisoned(err) {
			c.drop()
		}
		return "", err
	case "VAR":
		if len(words) < 4 {
			c.drop()
			return "", upserr.Protocolf(strings.Join(words, " "), "not enough parameters")
		}
		if words[1] != instance || words[2] != name {
			c.drop()
			return "", upserr.Protocolf(strings.Join(words, " "), "desynchronized: expected %s %s", instance, name)
		}
		return words[3], nil
	}
	c.drop()
	return "", upserr.Protocolf(strings.Join(words, " "), "unexpected reply")
}

// Close drops the connection, if any.
func (c *Client) Close() error {
	conn := c.conn
	c.conn = nil
	return conn.Close()
}

// list sends request and consumes the BEGIN/END response.
func (c *Client) list(ctx context.Context, request string) ([][]string, error) {
	if err := c.send(ctx, request); err != nil {
		return nil, err
	}
	var lr listReader
	for !lr.Done() {
		words, err := c.recv()
		if err == nil {
			err = lr.Feed(words)
		}
		if err != nil {
			if upserr.Poisoned(err) {
				c.drop()
			}
			return nil, err
		}
	}
	return lr.items, nil
}

// roundTrip sends request and returns the single tokenized reply line.
func (c *Client) roundTrip(ctx context.Context, request string) ([]string, error) {
	if err := c.send(ctx, request); err != nil {
		return nil, err
	}
	words, err := c.recv()
	if err != nil {
		c.drop()
		return nil, err
	}
	return words, nil
}

func (c *Client) send(ctx context.Context, line string) error {
	if c.conn == nil {
		conn, err := c.dialer.Dial(ctx, c.host, c.port)
		if err != nil {
			return err
		}
		c.conn = conn
	}
	if err := c.conn.WriteString(line + "\n"); err != nil {
		c.drop()
		return err
	}
	return nil
}

// recv reads and tokenizes one line. End of stream and empty lines are
// protocol errors.
func (c *Client) recv() ([]string, error) {
	line, err := c.conn.ReadLine()
	if errors.Is(err, io.EOF) {
		return nil, &upserr.ProtocolError{Msg: "end of stream"}
	}
	if err != nil {
		return nil, err
	}
	if line == "" {
		return nil, upserr.Protocolf(line, "empty line")
	}
	words, err := Tokenize(line)
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, upserr.Protocolf(line, "blank line")
	}
	return words, nil
}

func (c *Client) drop() {
	c.conn.Close() //nolint:errcheck
	c.conn = nil
}
