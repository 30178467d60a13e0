package apcupsd

import (
	"context"
	"fmt"

	"github.com/sweeney/upslist/internal/transport"
	"github.com/sweeney/upslist/internal/upserr"
)

// DefaultPort is the apcupsd NIS port.
const DefaultPort = 3551

// statusCommand is the request that asks apcupsd for its status report.
const statusCommand = "status"

// Client talks NIS to one apcupsd host. apcupsd serves a single UPS per
// host, so there is no instance name. The connection is dialed on first use
// and dropped after any transport or protocol failure.
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

// GetStatus requests and parses one status report.
func (c *Client) GetStatus(ctx context.Context) (StatusBlock, error) {
	block, err := c.getStatus(ctx)
	if err != nil {
		if upserr.Poisoned(err) {
			c.Close() //nolint:errcheck
		}
		return nil, fmt.Errorf("apcupsd status from %s: %w", c.host, err)
	}
	return block, nil
}

func (c *Client) getStatus(ctx context.Context) (StatusBlock, error) {
	if c.conn == nil {
		conn, err := c.dialer.Dial(ctx, c.host, c.port)
		if err != nil {
			return nil, err
		}
		c.conn = conn
	}
	if err := WriteFrame(c.conn, []byte(statusCommand)); err != nil {
		return nil, err
	}

	var p statusParser
	for {
		line, err := readText(c.conn)
		if err != nil {
			return nil, err
		}
		if line == "" {
			return p.Finish()
		}
		if err := p.Feed(line); err != nil {
			return nil, err
		}
	}
}

// Close drops the connection, if any.
func (c *Client) Close() error {
	conn := c.conn
	c.conn = nil
	return conn.Close()
}
