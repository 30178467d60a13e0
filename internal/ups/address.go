// Package ups is the single entry point for polling a UPS: it turns an
// address into the right protocol client and returns normalized variables.
package ups

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Target is a parsed UPS address. It is either a TextTarget (a named UPS
// behind upsd) or a BinaryTarget (the single UPS behind apcupsd).
type Target interface {
	// String returns the canonical address, which also keys the client cache.
	String() string
	newClient(cfg Config) client
}

// TextTarget is "<instance>@<host>[:port]".
type TextTarget struct {
	Instance string
	Host     string
	Port     int // 0 means the configured upsd port
}

func (t TextTarget) String() string {
	return t.Instance + "@" + hostPort(t.Host, t.Port)
}

// BinaryTarget is "@<host>[:port]".
type BinaryTarget struct {
	Host string
	Port int // 0 means the configured apcupsd port
}

func (t BinaryTarget) String() string {
	return "@" + hostPort(t.Host, t.Port)
}

// ParseAddress splits s on its last "@". An empty instance selects apcupsd,
// an empty host means localhost, and the host may carry a ":port" suffix.
func ParseAddress(s string) (Target, error) {
	at := strings.LastIndex(s, "@")
	if at < 0 {
		return nil, fmt.Errorf("invalid UPS address %q: want <ups>@<host> or @<host>", s)
	}
	instance := s[:at]
	host, port, err := splitHostPort(s[at+1:])
	if err != nil {
		return nil, fmt.Errorf("invalid UPS address %q: %w", s, err)
	}
	if instance == "" {
		return BinaryTarget{Host: host, Port: port}, nil
	}
	return TextTarget{Instance: instance, Host: host, Port: port}, nil
}

// splitHostPort accepts "host", "host:port", "[v6]:port" and a bare IPv6
// literal.
func splitHostPort(s string) (string, int, error) {
	if s == "" {
		return "localhost", 0, nil
	}
	h, p, err := net.SplitHostPort(s)
	if err != nil {
		// No port, or an unbracketed IPv6 literal.
		return strings.Trim(s, "[]"), 0, nil
	}
	port, err := strconv.Atoi(p)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("bad port %q", p)
	}
	if h == "" {
		h = "localhost"
	}
	return h, port, nil
}

func hostPort(host string, port int) string {
	if port == 0 {
		if strings.Contains(host, ":") {
			return "[" + host + "]"
		}
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
