package ups

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/upslist/internal/apcupsd"
	"github.com/sweeney/upslist/internal/normalize"
	"github.com/sweeney/upslist/internal/nut"
	"github.com/sweeney/upslist/internal/transport"
)

// Fetcher abstracts the UPS data source so tests can inject a fake.
type Fetcher interface {
	Fetch(ctx context.Context, address string) (normalize.Vars, error)
	Close() error
}

// Config holds the daemon defaults used when an address has no port.
type Config struct {
	TextPort   int           // upsd, default 3493
	BinaryPort int           // apcupsd, default 3551
	Timeout    time.Duration // dial and per-read/write bound, default 2s
	// StatusFlags overrides apcupsd STATUS word translations.
	StatusFlags map[string]string
}

// client is one protocol client bound to one target.
type client interface {
	fetch(ctx context.Context) (normalize.Vars, error)
	Close() error
}

// Source polls UPS addresses. Clients are created on first use and kept
// for the lifetime of the Source so repeated polls of the same address
// reuse the connection. A Source is meant for one goroutine.
type Source struct {
	cfg     Config
	clients map[string]client
}

var _ Fetcher = (*Source)(nil)

// NewSource returns a Source with cfg's zero fields set to defaults.
func NewSource(cfg Config) *Source {
	if cfg.TextPort == 0 {
		cfg.TextPort = nut.DefaultPort
	}
	if cfg.BinaryPort == 0 {
		cfg.BinaryPort = apcupsd.DefaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = transport.DefaultTimeout
	}
	return &Source{cfg: cfg, clients: make(map[string]client)}
}

// Fetch polls address once and returns its normalized variables.
func (s *Source) Fetch(ctx context.Context, address string) (normalize.Vars, error) {
	target, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	return s.FetchTarget(ctx, target)
}

// FetchTarget is Fetch for an already parsed address.
func (s *Source) FetchTarget(ctx context.Context, target Target) (normalize.Vars, error) {
	key := target.String()
	c, ok := s.clients[key]
	if !ok {
		c = target.newClient(s.cfg)
		s.clients[key] = c
	}
	vars, err := c.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("polling %s: %w", key, err)
	}
	return vars, nil
}

// Close closes every client the Source has opened.
func (s *Source) Close() error {
	var errs []error
	for key, c := range s.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(s.clients, key)
	}
	return errors.Join(errs...)
}

func (t TextTarget) newClient(cfg Config) client {
	port := t.Port
	if port == 0 {
		port = cfg.TextPort
	}
	return &textClient{
		instance: t.Instance,
		nut:      nut.NewClient(t.Host, port, transport.Dialer{Timeout: cfg.Timeout}),
	}
}

func (t BinaryTarget) newClient(cfg Config) client {
	port := t.Port
	if port == 0 {
		port = cfg.BinaryPort
	}
	return &binaryClient{
		apc:  apcupsd.NewClient(t.Host, port, transport.Dialer{Timeout: cfg.Timeout}),
		norm: normalize.New(cfg.StatusFlags),
	}
}

type textClient struct {
	instance string
	nut      *nut.Client
}

func (c *textClient) fetch(ctx context.Context) (normalize.Vars, error) {
	vars, err := c.nut.ListVariables(ctx, c.instance)
	if err != nil {
		return nil, err
	}
	return normalize.FromText(vars), nil
}

func (c *textClient) Close() error { return c.nut.Close() }

type binaryClient struct {
	apc  *apcupsd.Client
	norm *normalize.Normalizer
}

func (c *binaryClient) fetch(ctx context.Context) (normalize.Vars, error) {
	block, err := c.apc.GetStatus(ctx)
	if err != nil {
		return nil, err
	}
	vars, err := c.norm.FromStatus(block)
	if err != nil {
		// A report the normalizer rejects is treated like a bad stream.
		c.apc.Close() //nolint:errcheck
		return nil, err
	}
	return vars, nil
}

func (c *binaryClient) Close() error { return c.apc.Close() }
