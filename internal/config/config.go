// Package config loads and merges configuration from a TOML file and
// environment variable overrides, and reads the plain upslist.conf server
// list.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration wraps time.Duration so that BurntSushi/toml can decode "2s"-style
// strings via the encoding.TextUnmarshaler interface.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = dur
	return nil
}

// DaemonConfig holds the ports used when an address names none, and the
// per-operation network timeout.
type DaemonConfig struct {
	NUTPort int      `toml:"nut_port"`
	APCPort int      `toml:"apc_port"`
	Timeout Duration `toml:"timeout"`
}

// Server is one UPS to poll. Description replaces the address in listings
// when set.
type Server struct {
	Address     string `toml:"address"`
	Description string `toml:"description"`
}

// Label is the text shown for s in listings.
func (s Server) Label() string {
	if s.Description != "" {
		return s.Description
	}
	return s.Address
}

// MQTTConfig holds MQTT broker connection settings.
type MQTTConfig struct {
	Broker      string `toml:"broker"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
	ClientID    string `toml:"client_id"`
	TopicPrefix string `toml:"topic_prefix"`
	Retained    bool   `toml:"retained"`
	QOS         byte   `toml:"qos"`
	TLSCACert   string `toml:"tls_ca_cert"`

	// ConnectTimeout bounds the broker handshake and each acknowledged publish.
	ConnectTimeout Duration `toml:"connect_timeout"`
}

// Config is the top-level configuration struct.
type Config struct {
	Daemon  DaemonConfig `toml:"daemon"`
	Servers []Server     `toml:"ups"`
	MQTT    MQTTConfig   `toml:"mqtt"`
	// StatusFlags overrides apcupsd STATUS word translations, e.g.
	// NOBATT = "NOBATT". An empty value removes a translation.
	StatusFlags map[string]string `toml:"status_flags"`
}

// Load reads config from the first existing path in paths, then applies
// environment variable overrides.  Missing files are skipped silently;
// a malformed file returns an error.  Calling Load() with no arguments
// returns pure defaults plus any env overrides.
func Load(paths ...string) (*Config, error) {
	cfg := defaults()

	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, statErr := os.Stat(path); statErr == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %q: %w", path, err)
			}
			break // first found file wins
		} else if !os.IsNotExist(statErr) {
			return nil, fmt.Errorf("checking config path %q: %w", path, statErr)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Daemon: DaemonConfig{
			NUTPort: 3493,
			APCPort: 3551,
			Timeout: Duration{2 * time.Second},
		},
		MQTT: MQTTConfig{
			ClientID:    "upslist",
			TopicPrefix: "ups",
			Retained:    true,
			QOS:         1,

			ConnectTimeout: Duration{10 * time.Second},
		},
	}
}

// applyEnvOverrides copies any set UPSLIST_* environment variables into cfg.
func applyEnvOverrides(cfg *Config) {
	envPort("UPSLIST_NUT_PORT", &cfg.Daemon.NUTPort)
	envPort("UPSLIST_APC_PORT", &cfg.Daemon.APCPort)
	if v := os.Getenv("UPSLIST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Daemon.Timeout = Duration{d}
		} else {
			log.Printf("config: ignoring invalid UPSLIST_TIMEOUT=%q", v)
		}
	}
	if v := os.Getenv("UPSLIST_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv("UPSLIST_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("UPSLIST_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
	if v := os.Getenv("UPSLIST_MQTT_CLIENT_ID"); v != "" {
		cfg.MQTT.ClientID = v
	}
	if v := os.Getenv("UPSLIST_MQTT_TOPIC_PREFIX"); v != "" {
		cfg.MQTT.TopicPrefix = v
	}
	if v := os.Getenv("UPSLIST_MQTT_RETAINED"); v != "" {
		cfg.MQTT.Retained = v == "true" || v == "1"
	}
	if v := os.Getenv("UPSLIST_MQTT_QOS"); v != "" {
		if q, err := strconv.ParseUint(v, 10, 8); err == nil && q <= 2 {
			cfg.MQTT.QOS = byte(q)
		} else {
			log.Printf("config: ignoring invalid UPSLIST_MQTT_QOS=%q", v)
		}
	}
	if v := os.Getenv("UPSLIST_MQTT_CONNECT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.MQTT.ConnectTimeout = Duration{d}
		} else {
			log.Printf("config: ignoring invalid UPSLIST_MQTT_CONNECT_TIMEOUT=%q", v)
		}
	}
	if v := os.Getenv("UPSLIST_MQTT_TLS_CA_CERT"); v != "" {
		cfg.MQTT.TLSCACert = v
	}
}

func envPort(name string, dst *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	p, err := strconv.Atoi(v)
	if err != nil || p < 1 || p > 65535 {
		log.Printf("config: ignoring invalid %s=%q", name, v)
		return
	}
	*dst = p
}

// DefaultPaths returns the locations searched for a dotfile called name:
// the working directory, the home directory, and ~/.config (without the
// leading dot).
func DefaultPaths(name string) []string {
	paths := []string{"." + string(filepath.Separator) + "." + name}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, "."+name),
			filepath.Join(home, ".config", name),
		)
	}
	return paths
}

// LoadServerList reads the first readable file in paths. Each non-blank
// line not starting with '#' holds an address optionally followed by
// whitespace and a description. No readable file yields an empty list.
func LoadServerList(paths ...string) ([]Server, error) {
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
				continue
			}
			return nil, fmt.Errorf("opening server list %q: %w", path, err)
		}
		servers, err := ParseServerList(f)
		f.Close() //nolint:errcheck
		if err != nil {
			return nil, fmt.Errorf("reading server list %q: %w", path, err)
		}
		return servers, nil
	}
	return nil, nil
}

// ParseServerList parses the upslist.conf format from r.
func ParseServerList(r io.Reader) ([]Server, error) {
	var servers []Server
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimLeft(line, " \t")
		addr, desc := line, ""
		if i := strings.IndexAny(line, " \t"); i >= 0 {
			addr, desc = line[:i], strings.TrimLeft(line[i:], " \t")
		}
		servers = append(servers, Server{Address: addr, Description: desc})
	}
	return servers, sc.Err()
}
