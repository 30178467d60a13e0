// Command upslist prints a one-line status summary for each configured UPS,
// polling NUT upsd and apcupsd daemons alike.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/sweeney/upslist/internal/config"
	"github.com/sweeney/upslist/internal/metrics"
	"github.com/sweeney/upslist/internal/publisher"
	"github.com/sweeney/upslist/internal/render"
	"github.com/sweeney/upslist/internal/ups"
)

type options struct {
	configPath string
	timeout    time.Duration
	publish    bool
	watch      time.Duration
	noColor    bool
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("upslist: ")
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "upslist [ADDRESS...]",
		Short: "Show the status of NUT and apcupsd UPSes",
		Long: `upslist polls each UPS once and prints a status table.

An address is "ups@host[:port]" for a NUT upsd server, or "@host[:port]"
for an apcupsd network information server. Without arguments the addresses
come from the [[ups]] tables of upslist.toml, or failing that from the plain
upslist.conf list (one address per line, optional description after it).
Both files are looked up as ./.NAME, ~/.NAME and ~/.config/NAME.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), opts, args)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "path to upslist.toml")
	f.DurationVarP(&opts.timeout, "timeout", "t", 0, "network timeout per UPS (default from config, 2s)")
	f.BoolVar(&opts.publish, "publish", false, "also publish each UPS to the configured MQTT broker")
	f.DurationVarP(&opts.watch, "watch", "w", 0, "poll again at this interval until interrupted")
	f.BoolVar(&opts.noColor, "no-color", false, "disable colours even on a terminal")
	return cmd
}

func run(ctx context.Context, out io.Writer, opts *options, args []string) error {
	paths := config.DefaultPaths("upslist.toml")
	if opts.configPath != "" {
		// An explicit path must exist; Load skips missing files.
		if _, err := os.Stat(opts.configPath); err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		paths = []string{opts.configPath}
	}
	cfg, err := config.Load(paths...)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.timeout > 0 {
		cfg.Daemon.Timeout = config.Duration{Duration: opts.timeout}
	}

	servers, err := resolveServers(args, cfg)
	if err != nil {
		return err
	}
	if len(servers) == 0 {
		return errors.New("no UPS addresses given and none configured")
	}

	src := ups.NewSource(ups.Config{
		TextPort:    cfg.Daemon.NUTPort,
		BinaryPort:  cfg.Daemon.APCPort,
		Timeout:     cfg.Daemon.Timeout.Duration,
		StatusFlags: cfg.StatusFlags,
	})
	defer src.Close() //nolint:errcheck

	var pub publisher.Publisher
	if opts.publish {
		if cfg.MQTT.Broker == "" {
			return errors.New("--publish needs [mqtt] broker in the config or UPSLIST_MQTT_BROKER")
		}
		mqttPub, err := publisher.NewMQTTPublisher(cfg.MQTT)
		if err != nil {
			return err
		}
		defer mqttPub.Close() //nolint:errcheck
		pub = mqttPub
		announce(pub, cfg.MQTT.TopicPrefix, true)
		defer announce(pub, cfg.MQTT.TopicPrefix, false)
	}

	var styles *render.Styles
	if !opts.noColor && isTerminal(out) {
		styles = render.DefaultStyles()
	}

	p := &poller{src: src, pub: pub, mqtt: cfg.MQTT}
	pass := func() error {
		table := p.pollAll(ctx, servers)
		table.Styles = styles
		_, err := table.WriteTo(out)
		return err
	}

	if err := pass(); err != nil || opts.watch <= 0 {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer cancel()
	ticker := time.NewTicker(opts.watch)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fmt.Fprintln(out) //nolint:errcheck
			if err := pass(); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// resolveServers picks the addresses to poll: command-line arguments first,
// then the TOML [[ups]] list, then the plain upslist.conf list.
func resolveServers(args []string, cfg *config.Config) ([]config.Server, error) {
	if len(args) > 0 {
		servers := make([]config.Server, len(args))
		for i, a := range args {
			servers[i] = config.Server{Address: a}
		}
		return servers, nil
	}
	if len(cfg.Servers) > 0 {
		return cfg.Servers, nil
	}
	servers, err := config.LoadServerList(config.DefaultPaths("upslist.conf")...)
	if err != nil {
		return nil, fmt.Errorf("loading server list: %w", err)
	}
	return servers, nil
}

type poller struct {
	src  ups.Fetcher
	pub  publisher.Publisher // nil disables publishing
	mqtt config.MQTTConfig
}

// pollAll fetches every server in order. A failed server is logged and
// gets a placeholder row; it never stops the pass.
func (p *poller) pollAll(ctx context.Context, servers []config.Server) *render.Table {
	table := &render.Table{Rows: make([]render.Row, 0, len(servers))}
	for _, s := range servers {
		vars, err := p.src.Fetch(ctx, s.Address)
		if err != nil {
			log.Printf("%s: %v", s.Address, err)
			table.Rows = append(table.Rows, render.ErrorRow(s.Label(), err))
			continue
		}
		table.Rows = append(table.Rows, render.NewRow(s.Label(), vars))

		if p.pub == nil {
			continue
		}
		cfg := publisher.PublishConfig{
			Prefix:   p.mqtt.TopicPrefix,
			UPSName:  publisher.TopicName(s.Label()),
			Address:  s.Address,
			Retained: p.mqtt.Retained,
		}
		if err := publisher.PublishAll(vars, metrics.Compute(vars), cfg, p.pub); err != nil {
			log.Printf("%s: publishing: %v", s.Address, err)
		}
	}
	return table
}

func announce(pub publisher.Publisher, prefix string, online bool) {
	if err := pub.Publish(publisher.Availability(prefix, online)); err != nil {
		log.Printf("publishing availability: %v", err)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
