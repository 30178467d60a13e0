// Package publisher handles MQTT topic routing and JSON state assembly for
// polled UPS variables.
package publisher

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sweeney/upslist/internal/metrics"
	"github.com/sweeney/upslist/internal/normalize"
)

// Message is a single MQTT publish request.
type Message struct {
	Topic    string
	Payload  string
	Retained bool
}

// Publisher is the minimal interface the rest of the codebase uses to send
// MQTT messages. The real MQTT client and FakePublisher both implement it.
type Publisher interface {
	Publish(msg Message) error
	Close() error
}

// PublishConfig groups the MQTT routing parameters for one UPS.
type PublishConfig struct {
	Prefix   string
	UPSName  string // topic segment, see TopicName
	Address  string // reported in the state payload
	Retained bool
}

// StateMessage is the JSON payload for the combined state topic.
// Computed uses metrics.Metrics directly; its JSON tags define the wire format.
type StateMessage struct {
	Timestamp string            `json:"timestamp"`
	UPSName   string            `json:"ups_name"`
	Address   string            `json:"address,omitempty"`
	Variables map[string]string `json:"variables"`
	Computed  metrics.Metrics   `json:"computed"`
}

// OnlineState is the LWT / online-announcement payload.
type OnlineState struct {
	Online    bool   `json:"online"`
	Timestamp string `json:"timestamp"`
}

// PublishAll publishes every variable as an individual topic, every
// computed metric under the "computed/" sub-tree, and the combined JSON
// state topic.  It returns the first publish error encountered.
func PublishAll(
	vars normalize.Vars,
	m metrics.Metrics,
	cfg PublishConfig,
	pub Publisher,
) error {
	// --- individual variable topics ---
	for _, name := range vars.Names() {
		topic := fmt.Sprintf("%s/%s/%s", cfg.Prefix, cfg.UPSName, strings.ReplaceAll(name, ".", "/"))
		if err := pub.Publish(Message{Topic: topic, Payload: vars.Str(name), Retained: cfg.Retained}); err != nil {
			return err
		}
	}

	// --- computed metric topics ---
	for name, payload := range m.AsTopicMap() {
		topic := fmt.Sprintf("%s/%s/computed/%s", cfg.Prefix, cfg.UPSName, name)
		if err := pub.Publish(Message{Topic: topic, Payload: payload, Retained: cfg.Retained}); err != nil {
			return err
		}
	}

	// --- combined JSON state topic ---
	return publishState(vars, m, cfg, pub)
}

func formatAvailability(online bool) string {
	payload, _ := json.Marshal(OnlineState{
		Online:    online,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return string(payload)
}

// AvailabilityTopic is where the poller announces itself and where the
// broker publishes the Last Will when the poller disappears. It is shared by
// every UPS the poller reports on.
func AvailabilityTopic(prefix string) string {
	return prefix + "/upslist/availability"
}

// Availability is the retained announcement for the poller under prefix.
// The offline form doubles as the broker-side Last Will.
func Availability(prefix string, online bool) Message {
	return Message{Topic: AvailabilityTopic(prefix), Payload: formatAvailability(online), Retained: true}
}

// TopicName turns a UPS address or description into a single topic level.
// MQTT wildcards, level separators, '@' and whitespace become '-'; a leading
// '@' (an apcupsd address) is dropped.
func TopicName(s string) string {
	s = strings.TrimPrefix(strings.TrimSpace(s), "@")
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '+', '#', '@', ' ', '\t':
			return '-'
		}
		return r
	}, s)
	if name == "" {
		return "ups"
	}
	return name
}

// StateTopic returns the MQTT topic used for the combined state message.
func StateTopic(prefix, upsName string) string {
	return fmt.Sprintf("%s/%s/state", prefix, upsName)
}

// publishState marshals and publishes the combined JSON state message.
func publishState(
	vars normalize.Vars,
	m metrics.Metrics,
	cfg PublishConfig,
	pub Publisher,
) error {
	state := StateMessage{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		UPSName:   cfg.UPSName,
		Address:   cfg.Address,
		Variables: vars.Strings(),
		Computed:  m,
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}
	return pub.Publish(Message{
		Topic:    StateTopic(cfg.Prefix, cfg.UPSName),
		Payload:  string(payload),
		Retained: cfg.Retained,
	})
}
