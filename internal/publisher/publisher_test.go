package publisher_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/sweeney/upslist/internal/metrics"
	"github.com/sweeney/upslist/internal/normalize"
	"github.com/sweeney/upslist/internal/publisher"
)

// sampleVars mirrors what upsd reports for a CyberPower unit.
var sampleVars = normalize.Vars{
	"battery.charge":        normalize.String("100"),
	"ups.load":              normalize.String("8"),
	"ups.status":            normalize.String("OL"),
	"ups.realpower.nominal": normalize.String("900"),
	"battery.runtime":       normalize.String("4920"),
	"input.voltage":         normalize.String("242.0"),
	"input.voltage.nominal": normalize.String("230"),
}

func runPublishAll(t *testing.T) *publisher.FakePublisher {
	t.Helper()
	m := metrics.Compute(sampleVars)
	fp := &publisher.FakePublisher{}
	cfg := publisher.PublishConfig{Prefix: "ups", UPSName: "cyberpower", Address: "cyberpower@nas", Retained: true}
	if err := publisher.PublishAll(sampleVars, m, cfg, fp); err != nil {
		t.Fatalf("PublishAll: %v", err)
	}
	return fp
}

// ---- Variable topic routing -----------------------------------------------

func TestPublishAll_VariableTopic_DotsToSlashes(t *testing.T) {
	fp := runPublishAll(t)
	msg, ok := fp.Find("ups/cyberpower/battery/charge")
	if !ok {
		t.Fatal("topic ups/cyberpower/battery/charge not published")
	}
	if msg.Payload != "100" {
		t.Errorf("payload = %q, want %q", msg.Payload, "100")
	}
	if !msg.Retained {
		t.Error("message should be retained")
	}
}

func TestPublishAll_VariableTopic_UpsLoad(t *testing.T) {
	fp := runPublishAll(t)
	msg, ok := fp.Find("ups/cyberpower/ups/load")
	if !ok {
		t.Fatal("topic ups/cyberpower/ups/load not published")
	}
	if msg.Payload != "8" {
		t.Errorf("payload = %q, want %q", msg.Payload, "8")
	}
}

func TestPublishAll_VariableTopic_UpsStatus(t *testing.T) {
	fp := runPublishAll(t)
	msg, ok := fp.Find("ups/cyberpower/ups/status")
	if !ok {
		t.Fatal("topic ups/cyberpower/ups/status not published")
	}
	if msg.Payload != "OL" {
		t.Errorf("payload = %q, want %q", msg.Payload, "OL")
	}
}

func TestPublishAll_NumericValuesFormatted(t *testing.T) {
	vars := normalize.Vars{
		"battery.runtime": normalize.Number(2700),
		"input.voltage":   normalize.Number(230.5),
	}
	fp := &publisher.FakePublisher{}
	cfg := publisher.PublishConfig{Prefix: "ups", UPSName: "desk"}
	if err := publisher.PublishAll(vars, metrics.Compute(vars), cfg, fp); err != nil {
		t.Fatalf("PublishAll: %v", err)
	}
	for topic, want := range map[string]string{
		"ups/desk/battery/runtime": "2700",
		"ups/desk/input/voltage":   "230.5",
	} {
		msg, ok := fp.Find(topic)
		if !ok {
			t.Errorf("topic %s not published", topic)
			continue
		}
		if msg.Payload != want {
			t.Errorf("%s payload = %q, want %q", topic, msg.Payload, want)
		}
	}
}

func TestPublishAll_VariableTopicsSorted(t *testing.T) {
	fp := runPublishAll(t)
	first := fp.Messages[0].Topic
	if first != "ups/cyberpower/battery/charge" {
		t.Errorf("first topic = %q, want variables in name order", first)
	}
}

// ---- Computed metric topics -----------------------------------------------

func TestPublishAll_Computed_LoadWatts(t *testing.T) {
	fp := runPublishAll(t)
	msg, ok := fp.Find("ups/cyberpower/computed/load_watts")
	if !ok {
		t.Fatal("computed/load_watts not published")
	}
	if msg.Payload != "72" {
		t.Errorf("payload = %q, want %q", msg.Payload, "72")
	}
}

func TestPublishAll_Computed_BatteryRuntimeMins(t *testing.T) {
	fp := runPublishAll(t)
	msg, ok := fp.Find("ups/cyberpower/computed/battery_runtime_mins")
	if !ok {
		t.Fatal("computed/battery_runtime_mins not published")
	}
	if msg.Payload != "82" {
		t.Errorf("payload = %q, want %q", msg.Payload, "82")
	}
}

func TestPublishAll_Computed_BatteryRuntimeHours(t *testing.T) {
	fp := runPublishAll(t)
	msg, ok := fp.Find("ups/cyberpower/computed/battery_runtime_hours")
	if !ok {
		t.Fatal("computed/battery_runtime_hours not published")
	}
	if msg.Payload != "1.37" {
		t.Errorf("payload = %q, want %q", msg.Payload, "1.37")
	}
}

func TestPublishAll_Computed_OnBattery(t *testing.T) {
	fp := runPublishAll(t)
	msg, ok := fp.Find("ups/cyberpower/computed/on_battery")
	if !ok {
		t.Fatal("computed/on_battery not published")
	}
	if msg.Payload != "false" {
		t.Errorf("payload = %q, want %q", msg.Payload, "false")
	}
}

func TestPublishAll_Computed_LowBattery(t *testing.T) {
	fp := runPublishAll(t)
	msg, ok := fp.Find("ups/cyberpower/computed/low_battery")
	if !ok {
		t.Fatal("computed/low_battery not published")
	}
	if msg.Payload != "false" {
		t.Errorf("payload = %q, want %q", msg.Payload, "false")
	}
}

func TestPublishAll_Computed_StatusDisplay(t *testing.T) {
	fp := runPublishAll(t)
	msg, ok := fp.Find("ups/cyberpower/computed/status_display")
	if !ok {
		t.Fatal("computed/status_display not published")
	}
	if msg.Payload != "Online" {
		t.Errorf("payload = %q, want %q", msg.Payload, "Online")
	}
}

func TestPublishAll_Computed_InputVoltageDeviationPct(t *testing.T) {
	fp := runPublishAll(t)
	msg, ok := fp.Find("ups/cyberpower/computed/input_voltage_deviation_pct")
	if !ok {
		t.Fatal("computed/input_voltage_deviation_pct not published")
	}
	if msg.Payload != "5.22" {
		t.Errorf("payload = %q, want %q", msg.Payload, "5.22")
	}
}

// ---- JSON state topic -----------------------------------------------------

func TestPublishAll_StateTopic_Structure(t *testing.T) {
	fp := runPublishAll(t)
	msg, ok := fp.Find("ups/cyberpower/state")
	if !ok {
		t.Fatal("state topic not published")
	}

	var state publisher.StateMessage
	if err := json.Unmarshal([]byte(msg.Payload), &state); err != nil {
		t.Fatalf("state payload is not valid JSON: %v\npayload: %s", err, msg.Payload)
	}

	if state.UPSName != "cyberpower" {
		t.Errorf("ups_name = %q, want %q", state.UPSName, "cyberpower")
	}
	if state.Address != "cyberpower@nas" {
		t.Errorf("address = %q, want %q", state.Address, "cyberpower@nas")
	}
	if state.Timestamp == "" {
		t.Error("timestamp should not be empty")
	}
	if state.Variables["battery.charge"] != "100" {
		t.Errorf("variables[battery.charge] = %q, want %q", state.Variables["battery.charge"], "100")
	}
	if state.Computed.LoadWatts != 72 {
		t.Errorf("computed.load_watts = %v, want 72", state.Computed.LoadWatts)
	}
	if state.Computed.StatusDisplay != "Online" {
		t.Errorf("computed.status_display = %q, want %q", state.Computed.StatusDisplay, "Online")
	}
	if state.Computed.OnBattery {
		t.Error("computed.on_battery should be false")
	}
}

// ---- StateTopic helper ----------------------------------------------------

func TestStateTopic(t *testing.T) {
	got := publisher.StateTopic("home", "myups")
	if got != "home/myups/state" {
		t.Errorf("StateTopic = %q, want %q", got, "home/myups/state")
	}
}

// ---- TopicName ------------------------------------------------------------

func TestTopicName(t *testing.T) {
	cases := map[string]string{
		"myups@nas":      "myups-nas",
		"@desk":          "desk",
		"@10.0.0.5:3551": "10.0.0.5:3551",
		"Rack UPS":       "Rack-UPS",
		"a/b+c#d":        "a-b-c-d",
		"@":              "ups",
		"":               "ups",
	}
	for in, want := range cases {
		if got := publisher.TopicName(in); got != want {
			t.Errorf("TopicName(%q) = %q, want %q", in, got, want)
		}
	}
}

// ---- availability ---------------------------------------------------------

func TestAvailabilityTopic(t *testing.T) {
	if got := publisher.AvailabilityTopic("home"); got != "home/upslist/availability" {
		t.Errorf("AvailabilityTopic = %q", got)
	}
}

func TestAvailability(t *testing.T) {
	on := publisher.Availability("home", true)
	off := publisher.Availability("home", false)
	if on.Topic != "home/upslist/availability" || off.Topic != on.Topic {
		t.Errorf("topics = %q / %q", on.Topic, off.Topic)
	}
	if !on.Retained || !off.Retained {
		t.Error("availability must be retained")
	}
	if !strings.Contains(on.Payload, `"online":true`) || !strings.Contains(off.Payload, `"online":false`) {
		t.Errorf("payloads = %s / %s", on.Payload, off.Payload)
	}
	if !strings.Contains(off.Payload, `"timestamp"`) {
		t.Errorf("payload missing timestamp: %s", off.Payload)
	}
}

// ---- FakePublisher --------------------------------------------------------

func TestFakePublisher_Find(t *testing.T) {
	fp := &publisher.FakePublisher{}
	fp.Publish(publisher.Message{Topic: "a/b", Payload: "v1"}) //nolint:errcheck
	fp.Publish(publisher.Message{Topic: "c/d", Payload: "v2"}) //nolint:errcheck

	msg, ok := fp.Find("c/d")
	if !ok {
		t.Fatal("Find should return true for existing topic")
	}
	if msg.Payload != "v2" {
		t.Errorf("Find payload = %q, want %q", msg.Payload, "v2")
	}

	_, ok = fp.Find("missing")
	if ok {
		t.Error("Find should return false for missing topic")
	}
}

func TestFakePublisher_Under(t *testing.T) {
	fp := &publisher.FakePublisher{}
	fp.Publish(publisher.Message{Topic: "ups/a/x"})  //nolint:errcheck
	fp.Publish(publisher.Message{Topic: "ups/ab/x"}) //nolint:errcheck
	fp.Publish(publisher.Message{Topic: "ups/a/y"})  //nolint:errcheck
	if got := fp.Under("ups/a"); len(got) != 2 {
		t.Errorf("Under(ups/a) = %d messages, want 2", len(got))
	}
}

func TestFakePublisher_PublishError(t *testing.T) {
	fp := &publisher.FakePublisher{PublishError: errors.New("broker down")}
	m := metrics.Compute(normalize.Vars{})
	cfg := publisher.PublishConfig{Prefix: "ups", UPSName: "test", Retained: false}
	err := publisher.PublishAll(normalize.Vars{}, m, cfg, fp)
	if err == nil {
		t.Fatal("expected error when PublishError is set")
	}
}

func TestFakePublisher_Close(t *testing.T) {
	fp := &publisher.FakePublisher{}
	if fp.Closed {
		t.Fatal("should not be closed initially")
	}
	fp.Close() //nolint:errcheck
	if !fp.Closed {
		t.Error("should be closed after Close()")
	}
}

func TestFakePublisher_Reset(t *testing.T) {
	fp := &publisher.FakePublisher{}
	fp.Publish(publisher.Message{Topic: "x", Payload: "y"}) //nolint:errcheck
	fp.Closed = true
	fp.Reset()

	if len(fp.Messages) != 0 {
		t.Error("Reset should clear Messages")
	}
	if fp.Closed {
		t.Error("Reset should set Closed=false")
	}
}
