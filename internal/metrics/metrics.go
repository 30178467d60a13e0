// Package metrics derives summary values from normalized UPS variables.
// There is no I/O and no side effects; all functions are safe to call from
// any goroutine.
package metrics

import (
	"math"
	"strconv"
	"strings"

	"github.com/sweeney/upslist/internal/normalize"
)

// Metrics holds values derived from normalized UPS variables.
//
// JSON tags define the canonical field names used in both the MQTT state topic
// and the per-metric computed/ topics, so the wire format lives in one place.
// When adding a new field, update Compute, AsTopicMap, and the test table.
type Metrics struct {
	LoadWatts                float64 `json:"load_watts"`
	BatteryRuntimeMins       float64 `json:"battery_runtime_mins"`
	BatteryRuntimeHours      float64 `json:"battery_runtime_hours"`
	OnBattery                bool    `json:"on_battery"`
	LowBattery               bool    `json:"low_battery"`
	StatusDisplay            string  `json:"status_display"`
	InputVoltageDeviationPct float64 `json:"input_voltage_deviation_pct"`
}

// AsTopicMap returns each metric as a topic-name → string-payload pair,
// ready to publish as individual MQTT computed/ topics.
//
// This is the single authoritative source for metric names and their
// string formatting.  Adding a new field to Metrics requires adding one
// entry here; the JSON state topic picks it up automatically via the
// struct tags above.
func (m Metrics) AsTopicMap() map[string]string {
	return map[string]string{
		"load_watts":                  formatFloat(m.LoadWatts),
		"battery_runtime_mins":        formatFloat(m.BatteryRuntimeMins),
		"battery_runtime_hours":       formatFloat(m.BatteryRuntimeHours),
		"on_battery":                  strconv.FormatBool(m.OnBattery),
		"low_battery":                 strconv.FormatBool(m.LowBattery),
		"status_display":              m.StatusDisplay,
		"input_voltage_deviation_pct": formatFloat(m.InputVoltageDeviationPct),
	}
}

// statusTokens maps NUT status tokens to human-readable labels.
var statusTokens = map[string]string{
	"OL":       "Online",
	"OB":       "On Battery",
	"LB":       "Low Battery",
	"HB":       "High Battery",
	"RB":       "Replace Battery",
	"CHRG":     "Charging",
	"DISCHRG":  "Discharging",
	"BYPASS":   "Bypass",
	"CAL":      "Calibrating",
	"OFF":      "Offline",
	"OVER":     "Overloaded",
	"TRIM":     "Trimming",
	"BOOST":    "Boosting",
	"FSD":      "Forced Shutdown",
	"COMMLOST": "Communication Lost",
}

// Compute derives all metrics from vars. Missing or unparseable variables
// produce zero values rather than errors.
func Compute(vars normalize.Vars) Metrics {
	status := vars.Str("ups.status")
	return Metrics{
		LoadWatts:                computeLoadWatts(vars),
		BatteryRuntimeMins:       computeBatteryRuntimeMins(vars),
		BatteryRuntimeHours:      computeBatteryRuntimeHours(vars),
		OnBattery:                hasStatusToken(status, "OB"),
		LowBattery:               hasStatusToken(status, "LB"),
		StatusDisplay:            computeStatusDisplay(status),
		InputVoltageDeviationPct: computeInputVoltageDeviationPct(vars),
	}
}

func computeLoadWatts(vars normalize.Vars) float64 {
	load, ok := vars.Float("ups.load")
	if !ok {
		return 0
	}
	nominal, ok := vars.Float("ups.realpower.nominal")
	if !ok {
		return 0
	}
	return math.Round(load/100*nominal*100) / 100
}

func computeBatteryRuntimeMins(vars normalize.Vars) float64 {
	runtime, ok := vars.Float("battery.runtime")
	if !ok {
		return 0
	}
	return math.Round(runtime/60*100) / 100
}

func computeBatteryRuntimeHours(vars normalize.Vars) float64 {
	runtime, ok := vars.Float("battery.runtime")
	if !ok {
		return 0
	}
	return math.Round(runtime/3600*100) / 100
}

func computeStatusDisplay(status string) string {
	if status == "" {
		return ""
	}
	tokens := strings.Fields(status)
	decoded := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if name, ok := statusTokens[t]; ok {
			decoded = append(decoded, name)
		} else {
			decoded = append(decoded, t)
		}
	}
	return strings.Join(decoded, ", ")
}

func computeInputVoltageDeviationPct(vars normalize.Vars) float64 {
	voltage, ok := vars.Float("input.voltage")
	if !ok {
		return 0
	}
	nominal, ok := vars.Float("input.voltage.nominal")
	if !ok || nominal == 0 {
		return 0
	}
	return math.Round((voltage-nominal)/nominal*100*100) / 100
}

// hasStatusToken reports whether the space-separated status string contains token.
func hasStatusToken(status, token string) bool {
	for _, t := range strings.Fields(status) {
		if t == token {
			return true
		}
	}
	return false
}

// formatFloat returns the shortest decimal representation of v with no
// trailing zeros (e.g. 72.0 → "72", 1.37 → "1.37").
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
