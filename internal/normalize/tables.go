package normalize

// apcupsd keys whose value is "<number> <unit>". Only the number is kept.
var apcNumeric = map[string]string{
	"BATTV":    "battery.voltage",
	"BCHARGE":  "battery.charge",
	"LINEV":    "input.voltage",
	"LOADPCT":  "ups.load",
	"NOMPOWER": "ups.realpower.nominal",
	"OUTPUTV":  "output.voltage",
	"NOMINV":   "input.voltage.nominal",
	"NOMBATTV": "battery.voltage.nominal",
	"ITEMP":    "ups.temperature",
	"LINEFREQ": "input.frequency",
	"MBATTCHG": "battery.charge.low",
}

// apcString are apcupsd keys copied through as text.
var apcString = map[string]string{
	"UPSNAME":  "ups.id",
	"MODEL":    "ups.model",
	"SERIALNO": "ups.serial",
	"FIRMWARE": "ups.firmware",
}

const (
	apcTimeLeft = "TIMELEFT"
	apcStatus   = "STATUS"
)

// ConfirmedStatusFlags translates apcupsd STATUS words to NUT status flags.
var ConfirmedStatusFlags = map[string]string{
	"CAL":         "CAL",
	"TRIM":        "TRIM",
	"BOOST":       "BOOST",
	"ONLINE":      "OL",
	"ONBATT":      "OB",
	"OVERLOAD":    "OVER",
	"LOWBATT":     "LB",
	"REPLACEBATT": "RB",
}

// UnconfirmedStatusFlags are translations that have not been checked
// against what upsd reports for the same condition. They keep the trailing
// "?" until someone confirms them; a Normalizer can override them.
var UnconfirmedStatusFlags = map[string]string{
	"NOBATT":   "NOBATT?",
	"COMMLOST": "COMMLOST?",
	"SELFTEST": "SELFTEST?",
}

// compositeStatus are whole STATUS values that replace word-by-word
// translation.
var compositeStatus = map[string]string{
	"SHUTTING DOWN": "FSD",
	"NETWORK ERROR": "COMMLOST",
}

// StatusUnknown is ups.status when no flag could be derived.
const StatusUnknown = "UNKNOWN"
