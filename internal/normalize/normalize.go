package normalize

import (
	"strconv"
	"strings"

	"github.com/sweeney/upslist/internal/apcupsd"
	"github.com/sweeney/upslist/internal/nut"
	"github.com/sweeney/upslist/internal/upserr"
)

// FromText wraps upsd variables. upsd already uses the common namespace, so
// names and values pass through unchanged; numbers are parsed on demand via
// Value.Float.
func FromText(vars []nut.Variable) Vars {
	out := make(Vars, len(vars))
	for _, v := range vars {
		out[v.Name] = String(v.Value)
	}
	return out
}

// Normalizer translates apcupsd status reports. The zero value uses the
// built-in status tables.
type Normalizer struct {
	statusFlags map[string]string
}

// New returns a Normalizer whose status table is the confirmed and
// unconfirmed tables with overrides applied on top. An override mapping a
// word to "" removes the translation, so the word is reported as "WORD?".
func New(overrides map[string]string) *Normalizer {
	flags := make(map[string]string, len(ConfirmedStatusFlags)+len(UnconfirmedStatusFlags)+len(overrides))
	for k, v := range ConfirmedStatusFlags {
		flags[k] = v
	}
	for k, v := range UnconfirmedStatusFlags {
		flags[k] = v
	}
	for k, v := range overrides {
		if v == "" {
			delete(flags, k)
			continue
		}
		flags[k] = v
	}
	return &Normalizer{statusFlags: flags}
}

var defaultFlags = New(nil).statusFlags

func (n *Normalizer) flags() map[string]string {
	if n == nil || n.statusFlags == nil {
		return defaultFlags
	}
	return n.statusFlags
}

// FromStatus converts an apcupsd status block. Keys with no translation are
// dropped. A malformed number or TIMELEFT unit is a ProtocolError.
func (n *Normalizer) FromStatus(block apcupsd.StatusBlock) (Vars, error) {
	out := make(Vars)
	for _, p := range block {
		switch {
		case apcNumeric[p.Key] != "":
			f, err := leadingNumber(p)
			if err != nil {
				return nil, err
			}
			out[apcNumeric[p.Key]] = Number(f)
		case apcString[p.Key] != "":
			out[apcString[p.Key]] = String(strings.TrimSpace(p.Value))
		case p.Key == apcTimeLeft:
			secs, err := minutesToSeconds(p)
			if err != nil {
				return nil, err
			}
			out["battery.runtime"] = Number(secs)
		case p.Key == apcStatus:
			out["ups.status"] = String(n.Status(p.Value))
		}
	}
	return out, nil
}

// Status translates an apcupsd STATUS value into space-separated NUT flags.
// Unknown words are kept with a "?" suffix.
func (n *Normalizer) Status(value string) string {
	value = strings.TrimSpace(value)
	if flag, ok := compositeStatus[value]; ok {
		return flag
	}
	table := n.flags()
	words := strings.Fields(value)
	flags := make([]string, 0, len(words))
	for _, w := range words {
		if f, ok := table[w]; ok {
			flags = append(flags, f)
		} else {
			flags = append(flags, w+"?")
		}
	}
	if len(flags) == 0 {
		return StatusUnknown
	}
	return strings.Join(flags, " ")
}

func leadingNumber(p apcupsd.Pair) (float64, error) {
	fields := strings.Fields(p.Value)
	if len(fields) == 0 {
		return 0, upserr.Protocolf(p.Key+": "+p.Value, "empty numeric value")
	}
	f, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, upserr.Protocolf(p.Key+": "+p.Value, "not a number")
	}
	return f, nil
}

func minutesToSeconds(p apcupsd.Pair) (float64, error) {
	fields := strings.Fields(p.Value)
	if len(fields) != 2 || fields[1] != "Minutes" {
		return 0, upserr.Protocolf(p.Key+": "+p.Value, "expected \"<n> Minutes\"")
	}
	f, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, upserr.Protocolf(p.Key+": "+p.Value, "not a number")
	}
	return f * 60, nil
}
