// Package normalize maps each daemon's native vocabulary onto the NUT
// variable namespace (battery.charge, ups.status, ...), so callers see one
// shape whichever daemon answered.
package normalize

import (
	"sort"
	"strconv"
	"strings"
)

// Value is a variable value: either a number or a string.
type Value struct {
	str     string
	num     float64
	numeric bool
}

// String returns a string Value.
func String(s string) Value { return Value{str: s} }

// Number returns a numeric Value.
func Number(f float64) Value { return Value{num: f, numeric: true} }

// IsNumber reports whether v was produced as a number.
func (v Value) IsNumber() bool { return v.numeric }

// String returns v as text. Numbers use the shortest representation that
// round-trips (2700 → "2700", 13.5 → "13.5").
func (v Value) String() string {
	if v.numeric {
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	}
	return v.str
}

// Float returns v as a float64. String values are parsed; ok is false when
// they are not numeric.
func (v Value) Float() (float64, bool) {
	if v.numeric {
		return v.num, true
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Vars is the normalized variable map for one UPS.
type Vars map[string]Value

// Float returns the numeric value of name, if present and numeric.
func (m Vars) Float(name string) (float64, bool) {
	v, ok := m[name]
	if !ok {
		return 0, false
	}
	return v.Float()
}

// Str returns the text of name, or "" when absent.
func (m Vars) Str(name string) string {
	return m[name].String()
}

// Has reports whether name is present.
func (m Vars) Has(name string) bool {
	_, ok := m[name]
	return ok
}

// Strings flattens m to name → text, the form publishers consume.
func (m Vars) Strings() map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v.String()
	}
	return out
}

// Names returns the variable names in sorted order.
func (m Vars) Names() []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
