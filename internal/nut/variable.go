// Package nut is a client for the Network UPS Tools upsd text protocol,
// limited to reading variables.
package nut

// Variable holds a single NUT variable name/value pair.
// Value is always the raw string upsd sent; callers parse as needed.
type Variable struct {
	Name  string
	Value string
}

// VarsToMap converts a []Variable slice into a name→value map. A name that
// appears twice keeps its last value.
func VarsToMap(vars []Variable) map[string]string {
	m := make(map[string]string, len(vars))
	for _, v := range vars {
		m[v.Name] = v.Value
	}
	return m
}
