package normalize

import (
	"reflect"
	"testing"
)

func TestValue(t *testing.T) {
	cases := []struct {
		v       Value
		str     string
		f       float64
		ok      bool
		numeric bool
	}{
		{Number(2700), "2700", 2700, true, true},
		{Number(13.5), "13.5", 13.5, true, true},
		{String("87"), "87", 87, true, false},
		{String(" 4920 "), " 4920 ", 4920, true, false},
		{String("OL"), "OL", 0, false, false},
		{Value{}, "", 0, false, false},
	}
	for _, tc := range cases {
		if got := tc.v.String(); got != tc.str {
			t.Errorf("String() = %q, want %q", got, tc.str)
		}
		f, ok := tc.v.Float()
		if f != tc.f || ok != tc.ok {
			t.Errorf("Float() of %q = %v, %v; want %v, %v", tc.str, f, ok, tc.f, tc.ok)
		}
		if tc.v.IsNumber() != tc.numeric {
			t.Errorf("IsNumber() of %q = %v", tc.str, tc.v.IsNumber())
		}
	}
}

func TestVars_Accessors(t *testing.T) {
	vars := Vars{
		"battery.charge": Number(100),
		"ups.status":     String("OL"),
	}
	if _, ok := vars.Float("missing"); ok {
		t.Error("Float of a missing name should report false")
	}
	if vars.Str("missing") != "" {
		t.Error("Str of a missing name should be empty")
	}
	if !vars.Has("ups.status") || vars.Has("missing") {
		t.Error("Has mismatch")
	}
	want := map[string]string{"battery.charge": "100", "ups.status": "OL"}
	if got := vars.Strings(); !reflect.DeepEqual(got, want) {
		t.Errorf("Strings() = %v, want %v", got, want)
	}
	if got := vars.Names(); !reflect.DeepEqual(got, []string{"battery.charge", "ups.status"}) {
		t.Errorf("Names() = %v", got)
	}
}
