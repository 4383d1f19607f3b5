package core

import (
	"encoding/json"
	"testing"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		key  string
		zero bool
	}{
		{"2024-01-15", "2024-01", false},
		{"2024/01/15", "2024-01", false},
		{"15/01/2024", "2024-01", false},
		{"2024-01-15T10:30:00Z", "2024-01", false},
		{"", "", true},
		{"not a date", "", true},
	}
	for _, tc := range cases {
		d := ParseDate(tc.in)
		if d.IsZero() != tc.zero {
			t.Fatalf("ParseDate(%q) zero = %v, want %v", tc.in, d.IsZero(), tc.zero)
		}
		if d.MonthKey() != tc.key {
			t.Fatalf("ParseDate(%q).MonthKey() = %q, want %q", tc.in, d.MonthKey(), tc.key)
		}
	}
}

func TestDateJSON(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"2024-02-01"`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.String() != "2024-02-01" {
		t.Fatalf("got %q", d.String())
	}

	out, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `"2024-02-01"` {
		t.Fatalf("marshal = %s", out)
	}

	// Blank and malformed dates coerce to the zero date, never error.
	for _, raw := range []string{`""`, `"garbage"`, `null`, `42`} {
		var z Date
		if err := json.Unmarshal([]byte(raw), &z); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if !z.IsZero() {
			t.Fatalf("unmarshal %s: expected zero date", raw)
		}
	}
}

func TestMonthLabel(t *testing.T) {
	cases := []struct {
		key string
		out string
	}{
		{"2024-01", "يناير 2024"},
		{"2025-12", "ديسمبر 2025"},
		{"", ""},
		{"bogus", ""},
		{"2024-13", ""},
	}
	for _, tc := range cases {
		if got := MonthLabel(tc.key); got != tc.out {
			t.Fatalf("MonthLabel(%q) = %q, want %q", tc.key, got, tc.out)
		}
	}
}
