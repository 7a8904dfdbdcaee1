package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12.34", 1234, false},
		{"12,34", 1234, false},
		{"12", 1200, false},
		{"0.01", 1, false},
		{"12.344", 1234, false},
		{"12.345", 1235, false},
		{"12.346", 1235, false},
		{".5", 50, false},
		{"", 0, true},
		{"-3", 0, true},
		{"+3", 0, true},
		{"0", 0, true},
		{"abc", 0, true},
		{"1.2.3", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseDecimalToCents(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDecimalToCents(%q) unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseDecimalToCents(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{1234, "12.34"},
		{-5, "-0.05"},
		{0, "0.00"},
		{100, "1.00"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).String(); got != tc.want {
			t.Errorf("Money{%d}.String() = %q, want %q", tc.cents, got, tc.want)
		}
	}
}
