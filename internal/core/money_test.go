package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{".5", 50, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"500000", 50000000, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"0.001", 0, false},
		{"1e3", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{".", 0, false},
		{"", 0, false},
		{"99999999999999999999", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyDisplay(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "Rp 0"},
		{99, "Rp 1"},
		{49, "Rp 0"},
		{30000000, "Rp 300.000"},
		{150000150, "Rp 1.500.002"},
		{-2000000, "-Rp 20.000"},
		{100000, "Rp 1.000"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).Display(); got != tc.want {
			t.Errorf("Display(%d) = %q, want %q", tc.cents, got, tc.want)
		}
	}
}

func TestMoneyString(t *testing.T) {
	if got := (Money{Cents: 150050}).String(); got != "1500.50" {
		t.Fatalf("String() = %q", got)
	}
	if got := MoneyFromUnits(500000).Cents; got != 50000000 {
		t.Fatalf("MoneyFromUnits = %d", got)
	}
}
