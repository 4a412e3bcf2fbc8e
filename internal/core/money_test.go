package core

import "testing"

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1,23", 123, true},
		{"1.23", 123, true},
		{"0,01", 1, true},
		{"1,005", 101, true}, // half-up rounding on the third digit
		{" 2,50 ", 250, true},
		{"€ 12,34", 1234, true},
		{"1.234,56", 123456, true},
		{"-1", -100, true},
		{"-0,5", -50, true},
		{"0", 0, true},
		{"abc", 0, false},
		{"1,2,3", 0, false},
		{"1-2", 0, false},
		{"", 0, false},
		{"€", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error, got %d", tc.in, got.Cents)
			}
		}
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "0,00"},
		{1, "0,01"},
		{100, "1,00"},
		{123456, "1.234,56"},
		{100000000, "1.000.000,00"},
		{-50, "-0,50"},
		{-123456, "-1.234,56"},
		{2050, "20,50"},
	}
	for _, tc := range cases {
		if got := NewMoney(tc.cents).Format(); got != tc.want {
			t.Fatalf("%d cents: expected %q, got %q", tc.cents, tc.want, got)
		}
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	// Formatting and re-parsing must reproduce the exact cents value,
	// including zero, negatives and trailing zero cents.
	values := []int64{0, 1, -1, 99, 100, 1000, 2050, 99999, -2050, 123456, -123456, 100000000, 123456789012}
	for _, cents := range values {
		s := NewMoney(cents).Format()
		back, err := ParseMoney(s)
		if err != nil {
			t.Fatalf("%d cents formatted as %q failed to parse: %v", cents, s, err)
		}
		if back.Cents != cents {
			t.Fatalf("round trip %d -> %q -> %d", cents, s, back.Cents)
		}
	}
}

func TestCeilToUnit(t *testing.T) {
	cases := []struct {
		in, want int64
	}{
		{0, 0},
		{100, 100},
		{101, 200},
		{199, 200},
		{1, 100},
		{-150, -100},
		{-200, -200},
	}
	for _, tc := range cases {
		if got := NewMoney(tc.in).CeilToUnit().Cents; got != tc.want {
			t.Fatalf("ceil(%d) expected %d, got %d", tc.in, tc.want, got)
		}
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := NewMoney(250)
	b := NewMoney(100)

	if got := a.Add(b).Cents; got != 350 {
		t.Fatalf("add: expected 350, got %d", got)
	}
	if got := a.Sub(b).Cents; got != 150 {
		t.Fatalf("sub: expected 150, got %d", got)
	}
	if got := b.MulInt(12).Cents; got != 1200 {
		t.Fatalf("mul: expected 1200, got %d", got)
	}
	if got := a.Neg().Cents; got != -250 {
		t.Fatalf("neg: expected -250, got %d", got)
	}
	if a.Compare(b) != 1 || b.Compare(a) != -1 || a.Compare(a) != 0 {
		t.Fatal("compare ordering broken")
	}
	if !b.Less(a) || a.Less(b) {
		t.Fatal("less ordering broken")
	}
}
