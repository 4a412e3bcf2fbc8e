package core

import (
	"testing"
	"time"
)

func TestNewPeriodNormalization(t *testing.T) {
	cases := []struct {
		year, month         int
		wantYear, wantMonth int
	}{
		{2024, 1, 2024, 1},
		{2024, 12, 2024, 12},
		{2024, 13, 2025, 1},
		{2024, 0, 2023, 12},
		{2024, -1, 2023, 11},
		{2024, 25, 2026, 1},
	}
	for _, tc := range cases {
		p := NewPeriod(tc.year, tc.month)
		if p.Year != tc.wantYear || p.Month != tc.wantMonth {
			t.Fatalf("NewPeriod(%d,%d) = %v, expected %d-%02d",
				tc.year, tc.month, p, tc.wantYear, tc.wantMonth)
		}
	}
}

func TestPeriodNextPrev(t *testing.T) {
	if got := (Period{Year: 2024, Month: 12}).Next(); !got.Equals(Period{Year: 2025, Month: 1}) {
		t.Fatalf("next across year boundary: got %v", got)
	}
	if got := (Period{Year: 2025, Month: 1}).Prev(); !got.Equals(Period{Year: 2024, Month: 12}) {
		t.Fatalf("prev across year boundary: got %v", got)
	}
	if got := (Period{Year: 2025, Month: 6}).Next(); !got.Equals(Period{Year: 2025, Month: 7}) {
		t.Fatalf("next inside year: got %v", got)
	}
}

func TestPeriodOrdering(t *testing.T) {
	early := Period{Year: 2024, Month: 12}
	late := Period{Year: 2025, Month: 1}

	if !early.Before(late) || late.Before(early) {
		t.Fatal("ordering across year boundary broken")
	}
	if !late.After(early) {
		t.Fatal("After across year boundary broken")
	}
	if early.Compare(early) != 0 || !early.Equals(early) {
		t.Fatal("self comparison broken")
	}
}

func TestParsePeriod(t *testing.T) {
	cases := []struct {
		in   string
		want Period
		ok   bool
	}{
		{"2025-04", Period{Year: 2025, Month: 4}, true},
		{"2024-12", Period{Year: 2024, Month: 12}, true},
		{"2024-13", Period{}, false},
		{"2024-00", Period{}, false},
		{"2024", Period{}, false},
		{"abcd-ef", Period{}, false},
		{"", Period{}, false},
	}
	for _, tc := range cases {
		got, err := ParsePeriod(tc.in)
		if tc.ok {
			if err != nil || !got.Equals(tc.want) {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.want, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error, got %v", tc.in, got)
		}
	}
}

func TestPeriodStringRoundTrip(t *testing.T) {
	p := Period{Year: 2025, Month: 4}
	if p.String() != "2025-04" {
		t.Fatalf("unexpected string form %q", p.String())
	}
	back, err := ParsePeriod(p.String())
	if err != nil || !back.Equals(p) {
		t.Fatalf("round trip failed: %v (err=%v)", back, err)
	}
}

func TestPeriodOf(t *testing.T) {
	p := PeriodOf(time.Date(2025, time.August, 31, 23, 59, 0, 0, time.UTC))
	if !p.Equals(Period{Year: 2025, Month: 8}) {
		t.Fatalf("PeriodOf: got %v", p)
	}
}
