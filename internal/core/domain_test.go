package core

import (
	"testing"
	"time"
)

func TestFixedExpenseValidate(t *testing.T) {
	valid := FixedExpense{
		ID:              "fe-1",
		Description:     "Rent",
		EstimatedAmount: NewMoney(120000),
		Owner:           "lucas",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid expense rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*FixedExpense)
		want   error
	}{
		{"empty description", func(f *FixedExpense) { f.Description = "  " }, ErrEmptyDescription},
		{"zero amount", func(f *FixedExpense) { f.EstimatedAmount = Money{} }, ErrInvalidAmount},
		{"negative amount", func(f *FixedExpense) { f.EstimatedAmount = NewMoney(-1) }, ErrInvalidAmount},
		{"no owner", func(f *FixedExpense) { f.Owner = "" }, ErrUnknownMember},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := valid
			tc.mutate(&f)
			if err := f.Validate(); err != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestVariableExpenseValidate(t *testing.T) {
	valid := VariableExpense{
		ID:          "ve-1",
		Description: "Groceries",
		Amount:      NewMoney(4550),
		Date:        time.Date(2025, 4, 12, 0, 0, 0, 0, time.UTC),
		Period:      Period{Year: 2025, Month: 4},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid expense rejected: %v", err)
	}

	bad := valid
	bad.Period = Period{Year: 2025, Month: 13}
	if err := bad.Validate(); err != ErrInvalidPeriod {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestIncomeEntryValidate(t *testing.T) {
	valid := IncomeEntry{
		Member:     "camila",
		Period:     Period{Year: 2025, Month: 4},
		MainIncome: NewMoney(250000),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid entry rejected: %v", err)
	}

	bad := valid
	bad.OtherIncome = NewMoney(-1)
	if err := bad.Validate(); err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestAutoIncrementConfig(t *testing.T) {
	cfg := AutoIncrementConfig{
		ID:            "cfg-1",
		TargetType:    TargetInvestment,
		TargetID:      "inv-1",
		MonthlyAmount: NewMoney(10000),
		CreatedAt:     time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC),
		Active:        true,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if got := cfg.CreationPeriod(); !got.Equals(Period{Year: 2025, Month: 3}) {
		t.Fatalf("creation period: got %v", got)
	}

	if cfg.AppliedFor(Period{Year: 2025, Month: 3}) {
		t.Fatal("nil watermark must not report applied")
	}
	applied := Period{Year: 2025, Month: 3}
	cfg.LastApplied = &applied
	if !cfg.AppliedFor(applied) {
		t.Fatal("watermark period must report applied")
	}
	if cfg.AppliedFor(applied.Next()) {
		t.Fatal("later period must not report applied")
	}

	bad := cfg
	bad.TargetType = "crypto"
	if err := bad.Validate(); err != ErrUnknownTarget {
		t.Fatalf("expected ErrUnknownTarget, got %v", err)
	}
}

func TestValueHistoryDelta(t *testing.T) {
	e := ValueHistoryEntry{
		PreviousValue: NewMoney(50000),
		NewValue:      NewMoney(60000),
	}
	if got := e.Delta(); got.Cents != 10000 {
		t.Fatalf("delta: expected 10000, got %d", got.Cents)
	}
}
