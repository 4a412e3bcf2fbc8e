package services

import (
	"context"
	"testing"
	"time"

	"github.com/lucasdreger/couplecents/internal/core"
	"github.com/lucasdreger/couplecents/internal/storage"
)

func TestSummarize(t *testing.T) {
	p := core.NewPeriod(2025, 3)

	tests := []struct {
		name         string
		snap         SummarySnapshot
		wantIncome   int64
		wantFixed    int64
		wantVariable int64
		wantBalance  int64
		wantRate     float64
	}{
		{
			name: "both members with fixed and variable expenses",
			snap: SummarySnapshot{
				IncomeEntries: []core.IncomeEntry{
					{Member: "lucas", Period: p, MainIncome: core.NewMoney(250000), OtherIncome: core.NewMoney(10000)},
					{Member: "camila", Period: p, MainIncome: core.NewMoney(230000)},
				},
				FixedExpenses: []core.FixedExpense{
					{ID: "rent", Description: "Rent", EstimatedAmount: core.NewMoney(120000), Owner: "lucas"},
					{ID: "net", Description: "Internet", EstimatedAmount: core.NewMoney(4500), Owner: "camila"},
				},
				VariableExpenses: []core.VariableExpense{
					{ID: "v1", Description: "Groceries", Amount: core.NewMoney(8750), Period: p},
					{ID: "v2", Description: "Cinema", Amount: core.NewMoney(2400), Period: p},
				},
				Bill: core.CreditCardBill{Period: p, Amount: core.NewMoney(60000)},
			},
			wantIncome:   490000,
			wantFixed:    124500,
			wantVariable: 11150,
			wantBalance:  354350,
			wantRate:     float64(354350) / float64(490000) * 100,
		},
		{
			name:        "empty period",
			snap:        SummarySnapshot{},
			wantIncome:  0,
			wantBalance: 0,
			wantRate:    0,
		},
		{
			name: "zero income keeps savings rate at zero",
			snap: SummarySnapshot{
				FixedExpenses: []core.FixedExpense{
					{ID: "rent", Description: "Rent", EstimatedAmount: core.NewMoney(120000), Owner: "lucas"},
				},
			},
			wantIncome:  0,
			wantFixed:   120000,
			wantBalance: -120000,
			wantRate:    0,
		},
		{
			name: "variable expenses from another period are ignored",
			snap: SummarySnapshot{
				IncomeEntries: []core.IncomeEntry{
					{Member: "lucas", Period: p, MainIncome: core.NewMoney(100000)},
				},
				VariableExpenses: []core.VariableExpense{
					{ID: "v1", Description: "Old", Amount: core.NewMoney(5000), Period: core.NewPeriod(2025, 2)},
					{ID: "v2", Description: "Current", Amount: core.NewMoney(3000), Period: p},
				},
			},
			wantIncome:   100000,
			wantVariable: 3000,
			wantBalance:  97000,
			wantRate:     97.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(p, tt.snap)

			if got.TotalIncome.Cents != tt.wantIncome {
				t.Errorf("TotalIncome = %d, want %d", got.TotalIncome.Cents, tt.wantIncome)
			}
			if got.TotalFixedExpenses.Cents != tt.wantFixed {
				t.Errorf("TotalFixedExpenses = %d, want %d", got.TotalFixedExpenses.Cents, tt.wantFixed)
			}
			if got.TotalVariableExpenses.Cents != tt.wantVariable {
				t.Errorf("TotalVariableExpenses = %d, want %d", got.TotalVariableExpenses.Cents, tt.wantVariable)
			}
			if got.Balance.Cents != tt.wantBalance {
				t.Errorf("Balance = %d, want %d", got.Balance.Cents, tt.wantBalance)
			}
			if got.SavingsRate != tt.wantRate {
				t.Errorf("SavingsRate = %v, want %v", got.SavingsRate, tt.wantRate)
			}
		})
	}
}

func TestSummarizeAggregationIdentity(t *testing.T) {
	p := core.NewPeriod(2025, 6)
	snap := SummarySnapshot{
		IncomeEntries: []core.IncomeEntry{
			{Member: "lucas", Period: p, MainIncome: core.NewMoney(317211), OtherIncome: core.NewMoney(1999)},
		},
		FixedExpenses: []core.FixedExpense{
			{ID: "a", Description: "A", EstimatedAmount: core.NewMoney(98765), Owner: "lucas"},
			{ID: "b", Description: "B", EstimatedAmount: core.NewMoney(101), Owner: "camila"},
		},
		VariableExpenses: []core.VariableExpense{
			{ID: "v", Description: "V", Amount: core.NewMoney(333), Period: p},
		},
		Bill: core.CreditCardBill{Period: p, Amount: core.NewMoney(45000)},
	}

	got := Summarize(p, snap)

	if want := got.TotalFixedExpenses.Add(got.TotalVariableExpenses); got.TotalExpenses != want {
		t.Errorf("TotalExpenses = %v, want fixed+variable = %v", got.TotalExpenses, want)
	}
	if want := got.TotalIncome.Sub(got.TotalExpenses); got.Balance != want {
		t.Errorf("Balance = %v, want income-expenses = %v", got.Balance, want)
	}
	if got.CreditCardBill.Cents != 45000 {
		t.Errorf("CreditCardBill = %d, want 45000", got.CreditCardBill.Cents)
	}
}

func TestSummaryServiceMonthlySummary(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryRepository()
	p := core.NewPeriod(2025, 4)

	entry := core.IncomeEntry{
		Member:     "lucas",
		Period:     p,
		MainIncome: core.NewMoney(200000),
	}
	if err := repo.UpsertIncome(ctx, entry); err != nil {
		t.Fatalf("UpsertIncome: %v", err)
	}
	fixed := core.FixedExpense{
		ID:              "rent",
		Description:     "Rent",
		EstimatedAmount: core.NewMoney(80000),
		Owner:           "lucas",
		CreatedAt:       time.Now(),
	}
	if err := repo.CreateFixedExpense(ctx, fixed); err != nil {
		t.Fatalf("CreateFixedExpense: %v", err)
	}

	svc := NewSummaryService(repo)
	got, err := svc.MonthlySummary(ctx, p)
	if err != nil {
		t.Fatalf("MonthlySummary: %v", err)
	}

	if got.TotalIncome.Cents != 200000 {
		t.Errorf("TotalIncome = %d, want 200000", got.TotalIncome.Cents)
	}
	if got.Balance.Cents != 120000 {
		t.Errorf("Balance = %d, want 120000", got.Balance.Cents)
	}

	if _, err := svc.MonthlySummary(ctx, core.Period{}); err == nil {
		t.Error("expected error for zero period")
	}
}
