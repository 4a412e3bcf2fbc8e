package services

import (
	"context"
	"testing"
	"time"

	"github.com/lucasdreger/couplecents/internal/core"
	"github.com/lucasdreger/couplecents/internal/storage"
)

func TestComputeSettlement(t *testing.T) {
	p := core.NewPeriod(2025, 5)
	threshold := core.NewMoney(50000) // 500,00

	tests := []struct {
		name          string
		income        int64
		fixed         int64
		bill          int64
		wantRemaining int64
		wantTransfer  *int64
	}{
		{
			name:          "whole-unit shortfall transfers exactly the shortfall",
			income:        250000,
			fixed:         180000,
			bill:          25000,
			wantRemaining: 45000,
			wantTransfer:  ptr(int64(5000)),
		},
		{
			name:          "remaining exactly at threshold needs no transfer",
			income:        250000,
			fixed:         180000,
			bill:          20000,
			wantRemaining: 50000,
			wantTransfer:  nil,
		},
		{
			name:          "large bill pushes remaining below threshold",
			income:        250000,
			fixed:         180000,
			bill:          50000,
			wantRemaining: 20000,
			wantTransfer:  ptr(int64(30000)),
		},
		{
			name:          "shortfall rounds up to next whole unit",
			income:        250000,
			fixed:         180000,
			bill:          20050, // remaining 499,50, shortfall 0,50 -> 1,00
			wantRemaining: 49950,
			wantTransfer:  ptr(int64(100)),
		},
		{
			name:          "negative remaining",
			income:        100000,
			fixed:         120000,
			bill:          10000,
			wantRemaining: -30000,
			wantTransfer:  ptr(int64(80000)),
		},
		{
			name:          "comfortable surplus",
			income:        500000,
			fixed:         100000,
			bill:          50000,
			wantRemaining: 350000,
			wantTransfer:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeSettlement(p,
				core.NewMoney(tt.income),
				core.NewMoney(tt.fixed),
				core.NewMoney(tt.bill),
				threshold)

			if got.Remaining.Cents != tt.wantRemaining {
				t.Errorf("Remaining = %d, want %d", got.Remaining.Cents, tt.wantRemaining)
			}
			if tt.wantTransfer == nil {
				if got.TransferNeeded || got.TransferAmount != nil {
					t.Errorf("expected no transfer, got %+v", got.TransferAmount)
				}
				return
			}
			if !got.TransferNeeded || got.TransferAmount == nil {
				t.Fatal("expected a transfer")
			}
			if got.TransferAmount.Cents != *tt.wantTransfer {
				t.Errorf("TransferAmount = %d, want %d", got.TransferAmount.Cents, *tt.wantTransfer)
			}
		})
	}
}

// Transfer amounts never decrease as the bill grows; every transfer is a
// whole number of currency units.
func TestComputeSettlementMonotonic(t *testing.T) {
	p := core.NewPeriod(2025, 5)
	income := core.NewMoney(250000)
	fixed := core.NewMoney(150000)
	threshold := core.NewMoney(50000)

	prev := int64(0)
	for bill := int64(0); bill <= 120000; bill += 731 {
		got := ComputeSettlement(p, income, fixed, core.NewMoney(bill), threshold)

		transfer := int64(0)
		if got.TransferAmount != nil {
			transfer = got.TransferAmount.Cents
		}
		if transfer < prev {
			t.Fatalf("transfer decreased from %d to %d at bill %d", prev, transfer, bill)
		}
		if transfer%100 != 0 {
			t.Fatalf("transfer %d at bill %d is not a whole unit", transfer, bill)
		}
		prev = transfer
	}
}

func TestSettlementForPeriod(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryRepository()
	p := core.NewPeriod(2025, 5)

	entries := []core.IncomeEntry{
		{Member: "lucas", Period: p, MainIncome: core.NewMoney(240000), OtherIncome: core.NewMoney(10000)},
		{Member: "camila", Period: p, MainIncome: core.NewMoney(220000)},
	}
	for _, e := range entries {
		if err := repo.UpsertIncome(ctx, e); err != nil {
			t.Fatalf("UpsertIncome: %v", err)
		}
	}
	expenses := []core.FixedExpense{
		{ID: "rent", Description: "Rent", EstimatedAmount: core.NewMoney(150000), Owner: "lucas", CreatedAt: time.Now()},
		{ID: "gym", Description: "Gym", EstimatedAmount: core.NewMoney(5000), Owner: "camila", CreatedAt: time.Now()},
	}
	for _, f := range expenses {
		if err := repo.CreateFixedExpense(ctx, f); err != nil {
			t.Fatalf("CreateFixedExpense: %v", err)
		}
	}
	if err := repo.UpdateBillAmount(ctx, p, core.NewMoney(60000)); err != nil {
		t.Fatalf("UpdateBillAmount: %v", err)
	}

	svc := NewSettlementService(repo, "lucas", core.NewMoney(50000))
	got, err := svc.SettlementForPeriod(ctx, p)
	if err != nil {
		t.Fatalf("SettlementForPeriod: %v", err)
	}

	// 2500,00 - 1500,00 - 600,00 = 400,00 remaining, 100,00 short.
	if got.Remaining.Cents != 40000 {
		t.Errorf("Remaining = %d, want 40000", got.Remaining.Cents)
	}
	if !got.TransferNeeded || got.TransferAmount == nil {
		t.Fatal("expected a transfer")
	}
	if got.TransferAmount.Cents != 10000 {
		t.Errorf("TransferAmount = %d, want 10000", got.TransferAmount.Cents)
	}
	if got.PayerFixedExpenses.Cents != 150000 {
		t.Errorf("PayerFixedExpenses = %d, want only payer-owned 150000", got.PayerFixedExpenses.Cents)
	}
}

func TestSettlementForPeriodMissingIncome(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryRepository()
	p := core.NewPeriod(2025, 5)

	svc := NewSettlementService(repo, "lucas", core.NewMoney(50000))
	got, err := svc.SettlementForPeriod(ctx, p)
	if err != nil {
		t.Fatalf("SettlementForPeriod: %v", err)
	}
	if got.PayerIncome.Cents != 0 {
		t.Errorf("PayerIncome = %d, want 0", got.PayerIncome.Cents)
	}
	if !got.TransferNeeded {
		t.Error("zero income below threshold must need a transfer")
	}
}

func ptr[T any](v T) *T { return &v }
