// Package services provides the calculation and orchestration layer of the
// reconciliation engine: period aggregation, settlement and the
// auto-increment scheduler.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lucasdreger/couplecents/internal/core"
	"github.com/lucasdreger/couplecents/internal/ports"
)

// SummarySnapshot bundles the immutable inputs of one period aggregation.
type SummarySnapshot struct {
	IncomeEntries    []core.IncomeEntry
	FixedExpenses    []core.FixedExpense
	VariableExpenses []core.VariableExpense
	Bill             core.CreditCardBill
}

// Summarize folds a period snapshot into a MonthlySummary. It is a pure
// function over the supplied rows: no side effects, safe to call
// concurrently for different periods.
//
// Fixed expenses are applied in full to every period; variable expenses are
// filtered to the queried period; the credit-card bill is surfaced but not
// counted into TotalExpenses.
func Summarize(p core.Period, snap SummarySnapshot) core.MonthlySummary {
	var income core.Money
	for _, entry := range snap.IncomeEntries {
		if !entry.Period.IsZero() && !entry.Period.Equals(p) {
			continue
		}
		income = income.Add(entry.MainIncome).Add(entry.OtherIncome)
	}

	var fixed core.Money
	for _, f := range snap.FixedExpenses {
		fixed = fixed.Add(f.EstimatedAmount)
	}

	var variable core.Money
	for _, v := range snap.VariableExpenses {
		if !v.Period.Equals(p) {
			continue
		}
		variable = variable.Add(v.Amount)
	}

	expenses := fixed.Add(variable)
	balance := income.Sub(expenses)

	rate := 0.0
	if !income.IsZero() {
		rate = float64(balance.Cents) / float64(income.Cents) * 100
	}

	return core.MonthlySummary{
		Period:                p,
		TotalIncome:           income,
		TotalFixedExpenses:    fixed,
		TotalVariableExpenses: variable,
		TotalExpenses:         expenses,
		CreditCardBill:        snap.Bill.Amount,
		Balance:               balance,
		SavingsRate:           rate,
	}
}

// SummaryService resolves period snapshots through the repository port and
// aggregates them.
type SummaryService struct {
	reader ports.LedgerReader
}

// NewSummaryService creates a summary service on top of a ledger reader.
func NewSummaryService(reader ports.LedgerReader) *SummaryService {
	return &SummaryService{reader: reader}
}

// MonthlySummary fetches the period's rows and aggregates them.
func (s *SummaryService) MonthlySummary(ctx context.Context, p core.Period) (core.MonthlySummary, error) {
	if err := p.Validate(); err != nil {
		return core.MonthlySummary{}, err
	}

	snap, err := s.snapshot(ctx, p)
	if err != nil {
		return core.MonthlySummary{}, err
	}

	summary := Summarize(p, snap)
	slog.DebugContext(ctx, "Period summarized",
		"period", p.String(),
		"income_cents", summary.TotalIncome.Cents,
		"expenses_cents", summary.TotalExpenses.Cents,
		"balance_cents", summary.Balance.Cents)
	return summary, nil
}

func (s *SummaryService) snapshot(ctx context.Context, p core.Period) (SummarySnapshot, error) {
	incomes, err := s.reader.IncomeEntries(ctx, p)
	if err != nil {
		return SummarySnapshot{}, fmt.Errorf("read income entries: %w", err)
	}
	fixed, err := s.reader.FixedExpenses(ctx)
	if err != nil {
		return SummarySnapshot{}, fmt.Errorf("read fixed expenses: %w", err)
	}
	variable, err := s.reader.VariableExpenses(ctx, p)
	if err != nil {
		return SummarySnapshot{}, fmt.Errorf("read variable expenses: %w", err)
	}
	bill, err := s.reader.CreditCardBill(ctx, p)
	if err != nil {
		return SummarySnapshot{}, fmt.Errorf("read credit card bill: %w", err)
	}

	return SummarySnapshot{
		IncomeEntries:    incomes,
		FixedExpenses:    fixed,
		VariableExpenses: variable,
		Bill:             bill,
	}, nil
}
