package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lucasdreger/couplecents/internal/core"
	"github.com/lucasdreger/couplecents/internal/ports"
)

// ComputeSettlement determines the transfer the counterpart owes the payer
// for one period's credit-card bill.
//
// The payer fronts the bill; after paying their own fixed expenses and the
// bill, their balance must not drop below the minimum threshold. If it
// does, the counterpart transfers the shortfall, rounded up to the next
// whole currency unit. Variable expenses are deliberately excluded from the
// payer's side: variable spending is accounted for elsewhere.
//
// Pure and deterministic for identical inputs.
func ComputeSettlement(p core.Period, payerIncome, payerFixedExpenses, billAmount, minimumThreshold core.Money) core.SettlementResult {
	remaining := payerIncome.Sub(payerFixedExpenses).Sub(billAmount)

	result := core.SettlementResult{
		Period:             p,
		PayerIncome:        payerIncome,
		PayerFixedExpenses: payerFixedExpenses,
		CreditCardBill:     billAmount,
		MinimumThreshold:   minimumThreshold,
		Remaining:          remaining,
	}

	if remaining.Less(minimumThreshold) {
		transfer := minimumThreshold.Sub(remaining).CeilToUnit()
		result.TransferNeeded = true
		result.TransferAmount = &transfer
	}
	return result
}

// SettlementService resolves the settlement inputs for a period from the
// repository port. The payer identity and minimum threshold are deployment
// configuration, not per-period data.
type SettlementService struct {
	reader    ports.LedgerReader
	payer     core.MemberID
	threshold core.Money
}

// NewSettlementService creates a settlement service for the configured
// payer and minimum cash floor.
func NewSettlementService(reader ports.LedgerReader, payer core.MemberID, threshold core.Money) *SettlementService {
	return &SettlementService{reader: reader, payer: payer, threshold: threshold}
}

// SettlementForPeriod computes the period's settlement from the payer's
// income entry, the payer-owned fixed expenses and the bill row. A missing
// income entry counts as zero income.
func (s *SettlementService) SettlementForPeriod(ctx context.Context, p core.Period) (core.SettlementResult, error) {
	if err := p.Validate(); err != nil {
		return core.SettlementResult{}, err
	}

	incomes, err := s.reader.IncomeEntries(ctx, p)
	if err != nil {
		return core.SettlementResult{}, fmt.Errorf("read income entries: %w", err)
	}
	var payerIncome core.Money
	for _, entry := range incomes {
		if entry.Member == s.payer {
			payerIncome = entry.MainIncome.Add(entry.OtherIncome)
			break
		}
	}

	fixed, err := s.reader.FixedExpenses(ctx)
	if err != nil {
		return core.SettlementResult{}, fmt.Errorf("read fixed expenses: %w", err)
	}
	var payerFixed core.Money
	for _, f := range fixed {
		if f.Owner == s.payer {
			payerFixed = payerFixed.Add(f.EstimatedAmount)
		}
	}

	bill, err := s.reader.CreditCardBill(ctx, p)
	if err != nil {
		return core.SettlementResult{}, fmt.Errorf("read credit card bill: %w", err)
	}

	result := ComputeSettlement(p, payerIncome, payerFixed, bill.Amount, s.threshold)
	slog.DebugContext(ctx, "Settlement computed",
		"period", p.String(),
		"payer", string(s.payer),
		"remaining_cents", result.Remaining.Cents,
		"transfer_needed", result.TransferNeeded)
	return result, nil
}
