package http

import (
	"net/http"

	"github.com/lucasdreger/couplecents/internal/core"
)

type summaryJSON struct {
	Period                string  `json:"period"`
	TotalIncomeCents      int64   `json:"total_income_cents"`
	TotalIncome           string  `json:"total_income"`
	FixedExpensesCents    int64   `json:"fixed_expenses_cents"`
	FixedExpenses         string  `json:"fixed_expenses"`
	VariableExpensesCents int64   `json:"variable_expenses_cents"`
	VariableExpenses      string  `json:"variable_expenses"`
	TotalExpensesCents    int64   `json:"total_expenses_cents"`
	TotalExpenses         string  `json:"total_expenses"`
	CreditCardBillCents   int64   `json:"credit_card_bill_cents"`
	CreditCardBill        string  `json:"credit_card_bill"`
	BalanceCents          int64   `json:"balance_cents"`
	Balance               string  `json:"balance"`
	SavingsRate           float64 `json:"savings_rate"`
}

func toSummaryJSON(s core.MonthlySummary) summaryJSON {
	return summaryJSON{
		Period:                s.Period.String(),
		TotalIncomeCents:      s.TotalIncome.Cents,
		TotalIncome:           s.TotalIncome.Format(),
		FixedExpensesCents:    s.TotalFixedExpenses.Cents,
		FixedExpenses:         s.TotalFixedExpenses.Format(),
		VariableExpensesCents: s.TotalVariableExpenses.Cents,
		VariableExpenses:      s.TotalVariableExpenses.Format(),
		TotalExpensesCents:    s.TotalExpenses.Cents,
		TotalExpenses:         s.TotalExpenses.Format(),
		CreditCardBillCents:   s.CreditCardBill.Cents,
		CreditCardBill:        s.CreditCardBill.Format(),
		BalanceCents:          s.Balance.Cents,
		Balance:               s.Balance.Format(),
		SavingsRate:           s.SavingsRate,
	}
}

// handleSummary serves GET /api/summary. Results are cached per period and
// invalidated by ledger writes.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	p, err := periodFromQuery(r)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	key := "summary:" + p.String()
	if cached, ok := s.summaryCache.Get(key); ok {
		respondJSON(w, http.StatusOK, toSummaryJSON(cached))
		return
	}

	summary, err := s.summaries.MonthlySummary(r.Context(), p)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	s.summaryCache.Set(key, summary)
	respondJSON(w, http.StatusOK, toSummaryJSON(summary))
}

type settlementJSON struct {
	Period                  string  `json:"period"`
	PayerIncomeCents        int64   `json:"payer_income_cents"`
	PayerFixedExpensesCents int64   `json:"payer_fixed_expenses_cents"`
	CreditCardBillCents     int64   `json:"credit_card_bill_cents"`
	MinimumThresholdCents   int64   `json:"minimum_threshold_cents"`
	RemainingCents          int64   `json:"remaining_cents"`
	Remaining               string  `json:"remaining"`
	TransferNeeded          bool    `json:"transfer_needed"`
	TransferAmountCents     *int64  `json:"transfer_amount_cents,omitempty"`
	TransferAmount          *string `json:"transfer_amount,omitempty"`
}

func toSettlementJSON(res core.SettlementResult) settlementJSON {
	out := settlementJSON{
		Period:                  res.Period.String(),
		PayerIncomeCents:        res.PayerIncome.Cents,
		PayerFixedExpensesCents: res.PayerFixedExpenses.Cents,
		CreditCardBillCents:     res.CreditCardBill.Cents,
		MinimumThresholdCents:   res.MinimumThreshold.Cents,
		RemainingCents:          res.Remaining.Cents,
		Remaining:               res.Remaining.Format(),
		TransferNeeded:          res.TransferNeeded,
	}
	if res.TransferAmount != nil {
		cents := res.TransferAmount.Cents
		formatted := res.TransferAmount.Format()
		out.TransferAmountCents = &cents
		out.TransferAmount = &formatted
	}
	return out
}

// handleSettlement serves GET /api/settlement.
func (s *Server) handleSettlement(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	p, err := periodFromQuery(r)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	key := "settlement:" + p.String()
	if cached, ok := s.settlementCache.Get(key); ok {
		respondJSON(w, http.StatusOK, toSettlementJSON(cached))
		return
	}

	result, err := s.settlements.SettlementForPeriod(r.Context(), p)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	s.settlementCache.Set(key, result)
	respondJSON(w, http.StatusOK, toSettlementJSON(result))
}
