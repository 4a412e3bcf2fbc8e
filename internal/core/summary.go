package core

// MonthlySummary aggregates a period's income and expenses. The credit-card
// bill amount is surfaced for display but never counted into TotalExpenses;
// it feeds the settlement calculation instead.
type MonthlySummary struct {
	Period                Period
	TotalIncome           Money
	TotalFixedExpenses    Money
	TotalVariableExpenses Money
	TotalExpenses         Money
	CreditCardBill        Money
	Balance               Money
	// SavingsRate is Balance/TotalIncome in percent, 0 when there is no
	// income. Kept as a float because it is a presentational ratio, not an
	// amount.
	SavingsRate float64
}

// SettlementResult is the outcome of the credit-card settlement calculation
// for one period. TransferAmount is nil when no transfer is needed.
type SettlementResult struct {
	Period             Period
	PayerIncome        Money
	PayerFixedExpenses Money
	CreditCardBill     Money
	MinimumThreshold   Money
	Remaining          Money
	TransferNeeded     bool
	TransferAmount     *Money
}
