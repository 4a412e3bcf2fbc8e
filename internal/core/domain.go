package core

import (
	"errors"
	"strings"
	"time"
)

// MemberID identifies one of the two household members.
type MemberID string

// TargetType distinguishes the two balance kinds auto-increments can point
// at.
type TargetType string

const (
	TargetInvestment TargetType = "investment"
	TargetReserve    TargetType = "reserve"
)

// HistorySource records what caused a balance change.
type HistorySource string

const (
	SourceManual        HistorySource = "manual"
	SourceAutoIncrement HistorySource = "auto_increment"
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidPeriod    = errors.New("invalid period")
	ErrEmptyDescription = errors.New("empty description")
	ErrUnknownMember    = errors.New("unknown member")
	ErrUnknownTarget    = errors.New("unknown target type")
	ErrNotFound         = errors.New("not found")

	// ErrAlreadyApplied reports that an increment for a (config, period)
	// pair was recorded before. Callers treat it as a successful no-op.
	ErrAlreadyApplied = errors.New("increment already applied for period")
)

type (
	// IncomeEntry holds one member's income for one period. A missing
	// entry counts as zero income in every aggregation.
	IncomeEntry struct {
		Member      MemberID
		Period      Period
		MainIncome  Money
		OtherIncome Money
		UpdatedAt   time.Time
	}

	// FixedExpense is a long-lived recurring obligation. It is not period
	// scoped: the current list applies to every period until edited.
	FixedExpense struct {
		ID              string
		Description     string
		EstimatedAmount Money
		Owner           MemberID
		Category        string
		StatusRequired  bool
		CreatedAt       time.Time
	}

	// FixedExpenseStatus is the monthly "paid" confirmation for a fixed
	// expense with StatusRequired set. Rows are created lazily, defaulting
	// to not completed, the first time a period is read.
	FixedExpenseStatus struct {
		FixedExpenseID string
		Period         Period
		Completed      bool
		CompletedAt    *time.Time
	}

	// VariableExpense is an ad-hoc expense inside a single period.
	VariableExpense struct {
		ID          string
		Description string
		Amount      Money
		Date        time.Time
		Category    string
		Period      Period
	}

	// CreditCardBill is the shared bill for one period. A row is created
	// with a zero amount on first access.
	CreditCardBill struct {
		ID                  string
		Period              Period
		Amount              Money
		TransferCompleted   bool
		TransferCompletedAt *time.Time
	}

	// AutoIncrementConfig describes a recurring monthly addition to a
	// balance target. LastApplied is the idempotency watermark: the config
	// is applied at most once per period, and never for periods before its
	// creation. LinkedFixedExpenseID associates the config with a fixed
	// expense for provenance only; the applied delta is always
	// MonthlyAmount, the two amounts are not synchronized.
	AutoIncrementConfig struct {
		ID                   string
		TargetType           TargetType
		TargetID             string
		LinkedFixedExpenseID string
		MonthlyAmount        Money
		LastApplied          *Period
		CreatedAt            time.Time
		Active               bool
	}

	// BalanceTarget is an investment or reserve balance.
	BalanceTarget struct {
		ID           string
		Type         TargetType
		Name         string
		CurrentValue Money
		LastUpdated  time.Time
	}

	// ValueHistoryEntry is one append-only record of a balance change.
	// NewValue - PreviousValue always equals the delta that was applied.
	ValueHistoryEntry struct {
		ID            int64
		TargetType    TargetType
		TargetID      string
		PreviousValue Money
		NewValue      Money
		Source        HistorySource
		ConfigID      string  // set for auto-increment entries
		Period        *Period // set for auto-increment entries
		Timestamp     time.Time
	}
)

// Delta returns the change this entry recorded.
func (e ValueHistoryEntry) Delta() Money {
	return e.NewValue.Sub(e.PreviousValue)
}

// CreationPeriod returns the first period the config may be applied for.
func (c AutoIncrementConfig) CreationPeriod() Period {
	return PeriodOf(c.CreatedAt)
}

// AppliedFor reports whether the watermark already covers the given period.
func (c AutoIncrementConfig) AppliedFor(p Period) bool {
	return c.LastApplied != nil && c.LastApplied.Equals(p)
}

// Validate checks a target type against the two known kinds.
func (t TargetType) Validate() error {
	switch t {
	case TargetInvestment, TargetReserve:
		return nil
	default:
		return ErrUnknownTarget
	}
}

func (f FixedExpense) Validate() error {
	if err := validateDescription(f.Description); err != nil {
		return err
	}
	if f.EstimatedAmount.IsNegative() || f.EstimatedAmount.IsZero() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(string(f.Owner)) == "" {
		return ErrUnknownMember
	}
	return nil
}

func (v VariableExpense) Validate() error {
	if err := validateDescription(v.Description); err != nil {
		return err
	}
	if v.Amount.IsNegative() || v.Amount.IsZero() {
		return ErrInvalidAmount
	}
	if err := v.Period.Validate(); err != nil {
		return err
	}
	return nil
}

func (e IncomeEntry) Validate() error {
	if strings.TrimSpace(string(e.Member)) == "" {
		return ErrUnknownMember
	}
	if err := e.Period.Validate(); err != nil {
		return err
	}
	if e.MainIncome.IsNegative() || e.OtherIncome.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (c AutoIncrementConfig) Validate() error {
	if err := c.TargetType.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.TargetID) == "" {
		return ErrNotFound
	}
	if c.MonthlyAmount.IsNegative() || c.MonthlyAmount.IsZero() {
		return ErrInvalidAmount
	}
	return nil
}

func validateDescription(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return ErrEmptyDescription
	}
	if len(s) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}
