// Package ports defines the narrow repository interfaces the reconciliation
// engine reads and writes through. Implementations adapt external rows into
// the typed core entities at this boundary.
package ports

import (
	"context"
	"time"

	"github.com/lucasdreger/couplecents/internal/core"
)

type (
	// LedgerReader supplies the period-scoped snapshots the aggregation
	// and settlement calculations consume.
	LedgerReader interface {
		// IncomeEntries returns the income rows for the period, at most
		// one per member. Missing members are simply absent.
		IncomeEntries(ctx context.Context, p core.Period) ([]core.IncomeEntry, error)

		// FixedExpenses returns the full current fixed-expense list. It is
		// not period scoped; the caller applies it to whichever period it
		// is working on.
		FixedExpenses(ctx context.Context) ([]core.FixedExpense, error)

		// FixedExpenseStatuses returns the period's status rows, lazily
		// creating a not-completed row for every fixed expense that
		// requires one.
		FixedExpenseStatuses(ctx context.Context, p core.Period) ([]core.FixedExpenseStatus, error)

		// VariableExpenses returns the expenses recorded inside the period.
		VariableExpenses(ctx context.Context, p core.Period) ([]core.VariableExpense, error)

		// CreditCardBill returns the period's bill row, creating it with a
		// zero amount on first access.
		CreditCardBill(ctx context.Context, p core.Period) (core.CreditCardBill, error)
	}

	// LedgerWriter covers the simple row mutations issued from the API
	// surface.
	LedgerWriter interface {
		UpsertIncome(ctx context.Context, entry core.IncomeEntry) error
		CreateFixedExpense(ctx context.Context, f core.FixedExpense) error
		SetFixedExpenseStatus(ctx context.Context, fixedExpenseID string, p core.Period, completed bool, at time.Time) error
		CreateVariableExpense(ctx context.Context, v core.VariableExpense) error
		DeleteVariableExpense(ctx context.Context, id string) error
		UpdateBillAmount(ctx context.Context, p core.Period, amount core.Money) error
		MarkTransferCompleted(ctx context.Context, p core.Period, at time.Time) error
	}

	// IncrementStore holds auto-increment configs, their balance targets
	// and the append-only value history.
	IncrementStore interface {
		ActiveConfigs(ctx context.Context) ([]core.AutoIncrementConfig, error)
		CreateConfig(ctx context.Context, cfg core.AutoIncrementConfig) error
		// DeactivateConfig stops future application. History entries
		// already recorded are never retracted.
		DeactivateConfig(ctx context.Context, id string) error

		CreateTarget(ctx context.Context, target core.BalanceTarget) error
		Target(ctx context.Context, t core.TargetType, id string) (core.BalanceTarget, error)
		Targets(ctx context.Context, t core.TargetType) ([]core.BalanceTarget, error)
		ValueHistory(ctx context.Context, t core.TargetType, id string, limit int) ([]core.ValueHistoryEntry, error)

		// ApplyIncrement applies one auto-increment as a single atomic
		// unit: update the target value, append the history entry and
		// advance the config watermark. It returns core.ErrAlreadyApplied
		// when an entry for the same (config, period) exists, so racing
		// triggers resolve to exactly one application.
		ApplyIncrement(ctx context.Context, app IncrementApplication) error

		// UpdateTargetValue records a manual balance change together with
		// its Manual-source history entry.
		UpdateTargetValue(ctx context.Context, t core.TargetType, id string, newValue core.Money, at time.Time) error
	}

	// Repository is the full port surface; the SQLite and in-memory
	// backends implement all of it.
	Repository interface {
		LedgerReader
		LedgerWriter
		IncrementStore
	}
)

// IncrementApplication carries everything ApplyIncrement needs to perform
// the three writes atomically.
type IncrementApplication struct {
	Config        core.AutoIncrementConfig
	Period        core.Period
	PreviousValue core.Money
	NewValue      core.Money
	AppliedAt     time.Time
}
