package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lucasdreger/couplecents/internal/core"
	"github.com/lucasdreger/couplecents/internal/ports"
)

// MemoryRepository is an in-memory implementation of the repository port.
// It backs the memory data backend and the package tests. All methods are
// safe for concurrent use.
type MemoryRepository struct {
	mu sync.Mutex

	incomes   map[string]core.IncomeEntry        // member|period
	fixed     []core.FixedExpense                // insertion order
	statuses  map[string]core.FixedExpenseStatus // expense|period
	variable  map[string]core.VariableExpense    // id
	bills     map[string]core.CreditCardBill     // period
	configs   map[string]core.AutoIncrementConfig
	targets   map[string]core.BalanceTarget // type|id
	history   []core.ValueHistoryEntry
	historyID int64
}

var _ ports.Repository = (*MemoryRepository)(nil)

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		incomes:  make(map[string]core.IncomeEntry),
		statuses: make(map[string]core.FixedExpenseStatus),
		variable: make(map[string]core.VariableExpense),
		bills:    make(map[string]core.CreditCardBill),
		configs:  make(map[string]core.AutoIncrementConfig),
		targets:  make(map[string]core.BalanceTarget),
	}
}

func incomeKey(m core.MemberID, p core.Period) string {
	return string(m) + "|" + p.String()
}

func statusKey(id string, p core.Period) string {
	return id + "|" + p.String()
}

func targetKey(t core.TargetType, id string) string {
	return string(t) + "|" + id
}

func (r *MemoryRepository) IncomeEntries(_ context.Context, p core.Period) ([]core.IncomeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []core.IncomeEntry
	for _, e := range r.incomes {
		if e.Period.Equals(p) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Member < out[j].Member })
	return out, nil
}

func (r *MemoryRepository) FixedExpenses(_ context.Context) ([]core.FixedExpense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]core.FixedExpense, len(r.fixed))
	copy(out, r.fixed)
	return out, nil
}

func (r *MemoryRepository) FixedExpenseStatuses(_ context.Context, p core.Period) ([]core.FixedExpenseStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []core.FixedExpenseStatus
	for _, f := range r.fixed {
		if !f.StatusRequired {
			continue
		}
		key := statusKey(f.ID, p)
		st, ok := r.statuses[key]
		if !ok {
			st = core.FixedExpenseStatus{FixedExpenseID: f.ID, Period: p}
			r.statuses[key] = st
		}
		out = append(out, st)
	}
	return out, nil
}

func (r *MemoryRepository) VariableExpenses(_ context.Context, p core.Period) ([]core.VariableExpense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []core.VariableExpense
	for _, v := range r.variable {
		if v.Period.Equals(p) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *MemoryRepository) CreditCardBill(_ context.Context, p core.Period) (core.CreditCardBill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.billLocked(p), nil
}

func (r *MemoryRepository) billLocked(p core.Period) core.CreditCardBill {
	key := p.String()
	bill, ok := r.bills[key]
	if !ok {
		bill = core.CreditCardBill{ID: "bill-" + key, Period: p}
		r.bills[key] = bill
	}
	return bill
}

func (r *MemoryRepository) UpsertIncome(_ context.Context, entry core.IncomeEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.incomes[incomeKey(entry.Member, entry.Period)] = entry
	return nil
}

func (r *MemoryRepository) CreateFixedExpense(_ context.Context, f core.FixedExpense) error {
	if err := f.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fixed = append(r.fixed, f)
	return nil
}

func (r *MemoryRepository) SetFixedExpenseStatus(_ context.Context, fixedExpenseID string, p core.Period, completed bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	found := false
	for _, f := range r.fixed {
		if f.ID == fixedExpenseID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("fixed expense %s: %w", fixedExpenseID, core.ErrNotFound)
	}

	st := core.FixedExpenseStatus{FixedExpenseID: fixedExpenseID, Period: p, Completed: completed}
	if completed {
		st.CompletedAt = &at
	}
	r.statuses[statusKey(fixedExpenseID, p)] = st
	return nil
}

func (r *MemoryRepository) CreateVariableExpense(_ context.Context, v core.VariableExpense) error {
	if err := v.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variable[v.ID] = v
	return nil
}

func (r *MemoryRepository) DeleteVariableExpense(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.variable[id]; !ok {
		return fmt.Errorf("variable expense %s: %w", id, core.ErrNotFound)
	}
	delete(r.variable, id)
	return nil
}

func (r *MemoryRepository) UpdateBillAmount(_ context.Context, p core.Period, amount core.Money) error {
	if amount.IsNegative() {
		return core.ErrInvalidAmount
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	bill := r.billLocked(p)
	bill.Amount = amount
	r.bills[p.String()] = bill
	return nil
}

func (r *MemoryRepository) MarkTransferCompleted(_ context.Context, p core.Period, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	bill := r.billLocked(p)
	bill.TransferCompleted = true
	bill.TransferCompletedAt = &at
	r.bills[p.String()] = bill
	return nil
}

func (r *MemoryRepository) ActiveConfigs(_ context.Context) ([]core.AutoIncrementConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []core.AutoIncrementConfig
	for _, c := range r.configs {
		if c.Active {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) CreateConfig(_ context.Context, cfg core.AutoIncrementConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[cfg.ID] = cfg
	return nil
}

func (r *MemoryRepository) DeactivateConfig(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[id]
	if !ok {
		return fmt.Errorf("config %s: %w", id, core.ErrNotFound)
	}
	cfg.Active = false
	r.configs[id] = cfg
	return nil
}

func (r *MemoryRepository) Target(_ context.Context, t core.TargetType, id string) (core.BalanceTarget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.targets[targetKey(t, id)]
	if !ok {
		return core.BalanceTarget{}, fmt.Errorf("%s %s: %w", t, id, core.ErrNotFound)
	}
	return target, nil
}

func (r *MemoryRepository) Targets(_ context.Context, t core.TargetType) ([]core.BalanceTarget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []core.BalanceTarget
	for _, target := range r.targets {
		if target.Type == t {
			out = append(out, target)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CreateTarget registers an investment or reserve balance.
func (r *MemoryRepository) CreateTarget(_ context.Context, target core.BalanceTarget) error {
	if err := target.Type.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets[targetKey(target.Type, target.ID)] = target
	return nil
}

func (r *MemoryRepository) ValueHistory(_ context.Context, t core.TargetType, id string, limit int) ([]core.ValueHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []core.ValueHistoryEntry
	for i := len(r.history) - 1; i >= 0; i-- {
		e := r.history[i]
		if e.TargetType != t || e.TargetID != id {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *MemoryRepository) ApplyIncrement(_ context.Context, app ports.IncrementApplication) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Uniqueness on (config, period) is the idempotency guarantee.
	for _, e := range r.history {
		if e.ConfigID == app.Config.ID && e.Period != nil && e.Period.Equals(app.Period) {
			return core.ErrAlreadyApplied
		}
	}

	key := targetKey(app.Config.TargetType, app.Config.TargetID)
	target, ok := r.targets[key]
	if !ok {
		return fmt.Errorf("%s %s: %w", app.Config.TargetType, app.Config.TargetID, core.ErrNotFound)
	}

	target.CurrentValue = app.NewValue
	target.LastUpdated = app.AppliedAt
	r.targets[key] = target

	r.historyID++
	period := app.Period
	r.history = append(r.history, core.ValueHistoryEntry{
		ID:            r.historyID,
		TargetType:    app.Config.TargetType,
		TargetID:      app.Config.TargetID,
		PreviousValue: app.PreviousValue,
		NewValue:      app.NewValue,
		Source:        core.SourceAutoIncrement,
		ConfigID:      app.Config.ID,
		Period:        &period,
		Timestamp:     app.AppliedAt,
	})

	cfg, ok := r.configs[app.Config.ID]
	if ok {
		cfg.LastApplied = &period
		r.configs[app.Config.ID] = cfg
	}
	return nil
}

func (r *MemoryRepository) UpdateTargetValue(_ context.Context, t core.TargetType, id string, newValue core.Money, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := targetKey(t, id)
	target, ok := r.targets[key]
	if !ok {
		return fmt.Errorf("%s %s: %w", t, id, core.ErrNotFound)
	}

	previous := target.CurrentValue
	target.CurrentValue = newValue
	target.LastUpdated = at
	r.targets[key] = target

	r.historyID++
	r.history = append(r.history, core.ValueHistoryEntry{
		ID:            r.historyID,
		TargetType:    t,
		TargetID:      id,
		PreviousValue: previous,
		NewValue:      newValue,
		Source:        core.SourceManual,
		Timestamp:     at,
	})
	return nil
}

// Close satisfies the backend cleanup contract; nothing to release.
func (r *MemoryRepository) Close() error {
	return nil
}
