// Package storage implements the repository port over SQLite and an
// in-memory store for tests and local development.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lucasdreger/couplecents/internal/core"
	"github.com/lucasdreger/couplecents/internal/ports"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the reference implementation of the repository port.
type SQLiteRepository struct {
	db *sql.DB
}

var _ ports.Repository = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (and if needed creates) the database at dbPath
// and runs pending migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *SQLiteRepository) IncomeEntries(ctx context.Context, p core.Period) ([]core.IncomeEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT member, main_income_cents, other_income_cents, updated_at
		FROM income_entries
		WHERE year = ? AND month = ?
		ORDER BY member`, p.Year, p.Month)
	if err != nil {
		return nil, fmt.Errorf("query income entries: %w", err)
	}
	defer rows.Close()

	var out []core.IncomeEntry
	for rows.Next() {
		var (
			member    string
			main      int64
			other     int64
			updatedAt time.Time
		)
		if err := rows.Scan(&member, &main, &other, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan income entry: %w", err)
		}
		out = append(out, core.IncomeEntry{
			Member:      core.MemberID(member),
			Period:      p,
			MainIncome:  core.NewMoney(main),
			OtherIncome: core.NewMoney(other),
			UpdatedAt:   updatedAt,
		})
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpsertIncome(ctx context.Context, entry core.IncomeEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO income_entries (member, year, month, main_income_cents, other_income_cents, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (member, year, month) DO UPDATE SET
			main_income_cents = excluded.main_income_cents,
			other_income_cents = excluded.other_income_cents,
			updated_at = excluded.updated_at`,
		string(entry.Member), entry.Period.Year, entry.Period.Month,
		entry.MainIncome.Cents, entry.OtherIncome.Cents, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert income entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) FixedExpenses(ctx context.Context) ([]core.FixedExpense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, description, estimated_amount_cents, owner, category, status_required, created_at
		FROM fixed_expenses
		ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query fixed expenses: %w", err)
	}
	defer rows.Close()

	var out []core.FixedExpense
	for rows.Next() {
		var (
			f        core.FixedExpense
			cents    int64
			owner    string
			required int
		)
		if err := rows.Scan(&f.ID, &f.Description, &cents, &owner, &f.Category, &required, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan fixed expense: %w", err)
		}
		f.EstimatedAmount = core.NewMoney(cents)
		f.Owner = core.MemberID(owner)
		f.StatusRequired = required != 0
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateFixedExpense(ctx context.Context, f core.FixedExpense) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO fixed_expenses (id, description, estimated_amount_cents, owner, category, status_required, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Description, f.EstimatedAmount.Cents, string(f.Owner), f.Category,
		boolToInt(f.StatusRequired), f.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert fixed expense: %w", err)
	}
	return nil
}

// FixedExpenseStatuses lazily creates a not-completed row for every fixed
// expense that requires confirmation, then returns the period's rows.
func (r *SQLiteRepository) FixedExpenseStatuses(ctx context.Context, p core.Period) ([]core.FixedExpenseStatus, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO fixed_expense_statuses (fixed_expense_id, year, month, completed)
		SELECT id, ?, ?, 0 FROM fixed_expenses WHERE status_required = 1`,
		p.Year, p.Month)
	if err != nil {
		return nil, fmt.Errorf("ensure status rows: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT fixed_expense_id, completed, completed_at
		FROM fixed_expense_statuses
		WHERE year = ? AND month = ?
		ORDER BY fixed_expense_id`, p.Year, p.Month)
	if err != nil {
		return nil, fmt.Errorf("query status rows: %w", err)
	}
	defer rows.Close()

	var out []core.FixedExpenseStatus
	for rows.Next() {
		var (
			st          core.FixedExpenseStatus
			completed   int
			completedAt sql.NullTime
		)
		if err := rows.Scan(&st.FixedExpenseID, &completed, &completedAt); err != nil {
			return nil, fmt.Errorf("scan status row: %w", err)
		}
		st.Period = p
		st.Completed = completed != 0
		if completedAt.Valid {
			t := completedAt.Time
			st.CompletedAt = &t
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SetFixedExpenseStatus(ctx context.Context, fixedExpenseID string, p core.Period, completed bool, at time.Time) error {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM fixed_expenses WHERE id = ?`, fixedExpenseID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check fixed expense: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("fixed expense %s: %w", fixedExpenseID, core.ErrNotFound)
	}

	var completedAt any
	if completed {
		completedAt = at.UTC()
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO fixed_expense_statuses (fixed_expense_id, year, month, completed, completed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (fixed_expense_id, year, month) DO UPDATE SET
			completed = excluded.completed,
			completed_at = excluded.completed_at`,
		fixedExpenseID, p.Year, p.Month, boolToInt(completed), completedAt)
	if err != nil {
		return fmt.Errorf("upsert status row: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) VariableExpenses(ctx context.Context, p core.Period) ([]core.VariableExpense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, description, amount_cents, date, category
		FROM variable_expenses
		WHERE year = ? AND month = ?
		ORDER BY date, id`, p.Year, p.Month)
	if err != nil {
		return nil, fmt.Errorf("query variable expenses: %w", err)
	}
	defer rows.Close()

	var out []core.VariableExpense
	for rows.Next() {
		var (
			v     core.VariableExpense
			cents int64
		)
		if err := rows.Scan(&v.ID, &v.Description, &cents, &v.Date, &v.Category); err != nil {
			return nil, fmt.Errorf("scan variable expense: %w", err)
		}
		v.Amount = core.NewMoney(cents)
		v.Period = p
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateVariableExpense(ctx context.Context, v core.VariableExpense) error {
	if err := v.Validate(); err != nil {
		return err
	}
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO variable_expenses (id, description, amount_cents, date, category, year, month)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.Description, v.Amount.Cents, v.Date, v.Category, v.Period.Year, v.Period.Month)
	if err != nil {
		return fmt.Errorf("insert variable expense: %w", err)
	}

	slog.InfoContext(ctx, "Variable expense saved",
		"id", v.ID,
		"description", v.Description,
		"amount_cents", v.Amount.Cents,
		"period", v.Period.String())
	return nil
}

func (r *SQLiteRepository) DeleteVariableExpense(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM variable_expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete variable expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete variable expense: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("variable expense %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// CreditCardBill returns the period's bill row, creating it with a zero
// amount on first access.
func (r *SQLiteRepository) CreditCardBill(ctx context.Context, p core.Period) (core.CreditCardBill, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO credit_card_bills (id, year, month, amount_cents)
		VALUES (?, ?, ?, 0)`,
		uuid.New().String(), p.Year, p.Month)
	if err != nil {
		return core.CreditCardBill{}, fmt.Errorf("ensure bill row: %w", err)
	}

	var (
		bill        core.CreditCardBill
		cents       int64
		completed   int
		completedAt sql.NullTime
	)
	err = r.db.QueryRowContext(ctx, `
		SELECT id, amount_cents, transfer_completed, transfer_completed_at
		FROM credit_card_bills
		WHERE year = ? AND month = ?`, p.Year, p.Month).
		Scan(&bill.ID, &cents, &completed, &completedAt)
	if err != nil {
		return core.CreditCardBill{}, fmt.Errorf("query bill row: %w", err)
	}

	bill.Period = p
	bill.Amount = core.NewMoney(cents)
	bill.TransferCompleted = completed != 0
	if completedAt.Valid {
		t := completedAt.Time
		bill.TransferCompletedAt = &t
	}
	return bill, nil
}

func (r *SQLiteRepository) UpdateBillAmount(ctx context.Context, p core.Period, amount core.Money) error {
	if amount.IsNegative() {
		return core.ErrInvalidAmount
	}
	if _, err := r.CreditCardBill(ctx, p); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE credit_card_bills SET amount_cents = ? WHERE year = ? AND month = ?`,
		amount.Cents, p.Year, p.Month)
	if err != nil {
		return fmt.Errorf("update bill amount: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkTransferCompleted(ctx context.Context, p core.Period, at time.Time) error {
	if _, err := r.CreditCardBill(ctx, p); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE credit_card_bills
		SET transfer_completed = 1, transfer_completed_at = ?
		WHERE year = ? AND month = ?`,
		at.UTC(), p.Year, p.Month)
	if err != nil {
		return fmt.Errorf("mark transfer completed: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ActiveConfigs(ctx context.Context) ([]core.AutoIncrementConfig, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, target_type, target_id, linked_fixed_expense_id, monthly_amount_cents,
		       last_applied_year, last_applied_month, created_at
		FROM auto_increment_configs
		WHERE active = 1
		ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query configs: %w", err)
	}
	defer rows.Close()

	var out []core.AutoIncrementConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

func scanConfig(rows *sql.Rows) (core.AutoIncrementConfig, error) {
	var (
		cfg        core.AutoIncrementConfig
		targetType string
		linked     sql.NullString
		cents      int64
		lastYear   sql.NullInt64
		lastMonth  sql.NullInt64
	)
	err := rows.Scan(&cfg.ID, &targetType, &cfg.TargetID, &linked, &cents,
		&lastYear, &lastMonth, &cfg.CreatedAt)
	if err != nil {
		return core.AutoIncrementConfig{}, fmt.Errorf("scan config: %w", err)
	}
	cfg.TargetType = core.TargetType(targetType)
	cfg.MonthlyAmount = core.NewMoney(cents)
	cfg.LinkedFixedExpenseID = linked.String
	cfg.Active = true
	if lastYear.Valid && lastMonth.Valid {
		p := core.Period{Year: int(lastYear.Int64), Month: int(lastMonth.Int64)}
		cfg.LastApplied = &p
	}
	return cfg, nil
}

func (r *SQLiteRepository) CreateConfig(ctx context.Context, cfg core.AutoIncrementConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = time.Now().UTC()
	}

	var linked any
	if cfg.LinkedFixedExpenseID != "" {
		linked = cfg.LinkedFixedExpenseID
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO auto_increment_configs
			(id, target_type, target_id, linked_fixed_expense_id, monthly_amount_cents, active, created_at)
		VALUES (?, ?, ?, ?, ?, 1, ?)`,
		cfg.ID, string(cfg.TargetType), cfg.TargetID, linked, cfg.MonthlyAmount.Cents, cfg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert config: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeactivateConfig(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE auto_increment_configs SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivate config: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate config: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("config %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) CreateTarget(ctx context.Context, target core.BalanceTarget) error {
	if err := target.Type.Validate(); err != nil {
		return err
	}
	if target.ID == "" {
		target.ID = uuid.New().String()
	}
	if target.LastUpdated.IsZero() {
		target.LastUpdated = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO balance_targets (id, type, name, current_value_cents, last_updated)
		VALUES (?, ?, ?, ?, ?)`,
		target.ID, string(target.Type), target.Name, target.CurrentValue.Cents, target.LastUpdated)
	if err != nil {
		return fmt.Errorf("insert balance target: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Target(ctx context.Context, t core.TargetType, id string) (core.BalanceTarget, error) {
	var (
		target core.BalanceTarget
		cents  int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, current_value_cents, last_updated
		FROM balance_targets
		WHERE type = ? AND id = ?`, string(t), id).
		Scan(&target.ID, &target.Name, &cents, &target.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BalanceTarget{}, fmt.Errorf("%s %s: %w", t, id, core.ErrNotFound)
	}
	if err != nil {
		return core.BalanceTarget{}, fmt.Errorf("query balance target: %w", err)
	}
	target.Type = t
	target.CurrentValue = core.NewMoney(cents)
	return target, nil
}

func (r *SQLiteRepository) Targets(ctx context.Context, t core.TargetType) ([]core.BalanceTarget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, current_value_cents, last_updated
		FROM balance_targets
		WHERE type = ?
		ORDER BY name`, string(t))
	if err != nil {
		return nil, fmt.Errorf("query balance targets: %w", err)
	}
	defer rows.Close()

	var out []core.BalanceTarget
	for rows.Next() {
		var (
			target core.BalanceTarget
			cents  int64
		)
		if err := rows.Scan(&target.ID, &target.Name, &cents, &target.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan balance target: %w", err)
		}
		target.Type = t
		target.CurrentValue = core.NewMoney(cents)
		out = append(out, target)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ValueHistory(ctx context.Context, t core.TargetType, id string, limit int) ([]core.ValueHistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, previous_value_cents, new_value_cents, source, config_id, year, month, created_at
		FROM value_history
		WHERE target_type = ? AND target_id = ?
		ORDER BY id DESC
		LIMIT ?`, string(t), id, limit)
	if err != nil {
		return nil, fmt.Errorf("query value history: %w", err)
	}
	defer rows.Close()

	var out []core.ValueHistoryEntry
	for rows.Next() {
		var (
			e        core.ValueHistoryEntry
			previous int64
			next     int64
			source   string
			configID sql.NullString
			year     sql.NullInt64
			month    sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &previous, &next, &source, &configID, &year, &month, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		e.TargetType = t
		e.TargetID = id
		e.PreviousValue = core.NewMoney(previous)
		e.NewValue = core.NewMoney(next)
		e.Source = core.HistorySource(source)
		e.ConfigID = configID.String
		if year.Valid && month.Valid {
			p := core.Period{Year: int(year.Int64), Month: int(month.Int64)}
			e.Period = &p
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ApplyIncrement performs the three increment writes inside one
// transaction. The partial unique index on (config_id, year, month) turns
// a concurrent duplicate into core.ErrAlreadyApplied.
func (r *SQLiteRepository) ApplyIncrement(ctx context.Context, app ports.IncrementApplication) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO value_history
			(target_type, target_id, previous_value_cents, new_value_cents, source, config_id, year, month, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(app.Config.TargetType), app.Config.TargetID,
		app.PreviousValue.Cents, app.NewValue.Cents,
		string(core.SourceAutoIncrement), app.Config.ID,
		app.Period.Year, app.Period.Month, app.AppliedAt.UTC())
	if isUniqueViolation(err) {
		return core.ErrAlreadyApplied
	}
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE balance_targets
		SET current_value_cents = ?, last_updated = ?
		WHERE type = ? AND id = ?`,
		app.NewValue.Cents, app.AppliedAt.UTC(),
		string(app.Config.TargetType), app.Config.TargetID)
	if err != nil {
		return fmt.Errorf("update target value: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update target value: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %s: %w", app.Config.TargetType, app.Config.TargetID, core.ErrNotFound)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE auto_increment_configs
		SET last_applied_year = ?, last_applied_month = ?
		WHERE id = ?`,
		app.Period.Year, app.Period.Month, app.Config.ID)
	if err != nil {
		return fmt.Errorf("advance watermark: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit increment: %w", err)
	}

	slog.InfoContext(ctx, "Increment applied",
		"config_id", app.Config.ID,
		"target_type", string(app.Config.TargetType),
		"target_id", app.Config.TargetID,
		"period", app.Period.String(),
		"new_value_cents", app.NewValue.Cents)
	return nil
}

// UpdateTargetValue records a manual balance change and its history entry
// in one transaction.
func (r *SQLiteRepository) UpdateTargetValue(ctx context.Context, t core.TargetType, id string, newValue core.Money, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var previous int64
	err = tx.QueryRowContext(ctx, `
		SELECT current_value_cents FROM balance_targets WHERE type = ? AND id = ?`,
		string(t), id).Scan(&previous)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", t, id, core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read current value: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE balance_targets SET current_value_cents = ?, last_updated = ? WHERE type = ? AND id = ?`,
		newValue.Cents, at.UTC(), string(t), id)
	if err != nil {
		return fmt.Errorf("update target value: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO value_history
			(target_type, target_id, previous_value_cents, new_value_cents, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(t), id, previous, newValue.Cents, string(core.SourceManual), at.UTC())
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}

	return tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
