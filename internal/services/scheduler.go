package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lucasdreger/couplecents/internal/core"
	"github.com/lucasdreger/couplecents/internal/ports"
)

// Outcome classifies one config's reconciliation result.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// ReconcileResult is the per-config outcome of a reconciliation run.
type ReconcileResult struct {
	ConfigID      string
	TargetType    core.TargetType
	TargetID      string
	Outcome       Outcome
	Reason        string // set for skipped and failed outcomes
	PreviousValue core.Money
	NewValue      core.Money
}

// Applied reports whether the increment was applied in this run.
func (r ReconcileResult) Applied() bool {
	return r.Outcome == OutcomeApplied
}

// incrementDue is the pure precondition of the Pending -> Applied
// transition. It returns false with a reason when the config must not be
// applied for the period: inactive config, period before the config's
// creation, or watermark already at the period.
func incrementDue(cfg core.AutoIncrementConfig, p core.Period) (bool, string) {
	if !cfg.Active {
		return false, "config inactive"
	}
	if p.Before(cfg.CreationPeriod()) {
		return false, "period precedes config creation"
	}
	if cfg.AppliedFor(p) {
		return false, "already applied"
	}
	return true, ""
}

// Scheduler applies auto-increment configs to their balance targets at most
// once per period. All state lives in the store; the scheduler itself holds
// no locks and keeps no mutable state between calls.
type Scheduler struct {
	store ports.IncrementStore
	now   func() time.Time
}

// NewScheduler creates a scheduler over the given increment store.
func NewScheduler(store ports.IncrementStore) *Scheduler {
	return &Scheduler{store: store, now: time.Now}
}

// Reconcile applies one config for one period. Preconditions that fail are
// reported as Skipped, never as errors: reconciling an already-applied
// (config, period) pair is a no-op by contract. A lost race inside the
// store surfaces as core.ErrAlreadyApplied and is folded into the same
// Skipped outcome.
func (s *Scheduler) Reconcile(ctx context.Context, cfg core.AutoIncrementConfig, p core.Period) ReconcileResult {
	result := ReconcileResult{
		ConfigID:   cfg.ID,
		TargetType: cfg.TargetType,
		TargetID:   cfg.TargetID,
	}

	if due, reason := incrementDue(cfg, p); !due {
		result.Outcome = OutcomeSkipped
		result.Reason = reason
		return result
	}

	target, err := s.store.Target(ctx, cfg.TargetType, cfg.TargetID)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Reason = fmt.Sprintf("read target: %v", err)
		return result
	}

	newValue := target.CurrentValue.Add(cfg.MonthlyAmount)
	err = s.store.ApplyIncrement(ctx, ports.IncrementApplication{
		Config:        cfg,
		Period:        p,
		PreviousValue: target.CurrentValue,
		NewValue:      newValue,
		AppliedAt:     s.now(),
	})
	switch {
	case errors.Is(err, core.ErrAlreadyApplied):
		// A concurrent trigger won the (config, period) race; observing
		// Applied and doing nothing is the required behavior.
		result.Outcome = OutcomeSkipped
		result.Reason = "already applied"
		return result
	case err != nil:
		result.Outcome = OutcomeFailed
		result.Reason = fmt.Sprintf("apply increment: %v", err)
		return result
	}

	result.Outcome = OutcomeApplied
	result.PreviousValue = target.CurrentValue
	result.NewValue = newValue
	return result
}

// ReconcileAll reconciles every active config against the period,
// sequentially. One config's failure never blocks the others: outcomes are
// collected per config and the batch always completes. The returned error
// covers only the initial config listing.
func (s *Scheduler) ReconcileAll(ctx context.Context, p core.Period) ([]ReconcileResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	configs, err := s.store.ActiveConfigs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active configs: %w", err)
	}

	results := make([]ReconcileResult, 0, len(configs))
	for _, cfg := range configs {
		result := s.Reconcile(ctx, cfg, p)
		results = append(results, result)

		switch result.Outcome {
		case OutcomeApplied:
			slog.InfoContext(ctx, "Auto-increment applied",
				"config_id", cfg.ID,
				"target_type", string(cfg.TargetType),
				"target_id", cfg.TargetID,
				"period", p.String(),
				"amount_cents", cfg.MonthlyAmount.Cents,
				"new_value_cents", result.NewValue.Cents)
		case OutcomeSkipped:
			slog.DebugContext(ctx, "Auto-increment skipped",
				"config_id", cfg.ID,
				"period", p.String(),
				"reason", result.Reason)
		case OutcomeFailed:
			slog.ErrorContext(ctx, "Auto-increment failed",
				"config_id", cfg.ID,
				"period", p.String(),
				"reason", result.Reason)
		}
	}
	return results, nil
}
