package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lucasdreger/couplecents/internal/core"
	"github.com/lucasdreger/couplecents/internal/storage"
)

func seedTarget(t *testing.T, repo *storage.MemoryRepository, id string, cents int64) {
	t.Helper()
	err := repo.CreateTarget(context.Background(), core.BalanceTarget{
		ID:           id,
		Type:         core.TargetInvestment,
		Name:         id,
		CurrentValue: core.NewMoney(cents),
		LastUpdated:  time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateTarget: %v", err)
	}
}

func seedConfig(t *testing.T, repo *storage.MemoryRepository, id, targetID string, cents int64) core.AutoIncrementConfig {
	t.Helper()
	cfg := core.AutoIncrementConfig{
		ID:            id,
		TargetType:    core.TargetInvestment,
		TargetID:      targetID,
		MonthlyAmount: core.NewMoney(cents),
		Active:        true,
		CreatedAt:     time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.CreateConfig(context.Background(), cfg); err != nil {
		t.Fatalf("CreateConfig: %v", err)
	}
	return cfg
}

func TestIncrementDue(t *testing.T) {
	applied := core.NewPeriod(2025, 2)
	base := core.AutoIncrementConfig{
		ID:            "cfg",
		TargetType:    core.TargetInvestment,
		TargetID:      "etf",
		MonthlyAmount: core.NewMoney(10000),
		Active:        true,
		CreatedAt:     time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name       string
		mutate     func(c *core.AutoIncrementConfig)
		period     core.Period
		wantDue    bool
		wantReason string
	}{
		{
			name:    "fresh config is due",
			mutate:  func(*core.AutoIncrementConfig) {},
			period:  core.NewPeriod(2025, 2),
			wantDue: true,
		},
		{
			name:       "inactive config",
			mutate:     func(c *core.AutoIncrementConfig) { c.Active = false },
			period:     core.NewPeriod(2025, 2),
			wantDue:    false,
			wantReason: "config inactive",
		},
		{
			name:       "period before creation",
			mutate:     func(*core.AutoIncrementConfig) {},
			period:     core.NewPeriod(2024, 12),
			wantDue:    false,
			wantReason: "period precedes config creation",
		},
		{
			name:    "creation period itself is due",
			mutate:  func(*core.AutoIncrementConfig) {},
			period:  core.NewPeriod(2025, 1),
			wantDue: true,
		},
		{
			name:       "watermark already at period",
			mutate:     func(c *core.AutoIncrementConfig) { c.LastApplied = &applied },
			period:     core.NewPeriod(2025, 2),
			wantDue:    false,
			wantReason: "already applied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)

			due, reason := incrementDue(cfg, tt.period)
			if due != tt.wantDue {
				t.Errorf("due = %v, want %v", due, tt.wantDue)
			}
			if reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", reason, tt.wantReason)
			}
		})
	}
}

func TestReconcileAppliesOnce(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryRepository()
	seedTarget(t, repo, "etf", 100000)
	seedConfig(t, repo, "cfg-etf", "etf", 25000)

	sched := NewScheduler(repo)
	p := core.NewPeriod(2025, 3)

	first, err := sched.ReconcileAll(ctx, p)
	if err != nil {
		t.Fatalf("ReconcileAll: %v", err)
	}
	if len(first) != 1 || first[0].Outcome != OutcomeApplied {
		t.Fatalf("first run = %+v, want one applied result", first)
	}
	if first[0].NewValue.Cents != 125000 {
		t.Errorf("NewValue = %d, want 125000", first[0].NewValue.Cents)
	}

	// Second run for the same period is a clean no-op.
	second, err := sched.ReconcileAll(ctx, p)
	if err != nil {
		t.Fatalf("ReconcileAll: %v", err)
	}
	if len(second) != 1 || second[0].Outcome != OutcomeSkipped {
		t.Fatalf("second run = %+v, want one skipped result", second)
	}

	target, err := repo.Target(ctx, core.TargetInvestment, "etf")
	if err != nil {
		t.Fatalf("Target: %v", err)
	}
	if target.CurrentValue.Cents != 125000 {
		t.Errorf("target value after rerun = %d, want 125000", target.CurrentValue.Cents)
	}

	// The next period applies again on top of the new value.
	third, err := sched.ReconcileAll(ctx, p.Next())
	if err != nil {
		t.Fatalf("ReconcileAll: %v", err)
	}
	if third[0].Outcome != OutcomeApplied || third[0].NewValue.Cents != 150000 {
		t.Fatalf("next period = %+v, want applied with 150000", third[0])
	}
}

func TestReconcileAllPartialFailure(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryRepository()
	seedTarget(t, repo, "etf", 50000)
	seedTarget(t, repo, "emergency", 200000)
	seedConfig(t, repo, "cfg-a", "etf", 10000)
	seedConfig(t, repo, "cfg-b", "missing", 10000) // target never created
	seedConfig(t, repo, "cfg-c", "emergency", 5000)

	results, err := NewScheduler(repo).ReconcileAll(ctx, core.NewPeriod(2025, 3))
	if err != nil {
		t.Fatalf("ReconcileAll: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	byID := map[string]ReconcileResult{}
	for _, r := range results {
		byID[r.ConfigID] = r
	}
	if byID["cfg-a"].Outcome != OutcomeApplied {
		t.Errorf("cfg-a = %+v, want applied", byID["cfg-a"])
	}
	if byID["cfg-b"].Outcome != OutcomeFailed {
		t.Errorf("cfg-b = %+v, want failed", byID["cfg-b"])
	}
	if byID["cfg-c"].Outcome != OutcomeApplied {
		t.Errorf("cfg-c = %+v, want applied despite cfg-b failing", byID["cfg-c"])
	}
}

// Every applied increment leaves a history entry whose delta equals the
// config's monthly amount.
func TestReconcileHistoryDelta(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryRepository()
	seedTarget(t, repo, "etf", 42000)
	cfg := seedConfig(t, repo, "cfg-etf", "etf", 12345)

	sched := NewScheduler(repo)
	p := core.NewPeriod(2025, 1)
	for i := 0; i < 4; i++ {
		if _, err := sched.ReconcileAll(ctx, p); err != nil {
			t.Fatalf("ReconcileAll: %v", err)
		}
		p = p.Next()
	}

	history, err := repo.ValueHistory(ctx, core.TargetInvestment, "etf", 0)
	if err != nil {
		t.Fatalf("ValueHistory: %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("got %d history entries, want 4", len(history))
	}
	for _, e := range history {
		if e.Delta() != cfg.MonthlyAmount {
			t.Errorf("entry %d delta = %v, want %v", e.ID, e.Delta(), cfg.MonthlyAmount)
		}
		if e.Source != core.SourceAutoIncrement {
			t.Errorf("entry %d source = %q", e.ID, e.Source)
		}
		if e.ConfigID != cfg.ID {
			t.Errorf("entry %d config = %q", e.ID, e.ConfigID)
		}
	}
}

type recordingPublisher struct {
	events []core.Period
	err    error
}

func (p *recordingPublisher) PublishIncrementApplied(_ context.Context, _ core.AutoIncrementConfig, period core.Period, _, _ core.Money) error {
	p.events = append(p.events, period)
	return p.err
}

func TestReconcileServicePublishesApplied(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryRepository()
	seedTarget(t, repo, "etf", 0)
	seedConfig(t, repo, "cfg-etf", "etf", 10000)

	pub := &recordingPublisher{}
	svc := NewReconcileService(NewScheduler(repo), pub)
	p := core.NewPeriod(2025, 3)

	report, err := svc.Run(ctx, p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Applied != 1 || report.Skipped != 0 || report.Failed != 0 {
		t.Fatalf("report = %+v, want 1 applied", report)
	}
	if len(pub.events) != 1 || !pub.events[0].Equals(p) {
		t.Fatalf("published events = %v, want [%v]", pub.events, p)
	}

	// A rerun skips and publishes nothing new.
	report, err = svc.Run(ctx, p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Skipped != 1 || len(pub.events) != 1 {
		t.Fatalf("rerun report = %+v, events = %v", report, pub.events)
	}
}

func TestReconcileServicePublishErrorIsDropped(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryRepository()
	seedTarget(t, repo, "etf", 0)
	seedConfig(t, repo, "cfg-etf", "etf", 10000)

	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewReconcileService(NewScheduler(repo), pub)

	report, err := svc.Run(ctx, core.NewPeriod(2025, 3))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Applied != 1 {
		t.Fatalf("report = %+v, want the increment applied despite publish failure", report)
	}
}
