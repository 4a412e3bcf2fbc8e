package worker

import (
	"context"
	"testing"
	"time"

	"github.com/lucasdreger/couplecents/internal/amqp"
	"github.com/lucasdreger/couplecents/internal/core"
	"github.com/lucasdreger/couplecents/internal/services"
	"github.com/lucasdreger/couplecents/internal/storage"
)

func newWorkerFixture(t *testing.T) (*Reconciler, *storage.MemoryRepository) {
	t.Helper()
	repo := storage.NewMemoryRepository()

	err := repo.CreateTarget(context.Background(), core.BalanceTarget{
		ID:           "etf",
		Type:         core.TargetInvestment,
		Name:         "ETF",
		CurrentValue: core.NewMoney(100000),
		LastUpdated:  time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateTarget: %v", err)
	}
	err = repo.CreateConfig(context.Background(), core.AutoIncrementConfig{
		ID:            "cfg",
		TargetType:    core.TargetInvestment,
		TargetID:      "etf",
		MonthlyAmount: core.NewMoney(20000),
		Active:        true,
		CreatedAt:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateConfig: %v", err)
	}

	svc := services.NewReconcileService(services.NewScheduler(repo), nil)
	return NewReconciler(svc, time.Hour), repo
}

func TestReconcilerStartupRun(t *testing.T) {
	w, repo := newWorkerFixture(t)

	w.Start(context.Background())
	w.Stop()

	target, err := repo.Target(context.Background(), core.TargetInvestment, "etf")
	if err != nil {
		t.Fatalf("Target: %v", err)
	}
	if target.CurrentValue.Cents != 120000 {
		t.Errorf("value after startup run = %d, want 120000", target.CurrentValue.Cents)
	}
}

func TestReconcilerStopIsIdempotent(t *testing.T) {
	w, _ := newWorkerFixture(t)
	w.Start(context.Background())
	w.Stop()
	w.Stop() // must not panic or block
}

func TestHandleTrigger(t *testing.T) {
	w, repo := newWorkerFixture(t)
	ctx := context.Background()

	msg := &amqp.ReconcileTriggerMessage{Year: 2025, Month: 4}
	if err := w.HandleTrigger(ctx, msg); err != nil {
		t.Fatalf("HandleTrigger: %v", err)
	}

	target, _ := repo.Target(ctx, core.TargetInvestment, "etf")
	if target.CurrentValue.Cents != 120000 {
		t.Errorf("value = %d, want 120000", target.CurrentValue.Cents)
	}

	// Same period again: skipped, no error, value unchanged.
	if err := w.HandleTrigger(ctx, msg); err != nil {
		t.Fatalf("second HandleTrigger: %v", err)
	}
	target, _ = repo.Target(ctx, core.TargetInvestment, "etf")
	if target.CurrentValue.Cents != 120000 {
		t.Errorf("value after rerun = %d, want 120000", target.CurrentValue.Cents)
	}

	// Invalid period is dropped without error so the broker never requeues it.
	if err := w.HandleTrigger(ctx, &amqp.ReconcileTriggerMessage{Year: 2025, Month: 0}); err != nil {
		t.Errorf("invalid period trigger: %v", err)
	}
}
