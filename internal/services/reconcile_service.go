package services

import (
	"context"
	"log/slog"

	"github.com/lucasdreger/couplecents/internal/core"
)

// IncrementPublisher notifies interested consumers about applied
// increments. The AMQP client implements it; a nil publisher disables
// notifications without changing reconciliation behavior.
type IncrementPublisher interface {
	PublishIncrementApplied(ctx context.Context, cfg core.AutoIncrementConfig, p core.Period, previous, newValue core.Money) error
}

// ReconcileReport summarizes one reconciliation run.
type ReconcileReport struct {
	Period  core.Period
	Results []ReconcileResult
	Applied int
	Skipped int
	Failed  int
}

// ReconcileService runs scheduler batches and publishes applied-increment
// events. Publish failures are logged and dropped: the increment is already
// durably applied, and the event stream is best-effort.
type ReconcileService struct {
	scheduler *Scheduler
	publisher IncrementPublisher
}

// NewReconcileService wires a scheduler to an optional publisher.
func NewReconcileService(scheduler *Scheduler, publisher IncrementPublisher) *ReconcileService {
	return &ReconcileService{scheduler: scheduler, publisher: publisher}
}

// Run reconciles all active configs for the period and reports per-config
// outcomes.
func (s *ReconcileService) Run(ctx context.Context, p core.Period) (ReconcileReport, error) {
	results, err := s.scheduler.ReconcileAll(ctx, p)
	if err != nil {
		return ReconcileReport{}, err
	}

	report := ReconcileReport{Period: p, Results: results}
	for _, r := range results {
		switch r.Outcome {
		case OutcomeApplied:
			report.Applied++
			s.publishApplied(ctx, r, p)
		case OutcomeSkipped:
			report.Skipped++
		case OutcomeFailed:
			report.Failed++
		}
	}

	slog.InfoContext(ctx, "Reconciliation run complete",
		"period", p.String(),
		"applied", report.Applied,
		"skipped", report.Skipped,
		"failed", report.Failed)
	return report, nil
}

func (s *ReconcileService) publishApplied(ctx context.Context, r ReconcileResult, p core.Period) {
	if s.publisher == nil {
		return
	}
	cfg := core.AutoIncrementConfig{
		ID:            r.ConfigID,
		TargetType:    r.TargetType,
		TargetID:      r.TargetID,
		MonthlyAmount: r.NewValue.Sub(r.PreviousValue),
	}
	if err := s.publisher.PublishIncrementApplied(ctx, cfg, p, r.PreviousValue, r.NewValue); err != nil {
		slog.WarnContext(ctx, "Failed to publish increment event",
			"config_id", r.ConfigID,
			"period", p.String(),
			"error", err)
	}
}
