// Package worker runs the periodic reconciliation loop. The worker applies
// due auto-increments for the current period on a ticker, and reacts to
// on-demand triggers from the message queue.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lucasdreger/couplecents/internal/amqp"
	"github.com/lucasdreger/couplecents/internal/core"
	"github.com/lucasdreger/couplecents/internal/services"
)

// Reconciler drives scheduled and triggered reconciliation runs.
type Reconciler struct {
	service  *services.ReconcileService
	interval time.Duration
	now      func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewReconciler creates a worker that reconciles the current period every
// interval.
func NewReconciler(service *services.ReconcileService, interval time.Duration) *Reconciler {
	return &Reconciler{
		service:  service,
		interval: interval,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// Start launches the ticker loop. An immediate run happens at startup so a
// restarted worker catches up without waiting a full interval.
func (w *Reconciler) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	go func() {
		defer close(w.done)

		w.runCurrentPeriod(ctx)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.InfoContext(ctx, "Reconcile worker stopping", "reason", ctx.Err())
				return
			case <-ticker.C:
				w.runCurrentPeriod(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for the in-flight run to finish.
func (w *Reconciler) Stop() {
	w.once.Do(func() {
		if w.cancel != nil {
			w.cancel()
		}
		<-w.done
	})
}

func (w *Reconciler) runCurrentPeriod(ctx context.Context) {
	p := core.PeriodOf(w.now())
	report, err := w.service.Run(ctx, p)
	if err != nil {
		slog.ErrorContext(ctx, "Scheduled reconciliation failed",
			"period", p.String(),
			"error", err)
		return
	}
	if report.Failed > 0 {
		slog.WarnContext(ctx, "Scheduled reconciliation finished with failures",
			"period", p.String(),
			"applied", report.Applied,
			"failed", report.Failed)
	}
}

// HandleTrigger reconciles the period named in an AMQP trigger message.
// Returning an error requeues the delivery.
func (w *Reconciler) HandleTrigger(ctx context.Context, msg *amqp.ReconcileTriggerMessage) error {
	p := core.Period{Year: msg.Year, Month: msg.Month}
	if err := p.Validate(); err != nil {
		// Bad period in the message is permanent, don't requeue.
		slog.WarnContext(ctx, "Dropping trigger with invalid period",
			"year", msg.Year,
			"month", msg.Month)
		return nil
	}

	report, err := w.service.Run(ctx, p)
	if err != nil {
		return fmt.Errorf("reconcile period %s: %w", p, err)
	}

	slog.InfoContext(ctx, "Triggered reconciliation complete",
		"period", p.String(),
		"applied", report.Applied,
		"skipped", report.Skipped,
		"failed", report.Failed)
	return nil
}

// ConsumeTriggers blocks consuming trigger messages until the context is
// cancelled, reconnecting on broker failures.
func (w *Reconciler) ConsumeTriggers(ctx context.Context, client *amqp.Client, url string) error {
	return client.ConsumeTriggersWithReconnect(ctx, url, func(msg *amqp.ReconcileTriggerMessage) error {
		return w.HandleTrigger(ctx, msg)
	})
}
