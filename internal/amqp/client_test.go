package amqp

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lucasdreger/couplecents/internal/core"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},  // capped at 30s
		{10, 30 * time.Second}, // capped at 30s
		{63, 30 * time.Second}, // shift overflow stays capped
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			result := exponentialBackoff(tt.attempt)
			if result != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, result, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"connection closed", errors.New("Exception (504) Reason: \"channel/connection is not open\""), true},
		{"unexpected EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"handler error", errors.New("reconcile failed: target missing"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestReconcileTriggerRoundTrip(t *testing.T) {
	p := core.NewPeriod(2025, 7)
	msg := NewReconcileTriggerMessage(p)

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	got, err := ReconcileTriggerFromJSON(body)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if !got.Period().Equals(p) {
		t.Errorf("Period = %v, want %v", got.Period(), p)
	}

	if _, err := ReconcileTriggerFromJSON([]byte("{not json")); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestIncrementAppliedMessage(t *testing.T) {
	cfg := core.AutoIncrementConfig{
		ID:            "cfg-1",
		TargetType:    core.TargetInvestment,
		TargetID:      "etf",
		MonthlyAmount: core.NewMoney(10000),
	}
	msg := NewIncrementAppliedMessage(cfg, core.NewPeriod(2025, 7), core.NewMoney(5000), core.NewMoney(15000))

	if msg.ConfigID != "cfg-1" || msg.TargetType != "investment" {
		t.Errorf("unexpected identity fields: %+v", msg)
	}
	if msg.NewValueCents-msg.PreviousValueCents != 10000 {
		t.Errorf("delta = %d, want 10000", msg.NewValueCents-msg.PreviousValueCents)
	}
}
