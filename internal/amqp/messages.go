package amqp

import (
	"encoding/json"
	"time"

	"github.com/lucasdreger/couplecents/internal/core"
)

// ReconcileTriggerMessage asks the worker to reconcile one period. It
// carries only the period; the worker loads the active configs itself.
type ReconcileTriggerMessage struct {
	Year        int       `json:"year"`
	Month       int       `json:"month"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewReconcileTriggerMessage creates a trigger for the given period.
func NewReconcileTriggerMessage(p core.Period) *ReconcileTriggerMessage {
	return &ReconcileTriggerMessage{
		Year:        p.Year,
		Month:       p.Month,
		RequestedAt: time.Now(),
	}
}

// Period returns the message's period.
func (m *ReconcileTriggerMessage) Period() core.Period {
	return core.NewPeriod(m.Year, m.Month)
}

// ToJSON converts the message to JSON bytes
func (m *ReconcileTriggerMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReconcileTriggerFromJSON creates a trigger message from JSON bytes
func ReconcileTriggerFromJSON(data []byte) (*ReconcileTriggerMessage, error) {
	var msg ReconcileTriggerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// IncrementAppliedMessage announces one applied auto-increment.
type IncrementAppliedMessage struct {
	ConfigID           string    `json:"config_id"`
	TargetType         string    `json:"target_type"`
	TargetID           string    `json:"target_id"`
	Year               int       `json:"year"`
	Month              int       `json:"month"`
	PreviousValueCents int64     `json:"previous_value_cents"`
	NewValueCents      int64     `json:"new_value_cents"`
	AppliedAt          time.Time `json:"applied_at"`
}

// NewIncrementAppliedMessage creates an applied-increment event.
func NewIncrementAppliedMessage(cfg core.AutoIncrementConfig, p core.Period, previous, newValue core.Money) *IncrementAppliedMessage {
	return &IncrementAppliedMessage{
		ConfigID:           cfg.ID,
		TargetType:         string(cfg.TargetType),
		TargetID:           cfg.TargetID,
		Year:               p.Year,
		Month:              p.Month,
		PreviousValueCents: previous.Cents,
		NewValueCents:      newValue.Cents,
		AppliedAt:          time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *IncrementAppliedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// IncrementAppliedFromJSON creates an applied-increment event from JSON bytes
func IncrementAppliedFromJSON(data []byte) (*IncrementAppliedMessage, error) {
	var msg IncrementAppliedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
