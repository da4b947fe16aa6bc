package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentCompleted = "payment.completed"
	EventTypePaymentFailed    = "payment.failed"
	EventTypePaymentExpired   = "payment.expired"
)

// PaymentEventTypes lists every payment event subscribers may register for.
var PaymentEventTypes = []string{EventTypePaymentCompleted, EventTypePaymentFailed, EventTypePaymentExpired}

// PaymentStatusChangedEvent is published once per real status transition of a payment record.
type PaymentStatusChangedEvent struct {
	BaseEvent
	Vertical        string `json:"vertical"`
	Class           string `json:"class"`
	SessionID       string `json:"session_id"`
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
	PreviousStatus  string `json:"previous_status"`
	Status          string `json:"status"`
	AmountTotal     string `json:"amount_total"`
	Currency        string `json:"currency"`
	CustomerEmail   string `json:"customer_email"`
	ProviderEventID string `json:"provider_event_id,omitempty"`
}

// PaymentStatusChange carries the fields of a transition.
type PaymentStatusChange struct {
	Vertical        string
	Class           string
	SessionID       string
	PaymentIntentID string
	PreviousStatus  string
	Status          string
	AmountTotal     string
	Currency        string
	CustomerEmail   string
	ProviderEventID string
}

// EventTypeForStatus returns the event type of a terminal status, or "" for anything else.
func EventTypeForStatus(status string) string {
	switch status {
	case "COMPLETED":
		return EventTypePaymentCompleted
	case "FAILED":
		return EventTypePaymentFailed
	case "EXPIRED":
		return EventTypePaymentExpired
	}
	return ""
}

func NewPaymentStatusChangedEvent(c PaymentStatusChange) *PaymentStatusChangedEvent {
	return &PaymentStatusChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeForStatus(c.Status),
			Timestamp: time.Now().UTC(),
			Data: map[string]interface{}{
				"vertical":          c.Vertical,
				"class":             c.Class,
				"session_id":        c.SessionID,
				"payment_intent_id": c.PaymentIntentID,
				"previous_status":   c.PreviousStatus,
				"status":            c.Status,
				"amount_total":      c.AmountTotal,
				"currency":          c.Currency,
				"customer_email":    c.CustomerEmail,
				"provider_event_id": c.ProviderEventID,
			},
		},
		Vertical:        c.Vertical,
		Class:           c.Class,
		SessionID:       c.SessionID,
		PaymentIntentID: c.PaymentIntentID,
		PreviousStatus:  c.PreviousStatus,
		Status:          c.Status,
		AmountTotal:     c.AmountTotal,
		Currency:        c.Currency,
		CustomerEmail:   c.CustomerEmail,
		ProviderEventID: c.ProviderEventID,
	}
}
