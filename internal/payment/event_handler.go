package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/conference-payments/internal/core/events"
)

// EventHandler records every payment status transition in the audit log.
type EventHandler struct {
	logger *slog.Logger
}

func NewEventHandler(logger *slog.Logger) *EventHandler {
	return &EventHandler{logger: logger}
}

func (h *EventHandler) HandlePaymentStatusChanged(ctx context.Context, event events.Event) error {
	changed, ok := event.(*events.PaymentStatusChangedEvent)
	if !ok {
		h.logger.Error("invalid event type for payment status handler", "event_type", event.EventType())
		return fmt.Errorf("expected PaymentStatusChangedEvent, got %T", event)
	}

	h.logger.InfoContext(ctx, "payment status transition",
		"event_id", changed.EventID(),
		"event_type", changed.EventType(),
		"vertical", changed.Vertical,
		"class", changed.Class,
		"session_id", changed.SessionID,
		"payment_intent_id", changed.PaymentIntentID,
		"from", changed.PreviousStatus,
		"to", changed.Status,
		"amount_total", changed.AmountTotal,
		"currency", changed.Currency,
		"provider_event_id", changed.ProviderEventID)
	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	for _, t := range events.PaymentEventTypes {
		eventBus.Subscribe(t, h.HandlePaymentStatusChanged)
	}

	h.logger.Info("payment event handlers registered", "handlers", events.PaymentEventTypes)
}
