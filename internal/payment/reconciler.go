package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/conference-payments/internal"
	paymentDatamodel "github.com/frahmantamala/conference-payments/internal/core/datamodel/payment"
	"github.com/frahmantamala/conference-payments/internal/core/events"
	"github.com/frahmantamala/conference-payments/pkg/logger"
)

const maxApplyAttempts = 3

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// ApplyResult describes what ApplyOutcome did to a record.
type ApplyResult struct {
	Matched        bool
	Transitioned   bool
	PreviousStatus string
	Record         *paymentDatamodel.PaymentRecord
}

// Reconciler applies provider outcomes to stored records. The guarded row
// update is the only serialisation point between concurrent callbacks.
type Reconciler struct {
	publisher EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewReconciler(publisher EventPublisher, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ApplyOutcome locates the record by id in store and moves it through the
// state machine. An absent record is reported as unmatched, not as an error.
func (r *Reconciler) ApplyOutcome(ctx context.Context, store RecordStore, id string, kind LookupKind, outcome Outcome, upd Update) (ApplyResult, error) {
	log := logger.FromOr(ctx, r.logger).With(
		"vertical", store.Vertical(),
		"class", store.Class(),
		"lookup", kind,
		"id", id,
		"outcome", outcome)

	for attempt := 1; attempt <= maxApplyAttempts; attempt++ {
		rec, err := find(ctx, store, id, kind)
		if err != nil {
			return ApplyResult{}, fmt.Errorf("find %s %s in %s/%s: %w", kind, id, store.Vertical(), store.Class(), err)
		}
		if rec == nil {
			return ApplyResult{}, nil
		}

		previous := rec.Status
		next, transitioned := NextStatus(rec.Status, outcome)

		changes := RecordChanges{
			Status:          next,
			PaymentStatus:   rec.PaymentStatus,
			PaymentIntentID: rec.PaymentIntentID,
			UpdatedAt:       r.now(),
		}
		// the raw status follows the outcome only when its category was kept
		if upd.PaymentStatus != "" && outcome.Status() == next {
			changes.PaymentStatus = upd.PaymentStatus
		}
		if rec.PaymentIntentID == nil && upd.PaymentIntentID != "" {
			intent := upd.PaymentIntentID
			changes.PaymentIntentID = &intent
		}

		ok, err := store.CompareAndUpdate(ctx, rec.ID, rec.Status, rec.PaymentIntentID, changes)
		if err != nil {
			return ApplyResult{}, fmt.Errorf("update record %d in %s/%s: %w", rec.ID, store.Vertical(), store.Class(), err)
		}
		if !ok {
			log.Debug("record changed concurrently, retrying", "record_id", rec.ID, "attempt", attempt)
			continue
		}

		rec.Status = changes.Status
		rec.PaymentStatus = changes.PaymentStatus
		rec.PaymentIntentID = changes.PaymentIntentID
		rec.UpdatedAt = changes.UpdatedAt

		if transitioned {
			log.Info("payment status changed", "record_id", rec.ID, "from", previous, "to", next)
			r.publish(ctx, store, rec, previous, upd.ProviderEventID)
		} else {
			log.Info("payment status restamped", "record_id", rec.ID, "status", next, "payment_status", rec.PaymentStatus)
		}

		return ApplyResult{Matched: true, Transitioned: transitioned, PreviousStatus: previous, Record: rec}, nil
	}

	return ApplyResult{}, errors.NewInternalError(
		fmt.Sprintf("record %s %s kept changing during reconciliation", kind, id), nil)
}

func (r *Reconciler) publish(ctx context.Context, store RecordStore, rec *paymentDatamodel.PaymentRecord, previous, providerEventID string) {
	if r.publisher == nil {
		return
	}
	change := events.PaymentStatusChange{
		Vertical:        store.Vertical().String(),
		Class:           string(store.Class()),
		SessionID:       rec.SessionID,
		PreviousStatus:  previous,
		Status:          rec.Status,
		AmountTotal:     rec.AmountTotal.StringFixed(2),
		Currency:        rec.Currency,
		CustomerEmail:   rec.CustomerEmail,
		ProviderEventID: providerEventID,
	}
	if rec.PaymentIntentID != nil {
		change.PaymentIntentID = *rec.PaymentIntentID
	}
	if err := r.publisher.Publish(ctx, events.NewPaymentStatusChangedEvent(change)); err != nil {
		r.logger.Error("failed to publish payment event", "session_id", rec.SessionID, "error", err)
	}
}

func find(ctx context.Context, store RecordStore, id string, kind LookupKind) (*paymentDatamodel.PaymentRecord, error) {
	if kind == ByPaymentIntentID {
		return store.FindByPaymentIntentID(ctx, id)
	}
	return store.FindBySessionID(ctx, id)
}
