package payment

import (
	"context"

	errors "github.com/frahmantamala/conference-payments/internal"
	paymentDatamodel "github.com/frahmantamala/conference-payments/internal/core/datamodel/payment"
	"github.com/frahmantamala/conference-payments/internal/paymentgateway"
	"github.com/frahmantamala/conference-payments/internal/vertical"
	"github.com/google/uuid"
)

// ManualReconcile is an operator request to apply an outcome the provider
// already reported but this service never recorded.
type ManualReconcile struct {
	SessionID       string
	PaymentIntentID string
	Outcome         Outcome
	PaymentStatus   string
	Vertical        vertical.Vertical
	Class           paymentDatamodel.Class
}

func (m ManualReconcile) event() *paymentgateway.Event {
	evt := &paymentgateway.Event{ID: "manual_" + uuid.NewString(), Type: "manual." + string(m.Outcome)}
	if m.SessionID != "" {
		evt.Session = &paymentgateway.Session{
			ID:              m.SessionID,
			PaymentStatus:   m.PaymentStatus,
			PaymentIntentID: m.PaymentIntentID,
		}
		return evt
	}
	evt.PaymentIntent = &paymentgateway.PaymentIntent{ID: m.PaymentIntentID, Status: m.PaymentStatus}
	return evt
}

func (m ManualReconcile) scope() Scope {
	var s Scope
	switch m.Class {
	case paymentDatamodel.ClassDiscount:
		s = DiscountScope()
	case paymentDatamodel.ClassRegular:
		s = Scope{Classes: []paymentDatamodel.Class{paymentDatamodel.ClassRegular}}
	default:
		s = RegularScope()
	}
	s.Vertical = m.Vertical
	return s
}

// Reconcile runs a manual request through the same search and state machine
// as a webhook. A session id is preferred when both ids are given.
func (r *Resolver) Reconcile(ctx context.Context, m ManualReconcile) (Resolution, error) {
	if m.SessionID == "" && m.PaymentIntentID == "" {
		return Resolution{}, errors.NewValidationError("session or payment intent id required", errors.ErrCodeValidationFailed)
	}
	if m.Outcome.Status() == "" {
		return Resolution{}, errors.NewValidationError("unknown outcome", errors.ErrCodeValidationFailed)
	}
	return r.ResolveAndApply(ctx, m.event(), m.Outcome, m.scope())
}
