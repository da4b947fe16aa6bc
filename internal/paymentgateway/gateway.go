// Package paymentgateway talks to the card payment provider: it opens, reads
// and expires hosted checkout sessions and verifies signed webhook callbacks.
package paymentgateway

import (
	"context"
	"time"

	paymentDatamodel "github.com/frahmantamala/conference-payments/internal/core/datamodel/payment"
)

// Provider event types the reconciler acts on.
const (
	EventCheckoutSessionCompleted          = "checkout.session.completed"
	EventCheckoutSessionAsyncPaymentOK     = "checkout.session.async_payment_succeeded"
	EventCheckoutSessionAsyncPaymentFailed = "checkout.session.async_payment_failed"
	EventCheckoutSessionExpired            = "checkout.session.expired"
	EventPaymentIntentSucceeded            = "payment_intent.succeeded"
	EventPaymentIntentFailed               = "payment_intent.payment_failed"
)

// Metadata keys written on sessions and payment intents.
const (
	MetaSource          = "source"
	MetaPaymentType     = "paymentType"
	MetaVertical        = "vertical"
	MetaPricingConfigID = "pricingConfigId"
	MetaSessionID       = "sessionId"
	MetaCustomerEmail   = "customerEmail"
	MetaCustomerName    = "customerName"
	MetaCustomerPhone   = "customerPhone"
	MetaCustomerInst    = "customerInstitute"
	MetaCustomerCountry = "customerCountry"

	SourcePaymentAPI  = "payment-api"
	SourceDiscountAPI = "discount-api"

	PaymentTypeRegistration         = "registration"
	PaymentTypeDiscountRegistration = "discount-registration"
)

type Customer struct {
	Email     string
	Name      string
	Phone     string
	Institute string
	Country   string
}

// SessionRequest describes a single-item hosted checkout.
type SessionRequest struct {
	ProductName string
	AmountMinor int64
	Currency    string
	Customer    Customer
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

type Session struct {
	ID              string            `json:"id"`
	URL             string            `json:"url,omitempty"`
	Status          string            `json:"status"`
	PaymentStatus   string            `json:"payment_status"`
	PaymentIntentID string            `json:"payment_intent_id,omitempty"`
	AmountTotal     int64             `json:"amount_total"`
	Currency        string            `json:"currency"`
	CustomerEmail   string            `json:"customer_email,omitempty"`
	CreatedAt       *time.Time        `json:"created_at,omitempty"`
	ExpiresAt       *time.Time        `json:"expires_at,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

type PaymentIntent struct {
	ID       string            `json:"id"`
	Status   string            `json:"status"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Event is a verified provider callback. At most one of Session and
// PaymentIntent is set; both are nil for event types that are not handled.
type Event struct {
	ID            string
	Type          string
	Session       *Session
	PaymentIntent *PaymentIntent
}

// Metadata returns the metadata of whichever object the event carries.
func (e *Event) Metadata() map[string]string {
	switch {
	case e.Session != nil:
		return e.Session.Metadata
	case e.PaymentIntent != nil:
		return e.PaymentIntent.Metadata
	}
	return nil
}

type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	ExpireSession(ctx context.Context, sessionID string) (*Session, error)
}

type EventParser interface {
	ParseEvent(payload []byte, signatureHeader string, class paymentDatamodel.Class) (*Event, error)
}
