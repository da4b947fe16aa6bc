package payment

import (
	"strings"
	"time"

	paymentDatamodel "github.com/frahmantamala/conference-payments/internal/core/datamodel/payment"
	registrationDatamodel "github.com/frahmantamala/conference-payments/internal/core/datamodel/registration"
	"github.com/frahmantamala/conference-payments/internal/paymentgateway"
	"github.com/shopspring/decimal"
)

// Outcome is what a provider callback reports about a payment.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeExpired   Outcome = "expired"
)

// Status is the normalised record status an outcome leads to.
func (o Outcome) Status() string {
	switch o {
	case OutcomeCompleted, OutcomeSucceeded:
		return paymentDatamodel.StatusCompleted
	case OutcomeFailed:
		return paymentDatamodel.StatusFailed
	case OutcomeExpired:
		return paymentDatamodel.StatusExpired
	}
	return ""
}

func ParseOutcome(s string) (Outcome, bool) {
	o := Outcome(strings.ToLower(strings.TrimSpace(s)))
	if o.Status() == "" {
		return "", false
	}
	return o, true
}

// OutcomeForEvent maps a provider event type to the outcome it reports.
// ok is false for event types that are acknowledged but not acted on.
func OutcomeForEvent(eventType string) (Outcome, bool) {
	switch eventType {
	case paymentgateway.EventCheckoutSessionCompleted, paymentgateway.EventCheckoutSessionAsyncPaymentOK:
		return OutcomeCompleted, true
	case paymentgateway.EventPaymentIntentSucceeded:
		return OutcomeSucceeded, true
	case paymentgateway.EventCheckoutSessionAsyncPaymentFailed, paymentgateway.EventPaymentIntentFailed:
		return OutcomeFailed, true
	case paymentgateway.EventCheckoutSessionExpired:
		return OutcomeExpired, true
	}
	return "", false
}

// NextStatus applies the record state machine. COMPLETED is never downgraded,
// a later success overrides FAILED or EXPIRED, and between FAILED and EXPIRED
// the last outcome wins. Nothing returns to PENDING.
func NextStatus(current string, o Outcome) (next string, transitioned bool) {
	if current == paymentDatamodel.StatusCompleted {
		return current, false
	}
	next = o.Status()
	if next == "" {
		return current, false
	}
	return next, next != current
}

// LookupKind names the key a record is located by.
type LookupKind string

const (
	BySessionID       LookupKind = "session"
	ByPaymentIntentID LookupKind = "payment_intent"
)

// Update carries the provider-side values applied alongside the status.
type Update struct {
	PaymentStatus   string
	PaymentIntentID string
	ProviderEventID string
}

// PaymentRecord is the API view of a stored record.
type PaymentRecord struct {
	ID                int64           `json:"id"`
	Vertical          string          `json:"vertical"`
	Class             string          `json:"class"`
	SessionID         string          `json:"sessionId"`
	PaymentIntentID   string          `json:"paymentIntentId,omitempty"`
	Status            string          `json:"status"`
	PaymentStatus     string          `json:"paymentStatus"`
	AmountTotal       decimal.Decimal `json:"amountTotal"`
	Currency          string          `json:"currency"`
	PricingConfigID   int64           `json:"pricingConfigId"`
	CustomerEmail     string          `json:"customerEmail"`
	CustomerName      string          `json:"customerName"`
	CustomerPhone     string          `json:"customerPhone,omitempty"`
	CustomerInstitute string          `json:"customerInstitute,omitempty"`
	CustomerCountry   string          `json:"customerCountry,omitempty"`
	StripeCreatedAt   *time.Time      `json:"stripeCreatedAt,omitempty"`
	StripeExpiresAt   *time.Time      `json:"stripeExpiresAt,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

func FromDataModel(store RecordStore, r *paymentDatamodel.PaymentRecord) *PaymentRecord {
	out := &PaymentRecord{
		ID:                r.ID,
		Vertical:          store.Vertical().String(),
		Class:             string(store.Class()),
		SessionID:         r.SessionID,
		Status:            r.Status,
		PaymentStatus:     r.PaymentStatus,
		AmountTotal:       r.AmountTotal,
		Currency:          r.Currency,
		PricingConfigID:   r.PricingConfigID,
		CustomerEmail:     r.CustomerEmail,
		CustomerName:      r.CustomerName,
		CustomerPhone:     r.CustomerPhone,
		CustomerInstitute: r.CustomerInstitute,
		CustomerCountry:   r.CustomerCountry,
		StripeCreatedAt:   r.StripeCreatedAt,
		StripeExpiresAt:   r.StripeExpiresAt,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if r.PaymentIntentID != nil {
		out.PaymentIntentID = *r.PaymentIntentID
	}
	return out
}

// RegistrationForm is the API view of a stored registration. Payment state
// is read from the record sharing its session id.
type RegistrationForm struct {
	ID                    int64           `json:"id"`
	Name                  string          `json:"name"`
	Email                 string          `json:"email"`
	Phone                 string          `json:"phone,omitempty"`
	InstituteOrUniversity string          `json:"instituteOrUniversity,omitempty"`
	Country               string          `json:"country,omitempty"`
	PricingConfigID       int64           `json:"pricingConfigId"`
	AmountPaid            decimal.Decimal `json:"amountPaid"`
	SessionID             string          `json:"sessionId"`
	CreatedAt             time.Time       `json:"createdAt"`
}

func registrationFromDataModel(f *registrationDatamodel.RegistrationForm) *RegistrationForm {
	return &RegistrationForm{
		ID:                    f.ID,
		Name:                  f.Name,
		Email:                 f.Email,
		Phone:                 f.Phone,
		InstituteOrUniversity: f.InstituteOrUniversity,
		Country:               f.Country,
		PricingConfigID:       f.PricingConfigID,
		AmountPaid:            f.AmountPaid,
		SessionID:             f.SessionID,
		CreatedAt:             f.CreatedAt,
	}
}
