package payment

import (
	"strings"

	errors "github.com/frahmantamala/conference-payments/internal"
	"github.com/frahmantamala/conference-payments/internal/core/common/validation"
	"github.com/frahmantamala/conference-payments/internal/paymentgateway"
)

const SupportedCurrency = "eur"

// CheckoutRequest is the registrant's checkout body. Any amount the client
// sends is not part of the contract and is never read.
type CheckoutRequest struct {
	PricingConfigID       int64  `json:"pricingConfigId"`
	Name                  string `json:"name"`
	Email                 string `json:"email"`
	Phone                 string `json:"phone"`
	InstituteOrUniversity string `json:"instituteOrUniversity"`
	Country               string `json:"country"`
	Currency              string `json:"currency"`
	ProductName           string `json:"productName"`
}

// Validate checks the fields checkout cannot proceed without and defaults the currency.
func (r *CheckoutRequest) Validate() error {
	v := validation.NewValidator()
	v.Field("pricingConfigId", r.PricingConfigID).RequiredAs(errors.ErrCodePricingConfigIDRequired)
	v.Field("email", r.Email).
		RequiredAs(errors.ErrCodeCustomerEmailRequired).
		Email(errors.ErrCodeCustomerEmailRequired).
		MaxLength(254)
	v.Field("name", r.Name).RequiredAs(errors.ErrCodeCustomerNameRequired).MaxLength(200)
	v.Field("currency", r.Currency).OneOfFold(errors.ErrCodeInvalidCurrency, SupportedCurrency)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}

	r.Email = strings.TrimSpace(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	if r.Currency == "" {
		r.Currency = SupportedCurrency
	}
	r.Currency = strings.ToLower(r.Currency)
	return nil
}

func (r *CheckoutRequest) customer() paymentgateway.Customer {
	return paymentgateway.Customer{
		Email:     r.Email,
		Name:      r.Name,
		Phone:     r.Phone,
		Institute: r.InstituteOrUniversity,
		Country:   r.Country,
	}
}

type CheckoutResponse struct {
	SessionID       string `json:"sessionId"`
	URL             string `json:"url"`
	Status          string `json:"status"`
	PaymentStatus   string `json:"paymentStatus"`
	PaymentIntentID string `json:"paymentIntentId,omitempty"`
}

// SessionSnapshot merges the provider's view of a session with the local record.
type SessionSnapshot struct {
	Session *paymentgateway.Session `json:"session"`
	Record  *PaymentRecord          `json:"record"`
}

type RegistrationListResponse struct {
	Vertical      string              `json:"vertical"`
	Count         int                 `json:"count"`
	Registrations []*RegistrationForm `json:"registrations"`
}

type PaymentListResponse struct {
	Vertical string           `json:"vertical"`
	Class    string           `json:"class"`
	Count    int              `json:"count"`
	Payments []*PaymentRecord `json:"payments"`
}
