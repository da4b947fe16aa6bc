package paymentgateway

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	errors "github.com/frahmantamala/conference-payments/internal"
	paymentDatamodel "github.com/frahmantamala/conference-payments/internal/core/datamodel/payment"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

const SignatureHeader = "Stripe-Signature"

// WebhookVerifier checks callback signatures with the secret of the endpoint's payment class.
type WebhookVerifier struct {
	secrets map[paymentDatamodel.Class]string
}

func NewWebhookVerifier(paymentSecret, discountSecret string) *WebhookVerifier {
	return &WebhookVerifier{
		secrets: map[paymentDatamodel.Class]string{
			paymentDatamodel.ClassRegular:  paymentSecret,
			paymentDatamodel.ClassDiscount: discountSecret,
		},
	}
}

func (v *WebhookVerifier) ParseEvent(payload []byte, signatureHeader string, class paymentDatamodel.Class) (*Event, error) {
	if signatureHeader == "" {
		return nil, errors.NewSignatureInvalidError("missing signature header", webhook.ErrNotSigned)
	}
	secret, ok := v.secrets[class]
	if !ok || secret == "" {
		return nil, errors.NewSignatureInvalidError(fmt.Sprintf("no signing secret for %s webhooks", class), nil)
	}

	evt, err := webhook.ConstructEventWithOptions(payload, signatureHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if isSignatureError(err) {
			return nil, errors.NewSignatureInvalidError("webhook signature verification failed", err)
		}
		return nil, parseError(err)
	}

	out := &Event{ID: evt.ID, Type: string(evt.Type)}
	if evt.Data == nil {
		return out, nil
	}

	switch out.Type {
	case EventCheckoutSessionCompleted,
		EventCheckoutSessionAsyncPaymentOK,
		EventCheckoutSessionAsyncPaymentFailed,
		EventCheckoutSessionExpired:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &s); err != nil {
			return nil, parseError(err)
		}
		if s.ID == "" {
			return nil, parseError(stderrors.New("checkout session without id"))
		}
		out.Session = fromStripeSession(&s)

	case EventPaymentIntentSucceeded, EventPaymentIntentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
			return nil, parseError(err)
		}
		if pi.ID == "" {
			return nil, parseError(stderrors.New("payment intent without id"))
		}
		out.PaymentIntent = &PaymentIntent{ID: pi.ID, Status: string(pi.Status), Metadata: pi.Metadata}
	}

	return out, nil
}

func isSignatureError(err error) bool {
	return stderrors.Is(err, webhook.ErrNotSigned) ||
		stderrors.Is(err, webhook.ErrNoValidSignature) ||
		stderrors.Is(err, webhook.ErrInvalidHeader) ||
		stderrors.Is(err, webhook.ErrTooOld)
}

func parseError(err error) error {
	return errors.NewValidationError("webhook payload could not be decoded", errors.ErrCodeEventParseFailed).WithCause(err)
}
