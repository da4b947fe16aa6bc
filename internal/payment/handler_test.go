package payment_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	errors "github.com/frahmantamala/conference-payments/internal"
	paymentDatamodel "github.com/frahmantamala/conference-payments/internal/core/datamodel/payment"
	"github.com/frahmantamala/conference-payments/internal/payment"
	"github.com/frahmantamala/conference-payments/internal/paymentgateway"
	"github.com/frahmantamala/conference-payments/internal/transport"
	"github.com/frahmantamala/conference-payments/internal/vertical"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"
	"github.com/stripe/stripe-go/v81/webhook"
)

const (
	paymentSecret  = "whsec_payment"
	discountSecret = "whsec_discount"
)

func routedRequest(method, target, body, verticalName string, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if verticalName != "" {
		ctx = errors.ContextWithVertical(ctx, verticalName)
	}
	return req.WithContext(ctx)
}

func signedWebhook(payload, secret string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/webhook", strings.NewReader(payload))
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: time.Now(),
	})
	req.Header.Set(paymentgateway.SignatureHeader, signed.Header)
	return req
}

func sessionPayload(eventID, eventType, sessionID, intentID string, meta string) string {
	return fmt.Sprintf(`{
  "id": %q,
  "object": "event",
  "type": %q,
  "data": {"object": {
    "id": %q,
    "object": "checkout.session",
    "payment_intent": %q,
    "status": "complete",
    "payment_status": "paid",
    "amount_total": 35000,
    "currency": "eur",
    "metadata": %s
  }}
}`, eventID, eventType, sessionID, intentID, meta)
}

func intentPayload(eventID, eventType, intentID, status, meta string) string {
	return fmt.Sprintf(`{
  "id": %q,
  "object": "event",
  "type": %q,
  "data": {"object": {
    "id": %q,
    "object": "payment_intent",
    "status": %q,
    "metadata": %s
  }}
}`, eventID, eventType, intentID, status, meta)
}

type failingResolver struct{}

func (failingResolver) ResolveAndApply(ctx context.Context, evt *paymentgateway.Event, outcome payment.Outcome, scope payment.Scope) (payment.Resolution, error) {
	return payment.Resolution{}, stderrors.New("database is down")
}

var _ = Describe("Payment Handler", func() {
	var (
		f       *serviceFixture
		handler *payment.Handler
	)

	BeforeEach(func() {
		f = newServiceFixture()
		f.pricing.Add(vertical.Optics, 42, "350.00")
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		handler = payment.NewHandler(&transport.BaseHandler{Logger: slogger}, f.service)
	})

	It("should take the pricing config from the query and ignore a client amount", func() {
		w := httptest.NewRecorder()
		body := `{"name":"Ada Lovelace","email":"ada@example.org","amount":1}`
		handler.CreateCheckoutSession(w, routedRequest(http.MethodPost, "/api/v1/payment/create-checkout-session?pricingConfigId=42", body, "optics", nil))

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp payment.CheckoutResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.SessionID).To(Equal("cs_test_1"))
		Expect(f.gateway.LastRequest().AmountMinor).To(Equal(int64(35000)))
	})

	It("should reject a non numeric pricingConfigId", func() {
		w := httptest.NewRecorder()
		handler.CreateCheckoutSession(w, routedRequest(http.MethodPost, "/?pricingConfigId=abc", `{"name":"A","email":"a@b.org"}`, "optics", nil))

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring("pricing_config_id_required"))
	})

	It("should report validation codes", func() {
		w := httptest.NewRecorder()
		handler.CreateCheckoutSession(w, routedRequest(http.MethodPost, "/?pricingConfigId=42", `{"name":"Ada","currency":"usd"}`, "optics", nil))

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring("customer_email_required"))
		Expect(w.Body.String()).To(ContainSubstring("invalid_currency_only_eur_supported"))
	})

	It("should return 404 for a missing pricing config", func() {
		w := httptest.NewRecorder()
		handler.CreateCheckoutSession(w, routedRequest(http.MethodPost, "/?pricingConfigId=7", `{"name":"Ada","email":"ada@example.org"}`, "optics", nil))

		Expect(w.Code).To(Equal(http.StatusNotFound))
		Expect(w.Body.String()).To(ContainSubstring("pricing_config_not_found"))
	})

	It("should return 502 when the provider fails", func() {
		f.gateway.createErr = errors.NewPaymentProviderError("checkout session could not be created", nil)
		w := httptest.NewRecorder()
		handler.CreateCheckoutSession(w, routedRequest(http.MethodPost, "/?pricingConfigId=42", `{"name":"Ada","email":"ada@example.org"}`, "optics", nil))

		Expect(w.Code).To(Equal(http.StatusBadGateway))
		Expect(w.Body.String()).To(ContainSubstring("payment_provider_error"))
	})

	It("should reject a request without a resolved vertical", func() {
		w := httptest.NewRecorder()
		handler.CreateCheckoutSession(w, routedRequest(http.MethodPost, "/?pricingConfigId=42", `{}`, "", nil))

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring("unknown_vertical"))
	})

	It("should return 409 when expiring a completed session", func() {
		resp, err := f.service.CreateCheckoutSession(context.Background(), vertical.Optics, validRequest())
		Expect(err).NotTo(HaveOccurred())
		store := f.ms.Store(vertical.Optics, paymentDatamodel.ClassRegular)
		rec := store.Get(resp.SessionID)
		rec.Status = paymentDatamodel.StatusCompleted
		Expect(store.Save(context.Background(), rec)).To(Succeed())

		w := httptest.NewRecorder()
		handler.ExpireSession(w, routedRequest(http.MethodPost, "/", "", "optics", map[string]string{"sessionId": resp.SessionID}))

		Expect(w.Code).To(Equal(http.StatusConflict))
		Expect(w.Body.String()).To(ContainSubstring("session_already_completed"))
	})

	It("should list payments by class", func() {
		_, err := f.service.CreateDiscountSession(context.Background(), vertical.Optics, validRequest())
		Expect(err).NotTo(HaveOccurred())

		w := httptest.NewRecorder()
		handler.ListPayments(w, routedRequest(http.MethodGet, "/?class=discount", "", "optics", nil))

		Expect(w.Code).To(Equal(http.StatusOK))
		var list payment.PaymentListResponse
		Expect(json.NewDecoder(w.Body).Decode(&list)).To(Succeed())
		Expect(list.Class).To(Equal("discount"))
		Expect(list.Count).To(Equal(1))
	})

	It("should list the registration forms of a vertical", func() {
		_, err := f.service.CreateCheckoutSession(context.Background(), vertical.Optics, validRequest())
		Expect(err).NotTo(HaveOccurred())
		_, err = f.service.CreateDiscountSession(context.Background(), vertical.Optics, validRequest())
		Expect(err).NotTo(HaveOccurred())

		w := httptest.NewRecorder()
		handler.ListRegistrationForms(w, routedRequest(http.MethodGet, "/", "", "optics", nil))

		Expect(w.Code).To(Equal(http.StatusOK))
		var list payment.RegistrationListResponse
		Expect(json.NewDecoder(w.Body).Decode(&list)).To(Succeed())
		Expect(list.Vertical).To(Equal("optics"))
		Expect(list.Count).To(Equal(1))
		Expect(list.Registrations[0].SessionID).To(Equal("cs_test_1"))
		Expect(list.Registrations[0].AmountPaid.StringFixed(2)).To(Equal("350.00"))

		w = httptest.NewRecorder()
		handler.ListRegistrationForms(w, routedRequest(http.MethodGet, "/", "", "nursing", nil))
		Expect(json.NewDecoder(w.Body).Decode(&list)).To(Succeed())
		Expect(list.Count).To(BeZero())
	})

	It("should reject an unknown class", func() {
		w := httptest.NewRecorder()
		handler.ListPayments(w, routedRequest(http.MethodGet, "/?class=gift", "", "optics", nil))
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})

var _ = Describe("Webhook Handler", func() {
	var (
		ctx      context.Context
		f        *serviceFixture
		webhooks *payment.WebhookHandler
		slogger  *slog.Logger
	)

	BeforeEach(func() {
		ctx = context.Background()
		f = newServiceFixture()
		f.pricing.Add(vertical.Optics, 42, "350.00")
		slogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		resolver := payment.NewResolver(f.ms.set, payment.NewReconciler(f.publisher, slogger), slogger)
		webhooks = payment.NewWebhookHandler(&transport.BaseHandler{Logger: slogger},
			paymentgateway.NewWebhookVerifier(paymentSecret, discountSecret), resolver)
	})

	deliver := func(handle http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		handle(w, req)
		return w
	}

	Describe("checkout to completion", func() {
		It("should complete the optics record opened for pricing config 42", func() {
			// Given a checkout from the optics frontend
			resp, err := f.service.CreateCheckoutSession(ctx, vertical.Optics, validRequest())
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.SessionID).To(Equal("cs_test_1"))
			Expect(f.gateway.LastRequest().AmountMinor).To(Equal(int64(35000)))

			// When the signed completion arrives
			payload := sessionPayload("evt_1", "checkout.session.completed", "cs_test_1", "pi_1", `{"vertical":"optics","source":"payment-api"}`)
			w := deliver(webhooks.HandlePaymentWebhook, signedWebhook(payload, paymentSecret))

			// Then
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(HavePrefix("text/plain"))

			rec := f.ms.Store(vertical.Optics, paymentDatamodel.ClassRegular).Get("cs_test_1")
			Expect(rec.Status).To(Equal(paymentDatamodel.StatusCompleted))
			Expect(rec.PaymentStatus).To(Equal("paid"))
			Expect(*rec.PaymentIntentID).To(Equal("pi_1"))
			Expect(rec.AmountTotal.StringFixed(2)).To(Equal("350.00"))

			for _, v := range []vertical.Vertical{vertical.Nursing, vertical.Renewable, vertical.Polymers} {
				Expect(f.ms.Store(v, paymentDatamodel.ClassRegular).Count()).To(Equal(0))
			}
		})

		It("should leave the record unchanged when the same event is delivered twice", func() {
			_, err := f.service.CreateCheckoutSession(ctx, vertical.Optics, validRequest())
			Expect(err).NotTo(HaveOccurred())
			payload := sessionPayload("evt_1", "checkout.session.completed", "cs_test_1", "pi_1", `{}`)

			Expect(deliver(webhooks.HandlePaymentWebhook, signedWebhook(payload, paymentSecret)).Code).To(Equal(http.StatusOK))
			first := f.ms.Store(vertical.Optics, paymentDatamodel.ClassRegular).Get("cs_test_1")

			Expect(deliver(webhooks.HandlePaymentWebhook, signedWebhook(payload, paymentSecret)).Code).To(Equal(http.StatusOK))
			second := f.ms.Store(vertical.Optics, paymentDatamodel.ClassRegular).Get("cs_test_1")

			Expect(second.Status).To(Equal(first.Status))
			Expect(second.PaymentStatus).To(Equal(first.PaymentStatus))
			Expect(*second.PaymentIntentID).To(Equal(*first.PaymentIntentID))
			Expect(f.publisher.Types()).To(HaveLen(1))
		})
	})

	Describe("success and failure in either order", func() {
		var success, failure string

		BeforeEach(func() {
			_, err := f.service.CreateCheckoutSession(ctx, vertical.Optics, validRequest())
			Expect(err).NotTo(HaveOccurred())
			success = sessionPayload("evt_ok", "checkout.session.completed", "cs_test_1", "pi_1", `{}`)
			failure = intentPayload("evt_ko", "payment_intent.payment_failed", "pi_1", "requires_payment_method", `{"sessionId":"cs_test_1"}`)
		})

		It("should end COMPLETED when the failure arrives first", func() {
			Expect(deliver(webhooks.HandlePaymentWebhook, signedWebhook(failure, paymentSecret)).Code).To(Equal(http.StatusOK))
			Expect(f.ms.Store(vertical.Optics, paymentDatamodel.ClassRegular).Get("cs_test_1").Status).To(Equal(paymentDatamodel.StatusFailed))

			Expect(deliver(webhooks.HandlePaymentWebhook, signedWebhook(success, paymentSecret)).Code).To(Equal(http.StatusOK))
			Expect(f.ms.Store(vertical.Optics, paymentDatamodel.ClassRegular).Get("cs_test_1").Status).To(Equal(paymentDatamodel.StatusCompleted))
		})

		It("should end COMPLETED when the success arrives first", func() {
			Expect(deliver(webhooks.HandlePaymentWebhook, signedWebhook(success, paymentSecret)).Code).To(Equal(http.StatusOK))
			Expect(deliver(webhooks.HandlePaymentWebhook, signedWebhook(failure, paymentSecret)).Code).To(Equal(http.StatusOK))

			rec := f.ms.Store(vertical.Optics, paymentDatamodel.ClassRegular).Get("cs_test_1")
			Expect(rec.Status).To(Equal(paymentDatamodel.StatusCompleted))
			Expect(rec.PaymentStatus).To(Equal("paid"))
		})
	})

	Describe("session completion and intent success in either order", func() {
		var (
			completed, succeeded string
			logs                 *gbytes.Buffer
			hooks                *payment.WebhookHandler
		)

		BeforeEach(func() {
			_, err := f.service.CreateCheckoutSession(ctx, vertical.Optics, validRequest())
			Expect(err).NotTo(HaveOccurred())
			completed = sessionPayload("evt_cs", "checkout.session.completed", "cs_test_1", "pi_1", `{}`)
			succeeded = intentPayload("evt_pi", "payment_intent.succeeded", "pi_1", "succeeded", `{}`)

			logs = gbytes.NewBuffer()
			lg := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelWarn}))
			resolver := payment.NewResolver(f.ms.set, payment.NewReconciler(f.publisher, lg), lg)
			hooks = payment.NewWebhookHandler(&transport.BaseHandler{Logger: lg},
				paymentgateway.NewWebhookVerifier(paymentSecret, discountSecret), resolver)
		})

		It("should converge when the intent arrives before the session", func() {
			// Given the record does not know pi_1 yet
			store := f.ms.Store(vertical.Optics, paymentDatamodel.ClassRegular)
			Expect(store.Get("cs_test_1").PaymentIntentID).To(BeNil())

			// When the intent success arrives first
			w := deliver(hooks.HandlePaymentWebhook, signedWebhook(succeeded, paymentSecret))

			// Then it is acknowledged as a logged miss
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(logs).To(gbytes.Say("reconciliation miss"))
			Expect(store.Get("cs_test_1").Status).To(Equal(paymentDatamodel.StatusPending))

			// When the session completion and a redelivered intent follow
			Expect(deliver(hooks.HandlePaymentWebhook, signedWebhook(completed, paymentSecret)).Code).To(Equal(http.StatusOK))
			Expect(deliver(hooks.HandlePaymentWebhook, signedWebhook(succeeded, paymentSecret)).Code).To(Equal(http.StatusOK))

			// Then
			rec := store.Get("cs_test_1")
			Expect(rec.Status).To(Equal(paymentDatamodel.StatusCompleted))
			Expect(*rec.PaymentIntentID).To(Equal("pi_1"))
			Expect(store.Count()).To(Equal(1))
			Expect(f.publisher.Types()).To(HaveLen(1))
		})

		It("should converge when the session arrives before the intent", func() {
			Expect(deliver(hooks.HandlePaymentWebhook, signedWebhook(completed, paymentSecret)).Code).To(Equal(http.StatusOK))
			Expect(deliver(hooks.HandlePaymentWebhook, signedWebhook(succeeded, paymentSecret)).Code).To(Equal(http.StatusOK))

			rec := f.ms.Store(vertical.Optics, paymentDatamodel.ClassRegular).Get("cs_test_1")
			Expect(rec.Status).To(Equal(paymentDatamodel.StatusCompleted))
			Expect(*rec.PaymentIntentID).To(Equal("pi_1"))
			Expect(rec.PaymentStatus).To(Equal("succeeded"))
			Expect(f.publisher.Types()).To(HaveLen(1))
			Expect(logs).NotTo(gbytes.Say("reconciliation miss"))
		})
	})

	Describe("signature gate", func() {
		BeforeEach(func() {
			_, err := f.service.CreateCheckoutSession(ctx, vertical.Optics, validRequest())
			Expect(err).NotTo(HaveOccurred())
		})

		It("should reject a missing signature without touching a store", func() {
			payload := sessionPayload("evt_1", "checkout.session.completed", "cs_test_1", "pi_1", `{}`)
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
			before := f.ms.TotalLookups()

			w := deliver(webhooks.HandlePaymentWebhook, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(w.Body.String()).To(ContainSubstring("signature_invalid"))
			Expect(f.ms.TotalLookups()).To(Equal(before))
		})

		It("should reject a tampered payload", func() {
			payload := sessionPayload("evt_1", "checkout.session.completed", "cs_test_1", "pi_1", `{}`)
			req := signedWebhook(payload, paymentSecret)
			tampered := strings.Replace(payload, "cs_test_1", "cs_test_2", 1)
			req.Body = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tampered)).Body

			w := deliver(webhooks.HandlePaymentWebhook, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(f.ms.Store(vertical.Optics, paymentDatamodel.ClassRegular).Get("cs_test_1").Status).To(Equal(paymentDatamodel.StatusPending))
		})

		It("should reject a regular payload on the discount endpoint", func() {
			payload := sessionPayload("evt_1", "checkout.session.completed", "cs_test_1", "pi_1", `{}`)

			w := deliver(webhooks.HandleDiscountWebhook, signedWebhook(payload, paymentSecret))

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("should reject a payload that is not an event", func() {
			payload := `{"id": 12, "type": [}`

			w := deliver(webhooks.HandlePaymentWebhook, signedWebhook(payload, paymentSecret))

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("discount endpoint", func() {
		It("should apply to the discount store only", func() {
			resp, err := f.service.CreateDiscountSession(ctx, vertical.Optics, validRequest())
			Expect(err).NotTo(HaveOccurred())
			payload := sessionPayload("evt_1", "checkout.session.completed", resp.SessionID, "pi_d", `{"source":"discount-api"}`)

			w := deliver(webhooks.HandleDiscountWebhook, signedWebhook(payload, discountSecret))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(f.ms.Store(vertical.Optics, paymentDatamodel.ClassDiscount).Get(resp.SessionID).Status).To(Equal(paymentDatamodel.StatusCompleted))
		})
	})

	Describe("per-vertical endpoint", func() {
		It("should search the path vertical first", func() {
			Expect(f.ms.Store(vertical.Polymers, paymentDatamodel.ClassRegular).Save(ctx, pendingRecord("cs_poly", nil))).To(Succeed())
			payload := sessionPayload("evt_1", "checkout.session.expired", "cs_poly", "", `{}`)
			req := signedWebhook(payload, paymentSecret)
			req = req.WithContext(errors.ContextWithVertical(req.Context(), "polymers"))

			w := deliver(webhooks.HandleVerticalWebhook, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(f.ms.TotalLookups()).To(Equal(1))
			Expect(f.ms.Store(vertical.Polymers, paymentDatamodel.ClassRegular).Get("cs_poly").Status).To(Equal(paymentDatamodel.StatusExpired))
		})
	})

	It("should acknowledge an unmatched event with 200", func() {
		payload := sessionPayload("evt_1", "checkout.session.completed", "cs_unknown", "pi_unknown", `{}`)

		w := deliver(webhooks.HandlePaymentWebhook, signedWebhook(payload, paymentSecret))

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(Equal("ok"))
	})

	It("should acknowledge unhandled event types without searching", func() {
		payload := `{"id":"evt_3","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`

		w := deliver(webhooks.HandlePaymentWebhook, signedWebhook(payload, paymentSecret))

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(f.ms.TotalLookups()).To(Equal(0))
	})

	It("should return 500 when a store fails so the provider retries", func() {
		failing := payment.NewWebhookHandler(&transport.BaseHandler{Logger: slogger},
			paymentgateway.NewWebhookVerifier(paymentSecret, discountSecret), failingResolver{})
		payload := sessionPayload("evt_1", "checkout.session.completed", "cs_test_1", "pi_1", `{}`)

		w := deliver(failing.HandlePaymentWebhook, signedWebhook(payload, paymentSecret))

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
	})
})
