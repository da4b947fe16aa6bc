package payment_test

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"

	errors "github.com/frahmantamala/conference-payments/internal"
	paymentDatamodel "github.com/frahmantamala/conference-payments/internal/core/datamodel/payment"
	"github.com/frahmantamala/conference-payments/internal/core/events"
	"github.com/frahmantamala/conference-payments/internal/payment"
	"github.com/frahmantamala/conference-payments/internal/paymentgateway"
	"github.com/frahmantamala/conference-payments/internal/vertical"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("NextStatus", func() {
	DescribeTable("state machine",
		func(current string, outcome payment.Outcome, want string, transitioned bool) {
			next, changed := payment.NextStatus(current, outcome)
			Expect(next).To(Equal(want))
			Expect(changed).To(Equal(transitioned))
		},
		Entry("pending completes", paymentDatamodel.StatusPending, payment.OutcomeCompleted, paymentDatamodel.StatusCompleted, true),
		Entry("pending succeeds into completed", paymentDatamodel.StatusPending, payment.OutcomeSucceeded, paymentDatamodel.StatusCompleted, true),
		Entry("pending fails", paymentDatamodel.StatusPending, payment.OutcomeFailed, paymentDatamodel.StatusFailed, true),
		Entry("pending expires", paymentDatamodel.StatusPending, payment.OutcomeExpired, paymentDatamodel.StatusExpired, true),
		Entry("completed ignores failure", paymentDatamodel.StatusCompleted, payment.OutcomeFailed, paymentDatamodel.StatusCompleted, false),
		Entry("completed ignores expiry", paymentDatamodel.StatusCompleted, payment.OutcomeExpired, paymentDatamodel.StatusCompleted, false),
		Entry("completed restamped by success", paymentDatamodel.StatusCompleted, payment.OutcomeSucceeded, paymentDatamodel.StatusCompleted, false),
		Entry("failed overridden by success", paymentDatamodel.StatusFailed, payment.OutcomeCompleted, paymentDatamodel.StatusCompleted, true),
		Entry("expired overridden by success", paymentDatamodel.StatusExpired, payment.OutcomeSucceeded, paymentDatamodel.StatusCompleted, true),
		Entry("failed then expired", paymentDatamodel.StatusFailed, payment.OutcomeExpired, paymentDatamodel.StatusExpired, true),
		Entry("expired then failed", paymentDatamodel.StatusExpired, payment.OutcomeFailed, paymentDatamodel.StatusFailed, true),
		Entry("failed again", paymentDatamodel.StatusFailed, payment.OutcomeFailed, paymentDatamodel.StatusFailed, false),
	)

	It("should never lead back to pending", func() {
		for _, current := range []string{paymentDatamodel.StatusCompleted, paymentDatamodel.StatusFailed, paymentDatamodel.StatusExpired} {
			for _, o := range []payment.Outcome{payment.OutcomeCompleted, payment.OutcomeSucceeded, payment.OutcomeFailed, payment.OutcomeExpired} {
				next, _ := payment.NextStatus(current, o)
				Expect(next).NotTo(Equal(paymentDatamodel.StatusPending))
			}
		}
	})
})

var _ = Describe("OutcomeForEvent", func() {
	DescribeTable("event type mapping",
		func(eventType string, want payment.Outcome, handled bool) {
			o, ok := payment.OutcomeForEvent(eventType)
			Expect(ok).To(Equal(handled))
			Expect(o).To(Equal(want))
		},
		Entry("session completed", paymentgateway.EventCheckoutSessionCompleted, payment.OutcomeCompleted, true),
		Entry("async succeeded", paymentgateway.EventCheckoutSessionAsyncPaymentOK, payment.OutcomeCompleted, true),
		Entry("async failed", paymentgateway.EventCheckoutSessionAsyncPaymentFailed, payment.OutcomeFailed, true),
		Entry("session expired", paymentgateway.EventCheckoutSessionExpired, payment.OutcomeExpired, true),
		Entry("intent succeeded", paymentgateway.EventPaymentIntentSucceeded, payment.OutcomeSucceeded, true),
		Entry("intent failed", paymentgateway.EventPaymentIntentFailed, payment.OutcomeFailed, true),
		Entry("unrelated", "customer.created", payment.Outcome(""), false),
	)
})

var _ = Describe("Reconciler", func() {
	var (
		ctx        context.Context
		store      *MockStore
		publisher  *MockPublisher
		reconciler *payment.Reconciler
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = NewMockStore(vertical.Optics, paymentDatamodel.ClassRegular)
		publisher = &MockPublisher{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		reconciler = payment.NewReconciler(publisher, logger)
	})

	It("should report an absent record as unmatched", func() {
		res, err := reconciler.ApplyOutcome(ctx, store, "cs_missing", payment.BySessionID, payment.OutcomeCompleted, payment.Update{})

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Matched).To(BeFalse())
		Expect(publisher.Types()).To(BeEmpty())
	})

	It("should complete a pending record and backfill the payment intent", func() {
		// Given
		Expect(store.Save(ctx, pendingRecord("cs_test_1", nil))).To(Succeed())

		// When
		res, err := reconciler.ApplyOutcome(ctx, store, "cs_test_1", payment.BySessionID, payment.OutcomeCompleted,
			payment.Update{PaymentStatus: "paid", PaymentIntentID: "pi_1", ProviderEventID: "evt_1"})

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Matched).To(BeTrue())
		Expect(res.Transitioned).To(BeTrue())
		Expect(res.PreviousStatus).To(Equal(paymentDatamodel.StatusPending))

		rec := store.Get("cs_test_1")
		Expect(rec.Status).To(Equal(paymentDatamodel.StatusCompleted))
		Expect(rec.PaymentStatus).To(Equal("paid"))
		Expect(*rec.PaymentIntentID).To(Equal("pi_1"))

		Expect(publisher.Types()).To(Equal([]string{events.EventTypePaymentCompleted}))
		evt := publisher.Last()
		Expect(evt.Vertical).To(Equal("optics"))
		Expect(evt.PreviousStatus).To(Equal(paymentDatamodel.StatusPending))
		Expect(evt.AmountTotal).To(Equal("350.00"))
		Expect(evt.ProviderEventID).To(Equal("evt_1"))
	})

	It("should keep the first payment intent id", func() {
		Expect(store.Save(ctx, pendingRecord("cs_test_1", strPtr("pi_first")))).To(Succeed())

		_, err := reconciler.ApplyOutcome(ctx, store, "cs_test_1", payment.BySessionID, payment.OutcomeFailed,
			payment.Update{PaymentIntentID: "pi_second"})

		Expect(err).NotTo(HaveOccurred())
		Expect(*store.Get("cs_test_1").PaymentIntentID).To(Equal("pi_first"))
	})

	It("should locate records by payment intent id", func() {
		Expect(store.Save(ctx, pendingRecord("cs_test_1", strPtr("pi_1")))).To(Succeed())

		res, err := reconciler.ApplyOutcome(ctx, store, "pi_1", payment.ByPaymentIntentID, payment.OutcomeSucceeded,
			payment.Update{PaymentStatus: "succeeded"})

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Matched).To(BeTrue())
		Expect(store.Get("cs_test_1").Status).To(Equal(paymentDatamodel.StatusCompleted))
	})

	Context("when the same outcome arrives twice", func() {
		It("should leave the record unchanged apart from updatedAt and publish once", func() {
			Expect(store.Save(ctx, pendingRecord("cs_test_1", nil))).To(Succeed())
			upd := payment.Update{PaymentStatus: "paid", PaymentIntentID: "pi_1"}

			_, err := reconciler.ApplyOutcome(ctx, store, "cs_test_1", payment.BySessionID, payment.OutcomeCompleted, upd)
			Expect(err).NotTo(HaveOccurred())
			first := store.Get("cs_test_1")

			res, err := reconciler.ApplyOutcome(ctx, store, "cs_test_1", payment.BySessionID, payment.OutcomeCompleted, upd)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Transitioned).To(BeFalse())

			second := store.Get("cs_test_1")
			Expect(second.Status).To(Equal(first.Status))
			Expect(second.PaymentStatus).To(Equal(first.PaymentStatus))
			Expect(*second.PaymentIntentID).To(Equal(*first.PaymentIntentID))
			Expect(second.UpdatedAt).NotTo(BeTemporally("<", first.UpdatedAt))

			Expect(publisher.Types()).To(HaveLen(1))
		})
	})

	Context("when a completed record receives a failure", func() {
		It("should stay completed and keep the paid raw status", func() {
			rec := pendingRecord("cs_test_1", strPtr("pi_1"))
			rec.Status = paymentDatamodel.StatusCompleted
			rec.PaymentStatus = "paid"
			Expect(store.Save(ctx, rec)).To(Succeed())

			res, err := reconciler.ApplyOutcome(ctx, store, "pi_1", payment.ByPaymentIntentID, payment.OutcomeFailed,
				payment.Update{PaymentStatus: "requires_payment_method"})

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Matched).To(BeTrue())
			Expect(res.Transitioned).To(BeFalse())
			got := store.Get("cs_test_1")
			Expect(got.Status).To(Equal(paymentDatamodel.StatusCompleted))
			Expect(got.PaymentStatus).To(Equal("paid"))
			Expect(got.UpdatedAt).NotTo(BeZero())
			Expect(publisher.Types()).To(BeEmpty())
		})
	})

	Context("when the row changes between read and write", func() {
		It("should re-read and apply against the new state", func() {
			Expect(store.Save(ctx, pendingRecord("cs_test_1", nil))).To(Succeed())
			store.interfere = func(r *paymentDatamodel.PaymentRecord) {
				r.Status = paymentDatamodel.StatusFailed
				store.interfere = nil
			}

			res, err := reconciler.ApplyOutcome(ctx, store, "cs_test_1", payment.BySessionID, payment.OutcomeCompleted, payment.Update{})

			Expect(err).NotTo(HaveOccurred())
			Expect(res.PreviousStatus).To(Equal(paymentDatamodel.StatusFailed))
			Expect(store.Get("cs_test_1").Status).To(Equal(paymentDatamodel.StatusCompleted))
			Expect(store.casCalls).To(Equal(2))
		})

		It("should give up with an internal error after three lost races", func() {
			Expect(store.Save(ctx, pendingRecord("cs_test_1", nil))).To(Succeed())
			store.interfere = func(r *paymentDatamodel.PaymentRecord) {
				if r.Status == paymentDatamodel.StatusFailed {
					r.Status = paymentDatamodel.StatusExpired
				} else {
					r.Status = paymentDatamodel.StatusFailed
				}
			}

			_, err := reconciler.ApplyOutcome(ctx, store, "cs_test_1", payment.BySessionID, payment.OutcomeCompleted, payment.Update{})

			Expect(err).To(HaveOccurred())
			Expect(errors.IsType(err, errors.ErrorTypeInternal)).To(BeTrue())
			Expect(store.casCalls).To(Equal(3))
			Expect(publisher.Types()).To(BeEmpty())
		})
	})

	It("should return store failures", func() {
		store.shouldFail = true
		store.failError = stderrors.New("connection reset")

		_, err := reconciler.ApplyOutcome(ctx, store, "cs_test_1", payment.BySessionID, payment.OutcomeCompleted, payment.Update{})

		Expect(err).To(MatchError(ContainSubstring("connection reset")))
	})
})
