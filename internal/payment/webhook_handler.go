package payment

import (
	"context"
	"io"
	"net/http"

	errors "github.com/frahmantamala/conference-payments/internal"
	paymentDatamodel "github.com/frahmantamala/conference-payments/internal/core/datamodel/payment"
	"github.com/frahmantamala/conference-payments/internal/paymentgateway"
	"github.com/frahmantamala/conference-payments/internal/transport"
	"github.com/frahmantamala/conference-payments/pkg/logger"
)

// maxWebhookBody bounds the raw payload read before verification.
const maxWebhookBody = 1 << 20

type EventParserAPI interface {
	ParseEvent(payload []byte, signatureHeader string, class paymentDatamodel.Class) (*paymentgateway.Event, error)
}

type ResolverAPI interface {
	ResolveAndApply(ctx context.Context, evt *paymentgateway.Event, outcome Outcome, scope Scope) (Resolution, error)
}

type WebhookHandler struct {
	*transport.BaseHandler
	parser   EventParserAPI
	resolver ResolverAPI
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, parser EventParserAPI, resolver ResolverAPI) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler: baseHandler,
		parser:      parser,
		resolver:    resolver,
	}
}

// HandlePaymentWebhook handles POST /payment/webhook.
func (h *WebhookHandler) HandlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, paymentDatamodel.ClassRegular, RegularScope())
}

// HandleVerticalWebhook handles POST /payment/webhook/{vertical}.
func (h *WebhookHandler) HandleVerticalWebhook(w http.ResponseWriter, r *http.Request) {
	v, err := transport.VerticalFromRequest(r)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.handle(w, r, paymentDatamodel.ClassRegular, VerticalScope(v))
}

// HandleDiscountWebhook handles POST /discounts/webhook.
func (h *WebhookHandler) HandleDiscountWebhook(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, paymentDatamodel.ClassDiscount, DiscountScope())
}

func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request, class paymentDatamodel.Class, scope Scope) {
	ctx := r.Context()
	log := logger.FromOr(ctx, h.Logger).With("class", class)

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.HandleError(w, errors.NewValidationError("unreadable webhook body", errors.ErrCodeEventParseFailed).WithCause(err))
		return
	}

	evt, err := h.parser.ParseEvent(payload, r.Header.Get(paymentgateway.SignatureHeader), class)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	outcome, ok := OutcomeForEvent(evt.Type)
	if !ok {
		log.Info("webhook event acknowledged without action", "event_id", evt.ID, "event_type", evt.Type)
		h.WriteText(w, http.StatusOK, "ok")
		return
	}

	res, err := h.resolver.ResolveAndApply(ctx, evt, outcome, scope)
	if err != nil {
		log.Error("webhook reconciliation failed", "event_id", evt.ID, "event_type", evt.Type, "error", err)
		h.HandleError(w, errors.NewInternalError("failed to apply webhook event", err))
		return
	}

	if res.Applied {
		log.Info("webhook event applied",
			"event_id", evt.ID,
			"event_type", evt.Type,
			"vertical", res.Vertical,
			"store_class", res.Class,
			"status", res.Result.Record.Status,
			"transitioned", res.Result.Transitioned)
	}
	h.WriteText(w, http.StatusOK, "ok")
}
