package payment

import (
	"context"
	"net/http"

	errors "github.com/frahmantamala/conference-payments/internal"
	paymentDatamodel "github.com/frahmantamala/conference-payments/internal/core/datamodel/payment"
	"github.com/frahmantamala/conference-payments/internal/transport"
	"github.com/frahmantamala/conference-payments/internal/vertical"
	"github.com/go-chi/chi"
	"github.com/spf13/cast"
)

type ServiceAPI interface {
	CreateCheckoutSession(ctx context.Context, v vertical.Vertical, req CheckoutRequest) (*CheckoutResponse, error)
	CreateDiscountSession(ctx context.Context, v vertical.Vertical, req CheckoutRequest) (*CheckoutResponse, error)
	GetSession(ctx context.Context, v vertical.Vertical, sessionID string) (*SessionSnapshot, error)
	ExpireSession(ctx context.Context, v vertical.Vertical, sessionID string) (*SessionSnapshot, error)
	ListPayments(ctx context.Context, v vertical.Vertical, class paymentDatamodel.Class) ([]*PaymentRecord, error)
	ListRegistrationForms(ctx context.Context, v vertical.Vertical) ([]*RegistrationForm, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// CreateCheckoutSession handles POST /payment/create-checkout-session and its per-vertical variant.
func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	h.createSession(w, r, h.Service.CreateCheckoutSession)
}

// CreateDiscountSession handles POST /discounts/create-session.
func (h *Handler) CreateDiscountSession(w http.ResponseWriter, r *http.Request) {
	h.createSession(w, r, h.Service.CreateDiscountSession)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.session(w, r, h.Service.GetSession)
}

func (h *Handler) ExpireSession(w http.ResponseWriter, r *http.Request) {
	h.session(w, r, h.Service.ExpireSession)
}

// ListPayments handles GET /admin/{vertical}/payments?class=.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	v, err := transport.VerticalFromRequest(r)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	class := paymentDatamodel.ClassRegular
	if raw := r.URL.Query().Get("class"); raw != "" {
		c, ok := paymentDatamodel.ParseClass(raw)
		if !ok {
			h.HandleError(w, errors.NewValidationFieldError("class", "class must be payment or discount", errors.ErrCodeValidationFailed))
			return
		}
		class = c
	}

	records, err := h.Service.ListPayments(r.Context(), v, class)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, PaymentListResponse{
		Vertical: v.String(),
		Class:    string(class),
		Count:    len(records),
		Payments: records,
	})
}

func (h *Handler) ListRegistrationForms(w http.ResponseWriter, r *http.Request) {
	v, err := transport.VerticalFromRequest(r)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	forms, err := h.Service.ListRegistrationForms(r.Context(), v)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, RegistrationListResponse{
		Vertical:      v.String(),
		Count:         len(forms),
		Registrations: forms,
	})
}

type sessionCreator func(ctx context.Context, v vertical.Vertical, req CheckoutRequest) (*CheckoutResponse, error)

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request, create sessionCreator) {
	v, err := transport.VerticalFromRequest(r)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	var req CheckoutRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleError(w, err)
		return
	}

	// the query parameter wins over the body
	if raw := r.URL.Query().Get("pricingConfigId"); raw != "" {
		id, err := cast.ToInt64E(raw)
		if err != nil || id <= 0 {
			h.HandleError(w, errors.NewValidationFieldError("pricingConfigId", "pricingConfigId must be a positive integer", errors.ErrCodePricingConfigIDRequired))
			return
		}
		req.PricingConfigID = id
	}

	resp, err := create(r.Context(), v, req)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

type sessionAction func(ctx context.Context, v vertical.Vertical, sessionID string) (*SessionSnapshot, error)

func (h *Handler) session(w http.ResponseWriter, r *http.Request, action sessionAction) {
	v, err := transport.VerticalFromRequest(r)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	sessionID := chi.URLParam(r, "sessionId")
	if sessionID == "" {
		h.HandleError(w, errors.NewValidationFieldError("sessionId", "sessionId is required", errors.ErrCodeValidationFailed))
		return
	}

	snapshot, err := action(r.Context(), v, sessionID)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, snapshot)
}
