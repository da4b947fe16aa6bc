package pricing

import (
	"context"
	"net/http"
	"strconv"

	errors "github.com/frahmantamala/conference-payments/internal"
	"github.com/frahmantamala/conference-payments/internal/transport"
	"github.com/frahmantamala/conference-payments/internal/vertical"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	GetPricingConfig(ctx context.Context, v vertical.Vertical, id int64) (*PricingConfig, error)
	CreatePresentationType(ctx context.Context, v vertical.Vertical, req CreatePresentationTypeRequest) (*PresentationType, error)
	CreateAccommodation(ctx context.Context, v vertical.Vertical, req CreateAccommodationRequest) (*Accommodation, error)
	CreatePricingConfig(ctx context.Context, v vertical.Vertical, req CreatePricingConfigRequest) (*PricingConfig, error)
	UpdatePresentationTypePrice(ctx context.Context, v vertical.Vertical, id int64, req UpdatePriceRequest) (int, error)
	UpdateAccommodationPrice(ctx context.Context, v vertical.Vertical, id int64, req UpdatePriceRequest) (int, error)
	RecalculateAll(ctx context.Context, v vertical.Vertical) (int, error)
	ListPresentationTypes(ctx context.Context, v vertical.Vertical) ([]*PresentationType, error)
	ListAccommodations(ctx context.Context, v vertical.Vertical) ([]*Accommodation, error)
	DeleteAccommodation(ctx context.Context, v vertical.Vertical, id int64) error
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

func (h *Handler) CreatePresentationType(w http.ResponseWriter, r *http.Request) {
	v, err := transport.VerticalFromRequest(r)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	var req CreatePresentationTypeRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleError(w, err)
		return
	}

	p, err := h.Service.CreatePresentationType(r.Context(), v, req)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) UpdatePresentationTypePrice(w http.ResponseWriter, r *http.Request) {
	h.updatePrice(w, r, h.Service.UpdatePresentationTypePrice)
}

func (h *Handler) CreateAccommodation(w http.ResponseWriter, r *http.Request) {
	v, err := transport.VerticalFromRequest(r)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	var req CreateAccommodationRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleError(w, err)
		return
	}

	a, err := h.Service.CreateAccommodation(r.Context(), v, req)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, a)
}

func (h *Handler) UpdateAccommodationPrice(w http.ResponseWriter, r *http.Request) {
	h.updatePrice(w, r, h.Service.UpdateAccommodationPrice)
}

func (h *Handler) CreatePricingConfig(w http.ResponseWriter, r *http.Request) {
	v, err := transport.VerticalFromRequest(r)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	var req CreatePricingConfigRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleError(w, err)
		return
	}

	cfg, err := h.Service.CreatePricingConfig(r.Context(), v, req)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, cfg)
}

func (h *Handler) GetPricingConfig(w http.ResponseWriter, r *http.Request) {
	v, err := transport.VerticalFromRequest(r)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	id, err := pathID(r)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	cfg, err := h.Service.GetPricingConfig(r.Context(), v, id)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, cfg)
}

func (h *Handler) RecalculateAll(w http.ResponseWriter, r *http.Request) {
	v, err := transport.VerticalFromRequest(r)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	updated, err := h.Service.RecalculateAll(r.Context(), v)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, RecalculateResponse{Vertical: v.String(), UpdatedConfigs: updated})
}

func (h *Handler) ListPresentationTypes(w http.ResponseWriter, r *http.Request) {
	v, err := transport.VerticalFromRequest(r)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	items, err := h.Service.ListPresentationTypes(r.Context(), v)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, PresentationTypeListResponse{Vertical: v.String(), Count: len(items), PresentationTypes: items})
}

func (h *Handler) ListAccommodations(w http.ResponseWriter, r *http.Request) {
	v, err := transport.VerticalFromRequest(r)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	items, err := h.Service.ListAccommodations(r.Context(), v)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, AccommodationListResponse{Vertical: v.String(), Count: len(items), Accommodations: items})
}

func (h *Handler) DeleteAccommodation(w http.ResponseWriter, r *http.Request) {
	v, err := transport.VerticalFromRequest(r)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	id, err := pathID(r)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	if err := h.Service.DeleteAccommodation(r.Context(), v, id); err != nil {
		h.HandleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type priceUpdater func(ctx context.Context, v vertical.Vertical, id int64, req UpdatePriceRequest) (int, error)

func (h *Handler) updatePrice(w http.ResponseWriter, r *http.Request, update priceUpdater) {
	v, err := transport.VerticalFromRequest(r)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	id, err := pathID(r)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	var req UpdatePriceRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleError(w, err)
		return
	}

	updated, err := update(r.Context(), v, id, req)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, PriceUpdateResponse{UpdatedConfigs: updated})
}

func pathID(r *http.Request) (int64, error) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewValidationError("invalid id", errors.ErrCodeInvalidID)
	}
	return id, nil
}
