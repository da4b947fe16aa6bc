package pricing_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	errors "github.com/frahmantamala/conference-payments/internal"
	"github.com/frahmantamala/conference-payments/internal/pricing"
	"github.com/frahmantamala/conference-payments/internal/transport"
	"github.com/frahmantamala/conference-payments/internal/vertical"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func adminRequest(method, target, body, verticalName string, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = errors.ContextWithVertical(ctx, verticalName)
	return req.WithContext(ctx)
}

var _ = Describe("Pricing Handler", func() {
	var (
		repo    *MockRepository
		handler *pricing.Handler
	)

	BeforeEach(func() {
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		repo = NewMockRepository()
		service := pricing.NewService(map[vertical.Vertical]pricing.RepositoryAPI{vertical.Optics: repo}, slogger)
		handler = pricing.NewHandler(&transport.BaseHandler{Logger: slogger}, service)
	})

	It("should create a pricing config with a server computed total", func() {
		w := httptest.NewRecorder()
		handler.CreatePresentationType(w, adminRequest(http.MethodPost, "/", `{"type":"oral","price":"150.00"}`, "optics", nil))
		Expect(w.Code).To(Equal(http.StatusCreated))

		var p pricing.PresentationType
		Expect(json.NewDecoder(w.Body).Decode(&p)).To(Succeed())

		w = httptest.NewRecorder()
		body := `{"presentation_type_id":` + jsonInt(p.ID) + `,"processing_fee_percent":"10","total_price":"1.00"}`
		handler.CreatePricingConfig(w, adminRequest(http.MethodPost, "/", body, "optics", nil))
		Expect(w.Code).To(Equal(http.StatusCreated))

		var cfg pricing.PricingConfig
		Expect(json.NewDecoder(w.Body).Decode(&cfg)).To(Succeed())
		Expect(cfg.TotalPrice.StringFixed(2)).To(Equal("165.00"))
	})

	It("should return 404 for an unknown pricing config", func() {
		w := httptest.NewRecorder()
		handler.GetPricingConfig(w, adminRequest(http.MethodGet, "/", "", "optics", map[string]string{"id": "42"}))

		Expect(w.Code).To(Equal(http.StatusNotFound))
		Expect(w.Body.String()).To(ContainSubstring("pricing_config_not_found"))
	})

	It("should reject a non numeric id", func() {
		w := httptest.NewRecorder()
		handler.UpdatePresentationTypePrice(w, adminRequest(http.MethodPut, "/", `{"price":"1"}`, "optics", map[string]string{"id": "abc"}))
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("should reject an unknown vertical", func() {
		w := httptest.NewRecorder()
		handler.RecalculateAll(w, adminRequest(http.MethodPost, "/", "", "geology", nil))

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring("unknown_vertical"))
	})

	It("should report how many configs were recalculated", func() {
		w := httptest.NewRecorder()
		handler.RecalculateAll(w, adminRequest(http.MethodPost, "/", "", "optics", nil))
		Expect(w.Code).To(Equal(http.StatusOK))

		var resp pricing.RecalculateResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Vertical).To(Equal("optics"))
		Expect(resp.UpdatedConfigs).To(Equal(0))
	})

	It("should answer 409 when deleting an accommodation a config uses", func() {
		// Given
		w := httptest.NewRecorder()
		handler.CreatePresentationType(w, adminRequest(http.MethodPost, "/", `{"type":"oral","price":"150.00"}`, "optics", nil))
		var p pricing.PresentationType
		Expect(json.NewDecoder(w.Body).Decode(&p)).To(Succeed())

		w = httptest.NewRecorder()
		handler.CreateAccommodation(w, adminRequest(http.MethodPost, "/", `{"nights":2,"guests":1,"price":"200.00"}`, "optics", nil))
		var a pricing.Accommodation
		Expect(json.NewDecoder(w.Body).Decode(&a)).To(Succeed())

		w = httptest.NewRecorder()
		body := `{"presentation_type_id":` + jsonInt(p.ID) + `,"accommodation_id":` + jsonInt(a.ID) + `}`
		handler.CreatePricingConfig(w, adminRequest(http.MethodPost, "/", body, "optics", nil))
		Expect(w.Code).To(Equal(http.StatusCreated))

		// When
		w = httptest.NewRecorder()
		handler.DeleteAccommodation(w, adminRequest(http.MethodDelete, "/", "", "optics", map[string]string{"id": jsonInt(a.ID)}))

		// Then
		Expect(w.Code).To(Equal(http.StatusConflict))
		Expect(w.Body.String()).To(ContainSubstring("accommodation_in_use"))

		w = httptest.NewRecorder()
		handler.ListAccommodations(w, adminRequest(http.MethodGet, "/", "", "optics", nil))
		Expect(w.Code).To(Equal(http.StatusOK))
		var list pricing.AccommodationListResponse
		Expect(json.NewDecoder(w.Body).Decode(&list)).To(Succeed())
		Expect(list.Count).To(Equal(1))
	})

	It("should answer 204 when deleting an unused accommodation", func() {
		w := httptest.NewRecorder()
		handler.CreateAccommodation(w, adminRequest(http.MethodPost, "/", `{"nights":1,"guests":2,"price":"90.00"}`, "optics", nil))
		var a pricing.Accommodation
		Expect(json.NewDecoder(w.Body).Decode(&a)).To(Succeed())

		w = httptest.NewRecorder()
		handler.DeleteAccommodation(w, adminRequest(http.MethodDelete, "/", "", "optics", map[string]string{"id": jsonInt(a.ID)}))
		Expect(w.Code).To(Equal(http.StatusNoContent))

		w = httptest.NewRecorder()
		handler.ListPresentationTypes(w, adminRequest(http.MethodGet, "/", "", "optics", nil))
		Expect(w.Code).To(Equal(http.StatusOK))
		var list pricing.PresentationTypeListResponse
		Expect(json.NewDecoder(w.Body).Decode(&list)).To(Succeed())
		Expect(list.Vertical).To(Equal("optics"))
		Expect(list.Count).To(Equal(0))
	})

	It("should reject a malformed body", func() {
		w := httptest.NewRecorder()
		handler.CreateAccommodation(w, adminRequest(http.MethodPost, "/", `{"nights":`, "optics", nil))
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
