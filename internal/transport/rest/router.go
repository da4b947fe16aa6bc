package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/conference-payments/internal/payment"
	"github.com/frahmantamala/conference-payments/internal/pricing"
	"github.com/frahmantamala/conference-payments/internal/transport"
	"github.com/frahmantamala/conference-payments/internal/transport/middleware"
	"github.com/frahmantamala/conference-payments/internal/transport/swagger"
	"github.com/frahmantamala/conference-payments/internal/vertical"
	"github.com/go-chi/chi"
)

// Routes carries everything the router mounts. Nil handlers leave their
// routes unmounted.
type Routes struct {
	Health         *HealthHandler
	Payment        *payment.Handler
	Webhooks       *payment.WebhookHandler
	Pricing        *pricing.Handler
	Admin          *middleware.AdminAuthenticator
	Domains        *vertical.DomainRouter
	AllowedOrigins []string
	OpenAPI        []byte
}

func RegisterAllRoutes(router *chi.Mux, routes Routes, logger *slog.Logger) {
	base := transport.NewBaseHandler(logger)
	byDomain := middleware.DomainVertical(routes.Domains, base)
	byPath := middleware.PathVertical(base)

	router.Use(middleware.CORS(routes.AllowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	if routes.OpenAPI != nil {
		router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/yaml")
			w.Write(routes.OpenAPI)
		})
		router.Handle("/swagger/*", swagger.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		if routes.Health != nil {
			r.Get("/health", routes.Health.HealthCheck)
			r.Get("/ping", routes.Health.Ping)
		}

		if routes.Webhooks != nil {
			r.Post("/payment/webhook", routes.Webhooks.HandlePaymentWebhook)
			r.With(byPath).Post("/payment/webhook/{vertical}", routes.Webhooks.HandleVerticalWebhook)
			r.Post("/discounts/webhook", routes.Webhooks.HandleDiscountWebhook)
		}

		if routes.Payment != nil {
			// vertical from Origin or Referer
			r.Group(func(dr chi.Router) {
				dr.Use(byDomain)
				dr.Post("/payment/create-checkout-session", routes.Payment.CreateCheckoutSession)
				dr.Get("/payment/sessions/{sessionId}", routes.Payment.GetSession)
				dr.Post("/payment/sessions/{sessionId}/expire", routes.Payment.ExpireSession)
				dr.Post("/discounts/create-session", routes.Payment.CreateDiscountSession)
			})

			r.Route("/payment/{vertical}", func(vr chi.Router) {
				vr.Use(byPath)
				vr.Post("/create-checkout-session", routes.Payment.CreateCheckoutSession)
				vr.Get("/sessions/{sessionId}", routes.Payment.GetSession)
				vr.Post("/sessions/{sessionId}/expire", routes.Payment.ExpireSession)
			})
		}

		if routes.Admin != nil {
			r.Route("/admin/{vertical}", func(ar chi.Router) {
				ar.Use(routes.Admin.RequireAdmin)
				ar.Use(byPath)

				if routes.Pricing != nil {
					ar.Get("/presentation-types", routes.Pricing.ListPresentationTypes)
					ar.Post("/presentation-types", routes.Pricing.CreatePresentationType)
					ar.Put("/presentation-types/{id}/price", routes.Pricing.UpdatePresentationTypePrice)
					ar.Get("/accommodations", routes.Pricing.ListAccommodations)
					ar.Post("/accommodations", routes.Pricing.CreateAccommodation)
					ar.Put("/accommodations/{id}/price", routes.Pricing.UpdateAccommodationPrice)
					ar.Delete("/accommodations/{id}", routes.Pricing.DeleteAccommodation)
					ar.Post("/pricing-configs", routes.Pricing.CreatePricingConfig)
					ar.Post("/pricing-configs/recalculate", routes.Pricing.RecalculateAll)
					ar.Get("/pricing-configs/{id}", routes.Pricing.GetPricingConfig)
				}
				if routes.Payment != nil {
					ar.Get("/payments", routes.Payment.ListPayments)
					ar.Get("/registration-forms", routes.Payment.ListRegistrationForms)
				}
			})
		}
	})
}
