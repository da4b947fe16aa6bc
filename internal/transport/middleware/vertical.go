package middleware

import (
	"context"
	stderrors "errors"
	"net/http"

	errors "github.com/frahmantamala/conference-payments/internal"
	"github.com/frahmantamala/conference-payments/internal/transport"
	"github.com/frahmantamala/conference-payments/internal/vertical"
	"github.com/frahmantamala/conference-payments/pkg/logger"
	"github.com/go-chi/chi"
)

// VerticalParam is the route parameter naming an explicit vertical.
const VerticalParam = "vertical"

// DomainVertical attaches the vertical matching the request's Origin or Referer.
func DomainVertical(router *vertical.DomainRouter, baseHandler *transport.BaseHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v, err := router.Resolve(r)
			if err != nil {
				switch {
				case stderrors.Is(err, vertical.ErrOriginMissing):
					baseHandler.HandleError(w, errors.ErrOriginMissing)
				default:
					baseHandler.HandleError(w, errors.ErrUnknownFrontendDomain)
				}
				return
			}
			next.ServeHTTP(w, r.WithContext(withVertical(r, v)))
		})
	}
}

// PathVertical attaches the vertical named by the {vertical} route parameter.
func PathVertical(baseHandler *transport.BaseHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v, ok := vertical.Parse(chi.URLParam(r, VerticalParam))
			if !ok {
				baseHandler.HandleError(w, errors.ErrUnknownVertical)
				return
			}
			next.ServeHTTP(w, r.WithContext(withVertical(r, v)))
		})
	}
}

func withVertical(r *http.Request, v vertical.Vertical) context.Context {
	ctx := errors.ContextWithVertical(r.Context(), v.String())
	return logger.With(ctx, "vertical", v.String())
}
