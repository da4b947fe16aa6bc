package transport

import (
	"net/http"

	errors "github.com/frahmantamala/conference-payments/internal"
	"github.com/frahmantamala/conference-payments/internal/vertical"
)

// VerticalFromRequest returns the vertical that the routing middleware attached to the request.
func VerticalFromRequest(r *http.Request) (vertical.Vertical, error) {
	v, ok := vertical.Parse(errors.VerticalFromContext(r.Context()))
	if !ok {
		return "", errors.ErrUnknownVertical
	}
	return v, nil
}
