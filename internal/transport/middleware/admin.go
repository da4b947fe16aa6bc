package middleware

import (
	"crypto/rsa"
	stderrors "errors"
	"net/http"

	errors "github.com/frahmantamala/conference-payments/internal"
	"github.com/frahmantamala/conference-payments/internal/transport"
	"github.com/frahmantamala/conference-payments/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
)

// AdminClaims are issued by the external login service.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AdminAuthenticator verifies RS256 bearer tokens. It never issues tokens.
type AdminAuthenticator struct {
	*transport.BaseHandler
	key  *rsa.PublicKey
	role string
}

func NewAdminAuthenticator(baseHandler *transport.BaseHandler, key *rsa.PublicKey, role string) *AdminAuthenticator {
	if role == "" {
		role = "ADMIN"
	}
	return &AdminAuthenticator{
		BaseHandler: baseHandler,
		key:         key,
		role:        role,
	}
}

// RequireAdmin rejects requests without a valid admin token. With no public
// key configured every request is refused.
func (a *AdminAuthenticator) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.key == nil {
			a.HandleError(w, errors.ErrAdminOnly)
			return
		}

		token := a.ExtractTokenFromHeader(r)
		if token == "" {
			a.HandleError(w, errors.ErrInvalidToken)
			return
		}

		claims, err := a.validate(token)
		if err != nil {
			a.HandleError(w, err)
			return
		}
		if claims.Role != a.role {
			a.Logger.Warn("admin route refused", "subject", claims.Subject, "role", claims.Role)
			a.HandleError(w, errors.ErrAdminOnly)
			return
		}

		ctx := errors.ContextWithAdmin(r.Context(), claims.Subject)
		ctx = logger.With(ctx, "admin", claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *AdminAuthenticator) validate(tokenString string) (*AdminClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		return a.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.ErrTokenExpired
		}
		return nil, errors.ErrInvalidToken
	}

	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid {
		return nil, errors.ErrInvalidToken
	}
	return claims, nil
}
