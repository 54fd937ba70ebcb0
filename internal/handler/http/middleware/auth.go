package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/auth"
	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/user"
	"github.com/cmlabs-hris/hris-face-attendance/internal/handler/http/response"
	"github.com/go-chi/jwtauth/v5"
)

// RevocationChecker reports kiosk devices whose tokens must no longer be honoured.
type RevocationChecker interface {
	IsKioskRevoked(kioskID string) bool
}

func AuthRequired(ja *jwtauth.JWTAuth, revoked RevocationChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, _, err := jwtauth.FromContext(r.Context())

			if err != nil {
				response.Unauthorized(w, err.Error())
				return
			}

			if token == nil {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			claims, err := token.AsMap(r.Context())
			if err != nil {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}
			tokenType, ok := claims["type"].(string)
			if tokenType != "access" || !ok {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			if role, _ := claims["role"].(string); role == string(user.RoleKiosk) && revoked != nil {
				kioskID, _ := claims["kiosk_id"].(string)
				if revoked.IsKioskRevoked(kioskID) {
					response.HandleError(w, auth.ErrDeviceRevoked)
					return
				}
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}
