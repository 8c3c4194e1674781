package http

import (
	"context"
	"net/http"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

// Session management is an external collaborator: an upstream gateway
// verifies the session and forwards the caller's identity in these headers.
// This middleware is the trust boundary, not an authenticator.
const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
)

const (
	RoleCustomer = "CUSTOMER"
	RoleOwner    = "CAFE_OWNER"
	RoleWaiter   = "WAITER"
	RoleChef     = "CHEF"
	RoleAdmin    = "ADMIN"
)

type Identity struct {
	UserID uuid.UUID
	Role   string
}

type contextKey int

const identityContextKey contextKey = iota

func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.FromString(r.Header.Get(headerUserID))
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, KindUnauthorized, "missing or invalid user identity")
			return
		}
		role := r.Header.Get(headerUserRole)
		switch role {
		case RoleCustomer, RoleOwner, RoleWaiter, RoleChef, RoleAdmin:
		default:
			log.Warn().Str("role", role).Msg("request with unknown role rejected")
			respondWithError(w, http.StatusUnauthorized, KindUnauthorized, "missing or invalid user role")
			return
		}

		ident := Identity{UserID: userID, Role: role}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityContextKey, ident)))
	})
}

func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, ok := identityFrom(r)
			if !ok {
				respondWithError(w, http.StatusUnauthorized, KindUnauthorized, "missing identity")
				return
			}
			for _, role := range roles {
				if ident.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			respondWithError(w, http.StatusForbidden, KindForbidden, "role not allowed on this resource")
		})
	}
}

func identityFrom(r *http.Request) (Identity, bool) {
	ident, ok := r.Context().Value(identityContextKey).(Identity)
	return ident, ok
}
