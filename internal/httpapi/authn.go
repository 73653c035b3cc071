package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"sourzka.org/internal/auth"
	"sourzka.org/internal/obs"
)

const authHeader = "Authorization"

// authorize runs the authorizer before any handler logic and attaches the
// resulting principal to the request context. Failures short-circuit.
func (a *API) authorize(mode auth.Mode, allowed ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(authHeader)
			principal, err := a.authz.Authorize(r.Context(), header, allowed, mode)
			if err != nil {
				writeAppError(w, r, err)
				return
			}
			ctx := auth.ContextWithPrincipal(r.Context(), principal)
			ctx = obs.WithLogger(ctx, obs.FromContext(ctx).With(
				zap.String("user_id", principal.UserID),
				zap.String("role", principal.Role.String()),
			))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// principal returns the caller attached by authorize.
func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p
}
