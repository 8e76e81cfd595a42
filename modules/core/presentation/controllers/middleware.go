package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/clearchange/moc-tracker/modules/core/services"
	"github.com/clearchange/moc-tracker/pkg/composables"
	"github.com/clearchange/moc-tracker/pkg/httpapi"
	"github.com/clearchange/moc-tracker/pkg/middleware"
)

// Authorize resolves the session cookie to a user and rejects requests
// without a valid session.
func Authorize(auth *services.AuthService) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := middleware.SessionToken(r)
			if !ok {
				_ = httpapi.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
				return
			}
			currentUser, sess, err := auth.Authorize(r.Context(), token)
			if err != nil {
				_ = httpapi.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
				return
			}
			ctx := composables.WithUser(r.Context(), currentUser)
			ctx = composables.WithSession(ctx, sess)
			if params, ok := composables.UseParams(ctx); ok {
				params.Authenticated = true
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
