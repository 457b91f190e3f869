package auth

import (
	"net/http"

	apperrors "parkslot/pkg/errors"
	httputil "parkslot/pkg/http"
	"parkslot/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

// Authentication rejects requests without a valid bearer token and stores the
// Principal on the request context.
func Authentication(verifier *TokenVerifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := verifier.Verify(r.Header.Get("Authorization"))
			if err != nil {
				log.For(r.Context()).Warn("Authentication failed", "path", r.URL.Path, "error", err)
				if writeErr := httputil.WriteError(w, apperrors.Unauthorized("A valid bearer token is required")); writeErr != nil {
					log.Error("failed to write error response", "middleware", "Authentication", "operation", "WriteError", "error", writeErr)
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireAdmin wraps a route that only administrators may call.
func RequireAdmin(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		principal, ok := FromContext(r.Context())
		if !ok {
			_ = httputil.WriteError(w, apperrors.Unauthorized("A valid bearer token is required"))
			return
		}
		if !principal.IsAdmin() {
			_ = httputil.WriteError(w, apperrors.Forbidden("Administrator role required"))
			return
		}
		next(w, r, ps)
	}
}
