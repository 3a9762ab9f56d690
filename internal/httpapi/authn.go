package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"tessera.org/internal/auth"
)

// publicPath reports whether a route is reachable without a session.
func publicPath(path string) bool {
	switch path {
	case "/healthz", "/readyz", "/metrics", "/v1/info", "/v1/login":
		return true
	}
	// Logout carries the token in the path, not the header.
	return strings.HasPrefix(path, "/v1/login/")
}

// withAuth resolves the bearer token and binds the session to the request
// context. Requests without a valid session on protected routes get a 401
// before any handler runs.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		raw := strings.TrimSpace(r.Header.Get("Authorization"))
		const scheme = "Bearer "
		if raw == "" || !strings.HasPrefix(raw, scheme) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		tokenID := strings.TrimSpace(raw[len(scheme):])

		tok, err := a.svc.Resolve(r.Context(), tokenID)
		if err != nil {
			if errors.Is(err, auth.ErrNotFound) {
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeError(w, r, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			a.log.Error().Err(err).Msg("token resolve failed")
			writeError(w, r, http.StatusInternalServerError, "internal error")
			return
		}

		ctx := auth.ContextWithSession(r.Context(), tok.User)
		ctx = auth.ContextWithToken(ctx, tok.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
