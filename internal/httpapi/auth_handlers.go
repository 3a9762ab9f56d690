package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"tessera.org/internal/auth"
	"tessera.org/internal/obs"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleLogin exchanges credentials for a session token. Unknown users and
// wrong passwords produce the same response so the endpoint cannot be used
// to probe which accounts exist.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	tok, err := a.svc.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrAuthDenied) {
			obs.CountLogin("denied")
			writeError(w, r, http.StatusUnauthorized, "invalid credentials")
			return
		}
		a.log.Error().Err(err).Msg("authenticate failed")
		obs.CountLogin("error")
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	obs.CountLogin("ok")
	a.audit(r.Context(), "login", map[string]any{
		"email":        tok.User.Email,
		"organization": tok.User.OrganizationID,
	})
	writeJSON(w, http.StatusOK, tok.Redacted())
}

// handleLogout revokes the token named in the path. Revocation is
// idempotent: revoking an unknown or already-revoked token still succeeds.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/login/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if err := a.svc.Invalidate(r.Context(), id); err != nil {
		a.log.Error().Err(err).Msg("invalidate failed")
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	a.audit(r.Context(), "logout", nil)
	w.WriteHeader(http.StatusNoContent)
}

// handleToken returns the session behind a token id. Admins may inspect any
// token; everyone else only their own.
func (a *API) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	actor, ok := a.session(w, r)
	if !ok {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/tokens/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	tok, err := a.svc.Resolve(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "resource not found")
			return
		}
		a.log.Error().Err(err).Msg("resolve failed")
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	own, _ := auth.TokenFromContext(r.Context())
	if !actor.Role.AtLeast(auth.RoleAdmin) && own != id && !strings.EqualFold(actor.Email, tok.User.Email) {
		obs.CountDenial(http.StatusForbidden)
		writeError(w, r, http.StatusForbidden, "token belongs to another user")
		return
	}
	writeJSON(w, http.StatusOK, tok.Redacted())
}
