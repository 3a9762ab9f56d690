package httpapi

import (
	"net/http"
	"net/url"
	"strings"

	"tessera.org/internal/auth"
)

type storeUserRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	Role             string `json:"role"`
	OrganizationID   string `json:"organizationId"`
	OrganizationName string `json:"organizationName"`
}

// handleOrganizations covers the collection: create and list. Both are
// reserved for top-tier operators; tenant admins act inside their own
// organization via the scoped routes.
func (a *API) handleOrganizations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createOrganization(w, r)
	case http.MethodGet:
		a.listOrganizations(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) createOrganization(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.requireRole(w, r, auth.RoleAdmin)
	if !ok {
		return
	}
	var org auth.Organization
	if err := decodeJSON(r, &org); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	org.ID = strings.TrimSpace(org.ID)
	if org.ID == "" || strings.TrimSpace(org.Name) == "" {
		writeError(w, r, http.StatusBadRequest, "organization id and name are required")
		return
	}
	if err := a.dir.StoreOrganization(r.Context(), org); err != nil {
		mapStoreError(w, r, err)
		return
	}
	a.audit(r.Context(), "organization_stored", map[string]any{
		"organization": org.ID,
		"by":           actor.Email,
	})
	writeJSON(w, http.StatusCreated, org)
}

func (a *API) listOrganizations(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireRole(w, r, auth.RoleAdmin); !ok {
		return
	}
	orgs, err := a.dir.ListOrganizations(r.Context())
	if err != nil {
		mapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"organizations": orgs})
}

// handleOrganizationScoped routes everything under /v1/organizations/{oid}:
// the organization itself and its user collection.
func (a *API) handleOrganizationScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/organizations/")
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		a.handleOrganization(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "users":
		a.handleOrgUsers(w, r, parts[0])
	case len(parts) == 3 && parts[1] == "users" && parts[2] != "":
		email, err := url.PathUnescape(parts[2])
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "malformed email in path")
			return
		}
		a.handleOrgUser(w, r, parts[0], strings.ToLower(email))
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleOrganization(w http.ResponseWriter, r *http.Request, orgID string) {
	switch r.Method {
	case http.MethodGet:
		actor, ok := a.session(w, r)
		if !ok {
			return
		}
		if !a.runChecks(w, r, a.validator.OrganizationAccess(actor, orgID)) {
			return
		}
		org, err := a.dir.GetOrganization(r.Context(), orgID)
		if err != nil {
			mapStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, org)

	case http.MethodDelete:
		actor, ok := a.requireRole(w, r, auth.RoleAdmin)
		if !ok {
			return
		}
		if err := a.dir.DeleteOrganization(r.Context(), orgID); err != nil {
			mapStoreError(w, r, err)
			return
		}
		a.audit(r.Context(), "organization_deleted", map[string]any{
			"organization": orgID,
			"by":           actor.Email,
		})
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

func (a *API) handleOrgUsers(w http.ResponseWriter, r *http.Request, orgID string) {
	switch r.Method {
	case http.MethodGet:
		a.listOrgUsers(w, r, orgID)
	case http.MethodPost:
		a.storeOrgUser(w, r, orgID)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listOrgUsers(w http.ResponseWriter, r *http.Request, orgID string) {
	actor, ok := a.requireRole(w, r, auth.RoleOrganizationAdmin)
	if !ok {
		return
	}
	if !a.runChecks(w, r,
		a.validator.OrganizationExists(orgID),
		a.validator.OrganizationAccess(actor, orgID),
	) {
		return
	}
	users, err := a.dir.ListUsers(r.Context())
	if err != nil {
		mapStoreError(w, r, err)
		return
	}
	out := make([]auth.User, 0, len(users))
	for _, u := range users {
		if u.OrganizationID != orgID {
			continue
		}
		out = append(out, u.Redacted())
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}

// storeOrgUser creates or replaces a user inside the scope organization. The
// full gate runs before any write: the organization must exist, the caller
// must reach it, the payload must place the user in it, the granted role must
// not exceed the caller's, and plain users may only touch themselves.
func (a *API) storeOrgUser(w http.ResponseWriter, r *http.Request, orgID string) {
	actor, ok := a.session(w, r)
	if !ok {
		return
	}
	var req storeUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}
	user := auth.User{
		Email:            email,
		Password:         a.svc.HashPassword(req.Password),
		Role:             role,
		OrganizationID:   req.OrganizationID,
		OrganizationName: req.OrganizationName,
	}

	if !a.runChecks(w, r,
		a.validator.OrganizationExists(orgID),
		a.validator.OrganizationAccess(actor, orgID),
		a.validator.UserPlacement(orgID, user),
		a.validator.UserPrecedence(actor, user.Role),
		a.validator.SelfService(actor, user.Email),
	) {
		return
	}

	if err := a.dir.StoreUser(r.Context(), user); err != nil {
		mapStoreError(w, r, err)
		return
	}
	a.audit(r.Context(), "user_stored", map[string]any{
		"email":        user.Email,
		"role":         string(user.Role),
		"organization": orgID,
	})
	writeJSON(w, http.StatusCreated, user.Redacted())
}

func (a *API) handleOrgUser(w http.ResponseWriter, r *http.Request, orgID, email string) {
	switch r.Method {
	case http.MethodGet:
		actor, ok := a.session(w, r)
		if !ok {
			return
		}
		if !a.runChecks(w, r,
			a.validator.OrganizationAccess(actor, orgID),
			a.validator.UserAccessByEmail(orgID, email),
		) {
			return
		}
		user, err := a.dir.GetUser(r.Context(), email)
		if err != nil {
			mapStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user.Redacted())

	case http.MethodDelete:
		actor, ok := a.requireRole(w, r, auth.RoleOrganizationAdmin)
		if !ok {
			return
		}
		if !a.runChecks(w, r,
			a.validator.OrganizationAccess(actor, orgID),
			a.validator.UserAccessByEmail(orgID, email),
		) {
			return
		}
		if err := a.dir.DeleteUser(r.Context(), email); err != nil {
			mapStoreError(w, r, err)
			return
		}
		a.audit(r.Context(), "user_deleted", map[string]any{
			"email":        email,
			"organization": orgID,
		})
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}
