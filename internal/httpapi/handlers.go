package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tessera.org/internal/audit"
	"tessera.org/internal/auth"
	"tessera.org/internal/obs"
)

// ReadyProbe reports whether the backing store is reachable.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer over the auth core.
type API struct {
	mux        *http.ServeMux
	svc        *auth.Service
	dir        auth.Directory
	validator  *auth.Validator
	readyProbe ReadyProbe
	version    string
	log        zerolog.Logger

	rateBurst     int
	ratePerSecond int
}

// Option configures the API.
type Option func(*API)

// WithRateLimit overrides the per-IP request budget.
func WithRateLimit(burst, perSecond int) Option {
	return func(a *API) {
		if burst > 0 && perSecond > 0 {
			a.rateBurst = burst
			a.ratePerSecond = perSecond
		}
	}
}

// WithAPILogger overrides the request logger.
func WithAPILogger(log zerolog.Logger) Option {
	return func(a *API) {
		a.log = log
	}
}

func New(svc *auth.Service, dir auth.Directory, validator *auth.Validator, rp ReadyProbe, version string, opts ...Option) *API {
	a := &API{
		mux:           http.NewServeMux(),
		svc:           svc,
		dir:           dir,
		validator:     validator,
		readyProbe:    rp,
		version:       version,
		log:           obs.Logger(),
		rateBurst:     20,
		ratePerSecond: 10,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	a.mux.HandleFunc("/v1/login", a.handleLogin)
	a.mux.HandleFunc("/v1/login/", a.handleLogout)
	a.mux.HandleFunc("/v1/tokens/", a.handleToken)

	a.mux.HandleFunc("/v1/organizations", a.handleOrganizations)
	a.mux.HandleFunc("/v1/organizations/", a.handleOrganizationScoped)

	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler assembles the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	h := http.Handler(a.mux)
	h = a.withAuth(h)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, a.rateBurst, a.ratePerSecond)
	h = SecurityHeaders(h)
	h = Logging(h, a.log)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "tessera-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "tessera-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

// session returns the authenticated user or writes a 401.
func (a *API) session(w http.ResponseWriter, r *http.Request) (auth.User, bool) {
	u, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return auth.User{}, false
	}
	return u, true
}

// requireRole enforces a minimum authority floor by precedence.
func (a *API) requireRole(w http.ResponseWriter, r *http.Request, floor auth.Role) (auth.User, bool) {
	u, ok := a.session(w, r)
	if !ok {
		return auth.User{}, false
	}
	if !u.Role.AtLeast(floor) {
		obs.CountDenial(http.StatusForbidden)
		writeError(w, r, http.StatusForbidden,
			fmt.Sprintf("user %s lacks required authority", u.Email))
		return auth.User{}, false
	}
	return u, true
}

// runChecks executes a validation chain, writing the first denial or a 500
// on infrastructure failure. The guarded mutation must only run when this
// returns true.
func (a *API) runChecks(w http.ResponseWriter, r *http.Request, checks ...auth.Check) bool {
	d, err := a.validator.Validate(r.Context(), checks...)
	if err != nil {
		a.log.Error().Err(err).Str("path", r.URL.Path).Msg("validation aborted")
		writeError(w, r, http.StatusInternalServerError, "validation failed")
		return false
	}
	if d != nil {
		obs.CountDenial(d.Code)
		a.log.Warn().Int("code", d.Code).Str("reason", d.Reason).Msg("access denied")
		writeError(w, r, d.Code, d.Reason)
		return false
	}
	return true
}

func (a *API) audit(ctx context.Context, event string, fields map[string]any) {
	if err := audit.LogEvent(ctx, event, fields); err != nil {
		a.log.Error().Err(err).Str("event", event).Msg("audit log failed")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	body := map[string]any{"error": msg}
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		body["request_id"] = rid
	}
	writeJSON(w, code, body)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func mapStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "resource not found")
	case errors.Is(err, auth.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
