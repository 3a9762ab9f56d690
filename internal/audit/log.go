package audit

import (
	"context"
	"errors"
	"strings"

	"tessera.org/internal/auth"
	"tessera.org/internal/ids"
	"tessera.org/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit
// logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request id from context if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit entry enriched with request and session context.
// Events cover the mutations of the security domain: logins, token
// revocations, user and organization changes.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	logger := obs.Logger()
	entry := logger.Info().
		Str("type", "audit").
		Str("audit_id", ids.New()).
		Str("event", event)
	if rid := RequestIDFromContext(ctx); rid != "" {
		entry = entry.Str("request_id", rid)
	}
	if session, ok := auth.SessionFromContext(ctx); ok {
		entry = entry.Str("actor", session.Email)
		if session.OrganizationID != "" {
			entry = entry.Str("actor_org", session.OrganizationID)
		}
	}
	entry.Fields(fields).Msg("audit")
	return nil
}
