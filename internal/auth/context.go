package auth

import "context"

type sessionContextKey struct{}
type tokenContextKey struct{}

// ContextWithSession attaches the authenticated session user to the context.
func ContextWithSession(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, &u)
}

// SessionFromContext extracts the authenticated session user.
func SessionFromContext(ctx context.Context) (User, bool) {
	if ctx == nil {
		return User{}, false
	}
	v, ok := ctx.Value(sessionContextKey{}).(*User)
	if !ok || v == nil {
		return User{}, false
	}
	return *v, true
}

// ContextWithToken stores the raw token id inside the context.
func ContextWithToken(ctx context.Context, tokenID string) context.Context {
	if tokenID == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenContextKey{}, tokenID)
}

// TokenFromContext returns the token id if it was previously attached.
func TokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(tokenContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
