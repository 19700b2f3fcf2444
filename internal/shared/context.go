package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stashes the request session so the gate and handlers
// downstream can reach it without re-reading the cookie.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext returns the session placed by the session middleware,
// or nil outside it.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}
