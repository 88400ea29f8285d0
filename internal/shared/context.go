package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// SubjectFromContext returns the authenticated subject of the request
// session, or nil when there is no session or nobody is signed in.
func SubjectFromContext(ctx context.Context) *Subject {
	sess := SessionFromContext(ctx)
	if sess == nil {
		return nil
	}
	return sess.Subject()
}
