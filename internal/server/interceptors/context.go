package interceptors

import "context"

type contextKey struct{ name string }

var sessionKey = contextKey{"platform_session"}

// Session is the caller identity carried in Pub/Sub API metadata.
type Session struct {
	AccessToken string
	InstanceURL string
	TenantID    string
}

// WithSession returns a context carrying s. Handlers read it via SessionFrom.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFrom returns the session from context and true if set; otherwise zero, false.
func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey).(Session)
	return s, ok
}
