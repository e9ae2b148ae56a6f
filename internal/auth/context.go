package auth

import "context"

type contextKey string

// PrincipalKey is the context key for the resolved username.
const PrincipalKey = contextKey("principal")

// WithPrincipal returns a copy of ctx carrying username as the principal.
func WithPrincipal(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, PrincipalKey, username)
}

// PrincipalFrom returns the principal attached by Identify, if any.
func PrincipalFrom(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(PrincipalKey).(string)
	return username, ok && username != ""
}
