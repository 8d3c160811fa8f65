// Package shared holds request-scoped helpers used across modules.
package shared

import "context"

type identityContextKey struct{}

// ContextWithIdentity stores the authenticated username in context.
// The auth middleware is the only writer; handlers read it and pass the
// username to services as an explicit argument.
func ContextWithIdentity(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, identityContextKey{}, username)
}

// IdentityFromContext extracts the authenticated username from context.
// Empty string means the request carries no verified identity.
func IdentityFromContext(ctx context.Context) string {
	username, _ := ctx.Value(identityContextKey{}).(string)
	return username
}
