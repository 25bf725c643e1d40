package domain

import "context"

type callerKey struct{}

// CallerIdentity carries the externally authenticated caller through request context.
type CallerIdentity struct {
	Subject string
	Issuer  string
	Email   string
}

// WithCaller stores a CallerIdentity in the context.
func WithCaller(ctx context.Context, c CallerIdentity) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFromContext extracts the CallerIdentity from the context.
func CallerFromContext(ctx context.Context) (CallerIdentity, bool) {
	c, ok := ctx.Value(callerKey{}).(CallerIdentity)
	return c, ok
}

// IdentityProvider yields the verified email of the current caller.
type IdentityProvider interface {
	CurrentCallerEmail(ctx context.Context) (string, bool)
}

// StaticIdentity is an IdentityProvider that always reports the same email.
// An empty value reports no caller.
type StaticIdentity string

// CurrentCallerEmail implements IdentityProvider.
func (s StaticIdentity) CurrentCallerEmail(context.Context) (string, bool) {
	return string(s), s != ""
}
