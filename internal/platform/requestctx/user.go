package requestctx

import (
	"context"
	"strings"
)

// Principal is the signed-in identity carried by a request.
type Principal struct {
	UserID  string
	Email   string
	Name    string
	Picture string
}

// Authenticated reports whether the principal identifies a user.
func (p Principal) Authenticated() bool {
	return strings.TrimSpace(p.UserID) != ""
}

// DisplayName returns the name, falling back to the email.
func (p Principal) DisplayName() string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	return strings.TrimSpace(p.Email)
}

type principalContextKey struct{}

// WithPrincipal stores the signed-in identity in context.
func WithPrincipal(ctx context.Context, principal Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// PrincipalFromContext returns the identity stored in context, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	principal, ok := ctx.Value(principalContextKey{}).(Principal)
	if !ok || !principal.Authenticated() {
		return Principal{}, false
	}
	return principal, true
}

// UserIDFromContext returns the user identifier stored in context.
func UserIDFromContext(ctx context.Context) string {
	principal, _ := PrincipalFromContext(ctx)
	return principal.UserID
}
