package server

import (
	"context"

	"labhub/internal/models"
)

type authContextKey struct{}

// Principal is the authenticated caller of a request.
type Principal struct {
	Role  models.Role
	Code  int64
	Email string
}

func contextWithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, authContextKey{}, principal)
}

// PrincipalFromContext returns the caller injected by the auth middleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	principal, ok := ctx.Value(authContextKey{}).(Principal)
	return principal, ok
}
