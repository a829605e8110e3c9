package api

import (
	"context"
	"errors"
)

// principalContextKey is the context key for the authenticated principal.
type principalContextKey struct{}

// ErrNoPrincipalInContext indicates no principal was found in the context.
var ErrNoPrincipalInContext = errors.New("no principal in context")

// WithPrincipal returns a new context with the principal user id attached.
func WithPrincipal(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, principalContextKey{}, userID)
}

// PrincipalFromContext extracts the principal user id from the context.
func PrincipalFromContext(ctx context.Context) (int64, error) {
	id, ok := ctx.Value(principalContextKey{}).(int64)
	if !ok || id <= 0 {
		return 0, ErrNoPrincipalInContext
	}
	return id, nil
}

// MustPrincipalFromContext extracts the principal or panics.
// Use only when middleware guarantees principal presence.
func MustPrincipalFromContext(ctx context.Context) int64 {
	id, err := PrincipalFromContext(ctx)
	if err != nil {
		panic("principal not in context: middleware misconfiguration")
	}
	return id
}
