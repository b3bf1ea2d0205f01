package users

import (
	"context"
)

var principalCtxKey = &contextKey{"principal"}

type contextKey struct {
	name string
}

// principalBox distinguishes "cleared" from "never set". ClearPrincipal
// stores an empty box so a reused context can never surface the previous
// request's principal.
type principalBox struct {
	id  int64
	set bool
}

// WithPrincipal binds the authenticated principal id to the current request
// context. Downstream code reads it with PrincipalFromContext.
func WithPrincipal(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, principalCtxKey, principalBox{id: id, set: true})
}

// ClearPrincipal removes the principal binding for the remainder of the
// context chain. Call it when the request ends regardless of outcome.
func ClearPrincipal(ctx context.Context) context.Context {
	return context.WithValue(ctx, principalCtxKey, principalBox{})
}

// PrincipalFromContext returns the current principal id. Reading before
// WithPrincipal or after ClearPrincipal yields ok=false, never a stale id.
func PrincipalFromContext(ctx context.Context) (int64, bool) {
	box, ok := ctx.Value(principalCtxKey).(principalBox)
	if !ok || !box.set {
		return 0, false
	}
	return box.id, true
}
