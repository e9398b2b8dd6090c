package ctx

import (
	"context"
)

type contextKey string

const (
	IdentityContextKey contextKey = "identity"
)

func WithIdentity(parent context.Context, identity string) context.Context {
	return context.WithValue(parent, IdentityContextKey, identity)
}

func GetIdentityFromContext(ctx context.Context) (string, bool) {
	identity, ok := ctx.Value(IdentityContextKey).(string)
	return identity, ok && identity != ""
}
