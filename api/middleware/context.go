package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradelink-backend/pkg/auth"
	"github.com/angelmondragon/tradelink-backend/pkg/enums"
)

type principalKey struct{}

// WithPrincipal attaches the authenticated caller to ctx.
func WithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the caller attached by Auth. ok is false when
// there is none or it names no user or an unknown role.
func PrincipalFromContext(ctx context.Context) (auth.Principal, bool) {
	if ctx == nil {
		return auth.Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(auth.Principal)
	if !ok || p.UserID == uuid.Nil || !p.Role.IsValid() {
		return auth.Principal{}, false
	}
	return p, true
}

func Identity(ctx context.Context) (uuid.UUID, enums.Role, bool) {
	p, ok := PrincipalFromContext(ctx)
	return p.UserID, p.Role, ok
}
