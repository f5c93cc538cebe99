package httpapi

import (
	"context"

	"github.com/riskibarqy/auction-ledger/internal/domain/user"
)

type principalKey struct{}

// withPrincipal records the admin RequireAuth verified.
func withPrincipal(ctx context.Context, p user.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFromContext(ctx context.Context) (user.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(user.Principal)
	return p, ok
}

// adminID is empty on public routes.
func adminID(ctx context.Context) string {
	if p, ok := principalFromContext(ctx); ok {
		return p.UserID
	}
	return ""
}
