package middleware

import (
	"context"

	"github.com/medicus-hms/medicus/internal/users"
)

type userContextKey struct{}

func ContextWithUser(ctx context.Context, user *users.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext returns the user attached by the auth middleware, if any.
func UserFromContext(ctx context.Context) (*users.User, bool) {
	user, ok := ctx.Value(userContextKey{}).(*users.User)
	return user, ok
}
