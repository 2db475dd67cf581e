package auth

import (
	"context"
	"errors"
)

var _ SessionChecker = (*LoginChecker)(nil)
var _ SessionChecker = (*TestChecker)(nil)

// ErrNoSession is returned when a token does not correspond to a live session.
var ErrNoSession = errors.New("session not found")

// SessionChecker resolves a session token to the username it is bound to.
type SessionChecker interface {
	SessionUser(ctx context.Context, token string) (string, error)
}
