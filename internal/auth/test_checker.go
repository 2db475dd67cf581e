package auth

import "context"

// TestChecker is an in-memory SessionChecker for unit and dev testing.
type TestChecker struct {
	Sessions map[string]string // token -> username
}

func NewTestChecker() *TestChecker {
	return &TestChecker{
		Sessions: map[string]string{},
	}
}

func (c *TestChecker) SessionUser(_ context.Context, token string) (string, error) {
	username, ok := c.Sessions[token]
	if !ok {
		return "", ErrNoSession
	}
	return username, nil
}
