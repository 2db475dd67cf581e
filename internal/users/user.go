package users

import (
	"errors"
	"time"
)

var (
	// ErrUsernameTaken is returned when registering an identity that
	// already has a record.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrUserNotFound is returned on lookup of an unknown identity.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password, so callers cannot tell which part was wrong.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// User is a credential record: a unique username and the salted bcrypt hash
// of the password. The plaintext password is never stored.
type User struct {
	ID           int
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
