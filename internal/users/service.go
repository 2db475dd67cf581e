package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/medicus-hms/medicus/pkg"
)

type userRepo interface {
	Create(ctx context.Context, username, passwordHash string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
}

// Service is the credential store contract: registration and credential
// checks, on top of the repo and the bcrypt hasher.
type Service struct {
	repo userRepo
}

func NewService(repo userRepo) *Service {
	return &Service{
		repo: repo,
	}
}

// Register hashes the password and persists a new user record. Returns
// ErrUsernameTaken if a record with that username already exists.
func (s *Service) Register(ctx context.Context, username, password string) (*User, error) {
	passwordHash, err := pkg.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return s.repo.Create(ctx, username, passwordHash)
}

// CheckCredentials verifies a username/password pair. Unknown username and
// wrong password are indistinguishable to the caller: both come back as
// ErrInvalidCredentials.
func (s *Service) CheckCredentials(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !pkg.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}
