package users

import (
	"context"
	"fmt"
	"time"

	"github.com/medicus-hms/medicus/pkg"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Create persists a new user record. The users.username unique constraint
// makes the check-then-insert atomic: with concurrent registrations for the
// same username exactly one insert succeeds, the rest get ErrUsernameTaken.
func (r *Repo) Create(ctx context.Context, username, passwordHash string) (*User, error) {
	createdAt := time.Now()

	var id int
	err := r.db.QueryRow(
		ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES ($1, $2, $3) RETURNING id;`,
		username, passwordHash, createdAt,
	).Scan(&id)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return &User{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    createdAt,
	}, nil
}

// GetByUsername looks a record up by exact username match. No trimming, no
// case folding.
func (r *Repo) GetByUsername(ctx context.Context, username string) (*User, error) {
	rows, err := r.db.Query(
		ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = $1;`,
		username,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, ErrUserNotFound
	}

	var user User
	if err := rows.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}

// Resolve implements the identity resolver capability used by the access
// gate to attach the session's user to the request.
func (r *Repo) Resolve(ctx context.Context, username string) (*User, error) {
	return r.GetByUsername(ctx, username)
}
