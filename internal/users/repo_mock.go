package users

import (
	"context"
	"sync"
	"time"
)

type mockRepo struct {
	mutex sync.Mutex
	users map[string]*User
	maxID int
}

// NewMockRepo returns an in-memory users repo with the same uniqueness
// contract as the postgres one, for unit and dev testing.
func NewMockRepo() *mockRepo {
	return &mockRepo{
		users: make(map[string]*User),
	}
}

func (m *mockRepo) Create(_ context.Context, username, passwordHash string) (*User, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.users[username]; ok {
		return nil, ErrUsernameTaken
	}

	m.maxID++
	user := &User{
		ID:           m.maxID,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	m.users[username] = user
	return user, nil
}

func (m *mockRepo) GetByUsername(_ context.Context, username string) (*User, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	user, ok := m.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (m *mockRepo) Resolve(ctx context.Context, username string) (*User, error) {
	return m.GetByUsername(ctx, username)
}

func (m *mockRepo) Count() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.users)
}
