package users

import (
	"context"
	"sync"
	"testing"

	"github.com/medicus-hms/medicus/pkg"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_Register(t *testing.T) {
	repo := NewMockRepo()
	service := NewService(repo)
	ctx := context.Background()

	username := gofakeit.Username()
	user, err := service.Register(ctx, username, "pw123")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, username, user.Username)
	assert.NotEqual(t, "pw123", user.PasswordHash)
	assert.True(t, pkg.CheckPasswordHash("pw123", user.PasswordHash))

	// second registration for the same username fails
	user, err = service.Register(ctx, username, "otherpw")
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.Nil(t, user)
	assert.Equal(t, 1, repo.Count())
}

func TestService_Register_ConcurrentSameUsername(t *testing.T) {
	repo := NewMockRepo()
	service := NewService(repo)
	ctx := context.Background()

	const attempts = 20
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Register(ctx, "bob", "x")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, taken int
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		require.ErrorIs(t, err, ErrUsernameTaken)
		taken++
	}

	// exactly one success, everyone else sees the username as taken
	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, taken)
	assert.Equal(t, 1, repo.Count())
}

func TestService_CheckCredentials(t *testing.T) {
	repo := NewMockRepo()
	service := NewService(repo)
	ctx := context.Background()

	_, err := service.Register(ctx, "alice", "pw123")
	require.NoError(t, err)

	user, err := service.CheckCredentials(ctx, "alice", "pw123")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	// wrong password and unknown username are indistinguishable
	_, errWrongPass := service.CheckCredentials(ctx, "alice", "wrongpw")
	assert.ErrorIs(t, errWrongPass, ErrInvalidCredentials)

	_, errNoUser := service.CheckCredentials(ctx, "nouser", "whatever")
	assert.ErrorIs(t, errNoUser, ErrInvalidCredentials)

	assert.Equal(t, errWrongPass, errNoUser)
}

func TestService_LookupIsExactMatch(t *testing.T) {
	repo := NewMockRepo()
	service := NewService(repo)
	ctx := context.Background()

	_, err := service.Register(ctx, "Alice", "pw123")
	require.NoError(t, err)

	// literal string equality: no case folding, no trimming
	_, err = service.CheckCredentials(ctx, "alice", "pw123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = service.CheckCredentials(ctx, " Alice", "pw123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = service.CheckCredentials(ctx, "Alice", "pw123")
	assert.NoError(t, err)
}
