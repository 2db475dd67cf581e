package auth

import (
	"context"
	"testing"
	"time"

	"github.com/coocood/freecache"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// INFO: https://github.com/go-redis/redis/issues/1029
		goleak.IgnoreTopFunction(
			"github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper",
		),
	)
}

func newTestCache() *freecache.Cache {
	return freecache.NewCache(1024 * 1024)
}

func TestService_Login(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	service := NewService(time.Hour, newTestCache(), db)
	require.NotNil(t, service)
	assert.Equal(t, time.Hour, service.ttl)

	testToken := "test_token"
	service.RandStringFunc = func(s int) (string, error) {
		return testToken, nil
	}

	sessionKey := sessionKeyPrefix + testToken
	mock.ExpectSet(sessionKey, "alice", time.Hour).SetVal("OK")
	mock.ExpectSAdd(tokensSetKey, testToken).SetVal(1)

	token, err := service.Login(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, testToken, token)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Logout_Idempotent(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	service := NewService(time.Hour, newTestCache(), db)

	// destroying an unknown token is not an error
	sessionKey := sessionKeyPrefix + "unknown_token"
	mock.ExpectDel(sessionKey).SetVal(0)
	mock.ExpectSRem(tokensSetKey, "unknown_token").SetVal(0)

	require.NoError(t, service.Logout(context.Background(), "unknown_token"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_SessionLifecycle(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	cache := newTestCache()
	service := NewService(time.Hour, cache, db)
	checker := NewLoginChecker(cache, db)

	testToken := "lifecycle_token"
	service.RandStringFunc = func(s int) (string, error) {
		return testToken, nil
	}

	sessionKey := sessionKeyPrefix + testToken
	mock.ExpectSet(sessionKey, "alice", time.Hour).SetVal("OK")
	mock.ExpectSAdd(tokensSetKey, testToken).SetVal(1)

	token, err := service.Login(context.Background(), "alice")
	require.NoError(t, err)

	// validate right after issuance
	mock.ExpectGet(sessionKey).SetVal("alice")
	username, err := checker.SessionUser(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)

	// destroy, then validate again - the token must be rejected immediately
	mock.ExpectDel(sessionKey).SetVal(1)
	mock.ExpectSRem(tokensSetKey, token).SetVal(1)
	require.NoError(t, service.Logout(context.Background(), token))

	mock.ExpectGet(sessionKey).RedisNil()
	_, err = checker.SessionUser(context.Background(), token)
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_ScanAndClean(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	service := NewService(time.Hour, newTestCache(), db)
	require.NotNil(t, service)

	t1, t2 := "token1", "token2"
	mock.ExpectSMembers(tokensSetKey).SetVal([]string{t1, t2})
	// t1 expired (key gone), t2 still alive
	mock.ExpectExists(sessionKeyPrefix + t1).SetVal(0)
	mock.ExpectExists(sessionKeyPrefix + t2).SetVal(1)
	mock.ExpectSRem(tokensSetKey, t1).SetVal(1)

	service.ScanAndClean(context.Background())
	require.NoError(t, mock.ExpectationsWereMet())
}
