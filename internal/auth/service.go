package auth

import (
	"context"
	"time"

	"github.com/medicus-hms/medicus/pkg"

	"github.com/coocood/freecache"
	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultTTL is the fixed session lifetime. Sessions never outlive it,
	// regardless of activity.
	DefaultTTL = 24 * 7 * time.Hour

	// SessionCookieName is the cookie carrying the signed session token.
	SessionCookieName = "medicus_session"

	sessionKeyPrefix = "medicus-service-session||"
	tokensSetKey     = "medicus-service-sessions"

	sessionTokenLength = 35
)

// Service issues and destroys login sessions. Session state lives in redis:
// one string key per session (token -> username, expiring with the TTL) plus
// a set of all known tokens used by ScanAndClean. Multiple concurrent
// sessions per user are allowed.
type Service struct {
	redisClient *redis.Client
	cache       *freecache.Cache
	ttl         time.Duration
	// ability to inject random string generator func for tokens (for unit and dev testing)
	RandStringFunc func(s int) (string, error)
}

func NewService(
	ttl time.Duration,
	cache *freecache.Cache,
	redisClient *redis.Client,
) *Service {
	return &Service{
		ttl:            ttl,
		cache:          cache,
		redisClient:    redisClient,
		RandStringFunc: pkg.GenerateRandomString,
	}
}

// Login creates a new session bound to the given username and returns the
// opaque session token.
func (s *Service) Login(ctx context.Context, username string) (string, error) {
	token, err := s.RandStringFunc(sessionTokenLength)
	if err != nil {
		return "", err
	}

	sessionKey := sessionKeyPrefix + token
	cmdSet := s.redisClient.Set(ctx, sessionKey, username, s.ttl)
	if err := cmdSet.Err(); err != nil {
		return "", err
	}

	// add token to list of sessions
	cmdSAdd := s.redisClient.SAdd(ctx, tokensSetKey, token)
	if err := cmdSAdd.Err(); err != nil {
		return "", err
	}

	return token, nil
}

// Logout invalidates the session immediately. Destroying an unknown or
// already-destroyed token is not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if s.cache != nil {
		s.cache.Del([]byte(token))
	}

	sessionKey := sessionKeyPrefix + token
	if err := s.redisClient.Del(ctx, sessionKey).Err(); err != nil {
		return err
	}

	// remove token from the list of sessions
	if err := s.redisClient.SRem(ctx, tokensSetKey, token).Err(); err != nil {
		return err
	}

	return nil
}

// ScanAndClean removes tokens from the sessions set whose session key has
// already expired. Redis expires the keys on its own; this only keeps the
// token set from growing without bound.
func (s *Service) ScanAndClean(ctx context.Context) {
	cmd := s.redisClient.SMembers(ctx, tokensSetKey)
	if err := cmd.Err(); err != nil {
		log.Errorf("!!! auth service, scan and clean, get sessions: %s", err)
		return
	}

	sessionTokens := cmd.Val()
	if len(sessionTokens) == 0 {
		log.Warnln("=> auth service, scan and clean abort, no sessions")
		return
	}

	log.Warnf("=> auth service, scan and clean [%d sessions] start ...", len(sessionTokens))
	var toRemove []string
	for _, token := range sessionTokens {
		sessionKey := sessionKeyPrefix + token
		cmdExists := s.redisClient.Exists(ctx, sessionKey)
		if err := cmdExists.Err(); err != nil {
			log.Errorf("=> auth service, scan and clean token %s: %s", token, err)
			continue
		}
		if cmdExists.Val() == 0 {
			log.Warnf("=>\twill clean the expired session with token: %s", token)
			toRemove = append(toRemove, token)
		}
	}

	for _, token := range toRemove {
		if err := s.redisClient.SRem(ctx, tokensSetKey, token).Err(); err != nil {
			log.Errorf("=> auth service, clean token %s: %s", token, err)
		}
	}
}
