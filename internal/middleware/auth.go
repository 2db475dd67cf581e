package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/medicus-hms/medicus/internal/auth"
	"github.com/medicus-hms/medicus/internal/telemetry/tracing"
	"github.com/medicus-hms/medicus/internal/users"
	"github.com/medicus-hms/medicus/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

// ErrUnauthenticated is returned by ResolveSession when the request carries
// no valid session.
var ErrUnauthenticated = errors.New("unauthenticated")

// IdentityResolver resolves a session's username to the full user record.
type IdentityResolver interface {
	Resolve(ctx context.Context, username string) (*users.User, error)
}

// AuthMiddlewareHandler is the access gate: every path outside the allowlist
// requires a valid session, otherwise the browser is sent to /login. No
// protected content is ever written for an unauthenticated request.
type AuthMiddlewareHandler struct {
	sessionSecret        string
	sessionChecker       auth.SessionChecker
	identityResolver     IdentityResolver
	allowedPaths         map[string]bool
	allowedPathsPrefixes []string
}

func NewAuthMiddlewareHandler(
	sessionSecret string,
	sessionChecker auth.SessionChecker,
	identityResolver IdentityResolver,
) *AuthMiddlewareHandler {
	return &AuthMiddlewareHandler{
		sessionSecret:    sessionSecret,
		sessionChecker:   sessionChecker,
		identityResolver: identityResolver,
		allowedPaths: map[string]bool{
			"/":            true,
			"/register":    true,
			"/login":       true,
			"/favicon.ico": true,
		},
		allowedPathsPrefixes: []string{
			"/static/",
		},
	}
}

func (h *AuthMiddlewareHandler) pathIsAlwaysAllowed(path string) bool {
	if h.allowedPaths[path] {
		return true
	}
	for _, prefix := range h.allowedPathsPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// ResolveSession is the pure gate check: it reads the signed session cookie
// and returns the username the session is bound to. No side effects; the
// redirect on failure is up to the caller.
func (h *AuthMiddlewareHandler) ResolveSession(r *http.Request) (string, error) {
	cookie, err := r.Cookie(auth.SessionCookieName)
	if err != nil {
		return "", ErrUnauthenticated
	}

	token, ok := pkg.VerifySignedValue(h.sessionSecret, cookie.Value)
	if !ok {
		return "", ErrUnauthenticated
	}

	username, err := h.sessionChecker.SessionUser(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrNoSession) {
			return "", ErrUnauthenticated
		}
		return "", err
	}

	return username, nil
}

func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			if h.pathIsAlwaysAllowed(r.URL.Path) {
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			username, err := h.ResolveSession(r)
			if err != nil {
				if errors.Is(err, ErrUnauthenticated) {
					log.Tracef("[no valid session] [auth middleware] unauthenticated => %s", r.URL.Path)
					span.SetStatus(codes.Error, "unauthenticated")
				} else {
					log.Errorf("[failed session check] => %s: %s", r.URL.Path, err)
					span.SetStatus(codes.Error, "check-session-err")
					span.RecordError(err)
				}
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			user, err := h.identityResolver.Resolve(ctx, username)
			if err != nil {
				log.Errorf("[failed identity resolve] user %s => %s: %s", username, r.URL.Path, err)
				span.SetStatus(codes.Error, "resolve-identity-err")
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r.WithContext(ContextWithUser(ctx, user)))
		})
	}
}
