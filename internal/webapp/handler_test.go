package webapp

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/medicus-hms/medicus/internal/auth"
	"github.com/medicus-hms/medicus/internal/hospital"
	"github.com/medicus-hms/medicus/internal/middleware"
	"github.com/medicus-hms/medicus/internal/users"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSessionSecret = "test-session-secret"

// testSessions is an in-memory session manager sharing its state with an
// auth.TestChecker, so issued tokens pass the access gate.
type testSessions struct {
	checker *auth.TestChecker
	issued  int
}

func (s *testSessions) Login(_ context.Context, username string) (string, error) {
	s.issued++
	token := fmt.Sprintf("session-token-%d", s.issued)
	s.checker.Sessions[token] = username
	return token, nil
}

func (s *testSessions) Logout(_ context.Context, token string) error {
	delete(s.checker.Sessions, token)
	return nil
}

type testApp struct {
	router    *mux.Router
	usersRepo interface{ Count() int }
	sessions  *testSessions
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	usersRepo := users.NewMockRepo()
	usersService := users.NewService(usersRepo)

	sessionChecker := auth.NewTestChecker()
	sessions := &testSessions{checker: sessionChecker}

	handler, err := NewHandler(
		usersService,
		sessions,
		hospital.NewMockRepo(hospital.Overview{Doctors: 3, Patients: 5, Appointments: 7}),
		testSessionSecret,
		time.Hour,
		nil,
	)
	require.NoError(t, err)

	r := mux.NewRouter()
	handler.SetupRoutes(r)

	authMiddleware := middleware.NewAuthMiddlewareHandler(
		testSessionSecret,
		sessionChecker,
		usersRepo,
	)
	r.Use(authMiddleware.AuthCheck())

	return &testApp{
		router:    r,
		usersRepo: usersRepo,
		sessions:  sessions,
	}
}

func (app *testApp) do(t *testing.T, method, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rr := httptest.NewRecorder()
	app.router.ServeHTTP(rr, req)
	return rr
}

func credentialsForm(username, password string) url.Values {
	return url.Values{
		"username": {username},
		"password": {password},
	}
}

func flashFrom(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == flashCookieName && c.MaxAge >= 0 {
			decoded, err := base64.RawURLEncoding.DecodeString(c.Value)
			require.NoError(t, err)
			return string(decoded)
		}
	}
	return ""
}

func cookieFrom(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name && c.MaxAge >= 0 && c.Value != "" {
			return c
		}
	}
	return nil
}

func TestHandler_Routes(t *testing.T) {
	app := newTestApp(t)

	for caseName, route := range map[string]struct {
		name   string
		path   string
		method string
	}{
		"home":          {name: "home", path: "/", method: "GET"},
		"register-page": {name: "register-page", path: "/register", method: "GET"},
		"register-post": {name: "register", path: "/register", method: "POST"},
		"login-page":    {name: "login-page", path: "/login", method: "GET"},
		"login-post":    {name: "login", path: "/login", method: "POST"},
		"dashboard":     {name: "dashboard", path: "/dashboard", method: "GET"},
		"logout":        {name: "logout", path: "/logout", method: "GET"},
	} {
		t.Run(caseName, func(t *testing.T) {
			req, err := http.NewRequest(route.method, route.path, nil)
			require.NoError(t, err)

			routeMatch := &mux.RouteMatch{}
			muxRoute := app.router.Get(route.name)
			require.NotNil(t, muxRoute)
			assert.True(t, muxRoute.Match(req, routeMatch), caseName)
		})
	}
}

func TestRegisterLoginLogoutFlow(t *testing.T) {
	app := newTestApp(t)

	// register alice
	rr := app.do(t, "POST", "/register", credentialsForm("alice", "pw123"))
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
	assert.Equal(t, flashRegistered, flashFrom(t, rr))

	// the flash notice shows up once on the login page
	flashCookie := cookieFrom(rr, flashCookieName)
	require.NotNil(t, flashCookie)
	rr = app.do(t, "GET", "/login", nil, flashCookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Registration successful")

	// login
	rr = app.do(t, "POST", "/login", credentialsForm("alice", "pw123"))
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/dashboard", rr.Header().Get("Location"))
	assert.Equal(t, flashLoggedIn, flashFrom(t, rr))

	sessionCookie := cookieFrom(rr, auth.SessionCookieName)
	require.NotNil(t, sessionCookie)

	// dashboard renders for the logged-in user
	rr = app.do(t, "GET", "/dashboard", nil, sessionCookie)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "alice")
	assert.Contains(t, body, "Doctors")
	assert.Contains(t, body, "Appointments")

	// logout destroys the session
	rr = app.do(t, "GET", "/logout", nil, sessionCookie)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
	assert.Equal(t, flashLoggedOut, flashFrom(t, rr))

	// the old session cookie no longer opens the dashboard
	rr = app.do(t, "GET", "/dashboard", nil, sessionCookie)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
	assert.NotContains(t, rr.Body.String(), "Doctors")
}

func TestRegister_UsernameTaken(t *testing.T) {
	app := newTestApp(t)

	rr := app.do(t, "POST", "/register", credentialsForm("bob", "x"))
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))

	// second registration is rejected, back to the form
	rr = app.do(t, "POST", "/register", credentialsForm("bob", "x"))
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/register", rr.Header().Get("Location"))
	assert.Equal(t, flashUsernameExists, flashFrom(t, rr))

	// exactly one bob record persists
	assert.Equal(t, 1, app.usersRepo.Count())
}

func TestLogin_EnumerationResistance(t *testing.T) {
	app := newTestApp(t)

	rr := app.do(t, "POST", "/register", credentialsForm("alice", "pw123"))
	require.Equal(t, http.StatusSeeOther, rr.Code)

	unknownUser := app.do(t, "POST", "/login", credentialsForm("nouser", "whatever"))
	wrongPassword := app.do(t, "POST", "/login", credentialsForm("alice", "wrongpw"))

	// the two failures must be observably identical
	assert.Equal(t, unknownUser.Code, wrongPassword.Code)
	assert.Equal(t, unknownUser.Header().Get("Location"), wrongPassword.Header().Get("Location"))
	assert.Equal(t, unknownUser.Body.String(), wrongPassword.Body.String())
	assert.Equal(t, flashFrom(t, unknownUser), flashFrom(t, wrongPassword))
	assert.Equal(t, flashInvalidCredentials, flashFrom(t, unknownUser))
}

func TestDashboard_RequiresSession(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/dashboard", "/logout"} {
		rr := app.do(t, "GET", path, nil)
		require.Equal(t, http.StatusSeeOther, rr.Code, path)
		assert.Equal(t, "/login", rr.Header().Get("Location"), path)
		assert.NotContains(t, rr.Body.String(), "Doctors", path)
	}
}

func TestFlash_ShownOnce(t *testing.T) {
	app := newTestApp(t)

	rr := app.do(t, "POST", "/register", credentialsForm("carol", "pw"))
	flashCookie := cookieFrom(rr, flashCookieName)
	require.NotNil(t, flashCookie)

	rr = app.do(t, "GET", "/login", nil, flashCookie)
	assert.Contains(t, rr.Body.String(), "Registration successful")

	// the render clears the cookie
	cleared := false
	for _, c := range rr.Result().Cookies() {
		if c.Name == flashCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared)

	// a fresh request without the cookie shows no notice
	rr = app.do(t, "GET", "/login", nil)
	assert.NotContains(t, rr.Body.String(), "Registration successful")
}
