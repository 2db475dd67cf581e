package webapp

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/medicus-hms/medicus/internal/auth"
	"github.com/medicus-hms/medicus/internal/hospital"
	"github.com/medicus-hms/medicus/internal/middleware"
	"github.com/medicus-hms/medicus/internal/telemetry/metrics"
	"github.com/medicus-hms/medicus/internal/telemetry/tracing"
	"github.com/medicus-hms/medicus/internal/users"
	"github.com/medicus-hms/medicus/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

// flash notice texts, kept as the original hospital app phrased them
const (
	flashUsernameExists     = "⚠️ Username already exists."
	flashRegistered         = "✅ Registration successful. You can now log in."
	flashInvalidCredentials = "⚠️ Invalid username or password."
	flashLoggedIn           = "✅ Logged in successfully!"
	flashLoggedOut          = "✅ Logged out successfully!"
)

type usersService interface {
	Register(ctx context.Context, username, password string) (*users.User, error)
	CheckCredentials(ctx context.Context, username, password string) (*users.User, error)
}

type sessionManager interface {
	Login(ctx context.Context, username string) (string, error)
	Logout(ctx context.Context, token string) error
}

type overviewRepo interface {
	Overview(ctx context.Context) (*hospital.Overview, error)
}

// Handler serves the server-rendered pages: landing, register, login,
// dashboard and logout. Dashboard and logout sit behind the auth middleware.
type Handler struct {
	users          usersService
	sessions       sessionManager
	hospitalRepo   overviewRepo
	sessionSecret  string
	sessionTTL     time.Duration
	metricsManager *metrics.Manager
	templates      map[string]*template.Template
}

func NewHandler(
	usersService usersService,
	sessions sessionManager,
	hospitalRepo overviewRepo,
	sessionSecret string,
	sessionTTL time.Duration,
	metricsManager *metrics.Manager,
) (*Handler, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	return &Handler{
		users:          usersService,
		sessions:       sessions,
		hospitalRepo:   hospitalRepo,
		sessionSecret:  sessionSecret,
		sessionTTL:     sessionTTL,
		metricsManager: metricsManager,
		templates:      templates,
	}, nil
}

func (h *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/", h.handleHome).Methods("GET").Name("home")
	router.HandleFunc("/register", h.handleRegisterPage).Methods("GET").Name("register-page")
	router.HandleFunc("/register", h.handleRegister).Methods("POST").Name("register")
	router.HandleFunc("/login", h.handleLoginPage).Methods("GET").Name("login-page")
	router.HandleFunc("/login", h.handleLogin).Methods("POST").Name("login")
	router.HandleFunc("/dashboard", h.handleDashboard).Methods("GET").Name("dashboard")
	router.HandleFunc("/logout", h.handleLogout).Methods("GET").Name("logout")
}

func (h *Handler) handleHome(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "index.html", templateData{})
}

func (h *Handler) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "register.html", templateData{})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "webapp.register")
	defer span.End()

	if err := r.ParseForm(); err != nil {
		log.Errorf("register failed, parse form error: %s", err)
		http.Error(w, "parse form error", http.StatusInternalServerError)
		return
	}

	// empty username/password are accepted, same as the original app
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")

	if _, err := h.users.Register(ctx, username, password); err != nil {
		if errors.Is(err, users.ErrUsernameTaken) {
			span.SetStatus(codes.Error, "username-taken")
			setFlash(w, flashUsernameExists)
			http.Redirect(w, r, "/register", http.StatusSeeOther)
			return
		}
		log.Errorf("register user %q: %s", username, err)
		span.SetStatus(codes.Error, "register-err")
		span.RecordError(err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if h.metricsManager != nil {
		h.metricsManager.CounterRegistrations.Inc()
	}

	span.SetStatus(codes.Ok, "registered")
	setFlash(w, flashRegistered)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "login.html", templateData{})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "webapp.login")
	defer span.End()

	if err := r.ParseForm(); err != nil {
		log.Errorf("login failed, parse form error: %s", err)
		http.Error(w, "parse form error", http.StatusInternalServerError)
		return
	}

	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")

	user, err := h.users.CheckCredentials(ctx, username, password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			// same notice for unknown username and wrong password
			log.Tracef("failed login attempt for user: %s", username)
			if h.metricsManager != nil {
				h.metricsManager.CounterFailedLogins.Inc()
			}
			span.SetStatus(codes.Error, "invalid-credentials")
			setFlash(w, flashInvalidCredentials)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		log.Errorf("login check for user %q: %s", username, err)
		span.SetStatus(codes.Error, "login-check-err")
		span.RecordError(err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	token, err := h.sessions.Login(ctx, user.Username)
	if err != nil {
		log.Errorf("login failed, generate session error: %s", err)
		span.SetStatus(codes.Error, "session-issue-err")
		span.RecordError(err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    pkg.SignValue(h.sessionSecret, token),
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	if h.metricsManager != nil {
		h.metricsManager.CounterLogins.Inc()
	}

	log.Tracef("new login success for user: %s", user.Username)
	span.SetStatus(codes.Ok, "logged-in")
	setFlash(w, flashLoggedIn)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "webapp.dashboard")
	defer span.End()

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		// the auth middleware puts the user on the context; reaching this
		// without one means the route was wired outside the gate
		log.Errorf("dashboard: no user on request context")
		span.SetStatus(codes.Error, "no-user-in-context")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	overview, err := h.hospitalRepo.Overview(ctx)
	if err != nil {
		log.Errorf("dashboard overview: %s", err)
		span.SetStatus(codes.Error, "overview-err")
		span.RecordError(err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	span.SetStatus(codes.Ok, "ok")
	h.renderPage(w, r, "dashboard.html", templateData{
		Username: user.Username,
		Overview: overview,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "webapp.logout")
	defer span.End()

	if cookie, err := r.Cookie(auth.SessionCookieName); err == nil {
		if token, ok := pkg.VerifySignedValue(h.sessionSecret, cookie.Value); ok {
			if err := h.sessions.Logout(ctx, token); err != nil {
				log.Errorf("logout session destroy: %s", err)
				span.RecordError(err)
			}
		}
	}

	// expire the session cookie regardless
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	if h.metricsManager != nil {
		h.metricsManager.CounterLogouts.Inc()
	}

	span.SetStatus(codes.Ok, "logged-out")
	setFlash(w, flashLoggedOut)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
