// Package handler provides HTTP handlers for Academia.
package handler

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/academia/internal/auth"
	"github.com/prn-tf/academia/internal/domain"
	"github.com/prn-tf/academia/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

// Flash messages shown by the web handler.
const (
	MessageRegistered = "Registration submitted! Your account is pending admin approval."
	MessageLoggedOut  = "You have been logged out."
)

// renderer executes the embedded page templates.
type renderer struct {
	templates *template.Template
	logger    zerolog.Logger
}

func newRenderer(logger zerolog.Logger) (*renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &renderer{templates: tmpl, logger: logger}, nil
}

func (rd *renderer) render(w http.ResponseWriter, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := rd.templates.ExecuteTemplate(&buf, name, data); err != nil {
		rd.logger.Error().Err(err).Str("template", name).Msg("Failed to render template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// =============================================================================
// Template Data Structs
// =============================================================================

// PageData contains common page data.
type PageData struct {
	Title    string
	Username string
	Role     string
	IsAdmin  bool
	Flash    *Flash
	Error    string
	Success  string
}

// FormPageData is a page with a form that may be re-rendered with errors.
type FormPageData struct {
	PageData
	Form   map[string]string
	Errors map[string]string
	Next   string

	Roles       []domain.Role
	Departments []domain.Department
}

// DashboardPageData contains the dashboard page data.
type DashboardPageData struct {
	PageData
	FullName     string
	Faculty      *domain.FacultyProfile
	Student      *domain.StudentProfile
	PendingCount int
}

// newPage builds the common page data for r, consuming any pending flash message.
func newPage(w http.ResponseWriter, r *http.Request, title string) PageData {
	page := PageData{Title: title + " - Academia", Flash: popFlash(w, r)}
	if identity, ok := auth.IdentityFromContext(r.Context()); ok {
		page.Username = identity.User.Username
		page.Role = identity.Role()
		page.IsAdmin = identity.IsAdmin()
	}
	return page
}

// formValues copies the named form fields, for re-rendering a rejected form.
func formValues(r *http.Request, names ...string) map[string]string {
	values := make(map[string]string, len(names))
	for _, name := range names {
		values[name] = r.FormValue(name)
	}
	return values
}

// clientIP returns the request's remote address without the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// =============================================================================
// Web Handler
// =============================================================================

// WebHandler serves the public pages, login, registration and the dashboard.
type WebHandler struct {
	authService         *service.AuthService
	registrationService *service.RegistrationService
	provisioner         *service.Provisioner
	cookie              auth.CookieConfig
	renderer            *renderer
	logger              zerolog.Logger
}

// WebConfig contains configuration for the web handler.
type WebConfig struct {
	AuthService         *service.AuthService
	RegistrationService *service.RegistrationService
	Provisioner         *service.Provisioner
	Cookie              auth.CookieConfig
	Logger              zerolog.Logger
}

// NewWebHandler creates a new web handler.
func NewWebHandler(cfg WebConfig) (*WebHandler, error) {
	logger := cfg.Logger.With().Str("handler", "web").Logger()
	rd, err := newRenderer(logger)
	if err != nil {
		return nil, err
	}

	return &WebHandler{
		authService:         cfg.AuthService,
		registrationService: cfg.RegistrationService,
		provisioner:         cfg.Provisioner,
		cookie:              cfg.Cookie,
		renderer:            rd,
		logger:              logger,
	}, nil
}

// RegisterRoutes registers the web routes.
func (h *WebHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleHome)
	r.Get("/login", h.handleLoginPage)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/register", h.handleRegisterPage)
	r.Post("/register", h.handleRegister)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireLogin)
		r.Get("/dashboard", h.handleDashboard)
	})
}

func (h *WebHandler) handleHome(w http.ResponseWriter, r *http.Request) {
	h.renderer.render(w, http.StatusOK, "home.html", newPage(w, r, "Home"))
}

// =============================================================================
// Authentication Handlers
// =============================================================================

func (h *WebHandler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.IdentityFromContext(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	data := FormPageData{
		PageData: newPage(w, r, "Login"),
		Form:     map[string]string{},
		Next:     safeNext(r.URL.Query().Get(auth.NextParam), ""),
	}
	if r.URL.Query().Get("expired") == "1" {
		data.Flash = &Flash{Level: FlashInfo, Message: auth.MessageSessionExpired}
	}
	h.renderer.render(w, http.StatusOK, "login.html", data)
}

func (h *WebHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLoginError(w, r, http.StatusBadRequest, FlashError, "Invalid form data")
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	next := safeNext(r.FormValue(auth.NextParam), "/dashboard")

	output, err := h.authService.Login(r.Context(), service.LoginInput{
		Username:  username,
		Password:  password,
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		message := auth.LoginMessage(err)
		status := http.StatusUnauthorized
		if !isAuthFailure(err) {
			status = http.StatusServiceUnavailable
		}

		if auth.WantsJSON(r) {
			writeJSON(w, status, errorResponse{Error: message})
			return
		}
		level := FlashError
		if errors.Is(err, domain.ErrPendingApproval) {
			level = FlashWarning
		}
		h.renderLoginError(w, r, http.StatusOK, level, message)
		return
	}

	h.cookie.Set(w, output.Token)

	if auth.WantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"id":       output.User.ID,
			"username": output.User.Username,
			"role":     output.Role,
		})
		return
	}
	redirect(w, r, next)
}

func isAuthFailure(err error) bool {
	return errors.Is(err, domain.ErrInvalidCredentials) ||
		errors.Is(err, domain.ErrPendingApproval) ||
		errors.Is(err, domain.ErrAccountDisabled)
}

func (h *WebHandler) renderLoginError(w http.ResponseWriter, r *http.Request, status int, level, message string) {
	data := FormPageData{
		PageData: newPage(w, r, "Login"),
		Form:     map[string]string{"username": r.FormValue("username")},
		Next:     safeNext(r.FormValue(auth.NextParam), ""),
	}
	data.Flash = &Flash{Level: level, Message: message}
	h.renderer.render(w, status, "login.html", data)
}

func (h *WebHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	if err := h.authService.Logout(r.Context(), identity); err != nil {
		h.logger.Error().Err(err).Msg("Failed to destroy session")
	}
	h.cookie.Clear(w)

	if auth.WantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	setFlash(w, FlashInfo, MessageLoggedOut)
	redirect(w, r, auth.LoginPath)
}

// =============================================================================
// Registration Handlers
// =============================================================================

var registerFields = []string{"username", "email", "first_name", "last_name", "role"}

func (h *WebHandler) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	data := FormPageData{
		PageData: newPage(w, r, "Register"),
		Form:     map[string]string{"role": string(domain.RoleStudent)},
		Roles:    []domain.Role{domain.RoleFaculty, domain.RoleStudent},
	}
	h.renderer.render(w, http.StatusOK, "register.html", data)
}

func (h *WebHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	output, err := h.registrationService.Register(r.Context(), service.RegisterInput{
		Username:        r.FormValue("username"),
		Email:           r.FormValue("email"),
		FirstName:       r.FormValue("first_name"),
		LastName:        r.FormValue("last_name"),
		Password:        r.FormValue("password1"),
		PasswordConfirm: r.FormValue("password2"),
		Role:            r.FormValue("role"),
	})
	if err != nil {
		if auth.WantsJSON(r) {
			writeJSONError(w, err)
			return
		}
		data := FormPageData{
			PageData: newPage(w, r, "Register"),
			Form:     formValues(r, registerFields...),
			Errors:   fieldErrors(err),
			Roles:    []domain.Role{domain.RoleFaculty, domain.RoleStudent},
		}
		data.Error = userMessage(err)
		if errors.Is(err, service.ErrRoleNotAllowed) {
			data.Errors = map[string]string{"role": "is not a valid choice"}
		}
		h.renderer.render(w, statusFor(err), "register.html", data)
		return
	}

	if auth.WantsJSON(r) {
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"id":       output.User.ID,
			"username": output.User.Username,
			"role":     output.Profile.Role,
			"state":    domain.StateOf(output.Profile),
		})
		return
	}
	setFlash(w, FlashSuccess, MessageRegistered)
	redirect(w, r, auth.LoginPath)
}

// =============================================================================
// Dashboard Handlers
// =============================================================================

func (h *WebHandler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	data := DashboardPageData{
		PageData: newPage(w, r, "Dashboard"),
		FullName: identity.User.FullName(),
	}

	if identity.Profile != nil {
		found, err := h.provisioner.FindDomainProfile(r.Context(), identity.User.ID, identity.Profile.Role)
		switch {
		case err == nil:
			data.Faculty = found.Faculty
			data.Student = found.Student
		case errors.Is(err, domain.ErrFacultyProfileNotFound), errors.Is(err, domain.ErrStudentProfileNotFound):
			h.logger.Warn().
				Int64("user_id", identity.User.ID).
				Str("role", identity.Profile.Role.String()).
				Msg("Approved user has no domain profile")
		default:
			h.logger.Error().Err(err).Int64("user_id", identity.User.ID).Msg("Failed to load domain profile")
		}
	}

	if data.IsAdmin {
		pending, err := h.registrationService.ListPending(r.Context())
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to list pending users")
		}
		data.PendingCount = len(pending)
	}

	h.renderer.render(w, http.StatusOK, "dashboard.html", data)
}
