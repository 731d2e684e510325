package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/prn-tf/academia/internal/auth"
	"github.com/prn-tf/academia/internal/cache/memory"
	"github.com/prn-tf/academia/internal/domain"
	"github.com/prn-tf/academia/internal/events"
	"github.com/prn-tf/academia/internal/lock"
	"github.com/prn-tf/academia/internal/metrics"
	"github.com/prn-tf/academia/internal/repository"
	"github.com/prn-tf/academia/internal/repository/sqlite"
	"github.com/prn-tf/academia/internal/service"
)

func init() {
	auth.SetHashCost(bcrypt.MinCost)
}

type testServer struct {
	handler      http.Handler
	repos        *repository.Repositories
	users        *service.UserService
	registration *service.RegistrationService
	subjects     *service.SubjectService
	events       *events.RecordingPublisher
	metrics      *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	logger := zerolog.Nop()

	db, err := sqlite.NewDB(ctx, sqlite.DefaultConfig(filepath.Join(t.TempDir(), "academia.db")), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))
	repos := db.Repositories()

	cache := memory.NewCache()
	t.Cleanup(cache.Stop)

	m := metrics.NewMetrics()
	publisher := events.NewRecordingPublisher()

	provisioner := service.NewProvisioner(repos, domain.DefaultProvisioningDefaults(), m, publisher, logger)
	users := service.NewUserService(repos, provisioner, logger)
	registration := service.NewRegistrationService(repos, users, provisioner, m, publisher, logger)
	sessions := service.NewSessionService(cache, service.DefaultSessionConfig(), m, publisher, logger)
	authService := service.NewAuthService(repos, auth.NewApprovedUserBackend(repos.User, repos.Profile), sessions, m, publisher, logger)
	subjects := service.NewSubjectService(repos, lock.NewMemoryLocker(), logger)

	cookie := auth.DefaultCookieConfig()

	web, err := NewWebHandler(WebConfig{
		AuthService:         authService,
		RegistrationService: registration,
		Provisioner:         provisioner,
		Cookie:              cookie,
		Logger:              logger,
	})
	require.NoError(t, err)
	admin, err := NewAdminHandler(AdminConfig{RegistrationService: registration, Logger: logger})
	require.NoError(t, err)
	api, err := NewAPIHandler(APIConfig{SubjectService: subjects, Database: db, Logger: logger})
	require.NoError(t, err)

	router := NewRouter(RouterConfig{
		WebHandler:        web,
		AdminHandler:      admin,
		APIHandler:        api,
		SessionMiddleware: SessionMiddleware(sessions, users, cookie, "/metrics", logger),
		Metrics:           m,
		MetricsPath:       "/metrics",
		Logger:            logger,
	})

	return &testServer{
		handler:      router.Handler(),
		repos:        repos,
		users:        users,
		registration: registration,
		subjects:     subjects,
		events:       publisher,
		metrics:      m,
	}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func postForm(path string, form url.Values, session *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if session != nil {
		req.AddCookie(session)
	}
	return req
}

func get(path string, session *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if session != nil {
		req.AddCookie(session)
	}
	return req
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.DefaultCookieName && c.Value != "" {
			return c
		}
	}
	return nil
}

func (s *testServer) login(t *testing.T, username string) *http.Cookie {
	t.Helper()
	rec := s.do(postForm("/login", url.Values{"username": {username}, "password": {"password123"}}, nil))
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	return cookie
}

func (s *testServer) createAdmin(t *testing.T) *http.Cookie {
	t.Helper()
	_, err := s.users.CreateSuperuser(context.Background(), "admin", "admin@example.edu", "password123")
	require.NoError(t, err)
	return s.login(t, "admin")
}

func registration(username, role string) url.Values {
	return url.Values{
		"username":   {username},
		"email":      {username + "@example.edu"},
		"first_name": {"Test"},
		"last_name":  {"User"},
		"password1":  {"password123"},
		"password2":  {"password123"},
		"role":       {role},
	}
}

func (s *testServer) register(t *testing.T, username, role string) *domain.User {
	t.Helper()
	rec := s.do(postForm("/register", registration(username, role), nil))
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	user, err := s.users.GetByUsername(context.Background(), username)
	require.NoError(t, err)
	return user
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(get("/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestRegisterThenLoginPending(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(postForm("/register", registration("newbie", "STUDENT"), nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, auth.LoginPath, rec.Header().Get("Location"))

	rec = s.do(postForm("/login", url.Values{"username": {"newbie"}, "password": {"password123"}}, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), auth.MessagePendingApproval)
	assert.Nil(t, sessionCookie(rec))
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(postForm("/register", registration("sneaky", "ADMIN"), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Select a valid role")

	_, err := s.users.GetByUsername(context.Background(), "sneaky")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestRegisterJSONValidation(t *testing.T) {
	s := newTestServer(t)

	form := registration("bob", "FACULTY")
	form.Set("password2", "mismatch1")
	req := postForm("/register", form, nil)
	req.Header.Set("Accept", "application/json")

	rec := s.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Fields, "password2")
}

func TestLoginFailures(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "pending", "FACULTY")

	tests := []struct {
		name     string
		username string
		password string
		want     string
	}{
		{"unknown user", "ghost", "password123", auth.MessageInvalidCredentials},
		{"wrong password", "pending", "password999", auth.MessageInvalidCredentials},
		{"pending approval", "pending", "password123", auth.MessagePendingApproval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := postForm("/login", url.Values{"username": {tt.username}, "password": {tt.password}}, nil)
			req.Header.Set("Accept", "application/json")

			rec := s.do(req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, fmt.Sprintf(`{"error":%q}`, tt.want), rec.Body.String())
			assert.Nil(t, sessionCookie(rec))
		})
	}
}

func TestApproveThenLogin(t *testing.T) {
	s := newTestServer(t)
	adminCookie := s.createAdmin(t)
	user := s.register(t, "stud", "STUDENT")

	rec := s.do(get("/admin/users/pending", adminCookie))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stud")

	rec = s.do(postForm(fmt.Sprintf("/admin/users/%d/approve", user.ID), nil, adminCookie))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, pendingUsersPath, rec.Header().Get("Location"))

	userCookie := s.login(t, "stud")
	rec = s.do(get("/dashboard", userCookie))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), domain.RegistrationNumber(user.ID))

	// Approving twice is not a valid transition.
	req := postForm(fmt.Sprintf("/admin/users/%d/approve", user.ID), nil, adminCookie)
	req.Header.Set("Accept", "application/json")
	rec = s.do(req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestReject(t *testing.T) {
	s := newTestServer(t)
	adminCookie := s.createAdmin(t)
	user := s.register(t, "prof", "FACULTY")

	req := postForm(fmt.Sprintf("/admin/users/%d/reject", user.ID), nil, adminCookie)
	req.Header.Set("Accept", "application/json")
	rec := s.do(req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err := s.users.GetByID(context.Background(), user.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	rec = s.do(postForm(fmt.Sprintf("/admin/users/%d/reject", user.ID), nil, adminCookie))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	s := newTestServer(t)
	adminCookie := s.createAdmin(t)
	user := s.register(t, "stud", "STUDENT")
	_, err := s.registration.Approve(context.Background(), 1, user.ID)
	require.NoError(t, err)
	studentCookie := s.login(t, "stud")

	rec := s.do(get("/admin/users/pending", studentCookie))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(get("/admin/users/pending", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?next=%2Fadmin%2Fusers%2Fpending", rec.Header().Get("Location"))

	rec = s.do(get("/admin/users/new", adminCookie))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDashboardRequiresLogin(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(get("/dashboard", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?next=%2Fdashboard", rec.Header().Get("Location"))
}

func TestLogout(t *testing.T) {
	s := newTestServer(t)
	adminCookie := s.createAdmin(t)

	rec := s.do(postForm("/logout", nil, adminCookie))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, auth.LoginPath, rec.Header().Get("Location"))

	rec = s.do(get("/dashboard", adminCookie))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, s.events.Types(), events.ActivityLogout)
}

func TestSubjectsAPI(t *testing.T) {
	s := newTestServer(t)
	adminCookie := s.createAdmin(t)
	ctx := context.Background()

	_, err := s.subjects.LoadCatalogue(ctx)
	require.NoError(t, err)

	rec := s.do(get("/api/subjects?department=CSE", adminCookie))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Subjects []domain.SubjectSummary `json:"subjects"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Subjects)
	assert.Equal(t, 1, body.Subjects[0].Semester)

	want, err := s.subjects.ListByDepartment(ctx, "CSE")
	require.NoError(t, err)
	assert.Equal(t, want, body.Subjects)

	rec = s.do(get("/api/subjects/CSE", adminCookie))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(get("/api/subjects?department=XYZ", adminCookie))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(get("/api/subjects?department=CSE", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Please log in to continue."}`, rec.Body.String())

	req := get("/api/subjects?department=CSE", adminCookie)
	req.Header.Set("HX-Request", "true")
	rec = s.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="subjects"`)
}

func TestAdminCreateUser(t *testing.T) {
	s := newTestServer(t)
	adminCookie := s.createAdmin(t)

	form := registration("prof", "FACULTY")
	req := postForm("/admin/users", form, adminCookie)
	req.Header.Set("Accept", "application/json")

	rec := s.do(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "User prof created but department not set!", body["message"])
	assert.Contains(t, body["warning"], domain.ErrPartialAdminCreation.Error())
	assert.NotContains(t, body, "identifier")

	form = registration("prof2", "FACULTY")
	form.Set("department", "ECE")
	rec = s.do(postForm("/admin/users", form, adminCookie))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	user, err := s.users.GetByUsername(context.Background(), "prof2")
	require.NoError(t, err)
	faculty, err := s.repos.Faculty.GetByUserID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeptECE, faculty.Department)
	assert.Equal(t, domain.EmployeeNumber(user.ID), faculty.EmployeeNumber)

	form = registration("stud", "STUDENT")
	form.Set("semester", "abc")
	rec = s.do(postForm("/admin/users", form, adminCookie))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(get("/health", nil))

	rec := s.do(get("/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "academia_http_requests_total")
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		next string
		want string
	}{
		{"/dashboard", "/dashboard"},
		{"", "/fallback"},
		{"https://evil.example", "/fallback"},
		{"//evil.example", "/fallback"},
		{"/\\evil.example", "/fallback"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, safeNext(tt.next, "/fallback"), tt.next)
	}
}
