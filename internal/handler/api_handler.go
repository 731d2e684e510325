package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/academia/internal/auth"
	"github.com/prn-tf/academia/internal/domain"
	"github.com/prn-tf/academia/internal/service"
)

// DatabaseChecker reports database reachability for the health endpoint.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// APIHandler serves the JSON endpoints.
type APIHandler struct {
	subjectService *service.SubjectService
	database       DatabaseChecker
	renderer       *renderer
	logger         zerolog.Logger
}

// APIConfig contains configuration for the API handler.
type APIConfig struct {
	SubjectService *service.SubjectService
	Database       DatabaseChecker
	Logger         zerolog.Logger
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(cfg APIConfig) (*APIHandler, error) {
	logger := cfg.Logger.With().Str("handler", "api").Logger()
	rd, err := newRenderer(logger)
	if err != nil {
		return nil, err
	}

	return &APIHandler{
		subjectService: cfg.SubjectService,
		database:       cfg.Database,
		renderer:       rd,
		logger:         logger,
	}, nil
}

// RegisterRoutes registers the API routes.
func (h *APIHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireLogin, auth.RequireAdmin)
		r.Get("/api/subjects", h.handleSubjects)
		r.Get("/api/subjects/{department}", h.handleSubjects)
	})
}

// handleHealth handles health check requests.
func (h *APIHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.database != nil {
		if err := h.database.Ping(r.Context()); err != nil {
			h.logger.Error().Err(err).Msg("Database health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleSubjects lists the subjects of a department plus the common ones.
// htmx requests get the checkbox fragment used by the create-user form.
func (h *APIHandler) handleSubjects(w http.ResponseWriter, r *http.Request) {
	department := chi.URLParam(r, "department")
	if department == "" {
		department = r.URL.Query().Get("department")
	}

	subjects, err := h.subjectService.ListByDepartment(r.Context(), department)
	if err != nil {
		writeJSONError(w, err)
		return
	}
	if subjects == nil {
		subjects = []domain.SubjectSummary{}
	}

	if r.Header.Get("HX-Request") == "true" {
		h.renderer.render(w, http.StatusOK, "subject_options.html", subjects)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"subjects": subjects})
}
