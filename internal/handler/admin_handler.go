package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/academia/internal/auth"
	"github.com/prn-tf/academia/internal/domain"
	"github.com/prn-tf/academia/internal/service"
)

const pendingUsersPath = "/admin/users/pending"

// AdminHandler serves the approval queue and direct user creation.
type AdminHandler struct {
	registrationService *service.RegistrationService
	renderer            *renderer
	logger              zerolog.Logger
}

// AdminConfig contains configuration for the admin handler.
type AdminConfig struct {
	RegistrationService *service.RegistrationService
	Logger              zerolog.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(cfg AdminConfig) (*AdminHandler, error) {
	logger := cfg.Logger.With().Str("handler", "admin").Logger()
	rd, err := newRenderer(logger)
	if err != nil {
		return nil, err
	}

	return &AdminHandler{
		registrationService: cfg.RegistrationService,
		renderer:            rd,
		logger:              logger,
	}, nil
}

// PendingPageData contains the pending users page data.
type PendingPageData struct {
	PageData
	Pending []*domain.PendingUser
}

// RegisterRoutes registers admin routes. All of them require an administrator.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireLogin, auth.RequireAdmin)

		r.Get("/admin/users/pending", h.handlePending)
		r.Post("/admin/users/{id}/approve", h.handleApprove)
		r.Post("/admin/users/{id}/reject", h.handleReject)
		r.Get("/admin/users/new", h.handleCreatePage)
		r.Post("/admin/users", h.handleCreate)
	})
}

// =============================================================================
// Approval Handlers
// =============================================================================

func (h *AdminHandler) handlePending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.registrationService.ListPending(r.Context())
	if err != nil {
		if auth.WantsJSON(r) {
			writeJSONError(w, err)
			return
		}
		h.renderer.render(w, http.StatusInternalServerError, "error.html", errorPage(w, r, userMessage(err)))
		return
	}

	if auth.WantsJSON(r) {
		if pending == nil {
			pending = []*domain.PendingUser{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"pending": pending})
		return
	}

	data := PendingPageData{
		PageData: newPage(w, r, "Pending users"),
		Pending:  pending,
	}
	h.renderer.render(w, http.StatusOK, "pending_users.html", data)
}

func (h *AdminHandler) handleApprove(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	output, err := h.registrationService.Approve(r.Context(), actor.User.ID, userID)
	if err != nil {
		h.logger.Debug().Err(err).Int64("user_id", userID).Msg("Approve failed")
		h.failAction(w, r, err)
		return
	}

	if auth.WantsJSON(r) {
		resp := map[string]interface{}{
			"id":       output.User.ID,
			"username": output.User.Username,
			"role":     output.Profile.Role,
		}
		if output.Provisioned != nil && output.Provisioned.Identifier != "" {
			resp["identifier"] = output.Provisioned.Identifier
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}
	setFlash(w, FlashSuccess, fmt.Sprintf("User %s has been approved!", output.User.Username))
	redirect(w, r, pendingUsersPath)
}

func (h *AdminHandler) handleReject(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	user, err := h.registrationService.Reject(r.Context(), actor.User.ID, userID)
	if err != nil {
		h.logger.Debug().Err(err).Int64("user_id", userID).Msg("Reject failed")
		h.failAction(w, r, err)
		return
	}

	if auth.WantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	setFlash(w, FlashWarning, fmt.Sprintf("User %s has been rejected and deleted.", user.Username))
	redirect(w, r, pendingUsersPath)
}

func (h *AdminHandler) userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || userID <= 0 {
		if auth.WantsJSON(r) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid user ID"})
		} else {
			http.Error(w, "Invalid user ID", http.StatusBadRequest)
		}
		return 0, false
	}
	return userID, true
}

// failAction reports a failed approve or reject.
func (h *AdminHandler) failAction(w http.ResponseWriter, r *http.Request, err error) {
	if auth.WantsJSON(r) {
		writeJSONError(w, err)
		return
	}
	setFlash(w, FlashError, userMessage(err))
	redirect(w, r, pendingUsersPath)
}

// =============================================================================
// User Creation Handlers
// =============================================================================

var createUserFields = []string{
	"username", "email", "first_name", "last_name", "role",
	"department", "batch", "semester", "section",
}

func (h *AdminHandler) createPage(w http.ResponseWriter, r *http.Request, form, errs map[string]string) FormPageData {
	return FormPageData{
		PageData:    newPage(w, r, "Create user"),
		Form:        form,
		Errors:      errs,
		Roles:       []domain.Role{domain.RoleStudent, domain.RoleFaculty, domain.RoleAdmin},
		Departments: domain.Departments(),
	}
}

func (h *AdminHandler) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	data := h.createPage(w, r, map[string]string{"role": string(domain.RoleStudent)}, nil)
	h.renderer.render(w, http.StatusOK, "create_user.html", data)
}

func (h *AdminHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	input, err := parseCreateUserForm(r)
	if err == nil {
		var output *service.CreateUserDirectOutput
		output, err = h.registrationService.CreateUserDirect(r.Context(), actor.User.ID, input)
		if err == nil {
			h.createSucceeded(w, r, output)
			return
		}
	}

	if auth.WantsJSON(r) {
		writeJSONError(w, err)
		return
	}
	data := h.createPage(w, r, formValues(r, createUserFields...), fieldErrors(err))
	data.Error = userMessage(err)
	h.renderer.render(w, statusFor(err), "create_user.html", data)
}

func (h *AdminHandler) createSucceeded(w http.ResponseWriter, r *http.Request, output *service.CreateUserDirectOutput) {
	if auth.WantsJSON(r) {
		resp := map[string]interface{}{
			"id":                output.User.ID,
			"username":          output.User.Username,
			"role":              output.Profile.Role,
			"message":           output.Message,
			"assigned_subjects": output.AssignedSubjects,
		}
		if output.Faculty != nil {
			resp["identifier"] = output.Faculty.EmployeeNumber
		}
		if output.Student != nil {
			resp["identifier"] = output.Student.RegistrationNumber
		}
		if output.Warning != nil {
			resp["warning"] = output.Warning.Error()
		}
		writeJSON(w, http.StatusCreated, resp)
		return
	}

	level := FlashSuccess
	if output.Warning != nil {
		level = FlashWarning
	}
	setFlash(w, level, output.Message)
	redirect(w, r, pendingUsersPath)
}

// parseCreateUserForm converts the admin form into service input.
// Numeric fields that do not parse are reported as validation errors.
func parseCreateUserForm(r *http.Request) (service.CreateUserDirectInput, error) {
	input := service.CreateUserDirectInput{
		Username:        r.FormValue("username"),
		Email:           r.FormValue("email"),
		FirstName:       r.FormValue("first_name"),
		LastName:        r.FormValue("last_name"),
		Password:        r.FormValue("password1"),
		PasswordConfirm: r.FormValue("password2"),
		Role:            r.FormValue("role"),
		Department:      r.FormValue("department"),
		Batch:           r.FormValue("batch"),
		Section:         r.FormValue("section"),
	}

	fields := map[string]string{}
	if raw := r.FormValue("semester"); raw != "" {
		semester, err := strconv.Atoi(raw)
		if err != nil {
			fields["semester"] = "must be a number"
		}
		input.Semester = semester
	}
	for _, raw := range r.Form["subjects"] {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fields["subjects"] = "contains an invalid subject"
			continue
		}
		input.SubjectIDs = append(input.SubjectIDs, id)
	}

	if len(fields) > 0 {
		return input, &service.ValidationError{Fields: fields}
	}
	return input, nil
}

func errorPage(w http.ResponseWriter, r *http.Request, message string) PageData {
	page := newPage(w, r, "Error")
	page.Error = message
	return page
}
