package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/prn-tf/academia/internal/auth"
	"github.com/prn-tf/academia/internal/domain"
	"github.com/prn-tf/academia/internal/service"
)

// Flash levels, matching the alert classes used by the templates.
const (
	FlashSuccess = "success"
	FlashWarning = "warning"
	FlashError   = "error"
	FlashInfo    = "info"
)

const flashCookieName = "flash"

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Level   string
	Message string
}

// setFlash stores a message for the next request.
func setFlash(w http.ResponseWriter, level, message string) {
	value := base64.RawURLEncoding.EncodeToString([]byte(level + "|" + message))
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// popFlash reads and clears the pending flash message, if any.
func popFlash(w http.ResponseWriter, r *http.Request) *Flash {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookieName, Value: "", Path: "/", MaxAge: -1})

	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	level, message, ok := strings.Cut(string(raw), "|")
	if !ok {
		return nil
	}
	return &Flash{Level: level, Message: message}
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the JSON body of a failed API request.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSONError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: userMessage(err)}
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	writeJSON(w, statusFor(err), resp)
}

// statusFor maps a service or domain error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrRoleNotAllowed),
		errors.Is(err, domain.ErrInvalidDepartment),
		errors.Is(err, domain.ErrSubjectNotFound):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrPendingApproval),
		errors.Is(err, domain.ErrAccountDisabled):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrProfileNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUserAlreadyExists),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, domain.ErrIdentifierConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// userMessage returns text safe to show to the user for err.
func userMessage(err error) string {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return "Please correct the errors below."
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrPendingApproval),
		errors.Is(err, domain.ErrAccountDisabled):
		return auth.LoginMessage(err)
	case errors.Is(err, service.ErrRoleNotAllowed):
		return "Select a valid role: Faculty or Student."
	case errors.Is(err, domain.ErrUserAlreadyExists):
		return "A user with that username already exists."
	case errors.Is(err, domain.ErrUserNotFound):
		return "User not found."
	case errors.Is(err, service.ErrInvalidTransition):
		return "This user is not pending approval."
	case errors.Is(err, domain.ErrInvalidDepartment):
		return "Unknown department."
	case errors.Is(err, domain.ErrSubjectNotFound):
		return "One or more selected subjects do not exist."
	}
	return "Something went wrong. Please try again."
}

// fieldErrors returns per-field validation messages carried by err.
func fieldErrors(err error) map[string]string {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return verr.Fields
	}
	return nil
}

// safeNext returns next when it is a local path, else fallback.
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return fallback
	}
	return next
}

// redirect sends the client to target, using HX-Redirect for htmx requests.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
