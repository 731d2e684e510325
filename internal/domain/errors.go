package domain

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).

var (
	// ===========================================
	// User Errors
	// ===========================================

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates a user with the same username exists.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ===========================================
	// Profile Errors
	// ===========================================

	// ErrProfileNotFound indicates the user has no Profile.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrStudentProfileNotFound indicates the user has no StudentProfile.
	ErrStudentProfileNotFound = errors.New("student profile not found")

	// ErrFacultyProfileNotFound indicates the user has no FacultyProfile.
	ErrFacultyProfileNotFound = errors.New("faculty profile not found")

	// ErrIdentifierConflict indicates a synthesized registration or employee number
	// is already owned by another user.
	ErrIdentifierConflict = errors.New("identifier already assigned")

	// ErrInvalidDepartment indicates an unknown department code.
	ErrInvalidDepartment = errors.New("invalid department")

	// ===========================================
	// Subject Errors
	// ===========================================

	// ErrSubjectNotFound indicates the requested subject does not exist.
	ErrSubjectNotFound = errors.New("subject not found")

	// ===========================================
	// Authentication Errors
	// ===========================================

	// ErrInvalidCredentials covers both unknown usernames and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrPendingApproval indicates valid credentials for an unapproved profile.
	ErrPendingApproval = errors.New("account pending approval")

	// ErrAccountDisabled indicates valid credentials for an inactive user.
	ErrAccountDisabled = errors.New("account disabled")

	// ===========================================
	// Session Errors
	// ===========================================

	// ErrSessionNotFound indicates the session token is unknown.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired indicates the session exceeded the idle timeout and was destroyed.
	ErrSessionExpired = errors.New("session expired")

	// ===========================================
	// Provisioning Errors
	// ===========================================

	// ErrProvisioningInconsistency indicates an approved profile without its domain profile.
	ErrProvisioningInconsistency = errors.New("approved profile has no matching domain profile")

	// ErrPartialAdminCreation is a warning: user and profile were created but
	// role-specific fields were missing, so no domain profile exists yet.
	ErrPartialAdminCreation = errors.New("user created without role-specific details")
)

// DomainError wraps a domain error with additional context.
type DomainError struct {
	// Err is the underlying domain error.
	Err error

	// Message provides additional context.
	Message string

	// Resource identifies the affected resource (e.g., username, department code).
	Resource string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Err.Error(), e.Message, e.Resource)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError with context.
func NewDomainError(err error, message, resource string) *DomainError {
	return &DomainError{
		Err:      err,
		Message:  message,
		Resource: resource,
	}
}

// Inconsistency describes an approved profile whose domain profile is missing.
type Inconsistency struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// Error implements the error interface.
func (i *Inconsistency) Error() string {
	return fmt.Sprintf("%s: user %d (%s) role %s", ErrProvisioningInconsistency, i.UserID, i.Username, i.Role)
}

// Unwrap returns ErrProvisioningInconsistency.
func (i *Inconsistency) Unwrap() error {
	return ErrProvisioningInconsistency
}
