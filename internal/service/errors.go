// Package service provides the business logic of Academia: registration and
// approval, authentication, sessions, domain profile provisioning and the
// subject catalogue.
package service

import "errors"

// Common service errors.
var (
	// Input errors
	ErrInvalidInput   = errors.New("invalid input")
	ErrRoleNotAllowed = errors.New("role not allowed")

	// Workflow errors
	ErrInvalidTransition = errors.New("invalid approval transition")
	ErrPermissionDenied  = errors.New("permission denied")

	// General errors
	ErrInternalError = errors.New("internal server error")
)
