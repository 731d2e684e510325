package auth

import (
	"errors"

	"github.com/prn-tf/academia/internal/domain"
)

// User-facing login messages.
const (
	MessageInvalidCredentials = "Invalid username or password. Please try again."
	MessagePendingApproval    = "Your account is pending admin approval. Please wait for approval before logging in."
	MessageAccountDisabled    = "Your account has been deactivated. Please contact the administrator."
	MessageSessionExpired     = "Your session has expired due to inactivity. Please log in again."
	MessageLoginRequired      = "Please log in to continue."
	MessageAdminRequired      = "You do not have permission to access this page."
	MessageLoginUnavailable   = "Login is temporarily unavailable. Please try again later."
)

// LoginMessage maps an authentication error to the message shown to the user.
func LoginMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return MessageInvalidCredentials
	case errors.Is(err, domain.ErrPendingApproval):
		return MessagePendingApproval
	case errors.Is(err, domain.ErrAccountDisabled):
		return MessageAccountDisabled
	case errors.Is(err, domain.ErrSessionExpired):
		return MessageSessionExpired
	}
	return MessageLoginUnavailable
}
