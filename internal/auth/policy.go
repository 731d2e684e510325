package auth

import (
	"github.com/prn-tf/academia/internal/domain"
)

// IsLoginAllowed decides whether user may hold an authenticated session.
// profile is nil when the user has none; such users skip the approval check.
// Approval is checked before the active flag, so an unapproved, inactive
// registrant is told about the pending approval.
func IsLoginAllowed(user *domain.User, profile *domain.Profile) error {
	if user == nil {
		return domain.ErrInvalidCredentials
	}
	if profile != nil && !profile.IsApproved {
		return domain.ErrPendingApproval
	}
	if !user.IsActive {
		return domain.ErrAccountDisabled
	}
	return nil
}

// ResolveRole returns the role label used for display and routing.
// Approved profiles, superusers and ADMIN profiles yield their role, other
// profiles yield PENDING. Without a profile a superuser is ADMIN and anyone
// else has no role.
func ResolveRole(user *domain.User, profile *domain.Profile) string {
	if profile == nil {
		if user != nil && user.IsSuperuser {
			return string(domain.RoleAdmin)
		}
		return ""
	}
	if profile.IsApproved || profile.Role == domain.RoleAdmin || (user != nil && user.IsSuperuser) {
		return string(profile.Role)
	}
	return domain.DisplayPending
}

// IsAdmin reports whether the user may use administrator functions.
func IsAdmin(user *domain.User, profile *domain.Profile) bool {
	if user == nil {
		return false
	}
	if user.IsSuperuser {
		return true
	}
	return profile != nil && profile.Role == domain.RoleAdmin && profile.IsApproved
}
