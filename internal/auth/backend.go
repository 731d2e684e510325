package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/prn-tf/academia/internal/domain"
	"github.com/prn-tf/academia/internal/repository"
)

// Backend verifies credentials and returns the authenticated user.
type Backend interface {
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
}

// ApprovedUserBackend authenticates against the user store and refuses users
// whose profile is unapproved or who are inactive.
type ApprovedUserBackend struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
}

// NewApprovedUserBackend creates a new ApprovedUserBackend.
func NewApprovedUserBackend(users repository.UserRepository, profiles repository.ProfileRepository) *ApprovedUserBackend {
	return &ApprovedUserBackend{users: users, profiles: profiles}
}

// Authenticate checks, in order, that the user exists, the password matches,
// the profile (if any) is approved and the user is active.
func (b *ApprovedUserBackend) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := b.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			BurnPassword(password)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !CheckPassword(user.PasswordHash, password) {
		return nil, domain.ErrInvalidCredentials
	}

	profile, err := LoadProfile(ctx, b.profiles, user.ID)
	if err != nil {
		return nil, err
	}

	if err := IsLoginAllowed(user, profile); err != nil {
		return nil, err
	}

	return user, nil
}

// LoadProfile returns the user's profile, or nil if the user has none.
func LoadProfile(ctx context.Context, profiles repository.ProfileRepository, userID int64) (*domain.Profile, error) {
	profile, err := profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return profile, nil
}

// Ensure ApprovedUserBackend implements Backend.
var _ Backend = (*ApprovedUserBackend)(nil)
