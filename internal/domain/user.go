// Package domain contains the core entities of the Academia records system.
// These are plain Go structs with no infrastructure dependencies: identities,
// their approval profiles and the role-specific academic profiles.
package domain

import (
	"strings"
	"time"
)

// User is the base identity record.
// Every non-superuser user has exactly one Profile.
type User struct {
	// ID is the store-assigned numeric identifier.
	// It is monotonic and feeds identifier synthesis (FAC00007, STU00007).
	ID int64 `json:"id"`

	// Username is the unique login name.
	Username string `json:"username"`

	// Email is the contact address supplied at registration.
	Email string `json:"email"`

	// FirstName is the given name.
	FirstName string `json:"first_name"`

	// LastName is the family name.
	LastName string `json:"last_name"`

	// PasswordHash is the bcrypt hash of the password.
	// This should never be exposed in API responses.
	PasswordHash string `json:"-"`

	// IsActive indicates whether the account may log in.
	// Registered users stay inactive until approved.
	IsActive bool `json:"is_active"`

	// IsSuperuser marks bootstrap administrators.
	// A superuser may have no Profile and is then implicitly an approved ADMIN.
	IsSuperuser bool `json:"is_superuser"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp when the user was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser creates a new inactive, non-superuser User.
func NewUser(username, email, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     false,
		IsSuperuser:  false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// FullName returns "First Last", falling back to the username.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}
