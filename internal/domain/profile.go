package domain

import (
	"time"
)

// Role is the role carried by a Profile.
type Role string

const (
	// RoleAdmin administers users and never has a domain profile.
	RoleAdmin Role = "ADMIN"

	// RoleFaculty owns a FacultyProfile once approved.
	RoleFaculty Role = "FACULTY"

	// RoleStudent owns a StudentProfile once approved.
	RoleStudent Role = "STUDENT"
)

// DisplayPending is the role label shown for users awaiting approval.
const DisplayPending = "PENDING"

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleFaculty, RoleStudent:
		return true
	}
	return false
}

// IsSelfRegistrable reports whether r may be requested through public registration.
func (r Role) IsSelfRegistrable() bool {
	return r == RoleStudent || r == RoleFaculty
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// Profile is the one-to-one approval record of a User.
type Profile struct {
	// ID is the unique identifier for the profile.
	ID int64 `json:"id"`

	// UserID references the owning user (unique).
	UserID int64 `json:"user_id"`

	// Role is the requested or assigned role.
	Role Role `json:"role"`

	// IsApproved is flipped by an administrator.
	IsApproved bool `json:"is_approved"`

	// CreatedAt is the timestamp when the profile was created.
	CreatedAt time.Time `json:"created_at"`
}

// NewProfile creates an unapproved profile for userID.
func NewProfile(userID int64, role Role) *Profile {
	return &Profile{
		UserID:     userID,
		Role:       role,
		IsApproved: false,
		CreatedAt:  time.Now().UTC(),
	}
}

// ApprovalState is the registration lifecycle position of a user.
type ApprovalState string

const (
	// StateUnsubmitted means no Profile exists yet.
	StateUnsubmitted ApprovalState = "UNSUBMITTED"

	// StatePending means the Profile awaits an administrator.
	StatePending ApprovalState = "PENDING"

	// StateApproved is terminal.
	StateApproved ApprovalState = "APPROVED"

	// StateRejected is terminal. It is never persisted: rejection removes the user.
	StateRejected ApprovalState = "REJECTED"
)

// StateOf derives the approval state from an optional profile.
func StateOf(p *Profile) ApprovalState {
	switch {
	case p == nil:
		return StateUnsubmitted
	case p.IsApproved:
		return StateApproved
	default:
		return StatePending
	}
}

// PendingUser pairs an unapproved profile with its user for admin listings.
type PendingUser struct {
	User    *User    `json:"user"`
	Profile *Profile `json:"profile"`
}
