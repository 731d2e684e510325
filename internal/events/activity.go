// Package events publishes account activity (logins, approvals, provisioning)
// as JSON messages through watermill.
package events

import (
	"time"

	"github.com/google/uuid"
)

// ActivityType identifies an activity event.
type ActivityType string

const (
	// Authentication
	ActivityLoginSucceeded ActivityType = "auth.login.success"
	ActivityLoginFailed    ActivityType = "auth.login.failure"
	ActivityLogout         ActivityType = "auth.logout"
	ActivitySessionExpired ActivityType = "auth.session.idle_expired"

	// Registration workflow
	ActivityUserRegistered     ActivityType = "user.registered"
	ActivityUserApproved       ActivityType = "user.approved"
	ActivityUserRejected       ActivityType = "user.rejected"
	ActivityUserCreatedByAdmin ActivityType = "user.created_by_admin"

	// Provisioning
	ActivityProfileProvisioned ActivityType = "profile.provisioned"
	ActivityProfileRepaired    ActivityType = "profile.repaired"
)

// Source is the value of the "source" metadata header.
const Source = "academia"

// Activity is a single account activity record.
type Activity struct {
	ID        string            `json:"id"`
	Type      ActivityType      `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	UserID    int64             `json:"user_id,omitempty"`
	Username  string            `json:"username,omitempty"`
	Role      string            `json:"role,omitempty"`
	ActorID   int64             `json:"actor_id,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NewActivity creates an activity with a fresh ID and the current time.
func NewActivity(t ActivityType, userID int64, username string) *Activity {
	return &Activity{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		Username:  username,
	}
}

// WithRole sets the role.
func (a *Activity) WithRole(role string) *Activity {
	a.Role = role
	return a
}

// WithActor sets the administrator who performed the action.
func (a *Activity) WithActor(actorID int64) *Activity {
	a.ActorID = actorID
	return a
}

// WithReason sets a short machine-readable reason.
func (a *Activity) WithReason(reason string) *Activity {
	a.Reason = reason
	return a
}

// WithMeta adds a metadata entry.
func (a *Activity) WithMeta(key, value string) *Activity {
	if a.Metadata == nil {
		a.Metadata = make(map[string]string)
	}
	a.Metadata[key] = value
	return a
}
