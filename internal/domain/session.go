package domain

import (
	"time"
)

// DefaultIdleTimeout is the inactivity window after which a session is terminated.
const DefaultIdleTimeout = 1800 * time.Second

// Session is a server-side login session.
// The browser only holds the opaque token; the store key is derived from it.
type Session struct {
	// UserID references the authenticated user.
	UserID int64 `json:"user_id"`

	// Username is cached for logging and display.
	Username string `json:"username"`

	// CreatedAt is when the session was established.
	CreatedAt time.Time `json:"created_at"`

	// LastActivity is refreshed on every authenticated request.
	LastActivity time.Time `json:"last_activity"`

	// IPAddress and UserAgent are recorded at login.
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// IdleFor returns how long the session has been idle at now.
func (s *Session) IdleFor(now time.Time) time.Duration {
	if s.LastActivity.IsZero() {
		return 0
	}
	return now.Sub(s.LastActivity)
}

// IsIdleExpired reports whether the idle time strictly exceeds timeout.
// A session with no recorded activity never counts as expired.
func (s *Session) IsIdleExpired(now time.Time, timeout time.Duration) bool {
	return s.IdleFor(now) > timeout
}

// Touch records activity at now.
func (s *Session) Touch(now time.Time) {
	s.LastActivity = now
}
