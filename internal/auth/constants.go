// Package auth provides session authentication and approval gating for Academia.
//
// Login is gated twice by IsLoginAllowed: once by the login pre-check in the
// auth service and once by the credential backend. The session middleware
// applies the same predicate again on every request.
package auth

import "time"

const (
	// DefaultCookieName is the name of the session cookie.
	DefaultCookieName = "session"

	// DefaultSessionMaxAge bounds the lifetime of a session cookie.
	DefaultSessionMaxAge = 14 * 24 * time.Hour

	// LoginPath is where unauthenticated browsers are redirected.
	LoginPath = "/login"

	// NextParam carries the originally requested path through the login redirect.
	NextParam = "next"
)
