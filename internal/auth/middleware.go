package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/academia/internal/domain"
	"github.com/prn-tf/academia/internal/pkg/crypto"
)

// SessionStore resumes and destroys sessions by raw token.
// Resume applies the idle timeout: an idle-expired session is destroyed and
// domain.ErrSessionExpired returned; otherwise its last activity is refreshed.
type SessionStore interface {
	Resume(ctx context.Context, token string) (*domain.Session, error)
	Destroy(ctx context.Context, token string) error
}

// IdentityLoader loads the current user and profile of a session.
// The profile is nil when the user has none.
type IdentityLoader interface {
	LoadIdentity(ctx context.Context, userID int64) (*domain.User, *domain.Profile, error)
}

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// DefaultCookieConfig returns the default cookie configuration.
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Name:   DefaultCookieName,
		MaxAge: DefaultSessionMaxAge,
	}
}

// Set writes the session cookie.
func (c CookieConfig) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(c.MaxAge / time.Second),
	})
}

// Clear expires the session cookie.
func (c CookieConfig) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
}

// Token returns the session token carried by r.
func (c CookieConfig) Token(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(c.Name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// MiddlewareConfig configures the session middleware.
type MiddlewareConfig struct {
	Cookie CookieConfig

	// SkipPaths are path prefixes that bypass session handling entirely.
	SkipPaths []string

	Logger zerolog.Logger
}

type expiredKey struct{}

// SessionExpired reports whether the request's session was just ended by the idle timeout.
func SessionExpired(ctx context.Context) bool {
	expired, _ := ctx.Value(expiredKey{}).(bool)
	return expired
}

// Middleware resolves the session cookie into an Identity.
//
// For every request carrying a cookie it applies the idle timeout, reloads the
// user and profile, and re-checks IsLoginAllowed. A session that is gone, whose
// user was deleted or is no longer allowed is destroyed and its cookie cleared.
// Store failures leave the session alone; the request continues anonymously
// either way.
func Middleware(sessions SessionStore, identities IdentityLoader, cfg MiddlewareConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger.With().Str("middleware", "session").Logger()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range cfg.SkipPaths {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			token, ok := cfg.Cookie.Token(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			session, err := sessions.Resume(ctx, token)
			if err != nil {
				switch {
				case errors.Is(err, domain.ErrSessionExpired):
					logger.Info().Str("session", crypto.ShortDigest(token)).Msg("session idle timeout, logged out")
					ctx = context.WithValue(ctx, expiredKey{}, true)
				case errors.Is(err, domain.ErrSessionNotFound):
				default:
					logger.Error().Err(err).Msg("failed to resume session")
					next.ServeHTTP(w, r)
					return
				}
				cfg.Cookie.Clear(w)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			user, profile, err := identities.LoadIdentity(ctx, session.UserID)
			if err == nil {
				err = IsLoginAllowed(user, profile)
			}
			if err != nil {
				if !errors.Is(err, domain.ErrUserNotFound) && !isGateError(err) {
					logger.Error().Err(err).Int64("user_id", session.UserID).Msg("failed to load session user")
					next.ServeHTTP(w, r)
					return
				}
				logger.Info().Err(err).Int64("user_id", session.UserID).Msg("session user no longer allowed, logged out")
				if derr := sessions.Destroy(ctx, token); derr != nil {
					logger.Error().Err(derr).Msg("failed to destroy session")
				}
				cfg.Cookie.Clear(w)
				next.ServeHTTP(w, r)
				return
			}

			identity := &Identity{User: user, Profile: profile, Session: session, Token: token}
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
		})
	}
}

func isGateError(err error) bool {
	return errors.Is(err, domain.ErrPendingApproval) || errors.Is(err, domain.ErrAccountDisabled)
}

// RequireLogin rejects anonymous requests: browsers are redirected to the
// login page, JSON clients receive 401.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}

		message := MessageLoginRequired
		if SessionExpired(r.Context()) {
			message = MessageSessionExpired
		}

		if WantsJSON(r) {
			writeJSONError(w, http.StatusUnauthorized, message)
			return
		}

		target := LoginPath + "?" + NextParam + "=" + url.QueryEscape(r.URL.RequestURI())
		if SessionExpired(r.Context()) {
			target += "&expired=1"
		}
		redirect(w, r, target)
	})
}

// RequireAdmin rejects requests whose identity is not an administrator.
// It must run after RequireLogin.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok || !identity.IsAdmin() {
			if WantsJSON(r) {
				writeJSONError(w, http.StatusForbidden, MessageAdminRequired)
				return
			}
			http.Error(w, MessageAdminRequired, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WantsJSON reports whether the client prefers a JSON response.
func WantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

// redirect sends htmx clients an HX-Redirect header and browsers a 303.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
