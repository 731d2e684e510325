package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/academia/internal/auth"
	"github.com/prn-tf/academia/internal/domain"
	"github.com/prn-tf/academia/internal/events"
	"github.com/prn-tf/academia/internal/metrics"
	"github.com/prn-tf/academia/internal/pkg/crypto"
	"github.com/prn-tf/academia/internal/repository"
)

// SessionConfig contains session lifetime settings.
type SessionConfig struct {
	// IdleTimeout ends a session whose last activity is older than this.
	IdleTimeout time.Duration

	// MaxAge is the store TTL, refreshed on every request.
	MaxAge time.Duration
}

// DefaultSessionConfig returns the default session settings.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		IdleTimeout: domain.DefaultIdleTimeout,
		MaxAge:      auth.DefaultSessionMaxAge,
	}
}

// SessionService stores login sessions in a repository.Cache keyed by the
// digest of the opaque token and enforces the idle timeout.
type SessionService struct {
	cache     repository.Cache
	config    SessionConfig
	metrics   *metrics.Metrics
	publisher events.Publisher
	logger    zerolog.Logger
	now       func() time.Time
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	cache repository.Cache,
	config SessionConfig,
	m *metrics.Metrics,
	publisher events.Publisher,
	logger zerolog.Logger,
) *SessionService {
	return &SessionService{
		cache:     cache,
		config:    config,
		metrics:   m,
		publisher: publisher,
		logger:    logger.With().Str("service", "session").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// IdleTimeout returns the configured idle timeout.
func (s *SessionService) IdleTimeout() time.Duration {
	return s.config.IdleTimeout
}

func sessionKey(token string) string {
	return repository.CacheKey{}.Session(crypto.HashToken(token))
}

// Create starts a session for user and returns its token.
func (s *SessionService) Create(ctx context.Context, user *domain.User, ipAddress, userAgent string) (string, *domain.Session, error) {
	token, err := crypto.GenerateToken()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to generate session token")
		return "", nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	now := s.now()
	session := &domain.Session{
		UserID:       user.ID,
		Username:     user.Username,
		CreatedAt:    now,
		LastActivity: now,
		IPAddress:    ipAddress,
		UserAgent:    userAgent,
	}
	if err := s.store(ctx, token, session); err != nil {
		return "", nil, err
	}

	if s.metrics != nil {
		s.metrics.SessionsActive.Inc()
	}

	s.logger.Debug().
		Int64("user_id", user.ID).
		Str("session", crypto.ShortDigest(token)).
		Msg("session created")

	return token, session, nil
}

// Resume loads the session of token. An idle-expired session is destroyed
// and domain.ErrSessionExpired returned; otherwise its activity is refreshed.
func (s *SessionService) Resume(ctx context.Context, token string) (*domain.Session, error) {
	if err := crypto.ValidateToken(token); err != nil {
		return nil, domain.ErrSessionNotFound
	}

	session, err := s.load(ctx, sessionKey(token))
	if err != nil {
		if errors.Is(err, errCorruptSession) {
			_ = s.cache.Delete(ctx, sessionKey(token))
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	now := s.now()
	if session.IsIdleExpired(now, s.config.IdleTimeout) {
		if err := s.cache.Delete(ctx, sessionKey(token)); err != nil {
			s.logger.Error().Err(err).Msg("failed to delete expired session")
		}
		s.expired(ctx, session, now)
		return nil, domain.ErrSessionExpired
	}

	session.Touch(now)
	if err := s.store(ctx, token, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Destroy deletes the session of token.
func (s *SessionService) Destroy(ctx context.Context, token string) error {
	if err := s.cache.Delete(ctx, sessionKey(token)); err != nil {
		s.logger.Error().Err(err).Msg("failed to delete session")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if s.metrics != nil {
		s.metrics.SessionsActive.Dec()
	}
	return nil
}

// ClearAll deletes every stored session and returns how many were removed.
func (s *SessionService) ClearAll(ctx context.Context) (int, error) {
	keys, err := s.cache.Keys(ctx, repository.SessionKeyPrefix)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := s.cache.DeleteMulti(ctx, keys...); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if s.metrics != nil {
		s.metrics.SessionsActive.Set(0)
	}
	s.logger.Info().Int("count", len(keys)).Msg("cleared all sessions")
	return len(keys), nil
}

// PurgeExpired deletes idle-expired sessions and returns how many were removed.
// Sessions that cannot be decoded are removed as well.
func (s *SessionService) PurgeExpired(ctx context.Context) (int, error) {
	keys, err := s.cache.Keys(ctx, repository.SessionKeyPrefix)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	now := s.now()
	var stale []string
	for _, key := range keys {
		session, err := s.load(ctx, key)
		if err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				continue
			}
			if !errors.Is(err, errCorruptSession) {
				return 0, err
			}
			stale = append(stale, key)
			continue
		}
		if session.IsIdleExpired(now, s.config.IdleTimeout) {
			stale = append(stale, key)
		}
	}

	if len(stale) > 0 {
		if err := s.cache.DeleteMulti(ctx, stale...); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
	}

	if s.metrics != nil {
		s.metrics.SessionsActive.Set(float64(len(keys) - len(stale)))
	}
	s.logger.Info().Int("count", len(stale)).Int("remaining", len(keys)-len(stale)).Msg("purged expired sessions")
	return len(stale), nil
}

var errCorruptSession = errors.New("corrupt session record")

func (s *SessionService) load(ctx context.Context, key string) (*domain.Session, error) {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrCacheMiss) {
			return nil, domain.ErrSessionNotFound
		}
		s.logger.Error().Err(err).Msg("failed to read session")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		s.logger.Warn().Err(err).Msg("discarding undecodable session")
		return nil, fmt.Errorf("%w: %v", errCorruptSession, err)
	}
	return &session, nil
}

func (s *SessionService) store(ctx context.Context, token string, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if err := s.cache.Set(ctx, sessionKey(token), data, s.config.MaxAge); err != nil {
		s.logger.Error().Err(err).Msg("failed to store session")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return nil
}

func (s *SessionService) expired(ctx context.Context, session *domain.Session, now time.Time) {
	s.logger.Info().
		Int64("user_id", session.UserID).
		Str("username", session.Username).
		Dur("idle", session.IdleFor(now)).
		Msg("session idle timeout")

	if s.metrics != nil {
		s.metrics.SessionsExpiredTotal.Inc()
		s.metrics.SessionsActive.Dec()
	}
	events.Emit(ctx, s.publisher, s.logger, events.NewActivity(events.ActivitySessionExpired, session.UserID, session.Username).
		WithMeta("idle_seconds", fmt.Sprintf("%.0f", session.IdleFor(now).Seconds())))
}

// Ensure SessionService implements auth.SessionStore.
var _ auth.SessionStore = (*SessionService)(nil)
