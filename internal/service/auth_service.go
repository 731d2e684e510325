package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prn-tf/academia/internal/auth"
	"github.com/prn-tf/academia/internal/domain"
	"github.com/prn-tf/academia/internal/events"
	"github.com/prn-tf/academia/internal/metrics"
	"github.com/prn-tf/academia/internal/repository"
)

// AuthService handles login and logout.
//
// Login runs the approval gate twice: a pre-check here, then the pluggable
// credential backend. Both use auth.IsLoginAllowed.
type AuthService struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	backend     auth.Backend
	sessions    *SessionService
	metrics     *metrics.Metrics
	publisher   events.Publisher
	logger      zerolog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	repos *repository.Repositories,
	backend auth.Backend,
	sessions *SessionService,
	m *metrics.Metrics,
	publisher events.Publisher,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		userRepo:    repos.User,
		profileRepo: repos.Profile,
		backend:     backend,
		sessions:    sessions,
		metrics:     m,
		publisher:   publisher,
		logger:      logger.With().Str("service", "auth").Logger(),
	}
}

// LoginInput contains the data needed to log in.
type LoginInput struct {
	Username  string
	Password  string
	IPAddress string
	UserAgent string
}

// LoginOutput contains the result of a successful login.
type LoginOutput struct {
	User    *domain.User
	Profile *domain.Profile
	Role    string
	Token   string
	Session *domain.Session
}

// Login authenticates the credentials and starts a session.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	user, err := s.Authenticate(ctx, input.Username, input.Password)
	if err != nil {
		return nil, err
	}

	profile, err := auth.LoadProfile(ctx, s.profileRepo, user.ID)
	if err != nil {
		s.recordFailure(ctx, input.Username, err)
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	token, session, err := s.sessions.Create(ctx, user, input.IPAddress, input.UserAgent)
	if err != nil {
		s.recordFailure(ctx, input.Username, err)
		return nil, err
	}

	role := auth.ResolveRole(user, profile)
	s.logger.Info().
		Int64("user_id", user.ID).
		Str("username", user.Username).
		Str("role", role).
		Msg("user logged in")

	if s.metrics != nil {
		s.metrics.RecordLogin(metrics.OutcomeSuccess)
	}
	events.Emit(ctx, s.publisher, s.logger, events.NewActivity(events.ActivityLoginSucceeded, user.ID, user.Username).
		WithRole(role).
		WithMeta("ip_address", input.IPAddress))

	return &LoginOutput{
		User:    user,
		Profile: profile,
		Role:    role,
		Token:   token,
		Session: session,
	}, nil
}

// Authenticate checks the credentials without creating a session.
// It returns domain.ErrInvalidCredentials, domain.ErrPendingApproval or
// domain.ErrAccountDisabled for rejected logins.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	if err := s.precheck(ctx, username, password); err != nil {
		s.recordFailure(ctx, username, err)
		return nil, err
	}

	user, err := s.backend.Authenticate(ctx, username, password)
	if err != nil {
		s.recordFailure(ctx, username, err)
		return nil, err
	}
	return user, nil
}

// precheck reports approval and active failures for correct credentials
// before the backend runs. Unknown users and wrong passwords fall through to
// the backend, which reports them. An unknown user still costs one
// comparison here, matching the wrong-password path.
func (s *AuthService) precheck(ctx context.Context, username, password string) error {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			auth.BurnPassword(password)
			return nil
		}
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil
	}

	profile, err := auth.LoadProfile(ctx, s.profileRepo, user.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return auth.IsLoginAllowed(user, profile)
}

// Logout destroys the session of identity.
func (s *AuthService) Logout(ctx context.Context, identity *auth.Identity) error {
	if identity == nil || identity.Token == "" {
		return nil
	}
	if err := s.sessions.Destroy(ctx, identity.Token); err != nil {
		return err
	}

	s.logger.Info().
		Int64("user_id", identity.User.ID).
		Str("username", identity.User.Username).
		Msg("user logged out")

	events.Emit(ctx, s.publisher, s.logger, events.NewActivity(events.ActivityLogout, identity.User.ID, identity.User.Username))
	return nil
}

func (s *AuthService) recordFailure(ctx context.Context, username string, err error) {
	outcome := loginOutcome(err)
	if outcome == metrics.OutcomeError {
		s.logger.Error().Err(err).Str("username", username).Msg("login failed")
	} else {
		s.logger.Info().Str("username", username).Str("reason", outcome).Msg("login rejected")
	}

	if s.metrics != nil {
		s.metrics.RecordLogin(outcome)
	}
	events.Emit(ctx, s.publisher, s.logger, events.NewActivity(events.ActivityLoginFailed, 0, username).
		WithReason(outcome))
}

func loginOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return metrics.OutcomeInvalidCredentials
	case errors.Is(err, domain.ErrPendingApproval):
		return metrics.OutcomePendingApproval
	case errors.Is(err, domain.ErrAccountDisabled):
		return metrics.OutcomeAccountDisabled
	}
	return metrics.OutcomeError
}
