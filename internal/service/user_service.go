package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/academia/internal/auth"
	"github.com/prn-tf/academia/internal/domain"
	"github.com/prn-tf/academia/internal/repository"
)

// UserService handles user management operations.
type UserService struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	tx          repository.TxManager
	provisioner *Provisioner
	logger      zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(repos *repository.Repositories, provisioner *Provisioner, logger zerolog.Logger) *UserService {
	return &UserService{
		userRepo:    repos.User,
		profileRepo: repos.Profile,
		tx:          repos.Tx,
		provisioner: provisioner,
		logger:      logger.With().Str("service", "user").Logger(),
	}
}

// CreateUserInput contains the data needed to create a new user.
type CreateUserInput struct {
	Username    string `form:"username" validate:"required,max=150,username"`
	Email       string `form:"email" validate:"omitempty,email"`
	FirstName   string `form:"first_name" validate:"max=100"`
	LastName    string `form:"last_name" validate:"max=100"`
	Password    string `form:"password" validate:"required,min=8"`
	IsActive    bool   `form:"-"`
	IsSuperuser bool   `form:"-"`
}

// CreateUserOutput contains the result of creating a user.
type CreateUserOutput struct {
	User *domain.User

	// Profile is nil for superusers.
	Profile *domain.Profile
}

// Create creates a user and, unless it is a superuser, its default profile
// in the same transaction.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*CreateUserOutput, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(input.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}

	user := domain.NewUser(input.Username, input.Email, passwordHash)
	user.FirstName = strings.TrimSpace(input.FirstName)
	user.LastName = strings.TrimSpace(input.LastName)
	user.IsActive = input.IsActive
	user.IsSuperuser = input.IsSuperuser

	var profile *domain.Profile
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		exists, err := s.userRepo.ExistsByUsername(ctx, user.Username)
		if err != nil {
			s.logger.Error().Err(err).Str("username", user.Username).Msg("failed to check username existence")
			return fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		if exists {
			return domain.NewDomainError(domain.ErrUserAlreadyExists, "username taken", user.Username)
		}

		if err := s.userRepo.Create(ctx, user); err != nil {
			if errors.Is(err, domain.ErrUserAlreadyExists) {
				return err
			}
			s.logger.Error().Err(err).Str("username", user.Username).Msg("failed to create user")
			return fmt.Errorf("%w: %v", ErrInternalError, err)
		}

		profile, err = s.provisioner.EnsureProfile(ctx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("user_id", user.ID).
		Str("username", user.Username).
		Bool("is_active", user.IsActive).
		Bool("is_superuser", user.IsSuperuser).
		Msg("user created")

	return &CreateUserOutput{User: user, Profile: profile}, nil
}

// CreateSuperuser creates an active superuser without a profile.
func (s *UserService) CreateSuperuser(ctx context.Context, username, email, password string) (*domain.User, error) {
	out, err := s.Create(ctx, CreateUserInput{
		Username:    username,
		Email:       email,
		Password:    password,
		IsActive:    true,
		IsSuperuser: true,
	})
	if err != nil {
		return nil, err
	}
	return out.User, nil
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Int64("user_id", id).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return user, nil
}

// GetByUsername retrieves a user by username.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("username", username).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return user, nil
}

// LoadIdentity returns the user and its profile (nil if it has none).
func (s *UserService) LoadIdentity(ctx context.Context, userID int64) (*domain.User, *domain.Profile, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	profile, err := auth.LoadProfile(ctx, s.profileRepo, userID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to load profile")
		return nil, nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return user, profile, nil
}

// UpdatePasswordInput contains the data needed to update a password.
type UpdatePasswordInput struct {
	UserID      int64
	OldPassword string
	NewPassword string `validate:"required,min=8"`
}

// UpdatePassword changes a user's password.
func (s *UserService) UpdatePassword(ctx context.Context, input UpdatePasswordInput) error {
	user, err := s.GetByID(ctx, input.UserID)
	if err != nil {
		return err
	}

	if !auth.CheckPassword(user.PasswordHash, input.OldPassword) {
		return domain.ErrInvalidCredentials
	}

	if err := validateStruct(input); err != nil {
		return err
	}

	newHash, err := auth.HashPassword(input.NewPassword)
	if err != nil {
		return fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}

	user.PasswordHash = newHash
	user.UpdatedAt = time.Now().UTC()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("password updated")
	return nil
}

// SetActive sets the active status of a user. Activating a user whose
// profile is approved provisions its domain profile.
func (s *UserService) SetActive(ctx context.Context, userID int64, isActive bool) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		user, err := s.GetByID(ctx, userID)
		if err != nil {
			return err
		}

		user.IsActive = isActive
		user.UpdatedAt = time.Now().UTC()

		if err := s.userRepo.Update(ctx, user); err != nil {
			return fmt.Errorf("%w: %v", ErrInternalError, err)
		}

		s.logger.Info().
			Int64("user_id", user.ID).
			Bool("is_active", isActive).
			Msg("user active status updated")

		if !isActive {
			return nil
		}
		profile, err := auth.LoadProfile(ctx, s.profileRepo, userID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		if profile == nil {
			return nil
		}
		_, err = s.provisioner.EnsureDomainProfile(ctx, profile)
		return err
	})
}

// ListUsersInput contains pagination options for listing users.
type ListUsersInput struct {
	Limit  int
	Offset int
}

// ListUsersOutput contains the result of listing users.
type ListUsersOutput struct {
	Users      []*domain.User
	TotalCount int64
}

// List returns all users with pagination.
func (s *UserService) List(ctx context.Context, input ListUsersInput) (*ListUsersOutput, error) {
	if input.Limit <= 0 {
		input.Limit = 20
	}
	if input.Limit > 100 {
		input.Limit = 100
	}

	result, err := s.userRepo.List(ctx, repository.ListOptions{
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list users")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return &ListUsersOutput{
		Users:      result.Items,
		TotalCount: result.Total,
	}, nil
}

// Ensure UserService implements auth.IdentityLoader.
var _ auth.IdentityLoader = (*UserService)(nil)
