package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prn-tf/academia/internal/domain"
	"github.com/prn-tf/academia/internal/events"
	"github.com/prn-tf/academia/internal/metrics"
	"github.com/prn-tf/academia/internal/repository"
)

// Provisioning sources, used as the metrics label of created domain profiles.
const (
	SourceProfileSave = "profile_save"
	SourceAdminCreate = "admin_create"
	SourceReconcile   = "reconcile"
)

// Provisioner keeps domain profiles in step with approved profiles.
// Services call it explicitly after every profile write.
type Provisioner struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	studentRepo repository.StudentRepository
	facultyRepo repository.FacultyRepository
	defaults    domain.ProvisioningDefaults
	metrics     *metrics.Metrics
	publisher   events.Publisher
	logger      zerolog.Logger
}

// NewProvisioner creates a new Provisioner.
func NewProvisioner(
	repos *repository.Repositories,
	defaults domain.ProvisioningDefaults,
	m *metrics.Metrics,
	publisher events.Publisher,
	logger zerolog.Logger,
) *Provisioner {
	return &Provisioner{
		userRepo:    repos.User,
		profileRepo: repos.Profile,
		studentRepo: repos.Student,
		facultyRepo: repos.Faculty,
		defaults:    defaults,
		metrics:     m,
		publisher:   publisher,
		logger:      logger.With().Str("service", "provisioner").Logger(),
	}
}

// Defaults returns the provisioning defaults table.
func (p *Provisioner) Defaults() domain.ProvisioningDefaults {
	return p.defaults
}

// ProvisionResult describes the outcome of one provisioning attempt.
type ProvisionResult struct {
	// Role is the role that was considered.
	Role domain.Role

	// Created is true if a domain profile was inserted by this call.
	Created bool

	// Identifier is the employee or registration number of the domain profile.
	Identifier string
}

// DomainProfile is the role-specific profile of a user. At most one field is set.
type DomainProfile struct {
	Student *domain.StudentProfile
	Faculty *domain.FacultyProfile
}

// EnsureProfile creates the STUDENT, unapproved profile of a freshly inserted
// user unless one exists. Superusers are skipped and yield a nil profile.
func (p *Provisioner) EnsureProfile(ctx context.Context, user *domain.User) (*domain.Profile, error) {
	if user.IsSuperuser {
		return nil, nil
	}

	profile := domain.NewProfile(user.ID, domain.RoleStudent)
	created, err := p.profileRepo.CreateIfAbsent(ctx, profile)
	if err != nil {
		p.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to ensure profile")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if created {
		p.logger.Debug().Int64("user_id", user.ID).Msg("created default profile")
	}
	return profile, nil
}

// SaveProfile persists role and approval of profile, then provisions.
func (p *Provisioner) SaveProfile(ctx context.Context, profile *domain.Profile) (*ProvisionResult, error) {
	if err := p.profileRepo.Update(ctx, profile); err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return nil, err
		}
		p.logger.Error().Err(err).Int64("user_id", profile.UserID).Msg("failed to update profile")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return p.EnsureDomainProfile(ctx, profile)
}

// EnsureDomainProfile creates the domain profile matching profile if it is
// approved and its user is active. Existing domain profiles are never modified.
func (p *Provisioner) EnsureDomainProfile(ctx context.Context, profile *domain.Profile) (*ProvisionResult, error) {
	result := &ProvisionResult{Role: profile.Role}
	if !profile.IsApproved {
		return result, nil
	}

	user, err := p.userRepo.GetByID(ctx, profile.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if !user.IsActive {
		return result, nil
	}

	return p.provision(ctx, user, profile.Role, SourceProfileSave)
}

// ProvisionDefaults creates the domain profile of role for user with the
// default values, regardless of approval and active state.
func (p *Provisioner) ProvisionDefaults(ctx context.Context, user *domain.User, role domain.Role, source string) (*ProvisionResult, error) {
	return p.provision(ctx, user, role, source)
}

func (p *Provisioner) provision(ctx context.Context, user *domain.User, role domain.Role, source string) (*ProvisionResult, error) {
	result := &ProvisionResult{Role: role}

	var err error
	switch role {
	case domain.RoleFaculty:
		faculty := p.defaults.NewDefaultFacultyProfile(user.ID)
		result.Created, err = p.facultyRepo.CreateIfAbsent(ctx, faculty)
		result.Identifier = faculty.EmployeeNumber
	case domain.RoleStudent:
		student := p.defaults.NewDefaultStudentProfile(user.ID)
		result.Created, err = p.studentRepo.CreateIfAbsent(ctx, student)
		result.Identifier = student.RegistrationNumber
	default:
		return result, nil
	}
	if err != nil {
		if errors.Is(err, domain.ErrIdentifierConflict) {
			p.logger.Error().Err(err).Int64("user_id", user.ID).Str("role", role.String()).Msg("identifier already owned by another user")
			return nil, err
		}
		p.logger.Error().Err(err).Int64("user_id", user.ID).Str("role", role.String()).Msg("failed to provision domain profile")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if result.Created {
		p.recordCreated(ctx, user, role, source, result.Identifier)
	}
	return result, nil
}

func (p *Provisioner) recordCreated(ctx context.Context, user *domain.User, role domain.Role, source, identifier string) {
	p.logger.Info().
		Int64("user_id", user.ID).
		Str("username", user.Username).
		Str("role", role.String()).
		Str("identifier", identifier).
		Str("source", source).
		Msg("domain profile created")

	if p.metrics != nil {
		p.metrics.RecordProvisioned(role.String(), source)
	}

	activityType := events.ActivityProfileProvisioned
	if source == SourceReconcile {
		activityType = events.ActivityProfileRepaired
	}
	events.Emit(ctx, p.publisher, p.logger, events.NewActivity(activityType, user.ID, user.Username).
		WithRole(role.String()).
		WithMeta("identifier", identifier).
		WithMeta("source", source))
}

// FindDomainProfile returns the domain profile of userID for role.
// It returns domain.ErrFacultyProfileNotFound or domain.ErrStudentProfileNotFound
// when absent; ADMIN yields an empty DomainProfile.
func (p *Provisioner) FindDomainProfile(ctx context.Context, userID int64, role domain.Role) (*DomainProfile, error) {
	switch role {
	case domain.RoleFaculty:
		faculty, err := p.facultyRepo.GetByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &DomainProfile{Faculty: faculty}, nil
	case domain.RoleStudent:
		student, err := p.studentRepo.GetByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &DomainProfile{Student: student}, nil
	}
	return &DomainProfile{}, nil
}

// CheckConsistency returns a *domain.Inconsistency if profile is approved but
// its domain profile is missing.
func (p *Provisioner) CheckConsistency(ctx context.Context, user *domain.User, profile *domain.Profile) error {
	if profile == nil || !profile.IsApproved || profile.Role == domain.RoleAdmin {
		return nil
	}
	_, err := p.FindDomainProfile(ctx, profile.UserID, profile.Role)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrFacultyProfileNotFound), errors.Is(err, domain.ErrStudentProfileNotFound):
		return &domain.Inconsistency{UserID: user.ID, Username: user.Username, Role: profile.Role}
	}
	return fmt.Errorf("%w: %v", ErrInternalError, err)
}
