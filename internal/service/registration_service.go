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
	"github.com/prn-tf/academia/internal/events"
	"github.com/prn-tf/academia/internal/metrics"
	"github.com/prn-tf/academia/internal/repository"
)

// RegistrationService runs the registration and approval workflow:
// UNSUBMITTED -> PENDING -> APPROVED or REJECTED.
type RegistrationService struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	studentRepo repository.StudentRepository
	facultyRepo repository.FacultyRepository
	subjectRepo repository.SubjectRepository
	tx          repository.TxManager
	users       *UserService
	provisioner *Provisioner
	metrics     *metrics.Metrics
	publisher   events.Publisher
	logger      zerolog.Logger
}

// NewRegistrationService creates a new RegistrationService.
func NewRegistrationService(
	repos *repository.Repositories,
	users *UserService,
	provisioner *Provisioner,
	m *metrics.Metrics,
	publisher events.Publisher,
	logger zerolog.Logger,
) *RegistrationService {
	return &RegistrationService{
		userRepo:    repos.User,
		profileRepo: repos.Profile,
		studentRepo: repos.Student,
		facultyRepo: repos.Faculty,
		subjectRepo: repos.Subject,
		tx:          repos.Tx,
		users:       users,
		provisioner: provisioner,
		metrics:     m,
		publisher:   publisher,
		logger:      logger.With().Str("service", "registration").Logger(),
	}
}

// =============================================================================
// Register
// =============================================================================

// RegisterInput contains the public registration form.
type RegisterInput struct {
	Username        string `form:"username" validate:"required,max=150,username"`
	Email           string `form:"email" validate:"required,email"`
	FirstName       string `form:"first_name" validate:"required,max=100"`
	LastName        string `form:"last_name" validate:"required,max=100"`
	Password        string `form:"password1" validate:"required,min=8"`
	PasswordConfirm string `form:"password2" validate:"required,eqfield=Password"`
	Role            string `form:"role" validate:"required"`
}

// RegisterOutput contains the result of a registration.
type RegisterOutput struct {
	User    *domain.User
	Profile *domain.Profile
}

// Register creates an inactive user with an unapproved profile of the
// requested role. Only STUDENT and FACULTY may be requested.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*RegisterOutput, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	role := domain.Role(strings.ToUpper(strings.TrimSpace(input.Role)))
	if !role.IsSelfRegistrable() {
		return nil, fmt.Errorf("%w: %q cannot be requested at registration", ErrRoleNotAllowed, input.Role)
	}
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	var out *RegisterOutput
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		created, err := s.users.Create(ctx, CreateUserInput{
			Username:  input.Username,
			Email:     input.Email,
			FirstName: input.FirstName,
			LastName:  input.LastName,
			Password:  input.Password,
		})
		if err != nil {
			return err
		}

		profile := created.Profile
		profile.Role = role
		profile.IsApproved = false
		if _, err := s.provisioner.SaveProfile(ctx, profile); err != nil {
			return err
		}

		out = &RegisterOutput{User: created.User, Profile: profile}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("user_id", out.User.ID).
		Str("username", out.User.Username).
		Str("role", role.String()).
		Msg("registration submitted")

	if s.metrics != nil {
		s.metrics.RecordRegistration(role.String())
	}
	events.Emit(ctx, s.publisher, s.logger, events.NewActivity(events.ActivityUserRegistered, out.User.ID, out.User.Username).
		WithRole(role.String()))

	return out, nil
}

// =============================================================================
// Approve / Reject
// =============================================================================

// ApproveOutput contains the result of an approval.
type ApproveOutput struct {
	User        *domain.User
	Profile     *domain.Profile
	Provisioned *ProvisionResult
}

// Approve approves a pending user: the profile is approved, the user
// activated, then the domain profile is provisioned.
func (s *RegistrationService) Approve(ctx context.Context, actorID, userID int64) (*ApproveOutput, error) {
	var out *ApproveOutput
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		user, profile, err := s.pending(ctx, userID)
		if err != nil {
			return err
		}

		profile.IsApproved = true
		if err := s.profileRepo.Update(ctx, profile); err != nil {
			return fmt.Errorf("%w: %v", ErrInternalError, err)
		}

		user.IsActive = true
		user.UpdatedAt = time.Now().UTC()
		if err := s.userRepo.Update(ctx, user); err != nil {
			return fmt.Errorf("%w: %v", ErrInternalError, err)
		}

		provisioned, err := s.provisioner.EnsureDomainProfile(ctx, profile)
		if err != nil {
			return err
		}

		out = &ApproveOutput{User: user, Profile: profile, Provisioned: provisioned}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("user_id", out.User.ID).
		Str("username", out.User.Username).
		Str("role", out.Profile.Role.String()).
		Int64("actor_id", actorID).
		Msg("user approved")

	if s.metrics != nil {
		s.metrics.ApprovalsTotal.Inc()
	}
	events.Emit(ctx, s.publisher, s.logger, events.NewActivity(events.ActivityUserApproved, out.User.ID, out.User.Username).
		WithRole(out.Profile.Role.String()).
		WithActor(actorID))

	return out, nil
}

// Reject deletes a pending user. Its profile and domain profiles cascade.
// No record of the rejection is retained.
func (s *RegistrationService) Reject(ctx context.Context, actorID, userID int64) (*domain.User, error) {
	var rejected *domain.User
	var role domain.Role
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		user, profile, err := s.pending(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.userRepo.Delete(ctx, user.ID); err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				return err
			}
			return fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		rejected, role = user, profile.Role
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("user_id", rejected.ID).
		Str("username", rejected.Username).
		Str("role", role.String()).
		Int64("actor_id", actorID).
		Msg("user rejected and deleted")

	if s.metrics != nil {
		s.metrics.RejectionsTotal.Inc()
	}
	events.Emit(ctx, s.publisher, s.logger, events.NewActivity(events.ActivityUserRejected, rejected.ID, rejected.Username).
		WithRole(role.String()).
		WithActor(actorID))

	return rejected, nil
}

// pending loads a user that must be in the PENDING state. A non-superuser
// without a profile gets its default profile first.
func (s *RegistrationService) pending(ctx context.Context, userID int64) (*domain.User, *domain.Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	profile, err := auth.LoadProfile(ctx, s.profileRepo, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if profile == nil && !user.IsSuperuser {
		if profile, err = s.provisioner.EnsureProfile(ctx, user); err != nil {
			return nil, nil, err
		}
	}

	if state := domain.StateOf(profile); state != domain.StatePending {
		return nil, nil, fmt.Errorf("%w: user %d is %s", ErrInvalidTransition, userID, state)
	}
	return user, profile, nil
}

// ListPending returns unapproved profiles with their users, newest first.
func (s *RegistrationService) ListPending(ctx context.Context) ([]*domain.PendingUser, error) {
	pending, err := s.profileRepo.ListPending(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list pending users")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return pending, nil
}

// =============================================================================
// Admin-direct creation
// =============================================================================

// CreateUserDirectInput contains the administrator's user creation form.
type CreateUserDirectInput struct {
	Username        string `form:"username" validate:"required,max=150,username"`
	Email           string `form:"email" validate:"required,email"`
	FirstName       string `form:"first_name" validate:"required,max=100"`
	LastName        string `form:"last_name" validate:"required,max=100"`
	Password        string `form:"password1" validate:"required,min=8"`
	PasswordConfirm string `form:"password2" validate:"required,eqfield=Password"`
	Role            string `form:"role" validate:"required,role"`

	// Faculty
	Department string  `form:"department" validate:"omitempty,department"`
	SubjectIDs []int64 `form:"subjects"`

	// Student; Semester 0 means not given.
	Batch    string `form:"batch" validate:"max=32"`
	Semester int    `form:"semester" validate:"omitempty,min=1,max=8"`
	Section  string `form:"section" validate:"max=8"`
}

// CreateUserDirectOutput contains the result of an admin-direct creation.
type CreateUserDirectOutput struct {
	User    *domain.User
	Profile *domain.Profile
	Faculty *domain.FacultyProfile
	Student *domain.StudentProfile

	// AssignedSubjects is the number of subjects now taught by Faculty.
	AssignedSubjects int

	// Warning wraps domain.ErrPartialAdminCreation when role-specific
	// fields were missing and no domain profile was created.
	Warning error

	// Message is the flash message for the administrator.
	Message string
}

// CreateUserDirect creates an active user with an approved profile and, when
// the role-specific fields are present, its domain profile.
func (s *RegistrationService) CreateUserDirect(ctx context.Context, actorID int64, input CreateUserDirectInput) (*CreateUserDirectOutput, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	role := domain.Role(strings.ToUpper(strings.TrimSpace(input.Role)))

	out := &CreateUserDirectOutput{}
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		created, err := s.users.Create(ctx, CreateUserInput{
			Username:  input.Username,
			Email:     input.Email,
			FirstName: input.FirstName,
			LastName:  input.LastName,
			Password:  input.Password,
			IsActive:  true,
		})
		if err != nil {
			return err
		}
		out.User, out.Profile = created.User, created.Profile

		out.Profile.Role = role
		out.Profile.IsApproved = true
		if err := s.profileRepo.Update(ctx, out.Profile); err != nil {
			return fmt.Errorf("%w: %v", ErrInternalError, err)
		}

		switch role {
		case domain.RoleFaculty:
			return s.createFaculty(ctx, input, out)
		case domain.RoleStudent:
			return s.createStudent(ctx, input, out)
		}
		out.Message = fmt.Sprintf("User %s created successfully!", out.User.Username)
		return nil
	})
	if err != nil {
		return nil, err
	}

	complete := out.Warning == nil
	logEvent := s.logger.Info()
	if !complete {
		logEvent = s.logger.Warn()
	}
	logEvent.
		Int64("user_id", out.User.ID).
		Str("username", out.User.Username).
		Str("role", role.String()).
		Int("subjects", out.AssignedSubjects).
		Bool("complete", complete).
		Int64("actor_id", actorID).
		Msg("user created by administrator")

	if s.metrics != nil {
		s.metrics.RecordAdminCreate(role.String(), complete)
	}
	events.Emit(ctx, s.publisher, s.logger, events.NewActivity(events.ActivityUserCreatedByAdmin, out.User.ID, out.User.Username).
		WithRole(role.String()).
		WithActor(actorID).
		WithMeta("complete", fmt.Sprintf("%t", complete)))

	return out, nil
}

func (s *RegistrationService) createFaculty(ctx context.Context, input CreateUserDirectInput, out *CreateUserDirectOutput) error {
	user := out.User
	if strings.TrimSpace(input.Department) == "" {
		out.Warning = domain.NewDomainError(domain.ErrPartialAdminCreation, "department not set", user.Username)
		out.Message = fmt.Sprintf("User %s created but department not set!", user.Username)
		return nil
	}

	dept, err := domain.ParseDepartment(input.Department)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	faculty := &domain.FacultyProfile{
		UserID:         user.ID,
		EmployeeNumber: domain.EmployeeNumber(user.ID),
		Department:     dept,
	}
	if _, err := s.facultyRepo.CreateIfAbsent(ctx, faculty); err != nil {
		if errors.Is(err, domain.ErrIdentifierConflict) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	out.Faculty = faculty
	if s.metrics != nil {
		s.metrics.RecordProvisioned(domain.RoleFaculty.String(), SourceAdminCreate)
	}

	for _, subjectID := range input.SubjectIDs {
		if err := s.subjectRepo.AssignFaculty(ctx, subjectID, faculty.ID); err != nil {
			if errors.Is(err, domain.ErrSubjectNotFound) {
				return domain.NewDomainError(domain.ErrSubjectNotFound, "cannot assign subject", fmt.Sprintf("%d", subjectID))
			}
			return fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		out.AssignedSubjects++
	}

	if out.AssignedSubjects > 0 {
		out.Message = fmt.Sprintf("Faculty %s created with %d subject(s)!", user.Username, out.AssignedSubjects)
	} else {
		out.Message = fmt.Sprintf("Faculty %s created!", user.Username)
	}
	return nil
}

func (s *RegistrationService) createStudent(ctx context.Context, input CreateUserDirectInput, out *CreateUserDirectOutput) error {
	user := out.User
	batch := strings.TrimSpace(input.Batch)
	if batch == "" || input.Semester == 0 {
		out.Warning = domain.NewDomainError(domain.ErrPartialAdminCreation, "student details incomplete", user.Username)
		out.Message = fmt.Sprintf("User %s created but student details incomplete!", user.Username)
		return nil
	}

	student := &domain.StudentProfile{
		UserID:             user.ID,
		RegistrationNumber: domain.RegistrationNumber(user.ID),
		Batch:              batch,
		Semester:           input.Semester,
		Section:            strings.TrimSpace(input.Section),
	}
	if _, err := s.studentRepo.CreateIfAbsent(ctx, student); err != nil {
		if errors.Is(err, domain.ErrIdentifierConflict) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	out.Student = student
	if s.metrics != nil {
		s.metrics.RecordProvisioned(domain.RoleStudent.String(), SourceAdminCreate)
	}

	out.Message = fmt.Sprintf("Student %s created!", user.Username)
	return nil
}
