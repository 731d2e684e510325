// Package repository defines data access interfaces for Academia.
// These interfaces abstract database operations, allowing for different implementations
// (SQLite, PostgreSQL, in-memory for testing) while keeping the service layer clean.
package repository

import (
	"context"

	"github.com/prn-tf/academia/internal/domain"
)

// =============================================================================
// User Repository
// =============================================================================

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create creates a new user and assigns its ID.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByUsername retrieves a user by username.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// Update updates an existing user.
	Update(ctx context.Context, user *domain.User) error

	// Delete deletes a user by ID. Profiles and domain profiles cascade.
	Delete(ctx context.Context, id int64) error

	// List returns users with pagination, newest first.
	List(ctx context.Context, opts ListOptions) (*ListResult[domain.User], error)

	// ExistsByUsername checks if a user with the given username exists.
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

// =============================================================================
// Profile Repository
// =============================================================================

// ProfileRepository defines the interface for profile data access.
type ProfileRepository interface {
	// CreateIfAbsent inserts the profile unless one exists for the user.
	// Returns true if a row was inserted. The profile is filled from the stored row either way.
	CreateIfAbsent(ctx context.Context, profile *domain.Profile) (bool, error)

	// GetByUserID retrieves the profile of a user.
	// Returns domain.ErrProfileNotFound when absent.
	GetByUserID(ctx context.Context, userID int64) (*domain.Profile, error)

	// Update updates role and approval of an existing profile.
	Update(ctx context.Context, profile *domain.Profile) error

	// ListPending returns unapproved profiles with their users, newest first.
	ListPending(ctx context.Context) ([]*domain.PendingUser, error)

	// ListUnprovisioned returns approved FACULTY/STUDENT profiles that lack
	// their matching domain profile with user id greater than afterID, oldest
	// first, at most limit rows (0 = no limit).
	ListUnprovisioned(ctx context.Context, afterID int64, limit int) ([]*domain.Inconsistency, error)
}

// =============================================================================
// Domain Profile Repositories
// =============================================================================

// StudentRepository defines the interface for student profile data access.
type StudentRepository interface {
	// CreateIfAbsent inserts the profile unless one exists for the user.
	// Returns true if a row was inserted; an existing row is never modified.
	CreateIfAbsent(ctx context.Context, student *domain.StudentProfile) (bool, error)

	// GetByUserID retrieves the student profile of a user.
	// Returns domain.ErrStudentProfileNotFound when absent.
	GetByUserID(ctx context.Context, userID int64) (*domain.StudentProfile, error)

	// Update updates batch, semester and section.
	Update(ctx context.Context, student *domain.StudentProfile) error
}

// FacultyRepository defines the interface for faculty profile data access.
type FacultyRepository interface {
	// CreateIfAbsent inserts the profile unless one exists for the user.
	// Returns true if a row was inserted; an existing row is never modified.
	CreateIfAbsent(ctx context.Context, faculty *domain.FacultyProfile) (bool, error)

	// GetByUserID retrieves the faculty profile of a user.
	// Returns domain.ErrFacultyProfileNotFound when absent.
	GetByUserID(ctx context.Context, userID int64) (*domain.FacultyProfile, error)

	// Update updates the department.
	Update(ctx context.Context, faculty *domain.FacultyProfile) error

	// ListByDepartment returns the department's faculty ordered by ID.
	ListByDepartment(ctx context.Context, dept domain.Department) ([]*domain.FacultyProfile, error)
}

// =============================================================================
// Subject Repository
// =============================================================================

// SubjectRepository defines the interface for subject catalogue access.
type SubjectRepository interface {
	// Upsert inserts or updates a subject by code, leaving the faculty assignment untouched.
	// Returns true if the subject was created.
	Upsert(ctx context.Context, subject *domain.Subject) (bool, error)

	// GetByID retrieves a subject by ID.
	GetByID(ctx context.Context, id int64) (*domain.Subject, error)

	// ListAll returns every subject ordered by semester, then code.
	ListAll(ctx context.Context) ([]*domain.Subject, error)

	// ListByDepartment returns subjects of dept plus common subjects,
	// ordered by semester, then code.
	ListByDepartment(ctx context.Context, dept domain.Department) ([]*domain.Subject, error)

	// ListUnassigned returns subjects with a department and no faculty, ordered by code.
	ListUnassigned(ctx context.Context) ([]*domain.Subject, error)

	// AssignFaculty sets the faculty of a subject, replacing any previous assignment.
	AssignFaculty(ctx context.Context, subjectID, facultyID int64) error
}

// =============================================================================
// Common Types
// =============================================================================

// ListOptions contains common options for list operations.
type ListOptions struct {
	// Limit is the maximum number of items to return.
	Limit int

	// Offset is the number of items to skip.
	Offset int
}

// ListResult is a generic paginated list result.
type ListResult[T any] struct {
	// Items is the list of items.
	Items []*T

	// Total is the total number of items (without pagination).
	Total int64

	// Offset is the current offset.
	Offset int

	// Limit is the current limit.
	Limit int
}

// =============================================================================
// Transaction Support
// =============================================================================

// TxManager defines the interface for transaction management.
// Repositories created from the same database join the transaction carried by ctx.
type TxManager interface {
	// WithTx executes the given function within a transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	// Nested calls reuse the outer transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
