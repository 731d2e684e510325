package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/prn-tf/academia/internal/domain"
	"github.com/prn-tf/academia/internal/repository"
)

// studentRepository implements repository.StudentRepository for SQLite.
type studentRepository struct {
	db *DB
}

// NewStudentRepository creates a new SQLite student profile repository.
func NewStudentRepository(db *DB) repository.StudentRepository {
	return &studentRepository{db: db}
}

// CreateIfAbsent inserts the student profile unless the user already has one.
func (r *studentRepository) CreateIfAbsent(ctx context.Context, student *domain.StudentProfile) (bool, error) {
	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO students (user_id, registration_number, batch, semester, section, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		student.UserID,
		student.RegistrationNumber,
		student.Batch,
		student.Semester,
		student.Section,
		formatTime(student.CreatedAt),
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return false, domain.NewDomainError(domain.ErrIdentifierConflict, "registration number in use", student.RegistrationNumber)
		case isForeignKeyViolation(err):
			return false, domain.ErrUserNotFound
		}
		return false, fmt.Errorf("failed to create student profile: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()

	stored, err := r.GetByUserID(ctx, student.UserID)
	if err != nil {
		return false, err
	}
	*student = *stored

	return rowsAffected > 0, nil
}

// GetByUserID retrieves the student profile of a user.
func (r *studentRepository) GetByUserID(ctx context.Context, userID int64) (*domain.StudentProfile, error) {
	query := `
		SELECT id, user_id, registration_number, batch, semester, section, created_at
		FROM students
		WHERE user_id = ?
	`

	student := &domain.StudentProfile{}
	var createdAt string

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&student.ID,
		&student.UserID,
		&student.RegistrationNumber,
		&student.Batch,
		&student.Semester,
		&student.Section,
		&createdAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrStudentProfileNotFound
		}
		return nil, fmt.Errorf("failed to get student profile: %w", err)
	}

	student.CreatedAt = parseTime(createdAt)
	return student, nil
}

// Update updates batch, semester and section.
func (r *studentRepository) Update(ctx context.Context, student *domain.StudentProfile) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE students SET batch = ?, semester = ?, section = ? WHERE user_id = ?`,
		student.Batch,
		student.Semester,
		student.Section,
		student.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update student profile: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrStudentProfileNotFound
	}

	return nil
}

// Ensure studentRepository implements repository.StudentRepository.
var _ repository.StudentRepository = (*studentRepository)(nil)
