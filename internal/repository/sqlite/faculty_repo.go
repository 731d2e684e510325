package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/prn-tf/academia/internal/domain"
	"github.com/prn-tf/academia/internal/repository"
)

// facultyRepository implements repository.FacultyRepository for SQLite.
type facultyRepository struct {
	db *DB
}

// NewFacultyRepository creates a new SQLite faculty profile repository.
func NewFacultyRepository(db *DB) repository.FacultyRepository {
	return &facultyRepository{db: db}
}

const facultyColumns = `id, user_id, employee_number, department, created_at`

// CreateIfAbsent inserts the faculty profile unless the user already has one.
func (r *facultyRepository) CreateIfAbsent(ctx context.Context, faculty *domain.FacultyProfile) (bool, error) {
	if faculty.CreatedAt.IsZero() {
		faculty.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO faculty (user_id, employee_number, department, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		faculty.UserID,
		faculty.EmployeeNumber,
		string(faculty.Department),
		formatTime(faculty.CreatedAt),
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return false, domain.NewDomainError(domain.ErrIdentifierConflict, "employee number in use", faculty.EmployeeNumber)
		case isForeignKeyViolation(err):
			return false, domain.ErrUserNotFound
		}
		return false, fmt.Errorf("failed to create faculty profile: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()

	stored, err := r.GetByUserID(ctx, faculty.UserID)
	if err != nil {
		return false, err
	}
	*faculty = *stored

	return rowsAffected > 0, nil
}

// GetByUserID retrieves the faculty profile of a user.
func (r *facultyRepository) GetByUserID(ctx context.Context, userID int64) (*domain.FacultyProfile, error) {
	query := `SELECT ` + facultyColumns + ` FROM faculty WHERE user_id = ?`

	faculty, err := scanFaculty(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrFacultyProfileNotFound
		}
		return nil, fmt.Errorf("failed to get faculty profile: %w", err)
	}
	return faculty, nil
}

// Update updates the department.
func (r *facultyRepository) Update(ctx context.Context, faculty *domain.FacultyProfile) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE faculty SET department = ? WHERE user_id = ?`,
		string(faculty.Department),
		faculty.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update faculty profile: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrFacultyProfileNotFound
	}

	return nil
}

// ListByDepartment returns the department's faculty ordered by ID.
func (r *facultyRepository) ListByDepartment(ctx context.Context, dept domain.Department) ([]*domain.FacultyProfile, error) {
	query := `SELECT ` + facultyColumns + ` FROM faculty WHERE department = ? ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, string(dept))
	if err != nil {
		return nil, fmt.Errorf("failed to list faculty: %w", err)
	}
	defer rows.Close()

	var list []*domain.FacultyProfile
	for rows.Next() {
		faculty, err := scanFaculty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan faculty: %w", err)
		}
		list = append(list, faculty)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating faculty: %w", err)
	}

	return list, nil
}

func scanFaculty(row scanner) (*domain.FacultyProfile, error) {
	faculty := &domain.FacultyProfile{}
	var dept, createdAt string

	if err := row.Scan(&faculty.ID, &faculty.UserID, &faculty.EmployeeNumber, &dept, &createdAt); err != nil {
		return nil, err
	}

	faculty.Department = domain.Department(dept)
	faculty.CreatedAt = parseTime(createdAt)
	return faculty, nil
}

// Ensure facultyRepository implements repository.FacultyRepository.
var _ repository.FacultyRepository = (*facultyRepository)(nil)
