package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prn-tf/academia/internal/domain"
	"github.com/prn-tf/academia/internal/repository"
)

// subjectRepository implements repository.SubjectRepository for SQLite.
type subjectRepository struct {
	db *DB
}

// NewSubjectRepository creates a new SQLite subject repository.
func NewSubjectRepository(db *DB) repository.SubjectRepository {
	return &subjectRepository{db: db}
}

const subjectColumns = `id, code, name, department, semester, credits, faculty_id`

// Upsert inserts or updates a subject by code.
func (r *subjectRepository) Upsert(ctx context.Context, subject *domain.Subject) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM subjects WHERE code = ?`, subject.Code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check subject: %w", err)
	}

	query := `
		INSERT INTO subjects (code, name, department, semester, credits)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (code) DO UPDATE SET
			name = excluded.name,
			department = excluded.department,
			semester = excluded.semester,
			credits = excluded.credits
		RETURNING id
	`

	err = r.db.QueryRowContext(ctx, query,
		subject.Code,
		subject.Name,
		string(subject.Department),
		subject.Semester,
		subject.Credits,
	).Scan(&subject.ID)
	if err != nil {
		return false, fmt.Errorf("failed to upsert subject: %w", err)
	}

	return exists == 0, nil
}

// GetByID retrieves a subject by ID.
func (r *subjectRepository) GetByID(ctx context.Context, id int64) (*domain.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE id = ?`

	subject, err := scanSubject(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrSubjectNotFound
		}
		return nil, fmt.Errorf("failed to get subject: %w", err)
	}
	return subject, nil
}

// ListAll returns every subject ordered by semester, then code.
func (r *subjectRepository) ListAll(ctx context.Context) ([]*domain.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects ORDER BY semester, code`
	return r.list(ctx, query)
}

// ListByDepartment returns subjects of dept plus common subjects.
func (r *subjectRepository) ListByDepartment(ctx context.Context, dept domain.Department) ([]*domain.Subject, error) {
	query := `
		SELECT ` + subjectColumns + `
		FROM subjects
		WHERE department = ? OR department = ''
		ORDER BY semester, code
	`
	return r.list(ctx, query, string(dept))
}

// ListUnassigned returns subjects with a department and no faculty.
func (r *subjectRepository) ListUnassigned(ctx context.Context) ([]*domain.Subject, error) {
	query := `
		SELECT ` + subjectColumns + `
		FROM subjects
		WHERE faculty_id IS NULL AND department <> ''
		ORDER BY code
	`
	return r.list(ctx, query)
}

// AssignFaculty sets the faculty of a subject.
func (r *subjectRepository) AssignFaculty(ctx context.Context, subjectID, facultyID int64) error {
	result, err := r.db.ExecContext(ctx, `UPDATE subjects SET faculty_id = ? WHERE id = ?`, facultyID, subjectID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrFacultyProfileNotFound
		}
		return fmt.Errorf("failed to assign faculty: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrSubjectNotFound
	}

	return nil
}

func (r *subjectRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Subject, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	defer rows.Close()

	var subjects []*domain.Subject
	for rows.Next() {
		subject, err := scanSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subject: %w", err)
		}
		subjects = append(subjects, subject)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subjects: %w", err)
	}

	return subjects, nil
}

func scanSubject(row scanner) (*domain.Subject, error) {
	subject := &domain.Subject{}
	var dept string
	var facultyID sql.NullInt64

	err := row.Scan(
		&subject.ID,
		&subject.Code,
		&subject.Name,
		&dept,
		&subject.Semester,
		&subject.Credits,
		&facultyID,
	)
	if err != nil {
		return nil, err
	}

	subject.Department = domain.Department(dept)
	if facultyID.Valid {
		id := facultyID.Int64
		subject.FacultyID = &id
	}
	return subject, nil
}

// Ensure subjectRepository implements repository.SubjectRepository.
var _ repository.SubjectRepository = (*subjectRepository)(nil)
