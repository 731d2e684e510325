package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/academia/internal/domain"
	"github.com/prn-tf/academia/internal/repository"
)

// =============================================================================
// Student Repository
// =============================================================================

// studentRepository implements repository.StudentRepository.
type studentRepository struct {
	db *DB
}

// NewStudentRepository creates a new PostgreSQL student profile repository.
func NewStudentRepository(db *DB) repository.StudentRepository {
	return &studentRepository{db: db}
}

// CreateIfAbsent inserts the student profile unless the user already has one.
func (r *studentRepository) CreateIfAbsent(ctx context.Context, student *domain.StudentProfile) (bool, error) {
	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now().UTC()
	}

	tag, err := r.db.q(ctx).Exec(ctx, `
		INSERT INTO students (user_id, registration_number, batch, semester, section, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO NOTHING
	`, student.UserID, student.RegistrationNumber, student.Batch, student.Semester, student.Section, student.CreatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return false, domain.NewDomainError(domain.ErrIdentifierConflict, "registration number in use", student.RegistrationNumber)
		case isForeignKeyViolation(err):
			return false, domain.ErrUserNotFound
		}
		return false, fmt.Errorf("failed to create student profile: %w", err)
	}

	stored, err := r.GetByUserID(ctx, student.UserID)
	if err != nil {
		return false, err
	}
	*student = *stored

	return tag.RowsAffected() > 0, nil
}

// GetByUserID retrieves the student profile of a user.
func (r *studentRepository) GetByUserID(ctx context.Context, userID int64) (*domain.StudentProfile, error) {
	student := &domain.StudentProfile{}
	err := r.db.q(ctx).QueryRow(ctx, `
		SELECT id, user_id, registration_number, batch, semester, section, created_at
		FROM students
		WHERE user_id = $1
	`, userID).Scan(
		&student.ID,
		&student.UserID,
		&student.RegistrationNumber,
		&student.Batch,
		&student.Semester,
		&student.Section,
		&student.CreatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrStudentProfileNotFound
		}
		return nil, fmt.Errorf("failed to get student profile: %w", err)
	}
	return student, nil
}

// Update updates batch, semester and section.
func (r *studentRepository) Update(ctx context.Context, student *domain.StudentProfile) error {
	tag, err := r.db.q(ctx).Exec(ctx,
		`UPDATE students SET batch = $1, semester = $2, section = $3 WHERE user_id = $4`,
		student.Batch, student.Semester, student.Section, student.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update student profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStudentProfileNotFound
	}
	return nil
}

// =============================================================================
// Faculty Repository
// =============================================================================

// facultyRepository implements repository.FacultyRepository.
type facultyRepository struct {
	db *DB
}

// NewFacultyRepository creates a new PostgreSQL faculty profile repository.
func NewFacultyRepository(db *DB) repository.FacultyRepository {
	return &facultyRepository{db: db}
}

const facultyColumns = `id, user_id, employee_number, department, created_at`

// CreateIfAbsent inserts the faculty profile unless the user already has one.
func (r *facultyRepository) CreateIfAbsent(ctx context.Context, faculty *domain.FacultyProfile) (bool, error) {
	if faculty.CreatedAt.IsZero() {
		faculty.CreatedAt = time.Now().UTC()
	}

	tag, err := r.db.q(ctx).Exec(ctx, `
		INSERT INTO faculty (user_id, employee_number, department, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO NOTHING
	`, faculty.UserID, faculty.EmployeeNumber, string(faculty.Department), faculty.CreatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return false, domain.NewDomainError(domain.ErrIdentifierConflict, "employee number in use", faculty.EmployeeNumber)
		case isForeignKeyViolation(err):
			return false, domain.ErrUserNotFound
		}
		return false, fmt.Errorf("failed to create faculty profile: %w", err)
	}

	stored, err := r.GetByUserID(ctx, faculty.UserID)
	if err != nil {
		return false, err
	}
	*faculty = *stored

	return tag.RowsAffected() > 0, nil
}

// GetByUserID retrieves the faculty profile of a user.
func (r *facultyRepository) GetByUserID(ctx context.Context, userID int64) (*domain.FacultyProfile, error) {
	faculty, err := scanFaculty(r.db.q(ctx).QueryRow(ctx, `SELECT `+facultyColumns+` FROM faculty WHERE user_id = $1`, userID))
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
	tag, err := r.db.q(ctx).Exec(ctx,
		`UPDATE faculty SET department = $1 WHERE user_id = $2`,
		string(faculty.Department), faculty.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update faculty profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFacultyProfileNotFound
	}
	return nil
}

// ListByDepartment returns the department's faculty ordered by ID.
func (r *facultyRepository) ListByDepartment(ctx context.Context, dept domain.Department) ([]*domain.FacultyProfile, error) {
	rows, err := r.db.q(ctx).Query(ctx, `SELECT `+facultyColumns+` FROM faculty WHERE department = $1 ORDER BY id`, string(dept))
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

func scanFaculty(row pgx.Row) (*domain.FacultyProfile, error) {
	faculty := &domain.FacultyProfile{}
	var dept string
	if err := row.Scan(&faculty.ID, &faculty.UserID, &faculty.EmployeeNumber, &dept, &faculty.CreatedAt); err != nil {
		return nil, err
	}
	faculty.Department = domain.Department(dept)
	return faculty, nil
}

// =============================================================================
// Subject Repository
// =============================================================================

// subjectRepository implements repository.SubjectRepository.
type subjectRepository struct {
	db *DB
}

// NewSubjectRepository creates a new PostgreSQL subject repository.
func NewSubjectRepository(db *DB) repository.SubjectRepository {
	return &subjectRepository{db: db}
}

const subjectColumns = `id, code, name, department, semester, credits, faculty_id`

// Upsert inserts or updates a subject by code.
func (r *subjectRepository) Upsert(ctx context.Context, subject *domain.Subject) (bool, error) {
	query := `
		INSERT INTO subjects (code, name, department, semester, credits)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO UPDATE
		SET name = EXCLUDED.name,
		    department = EXCLUDED.department,
		    semester = EXCLUDED.semester,
		    credits = EXCLUDED.credits
		RETURNING id, (xmax = 0) AS is_new
	`

	var isNew bool
	err := r.db.q(ctx).QueryRow(ctx, query,
		subject.Code, subject.Name, string(subject.Department), subject.Semester, subject.Credits,
	).Scan(&subject.ID, &isNew)
	if err != nil {
		return false, fmt.Errorf("failed to upsert subject: %w", err)
	}
	return isNew, nil
}

// GetByID retrieves a subject by ID.
func (r *subjectRepository) GetByID(ctx context.Context, id int64) (*domain.Subject, error) {
	subject, err := scanSubject(r.db.q(ctx).QueryRow(ctx, `SELECT `+subjectColumns+` FROM subjects WHERE id = $1`, id))
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
	return r.list(ctx, `SELECT `+subjectColumns+` FROM subjects ORDER BY semester, code`)
}

// ListByDepartment returns subjects of dept plus common subjects.
func (r *subjectRepository) ListByDepartment(ctx context.Context, dept domain.Department) ([]*domain.Subject, error) {
	return r.list(ctx, `
		SELECT `+subjectColumns+`
		FROM subjects
		WHERE department = $1 OR department = ''
		ORDER BY semester, code
	`, string(dept))
}

// ListUnassigned returns subjects with a department and no faculty.
func (r *subjectRepository) ListUnassigned(ctx context.Context) ([]*domain.Subject, error) {
	return r.list(ctx, `
		SELECT `+subjectColumns+`
		FROM subjects
		WHERE faculty_id IS NULL AND department <> ''
		ORDER BY code
	`)
}

// AssignFaculty sets the faculty of a subject.
func (r *subjectRepository) AssignFaculty(ctx context.Context, subjectID, facultyID int64) error {
	tag, err := r.db.q(ctx).Exec(ctx, `UPDATE subjects SET faculty_id = $1 WHERE id = $2`, facultyID, subjectID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrFacultyProfileNotFound
		}
		return fmt.Errorf("failed to assign faculty: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSubjectNotFound
	}
	return nil
}

func (r *subjectRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Subject, error) {
	rows, err := r.db.q(ctx).Query(ctx, query, args...)
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

func scanSubject(row pgx.Row) (*domain.Subject, error) {
	subject := &domain.Subject{}
	var dept string
	err := row.Scan(
		&subject.ID,
		&subject.Code,
		&subject.Name,
		&dept,
		&subject.Semester,
		&subject.Credits,
		&subject.FacultyID,
	)
	if err != nil {
		return nil, err
	}
	subject.Department = domain.Department(dept)
	return subject, nil
}

// Ensure the repositories implement their interfaces.
var (
	_ repository.StudentRepository = (*studentRepository)(nil)
	_ repository.FacultyRepository = (*facultyRepository)(nil)
	_ repository.SubjectRepository = (*subjectRepository)(nil)
)
