package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/prn-tf/academia/internal/domain"
	"github.com/prn-tf/academia/internal/lock"
	"github.com/prn-tf/academia/internal/repository"
)

// SubjectSheetName is the sheet written by ExportExcel.
const SubjectSheetName = "Subjects"

// subjectColumns are the spreadsheet columns, in order.
var subjectColumns = []string{"code", "name", "department", "semester", "credits"}

// SubjectService manages the subject catalogue and faculty assignments.
type SubjectService struct {
	subjectRepo repository.SubjectRepository
	facultyRepo repository.FacultyRepository
	tx          repository.TxManager
	locker      lock.Locker
	logger      zerolog.Logger
}

// NewSubjectService creates a new SubjectService.
func NewSubjectService(repos *repository.Repositories, locker lock.Locker, logger zerolog.Logger) *SubjectService {
	return &SubjectService{
		subjectRepo: repos.Subject,
		facultyRepo: repos.Faculty,
		tx:          repos.Tx,
		locker:      locker,
		logger:      logger.With().Str("service", "subject").Logger(),
	}
}

// ListByDepartment returns the subjects of a department plus the common
// subjects, ordered by semester then code.
func (s *SubjectService) ListByDepartment(ctx context.Context, department string) ([]domain.SubjectSummary, error) {
	dept, err := domain.ParseDepartment(department)
	if err != nil {
		return nil, err
	}

	subjects, err := s.subjectRepo.ListByDepartment(ctx, dept)
	if err != nil {
		s.logger.Error().Err(err).Str("department", string(dept)).Msg("failed to list subjects")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	out := make([]domain.SubjectSummary, 0, len(subjects))
	for _, subject := range subjects {
		out = append(out, subject.Summary())
	}
	return out, nil
}

// ListAll returns the whole catalogue ordered by semester then code.
func (s *SubjectService) ListAll(ctx context.Context) ([]*domain.Subject, error) {
	subjects, err := s.subjectRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return subjects, nil
}

// UpsertResult counts created and updated subjects.
type UpsertResult struct {
	Created int
	Updated int
	Total   int
}

// LoadCatalogue upserts the built-in curriculum by subject code.
func (s *SubjectService) LoadCatalogue(ctx context.Context) (*UpsertResult, error) {
	subjects := make([]*domain.Subject, len(builtinCatalogue))
	for i := range builtinCatalogue {
		subject := builtinCatalogue[i]
		subjects[i] = &subject
	}

	result, err := s.upsertAll(ctx, subjects)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("total", result.Total).
		Msg("subject catalogue loaded")

	return result, nil
}

func (s *SubjectService) upsertAll(ctx context.Context, subjects []*domain.Subject) (*UpsertResult, error) {
	result := &UpsertResult{Total: len(subjects)}
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		for _, subject := range subjects {
			created, err := s.subjectRepo.Upsert(ctx, subject)
			if err != nil {
				return fmt.Errorf("%w: subject %s: %v", ErrInternalError, subject.Code, err)
			}
			if created {
				result.Created++
			} else {
				result.Updated++
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to upsert subjects")
		return nil, err
	}
	return result, nil
}

// SyncResult contains the result of a faculty-subject sync.
type SyncResult struct {
	// Unassigned is the number of subjects that had no faculty.
	Unassigned int

	// Assigned is the number of subjects given a faculty member.
	Assigned int

	// Uncovered lists subject codes whose department has no faculty.
	Uncovered []string
}

// SyncFacultySubjects assigns every unassigned departmental subject to the
// first faculty member (by id) of its department.
func (s *SubjectService) SyncFacultySubjects(ctx context.Context) (*SyncResult, error) {
	lockKey := lock.Keys.FacultySubjectSync()
	acquired, err := s.locker.Acquire(ctx, lockKey, 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: faculty-subject sync already running", ErrInvalidTransition)
	}
	defer func() {
		if _, err := s.locker.Release(ctx, lockKey); err != nil {
			s.logger.Error().Err(err).Msg("failed to release sync lock")
		}
	}()

	result := &SyncResult{}
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		subjects, err := s.subjectRepo.ListUnassigned(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		result.Unassigned = len(subjects)

		firstFaculty := make(map[domain.Department]*domain.FacultyProfile)
		for _, subject := range subjects {
			faculty, seen := firstFaculty[subject.Department]
			if !seen {
				members, err := s.facultyRepo.ListByDepartment(ctx, subject.Department)
				if err != nil {
					return fmt.Errorf("%w: %v", ErrInternalError, err)
				}
				if len(members) > 0 {
					faculty = members[0]
				}
				firstFaculty[subject.Department] = faculty
			}

			if faculty == nil {
				result.Uncovered = append(result.Uncovered, subject.Code)
				s.logger.Warn().Str("subject", subject.Code).Str("department", string(subject.Department)).Msg("no faculty found for department")
				continue
			}

			if err := s.subjectRepo.AssignFaculty(ctx, subject.ID, faculty.ID); err != nil {
				return fmt.Errorf("%w: %v", ErrInternalError, err)
			}
			result.Assigned++
			s.logger.Debug().Str("subject", subject.Code).Str("faculty", faculty.EmployeeNumber).Msg("assigned subject")
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("faculty-subject sync failed")
		return nil, err
	}

	s.logger.Info().
		Int("unassigned", result.Unassigned).
		Int("assigned", result.Assigned).
		Int("uncovered", len(result.Uncovered)).
		Msg("faculty-subject sync completed")

	return result, nil
}

// =============================================================================
// Spreadsheet import/export
// =============================================================================

// RowError describes a rejected spreadsheet row.
type RowError struct {
	Row     int
	Message string
}

// ImportResult contains the result of a spreadsheet import.
type ImportResult struct {
	UpsertResult
	Errors []RowError
}

// ImportExcel upserts subjects from the first sheet of an .xlsx file.
// The header row must name the columns code, name, department, semester and
// credits in any order; credits is optional. Invalid rows are reported and
// skipped.
func (s *SubjectService) ImportExcel(ctx context.Context, r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open spreadsheet: %v", ErrInvalidInput, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: spreadsheet has no sheets", ErrInvalidInput)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read rows: %v", ErrInvalidInput, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: spreadsheet needs a header row and at least one data row", ErrInvalidInput)
	}

	header := make(map[string]int)
	for i, name := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"code", "name", "department", "semester"} {
		if _, ok := header[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidInput, required)
		}
	}

	var subjects []*domain.Subject
	var rowErrors []RowError
	for i, row := range rows[1:] {
		subject, err := parseSubjectRow(row, header)
		if err != nil {
			rowErrors = append(rowErrors, RowError{Row: i + 2, Message: err.Error()})
			continue
		}
		if subject != nil {
			subjects = append(subjects, subject)
		}
	}

	upserted, err := s.upsertAll(ctx, subjects)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("created", upserted.Created).
		Int("updated", upserted.Updated).
		Int("errors", len(rowErrors)).
		Msg("subject spreadsheet imported")

	return &ImportResult{UpsertResult: *upserted, Errors: rowErrors}, nil
}

func parseSubjectRow(row []string, header map[string]int) (*domain.Subject, error) {
	cell := func(name string) string {
		i, ok := header[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	code := strings.ToUpper(cell("code"))
	if code == "" && cell("name") == "" {
		return nil, nil
	}
	if code == "" {
		return nil, errors.New("code is required")
	}

	subject := &domain.Subject{Code: code, Name: cell("name"), Credits: domain.DefaultCredits}
	if subject.Name == "" {
		return nil, errors.New("name is required")
	}

	if raw := cell("department"); raw != "" {
		dept, err := domain.ParseDepartment(raw)
		if err != nil {
			return nil, err
		}
		subject.Department = dept
	}

	semester, err := strconv.Atoi(cell("semester"))
	if err != nil || semester < domain.MinSemester || semester > domain.MaxSemester {
		return nil, fmt.Errorf("semester must be between %d and %d", domain.MinSemester, domain.MaxSemester)
	}
	subject.Semester = semester

	if raw := cell("credits"); raw != "" {
		credits, err := strconv.Atoi(raw)
		if err != nil || credits < 0 {
			return nil, errors.New("credits must be a non-negative integer")
		}
		subject.Credits = credits
	}

	return subject, nil
}

// ExportExcel writes the whole catalogue as an .xlsx file.
func (s *SubjectService) ExportExcel(ctx context.Context, w io.Writer) (int, error) {
	subjects, err := s.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SubjectSheetName)
	if err != nil {
		return 0, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return 0, fmt.Errorf("failed to remove default sheet: %w", err)
	}

	for col, name := range subjectColumns {
		if err := setCell(f, col, 1, name); err != nil {
			return 0, err
		}
	}
	for i, subject := range subjects {
		values := []interface{}{subject.Code, subject.Name, string(subject.Department), subject.Semester, subject.Credits}
		for col, value := range values {
			if err := setCell(f, col, i+2, value); err != nil {
				return 0, err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return 0, fmt.Errorf("failed to write spreadsheet: %w", err)
	}

	s.logger.Info().Int("subjects", len(subjects)).Msg("subject catalogue exported")
	return len(subjects), nil
}

func setCell(f *excelize.File, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col+1, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(SubjectSheetName, cell, value)
}
