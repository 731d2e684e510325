package domain

import (
	"fmt"
	"strings"
	"time"
)

// Department is a closed set of department codes.
type Department string

// Departments in declaration order. The first value is the provisioning default.
const (
	DeptCSE     Department = "CSE"
	DeptECE     Department = "ECE"
	DeptEEE     Department = "EEE"
	DeptMECH    Department = "MECH"
	DeptCIVIL   Department = "CIVIL"
	DeptIT      Department = "IT"
	DeptEIE     Department = "EIE"
	DeptCHEM    Department = "CHEM"
	DeptMME     Department = "MME"
	DeptMINING  Department = "MINING"
	DeptMATH    Department = "MATH"
	DeptPHY     Department = "PHY"
	DeptCHEMSCI Department = "CHEM_SCI"
	DeptENG     Department = "ENG"
	DeptMBA     Department = "MBA"
)

var departments = []Department{
	DeptCSE, DeptECE, DeptEEE, DeptMECH, DeptCIVIL, DeptIT, DeptEIE, DeptCHEM,
	DeptMME, DeptMINING, DeptMATH, DeptPHY, DeptCHEMSCI, DeptENG, DeptMBA,
}

var departmentNames = map[Department]string{
	DeptCSE:     "Computer Science and Engineering",
	DeptECE:     "Electronics and Communication Engineering",
	DeptEEE:     "Electrical and Electronics Engineering",
	DeptMECH:    "Mechanical Engineering",
	DeptCIVIL:   "Civil Engineering",
	DeptIT:      "Information Technology",
	DeptEIE:     "Electronics and Instrumentation Engineering",
	DeptCHEM:    "Chemical Engineering",
	DeptMME:     "Metallurgical and Materials Engineering",
	DeptMINING:  "Mining Engineering",
	DeptMATH:    "Mathematics",
	DeptPHY:     "Physics",
	DeptCHEMSCI: "Chemistry",
	DeptENG:     "English",
	DeptMBA:     "Business Administration",
}

// Departments returns all department codes in declaration order.
func Departments() []Department {
	out := make([]Department, len(departments))
	copy(out, departments)
	return out
}

// ParseDepartment validates a department code. Matching is case-insensitive.
func ParseDepartment(s string) (Department, error) {
	d := Department(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := departmentNames[d]; !ok {
		return "", NewDomainError(ErrInvalidDepartment, "unknown department code", s)
	}
	return d, nil
}

// IsValid reports whether d is a known department.
func (d Department) IsValid() bool {
	_, ok := departmentNames[d]
	return ok
}

// DisplayName returns the full department name.
func (d Department) DisplayName() string {
	return departmentNames[d]
}

// EmployeeNumber synthesizes the faculty employee number for a user id.
func EmployeeNumber(userID int64) string {
	return fmt.Sprintf("FAC%05d", userID)
}

// RegistrationNumber synthesizes the student registration number for a user id.
func RegistrationNumber(userID int64) string {
	return fmt.Sprintf("STU%05d", userID)
}

// StudentProfile is the academic record of an approved student.
type StudentProfile struct {
	// ID is the unique identifier for the student profile.
	ID int64 `json:"id"`

	// UserID references the owning user (unique).
	UserID int64 `json:"user_id"`

	// RegistrationNumber is unique, e.g. STU00007.
	RegistrationNumber string `json:"registration_number"`

	// Batch is the admission batch label, e.g. "2026".
	Batch string `json:"batch"`

	// Semester is the current semester (>= 1).
	Semester int `json:"semester"`

	// Section is optional.
	Section string `json:"section,omitempty"`

	// CreatedAt is the timestamp when the profile was created.
	CreatedAt time.Time `json:"created_at"`
}

// FacultyProfile is the academic record of an approved faculty member.
type FacultyProfile struct {
	// ID is the unique identifier for the faculty profile.
	ID int64 `json:"id"`

	// UserID references the owning user (unique).
	UserID int64 `json:"user_id"`

	// EmployeeNumber is unique, e.g. FAC00007.
	EmployeeNumber string `json:"employee_number"`

	// Department is the faculty's department.
	Department Department `json:"department"`

	// CreatedAt is the timestamp when the profile was created.
	CreatedAt time.Time `json:"created_at"`
}

// Subject is a catalogue entry that may be taught by one faculty member.
type Subject struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`

	// Department is empty for subjects common to all departments.
	Department Department `json:"department"`

	Semester int `json:"semester"`
	Credits  int `json:"credits"`

	// FacultyID is nil when nobody is assigned.
	FacultyID *int64 `json:"faculty_id,omitempty"`
}

// DefaultCredits is used when a catalogue row omits credits.
const DefaultCredits = 3

// IsCommon reports whether the subject belongs to every department.
func (s *Subject) IsCommon() bool {
	return s.Department == ""
}

// SubjectSummary is the projection returned by department listings.
type SubjectSummary struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Semester int    `json:"semester"`
	Credits  int    `json:"credits"`
}

// Summary projects s for listings.
func (s *Subject) Summary() SubjectSummary {
	return SubjectSummary{
		ID:       s.ID,
		Code:     s.Code,
		Name:     s.Name,
		Semester: s.Semester,
		Credits:  s.Credits,
	}
}
