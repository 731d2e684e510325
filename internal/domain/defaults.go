package domain

import "fmt"

// Provisioning defaults applied when a domain profile is created without
// explicit role-specific fields.
const (
	DefaultDepartment = DeptCSE
	DefaultBatch      = "2026"
	DefaultSemester   = 1
	DefaultSection    = "A"
)

// Semester bounds accepted for explicit student creation.
const (
	MinSemester = 1
	MaxSemester = 8
)

// ProvisioningDefaults is the single defaults table shared by the reactive
// provisioner, the reconciliation pass and admin-direct creation.
type ProvisioningDefaults struct {
	Department Department `json:"department"`
	Batch      string     `json:"batch"`
	Semester   int        `json:"semester"`
	Section    string     `json:"section"`
}

// DefaultProvisioningDefaults returns the built-in defaults table.
func DefaultProvisioningDefaults() ProvisioningDefaults {
	return ProvisioningDefaults{
		Department: DefaultDepartment,
		Batch:      DefaultBatch,
		Semester:   DefaultSemester,
		Section:    DefaultSection,
	}
}

// Validate checks that the table can produce valid domain profiles.
func (d ProvisioningDefaults) Validate() error {
	if !d.Department.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidDepartment, d.Department)
	}
	if d.Batch == "" {
		return fmt.Errorf("default batch must not be empty")
	}
	if d.Semester < MinSemester || d.Semester > MaxSemester {
		return fmt.Errorf("default semester must be between %d and %d", MinSemester, MaxSemester)
	}
	return nil
}

// NewDefaultFacultyProfile builds the faculty profile the provisioner creates for userID.
func (d ProvisioningDefaults) NewDefaultFacultyProfile(userID int64) *FacultyProfile {
	return &FacultyProfile{
		UserID:         userID,
		EmployeeNumber: EmployeeNumber(userID),
		Department:     d.Department,
	}
}

// NewDefaultStudentProfile builds the student profile the provisioner creates for userID.
func (d ProvisioningDefaults) NewDefaultStudentProfile(userID int64) *StudentProfile {
	return &StudentProfile{
		UserID:             userID,
		RegistrationNumber: RegistrationNumber(userID),
		Batch:              d.Batch,
		Semester:           d.Semester,
		Section:            d.Section,
	}
}
