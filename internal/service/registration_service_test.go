package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/academia/internal/domain"
	"github.com/prn-tf/academia/internal/events"
)

func validRegistration(username, role string) RegisterInput {
	return RegisterInput{
		Username:        username,
		Email:           username + "@example.edu",
		FirstName:       "Test",
		LastName:        "User",
		Password:        "password123",
		PasswordConfirm: "password123",
		Role:            role,
	}
}

func TestRegistrationService_Register(t *testing.T) {
	tests := []struct {
		name    string
		input   RegisterInput
		wantErr error
	}{
		{"student", validRegistration("stud", "STUDENT"), nil},
		{"faculty lower case", validRegistration("prof", "faculty"), nil},
		{"admin not allowed", validRegistration("boss", "ADMIN"), ErrRoleNotAllowed},
		{"unknown role", validRegistration("who", "JANITOR"), ErrRoleNotAllowed},
		{
			name: "password mismatch",
			input: func() RegisterInput {
				in := validRegistration("typo", "STUDENT")
				in.PasswordConfirm = "password124"
				return in
			}(),
			wantErr: ErrInvalidInput,
		},
		{
			name: "missing email",
			input: func() RegisterInput {
				in := validRegistration("noemail", "STUDENT")
				in.Email = ""
				return in
			}(),
			wantErr: ErrInvalidInput,
		},
		{
			name: "bad username",
			input: func() RegisterInput {
				in := validRegistration("white space", "STUDENT")
				return in
			}(),
			wantErr: ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			out, err := f.registration.Register(context.Background(), tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, f.store.users)
				return
			}
			require.NoError(t, err)

			assert.False(t, out.User.IsActive)
			assert.False(t, out.Profile.IsApproved)
			assert.Equal(t, domain.StatePending, domain.StateOf(out.Profile))

			stored := f.store.profiles[out.User.ID]
			require.NotNil(t, stored)
			assert.Equal(t, out.Profile.Role, stored.Role)
			assert.Empty(t, f.store.students)
			assert.Empty(t, f.store.faculty)
			assert.Equal(t, []events.ActivityType{events.ActivityUserRegistered}, f.events.Types())
		})
	}
}

func TestRegistrationService_TrimsBeforeValidating(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	in := validRegistration("  padded ", "STUDENT")
	in.Email = " padded@example.edu "
	out, err := f.registration.Register(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "padded", out.User.Username)
	assert.Equal(t, "padded@example.edu", out.User.Email)

	_, err = f.registration.Register(ctx, validRegistration("padded", "FACULTY"))
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists, "trimmed names collide with their unpadded form")

	staff := directInput("\tstaffer ", "ADMIN")
	staff.Email = "staffer@example.edu"
	direct, err := f.registration.CreateUserDirect(ctx, 1, staff)
	require.NoError(t, err)
	assert.Equal(t, "staffer", direct.User.Username)
}

func TestRegistrationService_Register_DuplicateUsername(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.registration.Register(ctx, validRegistration("dup", "STUDENT"))
	require.NoError(t, err)

	_, err = f.registration.Register(ctx, validRegistration("dup", "FACULTY"))
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
	assert.Len(t, f.store.users, 1)
}

func TestRegistrationService_Approve(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	reg, err := f.registration.Register(ctx, validRegistration("prof", "FACULTY"))
	require.NoError(t, err)

	out, err := f.registration.Approve(ctx, 99, reg.User.ID)
	require.NoError(t, err)

	assert.True(t, out.User.IsActive)
	assert.True(t, out.Profile.IsApproved)
	require.NotNil(t, out.Provisioned)
	assert.True(t, out.Provisioned.Created)
	assert.Equal(t, domain.EmployeeNumber(reg.User.ID), out.Provisioned.Identifier)

	assert.True(t, f.store.users[reg.User.ID].IsActive)
	assert.True(t, f.store.profiles[reg.User.ID].IsApproved)
	require.Contains(t, f.store.faculty, reg.User.ID)
	assert.Equal(t, domain.DeptCSE, f.store.faculty[reg.User.ID].Department)

	approved := f.events.Events()
	assert.Equal(t, events.ActivityUserApproved, approved[len(approved)-1].Type)
	assert.Equal(t, int64(99), approved[len(approved)-1].ActorID)
}

func TestRegistrationService_Approve_InvalidTransitions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	reg, err := f.registration.Register(ctx, validRegistration("stud", "STUDENT"))
	require.NoError(t, err)
	_, err = f.registration.Approve(ctx, 1, reg.User.ID)
	require.NoError(t, err)

	t.Run("approve twice", func(t *testing.T) {
		_, err := f.registration.Approve(ctx, 1, reg.User.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("reject approved", func(t *testing.T) {
		_, err := f.registration.Reject(ctx, 1, reg.User.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Contains(t, f.store.users, reg.User.ID)
	})

	t.Run("superuser without profile", func(t *testing.T) {
		root := f.store.addUser("root", true, true)
		_, err := f.registration.Approve(ctx, 1, root.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.registration.Approve(ctx, 1, 4242)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

func TestRegistrationService_Approve_UserWithoutProfile(t *testing.T) {
	f := newFixture()
	user := f.store.addUser("legacy", false, false)

	out, err := f.registration.Approve(context.Background(), 1, user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStudent, out.Profile.Role)
	assert.Contains(t, f.store.students, user.ID)
}

func TestRegistrationService_Reject(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.store.nextUserID = 12
	reg, err := f.registration.Register(ctx, validRegistration("pending12", "FACULTY"))
	require.NoError(t, err)
	require.Equal(t, int64(12), reg.User.ID)

	rejected, err := f.registration.Reject(ctx, 1, 12)
	require.NoError(t, err)
	assert.Equal(t, "pending12", rejected.Username)

	_, err = f.users.GetByID(ctx, 12)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.NotContains(t, f.store.profiles, int64(12))
	assert.NotContains(t, f.store.faculty, int64(12))

	_, err = f.registration.Reject(ctx, 1, 12)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestRegistrationService_ListPending(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.registration.Register(ctx, validRegistration("first", "STUDENT"))
	require.NoError(t, err)
	second, err := f.registration.Register(ctx, validRegistration("second", "FACULTY"))
	require.NoError(t, err)
	approved, err := f.registration.Register(ctx, validRegistration("third", "STUDENT"))
	require.NoError(t, err)
	_, err = f.registration.Approve(ctx, 1, approved.User.ID)
	require.NoError(t, err)

	pending, err := f.registration.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, second.User.ID, pending[0].User.ID)
	assert.Equal(t, first.User.ID, pending[1].User.ID)
}

func directInput(username, role string) CreateUserDirectInput {
	return CreateUserDirectInput{
		Username:        username,
		Email:           username + "@example.edu",
		FirstName:       "Direct",
		LastName:        "Create",
		Password:        "password123",
		PasswordConfirm: "password123",
		Role:            role,
	}
}

func TestRegistrationService_CreateUserDirect_Faculty(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ds := f.store.addSubject("CS201", domain.DeptCSE, 3)
	common := f.store.addSubject("MA101", "", 1)

	input := directInput("prof", "FACULTY")
	input.Department = "cse"
	input.SubjectIDs = []int64{ds.ID, common.ID}

	out, err := f.registration.CreateUserDirect(ctx, 1, input)
	require.NoError(t, err)
	assert.NoError(t, out.Warning)
	assert.True(t, out.User.IsActive)
	assert.True(t, out.Profile.IsApproved)
	assert.Equal(t, domain.RoleFaculty, out.Profile.Role)
	require.NotNil(t, out.Faculty)
	assert.Equal(t, domain.DeptCSE, out.Faculty.Department)
	assert.Equal(t, 2, out.AssignedSubjects)
	assert.Equal(t, "Faculty prof created with 2 subject(s)!", out.Message)

	require.NotNil(t, f.store.subjects[ds.ID].FacultyID)
	assert.Equal(t, out.Faculty.ID, *f.store.subjects[ds.ID].FacultyID)
}

func TestRegistrationService_CreateUserDirect_SubjectReassignment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	subject := f.store.addSubject("CS301", domain.DeptCSE, 4)

	in1 := directInput("first", "FACULTY")
	in1.Department = "CSE"
	in1.SubjectIDs = []int64{subject.ID}
	first, err := f.registration.CreateUserDirect(ctx, 1, in1)
	require.NoError(t, err)

	in2 := directInput("second", "FACULTY")
	in2.Department = "CSE"
	in2.SubjectIDs = []int64{subject.ID}
	second, err := f.registration.CreateUserDirect(ctx, 1, in2)
	require.NoError(t, err)

	assert.NotEqual(t, first.Faculty.ID, second.Faculty.ID)
	assert.Equal(t, second.Faculty.ID, *f.store.subjects[subject.ID].FacultyID)
}

func TestRegistrationService_CreateUserDirect_Partial(t *testing.T) {
	tests := []struct {
		name    string
		input   CreateUserDirectInput
		message string
	}{
		{"faculty without department", directInput("prof", "FACULTY"), "User prof created but department not set!"},
		{
			name: "student without semester",
			input: func() CreateUserDirectInput {
				in := directInput("stud", "STUDENT")
				in.Batch = "2025"
				return in
			}(),
			message: "User stud created but student details incomplete!",
		},
		{
			name: "student without batch",
			input: func() CreateUserDirectInput {
				in := directInput("stud", "STUDENT")
				in.Semester = 2
				return in
			}(),
			message: "User stud created but student details incomplete!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			out, err := f.registration.CreateUserDirect(context.Background(), 1, tt.input)
			require.NoError(t, err)

			assert.ErrorIs(t, out.Warning, domain.ErrPartialAdminCreation)
			assert.Equal(t, tt.message, out.Message)
			assert.True(t, out.User.IsActive)
			assert.True(t, out.Profile.IsApproved)
			assert.Empty(t, f.store.faculty)
			assert.Empty(t, f.store.students)
		})
	}
}

func TestRegistrationService_CreateUserDirect_Student(t *testing.T) {
	f := newFixture()
	input := directInput("stud", "STUDENT")
	input.Batch = "2024"
	input.Semester = 5
	input.Section = "C"

	out, err := f.registration.CreateUserDirect(context.Background(), 1, input)
	require.NoError(t, err)
	assert.NoError(t, out.Warning)
	require.NotNil(t, out.Student)
	assert.Equal(t, domain.RegistrationNumber(out.User.ID), out.Student.RegistrationNumber)
	assert.Equal(t, "2024", out.Student.Batch)
	assert.Equal(t, 5, out.Student.Semester)
	assert.Equal(t, "C", out.Student.Section)
	assert.Equal(t, "Student stud created!", out.Message)
}

func TestRegistrationService_CreateUserDirect_Admin(t *testing.T) {
	f := newFixture()
	out, err := f.registration.CreateUserDirect(context.Background(), 1, directInput("boss", "ADMIN"))
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, out.Profile.Role)
	assert.Equal(t, "User boss created successfully!", out.Message)
	assert.Empty(t, f.store.faculty)
	assert.Empty(t, f.store.students)
}

func TestRegistrationService_CreateUserDirect_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreateUserDirectInput)
		wantErr error
	}{
		{"bad role", func(in *CreateUserDirectInput) { in.Role = "DEAN" }, ErrInvalidInput},
		{"bad department", func(in *CreateUserDirectInput) { in.Role = "FACULTY"; in.Department = "ART" }, ErrInvalidInput},
		{"semester out of range", func(in *CreateUserDirectInput) { in.Role = "STUDENT"; in.Batch = "2024"; in.Semester = 9 }, ErrInvalidInput},
		{"unknown subject", func(in *CreateUserDirectInput) {
			in.Role = "FACULTY"
			in.Department = "CSE"
			in.SubjectIDs = []int64{777}
		}, domain.ErrSubjectNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			in := directInput("someone", "STUDENT")
			tt.mutate(&in)
			_, err := f.registration.CreateUserDirect(context.Background(), 1, in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
