package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateStruct_RegisterInput(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*RegisterInput)
		wantFields []string
	}{
		{"valid", func(*RegisterInput) {}, nil},
		{"bad username", func(in *RegisterInput) { in.Username = "has space" }, []string{"username"}},
		{"bad email", func(in *RegisterInput) { in.Email = "nope" }, []string{"email"}},
		{"password mismatch", func(in *RegisterInput) { in.PasswordConfirm = "different1" }, []string{"password2"}},
		{"missing names", func(in *RegisterInput) { in.FirstName, in.LastName = "", "" }, []string{"first_name", "last_name"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validRegistration("alice", "STUDENT")
			tt.mutate(&in)

			err := validateStruct(in)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.ErrorIs(t, err, ErrInvalidInput)
			for _, field := range tt.wantFields {
				assert.Contains(t, verr.Fields, field)
			}
		})
	}
}

func TestValidateStruct_AdminCreateInput(t *testing.T) {
	tests := []struct {
		name      string
		input     CreateUserDirectInput
		wantField string
	}{
		{"unknown role", CreateUserDirectInput{Username: "x", Password: "password123", Role: "DEAN"}, "role"},
		{"unknown department", CreateUserDirectInput{Username: "x", Password: "password123", Role: "FACULTY", Department: "XYZ"}, "department"},
		{"semester out of range", CreateUserDirectInput{Username: "x", Password: "password123", Role: "STUDENT", Semester: 9}, "semester"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateStruct(tt.input)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Contains(t, verr.Fields, tt.wantField)
		})
	}

	ok := CreateUserDirectInput{
		Username:        "prof",
		Email:           "prof@example.edu",
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Password:        "password123",
		PasswordConfirm: "password123",
		Role:            "faculty",
		Department:      "cse",
	}
	assert.NoError(t, validateStruct(ok))
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"username": "is required", "email": "is required"}}
	assert.Equal(t, "invalid input: email: is required; username: is required", err.Error())
}
