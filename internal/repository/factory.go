package repository

import (
	"context"
)

// Repositories holds all repository instances of one database
// together with the transaction manager they participate in.
type Repositories struct {
	User    UserRepository
	Profile ProfileRepository
	Student StudentRepository
	Faculty FacultyRepository
	Subject SubjectRepository
	Tx      TxManager
}

// DatabaseHealth is an interface for database health checks.
// This interface satisfies handler.DatabaseChecker for health endpoints.
type DatabaseHealth interface {
	Ping(ctx context.Context) error
	Health(ctx context.Context) error
	Close() error
}

// Database is an opened store: its repositories, its health check and its migrator.
type Database interface {
	DatabaseHealth

	// Migrate applies pending schema migrations.
	Migrate(ctx context.Context) error

	// SchemaVersion returns the highest applied migration version.
	SchemaVersion(ctx context.Context) (int, error)

	// Repositories returns the repositories bound to this database.
	Repositories() *Repositories
}
