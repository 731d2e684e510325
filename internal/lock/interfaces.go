// Package lock provides distributed and local locking abstractions.
// For single-node deployments, memory-based locks are used.
// For multi-instance deployments, Redis-based locks are used.
package lock

import (
	"context"
	"time"
)

// Locker defines the interface for distributed/local locking.
// Background passes such as profile reconciliation hold a lock so that only
// one server instance (or one admin command) runs them at a time.
type Locker interface {
	// Acquire attempts to acquire a lock.
	// Returns true if the lock was acquired, false if it's held by another owner.
	// The lock will automatically expire after the specified TTL.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// AcquireWithRetry attempts to acquire a lock with retries.
	// Will retry up to maxRetries times with retryDelay between attempts.
	AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error)

	// Release releases a lock held by this locker.
	// Returns true if the lock was released, false if it wasn't held.
	Release(ctx context.Context, key string) (bool, error)
}

// retry drives AcquireWithRetry for implementations that only provide Acquire.
func retry(ctx context.Context, acquire func() (bool, error), maxRetries int, retryDelay time.Duration) (bool, error) {
	for i := 0; i <= maxRetries; i++ {
		acquired, err := acquire()
		if err != nil {
			return false, err
		}
		if acquired {
			return true, nil
		}

		if i < maxRetries {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	return false, nil
}

// =============================================================================
// Common Lock Keys
// =============================================================================

// Keys provides lock key generation for common scenarios.
var Keys = lockKeys{}

type lockKeys struct{}

// ProfileReconcile returns the lock key of the profile reconciliation pass.
func (lockKeys) ProfileReconcile() string {
	return "lock:reconcile:profiles"
}

// FacultySubjectSync returns the lock key of the faculty-subject assignment pass.
func (lockKeys) FacultySubjectSync() string {
	return "lock:sync:faculty-subjects"
}
