package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/academia/internal/domain"
	"github.com/prn-tf/academia/internal/events"
	"github.com/prn-tf/academia/internal/lock"
	"github.com/prn-tf/academia/internal/metrics"
)

func newTestReconciler(f *fixture, locker lock.Locker, m *metrics.Metrics) *Reconciler {
	config := DefaultReconcileConfig()
	config.LockTTL = time.Minute
	return NewReconciler(f.repos, f.provisioner, locker, m, zerolog.Nop(), config)
}

// seedInconsistent creates an approved student and faculty without domain
// profiles, plus a pending student and a consistent faculty.
func seedInconsistent(f *fixture) (student, faculty *domain.User) {
	student = f.store.addUser("stud", true, false)
	f.store.addProfile(student.ID, domain.RoleStudent, true)

	faculty = f.store.addUser("prof", false, false)
	f.store.addProfile(faculty.ID, domain.RoleFaculty, true)

	pending := f.store.addUser("pending", false, false)
	f.store.addProfile(pending.ID, domain.RoleStudent, false)

	ok := f.store.addUser("ok", true, false)
	f.store.addProfile(ok.ID, domain.RoleFaculty, true)
	f.store.addFaculty(ok.ID, domain.DeptEEE)

	return student, faculty
}

func TestReconciler_Audit(t *testing.T) {
	f := newFixture()
	student, faculty := seedInconsistent(f)
	r := newTestReconciler(f, lock.NewMemoryLocker(), nil)

	found, err := r.Audit(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, student.ID, found[0].UserID)
	assert.Equal(t, domain.RoleStudent, found[0].Role)
	assert.Equal(t, faculty.ID, found[1].UserID)
	assert.Equal(t, domain.RoleFaculty, found[1].Role)
}

func TestReconciler_RunOnceRepairsWithDefaults(t *testing.T) {
	f := newFixture()
	student, faculty := seedInconsistent(f)
	m := metrics.NewMetrics()
	r := newTestReconciler(f, lock.NewMemoryLocker(), m)

	result := r.RunOnce(context.Background())
	assert.False(t, result.Skipped)
	assert.False(t, result.DryRun)
	assert.Equal(t, 2, result.Found)
	assert.Equal(t, 2, result.Repaired)
	assert.Zero(t, result.Errors)

	require.Contains(t, f.store.students, student.ID)
	assert.Equal(t, domain.RegistrationNumber(student.ID), f.store.students[student.ID].RegistrationNumber)
	assert.Equal(t, "2026", f.store.students[student.ID].Batch)

	// Approval alone qualifies; the inactive faculty is repaired too.
	require.Contains(t, f.store.faculty, faculty.ID)
	assert.Equal(t, domain.DeptCSE, f.store.faculty[faculty.ID].Department)

	assert.Equal(t, []events.ActivityType{events.ActivityProfileRepaired, events.ActivityProfileRepaired}, f.events.Types())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ReconcileRunsTotal))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ReconcileRepairedTotal))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.ReconcileInconsistencies))

	again := r.RunOnce(context.Background())
	assert.Zero(t, again.Found)
	assert.Zero(t, again.Repaired)
}

func TestReconciler_RunDryWritesNothing(t *testing.T) {
	f := newFixture()
	seedInconsistent(f)
	m := metrics.NewMetrics()
	r := newTestReconciler(f, lock.NewMemoryLocker(), m)

	result := r.RunDry(context.Background())
	assert.True(t, result.DryRun)
	assert.Equal(t, 2, result.Found)
	assert.Equal(t, 2, result.Repaired)
	require.Len(t, result.Inconsistencies, 2)

	assert.Empty(t, f.store.students)
	assert.Len(t, f.store.faculty, 1)
	assert.Empty(t, f.events.Types())
	assert.Equal(t, float64(0), testutil.ToFloat64(m.ReconcileRunsTotal))
}

func TestReconciler_SkipsWhenLockHeld(t *testing.T) {
	f := newFixture()
	seedInconsistent(f)
	locker := lock.NewMemoryLocker()
	ctx := context.Background()

	acquired, err := locker.Acquire(ctx, lock.Keys.ProfileReconcile(), time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	r := newTestReconciler(f, locker, nil)
	result := r.RunOnce(ctx)
	assert.True(t, result.Skipped)
	assert.Zero(t, result.Found)
	assert.Empty(t, f.store.students)

	_, err = locker.Release(ctx, lock.Keys.ProfileReconcile())
	require.NoError(t, err)

	result = r.RunOnce(ctx)
	assert.False(t, result.Skipped)
	assert.Equal(t, 2, result.Repaired)

	acquired, err = locker.Acquire(ctx, lock.Keys.ProfileReconcile(), time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired, "a finished run releases its lock")
}

func TestReconciler_WaitsForHeldLock(t *testing.T) {
	f := newFixture()
	seedInconsistent(f)
	locker := lock.NewMemoryLocker()
	ctx := context.Background()

	acquired, err := locker.Acquire(ctx, lock.Keys.ProfileReconcile(), 30*time.Millisecond)
	require.NoError(t, err)
	require.True(t, acquired)

	config := DefaultReconcileConfig()
	config.LockRetries = 20
	config.LockRetryDelay = 10 * time.Millisecond
	r := NewReconciler(f.repos, f.provisioner, locker, nil, zerolog.Nop(), config)

	result := r.RunOnce(ctx)
	assert.False(t, result.Skipped, "the run retries until the holder's lock expires")
	assert.Equal(t, 2, result.Repaired)
}

func TestReconciler_FailingRowsDoNotStarveLaterOnes(t *testing.T) {
	f := newFixture()
	student, faculty := seedInconsistent(f)
	f.store.provisionErr[student.ID] = errors.New("disk full")

	config := DefaultReconcileConfig()
	config.BatchSize = 1
	r := NewReconciler(f.repos, f.provisioner, lock.NewMemoryLocker(), nil, zerolog.Nop(), config)
	ctx := context.Background()

	result := r.RunOnce(ctx)
	require.Len(t, result.Inconsistencies, 1)
	assert.Equal(t, student.ID, result.Inconsistencies[0].UserID)
	assert.Equal(t, 1, result.Errors)

	result = r.RunOnce(ctx)
	require.Len(t, result.Inconsistencies, 1)
	assert.Equal(t, faculty.ID, result.Inconsistencies[0].UserID)
	assert.Equal(t, 1, result.Repaired)
	assert.Contains(t, f.store.faculty, faculty.ID)

	// Once past the end, the next run starts over and retries the failure.
	delete(f.store.provisionErr, student.ID)
	result = r.RunOnce(ctx)
	require.Len(t, result.Inconsistencies, 1)
	assert.Equal(t, student.ID, result.Inconsistencies[0].UserID)
	assert.Equal(t, 1, result.Repaired)
}

func TestReconciler_BatchSize(t *testing.T) {
	f := newFixture()
	seedInconsistent(f)

	config := DefaultReconcileConfig()
	config.BatchSize = 1
	r := NewReconciler(f.repos, f.provisioner, lock.NewMemoryLocker(), nil, zerolog.Nop(), config)

	result := r.RunOnce(context.Background())
	assert.Equal(t, 1, result.Found)
	assert.Equal(t, 1, result.Repaired)

	result = r.RunOnce(context.Background())
	assert.Equal(t, 1, result.Found)
	assert.Equal(t, 1, result.Repaired)
}

func TestReconciler_StartStop(t *testing.T) {
	f := newFixture()
	student, _ := seedInconsistent(f)

	config := DefaultReconcileConfig()
	config.Interval = time.Hour
	r := NewReconciler(f.repos, f.provisioner, lock.NewMemoryLocker(), nil, zerolog.Nop(), config)

	r.Start()
	r.Start()
	r.Stop()
	r.Stop()

	// The loop runs one pass before waiting on the ticker.
	assert.Contains(t, f.store.students, student.ID)
}
