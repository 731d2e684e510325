package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/academia/internal/cache/memory"
	"github.com/prn-tf/academia/internal/domain"
	"github.com/prn-tf/academia/internal/events"
	"github.com/prn-tf/academia/internal/metrics"
	"github.com/prn-tf/academia/internal/repository"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestSessionService(t *testing.T) (*SessionService, *fakeClock, *memory.Cache, *metrics.Metrics, *events.RecordingPublisher) {
	t.Helper()
	cache := memory.NewCache()
	t.Cleanup(cache.Stop)

	clock := &fakeClock{now: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)}
	m := metrics.NewMetrics()
	publisher := events.NewRecordingPublisher()

	svc := NewSessionService(cache, DefaultSessionConfig(), m, publisher, zerolog.Nop())
	svc.now = clock.Now
	return svc, clock, cache, m, publisher
}

func TestSessionService_IdleTimeout(t *testing.T) {
	tests := []struct {
		name        string
		idle        time.Duration
		wantExpired bool
	}{
		{"just under threshold", 1799 * time.Second, false},
		{"exactly threshold", 1800 * time.Second, false},
		{"just over threshold", 1801 * time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, clock, cache, m, publisher := newTestSessionService(t)
			ctx := context.Background()

			token, _, err := svc.Create(ctx, &domain.User{ID: 5, Username: "alice"}, "127.0.0.1", "test")
			require.NoError(t, err)

			clock.Advance(tt.idle)
			session, err := svc.Resume(ctx, token)

			if tt.wantExpired {
				assert.ErrorIs(t, err, domain.ErrSessionExpired)
				assert.Nil(t, session)
				assert.Equal(t, 0, cache.Len())
				assert.Equal(t, float64(1), testutil.ToFloat64(m.SessionsExpiredTotal))
				assert.Equal(t, []events.ActivityType{events.ActivitySessionExpired}, publisher.Types())

				_, err = svc.Resume(ctx, token)
				assert.ErrorIs(t, err, domain.ErrSessionNotFound)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, int64(5), session.UserID)
			assert.Equal(t, clock.now, session.LastActivity)
		})
	}
}

func TestSessionService_ResumeRefreshesActivity(t *testing.T) {
	svc, clock, _, _, _ := newTestSessionService(t)
	ctx := context.Background()

	token, _, err := svc.Create(ctx, &domain.User{ID: 1, Username: "alice"}, "", "")
	require.NoError(t, err)

	// Three requests 20 minutes apart keep the session alive.
	for i := 0; i < 3; i++ {
		clock.Advance(20 * time.Minute)
		_, err := svc.Resume(ctx, token)
		require.NoError(t, err)
	}

	clock.Advance(31 * time.Minute)
	_, err = svc.Resume(ctx, token)
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestSessionService_ResumeUnknownToken(t *testing.T) {
	svc, _, _, _, _ := newTestSessionService(t)
	ctx := context.Background()

	_, err := svc.Resume(ctx, "not-a-token")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = svc.Resume(ctx, "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionService_StoresDigestNotToken(t *testing.T) {
	svc, _, cache, _, _ := newTestSessionService(t)
	ctx := context.Background()

	token, _, err := svc.Create(ctx, &domain.User{ID: 1, Username: "alice"}, "", "")
	require.NoError(t, err)

	keys, err := cache.Keys(ctx, repository.SessionKeyPrefix)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.NotContains(t, keys[0], token)
}

func TestSessionService_Destroy(t *testing.T) {
	svc, _, _, _, _ := newTestSessionService(t)
	ctx := context.Background()

	token, _, err := svc.Create(ctx, &domain.User{ID: 1, Username: "alice"}, "", "")
	require.NoError(t, err)
	require.NoError(t, svc.Destroy(ctx, token))

	_, err = svc.Resume(ctx, token)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionService_ClearAllAndPurge(t *testing.T) {
	svc, clock, cache, m, _ := newTestSessionService(t)
	ctx := context.Background()

	_, _, err := svc.Create(ctx, &domain.User{ID: 1, Username: "old"}, "", "")
	require.NoError(t, err)
	clock.Advance(45 * time.Minute)
	fresh, _, err := svc.Create(ctx, &domain.User{ID: 2, Username: "fresh"}, "", "")
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, "unrelated", []byte("x"), 0))

	purged, err := svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SessionsActive))

	_, err = svc.Resume(ctx, fresh)
	require.NoError(t, err)

	cleared, err := svc.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	_, err = svc.Resume(ctx, fresh)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = cache.Get(ctx, "unrelated")
	assert.NoError(t, err, "keys outside the session prefix survive")
}
