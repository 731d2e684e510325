package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/prn-tf/academia/internal/auth"
	"github.com/prn-tf/academia/internal/config"
	"github.com/prn-tf/academia/internal/domain"
	"github.com/prn-tf/academia/internal/service"
)

func init() {
	auth.SetHashCost(bcrypt.MinCost)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			Path:   filepath.Join(t.TempDir(), "academia.db"),
		},
		Session: config.SessionConfig{
			IdleTimeout: domain.DefaultIdleTimeout,
			MaxAge:      24 * time.Hour,
			CookieName:  "sid",
		},
		Provisioning: config.ProvisioningConfig{
			Department: string(domain.DefaultDepartment),
			Batch:      domain.DefaultBatch,
			Semester:   domain.DefaultSemester,
			Section:    domain.DefaultSection,
		},
		Reconcile: config.ReconcileConfig{
			Interval:  time.Hour,
			BatchSize: 10,
			LockTTL:   time.Minute,
		},
		Events: config.EventsConfig{Driver: "gochannel", Topic: "academia.activity"},
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LoggingConfig
		level   zerolog.Level
		wantErr bool
	}{
		{name: "json info", cfg: config.LoggingConfig{Level: "info", Format: "json"}, level: zerolog.InfoLevel},
		{name: "console debug", cfg: config.LoggingConfig{Level: "DEBUG", Format: "console", Output: "stderr"}, level: zerolog.DebugLevel},
		{name: "bad level", cfg: config.LoggingConfig{Level: "loud"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.level, logger.GetLevel())
		})
	}
}

func TestOpenDatabase_UnknownDriver(t *testing.T) {
	_, err := OpenDatabase(context.Background(), config.DatabaseConfig{Driver: "oracle"}, zerolog.Nop())
	require.Error(t, err)
}

func TestNew_WiresServices(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	a, err := New(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close()) }()

	assert.False(t, a.SharedSessions)
	require.NoError(t, a.DB.Ping(ctx))

	version, err := a.DB.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Positive(t, version)

	cookie := a.CookieConfig()
	assert.Equal(t, "sid", cookie.Name)
	assert.Equal(t, 24*time.Hour, cookie.MaxAge)

	user, err := a.Users.CreateSuperuser(ctx, "root", "root@example.com", "password123")
	require.NoError(t, err)

	out, err := a.Auth.Login(ctx, service.LoginInput{Username: "root", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, out.User.ID)
	assert.Equal(t, domain.RoleAdmin.String(), out.Role)
}

func TestNew_InvalidProvisioning(t *testing.T) {
	cfg := testConfig(t)
	cfg.Provisioning.Department = "ARCH"

	_, err := New(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
}
