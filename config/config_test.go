package config

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farellandr/ticketgate/internal/models"
	"github.com/farellandr/ticketgate/internal/testutil"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, int64(120), cfg.ScanRateLimit)
	assert.Equal(t, time.Minute, cfg.ScanRateWindow)
	assert.Equal(t, 10, cfg.MaxTicketsPerBooking)

	reveal, err := cfg.RevealScannerTo()
	require.NoError(t, err)
	assert.Equal(t, models.ScanRoles, reveal)
}

func TestLoadConfig_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SCAN_RATE_WINDOW", "30s")
	t.Setenv("CHECKIN_REVEAL_SCANNER_ROLES", "organizer, admin")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.ScanRateWindow)

	reveal, err := cfg.RevealScannerTo()
	require.NoError(t, err)
	assert.Equal(t, models.StaffRoles, reveal)
}

func TestValidate(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	for name, env := range map[string][2]string{
		"unknown role":     {"CHECKIN_REVEAL_SCANNER_ROLES", "doorman"},
		"zero limit":       {"SCAN_RATE_LIMIT", "0"},
		"zero per booking": {"MAX_TICKETS_PER_BOOKING", "0"},
		"bad level":        {"LOG_LEVEL", "loud"},
		"bad format":       {"LOG_FORMAT", "xml"},
	} {
		t.Run(name, func(t *testing.T) {
			t.Setenv(env[0], env[1])
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestSeedAdmin(t *testing.T) {
	db := testutil.NewDB(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &Config{AdminUsername: "root", AdminEmail: "Root@Example.com", AdminPassword: "changeme"}

	require.NoError(t, seedAdmin(db, cfg, log))
	require.NoError(t, seedAdmin(db, cfg, log))

	var admins []models.User
	require.NoError(t, db.Where("role = ?", models.RoleAdmin).Find(&admins).Error)
	require.Len(t, admins, 1)
	assert.Equal(t, "root@example.com", admins[0].Email)
	assert.NotEqual(t, "changeme", admins[0].Password)
}
