package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8500, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.Registration.LockTimeout)
	assert.True(t, cfg.Registration.EnforceWindow)
	assert.Equal(t, "course_registration", cfg.Database.Name)
}

func TestLoadOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "9000")
	t.Setenv("API_PREFIX", "/api/v1/")
	t.Setenv("REGISTRATION_LOCK_TIMEOUT", "250ms")
	t.Setenv("REGISTRATION_ENFORCE_WINDOW", "false")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("JWT_EXPIRATION", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 250*time.Millisecond, cfg.Registration.LockTimeout)
	assert.False(t, cfg.Registration.EnforceWindow)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 30*time.Minute, cfg.JWT.Expiration)
}

// chdir changes the working directory for the duration of the test (stand-in for
// testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
