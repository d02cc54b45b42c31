package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsWithoutEnvFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "INR", cfg.Currency)
	assert.False(t, cfg.UsesDatabase())
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestEnvFileDoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_ADDR=:9999\nCURRENCY=usd\nSHUTDOWN_TIMEOUT=3s\n"), 0o600))
	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("CURRENCY", "")
	t.Setenv("SHUTDOWN_TIMEOUT", "")
	// Setenv registers cleanup; unset so the file can supply the values.
	require.NoError(t, os.Unsetenv("CURRENCY"))
	require.NoError(t, os.Unsetenv("SHUTDOWN_TIMEOUT"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTPAddr)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestInvalidNumbersAreReported(t *testing.T) {
	t.Setenv("SMTP_PORT", "abc")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "SMTP_PORT")
}

func TestRazorpayEnabled(t *testing.T) {
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test")
	t.Setenv("RAZORPAY_KEY_SECRET", "sec")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.True(t, cfg.RazorpayEnabled())
}
