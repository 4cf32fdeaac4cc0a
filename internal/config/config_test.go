package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.Timeout())
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiry())
	assert.InDelta(t, 0.10, cfg.Billing.TaxRate, 1e-9)
	assert.Equal(t, "DOC-001", cfg.Billing.DefaultDoctorID)
	assert.InDelta(t, 150.00, cfg.Billing.ConsultationFallbackPrice, 1e-9)
	assert.Equal(t, []string{"http://localhost:8080"}, cfg.CORS.AllowedOrigins)
	assert.Error(t, cfg.Validate(), "empty jwt secret must not validate")
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "orms.yaml")
	require.NoError(t, os.WriteFile(file, []byte("server:\n  port: 6000\njwt:\n  secret: from-file\n"), 0o600))

	t.Setenv("ORMS_JWT_SECRET", "from-env")
	t.Setenv("ORMS_BILLING_DEFAULT_DOCTOR_ID", "DOC-042")

	cfg, err := LoadConfig(file)
	require.NoError(t, err)

	assert.Equal(t, 6000, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "DOC-042", cfg.Billing.DefaultDoctorID)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
