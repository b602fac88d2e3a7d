package env

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvPrefersLoadedMap(t *testing.T) {
	t.Setenv("MP_CURRENCY", "ARS")
	Env = map[string]string{"MP_CURRENCY": "BRL"}
	defer func() { Env = nil }()

	assert.Equal(t, "BRL", GetEnv("MP_CURRENCY", "USD"))
}

func TestGetEnvFallsBackToProcessEnv(t *testing.T) {
	Env = nil
	t.Setenv("FRONTEND_URL", "https://classificados.example")

	assert.Equal(t, "https://classificados.example", GetEnv("FRONTEND_URL", ""))
	assert.Equal(t, "fallback", GetEnv("DOES_NOT_EXIST_FOR_TEST", "fallback"))
}

func TestGetEnvIntAndDuration(t *testing.T) {
	Env = map[string]string{
		"WORKERS":     "4",
		"BAD_WORKERS": "four",
		"TIMEOUT":     "20s",
		"BAD_TIMEOUT": "soon",
	}
	defer func() { Env = nil }()

	assert.Equal(t, 4, GetEnvInt("WORKERS", 2))
	assert.Equal(t, 2, GetEnvInt("BAD_WORKERS", 2))
	assert.Equal(t, 2, GetEnvInt("MISSING_WORKERS", 2))
	assert.Equal(t, 20*time.Second, GetEnvDuration("TIMEOUT", time.Second))
	assert.Equal(t, time.Second, GetEnvDuration("BAD_TIMEOUT", time.Second))
}

func TestSetupEnvFileReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("APP_ENV=dev\n"), 0600))

	wd, err := os.Getwd()
	assert.NoError(t, err)
	assert.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(wd) }()

	SetupEnvFile()
	defer func() { Env = nil }()
	assert.True(t, IsDev())
}
