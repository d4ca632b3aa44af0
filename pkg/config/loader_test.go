package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile_DefaultsAndOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
database:
  driver: postgres
  host: db
  user: coach
  password: pw
  name: interviews
interview:
  lock_wait: 5s
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Interview.LockWait)
	assert.Equal(t, 24*time.Hour, cfg.Interview.SessionTTL)
	assert.Equal(t, "memory", cfg.Interview.StateBackend)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, "host=db port=5432 user=coach password=pw dbname=interviews sslmode=disable", cfg.Database.DSN())
}

func TestLoadFile_EnvOverride(t *testing.T) {
	path := writeConfig(t, "logger:\n  level: info\n")
	t.Setenv("LOGGER_LEVEL", "debug")
	t.Setenv("APP_ENV", "test")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "test", cfg.AppEnv)
}

func TestLoadFile_Validation(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "openai key required when enabled", body: "openai:\n  enabled: true\n"},
		{name: "telegram token required when enabled", body: "telegram:\n  enabled: true\n"},
		{name: "unknown driver", body: "database:\n  driver: mysql\n"},
		{name: "unknown state backend", body: "interview:\n  state_backend: etcd\n"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("OPENAI_API_KEY", "")
			t.Setenv("TELEGRAM_TOKEN", "")

			_, err := LoadFile(writeConfig(t, tc.body))
			assert.ErrorContains(t, err, "validate config")
		})
	}
}

func TestDatabaseConfig_SQLiteDSN(t *testing.T) {
	cfg := DatabaseConfig{Driver: "sqlite", Path: "/tmp/x.db"}
	assert.Equal(t, "/tmp/x.db", cfg.DSN())
}
