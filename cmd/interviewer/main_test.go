package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dbPath string) string {
	t.Helper()

	content := fmt.Sprintf(`
logger:
  level: error
database:
  driver: sqlite
  path: %q
interview:
  state_backend: memory
`, dbPath)

	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range newRootCmd().Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "migrate")
}

func TestMigrateCmd_IsIdempotent(t *testing.T) {
	cfgPath := writeConfig(t, filepath.Join(t.TempDir(), "interview.db"))

	out, err := runRoot(t, "--config", cfgPath, "migrate")
	require.NoError(t, err)
	assert.NotContains(t, out, "applied 0 migration(s)")
	assert.Contains(t, out, "migration(s)")

	out, err = runRoot(t, "--config", cfgPath, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "applied 0 migration(s)")
}

func TestMigrateCmd_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  driver: oracle\n"), 0o600))

	_, err := runRoot(t, "--config", path, "migrate")
	assert.Error(t, err)
}
