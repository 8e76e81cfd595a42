package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadEnv_LoadsExistingFiles(t *testing.T) {
	tmp := t.TempDir()
	envFile := filepath.Join(tmp, ".env.local")
	require.NoError(t, os.WriteFile(envFile, []byte("MOC_TRACKER_TEST_ENV_LOAD=ok\n"), 0o644))

	origWd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	require.NoError(t, os.Chdir(tmp))

	_ = os.Unsetenv("MOC_TRACKER_TEST_ENV_LOAD")

	n, err := LoadEnv([]string{".env", ".env.local"})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "ok", os.Getenv("MOC_TRACKER_TEST_ENV_LOAD"))
}

func TestLoadEnv_NoFiles(t *testing.T) {
	tmp := t.TempDir()

	origWd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	require.NoError(t, os.Chdir(tmp))

	n, err := LoadEnv([]string{".env", ".env.local"})
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestDatabaseOptions_ConnectionString(t *testing.T) {
	t.Parallel()
	opts := DatabaseOptions{
		Name:     "moc",
		Host:     "db",
		Port:     "5433",
		User:     "moc",
		Password: "secret",
	}
	require.Equal(t,
		"host=db port=5433 user=moc dbname=moc password=secret sslmode=disable",
		opts.ConnectionString(),
	)
}
