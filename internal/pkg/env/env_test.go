package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupEnvFile_KeepsExistingVariables(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("PADDLESYNC_ENV_PRESET=from-file\nPADDLESYNC_ENV_FILE_ONLY=from-file\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("PADDLESYNC_ENV_PRESET", "from-process")
	t.Cleanup(func() { _ = os.Unsetenv("PADDLESYNC_ENV_FILE_ONLY") })

	assert.Equal(t, ".env", SetupEnvFile())
	assert.Equal(t, "from-process", os.Getenv("PADDLESYNC_ENV_PRESET"))
	assert.Equal(t, "from-file", os.Getenv("PADDLESYNC_ENV_FILE_ONLY"))
}

func TestSetupEnvFile_NoFile(t *testing.T) {
	t.Chdir(t.TempDir())
	assert.Equal(t, "", SetupEnvFile())
}
