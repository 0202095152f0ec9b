package app

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestHashPassword(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name  string
		stdin string
		args  []string
	}{
		{"argument", "", []string{"hash-password", "s3cret"}},
		{"stdin", "s3cret\n", []string{"hash-password"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			out, err := run(t, tc.stdin, tc.args...)
			require.NoError(t, err)
			hash := strings.TrimSpace(out)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
		})
	}
}

func TestHashPassword_RejectsEmpty(t *testing.T) {
	t.Parallel()
	_, err := run(t, "\n", "hash-password")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	t.Parallel()
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "alliance-manager "+Version)
}

func TestMigrateAndCheck(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
environment: development
database:
  type: sqlite
  sqlite:
    path: `+filepath.Join(dir, "alliance.db")+`
logging:
  level: error
`), 0o600))

	_, err := run(t, "", "migrate", "--config", cfg)
	require.NoError(t, err)

	out, err := run(t, "", "check", "--config", cfg)
	require.NoError(t, err)
	// The built-in rules start inactive, so nothing is checked.
	assert.Contains(t, out, `"rulesChecked": 0`)
}

func TestUnknownConfigFile(t *testing.T) {
	t.Parallel()
	_, err := run(t, "", "migrate", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
