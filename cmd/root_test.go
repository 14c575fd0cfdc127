package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masvision/shelfsync/internal/app"
	"github.com/masvision/shelfsync/internal/buildinfo"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	appCtx := &app.Context{Build: buildinfo.NewContext("v1.2.3", "2026-10-01")}
	t.Cleanup(func() { _ = appCtx.Log.Close() })

	root := RootCommand(appCtx)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`
logging:
  console:
    enabled: false
remote:
  protocol: sftp
  host: drop.example.com
  username: sync
  password: hunter2
sync:
  workdir: %q
database:
  driver: sqlite
scopes:
  - id: "189"
    dbpath: %q
`, filepath.Join(dir, "data"), filepath.Join(dir, "out", "189.sqlite"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestVersionSkipsSetup(t *testing.T) {
	out, err := execute(t, "version", "--config", "/nonexistent/config.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "shelfsync v1.2.3")
	assert.Contains(t, out, "2026-10-01")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	out, err := execute(t, "config", "init", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	_, err = execute(t, "config", "init", "--path", path)
	require.Error(t, err)

	_, err = execute(t, "config", "init", "--path", path, "--force")
	require.NoError(t, err)
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	out, err := execute(t, "config", "show", "--config", writeConfig(t))
	require.NoError(t, err)
	assert.Contains(t, out, "drop.example.com")
	assert.NotContains(t, out, "hunter2")
}

func TestStatusBeforeFirstSync(t *testing.T) {
	out, err := execute(t, "status", "--config", writeConfig(t))
	require.NoError(t, err)
	assert.Contains(t, out, "189")
	assert.Contains(t, out, "never")
	assert.Contains(t, out, "next scheduled sync")
}

func TestStatusUnknownScope(t *testing.T) {
	_, err := execute(t, "status", "999", "--config", writeConfig(t))
	require.Error(t, err)
}

func TestDebugFlag(t *testing.T) {
	appCtx := &app.Context{}
	root := RootCommand(appCtx)
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"config", "show", "--debug", "--config", writeConfig(t)})
	require.NoError(t, root.Execute())
	t.Cleanup(func() { _ = appCtx.Log.Close() })

	require.NotNil(t, appCtx.Settings)
	assert.True(t, appCtx.Settings.Debug)
	assert.Equal(t, "debug", appCtx.Settings.Logging.DefaultLevel)
}
