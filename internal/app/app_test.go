package app

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masvision/shelfsync/internal/conf"
	"github.com/masvision/shelfsync/internal/logger"
	"github.com/masvision/shelfsync/internal/trigger"
)

func loadSettings(t *testing.T, webserver bool) *conf.Settings {
	t.Helper()

	root := t.TempDir()
	yaml := fmt.Sprintf(`
remote:
  protocol: local
  localroot: %q
sync:
  workdir: %q
database:
  driver: sqlite
webserver:
  enabled: %t
  host: 127.0.0.1
  port: %d
scopes:
  - id: "189"
    dbpath: %q
    barcodes:
      file: mas_new.csv
      latest: false
`, filepath.Join(root, "drop"), filepath.Join(root, "data"), webserver, freePort(t), filepath.Join(root, "out", "189.sqlite"))

	settings, err := conf.LoadFromBytes([]byte(yaml))
	require.NoError(t, err)
	return settings
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func newContext(t *testing.T, webserver bool) *Context {
	t.Helper()
	return &Context{Settings: loadSettings(t, webserver)}
}

func TestScopesMapping(t *testing.T) {
	t.Parallel()

	settings := loadSettings(t, false)
	scopes := Scopes(settings)
	require.Len(t, scopes, 1)

	sc := scopes[0]
	assert.Equal(t, "189", sc.ID)
	assert.True(t, sc.Fetch)
	assert.False(t, sc.Barcodes.Latest)
	assert.Equal(t, "mas_new.csv", sc.Barcodes.RemoteFile)
	assert.Equal(t, "189/plano/evision ΠΛΑΝΟ", sc.Planograms.RemoteDir)
	assert.Equal(t, settings.Scopes[0].DBPath, sc.DBPath)
	assert.NotEmpty(t, sc.StagingDir)
	require.NoError(t, sc.Validate())
}

func TestSettingsMappers(t *testing.T) {
	t.Parallel()

	settings := loadSettings(t, true)

	rc := RemoteConfig(settings)
	assert.Equal(t, "local", rc.Protocol)
	assert.Equal(t, settings.Remote.LocalRoot, rc.LocalRoot)

	so := StoreOptions(settings)
	assert.Equal(t, "sqlite", so.Driver)
	assert.Equal(t, settings.Database.BatchSize, so.BatchSize)

	hc := HTTPConfig(settings)
	assert.Equal(t, "127.0.0.1", hc.Host)

	nc := NotificationConfig(settings)
	assert.False(t, nc.Enabled)
	assert.Equal(t, settings.Notification.DedupWindow, nc.DedupWindow)
}

func TestNewServiceWithoutWebServer(t *testing.T) {
	t.Parallel()

	svc, err := NewService(newContext(t, false))
	require.NoError(t, err)
	assert.Nil(t, svc.HTTP)
	assert.Equal(t, []string{"189"}, svc.Runner.ScopeIDs())
	assert.NotNil(t, svc.Metrics.Handler())
}

func TestServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	svc, err := NewService(newContext(t, true))
	require.NoError(t, err)
	require.NotNil(t, svc.HTTP)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestContextLoggerBeforeSetup(t *testing.T) {
	t.Parallel()

	var c *Context
	log := c.Logger("cmd")
	require.NotNil(t, log)
	log.Info("discarded", logger.String("k", "v"))
}

func TestServeInitialSync(t *testing.T) {
	t.Parallel()

	svc, err := NewService(newContext(t, false))
	require.NoError(t, err)
	svc.InitialSync = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	require.Eventually(t, func() bool { return svc.Runner.LastRun() != nil }, 10*time.Second, 20*time.Millisecond)

	last := svc.Runner.LastRun()
	assert.Equal(t, trigger.SourceStartup, last.Source)
	// The drop directory was never created, so the fetch fails.
	require.Error(t, last.Err)
	require.Len(t, last.Results, 1)
	assert.False(t, last.Results[0].OK())

	cancel()
	require.NoError(t, <-done)
}
