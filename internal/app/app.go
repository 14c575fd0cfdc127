// Package app wires configuration into the sync service: metrics,
// notifications, the pipeline, the trigger boundary and the HTTP server.
package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/masvision/shelfsync/internal/buildinfo"
	"github.com/masvision/shelfsync/internal/conf"
	"github.com/masvision/shelfsync/internal/datastore"
	"github.com/masvision/shelfsync/internal/errors"
	"github.com/masvision/shelfsync/internal/httpcontroller"
	"github.com/masvision/shelfsync/internal/logger"
	"github.com/masvision/shelfsync/internal/notification"
	"github.com/masvision/shelfsync/internal/observability"
	"github.com/masvision/shelfsync/internal/pipeline"
	"github.com/masvision/shelfsync/internal/remote"
	"github.com/masvision/shelfsync/internal/trigger"
)

const shutdownTimeout = 30 * time.Second

// SkipSetup is a cobra annotation key for commands that run without
// loading the configuration.
const SkipSetup = "shelfsync/skip-setup"

// Context is shared by the CLI commands. Settings and Log are filled in
// once the configuration is loaded.
type Context struct {
	Build    *buildinfo.Context
	Settings *conf.Settings
	Log      *logger.CentralLogger
}

// Logger returns a module logger, discarding output before logging is set up.
func (c *Context) Logger(module string) logger.Logger {
	if c == nil || c.Log == nil {
		return logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}
	return c.Log.Module(module)
}

// Service is the assembled sync service.
type Service struct {
	Metrics      *observability.Metrics
	Notifier     *notification.Service
	Orchestrator *pipeline.Orchestrator
	Runner       *trigger.Runner
	Scheduler    *trigger.Scheduler
	HTTP         *httpcontroller.Server

	// InitialSync runs every scope once when Serve starts.
	InitialSync bool

	settings *conf.Settings
	log      logger.Logger
}

// NewService builds every component from ctx.Settings.
func NewService(ctx *Context) (*Service, error) {
	settings := ctx.Settings
	log := ctx.Logger("app")

	m, err := observability.NewMetrics()
	if err != nil {
		return nil, err
	}

	notifier, err := notification.NewService(NotificationConfig(settings), ctx.Logger("notification"))
	if err != nil {
		return nil, err
	}

	dial, err := remote.NewDialer(RemoteConfig(settings), ctx.Logger("remote"))
	if err != nil {
		return nil, err
	}

	orch := pipeline.New(dial, StoreOptions(settings), ctx.Logger("pipeline"),
		pipeline.WithMetrics(m.Sync),
		pipeline.WithNotifier(notifier),
		pipeline.WithConcurrency(settings.Sync.Concurrency),
		pipeline.WithSkipRows(settings.Sync.SkipRows))

	runner := trigger.NewRunner(orch, Scopes(settings), ctx.Logger("trigger"), m.Sync)

	scheduler, err := trigger.NewScheduler(runner, settings.Sync.Schedule, settings.Sync.Timezone, ctx.Logger("scheduler"))
	if err != nil {
		return nil, err
	}

	svc := &Service{
		Metrics:      m,
		Notifier:     notifier,
		Orchestrator: orch,
		Runner:       runner,
		Scheduler:    scheduler,
		settings:     settings,
		log:          log,
	}
	if settings.WebServer.Enabled {
		svc.HTTP = httpcontroller.New(HTTPConfig(settings), runner, m.Handler(), ctx.Logger("httpcontroller"))
	}
	return svc, nil
}

// Serve runs the scheduler and the HTTP server until ctx ends, then shuts
// both down, letting an active run finish or observe cancellation.
func (s *Service) Serve(ctx context.Context) error {
	if err := s.Scheduler.Start(ctx); err != nil {
		return err
	}
	defer s.Scheduler.Stop()

	g, gctx := errgroup.WithContext(ctx)
	if s.HTTP != nil {
		g.Go(s.HTTP.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			return s.HTTP.Shutdown(shutdownCtx)
		})
	} else {
		g.Go(func() error {
			<-gctx.Done()
			return nil
		})
	}

	if s.InitialSync {
		g.Go(func() error {
			s.initialSync(gctx)
			return nil
		})
	}

	s.log.Info("shelfsync service started",
		logger.Strings("scopes", s.Runner.ScopeIDs()),
		logger.Bool("http", s.HTTP != nil))

	err := g.Wait()
	s.log.Info("shelfsync service stopped")
	return err
}

func (s *Service) initialSync(ctx context.Context) {
	// Failed cycles are logged and reported by the runner itself.
	if _, err := s.Runner.RunFrom(ctx, trigger.SourceStartup, nil); errors.Is(err, trigger.ErrRunInProgress) {
		s.log.Info("initial sync skipped, a run is already in progress")
	}
}

// Scopes converts scope settings into pipeline scopes.
func Scopes(settings *conf.Settings) []pipeline.Scope {
	scopes := make([]pipeline.Scope, 0, len(settings.Scopes))
	for i := range settings.Scopes {
		sc := &settings.Scopes[i]
		scopes = append(scopes, pipeline.Scope{
			ID:    sc.ID,
			Fetch: sc.FetchEnabled(),
			Planograms: pipeline.PlanogramSource{
				RemoteDir: sc.Planograms.Remote,
				LocalDir:  sc.Planograms.Local,
			},
			Barcodes: pipeline.BarcodeSource{
				RemoteDir:  sc.Barcodes.Remote,
				RemoteFile: sc.Barcodes.File,
				Latest:     sc.LatestBarcode(),
				LocalFile:  sc.Barcodes.Local,
			},
			Descriptions: pipeline.DescriptionSource{
				Enabled:    sc.Descriptions.Enabled,
				RemotePath: sc.Descriptions.Remote,
				LocalPath:  sc.Descriptions.Local,
				Encoding:   sc.Descriptions.Encoding,
			},
			StagingDir: sc.StagingDir,
			DBPath:     sc.DBPath,
		})
	}
	return scopes
}

// RemoteConfig converts the remote settings.
func RemoteConfig(settings *conf.Settings) remote.Config {
	r := settings.Remote
	return remote.Config{
		Protocol:    r.Protocol,
		Host:        r.Host,
		Port:        r.Port,
		Username:    r.Username,
		Password:    r.Password,
		KeyFile:     r.KeyFile,
		KnownHosts:  r.KnownHosts,
		Timeout:     r.Timeout,
		ExplicitTLS: r.FTP.ExplicitTLS,
		DisableEPSV: r.FTP.DisableEPSV,
		LocalRoot:   r.LocalRoot,
	}
}

// StoreOptions converts the database settings.
func StoreOptions(settings *conf.Settings) datastore.Options {
	d := settings.Database
	return datastore.Options{
		Driver:        d.Driver,
		BatchSize:     d.BatchSize,
		BusyTimeout:   d.BusyTimeout,
		SlowThreshold: d.SlowThreshold,
	}
}

// HTTPConfig converts the web server settings.
func HTTPConfig(settings *conf.Settings) httpcontroller.Config {
	w := settings.WebServer
	return httpcontroller.Config{
		Host:        w.Host,
		Port:        w.Port,
		UpdateRate:  w.UpdateRate,
		UpdateBurst: w.UpdateBurst,
	}
}

// NotificationConfig converts the notification settings.
func NotificationConfig(settings *conf.Settings) notification.Config {
	n := settings.Notification
	return notification.Config{
		Enabled:     n.Enabled,
		URLs:        n.URLs,
		Types:       n.Types,
		Timeout:     n.Timeout,
		DedupWindow: n.DedupWindow,
	}
}
