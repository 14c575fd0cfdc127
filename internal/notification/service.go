package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/masvision/shelfsync/internal/errors"
	"github.com/masvision/shelfsync/internal/logger"
)

// DefaultDedupWindow suppresses repeats of an identical alert. With the
// default two-hour schedule a scope that keeps failing alerts about twice a day.
const DefaultDedupWindow = 6 * time.Hour

// Config selects the push targets.
type Config struct {
	Enabled     bool
	URLs        []string
	Types       []string
	Timeout     time.Duration
	DedupWindow time.Duration
}

// Service fans notifications out to the enabled providers.
type Service struct {
	providers []Provider
	recent    *cache.Cache
	log       logger.Logger
}

// NewService builds the shoutrrr provider from cfg and validates it.
// A disabled config yields a service with no providers.
func NewService(cfg Config, log logger.Logger) (*Service, error) {
	var providers []Provider
	if cfg.Enabled {
		p := NewShoutrrrProvider("shoutrrr", true, cfg.URLs, cfg.Types, cfg.Timeout)
		if err := p.ValidateConfig(); err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return NewServiceWithProviders(providers, cfg.DedupWindow, log), nil
}

// NewServiceWithProviders wires explicit providers.
func NewServiceWithProviders(providers []Provider, dedupWindow time.Duration, log logger.Logger) *Service {
	if dedupWindow <= 0 {
		dedupWindow = DefaultDedupWindow
	}
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}
	return &Service{
		providers: providers,
		recent:    cache.New(dedupWindow, 2*dedupWindow),
		log:       log,
	}
}

// Notify delivers n to every enabled provider that supports its type.
// Duplicates inside the dedup window are dropped silently.
func (s *Service) Notify(ctx context.Context, n *Notification) error {
	if s == nil || n == nil || len(s.providers) == 0 {
		return nil
	}

	if err := s.recent.Add(n.dedupKey(), n.ID, cache.DefaultExpiration); err != nil {
		s.log.Debug("duplicate notification suppressed",
			logger.String("scope", n.Scope),
			logger.String("type", string(n.Type)))
		return nil
	}

	var errs []error
	for _, p := range s.providers {
		if !p.IsEnabled() || !p.SupportsType(n.Type) {
			continue
		}
		if err := p.Send(ctx, n); err != nil {
			s.log.Warn("notification delivery failed",
				logger.String("provider", p.GetName()),
				logger.String("scope", n.Scope),
				logger.Error(err))
			errs = append(errs, err)
			continue
		}
		s.log.Debug("notification sent",
			logger.String("provider", p.GetName()),
			logger.String("id", n.ID))
	}
	return errors.Join(errs...)
}

// CycleFailed alerts that a scope's cycle ended in error.
func (s *Service) CycleFailed(ctx context.Context, scope string, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = logger.RedactSensitiveData(cause.Error())
	}
	return s.Notify(ctx, NewNotification(TypeError, scope,
		fmt.Sprintf("shelfsync: store %s sync failed", scope), msg))
}

// FilesSkipped warns that a cycle succeeded without some unreadable files.
func (s *Service) FilesSkipped(ctx context.Context, scope, kind string, skipped []string) error {
	if len(skipped) == 0 {
		return nil
	}
	return s.Notify(ctx, NewNotification(TypeWarning, scope,
		fmt.Sprintf("shelfsync: store %s skipped %d %s file(s)", scope, len(skipped), kind),
		fmt.Sprintf("%v", skipped)))
}

// CycleRecovered reports the first successful cycle after a failure.
func (s *Service) CycleRecovered(ctx context.Context, scope string) error {
	return s.Notify(ctx, NewNotification(TypeInfo, scope,
		fmt.Sprintf("shelfsync: store %s sync recovered", scope), "cycle completed successfully"))
}
