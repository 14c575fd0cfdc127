// Package trigger is the boundary that starts sync runs: on demand through
// Runner and on a timer through Scheduler.
package trigger

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/masvision/shelfsync/internal/errors"
	"github.com/masvision/shelfsync/internal/logger"
	"github.com/masvision/shelfsync/internal/observability/metrics"
	"github.com/masvision/shelfsync/internal/pipeline"
)

// Run sources, used in logs and metrics.
const (
	SourceHTTP = "http"
	SourceCron = "cron"
	SourceCLI  = "cli"
	// SourceStartup is the run the service makes once when it boots.
	SourceStartup = "startup"
)

// ErrRunInProgress is returned when a run is requested while another is active.
var ErrRunInProgress = errors.Newf("a sync run is already in progress").
	Component("trigger").
	Category(errors.CategoryState).
	Build()

// ErrUnknownScope is wrapped by the error for a scope id that is not configured.
var ErrUnknownScope = errors.NewStd("unknown scope")

// Orchestrator executes the cycles of a set of scopes.
type Orchestrator interface {
	Run(ctx context.Context, scopes []pipeline.Scope) ([]pipeline.CycleResult, error)
}

// RunSummary describes the most recent completed run.
type RunSummary struct {
	ID         string
	Source     string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []pipeline.CycleResult
	Err        error
}

// Runner serializes runs over the configured scopes. At most one run is
// active; concurrent requests fail fast with ErrRunInProgress.
type Runner struct {
	orch    Orchestrator
	scopes  []pipeline.Scope
	log     logger.Logger
	metrics *metrics.SyncMetrics

	running sync.Mutex

	mu   sync.RWMutex
	last *RunSummary
}

// NewRunner returns a Runner over scopes. m may be nil.
func NewRunner(orch Orchestrator, scopes []pipeline.Scope, log logger.Logger, m *metrics.SyncMetrics) *Runner {
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}
	return &Runner{
		orch:    orch,
		scopes:  slices.Clone(scopes),
		log:     log,
		metrics: m,
	}
}

// ScopeIDs returns the configured scope ids in configuration order.
func (r *Runner) ScopeIDs() []string {
	ids := make([]string, 0, len(r.scopes))
	for i := range r.scopes {
		ids = append(ids, r.scopes[i].ID)
	}
	return ids
}

// Run syncs the scopes named by scopeIDs, or every scope when none are named.
func (r *Runner) Run(ctx context.Context, scopeIDs []string) ([]pipeline.CycleResult, error) {
	return r.RunFrom(ctx, SourceCLI, scopeIDs)
}

// RunFrom is Run with the requesting source recorded.
func (r *Runner) RunFrom(ctx context.Context, source string, scopeIDs []string) ([]pipeline.CycleResult, error) {
	scopes, err := r.selectScopes(scopeIDs)
	if err != nil {
		return nil, err
	}

	if !r.running.TryLock() {
		r.metrics.RecordTriggerRejected(source)
		r.log.Warn("sync run rejected, another run is in progress", logger.String("source", source))
		return nil, ErrRunInProgress
	}
	defer r.running.Unlock()

	summary := &RunSummary{
		ID:        uuid.NewString(),
		Source:    source,
		StartedAt: time.Now(),
	}
	ctx = logger.WithTraceID(ctx, summary.ID)
	log := r.log.WithContext(ctx)

	log.Info("sync run started",
		logger.String("source", source),
		logger.Strings("scopes", scopeIDsOf(scopes)))

	summary.Results, summary.Err = r.orch.Run(ctx, scopes)
	summary.FinishedAt = time.Now()

	if summary.Err != nil {
		log.Error("sync run finished with errors",
			logger.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)),
			logger.Error(summary.Err))
	} else {
		log.Info("sync run finished",
			logger.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)))
	}

	r.mu.Lock()
	r.last = summary
	r.mu.Unlock()

	return summary.Results, summary.Err
}

// Running reports whether a run is active.
func (r *Runner) Running() bool {
	if r.running.TryLock() {
		r.running.Unlock()
		return false
	}
	return true
}

// LastRun returns the most recent completed run, or nil.
func (r *Runner) LastRun() *RunSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

func (r *Runner) selectScopes(ids []string) ([]pipeline.Scope, error) {
	if len(ids) == 0 {
		return r.scopes, nil
	}

	selected := make([]pipeline.Scope, 0, len(ids))
	var unknown []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		idx := slices.IndexFunc(r.scopes, func(s pipeline.Scope) bool { return s.ID == id })
		if idx < 0 {
			unknown = append(unknown, id)
			continue
		}
		if slices.ContainsFunc(selected, func(s pipeline.Scope) bool { return s.ID == id }) {
			continue
		}
		selected = append(selected, r.scopes[idx])
	}
	if len(unknown) > 0 {
		return nil, errors.Newf("%w(s): %s", ErrUnknownScope, strings.Join(unknown, ", ")).
			Component("trigger").
			Category(errors.CategoryValidation).
			Build()
	}
	return selected, nil
}

func scopeIDsOf(scopes []pipeline.Scope) []string {
	ids := make([]string, len(scopes))
	for i := range scopes {
		ids[i] = scopes[i].ID
	}
	return ids
}
