// Package pipeline runs sync cycles: fetch the drop, parse and enrich the
// barcode and planogram files, then replace the catalog tables of each scope.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/masvision/shelfsync/internal/catalog"
	"github.com/masvision/shelfsync/internal/datastore"
	"github.com/masvision/shelfsync/internal/errors"
	"github.com/masvision/shelfsync/internal/logger"
	"github.com/masvision/shelfsync/internal/observability/metrics"
	"github.com/masvision/shelfsync/internal/parser"
	"github.com/masvision/shelfsync/internal/remote"
)

// CatalogStore is the write side of a scope's catalog database.
type CatalogStore interface {
	ReplaceProducts(ctx context.Context, products []catalog.Product) (int, error)
	ReplacePlanograms(ctx context.Context, entries []catalog.PlanogramEntry) (int, error)
}

// StoreSet hands out one store per database path for the duration of a run.
type StoreSet interface {
	Get(path string) (CatalogStore, error)
	Close() error
}

// Notifier receives cycle outcomes worth telling an operator about.
type Notifier interface {
	CycleFailed(ctx context.Context, scope string, cause error) error
	CycleRecovered(ctx context.Context, scope string) error
	FilesSkipped(ctx context.Context, scope, kind string, files []string) error
}

// CycleResult summarizes one scope cycle.
type CycleResult struct {
	Scope      string
	State      State // StateIdle on success, StateFailed otherwise
	FailedIn   State // stage that failed; StateIdle when none did
	Err        error
	StartedAt  time.Time
	Duration   time.Duration
	Products   int
	Planograms int
	// Skipped lists input files left out because they could not be parsed.
	Skipped []string
}

// OK reports whether the cycle completed.
func (r *CycleResult) OK() bool {
	return r.Err == nil
}

// Orchestrator runs the cycles of a set of scopes.
type Orchestrator struct {
	dial        remote.Dialer
	stores      func() StoreSet
	metrics     *metrics.SyncMetrics
	notifier    Notifier
	log         logger.Logger
	concurrency int
	skipRows    int

	mu     sync.Mutex
	failed map[string]bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMetrics records cycle metrics on m.
func WithMetrics(m *metrics.SyncMetrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithNotifier sends failure and recovery notices through n.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithConcurrency bounds how many scopes run at once. Values below 1 mean GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) { o.concurrency = n }
}

// WithSkipRows sets the metadata rows skipped at the top of planogram sheets.
func WithSkipRows(n int) Option {
	return func(o *Orchestrator) { o.skipRows = n }
}

// WithStoreSet replaces the per-run store factory.
func WithStoreSet(factory func() StoreSet) Option {
	return func(o *Orchestrator) { o.stores = factory }
}

// New returns an Orchestrator that dials the drop with dial and opens
// catalog databases with storeOpts.
func New(dial remote.Dialer, storeOpts datastore.Options, log logger.Logger, opts ...Option) *Orchestrator {
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}
	o := &Orchestrator{
		dial:     dial,
		log:      log,
		skipRows: parser.DefaultSkipRows,
		failed:   make(map[string]bool),
	}
	o.stores = func() StoreSet { return poolStores{datastore.NewPool(storeOpts, log.Module("datastore"))} }
	for _, opt := range opts {
		opt(o)
	}
	if o.concurrency < 1 {
		o.concurrency = runtime.GOMAXPROCS(0)
	}
	return o
}

// poolStores adapts a datastore.Pool to StoreSet.
type poolStores struct {
	pool *datastore.Pool
}

func (p poolStores) Get(path string) (CatalogStore, error) { return p.pool.Get(path) }
func (p poolStores) Close() error                          { return p.pool.Close() }

// Run executes one cycle per scope, at most concurrency at a time. A failing
// scope does not stop its siblings. The returned error joins every scope error.
func (o *Orchestrator) Run(ctx context.Context, scopes []Scope) ([]CycleResult, error) {
	if len(scopes) == 0 {
		return nil, nil
	}

	stores := o.stores()
	defer func() {
		if err := stores.Close(); err != nil {
			o.log.Warn("failed to close catalog stores", logger.Error(err))
		}
	}()

	results := make([]CycleResult, len(scopes))
	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i := range scopes {
		g.Go(func() error {
			results[i] = o.runScope(ctx, scopes[i], stores)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for i := range results {
		if results[i].Err != nil {
			errs = append(errs, fmt.Errorf("scope %s: %w", results[i].Scope, results[i].Err))
		}
	}
	return results, errors.Join(errs...)
}

func (o *Orchestrator) runScope(ctx context.Context, scope Scope, stores StoreSet) CycleResult {
	c := &cycle{
		o:      o,
		scope:  scope,
		log:    o.log.WithContext(ctx).Module(scope.ID),
		result: CycleResult{Scope: scope.ID, StartedAt: time.Now()},
	}

	err := scope.Validate()
	if err == nil {
		var store CatalogStore
		store, err = stores.Get(scope.DBPath)
		if err == nil {
			c.store = store
			err = c.run(ctx)
		}
	}
	c.finish(err)

	o.report(ctx, &c.result)
	return c.result
}

// report records metrics and notifies on failure, recovery and skipped files.
func (o *Orchestrator) report(ctx context.Context, r *CycleResult) {
	outcome := metrics.OutcomeSuccess
	if r.Err != nil {
		outcome = metrics.OutcomeFailure
	}
	o.metrics.RecordCycle(r.Scope, outcome, r.Duration, r.StartedAt.Add(r.Duration))

	o.mu.Lock()
	wasFailing := o.failed[r.Scope]
	o.failed[r.Scope] = r.Err != nil
	o.mu.Unlock()

	if o.notifier == nil {
		return
	}
	var err error
	switch {
	case r.Err != nil:
		err = o.notifier.CycleFailed(ctx, r.Scope, r.Err)
	case wasFailing:
		err = o.notifier.CycleRecovered(ctx, r.Scope)
	}
	if err != nil {
		o.log.Warn("failed to send cycle notification", logger.String("scope", r.Scope), logger.Error(err))
	}
	if r.Err == nil && len(r.Skipped) > 0 {
		if err := o.notifier.FilesSkipped(ctx, r.Scope, "input", r.Skipped); err != nil {
			o.log.Warn("failed to send skipped-files notification", logger.String("scope", r.Scope), logger.Error(err))
		}
	}
}
