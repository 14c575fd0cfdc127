package trigger

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/masvision/shelfsync/internal/errors"
	"github.com/masvision/shelfsync/internal/observability/metrics"
	"github.com/masvision/shelfsync/internal/pipeline"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeOrchestrator blocks each run until release is closed, when set.
type fakeOrchestrator struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	err     error

	mu   sync.Mutex
	seen [][]string
}

func (f *fakeOrchestrator) Run(ctx context.Context, scopes []pipeline.Scope) ([]pipeline.CycleResult, error) {
	f.calls.Add(1)
	ids := make([]string, len(scopes))
	results := make([]pipeline.CycleResult, len(scopes))
	for i := range scopes {
		ids[i] = scopes[i].ID
		results[i] = pipeline.CycleResult{Scope: scopes[i].ID}
	}
	f.mu.Lock()
	f.seen = append(f.seen, ids)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return results, ctx.Err()
		}
	}
	return results, f.err
}

func testScopes() []pipeline.Scope {
	return []pipeline.Scope{{ID: "189"}, {ID: "620"}}
}

func TestRunSelectsScopes(t *testing.T) {
	t.Parallel()

	orch := &fakeOrchestrator{}
	r := NewRunner(orch, testScopes(), nil, nil)

	_, err := r.Run(context.Background(), nil)
	require.NoError(t, err)
	_, err = r.Run(context.Background(), []string{"620", " 620"})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"189", "620"}, {"620"}}, orch.seen)
	assert.Equal(t, []string{"189", "620"}, r.ScopeIDs())
}

func TestRunUnknownScope(t *testing.T) {
	t.Parallel()

	orch := &fakeOrchestrator{}
	r := NewRunner(orch, testScopes(), nil, nil)

	_, err := r.Run(context.Background(), []string{"189", "999"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	assert.ErrorIs(t, err, ErrUnknownScope)
	assert.Contains(t, err.Error(), "unknown scope(s): 999")
	assert.Zero(t, orch.calls.Load())
}

func TestScopeValidationFailureIsNotUnknownScope(t *testing.T) {
	t.Parallel()

	orch := &fakeOrchestrator{err: errors.ValidationError(`scope "189": barcode file is empty`)}
	r := NewRunner(orch, testScopes(), nil, nil)

	_, err := r.Run(context.Background(), []string{"189"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	assert.NotErrorIs(t, err, ErrUnknownScope)
}

func TestOverlappingRunRejected(t *testing.T) {
	t.Parallel()

	orch := &fakeOrchestrator{started: make(chan struct{}, 1), release: make(chan struct{})}
	m, err := metrics.NewSyncMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	r := NewRunner(orch, testScopes(), nil, m)

	done := make(chan error, 1)
	go func() {
		_, err := r.RunFrom(context.Background(), SourceCron, nil)
		done <- err
	}()
	<-orch.started
	assert.True(t, r.Running())

	_, err = r.RunFrom(context.Background(), SourceHTTP, nil)
	require.ErrorIs(t, err, ErrRunInProgress)

	close(orch.release)
	require.NoError(t, <-done)
	assert.False(t, r.Running())
	assert.Equal(t, int32(1), orch.calls.Load())
}

func TestLastRunRecorded(t *testing.T) {
	t.Parallel()

	orch := &fakeOrchestrator{err: fmt.Errorf("scope 620: disk full")}
	r := NewRunner(orch, testScopes(), nil, nil)
	assert.Nil(t, r.LastRun())

	_, err := r.RunFrom(context.Background(), SourceHTTP, nil)
	require.Error(t, err)

	last := r.LastRun()
	require.NotNil(t, last)
	assert.Equal(t, SourceHTTP, last.Source)
	assert.NotEmpty(t, last.ID)
	assert.Len(t, last.Results, 2)
	assert.Error(t, last.Err)
	assert.False(t, last.FinishedAt.Before(last.StartedAt))
}

func TestNewSchedulerValidation(t *testing.T) {
	t.Parallel()

	r := NewRunner(&fakeOrchestrator{}, testScopes(), nil, nil)

	_, err := NewScheduler(r, "not a schedule", "", nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	_, err = NewScheduler(r, "", "Mars/Olympus", nil)
	require.Error(t, err)

	s, err := NewScheduler(r, "", "", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultSchedule, s.spec)
}

func TestSchedulerNextInZone(t *testing.T) {
	t.Parallel()

	s, err := NewScheduler(NewRunner(&fakeOrchestrator{}, nil, nil, nil), DefaultSchedule, DefaultTimezone, nil)
	require.NoError(t, err)

	athens, err := time.LoadLocation(DefaultTimezone)
	require.NoError(t, err)

	// 09:15 in Athens fires next at 10:00 Athens time
	from := time.Date(2026, 3, 10, 9, 15, 0, 0, athens)
	next := s.Next(from.UTC())
	assert.Equal(t, time.Date(2026, 3, 10, 10, 0, 0, 0, athens).Unix(), next.Unix())
	assert.Equal(t, athens.String(), next.Location().String())
}

func TestSchedulerFiresAndStops(t *testing.T) {
	t.Parallel()

	orch := &fakeOrchestrator{started: make(chan struct{}, 8)}
	s, err := NewScheduler(NewRunner(orch, testScopes(), nil, nil), "* * * * * *", "UTC", nil)
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	require.Error(t, s.Start(context.Background()), "second start is rejected")

	select {
	case <-orch.started:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled run did not fire")
	}

	s.Stop()
	s.Stop()
}

func TestSchedulerStopCancelsActiveRun(t *testing.T) {
	t.Parallel()

	orch := &fakeOrchestrator{started: make(chan struct{}, 8), release: make(chan struct{})}
	s, err := NewScheduler(NewRunner(orch, testScopes(), nil, nil), "* * * * * *", "UTC", nil)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	select {
	case <-orch.started:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled run did not fire")
	}

	// returns only after the blocked run observed the cancellation
	s.Stop()
	assert.False(t, s.runner.Running())
}

func TestTickSkipsWhileRunning(t *testing.T) {
	t.Parallel()

	orch := &fakeOrchestrator{started: make(chan struct{}, 1), release: make(chan struct{})}
	r := NewRunner(orch, testScopes(), nil, nil)
	s, err := NewScheduler(r, "", "UTC", nil)
	require.NoError(t, err)

	// a tick before Start does nothing
	s.tick()
	assert.Zero(t, orch.calls.Load())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = r.RunFrom(context.Background(), SourceHTTP, nil)
	}()
	<-orch.started

	// registered but never started, so no timer goroutine
	s.mu.Lock()
	s.cron = cron.NewWithLocation(time.UTC)
	s.ctx = context.Background()
	s.mu.Unlock()

	s.tick()

	close(orch.release)
	<-done
	assert.Equal(t, int32(1), orch.calls.Load())
}
