package jobs

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestQueue_RunsJobAndCallsOnDone(t *testing.T) {
	q := NewQueue(2, 4, zaptest.NewLogger(t))
	q.Start(context.Background())

	done := make(chan error, 1)
	require.NoError(t, q.Submit(Job{
		Key:    "export-1",
		Run:    func(ctx context.Context) error { return errors.New("boom") },
		OnDone: func(err error) { done <- err },
	}))

	select {
	case err := <-done:
		assert.EqualError(t, err, "boom")
	case <-time.After(5 * time.Second):
		t.Fatal("job did not complete")
	}

	require.NoError(t, q.Shutdown(context.Background()))
}

func TestQueue_RejectsDuplicateKeyWhileRunning(t *testing.T) {
	q := NewQueue(1, 4, zaptest.NewLogger(t))
	q.Start(context.Background())

	release := make(chan struct{})
	started := make(chan struct{})
	finished := make(chan struct{})

	require.NoError(t, q.Submit(Job{
		Key: "req-1",
		Run: func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		},
		OnDone: func(error) { close(finished) },
	}))

	<-started
	assert.ErrorIs(t, q.Submit(Job{Key: "req-1", Run: func(context.Context) error { return nil }}), ErrDuplicateJob)

	close(release)
	<-finished

	// The key is free again once the first job is done.
	assert.Eventually(t, func() bool {
		return q.Submit(Job{Key: "req-1", Run: func(context.Context) error { return nil }}) == nil
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, q.Shutdown(context.Background()))
}

func TestQueue_RecoversPanics(t *testing.T) {
	q := NewQueue(1, 1, zaptest.NewLogger(t))
	q.Start(context.Background())

	done := make(chan error, 1)
	require.NoError(t, q.Submit(Job{
		Key:    "panicky",
		Run:    func(context.Context) error { panic("kaboom") },
		OnDone: func(err error) { done <- err },
	}))

	err := <-done
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
	require.NoError(t, q.Shutdown(context.Background()))
}

func TestQueue_ShutdownDrainsAndCloses(t *testing.T) {
	q := NewQueue(2, 16, zaptest.NewLogger(t))
	q.Start(context.Background())

	var mu sync.Mutex
	ran := 0
	for i := 0; i < 10; i++ {
		require.NoError(t, q.Submit(Job{
			Key: string(rune('a' + i)),
			Run: func(context.Context) error {
				mu.Lock()
				ran++
				mu.Unlock()
				return nil
			},
		}))
	}

	require.NoError(t, q.Shutdown(context.Background()))
	assert.Equal(t, 10, ran)
	assert.ErrorIs(t, q.Submit(Job{Key: "late", Run: func(context.Context) error { return nil }}), ErrQueueClosed)
}

func TestQueue_ValidatesJob(t *testing.T) {
	q := NewQueue(1, 1, nil)
	assert.Error(t, q.Submit(Job{Run: func(context.Context) error { return nil }}))
	assert.Error(t, q.Submit(Job{Key: "x"}))
}

func TestInline_RunsSynchronously(t *testing.T) {
	var got error
	called := false
	err := Inline{}.Submit(Job{
		Key: "inline",
		Run: func(ctx context.Context) error {
			called = true
			return nil
		},
		OnDone: func(err error) { got = err },
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.NoError(t, got)
}

func TestRunPeriodic_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := make(chan struct{}, 10)

	stopped := make(chan struct{})
	go func() {
		RunPeriodic(ctx, "test", 5*time.Millisecond, func(context.Context) error {
			select {
			case calls <- struct{}{}:
			default:
			}
			return nil
		}, zaptest.NewLogger(t))
		close(stopped)
	}()

	<-calls
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("periodic task did not stop")
	}
}

func TestNextRetryAt_BoundedByExponentialDelay(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := BackoffConfig{BaseDelay: time.Second, MaxDelay: 10 * time.Second}
	rng := rand.New(rand.NewSource(1))

	for attempt := 1; attempt <= 8; attempt++ {
		limit := time.Second << (attempt - 1)
		if limit > cfg.MaxDelay {
			limit = cfg.MaxDelay
		}
		for i := 0; i < 50; i++ {
			next := NextRetryAt(now, attempt, cfg, rng)
			assert.False(t, next.Before(now))
			assert.False(t, next.After(now.Add(limit)), "attempt %d", attempt)
		}
	}

	// Huge attempt numbers must not overflow the shift.
	next := NextRetryAt(now, 200, cfg, rng)
	assert.False(t, next.After(now.Add(cfg.MaxDelay)))
}
