package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type pass struct {
	candidates, failed int
	err                error
}

// scriptedExpirer replays passes in order, then reports an empty batch.
type scriptedExpirer struct {
	mu     sync.Mutex
	passes []pass
	calls  int
	limits []int
}

func (s *scriptedExpirer) ExpireDue(_ context.Context, limit int) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limits = append(s.limits, limit)
	s.calls++
	if len(s.passes) == 0 {
		return 0, 0, nil
	}
	p := s.passes[0]
	s.passes = s.passes[1:]
	return p.candidates, p.failed, p.err
}

func (s *scriptedExpirer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestSweeper_DrainsBacklogWithoutWaiting(t *testing.T) {
	exp := &scriptedExpirer{passes: []pass{{candidates: 10}, {candidates: 10}, {candidates: 3}}}
	s := New(exp, Config{BatchSize: 10, Interval: time.Hour}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return exp.Calls() == 4 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
	assert.Equal(t, 4, exp.Calls(), "fourth pass found nothing and the sweeper went to sleep")
	assert.Equal(t, []int{10, 10, 10, 10}, exp.limits)
}

func TestSweeper_BoundedImmediateRetries(t *testing.T) {
	boom := errors.New("db down")
	exp := &scriptedExpirer{passes: []pass{{err: boom}, {err: boom}, {err: boom}, {err: boom}, {err: boom}}}
	s := New(exp, Config{BatchSize: 5, Interval: time.Hour, MaxImmediateRetries: 2}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	require.Eventually(t, func() bool { return exp.Calls() == 3 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 3, exp.Calls(), "first pass plus two immediate retries, then wait")
}

func TestSweeper_PartialFailureRetries(t *testing.T) {
	s := New(&scriptedExpirer{}, Config{MaxImmediateRetries: 1}, zap.NewNop())
	retries := 0

	assert.True(t, s.immediate(4, 1, nil, &retries))
	assert.Equal(t, 1, retries)
	assert.False(t, s.immediate(4, 1, nil, &retries))
	assert.Equal(t, 0, retries)
	assert.False(t, s.immediate(0, 0, nil, &retries))
	assert.True(t, s.immediate(2, 0, nil, &retries))
}

func TestSweeper_StopsWhileWaiting(t *testing.T) {
	s := New(&scriptedExpirer{}, Config{Interval: time.Hour}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("wait was not interrupted")
	}
}

func TestNew_Defaults(t *testing.T) {
	s := New(&scriptedExpirer{}, Config{MaxImmediateRetries: -1}, zap.NewNop())
	assert.Equal(t, 100, s.cfg.BatchSize)
	assert.Equal(t, 5*time.Second, s.cfg.Interval)
	assert.Zero(t, s.cfg.MaxImmediateRetries)
}
