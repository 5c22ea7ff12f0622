package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRepeatsJobsUntilCancelled(t *testing.T) {
	var ok, failing atomic.Int32
	jobs := []Job{
		{Name: "ok", Interval: 20 * time.Millisecond, Run: func(context.Context) (int, error) {
			ok.Add(1)
			return 1, nil
		}},
		{Name: "failing", Interval: 20 * time.Millisecond, Run: func(context.Context) (int, error) {
			failing.Add(1)
			return 0, errors.New("db down")
		}},
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, jobs...) }()

	assert.Eventually(t, func() bool { return ok.Load() >= 2 && failing.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	after := ok.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, after, ok.Load())
}

func TestRunWithoutJobs(t *testing.T) {
	assert.Error(t, Run(context.Background()))
}
