package util

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWorkerRunsTasksInOrder(t *testing.T) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var got []int
	done := make(chan struct{})
	w := NewWorker("test", &wg, func(ctx context.Context, n int) error {
		mu.Lock()
		got = append(got, n)
		if len(got) == 5 {
			close(done)
		}
		mu.Unlock()
		if n == 2 {
			return errors.New("task failed")
		}
		return nil
	}, 8)
	w.Start()
	for i := 0; i < 5; i++ {
		require.True(t, w.Submit(i))
	}
	<-done
	w.Stop()
	w.Stop()
	wg.Wait()
	require.Equal(t, []int{0, 1, 2, 3, 4}, got)
	require.False(t, w.Submit(5))
}

func TestWorkerRejectsWhenFull(t *testing.T) {
	var wg sync.WaitGroup
	w := NewWorker("full", &wg, func(ctx context.Context, n int) error { return nil }, 1)
	require.True(t, w.Submit(1))
	require.False(t, w.Submit(2))
	require.Equal(t, 1, w.Pending())
}

func TestTickWorker(t *testing.T) {
	var wg sync.WaitGroup
	var ticks atomic.Int32
	tw := NewTickWorker("tick", time.Millisecond, func(ctx context.Context) {
		ticks.Add(1)
	}, &wg)
	tw.Start()
	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)
	require.NoError(t, tw.Stop())
	require.NoError(t, tw.Stop())
	wg.Wait()
}
