package jobs

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSubmit_RunsFunctionOnWorker(t *testing.T) {
	p := NewPool(2, zap.NewNop())
	done := make(chan struct{})
	p.Submit(func(ctx context.Context) { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("submitted job never ran")
	}
}

func TestSubmit_RunsManyJobsConcurrently(t *testing.T) {
	p := NewPool(4, zap.NewNop())
	var count int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		p.Submit(func(ctx context.Context) {
			defer wg.Done()
			atomic.AddInt32(&count, 1)
		})
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs did not all complete")
	}
	require.Equal(t, int32(50), atomic.LoadInt32(&count))
}

func TestSubmit_RecoversFromPanickingJob(t *testing.T) {
	p := NewPool(1, zap.NewNop())
	p.Submit(func(ctx context.Context) { panic("boom") })

	done := make(chan struct{})
	p.Submit(func(ctx context.Context) { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pool did not survive a panicking job")
	}
}
