package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/apperr"
)

func TestSubmit_RunsSerializedOnSameKey(t *testing.T) {
	q := New()
	key := Key{MarketID: "m1", OptionID: "o1"}

	var running int32
	var maxConcurrent int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Submit(context.Background(), key, time.Second, func(ctx context.Context) error {
				n := atomic.AddInt32(&running, 1)
				for {
					cur := atomic.LoadInt32(&maxConcurrent)
					if n <= cur || atomic.CompareAndSwapInt32(&maxConcurrent, cur, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&running, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&maxConcurrent))
}

func TestSubmit_DifferentKeysRunConcurrently(t *testing.T) {
	q := New()
	start := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < 2; i++ {
		key := Key{MarketID: "m", OptionID: string(rune('a' + i))}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Submit(context.Background(), key, time.Second, func(ctx context.Context) error {
				<-start
				return nil
			})
		}()
	}

	close(start)
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("distinct keys did not run concurrently")
	}
}

func TestSubmit_PropagatesBodyError(t *testing.T) {
	q := New()
	wantErr := apperr.New(apperr.Validation, "boom")
	err := q.Submit(context.Background(), Key{MarketID: "m1"}, time.Second, func(ctx context.Context) error {
		return wantErr
	})
	require.Equal(t, wantErr, err)
}

func TestSubmit_TimesOutWhenDeadlineExceededBeforeRunning(t *testing.T) {
	q := New()
	key := Key{MarketID: "m1"}

	block := make(chan struct{})
	go q.Submit(context.Background(), key, time.Hour, func(ctx context.Context) error {
		<-block
		return nil
	})
	time.Sleep(10 * time.Millisecond)

	errCh := make(chan error, 1)
	go func() {
		errCh <- q.Submit(context.Background(), key, time.Millisecond, func(ctx context.Context) error {
			return nil
		})
	}()
	time.Sleep(10 * time.Millisecond)
	close(block)

	err := <-errCh
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.QueueTimeout))
}
