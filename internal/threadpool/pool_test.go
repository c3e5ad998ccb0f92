package threadpool

import (
	"bytes"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hello-server/internal/events"
	"hello-server/internal/logger"
)

// quietConfig はテスト出力を汚さない設定を返す
func quietConfig(size int) Config {
	cfg := DefaultConfig()
	cfg.Size = size
	cfg.Logger = logger.New(&bytes.Buffer{}, logger.LevelError)
	return cfg
}

func buildQuiet(t *testing.T, size int) *Pool {
	t.Helper()
	p, err := BuildWithConfig(quietConfig(size))
	require.NoError(t, err)
	return p
}

func TestBuildCreatesWorkers(t *testing.T) {
	for size := 1; size <= 8; size++ {
		p := buildQuiet(t, size)

		assert.Equal(t, size, p.Size())
		ids := p.WorkerIDs()
		require.Len(t, ids, size)

		seen := make(map[int]bool, size)
		for _, id := range ids {
			assert.GreaterOrEqual(t, id, 0)
			assert.Less(t, id, size)
			assert.False(t, seen[id], "duplicate worker id %d", id)
			seen[id] = true
		}

		p.Close()
	}
}

func TestBuildRejectsBadSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		p, err := Build(size)
		require.Error(t, err)
		assert.Nil(t, p)

		var cerr *CreationError
		require.True(t, errors.As(err, &cerr))
		assert.Equal(t, KindBadArgument, cerr.Kind)
		assert.NotEmpty(t, cerr.Message)
		assert.ErrorIs(t, err, ErrBadArgument)
		assert.NotErrorIs(t, err, ErrPoolClosed)
	}
}

func TestNewPanicsOnZeroSize(t *testing.T) {
	assert.Panics(t, func() {
		New(0)
	})
}

func TestNewBuildsPool(t *testing.T) {
	p := New(2)
	defer p.Close()
	assert.Equal(t, 2, p.Size())
}

func TestExecuteRunsEveryJob(t *testing.T) {
	p := buildQuiet(t, 4)

	const n = 1000
	var counter atomic.Int64
	for range make([]struct{}, n) {
		p.Execute(func() {
			counter.Add(1)
		})
	}
	p.Close()

	assert.Equal(t, int64(n), counter.Load())
	stats := p.Stats()
	assert.Equal(t, uint64(n), stats.SubmittedJobs)
	assert.Equal(t, uint64(n), stats.CompletedJobs)
	assert.Zero(t, stats.PendingJobs)
}

func TestExecuteFromManyProducers(t *testing.T) {
	p := buildQuiet(t, 3)

	const producers = 8
	const perProducer = 200
	var counter atomic.Int64
	var wg sync.WaitGroup
	for range make([]struct{}, producers) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range make([]struct{}, perProducer) {
				p.Execute(func() {
					counter.Add(1)
				})
			}
		}()
	}
	wg.Wait()
	p.Close()

	assert.Equal(t, int64(producers*perProducer), counter.Load())
}

func TestJobsDeliveredExactlyOnce(t *testing.T) {
	p := buildQuiet(t, 4)

	const n = 500
	var mu sync.Mutex
	seen := make(map[int]int, n)
	for i := 0; i < n; i++ {
		i := i
		p.Execute(func() {
			mu.Lock()
			seen[i]++
			mu.Unlock()
		})
	}
	p.Close()

	require.Len(t, seen, n)
	for id, count := range seen {
		assert.Equal(t, 1, count, "job %d processed %d times", id, count)
	}
}

func TestSingleWorkerKeepsSubmissionOrder(t *testing.T) {
	p := buildQuiet(t, 1)

	var order []int
	for i := 0; i < 50; i++ {
		i := i
		p.Execute(func() {
			order = append(order, i)
		})
	}
	p.Close()

	require.Len(t, order, 50)
	for i, got := range order {
		assert.Equal(t, i, got)
	}
}

func TestCloseWaitsForRunningJob(t *testing.T) {
	p := buildQuiet(t, 2)

	started := make(chan struct{})
	release := make(chan struct{})
	p.Execute(func() {
		close(started)
		<-release
	})
	<-started

	closed := make(chan struct{})
	go func() {
		p.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while a job was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return after the job finished")
	}
}

func TestCloseDrainsQueuedJobs(t *testing.T) {
	p := buildQuiet(t, 1)

	release := make(chan struct{})
	var counter atomic.Int64
	p.Execute(func() {
		<-release
	})
	for range make([]struct{}, 10) {
		p.Execute(func() {
			counter.Add(1)
		})
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()
	p.Close()

	assert.Equal(t, int64(10), counter.Load())
}

func TestParallelExecution(t *testing.T) {
	p := buildQuiet(t, 2)

	start := time.Now()
	for range make([]struct{}, 5) {
		p.Execute(func() {
			time.Sleep(10 * time.Millisecond)
		})
	}
	p.Close()
	elapsed := time.Since(start)

	// ceil(5/2) = 3 rounds of 10ms; serial execution would take 50ms
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
	assert.Less(t, elapsed, 50*time.Millisecond, "jobs did not run in parallel: %v", elapsed)
}

func TestExecuteAfterClosePanics(t *testing.T) {
	p := buildQuiet(t, 1)
	p.Close()

	assert.Panics(t, func() {
		p.Execute(func() {})
	})
}

func TestSubmitErrors(t *testing.T) {
	p := buildQuiet(t, 1)

	assert.ErrorIs(t, p.Submit(nil), ErrNilJob)
	assert.NoError(t, p.Submit(func() {}))

	p.Close()
	assert.ErrorIs(t, p.Submit(func() {}), ErrPoolClosed)
	assert.True(t, p.Stats().Closed)
}

func TestCloseIsIdempotent(t *testing.T) {
	p := buildQuiet(t, 3)

	var wg sync.WaitGroup
	for range make([]struct{}, 4) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Close()
		}()
	}
	wg.Wait()
	p.Close()

	for _, w := range p.workers {
		assert.False(t, w.join(), "worker %d handle should already be taken", w.id)
	}
}

func TestJobPanicIsRecovered(t *testing.T) {
	cfg := quietConfig(1)

	var mu sync.Mutex
	var reported []error
	cfg.PanicHandler = func(workerID int, err error) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 0, workerID)
		reported = append(reported, err)
	}

	p, err := BuildWithConfig(cfg)
	require.NoError(t, err)

	ran := make(chan struct{})
	p.Execute(func() {
		panic("boom")
	})
	p.Execute(func() {
		panic(errors.New("typed boom"))
	})
	p.Execute(func() {
		close(ran)
	})

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("worker stopped serving after a job panicked")
	}
	p.Close()

	stats := p.Stats()
	assert.Equal(t, uint64(2), stats.PanickedJobs)
	assert.Equal(t, uint64(1), stats.CompletedJobs)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reported, 2)
	for _, e := range reported {
		assert.ErrorIs(t, e, ErrJobPanic)
	}
	assert.Contains(t, reported[0].Error(), "boom")
	assert.Contains(t, reported[1].Error(), "typed boom")
}

func TestStatsWhileBusy(t *testing.T) {
	p := buildQuiet(t, 1)

	started := make(chan struct{})
	release := make(chan struct{})
	p.Execute(func() {
		close(started)
		<-release
	})
	<-started

	for range make([]struct{}, 3) {
		p.Execute(func() {})
	}

	stats := p.Stats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, 1, stats.ActiveWorkers)
	assert.Equal(t, 3, stats.PendingJobs)
	assert.False(t, stats.Closed)
	assert.False(t, stats.Poisoned)

	close(release)
	p.Close()

	stats = p.Stats()
	assert.Zero(t, stats.ActiveWorkers)
	assert.Zero(t, stats.PendingJobs)
}

func TestPoolPublishesLifecycleEvents(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe()

	cfg := quietConfig(2)
	cfg.Events = bus
	p, err := BuildWithConfig(cfg)
	require.NoError(t, err)
	p.Close()

	counts := make(map[events.EventType]int)
	timeout := time.After(time.Second)
	for counts[events.EventPoolClosed] == 0 {
		select {
		case ev := <-ch:
			counts[ev.Type]++
			if ev.Type == events.EventWorkerStopped {
				assert.Equal(t, "disconnected", ev.Data.Reason)
			}
		case <-timeout:
			t.Fatalf("timeout waiting for events, got %v", counts)
		}
	}

	assert.Equal(t, 2, counts[events.EventWorkerStarted])
	assert.Equal(t, 2, counts[events.EventWorkerStopped])
}

func TestParsePoisonPolicy(t *testing.T) {
	tests := []struct {
		input    string
		expected PoisonPolicy
		hasError bool
	}{
		{"", PoisonFatal, false},
		{"fatal", PoisonFatal, false},
		{"Closed", PoisonTreatAsClosed, false},
		{"restart", PoisonFatal, true},
	}

	for _, tt := range tests {
		got, err := ParsePoisonPolicy(tt.input)
		if tt.hasError {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.expected, got)
		assert.Equal(t, got.String(), tt.expected.String())
	}
}
