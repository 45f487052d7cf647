package taskqueue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFirstMatchSequential(t *testing.T) {
	tests := []struct {
		name      string
		answers   []bool
		wantIndex int
		wantOK    bool
		wantCalls []int
	}{
		{"empty", nil, -1, false, nil},
		{"first", []bool{true, true}, 0, true, []int{0}},
		{"last of L", []bool{false, false, false, true}, 3, true, []int{0, 1, 2, 3}},
		{"stops after match", []bool{false, true, true, false}, 1, true, []int{0, 1}},
		{"none", []bool{false, false}, -1, false, []int{0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []int
			idx, ok := New(1).FirstMatch(context.Background(), len(tt.answers), func(_ context.Context, i int) bool {
				calls = append(calls, i)
				return tt.answers[i]
			})
			assert.Equal(t, tt.wantIndex, idx)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestFirstMatchSequentialCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	idx, ok := New(0).FirstMatch(ctx, 5, func(_ context.Context, i int) bool {
		calls++
		cancel()
		return false
	})
	assert.False(t, ok)
	assert.Equal(t, -1, idx)
	assert.Equal(t, 1, calls)
}

func TestFirstMatchParallelPrefersLowestIndex(t *testing.T) {
	// Index 3 answers true immediately, index 1 answers true late.
	// The lower index must win.
	delays := []time.Duration{5 * time.Millisecond, 40 * time.Millisecond, 5 * time.Millisecond, 0, 0}
	answers := []bool{false, true, false, true, false}

	idx, ok := New(4).FirstMatch(context.Background(), len(answers), func(ctx context.Context, i int) bool {
		select {
		case <-time.After(delays[i]):
		case <-ctx.Done():
			return false
		}
		return answers[i]
	})
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestFirstMatchParallelBoundsWorkers(t *testing.T) {
	var current, peak int32

	idx, ok := New(3).FirstMatch(context.Background(), 10, func(_ context.Context, i int) bool {
		n := atomic.AddInt32(&current, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&current, -1)
		return i == 4
	})

	assert.True(t, ok)
	assert.Equal(t, 4, idx)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestFirstMatchParallelStopsDispatchAfterMatch(t *testing.T) {
	var mu sync.Mutex
	started := []int{}

	idx, ok := New(2).FirstMatch(context.Background(), 6, func(_ context.Context, i int) bool {
		mu.Lock()
		started = append(started, i)
		mu.Unlock()
		if i == 0 {
			time.Sleep(20 * time.Millisecond)
			return false
		}
		return i == 1
	})

	assert.True(t, ok)
	assert.Equal(t, 1, idx)
	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []int{0, 1}, started)
}

func TestFirstMatchParallelNoMatch(t *testing.T) {
	var calls int32
	idx, ok := New(3).FirstMatch(context.Background(), 6, func(context.Context, int) bool {
		atomic.AddInt32(&calls, 1)
		return false
	})
	assert.False(t, ok)
	assert.Equal(t, -1, idx)
	assert.Equal(t, int32(6), atomic.LoadInt32(&calls))
}
