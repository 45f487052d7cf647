// Package taskqueue runs indexed tasks and reports the first one, in index
// order, whose result is true.
package taskqueue

import (
	"context"
	"sync"
)

// Task evaluates item i. It must honour ctx cancellation.
type Task func(ctx context.Context, i int) bool

// Queue runs tasks sequentially by default or with bounded parallelism.
// Either way the winner is the lowest index that returned true, and no
// task with a higher index is started once that winner is known.
type Queue struct {
	workers int
}

// New creates a queue. workers <= 1 runs tasks strictly one at a time.
func New(workers int) *Queue {
	if workers < 1 {
		workers = 1
	}
	return &Queue{workers: workers}
}

// FirstMatch evaluates tasks 0..n-1 and returns the lowest index whose
// task returned true. ok is false when none matched or ctx ended first.
func (q *Queue) FirstMatch(ctx context.Context, n int, task Task) (index int, ok bool) {
	if n <= 0 {
		return -1, false
	}
	if q.workers == 1 || n == 1 {
		return firstMatchSequential(ctx, n, task)
	}
	return q.firstMatchParallel(ctx, n, task)
}

func firstMatchSequential(ctx context.Context, n int, task Task) (int, bool) {
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			return -1, false
		}
		if task(ctx, i) {
			return i, true
		}
	}
	return -1, false
}

type outcome struct {
	index int
	match bool
}

// firstMatchParallel keeps at most workers tasks in flight, dispatching in
// index order. Results are committed in index order, so a later true never
// beats an earlier one that is still running. Once the committed prefix
// reaches a true, in-flight tasks are canceled and nothing new starts.
func (q *Queue) firstMatchParallel(ctx context.Context, n int, task Task) (int, bool) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan outcome, n)
	var wg sync.WaitGroup
	defer wg.Wait()

	// 0 pending, 1 false, 2 true
	done := make([]int8, n)
	limit := n  // indexes at or beyond limit are never dispatched
	next := 0   // next index to dispatch
	commit := 0 // lowest index without a known result
	inFlight := 0

	dispatch := func() {
		for inFlight < q.workers && next < limit && ctx.Err() == nil {
			i := next
			next++
			inFlight++
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- outcome{index: i, match: task(ctx, i)}
			}()
		}
	}

	dispatch()
	for inFlight > 0 {
		var r outcome
		select {
		case r = <-results:
		case <-ctx.Done():
			return -1, false
		}
		inFlight--

		done[r.index] = 1
		if r.match {
			done[r.index] = 2
			// higher indexes can no longer win
			limit = min(limit, r.index+1)
		}
		for commit < limit && done[commit] != 0 {
			if done[commit] == 2 {
				cancel()
				return commit, true
			}
			commit++
		}
		dispatch()
	}
	return -1, false
}
