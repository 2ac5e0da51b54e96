package registration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

type courseLock struct {
	sem  *semaphore.Weighted
	refs int
}

// courseLocks hands out one FIFO mutex per course id. Entries live only while held or awaited.
type courseLocks struct {
	mu      sync.Mutex
	locks   map[string]*courseLock
	timeout time.Duration
}

func newCourseLocks(timeout time.Duration) *courseLocks {
	return &courseLocks{locks: make(map[string]*courseLock), timeout: timeout}
}

// acquire blocks until the course lock is held, ctx is done or the wait timeout elapses.
// A timeout yields ErrBusy; caller cancellation yields the context error.
func (l *courseLocks) acquire(ctx context.Context, courseID string) (func(), error) {
	cl := l.ref(courseID)

	waitCtx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	if err := cl.sem.Acquire(waitCtx, 1); err != nil {
		l.unref(courseID, cl)
		if ctx.Err() != nil {
			return nil, fmt.Errorf("wait for course %s: %w", courseID, ctx.Err())
		}
		return nil, ErrBusy
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			cl.sem.Release(1)
			l.unref(courseID, cl)
		})
	}, nil
}

func (l *courseLocks) ref(courseID string) *courseLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	cl, ok := l.locks[courseID]
	if !ok {
		cl = &courseLock{sem: semaphore.NewWeighted(1)}
		l.locks[courseID] = cl
	}
	cl.refs++
	return cl
}

func (l *courseLocks) unref(courseID string, cl *courseLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cl.refs--
	if cl.refs == 0 {
		delete(l.locks, courseID)
	}
}

// size reports the number of courses currently held or awaited.
func (l *courseLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
