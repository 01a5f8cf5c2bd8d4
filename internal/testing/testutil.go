// Package testing provides shared test utilities for spark packages.
//
// Goroutines started by a test must not call t.Fatal, so GoroutineTest
// collects their errors and reports them from the test goroutine.
package testing

import (
	"context"
	"sync"
	"testing"
	"time"
)

// GoroutineTest collects errors from goroutines started by a test.
//
//	gt := sparktest.NewGoroutineTest(t)
//	gt.GoWithContext(func(ctx context.Context) error {
//	    _, err := svc.ExecuteSQL(ctx, sql)
//	    return err
//	})
//	gt.Wait()
type GoroutineTest struct {
	t      *testing.T
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	errs []error
}

// NewGoroutineTest creates a GoroutineTest whose context is canceled by Wait
// or after 30 seconds.
func NewGoroutineTest(t *testing.T) *GoroutineTest {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	return &GoroutineTest{t: t, ctx: ctx, cancel: cancel}
}

// Go runs fn in a goroutine and records its error.
func (gt *GoroutineTest) Go(fn func() error) {
	gt.GoWithContext(func(context.Context) error { return fn() })
}

// GoWithContext runs fn with the test context in a goroutine.
func (gt *GoroutineTest) GoWithContext(fn func(ctx context.Context) error) {
	gt.wg.Add(1)
	go func() {
		defer gt.wg.Done()
		if err := fn(gt.ctx); err != nil {
			gt.mu.Lock()
			gt.errs = append(gt.errs, err)
			gt.mu.Unlock()
		}
	}()
}

// Wait waits for every goroutine and fails the test if any returned an error.
func (gt *GoroutineTest) Wait() {
	gt.t.Helper()
	gt.wg.Wait()
	gt.cancel()

	if len(gt.errs) == 0 {
		return
	}
	for i, err := range gt.errs {
		gt.t.Errorf("goroutine %d: %v", i+1, err)
	}
	gt.t.FailNow()
}
