package utils

import (
	"context"
	"sync"

	goutils "go.viam.com/utils"
)

// StoppableWorkers is a collection of goroutines that can be stopped at a later time. Each worker
// may fail; the first failure is kept and reported by Err.
type StoppableWorkers interface {
	AddWorkers(...func(context.Context) error)
	Stop()
	Wait()
	Err() error
	Context() context.Context
}

type stoppableWorkersImpl struct {
	mu                      sync.Mutex
	cancelCtx               context.Context
	cancelFunc              func()
	activeBackgroundWorkers sync.WaitGroup

	errMu    sync.Mutex
	firstErr error
}

// NewStoppableWorkers runs the functions in separate goroutines derived from parent. They can be
// stopped later.
func NewStoppableWorkers(parent context.Context, funcs ...func(context.Context) error) StoppableWorkers {
	cancelCtx, cancelFunc := context.WithCancel(parent)
	workers := &stoppableWorkersImpl{cancelCtx: cancelCtx, cancelFunc: cancelFunc}
	workers.AddWorkers(funcs...)
	return workers
}

// AddWorkers starts up additional goroutines for each function passed in. If you call this after
// calling Stop(), it will return immediately without starting any new goroutines.
func (sw *stoppableWorkersImpl) AddWorkers(funcs ...func(context.Context) error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.cancelCtx.Err() != nil {
		return
	}

	sw.activeBackgroundWorkers.Add(len(funcs))
	for _, f := range funcs {
		goutils.PanicCapturingGo(func() {
			defer sw.activeBackgroundWorkers.Done()
			if err := f(sw.cancelCtx); err != nil {
				sw.setErr(err)
			}
		})
	}
}

func (sw *stoppableWorkersImpl) setErr(err error) {
	sw.errMu.Lock()
	defer sw.errMu.Unlock()
	if sw.firstErr == nil {
		sw.firstErr = err
	}
}

// Stop shuts down all the goroutines we started up.
func (sw *stoppableWorkersImpl) Stop() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.cancelFunc()
	sw.activeBackgroundWorkers.Wait()
}

// Wait blocks until every worker has returned on its own.
func (sw *stoppableWorkersImpl) Wait() {
	sw.activeBackgroundWorkers.Wait()
}

// Err returns the first error returned by any worker.
func (sw *stoppableWorkersImpl) Err() error {
	sw.errMu.Lock()
	defer sw.errMu.Unlock()
	return sw.firstErr
}

// Context gets the context the workers are checking on.
func (sw *stoppableWorkersImpl) Context() context.Context {
	return sw.cancelCtx
}
