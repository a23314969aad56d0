// Package scheduler drives a container at a fixed period on a background worker.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"github.com/silver2row/ctrl/container"
	"github.com/silver2row/ctrl/logging"
	"github.com/silver2row/ctrl/utils"
)

// maxFrequency bounds how often a loop may run.
const maxFrequency = 1000

// Loop owns a container and runs one cycle of it every period. The container must only be
// accessed through Do while the loop exists.
type Loop struct {
	mu     sync.Mutex
	c      *container.Container
	period time.Duration
	logger logging.Logger

	stateMu sync.Mutex
	workers utils.StoppableWorkers
	running atomic.Bool
	cycles  atomic.Int64

	overruns    atomic.Int64
	overrunWarn *rate.Limiter
}

// NewLoop returns a stopped loop running c every period. Periods are measured on the
// container's clock.
func NewLoop(c *container.Container, period time.Duration, logger logging.Logger) (*Loop, error) {
	if c == nil {
		return nil, errors.New("loop needs a container")
	}
	if period <= 0 || period < time.Second/maxFrequency {
		return nil, errors.Errorf("loop period %s should be positive and at most %dHz", period, maxFrequency)
	}
	return &Loop{
		c:           c,
		period:      period,
		logger:      logger,
		overrunWarn: rate.NewLimiter(rate.Every(time.Second), 1),
	}, nil
}

// Period returns the time between cycles.
func (l *Loop) Period() time.Duration {
	return l.period
}

// Frequency returns the number of cycles per second.
func (l *Loop) Frequency() float64 {
	return float64(time.Second) / float64(l.period)
}

// Start starts the container and a worker running it. The worker exits when ctx is done, Stop
// is called, a cycle fails, or the container stops running.
func (l *Loop) Start(ctx context.Context) error {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	if l.running.Load() {
		return errors.New("loop is already running")
	}

	l.mu.Lock()
	err := l.c.Start(ctx)
	ticker := l.c.Clock().Ticker(l.period)
	l.mu.Unlock()
	if err != nil {
		ticker.Stop()
		return err
	}

	l.running.Store(true)
	l.cycles.Store(0)
	l.overruns.Store(0)
	l.logger.Infow("starting loop", "period", l.period)
	l.workers = utils.NewStoppableWorkers(ctx, func(ctx context.Context) error {
		defer l.running.Store(false)
		defer ticker.Stop()
		return l.run(ctx, ticker)
	})
	return nil
}

func (l *Loop) run(ctx context.Context, ticker *clock.Ticker) error {
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("loop cancelled")
			return nil
		case <-ticker.C:
		}

		l.mu.Lock()
		start := l.c.Clock().Now()
		err := l.c.Run(ctx)
		took := l.c.Clock().Since(start)
		running := l.c.IsRunning()
		l.mu.Unlock()

		l.cycles.Inc()
		if took > l.period {
			l.overruns.Inc()
			if l.overrunWarn.Allow() {
				l.logger.Warnw("cycle took longer than the loop period", "took", took, "period", l.period, "overruns", l.overruns.Load())
			}
		}

		if err != nil {
			l.logger.Errorw("loop cycle failed", "error", err)
			return err
		}
		if !running {
			l.logger.Info("loop stopped by its container")
			return nil
		}
	}
}

// Stop stops the worker, waits for it to exit and stops the container.
func (l *Loop) Stop(ctx context.Context) error {
	l.stateMu.Lock()
	workers := l.workers
	l.stateMu.Unlock()
	if workers != nil {
		workers.Stop()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Info("loop stopped")
	return l.c.Stop(ctx)
}

// Wait blocks until the worker exits on its own and returns the error that stopped it, if any.
func (l *Loop) Wait() error {
	l.stateMu.Lock()
	workers := l.workers
	l.stateMu.Unlock()
	if workers == nil {
		return nil
	}
	workers.Wait()
	return workers.Err()
}

// Running returns whether the worker is active.
func (l *Loop) Running() bool {
	return l.running.Load()
}

// Cycles returns how many cycles ran since the last Start.
func (l *Loop) Cycles() int {
	return int(l.cycles.Load())
}

// Overruns returns how many cycles since the last Start took longer than the period.
func (l *Loop) Overruns() int {
	return int(l.overruns.Load())
}

// Do calls fn with exclusive access to the container.
func (l *Loop) Do(fn func(c *container.Container) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(l.c)
}
