package device

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Encoder is a simulated incremental encoder. Its tick count integrates the speed set by the
// motor it measures over time read from its clock.
type Encoder struct {
	mu       sync.Mutex
	clk      clock.Clock
	position float64
	speed    float64 // ticks per minute
	updated  time.Time
	closed   bool
}

// NewEncoder returns a stopped Encoder at position zero, reading clk or the wall clock when
// clk is nil.
func NewEncoder(clk clock.Clock) *Encoder {
	if clk == nil {
		clk = clock.New()
	}
	return &Encoder{clk: clk, updated: clk.Now()}
}

// must hold mu.
func (e *Encoder) integrate() {
	now := e.clk.Now()
	e.position += e.speed * now.Sub(e.updated).Minutes()
	e.updated = now
}

// Ticks returns the current position in ticks.
func (e *Encoder) Ticks(ctx context.Context) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.integrate()
	return e.position, nil
}

// ResetPosition makes offset the current position.
func (e *Encoder) ResetPosition(ctx context.Context, offset float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.integrate()
	e.position = offset
	return nil
}

// SetSpeed sets the speed of the simulated shaft in ticks per minute.
func (e *Encoder) SetSpeed(ctx context.Context, speed float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.integrate()
	e.speed = speed
	return nil
}

// Speed returns the shaft speed in ticks per minute.
func (e *Encoder) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// Close stops the shaft.
func (e *Encoder) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.integrate()
	e.speed = 0
	e.closed = true
	return nil
}

// Closed returns whether the encoder was closed.
func (e *Encoder) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}
