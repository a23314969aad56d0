package block

import (
	"context"

	"github.com/benbjohnson/clock"
)

// Clock is a source that outputs the seconds elapsed since it was created or last reset.
type Clock struct {
	Buffer
	clk    clock.Clock
	origin float64
}

// NewClock returns an enabled Clock reading clk, or the wall clock when clk is nil.
func NewClock(clk clock.Clock) *Clock {
	if clk == nil {
		clk = clock.New()
	}
	c := &Clock{clk: clk}
	c.origin = c.now()
	c.Buffer = NewBuffer(c, 0.0)
	return c
}

func (c *Clock) now() float64 {
	return float64(c.clk.Now().UnixNano()) / 1e9
}

// BufferRead samples the clock.
func (c *Clock) BufferRead(ctx context.Context, buffer []interface{}) ([]interface{}, error) {
	return []interface{}{c.now() - c.origin}, nil
}

// Reset restarts the elapsed time at zero.
func (c *Clock) Reset(ctx context.Context) error {
	c.origin = c.now()
	return nil
}
