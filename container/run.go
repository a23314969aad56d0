package container

import (
	"context"

	"github.com/pkg/errors"

	"github.com/silver2row/ctrl/block"
)

// Run executes one cycle: enabled sources, then filters, then the timers that are due, then
// sinks, each in registration order. A filter is written then read in the same cycle. The
// first block to fail aborts the cycle; signals written before it keep their new values.
func (c *Container) Run(ctx context.Context) error {
	for _, e := range c.sources.entries {
		if !e.block.Enabled() {
			continue
		}
		if err := c.execute(ctx, e); err != nil {
			return errors.Wrapf(err, "source %q", e.label)
		}
	}
	for _, e := range c.filters.entries {
		if !e.block.Enabled() {
			continue
		}
		if err := c.execute(ctx, e); err != nil {
			return errors.Wrapf(err, "filter %q", e.label)
		}
	}
	now := c.clk.Now()
	for _, e := range c.timers.entries {
		if !e.block.Enabled() || !e.due(now) {
			continue
		}
		if err := c.execute(ctx, e); err != nil {
			return errors.Wrapf(err, "timer %q", e.label)
		}
		e.lastFire = now
		if !e.repeat {
			e.block.SetEnabled(false)
		}
	}
	for _, e := range c.sinks.entries {
		if !e.block.Enabled() {
			continue
		}
		if err := c.execute(ctx, e); err != nil {
			return errors.Wrapf(err, "sink %q", e.label)
		}
	}
	return nil
}

// execute runs a single entry according to its kind.
func (c *Container) execute(ctx context.Context, e *entry) error {
	if e.kind != block.KindSource {
		values, err := c.signals.gather(e.inputs)
		if err != nil {
			return err
		}
		if err := e.block.Write(ctx, values...); err != nil {
			return err
		}
	}
	if e.kind == block.KindSink {
		return nil
	}
	values, err := e.block.Read(ctx)
	if err != nil {
		return err
	}
	if len(values) != len(e.outputs) {
		return &block.PortMismatchError{Kind: e.kind, Label: e.label, Want: len(e.outputs), Got: len(values)}
	}
	for i, name := range e.outputs {
		if err := c.signals.set(name, values[i]); err != nil {
			return err
		}
	}
	return nil
}
