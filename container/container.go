// Package container implements the diagram core: a table of named signals, one registry of
// blocks per kind, and the engine that runs one discrete time step over them.
package container

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/silver2row/ctrl/block"
	"github.com/silver2row/ctrl/logging"
)

// Option configures a Container.
type Option func(*Container)

// WithClock makes the container measure timer periods on clk.
func WithClock(clk clock.Clock) Option {
	return func(c *Container) {
		c.clk = clk
	}
}

// A Container owns a set of signals and the sources, filters, timers and sinks wired to them.
// It is not safe for concurrent use.
type Container struct {
	logger  logging.Logger
	clk     clock.Clock
	signals *signalTable
	sources *blockRegistry
	filters *blockRegistry
	timers  *blockRegistry
	sinks   *blockRegistry
	running bool
}

// New returns an empty container.
func New(logger logging.Logger, opts ...Option) *Container {
	c := &Container{
		logger:  logger,
		clk:     clock.New(),
		signals: newSignalTable(),
		sources: newBlockRegistry(block.KindSource),
		filters: newBlockRegistry(block.KindFilter),
		timers:  newBlockRegistry(block.KindTimer),
		sinks:   newBlockRegistry(block.KindSink),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clock returns the clock timers are measured on.
func (c *Container) Clock() clock.Clock {
	return c.clk
}

func (c *Container) registry(kind block.Kind) *blockRegistry {
	switch kind {
	case block.KindSource:
		return c.sources
	case block.KindFilter:
		return c.filters
	case block.KindTimer:
		return c.timers
	case block.KindSink:
		return c.sinks
	default:
		return nil
	}
}

// AddSignal creates the signal name with value 0.
func (c *Container) AddSignal(name string) error {
	if err := c.signals.add(name); err != nil {
		return err
	}
	c.logger.Debugw("added signal", "signal", name)
	return nil
}

// AddSignals adds each name in turn, stopping at the first failure.
func (c *Container) AddSignals(names ...string) error {
	for _, name := range names {
		if err := c.AddSignal(name); err != nil {
			return err
		}
	}
	return nil
}

// RemoveSignal removes a signal no block is wired to.
func (c *Container) RemoveSignal(name string) error {
	if !c.signals.has(name) {
		return &block.UnknownSignalError{Name: name}
	}
	for _, kind := range block.Kinds {
		if e, ok := c.registry(kind).referencing(name); ok {
			return &block.SignalInUseError{Name: name, Kind: kind, Label: e.label}
		}
	}
	if err := c.signals.remove(name); err != nil {
		return err
	}
	c.logger.Debugw("removed signal", "signal", name)
	return nil
}

// HasSignal returns whether name exists.
func (c *Container) HasSignal(name string) bool {
	return c.signals.has(name)
}

// Signal returns the current value of name.
func (c *Container) Signal(name string) (interface{}, error) {
	return c.signals.get(name)
}

// SetSignal overwrites the value of name.
func (c *Container) SetSignal(name string, value interface{}) error {
	return c.signals.set(name, value)
}

// ListSignals returns the signal names in creation order.
func (c *Container) ListSignals() []string {
	return c.signals.list()
}

func (c *Container) checkSignals(names ...[]string) error {
	for _, ports := range names {
		for _, name := range ports {
			if !c.signals.has(name) {
				return &block.UnknownSignalError{Name: name}
			}
		}
	}
	return nil
}

func (c *Container) add(kind block.Kind, e *entry) error {
	if e.block == nil {
		return errors.Errorf("cannot add nil block as %s %q", kind, e.label)
	}
	if err := c.checkSignals(e.inputs, e.outputs); err != nil {
		return errors.Wrapf(err, "cannot add %s %q", kind, e.label)
	}
	e.inputs = append([]string{}, e.inputs...)
	e.outputs = append([]string{}, e.outputs...)
	old := c.registry(kind).add(e)
	if old == nil {
		c.logger.Debugw("added block", "kind", kind, "label", e.label)
		return nil
	}
	c.logger.Debugw("replaced block", "kind", kind, "label", e.label)
	if old.block == e.block {
		return nil
	}
	return errors.Wrapf(block.Close(context.Background(), old.block), "closing replaced %s %q", kind, e.label)
}

// AddSource registers b as a source whose values are written into outputs.
func (c *Container) AddSource(label string, b block.Block, outputs []string) error {
	return c.add(block.KindSource, &entry{label: label, block: b, outputs: outputs, kind: block.KindSource})
}

// AddFilter registers b as a filter reading inputs and writing outputs.
func (c *Container) AddFilter(label string, b block.Block, inputs, outputs []string) error {
	return c.add(block.KindFilter, &entry{label: label, block: b, inputs: inputs, outputs: outputs, kind: block.KindFilter})
}

// AddSink registers b as a sink reading inputs.
func (c *Container) AddSink(label string, b block.Block, inputs []string) error {
	return c.add(block.KindSink, &entry{label: label, block: b, inputs: inputs, kind: block.KindSink})
}

// AddTimer registers b to run once every period. It runs as a source, a filter or a sink
// depending on which ports are wired. A timer that does not repeat is disabled after it fires.
// The period is measured from now.
func (c *Container) AddTimer(label string, b block.Block, inputs, outputs []string, period time.Duration, repeat bool) error {
	if period < 0 {
		return errors.Errorf("timer %q has negative period %s", label, period)
	}
	return c.add(block.KindTimer, &entry{
		label:    label,
		block:    b,
		inputs:   inputs,
		outputs:  outputs,
		kind:     timerKind(inputs, outputs),
		period:   period,
		repeat:   repeat,
		lastFire: c.clk.Now(),
	})
}

// Remove unregisters the kind block under label.
func (c *Container) Remove(kind block.Kind, label string) error {
	r := c.registry(kind)
	if r == nil {
		return errors.Errorf("unknown block kind %q", kind)
	}
	old, err := r.remove(label)
	if err != nil {
		return err
	}
	c.logger.Debugw("removed block", "kind", kind, "label", label)
	return errors.Wrapf(block.Close(context.Background(), old.block), "closing %s %q", kind, label)
}

// RemoveSource unregisters a source.
func (c *Container) RemoveSource(label string) error { return c.Remove(block.KindSource, label) }

// RemoveFilter unregisters a filter.
func (c *Container) RemoveFilter(label string) error { return c.Remove(block.KindFilter, label) }

// RemoveSink unregisters a sink.
func (c *Container) RemoveSink(label string) error { return c.Remove(block.KindSink, label) }

// RemoveTimer unregisters a timer.
func (c *Container) RemoveTimer(label string) error { return c.Remove(block.KindTimer, label) }

// List returns the labels of kind in registration order.
func (c *Container) List(kind block.Kind) []string {
	r := c.registry(kind)
	if r == nil {
		return nil
	}
	return r.labels()
}

// ListSources returns the source labels in registration order.
func (c *Container) ListSources() []string { return c.List(block.KindSource) }

// ListFilters returns the filter labels in registration order.
func (c *Container) ListFilters() []string { return c.List(block.KindFilter) }

// ListSinks returns the sink labels in registration order.
func (c *Container) ListSinks() []string { return c.List(block.KindSink) }

// ListTimers returns the timer labels in registration order.
func (c *Container) ListTimers() []string { return c.List(block.KindTimer) }

func (c *Container) entry(kind block.Kind, label string) (*entry, error) {
	r := c.registry(kind)
	if r == nil {
		return nil, errors.Errorf("unknown block kind %q", kind)
	}
	return r.get(label)
}

// Block returns the block registered as kind under label.
func (c *Container) Block(kind block.Kind, label string) (block.Block, error) {
	e, err := c.entry(kind, label)
	if err != nil {
		return nil, err
	}
	return e.block, nil
}

// Ports returns the signals wired to the inputs and outputs of a registered block.
func (c *Container) Ports(kind block.Kind, label string) (inputs, outputs []string, err error) {
	e, err := c.entry(kind, label)
	if err != nil {
		return nil, nil, err
	}
	return append([]string(nil), e.inputs...), append([]string(nil), e.outputs...), nil
}

// Get returns the properties of a registered block named by keys, or all of them when no key
// is given. Timers also report their period and repeat flag.
func (c *Container) Get(kind block.Kind, label string, keys ...string) (map[string]interface{}, error) {
	return c.GetExcluding(kind, label, keys)
}

// GetExcluding is Get with properties named in exclude left out. Asking for an excluded key
// fails with an UnknownKeyError.
func (c *Container) GetExcluding(kind block.Kind, label string, keys []string, exclude ...string) (map[string]interface{}, error) {
	e, err := c.entry(kind, label)
	if err != nil {
		return nil, err
	}
	b := e.block
	if kind == block.KindTimer {
		b = &timerProperties{Block: e.block, e: e}
	}
	return block.GetProperties(b, keys, exclude...)
}

// GetProperty returns a single property of a registered block.
func (c *Container) GetProperty(kind block.Kind, label, key string) (interface{}, error) {
	props, err := c.Get(kind, label, key)
	if err != nil {
		return nil, err
	}
	return props[key], nil
}

// Set updates properties of a registered block. Timers also accept "period" and "repeat".
func (c *Container) Set(ctx context.Context, kind block.Kind, label string, props map[string]interface{}) error {
	e, err := c.entry(kind, label)
	if err != nil {
		return err
	}
	if kind == block.KindTimer {
		return (&timerProperties{Block: e.block, e: e}).Set(ctx, props)
	}
	return e.block.Set(ctx, props)
}

// GetSource returns properties of a source.
func (c *Container) GetSource(label string, keys ...string) (map[string]interface{}, error) {
	return c.Get(block.KindSource, label, keys...)
}

// GetFilter returns properties of a filter.
func (c *Container) GetFilter(label string, keys ...string) (map[string]interface{}, error) {
	return c.Get(block.KindFilter, label, keys...)
}

// GetSink returns properties of a sink.
func (c *Container) GetSink(label string, keys ...string) (map[string]interface{}, error) {
	return c.Get(block.KindSink, label, keys...)
}

// GetTimer returns properties of a timer.
func (c *Container) GetTimer(label string, keys ...string) (map[string]interface{}, error) {
	return c.Get(block.KindTimer, label, keys...)
}

// GetSourceProperty returns one property of a source.
func (c *Container) GetSourceProperty(label, key string) (interface{}, error) {
	return c.GetProperty(block.KindSource, label, key)
}

// GetFilterProperty returns one property of a filter.
func (c *Container) GetFilterProperty(label, key string) (interface{}, error) {
	return c.GetProperty(block.KindFilter, label, key)
}

// GetSinkProperty returns one property of a sink.
func (c *Container) GetSinkProperty(label, key string) (interface{}, error) {
	return c.GetProperty(block.KindSink, label, key)
}

// GetTimerProperty returns one property of a timer.
func (c *Container) GetTimerProperty(label, key string) (interface{}, error) {
	return c.GetProperty(block.KindTimer, label, key)
}

// SetSource updates properties of a source.
func (c *Container) SetSource(ctx context.Context, label string, props map[string]interface{}) error {
	return c.Set(ctx, block.KindSource, label, props)
}

// SetFilter updates properties of a filter.
func (c *Container) SetFilter(ctx context.Context, label string, props map[string]interface{}) error {
	return c.Set(ctx, block.KindFilter, label, props)
}

// SetSink updates properties of a sink.
func (c *Container) SetSink(ctx context.Context, label string, props map[string]interface{}) error {
	return c.Set(ctx, block.KindSink, label, props)
}

// SetTimer updates properties of a timer.
func (c *Container) SetTimer(ctx context.Context, label string, props map[string]interface{}) error {
	return c.Set(ctx, block.KindTimer, label, props)
}

// ReadSource reads a source directly, outside of a cycle.
func (c *Container) ReadSource(ctx context.Context, label string) ([]interface{}, error) {
	return c.read(ctx, block.KindSource, label)
}

// ReadFilter reads a filter directly, outside of a cycle.
func (c *Container) ReadFilter(ctx context.Context, label string) ([]interface{}, error) {
	return c.read(ctx, block.KindFilter, label)
}

// ReadSink reads a sink directly, such as a logger's log.
func (c *Container) ReadSink(ctx context.Context, label string) ([]interface{}, error) {
	return c.read(ctx, block.KindSink, label)
}

// ReadTimer reads a timer's block directly.
func (c *Container) ReadTimer(ctx context.Context, label string) ([]interface{}, error) {
	return c.read(ctx, block.KindTimer, label)
}

func (c *Container) read(ctx context.Context, kind block.Kind, label string) ([]interface{}, error) {
	e, err := c.entry(kind, label)
	if err != nil {
		return nil, err
	}
	return e.block.Read(ctx)
}

// WriteSink writes to a sink directly, outside of a cycle.
func (c *Container) WriteSink(ctx context.Context, label string, values ...interface{}) error {
	return c.write(ctx, block.KindSink, label, values...)
}

// WriteFilter writes to a filter directly, outside of a cycle.
func (c *Container) WriteFilter(ctx context.Context, label string, values ...interface{}) error {
	return c.write(ctx, block.KindFilter, label, values...)
}

func (c *Container) write(ctx context.Context, kind block.Kind, label string, values ...interface{}) error {
	e, err := c.entry(kind, label)
	if err != nil {
		return err
	}
	return e.block.Write(ctx, values...)
}

// Start marks the container running, sets is_running to 1 when that signal exists and restarts
// every timer period from now.
func (c *Container) Start(ctx context.Context) error {
	if c.signals.has(IsRunningSignal) {
		if err := c.signals.set(IsRunningSignal, 1.0); err != nil {
			return err
		}
	}
	now := c.clk.Now()
	for _, e := range c.timers.entries {
		e.lastFire = now
	}
	c.running = true
	c.logger.Debug("container started")
	return nil
}

// Stop marks the container stopped and sets is_running to 0 when that signal exists.
func (c *Container) Stop(ctx context.Context) error {
	if c.signals.has(IsRunningSignal) {
		if err := c.signals.set(IsRunningSignal, 0.0); err != nil {
			return err
		}
	}
	c.running = false
	c.logger.Debug("container stopped")
	return nil
}

// IsRunning returns whether the container was started and, when the is_running signal exists,
// whether it still holds a truthy value.
func (c *Container) IsRunning() bool {
	if !c.running {
		return false
	}
	v, err := c.signals.get(IsRunningSignal)
	if err != nil {
		return true
	}
	return block.Truthy(v)
}

// Close closes every block holding resources, then removes every block and signal.
func (c *Container) Close(ctx context.Context) error {
	var err error
	for _, kind := range block.Kinds {
		for _, e := range c.registry(kind).entries {
			err = multierr.Combine(err, errors.Wrapf(block.Close(ctx, e.block), "closing %s %q", kind, e.label))
		}
	}
	c.Reset()
	return err
}

// Reset removes every block and signal.
func (c *Container) Reset() {
	for _, kind := range block.Kinds {
		c.registry(kind).clear()
	}
	c.signals = newSignalTable()
	c.running = false
	c.logger.Debug("container reset")
}

// ResetBlocks resets the internal state of every registered block.
func (c *Container) ResetBlocks(ctx context.Context) error {
	for _, kind := range block.Kinds {
		for _, e := range c.registry(kind).entries {
			if err := e.block.Reset(ctx); err != nil {
				return errors.Wrapf(err, "cannot reset %s %q", kind, e.label)
			}
		}
	}
	return nil
}
