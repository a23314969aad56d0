package container

import (
	"context"

	"github.com/pkg/errors"

	"github.com/silver2row/ctrl/block"
	"github.com/silver2row/ctrl/utils"
)

// Input is a source that outputs the values last pushed into its container with
// Container.Write.
type Input struct {
	block.Buffer
}

// NewInput returns an enabled Input.
func NewInput() *Input {
	in := &Input{}
	in.Buffer = block.NewBuffer(in)
	return in
}

// BufferRead outputs the pushed values.
func (in *Input) BufferRead(ctx context.Context, buffer []interface{}) ([]interface{}, error) {
	return buffer, nil
}

// BufferWrite keeps the pushed values.
func (in *Input) BufferWrite(ctx context.Context, buffer []interface{}) ([]interface{}, error) {
	return buffer, nil
}

// Output is a sink that captures the values its container returns from Container.Read.
type Output struct {
	block.Buffer
}

// NewOutput returns an enabled Output.
func NewOutput() *Output {
	out := &Output{}
	out.Buffer = block.NewBuffer(out)
	return out
}

// BufferRead returns the captured values.
func (out *Output) BufferRead(ctx context.Context, buffer []interface{}) ([]interface{}, error) {
	return buffer, nil
}

// BufferWrite captures the written values.
func (out *Output) BufferWrite(ctx context.Context, buffer []interface{}) ([]interface{}, error) {
	return buffer, nil
}

// Write pushes values into the container's Input sources in registration order. Each Input
// takes as many values as it has outputs wired. The number of values must match exactly.
func (c *Container) Write(ctx context.Context, values ...interface{}) error {
	rest := values
	for _, e := range c.sources.entries {
		if _, ok := block.Unwrap(e.block).(*Input); !ok {
			continue
		}
		n := len(e.outputs)
		if len(rest) < n {
			return errors.Errorf("input %q needs %d values but only %d are left", e.label, n, len(rest))
		}
		if err := e.block.Write(ctx, rest[:n]...); err != nil {
			return errors.Wrapf(err, "input %q", e.label)
		}
		rest = rest[n:]
	}
	if len(rest) > 0 {
		return errors.Errorf("%d values written but only %d inputs wired", len(values), len(values)-len(rest))
	}
	return nil
}

// Read runs one cycle and returns the values captured by the container's Output sinks, in
// registration order.
func (c *Container) Read(ctx context.Context) ([]interface{}, error) {
	if err := c.Run(ctx); err != nil {
		return nil, err
	}
	var values []interface{}
	for _, e := range c.sinks.entries {
		if _, ok := block.Unwrap(e.block).(*Output); !ok {
			continue
		}
		out, err := e.block.Read(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "output %q", e.label)
		}
		values = append(values, out...)
	}
	return values, nil
}

// Subsystem adapts a container to a block so it can be registered in a parent container.
// Writing to it feeds the child's Input sources, reading it runs the child for one cycle.
type Subsystem struct {
	block.Base
	c    *Container
	last []interface{}
}

// NewSubsystem wraps c as an enabled block.
func NewSubsystem(c *Container) *Subsystem {
	return &Subsystem{Base: block.NewBase(true), c: c}
}

// Container returns the wrapped container.
func (s *Subsystem) Container() *Container {
	return s.c
}

// Read runs the child container and returns its outputs. A disabled subsystem returns the
// outputs of the last cycle it ran.
func (s *Subsystem) Read(ctx context.Context) ([]interface{}, error) {
	if s.Enabled() {
		values, err := s.c.Read(ctx)
		if err != nil {
			return nil, err
		}
		s.last = values
	}
	return append([]interface{}{}, s.last...), nil
}

// Write feeds the child's inputs.
func (s *Subsystem) Write(ctx context.Context, values ...interface{}) error {
	if !s.Enabled() {
		return nil
	}
	return s.c.Write(ctx, values...)
}

// Reset resets every block of the child container.
func (s *Subsystem) Reset(ctx context.Context) error {
	s.last = nil
	return s.c.ResetBlocks(ctx)
}

// Properties reports the enabled flag and how many blocks of each kind the child holds.
func (s *Subsystem) Properties() map[string]interface{} {
	props := s.Base.Properties()
	props["signals"] = len(s.c.signals.names)
	props["sources"] = len(s.c.sources.entries)
	props["filters"] = len(s.c.filters.entries)
	props["timers"] = len(s.c.timers.entries)
	props["sinks"] = len(s.c.sinks.entries)
	return props
}

// Set accepts the common keys only.
func (s *Subsystem) Set(ctx context.Context, props map[string]interface{}) error {
	return block.SetCommon(ctx, s, utils.AttributeMap(props).Copy())
}

// Close closes the child container.
func (s *Subsystem) Close(ctx context.Context) error {
	return s.c.Close(ctx)
}
