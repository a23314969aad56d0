// Package block defines the capability contract shared by every schedulable block, the buffer
// plumbing most blocks are built on, and a library of general purpose blocks.
package block

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/silver2row/ctrl/utils"
)

// Kind is the category a block is registered under in a container.
type Kind string

// The four block categories.
const (
	KindSource Kind = "source"
	KindFilter Kind = "filter"
	KindSink   Kind = "sink"
	KindTimer  Kind = "timer"
)

// Kinds lists every category in execution order.
var Kinds = []Kind{KindSource, KindFilter, KindTimer, KindSink}

// Block is the capability set every schedulable unit supports.
type Block interface {
	// Read returns the block's current output values. Disabled blocks return their last
	// output without recomputing.
	Read(ctx context.Context) ([]interface{}, error)

	// Write hands input values to the block. Disabled blocks ignore writes.
	Write(ctx context.Context, values ...interface{}) error

	// Reset returns internal state to its initial condition. It does not touch the enabled
	// flag or configured parameters.
	Reset(ctx context.Context) error

	// Properties returns a fresh map of every introspectable property. Internal state such as
	// buffers and log data is never included.
	Properties() map[string]interface{}

	// Set updates properties. The key "reset" resets the block when true, "enabled" toggles
	// it; keys the block does not recognize fail with an UnsupportedPropertyError.
	Set(ctx context.Context, props map[string]interface{}) error

	Enabled() bool
	SetEnabled(enabled bool)
}

// Closer is implemented by blocks holding resources that must be released when they are
// removed from their container.
type Closer interface {
	Close(ctx context.Context) error
}

// Wrapper is implemented by blocks that decorate another block.
type Wrapper interface {
	Unwrap() Block
}

// Unwrap strips every wrapper from b.
func Unwrap(b Block) Block {
	for {
		w, ok := b.(Wrapper)
		if !ok {
			return b
		}
		b = w.Unwrap()
	}
}

// Close closes b, or the block it wraps, when it is a Closer.
func Close(ctx context.Context, b Block) error {
	if c, ok := Unwrap(b).(Closer); ok {
		return c.Close(ctx)
	}
	return nil
}

// Base carries the enabled flag.
type Base struct {
	enabled bool
}

// NewBase returns a Base with the given enabled state.
func NewBase(enabled bool) Base {
	return Base{enabled: enabled}
}

// Enabled returns whether the block is enabled.
func (b *Base) Enabled() bool {
	return b.enabled
}

// SetEnabled enables or disables the block.
func (b *Base) SetEnabled(enabled bool) {
	b.enabled = enabled
}

// Properties returns the enabled flag.
func (b *Base) Properties() map[string]interface{} {
	return map[string]interface{}{"enabled": b.enabled}
}

// SetCommon applies the keys shared by every block to b: "reset" then "enabled". Any key left in
// props afterwards is unsupported. props is consumed.
func SetCommon(ctx context.Context, b Block, props utils.AttributeMap) error {
	if v, ok := props.Pop("reset"); ok {
		reset, err := utils.ToBool(v)
		if err != nil {
			return errors.Wrap(err, "reset")
		}
		if reset {
			if err := b.Reset(ctx); err != nil {
				return err
			}
		}
	}
	if v, ok := props.Pop("enabled"); ok {
		enabled, err := utils.ToBool(v)
		if err != nil {
			return errors.Wrap(err, "enabled")
		}
		b.SetEnabled(enabled)
	}
	if len(props) > 0 {
		return &UnsupportedPropertyError{Keys: props.Keys()}
	}
	return nil
}

// GetProperties returns the properties of b named by keys, or all of them when keys is empty.
// Properties named in exclude are never returned; asking for one is an UnknownKeyError.
func GetProperties(b Block, keys []string, exclude ...string) (map[string]interface{}, error) {
	props := b.Properties()
	for _, k := range exclude {
		delete(props, k)
	}
	if len(keys) == 0 {
		return props, nil
	}
	out := make(map[string]interface{}, len(keys))
	for _, k := range keys {
		v, ok := props[k]
		if !ok {
			return nil, &UnknownKeyError{Key: k}
		}
		out[k] = v
	}
	return out, nil
}

// GetProperty returns the single property key of b.
func GetProperty(b Block, key string, exclude ...string) (interface{}, error) {
	props, err := GetProperties(b, []string{key}, exclude...)
	if err != nil {
		return nil, err
	}
	return props[key], nil
}

func typeName(b interface{}) string {
	return fmt.Sprintf("%T", b)
}
