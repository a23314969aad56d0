package block

import (
	"context"

	"github.com/silver2row/ctrl/utils"
)

// BufferReader is implemented by buffer blocks that produce output. BufferRead receives the
// current buffer and returns the new one.
type BufferReader interface {
	BufferRead(ctx context.Context, buffer []interface{}) ([]interface{}, error)
}

// BufferWriter is implemented by buffer blocks that consume input. BufferWrite receives the
// values just written and returns what the buffer should hold afterwards.
type BufferWriter interface {
	BufferWrite(ctx context.Context, buffer []interface{}) ([]interface{}, error)
}

// BufferOptions are the options recognized by every buffer block. They are not part of any
// block's own config; WithOptions applies them to a constructed block.
type BufferOptions struct {
	Enabled bool `json:"enabled"`
	Mux     bool `json:"mux"`
	Demux   bool `json:"demux"`
}

// DefaultBufferOptions returns options for an enabled block without mux or demux.
func DefaultBufferOptions() BufferOptions {
	return BufferOptions{Enabled: true}
}

// Buffer implements Read and Write through a local buffer holding the most recent tuple of values.
// The block that embeds it supplies BufferRead and/or BufferWrite; a missing step makes the
// matching operation unsupported.
type Buffer struct {
	Base
	buffer []interface{}
	owner  interface{}
}

// NewBuffer returns an enabled buffer whose steps are implemented by owner, normally the block
// that embeds the buffer. initial is the buffer's starting contents.
func NewBuffer(owner interface{}, initial ...interface{}) Buffer {
	return Buffer{Base: NewBase(true), buffer: initial, owner: owner}
}

// Read runs BufferRead and returns a copy of the buffer.
func (b *Buffer) Read(ctx context.Context) ([]interface{}, error) {
	r, ok := b.owner.(BufferReader)
	if !ok {
		return nil, &UnsupportedOperationError{Block: typeName(b.owner), Operation: "read"}
	}
	if b.Enabled() {
		buf, err := r.BufferRead(ctx, b.buffer)
		if err != nil {
			return nil, err
		}
		b.buffer = buf
	}
	return copyValues(b.buffer), nil
}

// Write copies values into the buffer then runs BufferWrite.
func (b *Buffer) Write(ctx context.Context, values ...interface{}) error {
	w, ok := b.owner.(BufferWriter)
	if !ok {
		return &UnsupportedOperationError{Block: typeName(b.owner), Operation: "write"}
	}
	if !b.Enabled() {
		return nil
	}
	buf, err := w.BufferWrite(ctx, copyValues(values))
	if err != nil {
		return err
	}
	b.buffer = buf
	return nil
}

// Reset does nothing; blocks with state override it.
func (b *Buffer) Reset(ctx context.Context) error {
	return nil
}

// Properties reports the buffer options. The buffer itself is internal.
func (b *Buffer) Properties() map[string]interface{} {
	props := b.Base.Properties()
	props["mux"] = false
	props["demux"] = false
	return props
}

// Set applies the common keys to the owning block.
func (b *Buffer) Set(ctx context.Context, props map[string]interface{}) error {
	var target Block = b
	if owner, ok := b.owner.(Block); ok {
		target = owner
	}
	return SetCommon(ctx, target, utils.AttributeMap(props).Copy())
}

func copyValues(values []interface{}) []interface{} {
	if values == nil {
		return nil
	}
	out := make([]interface{}, len(values))
	copy(out, values)
	return out
}

// ShortCircuit copies its input to its output, y = u.
type ShortCircuit struct {
	Buffer
}

// NewShortCircuit returns an enabled ShortCircuit.
func NewShortCircuit() *ShortCircuit {
	s := &ShortCircuit{}
	s.Buffer = NewBuffer(s)
	return s
}

// BufferRead leaves the buffer untouched.
func (s *ShortCircuit) BufferRead(ctx context.Context, buffer []interface{}) ([]interface{}, error) {
	return buffer, nil
}

// BufferWrite keeps the written values.
func (s *ShortCircuit) BufferWrite(ctx context.Context, buffer []interface{}) ([]interface{}, error) {
	return buffer, nil
}
