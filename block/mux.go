package block

import (
	"context"
)

type muxBlock struct {
	Block
}

// Mux wraps b so that every Write stacks its values into a single []float64 before passing
// them on.
func Mux(b Block) Block {
	return &muxBlock{Block: b}
}

func (m *muxBlock) Unwrap() Block {
	return m.Block
}

func (m *muxBlock) Write(ctx context.Context, values ...interface{}) error {
	if len(values) == 0 || !m.Enabled() {
		return m.Block.Write(ctx, values...)
	}
	vec, err := Stack(values...)
	if err != nil {
		return err
	}
	return m.Block.Write(ctx, vec)
}

func (m *muxBlock) Properties() map[string]interface{} {
	props := m.Block.Properties()
	props["mux"] = true
	return props
}

type demuxBlock struct {
	Block
}

// Demux wraps b so that every Read splits the values it returns into scalars.
func Demux(b Block) Block {
	return &demuxBlock{Block: b}
}

func (d *demuxBlock) Unwrap() Block {
	return d.Block
}

func (d *demuxBlock) Read(ctx context.Context) ([]interface{}, error) {
	values, err := d.Block.Read(ctx)
	if err != nil || len(values) == 0 {
		return values, err
	}
	vec, err := Stack(values...)
	if err != nil {
		return nil, err
	}
	return floatsToValues(vec), nil
}

func (d *demuxBlock) Properties() map[string]interface{} {
	props := d.Block.Properties()
	props["demux"] = true
	return props
}

// WithOptions applies opts to b: it sets the enabled flag and wraps b with Mux and/or Demux.
func WithOptions(b Block, opts BufferOptions) Block {
	b.SetEnabled(opts.Enabled)
	if opts.Mux {
		b = Mux(b)
	}
	if opts.Demux {
		b = Demux(b)
	}
	return b
}
