package block

import (
	"context"

	"github.com/pkg/errors"

	"github.com/silver2row/ctrl/utils"
)

// GainConfig configures a Gain.
type GainConfig struct {
	Gain float64 `json:"gain"`
}

// Gain is a filter that multiplies every input by a constant, y = k*u. Inputs may be scalars or
// vectors.
type Gain struct {
	Buffer
	gain float64
}

// NewGain returns an enabled Gain.
func NewGain(cfg GainConfig) *Gain {
	g := &Gain{gain: cfg.Gain}
	g.Buffer = NewBuffer(g)
	return g
}

// BufferRead leaves the scaled values in place.
func (g *Gain) BufferRead(ctx context.Context, buffer []interface{}) ([]interface{}, error) {
	return buffer, nil
}

// BufferWrite scales each written value.
func (g *Gain) BufferWrite(ctx context.Context, buffer []interface{}) ([]interface{}, error) {
	out := make([]interface{}, len(buffer))
	for i, v := range buffer {
		y, err := Scale(g.gain, v)
		if err != nil {
			return nil, errors.Wrapf(err, "gain input %d", i)
		}
		out[i] = y
	}
	return out, nil
}

// Properties adds the gain.
func (g *Gain) Properties() map[string]interface{} {
	props := g.Buffer.Properties()
	props["gain"] = g.gain
	return props
}

// Set accepts "gain".
func (g *Gain) Set(ctx context.Context, props map[string]interface{}) error {
	rest := utils.AttributeMap(props).Copy()
	if v, ok := rest.Pop("gain"); ok {
		k, err := utils.ToFloat64(v)
		if err != nil {
			return errors.Wrap(err, "gain")
		}
		g.gain = k
	}
	return SetCommon(ctx, g, rest)
}
