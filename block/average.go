package block

import (
	"context"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"github.com/silver2row/ctrl/utils"
)

// AverageConfig configures an Average.
type AverageConfig struct {
	Window int `json:"window"`
}

// Average is a filter that outputs the moving average of the last Window samples of each of its
// scalar inputs.
type Average struct {
	Buffer
	window  int
	history [][]float64
}

// NewAverage returns an enabled Average, failing on a window smaller than one sample.
func NewAverage(cfg AverageConfig) (*Average, error) {
	if cfg.Window < 1 {
		return nil, errors.Errorf("average window should be at least 1 got %d", cfg.Window)
	}
	a := &Average{window: cfg.Window}
	a.Buffer = NewBuffer(a)
	return a, nil
}

// BufferRead leaves the averages in place.
func (a *Average) BufferRead(ctx context.Context, buffer []interface{}) ([]interface{}, error) {
	return buffer, nil
}

// BufferWrite pushes each input into its window and averages it.
func (a *Average) BufferWrite(ctx context.Context, buffer []interface{}) ([]interface{}, error) {
	if len(a.history) != len(buffer) {
		a.history = make([][]float64, len(buffer))
	}
	out := make([]interface{}, len(buffer))
	for i, v := range buffer {
		x, err := utils.ToFloat64(v)
		if err != nil {
			return nil, errors.Wrapf(err, "average input %d", i)
		}
		h := append(a.history[i], x)
		if len(h) > a.window {
			h = h[len(h)-a.window:]
		}
		a.history[i] = h
		mean, err := stats.Mean(stats.Float64Data(h))
		if err != nil {
			return nil, err
		}
		out[i] = mean
	}
	return out, nil
}

// Reset clears the windows.
func (a *Average) Reset(ctx context.Context) error {
	a.history = nil
	return nil
}

// Properties adds the window size.
func (a *Average) Properties() map[string]interface{} {
	props := a.Buffer.Properties()
	props["window"] = a.window
	return props
}

// Set accepts "window", which also clears the history.
func (a *Average) Set(ctx context.Context, props map[string]interface{}) error {
	rest := utils.AttributeMap(props).Copy()
	if v, ok := rest.Pop("window"); ok {
		f, err := utils.ToFloat64(v)
		if err != nil {
			return errors.Wrap(err, "window")
		}
		if int(f) < 1 {
			return errors.Errorf("average window should be at least 1 got %d", int(f))
		}
		a.window = int(f)
		a.history = nil
	}
	return SetCommon(ctx, a, rest)
}
