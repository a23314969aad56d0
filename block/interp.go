package block

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/interp"

	"github.com/silver2row/ctrl/utils"
)

// InterpConfig configures an Interp. Time must be strictly increasing and as long as Signal.
// Left and Right are output before the first and after the last time point. A positive Period
// makes the signal periodic, in which case Left and Right are unused and the signal runs linearly
// from its last point back to its first one a period after the first time point.
type InterpConfig struct {
	Time   []float64 `json:"time"`
	Signal []float64 `json:"signal"`
	Left   float64   `json:"left"`
	Right  float64   `json:"right"`
	Period float64   `json:"period"`
}

// Interp is a filter whose single input is a clock. It outputs Signal linearly interpolated at
// the time elapsed since the first clock value it was written.
type Interp struct {
	Buffer
	cfg     InterpConfig
	fit     interp.PiecewiseLinear
	origin  float64
	current float64
	started bool
}

// NewInterp returns an enabled Interp, failing when the time and signal vectors do not fit.
func NewInterp(cfg InterpConfig) (*Interp, error) {
	in := &Interp{}
	if err := in.configure(cfg); err != nil {
		return nil, err
	}
	in.Buffer = NewBuffer(in)
	return in, nil
}

func (in *Interp) configure(cfg InterpConfig) error {
	if len(cfg.Time) != len(cfg.Signal) {
		return errors.Errorf("interp time has %d points but signal has %d", len(cfg.Time), len(cfg.Signal))
	}
	if len(cfg.Time) < 2 {
		return errors.Errorf("interp needs at least 2 points got %d", len(cfg.Time))
	}
	for i := 1; i < len(cfg.Time); i++ {
		if !(cfg.Time[i] > cfg.Time[i-1]) {
			return errors.Errorf("interp time should be strictly increasing but time[%d] = %v follows %v",
				i, cfg.Time[i], cfg.Time[i-1])
		}
	}
	var fit interp.PiecewiseLinear
	if err := fit.Fit(cfg.Time, cfg.Signal); err != nil {
		return errors.Wrap(err, "cannot interpolate signal")
	}
	in.cfg = cfg
	in.fit = fit
	return nil
}

// BufferWrite records the clock value.
func (in *Interp) BufferWrite(ctx context.Context, buffer []interface{}) ([]interface{}, error) {
	if len(buffer) != 1 {
		return nil, errors.Errorf("interp expects a single clock input but got %d", len(buffer))
	}
	t, err := utils.ToFloat64(buffer[0])
	if err != nil {
		return nil, errors.Wrap(err, "interp clock")
	}
	in.current = t
	if !in.started {
		in.origin = t
		in.started = true
	}
	return buffer, nil
}

// BufferRead interpolates at the elapsed time.
func (in *Interp) BufferRead(ctx context.Context, buffer []interface{}) ([]interface{}, error) {
	return []interface{}{in.at(in.current - in.origin)}, nil
}

func (in *Interp) at(t float64) float64 {
	first, last := in.cfg.Time[0], in.cfg.Time[len(in.cfg.Time)-1]
	if in.cfg.Period > 0 {
		t = first + math.Mod(t-first, in.cfg.Period)
		if t < first {
			t += in.cfg.Period
		}
		if t > last {
			// wrap from the last point back to the first one a period later
			end := in.cfg.Signal[len(in.cfg.Signal)-1]
			frac := (t - last) / (first + in.cfg.Period - last)
			return end + frac*(in.cfg.Signal[0]-end)
		}
		return in.fit.Predict(t)
	}
	switch {
	case t < first:
		return in.cfg.Left
	case t > last:
		return in.cfg.Right
	default:
		return in.fit.Predict(t)
	}
}

// Reset forgets the time origin.
func (in *Interp) Reset(ctx context.Context) error {
	in.started = false
	in.origin = 0
	in.current = 0
	return nil
}

// Properties adds the interpolation table.
func (in *Interp) Properties() map[string]interface{} {
	props := in.Buffer.Properties()
	props["time"] = append([]float64(nil), in.cfg.Time...)
	props["signal"] = append([]float64(nil), in.cfg.Signal...)
	props["left"] = in.cfg.Left
	props["right"] = in.cfg.Right
	props["period"] = in.cfg.Period
	return props
}

// Set accepts "time", "signal", "left", "right" and "period". Changing the table resets the block.
// Nothing changes when any value is invalid.
func (in *Interp) Set(ctx context.Context, props map[string]interface{}) error {
	rest := utils.AttributeMap(props).Copy()
	cfg := in.cfg
	tableChanged := false
	for _, key := range []string{"time", "signal"} {
		v, ok := rest.Pop(key)
		if !ok {
			continue
		}
		vec, err := Stack(v)
		if err != nil {
			return errors.Wrap(err, key)
		}
		if key == "time" {
			cfg.Time = vec
		} else {
			cfg.Signal = vec
		}
		tableChanged = true
	}
	for _, key := range []string{"left", "right", "period"} {
		v, ok := rest.Pop(key)
		if !ok {
			continue
		}
		f, err := utils.ToFloat64(v)
		if err != nil {
			return errors.Wrap(err, key)
		}
		switch key {
		case "left":
			cfg.Left = f
		case "right":
			cfg.Right = f
		case "period":
			cfg.Period = f
		}
	}
	if err := in.configure(cfg); err != nil {
		return err
	}
	if tableChanged {
		if err := in.Reset(ctx); err != nil {
			return err
		}
	}
	return SetCommon(ctx, in, rest)
}
