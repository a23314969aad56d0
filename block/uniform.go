package block

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/silver2row/ctrl/utils"
)

// UniformConfig configures a Uniform. A zero Seed seeds from the wall clock.
type UniformConfig struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
	Seed uint64  `json:"seed"`
	M    int     `json:"m"`
}

// DefaultUniformConfig draws one value from [0, 1).
func DefaultUniformConfig() UniformConfig {
	return UniformConfig{High: 1, M: 1}
}

// Uniform is a source of uniformly distributed random values. With M equal to one it outputs a
// scalar, otherwise a vector of M values.
type Uniform struct {
	Buffer
	cfg  UniformConfig
	dist distuv.Uniform
}

// NewUniform returns an enabled Uniform.
func NewUniform(cfg UniformConfig) (*Uniform, error) {
	u := &Uniform{}
	if err := u.configure(cfg); err != nil {
		return nil, err
	}
	u.Buffer = NewBuffer(u)
	return u, nil
}

func (u *Uniform) configure(cfg UniformConfig) error {
	if cfg.High < cfg.Low {
		return errors.Errorf("uniform high %v is below low %v", cfg.High, cfg.Low)
	}
	if cfg.M < 1 {
		return errors.Errorf("uniform m should be at least 1 got %d", cfg.M)
	}
	u.cfg = cfg
	u.seed()
	return nil
}

func (u *Uniform) seed() {
	seed := u.cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	u.dist = distuv.Uniform{Min: u.cfg.Low, Max: u.cfg.High, Src: rand.NewPCG(seed, seed)}
}

// BufferRead draws new values.
func (u *Uniform) BufferRead(ctx context.Context, buffer []interface{}) ([]interface{}, error) {
	if u.cfg.M == 1 {
		return []interface{}{u.dist.Rand()}, nil
	}
	vec := make([]float64, u.cfg.M)
	for i := range vec {
		vec[i] = u.dist.Rand()
	}
	return []interface{}{vec}, nil
}

// Reset reseeds the generator so a fixed seed replays the same draws.
func (u *Uniform) Reset(ctx context.Context) error {
	u.seed()
	return nil
}

// Properties adds low, high, seed and m.
func (u *Uniform) Properties() map[string]interface{} {
	props := u.Buffer.Properties()
	props["low"] = u.cfg.Low
	props["high"] = u.cfg.High
	props["seed"] = u.cfg.Seed
	props["m"] = u.cfg.M
	return props
}

// Set accepts "low", "high", "seed" and "m".
func (u *Uniform) Set(ctx context.Context, props map[string]interface{}) error {
	rest := utils.AttributeMap(props).Copy()
	cfg := u.cfg
	changed := false
	for _, key := range []string{"low", "high", "seed", "m"} {
		v, ok := rest.Pop(key)
		if !ok {
			continue
		}
		f, err := utils.ToFloat64(v)
		if err != nil {
			return errors.Wrap(err, key)
		}
		switch key {
		case "low":
			cfg.Low = f
		case "high":
			cfg.High = f
		case "seed":
			cfg.Seed = uint64(f)
		case "m":
			cfg.M = int(f)
		}
		changed = true
	}
	if changed {
		if err := u.configure(cfg); err != nil {
			return err
		}
	}
	return SetCommon(ctx, u, rest)
}
