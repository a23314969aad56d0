package block

import (
	"context"

	"github.com/pkg/errors"

	"github.com/silver2row/ctrl/utils"
)

// SequenceConfig configures a Sequence.
type SequenceConfig struct {
	Signal []float64 `json:"signal"`
	Repeat bool      `json:"repeat"`
}

// Sequence is a source that outputs the entries of a vector one per read. Past the end it
// outputs 0, unless Repeat is set, in which case it starts over.
type Sequence struct {
	Buffer
	signal []float64
	repeat bool
	index  int
}

// NewSequence returns an enabled Sequence.
func NewSequence(cfg SequenceConfig) *Sequence {
	s := &Sequence{signal: append([]float64(nil), cfg.Signal...), repeat: cfg.Repeat}
	s.Buffer = NewBuffer(s)
	return s
}

// BufferRead emits the next entry.
func (s *Sequence) BufferRead(ctx context.Context, buffer []interface{}) ([]interface{}, error) {
	if s.index >= len(s.signal) {
		return []interface{}{0.0}, nil
	}
	xk := s.signal[s.index]
	s.index++
	if s.repeat && s.index == len(s.signal) {
		s.index = 0
	}
	return []interface{}{xk}, nil
}

// Reset rewinds to the first entry.
func (s *Sequence) Reset(ctx context.Context) error {
	s.index = 0
	return nil
}

// Properties adds signal, repeat and index.
func (s *Sequence) Properties() map[string]interface{} {
	props := s.Buffer.Properties()
	props["signal"] = append([]float64(nil), s.signal...)
	props["repeat"] = s.repeat
	props["index"] = s.index
	return props
}

// Set accepts "signal" (rewinding), "index" and "repeat".
func (s *Sequence) Set(ctx context.Context, props map[string]interface{}) error {
	rest := utils.AttributeMap(props).Copy()
	if v, ok := rest.Pop("signal"); ok {
		signal, err := Stack(v)
		if err != nil {
			return errors.Wrap(err, "signal")
		}
		s.signal = signal
		s.index = 0
	}
	if v, ok := rest.Pop("index"); ok {
		f, err := utils.ToFloat64(v)
		if err != nil {
			return errors.Wrap(err, "index")
		}
		index := int(f)
		switch {
		case s.repeat && len(s.signal) > 0:
			index %= len(s.signal)
			if index < 0 {
				index += len(s.signal)
			}
		case index < 0 || index >= len(s.signal):
			return errors.Errorf("index %d out of range [0, %d)", index, len(s.signal))
		}
		s.index = index
	}
	if v, ok := rest.Pop("repeat"); ok {
		repeat, err := utils.ToBool(v)
		if err != nil {
			return errors.Wrap(err, "repeat")
		}
		s.repeat = repeat
	}
	return SetCommon(ctx, s, rest)
}
