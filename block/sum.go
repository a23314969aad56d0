package block

import (
	"context"

	"github.com/pkg/errors"

	"github.com/silver2row/ctrl/utils"
)

type sumOperand rune

const (
	addition    sumOperand = '+'
	subtraction sumOperand = '-'
)

// SumConfig configures a Sum. SumString holds one '+' or '-' per input.
type SumConfig struct {
	SumString string `json:"sum_string"`
}

// Sum is a filter that adds or subtracts its scalar inputs into a single output.
type Sum struct {
	Buffer
	operation []sumOperand
}

// NewSum returns an enabled Sum, failing when the sum string is empty or holds anything but
// '+' and '-'.
func NewSum(cfg SumConfig) (*Sum, error) {
	s := &Sum{}
	if err := s.configure(cfg.SumString); err != nil {
		return nil, err
	}
	s.Buffer = NewBuffer(s, 0.0)
	return s, nil
}

func (s *Sum) configure(sumString string) error {
	if sumString == "" {
		return errors.New("sum block needs a sum_string")
	}
	ops := make([]sumOperand, 0, len(sumString))
	for _, c := range sumString {
		if c != '+' && c != '-' {
			return errors.Errorf("expected +/- for sum block got %c", c)
		}
		ops = append(ops, sumOperand(c))
	}
	s.operation = ops
	return nil
}

// BufferRead leaves the sum in place.
func (s *Sum) BufferRead(ctx context.Context, buffer []interface{}) ([]interface{}, error) {
	return buffer, nil
}

// BufferWrite combines the inputs according to the sum string.
func (s *Sum) BufferWrite(ctx context.Context, buffer []interface{}) ([]interface{}, error) {
	if len(buffer) != len(s.operation) {
		return nil, errors.Errorf("invalid number of inputs for sum block expected %d got %d", len(s.operation), len(buffer))
	}
	y := 0.0
	for i, v := range buffer {
		x, err := utils.ToFloat64(v)
		if err != nil {
			return nil, errors.Wrapf(err, "sum input %d", i)
		}
		switch s.operation[i] {
		case addition:
			y += x
		case subtraction:
			y -= x
		}
	}
	return []interface{}{y}, nil
}

// Properties adds the sum string.
func (s *Sum) Properties() map[string]interface{} {
	props := s.Buffer.Properties()
	props["sum_string"] = s.sumString()
	return props
}

func (s *Sum) sumString() string {
	out := make([]rune, len(s.operation))
	for i, op := range s.operation {
		out[i] = rune(op)
	}
	return string(out)
}

// Set accepts "sum_string".
func (s *Sum) Set(ctx context.Context, props map[string]interface{}) error {
	rest := utils.AttributeMap(props).Copy()
	if v, ok := rest.Pop("sum_string"); ok {
		str, ok := v.(string)
		if !ok {
			return errors.Errorf("sum_string should be a string but got %T", v)
		}
		if err := s.configure(str); err != nil {
			return err
		}
	}
	return SetCommon(ctx, s, rest)
}
