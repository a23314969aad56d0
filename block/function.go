package block

import (
	"context"

	"github.com/pkg/errors"

	"github.com/silver2row/ctrl/utils"
)

// MapFunc transforms a single value.
type MapFunc func(v interface{}) (interface{}, error)

// ApplyFunc combines all values into one.
type ApplyFunc func(values ...interface{}) (interface{}, error)

// Map is a filter that applies a function to each of its inputs.
type Map struct {
	Buffer
	function MapFunc
}

// NewMap returns an enabled Map; a nil function is the identity.
func NewMap(function MapFunc) *Map {
	if function == nil {
		function = func(v interface{}) (interface{}, error) { return v, nil }
	}
	m := &Map{function: function}
	m.Buffer = NewBuffer(m)
	return m
}

// BufferRead leaves the mapped values in place.
func (m *Map) BufferRead(ctx context.Context, buffer []interface{}) ([]interface{}, error) {
	return buffer, nil
}

// BufferWrite maps every written value.
func (m *Map) BufferWrite(ctx context.Context, buffer []interface{}) ([]interface{}, error) {
	out := make([]interface{}, len(buffer))
	for i, v := range buffer {
		y, err := m.function(v)
		if err != nil {
			return nil, errors.Wrapf(err, "map input %d", i)
		}
		out[i] = y
	}
	return out, nil
}

// Set accepts "function" holding a MapFunc or a plain func(interface{}) (interface{}, error).
func (m *Map) Set(ctx context.Context, props map[string]interface{}) error {
	rest := utils.AttributeMap(props).Copy()
	if v, ok := rest.Pop("function"); ok {
		switch f := v.(type) {
		case MapFunc:
			m.function = f
		case func(interface{}) (interface{}, error):
			m.function = f
		default:
			return errors.Errorf("map function has unexpected type %T", v)
		}
	}
	return SetCommon(ctx, m, rest)
}

// Apply is a filter that applies a function to all of its inputs at once and outputs the result.
type Apply struct {
	Buffer
	function ApplyFunc
}

// NewApply returns an enabled Apply. A nil function outputs its first input.
func NewApply(function ApplyFunc) *Apply {
	if function == nil {
		function = func(values ...interface{}) (interface{}, error) {
			if len(values) == 0 {
				return nil, errors.New("apply needs at least one input")
			}
			return values[0], nil
		}
	}
	a := &Apply{function: function}
	a.Buffer = NewBuffer(a)
	return a
}

// BufferRead leaves the result in place.
func (a *Apply) BufferRead(ctx context.Context, buffer []interface{}) ([]interface{}, error) {
	return buffer, nil
}

// BufferWrite applies the function to the written values.
func (a *Apply) BufferWrite(ctx context.Context, buffer []interface{}) ([]interface{}, error) {
	y, err := a.function(buffer...)
	if err != nil {
		return nil, errors.Wrap(err, "apply")
	}
	return []interface{}{y}, nil
}

// Set accepts "function" holding an ApplyFunc or a plain func(...interface{}) (interface{}, error).
func (a *Apply) Set(ctx context.Context, props map[string]interface{}) error {
	rest := utils.AttributeMap(props).Copy()
	if v, ok := rest.Pop("function"); ok {
		switch f := v.(type) {
		case ApplyFunc:
			a.function = f
		case func(...interface{}) (interface{}, error):
			a.function = f
		default:
			return errors.Errorf("apply function has unexpected type %T", v)
		}
	}
	return SetCommon(ctx, a, rest)
}
