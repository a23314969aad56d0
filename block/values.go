package block

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/silver2row/ctrl/utils"
)

// Stack concatenates scalars and vectors into a single vector. Vectors may be given as []float64,
// []interface{} of scalars or any gonum mat.Vector.
func Stack(values ...interface{}) ([]float64, error) {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		switch x := v.(type) {
		case []float64:
			out = append(out, x...)
		case []interface{}:
			inner, err := Stack(x...)
			if err != nil {
				return nil, err
			}
			out = append(out, inner...)
		case mat.Vector:
			for i := 0; i < x.Len(); i++ {
				out = append(out, x.AtVec(i))
			}
		default:
			f, err := utils.ToFloat64(v)
			if err != nil {
				return nil, errors.Wrap(err, "cannot stack value")
			}
			out = append(out, f)
		}
	}
	return out, nil
}

// Scale multiplies a scalar or vector value by k, returning a value of the same shape.
func Scale(k float64, v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case []float64:
		out := make([]float64, len(x))
		floats.ScaleTo(out, k, x)
		return out, nil
	case mat.Vector:
		var out mat.VecDense
		out.ScaleVec(k, x)
		return &out, nil
	case []interface{}:
		vec, err := Stack(x...)
		if err != nil {
			return nil, err
		}
		floats.Scale(k, vec)
		return vec, nil
	default:
		f, err := utils.ToFloat64(v)
		if err != nil {
			return nil, errors.Wrap(err, "cannot scale value")
		}
		return k * f, nil
	}
}

// Truthy reports whether a signal value should be read as true. Numbers are true when non
// zero, vectors when any entry is non zero, and nil is false.
func Truthy(v interface{}) bool {
	if v == nil {
		return false
	}
	if b, err := utils.ToBool(v); err == nil {
		return b
	}
	vec, err := Stack(v)
	if err != nil {
		return true
	}
	for _, f := range vec {
		if f != 0 {
			return true
		}
	}
	return false
}

func floatsToValues(vec []float64) []interface{} {
	out := make([]interface{}, len(vec))
	for i, f := range vec {
		out[i] = f
	}
	return out
}
