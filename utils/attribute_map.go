// Package utils contains attribute map handling and worker helpers shared by the other packages.
package utils

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// AttributeMap is a convenience wrapper for pulling typed values out of a loosely typed map,
// typically one that came from JSON or from a property update.
type AttributeMap map[string]interface{}

// Has returns whether or not the given name is in the map.
func (am AttributeMap) Has(name string) bool {
	_, has := am[name]
	return has
}

// Copy returns a shallow copy of the map.
func (am AttributeMap) Copy() AttributeMap {
	out := make(AttributeMap, len(am))
	for k, v := range am {
		out[k] = v
	}
	return out
}

// Pop removes name from the map and returns its value.
func (am AttributeMap) Pop(name string) (interface{}, bool) {
	v, ok := am[name]
	if ok {
		delete(am, name)
	}
	return v, ok
}

// Keys returns the keys of the map in sorted order.
func (am AttributeMap) Keys() []string {
	keys := make([]string, 0, len(am))
	for k := range am {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Float64 returns the value at name as a float64, or def when it is missing or not numeric.
func (am AttributeMap) Float64(name string, def float64) float64 {
	x, has := am[name]
	if !has {
		return def
	}
	v, err := ToFloat64(x)
	if err != nil {
		return def
	}
	return v
}

// Int returns the value at name as an int, or def when it is missing or not numeric.
func (am AttributeMap) Int(name string, def int) int {
	x, has := am[name]
	if !has {
		return def
	}
	v, err := ToFloat64(x)
	if err != nil {
		return def
	}
	return int(v)
}

// Bool returns the value at name as a bool, or def when it is missing or not a bool.
func (am AttributeMap) Bool(name string, def bool) bool {
	x, has := am[name]
	if !has {
		return def
	}
	v, ok := x.(bool)
	if !ok {
		return def
	}
	return v
}

// String returns the value at name as a string, or "" when it is missing.
func (am AttributeMap) String(name string) string {
	x, has := am[name]
	if !has || x == nil {
		return ""
	}
	if s, ok := x.(string); ok {
		return s
	}
	return fmt.Sprint(x)
}

// ToFloat64 converts numbers, booleans and numeric strings to a float64.
func ToFloat64(v interface{}) (float64, error) {
	if v == nil {
		return math.NaN(), errors.New("expected a number but got nil")
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return math.NaN(), errors.Errorf("expected a number but got %T", v)
	}
	return f, nil
}

// ToBool converts booleans, numbers and boolean strings to a bool; numbers are true when non
// zero.
func ToBool(v interface{}) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := cast.ToBoolE(x)
		if err != nil {
			return false, errors.Errorf("expected a bool but got %q", x)
		}
		return b, nil
	}
	f, err := ToFloat64(v)
	if err != nil {
		return false, errors.Errorf("expected a bool but got %T", v)
	}
	return f != 0, nil
}

// DecodeAttributes decodes attributes over defaults into a typed config using its json tags.
// Embedded structs are squashed. Any attribute that does not map onto a field of T is an error.
func DecodeAttributes[T any](attributes AttributeMap, defaults T) (T, error) {
	out := defaults
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		ErrorUnused:      true,
		Squash:           true,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return out, err
	}
	if err := decoder.Decode(map[string]interface{}(attributes)); err != nil {
		return out, errors.Wrap(err, "invalid options")
	}
	return out, nil
}

// ParseDuration parses a duration given either as a Go duration string or as a number of seconds.
func ParseDuration(v interface{}) (time.Duration, error) {
	switch x := v.(type) {
	case string:
		return time.ParseDuration(x)
	case time.Duration:
		return x, nil
	default:
		secs, err := ToFloat64(v)
		if err != nil {
			return 0, errors.Errorf("expected a duration but got %T", v)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
}
