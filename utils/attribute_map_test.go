package utils

import (
	"errors"
	"testing"
	"time"

	"go.viam.com/test"
)

func TestAttributeMapAccessors(t *testing.T) {
	am := AttributeMap{
		"gain":    2,
		"ratio":   0.5,
		"repeat":  true,
		"name":    "clock",
		"badgain": "two",
	}
	test.That(t, am.Has("gain"), test.ShouldBeTrue)
	test.That(t, am.Has("missing"), test.ShouldBeFalse)
	test.That(t, am.Float64("gain", 1), test.ShouldEqual, 2.0)
	test.That(t, am.Float64("ratio", 1), test.ShouldEqual, 0.5)
	test.That(t, am.Float64("badgain", 1), test.ShouldEqual, 1.0)
	test.That(t, am.Int("ratio", 7), test.ShouldEqual, 0)
	test.That(t, am.Int("missing", 7), test.ShouldEqual, 7)
	test.That(t, am.Bool("repeat", false), test.ShouldBeTrue)
	test.That(t, am.Bool("name", false), test.ShouldBeFalse)
	test.That(t, am.String("name"), test.ShouldEqual, "clock")
	test.That(t, am.String("gain"), test.ShouldEqual, "2")
	test.That(t, am.Keys(), test.ShouldResemble, []string{"badgain", "gain", "name", "ratio", "repeat"})

	cp := am.Copy()
	v, ok := cp.Pop("gain")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, 2)
	test.That(t, cp.Has("gain"), test.ShouldBeFalse)
	test.That(t, am.Has("gain"), test.ShouldBeTrue)
}

func TestConversions(t *testing.T) {
	f, err := ToFloat64(int64(3))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f, test.ShouldEqual, 3.0)

	f, err = ToFloat64(true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f, test.ShouldEqual, 1.0)

	_, err = ToFloat64([]float64{1})
	test.That(t, err, test.ShouldBeError, errors.New("expected a number but got []float64"))

	b, err := ToBool(0.0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b, test.ShouldBeFalse)

	b, err = ToBool(2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b, test.ShouldBeTrue)

	_, err = ToBool("yes")
	test.That(t, err, test.ShouldNotBeNil)

	b, err = ToBool("true")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b, test.ShouldBeTrue)

	f, err = ToFloat64("2.5")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f, test.ShouldEqual, 2.5)

	_, err = ToFloat64(nil)
	test.That(t, err, test.ShouldNotBeNil)

	d, err := ParseDuration("250ms")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d, test.ShouldEqual, 250*time.Millisecond)

	d, err = ParseDuration(1.5)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d, test.ShouldEqual, 1500*time.Millisecond)
}

type decodeConfig struct {
	Gain    float64       `json:"gain"`
	Enabled bool          `json:"enabled"`
	Period  time.Duration `json:"period"`
}

func TestDecodeAttributes(t *testing.T) {
	cfg, err := DecodeAttributes(AttributeMap{"gain": 3, "enabled": true, "period": "1s"}, decodeConfig{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg, test.ShouldResemble, decodeConfig{Gain: 3, Enabled: true, Period: time.Second})

	cfg, err = DecodeAttributes(nil, decodeConfig{Gain: 1, Enabled: true})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg, test.ShouldResemble, decodeConfig{Gain: 1, Enabled: true})

	cfg, err = DecodeAttributes(AttributeMap{"enabled": false}, decodeConfig{Gain: 1, Enabled: true})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg, test.ShouldResemble, decodeConfig{Gain: 1})

	_, err = DecodeAttributes(AttributeMap{"gain": 3, "gian": 4}, decodeConfig{})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "invalid options")
	test.That(t, err.Error(), test.ShouldContainSubstring, "gian")
}
