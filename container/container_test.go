package container

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/silver2row/ctrl/block"
	"github.com/silver2row/ctrl/logging"
)

func TestSignals(t *testing.T) {
	c := New(logging.NewTestLogger(t))
	test.That(t, c.AddSignals("x", "y"), test.ShouldBeNil)
	test.That(t, c.ListSignals(), test.ShouldResemble, []string{"x", "y"})

	err := c.AddSignal("x")
	test.That(t, block.IsDuplicateSignalError(err), test.ShouldBeTrue)

	v, err := c.Signal("x")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, 0.0)

	test.That(t, c.SetSignal("x", []float64{1, 2}), test.ShouldBeNil)
	v, err = c.Signal("x")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldResemble, []float64{1, 2})

	_, err = c.Signal("z")
	test.That(t, block.IsUnknownSignalError(err), test.ShouldBeTrue)
	test.That(t, block.IsUnknownSignalError(c.SetSignal("z", 1)), test.ShouldBeTrue)
	test.That(t, block.IsUnknownSignalError(c.RemoveSignal("z")), test.ShouldBeTrue)

	test.That(t, c.RemoveSignal("x"), test.ShouldBeNil)
	test.That(t, c.ListSignals(), test.ShouldResemble, []string{"y"})
	test.That(t, c.HasSignal("x"), test.ShouldBeFalse)
}

func TestSignalInUse(t *testing.T) {
	ctx := context.Background()
	c := New(logging.NewTestLogger(t))
	test.That(t, c.AddSignals("x", "y"), test.ShouldBeNil)
	test.That(t, c.AddFilter("g", block.NewGain(block.GainConfig{Gain: 2}), []string{"x"}, []string{"y"}), test.ShouldBeNil)

	for _, name := range []string{"x", "y"} {
		err := c.RemoveSignal(name)
		test.That(t, block.IsSignalInUseError(err), test.ShouldBeTrue)
		var inUse *block.SignalInUseError
		test.That(t, errors.As(err, &inUse), test.ShouldBeTrue)
		test.That(t, inUse.Kind, test.ShouldEqual, block.KindFilter)
		test.That(t, inUse.Label, test.ShouldEqual, "g")
	}

	test.That(t, c.RemoveFilter("g"), test.ShouldBeNil)
	test.That(t, c.RemoveSignal("x"), test.ShouldBeNil)
	test.That(t, c.RemoveSignal("y"), test.ShouldBeNil)
	test.That(t, block.IsUnknownBlockError(c.RemoveFilter("g")), test.ShouldBeTrue)
	test.That(t, c.Run(ctx), test.ShouldBeNil)
}

func TestRegistration(t *testing.T) {
	c := New(logging.NewTestLogger(t))
	test.That(t, c.AddSignals("a", "b", "c"), test.ShouldBeNil)

	err := c.AddSource("src", block.NewConstant(block.ConstantConfig{}), []string{"missing"})
	test.That(t, block.IsUnknownSignalError(err), test.ShouldBeTrue)
	test.That(t, c.ListSources(), test.ShouldBeEmpty)

	test.That(t, c.AddFilter("f1", block.NewGain(block.GainConfig{Gain: 1}), []string{"a"}, []string{"b"}), test.ShouldBeNil)
	test.That(t, c.AddFilter("f2", block.NewShortCircuit(), []string{"b"}, []string{"c"}), test.ShouldBeNil)
	test.That(t, c.AddFilter("f1", block.NewShortCircuit(), []string{"c"}, []string{"a"}), test.ShouldBeNil)
	if diff := cmp.Diff([]string{"f2", "f1"}, c.ListFilters()); diff != "" {
		t.Errorf("unexpected filters (-want +got):\n%s", diff)
	}

	b, err := c.Block(block.KindFilter, "f1")
	test.That(t, err, test.ShouldBeNil)
	_, ok := b.(*block.ShortCircuit)
	test.That(t, ok, test.ShouldBeTrue)

	// the same label may be used by every kind
	test.That(t, c.AddSource("f1", block.NewConstant(block.ConstantConfig{}), []string{"a"}), test.ShouldBeNil)
	test.That(t, c.AddSink("f1", block.NewShortCircuit(), []string{"a"}), test.ShouldBeNil)
	test.That(t, c.AddTimer("f1", block.NewShortCircuit(), []string{"a"}, []string{"b"}, time.Second, true), test.ShouldBeNil)
	test.That(t, c.ListSources(), test.ShouldResemble, []string{"f1"})
	test.That(t, c.ListSinks(), test.ShouldResemble, []string{"f1"})
	test.That(t, c.ListTimers(), test.ShouldResemble, []string{"f1"})

	test.That(t, c.AddSink("nil", nil, nil), test.ShouldNotBeNil)
	test.That(t, c.AddTimer("neg", block.NewShortCircuit(), nil, nil, -time.Second, true), test.ShouldNotBeNil)
}

func TestProperties(t *testing.T) {
	ctx := context.Background()
	c := New(logging.NewTestLogger(t))
	test.That(t, c.AddSignals("x", "y"), test.ShouldBeNil)
	test.That(t, c.AddFilter("g", block.NewGain(block.GainConfig{Gain: 2}), []string{"x"}, []string{"y"}), test.ShouldBeNil)

	props, err := c.GetFilter("g")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, props["gain"], test.ShouldEqual, 2.0)
	test.That(t, props["enabled"], test.ShouldEqual, true)

	k, err := c.GetFilterProperty("g", "gain")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, k, test.ShouldEqual, 2.0)

	_, err = c.GetFilterProperty("g", "nope")
	test.That(t, block.IsUnknownKeyError(err), test.ShouldBeTrue)
	_, err = c.GetSource("g")
	test.That(t, block.IsUnknownBlockError(err), test.ShouldBeTrue)

	test.That(t, c.SetFilter(ctx, "g", map[string]interface{}{"gain": 5, "enabled": false}), test.ShouldBeNil)
	props, err = c.GetFilter("g", "gain", "enabled")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, props, test.ShouldResemble, map[string]interface{}{"gain": 5.0, "enabled": false})

	props, err = c.GetExcluding(block.KindFilter, "g", nil, "mux", "demux")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, props, test.ShouldResemble, map[string]interface{}{"gain": 5.0, "enabled": false})
	_, err = c.GetExcluding(block.KindFilter, "g", []string{"gain", "mux"}, "mux")
	test.That(t, block.IsUnknownKeyError(err), test.ShouldBeTrue)

	err = c.SetFilter(ctx, "g", map[string]interface{}{"bogus": 1})
	test.That(t, block.IsUnsupportedPropertyError(err), test.ShouldBeTrue)

	test.That(t, c.AddTimer("t", block.NewConstant(block.ConstantConfig{}), nil, []string{"x"}, time.Second, false), test.ShouldBeNil)
	props, err = c.GetTimer("t", "period", "repeat", "value")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, props, test.ShouldResemble, map[string]interface{}{"period": 1.0, "repeat": false, "value": 1.0})
	test.That(t, c.SetTimer(ctx, "t", map[string]interface{}{"period": "2s", "repeat": true, "value": 3.0}), test.ShouldBeNil)
	period, err := c.GetTimerProperty("t", "period")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, period, test.ShouldEqual, 2.0)
	value, err := c.GetTimerProperty("t", "value")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, value, test.ShouldEqual, 3.0)

	props, err = c.GetExcluding(block.KindTimer, "t", nil, "period")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, props, test.ShouldNotContainKey, "period")
	test.That(t, props["repeat"], test.ShouldEqual, true)
}

func TestGainRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := New(logging.NewTestLogger(t))
	test.That(t, c.AddSignals("x", "y"), test.ShouldBeNil)
	test.That(t, c.AddSource("x", block.NewSequence(block.SequenceConfig{Signal: []float64{1.5, -4}}), []string{"x"}), test.ShouldBeNil)
	test.That(t, c.AddFilter("g", block.NewGain(block.GainConfig{Gain: 2}), []string{"x"}, []string{"y"}), test.ShouldBeNil)
	logger, err := block.NewLogger(block.DefaultLoggerConfig())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.AddSink("log", logger, []string{"x", "y"}), test.ShouldBeNil)

	test.That(t, c.Run(ctx), test.ShouldBeNil)
	test.That(t, c.Run(ctx), test.ShouldBeNil)

	values, err := c.ReadSink(ctx, "log")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, values, test.ShouldHaveLength, 1)
	log := logger.Log()
	rows, cols := log.Dims()
	test.That(t, rows, test.ShouldEqual, 2)
	test.That(t, cols, test.ShouldEqual, 2)
	for i := 0; i < rows; i++ {
		test.That(t, log.At(i, 1)/log.At(i, 0), test.ShouldAlmostEqual, 2.0, 1e-6)
	}
}

func TestTimerFiring(t *testing.T) {
	ctx := context.Background()
	mock := clock.NewMock()
	c := New(logging.NewTestLogger(t), WithClock(mock))
	test.That(t, c.AddSignal(IsRunningSignal), test.ShouldBeNil)
	test.That(t, c.AddTimer("stop", block.NewConstant(block.ConstantConfig{Value: 0.0}), nil, []string{IsRunningSignal}, time.Second, false), test.ShouldBeNil)
	test.That(t, c.Start(ctx), test.ShouldBeNil)
	test.That(t, c.IsRunning(), test.ShouldBeTrue)

	test.That(t, c.Run(ctx), test.ShouldBeNil)
	v, err := c.Signal(IsRunningSignal)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, 1.0)

	mock.Add(999 * time.Millisecond)
	test.That(t, c.Run(ctx), test.ShouldBeNil)
	test.That(t, c.IsRunning(), test.ShouldBeTrue)

	mock.Add(time.Millisecond)
	test.That(t, c.Run(ctx), test.ShouldBeNil)
	v, err = c.Signal(IsRunningSignal)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, 0.0)
	test.That(t, c.IsRunning(), test.ShouldBeFalse)

	enabled, err := c.GetTimerProperty("stop", "enabled")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, enabled, test.ShouldEqual, false)

	test.That(t, c.SetSignal(IsRunningSignal, 1.0), test.ShouldBeNil)
	mock.Add(5 * time.Second)
	test.That(t, c.Run(ctx), test.ShouldBeNil)
	v, err = c.Signal(IsRunningSignal)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, 1.0)
}

func TestRepeatingTimer(t *testing.T) {
	ctx := context.Background()
	mock := clock.NewMock()
	c := New(logging.NewTestLogger(t), WithClock(mock))
	test.That(t, c.AddSignals("n", "m"), test.ShouldBeNil)
	test.That(t, c.AddTimer("count", block.NewSequence(block.SequenceConfig{Signal: []float64{1, 2, 3}}), nil, []string{"n"}, 100*time.Millisecond, true), test.ShouldBeNil)
	test.That(t, c.AddTimer("double", block.NewGain(block.GainConfig{Gain: 2}), []string{"n"}, []string{"m"}, 100*time.Millisecond, true), test.ShouldBeNil)
	test.That(t, c.Start(ctx), test.ShouldBeNil)

	var got []interface{}
	for i := 0; i < 6; i++ {
		mock.Add(50 * time.Millisecond)
		test.That(t, c.Run(ctx), test.ShouldBeNil)
		v, err := c.Signal("m")
		test.That(t, err, test.ShouldBeNil)
		got = append(got, v)
	}
	test.That(t, got, test.ShouldResemble, []interface{}{0.0, 2.0, 2.0, 4.0, 4.0, 6.0})
}

func TestEnableDisableFreeze(t *testing.T) {
	ctx := context.Background()
	c := New(logging.NewTestLogger(t))
	test.That(t, c.AddSignal("x"), test.ShouldBeNil)
	test.That(t, c.AddSource("seq", block.NewSequence(block.SequenceConfig{Signal: []float64{1, 2, 3}}), []string{"x"}), test.ShouldBeNil)

	test.That(t, c.Run(ctx), test.ShouldBeNil)
	before, err := c.ReadSource(ctx, "seq")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, before, test.ShouldResemble, []interface{}{2.0})

	test.That(t, c.SetSource(ctx, "seq", map[string]interface{}{"enabled": false}), test.ShouldBeNil)
	after, err := c.ReadSource(ctx, "seq")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, after, test.ShouldResemble, before)
	test.That(t, c.Run(ctx), test.ShouldBeNil)
	x, err := c.Signal("x")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, x, test.ShouldEqual, 1.0)

	test.That(t, c.SetSource(ctx, "seq", map[string]interface{}{"enabled": true}), test.ShouldBeNil)
	test.That(t, c.Run(ctx), test.ShouldBeNil)
	x, err = c.Signal("x")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, x, test.ShouldEqual, 3.0)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	c := New(logging.NewTestLogger(t))
	test.That(t, c.AddSignals("x", "y", IsRunningSignal), test.ShouldBeNil)
	test.That(t, c.AddSource("x", block.NewConstant(block.ConstantConfig{}), []string{"x"}), test.ShouldBeNil)
	test.That(t, c.AddFilter("g", block.NewGain(block.GainConfig{Gain: 2}), []string{"x"}, []string{"y"}), test.ShouldBeNil)
	test.That(t, c.AddSink("s", block.NewShortCircuit(), []string{"y"}), test.ShouldBeNil)
	test.That(t, c.AddTimer("t", block.NewShortCircuit(), []string{"y"}, nil, time.Second, true), test.ShouldBeNil)
	test.That(t, c.Start(ctx), test.ShouldBeNil)

	c.Reset()
	fresh := New(logging.NewTestLogger(t))
	test.That(t, c.ListSignals(), test.ShouldResemble, fresh.ListSignals())
	test.That(t, c.ListSources(), test.ShouldResemble, fresh.ListSources())
	test.That(t, c.ListFilters(), test.ShouldResemble, fresh.ListFilters())
	test.That(t, c.ListSinks(), test.ShouldResemble, fresh.ListSinks())
	test.That(t, c.ListTimers(), test.ShouldResemble, fresh.ListTimers())
	test.That(t, c.ListSignals(), test.ShouldBeEmpty)
	test.That(t, c.IsRunning(), test.ShouldBeFalse)
}

type failing struct {
	block.Base
}

func (f *failing) Read(ctx context.Context) ([]interface{}, error) {
	return nil, errors.New("sensor unplugged")
}

func (f *failing) Write(ctx context.Context, values ...interface{}) error { return nil }
func (f *failing) Reset(ctx context.Context) error                       { return nil }
func (f *failing) Set(ctx context.Context, props map[string]interface{}) error {
	return nil
}

func TestRunFailureKeepsEarlierWrites(t *testing.T) {
	ctx := context.Background()
	c := New(logging.NewTestLogger(t))
	test.That(t, c.AddSignals("x", "y", "z"), test.ShouldBeNil)
	test.That(t, c.AddSource("x", block.NewConstant(block.ConstantConfig{Value: 4.0}), []string{"x"}), test.ShouldBeNil)
	test.That(t, c.AddFilter("g", block.NewGain(block.GainConfig{Gain: 2}), []string{"x"}, []string{"y"}), test.ShouldBeNil)
	test.That(t, c.AddFilter("bad", &failing{Base: block.NewBase(true)}, []string{"y"}, []string{"z"}), test.ShouldBeNil)
	test.That(t, c.AddSink("after", block.NewGain(block.GainConfig{Gain: 1}), []string{"y"}), test.ShouldBeNil)

	err := c.Run(ctx)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `filter "bad"`)
	test.That(t, err.Error(), test.ShouldContainSubstring, "sensor unplugged")

	y, err := c.Signal("y")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, y, test.ShouldEqual, 8.0)
	z, err := c.Signal("z")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, z, test.ShouldEqual, 0.0)

	after, err := c.ReadSink(ctx, "after")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, after, test.ShouldBeEmpty)
}

func TestPortMismatch(t *testing.T) {
	ctx := context.Background()
	c := New(logging.NewTestLogger(t))
	test.That(t, c.AddSignals("a", "b"), test.ShouldBeNil)
	test.That(t, c.AddSource("two", block.NewConstant(block.ConstantConfig{}), []string{"a", "b"}), test.ShouldBeNil)
	err := c.Run(ctx)
	test.That(t, block.IsPortMismatchError(err), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "produced 1 values for 2 outputs")
}

func TestEmptyPorts(t *testing.T) {
	ctx := context.Background()
	c := New(logging.NewTestLogger(t))
	test.That(t, c.AddSink("nothing", block.NewShortCircuit(), nil), test.ShouldBeNil)
	test.That(t, c.AddFilter("gen", block.NewShortCircuit(), nil, nil), test.ShouldBeNil)
	test.That(t, c.Run(ctx), test.ShouldBeNil)
}

func TestStartStop(t *testing.T) {
	ctx := context.Background()
	c := New(logging.NewTestLogger(t))
	test.That(t, c.IsRunning(), test.ShouldBeFalse)
	test.That(t, c.Start(ctx), test.ShouldBeNil)
	test.That(t, c.IsRunning(), test.ShouldBeTrue)

	test.That(t, c.AddSignal(IsRunningSignal), test.ShouldBeNil)
	test.That(t, c.IsRunning(), test.ShouldBeFalse)
	test.That(t, c.Start(ctx), test.ShouldBeNil)
	test.That(t, c.IsRunning(), test.ShouldBeTrue)

	test.That(t, c.Stop(ctx), test.ShouldBeNil)
	test.That(t, c.IsRunning(), test.ShouldBeFalse)
	v, err := c.Signal(IsRunningSignal)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, 0.0)
}

func TestDirectIO(t *testing.T) {
	ctx := context.Background()
	c := New(logging.NewTestLogger(t))
	test.That(t, c.AddSignals("x", "y"), test.ShouldBeNil)
	test.That(t, c.AddFilter("g", block.NewGain(block.GainConfig{Gain: 3}), []string{"x"}, []string{"y"}), test.ShouldBeNil)
	test.That(t, c.AddSink("s", block.NewShortCircuit(), []string{"y"}), test.ShouldBeNil)

	test.That(t, c.WriteFilter(ctx, "g", 2.0), test.ShouldBeNil)
	out, err := c.ReadFilter(ctx, "g")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldResemble, []interface{}{6.0})

	test.That(t, c.WriteSink(ctx, "s", 1.0), test.ShouldBeNil)
	out, err = c.ReadSink(ctx, "s")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldResemble, []interface{}{1.0})

	_, err = c.ReadSink(ctx, "nope")
	test.That(t, block.IsUnknownBlockError(err), test.ShouldBeTrue)
}

func TestInfo(t *testing.T) {
	c := New(logging.NewTestLogger(t))
	test.That(t, c.AddSignals("x", "y"), test.ShouldBeNil)
	test.That(t, c.AddFilter("double", block.NewGain(block.GainConfig{Gain: 2}), []string{"x"}, []string{"y"}), test.ShouldBeNil)
	test.That(t, c.AddTimer("tick", block.NewShortCircuit(), []string{"y"}, nil, time.Second, true), test.ShouldBeNil)

	out, err := c.Info()
	test.That(t, err, test.ShouldBeNil)
	for _, s := range []string{"double", "gain=2", "tick", "1s", "*block.Gain"} {
		test.That(t, out, test.ShouldContainSubstring, s)
	}

	out, err = c.Info("signals")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "x")
	test.That(t, out, test.ShouldNotContainSubstring, "double")

	_, err = c.Info("bogus")
	test.That(t, err, test.ShouldBeError, `unknown info section "bogus"`)
}
