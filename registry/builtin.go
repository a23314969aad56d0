package registry

import (
	"context"
	"os"

	"github.com/iancoleman/orderedmap"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/silver2row/ctrl/block"
	"github.com/silver2row/ctrl/container"
	"github.com/silver2row/ctrl/device"
	"github.com/silver2row/ctrl/logging"
	"github.com/silver2row/ctrl/utils"
)

var (
	sourceOnly = []block.Kind{block.KindSource, block.KindTimer}
	filterOnly = []block.Kind{block.KindFilter, block.KindTimer}
	sinkOnly   = []block.Kind{block.KindSink, block.KindTimer}
)

// bufferOptionKeys are the attributes every buffer block type accepts next to its own config.
var bufferOptionKeys = []string{"enabled", "mux", "demux"}

// splitBufferOptions decodes the buffer options out of attributes and returns the remaining
// attributes.
func splitBufferOptions(attributes utils.AttributeMap) (block.BufferOptions, utils.AttributeMap, error) {
	rest := attributes.Copy()
	options := utils.AttributeMap{}
	for _, key := range bufferOptionKeys {
		if v, ok := rest.Pop(key); ok {
			options[key] = v
		}
	}
	opts, err := utils.DecodeAttributes(options, block.DefaultBufferOptions())
	if err != nil {
		return block.BufferOptions{}, nil, err
	}
	return opts, rest, nil
}

// bufferSchema returns the schema of cfg extended with the buffer options.
func bufferSchema(cfg interface{}) *jsonschema.Schema {
	schema := AttributeSchema(cfg)
	options := AttributeSchema(block.DefaultBufferOptions())
	if schema.Properties == nil {
		schema.Properties = orderedmap.New()
	}
	for _, key := range options.Properties.Keys() {
		prop, _ := options.Properties.Get(key)
		schema.Properties.Set(key, prop)
	}
	return schema
}

// bufferBlock registers a buffer block type configured by T plus the buffer options.
func bufferBlock[T any](
	typeName string,
	kinds []block.Kind,
	defaults func() T,
	newBlock func(deps Dependencies, cfg T) (block.Block, error),
) {
	RegisterBlock(typeName, BlockRegistration{
		Kinds:           kinds,
		AttributeSchema: bufferSchema(defaults()),
		Constructor: func(ctx context.Context, deps Dependencies, attributes utils.AttributeMap, logger logging.Logger) (block.Block, error) {
			opts, rest, err := splitBufferOptions(attributes)
			if err != nil {
				return nil, err
			}
			cfg, err := utils.DecodeAttributes(rest, defaults())
			if err != nil {
				return nil, err
			}
			b, err := newBlock(deps, cfg)
			if err != nil {
				return nil, err
			}
			return block.WithOptions(b, opts), nil
		},
	})
}

// noConfig is the config of buffer block types with nothing but the buffer options.
type noConfig struct{}

func noDefaults() noConfig { return noConfig{} }

func init() {
	bufferBlock("short_circuit", filterOnly,
		noDefaults,
		func(deps Dependencies, cfg noConfig) (block.Block, error) { return block.NewShortCircuit(), nil })

	bufferBlock("constant", sourceOnly,
		func() block.ConstantConfig {
			return block.ConstantConfig{Value: 1.0}
		},
		func(deps Dependencies, cfg block.ConstantConfig) (block.Block, error) { return block.NewConstant(cfg), nil })

	bufferBlock("sequence", sourceOnly,
		func() block.SequenceConfig { return block.SequenceConfig{} },
		func(deps Dependencies, cfg block.SequenceConfig) (block.Block, error) { return block.NewSequence(cfg), nil })

	bufferBlock("interp", filterOnly,
		func() block.InterpConfig { return block.InterpConfig{} },
		func(deps Dependencies, cfg block.InterpConfig) (block.Block, error) { return block.NewInterp(cfg) })

	bufferBlock("gain", filterOnly,
		func() block.GainConfig { return block.GainConfig{Gain: 1} },
		func(deps Dependencies, cfg block.GainConfig) (block.Block, error) { return block.NewGain(cfg), nil })

	bufferBlock("sum", filterOnly,
		func() block.SumConfig { return block.SumConfig{} },
		func(deps Dependencies, cfg block.SumConfig) (block.Block, error) { return block.NewSum(cfg) })

	bufferBlock("average", filterOnly,
		func() block.AverageConfig { return block.AverageConfig{Window: 1} },
		func(deps Dependencies, cfg block.AverageConfig) (block.Block, error) { return block.NewAverage(cfg) })

	bufferBlock("uniform", sourceOnly,
		block.DefaultUniformConfig,
		func(deps Dependencies, cfg block.UniformConfig) (block.Block, error) { return block.NewUniform(cfg) })

	bufferBlock("clock", sourceOnly,
		noDefaults,
		func(deps Dependencies, cfg noConfig) (block.Block, error) { return block.NewClock(deps.Clock), nil })

	bufferBlock("input", []block.Kind{block.KindSource},
		noDefaults,
		func(deps Dependencies, cfg noConfig) (block.Block, error) { return container.NewInput(), nil })

	bufferBlock("output", []block.Kind{block.KindSink},
		noDefaults,
		func(deps Dependencies, cfg noConfig) (block.Block, error) { return container.NewOutput(), nil })

	RegisterBlock("printer", BlockRegistration{
		Kinds:           sinkOnly,
		AttributeSchema: AttributeSchema(block.DefaultPrinterConfig()),
		Constructor: func(ctx context.Context, deps Dependencies, attributes utils.AttributeMap, logger logging.Logger) (block.Block, error) {
			cfg, err := utils.DecodeAttributes(attributes, block.DefaultPrinterConfig())
			if err != nil {
				return nil, err
			}
			return block.NewPrinter(cfg, os.Stdout), nil
		},
	})

	RegisterBlock("logger", BlockRegistration{
		Kinds:           sinkOnly,
		AttributeSchema: AttributeSchema(block.DefaultLoggerConfig()),
		Constructor: func(ctx context.Context, deps Dependencies, attributes utils.AttributeMap, logger logging.Logger) (block.Block, error) {
			cfg, err := utils.DecodeAttributes(attributes, block.DefaultLoggerConfig())
			if err != nil {
				return nil, err
			}
			return block.NewLogger(cfg)
		},
	})

	RegisterBlock("encoder", BlockRegistration{
		Kinds:           sourceOnly,
		AttributeSchema: bufferSchema(device.EncoderSourceConfig{}),
		Constructor:     newEncoderSource,
	})

	RegisterBlock("motor", BlockRegistration{
		Kinds:           sinkOnly,
		AttributeSchema: AttributeSchema(device.MotorSinkConfig{}),
		Constructor:     newMotorSink,
	})
}

func encoderID(name string) string { return "encoder/" + name }
func motorID(name string) string   { return "motor/" + name }

func openEncoder(ctx context.Context, deps Dependencies, name string) (*device.Encoder, error) {
	d, err := deps.Devices.Open(ctx, encoderID(name), func(ctx context.Context) (device.Device, error) {
		return device.NewEncoder(deps.Clock), nil
	})
	if err != nil {
		return nil, err
	}
	enc, ok := d.(*device.Encoder)
	if !ok {
		return nil, multierr.Combine(
			errors.Errorf("device %q is a %T not an encoder", encoderID(name), d),
			deps.Devices.Release(ctx, encoderID(name)),
		)
	}
	return enc, nil
}

func newEncoderSource(ctx context.Context, deps Dependencies, attributes utils.AttributeMap, logger logging.Logger) (block.Block, error) {
	opts, rest, err := splitBufferOptions(attributes)
	if err != nil {
		return nil, err
	}
	cfg, err := utils.DecodeAttributes(rest, device.EncoderSourceConfig{})
	if err != nil {
		return nil, err
	}
	if deps.Devices == nil {
		return nil, errors.New("encoder block needs a device registry")
	}
	if cfg.Device == "" {
		return nil, errors.New("encoder block needs a device name")
	}
	enc, err := openEncoder(ctx, deps, cfg.Device)
	if err != nil {
		return nil, err
	}
	release := func(ctx context.Context) error { return deps.Devices.Release(ctx, encoderID(cfg.Device)) }
	src, err := device.NewEncoderSource(enc, cfg.TicksPerRotation, release)
	if err != nil {
		return nil, multierr.Combine(err, release(ctx))
	}
	return block.WithOptions(src, opts), nil
}

func newMotorSink(ctx context.Context, deps Dependencies, attributes utils.AttributeMap, logger logging.Logger) (block.Block, error) {
	cfg, err := utils.DecodeAttributes(attributes, device.MotorSinkConfig{Enabled: true})
	if err != nil {
		return nil, err
	}
	if deps.Devices == nil {
		return nil, errors.New("motor block needs a device registry")
	}
	if cfg.Device == "" {
		return nil, errors.New("motor block needs a device name")
	}

	var enc *device.Encoder
	if cfg.TicksPerRotation > 0 {
		if enc, err = openEncoder(ctx, deps, cfg.Device); err != nil {
			return nil, err
		}
	}
	releaseEncoder := func(ctx context.Context) error {
		if enc == nil {
			return nil
		}
		return deps.Devices.Release(ctx, encoderID(cfg.Device))
	}

	d, err := deps.Devices.Open(ctx, motorID(cfg.Device), func(ctx context.Context) (device.Device, error) {
		return device.NewMotor(cfg.MotorConfig, enc, logger.Sublogger(cfg.Device))
	})
	if err != nil {
		return nil, multierr.Combine(err, releaseEncoder(ctx))
	}
	release := func(ctx context.Context) error {
		return multierr.Combine(deps.Devices.Release(ctx, motorID(cfg.Device)), releaseEncoder(ctx))
	}
	m, ok := d.(*device.Motor)
	if !ok {
		return nil, multierr.Combine(errors.Errorf("device %q is a %T not a motor", motorID(cfg.Device), d), release(ctx))
	}
	sink, err := device.NewMotorSink(m, release)
	if err != nil {
		return nil, multierr.Combine(err, release(ctx))
	}
	sink.SetEnabled(cfg.Enabled)
	return sink, nil
}
