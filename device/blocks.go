package device

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/silver2row/ctrl/block"
	"github.com/silver2row/ctrl/utils"
)

// EncoderSourceConfig configures an EncoderSource.
type EncoderSourceConfig struct {
	Device           string `json:"device"`
	TicksPerRotation int    `json:"ticks_per_rotation"`
}

// EncoderSource is a source that outputs an encoder's position in rotations, or in ticks when
// TicksPerRotation is zero.
type EncoderSource struct {
	block.Buffer
	encoder          *Encoder
	ticksPerRotation int
	release          func(ctx context.Context) error
	closeOnce        sync.Once
}

// NewEncoderSource returns an enabled EncoderSource reading encoder. release, when not nil, is
// called once when the block is closed.
func NewEncoderSource(encoder *Encoder, ticksPerRotation int, release func(ctx context.Context) error) (*EncoderSource, error) {
	if encoder == nil {
		return nil, errors.New("encoder source needs an encoder")
	}
	if ticksPerRotation < 0 {
		return nil, errors.Errorf("ticks_per_rotation should not be negative got %d", ticksPerRotation)
	}
	s := &EncoderSource{encoder: encoder, ticksPerRotation: ticksPerRotation, release: release}
	s.Buffer = block.NewBuffer(s, 0.0)
	return s, nil
}

// BufferRead samples the encoder.
func (s *EncoderSource) BufferRead(ctx context.Context, buffer []interface{}) ([]interface{}, error) {
	ticks, err := s.encoder.Ticks(ctx)
	if err != nil {
		return nil, err
	}
	if s.ticksPerRotation > 0 {
		return []interface{}{ticks / float64(s.ticksPerRotation)}, nil
	}
	return []interface{}{ticks}, nil
}

// Reset zeros the encoder.
func (s *EncoderSource) Reset(ctx context.Context) error {
	return s.encoder.ResetPosition(ctx, 0)
}

// Properties adds ticks_per_rotation.
func (s *EncoderSource) Properties() map[string]interface{} {
	props := s.Buffer.Properties()
	props["ticks_per_rotation"] = s.ticksPerRotation
	return props
}

// Set accepts "position" in the block's output unit.
func (s *EncoderSource) Set(ctx context.Context, props map[string]interface{}) error {
	rest := utils.AttributeMap(props).Copy()
	if v, ok := rest.Pop("position"); ok {
		f, err := utils.ToFloat64(v)
		if err != nil {
			return errors.Wrap(err, "position")
		}
		if s.ticksPerRotation > 0 {
			f *= float64(s.ticksPerRotation)
		}
		if err := s.encoder.ResetPosition(ctx, f); err != nil {
			return err
		}
	}
	return block.SetCommon(ctx, s, rest)
}

// Close releases the encoder.
func (s *EncoderSource) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		if s.release != nil {
			err = s.release(ctx)
		}
	})
	return err
}

// MotorSinkConfig configures a MotorSink and the motor it opens.
type MotorSinkConfig struct {
	MotorConfig
	Enabled bool   `json:"enabled"`
	Device  string `json:"device"`
}

// MotorSink is a sink that drives a motor with the power fraction written to it.
type MotorSink struct {
	block.Base
	motor     *Motor
	release   func(ctx context.Context) error
	closeOnce sync.Once
}

// NewMotorSink returns an enabled MotorSink. release, when not nil, is called once when the
// block is closed.
func NewMotorSink(motor *Motor, release func(ctx context.Context) error) (*MotorSink, error) {
	if motor == nil {
		return nil, errors.New("motor sink needs a motor")
	}
	return &MotorSink{Base: block.NewBase(true), motor: motor, release: release}, nil
}

// Read is not supported.
func (s *MotorSink) Read(ctx context.Context) ([]interface{}, error) {
	return nil, &block.UnsupportedOperationError{Block: "motor sink", Operation: "read"}
}

// Write sets the motor power from a single value.
func (s *MotorSink) Write(ctx context.Context, values ...interface{}) error {
	if !s.Enabled() {
		return nil
	}
	if len(values) != 1 {
		return errors.Errorf("motor sink expects a single power input but got %d", len(values))
	}
	power, err := utils.ToFloat64(values[0])
	if err != nil {
		return errors.Wrap(err, "motor power")
	}
	return s.motor.SetPower(ctx, power)
}

// Reset stops the motor.
func (s *MotorSink) Reset(ctx context.Context) error {
	return s.motor.Stop(ctx)
}

// Properties adds the applied power.
func (s *MotorSink) Properties() map[string]interface{} {
	props := s.Base.Properties()
	props["power"] = s.motor.PowerPct()
	return props
}

// Set accepts the common keys only. Disabling the sink stops the motor.
func (s *MotorSink) Set(ctx context.Context, props map[string]interface{}) error {
	if err := block.SetCommon(ctx, s, utils.AttributeMap(props).Copy()); err != nil {
		return err
	}
	if !s.Enabled() {
		return s.motor.Stop(ctx)
	}
	return nil
}

// Close stops the motor and releases it.
func (s *MotorSink) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		err = s.motor.Stop(ctx)
		if s.release != nil {
			err = multierr.Combine(err, s.release(ctx))
		}
	})
	return err
}
