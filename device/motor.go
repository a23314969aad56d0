package device

import (
	"context"
	"math"
	"sync"

	"github.com/pkg/errors"

	"github.com/silver2row/ctrl/logging"
)

const defaultMaxRPM = 100

// MotorConfig describes a simulated motor.
type MotorConfig struct {
	MaxRPM           float64 `json:"max_rpm"`
	TicksPerRotation int     `json:"ticks_per_rotation"`
	DirectionFlip    bool    `json:"direction_flip"`
}

// Motor is a simulated DC motor driven by a power fraction in [-1, 1]. When it has an encoder
// attached, setting the power sets the encoder speed.
type Motor struct {
	mu               sync.Mutex
	logger           logging.Logger
	powerPct         float64
	maxRPM           float64
	ticksPerRotation int
	dirFlip          bool
	encoder          *Encoder
}

// NewMotor returns a stopped Motor. encoder may be nil.
func NewMotor(cfg MotorConfig, encoder *Encoder, logger logging.Logger) (*Motor, error) {
	m := &Motor{
		logger:           logger,
		maxRPM:           cfg.MaxRPM,
		ticksPerRotation: cfg.TicksPerRotation,
		dirFlip:          cfg.DirectionFlip,
		encoder:          encoder,
	}
	if m.maxRPM == 0 {
		logger.Infof("max_rpm not provided to a simulated motor, defaulting to %v", defaultMaxRPM)
		m.maxRPM = defaultMaxRPM
	}
	if encoder != nil && m.ticksPerRotation <= 0 {
		return nil, errors.New("need nonzero ticks_per_rotation for encoded motor")
	}
	return m, nil
}

// SetPower sets the power fraction, clamped to [-1, 1].
func (m *Motor) SetPower(ctx context.Context, powerPct float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.powerPct = math.Max(-1, math.Min(1, powerPct))
	m.logger.Debugf("motor SetPower %f", m.powerPct)
	if m.encoder == nil {
		return nil
	}
	return m.encoder.SetSpeed(ctx, m.maxRPM*m.direction()*float64(m.ticksPerRotation))
}

// must hold mu.
func (m *Motor) direction() float64 {
	if m.dirFlip {
		return -m.powerPct
	}
	return m.powerPct
}

// PowerPct returns the power fraction as seen by the shaft.
func (m *Motor) PowerPct() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.direction()
}

// IsPowered returns whether the motor has non zero power.
func (m *Motor) IsPowered() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.powerPct != 0
}

// Position returns the shaft position in rotations.
func (m *Motor) Position(ctx context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.encoder == nil {
		return 0, errors.New("encoder is not defined")
	}
	ticks, err := m.encoder.Ticks(ctx)
	if err != nil {
		return 0, err
	}
	return ticks / float64(m.ticksPerRotation), nil
}

// Stop cuts the power.
func (m *Motor) Stop(ctx context.Context) error {
	return m.SetPower(ctx, 0)
}

// Close stops the motor.
func (m *Motor) Close(ctx context.Context) error {
	return m.Stop(ctx)
}
