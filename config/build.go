package config

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/silver2row/ctrl/block"
	"github.com/silver2row/ctrl/container"
	"github.com/silver2row/ctrl/device"
	"github.com/silver2row/ctrl/logging"
	"github.com/silver2row/ctrl/registry"
)

// Build creates a container holding every signal and block of cfg. Signals referenced by a
// block but not declared are created. Missing dependencies are filled in with the wall clock
// and a fresh device registry.
func Build(ctx context.Context, cfg *Config, deps registry.Dependencies, logger logging.Logger) (_ *container.Container, err error) {
	if err := cfg.Ensure(); err != nil {
		return nil, err
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Devices == nil {
		deps.Devices = device.NewRegistry(logger.Sublogger("devices"))
	}

	c := container.New(logger, container.WithClock(deps.Clock))
	defer func() {
		if err != nil {
			err = multierr.Combine(err, c.Close(ctx))
		}
	}()

	if err := c.AddSignals(cfg.ReferencedSignals()...); err != nil {
		return nil, err
	}
	for _, kind := range block.Kinds {
		for _, bc := range cfg.Blocks(kind) {
			if err := addBlock(ctx, c, kind, bc, deps, logger); err != nil {
				return nil, errors.Wrapf(err, "%s %q", kind, bc.Label)
			}
		}
	}
	return c, nil
}

func addBlock(
	ctx context.Context,
	c *container.Container,
	kind block.Kind,
	bc BlockConfig,
	deps registry.Dependencies,
	logger logging.Logger,
) error {
	b, err := registry.NewBlock(ctx, bc.Type, deps, bc.Attributes, logger.Sublogger(bc.Label))
	if err != nil {
		return err
	}
	switch kind {
	case block.KindSource:
		err = c.AddSource(bc.Label, b, bc.Outputs)
	case block.KindFilter:
		err = c.AddFilter(bc.Label, b, bc.Inputs, bc.Outputs)
	case block.KindSink:
		err = c.AddSink(bc.Label, b, bc.Inputs)
	case block.KindTimer:
		err = c.AddTimer(bc.Label, b, bc.Inputs, bc.Outputs, time.Duration(bc.Period), bc.Repeats())
	}
	if err != nil {
		return multierr.Combine(err, block.Close(ctx, b))
	}
	return nil
}
