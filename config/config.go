// Package config defines the structures describing a block diagram and builds containers
// from them.
package config

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/silver2row/ctrl/block"
	"github.com/silver2row/ctrl/registry"
	"github.com/silver2row/ctrl/utils"
)

// A Config describes a complete block diagram.
type Config struct {
	Signals []string      `json:"signals,omitempty"`
	Sources []BlockConfig `json:"sources,omitempty"`
	Filters []BlockConfig `json:"filters,omitempty"`
	Timers  []BlockConfig `json:"timers,omitempty"`
	Sinks   []BlockConfig `json:"sinks,omitempty"`

	// Period is how often the diagram runs when driven by a scheduler.
	Period goutils.Duration `json:"period,omitempty"`

	ConfigFilePath string `json:"-"`
}

// DefaultPeriod is the loop period used when a config does not set one.
const DefaultPeriod = 10 * time.Millisecond

// LoopPeriod returns the configured period, or DefaultPeriod when unset.
func (c *Config) LoopPeriod() time.Duration {
	if c.Period == 0 {
		return DefaultPeriod
	}
	return time.Duration(c.Period)
}

// BlockConfig describes one block and its wiring.
type BlockConfig struct {
	Label      string             `json:"label"`
	Type       string             `json:"type"`
	Inputs     []string           `json:"inputs,omitempty"`
	Outputs    []string           `json:"outputs,omitempty"`
	Attributes utils.AttributeMap `json:"attributes,omitempty"`

	// Period and Repeat only apply to timers. Timers repeat unless Repeat is false.
	Period goutils.Duration `json:"period,omitempty"`
	Repeat *bool            `json:"repeat,omitempty"`
}

// Repeats returns whether a timer built from the config fires more than once.
func (bc *BlockConfig) Repeats() bool {
	return bc.Repeat == nil || *bc.Repeat
}

// Validate ensures the block config can be built as kind.
func (bc *BlockConfig) Validate(path string, kind block.Kind) error {
	if bc.Label == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "label")
	}
	if bc.Type == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "type")
	}
	registration := registry.BlockLookup(bc.Type)
	if registration == nil {
		return goutils.NewConfigValidationError(path, errors.Errorf("unknown block type %q", bc.Type))
	}
	if !registration.Allows(kind) {
		return goutils.NewConfigValidationError(path, errors.Errorf("%s block cannot be used as a %s", bc.Type, kind))
	}
	switch kind {
	case block.KindSource:
		if len(bc.Inputs) > 0 {
			return goutils.NewConfigValidationError(path, errors.New("sources have no inputs"))
		}
	case block.KindSink:
		if len(bc.Outputs) > 0 {
			return goutils.NewConfigValidationError(path, errors.New("sinks have no outputs"))
		}
	case block.KindTimer:
		if bc.Period <= 0 {
			return goutils.NewConfigValidationFieldRequiredError(path, "period")
		}
	case block.KindFilter:
	}
	if kind != block.KindTimer && (bc.Period != 0 || bc.Repeat != nil) {
		return goutils.NewConfigValidationError(path, errors.New("only timers have a period"))
	}
	return nil
}

// Blocks returns the block configs of kind.
func (c *Config) Blocks(kind block.Kind) []BlockConfig {
	switch kind {
	case block.KindSource:
		return c.Sources
	case block.KindFilter:
		return c.Filters
	case block.KindTimer:
		return c.Timers
	case block.KindSink:
		return c.Sinks
	default:
		return nil
	}
}

// Ensure validates the whole config, reporting every problem found.
func (c *Config) Ensure() error {
	var err error
	seenSignals := map[string]bool{}
	for idx, name := range c.Signals {
		path := fmt.Sprintf("signals.%d", idx)
		switch {
		case name == "":
			err = multierr.Append(err, goutils.NewConfigValidationError(path, errors.New("empty signal name")))
		case seenSignals[name]:
			err = multierr.Append(err, goutils.NewConfigValidationError(path, &block.DuplicateSignalError{Name: name}))
		}
		seenSignals[name] = true
	}
	for _, kind := range block.Kinds {
		seenLabels := map[string]bool{}
		for idx, bc := range c.Blocks(kind) {
			path := fmt.Sprintf("%ss.%d", kind, idx)
			if verr := bc.Validate(path, kind); verr != nil {
				err = multierr.Append(err, verr)
				continue
			}
			if seenLabels[bc.Label] {
				err = multierr.Append(err, goutils.NewConfigValidationError(path, errors.Errorf("duplicate %s label %q", kind, bc.Label)))
			}
			seenLabels[bc.Label] = true
			for _, name := range append(append([]string{}, bc.Inputs...), bc.Outputs...) {
				if name == "" {
					err = multierr.Append(err, goutils.NewConfigValidationError(path, errors.New("empty signal name")))
				}
			}
		}
	}
	if c.Period < 0 {
		err = multierr.Append(err, goutils.NewConfigValidationError("period", errors.New("period cannot be negative")))
	}
	return err
}

// ReferencedSignals returns the declared signals followed by every other signal a block is
// wired to, in order of first appearance.
func (c *Config) ReferencedSignals() []string {
	lists := [][]string{c.Signals}
	for _, kind := range block.Kinds {
		for _, bc := range c.Blocks(kind) {
			lists = append(lists, bc.Inputs, bc.Outputs)
		}
	}
	return lo.Uniq(lo.Flatten(lists))
}
