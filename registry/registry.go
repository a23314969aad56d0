// Package registry operates the global registry of block types a diagram config can name.
package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/silver2row/ctrl/block"
	"github.com/silver2row/ctrl/device"
	"github.com/silver2row/ctrl/logging"
	"github.com/silver2row/ctrl/utils"
)

// Dependencies are the shared resources a block constructor may use.
type Dependencies struct {
	Clock   clock.Clock
	Devices *device.Registry
}

// A CreateBlock creates a block from its attributes.
type CreateBlock func(ctx context.Context, deps Dependencies, attributes utils.AttributeMap, logger logging.Logger) (block.Block, error)

// BlockRegistration stores construction info for a block type.
type BlockRegistration struct {
	Constructor CreateBlock
	// Kinds lists the kinds the block type may be registered as. Empty means any.
	Kinds []block.Kind
	// AttributeSchema describes the attributes the constructor accepts.
	AttributeSchema *jsonschema.Schema
}

// AttributeSchema returns the JSON schema of a block config struct. No attribute is required.
func AttributeSchema(cfg interface{}) *jsonschema.Schema {
	r := jsonschema.Reflector{RequiredFromJSONSchemaTags: true, DoNotReference: true}
	return r.Reflect(cfg)
}

// Allows reports whether the block type may be registered as kind.
func (r BlockRegistration) Allows(kind block.Kind) bool {
	return len(r.Kinds) == 0 || lo.Contains(r.Kinds, kind)
}

var (
	registryMu    sync.RWMutex
	blockRegistry = map[string]BlockRegistration{}
)

// RegisterBlock registers a block type to its registration. Registering the same type twice,
// or a registration without a constructor, panics.
func RegisterBlock(typeName string, registration BlockRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, old := blockRegistry[typeName]; old {
		panic(errors.Errorf("trying to register two blocks with same type %s", typeName))
	}
	if registration.Constructor == nil {
		panic(errors.Errorf("cannot register a nil constructor for block type %s", typeName))
	}
	blockRegistry[typeName] = registration
}

// BlockLookup looks up a block registration by type. nil is returned if there is no
// registration.
func BlockLookup(typeName string) *BlockRegistration {
	registryMu.RLock()
	defer registryMu.RUnlock()
	registration, ok := blockRegistry[typeName]
	if !ok {
		return nil
	}
	return &registration
}

// RegisteredBlocks returns every registered block type, sorted.
func RegisteredBlocks() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := lo.Keys(blockRegistry)
	sort.Strings(types)
	return types
}

// NewBlock constructs a block of the given type.
func NewBlock(ctx context.Context, typeName string, deps Dependencies, attributes utils.AttributeMap, logger logging.Logger) (block.Block, error) {
	registration := BlockLookup(typeName)
	if registration == nil {
		return nil, errors.Errorf("unknown block type %q", typeName)
	}
	if attributes == nil {
		attributes = utils.AttributeMap{}
	}
	b, err := registration.Constructor(ctx, deps, attributes, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot create %s block", typeName)
	}
	return b, nil
}
