// Package device holds shared hardware handles and the blocks that expose them to a diagram.
package device

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/silver2row/ctrl/logging"
)

// A Device is a hardware handle that must be closed once nothing uses it.
type Device interface {
	Close(ctx context.Context) error
}

type handle struct {
	device Device
	refs   int
}

// Registry hands out one Device per identity. The first Open of an identity constructs the
// device; later ones share it. The device is closed when the last user releases it.
type Registry struct {
	mu      sync.Mutex
	logger  logging.Logger
	handles map[string]*handle
}

// NewRegistry returns an empty Registry.
func NewRegistry(logger logging.Logger) *Registry {
	return &Registry{logger: logger, handles: map[string]*handle{}}
}

// Open returns the device registered under id, constructing it with newDevice if nobody holds it.
// Every successful Open must be paired with a Release.
func (r *Registry) Open(ctx context.Context, id string, newDevice func(ctx context.Context) (Device, error)) (Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.handles[id]; ok {
		h.refs++
		return h.device, nil
	}
	d, err := newDevice(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open device %q", id)
	}
	r.handles[id] = &handle{device: d, refs: 1}
	r.logger.Debugw("opened device", "device", id)
	return d, nil
}

// Release drops one reference to id, closing the device when it was the last one.
func (r *Registry) Release(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[id]
	if !ok {
		return errors.Errorf("device %q is not open", id)
	}
	h.refs--
	if h.refs > 0 {
		return nil
	}
	delete(r.handles, id)
	r.logger.Debugw("closing device", "device", id)
	return h.device.Close(ctx)
}

// Refs returns how many users hold id.
func (r *Registry) Refs(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.handles[id]; ok {
		return h.refs
	}
	return 0
}

// Close closes every open device regardless of its references.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var err error
	for id, h := range r.handles {
		err = multierr.Combine(err, errors.Wrapf(h.device.Close(ctx), "closing device %q", id))
	}
	r.handles = map[string]*handle{}
	return err
}
