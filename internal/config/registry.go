package config

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MrWong99/wordgate/pkg/provider/stt"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// STTFactory builds an STT provider from its config entry.
type STTFactory func(ProviderEntry) (stt.Provider, error)

// Registry maps provider names to their constructor functions. It is safe for
// concurrent use.
type Registry struct {
	mu  sync.RWMutex
	stt map[string]STTFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{stt: make(map[string]STTFactory)}
}

// RegisterSTT registers an STT provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterSTT(name string, factory STTFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[name] = factory
}

// STTNames returns the registered STT provider names in sorted order.
func (r *Registry) STTNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.stt))
	for name := range r.stt {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// CreateSTT instantiates an STT provider using the factory registered under
// entry.Name. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateSTT(entry ProviderEntry) (stt.Provider, error) {
	r.mu.RLock()
	factory, ok := r.stt[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: stt/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
