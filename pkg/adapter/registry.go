package adapter

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/datagov/pkg/core"
)

// Factory constructs an adapter. A nil logger means discard.
type Factory func(*slog.Logger) Adapter

var defaultRegistry = struct {
	mu        sync.RWMutex
	factories map[string]Factory
}{factories: make(map[string]Factory)}

// Register makes an adapter available under the given type name.
// Adapter packages call this from init(); a later Register for the
// same name replaces the earlier one.
func Register(name string, factory Factory) {
	defaultRegistry.mu.Lock()
	defaultRegistry.factories[name] = factory
	defaultRegistry.mu.Unlock()
}

// Get looks up the factory for a type name.
func Get(name string) (Factory, bool) {
	defaultRegistry.mu.RLock()
	defer defaultRegistry.mu.RUnlock()
	f, ok := defaultRegistry.factories[name]
	return f, ok
}

// IsRegistered reports whether a type name has a factory.
func IsRegistered(name string) bool {
	_, ok := Get(name)
	return ok
}

// ListAdapters returns the registered type names, sorted.
func ListAdapters() []string {
	defaultRegistry.mu.RLock()
	defer defaultRegistry.mu.RUnlock()
	names := make([]string, 0, len(defaultRegistry.factories))
	for name := range defaultRegistry.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewAdapter builds the adapter named by cfg.Type.
func NewAdapter(cfg core.AdapterConfig, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}
	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Type, Available: ListAdapters()}
	}
	return factory(logger), nil
}

// UnknownAdapterError is returned when no adapter is registered for a
// requested target type.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q (available: %s); check target.type in datagov.yaml",
		e.Type, strings.Join(e.Available, ", "))
}
