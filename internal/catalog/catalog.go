// Package catalog provides the registry of governed data assets.
// It maps asset names to their descriptive metadata (owner, sensitivity,
// tags, regulatory flags) and is populated once from configuration at
// startup, read-only afterward.
package catalog

import (
	"fmt"
	"sync"

	"github.com/leapstack-labs/datagov/pkg/core"
)

// DuplicateAssetError is returned when registering an asset whose name
// already exists in the catalog.
type DuplicateAssetError struct {
	Name string
}

func (e *DuplicateAssetError) Error() string {
	return fmt.Sprintf("asset %q is already registered", e.Name)
}

// NotFoundError is returned when looking up an asset that is not in the
// catalog.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("asset %q not found in catalog", e.Name)
}

// Catalog maps asset names to their metadata.
type Catalog struct {
	mu sync.RWMutex

	// byName maps asset names to entries
	byName map[string]*core.Asset

	// order preserves registration order for deterministic exports
	order []string
}

// New creates a new empty catalog.
func New() *Catalog {
	return &Catalog{
		byName: make(map[string]*core.Asset),
	}
}

// Register adds an asset to the catalog.
// Returns a DuplicateAssetError if the name is already taken.
func (c *Catalog) Register(asset *core.Asset) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byName[asset.Name]; ok {
		return &DuplicateAssetError{Name: asset.Name}
	}

	c.byName[asset.Name] = asset
	c.order = append(c.order, asset.Name)
	return nil
}

// Get returns the asset with the given name.
// Returns a NotFoundError when the asset is not registered.
func (c *Catalog) Get(name string) (*core.Asset, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	asset, ok := c.byName[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return asset, nil
}

// List returns all registered assets in registration order.
func (c *Catalog) List() []*core.Asset {
	c.mu.RLock()
	defer c.mu.RUnlock()

	assets := make([]*core.Asset, 0, len(c.order))
	for _, name := range c.order {
		assets = append(assets, c.byName[name])
	}
	return assets
}

// Export returns a copy of all assets for the audit log, in registration
// order.
func (c *Catalog) Export() []core.Asset {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]core.Asset, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, *c.byName[name])
	}
	return out
}

// Count returns the number of registered assets.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byName)
}
