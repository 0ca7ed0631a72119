package backend

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/lumen"
)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	// Priority order for backend selection (first that opens wins).
	// WGPU > Soft (Soft is the fallback that always works).
	backendPriority = []string{WGPU, Soft}
)

// Register registers a device factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the registered backend names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// Get returns the factory registered as name, or nil if there is none.
func Get(name string) Factory {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return factories[name]
}

// Open opens a device from the backend registered as name.
func Open(name string) (lumen.Device, error) {
	registryMu.RLock()
	factory, ok := factories[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q is not registered", ErrBackendNotAvailable, name)
	}
	dev, err := factory()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBackendNotAvailable, name, err)
	}
	return dev, nil
}

// Default opens a device from the best backend that works on this
// machine and returns it with the backend name.
// Priority order: wgpu > soft, then any other registered backend.
func Default() (lumen.Device, string, error) {
	names := Available()
	order := make([]string, 0, len(names))
	for _, name := range backendPriority {
		if slices.Contains(names, name) {
			order = append(order, name)
		}
	}
	for _, name := range names {
		if !slices.Contains(order, name) {
			order = append(order, name)
		}
	}

	var errs []error
	for _, name := range order {
		dev, err := Open(name)
		if err == nil {
			lumen.Logger().Debug("backend: selected", "name", name)
			return dev, name, nil
		}
		lumen.Logger().Debug("backend: unavailable", "name", name, "error", err)
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, "", ErrBackendNotAvailable
	}
	return nil, "", errors.Join(errs...)
}

// MustDefault returns the default device or panics.
func MustDefault() lumen.Device {
	dev, _, err := Default()
	if err != nil {
		panic(err)
	}
	return dev
}
