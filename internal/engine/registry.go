package engine

import (
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Registry holds loaded engine bundles by name.
type Registry struct {
	sync.RWMutex
	bundles map[string]*Bundle
	logger  *zap.Logger
}

// NewRegistry creates a new bundle registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		bundles: make(map[string]*Bundle),
		logger:  logger.With(zap.String("component", "engine-registry")),
	}
}

// Register adds a bundle to the registry.
func (r *Registry) Register(bundle *Bundle) error {
	r.Lock()
	defer r.Unlock()

	name := bundle.Name()
	if _, exists := r.bundles[name]; exists {
		return &BundleAlreadyRegisteredError{BundleName: name}
	}
	r.bundles[name] = bundle

	r.logger.Info("Engine bundle registered",
		zap.String("name", name),
		zap.String("version", bundle.Version()),
	)
	return nil
}

// Get retrieves a bundle by name.
func (r *Registry) Get(name string) (*Bundle, bool) {
	r.RLock()
	defer r.RUnlock()

	bundle, ok := r.bundles[name]
	return bundle, ok
}

// List returns all bundles sorted by name.
func (r *Registry) List() []*Bundle {
	r.RLock()
	defer r.RUnlock()

	result := make([]*Bundle, 0, len(r.bundles))
	for _, bundle := range r.bundles {
		result = append(result, bundle)
	}
	slices.SortFunc(result, func(a, b *Bundle) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return result
}

// Unregister removes a bundle from the registry.
func (r *Registry) Unregister(name string) {
	r.Lock()
	defer r.Unlock()

	if _, ok := r.bundles[name]; !ok {
		return
	}
	delete(r.bundles, name)

	r.logger.Info("Engine bundle unregistered", zap.String("name", name))
}

// Count returns the number of registered bundles.
func (r *Registry) Count() int {
	r.RLock()
	defer r.RUnlock()

	return len(r.bundles)
}
