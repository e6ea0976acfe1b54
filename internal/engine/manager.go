package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/woxQAQ/prisma-schema-lsp/internal/config"
	"github.com/woxQAQ/prisma-schema-lsp/internal/wasm"
	"go.uber.org/zap"
)

// Manager discovers engine bundles and opens the configured engine.
type Manager struct {
	cfg         *config.ServerConfig
	runtime     *wasm.Runtime
	loader      *Loader
	registry    *Registry
	instanceMgr *wasm.InstanceManager
	logger      *zap.Logger

	mu     sync.RWMutex
	loaded bool
}

// NewManager creates a new engine manager.
func NewManager(
	cfg *config.ServerConfig,
	runtime *wasm.Runtime,
	hostFuncs *wasm.HostFunctionsImpl,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		cfg:         cfg,
		runtime:     runtime,
		loader:      NewLoader(runtime, logger),
		registry:    NewRegistry(logger),
		instanceMgr: wasm.NewInstanceManager(runtime, hostFuncs, logger),
		logger:      logger.With(zap.String("component", "engine-manager")),
	}
}

// LoadAll discovers and registers the bundles in the configured paths.
// Finding no bundle is not an error.
func (m *Manager) LoadAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded {
		return fmt.Errorf("engine bundles already loaded")
	}

	m.logger.Info("Loading engine bundles",
		zap.Strings("paths", m.cfg.EnginePaths),
	)

	bundles, err := m.loader.DiscoverBundles(ctx, m.cfg.EnginePaths)
	var none *NoBundlesFoundError
	switch {
	case errors.As(err, &none):
		m.logger.Warn("No engine bundles found, using the builtin engine",
			zap.Strings("paths", m.cfg.EnginePaths),
		)
		m.loaded = true
		return nil
	case err != nil && bundles == nil:
		return err
	case err != nil:
		m.logger.Warn("Some engine bundles failed to load",
			zap.Int("loaded", len(bundles)),
			zap.Error(err),
		)
	}

	for _, bundle := range bundles {
		if err := m.registry.Register(bundle); err != nil {
			m.logger.Error("Failed to register engine bundle",
				zap.String("name", bundle.Name()),
				zap.Error(err),
			)
		}
	}

	m.loaded = true
	m.logger.Info("Engine bundles loaded", zap.Int("count", m.registry.Count()))

	return nil
}

// Bundle retrieves a bundle by name.
func (m *Manager) Bundle(name string) (*Bundle, error) {
	bundle, ok := m.registry.Get(name)
	if !ok {
		return nil, &BundleNotFoundError{BundleName: name}
	}
	return bundle, nil
}

// Open instantiates the configured engine. Without a configured name the
// first bundle by name is used; without any bundle the builtin engine is
// returned. A configured but unknown name is an error.
func (m *Manager) Open(ctx context.Context) (Engine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var bundle *Bundle
	if name := m.cfg.Engine.Name; name != "" {
		b, ok := m.registry.Get(name)
		if !ok {
			return nil, &BundleNotFoundError{BundleName: name}
		}
		bundle = b
	} else if bundles := m.registry.List(); len(bundles) > 0 {
		bundle = bundles[0]
	}

	if bundle == nil {
		m.logger.Info("Using the builtin engine")
		return NewBuiltin(), nil
	}

	instance, err := m.instanceMgr.Instantiate(ctx, &wasm.InstanceConfig{
		ModuleName: bundle.Compiled.Name,
		Exports:    bundle.exports(),
		Timeout:    m.cfg.Wasm.Timeout(),
	})
	if err != nil {
		return nil, &BundleLoadError{BundleName: bundle.Name(), Err: err}
	}

	m.logger.Info("Engine opened",
		zap.String("name", bundle.Name()),
		zap.String("instance_id", instance.ID),
	)
	return NewWasmEngine(bundle, instance), nil
}

// Shutdown closes the runtime and every instance it hosts.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Shutting down engine manager")

	if err := m.runtime.Close(ctx); err != nil {
		m.logger.Error("Failed to shutdown runtime", zap.Error(err))
		return err
	}

	m.logger.Info("Engine manager shutdown complete")
	return nil
}

// Registry returns the bundle registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// IsLoaded returns whether bundles have been loaded.
func (m *Manager) IsLoaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}
