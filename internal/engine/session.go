package engine

import (
	"context"
	"fmt"

	"github.com/woxQAQ/prisma-schema-lsp/internal/config"
	"github.com/woxQAQ/prisma-schema-lsp/internal/wasm"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Session owns the wasm runtime, the bundle manager and the engine opened
// from them. Close releases all three.
type Session struct {
	Engine  Engine
	Client  *Client
	manager *Manager
}

// OpenSession discovers the engine bundles of cfg and opens the configured
// engine, falling back to the builtin one when no bundle is found.
func OpenSession(ctx context.Context, cfg *config.ServerConfig, logger *zap.Logger) (*Session, error) {
	runtime, err := wasm.NewRuntime(ctx, logger, &wasm.RuntimeConfig{
		MemoryPages:  cfg.Wasm.MemoryPages,
		DebugEnabled: cfg.Wasm.Debug,
		CacheDir:     cfg.Wasm.CacheDir,
		MaxInstances: cfg.Wasm.MaxInstances,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Wasm runtime: %w", err)
	}

	manager := NewManager(cfg, runtime, wasm.NewHostFunctions(logger, cfg.Wasm.Debug), logger)
	if err := manager.LoadAll(ctx); err != nil {
		return nil, multierr.Append(fmt.Errorf("failed to load engine bundles: %w", err), manager.Shutdown(ctx))
	}
	e, err := manager.Open(ctx)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("failed to open engine: %w", err), manager.Shutdown(ctx))
	}

	if cfg.Engine.ForcePanic {
		logger.Warn("Every engine call will fault", zap.String("engine", e.Name()))
	}
	return &Session{
		Engine:  e,
		Client:  NewClient(e, logger, WithForcedPanic(cfg.Engine.ForcePanic)),
		manager: manager,
	}, nil
}

// Close closes the engine and shuts the runtime down.
func (s *Session) Close(ctx context.Context) error {
	return multierr.Append(s.Engine.Close(ctx), s.manager.Shutdown(ctx))
}
