package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/woxQAQ/prisma-schema-lsp/internal/wasm"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Loader loads engine bundles from disk.
type Loader struct {
	moduleLoader *wasm.ModuleLoader
	logger       *zap.Logger
}

// NewLoader creates a new bundle loader.
func NewLoader(runtime *wasm.Runtime, logger *zap.Logger) *Loader {
	return &Loader{
		moduleLoader: wasm.NewModuleLoader(runtime, logger),
		logger:       logger.With(zap.String("component", "engine-loader")),
	}
}

// LoadBundle loads a single bundle from a directory. The module must export
// a function for every declared capability.
func (l *Loader) LoadBundle(ctx context.Context, dir string) (*Bundle, error) {
	manifest, err := ParseManifest(dir)
	if err != nil {
		return nil, err
	}

	l.logger.Info("Loading engine bundle",
		zap.String("name", manifest.Name),
		zap.String("version", manifest.Version),
		zap.String("engines_version", manifest.EnginesVersion),
	)

	compiled, err := l.moduleLoader.LoadModuleFromFile(ctx, manifest.WasmPath())
	if err != nil {
		return nil, &BundleLoadError{BundleName: manifest.Name, Err: err}
	}

	bundle := &Bundle{
		Manifest: manifest,
		Compiled: compiled,
		LoadedAt: time.Now(),
	}
	if err := compiled.RequireExports(bundle.exports()...); err != nil {
		return nil, &BundleLoadError{BundleName: manifest.Name, Err: err}
	}

	l.logger.Info("Engine bundle loaded",
		zap.String("name", manifest.Name),
		zap.Int64("size_bytes", compiled.SizeBytes),
	)

	return bundle, nil
}

// DiscoverBundles loads every bundle found one level below each path.
// Broken bundles are skipped; their errors are returned combined alongside
// the bundles that did load.
func (l *Loader) DiscoverBundles(ctx context.Context, paths []string) ([]*Bundle, error) {
	var bundles []*Bundle
	var errs error

	for _, basePath := range paths {
		l.logger.Debug("Scanning engine directory", zap.String("path", basePath))

		entries, err := os.ReadDir(basePath)
		if err != nil {
			if os.IsNotExist(err) {
				l.logger.Warn("Engine path does not exist", zap.String("path", basePath))
				continue
			}
			return nil, fmt.Errorf("failed to read directory '%s': %w", basePath, err)
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			bundleDir := filepath.Join(basePath, entry.Name())

			bundle, err := l.LoadBundle(ctx, bundleDir)
			if err != nil {
				l.logger.Error("Failed to load engine bundle",
					zap.String("dir", bundleDir),
					zap.Error(err),
				)
				errs = multierr.Append(errs, err)
				continue
			}
			bundles = append(bundles, bundle)
		}
	}

	if len(bundles) == 0 {
		return nil, multierr.Append(&NoBundlesFoundError{Paths: paths}, errs)
	}

	return bundles, errs
}
