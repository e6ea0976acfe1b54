package wasm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// InstanceManager creates and manages module instances.
type InstanceManager struct {
	runtime   *Runtime
	logger    *zap.Logger
	hostFuncs *HostFunctionsImpl
}

// NewInstanceManager creates a new instance manager.
func NewInstanceManager(runtime *Runtime, hostFuncs *HostFunctionsImpl, logger *zap.Logger) *InstanceManager {
	return &InstanceManager{
		runtime:   runtime,
		hostFuncs: hostFuncs,
		logger:    logger.With(zap.String("component", "wasm-instance")),
	}
}

// InstanceConfig holds configuration for creating instances.
type InstanceConfig struct {
	// Module name to instantiate.
	ModuleName string

	// Instance ID (if empty, generates UUID).
	InstanceID string

	// Exports to resolve up front. Calls to other names fail.
	Exports []string

	// Per-call execution limit. Zero disables it.
	Timeout time.Duration
}

// Instance represents an instantiated Wasm module.
type Instance struct {
	module api.Module
	memory *Memory

	ID        string
	Name      string
	CreatedAt int64

	timeout time.Duration
	exports map[string]api.Function
	release func()
}

// Instantiate creates a new instance from a compiled module. The host module
// is linked into the runtime the first time any instance is created.
func (m *InstanceManager) Instantiate(ctx context.Context, config *InstanceConfig) (*Instance, error) {
	compiled, ok := m.runtime.GetCompiledModule(config.ModuleName)
	if !ok {
		return nil, &ModuleNotFoundError{Module: config.ModuleName}
	}

	if limit := m.runtime.config.MaxInstances; limit > 0 && m.runtime.InstanceCount() >= limit {
		return nil, &InstantiationError{
			Module: config.ModuleName,
			Err:    fmt.Errorf("instance limit of %d reached", limit),
		}
	}

	instanceID := config.InstanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
	}

	m.logger.Info("Instantiating Wasm module",
		zap.String("module", config.ModuleName),
		zap.String("instance_id", instanceID),
	)

	m.runtime.hostOnce.Do(func() {
		m.runtime.hostErr = m.hostFuncs.instantiate(ctx, m.runtime.runtime)
	})
	if m.runtime.hostErr != nil {
		return nil, fmt.Errorf("failed to export host functions: %w", m.runtime.hostErr)
	}

	moduleConfig := wazero.NewModuleConfig().
		WithName(instanceID).
		WithStartFunctions() // engines are libraries, no _start

	module, err := m.runtime.runtime.InstantiateModule(ctx, compiled.Module, moduleConfig)
	if err != nil {
		return nil, &InstantiationError{
			Module:   config.ModuleName,
			Instance: instanceID,
			Err:      err,
		}
	}

	exports := cacheExportedFunctions(module, config.Exports)

	instance := &Instance{
		module:    module,
		memory:    NewMemory(module),
		ID:        instanceID,
		Name:      config.ModuleName,
		CreatedAt: time.Now().Unix(),
		timeout:   config.Timeout,
		exports:   exports,
		release:   func() { m.runtime.DeleteInstance(instanceID) },
	}

	m.runtime.StoreInstance(instanceID, module)

	m.logger.Info("Module instantiated successfully",
		zap.String("instance_id", instanceID),
		zap.Int("exported_functions", len(exports)),
	)

	return instance, nil
}

// HasExport reports whether the instance resolved the named export.
func (i *Instance) HasExport(name string) bool {
	_, ok := i.exports[name]
	return ok
}

// Call invokes an exported function with string arguments. Each argument is
// passed as a (ptr, len) pair; the function returns a packed u64 holding
// ptr<<32 | len of its UTF-8 result.
func (i *Instance) Call(ctx context.Context, name string, args ...string) (string, error) {
	fn, ok := i.exports[name]
	if !ok {
		return "", &FunctionNotFoundError{Module: i.Name, Export: name}
	}

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	params := make([]uint64, 0, 2*len(args))
	for _, arg := range args {
		ptr, size, err := i.memory.WriteString(ctx, arg)
		if err != nil {
			return "", err
		}
		defer i.memory.Free(ctx, ptr, size)
		params = append(params, uint64(ptr), uint64(size))
	}

	results, err := fn.Call(ctx, params...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &TimeoutError{Export: name, Duration: i.timeout}
		}
		return "", &ExecutionError{Module: i.Name, Export: name, Err: err}
	}
	if len(results) != 1 {
		return "", &ExecutionError{
			Module: i.Name,
			Export: name,
			Err:    fmt.Errorf("expected 1 result, got %d", len(results)),
		}
	}

	ptr, size := uint32(results[0]>>32), uint32(results[0])
	out, ok := i.memory.ReadBytes(ptr, size)
	if !ok {
		return "", &MemoryAccessError{
			Operation: "read",
			Address:   ptr,
			Length:    size,
			Err:       errors.New("result out of range"),
		}
	}
	if err := i.memory.Free(ctx, ptr, size); err != nil {
		return "", err
	}
	return string(out), nil
}

// Close closes the instance and releases resources.
func (i *Instance) Close(ctx context.Context) error {
	if i.release != nil {
		i.release()
	}
	return i.module.Close(ctx)
}

// cacheExportedFunctions resolves the requested exports once.
func cacheExportedFunctions(module api.Module, names []string) map[string]api.Function {
	exports := make(map[string]api.Function, len(names))
	for _, name := range names {
		if fn := module.ExportedFunction(name); fn != nil {
			exports[name] = fn
		}
	}
	return exports
}
