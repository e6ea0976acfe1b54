package wasm

import (
	"fmt"
	"time"
)

// CompilationError is returned when an engine module does not compile.
type CompilationError struct {
	Module string
	Err    error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("engine module '%s' does not compile: %v", e.Module, e.Err)
}

func (e *CompilationError) Unwrap() error { return e.Err }

// InstantiationError is returned when a compiled module cannot be started,
// usually because its start function trapped or an import is missing.
type InstantiationError struct {
	Module   string
	Instance string
	Err      error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("cannot start engine module '%s' as %s: %v", e.Module, e.Instance, e.Err)
}

func (e *InstantiationError) Unwrap() error { return e.Err }

type ModuleNotFoundError struct {
	Module string
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("engine module '%s' was never compiled", e.Module)
}

// FunctionNotFoundError reports an export the engine ABI needs but the module
// does not provide.
type FunctionNotFoundError struct {
	Module string
	Export string
}

func (e *FunctionNotFoundError) Error() string {
	if e.Module == "" {
		return fmt.Sprintf("engine module does not export '%s'", e.Export)
	}
	return fmt.Sprintf("engine module '%s' does not export '%s'", e.Module, e.Export)
}

// ExecutionError wraps a trap raised while an engine export runs. Rust
// panics inside the engine surface here as "unreachable" traps.
type ExecutionError struct {
	Module string
	Export string
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s.%s trapped: %v", e.Module, e.Export, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// MemoryAccessError is returned when a request or response buffer cannot be
// moved across the guest memory boundary.
type MemoryAccessError struct {
	Operation string
	Address   uint32
	Length    uint32
	Err       error
}

func (e *MemoryAccessError) Error() string {
	return fmt.Sprintf("guest memory %s of %d bytes at %#x failed: %v",
		e.Operation, e.Length, e.Address, e.Err)
}

func (e *MemoryAccessError) Unwrap() error { return e.Err }

type HostFunctionError struct {
	Function string
	Err      error
}

func (e *HostFunctionError) Error() string {
	return fmt.Sprintf("cannot register host function '%s': %v", e.Function, e.Err)
}

func (e *HostFunctionError) Unwrap() error { return e.Err }

// TimeoutError is returned when an export outlives the configured
// execution timeout.
type TimeoutError struct {
	Export   string
	Duration time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("engine call '%s' timed out after %v", e.Export, e.Duration)
}
