package wasm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"
)

func newTestRuntime(t *testing.T, config *RuntimeConfig) *Runtime {
	t.Helper()
	runtime, err := NewRuntime(context.Background(), zaptest.NewLogger(t), config)
	if err != nil {
		t.Fatalf("NewRuntime() error = %v", err)
	}
	return runtime
}

func TestDefaultRuntimeConfig(t *testing.T) {
	want := &RuntimeConfig{MemoryPages: 256, MaxInstances: 4}
	if diff := cmp.Diff(want, DefaultRuntimeConfig()); diff != "" {
		t.Errorf("DefaultRuntimeConfig() mismatch (-want +got):\n%s", diff)
	}
}

func TestRuntimeKeepsConfig(t *testing.T) {
	runtime := newTestRuntime(t, &RuntimeConfig{MemoryPages: 128, DebugEnabled: true, MaxInstances: 2})
	defer runtime.Close(context.Background())

	if runtime.config.MemoryPages != 128 || runtime.config.MaxInstances != 2 {
		t.Errorf("config = %+v", runtime.config)
	}
}

func TestRuntimeClose(t *testing.T) {
	ctx := context.Background()
	runtime := newTestRuntime(t, nil)
	if runtime.IsClosed() {
		t.Fatal("a new runtime reports closed")
	}

	for i := range 2 {
		if err := runtime.Close(ctx); err != nil {
			t.Errorf("Close() #%d error = %v", i+1, err)
		}
	}
	if !runtime.IsClosed() {
		t.Error("runtime not closed after Close()")
	}
}

func TestRuntimeCloseCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runtime := newTestRuntime(t, nil)
	cancel()

	if err := runtime.Close(ctx); err != nil && !errors.Is(err, context.Canceled) {
		t.Errorf("Close() error = %v", err)
	}
}

func TestRuntimeCompiledModules(t *testing.T) {
	runtime := newTestRuntime(t, nil)
	defer runtime.Close(context.Background())

	if _, ok := runtime.GetCompiledModule("prisma-fmt"); ok {
		t.Fatal("empty cache returned a module")
	}
	runtime.StoreCompiledModule(&CompiledModule{
		Name:       "prisma-fmt",
		Source:     "bundles/prisma-fmt/engine.wasm",
		SizeBytes:  2048,
		CompiledAt: time.Now().Unix(),
	})
	got, ok := runtime.GetCompiledModule("prisma-fmt")
	if !ok || got.SizeBytes != 2048 {
		t.Errorf("GetCompiledModule() = %+v, %v", got, ok)
	}
}

func TestRuntimeInstanceTracking(t *testing.T) {
	runtime := newTestRuntime(t, nil)
	defer runtime.Close(context.Background())

	runtime.StoreInstance("engine-1", "first")
	runtime.StoreInstance("engine-2", "second")
	if got := runtime.InstanceCount(); got != 2 {
		t.Fatalf("InstanceCount() = %d, want 2", got)
	}
	if got, ok := runtime.GetInstance("engine-2"); !ok || got != "second" {
		t.Errorf("GetInstance(engine-2) = %v, %v", got, ok)
	}

	runtime.DeleteInstance("engine-1")
	runtime.DeleteInstance("engine-1")
	if got := runtime.InstanceCount(); got != 1 {
		t.Errorf("InstanceCount() after delete = %d, want 1", got)
	}
	if _, ok := runtime.GetInstance("engine-1"); ok {
		t.Error("deleted instance still tracked")
	}
}

func TestRuntimeCompilationCache(t *testing.T) {
	config := DefaultRuntimeConfig()
	config.CacheDir = t.TempDir()
	runtime := newTestRuntime(t, config)

	if runtime.cache == nil {
		t.Error("compilation cache not configured")
	}
	if err := runtime.Close(context.Background()); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestErrorMessages(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "compilation",
			err:  &CompilationError{Module: "prisma-fmt", Err: cause},
			want: "engine module 'prisma-fmt' does not compile: boom",
		},
		{
			name: "instantiation",
			err:  &InstantiationError{Module: "prisma-fmt", Instance: "i-1", Err: cause},
			want: "cannot start engine module 'prisma-fmt' as i-1: boom",
		},
		{
			name: "module not found",
			err:  &ModuleNotFoundError{Module: "prisma-fmt"},
			want: "engine module 'prisma-fmt' was never compiled",
		},
		{
			name: "export not found",
			err:  &FunctionNotFoundError{Module: "prisma-fmt", Export: "lint"},
			want: "engine module 'prisma-fmt' does not export 'lint'",
		},
		{
			name: "anonymous export not found",
			err:  &FunctionNotFoundError{Export: "alloc"},
			want: "engine module does not export 'alloc'",
		},
		{
			name: "execution",
			err:  &ExecutionError{Module: "prisma-fmt", Export: "format", Err: cause},
			want: "prisma-fmt.format trapped: boom",
		},
		{
			name: "memory",
			err:  &MemoryAccessError{Operation: "write", Address: 16, Length: 4, Err: cause},
			want: "guest memory write of 4 bytes at 0x10 failed: boom",
		},
		{
			name: "timeout",
			err:  &TimeoutError{Export: "lint", Duration: time.Second},
			want: "engine call 'lint' timed out after 1s",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}

	if !errors.Is(&ExecutionError{Err: cause}, cause) {
		t.Error("ExecutionError does not unwrap to its cause")
	}
}
