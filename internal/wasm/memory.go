package wasm

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// Guest allocator exports every engine module must provide.
const (
	allocExport   = "alloc"
	deallocExport = "dealloc"
)

// Memory moves strings across the guest boundary.
//
// Buffers handed to the guest are obtained from its own alloc export so the
// guest allocator owns them; callers release them with Free.
type Memory struct {
	mem     api.Memory
	alloc   api.Function
	dealloc api.Function
}

// NewMemory creates a memory helper. alloc and dealloc may be nil for
// read-only access.
func NewMemory(module api.Module) *Memory {
	return &Memory{
		mem:     module.Memory(),
		alloc:   module.ExportedFunction(allocExport),
		dealloc: module.ExportedFunction(deallocExport),
	}
}

// ReadString reads a null-terminated string from Wasm memory.
func (m *Memory) ReadString(ptr uint32, maxLen uint32) (string, bool) {
	if m.mem == nil {
		return "", false
	}
	buf, ok := m.mem.Read(ptr, maxLen)
	if !ok {
		return "", false
	}

	end := len(buf)
	for i, b := range buf {
		if b == 0 {
			end = i
			break
		}
	}

	return string(buf[:end]), true
}

// ReadBytes copies length bytes out of Wasm memory.
func (m *Memory) ReadBytes(ptr uint32, length uint32) ([]byte, bool) {
	if m.mem == nil {
		return nil, false
	}
	view, ok := m.mem.Read(ptr, length)
	if !ok {
		return nil, false
	}
	// Read returns a view that is invalidated when the guest grows memory.
	out := make([]byte, len(view))
	copy(out, view)
	return out, true
}

// WriteString writes a string into a guest-allocated buffer.
func (m *Memory) WriteString(ctx context.Context, s string) (uint32, uint32, error) {
	return m.WriteBytes(ctx, []byte(s))
}

// WriteBytes writes data into a guest-allocated buffer and returns its
// pointer and length.
func (m *Memory) WriteBytes(ctx context.Context, data []byte) (uint32, uint32, error) {
	if m.alloc == nil || m.mem == nil {
		return 0, 0, &FunctionNotFoundError{Export: allocExport}
	}
	size := uint32(len(data))
	results, err := m.alloc.Call(ctx, uint64(size))
	if err != nil {
		return 0, 0, &MemoryAccessError{Operation: "alloc", Length: size, Err: err}
	}
	if len(results) != 1 {
		return 0, 0, &MemoryAccessError{
			Operation: "alloc",
			Length:    size,
			Err:       fmt.Errorf("expected 1 result, got %d", len(results)),
		}
	}
	ptr := uint32(results[0])
	if !m.mem.Write(ptr, data) {
		return 0, 0, &MemoryAccessError{
			Operation: "write",
			Address:   ptr,
			Length:    size,
			Err:       fmt.Errorf("out of range of memory size %d", m.mem.Size()),
		}
	}
	return ptr, size, nil
}

// Free returns a buffer to the guest allocator. It is a no-op when the
// module exports no dealloc.
func (m *Memory) Free(ctx context.Context, ptr, length uint32) error {
	if m.dealloc == nil || length == 0 {
		return nil
	}
	if _, err := m.dealloc.Call(ctx, uint64(ptr), uint64(length)); err != nil {
		return &MemoryAccessError{Operation: "dealloc", Address: ptr, Length: length, Err: err}
	}
	return nil
}
