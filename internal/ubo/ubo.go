// Package ubo manages persistently mapped uniform buffers that mirror a
// plain Go struct.
package ubo

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrNotPrepared is returned by operations that need the GPU buffer.
var ErrNotPrepared = errors.New("ubo: not prepared")

// Interface is the type-erased view of a Managed buffer used by passes that
// bind a heterogeneous list of uniform buffers.
type Interface interface {
	Prepare(device hal.Device, queue hal.Queue) error
	Update() error
	Entry(binding uint32) gputypes.BindGroupEntry
	LayoutEntry(binding uint32, stages gputypes.ShaderStages) gputypes.BindGroupLayoutEntry
	Size() uint64
	Destroy()
}

// Managed owns a uniform buffer sized to T and an in-memory copy of T.
// T must be a plain value type with std140-compatible layout: no pointers,
// slices, maps or strings.
//
// Update copies the in-memory value into the mapped buffer. On devices
// whose mapping is not host-coherent the copy goes through the queue
// instead.
type Managed[T any] struct {
	Label string

	value  T
	device hal.Device
	queue  hal.Queue
	buffer hal.Buffer
	mapped unsafe.Pointer
}

// New returns an unprepared buffer holding initial.
func New[T any](label string, initial T) *Managed[T] {
	return &Managed[T]{Label: label, value: initial}
}

// Value returns a pointer to the in-memory value. Changes become visible to
// the GPU on the next Update.
func (m *Managed[T]) Value() *T {
	return &m.value
}

// Set replaces the in-memory value.
func (m *Managed[T]) Set(v T) {
	m.value = v
}

// Size returns the buffer size in bytes.
func (m *Managed[T]) Size() uint64 {
	return uint64(unsafe.Sizeof(m.value))
}

// Prepared reports whether the GPU buffer exists.
func (m *Managed[T]) Prepared() bool {
	return m.buffer != nil
}

// Prepare creates and maps the buffer, then uploads the current value.
// Calling Prepare on a prepared buffer is a no-op.
func (m *Managed[T]) Prepare(device hal.Device, queue hal.Queue) error {
	if m.buffer != nil {
		return nil
	}
	size := m.Size()
	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: m.Label,
		Size:  size,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst | gputypes.BufferUsageMapWrite,
	})
	if err != nil {
		return fmt.Errorf("create %s buffer: %w", m.Label, err)
	}
	mapping, err := device.MapBuffer(buf, 0, size)
	if err != nil {
		device.DestroyBuffer(buf)
		return fmt.Errorf("map %s buffer: %w", m.Label, err)
	}
	if !mapping.IsCoherent {
		// Non-coherent memory would need a flush per write; use the queue.
		if err := device.UnmapBuffer(buf); err != nil {
			device.DestroyBuffer(buf)
			return fmt.Errorf("unmap %s buffer: %w", m.Label, err)
		}
		mapping.Ptr = nil
	}
	m.device = device
	m.queue = queue
	m.buffer = buf
	m.mapped = mapping.Ptr
	return m.Update()
}

// Update copies the in-memory value to the GPU buffer.
func (m *Managed[T]) Update() error {
	if m.buffer == nil {
		return ErrNotPrepared
	}
	src := unsafe.Slice((*byte)(unsafe.Pointer(&m.value)), m.Size())
	if m.mapped != nil {
		copy(unsafe.Slice((*byte)(m.mapped), len(src)), src)
		return nil
	}
	if err := m.queue.WriteBuffer(m.buffer, 0, src); err != nil {
		return fmt.Errorf("write %s buffer: %w", m.Label, err)
	}
	return nil
}

// Buffer returns the GPU buffer, or nil before Prepare.
func (m *Managed[T]) Buffer() hal.Buffer {
	return m.buffer
}

// Entry returns the bind group entry binding the whole buffer.
func (m *Managed[T]) Entry(binding uint32) gputypes.BindGroupEntry {
	var handle uintptr
	if m.buffer != nil {
		handle = m.buffer.NativeHandle()
	}
	return gputypes.BindGroupEntry{
		Binding:  binding,
		Resource: gputypes.BufferBinding{Buffer: handle, Offset: 0, Size: m.Size()},
	}
}

// LayoutEntry returns the matching uniform-buffer layout entry.
func (m *Managed[T]) LayoutEntry(binding uint32, stages gputypes.ShaderStages) gputypes.BindGroupLayoutEntry {
	return gputypes.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: stages,
		Buffer: &gputypes.BufferBindingLayout{
			Type:           gputypes.BufferBindingTypeUniform,
			MinBindingSize: m.Size(),
		},
	}
}

// Destroy unmaps and frees the buffer. The in-memory value is kept, so the
// buffer can be prepared again.
func (m *Managed[T]) Destroy() {
	if m.buffer == nil {
		return
	}
	if m.mapped != nil {
		if err := m.device.UnmapBuffer(m.buffer); err != nil {
			slogger().Warn("ubo: unmap failed", "label", m.Label, "err", err)
		}
		m.mapped = nil
	}
	m.device.DestroyBuffer(m.buffer)
	m.buffer = nil
}
