package ubo_test

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rtfilters/internal/gputest"
	"github.com/gogpu/rtfilters/internal/ubo"
)

type config struct {
	Iterations uint32
	Phi        float32
	Extent     [2]uint32
}

func readBack(t *testing.T, dev hal.Device, buf hal.Buffer) config {
	t.Helper()
	var c config
	m, err := dev.MapBuffer(buf, 0, uint64(unsafe.Sizeof(c)))
	if err != nil {
		t.Fatalf("MapBuffer: %v", err)
	}
	return *(*config)(m.Ptr)
}

func TestManagedUpdate(t *testing.T) {
	dev, queue := gputest.NewDevice(t)
	m := ubo.New("atrous_config", config{Iterations: 5, Phi: 0.5})
	if err := m.Update(); !errors.Is(err, ubo.ErrNotPrepared) {
		t.Errorf("Update before Prepare = %v, want ErrNotPrepared", err)
	}
	if err := m.Prepare(dev, queue); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	defer m.Destroy()

	if got := readBack(t, dev, m.Buffer()); got.Iterations != 5 || got.Phi != 0.5 {
		t.Errorf("initial upload = %+v", got)
	}

	m.Value().Extent = [2]uint32{1280, 720}
	if got := readBack(t, dev, m.Buffer()); got.Extent != [2]uint32{} {
		t.Errorf("value visible before Update: %+v", got)
	}
	if err := m.Update(); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := readBack(t, dev, m.Buffer()); got.Extent != [2]uint32{1280, 720} {
		t.Errorf("after Update = %+v", got)
	}
}

type incoherentDevice struct {
	hal.Device
}

func (d incoherentDevice) MapBuffer(buf hal.Buffer, off, size uint64) (hal.BufferMapping, error) {
	m, err := d.Device.MapBuffer(buf, off, size)
	m.IsCoherent = false
	return m, err
}

func TestManagedUpdateThroughQueue(t *testing.T) {
	dev, queue := gputest.NoopDevice(t)
	m := ubo.New("gui", config{})
	if err := m.Prepare(incoherentDevice{dev}, queue); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	defer m.Destroy()
	m.Set(config{Iterations: 9})
	if err := m.Update(); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := readBack(t, dev, m.Buffer()); got.Iterations != 9 {
		t.Errorf("queued write = %+v", got)
	}
}

var errUnmap = errors.New("unmap failed")

type unmapFailingDevice struct {
	incoherentDevice
}

func (unmapFailingDevice) UnmapBuffer(hal.Buffer) error { return errUnmap }

func TestManagedPrepareUnmapFailure(t *testing.T) {
	dev, queue := gputest.NewDevice(t)
	m := ubo.New("gui", config{})
	err := m.Prepare(unmapFailingDevice{incoherentDevice{dev}}, queue)
	if !errors.Is(err, errUnmap) {
		t.Fatalf("Prepare error = %v, want unmap failure", err)
	}
	if m.Prepared() {
		t.Error("prepared after failed unmap")
	}
	if got := dev.Live("Buffer"); got != 0 {
		t.Errorf("live buffers = %d, want 0", got)
	}
	if err := m.Prepare(dev, queue); err != nil {
		t.Fatalf("Prepare after failure: %v", err)
	}
	m.Destroy()
}

func TestManagedEntries(t *testing.T) {
	dev, queue := gputest.NewDevice(t)
	m := ubo.New("scene", config{})
	if err := m.Prepare(dev, queue); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := m.Prepare(dev, queue); err != nil {
		t.Fatalf("second Prepare: %v", err)
	}
	if got := dev.Calls["CreateBuffer"]; got != 1 {
		t.Errorf("CreateBuffer calls = %d, want 1", got)
	}

	e := m.Entry(4)
	bb, ok := e.Resource.(gputypes.BufferBinding)
	if !ok || e.Binding != 4 || bb.Size != m.Size() {
		t.Errorf("Entry(4) = %+v", e)
	}
	le := m.LayoutEntry(4, gputypes.ShaderStageFragment)
	if le.Buffer == nil || le.Buffer.Type != gputypes.BufferBindingTypeUniform {
		t.Errorf("LayoutEntry(4) = %+v", le)
	}

	m.Destroy()
	m.Destroy()
	if dev.Live("Buffer") != 0 {
		t.Errorf("live buffers = %d", dev.Live("Buffer"))
	}
	if m.Prepared() {
		t.Error("still prepared after Destroy")
	}
}
