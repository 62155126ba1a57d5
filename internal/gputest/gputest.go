// Package gputest provides noop-backed devices for package tests.
package gputest

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// ErrInjected is returned by a Device configured to fail a call.
var ErrInjected = errors.New("gputest: injected failure")

// NoopDevice opens a device and queue on the noop backend. Both are
// destroyed when the test ends.
func NoopDevice(t testing.TB) (hal.Device, hal.Queue) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		t.Fatal("no noop adapters")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device, openDev.Queue
}

// Device wraps a hal.Device and counts resource creation and destruction.
// Setting FailAt[name] = n makes the n-th call (1-based) of that method fail
// with ErrInjected. Calls counts every attempt; Failed counts the injected
// failures, which created nothing.
type Device struct {
	hal.Device

	Calls  map[string]int
	Failed map[string]int
	FailAt map[string]int
}

// NewDevice wraps a noop device for t.
func NewDevice(t testing.TB) (*Device, hal.Queue) {
	t.Helper()
	dev, queue := NoopDevice(t)
	return Wrap(dev), queue
}

// Wrap returns a counting wrapper around dev.
func Wrap(dev hal.Device) *Device {
	return &Device{Device: dev, Calls: map[string]int{}, Failed: map[string]int{}, FailAt: map[string]int{}}
}

// Live returns creations minus destructions for a resource kind such as
// "Texture" or "BindGroup".
func (d *Device) Live(kind string) int {
	create := "Create" + kind
	return d.Calls[create] - d.Failed[create] - d.Calls["Destroy"+kind]
}

func (d *Device) hit(name string) error {
	d.Calls[name]++
	if n, ok := d.FailAt[name]; ok && n == d.Calls[name] {
		d.Failed[name]++
		return ErrInjected
	}
	return nil
}

func (d *Device) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	if err := d.hit("CreateBuffer"); err != nil {
		return nil, err
	}
	return d.Device.CreateBuffer(desc)
}

func (d *Device) DestroyBuffer(b hal.Buffer) {
	d.Calls["DestroyBuffer"]++
	d.Device.DestroyBuffer(b)
}

func (d *Device) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	if err := d.hit("CreateTexture"); err != nil {
		return nil, err
	}
	return d.Device.CreateTexture(desc)
}

func (d *Device) DestroyTexture(t hal.Texture) {
	d.Calls["DestroyTexture"]++
	d.Device.DestroyTexture(t)
}

func (d *Device) CreateTextureView(t hal.Texture, desc *hal.TextureViewDescriptor) (hal.TextureView, error) {
	if err := d.hit("CreateTextureView"); err != nil {
		return nil, err
	}
	return d.Device.CreateTextureView(t, desc)
}

func (d *Device) DestroyTextureView(v hal.TextureView) {
	d.Calls["DestroyTextureView"]++
	d.Device.DestroyTextureView(v)
}

func (d *Device) CreateSampler(desc *hal.SamplerDescriptor) (hal.Sampler, error) {
	if err := d.hit("CreateSampler"); err != nil {
		return nil, err
	}
	return d.Device.CreateSampler(desc)
}

func (d *Device) DestroySampler(s hal.Sampler) {
	d.Calls["DestroySampler"]++
	d.Device.DestroySampler(s)
}

func (d *Device) CreateBindGroupLayout(desc *hal.BindGroupLayoutDescriptor) (hal.BindGroupLayout, error) {
	if err := d.hit("CreateBindGroupLayout"); err != nil {
		return nil, err
	}
	return d.Device.CreateBindGroupLayout(desc)
}

func (d *Device) DestroyBindGroupLayout(l hal.BindGroupLayout) {
	d.Calls["DestroyBindGroupLayout"]++
	d.Device.DestroyBindGroupLayout(l)
}

func (d *Device) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	if err := d.hit("CreateBindGroup"); err != nil {
		return nil, err
	}
	return d.Device.CreateBindGroup(desc)
}

func (d *Device) DestroyBindGroup(g hal.BindGroup) {
	d.Calls["DestroyBindGroup"]++
	d.Device.DestroyBindGroup(g)
}

func (d *Device) CreatePipelineLayout(desc *hal.PipelineLayoutDescriptor) (hal.PipelineLayout, error) {
	if err := d.hit("CreatePipelineLayout"); err != nil {
		return nil, err
	}
	return d.Device.CreatePipelineLayout(desc)
}

func (d *Device) DestroyPipelineLayout(l hal.PipelineLayout) {
	d.Calls["DestroyPipelineLayout"]++
	d.Device.DestroyPipelineLayout(l)
}

func (d *Device) CreateShaderModule(desc *hal.ShaderModuleDescriptor) (hal.ShaderModule, error) {
	if err := d.hit("CreateShaderModule"); err != nil {
		return nil, err
	}
	return d.Device.CreateShaderModule(desc)
}

func (d *Device) DestroyShaderModule(m hal.ShaderModule) {
	d.Calls["DestroyShaderModule"]++
	d.Device.DestroyShaderModule(m)
}

func (d *Device) CreateRenderPipeline(desc *hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	if err := d.hit("CreateRenderPipeline"); err != nil {
		return nil, err
	}
	return d.Device.CreateRenderPipeline(desc)
}

func (d *Device) DestroyRenderPipeline(p hal.RenderPipeline) {
	d.Calls["DestroyRenderPipeline"]++
	d.Device.DestroyRenderPipeline(p)
}

func (d *Device) CreateComputePipeline(desc *hal.ComputePipelineDescriptor) (hal.ComputePipeline, error) {
	if err := d.hit("CreateComputePipeline"); err != nil {
		return nil, err
	}
	return d.Device.CreateComputePipeline(desc)
}

func (d *Device) DestroyComputePipeline(p hal.ComputePipeline) {
	d.Calls["DestroyComputePipeline"]++
	d.Device.DestroyComputePipeline(p)
}

func (d *Device) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	if err := d.hit("CreateCommandEncoder"); err != nil {
		return nil, err
	}
	return d.Device.CreateCommandEncoder(desc)
}

func (d *Device) FreeCommandBuffer(cb hal.CommandBuffer) {
	d.Calls["FreeCommandBuffer"]++
	d.Device.FreeCommandBuffer(cb)
}

func (d *Device) WaitIdle() error {
	if err := d.hit("WaitIdle"); err != nil {
		return err
	}
	return d.Device.WaitIdle()
}
