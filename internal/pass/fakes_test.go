package pass_test

import (
	"testing"
	"testing/fstest"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rtfilters/internal/attachment"
	"github.com/gogpu/rtfilters/internal/binding"
	"github.com/gogpu/rtfilters/internal/gputest"
	"github.com/gogpu/rtfilters/internal/pass"
	"github.com/gogpu/rtfilters/internal/raytrace"
	"github.com/gogpu/rtfilters/internal/shader"
	"github.com/gogpu/rtfilters/internal/ubo"
)

type testSceneInfo struct {
	View  [16]float32
	Frame uint32
	_     [3]uint32
}

type testGui struct {
	Split   float32
	Display [2]uint32
	_       uint32
}

type testBMFRConfig struct {
	BlockSize    uint32
	FeatureCount uint32
	Frame        uint32
	Noise        float32
}

// spirv is the smallest blob the shader library accepts as bytecode.
var spirv = []byte{0x03, 0x02, 0x23, 0x07}

// rtShaders holds the precompiled ray tracing stages.
var rtShaders = fstest.MapFS{
	"raygen.spv":      {Data: spirv},
	"miss.spv":        {Data: spirv},
	"shadow_miss.spv": {Data: spirv},
	"closest_hit.spv": {Data: spirv},
}

func shaderOptions() []shader.Option {
	return []shader.Option{shader.WithSourceMode(), shader.WithFS(rtShaders)}
}

type fakeScene struct {
	vertices, indices, materials hal.Buffer
	uniforms, images             hal.BindGroupLayout
	draws                        int
}

func newFakeScene(t *testing.T, dev hal.Device) *fakeScene {
	t.Helper()
	s := &fakeScene{}
	for _, b := range []*hal.Buffer{&s.vertices, &s.indices, &s.materials} {
		buf, err := dev.CreateBuffer(&hal.BufferDescriptor{Label: "scene", Size: 1024, Usage: gputypes.BufferUsageStorage})
		if err != nil {
			t.Fatal(err)
		}
		*b = buf
	}
	for _, l := range []*hal.BindGroupLayout{&s.uniforms, &s.images} {
		layout, err := dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{Label: "scene"})
		if err != nil {
			t.Fatal(err)
		}
		*l = layout
	}
	t.Cleanup(func() {
		dev.DestroyBuffer(s.vertices)
		dev.DestroyBuffer(s.indices)
		dev.DestroyBuffer(s.materials)
		dev.DestroyBindGroupLayout(s.uniforms)
		dev.DestroyBindGroupLayout(s.images)
	})
	return s
}

func (s *fakeScene) VertexBuffer() hal.Buffer   { return s.vertices }
func (s *fakeScene) IndexBuffer() hal.Buffer    { return s.indices }
func (s *fakeScene) MaterialBuffer() hal.Buffer { return s.materials }
func (s *fakeScene) VertexCount() uint32        { return 24 }
func (s *fakeScene) IndexCount() uint32         { return 36 }

func (s *fakeScene) VertexLayout() gputypes.VertexBufferLayout {
	return gputypes.VertexBufferLayout{
		ArrayStride: 32,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes: []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: gputypes.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
			{Format: gputypes.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
		},
	}
}

func (s *fakeScene) Layouts() (uniforms, images hal.BindGroupLayout) { return s.uniforms, s.images }

func (s *fakeScene) Draw(hal.RenderPassEncoder, pass.DrawFlags, hal.PipelineLayout, uint32) {
	s.draws++
}

type fakeDriver struct {
	device          hal.Device
	queue           hal.Queue
	width, height   uint32
	present, render *pass.Semaphore
}

func newFakeDriver(dev hal.Device, queue hal.Queue, width, height uint32) *fakeDriver {
	return &fakeDriver{
		device:  dev,
		queue:   queue,
		width:   width,
		height:  height,
		present: pass.NewSemaphore("present_complete"),
		render:  pass.NewSemaphore("render_complete"),
	}
}

func (d *fakeDriver) Device() hal.Device               { return d.device }
func (d *fakeDriver) Queue() hal.Queue                 { return d.queue }
func (d *fakeDriver) Extent() (uint32, uint32)         { return d.width, d.height }
func (d *fakeDriver) Timer() float32                   { return 0.25 }
func (d *fakeDriver) PresentComplete() *pass.Semaphore { return d.present }
func (d *fakeDriver) RenderComplete() *pass.Semaphore  { return d.render }

// rtHandle is a non-empty struct so every handle has its own address.
type rtHandle struct{ id uintptr }

func (h *rtHandle) NativeHandle() uintptr { return h.id }
func (h *rtHandle) Address() uint64       { return uint64(h.id) << 12 }

// fakeRT forwards group objects to the wrapped device and records trace
// dispatches.
type fakeRT struct {
	device   hal.Device
	features raytrace.Features
	next     uintptr
	calls    map[string]int
	traces   []raytrace.TraceRaysDescriptor
	lastBLAS raytrace.BLASDescriptor
}

func newFakeRT(dev hal.Device) *fakeRT {
	return &fakeRT{
		device: dev,
		features: raytrace.Features{
			BufferDeviceAddress:    true,
			RayTracingPipeline:     true,
			AccelerationStructure:  true,
			RuntimeDescriptorArray: true,
			NonUniformIndexing:     true,
		},
		calls: map[string]int{},
	}
}

func (r *fakeRT) handle() *rtHandle {
	r.next++
	return &rtHandle{id: r.next}
}

func (r *fakeRT) Features() raytrace.Features { return r.features }

func (r *fakeRT) Properties() raytrace.Properties {
	return raytrace.Properties{
		ShaderGroupHandleSize:      32,
		ShaderGroupHandleAlignment: 64,
		ShaderGroupBaseAlignment:   64,
		MaxRecursionDepth:          31,
	}
}

func (r *fakeRT) CreateBLAS(desc *raytrace.BLASDescriptor) (raytrace.AccelerationStructure, error) {
	r.calls["CreateBLAS"]++
	r.lastBLAS = *desc
	return r.handle(), nil
}

func (r *fakeRT) CreateTLAS(*raytrace.TLASDescriptor) (raytrace.AccelerationStructure, error) {
	r.calls["CreateTLAS"]++
	return r.handle(), nil
}

func (r *fakeRT) DestroyAccelerationStructure(raytrace.AccelerationStructure) {
	r.calls["DestroyAccelerationStructure"]++
}

func (r *fakeRT) CreatePipeline(*raytrace.PipelineDescriptor) (raytrace.Pipeline, error) {
	r.calls["CreatePipeline"]++
	return r.handle(), nil
}

func (r *fakeRT) DestroyPipeline(raytrace.Pipeline) { r.calls["DestroyPipeline"]++ }

func (r *fakeRT) ShaderGroupHandles(_ raytrace.Pipeline, first, count uint32, dst []byte) error {
	for g := first; g < first+count; g++ {
		for i := range 32 {
			dst[g*64+uint32(i)] = byte(g + 1)
		}
	}
	return nil
}

func (r *fakeRT) CreateBindGroupLayout(desc *raytrace.BindGroupLayoutDescriptor) (hal.BindGroupLayout, error) {
	return r.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{Label: desc.Label, Entries: desc.Entries})
}

func (r *fakeRT) DestroyBindGroupLayout(l hal.BindGroupLayout) { r.device.DestroyBindGroupLayout(l) }

func (r *fakeRT) CreateBindGroup(desc *raytrace.BindGroupDescriptor) (hal.BindGroup, error) {
	r.calls["CreateBindGroup"]++
	return r.device.CreateBindGroup(&hal.BindGroupDescriptor{Label: desc.Label, Layout: desc.Layout, Entries: desc.Entries})
}

func (r *fakeRT) DestroyBindGroup(g hal.BindGroup) { r.device.DestroyBindGroup(g) }

func (r *fakeRT) BufferAddress(hal.Buffer) uint64 {
	r.next++
	return uint64(r.next) << 16
}

func (r *fakeRT) TraceRays(_ hal.CommandEncoder, desc *raytrace.TraceRaysDescriptor) error {
	r.traces = append(r.traces, *desc)
	return nil
}

// newEnv prepares attachments and statics for driving single passes.
func newEnv(t *testing.T, width, height uint32) (*pass.Env, *gputest.Device) {
	t.Helper()
	dev, queue := gputest.NewDevice(t)
	reg := attachment.New(dev)
	if err := reg.Create(width, height); err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(reg.Destroy)
	statics, err := pass.NewStatics(dev, shader.NewLibrary(dev, shaderOptions()...))
	if err != nil {
		t.Fatalf("NewStatics: %v", err)
	}
	t.Cleanup(statics.Close)
	sceneInfo := ubo.New("scene_info", testSceneInfo{})
	t.Cleanup(sceneInfo.Destroy)
	return &pass.Env{
		Device:    dev,
		Queue:     queue,
		Registry:  reg,
		Statics:   statics,
		Scene:     newFakeScene(t, dev),
		SceneInfo: sceneInfo,
	}, dev
}

type managerFixture struct {
	m      *pass.Manager
	dev    *gputest.Device
	driver *fakeDriver
	scene  *fakeScene
	rt     *fakeRT
}

func newManager(t *testing.T, tmpl pass.Template, withRT bool, mutate ...func(*pass.Config)) *managerFixture {
	t.Helper()
	dev, queue := gputest.NewDevice(t)
	f := &managerFixture{dev: dev, scene: newFakeScene(t, dev), driver: newFakeDriver(dev, queue, 64, 48)}
	cfg := pass.Config{
		Template:      tmpl,
		Scene:         f.scene,
		SceneInfo:     ubo.New("scene_info", testSceneInfo{}),
		Gui:           ubo.New("gui", testGui{Split: 0.5}),
		BMFRConfig:    ubo.New("bmfr_config", testBMFRConfig{BlockSize: 32, FeatureCount: 10}),
		ShaderOptions: shaderOptions(),
	}
	if withRT {
		f.rt = newFakeRT(dev)
		cfg.RayTracer = f.rt
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	m, err := pass.NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	f.m = m
	t.Cleanup(m.Close)
	return f
}

func (f *managerFixture) prepare(t *testing.T) {
	t.Helper()
	if err := f.m.Prepare(f.driver, 0); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
}

// newGauss blurs the albedo into the position attachment: the smallest
// post-process with one input and one output.
func newGauss() *pass.PostProcess {
	return pass.NewPostProcess(pass.PostProcessConfig{
		Name:   "gauss",
		Shader: "gauss",
		Bindings: binding.List{
			binding.New(attachment.Albedo, binding.ReadOnly, binding.Sampled),
			binding.New(attachment.Position, binding.WriteOnly, binding.Sampled),
		},
	})
}

// laggingQueue reports no completed work for the first lag polls after
// each submission and logs submissions and observed completions.
type laggingQueue struct {
	hal.Queue
	name    string
	lag     int
	pending int
	log     *[]string
}

func (q *laggingQueue) Submit(cbs []hal.CommandBuffer) (uint64, error) {
	*q.log = append(*q.log, q.name+" submit")
	q.pending = q.lag
	return q.Queue.Submit(cbs)
}

func (q *laggingQueue) PollCompleted() uint64 {
	if q.pending > 0 {
		q.pending--
		return 0
	}
	*q.log = append(*q.log, q.name+" complete")
	return q.Queue.PollCompleted()
}
