package pass

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rtfilters/internal/attachment"
	"github.com/gogpu/rtfilters/internal/binding"
	"github.com/gogpu/rtfilters/internal/raytrace"
	"github.com/gogpu/rtfilters/internal/shader"
	"github.com/gogpu/rtfilters/recording"
)

// Path tracer bind group slots.
const (
	ptSlotTLAS = iota
	ptSlotOutput
	ptSlotSceneInfo
	ptSlotVertices
	ptSlotIndices
	ptSlotMaterials
	ptSlotPush
)

// rayStages marks entries visible to every ray tracing stage. gputypes has
// no bits for them; the ray tracing device maps this value.
const rayStages = ^gputypes.ShaderStages(0)

// pathTracerStages lists the pipeline stages in group order: raygen,
// primary miss, shadow miss, closest hit.
var pathTracerStages = []struct {
	name  string
	stage shader.Stage
}{
	{"raygen", shader.RayGen},
	{"miss", shader.Miss},
	{"shadow_miss", shader.Miss},
	{"closest_hit", shader.ClosestHit},
}

// PathTracer traces the scene into the RTOutput attachment with a
// hardware ray tracing pipeline.
type PathTracer struct {
	rt     raytrace.Device
	output binding.List

	env    *Env
	device hal.Device

	blas, tlas     raytrace.AccelerationStructure
	pipeline       raytrace.Pipeline
	pipelineLayout hal.PipelineLayout
	groupLayout    hal.BindGroupLayout
	group          hal.BindGroup
	sbt            raytrace.SBTLayout
	tables         [3]hal.Buffer
	regions        [3]raytrace.StridedRegion
	push           hal.Buffer
	encoder        hal.CommandEncoder
	recording      *recording.Recording

	frame    uint32
	prepared bool
}

// NewPathTracer fails with raytrace.ErrMissingFeature unless rt supports
// every feature the pipeline needs.
func NewPathTracer(rt raytrace.Device) (*PathTracer, error) {
	if err := raytrace.RequireFeatures(rt); err != nil {
		return nil, err
	}
	return &PathTracer{
		rt: rt,
		output: binding.List{
			binding.New(attachment.RTOutput, binding.WriteOnly, binding.StorageImage,
				binding.WithLayouts(binding.Undefined, binding.General, binding.General)),
		},
	}, nil
}

func (p *PathTracer) Name() string                    { return "pathtracer" }
func (p *PathTracer) Prepared() bool                  { return p.prepared }
func (p *PathTracer) Bindings() binding.List          { return p.output }
func (p *PathTracer) SBT() raytrace.SBTLayout         { return p.sbt }
func (p *PathTracer) Frame() uint32                   { return p.frame }
func (p *PathTracer) Recording() *recording.Recording { return p.recording }

func (p *PathTracer) Prepare(env *Env) error {
	if p.prepared {
		return nil
	}
	if env.Scene == nil {
		return fmt.Errorf("prepare pathtracer: %w", ErrNoScene)
	}
	if env.SceneInfo == nil {
		return fmt.Errorf("prepare pathtracer: %w", ErrNoSceneInfo)
	}
	p.env, p.device = env, env.Device
	if err := p.prepare(); err != nil {
		p.CleanUp()
		return fmt.Errorf("prepare pathtracer: %w", err)
	}
	p.prepared = true
	slogger().Debug("pass: prepared", "pass", p.Name(), "groups", p.sbt.GroupCount())
	return nil
}

func (p *PathTracer) prepare() error {
	if err := p.buildAccelerationStructures(); err != nil {
		return err
	}
	if err := p.createPipeline(); err != nil {
		return err
	}
	if err := p.createSBT(); err != nil {
		return err
	}
	push, err := createPushBuffer(p.device, "pathtracer")
	if err != nil {
		return err
	}
	p.push = push
	if err := p.createGroup(); err != nil {
		return err
	}
	enc, err := p.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "pathtracer"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	p.encoder = enc
	return nil
}

func (p *PathTracer) buildAccelerationStructures() error {
	scene := p.env.Scene
	layout := scene.VertexLayout()
	format := gputypes.VertexFormatFloat32x3
	if len(layout.Attributes) > 0 {
		format = layout.Attributes[0].Format
	}
	blas, err := p.rt.CreateBLAS(&raytrace.BLASDescriptor{
		Label: "scene_blas",
		Geometry: []raytrace.TriangleGeometry{{
			VertexBuffer: scene.VertexBuffer(),
			VertexFormat: format,
			VertexStride: layout.ArrayStride,
			VertexCount:  scene.VertexCount(),
			IndexBuffer:  scene.IndexBuffer(),
			IndexFormat:  gputypes.IndexFormatUint32,
			IndexCount:   scene.IndexCount(),
			Opaque:       true,
		}},
	})
	if err != nil {
		return fmt.Errorf("create bottom level structure: %w", err)
	}
	p.blas = blas

	tlas, err := p.rt.CreateTLAS(&raytrace.TLASDescriptor{
		Label: "scene_tlas",
		Instances: []raytrace.Instance{{
			Transform: raytrace.IdentityTransform,
			Mask:      0xFF,
			BLAS:      blas,
		}},
	})
	if err != nil {
		return fmt.Errorf("create top level structure: %w", err)
	}
	p.tlas = tlas
	return nil
}

func (p *PathTracer) createPipeline() error {
	storage := func(slot uint32) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    slot,
			Visibility: rayStages,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
		}
	}
	entries := []gputypes.BindGroupLayoutEntry{
		{
			Binding:    ptSlotOutput,
			Visibility: rayStages,
			StorageTexture: &gputypes.StorageTextureBindingLayout{
				Access:        gputypes.StorageTextureAccessWriteOnly,
				Format:        attachment.SpecOf(attachment.RTOutput).Format,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		},
		p.env.SceneInfo.LayoutEntry(ptSlotSceneInfo, rayStages),
		storage(ptSlotVertices),
		storage(ptSlotIndices),
		storage(ptSlotMaterials),
		pushLayoutEntry(ptSlotPush, rayStages),
	}
	gl, err := p.rt.CreateBindGroupLayout(&raytrace.BindGroupLayoutDescriptor{
		Label:                 "pathtracer",
		AccelerationStructure: ptSlotTLAS,
		Entries:               entries,
	})
	if err != nil {
		return fmt.Errorf("create group layout: %w", err)
	}
	p.groupLayout = gl

	pl, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "pathtracer",
		BindGroupLayouts: []hal.BindGroupLayout{gl},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	p.pipelineLayout = pl

	lib := p.env.Statics.Library()
	stages := make([]raytrace.StageDescriptor, len(pathTracerStages))
	for i, s := range pathTracerStages {
		m, err := lib.Module(s.name, s.stage)
		if err != nil {
			return err
		}
		stages[i] = raytrace.StageDescriptor{Stage: s.stage, Module: m, EntryPoint: s.stage.EntryPoint()}
	}
	pipeline, err := p.rt.CreatePipeline(&raytrace.PipelineDescriptor{
		Label:  "pathtracer",
		Layout: pl,
		Stages: stages,
		Groups: []raytrace.Group{
			raytrace.GeneralGroup(0),
			raytrace.GeneralGroup(1),
			raytrace.GeneralGroup(2),
			raytrace.HitGroup(3),
		},
		MaxRecursionDepth: 2,
	})
	if err != nil {
		return fmt.Errorf("create ray tracing pipeline: %w", err)
	}
	p.pipeline = pipeline
	return nil
}

// createSBT copies the group handles into one host-visible buffer per
// table.
func (p *PathTracer) createSBT() error {
	props := p.rt.Properties()
	p.sbt = raytrace.NewSBTLayout(props.ShaderGroupHandleSize, props.ShaderGroupHandleAlignment, 1, 2, 1)

	handles := make([]byte, p.sbt.StorageSize())
	if err := p.rt.ShaderGroupHandles(p.pipeline, 0, p.sbt.GroupCount(), handles); err != nil {
		return fmt.Errorf("get shader group handles: %w", err)
	}
	names := [3]string{"sbt_raygen", "sbt_miss", "sbt_hit"}
	for i, t := range p.sbt.Tables() {
		buf, err := p.device.CreateBuffer(&hal.BufferDescriptor{
			Label: names[i],
			Size:  uint64(t.BufferSize),
			Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("create %s: %w", names[i], err)
		}
		p.tables[i] = buf
		if err := p.env.Queue.WriteBuffer(buf, 0, handles[t.Offset:t.Offset+t.CopySize]); err != nil {
			return fmt.Errorf("write %s: %w", names[i], err)
		}
		p.regions[i] = raytrace.StridedRegion{
			Address: p.rt.BufferAddress(buf),
			Stride:  t.Stride,
			Size:    t.Size,
		}
	}
	return nil
}

// createGroup binds the output image and scene buffers. It is the only
// part rebuilt on resize.
func (p *PathTracer) createGroup() error {
	if err := p.output.Resolve(p.device, p.env.Registry); err != nil {
		return err
	}
	if err := p.env.SceneInfo.Prepare(p.device, p.env.Queue); err != nil {
		return fmt.Errorf("prepare scene info: %w", err)
	}
	buffer := func(slot uint32, b hal.Buffer) gputypes.BindGroupEntry {
		return gputypes.BindGroupEntry{Binding: slot, Resource: gputypes.BufferBinding{Buffer: b.NativeHandle()}}
	}
	scene := p.env.Scene
	group, err := p.rt.CreateBindGroup(&raytrace.BindGroupDescriptor{
		Label:                 "pathtracer",
		Layout:                p.groupLayout,
		AccelerationStructure: p.tlas,
		Binding:               ptSlotTLAS,
		Entries: []gputypes.BindGroupEntry{
			{Binding: ptSlotOutput, Resource: gputypes.TextureViewBinding{TextureView: p.output[0].View().NativeHandle()}},
			p.env.SceneInfo.Entry(ptSlotSceneInfo),
			buffer(ptSlotVertices, scene.VertexBuffer()),
			buffer(ptSlotIndices, scene.IndexBuffer()),
			buffer(ptSlotMaterials, scene.MaterialBuffer()),
			pushEntry(ptSlotPush, p.push),
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	p.group = group
	return nil
}

// Resize rebinds the output image. Geometry does not depend on the
// extent, so the acceleration structures and pipeline are kept.
func (p *PathTracer) Resize(env *Env) error {
	if !p.prepared {
		return p.Prepare(env)
	}
	if p.group != nil {
		p.rt.DestroyBindGroup(p.group)
		p.group = nil
	}
	if err := p.createGroup(); err != nil {
		p.CleanUp()
		return fmt.Errorf("resize pathtracer: %w", err)
	}
	return nil
}

// TraceRays implements recording.RayDispatcher.
func (p *PathTracer) TraceRays(enc hal.CommandEncoder, width, height, depth uint32) error {
	return p.rt.TraceRays(enc, &raytrace.TraceRaysDescriptor{
		Pipeline:  p.pipeline,
		Layout:    p.pipelineLayout,
		BindGroup: p.group,
		RayGen:    p.regions[0],
		Miss:      p.regions[1],
		Hit:       p.regions[2],
		Width:     width,
		Height:    height,
		Depth:     depth,
	})
}

// Draw advances the frame counter and re-records the dispatch.
func (p *PathTracer) Draw() (hal.CommandBuffer, error) {
	if !p.prepared {
		return nil, fmt.Errorf("pathtracer: %w", ErrNotPrepared)
	}
	p.frame++
	width, height := p.env.Extent()
	block := pushBlock{
		Width:      width,
		Height:     height,
		Frame:      p.frame,
		VertexSize: uint32(p.env.Scene.VertexLayout().ArrayStride), //nolint:gosec // G115: vertex stride is small
	}

	rec := recording.NewRecorder("pathtracer")
	rec.Transition(p.output.Barriers()...)
	rec.WriteBuffer(p.push, 0, block.bytes())
	rec.TraceRays(p, width, height, 1)
	p.recording = rec.Finish()
	return p.recording.Playback(p.encoder, p.env.Queue)
}

// UpdateUniformBuffer uploads the scene info block.
func (p *PathTracer) UpdateUniformBuffer() error {
	if !p.prepared {
		return nil
	}
	return p.env.SceneInfo.Update()
}

func (p *PathTracer) CleanUp() {
	if p.device == nil {
		return
	}
	if p.encoder != nil {
		p.encoder.Destroy()
		p.encoder = nil
	}
	if p.group != nil {
		p.rt.DestroyBindGroup(p.group)
		p.group = nil
	}
	if p.push != nil {
		p.device.DestroyBuffer(p.push)
		p.push = nil
	}
	for i, buf := range p.tables {
		if buf != nil {
			p.device.DestroyBuffer(buf)
			p.tables[i] = nil
		}
	}
	if p.pipeline != nil {
		p.rt.DestroyPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.pipelineLayout != nil {
		p.device.DestroyPipelineLayout(p.pipelineLayout)
		p.pipelineLayout = nil
	}
	if p.groupLayout != nil {
		p.rt.DestroyBindGroupLayout(p.groupLayout)
		p.groupLayout = nil
	}
	if p.tlas != nil {
		p.rt.DestroyAccelerationStructure(p.tlas)
		p.tlas = nil
	}
	if p.blas != nil {
		p.rt.DestroyAccelerationStructure(p.blas)
		p.blas = nil
	}
	p.output.Release(p.device)
	p.recording = nil
	p.frame = 0
	p.prepared = false
}
