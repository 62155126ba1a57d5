package pass

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rtfilters/internal/attachment"
	"github.com/gogpu/rtfilters/internal/binding"
	"github.com/gogpu/rtfilters/internal/shader"
	"github.com/gogpu/rtfilters/recording"
)

// GBuffer rasterizes the scene into the position, normal, albedo, motion,
// mesh id and depth attachments.
type GBuffer struct {
	flags    DrawFlags
	bindings binding.List

	env    *Env
	device hal.Device

	groupLayout    hal.BindGroupLayout
	group          hal.BindGroup
	pipelineLayout hal.PipelineLayout
	pipeline       hal.RenderPipeline
	encoder        hal.CommandEncoder
	recording      *recording.Recording
	prepared       bool
}

// NewGBuffer returns an unprepared G-buffer pass.
func NewGBuffer(flags DrawFlags) *GBuffer {
	out := func(k attachment.Key) *binding.Binding {
		return binding.New(k, binding.WriteOnly, binding.SubpassOutput)
	}
	return &GBuffer{
		flags: flags,
		bindings: binding.List{
			out(attachment.Position),
			out(attachment.Normal),
			out(attachment.Albedo),
			out(attachment.MotionVector),
			out(attachment.MeshID),
			out(attachment.Depth),
		},
	}
}

func (g *GBuffer) Name() string                       { return "gbuffer" }
func (g *GBuffer) Prepared() bool                     { return g.prepared }
func (g *GBuffer) Bindings() binding.List             { return g.bindings }
func (g *GBuffer) Recording() *recording.Recording    { return g.recording }
func (g *GBuffer) PipelineLayout() hal.PipelineLayout { return g.pipelineLayout }

func (g *GBuffer) Prepare(env *Env) error {
	if g.prepared {
		return nil
	}
	if env.Scene == nil {
		return fmt.Errorf("prepare gbuffer: %w", ErrNoScene)
	}
	if env.SceneInfo == nil {
		return fmt.Errorf("prepare gbuffer: %w", ErrNoSceneInfo)
	}
	g.env, g.device = env, env.Device
	if err := g.prepare(); err != nil {
		g.CleanUp()
		return fmt.Errorf("prepare gbuffer: %w", err)
	}
	g.prepared = true
	slogger().Debug("pass: prepared", "pass", g.Name(), "commands", g.recording.Len())
	return nil
}

func (g *GBuffer) prepare() error {
	if err := g.bindings.Resolve(g.device, g.env.Registry); err != nil {
		return err
	}
	info := describeRenderPass(g.bindings)
	targets := buildTargets(g.bindings, info)

	sceneInfo := g.env.SceneInfo
	if err := sceneInfo.Prepare(g.device, g.env.Queue); err != nil {
		return fmt.Errorf("prepare scene info: %w", err)
	}
	stages := gputypes.ShaderStageVertex | gputypes.ShaderStageFragment
	layout, err := g.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "gbuffer_scene_info",
		Entries: []gputypes.BindGroupLayoutEntry{sceneInfo.LayoutEntry(0, stages)},
	})
	if err != nil {
		return fmt.Errorf("create scene info layout: %w", err)
	}
	g.groupLayout = layout
	group, err := g.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "gbuffer_scene_info",
		Layout:  layout,
		Entries: []gputypes.BindGroupEntry{sceneInfo.Entry(0)},
	})
	if err != nil {
		return fmt.Errorf("create scene info group: %w", err)
	}
	g.group = group

	uniforms, images := g.env.Scene.Layouts()
	pl, err := g.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "gbuffer",
		BindGroupLayouts: []hal.BindGroupLayout{layout, uniforms, images},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	g.pipelineLayout = pl

	lib := g.env.Statics.Library()
	vs, err := lib.Module("gbuffer", shader.Vertex)
	if err != nil {
		return err
	}
	fs, err := lib.Module("gbuffer", shader.Fragment)
	if err != nil {
		return err
	}
	pipeline, err := g.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "gbuffer",
		Layout: pl,
		Vertex: hal.VertexState{
			Module:     vs,
			EntryPoint: shader.Vertex.EntryPoint(),
			Buffers:    []gputypes.VertexBufferLayout{g.env.Scene.VertexLayout()},
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  gputypes.PrimitiveTopologyTriangleList,
			FrontFace: gputypes.FrontFaceCCW,
			CullMode:  gputypes.CullModeBack,
		},
		DepthStencil: targets.depthState,
		Multisample:  gputypes.DefaultMultisampleState(),
		Fragment: &hal.FragmentState{
			Module:     fs,
			EntryPoint: shader.Fragment.EntryPoint(),
			Targets:    targets.targets,
		},
	})
	if err != nil {
		return fmt.Errorf("create render pipeline: %w", err)
	}
	g.pipeline = pipeline

	enc, err := g.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "gbuffer"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	g.encoder = enc
	g.recording = g.record(targets)
	return nil
}

func (g *GBuffer) record(targets renderTargets) *recording.Recording {
	width, height := g.env.Extent()
	scene, flags, layout := g.env.Scene, g.flags, g.pipelineLayout

	rec := recording.NewRecorder("gbuffer")
	rec.BeginRenderPass(targets.descriptor("gbuffer"))
	rec.SetViewport(float32(width), float32(height))
	rec.SetScissor(width, height)
	rec.SetPipeline(g.pipeline)
	rec.SetBindGroup(0, g.group)
	rec.Execute("scene", func(rp hal.RenderPassEncoder) {
		scene.Draw(rp, flags, layout, 1)
	})
	rec.EndRenderPass()
	return rec.Finish()
}

func (g *GBuffer) Draw() (hal.CommandBuffer, error) {
	if !g.prepared {
		return nil, fmt.Errorf("gbuffer: %w", ErrNotPrepared)
	}
	return g.recording.Playback(g.encoder, g.env.Queue)
}

// UpdateUniformBuffer uploads the scene info block.
func (g *GBuffer) UpdateUniformBuffer() error {
	if !g.prepared {
		return nil
	}
	return g.env.SceneInfo.Update()
}

func (g *GBuffer) CleanUp() {
	if g.device == nil {
		return
	}
	if g.encoder != nil {
		g.encoder.Destroy()
		g.encoder = nil
	}
	if g.pipeline != nil {
		g.device.DestroyRenderPipeline(g.pipeline)
		g.pipeline = nil
	}
	if g.pipelineLayout != nil {
		g.device.DestroyPipelineLayout(g.pipelineLayout)
		g.pipelineLayout = nil
	}
	if g.group != nil {
		g.device.DestroyBindGroup(g.group)
		g.group = nil
	}
	if g.groupLayout != nil {
		g.device.DestroyBindGroupLayout(g.groupLayout)
		g.groupLayout = nil
	}
	g.bindings.Release(g.device)
	g.recording = nil
	g.prepared = false
}
