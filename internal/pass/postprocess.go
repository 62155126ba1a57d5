package pass

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rtfilters/internal/binding"
	"github.com/gogpu/rtfilters/internal/shader"
	"github.com/gogpu/rtfilters/internal/ubo"
	"github.com/gogpu/rtfilters/recording"
)

// Bind group slots of a post-process pipeline.
const (
	groupImages   = 0
	groupSamplers = 1
	groupUniforms = 2
)

// Binding slots inside the sampler group.
const (
	slotDirect     = 0
	slotNormalized = 1
	slotPush       = 2
)

// PostProcessConfig configures a PostProcess pass.
type PostProcessConfig struct {
	Name string
	// Shader names the fragment stage in the shader library.
	Shader   string
	Bindings binding.List
	Copies   []CopyPair
	UBOs     []ubo.Interface
}

// PostProcess is a full-screen pass: one triangle, a fragment shader
// reading the declared attachments and writing the declared outputs,
// followed by the configured history copies.
type PostProcess struct {
	cfg PostProcessConfig

	env      *Env
	device   hal.Device
	statics  *Statics
	acquired bool

	info        RenderPassInfo
	framebuffer []hal.TextureView
	pool        []binding.PoolSize
	maxSets     uint32

	push           hal.Buffer
	layouts        []hal.BindGroupLayout
	groups         []hal.BindGroup
	pipelineLayout hal.PipelineLayout
	pipeline       hal.RenderPipeline
	encoder        hal.CommandEncoder
	recording      *recording.Recording
	prepared       bool
}

// NewPostProcess returns an unprepared pass.
func NewPostProcess(cfg PostProcessConfig) *PostProcess {
	return &PostProcess{cfg: cfg}
}

func (p *PostProcess) Name() string                   { return p.cfg.Name }
func (p *PostProcess) Prepared() bool                 { return p.prepared }
func (p *PostProcess) Bindings() binding.List         { return p.cfg.Bindings }
func (p *PostProcess) RenderPass() RenderPassInfo     { return p.info }
func (p *PostProcess) Framebuffer() []hal.TextureView { return p.framebuffer }

// Pool returns the descriptor tally and the number of groups.
func (p *PostProcess) Pool() ([]binding.PoolSize, uint32) { return p.pool, p.maxSets }

// Recording returns the recorded command list.
func (p *PostProcess) Recording() *recording.Recording { return p.recording }

// Prepare builds the pass. On failure everything created so far is
// destroyed.
func (p *PostProcess) Prepare(env *Env) error {
	if p.prepared {
		return nil
	}
	p.env, p.device, p.statics = env, env.Device, env.Statics
	if err := p.prepare(); err != nil {
		p.CleanUp()
		return fmt.Errorf("prepare %s: %w", p.cfg.Name, err)
	}
	p.prepared = true
	slogger().Debug("pass: prepared", "pass", p.cfg.Name, "commands", p.recording.Len())
	return nil
}

func (p *PostProcess) prepare() error {
	list := p.cfg.Bindings
	if err := list.Resolve(p.device, p.env.Registry); err != nil {
		return err
	}
	if err := list.Validate(); err != nil {
		return err
	}
	p.statics.Acquire()
	p.acquired = true

	p.info = describeRenderPass(list)
	targets := buildTargets(list, p.info)
	p.framebuffer = targets.views

	if err := p.createLayouts(); err != nil {
		return err
	}
	p.pool = binding.Tally(list.PoolSizes(), uboPoolSizes(len(p.cfg.UBOs)))
	p.maxSets = uint32(len(p.layouts)) //nolint:gosec // G115: at most three groups

	if err := p.createGroups(); err != nil {
		return err
	}
	if err := p.createPipeline(targets); err != nil {
		return err
	}

	enc, err := p.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: p.cfg.Name})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	p.encoder = enc
	p.recording = p.record(targets)
	return nil
}

func uboPoolSizes(n int) []binding.PoolSize {
	if n == 0 {
		return nil
	}
	return []binding.PoolSize{{Kind: binding.DescriptorUniformBuffer, Count: uint32(n)}} //nolint:gosec // G115: small count
}

func (p *PostProcess) createLayouts() error {
	stages := gputypes.ShaderStageFragment
	images, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   p.cfg.Name + "_images",
		Entries: p.cfg.Bindings.LayoutBindings(0, stages),
	})
	if err != nil {
		return fmt.Errorf("create image group layout: %w", err)
	}
	p.layouts = append(p.layouts, images)

	samplers, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: p.cfg.Name + "_samplers",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: slotDirect, Visibility: stages, Sampler: &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeNonFiltering}},
			{Binding: slotNormalized, Visibility: stages, Sampler: &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}},
			pushLayoutEntry(slotPush, stages),
		},
	})
	if err != nil {
		return fmt.Errorf("create sampler group layout: %w", err)
	}
	p.layouts = append(p.layouts, samplers)

	if len(p.cfg.UBOs) == 0 {
		return nil
	}
	entries := make([]gputypes.BindGroupLayoutEntry, len(p.cfg.UBOs))
	for i, u := range p.cfg.UBOs {
		entries[i] = u.LayoutEntry(uint32(i), stages) //nolint:gosec // G115: small count
	}
	uniforms, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   p.cfg.Name + "_uniforms",
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create uniform group layout: %w", err)
	}
	p.layouts = append(p.layouts, uniforms)
	return nil
}

func (p *PostProcess) createGroups() error {
	direct, normalized := p.statics.Samplers()
	writes, err := p.cfg.Bindings.Writes(direct, normalized, 0)
	if err != nil {
		return err
	}
	push, err := createPushBuffer(p.device, p.cfg.Name)
	if err != nil {
		return err
	}
	p.push = push

	entries := [][]gputypes.BindGroupEntry{
		groupImages: binding.Entries(writes),
		groupSamplers: {
			{Binding: slotDirect, Resource: gputypes.SamplerBinding{Sampler: direct.NativeHandle()}},
			{Binding: slotNormalized, Resource: gputypes.SamplerBinding{Sampler: normalized.NativeHandle()}},
			pushEntry(slotPush, push),
		},
	}
	if len(p.cfg.UBOs) > 0 {
		uniforms := make([]gputypes.BindGroupEntry, len(p.cfg.UBOs))
		for i, u := range p.cfg.UBOs {
			if err := u.Prepare(p.device, p.env.Queue); err != nil {
				return fmt.Errorf("prepare uniform %d: %w", i, err)
			}
			uniforms[i] = u.Entry(uint32(i)) //nolint:gosec // G115: small count
		}
		entries = append(entries, uniforms)
	}

	for i, e := range entries {
		g, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:   fmt.Sprintf("%s_group%d", p.cfg.Name, i),
			Layout:  p.layouts[i],
			Entries: e,
		})
		if err != nil {
			return fmt.Errorf("create bind group %d: %w", i, err)
		}
		p.groups = append(p.groups, g)
	}
	return nil
}

func (p *PostProcess) createPipeline(targets renderTargets) error {
	layout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            p.cfg.Name,
		BindGroupLayouts: p.layouts,
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	p.pipelineLayout = layout

	vs, err := p.statics.Passthrough()
	if err != nil {
		return err
	}
	fs, err := p.statics.Library().Module(p.cfg.Shader, shader.Fragment)
	if err != nil {
		return err
	}
	pipeline, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  p.cfg.Name,
		Layout: layout,
		Vertex: hal.VertexState{Module: vs, EntryPoint: shader.Vertex.EntryPoint()},
		Primitive: gputypes.PrimitiveState{
			Topology:  gputypes.PrimitiveTopologyTriangleList,
			FrontFace: gputypes.FrontFaceCCW,
			CullMode:  gputypes.CullModeNone,
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
	p.pipeline = pipeline
	return nil
}

func (p *PostProcess) record(targets renderTargets) *recording.Recording {
	width, height := p.env.Extent()
	rec := recording.NewRecorder(p.cfg.Name)

	rec.Transition(p.cfg.Bindings.Barriers()...)
	rec.BeginRenderPass(targets.descriptor(p.cfg.Name))
	rec.SetViewport(float32(width), float32(height))
	rec.SetScissor(width, height)
	for i, g := range p.groups {
		rec.SetBindGroup(uint32(i), g) //nolint:gosec // G115: at most three groups
	}
	rec.SetPipeline(p.pipeline)
	rec.WriteBuffer(p.push, 0, pushBlock{Width: width, Height: height}.bytes())
	rec.Draw(3, 1, 0, 0)
	rec.EndRenderPass()

	reg := p.env.Registry
	for _, c := range p.cfg.Copies {
		src, dst := reg.Get(c.Src), reg.Get(c.Dst)
		rec.Transition(
			copyBarrier(src.Texture, binding.General, binding.TransferSrc),
			copyBarrier(dst.Texture, binding.General, binding.TransferDst),
		)
		rec.CopyTexture(src.Texture, dst.Texture, hal.TextureCopy{
			SrcBase: hal.ImageCopyTexture{Texture: src.Texture, Aspect: gputypes.TextureAspectAll},
			DstBase: hal.ImageCopyTexture{Texture: dst.Texture, Aspect: gputypes.TextureAspectAll},
			Size:    hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		})
		rec.Transition(
			copyBarrier(dst.Texture, binding.TransferDst, binding.General),
			copyBarrier(src.Texture, binding.TransferSrc, binding.General),
		)
	}
	return rec.Finish()
}

// Draw replays the recorded commands into a new command buffer.
func (p *PostProcess) Draw() (hal.CommandBuffer, error) {
	if !p.prepared {
		return nil, fmt.Errorf("%s: %w", p.cfg.Name, ErrNotPrepared)
	}
	return p.recording.Playback(p.encoder, p.env.Queue)
}

// UpdateUniformBuffer uploads the configured uniform blocks.
func (p *PostProcess) UpdateUniformBuffer() error {
	if !p.prepared {
		return nil
	}
	for _, u := range p.cfg.UBOs {
		if err := u.Update(); err != nil {
			return fmt.Errorf("%s: %w", p.cfg.Name, err)
		}
	}
	return nil
}

// CleanUp destroys the pass's GPU objects and releases its views and its
// hold on Statics. Uniform buffers are shared and left alone.
func (p *PostProcess) CleanUp() {
	if p.device == nil {
		return
	}
	if p.encoder != nil {
		p.encoder.Destroy()
		p.encoder = nil
	}
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.pipelineLayout != nil {
		p.device.DestroyPipelineLayout(p.pipelineLayout)
		p.pipelineLayout = nil
	}
	for _, g := range p.groups {
		p.device.DestroyBindGroup(g)
	}
	p.groups = nil
	for _, l := range p.layouts {
		p.device.DestroyBindGroupLayout(l)
	}
	p.layouts = nil
	if p.push != nil {
		p.device.DestroyBuffer(p.push)
		p.push = nil
	}
	p.cfg.Bindings.Release(p.device)
	if p.acquired {
		p.statics.Release()
		p.acquired = false
	}
	p.recording = nil
	p.framebuffer = nil
	p.prepared = false
}
