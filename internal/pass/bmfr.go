package pass

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rtfilters/internal/attachment"
	"github.com/gogpu/rtfilters/internal/binding"
	"github.com/gogpu/rtfilters/internal/shader"
	"github.com/gogpu/rtfilters/internal/ubo"
	"github.com/gogpu/rtfilters/recording"
)

// BMFRBlockSize is the edge length of the square pixel block one
// workgroup of the regression shader covers.
const BMFRBlockSize = 32

// BMFRCompute fits the noisy path traced image against the G-buffer
// features, one workgroup per block.
type BMFRCompute struct {
	shader   string
	bindings binding.List
	config   ubo.Interface

	env    *Env
	device hal.Device
	queue  hal.Queue

	groupLayout    hal.BindGroupLayout
	group          hal.BindGroup
	pipelineLayout hal.PipelineLayout
	pipeline       hal.ComputePipeline
	encoder        hal.CommandEncoder
	recording      *recording.Recording
	prepared       bool
}

// NewBMFRCompute returns an unprepared regression pass. config is bound
// after the images and may be nil.
func NewBMFRCompute(config ubo.Interface) *BMFRCompute {
	return &BMFRCompute{
		shader: "bmfr",
		config: config,
		bindings: binding.List{
			binding.New(attachment.RTOutput, binding.ReadOnly, binding.StorageImage),
			binding.New(attachment.ComputeOutput, binding.WriteOnly, binding.StorageImage),
			binding.New(attachment.Position, binding.ReadOnly, binding.StorageImage),
			binding.New(attachment.Normal, binding.ReadOnly, binding.StorageImage),
		},
	}
}

func (b *BMFRCompute) Name() string                    { return "bmfr" }
func (b *BMFRCompute) Prepared() bool                  { return b.prepared }
func (b *BMFRCompute) Bindings() binding.List          { return b.bindings }
func (b *BMFRCompute) Recording() *recording.Recording { return b.recording }

// Queue returns the queue the pass submits to.
func (b *BMFRCompute) Queue() hal.Queue { return b.queue }

// DispatchSize returns the workgroup counts for a width x height image.
func DispatchSize(width, height uint32) (x, y, z uint32) {
	return (width + BMFRBlockSize - 1) / BMFRBlockSize, (height + BMFRBlockSize - 1) / BMFRBlockSize, 1
}

func (b *BMFRCompute) Prepare(env *Env) error {
	if b.prepared {
		return nil
	}
	b.env, b.device, b.queue = env, env.Device, env.computeQueue()
	if err := b.prepare(); err != nil {
		b.CleanUp()
		return fmt.Errorf("prepare bmfr: %w", err)
	}
	b.prepared = true
	slogger().Debug("pass: prepared", "pass", b.Name(), "commands", b.recording.Len())
	return nil
}

func (b *BMFRCompute) prepare() error {
	if err := b.bindings.Resolve(b.device, b.env.Registry); err != nil {
		return err
	}
	if err := b.bindings.Validate(); err != nil {
		return err
	}

	stages := gputypes.ShaderStageCompute
	entries := b.bindings.LayoutBindings(0, stages)
	writes, err := b.bindings.Writes(nil, nil, 0)
	if err != nil {
		return err
	}
	groupEntries := binding.Entries(writes)
	if b.config != nil {
		if err := b.config.Prepare(b.device, b.queue); err != nil {
			return fmt.Errorf("prepare config: %w", err)
		}
		slot := uint32(len(entries)) //nolint:gosec // G115: small count
		entries = append(entries, b.config.LayoutEntry(slot, stages))
		groupEntries = append(groupEntries, b.config.Entry(slot))
	}

	gl, err := b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{Label: "bmfr", Entries: entries})
	if err != nil {
		return fmt.Errorf("create group layout: %w", err)
	}
	b.groupLayout = gl
	group, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{Label: "bmfr", Layout: gl, Entries: groupEntries})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	b.group = group

	pl, err := b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "bmfr",
		BindGroupLayouts: []hal.BindGroupLayout{gl},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	b.pipelineLayout = pl

	cs, err := b.env.Statics.Library().Module(b.shader, shader.Compute)
	if err != nil {
		return err
	}
	pipeline, err := b.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   "bmfr",
		Layout:  pl,
		Compute: hal.ComputeState{Module: cs, EntryPoint: shader.Compute.EntryPoint()},
	})
	if err != nil {
		return fmt.Errorf("create compute pipeline: %w", err)
	}
	b.pipeline = pipeline

	enc, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "bmfr"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	b.encoder = enc

	x, y, z := DispatchSize(b.env.Extent())
	rec := recording.NewRecorder("bmfr")
	rec.Transition(b.bindings.Barriers()...)
	rec.BeginComputePass("bmfr")
	rec.SetComputePipeline(pipeline)
	rec.SetBindGroup(0, group)
	rec.Dispatch(x, y, z)
	rec.EndComputePass()
	b.recording = rec.Finish()
	return nil
}

func (b *BMFRCompute) Draw() (hal.CommandBuffer, error) {
	if !b.prepared {
		return nil, fmt.Errorf("bmfr: %w", ErrNotPrepared)
	}
	return b.recording.Playback(b.encoder, b.queue)
}

// UpdateUniformBuffer uploads the regression config.
func (b *BMFRCompute) UpdateUniformBuffer() error {
	if !b.prepared || b.config == nil {
		return nil
	}
	return b.config.Update()
}

// CleanUp destroys the pipeline objects and drops the cached shader
// module, which no other pass uses.
func (b *BMFRCompute) CleanUp() {
	if b.device == nil {
		return
	}
	if b.encoder != nil {
		b.encoder.Destroy()
		b.encoder = nil
	}
	if b.pipeline != nil {
		b.device.DestroyComputePipeline(b.pipeline)
		b.pipeline = nil
		b.env.Statics.Library().Release(b.shader, shader.Compute)
	}
	if b.pipelineLayout != nil {
		b.device.DestroyPipelineLayout(b.pipelineLayout)
		b.pipelineLayout = nil
	}
	if b.group != nil {
		b.device.DestroyBindGroup(b.group)
		b.group = nil
	}
	if b.groupLayout != nil {
		b.device.DestroyBindGroupLayout(b.groupLayout)
		b.groupLayout = nil
	}
	b.bindings.Release(b.device)
	b.recording = nil
	b.prepared = false
}
