package recording

import "github.com/gogpu/wgpu/hal"

// Recorder builds a Recording. It mirrors the encoder API of the backend
// but stores commands instead of encoding them.
//
// The Recorder is not safe for concurrent use.
type Recorder struct {
	label    string
	commands []Command
}

// NewRecorder returns an empty recorder. The label names the command
// buffers produced on playback.
func NewRecorder(label string) *Recorder {
	return &Recorder{label: label, commands: make([]Command, 0, 16)}
}

func (r *Recorder) add(c Command) { r.commands = append(r.commands, c) }

// Transition records texture barriers. Recording no barriers is a no-op.
func (r *Recorder) Transition(barriers ...hal.TextureBarrier) {
	if len(barriers) == 0 {
		return
	}
	r.add(TransitionCommand{Barriers: barriers})
}

// CopyTexture records a texture-to-texture copy.
func (r *Recorder) CopyTexture(src, dst hal.Texture, regions ...hal.TextureCopy) {
	r.add(CopyTextureCommand{Src: src, Dst: dst, Regions: regions})
}

// WriteBuffer records a queue upload performed before submission.
func (r *Recorder) WriteBuffer(buf hal.Buffer, offset uint64, data []byte) {
	r.add(WriteBufferCommand{Buffer: buf, Offset: offset, Data: append([]byte(nil), data...)})
}

// BeginRenderPass records the start of a render pass. The descriptor is
// copied.
func (r *Recorder) BeginRenderPass(desc *hal.RenderPassDescriptor) {
	d := *desc
	d.ColorAttachments = append([]hal.RenderPassColorAttachment(nil), desc.ColorAttachments...)
	if desc.DepthStencilAttachment != nil {
		ds := *desc.DepthStencilAttachment
		d.DepthStencilAttachment = &ds
	}
	r.add(BeginRenderPassCommand{Desc: d})
}

// SetViewport records a viewport covering width x height at the origin.
func (r *Recorder) SetViewport(width, height float32) {
	r.add(SetViewportCommand{Width: width, Height: height, MaxDepth: 1})
}

// SetScissor records a scissor rectangle at the origin.
func (r *Recorder) SetScissor(width, height uint32) {
	r.add(SetScissorCommand{Width: width, Height: height})
}

// SetPipeline records binding a render pipeline.
func (r *Recorder) SetPipeline(p hal.RenderPipeline) {
	r.add(SetPipelineCommand{Pipeline: p})
}

// SetBindGroup records binding a group at index.
func (r *Recorder) SetBindGroup(index uint32, group hal.BindGroup, offsets ...uint32) {
	r.add(SetBindGroupCommand{Index: index, Group: group, Offsets: offsets})
}

// SetVertexBuffer records binding a vertex buffer.
func (r *Recorder) SetVertexBuffer(slot uint32, buf hal.Buffer, offset uint64) {
	r.add(SetVertexBufferCommand{Slot: slot, Buffer: buf, Offset: offset})
}

// SetIndexBuffer records binding a 32-bit index buffer.
func (r *Recorder) SetIndexBuffer(buf hal.Buffer, offset uint64) {
	r.add(SetIndexBufferCommand{Buffer: buf, Offset: offset})
}

// Draw records a non-indexed draw.
func (r *Recorder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	r.add(DrawCommand{
		VertexCount:   vertexCount,
		InstanceCount: instanceCount,
		FirstVertex:   firstVertex,
		FirstInstance: firstInstance,
	})
}

// DrawIndexed records an indexed draw.
func (r *Recorder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	r.add(DrawIndexedCommand{
		IndexCount:    indexCount,
		InstanceCount: instanceCount,
		FirstIndex:    firstIndex,
		BaseVertex:    baseVertex,
		FirstInstance: firstInstance,
	})
}

// Execute records a callback that draws into the open render pass.
func (r *Recorder) Execute(label string, fn func(hal.RenderPassEncoder)) {
	r.add(ExecuteCommand{Label: label, Fn: fn})
}

// EndRenderPass records the end of the open render pass.
func (r *Recorder) EndRenderPass() {
	r.add(EndRenderPassCommand{})
}

// BeginComputePass records the start of a compute pass.
func (r *Recorder) BeginComputePass(label string) {
	r.add(BeginComputePassCommand{Label: label})
}

// SetComputePipeline records binding a compute pipeline.
func (r *Recorder) SetComputePipeline(p hal.ComputePipeline) {
	r.add(SetComputePipelineCommand{Pipeline: p})
}

// Dispatch records a compute dispatch.
func (r *Recorder) Dispatch(x, y, z uint32) {
	r.add(DispatchCommand{X: x, Y: y, Z: z})
}

// EndComputePass records the end of the open compute pass.
func (r *Recorder) EndComputePass() {
	r.add(EndComputePassCommand{})
}

// TraceRays records a ray-tracing dispatch.
func (r *Recorder) TraceRays(d RayDispatcher, width, height, depth uint32) {
	r.add(TraceRaysCommand{Dispatcher: d, Width: width, Height: height, Depth: depth})
}

// Len returns the number of recorded commands.
func (r *Recorder) Len() int { return len(r.commands) }

// Finish returns the recording. The recorder is reset and can be reused.
func (r *Recorder) Finish() *Recording {
	rec := &Recording{label: r.label, commands: r.commands}
	r.commands = make([]Command, 0, len(rec.commands))
	return rec
}

// Recording is an immutable list of commands.
type Recording struct {
	label    string
	commands []Command
}

// Label returns the label given to the recorder.
func (r *Recording) Label() string { return r.label }

// Commands returns the recorded commands. The slice must not be modified.
func (r *Recording) Commands() []Command { return r.commands }

// Len returns the number of commands.
func (r *Recording) Len() int { return len(r.commands) }

// Types returns the type of every command in order.
func (r *Recording) Types() []CommandType {
	types := make([]CommandType, len(r.commands))
	for i, c := range r.commands {
		types[i] = c.Type()
	}
	return types
}
