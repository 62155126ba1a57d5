package recording

import "github.com/gogpu/wgpu/hal"

// CommandType identifies the type of a command.
type CommandType uint8

const (
	// Encoder-level commands
	CmdTransition CommandType = iota
	CmdCopyTexture
	CmdWriteBuffer

	// Render pass commands
	CmdBeginRenderPass
	CmdSetViewport
	CmdSetScissor
	CmdSetPipeline
	CmdSetBindGroup
	CmdSetVertexBuffer
	CmdSetIndexBuffer
	CmdDraw
	CmdDrawIndexed
	CmdExecute
	CmdEndRenderPass

	// Compute pass commands
	CmdBeginComputePass
	CmdSetComputePipeline
	CmdDispatch
	CmdEndComputePass

	// Ray tracing
	CmdTraceRays
)

var commandTypeNames = [...]string{
	CmdTransition:         "Transition",
	CmdCopyTexture:        "CopyTexture",
	CmdWriteBuffer:        "WriteBuffer",
	CmdBeginRenderPass:    "BeginRenderPass",
	CmdSetViewport:        "SetViewport",
	CmdSetScissor:         "SetScissor",
	CmdSetPipeline:        "SetPipeline",
	CmdSetBindGroup:       "SetBindGroup",
	CmdSetVertexBuffer:    "SetVertexBuffer",
	CmdSetIndexBuffer:     "SetIndexBuffer",
	CmdDraw:               "Draw",
	CmdDrawIndexed:        "DrawIndexed",
	CmdExecute:            "Execute",
	CmdEndRenderPass:      "EndRenderPass",
	CmdBeginComputePass:   "BeginComputePass",
	CmdSetComputePipeline: "SetComputePipeline",
	CmdDispatch:           "Dispatch",
	CmdEndComputePass:     "EndComputePass",
	CmdTraceRays:          "TraceRays",
}

// String returns the string representation of a CommandType.
func (c CommandType) String() string {
	if int(c) < len(commandTypeNames) {
		return commandTypeNames[c]
	}
	return "Unknown"
}

// Command is the interface implemented by all command types.
type Command interface {
	// Type returns the CommandType for this command.
	Type() CommandType
}

// TransitionCommand changes the usage state of textures.
type TransitionCommand struct {
	Barriers []hal.TextureBarrier
}

func (TransitionCommand) Type() CommandType { return CmdTransition }

// CopyTextureCommand copies regions between two textures.
type CopyTextureCommand struct {
	Src, Dst hal.Texture
	Regions  []hal.TextureCopy
}

func (CopyTextureCommand) Type() CommandType { return CmdCopyTexture }

// WriteBufferCommand uploads Data into Buffer through the queue before the
// command buffer is submitted. Passes use it to feed small constant blocks
// (screen extent, frame counters) to shaders.
type WriteBufferCommand struct {
	Buffer hal.Buffer
	Offset uint64
	Data   []byte
}

func (WriteBufferCommand) Type() CommandType { return CmdWriteBuffer }

// BeginRenderPassCommand opens a render pass.
type BeginRenderPassCommand struct {
	Desc hal.RenderPassDescriptor
}

func (BeginRenderPassCommand) Type() CommandType { return CmdBeginRenderPass }

// SetViewportCommand sets the viewport of the open render pass.
type SetViewportCommand struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

func (SetViewportCommand) Type() CommandType { return CmdSetViewport }

// SetScissorCommand sets the scissor rectangle of the open render pass.
type SetScissorCommand struct {
	X, Y, Width, Height uint32
}

func (SetScissorCommand) Type() CommandType { return CmdSetScissor }

// SetPipelineCommand binds a render pipeline.
type SetPipelineCommand struct {
	Pipeline hal.RenderPipeline
}

func (SetPipelineCommand) Type() CommandType { return CmdSetPipeline }

// SetBindGroupCommand binds a group in the open render or compute pass.
type SetBindGroupCommand struct {
	Index   uint32
	Group   hal.BindGroup
	Offsets []uint32
}

func (SetBindGroupCommand) Type() CommandType { return CmdSetBindGroup }

// SetVertexBufferCommand binds a vertex buffer.
type SetVertexBufferCommand struct {
	Slot   uint32
	Buffer hal.Buffer
	Offset uint64
}

func (SetVertexBufferCommand) Type() CommandType { return CmdSetVertexBuffer }

// SetIndexBufferCommand binds a 32-bit index buffer.
type SetIndexBufferCommand struct {
	Buffer hal.Buffer
	Offset uint64
}

func (SetIndexBufferCommand) Type() CommandType { return CmdSetIndexBuffer }

// DrawCommand draws non-indexed primitives.
type DrawCommand struct {
	VertexCount, InstanceCount, FirstVertex, FirstInstance uint32
}

func (DrawCommand) Type() CommandType { return CmdDraw }

// DrawIndexedCommand draws indexed primitives.
type DrawIndexedCommand struct {
	IndexCount, InstanceCount, FirstIndex uint32
	BaseVertex                            int32
	FirstInstance                         uint32
}

func (DrawIndexedCommand) Type() CommandType { return CmdDrawIndexed }

// ExecuteCommand hands the open render pass to a callback. It lets
// collaborators that own their own draw calls (scene models) take part in a
// recording without exposing mesh-level detail.
type ExecuteCommand struct {
	Label string
	Fn    func(hal.RenderPassEncoder)
}

func (ExecuteCommand) Type() CommandType { return CmdExecute }

// EndRenderPassCommand closes the open render pass.
type EndRenderPassCommand struct{}

func (EndRenderPassCommand) Type() CommandType { return CmdEndRenderPass }

// BeginComputePassCommand opens a compute pass.
type BeginComputePassCommand struct {
	Label string
}

func (BeginComputePassCommand) Type() CommandType { return CmdBeginComputePass }

// SetComputePipelineCommand binds a compute pipeline.
type SetComputePipelineCommand struct {
	Pipeline hal.ComputePipeline
}

func (SetComputePipelineCommand) Type() CommandType { return CmdSetComputePipeline }

// DispatchCommand dispatches compute workgroups.
type DispatchCommand struct {
	X, Y, Z uint32
}

func (DispatchCommand) Type() CommandType { return CmdDispatch }

// EndComputePassCommand closes the open compute pass.
type EndComputePassCommand struct{}

func (EndComputePassCommand) Type() CommandType { return CmdEndComputePass }

// RayDispatcher issues a ray-tracing dispatch on an encoder. It is
// implemented by device extensions that support ray tracing.
type RayDispatcher interface {
	TraceRays(enc hal.CommandEncoder, width, height, depth uint32) error
}

// TraceRaysCommand launches a width x height x depth ray grid.
type TraceRaysCommand struct {
	Dispatcher            RayDispatcher
	Width, Height, Depth uint32
}

func (TraceRaysCommand) Type() CommandType { return CmdTraceRays }
