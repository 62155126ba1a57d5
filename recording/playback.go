package recording

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Playback errors. They indicate a malformed recording.
var (
	ErrNoRenderPass    = errors.New("recording: command outside a render pass")
	ErrNoComputePass   = errors.New("recording: command outside a compute pass")
	ErrPassOpen        = errors.New("recording: pass still open")
	ErrNestedPass      = errors.New("recording: pass begun inside another pass")
	ErrUnknownCommand  = errors.New("recording: unknown command")
	ErrEmptyRecording  = errors.New("recording: empty")
	ErrNoRayDispatcher = errors.New("recording: trace rays without dispatcher")
)

// player tracks the open pass while replaying.
type player struct {
	enc     hal.CommandEncoder
	queue   hal.Queue
	render  hal.RenderPassEncoder
	compute hal.ComputePassEncoder
}

// Playback encodes the recording into enc and returns the finished command
// buffer. Buffer uploads go through queue. On error the encoding is
// discarded.
func (r *Recording) Playback(enc hal.CommandEncoder, queue hal.Queue) (hal.CommandBuffer, error) {
	if len(r.commands) == 0 {
		return nil, ErrEmptyRecording
	}
	if err := enc.BeginEncoding(r.label); err != nil {
		return nil, fmt.Errorf("begin encoding %s: %w", r.label, err)
	}
	p := player{enc: enc, queue: queue}
	for i, c := range r.commands {
		if err := p.exec(c); err != nil {
			p.abort()
			enc.DiscardEncoding()
			return nil, fmt.Errorf("%s command %d (%s): %w", r.label, i, c.Type(), err)
		}
	}
	if p.render != nil || p.compute != nil {
		p.abort()
		enc.DiscardEncoding()
		return nil, fmt.Errorf("%s: %w", r.label, ErrPassOpen)
	}
	cmd, err := enc.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding %s: %w", r.label, err)
	}
	return cmd, nil
}

func (p *player) abort() {
	if p.render != nil {
		p.render.End()
		p.render = nil
	}
	if p.compute != nil {
		p.compute.End()
		p.compute = nil
	}
}

func (p *player) inPass() bool { return p.render != nil || p.compute != nil }

//nolint:gocyclo,cyclop,funlen // one case per command type
func (p *player) exec(c Command) error {
	switch cmd := c.(type) {
	case TransitionCommand:
		if p.inPass() {
			return ErrPassOpen
		}
		p.enc.TransitionTextures(cmd.Barriers)
	case CopyTextureCommand:
		if p.inPass() {
			return ErrPassOpen
		}
		p.enc.CopyTextureToTexture(cmd.Src, cmd.Dst, cmd.Regions)
	case WriteBufferCommand:
		if err := p.queue.WriteBuffer(cmd.Buffer, cmd.Offset, cmd.Data); err != nil {
			return err
		}
	case BeginRenderPassCommand:
		if p.inPass() {
			return ErrNestedPass
		}
		desc := cmd.Desc
		p.render = p.enc.BeginRenderPass(&desc)
	case SetViewportCommand:
		if p.render == nil {
			return ErrNoRenderPass
		}
		p.render.SetViewport(cmd.X, cmd.Y, cmd.Width, cmd.Height, cmd.MinDepth, cmd.MaxDepth)
	case SetScissorCommand:
		if p.render == nil {
			return ErrNoRenderPass
		}
		p.render.SetScissorRect(cmd.X, cmd.Y, cmd.Width, cmd.Height)
	case SetPipelineCommand:
		if p.render == nil {
			return ErrNoRenderPass
		}
		p.render.SetPipeline(cmd.Pipeline)
	case SetBindGroupCommand:
		switch {
		case p.render != nil:
			p.render.SetBindGroup(cmd.Index, cmd.Group, cmd.Offsets)
		case p.compute != nil:
			p.compute.SetBindGroup(cmd.Index, cmd.Group, cmd.Offsets)
		default:
			return ErrNoRenderPass
		}
	case SetVertexBufferCommand:
		if p.render == nil {
			return ErrNoRenderPass
		}
		p.render.SetVertexBuffer(cmd.Slot, cmd.Buffer, cmd.Offset)
	case SetIndexBufferCommand:
		if p.render == nil {
			return ErrNoRenderPass
		}
		p.render.SetIndexBuffer(cmd.Buffer, gputypes.IndexFormatUint32, cmd.Offset)
	case DrawCommand:
		if p.render == nil {
			return ErrNoRenderPass
		}
		p.render.Draw(cmd.VertexCount, cmd.InstanceCount, cmd.FirstVertex, cmd.FirstInstance)
	case DrawIndexedCommand:
		if p.render == nil {
			return ErrNoRenderPass
		}
		p.render.DrawIndexed(cmd.IndexCount, cmd.InstanceCount, cmd.FirstIndex, cmd.BaseVertex, cmd.FirstInstance)
	case ExecuteCommand:
		if p.render == nil {
			return ErrNoRenderPass
		}
		cmd.Fn(p.render)
	case EndRenderPassCommand:
		if p.render == nil {
			return ErrNoRenderPass
		}
		p.render.End()
		p.render = nil
	case BeginComputePassCommand:
		if p.inPass() {
			return ErrNestedPass
		}
		p.compute = p.enc.BeginComputePass(&hal.ComputePassDescriptor{Label: cmd.Label})
	case SetComputePipelineCommand:
		if p.compute == nil {
			return ErrNoComputePass
		}
		p.compute.SetPipeline(cmd.Pipeline)
	case DispatchCommand:
		if p.compute == nil {
			return ErrNoComputePass
		}
		p.compute.Dispatch(cmd.X, cmd.Y, cmd.Z)
	case EndComputePassCommand:
		if p.compute == nil {
			return ErrNoComputePass
		}
		p.compute.End()
		p.compute = nil
	case TraceRaysCommand:
		if p.inPass() {
			return ErrPassOpen
		}
		if cmd.Dispatcher == nil {
			return ErrNoRayDispatcher
		}
		return cmd.Dispatcher.TraceRays(p.enc, cmd.Width, cmd.Height, cmd.Depth)
	default:
		return ErrUnknownCommand
	}
	return nil
}
