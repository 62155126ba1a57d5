package pass

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rtfilters/internal/attachment"
	"github.com/gogpu/rtfilters/internal/binding"
)

// SubpassExternal denotes work outside the render pass in a Dependency.
const SubpassExternal = ^uint32(0)

// PipelineStage is a synchronization scope of a Dependency.
type PipelineStage uint8

const (
	StageTopOfPipe PipelineStage = iota
	StageColorAttachmentOutput
	StageFragmentShader
	StageBottomOfPipe
)

// Dependency orders the render pass against the work around it.
type Dependency struct {
	Src, Dst           uint32
	SrcStage, DstStage PipelineStage
}

// RenderPassInfo is the render pass a pass derives from its bindings.
type RenderPassInfo struct {
	Attachments  []binding.AttachmentDescription
	Inputs       []binding.AttachmentReference
	Outputs      []binding.AttachmentReference
	Dependencies []Dependency
}

func describeRenderPass(list binding.List) RenderPassInfo {
	descs, inputs, outputs := list.AttachmentDescriptions()
	return RenderPassInfo{
		Attachments: descs,
		Inputs:      inputs,
		Outputs:     outputs,
		Dependencies: []Dependency{
			{Src: SubpassExternal, Dst: 0, SrcStage: StageBottomOfPipe, DstStage: StageColorAttachmentOutput},
			{Src: 0, Dst: SubpassExternal, SrcStage: StageColorAttachmentOutput, DstStage: StageBottomOfPipe},
		},
	}
}

// renderTargets is the hal form of a RenderPassInfo.
type renderTargets struct {
	views      []hal.TextureView
	colors     []hal.RenderPassColorAttachment
	depth      *hal.RenderPassDepthStencilAttachment
	targets    []gputypes.ColorTargetState
	depthState *hal.DepthStencilState
}

// buildTargets pairs each attachment description with the binding it came
// from. Both follow list order, so index i of one matches index i of the
// other. The list must be resolved.
func buildTargets(list binding.List, info RenderPassInfo) renderTargets {
	var rt renderTargets
	for i, b := range list.AttachmentBindings() {
		d := info.Attachments[i]
		view := b.View()
		rt.views = append(rt.views, view)

		if d.Format.HasDepth() {
			rt.depth = &hal.RenderPassDepthStencilAttachment{
				View:              view,
				DepthLoadOp:       d.LoadOp.GPU(),
				DepthStoreOp:      d.StoreOp.GPU(),
				DepthClearValue:   1,
				StencilLoadOp:     d.StencilLoadOp.GPU(),
				StencilStoreOp:    d.StencilStoreOp.GPU(),
				StencilClearValue: 0,
			}
			rt.depthState = &hal.DepthStencilState{
				Format:            d.Format,
				DepthWriteEnabled: b.WriteAccess(),
				DepthCompare:      gputypes.CompareFunctionLessEqual,
				StencilFront:      hal.StencilFaceState{Compare: gputypes.CompareFunctionAlways},
				StencilBack:       hal.StencilFaceState{Compare: gputypes.CompareFunctionAlways},
				StencilReadMask:   0xFF,
				StencilWriteMask:  0xFF,
			}
			continue
		}

		rt.colors = append(rt.colors, hal.RenderPassColorAttachment{
			View:    view,
			LoadOp:  d.LoadOp.GPU(),
			StoreOp: d.StoreOp.GPU(),
		})
		mask := gputypes.ColorWriteMaskNone
		if b.WriteAccess() {
			mask = gputypes.ColorWriteMaskAll
		}
		rt.targets = append(rt.targets, gputypes.ColorTargetState{Format: d.Format, WriteMask: mask})
	}
	return rt
}

func (rt renderTargets) descriptor(label string) *hal.RenderPassDescriptor {
	return &hal.RenderPassDescriptor{
		Label:                  label,
		ColorAttachments:       rt.colors,
		DepthStencilAttachment: rt.depth,
	}
}

// CopyPair copies one attachment into another after the render pass,
// typically to keep the previous frame's value.
type CopyPair struct {
	Src, Dst attachment.Key
}

// copyBarrier moves tex between the usages of two layouts.
func copyBarrier(tex hal.Texture, from, to binding.Layout) hal.TextureBarrier {
	return hal.TextureBarrier{
		Texture: tex,
		Range: hal.TextureRange{
			Aspect:          gputypes.TextureAspectAll,
			MipLevelCount:   1,
			ArrayLayerCount: 1,
		},
		Usage: hal.TextureUsageTransition{OldUsage: from.Usage(), NewUsage: to.Usage()},
	}
}
