package gputest

import "github.com/gogpu/wgpu/hal"

// Encoder wraps a hal.CommandEncoder and logs the calls made on it and on
// the passes it opens.
type Encoder struct {
	hal.CommandEncoder

	Log []string
}

// NewEncoder creates a logging encoder on dev.
func NewEncoder(t interface {
	Helper()
	Fatalf(string, ...any)
}, dev hal.Device) *Encoder {
	t.Helper()
	enc, err := dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "test"})
	if err != nil {
		t.Fatalf("CreateCommandEncoder: %v", err)
	}
	return &Encoder{CommandEncoder: enc}
}

func (e *Encoder) log(s string) { e.Log = append(e.Log, s) }

func (e *Encoder) BeginEncoding(label string) error {
	e.log("BeginEncoding")
	return e.CommandEncoder.BeginEncoding(label)
}

func (e *Encoder) EndEncoding() (hal.CommandBuffer, error) {
	e.log("EndEncoding")
	return e.CommandEncoder.EndEncoding()
}

func (e *Encoder) DiscardEncoding() {
	e.log("DiscardEncoding")
	e.CommandEncoder.DiscardEncoding()
}

func (e *Encoder) TransitionTextures(b []hal.TextureBarrier) {
	e.log("TransitionTextures")
	e.CommandEncoder.TransitionTextures(b)
}

func (e *Encoder) CopyTextureToTexture(src, dst hal.Texture, regions []hal.TextureCopy) {
	e.log("CopyTextureToTexture")
	e.CommandEncoder.CopyTextureToTexture(src, dst, regions)
}

func (e *Encoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	e.log("BeginRenderPass")
	return &renderPass{RenderPassEncoder: e.CommandEncoder.BeginRenderPass(desc), e: e}
}

func (e *Encoder) BeginComputePass(desc *hal.ComputePassDescriptor) hal.ComputePassEncoder {
	e.log("BeginComputePass")
	return &computePass{ComputePassEncoder: e.CommandEncoder.BeginComputePass(desc), e: e}
}

type renderPass struct {
	hal.RenderPassEncoder
	e *Encoder
}

func (p *renderPass) End() {
	p.e.log("EndRenderPass")
	p.RenderPassEncoder.End()
}

func (p *renderPass) SetPipeline(pl hal.RenderPipeline) {
	p.e.log("SetPipeline")
	p.RenderPassEncoder.SetPipeline(pl)
}

func (p *renderPass) SetBindGroup(i uint32, g hal.BindGroup, off []uint32) {
	p.e.log("SetBindGroup")
	p.RenderPassEncoder.SetBindGroup(i, g, off)
}

func (p *renderPass) SetViewport(x, y, w, h, minD, maxD float32) {
	p.e.log("SetViewport")
	p.RenderPassEncoder.SetViewport(x, y, w, h, minD, maxD)
}

func (p *renderPass) SetScissorRect(x, y, w, h uint32) {
	p.e.log("SetScissorRect")
	p.RenderPassEncoder.SetScissorRect(x, y, w, h)
}

func (p *renderPass) Draw(v, i, fv, fi uint32) {
	p.e.log("Draw")
	p.RenderPassEncoder.Draw(v, i, fv, fi)
}

type computePass struct {
	hal.ComputePassEncoder
	e *Encoder
}

func (p *computePass) End() {
	p.e.log("EndComputePass")
	p.ComputePassEncoder.End()
}

func (p *computePass) Dispatch(x, y, z uint32) {
	p.e.log("Dispatch")
	p.ComputePassEncoder.Dispatch(x, y, z)
}
