package rtfilters

import "github.com/gogpu/gpucontext"

// splitStep is how far one arrow key press moves the split.
const splitStep = 0.05

var templateKeys = map[gpucontext.Key]Template{
	gpucontext.Key1: RasterOnly,
	gpucontext.Key2: PathtracerOnly,
	gpucontext.Key3: SVGF,
	gpucontext.Key4: BMFR,
}

// Bind routes host window events to the renderer:
//
//   - keys 1 to 4 select RasterOnly, PathtracerOnly, SVGF and BMFR
//   - left and right arrows move the split
//   - resize events resize the attachments
//
// Failures are logged at Warn and otherwise ignored.
func (r *Renderer) Bind(src gpucontext.EventSource) {
	src.OnKeyPress(func(key gpucontext.Key, _ gpucontext.Modifiers) {
		r.handleKey(key)
	})
	src.OnResize(func(width, height int) {
		if width <= 0 || height <= 0 {
			return
		}
		//nolint:gosec // G115: checked positive above
		if err := r.Resize(uint32(width), uint32(height)); err != nil {
			Logger().Warn("rtfilters: resize failed", "width", width, "height", height, "err", err)
		}
	})
}

func (r *Renderer) handleKey(key gpucontext.Key) {
	if t, ok := templateKeys[key]; ok {
		if err := r.SetTemplate(t); err != nil {
			Logger().Warn("rtfilters: template not switched", "template", t, "err", err)
		}
		return
	}
	switch key {
	case gpucontext.KeyLeft:
		r.moveSplit(-splitStep)
	case gpucontext.KeyRight:
		r.moveSplit(splitStep)
	}
}

func (r *Renderer) moveSplit(delta float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	g := r.gui.Value()
	g.SplitViewFactor = clampSplit(g.SplitViewFactor + delta)
}
