package pass

import (
	"github.com/gogpu/rtfilters/internal/attachment"
	"github.com/gogpu/rtfilters/internal/binding"
	"github.com/gogpu/rtfilters/internal/ubo"
)

func read(k attachment.Key, opts ...binding.Option) *binding.Binding {
	return binding.New(k, binding.ReadOnly, binding.Sampled, opts...)
}

func write(k attachment.Key) *binding.Binding {
	return binding.New(k, binding.WriteOnly, binding.Sampled)
}

// NewTemporalAccumulation blends the path traced sample into the
// reprojected history and keeps this frame's G-buffer for the next one.
func NewTemporalAccumulation() *PostProcess {
	return NewPostProcess(PostProcessConfig{
		Name:   "temporal_accumulation",
		Shader: "temporal_accumulation",
		Bindings: binding.List{
			read(attachment.RTOutput),
			read(attachment.MotionVector),
			read(attachment.PrevAccumulated),
			read(attachment.PrevHistoryLength),
			read(attachment.Position),
			read(attachment.PrevPosition),
			read(attachment.Normal),
			read(attachment.PrevNormal),
			write(attachment.Intermediate),
			write(attachment.HistoryLength),
		},
		Copies: []CopyPair{
			{attachment.Intermediate, attachment.PrevAccumulated},
			{attachment.HistoryLength, attachment.PrevHistoryLength},
			{attachment.Position, attachment.PrevPosition},
			{attachment.Normal, attachment.PrevNormal},
		},
	})
}

// NewAtrous runs one edge-aware wavelet iteration over the accumulated
// color and publishes it as the filter output.
func NewAtrous() *PostProcess {
	return NewPostProcess(PostProcessConfig{
		Name:   "atrous",
		Shader: "atrous",
		Bindings: binding.List{
			read(attachment.Intermediate),
			read(attachment.Position),
			read(attachment.Normal),
			read(attachment.HistoryLength),
			write(attachment.AtrousPing),
		},
		Copies: []CopyPair{{attachment.AtrousPing, attachment.FilterOutput}},
	})
}

// NewBMFRPrepass accumulates the demodulated path traced input before
// the regression.
func NewBMFRPrepass() *PostProcess {
	return NewPostProcess(PostProcessConfig{
		Name:   "bmfr_prepass",
		Shader: "bmfr_prepass",
		Bindings: binding.List{
			read(attachment.Position),
			read(attachment.Normal),
			read(attachment.MotionVector),
			read(attachment.RTOutput),
			read(attachment.PrevAccumulated),
			read(attachment.PrevPosition),
			read(attachment.PrevNormal),
			read(attachment.PrevHistoryLength),
			read(attachment.Albedo),
			write(attachment.Intermediate),
			write(attachment.HistoryLength),
		},
		Copies: []CopyPair{
			{attachment.Position, attachment.PrevPosition},
			{attachment.Normal, attachment.PrevNormal},
			{attachment.HistoryLength, attachment.PrevHistoryLength},
			{attachment.Intermediate, attachment.PrevAccumulated},
		},
	})
}

// NewBMFRPostpass remodulates the regression result and blends it with
// the previous frame's.
func NewBMFRPostpass() *PostProcess {
	return NewPostProcess(PostProcessConfig{
		Name:   "bmfr_postpass",
		Shader: "bmfr_postpass",
		Bindings: binding.List{
			read(attachment.MotionVector),
			read(attachment.ComputeOutput),
			read(attachment.PrevRegression),
			read(attachment.HistoryLength),
			read(attachment.Albedo),
			write(attachment.FilterOutput),
		},
		Copies: []CopyPair{{attachment.FilterOutput, attachment.PrevRegression}},
	})
}

// GuiAttachments lists the attachments a template's display composite
// can show, in picker order.
func GuiAttachments(t Template) []attachment.Key {
	keys := []attachment.Key{
		attachment.Position,
		attachment.Normal,
		attachment.Albedo,
		attachment.MotionVector,
	}
	switch t {
	case PathtracerOnly:
		keys = append(keys, attachment.RTOutput)
	case SVGF:
		keys = append(keys, attachment.RTOutput, attachment.FilterOutput)
	case BMFR:
		keys = append(keys, attachment.RTOutput, attachment.ComputeOutput, attachment.FilterOutput)
	}
	return keys
}

var guiShaders = [templateCount]string{
	RasterOnly:     "gui_raster",
	PathtracerOnly: "gui_pathtracer",
	SVGF:           "gui_svgf",
	BMFR:           "gui_bmfr",
}

// NewGui returns the display composite of template t. It samples the
// template's GuiAttachments into the display attachment as selected by
// the gui block.
func NewGui(t Template, gui, sceneInfo ubo.Interface) *PostProcess {
	var list binding.List
	for _, k := range GuiAttachments(t) {
		list = append(list, read(k, binding.WithSampler(binding.Normalized)))
	}
	list = append(list, write(attachment.Display))

	var ubos []ubo.Interface
	for _, u := range []ubo.Interface{gui, sceneInfo} {
		if u != nil {
			ubos = append(ubos, u)
		}
	}
	return NewPostProcess(PostProcessConfig{
		Name:     "gui_" + t.String(),
		Shader:   guiShaders[t],
		Bindings: list,
		UBOs:     ubos,
	})
}
