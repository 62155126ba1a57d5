package rtfilters

import "golang.org/x/image/math/f32"

// SceneInfo is the per-frame camera block shared by the G-buffer, the
// path tracer and the display composite. Matrices are column-major.
type SceneInfo struct {
	Projection f32.Mat4
	View       f32.Mat4
	Model      f32.Mat4
	PrevView   f32.Mat4
	ViewPos    f32.Vec4
	Frame      uint32
	// Time is the driver timer in [0, 1).
	Time float32
	_    [2]uint32
}

// GuiBase is the display composite's control block. Display holds the
// indices, into AttachmentNames of the active template, of the
// attachments shown left and right of the split.
type GuiBase struct {
	SplitViewFactor float32
	Display         [2]uint32
	_               uint32
}

// BMFRConfig parameterizes the feature regression pass.
type BMFRConfig struct {
	BlockSize    uint32
	FeatureCount uint32
	Frame        uint32
	NoiseAmount  float32
}

// Identity returns the identity matrix.
func Identity() f32.Mat4 {
	return f32.Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// DefaultSceneInfo returns a camera at (0, 0, 3) looking down -Z with
// identity projection.
func DefaultSceneInfo() SceneInfo {
	view := Identity()
	view[14] = -3
	return SceneInfo{
		Projection: Identity(),
		View:       view,
		Model:      Identity(),
		PrevView:   view,
		ViewPos:    f32.Vec4{0, 0, 3, 1},
	}
}

// DefaultGuiBase shows the albedo against the template's last attachment,
// split in the middle.
func DefaultGuiBase(t Template) GuiBase {
	return GuiBase{SplitViewFactor: 0.5, Display: defaultDisplay(t)}
}

// DefaultBMFRConfig matches the regression shader's block size.
func DefaultBMFRConfig() BMFRConfig {
	return BMFRConfig{BlockSize: 32, FeatureCount: 10, NoiseAmount: 0.01}
}
