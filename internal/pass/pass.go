package pass

import (
	"errors"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rtfilters/internal/attachment"
	"github.com/gogpu/rtfilters/internal/raytrace"
	"github.com/gogpu/rtfilters/internal/ubo"
)

// Configuration errors.
var (
	ErrNotPrepared  = errors.New("pass: not prepared")
	ErrNoTemplate   = errors.New("pass: no queue template")
	ErrNoScene      = errors.New("pass: no scene")
	ErrNoSceneInfo  = errors.New("pass: no scene info uniform")
	ErrNoRayTracer  = errors.New("pass: template needs a ray tracing device")
	ErrClosed       = errors.New("pass: manager closed")
	ErrEmptyExtent  = errors.New("pass: frame driver reports an empty extent")
	ErrNoGuiUniform = errors.New("pass: no gui uniform")
)

// Pass is one stage of a queue template.
type Pass interface {
	Name() string
	// Prepare creates the pass's GPU objects and records its commands.
	// Preparing a prepared pass is a no-op.
	Prepare(env *Env) error
	// Draw returns a command buffer with the recorded commands.
	Draw() (hal.CommandBuffer, error)
	UpdateUniformBuffer() error
	// CleanUp destroys everything Prepare created. It is safe to call on
	// a pass that is not prepared.
	CleanUp()
	Prepared() bool
}

// Resizer is implemented by passes that rebuild only their
// extent-dependent state on resize.
type Resizer interface {
	Resize(env *Env) error
}

// QueueOwner is implemented by passes that submit to a queue other than
// the graphics queue.
type QueueOwner interface {
	Queue() hal.Queue
}

// DrawFlags select what the scene binds when drawing.
type DrawFlags uint32

const (
	// DrawBindImages binds each material's image group.
	DrawBindImages DrawFlags = 1 << iota
	// DrawPreTransform applies node transforms on the host.
	DrawPreTransform
)

// Scene provides geometry to the G-buffer and path tracer passes.
type Scene interface {
	VertexBuffer() hal.Buffer
	IndexBuffer() hal.Buffer
	MaterialBuffer() hal.Buffer
	VertexCount() uint32
	IndexCount() uint32
	VertexLayout() gputypes.VertexBufferLayout
	// Layouts returns the per-draw uniform layout and the material image
	// layout the scene binds in Draw.
	Layouts() (uniforms, images hal.BindGroupLayout)
	// Draw issues the scene's draw calls, binding its own groups starting
	// at firstGroup of layout.
	Draw(enc hal.RenderPassEncoder, flags DrawFlags, layout hal.PipelineLayout, firstGroup uint32)
}

// FrameDriver supplies the device, extent and frame semaphores.
type FrameDriver interface {
	Device() hal.Device
	Queue() hal.Queue
	Extent() (width, height uint32)
	// Timer returns the animation time in [0, 1).
	Timer() float32
	PresentComplete() *Semaphore
	RenderComplete() *Semaphore
}

// Env is the state shared by all passes of a manager.
type Env struct {
	Device       hal.Device
	Queue        hal.Queue
	ComputeQueue hal.Queue
	Registry     *attachment.Registry
	Statics      *Statics
	Scene        Scene
	RayTracer    raytrace.Device
	SceneInfo    ubo.Interface
}

// Extent returns the current attachment extent.
func (e *Env) Extent() (width, height uint32) {
	return e.Registry.Extent()
}

func (e *Env) computeQueue() hal.Queue {
	if e.ComputeQueue != nil {
		return e.ComputeQueue
	}
	return e.Queue
}
