package rtfilters

import (
	"errors"
	"sync"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rtfilters/internal/pass"
	"github.com/gogpu/rtfilters/internal/raytrace"
	"github.com/gogpu/rtfilters/internal/shader"
	"github.com/gogpu/rtfilters/internal/ubo"
)

type (
	// Template selects the pass chain.
	Template = pass.Template
	// Scene provides geometry to the G-buffer and path tracer.
	Scene = pass.Scene
	// FrameDriver supplies the device, extent and frame semaphores.
	FrameDriver = pass.FrameDriver
	Semaphore   = pass.Semaphore
	Submission  = pass.Submission
	DrawFlags   = pass.DrawFlags
	// RayTracer is the ray tracing extension of a device.
	RayTracer = raytrace.Device
)

const (
	RasterOnly     = pass.RasterOnly
	PathtracerOnly = pass.PathtracerOnly
	SVGF           = pass.SVGF
	BMFR           = pass.BMFR

	DrawBindImages   = pass.DrawBindImages
	DrawPreTransform = pass.DrawPreTransform
)

var (
	// ErrNoScene is returned by New without WithScene.
	ErrNoScene = errors.New("rtfilters: no scene")
	// ErrDisplayIndex is returned for a display slot outside the template's
	// attachment list.
	ErrDisplayIndex = errors.New("rtfilters: display index out of range")
	// ErrNoHalProvider is returned when a device provider does not expose
	// hal handles.
	ErrNoHalProvider = errors.New("rtfilters: provider does not expose hal types")
	// ErrClosed is returned by calls on a closed Renderer.
	ErrClosed = pass.ErrClosed
)

// ParseTemplate returns the template named s: raster, pathtracer, svgf or
// bmfr.
func ParseTemplate(s string) (Template, error) { return pass.ParseTemplate(s) }

// NewSemaphore returns an unsignaled semaphore for a FrameDriver.
func NewSemaphore(label string) *Semaphore { return pass.NewSemaphore(label) }

// Renderer runs the pass chain of one queue template on a frame driver.
// Its methods are safe for concurrent use; frames are serialized.
type Renderer struct {
	mu sync.Mutex

	driver    FrameDriver
	manager   *pass.Manager
	sceneInfo *ubo.Managed[SceneInfo]
	gui       *ubo.Managed[GuiBase]
	bmfr      *ubo.Managed[BMFRConfig]

	frame  uint32
	closed bool
}

// New builds every pass and prepares the selected template on driver.
func New(driver FrameDriver, opts ...Option) (*Renderer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.scene == nil {
		return nil, ErrNoScene
	}

	r := &Renderer{
		driver:    driver,
		sceneInfo: ubo.New("scene_info", DefaultSceneInfo()),
		gui:       ubo.New("gui_base", DefaultGuiBase(o.template)),
		bmfr:      ubo.New("bmfr_config", DefaultBMFRConfig()),
	}
	var shaderOpts []shader.Option
	if o.shaderFS != nil {
		shaderOpts = append(shaderOpts, shader.WithFS(o.shaderFS))
	}
	if o.shaderSource {
		shaderOpts = append(shaderOpts, shader.WithSourceMode())
	}
	if o.cacheSize > 0 {
		shaderOpts = append(shaderOpts, shader.WithCacheSize(o.cacheSize))
	}

	m, err := pass.NewManager(pass.Config{
		Template:      o.template,
		Scene:         o.scene,
		DrawFlags:     o.drawFlags,
		RayTracer:     o.rayTracer,
		ComputeQueue:  o.computeQueue,
		SceneInfo:     r.sceneInfo,
		Gui:           r.gui,
		BMFRConfig:    r.bmfr,
		ShaderOptions: shaderOpts,
	})
	if err != nil {
		return nil, err
	}
	if err := m.Prepare(driver, o.semaphoreCount); err != nil {
		m.Close()
		return nil, err
	}
	r.manager = m

	w, h := driver.Extent()
	Logger().Info("rtfilters: renderer ready",
		"template", o.template, "ray_tracing", o.rayTracer != nil, "width", w, "height", h)
	return r, nil
}

// Draw renders one frame. A nil base submits the template's display
// composite as the final buffer; otherwise base is submitted in its place,
// after every offscreen pass.
func (r *Renderer) Draw(base hal.CommandBuffer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.frame++
	si := r.sceneInfo.Value()
	si.Frame = r.frame
	si.Time = r.driver.Timer()
	r.bmfr.Value().Frame = r.frame

	err := r.manager.Draw(base)
	si.PrevView = si.View
	return err
}

// UpdateSceneInfo edits the camera block uploaded after the next frame.
func (r *Renderer) UpdateSceneInfo(fn func(*SceneInfo)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.sceneInfo.Value())
}

// UpdateBMFRConfig edits the regression parameters.
func (r *Renderer) UpdateBMFRConfig(fn func(*BMFRConfig)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.bmfr.Value())
}

// Resize recreates the attachments at the new extent. When the driver is
// a *Driver its extent is updated too.
func (r *Renderer) Resize(width, height uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if d, ok := r.driver.(*Driver); ok && width > 0 && height > 0 {
		d.SetExtent(width, height)
	}
	return r.manager.Resize(width, height)
}

// SetTemplate switches the queue template and resets the displayed
// attachments to the new template's default pair. If preparing the new
// template fails, the switch stands and calling SetTemplate again retries.
func (r *Renderer) SetTemplate(t Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	err := r.manager.SetQueueTemplate(t)
	// A failed prepare still commits the switch.
	if r.manager.Template() == t {
		r.gui.Value().Display = defaultDisplay(t)
	}
	return err
}

// Template returns the active template.
func (r *Renderer) Template() Template {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.manager.Template()
}

// Available reports whether template t can be selected.
func (r *Renderer) Available(t Template) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.manager.Available(t)
}

// Submissions returns the queue submissions of the last frame.
func (r *Renderer) Submissions() []Submission {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.manager.Submissions()
}

// Extent returns the attachment extent.
func (r *Renderer) Extent() (width, height uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, 0
	}
	return r.manager.Registry().Extent()
}

// Frame returns the number of frames drawn.
func (r *Renderer) Frame() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frame
}

// Close waits for the device and destroys every GPU object the renderer
// created. The scene and driver are left to the caller.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.manager.Close()
	Logger().Debug("rtfilters: renderer closed", "frames", r.frame)
}
