package pass

import (
	"errors"
	"fmt"
	"runtime"
	"slices"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rtfilters/internal/attachment"
	"github.com/gogpu/rtfilters/internal/raytrace"
	"github.com/gogpu/rtfilters/internal/shader"
	"github.com/gogpu/rtfilters/internal/ubo"
)

// Config configures a Manager.
type Config struct {
	Template  Template
	Scene     Scene
	DrawFlags DrawFlags
	// RayTracer enables the path traced templates. Without it only
	// RasterOnly is available.
	RayTracer raytrace.Device
	// ComputeQueue runs the regression pass. Nil uses the graphics queue.
	ComputeQueue hal.Queue

	SceneInfo  ubo.Interface
	Gui        ubo.Interface
	BMFRConfig ubo.Interface

	ShaderOptions []shader.Option
}

// inflight is a command buffer the manager frees once its submission
// completes.
type inflight struct {
	queue  hal.Queue
	index  uint64
	buffer hal.CommandBuffer
}

// Manager owns the passes, groups them into templates and submits the
// active template each frame.
type Manager struct {
	cfg Config
	env Env

	templates [templateCount][]Pass
	passes    []Pass
	template  Template
	active    []Pass

	driver      FrameDriver
	semaphores  []*Semaphore
	submissions []Submission
	inflight    []inflight
	prepared    bool
	closed      bool
}

// NewManager builds every pass and the four templates. It fails with
// raytrace.ErrMissingFeature when a ray tracing device is given but lacks
// a required feature.
func NewManager(cfg Config) (*Manager, error) {
	if !cfg.Template.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrNoTemplate, cfg.Template)
	}
	m := &Manager{cfg: cfg}

	gbuffer := NewGBuffer(cfg.DrawFlags)
	gui := func(t Template) Pass { return NewGui(t, cfg.Gui, cfg.SceneInfo) }
	m.templates[RasterOnly] = []Pass{gbuffer, gui(RasterOnly)}

	if cfg.RayTracer != nil {
		pt, err := NewPathTracer(cfg.RayTracer)
		if err != nil {
			return nil, err
		}
		m.templates[PathtracerOnly] = []Pass{gbuffer, pt, gui(PathtracerOnly)}
		m.templates[SVGF] = []Pass{gbuffer, pt, NewTemporalAccumulation(), NewAtrous(), gui(SVGF)}
		m.templates[BMFR] = []Pass{
			gbuffer, pt, NewBMFRPrepass(), NewBMFRCompute(cfg.BMFRConfig), NewBMFRPostpass(), gui(BMFR),
		}
	}
	for _, t := range m.templates {
		for _, p := range t {
			if !slices.Contains(m.passes, p) {
				m.passes = append(m.passes, p)
			}
		}
	}

	if m.templates[cfg.Template] == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoRayTracer, cfg.Template)
	}
	m.template = cfg.Template
	m.active = m.templates[cfg.Template]
	return m, nil
}

// Prepare creates the attachments and shared objects on the driver's
// device and prepares the active template. semaphoreCount is checked
// against the N-1 semaphores an N-pass template needs; zero skips the
// check.
func (m *Manager) Prepare(driver FrameDriver, semaphoreCount int) error {
	if m.closed {
		return ErrClosed
	}
	if m.prepared {
		return nil
	}
	width, height := driver.Extent()
	if width == 0 || height == 0 {
		return ErrEmptyExtent
	}
	device := driver.Device()
	m.env = Env{
		Device:       device,
		Queue:        driver.Queue(),
		ComputeQueue: m.cfg.ComputeQueue,
		Registry:     attachment.New(device),
		Scene:        m.cfg.Scene,
		RayTracer:    m.cfg.RayTracer,
		SceneInfo:    m.cfg.SceneInfo,
	}
	if err := m.env.Registry.Create(width, height); err != nil {
		return fmt.Errorf("create attachments: %w", err)
	}
	statics, err := NewStatics(device, shader.NewLibrary(device, m.cfg.ShaderOptions...))
	if err != nil {
		m.env.Registry.Destroy()
		return err
	}
	m.env.Statics = statics

	for _, p := range m.active {
		if err := p.Prepare(&m.env); err != nil {
			m.teardown()
			return err
		}
	}
	m.driver = driver
	m.allocSemaphores(semaphoreCount)
	m.prepared = true
	slogger().Info("pass: manager prepared",
		"template", m.template, "passes", len(m.active), "width", width, "height", height)
	return nil
}

func (m *Manager) allocSemaphores(requested int) {
	want := len(m.active) - 1
	if requested > 0 && requested != want {
		slogger().Warn("pass: semaphore count does not match template",
			"requested", requested, "using", want, "template", m.template)
	}
	m.semaphores = make([]*Semaphore, want)
	for i := range m.semaphores {
		m.semaphores[i] = NewSemaphore(m.active[i].Name() + "_done")
	}
}

// SetQueueTemplate switches the active template. Once prepared, passes
// the new template does not share are cleaned up and its unprepared
// passes are prepared; shared passes keep their resources. Naming the
// active template again prepares any pass a failed switch or resize left
// unprepared.
func (m *Manager) SetQueueTemplate(t Template) error {
	if m.closed {
		return ErrClosed
	}
	if !t.Valid() {
		return fmt.Errorf("%w: %s", ErrNoTemplate, t)
	}
	next := m.templates[t]
	if next == nil {
		return fmt.Errorf("%w: %s", ErrNoRayTracer, t)
	}
	if t == m.template && (!m.prepared || m.ready()) {
		return nil
	}
	if !m.prepared {
		slogger().Info("pass: queue template switched", "from", m.template, "to", t)
		m.template, m.active = t, next
		return nil
	}
	m.waitIdle()
	for _, p := range m.active {
		if !slices.Contains(next, p) {
			p.CleanUp()
		}
	}
	// The switch is committed before preparing so a failed pass is
	// retried by the next call, whatever template it names.
	from := m.template
	m.template, m.active = t, next
	m.allocSemaphores(0)
	for _, p := range next {
		if err := p.Prepare(&m.env); err != nil {
			return fmt.Errorf("switch to %s: %w", t, err)
		}
	}
	slogger().Info("pass: queue template switched", "from", from, "to", t)
	return nil
}

// ready reports whether every active pass is prepared.
func (m *Manager) ready() bool {
	for _, p := range m.active {
		if !p.Prepared() {
			return false
		}
	}
	return true
}

// Draw submits every pass of the active template except the last, each
// waiting on the previous pass's semaphore, then submits base waiting on
// the last one and signaling render-complete. A nil base submits the
// template's display composite instead. Uniform blocks are updated
// afterwards.
func (m *Manager) Draw(base hal.CommandBuffer) error {
	if !m.prepared {
		return ErrNotPrepared
	}
	for _, p := range m.active {
		if !p.Prepared() {
			return fmt.Errorf("%w: %s", ErrNotPrepared, p.Name())
		}
	}
	m.reclaim(false)
	m.submissions = m.submissions[:0]

	n := len(m.active)
	wait := m.driver.PresentComplete()
	for i, p := range m.active[:n-1] {
		cb, err := p.Draw()
		if err != nil {
			return err
		}
		queue := m.env.Queue
		if qo, ok := p.(QueueOwner); ok && qo.Queue() != nil {
			queue = qo.Queue()
		}
		if err := m.submit(queue, p.Name(), cb, wait, m.semaphores[i], true, true); err != nil {
			return err
		}
		wait = m.semaphores[i]
	}

	name, owned := "base", false
	if base == nil {
		gui := m.active[n-1]
		cb, err := gui.Draw()
		if err != nil {
			return err
		}
		name, base, owned = gui.Name(), cb, true
	}
	if err := m.submit(m.env.Queue, name, base, wait, m.driver.RenderComplete(), false, owned); err != nil {
		return err
	}

	var errs []error
	for _, p := range m.active {
		if err := p.UpdateUniformBuffer(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) submit(queue hal.Queue, name string, cb hal.CommandBuffer, wait, signal *Semaphore, offscreen, owned bool) error {
	if err := m.await(queue, wait); err != nil {
		if owned {
			m.env.Device.FreeCommandBuffer(cb)
		}
		return fmt.Errorf("submit %s: %w", name, err)
	}
	if offscreen {
		queue.SetSwapchainSuppressed(true)
		defer queue.SetSwapchainSuppressed(false)
	}
	index, err := queue.Submit([]hal.CommandBuffer{cb})
	if err != nil {
		if owned {
			m.env.Device.FreeCommandBuffer(cb)
		}
		return fmt.Errorf("submit %s: %w", name, err)
	}
	if signal != nil {
		signal.Signal(queue, index)
	}
	if owned {
		m.inflight = append(m.inflight, inflight{queue: queue, index: index, buffer: cb})
	}
	m.submissions = append(m.submissions, Submission{
		Pass:      name,
		Wait:      wait,
		Signal:    signal,
		Index:     index,
		Offscreen: offscreen,
	})
	slogger().Debug("pass: submitted", "pass", name, "index", index, "wait", wait, "signal", signal)
	return nil
}

// awaitPolls bounds the polling for a submission on another queue before
// falling back to waiting for the device.
const awaitPolls = 64

// await blocks until the submission signaling wait has completed when it
// ran on a queue other than queue. A queue only orders its own
// submissions, so work handed between the graphics and compute queues is
// fenced here.
func (m *Manager) await(queue hal.Queue, wait *Semaphore) error {
	if wait == nil || wait.Queue() == nil || wait.Queue() == queue {
		return nil
	}
	for range awaitPolls {
		if wait.Complete() {
			return nil
		}
		runtime.Gosched()
	}
	slogger().Debug("pass: waiting for device", "semaphore", wait, "value", wait.Value())
	if err := m.env.Device.WaitIdle(); err != nil {
		return fmt.Errorf("wait for %s: %w", wait, err)
	}
	return nil
}

// reclaim frees finished command buffers, or all of them.
func (m *Manager) reclaim(all bool) {
	kept := m.inflight[:0]
	for _, f := range m.inflight {
		if all || f.queue.PollCompleted() >= f.index {
			m.env.Device.FreeCommandBuffer(f.buffer)
			continue
		}
		kept = append(kept, f)
	}
	clear(m.inflight[len(kept):])
	m.inflight = kept
}

func (m *Manager) waitIdle() {
	if err := m.env.Device.WaitIdle(); err != nil {
		slogger().Warn("pass: wait idle failed", "err", err)
	}
	m.reclaim(true)
}

// Resize recreates every attachment at the new extent and rebuilds the
// active passes. A zero extent, such as a minimized window, is ignored.
// After a failure the passes left unprepared are rebuilt by the next
// Resize or SetQueueTemplate.
func (m *Manager) Resize(width, height uint32) error {
	if !m.prepared {
		return ErrNotPrepared
	}
	if width == 0 || height == 0 {
		slogger().Debug("pass: resize to empty extent ignored")
		return nil
	}
	m.waitIdle()
	for _, p := range m.active {
		if _, ok := p.(Resizer); !ok {
			p.CleanUp()
		}
	}
	if err := m.env.Registry.Resize(width, height); err != nil {
		for _, p := range m.active {
			p.CleanUp()
		}
		return err
	}
	for i, p := range m.active {
		var err error
		if r, ok := p.(Resizer); ok {
			err = r.Resize(&m.env)
		} else {
			err = p.Prepare(&m.env)
		}
		if err != nil {
			// Passes not yet rebuilt still reference the old attachments.
			for _, rest := range m.active[i+1:] {
				rest.CleanUp()
			}
			return fmt.Errorf("resize: %w", err)
		}
	}
	slogger().Info("pass: resized", "width", width, "height", height, "template", m.template)
	return nil
}

// Template returns the active template.
func (m *Manager) Template() Template { return m.template }

// Active returns the passes of the active template in submission order.
// The display composite is last.
func (m *Manager) Active() []Pass { return slices.Clone(m.active) }

// ActiveGui returns the display composite of the active template.
func (m *Manager) ActiveGui() Pass { return m.active[len(m.active)-1] }

// Available reports whether template t can be selected.
func (m *Manager) Available(t Template) bool { return t.Valid() && m.templates[t] != nil }

// Submissions returns the submissions of the last Draw.
func (m *Manager) Submissions() []Submission { return slices.Clone(m.submissions) }

// Semaphores returns the inter-pass semaphores of the active template.
func (m *Manager) Semaphores() []*Semaphore { return slices.Clone(m.semaphores) }

// Registry returns the attachment registry, or nil before Prepare.
func (m *Manager) Registry() *attachment.Registry { return m.env.Registry }

// Statics returns the shared pass objects, or nil before Prepare.
func (m *Manager) Statics() *Statics { return m.env.Statics }

// Close waits for the device, destroys every pass and the shared
// objects. A second call is a no-op.
func (m *Manager) Close() {
	if m.closed {
		return
	}
	m.closed = true
	if m.prepared {
		m.waitIdle()
		m.teardown()
	}
}

func (m *Manager) teardown() {
	for _, p := range m.passes {
		p.CleanUp()
	}
	for _, u := range []ubo.Interface{m.cfg.SceneInfo, m.cfg.Gui, m.cfg.BMFRConfig} {
		if u != nil {
			u.Destroy()
		}
	}
	if m.env.Statics != nil {
		m.env.Statics.Close()
		m.env.Statics = nil
	}
	m.env.Registry.Destroy()
	m.prepared = false
}
