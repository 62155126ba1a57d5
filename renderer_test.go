package rtfilters

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rtfilters/internal/gputest"
	"github.com/gogpu/rtfilters/internal/pass"
)

type fixture struct {
	r      *Renderer
	dev    *gputest.Device
	driver *Driver
	scene  *MeshScene
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	dev, queue := gputest.NewDevice(t)
	scene, err := NewMeshScene(dev, queue, Cube())
	if err != nil {
		t.Fatalf("NewMeshScene: %v", err)
	}
	t.Cleanup(scene.Close)
	driver := NewDriver(dev, queue, 64, 48)
	r, err := New(driver, append([]Option{WithScene(scene), WithShaderSource()}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(r.Close)
	return &fixture{r: r, dev: dev, driver: driver, scene: scene}
}

func TestUniformSizes(t *testing.T) {
	tests := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"SceneInfo", unsafe.Sizeof(SceneInfo{}), 288},
		{"GuiBase", unsafe.Sizeof(GuiBase{}), 16},
		{"BMFRConfig", unsafe.Sizeof(BMFRConfig{}), 16},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("sizeof(%s) = %d, want %d", tt.name, tt.got, tt.want)
		}
	}
}

func TestRendererDraw(t *testing.T) {
	f := newFixture(t)
	for range 2 {
		if err := f.r.Draw(nil); err != nil {
			t.Fatalf("Draw: %v", err)
		}
	}
	if got := f.r.Frame(); got != 2 {
		t.Errorf("Frame() = %d, want 2", got)
	}
	subs := f.r.Submissions()
	if len(subs) != 2 {
		t.Fatalf("got %d submissions, want 2", len(subs))
	}
	if subs[0].Pass != "gbuffer" || subs[1].Pass != "gui_raster" {
		t.Errorf("submissions = %s, %s", subs[0].Pass, subs[1].Pass)
	}
	if subs[1].Signal != f.driver.RenderComplete() {
		t.Errorf("last submission signals %v, want render_complete", subs[1].Signal)
	}
	if rc := f.driver.RenderComplete(); rc.Queue() == nil || !rc.Complete() {
		t.Error("render_complete not signaled")
	}
}

func TestRendererDrawUpdatesSceneInfo(t *testing.T) {
	f := newFixture(t)
	f.r.UpdateSceneInfo(func(si *SceneInfo) { si.View[12] = 4 })
	if err := f.r.Draw(nil); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	var got SceneInfo
	f.r.UpdateSceneInfo(func(si *SceneInfo) { got = *si })
	if got.Frame != 1 {
		t.Errorf("Frame = %d, want 1", got.Frame)
	}
	if got.PrevView[12] != 4 {
		t.Errorf("PrevView[12] = %v, want 4", got.PrevView[12])
	}
}

func TestNewRequiresScene(t *testing.T) {
	dev, queue := gputest.NoopDevice(t)
	_, err := New(NewDriver(dev, queue, 64, 48))
	if !errors.Is(err, ErrNoScene) {
		t.Fatalf("New() error = %v, want ErrNoScene", err)
	}
}

func TestRendererRayTracedTemplates(t *testing.T) {
	f := newFixture(t)
	for _, tmpl := range []Template{PathtracerOnly, SVGF, BMFR} {
		if f.r.Available(tmpl) {
			t.Errorf("%v available without a ray tracer", tmpl)
		}
		if err := f.r.SetTemplate(tmpl); !errors.Is(err, pass.ErrNoRayTracer) {
			t.Errorf("SetTemplate(%v) error = %v, want ErrNoRayTracer", tmpl, err)
		}
	}
	if got := f.r.Template(); got != RasterOnly {
		t.Errorf("Template() = %v, want raster", got)
	}
}

func TestRendererDisplay(t *testing.T) {
	f := newFixture(t)
	if l, r := f.r.Display(); l != 2 || r != 3 {
		t.Errorf("default display = %d/%d, want 2/3", l, r)
	}
	if err := f.r.SetDisplay(0, 3); err != nil {
		t.Fatalf("SetDisplay: %v", err)
	}
	if l, r := f.r.Display(); l != 0 || r != 3 {
		t.Errorf("display = %d/%d, want 0/3", l, r)
	}
	if err := f.r.SetDisplay(0, 4); !errors.Is(err, ErrDisplayIndex) {
		t.Errorf("SetDisplay(0, 4) error = %v, want ErrDisplayIndex", err)
	}
	f.r.SetSplit(2)
	if got := f.r.Split(); got != 1 {
		t.Errorf("Split() = %v, want 1", got)
	}
}

func TestRendererResize(t *testing.T) {
	f := newFixture(t)
	if err := f.r.Resize(128, 96); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if w, h := f.r.Extent(); w != 128 || h != 96 {
		t.Errorf("Extent() = %dx%d, want 128x96", w, h)
	}
	if w, h := f.driver.Extent(); w != 128 || h != 96 {
		t.Errorf("driver extent = %dx%d, want 128x96", w, h)
	}
	if err := f.r.Draw(nil); err != nil {
		t.Fatalf("Draw after resize: %v", err)
	}
}

func TestRendererClose(t *testing.T) {
	f := newFixture(t)
	if err := f.r.Draw(nil); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	f.r.Close()
	f.r.Close()
	for _, kind := range []string{"Texture", "TextureView", "Sampler", "RenderPipeline", "PipelineLayout", "ShaderModule"} {
		if live := f.dev.Live(kind); live != 0 {
			t.Errorf("%d %s objects alive after Close", live, kind)
		}
	}
	if err := f.r.Draw(nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Draw after Close error = %v, want ErrClosed", err)
	}
	f.scene.Close()
	for _, kind := range []string{"Buffer", "BindGroup", "BindGroupLayout"} {
		if live := f.dev.Live(kind); live != 0 {
			t.Errorf("%d %s objects alive after scene Close", live, kind)
		}
	}
}

func TestParseTemplate(t *testing.T) {
	got, err := ParseTemplate("svgf")
	if err != nil || got != SVGF {
		t.Errorf("ParseTemplate(svgf) = %v, %v", got, err)
	}
	if _, err := ParseTemplate("denoise"); err == nil {
		t.Error("ParseTemplate(denoise) succeeded")
	}
}

type bareProvider struct{ gpucontext.DeviceProvider }

type halProvider struct {
	gpucontext.DeviceProvider
	device hal.Device
	queue  hal.Queue
}

func (p *halProvider) HalDevice() any { return p.device }
func (p *halProvider) HalQueue() any  { return p.queue }

func TestNewFromProvider(t *testing.T) {
	if _, err := NewFromProvider(bareProvider{}, 64, 48); !errors.Is(err, ErrNoHalProvider) {
		t.Errorf("bare provider error = %v, want ErrNoHalProvider", err)
	}

	dev, queue := gputest.NoopDevice(t)
	scene, err := NewMeshScene(dev, queue, Cube())
	if err != nil {
		t.Fatalf("NewMeshScene: %v", err)
	}
	t.Cleanup(scene.Close)
	r, err := NewFromProvider(&halProvider{device: dev, queue: queue}, 32, 16, WithScene(scene), WithShaderSource())
	if err != nil {
		t.Fatalf("NewFromProvider: %v", err)
	}
	defer r.Close()
	if w, h := r.Extent(); w != 32 || h != 16 {
		t.Errorf("Extent() = %dx%d, want 32x16", w, h)
	}
}
