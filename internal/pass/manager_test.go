package pass_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rtfilters/internal/binding"
	"github.com/gogpu/rtfilters/internal/gputest"
	"github.com/gogpu/rtfilters/internal/pass"
	"github.com/gogpu/rtfilters/recording"
)

func passNames(ps []pass.Pass) []string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name()
	}
	return names
}

func TestManagerTemplates(t *testing.T) {
	tests := []struct {
		tmpl pass.Template
		want []string
	}{
		{pass.RasterOnly, []string{"gbuffer", "gui_raster"}},
		{pass.PathtracerOnly, []string{"gbuffer", "pathtracer", "gui_pathtracer"}},
		{pass.SVGF, []string{"gbuffer", "pathtracer", "temporal_accumulation", "atrous", "gui_svgf"}},
		{pass.BMFR, []string{"gbuffer", "pathtracer", "bmfr_prepass", "bmfr", "bmfr_postpass", "gui_bmfr"}},
	}
	for _, tt := range tests {
		t.Run(tt.tmpl.String(), func(t *testing.T) {
			f := newManager(t, tt.tmpl, true)
			got := passNames(f.m.Active())
			if len(got) != len(tt.want) {
				t.Fatalf("passes = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("passes = %v, want %v", got, tt.want)
					break
				}
			}
			if f.m.ActiveGui().Name() != tt.want[len(tt.want)-1] {
				t.Errorf("ActiveGui = %s", f.m.ActiveGui().Name())
			}
		})
	}
}

func TestManagerSemaphoreChain(t *testing.T) {
	f := newManager(t, pass.SVGF, true)
	f.prepare(t)

	if n := len(f.m.Semaphores()); n != 4 {
		t.Fatalf("semaphores = %d, want 4", n)
	}
	if err := f.m.Draw(nil); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	subs := f.m.Submissions()
	if len(subs) != 5 {
		t.Fatalf("submissions = %d, want 5", len(subs))
	}
	if subs[0].Wait != f.driver.present {
		t.Errorf("first submission waits on %s, want present_complete", subs[0].Wait)
	}
	for i := 1; i < len(subs); i++ {
		if subs[i].Wait != subs[i-1].Signal {
			t.Errorf("submission %d waits on %s, want %s", i, subs[i].Wait, subs[i-1].Signal)
		}
		if subs[i].Index <= subs[i-1].Index {
			t.Errorf("submission %d index %d not after %d", i, subs[i].Index, subs[i-1].Index)
		}
	}
	for i, s := range subs[:4] {
		if !s.Offscreen {
			t.Errorf("submission %d (%s) not offscreen", i, s.Pass)
		}
		if s.Signal.Value() != s.Index {
			t.Errorf("%s signal value = %d, want %d", s.Signal, s.Signal.Value(), s.Index)
		}
	}
	last := subs[4]
	if last.Offscreen || last.Pass != "gui_svgf" || last.Signal != f.driver.render {
		t.Errorf("last submission = %+v", last)
	}
	if !f.driver.render.Complete() {
		t.Error("render complete not signaled")
	}

	if err := f.m.Draw(nil); err != nil {
		t.Fatalf("second Draw: %v", err)
	}
	if n := len(f.m.Submissions()); n != 5 {
		t.Errorf("submissions after second frame = %d, want 5", n)
	}
}

func TestManagerSemaphoreCountMismatch(t *testing.T) {
	f := newManager(t, pass.BMFR, true)
	if err := f.m.Prepare(f.driver, 9); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if n := len(f.m.Semaphores()); n != 5 {
		t.Errorf("semaphores = %d, want 5", n)
	}
}

func TestManagerDrawWithBase(t *testing.T) {
	f := newManager(t, pass.RasterOnly, false)
	f.prepare(t)

	enc, err := f.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "base"})
	if err != nil {
		t.Fatal(err)
	}
	defer enc.Destroy()
	if err := enc.BeginEncoding("base"); err != nil {
		t.Fatal(err)
	}
	base, err := enc.EndEncoding()
	if err != nil {
		t.Fatal(err)
	}

	if err := f.m.Draw(base); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	subs := f.m.Submissions()
	if len(subs) != 2 || subs[1].Pass != "base" {
		t.Fatalf("submissions = %+v", subs)
	}
	if f.scene.draws != 1 {
		t.Errorf("scene draws = %d, want 1", f.scene.draws)
	}
}

func TestManagerReclaimsCommandBuffers(t *testing.T) {
	f := newManager(t, pass.RasterOnly, false)
	f.prepare(t)

	for range 2 {
		if err := f.m.Draw(nil); err != nil {
			t.Fatal(err)
		}
	}
	if n := f.dev.Calls["FreeCommandBuffer"]; n != 2 {
		t.Errorf("freed after two frames = %d, want 2", n)
	}
	f.m.Close()
	if n := f.dev.Calls["FreeCommandBuffer"]; n != 4 {
		t.Errorf("freed after Close = %d, want 4", n)
	}
}

func TestManagerSwitchKeepsSharedPasses(t *testing.T) {
	f := newManager(t, pass.RasterOnly, true)
	f.prepare(t)

	gbuffer, ok := f.m.Active()[0].(*pass.GBuffer)
	if !ok {
		t.Fatalf("first pass is %T", f.m.Active()[0])
	}
	rec := gbuffer.Recording()
	rasterGui := f.m.ActiveGui()

	if err := f.m.SetQueueTemplate(pass.SVGF); err != nil {
		t.Fatalf("SetQueueTemplate: %v", err)
	}
	if gbuffer.Recording() != rec {
		t.Error("G-buffer was prepared again")
	}
	if rasterGui.Prepared() {
		t.Error("raster gui still prepared")
	}
	if f.m.ActiveGui().Name() != "gui_svgf" || f.m.Template() != pass.SVGF {
		t.Errorf("ActiveGui = %s, Template = %s", f.m.ActiveGui().Name(), f.m.Template())
	}
	for _, p := range f.m.Active() {
		if !p.Prepared() {
			t.Errorf("%s not prepared", p.Name())
		}
	}
	if n := len(f.m.Semaphores()); n != 4 {
		t.Errorf("semaphores = %d, want 4", n)
	}
	// temporal accumulation, atrous and the gui hold the statics
	if refs := f.m.Statics().Refs(); refs != 3 {
		t.Errorf("statics refs = %d, want 3", refs)
	}
	if err := f.m.Draw(nil); err != nil {
		t.Fatalf("Draw: %v", err)
	}

	if err := f.m.SetQueueTemplate(pass.RasterOnly); err != nil {
		t.Fatal(err)
	}
	if refs := f.m.Statics().Refs(); refs != 1 {
		t.Errorf("statics refs back on raster = %d, want 1", refs)
	}
}

func TestManagerSwitchWithoutRayTracer(t *testing.T) {
	f := newManager(t, pass.RasterOnly, false)
	f.prepare(t)

	if f.m.Available(pass.SVGF) {
		t.Error("SVGF available without a ray tracer")
	}
	if err := f.m.SetQueueTemplate(pass.SVGF); !errors.Is(err, pass.ErrNoRayTracer) {
		t.Errorf("SetQueueTemplate(SVGF) error = %v, want ErrNoRayTracer", err)
	}
	if err := f.m.SetQueueTemplate(pass.Template(9)); !errors.Is(err, pass.ErrNoTemplate) {
		t.Errorf("SetQueueTemplate(9) error = %v, want ErrNoTemplate", err)
	}
	if f.m.Template() != pass.RasterOnly {
		t.Errorf("Template = %s after failed switches", f.m.Template())
	}

	_, err := pass.NewManager(pass.Config{Template: pass.BMFR})
	if !errors.Is(err, pass.ErrNoRayTracer) {
		t.Errorf("NewManager(BMFR) error = %v, want ErrNoRayTracer", err)
	}
}

func TestManagerResizeRebindsAttachments(t *testing.T) {
	f := newManager(t, pass.BMFR, true)
	f.prepare(t)
	reg := f.m.Registry()
	gen := reg.Generation()

	if err := f.m.Resize(128, 96); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if reg.Generation() == gen {
		t.Error("attachments not recreated")
	}
	type bound interface{ Bindings() binding.List }
	for _, p := range f.m.Active() {
		b, ok := p.(bound)
		if !ok {
			continue
		}
		for _, bd := range b.Bindings() {
			a := bd.Attachment()
			if a != reg.Get(bd.Key) {
				t.Errorf("%s: %s bound to a stale attachment", p.Name(), bd.Key)
				continue
			}
			if a.Width != 128 || a.Height != 96 {
				t.Errorf("%s: %s extent = %dx%d", p.Name(), bd.Key, a.Width, a.Height)
			}
		}
	}
	if f.rt.calls["CreatePipeline"] != 1 {
		t.Errorf("ray tracing pipeline created %d times", f.rt.calls["CreatePipeline"])
	}

	compute := f.m.Active()[3].(*pass.BMFRCompute)
	for _, c := range compute.Recording().Commands() {
		if d, ok := c.(recording.DispatchCommand); ok && (d.X != 4 || d.Y != 3) {
			t.Errorf("dispatch after resize = %d x %d, want 4 x 3", d.X, d.Y)
		}
	}
	if err := f.m.Draw(nil); err != nil {
		t.Fatalf("Draw after resize: %v", err)
	}
	if n := len(f.rt.traces); n != 1 || f.rt.traces[0].Width != 128 {
		t.Errorf("traces = %+v", f.rt.traces)
	}

	if err := f.m.Resize(0, 0); err != nil {
		t.Errorf("Resize(0, 0) = %v", err)
	}
	if w, h := reg.Extent(); w != 128 || h != 96 {
		t.Errorf("extent after empty resize = %dx%d", w, h)
	}
}

func TestManagerComputeQueue(t *testing.T) {
	_, compute := gputest.NoopDevice(t)
	f := newManager(t, pass.BMFR, true, func(c *pass.Config) { c.ComputeQueue = compute })
	f.prepare(t)

	if err := f.m.Draw(nil); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	sems := f.m.Semaphores()
	if sems[3].Queue() != compute {
		t.Error("regression pass not submitted on the compute queue")
	}
	if sems[2].Queue() == compute {
		t.Error("prepass submitted on the compute queue")
	}
}

func TestManagerComputeQueueWaitsForGraphics(t *testing.T) {
	tests := []struct {
		name      string
		lag       int
		waitIdles int
	}{
		{"polled", 3, 0},
		{"device wait", 1000, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var log []string
			_, computeQueue := gputest.NoopDevice(t)
			compute := &laggingQueue{Queue: computeQueue, name: "compute", log: &log}
			f := newManager(t, pass.BMFR, true, func(c *pass.Config) { c.ComputeQueue = compute })
			graphics := &laggingQueue{Queue: f.driver.queue, name: "graphics", lag: tt.lag, log: &log}
			f.driver.queue = graphics
			f.prepare(t)

			idles := f.dev.Calls["WaitIdle"]
			if err := f.m.Draw(nil); err != nil {
				t.Fatalf("Draw: %v", err)
			}
			if n := f.dev.Calls["WaitIdle"] - idles; n != tt.waitIdles {
				t.Errorf("device waits = %d, want %d", n, tt.waitIdles)
			}
			if f.m.Semaphores()[3].Queue() != compute {
				t.Fatal("regression pass not submitted on the compute queue")
			}

			at := slices.Index(log, "compute submit")
			if at < 1 {
				t.Fatalf("log = %v", log)
			}
			if tt.waitIdles == 0 && log[at-1] != "graphics complete" {
				t.Errorf("compute submitted before the prepass completed: %v", log)
			}
			if at+2 >= len(log) || log[at+1] != "compute complete" || log[at+2] != "graphics submit" {
				t.Errorf("postpass submitted before the regression completed: %v", log)
			}
		})
	}
}

func TestManagerSwitchRecoversFromFailedPrepare(t *testing.T) {
	t.Run("switch back", func(t *testing.T) {
		f := newManager(t, pass.RasterOnly, true)
		f.prepare(t)
		pipelines := f.dev.Live("RenderPipeline")

		f.dev.FailAt["CreateRenderPipeline"] = f.dev.Calls["CreateRenderPipeline"] + 1
		if err := f.m.SetQueueTemplate(pass.SVGF); !errors.Is(err, gputest.ErrInjected) {
			t.Fatalf("SetQueueTemplate(SVGF) = %v, want ErrInjected", err)
		}
		if f.m.Template() != pass.SVGF {
			t.Errorf("Template = %s after failed switch, want SVGF", f.m.Template())
		}
		if err := f.m.Draw(nil); !errors.Is(err, pass.ErrNotPrepared) {
			t.Errorf("Draw after failed switch = %v, want ErrNotPrepared", err)
		}

		if err := f.m.SetQueueTemplate(pass.RasterOnly); err != nil {
			t.Fatalf("SetQueueTemplate(RasterOnly): %v", err)
		}
		if err := f.m.Draw(nil); err != nil {
			t.Fatalf("Draw: %v", err)
		}
		if live := f.dev.Live("RenderPipeline"); live != pipelines {
			t.Errorf("live render pipelines = %d, want %d", live, pipelines)
		}
		if refs := f.m.Statics().Refs(); refs != 1 {
			t.Errorf("statics refs = %d, want 1", refs)
		}
	})

	t.Run("retry", func(t *testing.T) {
		f := newManager(t, pass.RasterOnly, true)
		f.prepare(t)

		f.dev.FailAt["CreateRenderPipeline"] = f.dev.Calls["CreateRenderPipeline"] + 2
		if err := f.m.SetQueueTemplate(pass.SVGF); !errors.Is(err, gputest.ErrInjected) {
			t.Fatalf("SetQueueTemplate(SVGF) = %v, want ErrInjected", err)
		}
		if err := f.m.SetQueueTemplate(pass.SVGF); err != nil {
			t.Fatalf("retry SetQueueTemplate(SVGF): %v", err)
		}
		for _, p := range f.m.Active() {
			if !p.Prepared() {
				t.Errorf("%s not prepared", p.Name())
			}
		}
		if n := len(f.m.Semaphores()); n != 4 {
			t.Errorf("semaphores = %d, want 4", n)
		}
		if err := f.m.Draw(nil); err != nil {
			t.Fatalf("Draw: %v", err)
		}
	})
}

func TestManagerResizeRecoversFromFailure(t *testing.T) {
	f := newManager(t, pass.BMFR, true)
	f.prepare(t)

	// the G-buffer is rebuilt first; the path tracer after it keeps
	// resizable state
	f.dev.FailAt["CreateRenderPipeline"] = f.dev.Calls["CreateRenderPipeline"] + 1
	if err := f.m.Resize(128, 96); !errors.Is(err, gputest.ErrInjected) {
		t.Fatalf("Resize = %v, want ErrInjected", err)
	}
	for _, p := range f.m.Active() {
		if p.Prepared() {
			t.Errorf("%s still prepared after failed resize", p.Name())
		}
	}
	if err := f.m.Draw(nil); !errors.Is(err, pass.ErrNotPrepared) {
		t.Errorf("Draw after failed resize = %v, want ErrNotPrepared", err)
	}

	if err := f.m.Resize(128, 96); err != nil {
		t.Fatalf("second Resize: %v", err)
	}
	if err := f.m.Draw(nil); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if n := len(f.rt.traces); n != 1 || f.rt.traces[0].Width != 128 {
		t.Errorf("traces = %+v", f.rt.traces)
	}
}

func TestManagerLifecycle(t *testing.T) {
	f := newManager(t, pass.SVGF, true)
	if err := f.m.Draw(nil); !errors.Is(err, pass.ErrNotPrepared) {
		t.Errorf("Draw before Prepare = %v, want ErrNotPrepared", err)
	}
	f.driver.width = 0
	if err := f.m.Prepare(f.driver, 0); !errors.Is(err, pass.ErrEmptyExtent) {
		t.Errorf("Prepare with empty extent = %v, want ErrEmptyExtent", err)
	}
	f.driver.width = 64
	f.prepare(t)
	if err := f.m.Draw(nil); err != nil {
		t.Fatal(err)
	}

	statics := f.m.Statics()
	f.m.Close()
	if statics.Refs() != 0 {
		t.Errorf("statics refs after Close = %d", statics.Refs())
	}
	for _, kind := range []string{"Texture", "TextureView", "Sampler", "BindGroup", "RenderPipeline", "ComputePipeline", "ShaderModule"} {
		if live := f.dev.Live(kind); live != 0 {
			t.Errorf("live %s after Close = %d", kind, live)
		}
	}
	if f.rt.calls["DestroyAccelerationStructure"] != 2 || f.rt.calls["DestroyPipeline"] != 1 {
		t.Errorf("ray tracing objects not destroyed: %v", f.rt.calls)
	}
	f.m.Close()
	if err := f.m.Prepare(f.driver, 0); !errors.Is(err, pass.ErrClosed) {
		t.Errorf("Prepare after Close = %v, want ErrClosed", err)
	}
	if err := f.m.SetQueueTemplate(pass.BMFR); !errors.Is(err, pass.ErrClosed) {
		t.Errorf("SetQueueTemplate after Close = %v, want ErrClosed", err)
	}
}
